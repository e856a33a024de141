package evaluator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hpi-lang/hpi/pkg/hpi/ast"
)

// ValueType names the runtime kind of a value
type ValueType string

const (
	UNIT_VAL     = "NICHTS"
	INT_VAL      = "ZAHL"
	FLOAT_VAL    = "FLIESSKOMMAZAHL"
	BOOL_VAL     = "WAHRHEITSWERT"
	CHAR_VAL     = "ZEICHEN"
	STRING_VAL   = "ZEICHENKETTE"
	LIST_VAL     = "LISTE"
	OBJECT_VAL   = "OBJEKT"
	POINTER_VAL  = "ZEIGER"
	BUILTIN_VAL  = "EINGEBAUT"
	RECORD_VAL   = "SPEICHERBOX"
	RETURN_VAL   = "RETURN"
	BREAK_VAL    = "BREAK"
	CONTINUE_VAL = "CONTINUE"
	EXIT_VAL     = "EXIT"
	ERROR_VAL    = "ERROR"
)

// Value represents all runtime values and control-flow signals
type Value interface {
	Type() ValueType
	Inspect() string
}

// Unit is the empty value
type Unit struct{}

func (u *Unit) Type() ValueType { return UNIT_VAL }
func (u *Unit) Inspect() string { return "Nichts" }

// Int is a 64-bit signed integer
type Int struct {
	Value int64
}

func (i *Int) Type() ValueType { return INT_VAL }
func (i *Int) Inspect() string { return strconv.FormatInt(i.Value, 10) }

// Float is a 64-bit float
type Float struct {
	Value float64
}

func (f *Float) Type() ValueType { return FLOAT_VAL }
func (f *Float) Inspect() string { return strconv.FormatFloat(f.Value, 'f', -1, 64) }

type Bool struct {
	Value bool
}

func (b *Bool) Type() ValueType { return BOOL_VAL }
func (b *Bool) Inspect() string {
	if b.Value {
		return "ja"
	}
	return "nein"
}

// Char is an 8-bit code unit
type Char struct {
	Value byte
}

func (c *Char) Type() ValueType { return CHAR_VAL }
func (c *Char) Inspect() string { return string(rune(c.Value)) }

// String is immutable text; copying the value copies the text
type String struct {
	Value string
}

func (s *String) Type() ValueType { return STRING_VAL }
func (s *String) Inspect() string { return s.Value }

// List is shared by reference; mutation is visible through every alias
type List struct {
	Elements []Value
}

func (l *List) Type() ValueType { return LIST_VAL }
func (l *List) Inspect() string {
	parts := make([]string, len(l.Elements))
	for i, el := range l.Elements {
		parts[i] = inspectNested(el)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Object is a string-keyed mapping with reference semantics
type Object struct {
	Fields map[string]Value
}

func (o *Object) Type() ValueType { return OBJECT_VAL }
func (o *Object) Inspect() string { return inspectMapping(o.Fields) }

// Record is a string-keyed mapping exposing host data (Speicherbox)
type Record struct {
	Fields map[string]Value
}

func (r *Record) Type() ValueType { return RECORD_VAL }
func (r *Record) Inspect() string { return inspectMapping(r.Fields) }

// Cell is a storage location holding exactly one value. Bindings and
// pointers share cells; assignment replaces the content, never the cell.
type Cell struct {
	Value Value
}

// Pointer refers to a cell, not to a value
type Pointer struct {
	Cell *Cell
}

func (p *Pointer) Type() ValueType { return POINTER_VAL }
func (p *Pointer) Inspect() string { return "*" + inspectNested(p.Cell.Value) }

// BuiltinFunction is a member builtin bound to the value it was read from
type BuiltinFunction struct {
	Name string
	Base Value
	Fn   MemberFunc
}

func (b *BuiltinFunction) Type() ValueType { return BUILTIN_VAL }
func (b *BuiltinFunction) Inspect() string { return "<eingebaute Funktion " + b.Name + ">" }

// MemberFunc implements a member builtin. It receives the captured base.
type MemberFunc func(in *Interpreter, base Value, args []Value) Value

var (
	UNIT  = &Unit{}
	TRUE  = &Bool{Value: true}
	FALSE = &Bool{Value: false}
)

func nativeBoolToBool(b bool) *Bool {
	if b {
		return TRUE
	}
	return FALSE
}

func inspectNested(v Value) string {
	if s, ok := v.(*String); ok {
		return strconv.Quote(s.Value)
	}
	return v.Inspect()
}

func inspectMapping(fields map[string]Value) string {
	keys := sortedKeys(fields)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + inspectNested(fields[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func sortedKeys(fields map[string]Value) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TypeOf describes the runtime type of v in the language's own notation.
// Lists report the type of their first element; empty lists report
// "Liste von Unbekannt".
func TypeOf(v Value) ast.Type {
	switch v := v.(type) {
	case *Unit:
		return ast.Simple(ast.TypeUnit)
	case *Int:
		return ast.Simple(ast.TypeInt)
	case *Float:
		return ast.Simple(ast.TypeFloat)
	case *Bool:
		return ast.Simple(ast.TypeBool)
	case *Char:
		return ast.Simple(ast.TypeChar)
	case *String:
		return ast.Simple(ast.TypeString)
	case *List:
		if len(v.Elements) == 0 {
			return ast.ListOf(ast.Simple(ast.TypeAny))
		}
		return ast.ListOf(TypeOf(v.Elements[0]))
	case *Object:
		keys := sortedKeys(v.Fields)
		fields := make([]ast.ObjectFieldType, len(keys))
		for i, k := range keys {
			fields[i] = ast.ObjectFieldType{Name: k, Type: TypeOf(v.Fields[k])}
		}
		return ast.Type{Kind: ast.TypeObject, Fields: fields}
	case *Record:
		return ast.Simple(ast.TypeAnyObject)
	case *Pointer:
		return ast.PointerTo(TypeOf(v.Cell.Value))
	}
	return ast.Simple(ast.TypeUnknown)
}
