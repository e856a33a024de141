package evaluator

import (
	"strings"

	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
)

// Member builtins by receiver kind. Reading one yields a BuiltinFunction
// bound to the receiver; calling it runs the MemberFunc.
var (
	listMembers = map[string]MemberFunc{
		"Länge":      listLength,
		"Hinzufügen": listAppend,
		"Entfernen":  listRemove,
		"Enthält":    listContains,
	}
	stringMembers = map[string]MemberFunc{
		"Länge":   stringLength,
		"Zeichen": stringChars,
		"Teile":   stringSplit,
		"Enthält": stringContains,
	}
	recordMembers = map[string]MemberFunc{
		"Nehmen":    recordGet,
		"Schlüssel": recordKeys,
	}
)

func (in *Interpreter) memberBuiltin(base Value, name string) Value {
	var members map[string]MemberFunc
	switch base.(type) {
	case *List:
		members = listMembers
	case *String:
		members = stringMembers
	case *Record:
		members = recordMembers
	}

	fn, ok := members[name]
	if !ok {
		perrors.Defectf("%s hat kein Element `%s`", TypeOf(base), name)
	}
	return &BuiltinFunction{Name: name, Base: base, Fn: fn}
}

func listLength(in *Interpreter, base Value, args []Value) Value {
	return &Int{Value: int64(len(base.(*List).Elements))}
}

// listAppend mutates the list in place; every alias observes the new element.
func listAppend(in *Interpreter, base Value, args []Value) Value {
	expectArgs("Hinzufügen", args, 1)
	list := base.(*List)
	list.Elements = append(list.Elements, args[0])
	return UNIT
}

// listRemove deletes and returns the element at the given index.
func listRemove(in *Interpreter, base Value, args []Value) Value {
	expectArgs("Entfernen", args, 1)
	list := base.(*List)
	idx := asInt(args[0])

	removed := in.listElement(list, idx)
	if isError(removed) {
		return removed
	}
	list.Elements = append(list.Elements[:idx], list.Elements[idx+1:]...)
	return removed
}

func listContains(in *Interpreter, base Value, args []Value) Value {
	expectArgs("Enthält", args, 1)
	for _, el := range base.(*List).Elements {
		if valuesEqual(el, args[0]) {
			return TRUE
		}
	}
	return FALSE
}

func stringLength(in *Interpreter, base Value, args []Value) Value {
	return &Int{Value: int64(len(base.(*String).Value))}
}

// stringChars splits into 8-bit code units.
func stringChars(in *Interpreter, base Value, args []Value) Value {
	s := base.(*String).Value
	chars := make([]Value, len(s))
	for i := 0; i < len(s); i++ {
		chars[i] = &Char{Value: s[i]}
	}
	return &List{Elements: chars}
}

func stringSplit(in *Interpreter, base Value, args []Value) Value {
	expectArgs("Teile", args, 1)
	parts := strings.Split(base.(*String).Value, asString(args[0]))
	elements := make([]Value, len(parts))
	for i, p := range parts {
		elements[i] = &String{Value: p}
	}
	return &List{Elements: elements}
}

func stringContains(in *Interpreter, base Value, args []Value) Value {
	expectArgs("Enthält", args, 1)
	return nativeBoolToBool(strings.Contains(base.(*String).Value, asString(args[0])))
}

// recordGet returns the value under key, or Nichts.
func recordGet(in *Interpreter, base Value, args []Value) Value {
	expectArgs("Nehmen", args, 1)
	if v, ok := base.(*Record).Fields[asString(args[0])]; ok {
		return v
	}
	return UNIT
}

func recordKeys(in *Interpreter, base Value, args []Value) Value {
	keys := sortedKeys(base.(*Record).Fields)
	elements := make([]Value, len(keys))
	for i, k := range keys {
		elements[i] = &String{Value: k}
	}
	return &List{Elements: elements}
}

// valuesEqual compares scalars and strings by value and shared values by
// identity.
func valuesEqual(a, b Value) bool {
	switch a := a.(type) {
	case *Int:
		b, ok := b.(*Int)
		return ok && a.Value == b.Value
	case *Float:
		b, ok := b.(*Float)
		return ok && a.Value == b.Value
	case *Bool:
		b, ok := b.(*Bool)
		return ok && a.Value == b.Value
	case *Char:
		b, ok := b.(*Char)
		return ok && a.Value == b.Value
	case *String:
		b, ok := b.(*String)
		return ok && a.Value == b.Value
	case *Unit:
		_, ok := b.(*Unit)
		return ok
	case *Pointer:
		b, ok := b.(*Pointer)
		return ok && a.Cell == b.Cell
	}
	return a == b
}
