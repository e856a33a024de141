package ast

import (
	"fmt"
	"strings"
)

// TypeKind enumerates the static types assigned by the front-end.
type TypeKind int

const (
	TypeUnknown TypeKind = iota
	TypeUnit
	TypeInt
	TypeFloat
	TypeBool
	TypeChar
	TypeString
	TypeList
	TypeObject
	TypeAnyObject
	TypeAny
	TypeNever
)

var kindNames = map[TypeKind]string{
	TypeUnit:      "Nichts",
	TypeInt:       "Zahl",
	TypeFloat:     "Fließkommazahl",
	TypeBool:      "Wahrheitswert",
	TypeChar:      "Zeichen",
	TypeString:    "Zeichenkette",
	TypeList:      "Liste",
	TypeObject:    "Objekt",
	TypeAnyObject: "Speicherbox",
	TypeAny:       "Unbekannt",
	TypeNever:     "Niemals",
}

// ObjectFieldType is a named field of an object type.
type ObjectFieldType struct {
	Name string
	Type Type
}

// Type is a static type. PtrCount is the number of pointer levels on top of
// the base kind, so `**Zahl` is {Kind: TypeInt, PtrCount: 2}.
type Type struct {
	Kind     TypeKind
	PtrCount int
	Inner    *Type             // element type of lists
	Fields   []ObjectFieldType // fields of objects, declaration order
}

// Simple returns a pointer-free type of the given kind.
func Simple(kind TypeKind) Type {
	return Type{Kind: kind}
}

// ListOf returns the list type with the given element type.
func ListOf(inner Type) Type {
	return Type{Kind: TypeList, Inner: &inner}
}

// PointerTo returns t with one more level of indirection.
func PointerTo(t Type) Type {
	t.PtrCount++
	return t
}

// Deref returns t with one level of indirection removed.
func (t Type) Deref() Type {
	if t.PtrCount > 0 {
		t.PtrCount--
	}
	return t
}

// IsAny reports whether t is the dynamically typed "any" type.
func (t Type) IsAny() bool {
	return t.Kind == TypeAny && t.PtrCount == 0
}

// Equal compares two types structurally.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind || t.PtrCount != o.PtrCount {
		return false
	}
	switch t.Kind {
	case TypeList:
		if t.Inner == nil || o.Inner == nil {
			return t.Inner == o.Inner
		}
		return t.Inner.Equal(*o.Inner)
	case TypeObject:
		if len(t.Fields) != len(o.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != o.Fields[i].Name || !t.Fields[i].Type.Equal(o.Fields[i].Type) {
				return false
			}
		}
	}
	return true
}

// String renders the type the way the language spells it.
func (t Type) String() string {
	var out strings.Builder
	out.WriteString(strings.Repeat("*", t.PtrCount))

	switch t.Kind {
	case TypeList:
		out.WriteString("Liste von ")
		if t.Inner != nil {
			out.WriteString(t.Inner.String())
		} else {
			out.WriteString(kindNames[TypeUnknown])
		}
	case TypeObject:
		out.WriteString("Objekt {")
		for i, f := range t.Fields {
			if i > 0 {
				out.WriteString(", ")
			}
			out.WriteString(f.Type.String())
			out.WriteString(" ")
			out.WriteString(f.Name)
		}
		out.WriteString("}")
	default:
		name, ok := kindNames[t.Kind]
		if !ok {
			name = "?"
		}
		out.WriteString(name)
	}
	return out.String()
}

// ParseType parses the display form produced by Type.String. Object types
// accept "Objekt {Zahl a, Zeichenkette b}".
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	ptrs := 0
	for strings.HasPrefix(s, "*") {
		ptrs++
		s = strings.TrimSpace(s[1:])
	}

	var t Type
	switch {
	case strings.HasPrefix(s, "Liste von "):
		inner, err := ParseType(strings.TrimPrefix(s, "Liste von "))
		if err != nil {
			return Type{}, err
		}
		t = ListOf(inner)
	case strings.HasPrefix(s, "Objekt"):
		fields, err := parseObjectFields(strings.TrimSpace(strings.TrimPrefix(s, "Objekt")))
		if err != nil {
			return Type{}, err
		}
		t = Type{Kind: TypeObject, Fields: fields}
	default:
		found := false
		for kind, name := range kindNames {
			if name == s && kind != TypeList && kind != TypeObject {
				t = Simple(kind)
				found = true
				break
			}
		}
		if !found {
			return Type{}, fmt.Errorf("unknown type %q", s)
		}
	}

	t.PtrCount = ptrs
	return t, nil
}

func parseObjectFields(s string) ([]ObjectFieldType, error) {
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("invalid object type %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, nil
	}

	var fields []ObjectFieldType
	for _, part := range splitTopLevel(body) {
		part = strings.TrimSpace(part)
		idx := strings.LastIndex(part, " ")
		if idx < 0 {
			return nil, fmt.Errorf("invalid object field %q", part)
		}
		ft, err := ParseType(part[:idx])
		if err != nil {
			return nil, err
		}
		fields = append(fields, ObjectFieldType{Name: part[idx+1:], Type: ft})
	}
	return fields, nil
}

// splitTopLevel splits on commas that are not nested inside braces.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
