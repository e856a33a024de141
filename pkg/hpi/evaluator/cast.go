package evaluator

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/hpi-lang/hpi/pkg/hpi/ast"
	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
)

// evalCast converts val, whose static type is from, into to.
func (in *Interpreter) evalCast(val Value, from, to ast.Type) Value {
	if from.IsAny() {
		return in.castFromAny(val, to)
	}
	// The static type decides; an empty list has no element to infer from.
	if from.Equal(to) {
		return val
	}
	if to.PtrCount > 0 || from.PtrCount > 0 {
		if TypeOf(val).Equal(to) {
			return val
		}
		perrors.Defectf("Typumwandlung von %s nach %s", TypeOf(val), to)
	}

	switch v := val.(type) {
	case *Int:
		switch to.Kind {
		case ast.TypeInt:
			return v
		case ast.TypeFloat:
			return &Float{Value: float64(v.Value)}
		case ast.TypeBool:
			return nativeBoolToBool(v.Value != 0)
		case ast.TypeChar:
			return &Char{Value: byte(min(max(v.Value, 0), 127))}
		}
	case *Float:
		switch to.Kind {
		case ast.TypeFloat:
			return v
		case ast.TypeInt:
			return &Int{Value: saturatingFloatToInt(v.Value)}
		case ast.TypeBool:
			return nativeBoolToBool(v.Value != 0)
		case ast.TypeChar:
			if math.IsNaN(v.Value) {
				return &Char{Value: 0}
			}
			return &Char{Value: byte(math.Min(math.Max(v.Value, 0), 127))}
		}
	case *Bool:
		var n int64
		if v.Value {
			n = 1
		}
		switch to.Kind {
		case ast.TypeBool:
			return v
		case ast.TypeInt:
			return &Int{Value: n}
		case ast.TypeFloat:
			return &Float{Value: float64(n)}
		case ast.TypeChar:
			return &Char{Value: byte(n)}
		}
	case *Char:
		switch to.Kind {
		case ast.TypeChar:
			return v
		case ast.TypeInt:
			return &Int{Value: int64(v.Value)}
		case ast.TypeFloat:
			return &Float{Value: float64(v.Value)}
		case ast.TypeBool:
			return nativeBoolToBool(v.Value != 0)
		}
	case *String:
		switch to.Kind {
		case ast.TypeString:
			return v
		case ast.TypeInt, ast.TypeFloat:
			return in.parseNumber(v.Value, to.Kind)
		}
	}

	if TypeOf(val).Equal(to) {
		return val
	}
	perrors.Defectf("Typumwandlung von %s nach %s", TypeOf(val), to)
	return nil
}

// parseNumber parses numeric text. A comma is accepted as decimal separator.
func (in *Interpreter) parseNumber(s string, kind ast.TypeKind) Value {
	normalized := strings.ReplaceAll(s, ",", ".")

	if kind == ast.TypeInt {
		n, err := strconv.ParseInt(normalized, 10, 64)
		if err != nil {
			return in.newError("CAST-0002", map[string]any{"Input": normalized, "Reason": numErrorReason(err)})
		}
		return &Int{Value: n}
	}

	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return in.newError("CAST-0002", map[string]any{"Input": normalized, "Reason": numErrorReason(err)})
	}
	return &Float{Value: f}
}

func numErrorReason(err error) string {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		switch {
		case errors.Is(numErr.Err, strconv.ErrRange):
			return "Zahl ist zu groß oder zu klein"
		case numErr.Num == "":
			return "leere Zeichenkette"
		default:
			return "ungültige Ziffer gefunden"
		}
	}
	return err.Error()
}

// saturatingFloatToInt truncates toward zero, clamping to the int64 range.
// NaN becomes 0.
func saturatingFloatToInt(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// castFromAny succeeds only when the runtime type already is the target.
func (in *Interpreter) castFromAny(val Value, to ast.Type) Value {
	actual := TypeOf(val)
	if !matchesType(actual, to) {
		return in.newError("CAST-0001", map[string]any{"From": actual.String(), "To": to.String()})
	}
	return val
}

func matchesType(actual, target ast.Type) bool {
	if target.Kind == ast.TypeAny && target.PtrCount == actual.PtrCount {
		return true
	}
	if actual.Kind != target.Kind || actual.PtrCount != target.PtrCount {
		return false
	}

	switch target.Kind {
	case ast.TypeList:
		if actual.Inner == nil || target.Inner == nil || actual.Inner.IsAny() {
			return true
		}
		return matchesType(*actual.Inner, *target.Inner)
	case ast.TypeObject:
		if len(actual.Fields) != len(target.Fields) {
			return false
		}
		byName := make(map[string]ast.Type, len(actual.Fields))
		for _, f := range actual.Fields {
			byName[f.Name] = f.Type
		}
		for _, f := range target.Fields {
			ft, ok := byName[f.Name]
			if !ok || !matchesType(ft, f.Type) {
				return false
			}
		}
	}
	return true
}
