package evaluator

import (
	"math"

	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
)

func (in *Interpreter) evalPrefixOperator(operator string, right Value) Value {
	switch operator {
	case "!":
		b, ok := right.(*Bool)
		if !ok {
			perrors.Defectf("`!` auf %s", TypeOf(right))
		}
		return nativeBoolToBool(!b.Value)
	case "-":
		switch r := right.(type) {
		case *Int:
			return &Int{Value: -r.Value}
		case *Float:
			return &Float{Value: -r.Value}
		}
		perrors.Defectf("`-` auf %s", TypeOf(right))
	}
	perrors.Defectf("unbekannter Präfixoperator %q", operator)
	return nil
}

// evalInfixOperator applies an eager binary operator. Both operands have the
// same runtime type; the front-end guarantees it.
func (in *Interpreter) evalInfixOperator(operator string, left, right Value) Value {
	switch l := left.(type) {
	case *Int:
		if r, ok := right.(*Int); ok {
			return in.evalIntInfix(operator, l.Value, r.Value)
		}
	case *Float:
		if r, ok := right.(*Float); ok {
			return in.evalFloatInfix(operator, l.Value, r.Value)
		}
	case *Bool:
		if r, ok := right.(*Bool); ok {
			return evalBoolInfix(operator, l.Value, r.Value)
		}
	case *Char:
		if r, ok := right.(*Char); ok {
			return evalCharInfix(operator, l.Value, r.Value)
		}
	case *String:
		if r, ok := right.(*String); ok {
			return evalStringInfix(operator, l.Value, r.Value)
		}
	case *Unit:
		if _, ok := right.(*Unit); ok {
			switch operator {
			case "==":
				return TRUE
			case "!=":
				return FALSE
			}
		}
	}
	perrors.Defectf("Operator `%s` für %s und %s", operator, TypeOf(left), TypeOf(right))
	return nil
}

func (in *Interpreter) evalIntInfix(operator string, l, r int64) Value {
	switch operator {
	case "+":
		return &Int{Value: l + r}
	case "-":
		return &Int{Value: l - r}
	case "*":
		return &Int{Value: l * r}
	case "/":
		if r == 0 {
			return in.newError("ARITH-0001", map[string]any{"Left": l, "Right": r})
		}
		return &Int{Value: l / r}
	case "%":
		if r == 0 {
			return in.newError("ARITH-0002", map[string]any{"Left": l, "Right": r})
		}
		return &Int{Value: l % r}
	case "**":
		return &Int{Value: intPow(l, r)}
	case "<<", ">>":
		if r < 0 || r >= 64 {
			return in.newError("ARITH-0003", map[string]any{"Right": r})
		}
		if operator == "<<" {
			return &Int{Value: l << uint(r)}
		}
		return &Int{Value: l >> uint(r)}
	case "&":
		return &Int{Value: l & r}
	case "|":
		return &Int{Value: l | r}
	case "^":
		return &Int{Value: l ^ r}
	case "==":
		return nativeBoolToBool(l == r)
	case "!=":
		return nativeBoolToBool(l != r)
	case "<":
		return nativeBoolToBool(l < r)
	case ">":
		return nativeBoolToBool(l > r)
	case "<=":
		return nativeBoolToBool(l <= r)
	case ">=":
		return nativeBoolToBool(l >= r)
	}
	perrors.Defectf("Operator `%s` für Zahl", operator)
	return nil
}

// intPow is wrapping exponentiation by squaring. Negative exponents truncate
// toward zero like integer division does.
func intPow(base, exp int64) int64 {
	if exp < 0 {
		switch base {
		case 1:
			return 1
		case -1:
			if exp%2 == 0 {
				return 1
			}
			return -1
		}
		return 0
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func (in *Interpreter) evalFloatInfix(operator string, l, r float64) Value {
	switch operator {
	case "+":
		return &Float{Value: l + r}
	case "-":
		return &Float{Value: l - r}
	case "*":
		return &Float{Value: l * r}
	case "/":
		if r == 0 {
			return in.newError("ARITH-0001", map[string]any{"Left": formatFloat(l), "Right": formatFloat(r)})
		}
		return &Float{Value: l / r}
	case "%":
		if r == 0 {
			return in.newError("ARITH-0002", map[string]any{"Left": formatFloat(l), "Right": formatFloat(r)})
		}
		return &Float{Value: math.Mod(l, r)}
	case "**":
		return &Float{Value: math.Pow(l, r)}
	case "==":
		return nativeBoolToBool(l == r)
	case "!=":
		return nativeBoolToBool(l != r)
	case "<":
		return nativeBoolToBool(l < r)
	case ">":
		return nativeBoolToBool(l > r)
	case "<=":
		return nativeBoolToBool(l <= r)
	case ">=":
		return nativeBoolToBool(l >= r)
	}
	perrors.Defectf("Operator `%s` für Fließkommazahl", operator)
	return nil
}

func evalBoolInfix(operator string, l, r bool) Value {
	switch operator {
	case "==":
		return nativeBoolToBool(l == r)
	case "!=":
		return nativeBoolToBool(l != r)
	case "&":
		return nativeBoolToBool(l && r)
	case "|":
		return nativeBoolToBool(l || r)
	case "^":
		return nativeBoolToBool(l != r)
	case "<":
		return nativeBoolToBool(!l && r)
	case ">":
		return nativeBoolToBool(l && !r)
	case "<=":
		return nativeBoolToBool(!l || r)
	case ">=":
		return nativeBoolToBool(l || !r)
	}
	perrors.Defectf("Operator `%s` für Wahrheitswert", operator)
	return nil
}

func evalCharInfix(operator string, l, r byte) Value {
	switch operator {
	case "==":
		return nativeBoolToBool(l == r)
	case "!=":
		return nativeBoolToBool(l != r)
	case "<":
		return nativeBoolToBool(l < r)
	case ">":
		return nativeBoolToBool(l > r)
	case "<=":
		return nativeBoolToBool(l <= r)
	case ">=":
		return nativeBoolToBool(l >= r)
	}
	perrors.Defectf("Operator `%s` für Zeichen", operator)
	return nil
}

func evalStringInfix(operator string, l, r string) Value {
	switch operator {
	case "+":
		return &String{Value: l + r}
	case "==":
		return nativeBoolToBool(l == r)
	case "!=":
		return nativeBoolToBool(l != r)
	case "<":
		return nativeBoolToBool(l < r)
	case ">":
		return nativeBoolToBool(l > r)
	case "<=":
		return nativeBoolToBool(l <= r)
	case ">=":
		return nativeBoolToBool(l >= r)
	}
	perrors.Defectf("Operator `%s` für Zeichenkette", operator)
	return nil
}

func formatFloat(f float64) string {
	return (&Float{Value: f}).Inspect()
}
