package tree

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpi-lang/hpi/pkg/hpi/ast"
)

func decodeExpression(node *yaml.Node) (ast.Expression, error) {
	node = resolve(node)
	if node == nil {
		return nil, errorAt(nil, "missing expression")
	}

	switch node.Kind {
	case yaml.ScalarNode:
		return decodeScalar(node)
	case yaml.SequenceNode:
		elements, err := decodeExpressions(node)
		if err != nil {
			return nil, err
		}
		return &ast.ListLiteral{Elements: elements}, nil
	}

	kind, body, err := single(node)
	if err != nil {
		return nil, err
	}

	switch kind {
	case "ident":
		name, err := scalarString(body, "identifier")
		if err != nil {
			return nil, err
		}
		return &ast.Identifier{Value: name}, nil

	case "str":
		s, err := scalarString(body, "string literal")
		if err != nil {
			return nil, err
		}
		return &ast.StringLiteral{Value: s}, nil

	case "char":
		s, err := scalarString(body, "character literal")
		if err != nil {
			return nil, err
		}
		if len(s) != 1 || s[0] > 127 {
			return nil, errorAt(body, "character literal must be a single ASCII character, got %q", s)
		}
		return &ast.CharLiteral{Value: s[0]}, nil

	case "list":
		if body.Kind != yaml.SequenceNode {
			return nil, errorAt(body, "list literal must be a sequence")
		}
		elements, err := decodeExpressions(body)
		if err != nil {
			return nil, err
		}
		return &ast.ListLiteral{Elements: elements}, nil

	case "object":
		pairs, err := fields(body)
		if err != nil {
			return nil, err
		}
		obj := &ast.ObjectLiteral{}
		for _, kv := range pairs {
			value, err := decodeExpression(kv[1])
			if err != nil {
				return nil, err
			}
			obj.Fields = append(obj.Fields, ast.ObjectField{Key: kv[0].Value, Value: value})
		}
		return obj, nil

	case "block":
		block, err := decodeBlock(body)
		if err != nil {
			return nil, err
		}
		return &ast.BlockExpression{Block: block}, nil

	case "if":
		m, err := fieldMap(body, "cond", "then", "else")
		if err != nil {
			return nil, err
		}
		cond, err := decodeExpression(m["cond"])
		if err != nil {
			return nil, err
		}
		then, err := decodeBlock(m["then"])
		if err != nil {
			return nil, err
		}
		ie := &ast.IfExpression{Condition: cond, Consequence: then}
		if m["else"] != nil {
			if ie.Alternative, err = decodeBlock(m["else"]); err != nil {
				return nil, err
			}
		}
		return ie, nil

	case "prefix":
		m, err := fieldMap(body, "op", "right")
		if err != nil {
			return nil, err
		}
		op, err := operator(m["op"], "-", "!", "&", "*")
		if err != nil {
			return nil, err
		}
		right, err := decodeExpression(m["right"])
		if err != nil {
			return nil, err
		}
		return &ast.PrefixExpression{Operator: op, Right: right}, nil

	case "infix":
		m, err := fieldMap(body, "op", "left", "right")
		if err != nil {
			return nil, err
		}
		op, err := operator(m["op"], binaryOperators...)
		if err != nil {
			return nil, err
		}
		left, err := decodeExpression(m["left"])
		if err != nil {
			return nil, err
		}
		right, err := decodeExpression(m["right"])
		if err != nil {
			return nil, err
		}
		return &ast.InfixExpression{Left: left, Operator: op, Right: right}, nil

	case "assign":
		m, err := fieldMap(body, "name", "derefs", "op", "value")
		if err != nil {
			return nil, err
		}
		name, err := scalarString(m["name"], "assignment target")
		if err != nil {
			return nil, err
		}
		derefs, err := decodeInt(m["derefs"])
		if err != nil {
			return nil, err
		}
		op := "="
		if m["op"] != nil {
			if op, err = operator(m["op"], assignOperators...); err != nil {
				return nil, err
			}
		}
		value, err := decodeExpression(m["value"])
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpression{Name: name, Derefs: derefs, Operator: op, Value: value}, nil

	case "call":
		m, err := fieldMap(body, "name", "callee", "args")
		if err != nil {
			return nil, err
		}
		ce := &ast.CallExpression{}
		switch {
		case m["name"] != nil:
			if ce.Function, err = scalarString(m["name"], "function name"); err != nil {
				return nil, err
			}
		case m["callee"] != nil:
			if ce.Callee, err = decodeExpression(m["callee"]); err != nil {
				return nil, err
			}
		default:
			return nil, errorAt(body, "call needs a name or a callee")
		}
		if args := m["args"]; args != nil {
			if args.Kind != yaml.SequenceNode {
				return nil, errorAt(args, "arguments must be a sequence")
			}
			if ce.Arguments, err = decodeExpressions(args); err != nil {
				return nil, err
			}
		}
		return ce, nil

	case "cast":
		m, err := fieldMap(body, "value", "from", "to")
		if err != nil {
			return nil, err
		}
		value, err := decodeExpression(m["value"])
		if err != nil {
			return nil, err
		}
		if m["from"] == nil || m["to"] == nil {
			return nil, errorAt(body, "cast needs from and to types")
		}
		from, err := decodeType(m["from"])
		if err != nil {
			return nil, err
		}
		to, err := decodeType(m["to"])
		if err != nil {
			return nil, err
		}
		return &ast.CastExpression{Value: value, From: from, To: to}, nil

	case "member":
		m, err := fieldMap(body, "object", "name")
		if err != nil {
			return nil, err
		}
		object, err := decodeExpression(m["object"])
		if err != nil {
			return nil, err
		}
		name, err := scalarString(m["name"], "member name")
		if err != nil {
			return nil, err
		}
		return &ast.MemberExpression{Object: object, Member: name}, nil

	case "index":
		m, err := fieldMap(body, "list", "index")
		if err != nil {
			return nil, err
		}
		left, err := decodeExpression(m["list"])
		if err != nil {
			return nil, err
		}
		index, err := decodeExpression(m["index"])
		if err != nil {
			return nil, err
		}
		return &ast.IndexExpression{Left: left, Index: index}, nil

	case "group":
		inner, err := decodeExpression(body)
		if err != nil {
			return nil, err
		}
		return &ast.GroupedExpression{Inner: inner}, nil
	}

	return nil, errorAt(node, "unknown expression %q", kind)
}

func decodeExpressions(node *yaml.Node) ([]ast.Expression, error) {
	out := make([]ast.Expression, 0, len(node.Content))
	for _, item := range node.Content {
		e, err := decodeExpression(item)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

var binaryOperators = []string{
	"+", "-", "*", "/", "%", "**",
	"<<", ">>", "&", "|", "^",
	"&&", "||",
	"==", "!=", "<", "<=", ">", ">=",
}

var assignOperators = []string{
	"=", "+=", "-=", "*=", "/=", "%=", "**=", "<<=", ">>=", "&=", "|=", "^=",
}

func operator(node *yaml.Node, allowed ...string) (string, error) {
	op, err := scalarString(node, "operator")
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if op == a {
			return op, nil
		}
	}
	return "", errorAt(node, "unknown operator %q", op)
}

// decodeScalar maps the resolved YAML tag of a plain scalar onto a literal.
func decodeScalar(node *yaml.Node) (ast.Expression, error) {
	switch node.ShortTag() {
	case "!!null":
		return &ast.UnitLiteral{}, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, errorAt(node, "invalid boolean %q", node.Value)
		}
		return &ast.BooleanLiteral{Value: b}, nil
	case "!!int":
		var n int64
		if err := node.Decode(&n); err != nil {
			return nil, errorAt(node, "integer %s out of range", node.Value)
		}
		return &ast.IntegerLiteral{Value: n}, nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, errorAt(node, "invalid float %q", node.Value)
		}
		return &ast.FloatLiteral{Value: f}, nil
	case "!!str":
		switch node.Value {
		case "nichts":
			if node.Style == 0 {
				return &ast.UnitLiteral{}, nil
			}
		case "ja", "nein":
			if node.Style == 0 {
				return &ast.BooleanLiteral{Value: node.Value == "ja"}, nil
			}
		}
		return &ast.StringLiteral{Value: node.Value}, nil
	}
	return nil, errorAt(node, "unsupported scalar tag %s", node.ShortTag())
}

// ParseLiteral turns a command-line argument into a literal expression.
// Numbers with a decimal comma ("2,5") are floats; ja/nein are booleans;
// anything that does not parse as a YAML scalar is a string.
func ParseLiteral(s string) (ast.Expression, error) {
	if strings.TrimSpace(s) == "" {
		return &ast.StringLiteral{Value: s}, nil
	}
	if whole, frac, ok := strings.Cut(s, ","); ok && isDigits(strings.TrimPrefix(whole, "-")) && isDigits(frac) {
		s = whole + "." + frac
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(s), &node); err != nil || len(node.Content) == 0 {
		return &ast.StringLiteral{Value: s}, nil
	}
	value := node.Content[0]
	if value.Kind != yaml.ScalarNode {
		e, err := decodeExpression(value)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", s, err)
		}
		return e, nil
	}
	return decodeScalar(value)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
