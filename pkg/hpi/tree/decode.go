// Package tree reads validated program trees from disk.
//
// A tree file is YAML, optionally compressed with gzip or zstd. The top
// level holds the sections globals, functions, bewerbung, einschreibung
// and studium. Expressions are written as plain scalars (literals), as
// sequences (list literals) or as single-key mappings naming the node:
//
//	infix: {op: "+", left: {ident: x}, right: 1}
//
// Statements are single-key mappings as well, or the bare scalars
// "abbrechen" and "weitermachen".
package tree

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpi-lang/hpi/pkg/hpi/ast"
)

// DecodeError reports a malformed tree with its position in the file.
type DecodeError struct {
	Line    int
	Column  int
	Message string
}

func (e *DecodeError) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func errorAt(node *yaml.Node, format string, a ...any) error {
	e := &DecodeError{Message: fmt.Sprintf(format, a...)}
	if node != nil {
		e.Line, e.Column = node.Line, node.Column
	}
	return e
}

// Parse decodes uncompressed YAML tree text.
func Parse(data []byte) (*ast.Program, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing tree: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errorAt(&doc, "empty tree")
	}
	return decodeProgram(resolve(doc.Content[0]))
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

// fields returns the key/value pairs of a mapping in document order.
func fields(node *yaml.Node) ([][2]*yaml.Node, error) {
	node = resolve(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, errorAt(node, "expected mapping")
	}
	pairs := make([][2]*yaml.Node, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		pairs = append(pairs, [2]*yaml.Node{node.Content[i], resolve(node.Content[i+1])})
	}
	return pairs, nil
}

func fieldMap(node *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	pairs, err := fields(node)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*yaml.Node, len(pairs))
	for _, kv := range pairs {
		key := kv[0].Value
		ok := false
		for _, a := range allowed {
			if a == key {
				ok = true
				break
			}
		}
		if !ok {
			return nil, errorAt(kv[0], "unknown field %q (expected one of %s)", key, strings.Join(allowed, ", "))
		}
		out[key] = kv[1]
	}
	return out, nil
}

// single splits a one-key mapping into its key and value.
func single(node *yaml.Node) (string, *yaml.Node, error) {
	pairs, err := fields(node)
	if err != nil {
		return "", nil, err
	}
	if len(pairs) != 1 {
		return "", nil, errorAt(node, "expected a mapping with exactly one key, got %d", len(pairs))
	}
	return pairs[0][0].Value, pairs[0][1], nil
}

func scalarString(node *yaml.Node, what string) (string, error) {
	if node == nil || node.Kind != yaml.ScalarNode {
		return "", errorAt(node, "%s must be a scalar", what)
	}
	return node.Value, nil
}

func decodeType(node *yaml.Node) (ast.Type, error) {
	if node == nil {
		return ast.Simple(ast.TypeUnit), nil
	}
	s, err := scalarString(node, "type")
	if err != nil {
		return ast.Type{}, err
	}
	t, err := ast.ParseType(s)
	if err != nil {
		return ast.Type{}, errorAt(node, "%v", err)
	}
	return t, nil
}

func decodeBool(node *yaml.Node, def bool) (bool, error) {
	if node == nil {
		return def, nil
	}
	var b bool
	if err := node.Decode(&b); err != nil {
		return false, errorAt(node, "expected boolean")
	}
	return b, nil
}

func decodeInt(node *yaml.Node) (int, error) {
	if node == nil {
		return 0, nil
	}
	var n int
	if err := node.Decode(&n); err != nil {
		return 0, errorAt(node, "expected integer")
	}
	return n, nil
}

func decodeProgram(node *yaml.Node) (*ast.Program, error) {
	m, err := fieldMap(node, "globals", "functions", "bewerbung", "einschreibung", "studium")
	if err != nil {
		return nil, err
	}
	program := &ast.Program{}

	if g := m["globals"]; g != nil {
		for _, item := range g.Content {
			decl, err := decodeGlobal(resolve(item))
			if err != nil {
				return nil, err
			}
			program.Globals = append(program.Globals, decl)
		}
	}
	if f := m["functions"]; f != nil {
		for _, item := range f.Content {
			fn, err := decodeFunction(resolve(item))
			if err != nil {
				return nil, err
			}
			program.Functions = append(program.Functions, fn)
		}
	}

	phases := []struct {
		key  string
		dest **ast.Block
	}{
		{"bewerbung", &program.Bewerbung},
		{"einschreibung", &program.Einschreibung},
		{"studium", &program.Studium},
	}
	for _, phase := range phases {
		n, ok := m[phase.key]
		if !ok {
			return nil, errorAt(node, "missing phase %q", phase.key)
		}
		block, err := decodeBlock(n)
		if err != nil {
			return nil, err
		}
		*phase.dest = block
	}
	return program, nil
}

func decodeGlobal(node *yaml.Node) (*ast.GlobalDeclaration, error) {
	m, err := fieldMap(node, "name", "type", "value", "used")
	if err != nil {
		return nil, err
	}
	name, err := scalarString(m["name"], "global name")
	if err != nil {
		return nil, err
	}
	typ, err := decodeType(m["type"])
	if err != nil {
		return nil, err
	}
	if m["value"] == nil {
		return nil, errorAt(node, "global %s has no value", name)
	}
	value, err := decodeExpression(m["value"])
	if err != nil {
		return nil, err
	}
	used, err := decodeBool(m["used"], true)
	if err != nil {
		return nil, err
	}
	return &ast.GlobalDeclaration{Name: name, Type: typ, Value: value, Used: used}, nil
}

func decodeFunction(node *yaml.Node) (*ast.FunctionDefinition, error) {
	m, err := fieldMap(node, "name", "params", "returns", "body", "used")
	if err != nil {
		return nil, err
	}
	name, err := scalarString(m["name"], "function name")
	if err != nil {
		return nil, err
	}
	fn := &ast.FunctionDefinition{Name: name}

	if p := m["params"]; p != nil {
		for _, item := range p.Content {
			pm, err := fieldMap(item, "name", "type")
			if err != nil {
				return nil, err
			}
			pname, err := scalarString(pm["name"], "parameter name")
			if err != nil {
				return nil, err
			}
			ptype, err := decodeType(pm["type"])
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, ast.Parameter{Name: pname, Type: ptype})
		}
	}
	if fn.ReturnType, err = decodeType(m["returns"]); err != nil {
		return nil, err
	}
	if fn.Body, err = decodeBlock(m["body"]); err != nil {
		return nil, err
	}
	if fn.Used, err = decodeBool(m["used"], true); err != nil {
		return nil, err
	}
	return fn, nil
}

// decodeBlock accepts a sequence of statements or a mapping with
// statements and result.
func decodeBlock(node *yaml.Node) (*ast.Block, error) {
	node = resolve(node)
	block := &ast.Block{}
	if node == nil || node.Tag == "!!null" {
		return block, nil
	}

	stmts := node
	if node.Kind == yaml.MappingNode {
		m, err := fieldMap(node, "statements", "result")
		if err != nil {
			return nil, err
		}
		if r := m["result"]; r != nil {
			if block.Result, err = decodeExpression(r); err != nil {
				return nil, err
			}
		}
		stmts = m["statements"]
		if stmts == nil {
			return block, nil
		}
	}

	if stmts.Kind != yaml.SequenceNode {
		return nil, errorAt(stmts, "expected a list of statements")
	}
	for _, item := range stmts.Content {
		stmt, err := decodeStatement(resolve(item))
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	return block, nil
}

func decodeStatement(node *yaml.Node) (ast.Statement, error) {
	if node.Kind == yaml.ScalarNode {
		switch node.Value {
		case "abbrechen", "break":
			return &ast.BreakStatement{}, nil
		case "weitermachen", "continue":
			return &ast.ContinueStatement{}, nil
		}
		return nil, errorAt(node, "unknown statement %q", node.Value)
	}

	kind, body, err := single(node)
	if err != nil {
		return nil, err
	}

	switch kind {
	case "beantrage":
		m, err := fieldMap(body, "names", "from")
		if err != nil {
			return nil, err
		}
		var names []string
		if err := m["names"].Decode(&names); err != nil {
			return nil, errorAt(m["names"], "names must be a list of strings")
		}
		from, _ := scalarString(m["from"], "from")
		return &ast.DeclarationStatement{Names: names, Source: from}, nil

	case "let":
		m, err := fieldMap(body, "name", "type", "value")
		if err != nil {
			return nil, err
		}
		name, err := scalarString(m["name"], "let name")
		if err != nil {
			return nil, err
		}
		typ, err := decodeType(m["type"])
		if err != nil {
			return nil, err
		}
		value, err := decodeExpression(m["value"])
		if err != nil {
			return nil, err
		}
		return &ast.LetStatement{Name: name, Type: typ, Value: value}, nil

	case "set":
		m, err := fieldMap(body, "name", "derefs", "value")
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
		value, err := decodeExpression(m["value"])
		if err != nil {
			return nil, err
		}
		return &ast.AssignStatement{Name: name, Derefs: derefs, Value: value}, nil

	case "return":
		if body == nil || body.Tag == "!!null" {
			return &ast.ReturnStatement{}, nil
		}
		value, err := decodeExpression(body)
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStatement{Value: value}, nil

	case "while":
		m, err := fieldMap(body, "cond", "body")
		if err != nil {
			return nil, err
		}
		cond, err := decodeExpression(m["cond"])
		if err != nil {
			return nil, err
		}
		loop, err := decodeBlock(m["body"])
		if err != nil {
			return nil, err
		}
		return &ast.WhileStatement{Condition: cond, Body: loop}, nil

	case "expr":
		e, err := decodeExpression(body)
		if err != nil {
			return nil, err
		}
		return &ast.ExpressionStatement{Expression: e}, nil
	}

	return nil, errorAt(node, "unknown statement %q", kind)
}
