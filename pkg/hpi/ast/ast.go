// Package ast defines the validated program tree consumed by the evaluator.
//
// Trees are produced by the front-end (or decoded from a tree file) and are
// already name-resolved and well-typed. Nodes carry no positions; String
// renders a source-like form used in diagnostics.
package ast

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Node represents any node in the tree
type Node interface {
	String() string
}

// Statement represents statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents expression nodes
type Expression interface {
	Node
	expressionNode()
}

// Program is the root of every tree.
type Program struct {
	Globals       []*GlobalDeclaration
	Functions     []*FunctionDefinition
	Bewerbung     *Block
	Einschreibung *Block
	Studium       *Block
}

func (p *Program) String() string {
	var out bytes.Buffer

	for _, g := range p.Globals {
		out.WriteString(g.String())
		out.WriteString("\n")
	}
	for _, f := range p.Functions {
		out.WriteString(f.String())
		out.WriteString("\n")
	}
	writePhase(&out, "Bewerbung", "", p.Bewerbung)
	writePhase(&out, "Einschreibung", "Zahl Matrikelnummer", p.Einschreibung)
	writePhase(&out, "Studium", "Zahl Matrikelnummer", p.Studium)

	return out.String()
}

func writePhase(out *bytes.Buffer, name, params string, body *Block) {
	if body == nil {
		return
	}
	fmt.Fprintf(out, "funktion %s(%s) %s\n", name, params, body.String())
}

// Parameter is a named, typed function parameter.
type Parameter struct {
	Name string
	Type Type
}

// FunctionDefinition is a user function. Used is false when the front-end
// found no reference to it.
type FunctionDefinition struct {
	Name       string
	Params     []Parameter
	ReturnType Type
	Body       *Block
	Used       bool
}

func (f *FunctionDefinition) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type.String() + " " + p.Name
	}
	return fmt.Sprintf("funktion %s(%s) ergibt %s %s",
		f.Name, strings.Join(params, ", "), f.ReturnType.String(), f.Body.String())
}

// GlobalDeclaration binds a constant initializer at program scope.
type GlobalDeclaration struct {
	Name  string
	Type  Type
	Value Expression
	Used  bool
}

func (g *GlobalDeclaration) String() string {
	return fmt.Sprintf("setze %s %s auf %s;", g.Type.String(), g.Name, g.Value.String())
}

// Block is a sequence of statements with an optional trailing expression
// whose value becomes the block's value.
type Block struct {
	Statements []Statement
	Result     Expression
}

func (b *Block) String() string {
	if b == nil {
		return "{}"
	}
	var out bytes.Buffer

	out.WriteString("{ ")
	for _, s := range b.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	if b.Result != nil {
		out.WriteString(b.Result.String())
		out.WriteString(" ")
	}
	out.WriteString("}")

	return out.String()
}

// ============================================================================
// Statements
// ============================================================================

// DeclarationStatement requests builtins by name. It has no runtime effect.
type DeclarationStatement struct {
	Names  []string
	Source string
}

func (ds *DeclarationStatement) statementNode() {}
func (ds *DeclarationStatement) String() string {
	return fmt.Sprintf("beantrage %s von %s;", strings.Join(ds.Names, ", "), ds.Source)
}

// LetStatement always creates a new binding in the innermost scope.
type LetStatement struct {
	Name  string
	Type  Type
	Value Expression
}

func (ls *LetStatement) statementNode() {}
func (ls *LetStatement) String() string {
	return fmt.Sprintf("setze %s %s auf %s;", ls.Type.String(), ls.Name, ls.Value.String())
}

// AssignStatement stores into an existing binding after following Derefs
// pointer hops.
type AssignStatement struct {
	Name   string
	Derefs int
	Value  Expression
}

func (as *AssignStatement) statementNode() {}
func (as *AssignStatement) String() string {
	return fmt.Sprintf("ändere %s%s auf %s;", strings.Repeat("*", as.Derefs), as.Name, as.Value.String())
}

// ReturnStatement returns Value, or Unit when Value is nil.
type ReturnStatement struct {
	Value Expression
}

func (rs *ReturnStatement) statementNode() {}
func (rs *ReturnStatement) String() string {
	if rs.Value == nil {
		return "gebe zurück;"
	}
	return "gebe " + rs.Value.String() + " zurück;"
}

// WhileStatement runs Body while Condition is true.
type WhileStatement struct {
	Condition Expression
	Body      *Block
}

func (ws *WhileStatement) statementNode() {}
func (ws *WhileStatement) String() string {
	return "solange " + ws.Condition.String() + " " + ws.Body.String()
}

type BreakStatement struct{}

func (bs *BreakStatement) statementNode() {}
func (bs *BreakStatement) String() string { return "abbrechen;" }

type ContinueStatement struct{}

func (cs *ContinueStatement) statementNode() {}
func (cs *ContinueStatement) String() string { return "weitermachen;" }

// ExpressionStatement evaluates Expression and discards the value.
type ExpressionStatement struct {
	Expression Expression
}

func (es *ExpressionStatement) statementNode() {}
func (es *ExpressionStatement) String() string {
	return es.Expression.String() + ";"
}

// ============================================================================
// Literals
// ============================================================================

type UnitLiteral struct{}

func (ul *UnitLiteral) expressionNode() {}
func (ul *UnitLiteral) String() string  { return "nichts" }

type IntegerLiteral struct {
	Value int64
}

func (il *IntegerLiteral) expressionNode() {}
func (il *IntegerLiteral) String() string  { return strconv.FormatInt(il.Value, 10) }

type FloatLiteral struct {
	Value float64
}

func (fl *FloatLiteral) expressionNode() {}
func (fl *FloatLiteral) String() string {
	s := strconv.FormatFloat(fl.Value, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return strings.Replace(s, ".", ",", 1)
}

type BooleanLiteral struct {
	Value bool
}

func (bl *BooleanLiteral) expressionNode() {}
func (bl *BooleanLiteral) String() string {
	if bl.Value {
		return "ja"
	}
	return "nein"
}

// CharLiteral holds an 8-bit code unit.
type CharLiteral struct {
	Value byte
}

func (cl *CharLiteral) expressionNode() {}
func (cl *CharLiteral) String() string  { return "'" + string(rune(cl.Value)) + "'" }

type StringLiteral struct {
	Value string
}

func (sl *StringLiteral) expressionNode() {}
func (sl *StringLiteral) String() string  { return strconv.Quote(sl.Value) }

type ListLiteral struct {
	Elements []Expression
}

func (ll *ListLiteral) expressionNode() {}
func (ll *ListLiteral) String() string {
	elements := make([]string, len(ll.Elements))
	for i, el := range ll.Elements {
		elements[i] = el.String()
	}
	return "[" + strings.Join(elements, ", ") + "]"
}

// ObjectField is one key of an object literal.
type ObjectField struct {
	Key   string
	Value Expression
}

// ObjectLiteral keeps its fields in declaration order; evaluation follows it.
type ObjectLiteral struct {
	Fields []ObjectField
}

func (ol *ObjectLiteral) expressionNode() {}
func (ol *ObjectLiteral) String() string {
	fields := make([]string, len(ol.Fields))
	for i, f := range ol.Fields {
		fields[i] = f.Key + ": " + f.Value.String()
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

// ============================================================================
// Expressions
// ============================================================================

type Identifier struct {
	Value string
}

func (i *Identifier) expressionNode() {}
func (i *Identifier) String() string  { return i.Value }

// BlockExpression evaluates its block in a new scope.
type BlockExpression struct {
	Block *Block
}

func (be *BlockExpression) expressionNode() {}
func (be *BlockExpression) String() string  { return be.Block.String() }

// IfExpression yields Unit when Condition is false and Alternative is nil.
type IfExpression struct {
	Condition   Expression
	Consequence *Block
	Alternative *Block
}

func (ie *IfExpression) expressionNode() {}
func (ie *IfExpression) String() string {
	var out bytes.Buffer

	out.WriteString("falls ")
	out.WriteString(ie.Condition.String())
	out.WriteString(" ")
	out.WriteString(ie.Consequence.String())
	if ie.Alternative != nil {
		out.WriteString(" sonst ")
		out.WriteString(ie.Alternative.String())
	}

	return out.String()
}

// PrefixExpression is one of "!", "-", "&" (address-of) or "*" (dereference).
type PrefixExpression struct {
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode() {}
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

// InfixExpression is a binary operation. "&&" and "||" short-circuit.
type InfixExpression struct {
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode() {}
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// AssignExpression is a compound assignment such as "+=". It yields Unit.
type AssignExpression struct {
	Name     string
	Derefs   int
	Operator string
	Value    Expression
}

func (ae *AssignExpression) expressionNode() {}
func (ae *AssignExpression) String() string {
	return strings.Repeat("*", ae.Derefs) + ae.Name + " " + ae.Operator + " " + ae.Value.String()
}

// BinaryOperator returns the infix operator a compound assignment applies,
// "+=" becoming "+". Plain "=" yields "".
func (ae *AssignExpression) BinaryOperator() string {
	return strings.TrimSuffix(ae.Operator, "=")
}

// CallExpression calls a builtin or user function by name, or, when Callee
// is set, the builtin function value the callee evaluates to.
type CallExpression struct {
	Function  string
	Callee    Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode() {}
func (ce *CallExpression) String() string {
	args := make([]string, len(ce.Arguments))
	for i, a := range ce.Arguments {
		args[i] = a.String()
	}
	name := ce.Function
	if ce.Callee != nil {
		name = ce.Callee.String()
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

// CastExpression converts Value, whose static type is From, to To.
type CastExpression struct {
	Value Expression
	From  Type
	To    Type
}

func (ce *CastExpression) expressionNode() {}
func (ce *CastExpression) String() string {
	return "(" + ce.Value.String() + " als " + ce.To.String() + ")"
}

type MemberExpression struct {
	Object Expression
	Member string
}

func (me *MemberExpression) expressionNode() {}
func (me *MemberExpression) String() string {
	return me.Object.String() + "." + me.Member
}

type IndexExpression struct {
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode() {}
func (ie *IndexExpression) String() string {
	return ie.Left.String() + "[" + ie.Index.String() + "]"
}

type GroupedExpression struct {
	Inner Expression
}

func (ge *GroupedExpression) expressionNode() {}
func (ge *GroupedExpression) String() string  { return "(" + ge.Inner.String() + ")" }
