package evaluator

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/hpi-lang/hpi/pkg/hpi/ast"
	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
)

// ============================================================================
// Tree helpers
// ============================================================================

func intLit(n int64) ast.Expression           { return &ast.IntegerLiteral{Value: n} }
func floatLit(f float64) ast.Expression       { return &ast.FloatLiteral{Value: f} }
func strLit(s string) ast.Expression          { return &ast.StringLiteral{Value: s} }
func boolLit(b bool) ast.Expression           { return &ast.BooleanLiteral{Value: b} }
func ident(name string) ast.Expression        { return &ast.Identifier{Value: name} }
func exprStmt(e ast.Expression) ast.Statement { return &ast.ExpressionStatement{Expression: e} }

func call(name string, args ...ast.Expression) ast.Expression {
	return &ast.CallExpression{Function: name, Arguments: args}
}

func method(base ast.Expression, member string, args ...ast.Expression) ast.Expression {
	return &ast.CallExpression{Callee: &ast.MemberExpression{Object: base, Member: member}, Arguments: args}
}

func infix(l ast.Expression, op string, r ast.Expression) ast.Expression {
	return &ast.InfixExpression{Left: l, Operator: op, Right: r}
}

func let(name string, value ast.Expression) ast.Statement {
	return &ast.LetStatement{Name: name, Value: value}
}

func set(name string, derefs int, value ast.Expression) ast.Statement {
	return &ast.AssignStatement{Name: name, Derefs: derefs, Value: value}
}

func block(stmts ...ast.Statement) *ast.Block {
	return &ast.Block{Statements: stmts}
}

func newTestInterpreter(out *bytes.Buffer, opts ...Option) *Interpreter {
	opts = append([]Option{WithLoopDelay(0)}, opts...)
	return New(out, map[string]string{}, nil, opts...)
}

// runStudium runs a program whose Studium phase is body.
func runStudium(t *testing.T, body *ast.Block, fns ...*ast.FunctionDefinition) (string, int64, error) {
	t.Helper()
	var out bytes.Buffer
	program := &ast.Program{
		Functions:     fns,
		Bewerbung:     &ast.Block{Result: strLit("Hallo")},
		Einschreibung: block(),
		Studium:       body,
	}
	status, err := newTestInterpreter(&out).Run(program)
	return out.String(), status, err
}

func evalExpr(t *testing.T, expr ast.Expression) Value {
	t.Helper()
	var out bytes.Buffer
	return newTestInterpreter(&out).Eval(expr, NewEnvironment())
}

func errorCode(v Value) string {
	if e, ok := v.(*Error); ok {
		return e.Err.Code
	}
	return ""
}

// ============================================================================
// Tests
// ============================================================================

func TestDruckeRendering(t *testing.T) {
	out, status, err := runStudium(t, block(
		exprStmt(call("Drucke", intLit(1), floatLit(2.5), strLit("hi"))),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != 0 {
		t.Errorf("expected status 0, got %d", status)
	}
	if out != "1 2.5 hi\n" {
		t.Errorf("expected %q, got %q", "1 2.5 hi\n", out)
	}
}

func TestInspect(t *testing.T) {
	x := &Cell{Value: &Int{Value: 3}}
	tests := []struct {
		value Value
		want  string
	}{
		{UNIT, "Nichts"},
		{TRUE, "ja"},
		{FALSE, "nein"},
		{&Float{Value: 1}, "1"},
		{&Float{Value: 0.1}, "0.1"},
		{&Float{Value: 1e21}, "1000000000000000000000"},
		{&Char{Value: 'A'}, "A"},
		{&List{Elements: []Value{&Int{Value: 1}, &String{Value: "a"}}}, `[1, "a"]`},
		{&Object{Fields: map[string]Value{"b": TRUE, "a": &Int{Value: 1}}}, "{a: 1, b: ja}"},
		{&Record{Fields: map[string]Value{"HOME": &String{Value: "/root"}}}, `{HOME: "/root"}`},
		{&Pointer{Cell: x}, "*3"},
	}

	for _, tt := range tests {
		if got := tt.value.Inspect(); got != tt.want {
			t.Errorf("Inspect() = %q, want %q", got, tt.want)
		}
	}
}

func TestScoping(t *testing.T) {
	out, _, err := runStudium(t, block(
		let("x", intLit(1)),
		exprStmt(&ast.BlockExpression{Block: block(
			let("x", intLit(2)),
			exprStmt(call("Drucke", ident("x"))),
		)}),
		exprStmt(call("Drucke", ident("x"))),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "2\n1\n" {
		t.Errorf("shadowing leaked: %q", out)
	}
}

func TestBlockBindingInvisibleAfterExit(t *testing.T) {
	defer func() {
		if _, ok := recover().(*perrors.Defect); !ok {
			t.Error("expected defect for binding used outside its block")
		}
	}()
	runStudium(t, block(
		exprStmt(&ast.BlockExpression{Block: block(let("inner", intLit(1)))}),
		exprStmt(call("Drucke", ident("inner"))),
	))
}

func TestPointerAliasing(t *testing.T) {
	out, _, err := runStudium(t, block(
		let("x", intLit(1)),
		let("y", intLit(7)),
		let("p", &ast.PrefixExpression{Operator: "&", Right: ident("x")}),
		let("q", &ast.PrefixExpression{Operator: "&", Right: ident("x")}),
		set("p", 1, intLit(5)),
		exprStmt(call("Drucke", &ast.PrefixExpression{Operator: "*", Right: ident("q")}, ident("x"))),
		set("p", 0, &ast.PrefixExpression{Operator: "&", Right: ident("y")}),
		set("p", 1, intLit(9)),
		exprStmt(call("Drucke", &ast.PrefixExpression{Operator: "*", Right: ident("q")}, ident("y"))),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "5 5\n5 9\n" {
		t.Errorf("unexpected aliasing output %q", out)
	}
}

func TestCompoundAssignThroughPointer(t *testing.T) {
	out, _, err := runStudium(t, block(
		let("x", intLit(4)),
		let("p", &ast.PrefixExpression{Operator: "&", Right: ident("x")}),
		let("pp", &ast.PrefixExpression{Operator: "&", Right: ident("p")}),
		exprStmt(&ast.AssignExpression{Name: "pp", Derefs: 2, Operator: "**=", Value: intLit(2)}),
		exprStmt(&ast.AssignExpression{Name: "x", Operator: "-=", Value: intLit(1)}),
		exprStmt(call("Drucke", ident("x"))),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "15\n" {
		t.Errorf("expected 15, got %q", out)
	}
}

func TestListReferenceSemantics(t *testing.T) {
	out, _, err := runStudium(t, block(
		let("a", &ast.ListLiteral{Elements: []ast.Expression{intLit(1)}}),
		let("b", ident("a")),
		exprStmt(method(ident("b"), "Hinzufügen", intLit(2))),
		let("s", strLit("x")),
		let("t", ident("s")),
		set("t", 0, strLit("y")),
		exprStmt(call("Drucke", ident("a"), method(ident("a"), "Länge"), ident("s"))),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "[1, 2] 2 x\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestShortCircuit(t *testing.T) {
	sideEffect := &ast.FunctionDefinition{
		Name:       "Seiteneffekt",
		ReturnType: ast.Simple(ast.TypeBool),
		Body:       &ast.Block{Statements: []ast.Statement{exprStmt(call("Drucke", strLit("aufgerufen")))}, Result: boolLit(true)},
		Used:       true,
	}

	out, _, err := runStudium(t, block(
		exprStmt(call("Drucke", infix(boolLit(false), "&&", call("Seiteneffekt")))),
		exprStmt(call("Drucke", infix(boolLit(true), "||", call("Seiteneffekt")))),
	), sideEffect)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "nein\nja\n" {
		t.Errorf("right operand was evaluated: %q", out)
	}

	out, _, _ = runStudium(t, block(
		exprStmt(call("Drucke", infix(boolLit(true), "&&", call("Seiteneffekt")))),
	), sideEffect)
	if out != "aufgerufen\nja\n" {
		t.Errorf("right operand was not evaluated: %q", out)
	}
}

func TestArithmeticErrors(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expression
		code string
	}{
		{"int division", infix(intLit(5), "/", intLit(0)), "ARITH-0001"},
		{"int remainder", infix(intLit(5), "%", intLit(0)), "ARITH-0002"},
		{"float division", infix(floatLit(5), "/", floatLit(0)), "ARITH-0001"},
		{"float remainder", infix(floatLit(5), "%", floatLit(0)), "ARITH-0002"},
		{"shift negative", infix(intLit(1), "<<", intLit(-1)), "ARITH-0003"},
		{"shift too wide", infix(intLit(1), ">>", intLit(64)), "ARITH-0003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorCode(evalExpr(t, tt.expr)); got != tt.code {
				t.Errorf("expected %s, got %q", tt.code, got)
			}
		})
	}
}

func TestArithmeticErrorAbortsRun(t *testing.T) {
	out, _, err := runStudium(t, block(
		exprStmt(call("Drucke", infix(intLit(5), "/", intLit(0)))),
		exprStmt(call("Drucke", strLit("nie"))),
	))
	var hpiErr *perrors.HPIError
	if !errors.As(err, &hpiErr) || hpiErr.Code != "ARITH-0001" {
		t.Fatalf("expected ARITH-0001, got %v", err)
	}
	if out != "" {
		t.Errorf("run continued after error: %q", out)
	}
}

func TestOperators(t *testing.T) {
	tests := []struct {
		expr ast.Expression
		want string
	}{
		{infix(intLit(7), "/", intLit(2)), "3"},
		{infix(intLit(-7), "%", intLit(3)), "-1"},
		{infix(intLit(2), "**", intLit(10)), "1024"},
		{infix(intLit(2), "**", intLit(-1)), "0"},
		{infix(intLit(-1), "**", intLit(-3)), "-1"},
		{infix(floatLit(2), "**", floatLit(0.5)), "1.4142135623730951"},
		{infix(intLit(1), "<<", intLit(63)), "-9223372036854775808"},
		{infix(intLit(-8), ">>", intLit(1)), "-4"},
		{infix(intLit(6), "&", intLit(3)), "2"},
		{infix(intLit(6), "|", intLit(3)), "7"},
		{infix(intLit(6), "^", intLit(3)), "5"},
		{infix(boolLit(true), "^", boolLit(true)), "nein"},
		{infix(strLit("a"), "+", strLit("b")), "ab"},
		{infix(strLit("a"), "<", strLit("b")), "ja"},
		{infix(floatLit(0.1), "+", floatLit(0.2)), "0.30000000000000004"},
		{infix(intLit(math.MaxInt64), "+", intLit(1)), "-9223372036854775808"},
		{&ast.PrefixExpression{Operator: "-", Right: floatLit(2.5)}, "-2.5"},
		{&ast.PrefixExpression{Operator: "!", Right: boolLit(false)}, "ja"},
		{infix(&ast.UnitLiteral{}, "==", &ast.UnitLiteral{}), "ja"},
	}

	for _, tt := range tests {
		t.Run(tt.expr.String(), func(t *testing.T) {
			got := evalExpr(t, tt.expr)
			if isInterrupt(got) {
				t.Fatalf("unexpected signal %s", got.Inspect())
			}
			if got.Inspect() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Inspect())
			}
		})
	}
}

func TestMismatchedOperandsAreDefects(t *testing.T) {
	defer func() {
		if _, ok := recover().(*perrors.Defect); !ok {
			t.Error("expected defect")
		}
	}()
	evalExpr(t, infix(intLit(1), "+", floatLit(1)))
}

func TestCasts(t *testing.T) {
	cast := func(v ast.Expression, from, to ast.TypeKind) ast.Expression {
		return &ast.CastExpression{Value: v, From: ast.Simple(from), To: ast.Simple(to)}
	}

	tests := []struct {
		name string
		expr ast.Expression
		want string
	}{
		{"comma decimal", cast(strLit("3,14"), ast.TypeString, ast.TypeFloat), "3.14"},
		{"int text", cast(strLit("-12"), ast.TypeString, ast.TypeInt), "-12"},
		{"float to char clamps high", cast(floatLit(300.7), ast.TypeFloat, ast.TypeChar), string(rune(127))},
		{"float to char clamps low", cast(floatLit(-5), ast.TypeFloat, ast.TypeChar), string(rune(0))},
		{"int to char", cast(intLit(65), ast.TypeInt, ast.TypeChar), "A"},
		{"bool to int", cast(boolLit(true), ast.TypeBool, ast.TypeInt), "1"},
		{"bool to float", cast(boolLit(true), ast.TypeBool, ast.TypeFloat), "1"},
		{"char to int", cast(&ast.CharLiteral{Value: 'a'}, ast.TypeChar, ast.TypeInt), "97"},
		{"float to int truncates", cast(floatLit(-2.9), ast.TypeFloat, ast.TypeInt), "-2"},
		{"float to int saturates", cast(floatLit(1e300), ast.TypeFloat, ast.TypeInt), "9223372036854775807"},
		{"nan to int", cast(floatLit(math.NaN()), ast.TypeFloat, ast.TypeInt), "0"},
		{"int to bool", cast(intLit(0), ast.TypeInt, ast.TypeBool), "nein"},
		{"identity", cast(intLit(4), ast.TypeInt, ast.TypeInt), "4"},
		{"any matches", cast(intLit(4), ast.TypeAny, ast.TypeInt), "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalExpr(t, tt.expr)
			if isInterrupt(got) {
				t.Fatalf("unexpected signal %s", got.Inspect())
			}
			if got.Inspect() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got.Inspect())
			}
		})
	}
}

func TestCastErrors(t *testing.T) {
	malformed := evalExpr(t, &ast.CastExpression{Value: strLit("drei"), From: ast.Simple(ast.TypeString), To: ast.Simple(ast.TypeInt)})
	if errorCode(malformed) != "CAST-0002" {
		t.Fatalf("expected CAST-0002, got %s", malformed.Inspect())
	}
	if !strings.Contains(malformed.Inspect(), "`drei`") {
		t.Errorf("message should embed the input: %q", malformed.Inspect())
	}

	mismatch := evalExpr(t, &ast.CastExpression{Value: intLit(1), From: ast.Simple(ast.TypeAny), To: ast.Simple(ast.TypeString)})
	want := "Invalide Typumwandlung während der Laufzeit: Der Datentyp `Zahl` kann nicht in `Zeichenkette` umgewandelt werden."
	if mismatch.Inspect() != want {
		t.Errorf("expected %q, got %q", want, mismatch.Inspect())
	}

	list := &ast.ListLiteral{Elements: []ast.Expression{intLit(1)}}
	listCast := evalExpr(t, &ast.CastExpression{Value: list, From: ast.Simple(ast.TypeAny), To: ast.ListOf(ast.Simple(ast.TypeString))})
	if errorCode(listCast) != "CAST-0001" {
		t.Errorf("expected CAST-0001 for list element mismatch, got %s", listCast.Inspect())
	}
}

func TestIdentityCastOfEmptyList(t *testing.T) {
	ints := ast.ListOf(ast.Simple(ast.TypeInt))
	var out bytes.Buffer
	in := newTestInterpreter(&out)
	env := NewEnvironment()
	env.Declare("xs", &List{})

	tests := []struct {
		name string
		expr ast.Expression
		want string
	}{
		{"list", &ast.CastExpression{Value: &ast.ListLiteral{}, From: ints, To: ints}, "[]"},
		{"pointer", &ast.CastExpression{
			Value: &ast.PrefixExpression{Operator: "&", Right: ident("xs")},
			From:  ast.PointerTo(ints),
			To:    ast.PointerTo(ints),
		}, "*[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := in.Eval(tt.expr, env)
			if isInterrupt(got) {
				t.Fatalf("unexpected signal %s", got.Inspect())
			}
			if got.Inspect() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got.Inspect())
			}
		})
	}
}

func TestCompoundAssignErrors(t *testing.T) {
	tests := []struct {
		operator string
		value    int64
		code     string
	}{
		{"/=", 0, "ARITH-0001"},
		{"%=", 0, "ARITH-0002"},
		{"<<=", 64, "ARITH-0003"},
		{">>=", -1, "ARITH-0003"},
	}

	for _, tt := range tests {
		t.Run(tt.operator, func(t *testing.T) {
			var out bytes.Buffer
			env := NewEnvironment()
			cell := env.Declare("x", &Int{Value: 5})

			got := newTestInterpreter(&out).Eval(&ast.AssignExpression{Name: "x", Operator: tt.operator, Value: intLit(tt.value)}, env)
			if errorCode(got) != tt.code {
				t.Errorf("expected %s, got %s", tt.code, got.Inspect())
			}
			if cell.Value.Inspect() != "5" {
				t.Errorf("cell changed to %s", cell.Value.Inspect())
			}
		})
	}

	_, _, err := runStudium(t, block(
		let("x", intLit(5)),
		exprStmt(&ast.AssignExpression{Name: "x", Operator: "/=", Value: intLit(0)}),
	))
	var hpiErr *perrors.HPIError
	if !errors.As(err, &hpiErr) || hpiErr.Code != "ARITH-0001" {
		t.Errorf("expected run to fail with ARITH-0001, got %v", err)
	}
}

func TestIndexing(t *testing.T) {
	list := &ast.ListLiteral{Elements: []ast.Expression{intLit(10), intLit(20)}}

	if got := evalExpr(t, &ast.IndexExpression{Left: list, Index: intLit(1)}); got.Inspect() != "20" {
		t.Errorf("expected 20, got %s", got.Inspect())
	}
	if got := evalExpr(t, &ast.IndexExpression{Left: list, Index: intLit(-1)}); errorCode(got) != "INDEX-0001" {
		t.Errorf("expected INDEX-0001, got %s", got.Inspect())
	}
	if got := evalExpr(t, &ast.IndexExpression{Left: list, Index: intLit(2)}); errorCode(got) != "INDEX-0002" {
		t.Errorf("expected INDEX-0002, got %s", got.Inspect())
	}
}

func TestWhileBreakAndContinue(t *testing.T) {
	out, _, err := runStudium(t, block(
		&ast.WhileStatement{Condition: boolLit(true), Body: block(&ast.BreakStatement{})},
		let("i", intLit(0)),
		&ast.WhileStatement{
			Condition: infix(ident("i"), "<", intLit(5)),
			Body: block(
				exprStmt(&ast.AssignExpression{Name: "i", Operator: "+=", Value: intLit(1)}),
				exprStmt(&ast.IfExpression{
					Condition:   infix(infix(ident("i"), "%", intLit(2)), "==", intLit(0)),
					Consequence: block(&ast.ContinueStatement{}),
				}),
				exprStmt(call("Drucke", ident("i"))),
			),
		},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "1\n3\n5\n" {
		t.Errorf("unexpected loop output %q", out)
	}
}

func TestLoopDelay(t *testing.T) {
	var slept []time.Duration
	var out bytes.Buffer
	in := New(&out, nil, nil,
		WithLoopDelay(50*time.Millisecond),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)

	env := NewEnvironment()
	env.Declare("i", &Int{Value: 0})
	loop := &ast.WhileStatement{
		Condition: infix(ident("i"), "<", intLit(3)),
		Body:      block(exprStmt(&ast.AssignExpression{Name: "i", Operator: "+=", Value: intLit(1)})),
	}
	if sig := in.evalStatement(loop, env); sig != nil {
		t.Fatalf("unexpected signal %s", sig.Inspect())
	}
	if len(slept) != 3 {
		t.Fatalf("expected 3 pauses, got %d", len(slept))
	}
	for _, d := range slept {
		if d != 50*time.Millisecond {
			t.Errorf("expected 50ms pause, got %s", d)
		}
	}
}

func TestReturnFromNestedLoop(t *testing.T) {
	find := &ast.FunctionDefinition{
		Name:       "Finde",
		Params:     []ast.Parameter{{Name: "ziel", Type: ast.Simple(ast.TypeInt)}},
		ReturnType: ast.Simple(ast.TypeInt),
		Used:       true,
		Body: block(
			let("i", intLit(0)),
			&ast.WhileStatement{Condition: boolLit(true), Body: block(
				exprStmt(&ast.IfExpression{
					Condition:   infix(ident("i"), "==", ident("ziel")),
					Consequence: block(&ast.ReturnStatement{Value: infix(ident("i"), "*", intLit(10))}),
				}),
				set("i", 0, infix(ident("i"), "+", intLit(1))),
			)},
			&ast.ReturnStatement{Value: intLit(-1)},
		),
	}

	out, _, err := runStudium(t, block(exprStmt(call("Drucke", call("Finde", intLit(3))))), find)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "30\n" {
		t.Errorf("expected 30, got %q", out)
	}
}

func TestFunctionsSeeGlobalsNotCallerLocals(t *testing.T) {
	show := &ast.FunctionDefinition{
		Name: "Zeige", Used: true,
		Body: block(exprStmt(call("Drucke", ident("x")))),
	}
	var out bytes.Buffer
	program := &ast.Program{
		Globals:       []*ast.GlobalDeclaration{{Name: "x", Value: intLit(1), Used: true}},
		Functions:     []*ast.FunctionDefinition{show},
		Bewerbung:     &ast.Block{Result: strLit("ja")},
		Einschreibung: block(),
		Studium:       block(let("x", intLit(2)), exprStmt(call("Zeige"))),
	}
	if _, err := newTestInterpreter(&out).Run(program); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "1\n" {
		t.Errorf("expected the global binding, got %q", out.String())
	}
}

func TestRunRejection(t *testing.T) {
	var out bytes.Buffer
	program := &ast.Program{
		Bewerbung:     &ast.Block{Result: strLit("")},
		Einschreibung: block(exprStmt(call("Drucke", strLit("eingeschrieben")))),
		Studium:       block(exprStmt(call("Drucke", strLit("studiert")))),
	}

	_, err := newTestInterpreter(&out).Run(program)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if !strings.Contains(err.Error(), "Ist Ihr Bewerbungsschreiben vielleicht leer?") {
		t.Errorf("unexpected rejection message %q", err.Error())
	}
	if out.Len() != 0 {
		t.Errorf("later phases ran: %q", out.String())
	}
}

func TestRunPhasesReceiveMatrikelnummer(t *testing.T) {
	var out bytes.Buffer
	program := &ast.Program{
		Bewerbung:     &ast.Block{Statements: []ast.Statement{&ast.ReturnStatement{Value: strLit("Motivation")}}},
		Einschreibung: block(exprStmt(call("Drucke", ident("Matrikelnummer")))),
		Studium:       block(exprStmt(call("Drucke", ident("Matrikelnummer")))),
	}

	status, err := newTestInterpreter(&out, WithMatrikelnummer(4711)).Run(program)
	if err != nil || status != 0 {
		t.Fatalf("unexpected result %d, %v", status, err)
	}
	if out.String() != "4711\n4711\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRunExit(t *testing.T) {
	var out bytes.Buffer
	program := &ast.Program{
		Bewerbung:     &ast.Block{Result: strLit("x")},
		Einschreibung: block(&ast.WhileStatement{Condition: boolLit(true), Body: block(exprStmt(call("Aufgeben", intLit(3))))}),
		Studium:       block(exprStmt(call("Drucke", strLit("studiert")))),
	}

	status, err := newTestInterpreter(&out).Run(program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != 3 {
		t.Errorf("expected status 3, got %d", status)
	}
	if out.Len() != 0 {
		t.Errorf("Studium ran after exit: %q", out.String())
	}
}

func TestZeit(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, time.January, 7, 13, 4, 5, 0, time.Local) }
	var out bytes.Buffer
	in := newTestInterpreter(&out, WithClock(clock))

	obj, ok := in.Eval(call("Zeit"), NewEnvironment()).(*Object)
	if !ok {
		t.Fatal("expected object")
	}
	want := map[string]int64{
		"Jahr": 2024, "Monat": 1, "Kalendar_Tag": 7, "Wochentag": 6,
		"Stunde": 13, "Minute": 4, "Sekunde": 5,
	}
	for field, n := range want {
		if got := obj.Fields[field].(*Int).Value; got != n {
			t.Errorf("%s: expected %d, got %d", field, n, got)
		}
	}
}

type fakeHTTP struct {
	method, url, body string
	headers           map[string]string
	err               error
}

func (f *fakeHTTP) Request(method, url, body string, headers map[string]string) (uint16, string, error) {
	f.method, f.url, f.body, f.headers = method, url, body, headers
	if f.err != nil {
		return 0, "", f.err
	}
	return 201, "erstellt", nil
}

func TestHttp(t *testing.T) {
	client := &fakeHTTP{}
	var out bytes.Buffer
	in := New(&out, nil, client, WithLoopDelay(0))

	env := NewEnvironment()
	env.Declare("antwort", &String{})
	header := &ast.ObjectLiteral{Fields: []ast.ObjectField{
		{Key: "Schlüssel", Value: strLit("Accept")},
		{Key: "Wert", Value: strLit("text/plain")},
	}}
	expr := call("Http", strLit("POST"), strLit("http://hpi.de"), strLit("{}"),
		&ast.ListLiteral{Elements: []ast.Expression{header}},
		&ast.PrefixExpression{Operator: "&", Right: ident("antwort")})

	status := in.Eval(expr, env)
	if status.Inspect() != "201" {
		t.Fatalf("expected status 201, got %s", status.Inspect())
	}
	if got := env.Resolve("antwort").Value.Inspect(); got != "erstellt" {
		t.Errorf("response body not stored: %q", got)
	}
	if client.method != "POST" || client.headers["Accept"] != "text/plain" {
		t.Errorf("unexpected request %+v", client)
	}

	client.err = errors.New("verbindung abgelehnt")
	if got := in.Eval(expr, env); errorCode(got) != "HTTP-0001" {
		t.Errorf("expected HTTP-0001, got %s", got.Inspect())
	}
}

func TestUmgebungsvariablenAndRecordMembers(t *testing.T) {
	var out bytes.Buffer
	in := New(&out, map[string]string{"B": "2", "A": "1"}, nil, WithLoopDelay(0))
	env := NewEnvironment()
	env.Declare("env", in.Eval(call("Umgebungsvariablen"), env))

	tests := []struct {
		expr ast.Expression
		want string
	}{
		{ident("env"), `{A: "1", B: "2"}`},
		{method(ident("env"), "Nehmen", strLit("A")), "1"},
		{method(ident("env"), "Nehmen", strLit("C")), "Nichts"},
		{method(ident("env"), "Schlüssel"), `["A", "B"]`},
	}
	for _, tt := range tests {
		if got := in.Eval(tt.expr, env).Inspect(); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.expr, tt.want, got)
		}
	}
}

func TestStringAndListMembers(t *testing.T) {
	tests := []struct {
		expr ast.Expression
		want string
	}{
		{method(strLit("a,b"), "Teile", strLit(",")), `["a", "b"]`},
		{method(strLit("hallo"), "Länge"), "5"},
		{method(strLit("ab"), "Zeichen"), "[a, b]"},
		{method(strLit("hallo"), "Enthält", strLit("ll")), "ja"},
		{method(&ast.ListLiteral{Elements: []ast.Expression{intLit(1), intLit(2)}}, "Enthält", intLit(2)), "ja"},
		{method(&ast.ListLiteral{Elements: []ast.Expression{intLit(1), intLit(2)}}, "Entfernen", intLit(0)), "1"},
	}
	for _, tt := range tests {
		if got := evalExpr(t, tt.expr).Inspect(); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.expr, tt.want, got)
		}
	}

	removed := evalExpr(t, method(&ast.ListLiteral{}, "Entfernen", intLit(0)))
	if errorCode(removed) != "INDEX-0002" {
		t.Errorf("expected INDEX-0002, got %s", removed.Inspect())
	}
}

func TestGeld(t *testing.T) {
	if got := evalExpr(t, call("Geld")).Inspect(); got != "Nun sind Sie reich, sie wurden gesponst!" {
		t.Errorf("unexpected %q", got)
	}
}

func TestSchlummere(t *testing.T) {
	var slept time.Duration
	var out bytes.Buffer
	in := New(&out, nil, nil, WithSleeper(func(d time.Duration) { slept += d }))

	in.Eval(call("Schlummere", floatLit(0.25)), NewEnvironment())
	in.Eval(call("Schlummere", floatLit(-1)), NewEnvironment())
	if slept != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", slept)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestDruckeWriteFailure(t *testing.T) {
	in := New(failingWriter{}, nil, nil)
	if got := in.Eval(call("Drucke", intLit(1)), NewEnvironment()); errorCode(got) != "IO-0001" {
		t.Errorf("expected IO-0001, got %s", got.Inspect())
	}
}

func TestUnresolvedIdentifierIsDefect(t *testing.T) {
	defer func() {
		d, ok := recover().(*perrors.Defect)
		if !ok {
			t.Fatal("expected defect")
		}
		if !strings.Contains(d.Message, "zaehler") {
			t.Errorf("expected suggestion in %q", d.Message)
		}
	}()
	env := NewEnvironment()
	env.Declare("zaehler", &Int{})
	env.Resolve("zaehlr")
}

func TestMissingCollaboratorsReportErrors(t *testing.T) {
	if got := evalExpr(t, call("Zergliedere_JSON", strLit("{}"))); errorCode(got) != "JSON-0001" {
		t.Errorf("expected JSON-0001, got %s", got.Inspect())
	}
	if got := evalExpr(t, call("Formatiere", strLit("{}"), intLit(1))); errorCode(got) != "FMT-0001" {
		t.Errorf("expected FMT-0001, got %s", got.Inspect())
	}
}

func TestIntPow(t *testing.T) {
	tests := []struct{ base, exp, want int64 }{
		{3, 0, 1},
		{3, 4, 81},
		{-2, 3, -8},
		{1, -5, 1},
		{-1, -2, 1},
		{5, -1, 0},
		{2, 64, 0},
	}
	for _, tt := range tests {
		if got := intPow(tt.base, tt.exp); got != tt.want {
			t.Errorf("intPow(%d, %d) = %d, want %d", tt.base, tt.exp, got, tt.want)
		}
	}
}
