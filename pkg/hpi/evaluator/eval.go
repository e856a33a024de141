package evaluator

import (
	"github.com/hpi-lang/hpi/pkg/hpi/ast"
	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
)

// Eval evaluates an expression in env.
func (in *Interpreter) Eval(node ast.Expression, env *Environment) Value {
	switch node := node.(type) {

	// Literals
	case *ast.UnitLiteral:
		return UNIT
	case *ast.IntegerLiteral:
		return &Int{Value: node.Value}
	case *ast.FloatLiteral:
		return &Float{Value: node.Value}
	case *ast.BooleanLiteral:
		return nativeBoolToBool(node.Value)
	case *ast.CharLiteral:
		return &Char{Value: node.Value}
	case *ast.StringLiteral:
		return &String{Value: node.Value}
	case *ast.ListLiteral:
		elements, sig := in.evalExpressions(node.Elements, env)
		if sig != nil {
			return sig
		}
		return &List{Elements: elements}
	case *ast.ObjectLiteral:
		return in.evalObjectLiteral(node, env)

	case *ast.Identifier:
		return env.Resolve(node.Value).Value
	case *ast.GroupedExpression:
		return in.Eval(node.Inner, env)
	case *ast.BlockExpression:
		return in.evalBlock(node.Block, NewEnclosedEnvironment(env))
	case *ast.IfExpression:
		return in.evalIfExpression(node, env)

	case *ast.PrefixExpression:
		return in.evalPrefixExpression(node, env)
	case *ast.InfixExpression:
		return in.evalInfixExpression(node, env)
	case *ast.AssignExpression:
		if sig := in.assign(node.Name, node.Derefs, node.BinaryOperator(), node.Value, env); sig != nil {
			return sig
		}
		return UNIT

	case *ast.CallExpression:
		return in.evalCallExpression(node, env)
	case *ast.CastExpression:
		val := in.Eval(node.Value, env)
		if isInterrupt(val) {
			return val
		}
		return in.evalCast(val, node.From, node.To)
	case *ast.MemberExpression:
		return in.evalMemberExpression(node, env)
	case *ast.IndexExpression:
		return in.evalIndexExpression(node, env)
	}

	perrors.Defectf("unbekannter Ausdruck %T", node)
	return nil
}

// evalStatement returns nil on normal completion and the signal otherwise.
func (in *Interpreter) evalStatement(stmt ast.Statement, env *Environment) Value {
	switch stmt := stmt.(type) {
	case *ast.DeclarationStatement:
		return nil

	case *ast.LetStatement:
		val := in.Eval(stmt.Value, env)
		if isInterrupt(val) {
			return val
		}
		env.Declare(stmt.Name, val)
		return nil

	case *ast.AssignStatement:
		return in.assign(stmt.Name, stmt.Derefs, "", stmt.Value, env)

	case *ast.ReturnStatement:
		if stmt.Value == nil {
			return &ReturnValue{Value: UNIT}
		}
		val := in.Eval(stmt.Value, env)
		if isInterrupt(val) {
			return val
		}
		return &ReturnValue{Value: val}

	case *ast.WhileStatement:
		return in.evalWhileStatement(stmt, env)

	case *ast.BreakStatement:
		return BREAK

	case *ast.ContinueStatement:
		return CONTINUE

	case *ast.ExpressionStatement:
		if val := in.Eval(stmt.Expression, env); isInterrupt(val) {
			return val
		}
		return nil
	}

	perrors.Defectf("unbekannte Anweisung %T", stmt)
	return nil
}

// evalBlock runs block directly in env; callers push the frame.
func (in *Interpreter) evalBlock(block *ast.Block, env *Environment) Value {
	if block == nil {
		return UNIT
	}
	for _, stmt := range block.Statements {
		if sig := in.evalStatement(stmt, env); sig != nil {
			return sig
		}
	}
	if block.Result == nil {
		return UNIT
	}
	return in.Eval(block.Result, env)
}

func (in *Interpreter) evalWhileStatement(ws *ast.WhileStatement, env *Environment) Value {
	for {
		cond := in.Eval(ws.Condition, env)
		if isInterrupt(cond) {
			return cond
		}
		if !asBool(cond) {
			return nil
		}

		if in.loopDelay > 0 {
			in.sleep(in.loopDelay)
		}

		res := in.evalBlock(ws.Body, NewEnclosedEnvironment(env))
		switch res.(type) {
		case *BreakSignal:
			return nil
		case *ContinueSignal:
			continue
		}
		if isInterrupt(res) {
			return res
		}
	}
}

func (in *Interpreter) evalIfExpression(ie *ast.IfExpression, env *Environment) Value {
	cond := in.Eval(ie.Condition, env)
	if isInterrupt(cond) {
		return cond
	}

	if asBool(cond) {
		return in.evalBlock(ie.Consequence, NewEnclosedEnvironment(env))
	} else if ie.Alternative != nil {
		return in.evalBlock(ie.Alternative, NewEnclosedEnvironment(env))
	}
	return UNIT
}

func (in *Interpreter) evalPrefixExpression(pe *ast.PrefixExpression, env *Environment) Value {
	if pe.Operator == "&" {
		ident, ok := pe.Right.(*ast.Identifier)
		if !ok {
			perrors.Defectf("Adresse von %s", pe.Right)
		}
		return &Pointer{Cell: env.Resolve(ident.Value)}
	}

	right := in.Eval(pe.Right, env)
	if isInterrupt(right) {
		return right
	}

	if pe.Operator == "*" {
		return asPointer(right).Cell.Value
	}
	return in.evalPrefixOperator(pe.Operator, right)
}

func (in *Interpreter) evalInfixExpression(ie *ast.InfixExpression, env *Environment) Value {
	left := in.Eval(ie.Left, env)
	if isInterrupt(left) {
		return left
	}

	switch ie.Operator {
	case "&&":
		if !asBool(left) {
			return FALSE
		}
		return in.Eval(ie.Right, env)
	case "||":
		if asBool(left) {
			return TRUE
		}
		return in.Eval(ie.Right, env)
	}

	right := in.Eval(ie.Right, env)
	if isInterrupt(right) {
		return right
	}
	return in.evalInfixOperator(ie.Operator, left, right)
}

// assign evaluates value, follows derefs pointer hops from name's cell and
// stores into the cell reached. A non-empty operator combines the current
// content with the new value first. The result is nil or a signal.
func (in *Interpreter) assign(name string, derefs int, operator string, value ast.Expression, env *Environment) Value {
	rhs := in.Eval(value, env)
	if isInterrupt(rhs) {
		return rhs
	}

	cell := env.Resolve(name)
	for i := 0; i < derefs; i++ {
		cell = asPointer(cell.Value).Cell
	}

	if operator != "" {
		rhs = in.evalInfixOperator(operator, cell.Value, rhs)
		if isInterrupt(rhs) {
			return rhs
		}
	}
	cell.Value = rhs
	return nil
}

func (in *Interpreter) evalObjectLiteral(ol *ast.ObjectLiteral, env *Environment) Value {
	fields := make(map[string]Value, len(ol.Fields))
	for _, f := range ol.Fields {
		val := in.Eval(f.Value, env)
		if isInterrupt(val) {
			return val
		}
		fields[f.Key] = val
	}
	return &Object{Fields: fields}
}

// evalExpressions evaluates left to right and stops at the first signal.
func (in *Interpreter) evalExpressions(exprs []ast.Expression, env *Environment) ([]Value, Value) {
	result := make([]Value, 0, len(exprs))
	for _, e := range exprs {
		val := in.Eval(e, env)
		if isInterrupt(val) {
			return nil, val
		}
		result = append(result, val)
	}
	return result, nil
}

func (in *Interpreter) evalCallExpression(ce *ast.CallExpression, env *Environment) Value {
	args, sig := in.evalExpressions(ce.Arguments, env)
	if sig != nil {
		return sig
	}

	if ce.Callee == nil {
		return in.callFunction(ce.Function, args)
	}

	callee := in.Eval(ce.Callee, env)
	if isInterrupt(callee) {
		return callee
	}
	fn, ok := callee.(*BuiltinFunction)
	if !ok {
		perrors.Defectf("%s ist nicht aufrufbar", TypeOf(callee))
	}
	return fn.Fn(in, fn.Base, args)
}

// callFunction dispatches to a builtin or, failing that, a user function.
// The function body runs in a frame enclosing the global frame.
func (in *Interpreter) callFunction(name string, args []Value) Value {
	if builtin, ok := in.builtins[name]; ok {
		return builtin(in, args)
	}

	fn, ok := in.functions[name]
	if !ok {
		known := make([]string, 0, len(in.functions))
		for n := range in.functions {
			known = append(known, n)
		}
		msg := "Funktion `" + name + "` ist nicht definiert"
		if hint := perrors.FindClosestMatch(name, known); hint != "" {
			msg += " (gemeint: `" + hint + "`?)"
		}
		perrors.Defectf("%s", msg)
	}

	frame := NewEnclosedEnvironment(in.globals)
	for i, param := range fn.Params {
		if i >= len(args) {
			perrors.Defectf("%s: Argument `%s` fehlt", fn.Name, param.Name)
		}
		frame.Declare(param.Name, args[i])
	}

	res := in.evalBlock(fn.Body, frame)
	switch r := res.(type) {
	case *ReturnValue:
		return r.Value
	case *BreakSignal, *ContinueSignal:
		perrors.Defectf("%s verlässt Funktion %s", r.Inspect(), fn.Name)
	}
	return res
}

func (in *Interpreter) evalMemberExpression(me *ast.MemberExpression, env *Environment) Value {
	base := in.Eval(me.Object, env)
	if isInterrupt(base) {
		return base
	}

	if obj, ok := base.(*Object); ok {
		val, ok := obj.Fields[me.Member]
		if !ok {
			perrors.Defectf("Objekt hat kein Feld `%s`", me.Member)
		}
		return val
	}
	return in.memberBuiltin(base, me.Member)
}

func (in *Interpreter) evalIndexExpression(ie *ast.IndexExpression, env *Environment) Value {
	left := in.Eval(ie.Left, env)
	if isInterrupt(left) {
		return left
	}
	index := in.Eval(ie.Index, env)
	if isInterrupt(index) {
		return index
	}

	list, ok := left.(*List)
	if !ok {
		perrors.Defectf("Indizierung von %s", TypeOf(left))
	}
	return in.listElement(list, asInt(index))
}

func (in *Interpreter) listElement(list *List, idx int64) Value {
	if idx < 0 {
		return in.newError("INDEX-0001", map[string]any{"Index": idx})
	}
	if idx >= int64(len(list.Elements)) {
		return in.newError("INDEX-0002", map[string]any{"Index": idx, "Length": len(list.Elements)})
	}
	return list.Elements[idx]
}

func asBool(v Value) bool {
	b, ok := v.(*Bool)
	if !ok {
		perrors.Defectf("Wahrheitswert erwartet, %s erhalten", TypeOf(v))
	}
	return b.Value
}

func asInt(v Value) int64 {
	i, ok := v.(*Int)
	if !ok {
		perrors.Defectf("Zahl erwartet, %s erhalten", TypeOf(v))
	}
	return i.Value
}

func asString(v Value) string {
	s, ok := v.(*String)
	if !ok {
		perrors.Defectf("Zeichenkette erwartet, %s erhalten", TypeOf(v))
	}
	return s.Value
}

func asPointer(v Value) *Pointer {
	p, ok := v.(*Pointer)
	if !ok {
		perrors.Defectf("Zeiger erwartet, %s erhalten", TypeOf(v))
	}
	return p
}
