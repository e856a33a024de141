package evaluator

import (
	"strconv"

	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
)

// ReturnValue carries a returned value up to the enclosing call
type ReturnValue struct {
	Value Value
}

func (rv *ReturnValue) Type() ValueType { return RETURN_VAL }
func (rv *ReturnValue) Inspect() string { return rv.Value.Inspect() }

// BreakSignal leaves the innermost loop
type BreakSignal struct{}

func (bs *BreakSignal) Type() ValueType { return BREAK_VAL }
func (bs *BreakSignal) Inspect() string { return "abbrechen" }

// ContinueSignal skips to the next condition check of the innermost loop
type ContinueSignal struct{}

func (cs *ContinueSignal) Type() ValueType { return CONTINUE_VAL }
func (cs *ContinueSignal) Inspect() string { return "weitermachen" }

// ExitSignal ends the run with Code
type ExitSignal struct {
	Code int64
}

func (es *ExitSignal) Type() ValueType { return EXIT_VAL }
func (es *ExitSignal) Inspect() string { return "Aufgeben(" + strconv.FormatInt(es.Code, 10) + ")" }

// Error is a fatal runtime error travelling up to the driver
type Error struct {
	Err *perrors.HPIError
}

func (e *Error) Type() ValueType { return ERROR_VAL }
func (e *Error) Inspect() string { return e.Err.Message }

var (
	BREAK    = &BreakSignal{}
	CONTINUE = &ContinueSignal{}
)

// isInterrupt reports whether v is a control-flow signal rather than a
// produced value. Every propagation point checks it.
func isInterrupt(v Value) bool {
	if v == nil {
		return false
	}
	switch v.Type() {
	case RETURN_VAL, BREAK_VAL, CONTINUE_VAL, EXIT_VAL, ERROR_VAL:
		return true
	}
	return false
}

func isError(v Value) bool {
	return v != nil && v.Type() == ERROR_VAL
}

// newError builds an Error signal from the catalog in the interpreter's
// language.
func (in *Interpreter) newError(code string, data map[string]any) *Error {
	return &Error{Err: perrors.NewIn(in.lang, code, data)}
}
