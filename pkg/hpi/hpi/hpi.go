// Package hpi provides a public API for running validated hpi program trees.
package hpi

import (
	"io"
	"strings"

	"github.com/hpi-lang/hpi/pkg/hpi/ast"
	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
	"github.com/hpi-lang/hpi/pkg/hpi/evaluator"
	"github.com/hpi-lang/hpi/pkg/hpi/jsontext"
	"github.com/hpi-lang/hpi/pkg/hpi/textfmt"
)

// Option configures a run
type Option = evaluator.Option

// HTTPClient performs the requests of the Http builtin
type HTTPClient = evaluator.HTTPClient

// Options re-exported from the evaluator
var (
	WithLoopDelay      = evaluator.WithLoopDelay
	WithClock          = evaluator.WithClock
	WithSleeper        = evaluator.WithSleeper
	WithLanguage       = evaluator.WithLanguage
	WithMatrikelnummer = evaluator.WithMatrikelnummer
	WithLogger         = evaluator.WithLogger
)

// ErrRejected is returned when the application phase returns an empty string
var ErrRejected = evaluator.ErrRejected

// Execute runs program and returns its exit status. Runtime errors and the
// rejection of the application are returned as *errors.HPIError, defects in
// the tree as *errors.Defect.
func Execute(program *ast.Program, environment map[string]string, output io.Writer, http HTTPClient, opts ...Option) (int64, error) {
	return Run(NewInterpreter(environment, output, http, opts...), program)
}

// Run is interp.Run with defect panics turned into errors.
func Run(interp *evaluator.Interpreter, program *ast.Program) (status int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, ok := r.(*perrors.Defect)
			if !ok {
				panic(r)
			}
			status, err = 0, d
		}
	}()
	return interp.Run(program)
}

// NewInterpreter creates an interpreter wired to the JSON and formatting
// collaborators. Use it to Load a program and Call functions directly.
func NewInterpreter(environment map[string]string, output io.Writer, http HTTPClient, opts ...Option) *evaluator.Interpreter {
	base := []Option{
		evaluator.WithStructuredText(jsontext.Codec{}),
		evaluator.WithFormatter(textfmt.Formatter{}),
	}
	return evaluator.New(output, environment, http, append(base, opts...)...)
}

// EnvironMap converts "KEY=value" pairs as returned by os.Environ.
func EnvironMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}
