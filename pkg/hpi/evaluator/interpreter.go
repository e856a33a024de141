// Package evaluator walks a validated program tree.
//
// Every evaluation step returns a Value. Control flow (return, break,
// continue, exit, error) travels through the same channel as signal values
// and is intercepted by loops, function calls and the run driver.
package evaluator

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sort"
	"time"

	"golang.org/x/text/language"

	"github.com/hpi-lang/hpi/pkg/hpi/ast"
	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
)

// DefaultLoopDelay throttles every while-loop iteration.
const DefaultLoopDelay = 50 * time.Millisecond

// ErrRejected is returned by Run when the application phase returns an empty
// string. Compare with errors.Is.
var ErrRejected = perrors.New("RUN-0001", nil)

// HTTPClient performs requests for the Http builtin.
type HTTPClient interface {
	Request(method, url, body string, headers map[string]string) (uint16, string, error)
}

// StructuredText converts between JSON text and values.
type StructuredText interface {
	Deserialize(text string) (Value, error)
	Serialize(v Value) (string, error)
}

// TextFormatter renders a template with values.
type TextFormatter interface {
	Format(template string, values []Value) (string, error)
}

// Logger receives diagnostic messages about a run.
type Logger interface {
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

// BuiltinFunc implements a builtin reached by name.
type BuiltinFunc func(in *Interpreter, args []Value) Value

// Interpreter runs one program. It is not safe for concurrent use.
type Interpreter struct {
	output    io.Writer
	environ   map[string]string
	http      HTTPClient
	json      StructuredText
	formatter TextFormatter

	functions map[string]*ast.FunctionDefinition
	globals   *Environment
	builtins  map[string]BuiltinFunc

	lang           language.Tag
	loopDelay      time.Duration
	now            func() time.Time
	sleep          func(time.Duration)
	matrikelnummer *uint32
	logger         Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLoopDelay sets the pause before each loop iteration. Zero disables it.
func WithLoopDelay(d time.Duration) Option {
	return func(in *Interpreter) { in.loopDelay = d }
}

// WithClock replaces the wall clock used by Zeit.
func WithClock(now func() time.Time) Option {
	return func(in *Interpreter) { in.now = now }
}

// WithSleeper replaces the blocking sleep used by loops and Schlummere.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(in *Interpreter) { in.sleep = sleep }
}

// WithLanguage selects the language of runtime error messages.
func WithLanguage(tag language.Tag) Option {
	return func(in *Interpreter) { in.lang = tag }
}

// WithMatrikelnummer fixes the identifier passed to the later phases.
func WithMatrikelnummer(n uint32) Option {
	return func(in *Interpreter) { in.matrikelnummer = &n }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// WithStructuredText sets the JSON collaborator.
func WithStructuredText(codec StructuredText) Option {
	return func(in *Interpreter) { in.json = codec }
}

// WithFormatter sets the formatting collaborator.
func WithFormatter(f TextFormatter) Option {
	return func(in *Interpreter) { in.formatter = f }
}

// New creates an interpreter writing to output.
func New(output io.Writer, environ map[string]string, http HTTPClient, opts ...Option) *Interpreter {
	in := &Interpreter{
		output:    output,
		environ:   environ,
		http:      http,
		functions: make(map[string]*ast.FunctionDefinition),
		globals:   NewEnvironment(),
		builtins:  getBuiltins(),
		lang:      language.German,
		loopDelay: DefaultLoopDelay,
		now:       time.Now,
		sleep:     time.Sleep,
		logger:    nopLogger{},
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Load registers the used functions, seeds the global frame and registers
// the three entry phases. Run calls it; the shell calls it directly.
func (in *Interpreter) Load(program *ast.Program) {
	for _, fn := range program.Functions {
		if fn.Used {
			in.functions[fn.Name] = fn
		}
	}

	for _, g := range program.Globals {
		if g.Used {
			in.globals.Declare(g.Name, in.constantValue(g.Value))
		}
	}

	id := []ast.Parameter{{Name: "Matrikelnummer", Type: ast.Simple(ast.TypeInt)}}
	in.functions["Bewerbung"] = &ast.FunctionDefinition{
		Name: "Bewerbung", ReturnType: ast.Simple(ast.TypeString), Body: program.Bewerbung, Used: true,
	}
	in.functions["Einschreibung"] = &ast.FunctionDefinition{
		Name: "Einschreibung", Params: id, ReturnType: ast.Simple(ast.TypeUnit), Body: program.Einschreibung, Used: true,
	}
	in.functions["Studium"] = &ast.FunctionDefinition{
		Name: "Studium", Params: id, ReturnType: ast.Simple(ast.TypeUnit), Body: program.Studium, Used: true,
	}
}

func (in *Interpreter) constantValue(expr ast.Expression) Value {
	switch expr.(type) {
	case *ast.IntegerLiteral, *ast.FloatLiteral, *ast.BooleanLiteral, *ast.CharLiteral,
		*ast.StringLiteral, *ast.UnitLiteral, *ast.ListLiteral:
		v := in.Eval(expr, in.globals)
		if isInterrupt(v) {
			perrors.Defectf("globaler Initialisierer %s unterbrochen", expr)
		}
		return v
	}
	perrors.Defectf("globaler Initialisierer %s ist nicht konstant", expr)
	return nil
}

// Run executes the three phases in order and returns the exit status.
func (in *Interpreter) Run(program *ast.Program) (int64, error) {
	in.Load(program)

	res := in.runPhase("Bewerbung", nil)
	switch r := res.(type) {
	case *Error:
		return 0, r.Err
	case *ExitSignal:
		return r.Code, nil
	case *String:
		if r.Value == "" {
			in.logger.Debugf("Bewerbung abgelehnt")
			return 0, perrors.NewIn(in.lang, "RUN-0001", nil)
		}
	default:
		perrors.Defectf("Bewerbung lieferte %s statt Zeichenkette", TypeOf(res))
	}

	id := &Int{Value: int64(in.nextMatrikelnummer())}
	for _, phase := range []string{"Einschreibung", "Studium"} {
		switch r := in.runPhase(phase, []Value{id}).(type) {
		case *Error:
			return 0, r.Err
		case *ExitSignal:
			return r.Code, nil
		}
	}
	return 0, nil
}

func (in *Interpreter) runPhase(name string, args []Value) Value {
	in.logger.Debugf("Phase %s beginnt", name)
	start := time.Now()
	res := in.callFunction(name, args)
	in.logger.Debugf("Phase %s beendet nach %s (%s)", name, time.Since(start).Round(time.Millisecond), res.Type())
	return res
}

func (in *Interpreter) nextMatrikelnummer() uint32 {
	if in.matrikelnummer != nil {
		return *in.matrikelnummer
	}
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		perrors.Defectf("Zufallsquelle nicht verfügbar: %v", err)
	}
	n := binary.LittleEndian.Uint32(buf[:])
	in.matrikelnummer = &n
	return n
}

// Call invokes a loaded function or builtin by name. An exit yields the
// *ExitSignal as value; a runtime error is returned as error.
func (in *Interpreter) Call(name string, args ...Value) (Value, error) {
	res := in.callFunction(name, args)
	if e, ok := res.(*Error); ok {
		return nil, e.Err
	}
	return res, nil
}

// Functions returns the loaded user functions and phases, sorted by name.
func (in *Interpreter) Functions() []*ast.FunctionDefinition {
	fns := make([]*ast.FunctionDefinition, 0, len(in.functions))
	for _, fn := range in.functions {
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	return fns
}

// Builtins returns the names of all builtins, sorted.
func (in *Interpreter) Builtins() []string {
	names := make([]string, 0, len(in.builtins))
	for name := range in.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Globals returns the global frame.
func (in *Interpreter) Globals() *Environment {
	return in.globals
}

// Matrikelnummer returns the identifier handed to the later phases. It is
// false when none was configured and no run got past the application.
func (in *Interpreter) Matrikelnummer() (uint32, bool) {
	if in.matrikelnummer == nil {
		return 0, false
	}
	return *in.matrikelnummer, true
}
