// Package repl is an interactive shell for exploring a loaded program tree:
// running it, calling its functions and inspecting its globals.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/hpi-lang/hpi/pkg/hpi/ast"
	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
	"github.com/hpi-lang/hpi/pkg/hpi/evaluator"
	"github.com/hpi-lang/hpi/pkg/hpi/tree"
)

const PROMPT = "hpi> "

const LOGO = `
█░█ █▀█ █
█▀█ █▀▀ █ `

var commands = []string{":run", ":call", ":funcs", ":globals", ":builtins", ":help", ":quit"}

// Factory creates a fresh interpreter writing to out.
type Factory func(out io.Writer) (*evaluator.Interpreter, error)

// Session holds the state of one shell: the program and the interpreter
// that :call and :globals operate on.
type Session struct {
	program *ast.Program
	factory Factory
	interp  *evaluator.Interpreter
	out     io.Writer
}

// NewSession loads program into a fresh interpreter.
func NewSession(program *ast.Program, factory Factory, out io.Writer) (*Session, error) {
	s := &Session{program: program, factory: factory, out: out}
	if err := s.reset(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) reset() (err error) {
	defer recoverDefect(&err)
	interp, err := s.factory(s.out)
	if err != nil {
		return err
	}
	interp.Load(s.program)
	s.interp = interp
	return nil
}

// recoverDefect turns a defect panic into an error.
func recoverDefect(err *error) {
	if r := recover(); r != nil {
		d, ok := r.(*perrors.Defect)
		if !ok {
			panic(r)
		}
		*err = d
	}
}

// Start runs the shell with line editing, history, and tab completion
// until :quit or Ctrl+D.
func Start(s *Session, version string) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(s.complete)

	historyFile := filepath.Join(os.TempDir(), ".hpi_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(s.out, "%s", LOGO)
	fmt.Fprintln(s.out, "v", version)
	fmt.Fprintln(s.out, "")
	fmt.Fprintln(s.out, "Type ':help' for commands, ':quit' or Ctrl+D to quit")
	fmt.Fprintln(s.out, "")

	for {
		input, err := line.Prompt(PROMPT)
		if err != nil {
			if err == liner.ErrPromptAborted {
				fmt.Fprintln(s.out, "^C")
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(s.out, "\nTschüss!")
				return
			}
			fmt.Fprintf(s.out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		line.AppendHistory(trimmed)

		if !s.Execute(trimmed) {
			fmt.Fprintln(s.out, "Tschüss!")
			return
		}
	}
}

// Execute handles one command line. It returns false when the shell
// should end.
func (s *Session) Execute(input string) bool {
	name, rest, _ := strings.Cut(strings.TrimSpace(input), " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case ":quit", ":q", "exit", "quit":
		return false

	case ":help", ":h", ":?":
		fmt.Fprintln(s.out, "Commands:")
		fmt.Fprintln(s.out, "  :run                 Run the whole program in a fresh interpreter")
		fmt.Fprintln(s.out, "  :call NAME ARGS...   Call a function or builtin with literal arguments")
		fmt.Fprintln(s.out, "  :funcs               List the program's functions")
		fmt.Fprintln(s.out, "  :globals             Show the global variables")
		fmt.Fprintln(s.out, "  :builtins            List the builtins")
		fmt.Fprintln(s.out, "  :help                Show this help")
		fmt.Fprintln(s.out, "  :quit                Leave the shell")
		fmt.Fprintln(s.out, "")
		fmt.Fprintln(s.out, "Arguments are literals: 42, 2,5, ja, nein, nichts, \"Text\", [1, 2]")

	case ":run":
		s.run()

	case ":call":
		if rest == "" {
			fmt.Fprintln(s.out, "usage: :call NAME ARGS...")
			break
		}
		fn, args, _ := strings.Cut(rest, " ")
		s.call(fn, args)

	case ":funcs":
		s.printFunctions()

	case ":globals":
		s.printGlobals()

	case ":builtins":
		for _, b := range s.interp.Builtins() {
			fmt.Fprintf(s.out, "  %s\n", b)
		}

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type :help for commands)\n", name)
	}
	return true
}

func (s *Session) run() {
	var err error
	var status int64
	func() {
		defer recoverDefect(&err)
		var interp *evaluator.Interpreter
		if interp, err = s.factory(s.out); err != nil {
			return
		}
		status, err = interp.Run(s.program)
	}()
	if err != nil {
		printError(s.out, err)
		return
	}
	fmt.Fprintf(s.out, "Status: %d\n", status)
}

func (s *Session) call(name, rawArgs string) {
	exprs, err := parseArgs(rawArgs)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid arguments: %v\n", err)
		return
	}

	var result evaluator.Value
	func() {
		defer recoverDefect(&err)
		args := make([]evaluator.Value, len(exprs))
		for i, e := range exprs {
			args[i] = s.interp.Eval(e, s.interp.Globals())
		}
		result, err = s.interp.Call(name, args...)
	}()
	if err != nil {
		printError(s.out, err)
		return
	}

	if exit, ok := result.(*evaluator.ExitSignal); ok {
		fmt.Fprintf(s.out, "Aufgegeben mit Status %d\n", exit.Code)
		return
	}
	fmt.Fprintf(s.out, "%s: %s\n", evaluator.TypeOf(result), result.Inspect())
}

func (s *Session) printFunctions() {
	fns := s.interp.Functions()
	if len(fns) == 0 {
		fmt.Fprintln(s.out, "(no functions)")
		return
	}
	for _, fn := range fns {
		params := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Type.String() + " " + p.Name
		}
		fmt.Fprintf(s.out, "  %s(%s) -> %s\n", fn.Name, strings.Join(params, ", "), fn.ReturnType)
	}
}

func (s *Session) printGlobals() {
	vars := s.interp.Globals().Values()
	if len(vars) == 0 {
		fmt.Fprintln(s.out, "(no globals)")
		return
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := vars[name]
		value := v.Inspect()
		if len(value) > 60 {
			value = value[:57] + "..."
		}
		fmt.Fprintf(s.out, "  %s: %s = %s\n", name, evaluator.TypeOf(v), value)
	}
}

// complete offers commands, then function and builtin names after :call.
func (s *Session) complete(line string) []string {
	if strings.HasPrefix(line, ":call ") {
		prefix := strings.TrimPrefix(line, ":call ")
		if strings.Contains(prefix, " ") {
			return nil
		}
		var names []string
		for _, fn := range s.interp.Functions() {
			names = append(names, fn.Name)
		}
		names = append(names, s.interp.Builtins()...)
		sort.Strings(names)

		var matches []string
		for _, n := range names {
			if strings.HasPrefix(n, prefix) {
				matches = append(matches, ":call "+n)
			}
		}
		return matches
	}

	var matches []string
	for _, c := range commands {
		if strings.HasPrefix(c, line) {
			matches = append(matches, c)
		}
	}
	return matches
}

// parseArgs splits a command line into literal expressions. Double-quoted
// arguments are always strings; brackets group list literals.
func parseArgs(s string) ([]ast.Expression, error) {
	var (
		args    []ast.Expression
		current strings.Builder
		depth   int
		quoted  bool
	)

	flush := func() error {
		if current.Len() == 0 {
			return nil
		}
		token := current.String()
		current.Reset()

		if strings.HasPrefix(token, `"`) {
			str, err := strconv.Unquote(token)
			if err != nil {
				return fmt.Errorf("bad string %s", token)
			}
			args = append(args, &ast.StringLiteral{Value: str})
			return nil
		}
		e, err := tree.ParseLiteral(token)
		if err != nil {
			return err
		}
		args = append(args, e)
		return nil
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quoted:
			current.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				current.WriteByte(s[i])
			} else if ch == '"' {
				quoted = false
			}
		case ch == '"':
			quoted = true
			current.WriteByte(ch)
		case ch == '[' || ch == '{':
			depth++
			current.WriteByte(ch)
		case ch == ']' || ch == '}':
			depth--
			current.WriteByte(ch)
		case (ch == ' ' || ch == '\t') && depth == 0:
			if err := flush(); err != nil {
				return nil, err
			}
		default:
			current.WriteByte(ch)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated string")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return args, nil
}

func printError(out io.Writer, err error) {
	if hpiErr, ok := err.(*perrors.HPIError); ok {
		io.WriteString(out, hpiErr.PrettyString()+"\n")
		return
	}
	fmt.Fprintf(out, "%v\n", err)
}
