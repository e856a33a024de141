package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hpi-lang/hpi/config"
	"github.com/hpi-lang/hpi/journal"
	"github.com/hpi-lang/hpi/logging"
	perrors "github.com/hpi-lang/hpi/pkg/hpi/errors"
	"github.com/hpi-lang/hpi/pkg/hpi/evaluator"
	"github.com/hpi-lang/hpi/pkg/hpi/hpi"
	"github.com/hpi-lang/hpi/pkg/hpi/httpclient"
	"github.com/hpi-lang/hpi/pkg/hpi/repl"
	"github.com/hpi-lang/hpi/pkg/hpi/tree"
	"github.com/hpi-lang/hpi/watch"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

func main() {
	ctx := context.Background()
	code, err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv, os.Environ())
	if err != nil {
		printFatal(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(code)
}

func printFatal(w io.Writer, err error) {
	var hpiErr *perrors.HPIError
	if errors.As(err, &hpiErr) {
		fmt.Fprintln(w, hpiErr.PrettyString())
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

// options are the flags shared by the run, watch and shell commands
type options struct {
	configPath *string
	noDelay    *bool
	lang       *string
}

func addOptions(flags *flag.FlagSet) options {
	return options{
		configPath: flags.String("config", "", "Path to config file"),
		noDelay:    flags.Bool("no-delay", false, "Disable the pause before loop iterations"),
		lang:       flags.String("lang", "", "Language of error messages (de, en)"),
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern).
// environ is what Umgebungsvariablen reports, in os.Environ form. It returns
// the exit status of the program that ran.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string, environ []string) (int, error) {
	if len(args) > 0 {
		switch args[0] {
		case "watch":
			return 0, runWatch(ctx, args[1:], stdout, stderr, getenv, environ)
		case "shell":
			return 0, runShell(args[1:], stdout, stderr, getenv, environ)
		case "journal":
			return 0, runJournal(args[1:], stdout, stderr, getenv)
		}
	}

	flags := flag.NewFlagSet("hpi", flag.ContinueOnError)
	flags.SetOutput(stderr)
	opts := addOptions(flags)
	showVersion := flags.Bool("version", false, "Show version")
	showHelp := flags.Bool("help", false, "Show help")

	if err := flags.Parse(args); err != nil {
		return 0, err
	}

	if *showHelp {
		printUsage(stdout)
		return 0, nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "hpi version %s\n", Version)
		return 0, nil
	}
	if flags.NArg() != 1 {
		printUsage(stderr)
		return 0, fmt.Errorf("expected exactly one tree file")
	}

	env, err := newEnvironment(opts, stdout, stderr, getenv, environ)
	if err != nil {
		return 0, err
	}
	defer env.close()

	status, err := env.runTree(flags.Arg(0))
	return int(status), err
}

// environment is everything a run needs besides the tree
type environment struct {
	cfg        *config.Config
	configPath string
	logger     *logging.Logger
	closeLog   func() error
	stdout     io.Writer
	environ    map[string]string
}

func newEnvironment(opts options, stdout, stderr io.Writer, getenv func(string) string, environ []string) (*environment, error) {
	cfg, configPath, err := loadConfig(opts, getenv)
	if err != nil {
		return nil, err
	}

	out, closeLog, err := logging.Open(cfg.Logging.Output, cfg.BaseDir, stdout, stderr)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		closeLog()
		return nil, err
	}

	return &environment{
		cfg:        cfg,
		configPath: configPath,
		logger:     logging.New(out, level, cfg.Logging.Format),
		closeLog:   closeLog,
		stdout:     stdout,
		environ:    hpi.EnvironMap(environ),
	}, nil
}

func loadConfig(opts options, getenv func(string) string) (*config.Config, string, error) {
	cfg, path, err := config.LoadWithPath(*opts.configPath, getenv)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}

	// Apply CLI overrides
	if *opts.noDelay {
		cfg.LoopDelay = 0
	}
	if *opts.lang != "" {
		cfg.Locale = *opts.lang
	}

	if err := config.Validate(cfg); err != nil {
		return nil, "", fmt.Errorf("config validation: %w", err)
	}
	return cfg, path, nil
}

func (e *environment) close() {
	e.closeLog()
}

// interpreterOptions translates the config into evaluator options.
func (e *environment) interpreterOptions() ([]hpi.Option, error) {
	opts := []hpi.Option{
		hpi.WithLoopDelay(e.cfg.LoopDelay),
		hpi.WithLanguage(e.cfg.Language()),
		hpi.WithLogger(e.logger),
	}
	if e.cfg.Matrikelnummer != nil {
		opts = append(opts, hpi.WithMatrikelnummer(*e.cfg.Matrikelnummer))
	}
	if e.cfg.Clock != "" {
		fixed, err := e.cfg.FixedClock()
		if err != nil {
			return nil, err
		}
		opts = append(opts, hpi.WithClock(func() time.Time { return fixed }))
	}
	return opts, nil
}

func (e *environment) httpClient() (*httpclient.Client, error) {
	return httpclient.New(httpclient.Options{
		Timeout:   e.cfg.HTTP.Timeout,
		UserAgent: e.cfg.HTTP.UserAgent,
		Cookies:   e.cfg.HTTP.Cookies,
	})
}

func (e *environment) newInterpreter(out io.Writer) (*evaluator.Interpreter, error) {
	opts, err := e.interpreterOptions()
	if err != nil {
		return nil, err
	}
	client, err := e.httpClient()
	if err != nil {
		return nil, err
	}
	return hpi.NewInterpreter(e.environ, out, client, opts...), nil
}

// runTree loads and runs one tree file and records the run in the journal.
func (e *environment) runTree(path string) (int64, error) {
	file, err := tree.ReadFile(path)
	if err != nil {
		return 0, err
	}
	e.logger.Debugf("tree %s (%s, %s)", file.Path, file.Compression, file.Fingerprint[:12])

	interp, err := e.newInterpreter(e.stdout)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	status, runErr := hpi.Run(interp, file.Program)
	duration := time.Since(start)

	e.record(file, interp, status, runErr, start, duration)
	return status, runErr
}

func (e *environment) record(file *tree.File, interp *evaluator.Interpreter, status int64, runErr error, start time.Time, duration time.Duration) {
	if !e.cfg.Journal.Enabled {
		return
	}

	j, err := journal.Open(e.cfg.Journal.Driver, e.cfg.Journal.DSN)
	if err != nil {
		e.logger.Warnf("journal unavailable: %v", err)
		return
	}
	defer j.Close()

	entry := journal.Entry{
		Program:     file.Path,
		Fingerprint: file.Fingerprint,
		Status:      status,
		Started:     start,
		Duration:    duration,
	}
	if n, ok := interp.Matrikelnummer(); ok {
		entry.Matrikelnummer = n
	}
	if runErr != nil {
		var hpiErr *perrors.HPIError
		if errors.As(runErr, &hpiErr) {
			entry.Error = hpiErr.Code + ": " + hpiErr.Message
		} else {
			entry.Error = runErr.Error()
		}
	}

	if err := j.Record(entry); err != nil {
		e.logger.Warnf("%v", err)
	}
}

func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string, environ []string) error {
	flags := flag.NewFlagSet("hpi watch", flag.ContinueOnError)
	flags.SetOutput(stderr)
	opts := addOptions(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: hpi watch [options] <tree>")
	}
	path := flags.Arg(0)

	env, err := newEnvironment(opts, stdout, stderr, getenv, environ)
	if err != nil {
		return err
	}
	defer env.close()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rerun := func() {
		status, err := env.runTree(path)
		if err != nil {
			printFatal(stderr, err)
			return
		}
		env.logger.Infof("run finished with status %d", status)
	}

	w, err := watch.New(path, env.configPath, env.cfg.Watch.Debounce, env.logger, func(c watch.Change) {
		if c.Config {
			// Logging settings apply from the next start
			cfg, _, err := loadConfig(opts, getenv)
			if err != nil {
				env.logger.Errorf("keeping previous config: %v", err)
				return
			}
			env.cfg = cfg
		}
		rerun()
	})
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	rerun()
	return w.Run(ctx)
}

func runShell(args []string, stdout, stderr io.Writer, getenv func(string) string, environ []string) error {
	flags := flag.NewFlagSet("hpi shell", flag.ContinueOnError)
	flags.SetOutput(stderr)
	opts := addOptions(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: hpi shell [options] <tree>")
	}

	env, err := newEnvironment(opts, stdout, stderr, getenv, environ)
	if err != nil {
		return err
	}
	defer env.close()

	file, err := tree.ReadFile(flags.Arg(0))
	if err != nil {
		return err
	}

	session, err := repl.NewSession(file.Program, env.newInterpreter, stdout)
	if err != nil {
		return err
	}
	repl.Start(session, Version)
	return nil
}

func runJournal(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("hpi journal", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "Path to config file")
	limit := flags.Int("n", 20, "Number of runs to show")
	clearAll := flags.Bool("clear", false, "Delete all recorded runs")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Journal.Enabled {
		return fmt.Errorf("journal is disabled (set journal.enabled in the config)")
	}

	j, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		return err
	}
	defer j.Close()

	if *clearAll {
		count, err := j.Count()
		if err != nil {
			return err
		}
		if err := j.Clear(); err != nil {
			return fmt.Errorf("clearing journal: %w", err)
		}
		fmt.Fprintf(stdout, "%d runs deleted\n", count)
		return nil
	}

	entries, err := j.Recent(*limit)
	if err != nil {
		return err
	}
	return journal.Render(stdout, entries, cfg.Locale)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `hpi - runs validated hpi program trees

Usage:
  hpi [options] <tree>          Run a tree and exit with its status
  hpi watch [options] <tree>    Rerun the tree whenever it or the config changes
  hpi shell [options] <tree>    Explore the tree interactively
  hpi journal [-n N] [--clear]  Show or clear recorded runs

Options:
  --config PATH    Path to config file (default: auto-detect)
  --no-delay       Disable the pause before loop iterations
  --lang LANG      Language of error messages (de, en)
  --version        Show version
  --help           Show this help

Config Resolution:
  1. --config flag
  2. HPI_CONFIG environment variable
  3. ./hpi.yaml
  4. ~/.config/hpi/hpi.yaml

Trees are YAML files, optionally compressed with gzip or zstd.

`)
}
