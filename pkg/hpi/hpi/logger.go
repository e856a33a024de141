package hpi

import (
	"fmt"
	"io"
	"sync"

	"github.com/hpi-lang/hpi/pkg/hpi/evaluator"
)

// Logger receives the interpreter's debug messages (phase boundaries,
// rejection).
type Logger = evaluator.Logger

type traceLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *traceLogger) Debugf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "[DEBUG] "+format+"\n", args...)
}

// WriterLogger traces a run to w, one line per message.
func WriterLogger(w io.Writer) Logger {
	return &traceLogger{w: w}
}

// PhaseRecorder keeps the messages of a run in memory, e.g. to show which
// phases were reached.
type PhaseRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *PhaseRecorder) Debugf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

// Messages returns a copy of everything recorded so far.
func (r *PhaseRecorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
