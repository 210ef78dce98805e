// Package diag implements swarm's diagnostic channel: the stream of
// warnings and recovered errors described throughout spec.md (§4.1
// corruption recovery, §4.4 readiness timeouts, §7 recovered
// BackendFailures). All such messages are written to stderr through a
// structured zerolog logger with a colorized console writer, rather than
// ad-hoc fmt.Fprintln calls.
package diag

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

var (
	mu      sync.Mutex
	verbose bool
	logger  = newLogger(os.Stderr)
)

func newLogger(w io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
		NoColor:    !isColorEnabled(),
	}
	return zerolog.New(cw).With().Timestamp().Logger()
}

func isColorEnabled() bool {
	return color.NoColor == false
}

// SetOutput redirects the diagnostic channel, for test isolation.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

// SetVerbose toggles debug-level diagnostics (--verbose).
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// Warn emits a recovered-condition warning (corrupt state, readiness
// timeout, already-gone backend) with structured context fields.
func Warn(msg string, fields map[string]any) {
	mu.Lock()
	ev := logger.Warn()
	mu.Unlock()
	emit(ev, msg, fields)
}

// Error emits a surfaced-error diagnostic (the CLI still exits non-zero;
// this records the structured detail alongside the stderr message).
func Error(msg string, fields map[string]any) {
	mu.Lock()
	ev := logger.Error()
	mu.Unlock()
	emit(ev, msg, fields)
}

// Info emits a routine diagnostic, suppressed unless --verbose.
func Info(msg string, fields map[string]any) {
	mu.Lock()
	v := verbose
	ev := logger.Info()
	mu.Unlock()
	if !v {
		return
	}
	emit(ev, msg, fields)
}

func emit(ev *zerolog.Event, msg string, fields map[string]any) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
