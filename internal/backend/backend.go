// Package backend implements spec.md §4.2's Process Backends: the two
// interchangeable mechanisms (direct child process, detached multiplexer
// session) by which a worker is started, signalled, inspected, and
// captured. Callers dispatch on the capability set described here rather
// than on a type hierarchy (spec.md §9's "Polymorphism over backends").
package backend

import (
	"context"
	"time"
)

// Kind names a backend implementation, as persisted in the worker record.
type Kind string

const (
	Direct  Kind = "direct"
	Session Kind = "session"
)

// Signal names the delivery requested of Backend.Signal.
type Signal int

const (
	SignalTerm Signal = iota
	SignalKill
)

// StartOptions carries the per-spawn parameters common to both backends.
type StartOptions struct {
	Name string
	Argv []string
	Env  map[string]string
	Cwd  string

	// LogPath is where the direct backend redirects stdout/stderr. The
	// session backend ignores it (the pane itself is the capture source).
	LogPath string

	// KeepStdin opts a direct-backend worker into retaining an open stdin
	// pipe so that Send can later write to it (spec.md §9 Open Question a).
	KeepStdin bool

	// TmuxCommand is the multiplexer binary invoked by the session backend.
	TmuxCommand string

	// KillGrace is the delay the direct backend waits between TERM and
	// KILL when Signal is called with SignalTerm.
	KillGrace time.Duration
}

// Handle identifies a running backend instance so that a later CLI
// invocation can reconnect to it. Exactly one of PID or Tmux is set,
// mirroring the worker record's backend-binding exclusivity invariant
// (spec.md §8).
type Handle struct {
	Kind Kind
	PID  int
	Tmux *TmuxHandle

	// StdinPath is set only for a direct-backend worker started with
	// KeepStdin: the filesystem path of the named pipe feeding the
	// child's stdin, reopened by Send on every later invocation.
	StdinPath string

	// LogPath is the direct backend's stdout/stderr capture file.
	LogPath string
}

// TmuxHandle identifies a session-backend worker.
type TmuxHandle struct {
	Socket  string
	Session string
	Window  string

	// TmuxCommand is the resolved multiplexer binary the session was
	// started with, carried on the handle so a later reconnecting
	// invocation drives it with the same binary without re-resolving
	// config (spec.md §9's "CLI is short-lived, children are not").
	TmuxCommand string
}

// Bin returns the multiplexer binary to invoke for this handle, falling
// back to "tmux" for a handle reconstructed without one recorded.
func (t *TmuxHandle) Bin() string {
	if t == nil || t.TmuxCommand == "" {
		return "tmux"
	}
	return t.TmuxCommand
}

// Backend is the capability set a worker's lifecycle is driven through.
type Backend interface {
	// Start launches the process described by opts and returns a handle
	// sufficient to reconnect to it from any later invocation.
	Start(ctx context.Context, opts StartOptions) (Handle, error)

	// Capture returns the process's captured output, scrollback included
	// where the backend supports it.
	Capture(ctx context.Context, h Handle) ([]byte, error)

	// Send delivers payload as input to the running process. Returns
	// ErrSendUnsupported if the backend/handle cannot accept input.
	Send(ctx context.Context, h Handle, payload string) error

	// Signal delivers sig to the process (and its session, for Session
	// backends).
	Signal(ctx context.Context, h Handle, sig Signal, opts StartOptions) error

	// Alive reports whether the process is still running. A handle whose
	// backend is entirely gone (e.g. a stale tmux socket) returns
	// (false, ErrBackendGone) rather than silently reporting dead.
	Alive(ctx context.Context, h Handle) (bool, error)
}

// For resolves the Backend implementation for kind.
func For(kind Kind) Backend {
	switch kind {
	case Session:
		return &SessionBackend{}
	default:
		return &DirectBackend{}
	}
}
