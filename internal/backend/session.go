package backend

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/uuid"
)

// SessionBackend drives a detached tmux session on an isolated server
// socket, so concurrent integration runs never collide (spec.md §4.2).
type SessionBackend struct{}

func tmuxBin(opts StartOptions) string {
	if opts.TmuxCommand != "" {
		return opts.TmuxCommand
	}
	return "tmux"
}

func socketArgs(socket string) []string {
	return []string{"-L", socket}
}

func (SessionBackend) Start(ctx context.Context, opts StartOptions) (Handle, error) {
	socket := "swarm-" + uuid.NewString()
	session := opts.Name
	window := "main"

	args := append(socketArgs(socket), "new-session", "-d", "-s", session, "-n", window)
	args = append(args, "--")
	args = append(args, opts.Argv...)

	bin := tmuxBin(opts)
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = opts.Cwd
	cmd.Env = overlayEnv(opts.Env)
	if out, err := cmd.CombinedOutput(); err != nil {
		return Handle{}, fmt.Errorf("tmux new-session: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	return Handle{Kind: Session, Tmux: &TmuxHandle{Socket: socket, Session: session, Window: window, TmuxCommand: bin}}, nil
}

func (SessionBackend) Capture(ctx context.Context, h Handle) ([]byte, error) {
	if h.Tmux == nil {
		return nil, fmt.Errorf("session backend handle missing tmux binding")
	}
	args := append(socketArgs(h.Tmux.Socket), "capture-pane", "-p", "-t",
		fmt.Sprintf("%s:%s", h.Tmux.Session, h.Tmux.Window), "-S", "-")
	cmd := exec.CommandContext(ctx, h.Tmux.Bin(), args...)
	out, err := cmd.Output()
	if err != nil {
		if isSocketGone(err, stderrOf(err)) {
			return nil, ErrBackendGone
		}
		return nil, fmt.Errorf("tmux capture-pane: %w", err)
	}
	return out, nil
}

func (SessionBackend) Send(ctx context.Context, h Handle, payload string) error {
	if h.Tmux == nil {
		return ErrSendUnsupported
	}
	target := fmt.Sprintf("%s:%s", h.Tmux.Session, h.Tmux.Window)
	args := append(socketArgs(h.Tmux.Socket), "send-keys", "-t", target, payload, "Enter")
	cmd := exec.CommandContext(ctx, h.Tmux.Bin(), args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if isSocketGone(err, out) {
			return ErrBackendGone
		}
		return fmt.Errorf("tmux send-keys: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (SessionBackend) Signal(ctx context.Context, h Handle, sig Signal, opts StartOptions) error {
	if h.Tmux == nil {
		return fmt.Errorf("session backend handle missing tmux binding")
	}
	args := append(socketArgs(h.Tmux.Socket), "kill-session", "-t", h.Tmux.Session)
	cmd := exec.CommandContext(ctx, h.Tmux.Bin(), args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if isSocketGone(err, out) || sessionAlreadyGone(string(out)) {
			// Already gone is success (spec.md §7 BackendFailure recovery).
			return nil
		}
		return fmt.Errorf("tmux kill-session: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (SessionBackend) Alive(ctx context.Context, h Handle) (bool, error) {
	if h.Tmux == nil {
		return false, fmt.Errorf("session backend handle missing tmux binding")
	}
	args := append(socketArgs(h.Tmux.Socket), "has-session", "-t", h.Tmux.Session)
	cmd := exec.CommandContext(ctx, h.Tmux.Bin(), args...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return true, nil
	}
	if isSocketGone(err, out) {
		return false, ErrBackendGone
	}
	// tmux exits non-zero for "session not found" — that's a live,
	// reachable server reporting a dead session, not a gone backend.
	return false, nil
}

// isSocketGone distinguishes a stale/unreachable server socket (spec.md
// §9 Open Question b) from an ordinary "no such session" exit. A merely
// dead session still gets a reply from a live tmux server; a gone
// socket instead fails to connect at all, which tmux reports on stderr
// as "error connecting to ... (No such file or directory)" (or
// "error connecting to ... (Connection refused)" for an orphaned socket
// file whose server process is gone). We also treat a missing tmux
// binary the same way, since no server can be reachable without it.
func isSocketGone(err error, output []byte) bool {
	if _, lookErr := exec.LookPath("tmux"); lookErr != nil {
		return true
	}
	msg := strings.ToLower(string(output))
	return strings.Contains(msg, "error connecting to") &&
		(strings.Contains(msg, "no such file or directory") || strings.Contains(msg, "connection refused"))
}

// stderrOf extracts the child's stderr from an exec error produced by
// cmd.Output(), where cmd.Stderr was left nil.
func stderrOf(err error) []byte {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Stderr
	}
	return nil
}

func sessionAlreadyGone(output string) bool {
	return strings.Contains(output, "can't find session") ||
		strings.Contains(output, "no such session") ||
		strings.Contains(output, "no current session")
}
