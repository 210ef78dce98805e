package backend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// DirectBackend forks a child inheriting the overlaid environment,
// redirecting stdout/stderr to a pre-created log file (spec.md §4.2).
type DirectBackend struct{}

func (DirectBackend) Start(ctx context.Context, opts StartOptions) (Handle, error) {
	logFile, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Handle{}, fmt.Errorf("create log file %s: %w", opts.LogPath, err)
	}
	defer logFile.Close()

	cmd := exec.Command(opts.Argv[0], opts.Argv[1:]...)
	cmd.Dir = opts.Cwd
	cmd.Env = overlayEnv(opts.Env)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	var stdinPath string
	if opts.KeepStdin {
		stdinPath = opts.LogPath + ".stdin"
		_ = os.Remove(stdinPath)
		if err := syscall.Mkfifo(stdinPath, 0o600); err != nil {
			return Handle{}, fmt.Errorf("create stdin fifo: %w", err)
		}
		// Opening the fifo O_RDWR from the child side would self-block on
		// some platforms; instead we open it read-write from the parent
		// before Start so the child's read end never blocks waiting for
		// a writer, then hand the same fd to the child as stdin.
		fifo, err := os.OpenFile(stdinPath, os.O_RDWR, os.ModeNamedPipe)
		if err != nil {
			return Handle{}, fmt.Errorf("open stdin fifo: %w", err)
		}
		defer fifo.Close()
		cmd.Stdin = fifo
	}

	if err := cmd.Start(); err != nil {
		return Handle{}, fmt.Errorf("start %s: %w", opts.Argv[0], err)
	}
	// The child now owns its own process image; releasing lets this
	// short-lived CLI invocation exit without waiting on it.
	if err := cmd.Process.Release(); err != nil {
		return Handle{}, fmt.Errorf("release child: %w", err)
	}

	return Handle{Kind: Direct, PID: cmd.Process.Pid, StdinPath: stdinPath, LogPath: opts.LogPath}, nil
}

func (DirectBackend) Capture(ctx context.Context, h Handle) ([]byte, error) {
	if h.LogPath == "" {
		return nil, fmt.Errorf("direct backend handle missing log path")
	}
	return os.ReadFile(h.LogPath)
}

func (DirectBackend) Send(ctx context.Context, h Handle, payload string) error {
	if h.StdinPath == "" {
		return ErrSendUnsupported
	}
	f, err := os.OpenFile(h.StdinPath, os.O_WRONLY, os.ModeNamedPipe)
	if err != nil {
		return fmt.Errorf("open stdin fifo %s: %w", h.StdinPath, err)
	}
	defer f.Close()
	if _, err := f.WriteString(payload + "\n"); err != nil {
		return fmt.Errorf("write stdin fifo: %w", err)
	}
	return nil
}

func (DirectBackend) Signal(ctx context.Context, h Handle, sig Signal, opts StartOptions) error {
	p, err := process.NewProcess(int32(h.PID))
	if err != nil {
		// Already gone: killing a worker whose PID no longer exists is
		// success (spec.md §7 BackendFailure recovery).
		return nil
	}

	running, err := p.IsRunning()
	if err == nil && !running {
		return nil
	}

	if sig == SignalKill {
		// Already-gone is recovered as success (spec.md §7).
		_ = p.Kill()
		return nil
	}

	_ = p.Terminate()

	grace := opts.KillGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		still, err := p.IsRunning()
		if err != nil || !still {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	_ = p.Kill()
	return nil
}

func (DirectBackend) Alive(ctx context.Context, h Handle) (bool, error) {
	p, err := process.NewProcess(int32(h.PID))
	if err != nil {
		return false, nil
	}
	running, err := p.IsRunning()
	if err != nil {
		return false, nil
	}
	// An exited child not yet reaped by its parent lingers as a zombie;
	// it is no longer running.
	if st, err := p.Status(); err == nil && len(st) > 0 && st[0] == process.Zombie {
		return false, nil
	}
	return running, nil
}

func overlayEnv(env map[string]string) []string {
	base := os.Environ()
	out := make([]string, 0, len(base)+len(env))
	out = append(out, base...)
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
