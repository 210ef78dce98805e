package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/mtomcal/swarm-sub001/internal/backend"
	"github.com/mtomcal/swarm-sub001/internal/diag"
	"github.com/mtomcal/swarm-sub001/internal/ready"
	"github.com/mtomcal/swarm-sub001/internal/store"
	"github.com/mtomcal/swarm-sub001/internal/swarmerr"
)

// Supervisor exposes the worker lifecycle operations of spec.md §4.4,
// mediating between callers, the backend abstraction, and the State
// Store. It holds no in-memory state across calls — every operation
// reloads the registry, since the CLI process is short-lived and
// supervised children outlive it (spec.md §9).
type Supervisor struct {
	StateDir string

	// TmuxCommand is the multiplexer binary new session-backend workers
	// are spawned with (config precedence chain's TmuxCommand setting).
	// Reconnecting to an already-running session worker instead reuses
	// the binary recorded on its TmuxHandle at spawn time.
	TmuxCommand string
}

func New(stateDir string) *Supervisor {
	return &Supervisor{StateDir: stateDir}
}

func handleFor(rec store.WorkerRecord, stateDir string) backend.Handle {
	h := backend.Handle{}
	if rec.Tmux != nil {
		h.Kind = backend.Session
		h.Tmux = &backend.TmuxHandle{
			Socket:      rec.Tmux.Socket,
			Session:     rec.Tmux.Session,
			Window:      rec.Tmux.Window,
			TmuxCommand: rec.Tmux.TmuxCommand,
		}
		return h
	}
	h.Kind = backend.Direct
	if rec.PID != nil {
		h.PID = *rec.PID
	}
	h.LogPath = store.WorkerLogPath(stateDir, rec.Name)
	if rec.StdinOpen {
		h.StdinPath = h.LogPath + ".stdin"
	}
	return h
}

// Spawn instantiates a new worker and stores it as running. Rejects a
// name collision (spec.md §4.4).
func (s *Supervisor) Spawn(ctx context.Context, opts SpawnOptions) (*store.WorkerRecord, error) {
	if opts.Name == "" {
		return nil, swarmerr.Field("name", "worker name must not be empty")
	}
	if len(opts.Argv) == 0 {
		return nil, swarmerr.Field("argv", "command vector must not be empty")
	}

	reg, err := store.LoadRegistry(s.StateDir)
	if err != nil {
		return nil, err
	}
	if reg.Find(opts.Name) != nil {
		return nil, swarmerr.Newf(swarmerr.Duplicate, "worker %q already exists", opts.Name)
	}

	kind := opts.Backend
	if kind == "" {
		kind = backend.Direct
	}
	logPath := store.WorkerLogPath(s.StateDir, opts.Name)

	h, err := backend.For(kind).Start(ctx, backend.StartOptions{
		Name:        opts.Name,
		Argv:        opts.Argv,
		Env:         opts.Env,
		Cwd:         opts.Cwd,
		LogPath:     logPath,
		KeepStdin:   opts.KeepStdin,
		TmuxCommand: s.TmuxCommand,
	})
	if err != nil {
		return nil, swarmerr.Wrap(swarmerr.BackendFailure, err, fmt.Sprintf("start worker %q", opts.Name))
	}

	rec := store.WorkerRecord{
		Name:      opts.Name,
		Status:    string(StatusRunning),
		Cmd:       opts.Argv,
		Started:   time.Now().UTC(),
		Cwd:       opts.Cwd,
		Env:       opts.Env,
		Tags:      opts.Tags,
		StdinOpen: opts.KeepStdin && h.StdinPath != "",
	}
	if h.Kind == backend.Session {
		rec.Tmux = &store.TmuxHandle{
			Socket:      h.Tmux.Socket,
			Session:     h.Tmux.Session,
			Window:      h.Tmux.Window,
			TmuxCommand: h.Tmux.TmuxCommand,
		}
	} else {
		pid := h.PID
		rec.PID = &pid
	}

	reg.Upsert(rec)
	if err := store.SaveRegistry(s.StateDir, reg); err != nil {
		return nil, err
	}

	if opts.ReadyWait {
		timeout := opts.ReadyTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		result, err := ready.WaitReady(ctx, func(ctx context.Context) ([]byte, error) {
			return backend.For(kind).Capture(ctx, h)
		}, timeout, opts.ReadyInterval, nil)
		if err != nil {
			diag.Warn("readiness capture failed", map[string]any{"worker": opts.Name, "error": err.Error()})
		} else if result == ready.TimedOut {
			// Informational only: the worker is left running (spec.md §4.4, §9).
			diag.Warn("readiness timeout", map[string]any{"worker": opts.Name, "timeout": timeout.String()})
		}
	}

	return &rec, nil
}

// Status reports a worker's observed status, reconciling the persisted
// record against a live backend probe.
func (s *Supervisor) Status(ctx context.Context, name string) (Status, error) {
	reg, err := store.LoadRegistry(s.StateDir)
	if err != nil {
		return "", err
	}
	rec := reg.Find(name)
	if rec == nil {
		return StatusNotFound, nil
	}
	if rec.Status != string(StatusRunning) {
		return StatusStopped, nil
	}

	h := handleFor(*rec, s.StateDir)
	alive, err := backend.For(backendKind(*rec)).Alive(ctx, h)
	if err != nil {
		// An unreachable backend (stale socket) surfaces; a merely-dead
		// process is reconciled to stopped below.
		return "", swarmerr.Wrap(swarmerr.BackendFailure, err, fmt.Sprintf("probe worker %q", name))
	}
	if !alive {
		rec.Status = string(StatusStopped)
		reg.Upsert(*rec)
		if err := store.SaveRegistry(s.StateDir, reg); err != nil {
			return "", err
		}
		return StatusStopped, nil
	}
	return StatusRunning, nil
}

func backendKind(rec store.WorkerRecord) backend.Kind {
	if rec.Tmux != nil {
		return backend.Session
	}
	return backend.Direct
}

// List returns registry records matching filter, with liveness probes
// run concurrently across all running entries (see probeLiveness).
func (s *Supervisor) List(ctx context.Context, filter Filter) ([]store.WorkerRecord, error) {
	reg, err := store.LoadRegistry(s.StateDir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(reg.Workers))
	for _, rec := range reg.Workers {
		if rec.Status == string(StatusRunning) {
			names = append(names, rec.Name)
		}
	}

	probes := s.probeLiveness(ctx, names, func(name string) (bool, error) {
		rec := reg.Find(name)
		if rec == nil {
			return false, nil
		}
		return backend.For(backendKind(*rec)).Alive(ctx, handleFor(*rec, s.StateDir))
	})

	dirty := false
	for i, alive := range probes {
		if alive.err != nil {
			diag.Warn("liveness probe failed", map[string]any{"worker": names[i], "error": alive.err.Error()})
			continue
		}
		if !alive.value {
			if rec := reg.Find(names[i]); rec != nil {
				rec.Status = string(StatusStopped)
				reg.Upsert(*rec)
				dirty = true
			}
		}
	}
	if dirty {
		if err := store.SaveRegistry(s.StateDir, reg); err != nil {
			return nil, err
		}
	}

	out := make([]store.WorkerRecord, 0, len(reg.Workers))
	for _, rec := range reg.Workers {
		if matches(rec, filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type livenessProbe struct {
	value bool
	err   error
}

// probeLiveness runs probe against the names concurrently, with up to
// runtime.NumCPU() probes in flight at once, since each call is an
// independent backend round trip (a tmux socket connect or a /proc
// lookup), and `ls` over a large fleet must not pay for them one at a
// time. Results preserve names' order; one backend's error never blocks
// reporting the rest of the fleet.
func (s *Supervisor) probeLiveness(ctx context.Context, names []string, probe func(string) (bool, error)) []livenessProbe {
	results := make([]livenessProbe, len(names))
	if len(names) == 0 {
		return results
	}

	workers := runtime.NumCPU()
	if workers > len(names) {
		workers = len(names)
	}

	jobs := make(chan int, len(names))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				value, err := probe(names[i])
				results[i] = livenessProbe{value: value, err: err}
			}
		}()
	}
	for i := range names {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// Send delivers payload to a running worker's input.
func (s *Supervisor) Send(ctx context.Context, name, payload string) error {
	reg, err := store.LoadRegistry(s.StateDir)
	if err != nil {
		return err
	}
	rec := reg.Find(name)
	if rec == nil {
		return swarmerr.Newf(swarmerr.NotFound, "worker %q not found", name)
	}
	if rec.Status != string(StatusRunning) {
		return swarmerr.Newf(swarmerr.InvalidInput, "worker %q is stopped", name)
	}

	err = backend.For(backendKind(*rec)).Send(ctx, handleFor(*rec, s.StateDir), payload)
	if err == backend.ErrSendUnsupported {
		return swarmerr.Wrap(swarmerr.BackendFailure, err, fmt.Sprintf("worker %q does not accept input", name))
	}
	if err != nil {
		return swarmerr.Wrap(swarmerr.BackendFailure, err, fmt.Sprintf("send to worker %q", name))
	}
	return nil
}

// Logs returns a worker's captured output.
func (s *Supervisor) Logs(ctx context.Context, name string) ([]byte, error) {
	reg, err := store.LoadRegistry(s.StateDir)
	if err != nil {
		return nil, err
	}
	rec := reg.Find(name)
	if rec == nil {
		return nil, swarmerr.Newf(swarmerr.NotFound, "worker %q not found", name)
	}
	out, err := backend.For(backendKind(*rec)).Capture(ctx, handleFor(*rec, s.StateDir))
	if err != nil {
		return nil, swarmerr.Wrap(swarmerr.TransientIO, err, fmt.Sprintf("capture logs for %q", name))
	}
	return out, nil
}

// Kill signals a worker to stop. Idempotent on an already-stopped
// worker; fails on a not-found worker.
func (s *Supervisor) Kill(ctx context.Context, name string, opts backend.StartOptions) error {
	reg, err := store.LoadRegistry(s.StateDir)
	if err != nil {
		return err
	}
	rec := reg.Find(name)
	if rec == nil {
		return swarmerr.Newf(swarmerr.NotFound, "worker %q not found", name)
	}
	if rec.Status != string(StatusRunning) {
		return nil
	}

	if err := backend.For(backendKind(*rec)).Signal(ctx, handleFor(*rec, s.StateDir), backend.SignalTerm, opts); err != nil {
		return swarmerr.Wrap(swarmerr.BackendFailure, err, fmt.Sprintf("kill worker %q", name))
	}

	rec.Status = string(StatusStopped)
	reg.Upsert(*rec)
	return store.SaveRegistry(s.StateDir, reg)
}

// Respawn re-runs spawn with the prior record's argv, env, cwd, tags,
// and backend kind, requiring the worker to be stopped first.
func (s *Supervisor) Respawn(ctx context.Context, name string, readyWait bool, readyTimeout time.Duration) (*store.WorkerRecord, error) {
	reg, err := store.LoadRegistry(s.StateDir)
	if err != nil {
		return nil, err
	}
	rec := reg.Find(name)
	if rec == nil {
		return nil, swarmerr.Newf(swarmerr.NotFound, "worker %q not found", name)
	}
	if rec.Status == string(StatusRunning) {
		return nil, swarmerr.Newf(swarmerr.InvalidInput, "worker %q is still running", name)
	}

	kind := backendKind(*rec)
	reg.Remove(name)
	if err := store.SaveRegistry(s.StateDir, reg); err != nil {
		return nil, err
	}

	return s.Spawn(ctx, SpawnOptions{
		Name:         rec.Name,
		Argv:         rec.Cmd,
		Env:          rec.Env,
		Cwd:          rec.Cwd,
		Tags:         rec.Tags,
		Backend:      kind,
		KeepStdin:    rec.StdinOpen,
		ReadyWait:    readyWait,
		ReadyTimeout: readyTimeout,
	})
}

// Clean removes a worker's record and log artifacts, killing it first
// if it is still observed running.
func (s *Supervisor) Clean(ctx context.Context, name string, opts backend.StartOptions) error {
	reg, err := store.LoadRegistry(s.StateDir)
	if err != nil {
		return err
	}
	rec := reg.Find(name)
	if rec == nil {
		return swarmerr.Newf(swarmerr.NotFound, "worker %q not found", name)
	}

	if rec.Status == string(StatusRunning) {
		if err := backend.For(backendKind(*rec)).Signal(ctx, handleFor(*rec, s.StateDir), backend.SignalKill, opts); err != nil {
			diag.Warn("failed to kill worker before clean", map[string]any{"worker": name, "error": err.Error()})
		}
	}

	reg.Remove(name)
	if err := store.SaveRegistry(s.StateDir, reg); err != nil {
		return err
	}
	removeLogArtifacts(s.StateDir, name)
	return nil
}
