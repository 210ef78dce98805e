package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/mtomcal/swarm-sub001/internal/backend"
	"github.com/mtomcal/swarm-sub001/internal/diag"
	"github.com/mtomcal/swarm-sub001/internal/store"
	"github.com/mtomcal/swarm-sub001/internal/worker"
)

// executeStage runs one stage to its outcome, blocking. type=worker
// stages spawn a single direct-backend shell worker, retaining stdin
// (spec.md §9 Open Question a), send the stage's prompt (run in a
// subshell, so an explicit `exit N` still reaches the next line) followed
// by an exit-code sentinel, and poll captured output for it — since a
// released child's real exit status cannot be retrieved across CLI
// invocations, the sentinel is the only way to recover it. type=ralph
// stages spawn one fresh worker per attempt and watch for done-pattern,
// exhausting max-retries on failure (spec.md §3's Ralph Wiggum loop).
func (e *Engine) executeStage(ctx context.Context, doc *Document, stage Stage, ws *store.WorkflowState) (stageOutcome, string) {
	prompt, err := loadPrompt(stage)
	if err != nil {
		return stageFailed, err.Error()
	}

	switch stage.Type {
	case StageRalph:
		return e.executeRalphStage(ctx, doc, stage, ws, prompt)
	default:
		return e.executeWorkerStage(ctx, doc, stage, ws, prompt)
	}
}

func (e *Engine) executeWorkerStage(ctx context.Context, doc *Document, stage Stage, ws *store.WorkflowState, prompt string) (stageOutcome, string) {
	name := ws.ActiveWorker
	if _, err := e.Sup.Spawn(ctx, worker.SpawnOptions{
		Name:      name,
		Argv:      []string{"bash"},
		Env:       mergeEnv(doc.Env, stage.Env),
		Tags:      append(append([]string{}, doc.Tags...), stage.Tags...),
		Backend:   backend.Direct,
		KeepStdin: true,
	}); err != nil {
		return stageFailed, fmt.Sprintf("spawn: %s", err)
	}
	defer e.cleanupStageWorker(name)
	defer e.persistStageLog(doc.Name, stage.Name, ws.Attempts[stage.Name], name)

	script := "(\n" + prompt + "\n)\necho \"" + stageExitMarker + ":$?\"\n"
	if err := e.Sup.Send(ctx, name, script); err != nil {
		return stageFailed, fmt.Sprintf("send: %s", err)
	}

	timeout := stage.Timeout
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}
	deadline := time.Now().Add(timeout)
	hb := newHeartbeat(e, doc, name)

	for {
		if e.isCancelled(doc.Name) {
			return stageFailed, "cancelled"
		}
		out, err := e.Sup.Logs(ctx, name)
		if err != nil {
			diag.Warn("stage log capture failed", map[string]any{"workflow": doc.Name, "stage": stage.Name, "error": err.Error()})
		} else if m := stageExitPattern.FindSubmatch(out); m != nil {
			if string(m[1]) == "0" {
				return stageCompleted, ""
			}
			return stageFailed, fmt.Sprintf("exit code %s", m[1])
		}
		if time.Now().After(deadline) {
			return stageFailed, "timeout"
		}
		hb.tick()
		select {
		case <-ctx.Done():
			return stageFailed, ctx.Err().Error()
		case <-time.After(e.PollInterval):
		}
	}
}

func (e *Engine) executeRalphStage(ctx context.Context, doc *Document, stage Stage, ws *store.WorkflowState, prompt string) (stageOutcome, string) {
	donePattern := regexp.MustCompile(".*")
	if stage.DonePattern != "" {
		compiled, err := regexp.Compile(stage.DonePattern)
		if err != nil {
			return stageFailed, fmt.Sprintf("invalid done-pattern: %s", err)
		}
		donePattern = compiled
	}

	for attempt := ws.Attempts[stage.Name]; attempt <= stage.MaxRetries; attempt++ {
		if attempt > ws.Attempts[stage.Name] {
			ws.Attempts[stage.Name] = attempt
			if err := store.SaveWorkflowState(e.StateDir, ws); err != nil {
				return stageFailed, err.Error()
			}
		}
		name := stageWorkerName(doc.Name, stage.Name, attempt)
		ws.ActiveWorker = name
		if _, err := e.Sup.Spawn(ctx, worker.SpawnOptions{
			Name:      name,
			Argv:      []string{"bash"},
			Env:       mergeEnv(doc.Env, stage.Env),
			Tags:      append(append([]string{}, doc.Tags...), stage.Tags...),
			Backend:   backend.Direct,
			KeepStdin: true,
		}); err != nil {
			return stageFailed, fmt.Sprintf("spawn: %s", err)
		}

		if err := e.Sup.Send(ctx, name, prompt+"\n"); err != nil {
			e.cleanupStageWorker(name)
			return stageFailed, fmt.Sprintf("send: %s", err)
		}

		timeout := stage.Timeout
		if timeout <= 0 {
			timeout = defaultStageTimeout
		}
		deadline := time.Now().Add(timeout)
		hb := newHeartbeat(e, doc, name)
		matched := false

		for {
			if e.isCancelled(doc.Name) {
				e.cleanupStageWorker(name)
				return stageFailed, "cancelled"
			}
			out, err := e.Sup.Logs(ctx, name)
			if err == nil && donePattern.Match(out) {
				matched = true
				break
			}
			if time.Now().After(deadline) {
				break
			}
			hb.tick()
			select {
			case <-ctx.Done():
				e.cleanupStageWorker(name)
				return stageFailed, ctx.Err().Error()
			case <-time.After(e.PollInterval):
			}
		}

		e.persistStageLog(doc.Name, stage.Name, attempt, name)
		e.cleanupStageWorker(name)
		if matched {
			return stageCompleted, ""
		}
	}
	return stageFailed, fmt.Sprintf("max-retries (%d) exhausted", stage.MaxRetries)
}

// persistStageLog copies a stage worker's captured output into the
// workflow's own log directory (spec.md §6's "workflows/<name>/logs/…")
// before the worker is cleaned up and its own log artifacts removed.
func (e *Engine) persistStageLog(workflowName, stageName string, attempt int, workerName string) {
	out, err := e.Sup.Logs(context.Background(), workerName)
	if err != nil {
		return
	}
	dir := store.WorkflowLogDir(e.StateDir, workflowName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		diag.Warn("failed to create workflow log directory", map[string]any{"workflow": workflowName, "error": err.Error()})
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.log", stageName, attempt))
	if err := os.WriteFile(path, out, 0o644); err != nil {
		diag.Warn("failed to persist stage log", map[string]any{"workflow": workflowName, "stage": stageName, "error": err.Error()})
	}
}

func (e *Engine) cleanupStageWorker(name string) {
	ctx := context.Background()
	if err := e.Sup.Kill(ctx, name, backend.StartOptions{KillGrace: e.KillGrace}); err != nil {
		diag.Warn("failed to kill stage worker", map[string]any{"worker": name, "error": err.Error()})
	}
	if err := e.Sup.Clean(ctx, name, backend.StartOptions{KillGrace: e.KillGrace}); err != nil {
		diag.Warn("failed to clean stage worker", map[string]any{"worker": name, "error": err.Error()})
	}
}

func (e *Engine) isCancelled(name string) bool {
	ws, err := store.LoadWorkflowState(e.StateDir, name)
	if err != nil || ws == nil {
		return false
	}
	return ws.Status == store.WorkflowCancelled
}

func loadPrompt(stage Stage) (string, error) {
	if stage.Prompt != "" {
		return stage.Prompt, nil
	}
	data, err := os.ReadFile(stage.PromptFile)
	if err != nil {
		return "", fmt.Errorf("read prompt-file %q: %w", stage.PromptFile, err)
	}
	return string(data), nil
}

func mergeEnv(maps ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// heartbeat sends doc.HeartbeatMessage to a stage's active worker every
// doc.Heartbeat interval, ceasing after doc.HeartbeatExpire has elapsed
// since the stage started (spec.md §4.5). It does not reset any stage
// timeout.
type heartbeat struct {
	engine    *Engine
	worker    string
	message   string
	interval  time.Duration
	expireAt  time.Time
	nextSend  time.Time
	armed     bool
}

func newHeartbeat(e *Engine, doc *Document, workerName string) *heartbeat {
	if doc.Heartbeat <= 0 || doc.HeartbeatMessage == "" {
		return &heartbeat{armed: false}
	}
	now := time.Now()
	expire := doc.HeartbeatExpire
	if expire <= 0 {
		expire = defaultStageTimeout
	}
	return &heartbeat{
		engine:   e,
		worker:   workerName,
		message:  doc.HeartbeatMessage,
		interval: doc.Heartbeat,
		expireAt: now.Add(expire),
		nextSend: now.Add(doc.Heartbeat),
		armed:    true,
	}
}

func (h *heartbeat) tick() {
	if !h.armed {
		return
	}
	now := time.Now()
	if now.After(h.expireAt) {
		h.armed = false
		return
	}
	if now.Before(h.nextSend) {
		return
	}
	if err := h.engine.Sup.Send(context.Background(), h.worker, h.message+"\n"); err != nil {
		diag.Warn("heartbeat send failed", map[string]any{"worker": h.worker, "error": err.Error()})
	}
	h.nextSend = now.Add(h.interval)
}
