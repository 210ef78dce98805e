package workflow

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/mtomcal/swarm-sub001/internal/backend"
	"github.com/mtomcal/swarm-sub001/internal/diag"
	"github.com/mtomcal/swarm-sub001/internal/store"
	"github.com/mtomcal/swarm-sub001/internal/swarmerr"
	"github.com/mtomcal/swarm-sub001/internal/worker"
)

const stageExitMarker = "__SWARM_STAGE_EXIT__"

var stageExitPattern = regexp.MustCompile(stageExitMarker + `:(-?\d+)`)

const defaultStageTimeout = 10 * time.Minute
const defaultRetryMaxAttempts = 3

// Engine drives the stage state machine of spec.md §4.5, persisting
// transitions through the State Store and stage workers through the
// Worker Supervisor. A single Engine instance is used for the lifetime
// of one blocking `workflow run`/`workflow resume` invocation (spec.md
// §5's "deliberately blocking foreground process").
type Engine struct {
	StateDir     string
	Sup          *worker.Supervisor
	PollInterval time.Duration
	KillGrace    time.Duration
}

func New(stateDir string, pollInterval, killGrace time.Duration, tmuxCommand string) *Engine {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	sup := worker.New(stateDir)
	sup.TmuxCommand = tmuxCommand
	return &Engine{StateDir: stateDir, Sup: sup, PollInterval: pollInterval, KillGrace: killGrace}
}

// Run validates doc, establishes (or replaces, under force) its
// persisted state, and — blocking — drives it from creation through a
// terminal status (spec.md §4.5).
func (e *Engine) Run(ctx context.Context, doc *Document, opts RunOptions) error {
	if err := Validate(doc); err != nil {
		return err
	}

	existing, err := store.LoadWorkflowState(e.StateDir, doc.Name)
	if err != nil {
		return err
	}
	if existing != nil && isActive(existing.Status) {
		if !opts.Force {
			return swarmerr.Newf(swarmerr.Duplicate, "workflow %q already exists with an active run", doc.Name)
		}
		if err := e.Cancel(doc.Name); err != nil {
			diag.Warn("failed to cancel prior workflow run before force-replace", map[string]any{"workflow": doc.Name, "error": err.Error()})
		}
	}

	scheduledFor, err := ResolveSchedule(time.Now(), opts)
	if err != nil {
		return err
	}

	ws := &store.WorkflowState{
		Name:         doc.Name,
		Status:       store.WorkflowRunning,
		CurrentStage: 0,
		Attempts:     map[string]int{},
		History:      []store.HistoryEntry{},
	}
	if !scheduledFor.IsZero() {
		ws.Status = store.WorkflowScheduled
		t := scheduledFor
		ws.ScheduledFor = &t
	}
	recordHistory(ws, "", "created", "")
	if err := store.SaveWorkflowState(e.StateDir, ws); err != nil {
		return err
	}

	if ws.Status == store.WorkflowScheduled {
		if cancelled, err := e.sleepUntilScheduled(ctx, doc.Name, scheduledFor); err != nil {
			return err
		} else if cancelled {
			return nil
		}
		ws, err = store.LoadWorkflowState(e.StateDir, doc.Name)
		if err != nil {
			return err
		}
		ws.Status = store.WorkflowRunning
		recordHistory(ws, "", "started", "")
		if err := store.SaveWorkflowState(e.StateDir, ws); err != nil {
			return err
		}
	}

	return e.runLoop(ctx, doc, ws)
}

// Resume transitions a cancelled/failed workflow back to running from
// its last non-terminal stage, attempts retained, and drives it
// (blocking) to a terminal status (spec.md §4.5).
func (e *Engine) Resume(ctx context.Context, doc *Document, name string) error {
	ws, err := store.LoadWorkflowState(e.StateDir, name)
	if err != nil {
		return err
	}
	if ws == nil {
		return swarmerr.Newf(swarmerr.NotFound, "workflow %q not found", name)
	}
	if ws.Status != store.WorkflowCancelled && ws.Status != store.WorkflowFailed {
		return swarmerr.Newf(swarmerr.InvalidInput, "workflow %q is %s, not cancelled/failed", name, ws.Status)
	}

	ws.Status = store.WorkflowRunning
	recordHistory(ws, "", "resumed", "")
	if err := store.SaveWorkflowState(e.StateDir, ws); err != nil {
		return err
	}

	return e.runLoop(ctx, doc, ws)
}

// Cancel sets a workflow's status to cancelled and signals its active
// worker, if any. A no-op success on an already-terminal workflow
// (spec.md §4.5).
func (e *Engine) Cancel(name string) error {
	ws, err := store.LoadWorkflowState(e.StateDir, name)
	if err != nil {
		return err
	}
	if ws == nil {
		return swarmerr.Newf(swarmerr.NotFound, "workflow %q not found", name)
	}
	if isTerminal(ws.Status) {
		return nil
	}

	active := ws.ActiveWorker
	ws.Status = store.WorkflowCancelled
	ws.ActiveWorker = ""
	recordHistory(ws, "", "cancelled", "")
	if err := store.SaveWorkflowState(e.StateDir, ws); err != nil {
		return err
	}

	if active != "" {
		if err := e.Sup.Kill(context.Background(), active, backend.StartOptions{KillGrace: e.KillGrace}); err != nil {
			diag.Warn("failed to kill active worker on cancel", map[string]any{"workflow": name, "worker": active, "error": err.Error()})
		}
	}
	return nil
}

// Status returns the persisted state of a workflow.
func (e *Engine) Status(name string) (*store.WorkflowState, error) {
	ws, err := store.LoadWorkflowState(e.StateDir, name)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, swarmerr.Newf(swarmerr.NotFound, "workflow %q not found", name)
	}
	return ws, nil
}

func isActive(s store.WorkflowStatus) bool {
	return s == store.WorkflowScheduled || s == store.WorkflowRunning
}

func isTerminal(s store.WorkflowStatus) bool {
	return s == store.WorkflowCompleted || s == store.WorkflowFailed || s == store.WorkflowCancelled
}

func recordHistory(ws *store.WorkflowState, stage, event, detail string) {
	ws.History = append(ws.History, store.HistoryEntry{
		ID:     uuid.NewString(),
		Stage:  stage,
		Event:  event,
		At:     time.Now().UTC(),
		Detail: detail,
	})
}

// sleepUntilScheduled blocks until scheduledFor or cancellation,
// whichever is first. Returns (true, nil) if a concurrent Cancel was
// observed.
func (e *Engine) sleepUntilScheduled(ctx context.Context, name string, scheduledFor time.Time) (bool, error) {
	for {
		if time.Now().After(scheduledFor) || time.Now().Equal(scheduledFor) {
			return false, nil
		}
		ws, err := store.LoadWorkflowState(e.StateDir, name)
		if err != nil {
			return false, err
		}
		if ws.Status == store.WorkflowCancelled {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(minDuration(e.PollInterval, time.Until(scheduledFor))):
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	if b <= 0 {
		return a
	}
	return b
}

// runLoop is the single-threaded cooperative monitor loop of spec.md §5:
// it alternates between executing a stage and performing state-machine
// transitions until the workflow reaches a terminal status or
// cancellation is observed.
func (e *Engine) runLoop(ctx context.Context, doc *Document, ws *store.WorkflowState) error {
	for {
		fresh, err := store.LoadWorkflowState(e.StateDir, doc.Name)
		if err != nil {
			return err
		}
		if fresh.Status == store.WorkflowCancelled {
			return nil
		}
		ws = fresh

		if ws.CurrentStage >= len(doc.Stages) {
			ws.Status = store.WorkflowCompleted
			recordHistory(ws, "", "completed", "")
			return store.SaveWorkflowState(e.StateDir, ws)
		}

		stage := doc.Stages[ws.CurrentStage]
		ws.Attempts[stage.Name]++
		attempt := ws.Attempts[stage.Name]
		ws.ActiveWorker = stageWorkerName(doc.Name, stage.Name, attempt)
		recordHistory(ws, stage.Name, "start", fmt.Sprintf("attempt %d", attempt))
		if err := store.SaveWorkflowState(e.StateDir, ws); err != nil {
			return err
		}

		outcome, detail := e.executeStage(ctx, doc, stage, ws)

		fresh, err = store.LoadWorkflowState(e.StateDir, doc.Name)
		if err != nil {
			return err
		}
		if fresh.Status == store.WorkflowCancelled {
			return nil
		}
		ws = fresh
		ws.ActiveWorker = ""

		switch outcome {
		case stageCompleted:
			recordHistory(ws, stage.Name, "completed", detail)
			target, halt, err := e.resolveOnComplete(doc, stage, ws)
			if err != nil {
				ws.Status = store.WorkflowFailed
				recordHistory(ws, stage.Name, "failed", err.Error())
				return store.SaveWorkflowState(e.StateDir, ws)
			}
			if halt {
				ws.Status = store.WorkflowCompleted
				recordHistory(ws, stage.Name, "stopped", "")
				return store.SaveWorkflowState(e.StateDir, ws)
			}
			ws.CurrentStage = target

		case stageFailed:
			recordHistory(ws, stage.Name, "failed", detail)
			switch EffectiveOnFailure(stage) {
			case OnFailureSkip:
				recordHistory(ws, stage.Name, "skipped", "")
				ws.CurrentStage++
			case OnFailureRetry:
				maxAttempts := stage.MaxRetries
				if maxAttempts <= 0 {
					maxAttempts = defaultRetryMaxAttempts
				}
				if attempt < maxAttempts {
					// pending: loop re-runs the same stage index.
				} else {
					ws.Status = store.WorkflowFailed
					if err := store.SaveWorkflowState(e.StateDir, ws); err != nil {
						return err
					}
					return nil
				}
			default: // fail
				ws.Status = store.WorkflowFailed
				if err := store.SaveWorkflowState(e.StateDir, ws); err != nil {
					return err
				}
				return nil
			}
		}

		if err := store.SaveWorkflowState(e.StateDir, ws); err != nil {
			return err
		}
	}
}

type stageOutcome int

const (
	stageFailed stageOutcome = iota
	stageCompleted
)

// resolveOnComplete returns the next stage index, or (_, true, nil) if
// the workflow should stop after this stage.
func (e *Engine) resolveOnComplete(doc *Document, stage Stage, ws *store.WorkflowState) (int, bool, error) {
	oc := EffectiveOnComplete(stage)
	if target, isGoto := GotoTarget(oc); isGoto {
		for i, s := range doc.Stages {
			if s.Name == target {
				return i, false, nil
			}
		}
		return 0, false, swarmerr.Newf(swarmerr.InvalidInput, "goto target %q not found", target)
	}
	switch OnComplete(oc) {
	case OnCompleteStop:
		return 0, true, nil
	default: // next
		return ws.CurrentStage + 1, false, nil
	}
}

func stageWorkerName(workflowName, stageName string, attempt int) string {
	return fmt.Sprintf("wf-%s-%s-%d", workflowName, stageName, attempt)
}
