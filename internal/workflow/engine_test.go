package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtomcal/swarm-sub001/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(t.TempDir(), 50*time.Millisecond, 50*time.Millisecond, "")
}

// TestRunSingleWorkerStageCompletes covers spec.md §8 end-to-end
// scenario 5's happy path: a single worker stage whose command exits 0
// drives the workflow to completed.
func TestRunSingleWorkerStageCompletes(t *testing.T) {
	e := newTestEngine(t)
	doc := &Document{
		Name: "wf1",
		Stages: []Stage{
			{Name: "s1", Type: StageWorker, Prompt: "true"},
		},
	}

	require.NoError(t, e.Run(context.Background(), doc, RunOptions{}))

	ws, err := e.Status(doc.Name)
	require.NoError(t, err)
	assert.Equal(t, store.WorkflowCompleted, ws.Status)
	assert.Equal(t, 1, ws.CurrentStage)
	assert.Equal(t, "", ws.ActiveWorker)
}

// TestRunWorkerStageFailureDefaultsToFail covers the default on-failure
// (fail) transition of spec.md §4.5.
func TestRunWorkerStageFailureDefaultsToFail(t *testing.T) {
	e := newTestEngine(t)
	doc := &Document{
		Name: "wf2",
		Stages: []Stage{
			{Name: "s1", Type: StageWorker, Prompt: "exit 7"},
		},
	}

	require.NoError(t, e.Run(context.Background(), doc, RunOptions{}))

	ws, err := e.Status(doc.Name)
	require.NoError(t, err)
	assert.Equal(t, store.WorkflowFailed, ws.Status)
	assert.Equal(t, 1, ws.Attempts["s1"])
}

// TestRunOnFailureRetryExhaustsMaxRetries covers the retry transition
// looping back to pending until max-retries is exhausted.
func TestRunOnFailureRetryExhaustsMaxRetries(t *testing.T) {
	e := newTestEngine(t)
	doc := &Document{
		Name: "wf3",
		Stages: []Stage{
			{Name: "s1", Type: StageWorker, Prompt: "exit 1", OnFailure: OnFailureRetry, MaxRetries: 2},
		},
	}

	require.NoError(t, e.Run(context.Background(), doc, RunOptions{}))

	ws, err := e.Status(doc.Name)
	require.NoError(t, err)
	assert.Equal(t, store.WorkflowFailed, ws.Status)
	assert.Equal(t, 2, ws.Attempts["s1"])
}

// TestRunOnFailureSkipAdvances covers skip's advance-past-stage
// transition into the following stage.
func TestRunOnFailureSkipAdvances(t *testing.T) {
	e := newTestEngine(t)
	doc := &Document{
		Name: "wf4",
		Stages: []Stage{
			{Name: "s1", Type: StageWorker, Prompt: "exit 1", OnFailure: OnFailureSkip},
			{Name: "s2", Type: StageWorker, Prompt: "true"},
		},
	}

	require.NoError(t, e.Run(context.Background(), doc, RunOptions{}))

	ws, err := e.Status(doc.Name)
	require.NoError(t, err)
	assert.Equal(t, store.WorkflowCompleted, ws.Status)

	foundSkip := false
	for _, h := range ws.History {
		if h.Stage == "s1" && h.Event == "skipped" {
			foundSkip = true
		}
	}
	assert.True(t, foundSkip, "expected a skipped history entry for s1")
}

// TestRunGotoJumpsToNamedStage covers the goto:<stage> on-complete form.
func TestRunGotoJumpsToNamedStage(t *testing.T) {
	e := newTestEngine(t)
	doc := &Document{
		Name: "wf5",
		Stages: []Stage{
			{Name: "s1", Type: StageWorker, Prompt: "true", OnComplete: "goto:s3"},
			{Name: "s2", Type: StageWorker, Prompt: "exit 1"},
			{Name: "s3", Type: StageWorker, Prompt: "true"},
		},
	}

	require.NoError(t, e.Run(context.Background(), doc, RunOptions{}))

	ws, err := e.Status(doc.Name)
	require.NoError(t, err)
	assert.Equal(t, store.WorkflowCompleted, ws.Status)
	_, ran := ws.Attempts["s2"]
	assert.False(t, ran, "s2 should have been skipped over by goto")
}

// TestRunRejectsDuplicateActiveRun covers spec.md §4.5's uniqueness rule.
func TestRunRejectsDuplicateActiveRun(t *testing.T) {
	e := newTestEngine(t)
	doc := &Document{
		Name: "wf6",
		Stages: []Stage{
			{Name: "s1", Type: StageWorker, Prompt: "true"},
		},
	}

	require.NoError(t, store.SaveWorkflowState(e.StateDir, &store.WorkflowState{
		Name:     doc.Name,
		Status:   store.WorkflowRunning,
		Attempts: map[string]int{},
	}))

	err := e.Run(context.Background(), doc, RunOptions{})
	require.Error(t, err)
}

// TestCancelDuringScheduledSleepReturnsWithoutRunning covers a Cancel
// observed while a scheduled workflow is still sleeping.
func TestCancelDuringScheduledSleepReturnsWithoutRunning(t *testing.T) {
	e := newTestEngine(t)
	doc := &Document{
		Name: "wf7",
		Stages: []Stage{
			{Name: "s1", Type: StageWorker, Prompt: "true"},
		},
	}

	done := make(chan error, 1)
	go func() {
		done <- e.Run(context.Background(), doc, RunOptions{In: time.Hour})
	}()

	require.Eventually(t, func() bool {
		ws, err := store.LoadWorkflowState(e.StateDir, doc.Name)
		return err == nil && ws != nil && ws.Status == store.WorkflowScheduled
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, e.Cancel(doc.Name))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Cancel")
	}

	ws, err := e.Status(doc.Name)
	require.NoError(t, err)
	assert.Equal(t, store.WorkflowCancelled, ws.Status)
}

// TestRunRalphStageCompletesOnDonePattern covers the ralph stage type's
// done-pattern match on its first attempt.
func TestRunRalphStageCompletesOnDonePattern(t *testing.T) {
	e := newTestEngine(t)
	doc := &Document{
		Name: "wf8",
		Stages: []Stage{
			{Name: "s1", Type: StageRalph, Prompt: "echo READY_TOKEN", DonePattern: "READY_TOKEN", MaxRetries: 3},
		},
	}

	require.NoError(t, e.Run(context.Background(), doc, RunOptions{}))

	ws, err := e.Status(doc.Name)
	require.NoError(t, err)
	assert.Equal(t, store.WorkflowCompleted, ws.Status)
}

// TestRunRalphStageExhaustsMaxRetries covers a ralph stage whose
// done-pattern never matches.
func TestRunRalphStageExhaustsMaxRetries(t *testing.T) {
	e := newTestEngine(t)
	doc := &Document{
		Name: "wf9",
		Stages: []Stage{
			{Name: "s1", Type: StageRalph, Prompt: "echo NOPE", DonePattern: "NEVER_MATCHES", MaxRetries: 1, Timeout: 200 * time.Millisecond},
		},
	}
	// Keep the poll window tight so the never-matching attempt resolves quickly.
	e.PollInterval = 20 * time.Millisecond

	require.NoError(t, e.Run(context.Background(), doc, RunOptions{}))

	ws, err := e.Status(doc.Name)
	require.NoError(t, err)
	assert.Equal(t, store.WorkflowFailed, ws.Status)
}

func TestResolveOnCompleteStopHaltsWorkflow(t *testing.T) {
	e := newTestEngine(t)
	doc := &Document{
		Name: "wf10",
		Stages: []Stage{
			{Name: "s1", Type: StageWorker, Prompt: "true", OnComplete: "stop"},
			{Name: "s2", Type: StageWorker, Prompt: "true"},
		},
	}

	require.NoError(t, e.Run(context.Background(), doc, RunOptions{}))

	ws, err := e.Status(doc.Name)
	require.NoError(t, err)
	assert.Equal(t, store.WorkflowCompleted, ws.Status)
	_, ran := ws.Attempts["s2"]
	assert.False(t, ran)
}
