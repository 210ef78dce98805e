package store

import (
	"path/filepath"
	"time"
)

// WorkflowStatus enumerates runtime workflow status values (spec.md §3).
type WorkflowStatus string

const (
	WorkflowScheduled WorkflowStatus = "scheduled"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
	WorkflowCancelled WorkflowStatus = "cancelled"
)

// HistoryEntry records one stage transition (spec.md §6 workflow state JSON).
type HistoryEntry struct {
	ID     string    `json:"id"`
	Stage  string    `json:"stage"`
	Event  string    `json:"event"`
	At     time.Time `json:"at"`
	Detail string    `json:"detail,omitempty"`
}

// WorkflowState is the persisted runtime state of a workflow run.
type WorkflowState struct {
	Name         string         `json:"name"`
	Status       WorkflowStatus `json:"status"`
	ScheduledFor *time.Time     `json:"scheduled_for"`
	CurrentStage int            `json:"current_stage"`
	Attempts     map[string]int `json:"attempts"`
	History      []HistoryEntry `json:"history"`
	ActiveWorker string         `json:"active_worker,omitempty"`
}

// WorkflowDir returns the per-workflow directory.
func WorkflowDir(stateDir, name string) string {
	return filepath.Join(stateDir, "workflows", name)
}

// WorkflowStatePath returns the path to a workflow's state document.
func WorkflowStatePath(stateDir, name string) string {
	return filepath.Join(WorkflowDir(stateDir, name), "state.json")
}

// WorkflowLogDir returns the per-workflow, per-stage capture directory.
func WorkflowLogDir(stateDir, name string) string {
	return filepath.Join(WorkflowDir(stateDir, name), "logs")
}

// LoadWorkflowState loads a workflow's state; returns (nil, nil) if absent.
func LoadWorkflowState(stateDir, name string) (*WorkflowState, error) {
	path := WorkflowStatePath(stateDir, name)
	var ws WorkflowState
	if err := Load(path, &ws); err != nil {
		return nil, err
	}
	if ws.Name == "" {
		return nil, nil
	}
	return &ws, nil
}

// SaveWorkflowState atomically persists a workflow's state.
func SaveWorkflowState(stateDir string, ws *WorkflowState) error {
	return Save(WorkflowStatePath(stateDir, ws.Name), ws)
}
