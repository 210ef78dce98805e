package store

import (
	"path/filepath"
	"time"
)

// TmuxHandle identifies a session-backend worker (spec.md §3 backend binding).
type TmuxHandle struct {
	Socket      string `json:"socket"`
	Session     string `json:"session"`
	Window      string `json:"window"`
	TmuxCommand string `json:"tmux_command,omitempty"`
}

// WorkerRecord is the persisted shape of a worker (spec.md §6 registry JSON).
type WorkerRecord struct {
	Name      string            `json:"name"`
	Status    string            `json:"status"` // "running" | "stopped"
	Cmd       []string          `json:"cmd"`
	Started   time.Time         `json:"started"`
	Cwd       string            `json:"cwd"`
	Env       map[string]string `json:"env"`
	Tags      []string          `json:"tags"`
	Tmux      *TmuxHandle       `json:"tmux"`
	Worktree  *string           `json:"worktree"`
	PID       *int              `json:"pid"`
	ExitCode  *int              `json:"exit_code,omitempty"`
	StdinOpen bool              `json:"stdin_open,omitempty"`
}

// Registry is the top-level worker registry document.
type Registry struct {
	Workers []WorkerRecord `json:"workers"`
}

// RegistryPath returns the path to the global worker registry file.
func RegistryPath(stateDir string) string {
	return filepath.Join(stateDir, "state.json")
}

// WorkerLogPath returns the direct-backend log file path for a worker.
func WorkerLogPath(stateDir, name string) string {
	return filepath.Join(stateDir, "logs", name+".log")
}

// LoadRegistry loads the registry, defaulting to an empty one.
func LoadRegistry(stateDir string) (*Registry, error) {
	reg := &Registry{Workers: []WorkerRecord{}}
	if err := Load(RegistryPath(stateDir), reg); err != nil {
		return nil, err
	}
	if reg.Workers == nil {
		reg.Workers = []WorkerRecord{}
	}
	return reg, nil
}

// SaveRegistry atomically persists the registry.
func SaveRegistry(stateDir string, reg *Registry) error {
	return Save(RegistryPath(stateDir), reg)
}

// Find returns a pointer to the record named name, or nil.
func (r *Registry) Find(name string) *WorkerRecord {
	for i := range r.Workers {
		if r.Workers[i].Name == name {
			return &r.Workers[i]
		}
	}
	return nil
}

// Remove deletes the record named name. Returns true if one was removed.
func (r *Registry) Remove(name string) bool {
	for i := range r.Workers {
		if r.Workers[i].Name == name {
			r.Workers = append(r.Workers[:i], r.Workers[i+1:]...)
			return true
		}
	}
	return false
}

// Upsert inserts or replaces the record with the same name.
func (r *Registry) Upsert(rec WorkerRecord) {
	for i := range r.Workers {
		if r.Workers[i].Name == rec.Name {
			r.Workers[i] = rec
			return
		}
	}
	r.Workers = append(r.Workers, rec)
}
