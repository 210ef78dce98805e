package worker

import (
	"time"

	"github.com/mtomcal/swarm-sub001/internal/backend"
	"github.com/mtomcal/swarm-sub001/internal/store"
)

// Status mirrors store.WorkerRecord's status field as a typed value for
// call sites that branch on it (spec.md §4.4 status exit-code contract).
type Status string

const (
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusNotFound Status = "not-found"
)

// SpawnOptions carries spawn's input (spec.md §4.4).
type SpawnOptions struct {
	Name          string
	Argv          []string
	Env           map[string]string
	Cwd           string
	Tags          []string
	Backend       backend.Kind
	KeepStdin     bool
	ReadyWait     bool
	ReadyTimeout  time.Duration
	ReadyInterval time.Duration
}

// Filter narrows list() to records matching all non-empty fields.
type Filter struct {
	Tag    string
	Status Status
}

func matches(rec store.WorkerRecord, f Filter) bool {
	if f.Tag != "" {
		found := false
		for _, t := range rec.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Status != "" && Status(rec.Status) != f.Status {
		return false
	}
	return true
}
