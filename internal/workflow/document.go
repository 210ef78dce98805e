// Package workflow implements spec.md §4.5's Workflow Engine: document
// parsing and validation, the per-stage state machine, scheduling,
// cancellation, resume, and heartbeats, driving the Worker Supervisor.
package workflow

import (
	"time"

	"gopkg.in/yaml.v3"
)

// StageType names a stage's execution mode (spec.md §3).
type StageType string

const (
	StageWorker StageType = "worker"
	StageRalph  StageType = "ralph"
)

// OnFailure names the transition taken when a stage fails.
type OnFailure string

const (
	OnFailureFail  OnFailure = "fail"
	OnFailureRetry OnFailure = "retry"
	OnFailureSkip  OnFailure = "skip"
)

// OnComplete names the transition taken when a stage completes. A value
// of the form "goto:<stage-name>" is parsed separately (see GotoTarget).
type OnComplete string

const (
	OnCompleteStop OnComplete = "stop"
	OnCompleteNext OnComplete = "next"
)

const gotoPrefix = "goto:"

// GotoTarget extracts the stage name from an OnComplete value of the
// form "goto:<stage-name>", returning ("", false) otherwise.
func GotoTarget(oc string) (string, bool) {
	if len(oc) > len(gotoPrefix) && oc[:len(gotoPrefix)] == gotoPrefix {
		return oc[len(gotoPrefix):], true
	}
	return "", false
}

// Stage is one step of a workflow document (spec.md §3).
type Stage struct {
	Name       string            `yaml:"name"`
	Type       StageType         `yaml:"type"`
	Prompt     string            `yaml:"prompt,omitempty"`
	PromptFile string            `yaml:"prompt-file,omitempty"`
	Timeout    time.Duration     `yaml:"timeout,omitempty"`
	OnFailure  OnFailure         `yaml:"on-failure,omitempty"`
	OnComplete string            `yaml:"on-complete,omitempty"`
	MaxRetries int               `yaml:"max-retries,omitempty"`
	DonePattern string           `yaml:"done-pattern,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
	Tags       []string          `yaml:"tags,omitempty"`
}

// Document is a parsed, not-yet-validated workflow (spec.md §3).
type Document struct {
	Name             string            `yaml:"name"`
	Heartbeat        time.Duration     `yaml:"heartbeat,omitempty"`
	HeartbeatExpire  time.Duration     `yaml:"heartbeat-expire,omitempty"`
	HeartbeatMessage string            `yaml:"heartbeat-message,omitempty"`
	Env              map[string]string `yaml:"env,omitempty"`
	Tags             []string          `yaml:"tags,omitempty"`
	Stages           []Stage           `yaml:"stages"`
}

// Parse decodes a workflow document from YAML (spec.md §6: "YAML, or
// equivalently-shaped JSON" — JSON is itself valid YAML, so a JSON
// document parses identically here).
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// StageByName returns the stage named name, or nil.
func (d *Document) StageByName(name string) *Stage {
	for i := range d.Stages {
		if d.Stages[i].Name == name {
			return &d.Stages[i]
		}
	}
	return nil
}
