package workflow

import (
	"fmt"
	"os"

	"github.com/mtomcal/swarm-sub001/internal/diag"
	"github.com/mtomcal/swarm-sub001/internal/swarmerr"
)

// Validate checks a document against spec.md §4.5's five validation
// rules, returning the first violation as a field-tagged InvalidInput
// error. Non-existence of a prompt-file is a diagnostic warning only
// (packaging flexibility), never a validation error.
func Validate(doc *Document) error {
	if doc.Name == "" {
		return swarmerr.Field("name", "workflow name must not be empty")
	}
	if len(doc.Stages) == 0 {
		return swarmerr.Field("stages", "workflow must declare at least one stage")
	}

	seen := make(map[string]bool, len(doc.Stages))
	for _, st := range doc.Stages {
		if st.Name == "" {
			return swarmerr.Field("stages[].name", "stage name must not be empty")
		}
		if seen[st.Name] {
			return swarmerr.Field("stages[].name", fmt.Sprintf("duplicate stage name %q", st.Name))
		}
		seen[st.Name] = true
	}

	for _, st := range doc.Stages {
		if err := validateStage(st); err != nil {
			return err
		}
	}

	for _, st := range doc.Stages {
		if target, ok := GotoTarget(st.OnComplete); ok {
			if doc.StageByName(target) == nil {
				return swarmerr.Field("stages[].on-complete", fmt.Sprintf("stage %q: goto target %q is not a declared stage", st.Name, target))
			}
		}
	}

	return nil
}

func validateStage(st Stage) error {
	switch st.Type {
	case StageWorker, StageRalph:
	default:
		return swarmerr.Field("stages[].type", fmt.Sprintf("stage %q: type must be worker or ralph, got %q", st.Name, st.Type))
	}

	if st.Type == StageRalph && st.MaxRetries < 1 {
		return swarmerr.Field("stages[].max-retries", fmt.Sprintf("stage %q: ralph stages require max-retries >= 1", st.Name))
	}

	hasPrompt := st.Prompt != ""
	hasPromptFile := st.PromptFile != ""
	if hasPrompt == hasPromptFile {
		return swarmerr.Field("stages[].prompt", fmt.Sprintf("stage %q: exactly one of prompt or prompt-file is required", st.Name))
	}
	if hasPromptFile {
		if _, err := os.Stat(st.PromptFile); err != nil {
			diag.Warn("prompt-file not found", map[string]any{"stage": st.Name, "path": st.PromptFile})
		}
	}

	switch st.OnFailure {
	case "", OnFailureFail, OnFailureRetry, OnFailureSkip:
	default:
		return swarmerr.Field("stages[].on-failure", fmt.Sprintf("stage %q: invalid on-failure %q", st.Name, st.OnFailure))
	}

	if _, isGoto := GotoTarget(st.OnComplete); !isGoto {
		switch OnComplete(st.OnComplete) {
		case "", OnCompleteStop, OnCompleteNext:
		default:
			return swarmerr.Field("stages[].on-complete", fmt.Sprintf("stage %q: invalid on-complete %q", st.Name, st.OnComplete))
		}
	}

	return nil
}

// EffectiveOnFailure returns st.OnFailure, defaulting to fail.
func EffectiveOnFailure(st Stage) OnFailure {
	if st.OnFailure == "" {
		return OnFailureFail
	}
	return st.OnFailure
}

// EffectiveOnComplete returns st.OnComplete, defaulting to next.
func EffectiveOnComplete(st Stage) string {
	if st.OnComplete == "" {
		return string(OnCompleteNext)
	}
	return st.OnComplete
}
