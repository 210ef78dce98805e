package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDoc() *Document {
	return &Document{
		Name: "deploy",
		Stages: []Stage{
			{Name: "stage1", Type: StageWorker, Prompt: "do the thing"},
		},
	}
}

func TestValidateAcceptsMinimalDocument(t *testing.T) {
	require.NoError(t, Validate(validDoc()))
}

func TestValidateRejectsEmptyName(t *testing.T) {
	doc := validDoc()
	doc.Name = ""
	require.Error(t, Validate(doc))
}

func TestValidateRejectsNoStages(t *testing.T) {
	doc := validDoc()
	doc.Stages = nil
	require.Error(t, Validate(doc))
}

func TestValidateRejectsDuplicateStageNames(t *testing.T) {
	doc := validDoc()
	doc.Stages = append(doc.Stages, Stage{Name: "stage1", Type: StageWorker, Prompt: "again"})
	err := Validate(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateRalphRequiresMaxRetries(t *testing.T) {
	doc := validDoc()
	doc.Stages[0].Type = StageRalph
	doc.Stages[0].MaxRetries = 0
	err := Validate(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max-retries")
}

func TestValidateRalphAcceptsPositiveMaxRetries(t *testing.T) {
	doc := validDoc()
	doc.Stages[0].Type = StageRalph
	doc.Stages[0].MaxRetries = 3
	require.NoError(t, Validate(doc))
}

func TestValidateRejectsBothPromptAndPromptFile(t *testing.T) {
	doc := validDoc()
	doc.Stages[0].PromptFile = "/tmp/prompt.txt"
	err := Validate(doc)
	require.Error(t, err)
}

func TestValidateRejectsNeitherPromptNorPromptFile(t *testing.T) {
	doc := validDoc()
	doc.Stages[0].Prompt = ""
	err := Validate(doc)
	require.Error(t, err)
}

func TestValidateMissingPromptFileIsWarningNotError(t *testing.T) {
	doc := validDoc()
	doc.Stages[0].Prompt = ""
	doc.Stages[0].PromptFile = "/nonexistent/path/prompt.txt"
	require.NoError(t, Validate(doc))
}

func TestValidateRejectsInvalidOnFailure(t *testing.T) {
	doc := validDoc()
	doc.Stages[0].OnFailure = "explode"
	require.Error(t, Validate(doc))
}

func TestValidateRejectsInvalidOnComplete(t *testing.T) {
	doc := validDoc()
	doc.Stages[0].OnComplete = "teleport"
	require.Error(t, Validate(doc))
}

func TestValidateGotoMustResolveToDeclaredStage(t *testing.T) {
	doc := validDoc()
	doc.Stages[0].OnComplete = "goto:nowhere"
	err := Validate(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goto")
}

func TestValidateGotoResolvesToDeclaredStage(t *testing.T) {
	doc := validDoc()
	doc.Stages[0].OnComplete = "goto:stage1"
	require.NoError(t, Validate(doc))
}
