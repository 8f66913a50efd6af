package agentlog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"relay/pkg/models"
)

func TestClassify_ErrorFieldAlwaysWins(t *testing.T) {
	// The error field outranks every other heuristic, including content
	// that looks like progress or a final completion flag.
	env := models.Envelope{
		Type:    models.MessageTypeProgress,
		Content: "50% complete",
		IsFinal: true,
		Error:   "backend timeout",
	}
	assert.Equal(t, models.MessageTypeError, Classify(env))
}

func TestClassify_CompletionByDeclaredType(t *testing.T) {
	env := models.Envelope{Type: models.MessageTypeCompletion, Content: "all sections written"}
	assert.Equal(t, models.MessageTypeCompletion, Classify(env))
}

func TestClassify_CompletionByFinalFlag(t *testing.T) {
	env := models.Envelope{Type: models.MessageTypeInfo, Content: "wrapping up", IsFinal: true}
	assert.Equal(t, models.MessageTypeCompletion, Classify(env))
}

func TestClassify_ProgressByPercentSign(t *testing.T) {
	env := models.Envelope{Content: "50%"}
	assert.Equal(t, models.MessageTypeProgress, Classify(env))
}

func TestClassify_ProgressByWording(t *testing.T) {
	env := models.Envelope{Content: "Processing chapter three"}
	assert.Equal(t, models.MessageTypeProgress, Classify(env))
}

func TestClassify_SuccessByWording(t *testing.T) {
	env := models.Envelope{Content: "Upload succeeded"}
	assert.Equal(t, models.MessageTypeSuccess, Classify(env))
}

func TestClassify_WarningByWording(t *testing.T) {
	env := models.Envelope{Content: "Warning: image resolution is low"}
	assert.Equal(t, models.MessageTypeWarning, Classify(env))
}

func TestClassify_ErrorByWording(t *testing.T) {
	env := models.Envelope{Content: "Render failed for page 2"}
	assert.Equal(t, models.MessageTypeError, Classify(env))
}

func TestClassify_MetricsByResultKeys(t *testing.T) {
	env := models.Envelope{
		Content: "stats",
		Result:  map[string]interface{}{"processing_time": 1.5},
	}
	assert.Equal(t, models.MessageTypeMetrics, Classify(env))

	env = models.Envelope{
		Content: "stats",
		Result:  map[string]interface{}{"word_count": 1200},
	}
	assert.Equal(t, models.MessageTypeMetrics, Classify(env))
}

func TestClassify_DefaultsToInfo(t *testing.T) {
	env := models.Envelope{
		Content: "starting new run",
		Result:  map[string]interface{}{"theme": "dark"},
	}
	assert.Equal(t, models.MessageTypeInfo, Classify(env))
}

func TestClassify_ContentMatchingIsCaseInsensitive(t *testing.T) {
	env := models.Envelope{Content: "PROCESSING input"}
	assert.Equal(t, models.MessageTypeProgress, Classify(env))
}
