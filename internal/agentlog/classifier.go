package agentlog

import (
	"strings"

	"relay/pkg/models"
)

// Marker word lists for the content heuristics. Matching is case-insensitive
// and first-match wins in the order Classify checks them.
var (
	progressMarkers = []string{"%", "progress", "processing", "working on", "step "}
	successMarkers  = []string{"success", "succeeded", "completed successfully", "done", "finished"}
	warningMarkers  = []string{"warning", "warn", "deprecated", "skipping", "skipped"}
	failureMarkers  = []string{"error", "failed", "failure", "exception", "fatal"}

	metricKeys = []string{"time", "count", "size", "duration"}
)

// Classify derives a message type from an envelope using an ordered
// first-match heuristic. The derivation is intentionally redundant with the
// publisher-declared type: some publishers only set generic types and encode
// the semantics in free text. An explicit error field always wins.
func Classify(env models.Envelope) string {
	if env.Error != "" {
		return models.MessageTypeError
	}
	if env.Type == models.MessageTypeCompletion || env.IsFinal {
		return models.MessageTypeCompletion
	}

	content := strings.ToLower(env.Content)
	if containsAny(content, progressMarkers) {
		return models.MessageTypeProgress
	}
	if containsAny(content, successMarkers) {
		return models.MessageTypeSuccess
	}
	if containsAny(content, warningMarkers) {
		return models.MessageTypeWarning
	}
	if containsAny(content, failureMarkers) {
		return models.MessageTypeError
	}

	if hasMetricKeys(env.Result) {
		return models.MessageTypeMetrics
	}

	return models.MessageTypeInfo
}

func containsAny(content string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

func hasMetricKeys(result map[string]interface{}) bool {
	if len(result) == 0 {
		return false
	}
	for key := range result {
		lowered := strings.ToLower(key)
		for _, metric := range metricKeys {
			if strings.Contains(lowered, metric) {
				return true
			}
		}
	}
	return false
}
