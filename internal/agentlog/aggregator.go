package agentlog

import (
	"time"

	"relay/pkg/models"
)

// Summarize derives a session summary from its log entries. Entries are
// expected in timestamp order; the summary is a pure function of the input
// and can be recomputed at any time.
func Summarize(sessionID string, entries []LogEntry) *Summary {
	summary := &Summary{
		SessionID:     sessionID,
		TotalMessages: len(entries),
		MessageTypes:  make(map[string]int),
		AgentActivity: make(map[string]AgentActivity),
		GeneratedAt:   time.Now(),
	}

	seenStages := make(map[string]bool)

	for _, entry := range entries {
		summary.MessageTypes[entry.MessageType]++

		activity, ok := summary.AgentActivity[entry.AgentType]
		if !ok {
			activity = AgentActivity{
				AgentName:    entry.AgentName,
				FirstMessage: entry.Timestamp,
			}
		}
		activity.MessageCount++
		activity.LastMessage = entry.Timestamp
		summary.AgentActivity[entry.AgentType] = activity

		if entry.ProcessingStage != "" && !seenStages[entry.ProcessingStage] {
			seenStages[entry.ProcessingStage] = true
			summary.ProcessingStages = append(summary.ProcessingStages, entry.ProcessingStage)
		}

		if entry.MessageType == models.MessageTypeError {
			summary.Errors = append(summary.Errors, ErrorEvent{
				AgentType: entry.AgentType,
				AgentName: entry.AgentName,
				Content:   entry.Content,
				ErrorInfo: entry.ErrorInfo,
				Timestamp: entry.Timestamp,
			})
		}

		if isKeyEvent(entry) {
			summary.KeyEvents = append(summary.KeyEvents, KeyEvent{
				AgentType:   entry.AgentType,
				MessageType: entry.MessageType,
				Content:     entry.Content,
				IsFinal:     entry.IsFinal,
				Timestamp:   entry.Timestamp,
			})
		}

		if entry.MessageType == models.MessageTypeMetrics {
			summary.KeyMetrics.ProcessingTime += extractProcessingTime(entry)
		}
	}

	summary.KeyMetrics.ErrorCount = summary.MessageTypes[models.MessageTypeError]
	summary.KeyMetrics.CompletionCount = summary.MessageTypes[models.MessageTypeCompletion]
	summary.KeyMetrics.SuccessRate = successRate(len(entries), summary.KeyMetrics.ErrorCount)

	return summary
}

// BuildTimeline groups entries into contiguous stage segments: a new segment
// starts whenever the processing stage differs from the previous entry's.
func BuildTimeline(entries []LogEntry) []TimelineSegment {
	var timeline []TimelineSegment

	for _, entry := range entries {
		if len(timeline) == 0 || timeline[len(timeline)-1].Stage != entry.ProcessingStage {
			timeline = append(timeline, TimelineSegment{
				Stage:     entry.ProcessingStage,
				AgentType: entry.AgentType,
				StartedAt: entry.Timestamp,
			})
		}
		last := len(timeline) - 1
		timeline[last].Entries = append(timeline[last].Entries, entry)
	}

	return timeline
}

func isKeyEvent(entry LogEntry) bool {
	return entry.MessageType == models.MessageTypeSuccess ||
		entry.MessageType == models.MessageTypeCompletion ||
		entry.IsFinal
}

func successRate(total, errorCount int) float64 {
	if total == 0 {
		return 0
	}
	return float64(total-errorCount) / float64(total) * 100
}

// extractProcessingTime pulls a processing_time number out of whatever shape
// the publisher put in the payload. Non-numeric values are ignored.
func extractProcessingTime(entry LogEntry) float64 {
	payloads := []map[string]interface{}{entry.MetricsData, entry.ResultData}
	for _, payload := range payloads {
		raw, ok := payload["processing_time"]
		if !ok {
			continue
		}
		switch value := raw.(type) {
		case float64:
			return value
		case float32:
			return float64(value)
		case int:
			return float64(value)
		case int64:
			return float64(value)
		}
	}
	return 0
}
