package agentlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/pkg/models"
)

func entryAt(offset int, agentType, msgType, stage string) LogEntry {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return LogEntry{
		SessionID:       "s1",
		AgentType:       agentType,
		AgentName:       agentType + " agent",
		MessageType:     msgType,
		Content:         msgType + " message",
		ProcessingStage: stage,
		Timestamp:       base.Add(time.Duration(offset) * time.Second),
	}
}

func TestSummarize_EmptySession(t *testing.T) {
	summary := Summarize("s1", nil)

	assert.Equal(t, 0, summary.TotalMessages)
	assert.Equal(t, 0.0, summary.KeyMetrics.SuccessRate)
	assert.Empty(t, summary.Errors)
	assert.Empty(t, summary.KeyEvents)
}

func TestSummarize_SuccessRateLaw(t *testing.T) {
	entries := []LogEntry{
		entryAt(0, "writer", models.MessageTypeInfo, ""),
		entryAt(1, "writer", models.MessageTypeError, ""),
		entryAt(2, "writer", models.MessageTypeInfo, ""),
		entryAt(3, "writer", models.MessageTypeError, ""),
	}

	summary := Summarize("s1", entries)
	assert.Equal(t, 2, summary.KeyMetrics.ErrorCount)
	// (4-2)/4*100
	assert.Equal(t, 50.0, summary.KeyMetrics.SuccessRate)
}

func TestSummarize_ProgressThenCompletionScenario(t *testing.T) {
	entries := []LogEntry{
		entryAt(0, "writer", models.MessageTypeProgress, "drafting"),
		func() LogEntry {
			e := entryAt(1, "writer", models.MessageTypeCompletion, "drafting")
			e.IsFinal = true
			e.Content = "done"
			return e
		}(),
	}

	summary := Summarize("s1", entries)

	assert.Equal(t, 2, summary.TotalMessages)
	assert.Equal(t, 1, summary.KeyMetrics.CompletionCount)
	assert.Equal(t, 0, summary.KeyMetrics.ErrorCount)
	assert.Equal(t, 100.0, summary.KeyMetrics.SuccessRate)
	require.Len(t, summary.KeyEvents, 1)
	assert.Equal(t, "done", summary.KeyEvents[0].Content)
	assert.True(t, summary.KeyEvents[0].IsFinal)
}

func TestSummarize_AgentActivity(t *testing.T) {
	entries := []LogEntry{
		entryAt(0, "writer", models.MessageTypeInfo, ""),
		entryAt(5, "reviewer", models.MessageTypeInfo, ""),
		entryAt(10, "writer", models.MessageTypeInfo, ""),
	}

	summary := Summarize("s1", entries)

	require.Len(t, summary.AgentActivity, 2)
	writer := summary.AgentActivity["writer"]
	assert.Equal(t, 2, writer.MessageCount)
	assert.Equal(t, "writer agent", writer.AgentName)
	assert.Equal(t, entries[0].Timestamp, writer.FirstMessage)
	assert.Equal(t, entries[2].Timestamp, writer.LastMessage)
}

func TestSummarize_DistinctStagesInOrder(t *testing.T) {
	entries := []LogEntry{
		entryAt(0, "writer", models.MessageTypeInfo, "outline"),
		entryAt(1, "writer", models.MessageTypeInfo, "drafting"),
		entryAt(2, "writer", models.MessageTypeInfo, "outline"),
		entryAt(3, "writer", models.MessageTypeInfo, ""),
		entryAt(4, "writer", models.MessageTypeInfo, "review"),
	}

	summary := Summarize("s1", entries)
	assert.Equal(t, []string{"outline", "drafting", "review"}, summary.ProcessingStages)
}

func TestSummarize_ErrorList(t *testing.T) {
	failing := entryAt(1, "writer", models.MessageTypeError, "")
	failing.Content = "render failed"
	failing.ErrorInfo = "backend timeout"

	summary := Summarize("s1", []LogEntry{
		entryAt(0, "writer", models.MessageTypeInfo, ""),
		failing,
	})

	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "render failed", summary.Errors[0].Content)
	assert.Equal(t, "backend timeout", summary.Errors[0].ErrorInfo)
}

func TestSummarize_ProcessingTimeSummedDefensively(t *testing.T) {
	withTime := entryAt(0, "writer", models.MessageTypeMetrics, "")
	withTime.MetricsData = map[string]interface{}{"processing_time": 1.5}

	withIntTime := entryAt(1, "writer", models.MessageTypeMetrics, "")
	withIntTime.MetricsData = map[string]interface{}{"processing_time": 2}

	garbage := entryAt(2, "writer", models.MessageTypeMetrics, "")
	garbage.MetricsData = map[string]interface{}{"processing_time": "not a number"}

	summary := Summarize("s1", []LogEntry{withTime, withIntTime, garbage})
	assert.Equal(t, 3.5, summary.KeyMetrics.ProcessingTime)
}

func TestBuildTimeline_Segmentation(t *testing.T) {
	entries := []LogEntry{
		entryAt(0, "writer", models.MessageTypeInfo, "A"),
		entryAt(1, "writer", models.MessageTypeInfo, "A"),
		entryAt(2, "reviewer", models.MessageTypeInfo, "B"),
		entryAt(3, "reviewer", models.MessageTypeInfo, "B"),
		entryAt(4, "reviewer", models.MessageTypeInfo, "B"),
		entryAt(5, "writer", models.MessageTypeInfo, "A"),
	}

	timeline := BuildTimeline(entries)

	require.Len(t, timeline, 3)
	assert.Equal(t, "A", timeline[0].Stage)
	assert.Equal(t, "B", timeline[1].Stage)
	assert.Equal(t, "A", timeline[2].Stage)
	assert.Len(t, timeline[0].Entries, 2)
	assert.Len(t, timeline[1].Entries, 3)
	assert.Len(t, timeline[2].Entries, 1)

	assert.Equal(t, entries[0].Timestamp, timeline[0].StartedAt)
	assert.Equal(t, entries[2].Timestamp, timeline[1].StartedAt)
	assert.Equal(t, "reviewer", timeline[1].AgentType)
}

func TestBuildTimeline_Empty(t *testing.T) {
	assert.Empty(t, BuildTimeline(nil))
}
