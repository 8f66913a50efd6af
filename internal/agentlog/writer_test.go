package agentlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/logger"
	"relay/pkg/models"
)

type fakeRepository struct {
	Repository
	inserted  []LogEntry
	insertErr error
}

func (f *fakeRepository) Insert(ctx context.Context, entry *LogEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	entry.ID = int64(len(f.inserted) + 1)
	entry.CreatedAt = time.Now()
	f.inserted = append(f.inserted, *entry)
	return nil
}

func TestWriter_PersistsClassifiedEnvelope(t *testing.T) {
	repo := &fakeRepository{}
	w := NewWriter(repo, logger.NopLogger())

	env := models.Envelope{
		ID:              "writer-abc123",
		Type:            models.MessageTypeInfo,
		Source:          "Writer Agent",
		Content:         "50%",
		SessionID:       "s1",
		AgentType:       "writer",
		AgentName:       "Writer Agent",
		ProcessingStage: "drafting",
		Timestamp:       time.Now().UTC(),
	}

	err := w.Handle(context.Background(), env, "writer-s1")
	require.NoError(t, err)

	require.Len(t, repo.inserted, 1)
	entry := repo.inserted[0]
	assert.Equal(t, "writer-abc123", entry.MessageID)
	// Declared info, but the content heuristic derives progress.
	assert.Equal(t, models.MessageTypeProgress, entry.MessageType)
	assert.Equal(t, "drafting", entry.ProcessingStage)
	assert.Equal(t, "s1", entry.SessionID)
}

func TestWriter_MetricsPayloadCopiedToMetricsData(t *testing.T) {
	repo := &fakeRepository{}
	w := NewWriter(repo, logger.NopLogger())

	env := models.Envelope{
		ID:        "writer-abc123",
		Content:   "run stats",
		SessionID: "s1",
		AgentType: "writer",
		Result:    map[string]interface{}{"processing_time": 2.5},
		Timestamp: time.Now().UTC(),
	}

	require.NoError(t, w.Handle(context.Background(), env, "writer-s1"))

	require.Len(t, repo.inserted, 1)
	assert.Equal(t, models.MessageTypeMetrics, repo.inserted[0].MessageType)
	assert.Equal(t, 2.5, repo.inserted[0].MetricsData["processing_time"])
}

func TestWriter_InsertFailureIsReturnedNotRetried(t *testing.T) {
	repo := &fakeRepository{insertErr: errors.New("connection refused")}
	w := NewWriter(repo, logger.NopLogger())

	env := models.Envelope{ID: "m1", SessionID: "s1", AgentType: "writer", Timestamp: time.Now()}

	err := w.Handle(context.Background(), env, "writer-s1")
	assert.Error(t, err)
	assert.Empty(t, repo.inserted)
}
