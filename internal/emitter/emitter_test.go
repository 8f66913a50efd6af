package emitter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/logger"
	"relay/pkg/models"
)

type capturePublisher struct {
	envelopes []models.Envelope
	keys      []string
	err       error
}

func (p *capturePublisher) Publish(ctx context.Context, topic string, env models.Envelope, routingKey string) error {
	if p.err != nil {
		return p.err
	}
	p.envelopes = append(p.envelopes, env)
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func newTestEmitter(p *capturePublisher) *Emitter {
	return New(p, "s1", "writer", "Writer Agent", "docs", logger.NopLogger())
}

func TestEmitter_ProgressEnvelope(t *testing.T) {
	pub := &capturePublisher{}
	e := newTestEmitter(pub)
	e.SetStage("drafting")

	e.Progress(context.Background(), "50%")

	require.Len(t, pub.envelopes, 1)
	env := pub.envelopes[0]
	assert.Equal(t, models.MessageTypeProgress, env.Type)
	assert.Equal(t, "50%", env.Content)
	assert.Equal(t, models.RegionProgress, env.Region)
	assert.Equal(t, "s1", env.SessionID)
	assert.Equal(t, "writer", env.AgentType)
	assert.Equal(t, "Writer Agent", env.AgentName)
	assert.Equal(t, "drafting", env.ProcessingStage)
	assert.False(t, env.IsFinal)
	assert.NotEmpty(t, env.ID)
	assert.False(t, env.Timestamp.IsZero())
	assert.Equal(t, "writer-s1", pub.keys[0])
}

func TestEmitter_MetricsEnvelopeCarriesResult(t *testing.T) {
	pub := &capturePublisher{}
	e := newTestEmitter(pub)

	e.Metrics(context.Background(), "generation finished", map[string]interface{}{
		"generation_time": 2.5,
	})

	require.Len(t, pub.envelopes, 1)
	env := pub.envelopes[0]
	assert.Equal(t, models.MessageTypeMetrics, env.Type)
	assert.Equal(t, 2.5, env.Result["generation_time"])
	assert.False(t, env.IsFinal)
}

func TestEmitter_ErrorBumpsCounterAndSetsErrorField(t *testing.T) {
	pub := &capturePublisher{}
	e := newTestEmitter(pub)

	e.Error(context.Background(), "generation failed", errors.New("backend timeout"))

	require.Len(t, pub.envelopes, 1)
	assert.Equal(t, models.MessageTypeError, pub.envelopes[0].Type)
	assert.Equal(t, "backend timeout", pub.envelopes[0].Error)

	stats := e.Stats()
	assert.Equal(t, 1, stats.MessagesSent)
	assert.Equal(t, 1, stats.ErrorCount)
}

func TestEmitter_ErrorWithoutCauseUsesContent(t *testing.T) {
	pub := &capturePublisher{}
	e := newTestEmitter(pub)

	e.Error(context.Background(), "generation failed", nil)

	require.Len(t, pub.envelopes, 1)
	assert.Equal(t, "generation failed", pub.envelopes[0].Error)
}

func TestEmitter_CompleteMarksFinal(t *testing.T) {
	pub := &capturePublisher{}
	e := newTestEmitter(pub)

	e.Complete(context.Background(), "done", map[string]interface{}{"pages": 3})

	require.Len(t, pub.envelopes, 1)
	env := pub.envelopes[0]
	assert.Equal(t, models.MessageTypeCompletion, env.Type)
	assert.True(t, env.IsFinal)
	assert.Equal(t, 3, env.Result["pages"])
}

func TestEmitter_DropsEnvelopesAfterFinal(t *testing.T) {
	pub := &capturePublisher{}
	e := newTestEmitter(pub)

	e.Complete(context.Background(), "done", nil)
	e.Progress(context.Background(), "late update")
	e.Info(context.Background(), "another late one")

	assert.Len(t, pub.envelopes, 1)
	assert.Equal(t, 1, e.Stats().MessagesSent)
}

func TestEmitter_PublishFailureIsSwallowed(t *testing.T) {
	pub := &capturePublisher{err: errors.New("no subscribers")}
	e := newTestEmitter(pub)

	require.NotPanics(t, func() {
		e.Info(context.Background(), "fire and forget")
	})
	assert.Equal(t, 1, e.Stats().MessagesSent)
}

func TestEmitter_MessageCountAcrossTypes(t *testing.T) {
	pub := &capturePublisher{}
	e := newTestEmitter(pub)

	e.Progress(context.Background(), "working")
	e.Warning(context.Background(), "careful")
	e.Success(context.Background(), "stage ok", nil)

	stats := e.Stats()
	assert.Equal(t, 3, stats.MessagesSent)
	assert.Equal(t, 0, stats.ErrorCount)
}
