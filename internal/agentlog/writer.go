package agentlog

import (
	"context"

	"relay/internal/bus"
	"relay/internal/constants"
	"relay/internal/logger"
	"relay/pkg/metrics"
	"relay/pkg/models"
)

// Writer is the bus subscriber that persists every envelope. A failed insert
// is reported and counted but never retried; the envelope may be lost from
// the durable log while still having reached in-memory subscribers.
type Writer struct {
	repository Repository
	logger     logger.Logger
}

func NewWriter(repository Repository, log logger.Logger) *Writer {
	return &Writer{
		repository: repository,
		logger:     log,
	}
}

// Attach subscribes the writer to the agent message topic.
func (w *Writer) Attach(subscriber bus.Subscriber) {
	subscriber.Subscribe(constants.TopicAgentMessages, "log-writer", w.Handle)
}

func (w *Writer) Handle(ctx context.Context, env models.Envelope, routingKey string) error {
	entry := buildEntry(env)

	if env.Type != "" && env.Type != entry.MessageType {
		metrics.ClassifierDivergenceTotal.WithLabelValues(env.Type, entry.MessageType).Inc()
		w.logger.DebugwCtx(ctx, "Derived message type differs from declared",
			"message_id", env.ID,
			"declared", env.Type,
			"derived", entry.MessageType,
		)
	}

	if err := w.repository.Insert(ctx, &entry); err != nil {
		metrics.LogWriteFailuresTotal.Inc()
		w.logger.ErrorwCtx(ctx, "Failed to persist envelope",
			"message_id", env.ID,
			"session_id", env.SessionID,
			"routing_key", routingKey,
			"error", err,
		)
		return err
	}

	metrics.LogEntriesWrittenTotal.WithLabelValues(entry.MessageType).Inc()
	return nil
}

func buildEntry(env models.Envelope) LogEntry {
	entry := LogEntry{
		SessionID:       env.SessionID,
		MessageID:       env.ID,
		AgentType:       env.AgentType,
		AgentName:       env.AgentName,
		MessageType:     Classify(env),
		Content:         env.Content,
		Region:          env.Region,
		Source:          env.Source,
		IsFinal:         env.IsFinal,
		ResultData:      env.Result,
		ErrorInfo:       env.Error,
		ProcessingStage: env.ProcessingStage,
		Timestamp:       env.Timestamp,
	}

	if entry.MessageType == models.MessageTypeMetrics {
		entry.MetricsData = env.Result
	}

	return entry
}
