package emitter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"relay/internal/bus"
	"relay/internal/constants"
	"relay/internal/logger"
	"relay/pkg/logging"
	"relay/pkg/metrics"
	"relay/pkg/models"
)

// Emitter is the emission contract an agent uses to report progress for one
// session. Publishing is fire-and-forget: a delivery failure is logged and
// counted, never raised back to the agent.
type Emitter struct {
	bus       bus.Publisher
	logger    logger.Logger
	sessionID string
	agentType string
	agentName string
	platform  string

	mu           sync.Mutex
	stage        string
	messageCount int
	errorCount   int
	finalSent    bool
}

type Stats struct {
	MessagesSent int `json:"messages_sent"`
	ErrorCount   int `json:"error_count"`
}

func New(b bus.Publisher, sessionID, agentType, agentName, platform string, log logger.Logger) *Emitter {
	return &Emitter{
		bus:       b,
		logger:    log,
		sessionID: sessionID,
		agentType: agentType,
		agentName: agentName,
		platform:  platform,
	}
}

// SetStage labels subsequent envelopes with the pipeline phase producing them.
func (e *Emitter) SetStage(stage string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stage = stage
}

func (e *Emitter) Emit(ctx context.Context, content, msgType string, isFinal bool, result map[string]interface{}, region string) {
	e.emit(ctx, content, msgType, isFinal, result, region, "")
}

func (e *Emitter) Progress(ctx context.Context, content string) {
	e.emit(ctx, content, models.MessageTypeProgress, false, nil, models.RegionProgress, "")
}

func (e *Emitter) Success(ctx context.Context, content string, result map[string]interface{}) {
	e.emit(ctx, content, models.MessageTypeSuccess, false, result, models.RegionResult, "")
}

func (e *Emitter) Warning(ctx context.Context, content string) {
	e.emit(ctx, content, models.MessageTypeWarning, false, nil, models.RegionStatus, "")
}

func (e *Emitter) Info(ctx context.Context, content string) {
	e.emit(ctx, content, models.MessageTypeInfo, false, nil, models.RegionStatus, "")
}

// Metrics reports measurement data, typically a finished Timer result.
func (e *Emitter) Metrics(ctx context.Context, content string, result map[string]interface{}) {
	e.emit(ctx, content, models.MessageTypeMetrics, false, result, models.RegionStatus, "")
}

// Error reports a failure and bumps the emitter's error counter. The error
// text rides in the envelope's error field so the log classifier tags the
// entry regardless of content wording.
func (e *Emitter) Error(ctx context.Context, content string, cause error) {
	e.mu.Lock()
	e.errorCount++
	e.mu.Unlock()

	errText := content
	if cause != nil {
		errText = cause.Error()
	}
	e.emit(ctx, content, models.MessageTypeError, false, nil, models.RegionStatus, errText)
}

// Complete emits the closing envelope for this emitter's unit of work.
func (e *Emitter) Complete(ctx context.Context, content string, result map[string]interface{}) {
	e.emit(ctx, content, models.MessageTypeCompletion, true, result, models.RegionResult, "")
}

func (e *Emitter) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		MessagesSent: e.messageCount,
		ErrorCount:   e.errorCount,
	}
}

func (e *Emitter) emit(ctx context.Context, content, msgType string, isFinal bool, result map[string]interface{}, region, errText string) {
	e.mu.Lock()
	if e.finalSent {
		e.mu.Unlock()
		e.logger.WarnwCtx(ctx, "Dropping envelope emitted after final message",
			"agent_type", e.agentType,
			"session_id", e.sessionID,
			"type", msgType,
		)
		return
	}
	if isFinal {
		e.finalSent = true
	}
	e.messageCount++
	stage := e.stage
	e.mu.Unlock()

	env := models.NewEnvelopeBuilder().
		WithID(e.newMessageID()).
		WithType(msgType).
		WithSource(e.agentName).
		WithContent(content).
		WithRegion(region).
		WithPlatform(e.platform).
		WithSession(e.sessionID).
		WithAgent(e.agentType, e.agentName).
		WithProcessingStage(stage).
		WithResult(result).
		WithError(errText).
		WithFinal(isFinal).
		Build()

	metrics.MessagesEmittedTotal.WithLabelValues(e.agentType, msgType).Inc()

	ctx = logging.WithMessageID(ctx, env.ID)
	ctx = logging.WithSessionID(ctx, e.sessionID)

	if err := e.bus.Publish(ctx, constants.TopicAgentMessages, *env, e.key()); err != nil {
		metrics.EmitPublishFailuresTotal.WithLabelValues(e.agentType).Inc()
		e.logger.WarnwCtx(ctx, "Failed to publish envelope",
			"agent_type", e.agentType,
			"type", msgType,
			"error", err,
		)
	}
}

// key is the routing identity downstream consumers use to tell one agent's
// stream apart from another's within the same topic.
func (e *Emitter) key() string {
	return fmt.Sprintf("%s-%s", e.agentType, e.sessionID)
}

func (e *Emitter) newMessageID() string {
	return fmt.Sprintf("%s-%s", e.agentType, strings.Split(uuid.New().String(), "-")[0])
}
