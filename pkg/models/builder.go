package models

import (
	"time"

	"github.com/google/uuid"
)

type EnvelopeBuilder struct {
	envelope *Envelope
}

func NewEnvelopeBuilder() *EnvelopeBuilder {
	return &EnvelopeBuilder{
		envelope: &Envelope{
			Type: MessageTypeInfo,
		},
	}
}

func (b *EnvelopeBuilder) WithID(id string) *EnvelopeBuilder {
	b.envelope.ID = id
	return b
}

func (b *EnvelopeBuilder) WithType(msgType string) *EnvelopeBuilder {
	b.envelope.Type = msgType
	return b
}

func (b *EnvelopeBuilder) WithSource(source string) *EnvelopeBuilder {
	b.envelope.Source = source
	return b
}

func (b *EnvelopeBuilder) WithContent(content string) *EnvelopeBuilder {
	b.envelope.Content = content
	return b
}

func (b *EnvelopeBuilder) WithRegion(region string) *EnvelopeBuilder {
	b.envelope.Region = region
	return b
}

func (b *EnvelopeBuilder) WithPlatform(platform string) *EnvelopeBuilder {
	b.envelope.Platform = platform
	return b
}

func (b *EnvelopeBuilder) WithSession(sessionID string) *EnvelopeBuilder {
	b.envelope.SessionID = sessionID
	return b
}

func (b *EnvelopeBuilder) WithAgent(agentType, agentName string) *EnvelopeBuilder {
	b.envelope.AgentType = agentType
	b.envelope.AgentName = agentName
	return b
}

func (b *EnvelopeBuilder) WithProcessingStage(stage string) *EnvelopeBuilder {
	b.envelope.ProcessingStage = stage
	return b
}

func (b *EnvelopeBuilder) WithResult(result map[string]interface{}) *EnvelopeBuilder {
	b.envelope.Result = result
	return b
}

func (b *EnvelopeBuilder) WithError(errText string) *EnvelopeBuilder {
	b.envelope.Error = errText
	return b
}

func (b *EnvelopeBuilder) WithFinal(isFinal bool) *EnvelopeBuilder {
	b.envelope.IsFinal = isFinal
	return b
}

func (b *EnvelopeBuilder) WithTimestamp(timestamp time.Time) *EnvelopeBuilder {
	b.envelope.Timestamp = timestamp
	return b
}

func (b *EnvelopeBuilder) Build() *Envelope {
	if b.envelope.ID == "" {
		b.envelope.ID = uuid.New().String()
	}
	if b.envelope.Timestamp.IsZero() {
		b.envelope.Timestamp = time.Now()
	}
	return b.envelope
}
