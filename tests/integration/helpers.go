package integration

import (
	"time"

	"relay/internal/agentlog"
	"relay/internal/logger"
)

const (
	containerStartupTimeout = 60
	timestampDelay          = 10 * time.Millisecond
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestEntry(sessionID, agentType, messageType string, offset int) *agentlog.LogEntry {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return &agentlog.LogEntry{
		SessionID:   sessionID,
		MessageID:   agentType + "-" + sessionID + "-" + messageType,
		AgentType:   agentType,
		AgentName:   agentType + " agent",
		MessageType: messageType,
		Content:     messageType + " message",
		Timestamp:   base.Add(time.Duration(offset) * time.Second),
	}
}
