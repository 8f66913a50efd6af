package models

import "time"

type Envelope struct {
	ID              string                 `json:"message_id"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Content         string                 `json:"content"`
	Region          string                 `json:"region,omitempty"`
	Platform        string                 `json:"platform,omitempty"`
	IsFinal         bool                   `json:"is_final"`
	Result          map[string]interface{} `json:"result,omitempty"` // Structured payload, opaque to the bus
	Error           string                 `json:"error,omitempty"`
	SessionID       string                 `json:"session_id"`
	AgentType       string                 `json:"agent_type"`
	AgentName       string                 `json:"agent_name"`
	ProcessingStage string                 `json:"processing_stage,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

func (e *Envelope) GetResultField(name string) (interface{}, bool) {
	if e.Result == nil {
		return nil, false
	}

	value, ok := e.Result[name]
	return value, ok
}

func (e *Envelope) SetResultField(name string, value interface{}) {
	if e.Result == nil {
		e.Result = make(map[string]interface{})
	}

	e.Result[name] = value
}
