package agentlog

import (
	"time"
)

// LogEntry is one persisted row per envelope. Entries are append-only and
// never mutated after insertion; ordered by timestamp they form the
// canonical timeline of a pipeline run.
type LogEntry struct {
	ID              int64                  `json:"id"`
	SessionID       string                 `json:"session_id"`
	MessageID       string                 `json:"message_id"`
	AgentType       string                 `json:"agent_type"`
	AgentName       string                 `json:"agent_name"`
	MessageType     string                 `json:"message_type"`
	Content         string                 `json:"content"`
	Region          string                 `json:"region,omitempty"`
	Source          string                 `json:"source,omitempty"`
	IsFinal         bool                   `json:"is_final"`
	ResultData      map[string]interface{} `json:"result_data,omitempty"`
	ErrorInfo       string                 `json:"error_info,omitempty"`
	MetricsData     map[string]interface{} `json:"metrics_data,omitempty"`
	ProcessingStage string                 `json:"processing_stage,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
	CreatedAt       time.Time              `json:"created_at"`
}

// ListFilter narrows a per-session log query.
type ListFilter struct {
	AgentType   string
	MessageType string
	Limit       int
}

// AgentActivity is the per-agent slice of a session summary.
type AgentActivity struct {
	AgentName    string    `json:"agent_name"`
	MessageCount int       `json:"message_count"`
	FirstMessage time.Time `json:"first_message"`
	LastMessage  time.Time `json:"last_message"`
}

// ErrorEvent records one error-typed entry for the summary's error list.
type ErrorEvent struct {
	AgentType string    `json:"agent_type"`
	AgentName string    `json:"agent_name"`
	Content   string    `json:"content"`
	ErrorInfo string    `json:"error_info,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// KeyEvent is a success, completion or final entry worth surfacing.
type KeyEvent struct {
	AgentType   string    `json:"agent_type"`
	MessageType string    `json:"message_type"`
	Content     string    `json:"content"`
	IsFinal     bool      `json:"is_final"`
	Timestamp   time.Time `json:"timestamp"`
}

// KeyMetrics is the derived numeric block of a session summary.
type KeyMetrics struct {
	ErrorCount      int     `json:"error_count"`
	CompletionCount int     `json:"completion_count"`
	SuccessRate     float64 `json:"success_rate"`
	ProcessingTime  float64 `json:"processing_time"`
}

// Summary is derived from the log, never independently authoritative: it is
// always reconstructable by re-running the aggregator over the entries.
type Summary struct {
	SessionID        string                   `json:"session_id"`
	TotalMessages    int                      `json:"total_messages"`
	MessageTypes     map[string]int           `json:"message_types"`
	AgentActivity    map[string]AgentActivity `json:"agent_activity"`
	ProcessingStages []string                 `json:"processing_stages"`
	Errors           []ErrorEvent             `json:"errors"`
	KeyEvents        []KeyEvent               `json:"key_events"`
	KeyMetrics       KeyMetrics               `json:"key_metrics"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

// TimelineSegment is one contiguous run of entries sharing a processing
// stage. A new segment starts whenever the stage label changes.
type TimelineSegment struct {
	Stage     string     `json:"stage"`
	AgentType string     `json:"agent_type"`
	StartedAt time.Time  `json:"started_at"`
	Entries   []LogEntry `json:"entries"`
}

// AgentPerformance is the cross-session per-agent report.
type AgentPerformance struct {
	AgentType      string    `json:"agent_type"`
	SessionsServed int       `json:"sessions_served"`
	TotalMessages  int       `json:"total_messages"`
	ErrorRate      float64   `json:"error_rate"`
	SuccessRate    float64   `json:"success_rate"`
	DistinctStages int       `json:"distinct_stages"`
	FirstActivity  time.Time `json:"first_activity"`
	LastActivity   time.Time `json:"last_activity"`
}
