package session

import (
	"time"

	"relay/pkg/models"
)

type Status string

const (
	StatusCreated    Status = models.SessionStatusCreated
	StatusProcessing Status = models.SessionStatusProcessing
	StatusCompleted  Status = models.SessionStatusCompleted
	StatusFailed     Status = models.SessionStatusFailed
)

// allowedTransitions is the lifecycle table. Transitions outside it are
// still applied (legacy producers depend on that) but logged and counted.
var allowedTransitions = map[Status][]Status{
	StatusCreated:    {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

func transitionAllowed(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusCreated, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

type Session struct {
	ID           string                 `json:"session_id"`
	Status       Status                 `json:"status"`
	InputType    string                 `json:"input_type"`
	Progress     float64                `json:"progress"`
	Config       map[string]interface{} `json:"config,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Result       map[string]interface{} `json:"result,omitempty"`
	Summary      map[string]interface{} `json:"summary,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Clone returns a deep-enough copy for handing out of the registry: map
// fields are copied one level so callers cannot mutate registry state.
func (s *Session) Clone() *Session {
	out := *s
	out.Config = copyMap(s.Config)
	out.Metadata = copyMap(s.Metadata)
	out.Result = copyMap(s.Result)
	out.Summary = copyMap(s.Summary)
	return &out
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type CreateSessionRequest struct {
	SessionID string                 `json:"session_id"`
	InputType string                 `json:"input_type" binding:"required"`
	Config    map[string]interface{} `json:"config"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type UpdateStatusRequest struct {
	Status       Status                 `json:"status" binding:"required"`
	ErrorMessage string                 `json:"error_message"`
	Result       map[string]interface{} `json:"result"`
}

type UpdateProgressRequest struct {
	Progress float64 `json:"progress"`
}

// ExportedSession is the serialized form of a session plus its processing
// result. Import reconstructs the original record exactly, so export and
// import are inverses for any previously exported session.
type ExportedSession struct {
	Version  int      `json:"version"`
	Session  *Session `json:"session"`
	Exported time.Time `json:"exported_at"`
}

type Statistics struct {
	Total     int            `json:"total"`
	ByStatus  map[Status]int `json:"by_status"`
	Active    int            `json:"active"`
	Completed int            `json:"completed"`
	Failed    int            `json:"failed"`
}
