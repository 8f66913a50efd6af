package emitter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Timer brackets operations for local instrumentation. It never touches the
// bus; agents fold the measured durations into envelope payloads themselves.
type Timer struct {
	mu      sync.Mutex
	pending map[string]timerEntry
}

type timerEntry struct {
	operation string
	startedAt time.Time
}

type TimerResult struct {
	Operation       string  `json:"operation"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func NewTimer() *Timer {
	return &Timer{
		pending: make(map[string]timerEntry),
	}
}

func (t *Timer) Start(operation string) string {
	token := fmt.Sprintf("%s-%s", operation, strings.Split(uuid.New().String(), "-")[0])

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[token] = timerEntry{
		operation: operation,
		startedAt: time.Now(),
	}
	return token
}

func (t *Timer) Stop(token string) (TimerResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.pending[token]
	if !ok {
		return TimerResult{}, fmt.Errorf("unknown timer token: %s", token)
	}
	delete(t.pending, token)

	return TimerResult{
		Operation:       entry.operation,
		DurationSeconds: time.Since(entry.startedAt).Seconds(),
	}, nil
}
