package collector

import (
	"context"
	"sync"
	"time"

	"relay/internal/bus"
	"relay/internal/constants"
	"relay/pkg/models"
)

// Collector accumulates the results a pipeline run produces across agents.
// Text appended by the same agent in quick bursts is coalesced: the caller
// drains a buffer only once the flush interval has elapsed for that agent,
// so a chatty generator produces one UI update instead of dozens.
type Collector struct {
	mu            sync.Mutex
	flushInterval time.Duration

	results  map[string]interface{}
	items    []Item
	metadata map[string]interface{}

	buffers   map[string]string
	lastFlush map[string]time.Time
}

type Item struct {
	Data        interface{} `json:"data"`
	Platform    string      `json:"platform"`
	CollectedAt time.Time   `json:"collected_at"`
}

type Snapshot struct {
	Results  map[string]interface{} `json:"results"`
	Items    []Item                 `json:"items"`
	Metadata map[string]interface{} `json:"metadata"`
	Summary  SnapshotSummary        `json:"summary"`
}

type SnapshotSummary struct {
	ResultCount int       `json:"result_count"`
	ItemCount   int       `json:"item_count"`
	CompletedAt time.Time `json:"completed_at"`
}

func New(flushInterval time.Duration) *Collector {
	if flushInterval <= 0 {
		flushInterval = constants.DefaultCollectorFlushGap
	}
	return &Collector{
		flushInterval: flushInterval,
		results:       make(map[string]interface{}),
		metadata:      make(map[string]interface{}),
		buffers:       make(map[string]string),
		lastFlush:     make(map[string]time.Time),
	}
}

// Attach subscribes the collector to the agent message topic, so it receives
// the same stream the durable log writer does.
func (c *Collector) Attach(subscriber bus.Subscriber) {
	subscriber.Subscribe(constants.TopicAgentMessages, "collector", c.Handle)
}

// Handle folds a published envelope into the collector's state: textual
// content joins the agent's coalescing buffer, interim result payloads become
// collected items, and the closing envelope's payload is kept as that agent's
// run result.
func (c *Collector) Handle(ctx context.Context, env models.Envelope, routingKey string) error {
	if env.Content != "" {
		c.AppendText(env.AgentType, env.Content)
	}
	if env.Result != nil {
		if env.IsFinal {
			c.SetResult(env.AgentType, env.Result)
		} else {
			c.AddItem(env.Result, env.Platform)
		}
	}
	return nil
}

func (c *Collector) SetResult(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[key] = value
}

func (c *Collector) AddItem(data interface{}, platform string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, Item{
		Data:        data,
		Platform:    platform,
		CollectedAt: time.Now(),
	})
}

func (c *Collector) SetMetadata(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

// AppendText adds partial output from an agent to its coalescing buffer.
func (c *Collector) AppendText(agentKey, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffers[agentKey] += text
	if _, ok := c.lastFlush[agentKey]; !ok {
		c.lastFlush[agentKey] = time.Now()
	}
}

// DueForFlush reports whether the agent's buffer holds text and the flush
// interval has elapsed since its last drain.
func (c *Collector) DueForFlush(agentKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buffers[agentKey] == "" {
		return false
	}
	last, ok := c.lastFlush[agentKey]
	if !ok {
		return true
	}
	return time.Since(last) >= c.flushInterval
}

// TakeBuffer drains and returns the agent's buffered text, stamping the
// flush time. Returns "" when there is nothing to flush.
func (c *Collector) TakeBuffer(agentKey string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	text := c.buffers[agentKey]
	if text == "" {
		return ""
	}
	c.buffers[agentKey] = ""
	c.lastFlush[agentKey] = time.Now()
	return text
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	results := make(map[string]interface{}, len(c.results))
	for k, v := range c.results {
		results[k] = v
	}
	metadata := make(map[string]interface{}, len(c.metadata))
	for k, v := range c.metadata {
		metadata[k] = v
	}
	items := make([]Item, len(c.items))
	copy(items, c.items)

	return Snapshot{
		Results:  results,
		Items:    items,
		Metadata: metadata,
		Summary: SnapshotSummary{
			ResultCount: len(results),
			ItemCount:   len(items),
			CompletedAt: time.Now(),
		},
	}
}

// Clear resets all accumulated state, including the flush buffers.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = make(map[string]interface{})
	c.items = nil
	c.metadata = make(map[string]interface{})
	c.buffers = make(map[string]string)
	c.lastFlush = make(map[string]time.Time)
}
