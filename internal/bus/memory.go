package bus

import (
	"context"
	"sync"

	"relay/internal/logger"
	"relay/pkg/errors"
	"relay/pkg/metrics"
	"relay/pkg/models"
)

type subscription struct {
	name    string
	handler HandlerFunc
}

// MemoryBus fans an envelope out to every subscriber of its topic,
// synchronously and at most once. A failing or panicking handler is isolated
// from the remaining subscribers and from the publisher.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	logger logger.Logger
}

func NewMemoryBus(log logger.Logger) *MemoryBus {
	return &MemoryBus{
		subs:   make(map[string][]subscription),
		logger: log,
	}
}

func (b *MemoryBus) Subscribe(topic, name string, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[topic] = append(b.subs[topic], subscription{name: name, handler: handler})
	b.logger.Infow("Subscriber registered",
		"topic", topic,
		"subscriber", name,
	)
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, env models.Envelope, routingKey string) error {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	if len(subs) == 0 {
		metrics.MessagesPublishedTotal.WithLabelValues(topic, "no_subscribers").Inc()
		b.logger.WarnwCtx(ctx, "Published envelope with no subscribers",
			"topic", topic,
			"message_id", env.ID,
			"routing_key", routingKey,
		)
		return ErrNoSubscribers
	}

	for _, sub := range subs {
		if err := b.deliver(ctx, sub, topic, env, routingKey); err != nil {
			metrics.SubscriberFailuresTotal.WithLabelValues(topic, sub.name).Inc()
			b.logger.ErrorwCtx(ctx, "Subscriber handler failed",
				"topic", topic,
				"subscriber", sub.name,
				"message_id", env.ID,
				"error", err,
			)
		}
	}

	metrics.MessagesPublishedTotal.WithLabelValues(topic, "delivered").Inc()
	return nil
}

func (b *MemoryBus) deliver(ctx context.Context, sub subscription, topic string, env models.Envelope, routingKey string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.RecoverPanic(r)
		}
	}()
	return sub.handler(ctx, env, routingKey)
}

func (b *MemoryBus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]subscription)
	return nil
}
