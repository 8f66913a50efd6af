package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/logger"
	"relay/pkg/models"
)

func testEnvelope(id string) models.Envelope {
	return models.Envelope{
		ID:        id,
		Type:      models.MessageTypeInfo,
		Content:   "hello",
		SessionID: "s1",
		AgentType: "writer",
	}
}

func TestMemoryBus_PublishFansOutToAllSubscribers(t *testing.T) {
	b := NewMemoryBus(logger.NopLogger())

	var first, second []models.Envelope
	b.Subscribe("events", "first", func(ctx context.Context, env models.Envelope, routingKey string) error {
		first = append(first, env)
		return nil
	})
	b.Subscribe("events", "second", func(ctx context.Context, env models.Envelope, routingKey string) error {
		second = append(second, env)
		return nil
	})

	err := b.Publish(context.Background(), "events", testEnvelope("m1"), "writer-s1")
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "m1", first[0].ID)
	assert.Equal(t, "m1", second[0].ID)
}

func TestMemoryBus_FailingSubscriberDoesNotBlockOthers(t *testing.T) {
	b := NewMemoryBus(logger.NopLogger())

	var delivered []string
	b.Subscribe("events", "failing", func(ctx context.Context, env models.Envelope, routingKey string) error {
		return errors.New("boom")
	})
	b.Subscribe("events", "healthy", func(ctx context.Context, env models.Envelope, routingKey string) error {
		delivered = append(delivered, env.ID)
		return nil
	})

	err := b.Publish(context.Background(), "events", testEnvelope("m1"), "writer-s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, delivered)
}

func TestMemoryBus_PanickingSubscriberIsIsolated(t *testing.T) {
	b := NewMemoryBus(logger.NopLogger())

	var delivered []string
	b.Subscribe("events", "panicking", func(ctx context.Context, env models.Envelope, routingKey string) error {
		panic("subscriber bug")
	})
	b.Subscribe("events", "healthy", func(ctx context.Context, env models.Envelope, routingKey string) error {
		delivered = append(delivered, env.ID)
		return nil
	})

	require.NotPanics(t, func() {
		err := b.Publish(context.Background(), "events", testEnvelope("m1"), "writer-s1")
		require.NoError(t, err)
	})
	assert.Equal(t, []string{"m1"}, delivered)
}

func TestMemoryBus_PublishWithoutSubscribers(t *testing.T) {
	b := NewMemoryBus(logger.NopLogger())

	err := b.Publish(context.Background(), "events", testEnvelope("m1"), "writer-s1")
	assert.ErrorIs(t, err, ErrNoSubscribers)
}

func TestMemoryBus_RoutingKeyReachesSubscriber(t *testing.T) {
	b := NewMemoryBus(logger.NopLogger())

	var key string
	b.Subscribe("events", "capture", func(ctx context.Context, env models.Envelope, routingKey string) error {
		key = routingKey
		return nil
	})

	err := b.Publish(context.Background(), "events", testEnvelope("m1"), "writer-s1")
	require.NoError(t, err)
	assert.Equal(t, "writer-s1", key)
}

func TestMemoryBus_SubscriberCount(t *testing.T) {
	b := NewMemoryBus(logger.NopLogger())

	assert.Equal(t, 0, b.SubscriberCount("events"))

	b.Subscribe("events", "one", func(ctx context.Context, env models.Envelope, routingKey string) error { return nil })
	b.Subscribe("events", "two", func(ctx context.Context, env models.Envelope, routingKey string) error { return nil })
	b.Subscribe("other", "three", func(ctx context.Context, env models.Envelope, routingKey string) error { return nil })

	assert.Equal(t, 2, b.SubscriberCount("events"))
	assert.Equal(t, 1, b.SubscriberCount("other"))
}
