package bus

import (
	"context"
	"errors"

	"relay/pkg/models"
)

// HandlerFunc consumes one envelope delivered on a topic. The routing key is
// the publishing agent's unique key, so consumers can tell streams apart.
type HandlerFunc func(ctx context.Context, env models.Envelope, routingKey string) error

type Publisher interface {
	Publish(ctx context.Context, topic string, env models.Envelope, routingKey string) error
	Close() error
}

type Subscriber interface {
	Subscribe(topic, name string, handler HandlerFunc)
}

// ErrNoSubscribers reports a publish that nobody observed. Callers treat it
// as a warning, not a failure: delivery on the bus is best-effort.
var ErrNoSubscribers = errors.New("no subscribers for topic")
