package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"relay/internal/config"
	"relay/internal/constants"
	"relay/internal/logger"
	"relay/pkg/errors"
	"relay/pkg/logging"
	"relay/pkg/metrics"
	"relay/pkg/models"
	"relay/pkg/retry"
	"relay/pkg/tracing"
)

// KafkaMirror re-publishes every envelope seen on the local bus to an
// external Kafka topic, so out-of-process observers can follow a pipeline
// run without talking to this service.
type KafkaMirror struct {
	writer *kafka.Writer
	topic  string
	logger logger.Logger
}

func NewKafkaMirror(cfg config.KafkaConfig, log logger.Logger) *KafkaMirror {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaMirror{writer: w, topic: cfg.MirrorTopic, logger: log}
}

// Handle implements HandlerFunc so the mirror can be attached as a plain
// bus subscriber.
func (m *KafkaMirror) Handle(ctx context.Context, env models.Envelope, routingKey string) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	headers := []kafka.Header{}
	headers = tracing.InjectTraceContext(ctx, headers)

	err = m.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   m.topic,
			Key:     []byte(routingKey),
			Value:   body,
			Headers: headers,
			Time:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten("relay", m.topic)
	return nil
}

func (m *KafkaMirror) Close() error {
	return m.writer.Close()
}

// KafkaIngest consumes envelopes produced by out-of-process agents and
// republishes them on the local bus. Failed envelopes are retried with
// backoff and dead-lettered once the policy is exhausted.
type KafkaIngest struct {
	cfg    config.KafkaConfig
	wg     sync.WaitGroup
	reader *kafka.Reader
	bus    Publisher
	dlq    *kafka.Writer
	logger logger.Logger
}

func NewKafkaIngest(cfg config.KafkaConfig, target Publisher, log logger.Logger) *KafkaIngest {
	ingest := &KafkaIngest{
		cfg:    cfg,
		bus:    target,
		logger: log,
	}

	if cfg.DLQTopic != "" {
		ingest.dlq = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: constants.KafkaBatchTimeout,
			WriteTimeout: constants.KafkaWriteTimeout,
		}
	}

	return ingest
}

func (c *KafkaIngest) Run(ctx context.Context) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", c.cfg.IngestTopic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
	)

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    c.cfg.IngestTopic,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logger.InfowCtx(ctx, "Started consuming",
			"topic", c.cfg.IngestTopic,
		)

		for {
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.InfowCtx(ctx, "Stopped consuming",
						"topic", c.cfg.IngestTopic,
						"reason", "context canceled",
					)
					return
				}
				c.logger.ErrorwCtx(ctx, "Error fetching kafka message",
					"error", err,
					"topic", c.cfg.IngestTopic,
				)
				time.Sleep(time.Second)
				continue
			}

			metrics.IncKafkaMessagesRead("relay", c.cfg.IngestTopic)

			var env models.Envelope
			if err := json.Unmarshal(m.Value, &env); err != nil {
				c.logger.ErrorwCtx(ctx, "Failed to unmarshal envelope",
					"error", err,
					"topic", c.cfg.IngestTopic,
				)
				_ = c.reader.CommitMessages(ctx, m)
				continue
			}

			msgCtx, span := tracing.StartSpanFromKafkaMessage(ctx, "kafka.ingest", m.Headers)
			msgCtx = logging.WithMessageID(msgCtx, env.ID)
			msgCtx = logging.WithSessionID(msgCtx, env.SessionID)

			if err := c.republishWithRetry(msgCtx, env, string(m.Key)); err != nil {
				c.logger.ErrorwCtx(msgCtx, "Failed to republish envelope after retries",
					"error", err,
					"topic", c.cfg.IngestTopic,
				)
				if c.dlq != nil {
					if dlqErr := c.sendToDLQ(msgCtx, env, err); dlqErr != nil {
						c.logger.ErrorwCtx(msgCtx, "Failed to send envelope to DLQ",
							"error", dlqErr,
							"topic", c.cfg.IngestTopic,
						)
					}
				}
			}

			if err := c.reader.CommitMessages(ctx, m); err != nil {
				c.logger.ErrorwCtx(msgCtx, "Failed to commit message",
					"error", err,
					"topic", c.cfg.IngestTopic,
				)
			}
			span.End()
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaIngest) Close() error {
	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	if c.dlq != nil {
		if closeErr := c.dlq.Close(); closeErr != nil {
			if err == nil {
				err = closeErr
			}
		}
	}
	c.wg.Wait()
	return err
}

func (c *KafkaIngest) republishWithRetry(ctx context.Context, env models.Envelope, routingKey string) error {
	policy := retry.Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}

	if c.cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = c.cfg.Retry.MaxAttempts
	}
	if c.cfg.Retry.InitialInterval > 0 {
		policy.InitialInterval = c.cfg.Retry.InitialInterval
	}
	if c.cfg.Retry.MaxInterval > 0 {
		policy.MaxInterval = c.cfg.Retry.MaxInterval
	}
	if c.cfg.Retry.Multiplier > 0 {
		policy.Multiplier = c.cfg.Retry.Multiplier
	}
	if c.cfg.Retry.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = c.cfg.Retry.MaxElapsedTime
	}

	return retry.RetryWithCallback(ctx, policy, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverPanic(r)
				c.logger.ErrorwCtx(ctx, "Panic recovered during envelope republish",
					"error", err,
					"topic", c.cfg.IngestTopic,
				)
			}
		}()
		return c.bus.Publish(ctx, constants.TopicAgentMessages, env, routingKey)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues("relay", c.cfg.IngestTopic).Inc()
		c.logger.WarnwCtx(ctx, "Retrying envelope republish",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", c.cfg.IngestTopic,
		)
	})
}

func (c *KafkaIngest) sendToDLQ(ctx context.Context, env models.Envelope, originalErr error) error {
	env.SetResultField("dlq_reason", originalErr.Error())
	env.SetResultField("dlq_source_topic", c.cfg.IngestTopic)
	env.SetResultField("dlq_timestamp", time.Now())

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope for DLQ: %w", err)
	}

	err = c.dlq.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   []byte(env.ID),
		Value: body,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	metrics.DLQMessagesTotal.WithLabelValues("relay", c.cfg.IngestTopic, "max_retries_exceeded").Inc()
	c.logger.InfowCtx(ctx, "Envelope sent to DLQ",
		"source_topic", c.cfg.IngestTopic,
		"dlq_topic", c.cfg.DLQTopic,
		"reason", originalErr.Error(),
	)

	return nil
}
