package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_messages_published_total",
			Help: "Total number of envelopes published on the bus (count)",
		},
		[]string{"topic", "status"},
	)

	SubscriberFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_subscriber_failures_total",
			Help: "Total number of subscriber handler failures (count)",
		},
		[]string{"topic", "subscriber"},
	)

	MessagesEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emitter_messages_total",
			Help: "Total number of envelopes emitted by agents (count)",
		},
		[]string{"agent_type", "message_type"},
	)

	EmitPublishFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emitter_publish_failures_total",
			Help: "Total number of emissions that failed to reach any subscriber (count)",
		},
		[]string{"agent_type"},
	)

	LogEntriesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_log_entries_written_total",
			Help: "Total number of envelopes persisted to the agent log (count)",
		},
		[]string{"message_type"},
	)

	LogWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_log_write_failures_total",
			Help: "Total number of failed agent log inserts (count)",
		},
	)

	ClassifierDivergenceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_log_classifier_divergence_total",
			Help: "Total number of envelopes whose derived type differs from the declared type (count)",
		},
		[]string{"declared", "derived"},
	)

	SessionsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Total number of sessions created (count)",
		},
		[]string{"input_type"},
	)

	SessionOverwritesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_overwritten_total",
			Help: "Total number of sessions re-created under an existing id (count)",
		},
	)

	IllegalTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_illegal_transitions_total",
			Help: "Total number of status transitions outside the lifecycle table (count)",
		},
		[]string{"from", "to"},
	)

	SessionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_expired_total",
			Help: "Total number of sessions evicted by the expiry sweep (count)",
		},
	)

	SweepFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "session_sweep_failures_total",
			Help: "Total number of expiry sweep runs that reported an error (count)",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of sessions currently in CREATED or PROCESSING state (count)",
		},
	)

	SummaryCacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summary_cache_requests_total",
			Help: "Total number of summary cache lookups (count)",
		},
		[]string{"status"},
	)

	SummaryAggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summary_aggregation_duration_ms",
			Help:    "Duration of session summary aggregation in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)
)

func RegisterBusMetrics() {
	prometheus.MustRegister(MessagesPublishedTotal)
	prometheus.MustRegister(SubscriberFailuresTotal)
	prometheus.MustRegister(MessagesEmittedTotal)
	prometheus.MustRegister(EmitPublishFailuresTotal)
}

func RegisterSessionMetrics() {
	prometheus.MustRegister(SessionsCreatedTotal)
	prometheus.MustRegister(SessionOverwritesTotal)
	prometheus.MustRegister(IllegalTransitionsTotal)
	prometheus.MustRegister(SessionsExpiredTotal)
	prometheus.MustRegister(SweepFailuresTotal)
	prometheus.MustRegister(ActiveSessions)
}

func RegisterLogMetrics() {
	prometheus.MustRegister(LogEntriesWrittenTotal)
	prometheus.MustRegister(LogWriteFailuresTotal)
	prometheus.MustRegister(ClassifierDivergenceTotal)
	prometheus.MustRegister(SummaryCacheRequestsTotal)
	prometheus.MustRegister(SummaryAggregationDuration)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterAPIMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func ObserveSummaryAggregation(duration time.Duration) {
	SummaryAggregationDuration.Observe(float64(duration.Milliseconds()))
}

func SetActiveSessions(count int) {
	ActiveSessions.Set(float64(count))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}
