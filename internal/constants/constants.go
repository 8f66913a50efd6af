package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	TopicAgentMessages = "agent_messages"
)

const (
	CacheKeyPrefixSummary = "summary:"
)

const (
	DefaultMaxSessionAge      = 24 * time.Hour
	DefaultSweepInterval      = 1 * time.Hour
	DefaultCollectorFlushGap  = 300 * time.Millisecond
	DefaultSummaryCacheTTL    = 5 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	ArchiveCollectionSessions = "session_archive"
	DefaultMongoDBName        = "relay"
)
