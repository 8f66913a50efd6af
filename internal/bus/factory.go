package bus

import (
	"relay/internal/config"
	"relay/internal/constants"
	"relay/internal/logger"
)

// NewBridge attaches the configured Kafka bridge to the local bus. With the
// memory broker type both returns are nil and the bus stays purely
// in-process.
func NewBridge(cfg config.BrokerConfig, b *MemoryBus, log logger.Logger) (*KafkaMirror, *KafkaIngest) {
	if cfg.Type != "kafka" {
		return nil, nil
	}

	var mirror *KafkaMirror
	if cfg.Kafka.MirrorTopic != "" {
		mirror = NewKafkaMirror(cfg.Kafka, log)
		b.Subscribe(constants.TopicAgentMessages, "kafka-mirror", mirror.Handle)
	}

	var ingest *KafkaIngest
	if cfg.Kafka.IngestTopic != "" {
		ingest = NewKafkaIngest(cfg.Kafka, b, log)
	}

	return mirror, ingest
}
