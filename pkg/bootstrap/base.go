package bootstrap

import (
	"context"
	"fmt"

	"relay/internal/bus"
	"relay/internal/config"
	"relay/internal/logger"
)

type Base struct {
	Config *config.Config
	Logger logger.Logger

	Bus    *bus.MemoryBus
	Mirror *bus.KafkaMirror
	Ingest *bus.KafkaIngest
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitBus creates the in-process bus and, when the broker is configured as
// kafka, bridges it to the external topics.
func (b *Base) InitBus() {
	b.Bus = bus.NewMemoryBus(b.Logger)

	if b.Config.Broker.Type == "kafka" {
		b.Mirror, b.Ingest = bus.NewBridge(b.Config.Broker, b.Bus, b.Logger)
	}
}

func (b *Base) ShutdownBus() []error {
	var errs []error

	if b.Mirror != nil {
		if err := b.Mirror.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka mirror close error: %w", err))
		}
	}

	if b.Ingest != nil {
		if err := b.Ingest.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka ingest close error: %w", err))
		}
	}

	if b.Bus != nil {
		if err := b.Bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("bus close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	errs = append(errs, b.ShutdownBus()...)

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
