package agentlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"relay/internal/logger"
	"relay/internal/session"
	"relay/pkg/metrics"
)

// Service ties the durable log to its derived views: summaries, timelines
// and the cross-session performance report.
type Service struct {
	repository Repository
	cache      SummaryCache
	registry   *session.Registry
	logger     logger.Logger
}

func NewService(repository Repository, cache SummaryCache, registry *session.Registry, log logger.Logger) *Service {
	return &Service{
		repository: repository,
		cache:      cache,
		registry:   registry,
		logger:     log,
	}
}

// GetSummary returns the session summary, from cache when possible. A fresh
// aggregation is cached, persisted to the denormalized session row and
// attached to the live registry record; failures on those side channels are
// logged but do not fail the read.
func (s *Service) GetSummary(ctx context.Context, sessionID string) (*Summary, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, sessionID)
		if err != nil {
			s.logger.WarnwCtx(ctx, "Summary cache lookup failed", "session_id", sessionID, "error", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	entries, err := s.repository.ListAllBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load log entries: %w", err)
	}

	started := time.Now()
	summary := Summarize(sessionID, entries)
	metrics.ObserveSummaryAggregation(time.Since(started))

	if s.cache != nil {
		if err := s.cache.Set(ctx, summary); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to cache summary", "session_id", sessionID, "error", err)
		}
	}
	if err := s.repository.UpdateSessionSummary(ctx, sessionID, summary); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to persist session summary", "session_id", sessionID, "error", err)
	}
	if s.registry != nil {
		if asMap, err := summaryToMap(summary); err == nil {
			if err := s.registry.AttachSummary(sessionID, asMap); err != nil {
				s.logger.DebugwCtx(ctx, "No live session to attach summary to", "session_id", sessionID)
			}
		}
	}

	return summary, nil
}

func (s *Service) GetTimeline(ctx context.Context, sessionID string) ([]TimelineSegment, error) {
	entries, err := s.repository.ListAllBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load log entries: %w", err)
	}
	return BuildTimeline(entries), nil
}

func (s *Service) GetLogs(ctx context.Context, sessionID string, filter ListFilter) ([]LogEntry, error) {
	return s.repository.ListBySession(ctx, sessionID, filter)
}

// DeleteLogs removes a session's entries and drops any cached summary so a
// later read cannot resurrect stale data.
func (s *Service) DeleteLogs(ctx context.Context, sessionID string) (int64, error) {
	deleted, err := s.repository.DeleteBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, sessionID); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to invalidate summary cache", "session_id", sessionID, "error", err)
		}
	}

	s.logger.InfowCtx(ctx, "Deleted session logs", "session_id", sessionID, "count", deleted)
	return deleted, nil
}

func (s *Service) AgentPerformanceReport(ctx context.Context) ([]AgentPerformance, error) {
	return s.repository.AgentPerformanceReport(ctx)
}

func summaryToMap(summary *Summary) (map[string]interface{}, error) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, err
	}
	return asMap, nil
}
