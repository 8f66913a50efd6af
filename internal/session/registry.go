package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"relay/internal/constants"
	"relay/internal/logger"
	pkgerrors "relay/pkg/errors"
	"relay/pkg/metrics"
)

// Registry tracks every in-flight pipeline run through its lifecycle. It is
// the authoritative in-memory store; the durable log and archive are
// derived views.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	maxAge    time.Duration
	artifacts ArtifactStore
	logger    logger.Logger

	sweepMu sync.Mutex
}

func NewRegistry(maxAge time.Duration, artifacts ArtifactStore, log logger.Logger) *Registry {
	if maxAge < 0 {
		maxAge = constants.DefaultMaxSessionAge
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		maxAge:    maxAge,
		artifacts: artifacts,
		logger:    log,
	}
}

// Create registers a new session. Re-using an existing id overwrites the
// prior record; that is documented behavior for idempotent re-submission,
// but it is logged and counted so accidental clobbering stays visible.
func (r *Registry) Create(ctx context.Context, req CreateSessionRequest) string {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	now := time.Now()
	sess := &Session{
		ID:        sessionID,
		Status:    StatusCreated,
		InputType: req.InputType,
		Config:    copyMap(req.Config),
		Metadata:  copyMap(req.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	_, existed := r.sessions[sessionID]
	r.sessions[sessionID] = sess
	active := r.activeCountLocked()
	r.mu.Unlock()

	if existed {
		metrics.SessionOverwritesTotal.Inc()
		r.logger.WarnwCtx(ctx, "Session re-created under existing id, prior record overwritten",
			"session_id", sessionID,
		)
	}

	metrics.SessionsCreatedTotal.WithLabelValues(req.InputType).Inc()
	metrics.SetActiveSessions(active)
	r.logger.InfowCtx(ctx, "Session created",
		"session_id", sessionID,
		"input_type", req.InputType,
	)

	return sessionID
}

func (r *Registry) Get(sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "session not found: "+sessionID)
	}
	return sess.Clone(), nil
}

// UpdateStatus sets the session's status. Absent sessions are a logged
// no-op returning an error indicator, never a panic. Transitions outside
// the lifecycle table are applied but flagged.
func (r *Registry) UpdateStatus(ctx context.Context, sessionID string, status Status, errorMessage string, result map[string]interface{}) error {
	if !ValidStatus(status) {
		return pkgerrors.ErrValidation.WithDetail("message", "unknown status: "+string(status))
	}

	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		r.logger.ErrorwCtx(ctx, "Status update for unknown session",
			"session_id", sessionID,
			"status", status,
		)
		return pkgerrors.ErrNotFound.WithDetail("message", "session not found: "+sessionID)
	}

	from := sess.Status
	sess.Status = status
	sess.UpdatedAt = time.Now()
	if errorMessage != "" {
		sess.ErrorMessage = errorMessage
	}
	if result != nil {
		sess.Result = copyMap(result)
	}
	active := r.activeCountLocked()
	r.mu.Unlock()

	if !transitionAllowed(from, status) {
		metrics.IllegalTransitionsTotal.WithLabelValues(string(from), string(status)).Inc()
		r.logger.WarnwCtx(ctx, "Status transition outside lifecycle table",
			"session_id", sessionID,
			"from", from,
			"to", status,
		)
	}

	metrics.SetActiveSessions(active)
	r.logger.InfowCtx(ctx, "Session status updated",
		"session_id", sessionID,
		"from", from,
		"to", status,
	)
	return nil
}

// UpdateProgress stores the clamped progress value for the session.
func (r *Registry) UpdateProgress(ctx context.Context, sessionID string, progress float64) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		r.logger.ErrorwCtx(ctx, "Progress update for unknown session",
			"session_id", sessionID,
		)
		return pkgerrors.ErrNotFound.WithDetail("message", "session not found: "+sessionID)
	}
	sess.Progress = progress
	sess.UpdatedAt = time.Now()
	r.mu.Unlock()

	return nil
}

// AttachSummary caches a derived summary on the session record.
func (r *Registry) AttachSummary(sessionID string, summary map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return pkgerrors.ErrNotFound.WithDetail("message", "session not found: "+sessionID)
	}
	sess.Summary = copyMap(summary)
	return nil
}

type ListFilter struct {
	Status    Status
	InputType string
	Limit     int
}

// List returns sessions sorted by updated_at descending.
func (r *Registry) List(filter ListFilter) []*Session {
	limit := filter.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}

	r.mu.RLock()
	matched := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		if filter.Status != "" && sess.Status != filter.Status {
			continue
		}
		if filter.InputType != "" && sess.InputType != filter.InputType {
			continue
		}
		matched = append(matched, sess.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// Delete removes the session and asks the artifact store to drop its files.
func (r *Registry) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	_, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return pkgerrors.ErrNotFound.WithDetail("message", "session not found: "+sessionID)
	}
	delete(r.sessions, sessionID)
	active := r.activeCountLocked()
	r.mu.Unlock()

	metrics.SetActiveSessions(active)

	if r.artifacts != nil {
		if err := r.artifacts.Cleanup(ctx, sessionID); err != nil {
			r.logger.ErrorwCtx(ctx, "Artifact cleanup failed",
				"session_id", sessionID,
				"error", err,
			)
		}
	}

	r.logger.InfowCtx(ctx, "Session deleted", "session_id", sessionID)
	return nil
}

// CleanupExpired evicts every session older than the configured max age and
// triggers artifact cleanup once per evicted session. Only one sweep runs
// at a time.
func (r *Registry) CleanupExpired(ctx context.Context) int {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()

	cutoff := time.Now().Add(-r.maxAge)

	r.mu.Lock()
	expired := make([]string, 0)
	for id, sess := range r.sessions {
		if !sess.CreatedAt.After(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(r.sessions, id)
	}
	active := r.activeCountLocked()
	r.mu.Unlock()

	for _, id := range expired {
		metrics.SessionsExpiredTotal.Inc()
		if r.artifacts != nil {
			if err := r.artifacts.Cleanup(ctx, id); err != nil {
				r.logger.ErrorwCtx(ctx, "Artifact cleanup failed for expired session",
					"session_id", id,
					"error", err,
				)
			}
		}
		r.logger.InfowCtx(ctx, "Session expired", "session_id", id)
	}

	metrics.SetActiveSessions(active)
	return len(expired)
}

// Export serializes a session plus its processing result.
func (r *Registry) Export(sessionID string) (*ExportedSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "session not found: "+sessionID)
	}

	return &ExportedSession{
		Version:  1,
		Session:  sess.Clone(),
		Exported: time.Now(),
	}, nil
}

// Import reconstructs a previously exported session, timestamps and status
// included. Importing over an existing id overwrites it, same as Create.
func (r *Registry) Import(ctx context.Context, data *ExportedSession) (string, error) {
	if data == nil || data.Session == nil {
		return "", pkgerrors.ErrValidation.WithDetail("message", "export data missing session")
	}
	if data.Session.ID == "" {
		return "", pkgerrors.ErrValidation.WithDetail("message", "exported session has no id")
	}
	if !ValidStatus(data.Session.Status) {
		return "", pkgerrors.ErrValidation.WithDetail("message", "exported session has unknown status: "+string(data.Session.Status))
	}

	sess := data.Session.Clone()

	r.mu.Lock()
	_, existed := r.sessions[sess.ID]
	r.sessions[sess.ID] = sess
	active := r.activeCountLocked()
	r.mu.Unlock()

	if existed {
		metrics.SessionOverwritesTotal.Inc()
		r.logger.WarnwCtx(ctx, "Import overwrote existing session",
			"session_id", sess.ID,
		)
	}

	metrics.SetActiveSessions(active)
	return sess.ID, nil
}

func (r *Registry) Statistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Statistics{
		Total:    len(r.sessions),
		ByStatus: make(map[Status]int),
	}
	for _, sess := range r.sessions {
		stats.ByStatus[sess.Status]++
	}
	stats.Active = stats.ByStatus[StatusCreated] + stats.ByStatus[StatusProcessing]
	stats.Completed = stats.ByStatus[StatusCompleted]
	stats.Failed = stats.ByStatus[StatusFailed]
	return stats
}

func (r *Registry) activeCountLocked() int {
	count := 0
	for _, sess := range r.sessions {
		if sess.Status == StatusCreated || sess.Status == StatusProcessing {
			count++
		}
	}
	return count
}
