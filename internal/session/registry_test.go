package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/logger"
)

type recordingArtifacts struct {
	mu       sync.Mutex
	cleanups []string
}

func (r *recordingArtifacts) Cleanup(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanups = append(r.cleanups, sessionID)
	return nil
}

func newTestRegistry(maxAge time.Duration, artifacts ArtifactStore) *Registry {
	return NewRegistry(maxAge, artifacts, logger.NopLogger())
}

func TestRegistry_CreateGeneratesID(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)

	id := r.Create(context.Background(), CreateSessionRequest{InputType: "document"})
	require.NotEmpty(t, id)

	sess, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, sess.Status)
	assert.Equal(t, "document", sess.InputType)
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestRegistry_CreateWithExplicitIDOverwrites(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)

	first := r.Create(context.Background(), CreateSessionRequest{
		SessionID: "s1",
		InputType: "document",
		Metadata:  map[string]interface{}{"attempt": 1},
	})
	second := r.Create(context.Background(), CreateSessionRequest{
		SessionID: "s1",
		InputType: "presentation",
	})

	assert.Equal(t, first, second)

	sess, err := r.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "presentation", sess.InputType)
	assert.Nil(t, sess.Metadata)
}

func TestRegistry_GetUnknownSession(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)

	_, err := r.Get("missing")
	assert.Error(t, err)
}

func TestRegistry_GetReturnsClone(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)
	r.Create(context.Background(), CreateSessionRequest{
		SessionID: "s1",
		InputType: "document",
		Config:    map[string]interface{}{"lang": "en"},
	})

	sess, err := r.Get("s1")
	require.NoError(t, err)
	sess.Config["lang"] = "mutated"

	fresh, err := r.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "en", fresh.Config["lang"])
}

func TestRegistry_UpdateStatusLifecycle(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)
	r.Create(context.Background(), CreateSessionRequest{SessionID: "s1", InputType: "document"})

	err := r.UpdateStatus(context.Background(), "s1", StatusProcessing, "", nil)
	require.NoError(t, err)

	err = r.UpdateStatus(context.Background(), "s1", StatusCompleted, "", map[string]interface{}{"pages": 4})
	require.NoError(t, err)

	sess, err := r.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, sess.Status)
	assert.Equal(t, 4, sess.Result["pages"])
}

func TestRegistry_UpdateStatusUnknownSession(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)

	err := r.UpdateStatus(context.Background(), "missing", StatusProcessing, "", nil)
	assert.Error(t, err)
}

func TestRegistry_UpdateStatusRejectsUnknownStatus(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)
	r.Create(context.Background(), CreateSessionRequest{SessionID: "s1", InputType: "document"})

	err := r.UpdateStatus(context.Background(), "s1", Status("ON_FIRE"), "", nil)
	assert.Error(t, err)
}

func TestRegistry_IllegalTransitionIsAppliedButFlagged(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)
	r.Create(context.Background(), CreateSessionRequest{SessionID: "s1", InputType: "document"})

	require.NoError(t, r.UpdateStatus(context.Background(), "s1", StatusCompleted, "", nil))

	// A terminal state accepts further transitions for legacy producers;
	// the move is flagged, not rejected.
	err := r.UpdateStatus(context.Background(), "s1", StatusProcessing, "", nil)
	require.NoError(t, err)

	sess, err := r.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, sess.Status)
}

func TestRegistry_UpdateStatusKeepsErrorMessage(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)
	r.Create(context.Background(), CreateSessionRequest{SessionID: "s1", InputType: "document"})

	err := r.UpdateStatus(context.Background(), "s1", StatusFailed, "backend unavailable", nil)
	require.NoError(t, err)

	sess, err := r.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "backend unavailable", sess.ErrorMessage)
}

func TestRegistry_UpdateProgressClamps(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)
	r.Create(context.Background(), CreateSessionRequest{SessionID: "s1", InputType: "document"})

	require.NoError(t, r.UpdateProgress(context.Background(), "s1", 150))
	sess, err := r.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, sess.Progress)

	require.NoError(t, r.UpdateProgress(context.Background(), "s1", -5))
	sess, err = r.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, sess.Progress)

	require.NoError(t, r.UpdateProgress(context.Background(), "s1", 42.5))
	sess, err = r.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 42.5, sess.Progress)
}

func TestRegistry_ListFiltersAndSorts(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)

	r.Create(context.Background(), CreateSessionRequest{SessionID: "s1", InputType: "document"})
	r.Create(context.Background(), CreateSessionRequest{SessionID: "s2", InputType: "presentation"})
	r.Create(context.Background(), CreateSessionRequest{SessionID: "s3", InputType: "document"})

	require.NoError(t, r.UpdateStatus(context.Background(), "s1", StatusProcessing, "", nil))

	docs := r.List(ListFilter{InputType: "document"})
	require.Len(t, docs, 2)
	// s1 was updated last, so it sorts first.
	assert.Equal(t, "s1", docs[0].ID)

	processing := r.List(ListFilter{Status: StatusProcessing})
	require.Len(t, processing, 1)
	assert.Equal(t, "s1", processing[0].ID)

	limited := r.List(ListFilter{Limit: 1})
	assert.Len(t, limited, 1)
}

func TestRegistry_DeleteCleansArtifacts(t *testing.T) {
	artifacts := &recordingArtifacts{}
	r := newTestRegistry(time.Hour, artifacts)

	r.Create(context.Background(), CreateSessionRequest{SessionID: "s1", InputType: "document"})
	require.NoError(t, r.Delete(context.Background(), "s1"))

	_, err := r.Get("s1")
	assert.Error(t, err)
	assert.Equal(t, []string{"s1"}, artifacts.cleanups)

	assert.Error(t, r.Delete(context.Background(), "s1"))
}

func TestRegistry_CleanupExpiredWithZeroMaxAge(t *testing.T) {
	artifacts := &recordingArtifacts{}
	r := newTestRegistry(0, artifacts)

	r.Create(context.Background(), CreateSessionRequest{SessionID: "s1", InputType: "document"})
	r.Create(context.Background(), CreateSessionRequest{SessionID: "s2", InputType: "document"})

	evicted := r.CleanupExpired(context.Background())
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 0, r.Statistics().Total)

	// Artifact cleanup ran exactly once per evicted session.
	assert.Len(t, artifacts.cleanups, 2)
	assert.ElementsMatch(t, []string{"s1", "s2"}, artifacts.cleanups)

	// Nothing left to evict on the next sweep.
	assert.Equal(t, 0, r.CleanupExpired(context.Background()))
	assert.Len(t, artifacts.cleanups, 2)
}

func TestRegistry_CleanupExpiredKeepsFreshSessions(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)

	r.Create(context.Background(), CreateSessionRequest{SessionID: "s1", InputType: "document"})

	assert.Equal(t, 0, r.CleanupExpired(context.Background()))
	_, err := r.Get("s1")
	assert.NoError(t, err)
}

func TestRegistry_ExportImportRoundTrip(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)

	r.Create(context.Background(), CreateSessionRequest{
		SessionID: "s1",
		InputType: "document",
		Config:    map[string]interface{}{"lang": "en"},
	})
	require.NoError(t, r.UpdateStatus(context.Background(), "s1", StatusCompleted, "", map[string]interface{}{"pages": 4}))
	require.NoError(t, r.UpdateProgress(context.Background(), "s1", 100))

	exported, err := r.Export("s1")
	require.NoError(t, err)
	original := exported.Session

	other := newTestRegistry(time.Hour, nil)
	id, err := other.Import(context.Background(), exported)
	require.NoError(t, err)
	assert.Equal(t, "s1", id)

	reExported, err := other.Export("s1")
	require.NoError(t, err)
	restored := reExported.Session

	assert.Equal(t, original.Status, restored.Status)
	assert.Equal(t, original.Progress, restored.Progress)
	assert.Equal(t, original.Config, restored.Config)
	assert.Equal(t, original.Result, restored.Result)
	assert.True(t, original.CreatedAt.Equal(restored.CreatedAt))
	assert.True(t, original.UpdatedAt.Equal(restored.UpdatedAt))
}

func TestRegistry_ImportRejectsMalformedData(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)

	_, err := r.Import(context.Background(), nil)
	assert.Error(t, err)

	_, err = r.Import(context.Background(), &ExportedSession{Version: 1, Session: &Session{}})
	assert.Error(t, err)

	_, err = r.Import(context.Background(), &ExportedSession{
		Version: 1,
		Session: &Session{ID: "s1", Status: Status("BOGUS")},
	})
	assert.Error(t, err)
}

func TestRegistry_Statistics(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)

	r.Create(context.Background(), CreateSessionRequest{SessionID: "s1", InputType: "document"})
	r.Create(context.Background(), CreateSessionRequest{SessionID: "s2", InputType: "document"})
	r.Create(context.Background(), CreateSessionRequest{SessionID: "s3", InputType: "document"})
	r.Create(context.Background(), CreateSessionRequest{SessionID: "s4", InputType: "document"})

	require.NoError(t, r.UpdateStatus(context.Background(), "s2", StatusProcessing, "", nil))
	require.NoError(t, r.UpdateStatus(context.Background(), "s3", StatusCompleted, "", nil))
	require.NoError(t, r.UpdateStatus(context.Background(), "s4", StatusFailed, "boom", nil))

	stats := r.Statistics()
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.ByStatus[StatusCreated])
	assert.Equal(t, 1, stats.ByStatus[StatusProcessing])
}

func TestRegistry_AttachSummary(t *testing.T) {
	r := newTestRegistry(time.Hour, nil)
	r.Create(context.Background(), CreateSessionRequest{SessionID: "s1", InputType: "document"})

	require.NoError(t, r.AttachSummary("s1", map[string]interface{}{"total_messages": 7}))

	sess, err := r.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 7, sess.Summary["total_messages"])

	assert.Error(t, r.AttachSummary("missing", nil))
}
