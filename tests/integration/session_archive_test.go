package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/session"
)

func TestSessionArchive_SaveLoadDelete(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	ctx := context.Background()

	archive := session.NewMongoArchive(infra.MongoDB)
	registry := session.NewRegistry(time.Hour, nil, createTestLogger())

	registry.Create(ctx, session.CreateSessionRequest{
		SessionID: "s1",
		InputType: "document",
		Config:    map[string]interface{}{"lang": "en"},
	})
	require.NoError(t, registry.UpdateStatus(ctx, "s1", session.StatusCompleted, "", map[string]interface{}{"pages": int32(4)}))

	exported, err := registry.Export("s1")
	require.NoError(t, err)
	require.NoError(t, archive.Save(ctx, exported))

	loaded, err := archive.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, exported.Version, loaded.Version)
	assert.Equal(t, "s1", loaded.Session.ID)
	assert.Equal(t, session.StatusCompleted, loaded.Session.Status)
	assert.Equal(t, "en", loaded.Session.Config["lang"])

	// A loaded export can rebuild the session in a fresh registry.
	other := session.NewRegistry(time.Hour, nil, createTestLogger())
	id, err := other.Import(ctx, loaded)
	require.NoError(t, err)
	assert.Equal(t, "s1", id)

	require.NoError(t, archive.Delete(ctx, "s1"))
	gone, err := archive.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSessionArchive_SaveIsUpsert(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	ctx := context.Background()

	archive := session.NewMongoArchive(infra.MongoDB)
	registry := session.NewRegistry(time.Hour, nil, createTestLogger())

	registry.Create(ctx, session.CreateSessionRequest{SessionID: "s1", InputType: "document"})

	exported, err := registry.Export("s1")
	require.NoError(t, err)
	require.NoError(t, archive.Save(ctx, exported))

	require.NoError(t, registry.UpdateStatus(ctx, "s1", session.StatusProcessing, "", nil))
	updated, err := registry.Export("s1")
	require.NoError(t, err)
	require.NoError(t, archive.Save(ctx, updated))

	loaded, err := archive.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, session.StatusProcessing, loaded.Session.Status)
}
