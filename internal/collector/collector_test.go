package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/bus"
	"relay/internal/constants"
	"relay/internal/logger"
	"relay/pkg/models"
)

func TestCollector_AddItemStampsPlatformAndTime(t *testing.T) {
	c := New(0)

	before := time.Now()
	c.AddItem("chapter one", "docs")
	c.AddItem("cover image", "images")

	snap := c.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "chapter one", snap.Items[0].Data)
	assert.Equal(t, "docs", snap.Items[0].Platform)
	assert.False(t, snap.Items[0].CollectedAt.Before(before))
	assert.Equal(t, "images", snap.Items[1].Platform)
}

func TestCollector_SnapshotCounts(t *testing.T) {
	c := New(0)

	c.SetResult("title", "Draft")
	c.SetResult("word_count", 1200)
	c.AddItem("section", "docs")
	c.SetMetadata("requested_by", "scheduler")

	snap := c.Snapshot()
	assert.Equal(t, 2, snap.Summary.ResultCount)
	assert.Equal(t, 1, snap.Summary.ItemCount)
	assert.False(t, snap.Summary.CompletedAt.IsZero())
	assert.Equal(t, "scheduler", snap.Metadata["requested_by"])
}

func TestCollector_SnapshotIsACopy(t *testing.T) {
	c := New(0)
	c.SetResult("title", "Draft")

	snap := c.Snapshot()
	snap.Results["title"] = "mutated"

	assert.Equal(t, "Draft", c.Snapshot().Results["title"])
}

func TestCollector_TextCoalescing(t *testing.T) {
	c := New(50 * time.Millisecond)

	c.AppendText("writer", "first ")
	c.AppendText("writer", "second")

	// Flush interval has not elapsed since the first append.
	assert.False(t, c.DueForFlush("writer"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, c.DueForFlush("writer"))

	assert.Equal(t, "first second", c.TakeBuffer("writer"))
	assert.Equal(t, "", c.TakeBuffer("writer"))
	assert.False(t, c.DueForFlush("writer"))
}

func TestCollector_EmptyBufferNeverDue(t *testing.T) {
	c := New(time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	assert.False(t, c.DueForFlush("writer"))
}

func TestCollector_BuffersIndependentPerAgent(t *testing.T) {
	c := New(time.Millisecond)

	c.AppendText("writer", "text a")
	c.AppendText("reviewer", "text b")

	assert.Equal(t, "text a", c.TakeBuffer("writer"))
	assert.Equal(t, "text b", c.TakeBuffer("reviewer"))
}

func TestCollector_HandleFoldsEnvelopeIntoState(t *testing.T) {
	c := New(time.Millisecond)
	ctx := context.Background()

	err := c.Handle(ctx, models.Envelope{
		AgentType: "writer",
		Content:   "drafting chapter one",
		Result:    map[string]interface{}{"chapter": 1},
		Platform:  "docs",
	}, "writer-s1")
	require.NoError(t, err)

	err = c.Handle(ctx, models.Envelope{
		AgentType: "writer",
		Content:   "done",
		Result:    map[string]interface{}{"pages": 3},
		IsFinal:   true,
	}, "writer-s1")
	require.NoError(t, err)

	snap := c.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "docs", snap.Items[0].Platform)
	assert.Equal(t, map[string]interface{}{"pages": 3}, snap.Results["writer"])
	assert.Equal(t, "drafting chapter onedone", c.TakeBuffer("writer"))
}

func TestCollector_ReceivesPublishedEnvelopes(t *testing.T) {
	c := New(time.Millisecond)
	memBus := bus.NewMemoryBus(logger.NopLogger())
	c.Attach(memBus)

	env := models.Envelope{AgentType: "writer", Content: "hello"}
	require.NoError(t, memBus.Publish(context.Background(), constants.TopicAgentMessages, env, "writer-s1"))

	assert.Equal(t, "hello", c.TakeBuffer("writer"))
}

func TestCollector_ClearResetsEverything(t *testing.T) {
	c := New(0)

	c.SetResult("title", "Draft")
	c.AddItem("section", "docs")
	c.SetMetadata("requested_by", "scheduler")
	c.AppendText("writer", "pending text")

	c.Clear()

	snap := c.Snapshot()
	assert.Empty(t, snap.Results)
	assert.Empty(t, snap.Items)
	assert.Empty(t, snap.Metadata)
	assert.Equal(t, "", c.TakeBuffer("writer"))
}
