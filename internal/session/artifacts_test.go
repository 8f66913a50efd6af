package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/logger"
)

func TestFilesystemStore_CleanupRemovesSessionDir(t *testing.T) {
	baseDir := t.TempDir()
	store := NewFilesystemStore(baseDir, logger.NopLogger())

	dir := filepath.Join(baseDir, "s1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "export.json"), []byte("{}"), 0o644))

	require.NoError(t, store.Cleanup(context.Background(), "s1"))

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestFilesystemStore_CleanupMissingDirIsNoop(t *testing.T) {
	store := NewFilesystemStore(t.TempDir(), logger.NopLogger())
	assert.NoError(t, store.Cleanup(context.Background(), "never-created"))
}

// Session ids arrive from the API path and must not be able to address
// anything outside the artifact root.
func TestFilesystemStore_CleanupRejectsTraversal(t *testing.T) {
	baseDir := t.TempDir()
	store := NewFilesystemStore(filepath.Join(baseDir, "artifacts"), logger.NopLogger())

	outside := filepath.Join(baseDir, "outside")
	require.NoError(t, os.MkdirAll(outside, 0o755))

	for _, id := range []string{"", "../outside", "..", "a/b", `a\b`} {
		assert.Error(t, store.Cleanup(context.Background(), id), "id %q", id)
	}

	_, err := os.Stat(outside)
	assert.NoError(t, err)
}
