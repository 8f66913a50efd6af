package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"relay/internal/logger"
	"relay/pkg/circuitbreaker"
)

// ArtifactStore is the file-storage collaborator holding generated files
// (exports, intermediate assets) for a session.
type ArtifactStore interface {
	Cleanup(ctx context.Context, sessionID string) error
}

type FilesystemStore struct {
	baseDir string
	logger  logger.Logger
}

func NewFilesystemStore(baseDir string, log logger.Logger) *FilesystemStore {
	return &FilesystemStore{baseDir: baseDir, logger: log}
}

func (s *FilesystemStore) Cleanup(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	// Session ids come straight from the API path; keep them inside baseDir.
	if strings.Contains(sessionID, "..") || strings.ContainsAny(sessionID, `/\`) {
		return fmt.Errorf("invalid session id %q", sessionID)
	}

	dir := filepath.Join(s.baseDir, sessionID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove artifact dir %s: %w", dir, err)
	}

	s.logger.Debugw("Artifact directory removed", "session_id", sessionID, "dir", dir)
	return nil
}

// BreakerStore shields the registry's cleanup path from a flapping artifact
// backend: once the breaker opens, cleanups fail fast instead of stalling
// the expiry sweep.
type BreakerStore struct {
	inner   ArtifactStore
	breaker *circuitbreaker.Wrapper
}

func NewBreakerStore(inner ArtifactStore) *BreakerStore {
	return &BreakerStore{
		inner:   inner,
		breaker: circuitbreaker.NewWrapper(circuitbreaker.DefaultConfig("artifact-store")),
	}
}

func (s *BreakerStore) Cleanup(ctx context.Context, sessionID string) error {
	_, err := s.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, s.inner.Cleanup(ctx, sessionID)
	})
	return err
}
