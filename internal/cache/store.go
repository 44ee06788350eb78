package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Store reads and writes per-(workspace, branch) cache documents inside a
// host-provided global-storage directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger.Named("cache")}
}

// Path returns the cache file path for a workspace/branch pair. Both
// parts are hashed so arbitrary paths and branch names stay
// filesystem-safe.
func (s *Store) Path(workspace, branch string) string {
	name := fmt.Sprintf("managed-index-cache-%s-%s.json",
		hashHex(workspace), hashHex(branch))
	return filepath.Join(s.dir, name)
}

func hashHex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Load reads the cache for workspace/branch. Any failure — missing file,
// corrupt JSON, branch mismatch — yields a fresh empty cache for the
// branch.
func (s *Store) Load(workspace, branch string) *ClientCache {
	data, err := os.ReadFile(s.Path(workspace, branch))
	if err != nil {
		return Empty(branch)
	}

	var c ClientCache
	if err := json.Unmarshal(data, &c); err != nil {
		s.logger.Warn("discarding corrupt cache file",
			zap.String("branch", branch), zap.Error(err))
		return Empty(branch)
	}

	if c.GitBranch == "" || c.Files == nil {
		return Empty(branch)
	}
	if c.GitBranch != branch {
		s.logger.Warn("cache branch mismatch, starting fresh",
			zap.String("cached", c.GitBranch), zap.String("current", branch))
		return Empty(branch)
	}

	if c.DeletedFiles == nil {
		c.DeletedFiles = []string{}
	}

	return &c
}

// Save writes the cache atomically: temp file, fsync, rename. Save
// failures are logged and swallowed — a stale cache costs a re-scan, not
// correctness.
func (s *Store) Save(workspace string, c *ClientCache) {
	if err := s.save(workspace, c); err != nil {
		s.logger.Warn("failed to save client cache",
			zap.String("branch", c.GitBranch), zap.Error(err))
	}
}

func (s *Store) save(workspace string, c *ClientCache) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	target := s.Path(workspace, c.GitBranch)

	tmp, err := os.CreateTemp(s.dir, "cache-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}

	return nil
}

// Remove deletes the cache file for workspace/branch. Used by Clear.
func (s *Store) Remove(workspace, branch string) {
	if err := os.Remove(s.Path(workspace, branch)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove cache file",
			zap.String("branch", branch), zap.Error(err))
	}
}
