package scanner

import (
	"context"
	"fmt"
	"os"

	"github.com/dshills/codesync/internal/cache"
	"github.com/dshills/codesync/internal/chunker"
)

// IndexFile re-reads relPath, removes its prior chunks server-side, and
// uploads fresh ones. The delete-first step matters for live edits: a
// line shift changes every following chunk's range, and without it the
// old ranges would linger in the index. Returns chunks uploaded.
func (s *Scanner) IndexFile(ctx context.Context, cc *cache.ClientCache, relPath, branch string, isBase bool) (int, error) {
	content, err := os.ReadFile(s.abs(relPath))
	if err != nil {
		return 0, fmt.Errorf("read failed: %w", err)
	}
	hash := chunker.FileHash(content)

	if err := s.remote.DeleteFiles(ctx, branch, []string{relPath}); err != nil {
		return 0, fmt.Errorf("stale chunk delete failed: %w", err)
	}

	return s.uploadFile(ctx, cc, relPath, branch, isBase, content, hash)
}

// DeleteFile handles a live deletion: server-side delete on the current
// branch, cache entry removal, and — on feature branches — recording the
// path so searches can mask it.
func (s *Scanner) DeleteFile(ctx context.Context, cc *cache.ClientCache, relPath, branch string, isBase bool) error {
	if err := s.remote.DeleteFiles(ctx, branch, []string{relPath}); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	s.mu.Lock()
	cc.RemoveEntry(relPath)
	if !isBase {
		cc.AddDeleted(relPath)
	}
	s.mu.Unlock()

	return nil
}

// Flush persists the client cache on behalf of a caller that just
// finished a batch.
func (s *Scanner) Flush(cc *cache.ClientCache) {
	s.flush(cc)
}
