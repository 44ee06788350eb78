package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/dshills/codesync/internal/remote"
	"github.com/dshills/codesync/pkg/types"
)

// Search cache sizing.
const (
	searchCacheSize = 256
	searchCacheTTL  = 30 * time.Second
)

// Search runs a semantic query against the remote index, preferring the
// current branch and falling back to base. On feature branches the
// locally-deleted file set rides along so the server can mask results
// from files that no longer exist here.
func (e *Engine) Search(ctx context.Context, query, path string) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.ErrEmptyQuery
	}

	branch, err := e.git.CurrentBranch(ctx, e.cfg.Workspace)
	if err != nil {
		return nil, err
	}
	base := e.git.BaseBranch(ctx, e.cfg.Workspace)

	excludeFiles := e.excludedFiles(ctx, branch, base)

	key := searchKey(query, branch, path, excludeFiles)
	if results, ok := e.searches.get(key); ok {
		return results, nil
	}

	results, err := e.remote.Search(ctx, remote.SearchRequest{
		Query:          query,
		PreferBranch:   branch,
		FallbackBranch: base,
		ExcludeFiles:   excludeFiles,
		Path:           path,
	})
	if err != nil {
		return nil, err
	}

	e.searches.set(key, results)
	return results, nil
}

// excludedFiles computes the deleted-file mask for a search. Base
// branches exclude nothing. Feature branches combine the committed
// deletions from the diff with the live deletions the watcher has
// recorded; git errors degrade to no exclusions rather than failing the
// search.
func (e *Engine) excludedFiles(ctx context.Context, branch, base string) []string {
	if e.git.IsBaseBranch(ctx, branch, e.cfg.Workspace) {
		return []string{}
	}

	seen := make(map[string]bool)
	excluded := []string{}

	diff, err := e.git.Diff(ctx, branch, base, e.cfg.Workspace)
	if err != nil {
		e.logger.Warn("diff failed, searching without committed exclusions",
			zap.String("branch", branch), zap.Error(err))
	} else {
		for _, f := range diff.Deleted {
			if !seen[f] {
				seen[f] = true
				excluded = append(excluded, f)
			}
		}
	}

	cc := e.store.Load(e.cfg.Workspace, branch)
	for _, f := range cc.DeletedFiles {
		if !seen[f] {
			seen[f] = true
			excluded = append(excluded, f)
		}
	}

	return excluded
}

func searchKey(query, branch, path string, excludeFiles []string) string {
	h := sha256.Sum256([]byte(query + "|" + branch + "|" + path + "|" + strings.Join(excludeFiles, ",")))
	return hex.EncodeToString(h[:])
}

// searchEntry is one cached response with its expiry.
type searchEntry struct {
	results   []types.SearchResult
	expiresAt time.Time
}

// searchCache is a small TTL'd LRU over remote search responses. Any
// index mutation purges it wholesale.
type searchCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, searchEntry]
}

func newSearchCache() *searchCache {
	c, err := lru.New[string, searchEntry](searchCacheSize)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &searchCache{cache: c}
}

func (s *searchCache) get(key string) ([]types.SearchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		s.cache.Remove(key)
		return nil, false
	}
	return entry.results, true
}

func (s *searchCache) set(key string, results []types.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Add(key, searchEntry{
		results:   results,
		expiresAt: time.Now().Add(searchCacheTTL),
	})
}

func (s *searchCache) purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}
