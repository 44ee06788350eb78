package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dshills/codesync/internal/cache"
	"github.com/dshills/codesync/internal/chunker"
	"github.com/dshills/codesync/pkg/types"
)

// Git is the subset of git probe operations the scanner consumes.
type Git interface {
	CurrentBranch(ctx context.Context, ws string) (string, error)
	BaseBranch(ctx context.Context, ws string) string
	IsBaseBranch(ctx context.Context, name, ws string) bool
	TrackedFiles(ctx context.Context, ws string) ([]string, error)
	Diff(ctx context.Context, feature, base, ws string) (*types.Diff, error)
}

// Remote is the subset of remote client operations the scanner consumes.
type Remote interface {
	Upsert(ctx context.Context, chunks []types.Chunk) error
	DeleteFiles(ctx context.Context, branch string, filePaths []string) error
}

// Config controls one reconciliation pass.
type Config struct {
	Workspace      string
	OrganizationID string
	ProjectID      string

	Extensions   []string
	ExcludeGlobs []string

	// Concurrency caps simultaneous per-file pipelines.
	Concurrency int

	// BatchSize caps chunks per upsert call.
	BatchSize int

	// FlushEvery flushes the client cache after this many file updates.
	FlushEvery int
}

// Progress is invoked after each candidate file is handled.
type Progress func(filesProcessed, totalFiles, chunksIndexed int)

// Scanner performs reconciliation passes: it compares the local tree, the
// client cache, and the server manifest, and uploads whatever the server
// is missing.
type Scanner struct {
	git     Git
	remote  Remote
	store   *cache.Store
	chunker *chunker.Chunker
	cfg     Config
	logger  *zap.Logger

	// mu serializes client-cache mutations from per-file pipelines.
	mu sync.Mutex
}

// New creates a Scanner.
func New(git Git, remote Remote, store *cache.Store, ch *chunker.Chunker, cfg Config, logger *zap.Logger) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 60
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		git:     git,
		remote:  remote,
		store:   store,
		chunker: ch,
		cfg:     cfg,
		logger:  logger.Named("scanner"),
	}
}

// Scan runs one reconciliation pass against cc and the optional server
// manifest. Per-file failures are collected, not fatal; the returned
// error is reserved for failures that block the pass entirely (branch
// discovery, diff computation).
func (s *Scanner) Scan(ctx context.Context, cc *cache.ClientCache, manifest *types.Manifest, progress Progress) (*types.ScanResult, error) {
	branch, err := s.git.CurrentBranch(ctx, s.cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("branch discovery failed: %w", err)
	}
	isBase := s.git.IsBaseBranch(ctx, branch, s.cfg.Workspace)

	candidates, err := s.enumerate(ctx, cc, branch, isBase)
	if err != nil {
		return nil, err
	}

	result := &types.ScanResult{}
	manifestFiles := manifest.FileMap()

	var (
		processed int
		chunks    int
		pending   int // cache updates since last flush
		resultMu  sync.Mutex
	)

	sem := semaphore.NewWeighted(int64(s.cfg.Concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for _, relPath := range candidates {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		g.Go(func() error {
			defer sem.Release(1)

			n, err := s.reconcileFile(gctx, cc, manifestFiles, relPath, branch, isBase)

			resultMu.Lock()
			processed++
			chunks += n
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", relPath, err))
			}
			pending++
			flush := pending >= s.cfg.FlushEvery
			if flush {
				pending = 0
			}
			p, c := processed, chunks
			resultMu.Unlock()

			if flush {
				s.flush(cc)
			}
			if progress != nil {
				progress(p, len(candidates), c)
			}
			return nil
		})
	}

	_ = g.Wait()
	if ctx.Err() != nil {
		s.flush(cc)
		return nil, ctx.Err()
	}

	// Base-branch deletion detection: files the manifest knows but the
	// local tree no longer has are stale server-side.
	if isBase && manifest != nil {
		if err := s.deleteVanished(ctx, cc, manifest, candidates, branch); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("deletion detection: %v", err))
		}
	}

	s.flush(cc)

	result.FilesProcessed = processed
	result.ChunksIndexed = chunks
	result.Success = len(result.Errors) == 0
	return result, nil
}

// enumerate produces the ordered candidate list for the pass. On the base
// branch that is every supported tracked file; on a feature branch it is
// the files added or modified relative to base, with deletions recorded
// into the client cache.
func (s *Scanner) enumerate(ctx context.Context, cc *cache.ClientCache, branch string, isBase bool) ([]string, error) {
	if isBase {
		tracked, err := s.git.TrackedFiles(ctx, s.cfg.Workspace)
		if err != nil {
			return nil, fmt.Errorf("file enumeration failed: %w", err)
		}
		return s.filterSupported(tracked), nil
	}

	base := s.git.BaseBranch(ctx, s.cfg.Workspace)
	diff, err := s.git.Diff(ctx, branch, base, s.cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("diff against %s failed: %w", base, err)
	}

	// Deletions update the client cache only. Feature-branch chunks for
	// these files may never have existed server-side; the deleted set is
	// transmitted at query time instead.
	s.mu.Lock()
	for _, deleted := range diff.Deleted {
		cc.AddDeleted(deleted)
		cc.RemoveEntry(deleted)
	}
	s.mu.Unlock()

	return s.filterSupported(diff.Changed()), nil
}

// reconcileFile is the three-way decision for one candidate: skip when
// the cache already has its hash, adopt the manifest entry when the
// server already has it, upload otherwise. Returns chunks uploaded.
func (s *Scanner) reconcileFile(ctx context.Context, cc *cache.ClientCache, manifestFiles map[string]types.ManifestFile, relPath, branch string, isBase bool) (int, error) {
	content, err := os.ReadFile(s.abs(relPath))
	if err != nil {
		return 0, fmt.Errorf("read failed: %w", err)
	}
	hash := chunker.FileHash(content)

	s.mu.Lock()
	needsIndex := cc.ShouldIndex(relPath, hash)
	s.mu.Unlock()
	if !needsIndex {
		return 0, nil
	}

	// Cross-client coordination: another client already uploaded this
	// exact content.
	if entry, ok := manifestFiles[relPath]; ok && entry.FileHash == hash {
		s.mu.Lock()
		cc.UpdateEntry(relPath, hash, entry.ChunkCount)
		cc.RemoveDeleted(relPath)
		s.mu.Unlock()
		return 0, nil
	}

	return s.uploadFile(ctx, cc, relPath, branch, isBase, content, hash)
}

// uploadFile chunks content and ships it in batches, then records the
// file in the client cache.
func (s *Scanner) uploadFile(ctx context.Context, cc *cache.ClientCache, relPath, branch string, isBase bool, content []byte, hash string) (int, error) {
	fileChunks := s.chunker.Chunk(chunker.FileContext{
		FilePath:       relPath,
		OrganizationID: s.cfg.OrganizationID,
		ProjectID:      s.cfg.ProjectID,
		GitBranch:      branch,
		IsBaseBranch:   isBase,
	}, string(content))

	if len(fileChunks) == 0 {
		// Below the chunker's minimum; record the hash anyway so
		// re-scans stay idempotent.
		s.logger.Debug("file too small to chunk", zap.String("file", relPath))
	}

	for start := 0; start < len(fileChunks); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(fileChunks))
		if err := s.remote.Upsert(ctx, fileChunks[start:end]); err != nil {
			return 0, fmt.Errorf("upsert failed: %w", err)
		}
	}

	s.mu.Lock()
	cc.UpdateEntry(relPath, hash, len(fileChunks))
	cc.RemoveDeleted(relPath)
	s.mu.Unlock()

	return len(fileChunks), nil
}

// deleteVanished removes from the server any manifest file absent from
// the live listing.
func (s *Scanner) deleteVanished(ctx context.Context, cc *cache.ClientCache, manifest *types.Manifest, local []string, branch string) error {
	live := make(map[string]bool, len(local))
	for _, f := range local {
		live[f] = true
	}

	var vanished []string
	for _, f := range manifest.Files {
		if !live[f.FilePath] {
			vanished = append(vanished, f.FilePath)
		}
	}
	if len(vanished) == 0 {
		return nil
	}
	sort.Strings(vanished)

	if err := s.remote.DeleteFiles(ctx, branch, vanished); err != nil {
		return err
	}

	s.mu.Lock()
	for _, f := range vanished {
		cc.RemoveEntry(f)
	}
	s.mu.Unlock()

	s.logger.Info("removed vanished files from index",
		zap.Int("count", len(vanished)), zap.String("branch", branch))
	return nil
}

// flush persists the client cache; save errors are logged downstream and
// never fail a scan.
func (s *Scanner) flush(cc *cache.ClientCache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Save(s.cfg.Workspace, cc)
}

// filterSupported keeps paths whose extension is on the allow-list and
// which no exclude glob matches.
func (s *Scanner) filterSupported(paths []string) []string {
	var kept []string
	for _, p := range paths {
		if s.Supported(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

// Supported reports whether relPath passes the extension allow-list and
// the exclude globs.
func (s *Scanner) Supported(relPath string) bool {
	ext := strings.ToLower(filepath.Ext(relPath))
	if ext == "" {
		return false
	}

	found := false
	for _, allowed := range s.cfg.Extensions {
		if ext == allowed {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	for _, pattern := range s.cfg.ExcludeGlobs {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return false
		}
	}

	return true
}

// abs converts a workspace-relative forward-slash path to an absolute
// host path.
func (s *Scanner) abs(relPath string) string {
	return filepath.Join(s.cfg.Workspace, filepath.FromSlash(relPath))
}
