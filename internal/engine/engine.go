package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/codesync/internal/cache"
	"github.com/dshills/codesync/internal/chunker"
	"github.com/dshills/codesync/internal/config"
	"github.com/dshills/codesync/internal/remote"
	"github.com/dshills/codesync/internal/scanner"
	"github.com/dshills/codesync/internal/watcher"
	"github.com/dshills/codesync/pkg/types"
)

// Git is the git context the engine needs.
type Git interface {
	scanner.Git
	IsRepo(ctx context.Context, ws string) bool
}

// Remote is the full remote surface the engine needs.
type Remote interface {
	scanner.Remote
	Search(ctx context.Context, req remote.SearchRequest) ([]types.SearchResult, error)
	Manifest(ctx context.Context, branch string) (*types.Manifest, error)
	DeleteBranch(ctx context.Context, branch string) error
	DeleteProject(ctx context.Context) error
}

// StateFunc receives lifecycle state events.
type StateFunc func(types.IndexerState)

// Engine is the public indexing/search API. It owns the client cache
// handle and the watcher registration; the remote client is stateless
// and shared.
type Engine struct {
	cfg     *config.Config
	git     Git
	remote  Remote
	store   *cache.Store
	scanner *scanner.Scanner
	logger  *zap.Logger

	searches *searchCache

	// mu guards the active handle.
	mu     sync.Mutex
	active *Handle
}

// New wires an Engine from its collaborators.
func New(cfg *config.Config, git Git, rc Remote, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	store := cache.NewStore(cfg.StorageDir, logger)

	ch := chunker.New(chunker.Config{
		MaxChars:     cfg.Chunking.MaxChars,
		MinChars:     cfg.Chunking.MinChars,
		OverlapLines: cfg.Chunking.OverlapLines,
	})

	sc := scanner.New(git, rc, store, ch, scanner.Config{
		Workspace:      cfg.Workspace,
		OrganizationID: cfg.OrganizationID,
		ProjectID:      cfg.ProjectID,
		Extensions:     cfg.Scan.Extensions,
		ExcludeGlobs:   cfg.Scan.ExcludeGlobs,
		Concurrency:    cfg.Scan.Concurrency,
		BatchSize:      cfg.Remote.BatchSize,
		FlushEvery:     cfg.Scan.FlushEvery,
	}, logger)

	return &Engine{
		cfg:      cfg,
		git:      git,
		remote:   rc,
		store:    store,
		scanner:  sc,
		logger:   logger.Named("engine"),
		searches: newSearchCache(),
	}
}

// Handle represents one active indexing session. Disposal stops the
// watcher, flushes the cache, and emits the terminal idle state exactly
// once.
type Handle struct {
	eng     *Engine
	cancel  context.CancelFunc
	watcher *watcher.Watcher
	cc      *cache.ClientCache
	branch  string
	onState StateFunc
	once    sync.Once
}

// Stop disposes the handle. Idempotent.
func (h *Handle) Stop() {
	h.once.Do(func() {
		h.cancel()
		if h.watcher != nil {
			if err := h.watcher.Close(); err != nil {
				h.eng.logger.Warn("watcher close failed", zap.Error(err))
			}
		}
		h.eng.scanner.Flush(h.cc)

		h.eng.mu.Lock()
		if h.eng.active == h {
			h.eng.active = nil
		}
		h.eng.mu.Unlock()

		h.emit(types.IndexerState{
			Status:    types.StatusIdle,
			Message:   "Indexing stopped",
			GitBranch: h.branch,
		})
	})
}

func (h *Handle) emit(state types.IndexerState) {
	if h.onState != nil {
		h.onState(state)
	}
}

// Start validates the workspace, reconciles it against the remote index,
// and installs the file watcher. The returned Handle must be stopped to
// release the watcher.
func (e *Engine) Start(ctx context.Context, onState StateFunc) (*Handle, error) {
	emit := func(state types.IndexerState) {
		if onState != nil {
			onState(state)
		}
	}

	if !e.git.IsRepo(ctx, e.cfg.Workspace) {
		emit(types.IndexerState{
			Status:  types.StatusError,
			Message: "Workspace is not a git repository",
			Err:     types.ErrNotARepo,
		})
		return nil, types.ErrNotARepo
	}

	branch, err := e.git.CurrentBranch(ctx, e.cfg.Workspace)
	if err != nil {
		return nil, e.fail(emit, "Branch discovery failed", err)
	}

	manifest, err := e.remote.Manifest(ctx, branch)
	if err != nil {
		return nil, e.fail(emit, "Failed to fetch server manifest", err)
	}

	cc := e.store.Load(e.cfg.Workspace, branch)

	emit(types.IndexerState{
		Status:    types.StatusScanning,
		Message:   "Scanning workspace",
		GitBranch: branch,
	})

	result, err := e.scanner.Scan(ctx, cc, manifest, func(processed, total, chunks int) {
		emit(types.IndexerState{
			Status:    types.StatusScanning,
			Message:   fmt.Sprintf("Scanning: %d/%d files (%d chunks)", processed, total, chunks),
			GitBranch: branch,
		})
	})
	if err != nil {
		return nil, e.fail(emit, "Scan failed", err)
	}
	if !result.Success {
		e.logger.Warn("scan finished with errors",
			zap.Int("errors", len(result.Errors)), zap.String("branch", branch))
	}

	e.searches.purge()

	runCtx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		eng:     e,
		cancel:  cancel,
		cc:      cc,
		branch:  branch,
		onState: onState,
	}

	if result.FilesProcessed == 0 && result.ChunksIndexed == 0 {
		message := "No files indexed"
		if errs := summarize(result.Errors); errs != "" {
			message += ": " + errs
		}
		emit(types.IndexerState{
			Status:    types.StatusIdle,
			Message:   message,
			GitBranch: branch,
		})
		e.setActive(h)
		return h, nil
	}

	if e.cfg.Watch.Enabled {
		isBase := e.git.IsBaseBranch(ctx, branch, e.cfg.Workspace)
		w, err := watcher.New(watcher.Config{
			Workspace: e.cfg.Workspace,
			Debounce:  time.Duration(e.cfg.Watch.DebounceMs) * time.Millisecond,
		}, e.scanner.Supported, &watchHandler{
			eng:    e,
			handle: h,
			ctx:    runCtx,
			cc:     cc,
			branch: branch,
			isBase: isBase,
		}, e.logger)
		if err != nil {
			return nil, e.fail(emit, "Failed to create file watcher", err)
		}
		if err := w.Start(); err != nil {
			return nil, e.fail(emit, "Failed to start file watcher", err)
		}
		h.watcher = w
	}

	emit(e.watchingState(cc, branch))
	e.setActive(h)
	return h, nil
}

func (e *Engine) setActive(h *Handle) {
	e.mu.Lock()
	e.active = h
	e.mu.Unlock()
}

// fail logs err, emits the error state, and returns err wrapped with the
// user-facing message.
func (e *Engine) fail(emit StateFunc, message string, err error) error {
	e.logger.Error(message, zap.Error(err))
	emit(types.IndexerState{
		Status:  types.StatusError,
		Message: fmt.Sprintf("%s: %v", message, err),
		Err:     err,
	})
	return fmt.Errorf("%s: %w", message, err)
}

func (e *Engine) watchingState(cc *cache.ClientCache, branch string) types.IndexerState {
	status := types.StatusWatching
	message := "Watching for changes"
	if !e.cfg.Watch.Enabled {
		status = types.StatusIdle
		message = "Scan complete (watcher disabled)"
	}
	return types.IndexerState{
		Status:         status,
		Message:        message,
		GitBranch:      branch,
		TotalFiles:     len(cc.Files),
		TotalChunks:    cc.TotalChunks(),
		LastSyncMillis: cc.LastSyncMillis(),
	}
}

// State derives a snapshot from the persisted cache and the current
// branch without touching the network.
func (e *Engine) State(ctx context.Context) types.IndexerState {
	branch, err := e.git.CurrentBranch(ctx, e.cfg.Workspace)
	if err != nil {
		return types.IndexerState{
			Status:  types.StatusError,
			Message: fmt.Sprintf("Branch discovery failed: %v", err),
			Err:     err,
		}
	}

	cc := e.store.Load(e.cfg.Workspace, branch)
	if len(cc.Files) == 0 {
		return types.IndexerState{
			Status:    types.StatusIdle,
			Message:   "Branch not indexed; re-scan needed",
			GitBranch: branch,
		}
	}

	status := types.StatusIdle
	message := "Index is ready"
	e.mu.Lock()
	if e.active != nil && e.active.branch == branch && e.active.watcher != nil {
		status = types.StatusWatching
		message = "Watching for changes"
	}
	e.mu.Unlock()

	return types.IndexerState{
		Status:         status,
		Message:        message,
		GitBranch:      branch,
		TotalFiles:     len(cc.Files),
		TotalChunks:    cc.TotalChunks(),
		LastSyncMillis: cc.LastSyncMillis(),
	}
}

// Clear removes the current branch's index server-side and deletes the
// local cache file.
func (e *Engine) Clear(ctx context.Context) error {
	branch, err := e.git.CurrentBranch(ctx, e.cfg.Workspace)
	if err != nil {
		return fmt.Errorf("branch discovery failed: %w", err)
	}

	if err := e.remote.DeleteBranch(ctx, branch); err != nil {
		return fmt.Errorf("failed to clear branch index: %w", err)
	}

	e.store.Remove(e.cfg.Workspace, branch)
	e.searches.purge()
	e.logger.Info("cleared branch index", zap.String("branch", branch))
	return nil
}

// DeleteBranch removes the named branch's index server-side. An empty
// name means the current branch.
func (e *Engine) DeleteBranch(ctx context.Context, branch string) error {
	if branch == "" {
		var err error
		branch, err = e.git.CurrentBranch(ctx, e.cfg.Workspace)
		if err != nil {
			return fmt.Errorf("branch discovery failed: %w", err)
		}
	}

	if err := e.remote.DeleteBranch(ctx, branch); err != nil {
		return err
	}
	e.store.Remove(e.cfg.Workspace, branch)
	e.searches.purge()
	return nil
}

// DeleteProject removes the whole project index across branches.
func (e *Engine) DeleteProject(ctx context.Context) error {
	if err := e.remote.DeleteProject(ctx); err != nil {
		return err
	}
	if branch, err := e.git.CurrentBranch(ctx, e.cfg.Workspace); err == nil {
		e.store.Remove(e.cfg.Workspace, branch)
	}
	e.searches.purge()
	return nil
}

// summarize renders at most five error strings plus a count suffix.
func summarize(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	shown := errs
	if len(shown) > 5 {
		shown = shown[:5]
	}
	msg := ""
	for i, e := range shown {
		if i > 0 {
			msg += "; "
		}
		msg += e
	}
	if extra := len(errs) - len(shown); extra > 0 {
		msg += fmt.Sprintf(" (and %d more)", extra)
	}
	return msg
}

// watchHandler adapts the scanner's per-file operations to watcher
// batches.
type watchHandler struct {
	eng    *Engine
	handle *Handle
	ctx    context.Context
	cc     *cache.ClientCache
	branch string
	isBase bool
}

func (wh *watchHandler) HandleDelete(_ context.Context, relPath string) {
	if err := wh.eng.scanner.DeleteFile(wh.ctx, wh.cc, relPath, wh.branch, wh.isBase); err != nil {
		wh.eng.logger.Warn("watch delete failed",
			zap.String("file", relPath), zap.Error(err))
	}
}

func (wh *watchHandler) HandleChange(_ context.Context, relPath string) {
	if _, err := wh.eng.scanner.IndexFile(wh.ctx, wh.cc, relPath, wh.branch, wh.isBase); err != nil {
		wh.eng.logger.Warn("watch reindex failed",
			zap.String("file", relPath), zap.Error(err))
	}
}

func (wh *watchHandler) BatchDone(_ context.Context) {
	wh.eng.scanner.Flush(wh.cc)
	wh.eng.searches.purge()
	wh.handle.emit(types.IndexerState{
		Status:         types.StatusWatching,
		Message:        "Watching for changes",
		GitBranch:      wh.branch,
		TotalFiles:     len(wh.cc.Files),
		TotalChunks:    wh.cc.TotalChunks(),
		LastSyncMillis: wh.cc.LastSyncMillis(),
	})
}

var _ watcher.Handler = (*watchHandler)(nil)
