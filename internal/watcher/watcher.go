package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// EventType classifies a filesystem event.
type EventType int

const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
)

// DefaultDebounce is the quiet period before a batch is processed.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes one debounced batch, one file at a time. Deletes are
// delivered before creates/changes. Handlers log their own per-file
// errors; a failing file never aborts the batch.
type Handler interface {
	// HandleDelete processes a deletion of relPath.
	HandleDelete(ctx context.Context, relPath string)

	// HandleChange processes a create or content change of relPath.
	HandleChange(ctx context.Context, relPath string)

	// BatchDone runs after every file in the batch has been handled.
	BatchDone(ctx context.Context)
}

// Filter decides whether a workspace-relative path is worth watching.
type Filter func(relPath string) bool

// Config controls a Watcher.
type Config struct {
	Workspace string
	Debounce  time.Duration
}

// Watcher observes filesystem events under the workspace, debounces them
// into batches, and dispatches each batch to the handler. Batches are
// fully processed before the next batch starts.
type Watcher struct {
	fsw     *fsnotify.Watcher
	cfg     Config
	filter  Filter
	handler Handler
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards the pending queue and the debounce timer.
	mu      sync.Mutex
	pending map[string]EventType
	order   []string
	timer   *time.Timer

	// batchMu serializes batch processing: the debounce barrier.
	batchMu sync.Mutex
}

// New creates a Watcher. Call Start to begin observing.
func New(cfg Config, filter Filter, handler Handler, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		fsw:     fsw,
		cfg:     cfg,
		filter:  filter,
		handler: handler,
		logger:  logger.Named("watcher"),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]EventType),
	}, nil
}

// Start registers watches on every directory under the workspace and
// begins processing events.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.cfg.Workspace); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.processEvents()

	w.logger.Info("file watcher started", zap.String("workspace", w.cfg.Workspace))
	return nil
}

// Close cancels any pending debounce timer, unregisters subscriptions,
// and waits for in-flight processing. Idempotent.
func (w *Watcher) Close() error {
	w.cancel()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()

	// Wait for a batch mid-flight.
	w.batchMu.Lock()
	w.batchMu.Unlock() //nolint:staticcheck // barrier, not a critical section

	return err
}

// addWatches walks the workspace registering every directory, skipping
// symlink cycles.
func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if !info.IsDir() {
			return nil
		}

		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if name := info.Name(); path != root && (name == ".git" || name == "node_modules" || name == "vendor") {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}

// processEvents consumes raw fsnotify events until closed.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// handleEvent filters one raw event and enqueues it for debouncing.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(w.cfg.Workspace, event.Name)
	if err != nil {
		return
	}
	relPath = filepath.ToSlash(relPath)

	// A newly created directory needs its own watch.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory",
					zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}

	if w.filter != nil && !w.filter(relPath) {
		return
	}

	var typ EventType
	switch {
	case event.Op&fsnotify.Create != 0:
		typ = EventCreate
	case event.Op&fsnotify.Write != 0:
		typ = EventWrite
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		typ = EventRemove
	default:
		return
	}

	w.enqueue(relPath, typ)
}

// enqueue records the latest event per path and (re)arms the debounce
// timer. Repeated events on one file inside the window collapse into a
// single pipeline.
func (w *Watcher) enqueue(relPath string, typ EventType) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, seen := w.pending[relPath]; !seen {
		w.order = append(w.order, relPath)
	}
	w.pending[relPath] = typ

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, w.flush)
}

// flush snapshots the queue and processes it as one batch. batchMu keeps
// batches strictly sequential.
func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	order := w.order
	w.pending = make(map[string]EventType)
	w.order = nil
	w.mu.Unlock()

	if len(pending) == 0 || w.ctx.Err() != nil {
		return
	}

	w.batchMu.Lock()
	defer w.batchMu.Unlock()

	var deletes, changes []string
	for _, relPath := range order {
		if pending[relPath] == EventRemove {
			deletes = append(deletes, relPath)
		} else {
			changes = append(changes, relPath)
		}
	}

	w.logger.Debug("processing debounced batch",
		zap.Int("deletes", len(deletes)), zap.Int("changes", len(changes)))

	for _, relPath := range deletes {
		if w.ctx.Err() != nil {
			return
		}
		w.handler.HandleDelete(w.ctx, relPath)
	}
	for _, relPath := range changes {
		if w.ctx.Err() != nil {
			return
		}
		w.handler.HandleChange(w.ctx, relPath)
	}

	w.handler.BatchDone(w.ctx)
}
