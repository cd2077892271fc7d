// Package watch provides a debounced recursive file watcher used to re-run
// conformance checks when source files change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config configures the file watcher
type Config struct {
	// Root is the root directory to watch
	Root string

	// Extensions limits events to files with these extensions (with leading
	// dot). Empty means every file counts.
	Extensions []string

	// DebounceDelay is how long to wait for more changes before emitting a
	// batch
	DebounceDelay time.Duration

	// Logger for logging events
	Logger *slog.Logger
}

// Watcher watches a tree for source file changes and emits debounced
// batches of changed paths. Callers typically re-run the full conformance
// pipeline per batch.
type Watcher struct {
	config  Config
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	exts    map[string]bool

	// Debouncing: collect changes before emitting
	pendingMu sync.Mutex
	pending   map[string]struct{} // root-relative paths

	changes chan []string
}

// NewWatcher creates a new file watcher
func NewWatcher(config Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 250 * time.Millisecond
	}

	exts := make(map[string]bool, len(config.Extensions))
	for _, ext := range config.Extensions {
		exts[ext] = true
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  logger,
		exts:    exts,
		pending: make(map[string]struct{}),
		changes: make(chan []string, 16),
	}, nil
}

// Changes returns the channel of debounced change batches. Each batch is a
// sorted list of root-relative paths.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Start begins watching the tree for changes
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.config.Root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("File watcher started",
		"root", w.config.Root,
		"debounce", w.config.DebounceDelay)

	return nil
}

// Stop closes the underlying fs watcher. The event goroutine drains its
// closed event stream and then closes the changes channel; only the producer
// ever closes it, so a flush racing Stop cannot send on a closed channel.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// addWatchesRecursive adds watches to all directories
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		// Skip vendor and hidden directories
		base := filepath.Base(path)
		if path != root && (base == "vendor" || base == "node_modules" || strings.HasPrefix(base, ".")) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

// processEvents handles fsnotify events with debouncing. It owns the
// changes channel and closes it on exit.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.changes)

	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent processes a single fsnotify event
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	ext := filepath.Ext(path)
	if len(w.exts) > 0 && !w.exts[ext] {
		// Directory creation still needs a new watch
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	relPath, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		return
	}
	relPath = filepath.ToSlash(relPath)

	w.pendingMu.Lock()
	w.pending[relPath] = struct{}{}
	w.pendingMu.Unlock()

	w.logger.Debug("File change detected",
		"path", relPath,
		"op", event.Op.String())
}

// handleNewDirectory adds a watch to a newly created directory
func (w *Watcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if base == "vendor" || base == "node_modules" || strings.HasPrefix(base, ".") {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
	} else {
		w.logger.Debug("Added watch for new directory", "path", path)
	}
}

// flushPending emits the accumulated changes as one batch
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for p := range w.pending {
		batch = append(batch, p)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sort.Strings(batch)

	select {
	case <-ctx.Done():
	case w.changes <- batch:
		w.logger.Debug("Emitted change batch", "files", len(batch))
	default:
		w.logger.Warn("Change channel full, dropping batch", "files", len(batch))
	}
}
