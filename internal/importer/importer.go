// Package importer watches a drop directory for record files and loads them
// into the store. Files are imported once they settle (size and mtime stop
// changing), so partially copied files are never read.
package importer

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	apperrors "github.com/recall-app/recall-server/internal/errors"
	"github.com/recall-app/recall-server/internal/domain"
	"github.com/recall-app/recall-server/internal/events"
	"github.com/recall-app/recall-server/internal/id"
	"github.com/recall-app/recall-server/internal/store"
)

// DefaultSettleDelay is how long a file must stay unchanged before import.
const DefaultSettleDelay = 500 * time.Millisecond

// importRecord is one entry in an import file.
type importRecord struct {
	Tags []string `json:"tags"`
}

// Result summarizes one import run.
type Result struct {
	Imported int
	Skipped  int
}

// Options configures an Importer.
type Options struct {
	Dir         string        // Drop directory to watch
	SettleDelay time.Duration // Quiet period before a file is read
}

// Importer watches a directory and imports settled JSON files.
type Importer struct {
	store       store.RecordStore
	emitter     store.EventEmitter
	logger      *slog.Logger
	dir         string
	settleDelay time.Duration

	// onImported runs after a successful file import, typically to reload
	// the in-memory view.
	onImported func(context.Context)

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*pendingFile
	done    chan struct{}
	wg      sync.WaitGroup
}

// pendingFile tracks a file that may still be changing.
type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates an importer for the given drop directory.
func New(recordStore store.RecordStore, emitter store.EventEmitter, logger *slog.Logger, opts Options) (*Importer, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("import directory is required")
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if emitter == nil {
		emitter = store.NewNoopEmitter()
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create import dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(opts.Dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch import dir: %w", err)
	}

	return &Importer{
		store:       recordStore,
		emitter:     emitter,
		logger:      logger,
		dir:         opts.Dir,
		settleDelay: opts.SettleDelay,
		watcher:     watcher,
		pending:     make(map[string]*pendingFile),
		done:        make(chan struct{}),
	}, nil
}

// OnImported registers a callback invoked after each successful file import.
func (i *Importer) OnImported(fn func(context.Context)) {
	i.onImported = fn
}

// Start begins watching for dropped files. Blocks until ctx is canceled.
// Files already present in the directory are imported first.
func (i *Importer) Start(ctx context.Context) error {
	i.importExisting(ctx)

	i.wg.Add(1)
	go i.processEvents(ctx)

	<-ctx.Done()
	return nil
}

// Stop shuts the watcher down and cancels pending settle timers.
func (i *Importer) Stop() error {
	close(i.done)

	i.mu.Lock()
	for _, p := range i.pending {
		p.timer.Stop()
	}
	clear(i.pending)
	i.mu.Unlock()

	err := i.watcher.Close()
	i.wg.Wait()
	return err
}

// ImportFile loads one JSON file of records. Entries whose tag set already
// exists are counted as skipped, not failures. The file is removed after a
// successful run.
func (i *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	var result Result

	data, err := os.ReadFile(path)
	if err != nil {
		return result, fmt.Errorf("read import file: %w", err)
	}

	var entries []importRecord
	if err := json.Unmarshal(data, &entries); err != nil {
		return result, apperrors.Validation("import file is not a JSON array of records").WithCause(err)
	}

	i.emitter.Emit(events.NewImportStartedEvent(filepath.Base(path)))

	for _, entry := range entries {
		if len(entry.Tags) == 0 {
			result.Skipped++
			continue
		}

		recordID, err := id.Generate("rec")
		if err != nil {
			return result, err
		}
		now := time.Now()
		record := &domain.Record{
			ID:        recordID,
			Tags:      entry.Tags,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = i.store.CreateRecord(ctx, record)
		switch {
		case err == nil:
			result.Imported++
		case apperrors.Is(err, store.ErrDuplicateRecord):
			result.Skipped++
		default:
			return result, fmt.Errorf("import record: %w", err)
		}
	}

	if err := os.Remove(path); err != nil {
		i.logger.Warn("failed to remove imported file", "path", path, "error", err)
	}

	i.logger.Info("import complete",
		"file", filepath.Base(path),
		"imported", result.Imported,
		"skipped", result.Skipped)
	i.emitter.Emit(events.NewImportCompleteEvent(filepath.Base(path), result.Imported, result.Skipped))

	if i.onImported != nil {
		i.onImported(ctx)
	}
	return result, nil
}

// importExisting imports files already sitting in the drop directory.
func (i *Importer) importExisting(ctx context.Context) {
	matches, err := filepath.Glob(filepath.Join(i.dir, "*.json"))
	if err != nil {
		i.logger.Warn("failed to scan import dir", "error", err)
		return
	}
	for _, path := range matches {
		if _, err := i.ImportFile(ctx, path); err != nil {
			i.logger.Warn("failed to import existing file", "path", path, "error", err)
		}
	}
}

// processEvents consumes fsnotify events.
func (i *Importer) processEvents(ctx context.Context) {
	defer i.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-i.done:
			return
		case event, ok := <-i.watcher.Events:
			if !ok {
				return
			}
			i.handleEvent(ctx, event)
		case err, ok := <-i.watcher.Errors:
			if !ok {
				return
			}
			i.logger.Warn("watcher error", "error", err)
		}
	}
}

// handleEvent starts or restarts the settle timer for written files.
func (i *Importer) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
		return
	}

	if event.Op&fsnotify.Remove != 0 {
		i.cancelPending(event.Name)
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	i.startSettling(ctx, event.Name)
}

// startSettling begins the settling process for a file.
func (i *Importer) startSettling(ctx context.Context, path string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if p, exists := i.pending[path]; exists {
		p.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(i.pending, path)
		return
	}
	if info.IsDir() {
		return
	}

	p := &pendingFile{
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	p.timer = time.AfterFunc(i.settleDelay, func() {
		i.checkSettled(ctx, path)
	})
	i.pending[path] = p
}

// checkSettled imports the file if it has stopped changing; otherwise the
// settle timer is rearmed.
func (i *Importer) checkSettled(ctx context.Context, path string) {
	i.mu.Lock()
	p, exists := i.pending[path]
	if !exists {
		i.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(i.pending, path)
		i.mu.Unlock()
		return
	}

	if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(i.settleDelay, func() {
			i.checkSettled(ctx, path)
		})
		i.mu.Unlock()
		return
	}

	delete(i.pending, path)
	i.mu.Unlock()

	if _, err := i.ImportFile(ctx, path); err != nil {
		i.logger.Warn("import failed", "path", path, "error", err)
	}
}

// cancelPending drops the settle timer for a removed file.
func (i *Importer) cancelPending(path string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if p, exists := i.pending[path]; exists {
		p.timer.Stop()
		delete(i.pending, path)
	}
}
