// Package scheduler tracks modified notes and drives debounced reindexing.
//
// Per-path state machine: Unqueued -> Queued(timestamp) -> Processing ->
// Unqueued. File events queue a path (refreshing its timestamp), the periodic
// tick or an explicit flush processes queued entries, and a rename moves the
// queue entry to the new path while its index entry is dropped.
package scheduler

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/notevault/vaultindex/internal/config"
	"go.uber.org/zap"
)

// minDebounce is the floor for the debounce window regardless of the
// configured update frequency, protecting the embedding backend from rapid
// edit storms.
const minDebounce = 5 * time.Second

// Indexer is the slice of the index store the scheduler drives.
type Indexer interface {
	ReindexFile(ctx context.Context, path string) error
	RemoveFromIndex(path string)
	SaveToFile() error
}

// Scheduler owns the pending-files map. Nobody else mutates it.
type Scheduler struct {
	indexer  Indexer
	update   config.UpdateConfig
	vault    config.VaultConfig
	logger   *zap.Logger
	debounce time.Duration
	now      func() time.Time

	mu         sync.Mutex
	pending    map[string]time.Time
	processing map[string]bool

	rescanMu   sync.Mutex
	rescanning bool

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source; for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a scheduler driving idx per the update config.
func NewScheduler(idx Indexer, cfg *config.Config, logger *zap.Logger, opts ...Option) *Scheduler {
	debounce := time.Duration(cfg.Update.FrequencySeconds) * time.Second
	if debounce < minDebounce {
		debounce = minDebounce
	}
	update := cfg.Update
	if update.RescanBatchSize < 1 {
		update.RescanBatchSize = 1
	}
	s := &Scheduler{
		indexer:    idx,
		update:     update,
		vault:      cfg.Vault,
		logger:     logger,
		debounce:   debounce,
		now:        time.Now,
		pending:    make(map[string]time.Time),
		processing: make(map[string]bool),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Debounce returns the effective debounce window.
func (s *Scheduler) Debounce() time.Duration {
	return s.debounce
}

// Start begins automatic processing per the update mode: a tick loop for
// onUpdate, a single vault rescan for onLoad, nothing for none. Manual
// Flush and RescanVault work in every mode.
func (s *Scheduler) Start(ctx context.Context) {
	switch s.update.Mode {
	case config.UpdateModeOnUpdate:
		go s.run(ctx)
	case config.UpdateModeOnLoad:
		s.RescanVault(ctx)
	}
}

// Stop halts the tick loop. In-flight work is not interrupted; call Flush
// first to drain.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.debounce)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.processDue(ctx, false)
		}
	}
}

// QueueFile marks path as modified, refreshing its timestamp if already
// queued. Files without an eligible note extension are ignored.
func (s *Scheduler) QueueFile(path string) {
	if !s.eligible(path) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[path] = s.now()
}

// RemoveFile drops path from the queue and from the index. Idempotent.
func (s *Scheduler) RemoveFile(path string) {
	s.mu.Lock()
	delete(s.pending, path)
	s.mu.Unlock()
	s.indexer.RemoveFromIndex(path)
	if err := s.indexer.SaveToFile(); err != nil {
		s.logger.Warn("snapshot save after remove failed", zap.String("note", path), zap.Error(err))
	}
}

// TransferModifiedFile handles a rename: the old path's queue and index
// entries are removed and the new path takes over the queue slot, keeping the
// original queued timestamp when one exists. A rename is delete+create, never
// update-in-place.
func (s *Scheduler) TransferModifiedFile(oldPath, newPath string) {
	s.mu.Lock()
	queuedAt, wasQueued := s.pending[oldPath]
	delete(s.pending, oldPath)
	if !wasQueued {
		queuedAt = s.now()
	}
	if s.eligible(newPath) {
		s.pending[newPath] = queuedAt
	}
	s.mu.Unlock()
	s.indexer.RemoveFromIndex(oldPath)
}

// HasModifiedFile reports whether path is queued for reindexing.
func (s *Scheduler) HasModifiedFile(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[path]
	return ok
}

// QueuedAt returns the queue timestamp for path, if queued.
func (s *Scheduler) QueuedAt(path string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.pending[path]
	return ts, ok
}

// PendingCount returns the number of queued paths.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush force-drains the pending queue synchronously, regardless of debounce
// age or update mode. Returns the number of paths processed. Intended for
// teardown and for explicit user action.
func (s *Scheduler) Flush(ctx context.Context) int {
	return s.processDue(ctx, true)
}

// processDue moves queued entries whose age exceeds the debounce window (or
// all entries, when force is set) through Processing and back to Unqueued.
// Errors are logged, not retried; the entry leaves the queue regardless.
func (s *Scheduler) processDue(ctx context.Context, force bool) int {
	now := s.now()
	s.mu.Lock()
	due := make([]string, 0, len(s.pending))
	for path, queuedAt := range s.pending {
		if s.processing[path] {
			continue
		}
		if force || now.Sub(queuedAt) >= s.debounce {
			due = append(due, path)
			s.processing[path] = true
			delete(s.pending, path)
		}
	}
	s.mu.Unlock()

	if len(due) == 0 {
		return 0
	}
	for _, path := range due {
		if err := s.indexer.ReindexFile(ctx, path); err != nil {
			s.logger.Warn("reindex failed", zap.String("note", path), zap.Error(err))
		}
		s.mu.Lock()
		delete(s.processing, path)
		s.mu.Unlock()
	}
	if err := s.indexer.SaveToFile(); err != nil {
		s.logger.Warn("snapshot save failed", zap.Error(err))
	}
	return len(due)
}

// RescanVault walks every vault directory and reindexes eligible files in
// small batches, bounding concurrent embedding load. Fire-and-forget: the
// walk runs in its own goroutine and at most one rescan is in flight.
func (s *Scheduler) RescanVault(ctx context.Context) {
	s.rescanMu.Lock()
	if s.rescanning {
		s.rescanMu.Unlock()
		s.logger.Debug("rescan already in progress, ignoring")
		return
	}
	s.rescanning = true
	s.rescanMu.Unlock()

	go func() {
		defer func() {
			s.rescanMu.Lock()
			s.rescanning = false
			s.rescanMu.Unlock()
		}()
		s.rescan(ctx)
	}()
}

func (s *Scheduler) rescan(ctx context.Context) {
	rescanID := uuid.New().String()[:8]
	start := s.now()
	var files []string
	for _, root := range s.vault.Directories {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if !s.vault.RecursiveOrDefault() && path != filepath.Clean(root) {
					return fs.SkipDir
				}
				return nil
			}
			if s.eligible(path) {
				files = append(files, path)
			}
			return nil
		})
	}
	s.logger.Info("vault rescan started",
		zap.String("rescan_id", rescanID),
		zap.Int("files", len(files)),
		zap.Int("batch_size", s.update.RescanBatchSize),
	)

	indexed, failed := 0, 0
	for batchStart := 0; batchStart < len(files); batchStart += s.update.RescanBatchSize {
		if ctx.Err() != nil {
			s.logger.Warn("vault rescan cancelled", zap.String("rescan_id", rescanID))
			return
		}
		end := batchStart + s.update.RescanBatchSize
		if end > len(files) {
			end = len(files)
		}
		for _, path := range files[batchStart:end] {
			if err := s.indexer.ReindexFile(ctx, path); err != nil {
				failed++
				s.logger.Warn("rescan reindex failed",
					zap.String("rescan_id", rescanID), zap.String("note", path), zap.Error(err))
				continue
			}
			indexed++
		}
		if err := s.indexer.SaveToFile(); err != nil {
			s.logger.Warn("snapshot save failed", zap.String("rescan_id", rescanID), zap.Error(err))
		}
	}
	s.logger.Info("vault rescan finished",
		zap.String("rescan_id", rescanID),
		zap.Int("indexed", indexed),
		zap.Int("failed", failed),
		zap.Duration("elapsed", s.now().Sub(start)),
	)
}

func (s *Scheduler) eligible(path string) bool {
	if len(s.vault.Extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range s.vault.Extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
