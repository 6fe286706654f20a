// Package store provides the IndexStore: chunking, embedding, and persistence
// orchestration around the in-memory vector index.
package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/notevault/vaultindex/internal/config"
	"github.com/notevault/vaultindex/internal/embedding"
	"github.com/notevault/vaultindex/internal/extract"
	"github.com/notevault/vaultindex/internal/models"
	"github.com/notevault/vaultindex/internal/query"
	"github.com/notevault/vaultindex/internal/vector"
	"go.uber.org/zap"
)

// IndexStore owns the canonical path -> NoteEmbedding mapping and orchestrates
// chunking, embedding, search, and snapshot persistence. All mutations go
// through its methods; callers never touch the underlying maps.
type IndexStore struct {
	cfg       *config.Config
	logger    *zap.Logger
	chunker   *Chunker
	extractor *extract.Extractor
	queries   *query.Processor
	index     *vector.Index
	provider  embedding.Provider

	// Single-flight initialization guard: at most one init sequence runs; a
	// concurrent caller awaits the in-flight outcome. On failure the guard
	// resets so a later caller may retry.
	initMu   sync.Mutex
	initDone bool
	initErr  error
	initCh   chan struct{}

	saveMu sync.Mutex
}

// Option configures an IndexStore.
type Option func(*IndexStore)

// WithProvider injects an embedding provider, bypassing construction from
// config during Initialize. Used by tests and embedding hosts.
func WithProvider(p embedding.Provider) Option {
	return func(s *IndexStore) { s.provider = p }
}

// NewIndexStore creates a store. Call Initialize before indexing or searching.
func NewIndexStore(cfg *config.Config, logger *zap.Logger, opts ...Option) (*IndexStore, error) {
	ix, err := vector.New(cfg.Provider.Dimensions, vector.ScoringConfig{
		TitleBoost:        cfg.Search.TitleBoost,
		MaxRecencyBoost:   cfg.Search.MaxRecencyBoost,
		RecencyWindowDays: cfg.Search.RecencyWindowDays,
	})
	if err != nil {
		return nil, err
	}
	s := &IndexStore{
		cfg:       cfg,
		logger:    logger,
		chunker:   NewChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap),
		extractor: extract.NewExtractor(),
		queries:   query.NewProcessor(),
		index:     ix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialize constructs the configured embedding provider and loads the
// persisted snapshot. Concurrent callers share one in-flight initialization;
// after a failure the guard resets and a later call retries from scratch.
func (s *IndexStore) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	if s.initDone {
		s.initMu.Unlock()
		return nil
	}
	if s.initCh != nil {
		ch := s.initCh
		s.initMu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.initMu.Lock()
		defer s.initMu.Unlock()
		if s.initDone {
			return nil
		}
		return s.initErr
	}
	ch := make(chan struct{})
	s.initCh = ch
	s.initMu.Unlock()

	err := s.initialize(ctx)

	s.initMu.Lock()
	s.initErr = err
	s.initDone = err == nil
	s.initCh = nil
	s.initMu.Unlock()
	close(ch)
	return err
}

func (s *IndexStore) initialize(ctx context.Context) error {
	if s.provider == nil {
		provider, err := embedding.NewProvider(s.cfg.Provider)
		if err != nil {
			return err
		}
		s.provider = provider
	}
	if s.provider.Dimensions() != s.index.Dimensions() {
		return fmt.Errorf("provider produces %d-dimension vectors, index expects %d",
			s.provider.Dimensions(), s.index.Dimensions())
	}
	s.LoadFromFile()
	s.logger.Info("index store initialized",
		zap.String("provider", s.cfg.Provider.Kind),
		zap.Int("dimensions", s.cfg.Provider.Dimensions),
		zap.Int("notes", s.index.Size()),
	)
	return nil
}

// Close releases the embedding provider.
func (s *IndexStore) Close() error {
	if s.provider != nil {
		return s.provider.Close()
	}
	return nil
}

// AddNote chunks and embeds content and indexes it under path. Content below
// the minimum length is skipped without error (short notes pollute ranking).
// A failure embedding any chunk aborts the whole note so it is never indexed
// with holes, and a dimension mismatch rejects the note entirely.
func (s *IndexStore) AddNote(ctx context.Context, path, content string, lastModified time.Time) error {
	if len(strings.TrimSpace(content)) < s.cfg.Index.MinContentLength {
		s.logger.Debug("skipping note with insufficient content", zap.String("note", path))
		return nil
	}
	chunks := s.chunker.Chunk(content)
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vecs, err := s.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed note %s: %w", path, err)
	}
	for i := range chunks {
		if len(vecs[i]) != s.cfg.Provider.Dimensions {
			return fmt.Errorf("embed note %s: %w: chunk %d has %d dimensions, expected %d",
				path, vector.ErrDimensionMismatch, i, len(vecs[i]), s.cfg.Provider.Dimensions)
		}
		chunks[i].Embedding = vecs[i]
	}
	if lastModified.IsZero() {
		lastModified = time.Now()
	}
	emb := models.NoteEmbedding{Path: path, Chunks: chunks, LastModified: lastModified}
	if err := s.index.AddEmbedding(path, emb); err != nil {
		return fmt.Errorf("index note %s: %w", path, err)
	}
	return nil
}

// RemoveNote removes a note from the index. Removing an absent path is a no-op.
func (s *IndexStore) RemoveNote(path string) {
	s.index.RemoveEmbedding(path)
}

// RemoveFromIndex is RemoveNote under the scheduler's contract name.
func (s *IndexStore) RemoveFromIndex(path string) {
	s.RemoveNote(path)
}

// ReindexFile reads the file at path, extracts its text, and indexes it under
// path with the file's modification time. Missing files are removed from the
// index instead (a delete can race an in-flight modify; the delete wins).
func (s *IndexStore) ReindexFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.RemoveNote(path)
			return nil
		}
		return fmt.Errorf("stat note %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	content, err := s.extractor.Extract(path)
	if err != nil {
		return fmt.Errorf("extract note %s: %w", path, err)
	}
	return s.AddNote(ctx, path, content, info.ModTime())
}

// SearchNotes embeds the query text and ranks indexed notes against it.
// An empty index short-circuits to an empty result set before the query is
// embedded, so a cold start never calls the provider.
func (s *IndexStore) SearchNotes(ctx context.Context, queryText string, maxResults int) ([]models.SearchResult, error) {
	if s.index.IsEmpty() {
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = s.cfg.Search.DefaultLimit
	}
	if maxResults > s.cfg.Search.MaxLimit {
		maxResults = s.cfg.Search.MaxLimit
	}
	processed := s.queries.Process(queryText)
	queryVec, err := s.provider.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results := s.index.Search(queryVec, vector.SearchOptions{
		SimilarityThreshold: s.cfg.Search.SimilarityThreshold,
		Limit:               maxResults,
		SearchTerms:         processed.ExpandedTokens,
	})
	return results, nil
}

// GetEmbeddedPaths returns the indexed note paths.
func (s *IndexStore) GetEmbeddedPaths() []string {
	return s.index.Paths()
}

// GetEmbedding returns the stored embedding for path, if present.
func (s *IndexStore) GetEmbedding(path string) (models.NoteEmbedding, bool) {
	return s.index.Embedding(path)
}

// Count returns the number of indexed notes.
func (s *IndexStore) Count() int {
	return s.index.Size()
}

// IsEmpty reports whether the index holds no notes.
func (s *IndexStore) IsEmpty() bool {
	return s.index.IsEmpty()
}

// Clear empties the index. Used before full rescans and when settings changes
// invalidate the embedding space.
func (s *IndexStore) Clear() {
	s.index.Clear()
}
