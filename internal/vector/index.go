// Package vector provides the in-memory vector index with cosine-similarity
// search and additive score fusion (semantic similarity + title match + recency).
package vector

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/notevault/vaultindex/internal/models"
	"github.com/notevault/vaultindex/internal/query"
)

// ErrDimensionMismatch is returned when a chunk's vector length does not equal
// the configured dimension. The whole note is rejected, never partially indexed.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ScoringConfig holds the tunable fusion weights.
type ScoringConfig struct {
	// TitleBoost is the maximum additive bonus for query terms matching the
	// note's filename.
	TitleBoost float64
	// MaxRecencyBoost is the additive bonus for a note modified right now;
	// it decays linearly to zero over RecencyWindowDays.
	MaxRecencyBoost   float64
	RecencyWindowDays float64
}

// SearchOptions controls a single search call.
type SearchOptions struct {
	// SimilarityThreshold gates on the raw cosine similarity (baseScore), not
	// the fused score, so boosts cannot admit semantically irrelevant notes.
	SimilarityThreshold float64
	Limit               int
	// SearchTerms, when set, enable the title-match bonus.
	SearchTerms []string
}

// indexEntry is the derived per-path view: the note's chunks plus the best
// similarity observed for it in the most recent search. Always reconstructable
// from the canonical embedding; never independently authoritative.
type indexEntry struct {
	chunks   []models.NoteChunk
	maxScore float64
}

// Index holds per-note chunk embeddings and answers similarity queries.
// Both maps are guarded by one mutex; every path in the embeddings map has
// exactly one entry in the entries map and vice versa.
type Index struct {
	dimensions int
	scoring    ScoringConfig
	embeddings map[string]models.NoteEmbedding
	entries    map[string]*indexEntry
	now        func() time.Time
	mu         sync.Mutex
}

// Option configures an Index.
type Option func(*Index)

// WithClock overrides the time source used for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(ix *Index) { ix.now = now }
}

// New creates an index for vectors of the given dimension.
func New(dimensions int, scoring ScoringConfig, opts ...Option) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	ix := &Index{
		dimensions: dimensions,
		scoring:    scoring,
		embeddings: make(map[string]models.NoteEmbedding),
		entries:    make(map[string]*indexEntry),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Dimensions returns the configured vector dimension.
func (ix *Index) Dimensions() int {
	return ix.dimensions
}

// AddEmbedding validates and stores a note's embedding, replacing any prior
// value for the path atomically. If any chunk's vector length differs from the
// configured dimension the whole note is rejected and the index is unchanged.
func (ix *Index) AddEmbedding(path string, emb models.NoteEmbedding) error {
	for i, ch := range emb.Chunks {
		if len(ch.Embedding) != ix.dimensions {
			return fmt.Errorf("%w: %s chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, path, i, len(ch.Embedding), ix.dimensions)
		}
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.embeddings[path] = emb
	ix.entries[path] = &indexEntry{chunks: emb.Chunks}
	return nil
}

// RemoveEmbedding removes both the canonical embedding and its derived entry.
// Removing an absent path is a no-op.
func (ix *Index) RemoveEmbedding(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.embeddings, path)
	delete(ix.entries, path)
}

// Clear empties the index. Used on full rescans and on settings changes that
// invalidate the embedding space.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.embeddings = make(map[string]models.NoteEmbedding)
	ix.entries = make(map[string]*indexEntry)
}

// IsEmpty reports whether no paths are indexed.
func (ix *Index) IsEmpty() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.embeddings) == 0
}

// Size returns the number of indexed notes.
func (ix *Index) Size() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.embeddings)
}

// Paths returns the indexed note paths in unspecified order.
func (ix *Index) Paths() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	paths := make([]string, 0, len(ix.embeddings))
	for p := range ix.embeddings {
		paths = append(paths, p)
	}
	return paths
}

// Embedding returns the stored embedding for path, if present.
func (ix *Index) Embedding(path string) (models.NoteEmbedding, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	emb, ok := ix.embeddings[path]
	return emb, ok
}

// Snapshot returns a copy of the embeddings map for persistence.
func (ix *Index) Snapshot() map[string]models.NoteEmbedding {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make(map[string]models.NoteEmbedding, len(ix.embeddings))
	for p, e := range ix.embeddings {
		out[p] = e
	}
	return out
}

// Search ranks every indexed note against queryVector. A note's baseScore is
// its best chunk similarity; recency and title bonuses are added on top, the
// threshold gates on baseScore alone, and ties in the fused score break by
// path ascending.
func (ix *Index) Search(queryVector []float32, opts SearchOptions) []models.SearchResult {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	now := ix.now()
	results := make([]models.SearchResult, 0, len(ix.embeddings))
	for path, emb := range ix.embeddings {
		baseScore := 0.0
		chunkIndex := 0
		for i, ch := range emb.Chunks {
			if sim := CosineSimilarity(queryVector, ch.Embedding); sim > baseScore {
				baseScore = sim
				chunkIndex = i
			}
		}
		if entry, ok := ix.entries[path]; ok {
			entry.maxScore = baseScore
		}
		if baseScore < opts.SimilarityThreshold {
			continue
		}
		recencyScore := ix.recencyScore(now, emb.LastModified)
		titleScore := ix.titleScore(path, opts.SearchTerms)
		results = append(results, models.SearchResult{
			Path:         path,
			Score:        baseScore + recencyScore + titleScore,
			BaseScore:    baseScore,
			TitleScore:   titleScore,
			RecencyScore: recencyScore,
			ChunkIndex:   chunkIndex,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

// recencyScore decays linearly from MaxRecencyBoost at age zero to zero at the
// recency window. Never negative; a zero timestamp gets no boost.
func (ix *Index) recencyScore(now, lastModified time.Time) float64 {
	if ix.scoring.MaxRecencyBoost <= 0 || ix.scoring.RecencyWindowDays <= 0 || lastModified.IsZero() {
		return 0
	}
	ageDays := now.Sub(lastModified).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	if ageDays >= ix.scoring.RecencyWindowDays {
		return 0
	}
	return ix.scoring.MaxRecencyBoost * (1 - ageDays/ix.scoring.RecencyWindowDays)
}

// titleScore grants a bonus proportional to how many search terms match the
// note's filename (case-insensitive), capped at TitleBoost when all match.
func (ix *Index) titleScore(path string, terms []string) float64 {
	if ix.scoring.TitleBoost <= 0 || len(terms) == 0 {
		return 0
	}
	title := query.NormalizeTitle(filepath.Base(path))
	if title == "" {
		return 0
	}
	matched := 0
	for _, term := range terms {
		if strings.Contains(title, strings.ToLower(term)) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return ix.scoring.TitleBoost * float64(matched) / float64(len(terms))
}
