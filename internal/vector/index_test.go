package vector

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/notevault/vaultindex/internal/models"
)

func note(path string, lastModified time.Time, vecs ...[]float32) models.NoteEmbedding {
	chunks := make([]models.NoteChunk, len(vecs))
	for i, v := range vecs {
		chunks[i] = models.NoteChunk{Content: "chunk", Embedding: v, Position: i}
	}
	return models.NoteEmbedding{Path: path, Chunks: chunks, LastModified: lastModified}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float32{0.5, 0.3, -0.2}
	if got := CosineSimilarity(v, v); math.Abs(got-1.0) > 1e-6 {
		t.Errorf("cosine(v, v) = %f, want 1.0", got)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	if got := CosineSimilarity(a, b); math.Abs(got) > 1e-6 {
		t.Errorf("cosine of orthogonal vectors = %f, want 0", got)
	}
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	a := []float32{1, 2, 3}
	zero := []float32{0, 0, 0}
	if got := CosineSimilarity(a, zero); got != 0 {
		t.Errorf("cosine against zero vector = %f, want 0 (not NaN)", got)
	}
	if got := CosineSimilarity(zero, zero); got != 0 {
		t.Errorf("cosine of two zero vectors = %f, want 0", got)
	}
}

func TestCosineSimilarityLengthMismatch(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("cosine of mismatched lengths = %f, want 0", got)
	}
}

func TestAddEmbeddingRejectsWrongDimensions(t *testing.T) {
	ix, err := New(3, ScoringConfig{})
	if err != nil {
		t.Fatal(err)
	}
	bad := note("/vault/a.md", time.Now(), []float32{1, 0, 0}, []float32{1, 0})
	err = ix.AddEmbedding("/vault/a.md", bad)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if !ix.IsEmpty() {
		t.Error("a rejected note must not be partially indexed")
	}
}

func TestAddRemoveClear(t *testing.T) {
	ix, _ := New(3, ScoringConfig{})
	if !ix.IsEmpty() {
		t.Fatal("new index should be empty")
	}
	if err := ix.AddEmbedding("/vault/a.md", note("/vault/a.md", time.Now(), []float32{1, 0, 0})); err != nil {
		t.Fatal(err)
	}
	if ix.Size() != 1 {
		t.Errorf("size = %d, want 1", ix.Size())
	}
	if _, ok := ix.Embedding("/vault/a.md"); !ok {
		t.Error("stored embedding not found")
	}
	ix.RemoveEmbedding("/vault/a.md")
	ix.RemoveEmbedding("/vault/a.md") // idempotent
	if !ix.IsEmpty() {
		t.Error("index should be empty after removal")
	}
	_ = ix.AddEmbedding("/vault/b.md", note("/vault/b.md", time.Now(), []float32{0, 1, 0}))
	ix.Clear()
	if !ix.IsEmpty() {
		t.Error("index should be empty after Clear")
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	ix, _ := New(3, ScoringConfig{})
	_ = ix.AddEmbedding("/vault/close.md", note("/vault/close.md", time.Time{}, []float32{1, 0.1, 0}))
	_ = ix.AddEmbedding("/vault/far.md", note("/vault/far.md", time.Time{}, []float32{0.1, 1, 0}))

	results := ix.Search([]float32{1, 0, 0}, SearchOptions{Limit: 10})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Path != "/vault/close.md" {
		t.Errorf("best match should rank first, got %s", results[0].Path)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %f then %f", results[0].Score, results[1].Score)
	}
}

func TestSearchBaseScoreIsBestChunk(t *testing.T) {
	ix, _ := New(3, ScoringConfig{})
	_ = ix.AddEmbedding("/vault/a.md", note("/vault/a.md", time.Time{},
		[]float32{0, 1, 0}, []float32{1, 0, 0}))

	results := ix.Search([]float32{1, 0, 0}, SearchOptions{Limit: 1})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if math.Abs(results[0].BaseScore-1.0) > 1e-6 {
		t.Errorf("base score should be the best chunk similarity, got %f", results[0].BaseScore)
	}
	if results[0].ChunkIndex != 1 {
		t.Errorf("chunk index should point at the best chunk, got %d", results[0].ChunkIndex)
	}
}

func TestSearchThresholdGatesOnBaseScore(t *testing.T) {
	now := time.Now()
	ix, _ := New(3, ScoringConfig{MaxRecencyBoost: 0.5, RecencyWindowDays: 30}, WithClock(func() time.Time { return now }))
	// Similarity ~0.3, freshly modified: the recency boost would push the fused
	// score past the threshold, but the gate uses the raw similarity alone.
	_ = ix.AddEmbedding("/vault/stale.md", note("/vault/stale.md", now, []float32{0.3, 0.954, 0}))

	results := ix.Search([]float32{1, 0, 0}, SearchOptions{SimilarityThreshold: 0.5, Limit: 10})
	if len(results) != 0 {
		t.Errorf("boosts must not admit notes below the similarity threshold, got %d results", len(results))
	}
}

func TestSearchThresholdKeepsExactTie(t *testing.T) {
	ix, _ := New(2, ScoringConfig{})
	_ = ix.AddEmbedding("/vault/a.md", note("/vault/a.md", time.Time{}, []float32{1, 0}))

	results := ix.Search([]float32{1, 0}, SearchOptions{SimilarityThreshold: 1.0, Limit: 10})
	if len(results) != 1 {
		t.Errorf("a note at exactly the threshold must be kept, got %d results", len(results))
	}
}

func TestSearchTieBreaksByPath(t *testing.T) {
	ix, _ := New(2, ScoringConfig{})
	_ = ix.AddEmbedding("/vault/b.md", note("/vault/b.md", time.Time{}, []float32{1, 0}))
	_ = ix.AddEmbedding("/vault/a.md", note("/vault/a.md", time.Time{}, []float32{1, 0}))

	results := ix.Search([]float32{1, 0}, SearchOptions{Limit: 10})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Path != "/vault/a.md" || results[1].Path != "/vault/b.md" {
		t.Errorf("equal scores must order by path ascending, got %s then %s", results[0].Path, results[1].Path)
	}
}

func TestSearchLimitTruncates(t *testing.T) {
	ix, _ := New(2, ScoringConfig{})
	_ = ix.AddEmbedding("/vault/a.md", note("/vault/a.md", time.Time{}, []float32{1, 0}))
	_ = ix.AddEmbedding("/vault/b.md", note("/vault/b.md", time.Time{}, []float32{1, 0}))
	_ = ix.AddEmbedding("/vault/c.md", note("/vault/c.md", time.Time{}, []float32{1, 0}))

	results := ix.Search([]float32{1, 0}, SearchOptions{Limit: 2})
	if len(results) != 2 {
		t.Errorf("limit not applied, got %d results", len(results))
	}
}

func TestRecencyScoreLinearDecay(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ix, _ := New(2, ScoringConfig{MaxRecencyBoost: 0.2, RecencyWindowDays: 30},
		WithClock(func() time.Time { return now }))

	cases := []struct {
		name         string
		lastModified time.Time
		want         float64
	}{
		{"just modified", now, 0.2},
		{"half window", now.Add(-15 * 24 * time.Hour), 0.1},
		{"at window edge", now.Add(-30 * 24 * time.Hour), 0},
		{"beyond window", now.Add(-60 * 24 * time.Hour), 0},
		{"zero timestamp", time.Time{}, 0},
		{"future timestamp", now.Add(24 * time.Hour), 0.2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ix.recencyScore(now, tc.lastModified)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("recencyScore = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestTitleScoreProportionalToMatchedTerms(t *testing.T) {
	ix, _ := New(2, ScoringConfig{TitleBoost: 0.3})

	if got := ix.titleScore("/vault/machine-learning.md", []string{"machine", "learning"}); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("all terms matched: titleScore = %f, want 0.3", got)
	}
	if got := ix.titleScore("/vault/machine-learning.md", []string{"machine", "quantum"}); math.Abs(got-0.15) > 1e-9 {
		t.Errorf("half matched: titleScore = %f, want 0.15", got)
	}
	if got := ix.titleScore("/vault/machine-learning.md", []string{"quantum"}); got != 0 {
		t.Errorf("no match: titleScore = %f, want 0", got)
	}
	if got := ix.titleScore("/vault/machine-learning.md", nil); got != 0 {
		t.Errorf("no terms: titleScore = %f, want 0", got)
	}
	// Case-insensitive match against the normalized filename.
	if got := ix.titleScore("/vault/Machine_Learning.md", []string{"MACHINE"}); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("case-insensitive match: titleScore = %f, want 0.3", got)
	}
}

func TestSearchFusedScoreIsAdditive(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ix, _ := New(2, ScoringConfig{TitleBoost: 0.3, MaxRecencyBoost: 0.2, RecencyWindowDays: 30},
		WithClock(func() time.Time { return now }))
	_ = ix.AddEmbedding("/vault/golang.md", note("/vault/golang.md", now, []float32{1, 0}))

	results := ix.Search([]float32{1, 0}, SearchOptions{Limit: 1, SearchTerms: []string{"golang"}})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	want := r.BaseScore + r.TitleScore + r.RecencyScore
	if math.Abs(r.Score-want) > 1e-9 {
		t.Errorf("fused score %f != base %f + title %f + recency %f", r.Score, r.BaseScore, r.TitleScore, r.RecencyScore)
	}
	if math.Abs(r.Score-1.5) > 1e-6 {
		t.Errorf("score = %f, want 1.5 (1.0 + 0.3 + 0.2)", r.Score)
	}
}

func TestNewRejectsNonPositiveDimensions(t *testing.T) {
	if _, err := New(0, ScoringConfig{}); err == nil {
		t.Error("expected error for zero dimensions")
	}
	if _, err := New(-5, ScoringConfig{}); err == nil {
		t.Error("expected error for negative dimensions")
	}
}
