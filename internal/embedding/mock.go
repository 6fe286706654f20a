package embedding

import (
	"context"
	"math"

	"github.com/notevault/vaultindex/pkg/utils"
)

// MockProvider is a deterministic provider for tests and offline use. The same
// text always yields the same unit-length vector.
type MockProvider struct {
	dimensions int
}

// NewMockProvider returns a provider producing deterministic embeddings of the
// given dimension.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockProvider{dimensions: dimensions}
}

// Embed derives a vector from the text hash and normalizes it.
func (p *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	h := HashString(text)
	vec := make([]float32, p.dimensions)
	for i := 0; i < p.dimensions; i++ {
		vec[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch calls Embed for each text.
func (p *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (p *MockProvider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}
