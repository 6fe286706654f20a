package embedding

import (
	"context"
	"fmt"

	"github.com/notevault/vaultindex/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
)

// openAICompatProvider talks to any OpenAI-compatible embeddings endpoint,
// covering both the hosted OpenAI API and a local Ollama server.
type openAICompatProvider struct {
	kind       Kind
	client     *openai.Client
	model      string
	dimensions int
}

func newOpenAICompatProvider(kind Kind, endpoint, apiKey, model string, dimensions int) *openAICompatProvider {
	clientCfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		clientCfg.BaseURL = endpoint
	}
	return &openAICompatProvider{
		kind:       kind,
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: dimensions,
	}
}

// Embed requests an embedding for a single text.
func (p *openAICompatProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch requests embeddings for all texts in one API call. Any non-2xx
// response, missing data, or dimension mismatch fails the whole batch.
func (p *openAICompatProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	})
	if err != nil {
		return nil, &ProviderError{Kind: p.kind, Op: "create embeddings", Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &ProviderError{
			Kind: p.kind,
			Op:   "create embeddings",
			Err:  fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
		}
	}
	vecs := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, &ProviderError{
				Kind: p.kind,
				Op:   "create embeddings",
				Err:  fmt.Errorf("embedding index %d out of range", item.Index),
			}
		}
		raw := item.Embedding
		vec := make([]float32, len(raw))
		for i := range raw {
			vec[i] = float32(raw[i])
		}
		if len(vec) != p.dimensions {
			return nil, &ProviderError{
				Kind: p.kind,
				Op:   "create embeddings",
				Err:  fmt.Errorf("vector has %d dimensions, expected %d", len(vec), p.dimensions),
			}
		}
		// Unit length so dot products equal cosine similarity.
		utils.NormalizeL2(vec)
		vecs[item.Index] = vec
	}
	for i, v := range vecs {
		if v == nil {
			return nil, &ProviderError{
				Kind: p.kind,
				Op:   "create embeddings",
				Err:  fmt.Errorf("no embedding returned for input %d", i),
			}
		}
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (p *openAICompatProvider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op; the HTTP client holds no resources.
func (p *openAICompatProvider) Close() error {
	return nil
}
