package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/notevault/vaultindex/internal/config"
)

func providerConfig(kind string, dims int) config.ProviderConfig {
	return config.ProviderConfig{
		Kind:       kind,
		Model:      "test-model",
		Dimensions: dims,
		CacheSize:  16,
	}
}

func TestMockProviderDeterministic(t *testing.T) {
	p := NewMockProvider(16)
	ctx := context.Background()

	a, err := p.Embed(ctx, "hello world")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Embed(ctx, "hello world")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same text produced different vectors at index %d", i)
		}
	}

	c, _ := p.Embed(ctx, "something else")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should produce different vectors")
	}
}

func TestMockProviderDimensionsAndNorm(t *testing.T) {
	p := NewMockProvider(32)
	if p.Dimensions() != 32 {
		t.Errorf("dimensions = %d, want 32", p.Dimensions())
	}
	vec, err := p.Embed(context.Background(), "normalize me")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 32 {
		t.Fatalf("vector length = %d, want 32", len(vec))
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-4 {
		t.Errorf("vector norm = %f, want 1.0", math.Sqrt(sum))
	}
}

func TestMockProviderBatchMatchesSingle(t *testing.T) {
	p := NewMockProvider(8)
	ctx := context.Background()
	texts := []string{"one", "two", "three"}

	batch, err := p.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("batch length = %d, want %d", len(batch), len(texts))
	}
	for i, text := range texts {
		single, _ := p.Embed(ctx, text)
		for j := range single {
			if batch[i][j] != single[j] {
				t.Fatalf("batch[%d] differs from single embed of %q", i, text)
			}
		}
	}
}

func TestNewProviderMockKind(t *testing.T) {
	p, err := NewProvider(providerConfig("mock", 8))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = p.Close() }()
	if p.Dimensions() != 8 {
		t.Errorf("dimensions = %d, want 8", p.Dimensions())
	}
	vec, err := p.Embed(context.Background(), "text")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 8 {
		t.Errorf("vector length = %d, want 8", len(vec))
	}
}

func TestNewProviderUnknownKind(t *testing.T) {
	_, err := NewProvider(providerConfig("magic", 8))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
}

func TestNewProviderRejectsBadDimensions(t *testing.T) {
	_, err := NewProvider(providerConfig("mock", 0))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
}

func TestNewProviderOllamaRequiresModel(t *testing.T) {
	cfg := providerConfig("ollama", 8)
	cfg.Model = ""
	_, err := NewProvider(cfg)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
}
