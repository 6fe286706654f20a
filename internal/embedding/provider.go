// Package embedding provides the embedding-provider contract and its concrete
// backends: OpenAI-compatible HTTP endpoints, a local ONNX model, and a
// deterministic mock. Construction goes through NewProvider, which selects the
// backend from a closed set of kinds.
package embedding

import (
	"context"
	"fmt"
	"os"

	"github.com/notevault/vaultindex/internal/config"
)

// Provider converts text into a fixed-dimension float vector. Implementations
// must fail with a *ProviderError on network failure, malformed responses, or
// a vector whose length differs from the configured dimension; output is never
// truncated or padded.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Kind identifies an embedding backend.
type Kind string

const (
	// KindOpenAI uses the OpenAI embeddings API (or a compatible endpoint).
	KindOpenAI Kind = "openai"
	// KindOllama uses a local Ollama server via its OpenAI-compatible API.
	KindOllama Kind = "ollama"
	// KindLocal runs an ONNX model in-process (requires CGO and onnxruntime).
	KindLocal Kind = "local"
	// KindMock produces deterministic vectors; for tests and offline use.
	KindMock Kind = "mock"
)

const defaultOllamaEndpoint = "http://localhost:11434/v1"

// ConfigError reports bad or missing provider settings. It is fatal to
// initialization and surfaced to the caller.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "provider configuration: " + e.Reason
}

// ProviderError reports a failure from an embedding backend: network error,
// malformed response shape, or a dimension mismatch.
type ProviderError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProvider constructs the configured provider and wraps it with the
// embedding cache (LRU, plus the sqlite disk cache when cache_path is set).
// An unrecognized kind or missing required fields yield a *ConfigError.
func NewProvider(cfg config.ProviderConfig) (Provider, error) {
	if cfg.Dimensions <= 0 {
		return nil, &ConfigError{Reason: "dimensions must be positive"}
	}

	var (
		base Provider
		err  error
	)
	switch Kind(cfg.Kind) {
	case KindOpenAI:
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, &ConfigError{Reason: "openai provider requires api_key or OPENAI_API_KEY"}
		}
		if cfg.Model == "" {
			return nil, &ConfigError{Reason: "openai provider requires model"}
		}
		base = newOpenAICompatProvider(KindOpenAI, cfg.Endpoint, key, cfg.Model, cfg.Dimensions)
	case KindOllama:
		if cfg.Model == "" {
			return nil, &ConfigError{Reason: "ollama provider requires model"}
		}
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOllamaEndpoint
		}
		// Ollama ignores the API key but the client requires one.
		base = newOpenAICompatProvider(KindOllama, endpoint, "ollama", cfg.Model, cfg.Dimensions)
	case KindLocal:
		if cfg.ModelPath == "" {
			return nil, &ConfigError{Reason: "local provider requires model_path"}
		}
		base, err = NewONNXProvider(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
	case KindMock:
		base = NewMockProvider(cfg.Dimensions)
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("unknown provider kind %q (supported: openai, ollama, local, mock)", cfg.Kind)}
	}

	var disk *DiskCache
	if cfg.CachePath != "" {
		disk, err = NewDiskCache(cfg.CachePath)
		if err != nil {
			_ = base.Close()
			return nil, fmt.Errorf("open embedding cache: %w", err)
		}
	}
	return NewCachedProvider(base, cfg.Model, cfg.CacheSize, disk), nil
}
