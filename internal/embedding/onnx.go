//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/notevault/vaultindex/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXProvider runs a sentence-embedding model in-process via ONNX Runtime.
// Requires CGO and the onnxruntime shared library.
type ONNXProvider struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	// Tensors are allocated once; Embed updates input data and reads output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXProvider creates a local provider for the model at modelPath.
// The ONNX environment is initialized if not already done.
func NewONNXProvider(modelPath string, dimensions, maxTokens int) (*ONNXProvider, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize ONNX runtime: %w", err)
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}

	tokenizer := &SimpleTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", maxTokens)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), tokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create ONNX session: %w", err)
	}

	return &ONNXProvider{
		session:             session,
		dimensions:          dimensions,
		maxTokens:           maxTokens,
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

// Embed runs inference for text and returns the normalized embedding.
func (p *ONNXProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := p.tokenizer.Tokenize(text, p.maxTokens)
	copy(p.inputIDsTensor.GetData(), inputIDs)
	copy(p.attentionMaskTensor.GetData(), attentionMask)
	copy(p.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := p.session.Run(); err != nil {
		return nil, &ProviderError{Kind: KindLocal, Op: "inference", Err: err}
	}

	outputData := p.outputTensor.GetData()
	if len(outputData) < p.dimensions {
		return nil, &ProviderError{
			Kind: KindLocal,
			Op:   "inference",
			Err:  fmt.Errorf("model output has %d floats, expected %d", len(outputData), p.dimensions),
		}
	}
	vec := make([]float32, p.dimensions)
	copy(vec, outputData[:p.dimensions])
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch runs inference for each text.
func (p *ONNXProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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
func (p *ONNXProvider) Dimensions() int {
	return p.dimensions
}

// Close destroys the session and tensors.
func (p *ONNXProvider) Close() error {
	var err error
	if p.session != nil {
		err = p.session.Destroy()
		p.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{p.inputIDsTensor, p.attentionMaskTensor, p.tokenTypeIDsTensor} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	p.inputIDsTensor, p.attentionMaskTensor, p.tokenTypeIDsTensor = nil, nil, nil
	if p.outputTensor != nil {
		_ = p.outputTensor.Destroy()
		p.outputTensor = nil
	}
	return err
}
