// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package embedding

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// DefaultModelName names the default sentence encoder, a
	// general-purpose MiniLM checkpoint suited to short UI label text.
	DefaultModelName = "all-MiniLM-L6-v2"

	// DefaultDimension is that model's output width; TextEmbed and
	// ElementEmbed share it since both draw from the same encoder.
	DefaultDimension = 384

	// MaxSequenceLength bounds tokenized input length.
	MaxSequenceLength = 256
)

// ONNXConfig configures the ONNX-backed Embedder variant.
type ONNXConfig struct {
	ModelPath         string
	VocabPath         string
	SharedLibraryPath string
	Dimension         int // defaults to DefaultDimension when 0
}

// onnxEmbedder runs TextEmbed/ElementEmbed through a single shared ONNX
// session, grounded on the teacher's embedding.Engine: identical session
// setup, mean pooling, and L2 normalization, generalized to satisfy the
// Embedder interface's query/element split (both calls route through the
// same session here, since one sentence encoder serves both).
type onnxEmbedder struct {
	session   *ort.DynamicAdvancedSession
	tokenizer *wordPieceTokenizer
	dimension int
	mu        sync.Mutex
}

// NewONNXEmbedder loads the model at cfg.ModelPath and prepares it for
// inference. The caller must call Close when done.
func NewONNXEmbedder(cfg ONNXConfig) (Embedder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("embedding: model path is required")
	}
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("embedding: model file not found: %s", cfg.ModelPath)
	}

	dim := cfg.Dimension
	if dim == 0 {
		dim = DefaultDimension
	}

	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("embedding: initialize ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("embedding: create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("embedding: load ONNX model: %w", err)
	}

	tok, err := newWordPieceTokenizer(cfg.VocabPath)
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("embedding: initialize tokenizer: %w", err)
	}

	log.Infof("embedding: engine initialized with model %s", filepath.Base(cfg.ModelPath))
	return &onnxEmbedder{session: session, tokenizer: tok, dimension: dim}, nil
}

func (e *onnxEmbedder) TextEmbed(query string) ([]float32, error) {
	return e.embedOne(query)
}

func (e *onnxEmbedder) ElementEmbed(text string) ([]float32, error) {
	return e.embedOne(text)
}

func (e *onnxEmbedder) BatchTextEmbed(queries []string) ([][]float32, error) {
	return e.embedMany(queries)
}

func (e *onnxEmbedder) BatchElementEmbed(texts []string) ([][]float32, error) {
	return e.embedMany(texts)
}

func (e *onnxEmbedder) QueryDimension() int   { return e.dimension }
func (e *onnxEmbedder) ElementDimension() int { return e.dimension }

func (e *onnxEmbedder) embedOne(text string) ([]float32, error) {
	if text == "" {
		return make([]float32, e.dimension), nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tokens := e.tokenizer.Tokenize(text, MaxSequenceLength)
	return e.runInference(tokens)
}

func (e *onnxEmbedder) embedMany(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.embedOne(t)
		if err != nil {
			return nil, fmt.Errorf("embedding: text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// runInference executes the ONNX model for one tokenized input. Must be
// called with e.mu held.
func (e *onnxEmbedder) runInference(tokens *tokenizedInput) ([]float32, error) {
	seqLen := int64(len(tokens.InputIDs))

	inputIDs, err := ort.NewTensor(ort.NewShape(1, seqLen), tokens.InputIDs)
	if err != nil {
		return nil, fmt.Errorf("embedding: input_ids tensor: %w", err)
	}
	defer inputIDs.Destroy()

	attentionMask, err := ort.NewTensor(ort.NewShape(1, seqLen), tokens.AttentionMask)
	if err != nil {
		return nil, fmt.Errorf("embedding: attention_mask tensor: %w", err)
	}
	defer attentionMask.Destroy()

	tokenTypeIDs, err := ort.NewTensor(ort.NewShape(1, seqLen), tokens.TokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("embedding: token_type_ids tensor: %w", err)
	}
	defer tokenTypeIDs.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, int64(e.dimension)))
	if err != nil {
		return nil, fmt.Errorf("embedding: output tensor: %w", err)
	}
	defer output.Destroy()

	if err := e.session.Run(
		[]ort.ArbitraryTensor{inputIDs, attentionMask, tokenTypeIDs},
		[]ort.ArbitraryTensor{output},
	); err != nil {
		return nil, fmt.Errorf("embedding: ONNX inference: %w", err)
	}

	pooled := meanPool(output.GetData(), tokens.AttentionMask, e.dimension)
	return normalizeL2(pooled), nil
}

// meanPool averages token embeddings over positions the attention mask
// marks real, matching the teacher's mean-pooling strategy.
func meanPool(output []float32, attentionMask []int64, dimension int) []float32 {
	embedding := make([]float32, dimension)
	var weight float32
	for i, mask := range attentionMask {
		if mask != 1 {
			continue
		}
		for j := 0; j < dimension; j++ {
			embedding[j] += output[i*dimension+j]
		}
		weight++
	}
	if weight > 0 {
		for j := range embedding {
			embedding[j] /= weight
		}
	}
	return embedding
}

func (e *onnxEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	return nil
}
