// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package embedding

import (
	"crypto/sha256"
	"encoding/binary"
)

// DefaultHashDimension is the fallback embedder's output width.
const DefaultHashDimension = 64

// hashEmbedder is the deterministic-hash Embedder variant spec.md §4.3
// names for cold environments and tests: reproducible, dependency-free,
// and off by default outside HER_ENV=development|test (resolved in
// internal/config). It reuses the hashing package's "hash the canonical
// text" idea but expands a single SHA-256 digest into an arbitrary-width
// float vector instead of a fixed 20-byte identifier.
type hashEmbedder struct {
	queryDim   int
	elementDim int
}

// NewHashEmbedder returns a hash-based Embedder. A zero dimension
// defaults to DefaultHashDimension.
func NewHashEmbedder(queryDim, elementDim int) Embedder {
	if queryDim == 0 {
		queryDim = DefaultHashDimension
	}
	if elementDim == 0 {
		elementDim = DefaultHashDimension
	}
	return &hashEmbedder{queryDim: queryDim, elementDim: elementDim}
}

func (h *hashEmbedder) TextEmbed(query string) ([]float32, error) {
	return hashVector(query, "query", h.queryDim), nil
}

func (h *hashEmbedder) ElementEmbed(text string) ([]float32, error) {
	return hashVector(text, "element", h.elementDim), nil
}

func (h *hashEmbedder) BatchTextEmbed(queries []string) ([][]float32, error) {
	out := make([][]float32, len(queries))
	for i, q := range queries {
		out[i] = hashVector(q, "query", h.queryDim)
	}
	return out, nil
}

func (h *hashEmbedder) BatchElementEmbed(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t, "element", h.elementDim)
	}
	return out, nil
}

func (h *hashEmbedder) QueryDimension() int   { return h.queryDim }
func (h *hashEmbedder) ElementDimension() int { return h.elementDim }
func (h *hashEmbedder) Close() error          { return nil }

// hashVector deterministically expands text (tagged with kind, so the
// same string never collides between query- and element-space) into an
// L2-normalized float32 vector of the given dimension. Empty input
// returns the zero vector, per spec.md §4.3.
func hashVector(text, kind string, dim int) []float32 {
	v := make([]float32, dim)
	if text == "" {
		return v
	}

	seed := []byte(kind + ":" + text)
	var counter uint32
	produced := 0
	for produced < dim {
		var block [4]byte
		binary.BigEndian.PutUint32(block[:], counter)
		digest := sha256.Sum256(append(seed, block[:]...))

		for i := 0; i+4 <= len(digest) && produced < dim; i += 4 {
			bits := binary.BigEndian.Uint32(digest[i : i+4])
			// Map to [-1, 1).
			v[produced] = float32(bits)/float32(1<<31) - 1
			produced++
		}
		counter++
	}

	return normalizeL2(v)
}
