// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package frameindex implements the per-frame vector index of spec.md
// §4.4: aligned (embedding_vector, descriptor) rows plus a
// element_hash → row_id map, with upsert/search built over a pluggable
// VectorStore so the default brute-force implementation can later be
// swapped for a remote one without changing the dedup/hash contract.
package frameindex

import (
	"sort"
	"sync"

	"github.com/traylinx/her/internal/embedding"
)

// ScoredRow is one Search result: a row id and its cosine score against
// the query vector.
type ScoredRow struct {
	RowID int
	Score float64
}

// VectorStore is the substitutable core spec.md §4.4 calls out ("a
// pluggable vector-store interface allows later substitution"). Row ids
// are assigned in append order starting at 0.
type VectorStore interface {
	// Add appends vectors in order, returning their assigned row ids.
	Add(vectors [][]float32) ([]int, error)
	// Search returns up to k rows ranked by descending cosine similarity.
	Search(query []float32, k int) ([]ScoredRow, error)
	// Len reports how many rows are currently stored.
	Len() int
}

// flatStore is the default VectorStore: exact brute-force cosine over all
// rows, the idiomatic choice at the scale spec.md §4.4 names (a few
// thousand rows per frame).
type flatStore struct {
	mu      sync.RWMutex
	vectors [][]float32
}

// NewFlatStore returns the default in-memory VectorStore.
func NewFlatStore() VectorStore {
	return &flatStore{}
}

func (s *flatStore) Add(vectors [][]float32) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, len(vectors))
	for i, v := range vectors {
		ids[i] = len(s.vectors)
		s.vectors = append(s.vectors, v)
	}
	return ids, nil
}

func (s *flatStore) Search(query []float32, k int) ([]ScoredRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.vectors) == 0 {
		return nil, nil
	}

	scored := make([]ScoredRow, len(s.vectors))
	for i, v := range s.vectors {
		scored[i] = ScoredRow{RowID: i, Score: embedding.CosineSimilarity(query, v)}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].RowID < scored[j].RowID
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (s *flatStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}
