// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package frameindex

import (
	"fmt"
	"sync"

	"github.com/traylinx/her/internal/descriptor"
	"github.com/traylinx/her/internal/embedding"
	"github.com/traylinx/her/internal/hashing"
)

// SearchResult pairs a VectorStore hit with the descriptor it indexes.
type SearchResult struct {
	RowID      int
	Score      float64
	Descriptor *descriptor.Descriptor
}

// UpsertResult reports which rows upsert touched, by row id.
type UpsertResult struct {
	Unchanged []int
	New       []int
}

// FrameIndex is the per-frame index of spec.md §4.4: aligned
// (embedding_vector, descriptor) rows behind a VectorStore, plus the
// element_hash → row_id map that makes upsert idempotent for unchanged
// elements.
type FrameIndex struct {
	store VectorStore
	mode  hashing.CanonicalMode

	mu          sync.RWMutex
	hashToRow   map[string]int
	descriptors []*descriptor.Descriptor
	hashes      []string
}

// New returns a FrameIndex backed by store (nil selects the default flat
// store) using mode to compute element hashes.
func New(store VectorStore, mode hashing.CanonicalMode) *FrameIndex {
	if store == nil {
		store = NewFlatStore()
	}
	return &FrameIndex{
		store:     store,
		mode:      mode,
		hashToRow: make(map[string]int),
	}
}

// Upsert partitions elements into unchanged (hash already indexed) and
// new (hash miss), embeds only the new ones in a single batch call, and
// appends them as new rows. Row order is append-only (invariant (a));
// hashToRow and descriptors always stay the same length (invariant (b));
// a repeated hash — whether already indexed or duplicated within
// elements itself — resolves to one row (invariant (c)).
//
// maxNewEmbeds caps how many new elements this call will embed (0 means
// unlimited), per spec.md §4.7 step 7's max_elements_to_embed knob: any
// new elements beyond the cap are left unindexed this round and will be
// picked up by a later Upsert call against the same frame.
func (idx *FrameIndex) Upsert(elements []*descriptor.Descriptor, embedder embedding.Embedder, maxNewEmbeds int) (UpsertResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var result UpsertResult
	var newDescriptors []*descriptor.Descriptor
	var newHashes []string
	var newTexts []string
	seenThisCall := make(map[string]bool)

	for _, d := range elements {
		hash := hashing.ElementHash(d, idx.mode)
		if rowID, ok := idx.hashToRow[hash]; ok {
			result.Unchanged = append(result.Unchanged, rowID)
			continue
		}
		if seenThisCall[hash] {
			continue
		}
		seenThisCall[hash] = true

		newDescriptors = append(newDescriptors, d)
		newHashes = append(newHashes, hash)
		newTexts = append(newTexts, hashing.Canonical(d, idx.mode))
	}

	if len(newDescriptors) == 0 {
		return result, nil
	}

	if maxNewEmbeds > 0 && len(newDescriptors) > maxNewEmbeds {
		newDescriptors = newDescriptors[:maxNewEmbeds]
		newHashes = newHashes[:maxNewEmbeds]
		newTexts = newTexts[:maxNewEmbeds]
	}

	vectors, err := embedder.BatchElementEmbed(newTexts)
	if err != nil {
		return result, fmt.Errorf("frameindex: embed new elements: %w", err)
	}
	if len(vectors) != len(newDescriptors) {
		return result, fmt.Errorf("frameindex: embedder returned %d vectors for %d inputs", len(vectors), len(newDescriptors))
	}

	rowIDs, err := idx.store.Add(vectors)
	if err != nil {
		return result, fmt.Errorf("frameindex: add vectors to store: %w", err)
	}

	for i, rowID := range rowIDs {
		idx.hashToRow[newHashes[i]] = rowID
		idx.descriptors = append(idx.descriptors, newDescriptors[i])
		idx.hashes = append(idx.hashes, newHashes[i])
		result.New = append(result.New, rowID)
	}

	return result, nil
}

// Search returns up to k rows ranked by cosine similarity to qVec. If
// qVec's dimension differs from the stored rows', both are truncated to
// the common dimension before scoring (delegated to the VectorStore,
// which in turn delegates to embedding.CosineSimilarity).
func (idx *FrameIndex) Search(qVec []float32, k int) ([]SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scored, err := idx.store.Search(qVec, k)
	if err != nil {
		return nil, fmt.Errorf("frameindex: search: %w", err)
	}

	results := make([]SearchResult, 0, len(scored))
	for _, s := range scored {
		if s.RowID < 0 || s.RowID >= len(idx.descriptors) {
			continue
		}
		results = append(results, SearchResult{
			RowID:      s.RowID,
			Score:      s.Score,
			Descriptor: idx.descriptors[s.RowID],
		})
	}
	return results, nil
}

// Len reports the current row count.
func (idx *FrameIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.descriptors)
}

// Hashes returns the indexed element hashes in row order, used by the
// session manager to diff against a fresh snapshot (spec.md §4.5's
// get_diff).
func (idx *FrameIndex) Hashes() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, len(idx.hashes))
	copy(out, idx.hashes)
	return out
}

// HasHash reports whether hash is already indexed.
func (idx *FrameIndex) HasHash(hash string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.hashToRow[hash]
	return ok
}
