// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"strings"

	"github.com/traylinx/her/internal/descriptor"
	"github.com/traylinx/her/internal/hashing"
)

// tokenPreindex is the cold-start, per-token/per-hash index of spec.md
// §4.7 step 5: built once per dom_hash on a session's first use, advisory
// only — the ranker's own scoring and tie-break remain authoritative, and
// this index only breaks near-ties between the top two ranked candidates
// by how many query tokens their canonical text shares.
type tokenPreindex struct {
	tokenToHashes map[string]map[string]bool // token -> set of element hashes
	textByHash    map[string]string
}

// buildTokenPreindex scans every element across every frame once, per
// spec.md's "bounded by an element-budget knob": budget<=0 means no
// bound.
func buildTokenPreindex(byFrame map[string][]*descriptor.Descriptor, mode hashing.CanonicalMode, budget int) *tokenPreindex {
	idx := &tokenPreindex{
		tokenToHashes: make(map[string]map[string]bool),
		textByHash:    make(map[string]string),
	}

	n := 0
	for _, elements := range byFrame {
		for _, d := range elements {
			if budget > 0 && n >= budget {
				return idx
			}
			n++
			hash := hashing.ElementHash(d, mode)
			text := hashing.Canonical(d, mode)
			idx.textByHash[hash] = text
			for _, tok := range strings.Fields(strings.ToLower(text)) {
				set, ok := idx.tokenToHashes[tok]
				if !ok {
					set = make(map[string]bool)
					idx.tokenToHashes[tok] = set
				}
				set[hash] = true
			}
		}
	}
	return idx
}

// tokenOverlap counts how many of queryTokens appear in hash's canonical
// text, used as an advisory tie-break signal only.
func (idx *tokenPreindex) tokenOverlap(hash string, queryTokens []string) int {
	if idx == nil {
		return 0
	}
	text, ok := idx.textByHash[hash]
	if !ok {
		return 0
	}
	count := 0
	for _, tok := range queryTokens {
		if strings.Contains(text, tok) {
			count++
		}
	}
	return count
}
