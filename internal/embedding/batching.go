// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package embedding

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	approxCodec     tokenizer.Codec
	approxCodecOnce sync.Once
	approxCodecErr  error
)

// approxTokenCount estimates how many tokens text will cost the real
// WordPiece tokenizer, using tiktoken's cl100k encoder purely as a cheap
// stand-in — it is the wrong vocabulary for the ONNX model itself, but
// its token count tracks word/subword density closely enough to size
// batches without paying for a second real tokenization pass.
func approxTokenCount(text string) int {
	approxCodecOnce.Do(func() {
		approxCodec, approxCodecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	if approxCodecErr != nil || approxCodec == nil {
		return len(strings.Fields(text))
	}

	ids, _, err := approxCodec.Encode(text)
	if err != nil {
		return len(strings.Fields(text))
	}
	return len(ids)
}

// PlanBatches groups texts into batches whose estimated token total stays
// at or under maxTokensPerBatch, preserving input order. A single text
// that alone exceeds the budget still gets its own one-item batch rather
// than being dropped.
func PlanBatches(texts []string, maxTokensPerBatch int) [][]string {
	if maxTokensPerBatch <= 0 {
		return [][]string{texts}
	}

	var batches [][]string
	var current []string
	currentTokens := 0

	for _, text := range texts {
		cost := approxTokenCount(text)
		if len(current) > 0 && currentTokens+cost > maxTokensPerBatch {
			batches = append(batches, current)
			current = nil
			currentTokens = 0
		}
		current = append(current, text)
		currentTokens += cost
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
