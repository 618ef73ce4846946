// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package embedding

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// tokenizedInput is the tensor-ready form a WordPiece tokenizer produces.
type tokenizedInput struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// wordPieceTokenizer is a simplified WordPiece tokenizer for BERT-family
// sentence encoders. Tiktoken's BPE vocabulary does not match a WordPiece
// model's embedding table, so this stays hand-rolled rather than
// delegating to tiktoken-go/tokenizer, which is reserved for the batch
// size pre-pass in batching.go.
type wordPieceTokenizer struct {
	vocab     map[string]int64
	idToToken map[int64]string

	clsTokenID int64
	sepTokenID int64
	padTokenID int64
	unkTokenID int64
}

// newWordPieceTokenizer loads a vocabulary file, one token per line,
// falling back to a minimal built-in vocabulary when vocabPath is empty
// or unreadable so the engine still starts (at reduced quality) without
// deployed model artifacts.
func newWordPieceTokenizer(vocabPath string) (*wordPieceTokenizer, error) {
	t := &wordPieceTokenizer{
		vocab:     make(map[string]int64),
		idToToken: make(map[int64]string),
	}

	if vocabPath == "" {
		t.initMinimalVocab()
		return t, nil
	}

	file, err := os.Open(vocabPath)
	if err != nil {
		t.initMinimalVocab()
		return t, nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var id int64
	for scanner.Scan() {
		token := scanner.Text()
		t.vocab[token] = id
		t.idToToken[id] = token
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("embedding: read vocabulary: %w", err)
	}

	t.setSpecialTokenIDs()
	return t, nil
}

func (t *wordPieceTokenizer) initMinimalVocab() {
	minimal := []string{
		"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]",
		"the", "a", "an", "is", "are", "to", "of", "in", "for", "on", "with",
		"click", "button", "link", "submit", "search", "input", "field",
		"checkbox", "radio", "select", "option", "menu", "nav", "form",
		"text", "label", "icon", "image", "close", "open", "cancel", "ok",
		"login", "logout", "sign", "up", "down", "next", "previous", "page",
		"##s", "##ed", "##ing", "##er", "##ly",
	}
	for i, tok := range minimal {
		t.vocab[tok] = int64(i)
		t.idToToken[int64(i)] = tok
	}
	t.setSpecialTokenIDs()
}

func (t *wordPieceTokenizer) setSpecialTokenIDs() {
	if id, ok := t.vocab["[CLS]"]; ok {
		t.clsTokenID = id
	}
	if id, ok := t.vocab["[SEP]"]; ok {
		t.sepTokenID = id
	}
	if id, ok := t.vocab["[PAD]"]; ok {
		t.padTokenID = id
	}
	if id, ok := t.vocab["[UNK]"]; ok {
		t.unkTokenID = id
	}
}

// Tokenize converts text into a fixed-shape tensor input, truncating to
// maxLength tokens including the [CLS]/[SEP] pair.
func (t *wordPieceTokenizer) Tokenize(text string, maxLength int) *tokenizedInput {
	text = strings.ToLower(text)
	text = t.normalizeText(text)
	words := strings.Fields(text)

	tokens := []int64{t.clsTokenID}
	for _, word := range words {
		tokens = append(tokens, t.tokenizeWord(word)...)
		if len(tokens) >= maxLength-1 {
			break
		}
	}
	tokens = append(tokens, t.sepTokenID)
	if len(tokens) > maxLength {
		tokens = append(tokens[:maxLength-1], t.sepTokenID)
	}

	seqLen := len(tokens)
	attentionMask := make([]int64, seqLen)
	tokenTypeIDs := make([]int64, seqLen)
	for i := range attentionMask {
		attentionMask[i] = 1
	}

	return &tokenizedInput{InputIDs: tokens, AttentionMask: attentionMask, TokenTypeIDs: tokenTypeIDs}
}

func (t *wordPieceTokenizer) normalizeText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	var b strings.Builder
	for _, r := range text {
		if unicode.IsPunct(r) {
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func (t *wordPieceTokenizer) tokenizeWord(word string) []int64 {
	if id, ok := t.vocab[word]; ok {
		return []int64{id}
	}

	var tokens []int64
	start := 0
	for start < len(word) {
		end := len(word)
		found := false
		for end > start {
			substr := word[start:end]
			if start > 0 {
				substr = "##" + substr
			}
			if id, ok := t.vocab[substr]; ok {
				tokens = append(tokens, id)
				found = true
				break
			}
			end--
		}
		if !found {
			tokens = append(tokens, t.unkTokenID)
			start++
		} else {
			start = end
		}
	}
	if len(tokens) == 0 {
		return []int64{t.unkTokenID}
	}
	return tokens
}
