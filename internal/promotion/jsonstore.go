// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package promotion

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/traylinx/her/internal/statedir"
)

// jsonRecord is Record's JSON-serializable twin; Key is flattened since
// Go map keys must be comparable strings, not structs, for encoding/json.
type jsonRecord struct {
	PageSignature             string            `json:"page_signature"`
	FrameHash                 string            `json:"frame_hash"`
	LabelKey                  string            `json:"label_key"`
	PrimaryLocator            string            `json:"primary_locator"`
	Alternates                []string          `json:"alternates"`
	Strategy                  string            `json:"strategy"`
	SuccessCount              int               `json:"success_count"`
	FailureCount              int               `json:"failure_count"`
	Score                     float64           `json:"score"`
	Confidence                float64           `json:"confidence"`
	ElementAttributesSnapshot map[string]string `json:"element_attributes_snapshot"`
	LastSuccessTS             time.Time         `json:"last_success_ts,omitempty"`
	LastFailureTS             time.Time         `json:"last_failure_ts,omitempty"`
}

func toJSONRecord(r *Record) jsonRecord {
	return jsonRecord{
		PageSignature: r.Key.PageSignature, FrameHash: r.Key.FrameHash, LabelKey: r.Key.LabelKey,
		PrimaryLocator: r.PrimaryLocator, Alternates: r.Alternates, Strategy: r.Strategy,
		SuccessCount: r.SuccessCount, FailureCount: r.FailureCount, Score: r.Score, Confidence: r.Confidence,
		ElementAttributesSnapshot: r.ElementAttributesSnapshot,
		LastSuccessTS:             r.LastSuccessTS, LastFailureTS: r.LastFailureTS,
	}
}

func fromJSONRecord(j jsonRecord) *Record {
	return &Record{
		Key: Key{PageSignature: j.PageSignature, FrameHash: j.FrameHash, LabelKey: j.LabelKey},
		PrimaryLocator: j.PrimaryLocator, Alternates: j.Alternates, Strategy: j.Strategy,
		SuccessCount: j.SuccessCount, FailureCount: j.FailureCount, Score: j.Score, Confidence: j.Confidence,
		ElementAttributesSnapshot: j.ElementAttributesSnapshot,
		LastSuccessTS:             j.LastSuccessTS, LastFailureTS: j.LastFailureTS,
	}
}

func keyOf(k Key) string { return k.PageSignature + "\x00" + k.FrameHash + "\x00" + k.LabelKey }

// JSONStore is the alternate flat-file backend named in spec.md §4.8. The
// whole table lives in memory and is rewritten atomically on every
// mutating call via internal/statedir.SecureWriteJSON, which is
// acceptable at the scale a promotion table reaches (one row per
// page/frame/label triple actually queried, not per element).
type JSONStore struct {
	mu   sync.Mutex
	dirs *statedir.Dirs
	path string
	data map[string]jsonRecord
}

// OpenJSONStore loads (or creates) the JSON promotion table at path.
func OpenJSONStore(dirs *statedir.Dirs, path string) (*JSONStore, error) {
	s := &JSONStore{dirs: dirs, path: path, data: make(map[string]jsonRecord)}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	var records []jsonRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	for _, r := range records {
		s.data[keyOf(Key{PageSignature: r.PageSignature, FrameHash: r.FrameHash, LabelKey: r.LabelKey})] = r
	}
	return s, nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) persist() error {
	records := make([]jsonRecord, 0, len(s.data))
	for _, r := range s.data {
		records = append(records, r)
	}
	return statedir.SecureWriteJSON(s.dirs, s.path, records, statedir.DefaultWriteOptions())
}

func (s *JSONStore) RecordSuccess(key Key, locator, strategy string, attrs map[string]string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.getLocked(key)
	r.PrimaryLocator = locator
	r.Strategy = strategy
	r.ElementAttributesSnapshot = attrs
	r.SuccessCount++
	r.Score = minFloat(1, r.Score+0.1)
	r.LastSuccessTS = time.Now()
	r.computeConfidence()

	s.data[keyOf(key)] = toJSONRecord(r)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *JSONStore) RecordFailure(key Key, locator string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.getLocked(key)
	if r.PrimaryLocator == "" {
		r.PrimaryLocator = locator
	}
	r.FailureCount++
	r.Score = maxFloat(0, r.Score-0.1)
	r.LastFailureTS = time.Now()
	r.computeConfidence()

	s.data[keyOf(key)] = toJSONRecord(r)
	if err := s.persist(); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *JSONStore) getLocked(key Key) *Record {
	if j, ok := s.data[keyOf(key)]; ok {
		return fromJSONRecord(j)
	}
	return &Record{Key: key}
}

func (s *JSONStore) Best(key Key, minScore, minConfidence float64) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.data[keyOf(key)]
	if !ok {
		return nil, false, nil
	}
	r := fromJSONRecord(j)
	if r.Score < minScore || r.Confidence < minConfidence {
		return nil, false, nil
	}
	return r, true, nil
}

func (s *JSONStore) FallbackChain(key Key, n int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.data[keyOf(key)]
	if !ok {
		return nil, nil
	}
	return []*Record{fromJSONRecord(j)}, nil
}
