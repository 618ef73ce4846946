// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package promotion implements the promotion store of spec.md §4.8: a
// keyed record of which locator has historically worked for a given
// page/frame/target-phrase, so the query pipeline can short-circuit
// straight to a known-good locator instead of re-ranking from scratch.
// Three interchangeable backends (SQLite, JSON file, Postgres) satisfy
// the same Store interface.
package promotion

import (
	"sort"
	"strings"
	"time"
)

// Key identifies one promotion record, per spec.md §3.
type Key struct {
	PageSignature string
	FrameHash     string
	LabelKey      string
}

// Record is the promotion record shape of spec.md §3.
type Record struct {
	Key Key

	PrimaryLocator string
	Alternates     []string
	Strategy       string

	SuccessCount int
	FailureCount int
	Score        float64
	Confidence   float64

	ElementAttributesSnapshot map[string]string

	LastSuccessTS time.Time
	LastFailureTS time.Time
}

// computeConfidence derives confidence = success/(success+failure), per
// spec.md §4.8; zero attempts yields zero confidence rather than NaN.
func (r *Record) computeConfidence() {
	total := r.SuccessCount + r.FailureCount
	if total == 0 {
		r.Confidence = 0
		return
	}
	r.Confidence = float64(r.SuccessCount) / float64(total)
}

// Store is the promotion-store contract; SQLite, JSON-file, and Postgres
// backends each implement it identically.
type Store interface {
	// RecordSuccess increments the success count, raises score by 0.1
	// (capped at 1), and snapshots locator/strategy/attrs as current.
	RecordSuccess(key Key, locator, strategy string, attrs map[string]string) (*Record, error)
	// RecordFailure increments the failure count and lowers score by 0.1
	// (floored at 0).
	RecordFailure(key Key, locator string) (*Record, error)
	// Best returns the highest score*confidence record meeting both
	// thresholds, or ok=false if none qualifies.
	Best(key Key, minScore, minConfidence float64) (record *Record, ok bool, err error)
	// FallbackChain returns up to n records for key ordered by
	// score*confidence descending.
	FallbackChain(key Key, n int) ([]*Record, error)
	Close() error
}

// LabelKey derives spec.md §3's label_key: the lowercase token set of
// the target phrase, sorted for a stable identity regardless of word
// order, joined with "-".
func LabelKey(targetPhrase string) string {
	seen := make(map[string]bool)
	var tokens []string
	for _, f := range strings.Fields(strings.ToLower(targetPhrase)) {
		trimmed := strings.Trim(f, ".,!?;:'\"()")
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		tokens = append(tokens, trimmed)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, "-")
}

// rankScore is score*confidence, the ordering spec.md §4.8 uses for both
// Best and FallbackChain.
func rankScore(r *Record) float64 { return r.Score * r.Confidence }

// sortByRankDescending orders records by rankScore descending, breaking
// ties by the most recent success so a fresher locator wins.
func sortByRankDescending(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		si, sj := rankScore(records[i]), rankScore(records[j])
		if si != sj {
			return si > sj
		}
		return records[i].LastSuccessTS.After(records[j].LastSuccessTS)
	})
}

// ValidateMatch scores the similarity of a stored record's attribute
// snapshot against a live element's current attributes, per spec.md
// §4.8: id/name/role/type/tag compared for exact equality (each worth an
// equal share), classes compared via Jaccard similarity over the
// whitespace-split class token sets, and text compared as exact-or
// -substring. The result is the mean of whichever fields are present in
// both snapshots, in [0, 1]; a record with no comparable fields scores 0.
func ValidateMatch(stored, current map[string]string) float64 {
	exactFields := []string{"id", "name", "role", "type", "tag"}

	var total float64
	var count int

	for _, f := range exactFields {
		sv, sok := stored[f]
		cv, cok := current[f]
		if !sok || !cok {
			continue
		}
		count++
		if sv == cv {
			total++
		}
	}

	if sv, sok := stored["class"]; sok {
		if cv, cok := current["class"]; cok {
			count++
			total += jaccard(strings.Fields(sv), strings.Fields(cv))
		}
	}

	if sv, sok := stored["text"]; sok {
		if cv, cok := current["text"]; cok {
			count++
			if sv == cv || strings.Contains(cv, sv) || strings.Contains(sv, cv) {
				total++
			}
		}
	}

	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	setA := make(map[string]bool, len(a))
	for _, v := range a {
		setA[v] = true
	}
	setB := make(map[string]bool, len(b))
	for _, v := range b {
		setB[v] = true
	}
	var intersection, union int
	for v := range setA {
		if setB[v] {
			intersection++
		}
	}
	union = len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
