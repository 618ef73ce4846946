// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package promotion

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

// sqliteSchema mirrors spec.md §6's promotions.db: one table, primary key
// (locator, context) expressed here as the three Key columns, the
// remaining columns per §4.8's record shape.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS promotions (
	page_signature TEXT NOT NULL,
	frame_hash TEXT NOT NULL,
	label_key TEXT NOT NULL,
	primary_locator TEXT NOT NULL,
	alternates TEXT NOT NULL DEFAULT '[]',
	strategy TEXT NOT NULL DEFAULT '',
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0,
	score REAL NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 0,
	attrs TEXT NOT NULL DEFAULT '{}',
	last_success_ts DATETIME,
	last_failure_ts DATETIME,
	PRIMARY KEY (page_signature, frame_hash, label_key)
);
`

// SQLiteStore is the default promotion-store backend: a single-file
// relational store, grounded on the teacher's feedback.Collector (same
// sql.Open("sqlite3", path) + schema-on-Initialize + single-connection
// pool shape).
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if absent) a SQLite-backed Store at
// path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("promotion: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("promotion: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("promotion: create schema: %w", err)
	}

	log.WithField("path", path).Info("promotion store initialized (sqlite)")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) get(key Key) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT primary_locator, alternates, strategy, success_count, failure_count,
		       score, confidence, attrs, last_success_ts, last_failure_ts
		FROM promotions WHERE page_signature = ? AND frame_hash = ? AND label_key = ?`,
		key.PageSignature, key.FrameHash, key.LabelKey)

	var r Record
	r.Key = key
	var alternatesJSON, attrsJSON string
	var lastSuccess, lastFailure sql.NullTime

	err := row.Scan(&r.PrimaryLocator, &alternatesJSON, &r.Strategy, &r.SuccessCount, &r.FailureCount,
		&r.Score, &r.Confidence, &attrsJSON, &lastSuccess, &lastFailure)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("promotion: scan record: %w", err)
	}

	_ = json.Unmarshal([]byte(alternatesJSON), &r.Alternates)
	_ = json.Unmarshal([]byte(attrsJSON), &r.ElementAttributesSnapshot)
	if lastSuccess.Valid {
		r.LastSuccessTS = lastSuccess.Time
	}
	if lastFailure.Valid {
		r.LastFailureTS = lastFailure.Time
	}
	return &r, nil
}

func (s *SQLiteStore) upsert(r *Record) error {
	alternatesJSON, _ := json.Marshal(r.Alternates)
	attrsJSON, _ := json.Marshal(r.ElementAttributesSnapshot)

	_, err := s.db.Exec(`
		INSERT INTO promotions (
			page_signature, frame_hash, label_key, primary_locator, alternates, strategy,
			success_count, failure_count, score, confidence, attrs, last_success_ts, last_failure_ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(page_signature, frame_hash, label_key) DO UPDATE SET
			primary_locator = excluded.primary_locator,
			alternates = excluded.alternates,
			strategy = excluded.strategy,
			success_count = excluded.success_count,
			failure_count = excluded.failure_count,
			score = excluded.score,
			confidence = excluded.confidence,
			attrs = excluded.attrs,
			last_success_ts = excluded.last_success_ts,
			last_failure_ts = excluded.last_failure_ts`,
		r.Key.PageSignature, r.Key.FrameHash, r.Key.LabelKey, r.PrimaryLocator, string(alternatesJSON), r.Strategy,
		r.SuccessCount, r.FailureCount, r.Score, r.Confidence, string(attrsJSON), nullTime(r.LastSuccessTS), nullTime(r.LastFailureTS))
	if err != nil {
		return fmt.Errorf("promotion: upsert record: %w", err)
	}
	return nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func (s *SQLiteStore) RecordSuccess(key Key, locator, strategy string, attrs map[string]string) (*Record, error) {
	r, err := s.get(key)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = &Record{Key: key}
	}
	r.PrimaryLocator = locator
	r.Strategy = strategy
	r.ElementAttributesSnapshot = attrs
	r.SuccessCount++
	r.Score = minFloat(1, r.Score+0.1)
	r.LastSuccessTS = time.Now()
	r.computeConfidence()

	if err := s.upsert(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLiteStore) RecordFailure(key Key, locator string) (*Record, error) {
	r, err := s.get(key)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = &Record{Key: key, PrimaryLocator: locator}
	}
	r.FailureCount++
	r.Score = maxFloat(0, r.Score-0.1)
	r.LastFailureTS = time.Now()
	r.computeConfidence()

	if err := s.upsert(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLiteStore) Best(key Key, minScore, minConfidence float64) (*Record, bool, error) {
	r, err := s.get(key)
	if err != nil {
		return nil, false, err
	}
	if r == nil || r.Score < minScore || r.Confidence < minConfidence {
		return nil, false, nil
	}
	return r, true, nil
}

// FallbackChain for the SQLite backend degenerates to the single record
// for key (the schema's primary key allows only one row per key); the
// "n records" framing in spec.md §4.8 matters for the alternates field
// within that one record, which is exposed via Record.Alternates.
func (s *SQLiteStore) FallbackChain(key Key, n int) ([]*Record, error) {
	r, err := s.get(key)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	return []*Record{r}, nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
