// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package promotion

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
)

// postgresSchema mirrors sqliteSchema, adapted to Postgres column types
// ($n placeholders, JSONB for structured columns).
const postgresSchema = `
CREATE TABLE IF NOT EXISTS promotions (
	page_signature TEXT NOT NULL,
	frame_hash TEXT NOT NULL,
	label_key TEXT NOT NULL,
	primary_locator TEXT NOT NULL,
	alternates JSONB NOT NULL DEFAULT '[]',
	strategy TEXT NOT NULL DEFAULT '',
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0,
	score DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	attrs JSONB NOT NULL DEFAULT '{}',
	last_success_ts TIMESTAMPTZ,
	last_failure_ts TIMESTAMPTZ,
	PRIMARY KEY (page_signature, frame_hash, label_key)
);
`

// PostgresStore is the alternate relational backend for deployments that
// centralize promotion data across multiple her processes. Grounded on
// the teacher's internal/store.PostgresStore shape: a *sql.DB opened
// against the pgx stdlib driver, plain parameterized queries, no ORM.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgresStore opens (and migrates) a Postgres-backed Store at dsn.
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("promotion: open postgres: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("promotion: create schema: %w", err)
	}
	log.Info("promotion store initialized (postgres)")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) get(key Key) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT primary_locator, alternates, strategy, success_count, failure_count,
		       score, confidence, attrs, last_success_ts, last_failure_ts
		FROM promotions WHERE page_signature = $1 AND frame_hash = $2 AND label_key = $3`,
		key.PageSignature, key.FrameHash, key.LabelKey)

	var r Record
	r.Key = key
	var alternatesJSON, attrsJSON []byte
	var lastSuccess, lastFailure sql.NullTime

	err := row.Scan(&r.PrimaryLocator, &alternatesJSON, &r.Strategy, &r.SuccessCount, &r.FailureCount,
		&r.Score, &r.Confidence, &attrsJSON, &lastSuccess, &lastFailure)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("promotion: scan record: %w", err)
	}

	_ = json.Unmarshal(alternatesJSON, &r.Alternates)
	_ = json.Unmarshal(attrsJSON, &r.ElementAttributesSnapshot)
	if lastSuccess.Valid {
		r.LastSuccessTS = lastSuccess.Time
	}
	if lastFailure.Valid {
		r.LastFailureTS = lastFailure.Time
	}
	return &r, nil
}

func (s *PostgresStore) upsert(r *Record) error {
	alternatesJSON, _ := json.Marshal(r.Alternates)
	attrsJSON, _ := json.Marshal(r.ElementAttributesSnapshot)

	_, err := s.db.Exec(`
		INSERT INTO promotions (
			page_signature, frame_hash, label_key, primary_locator, alternates, strategy,
			success_count, failure_count, score, confidence, attrs, last_success_ts, last_failure_ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (page_signature, frame_hash, label_key) DO UPDATE SET
			primary_locator = EXCLUDED.primary_locator,
			alternates = EXCLUDED.alternates,
			strategy = EXCLUDED.strategy,
			success_count = EXCLUDED.success_count,
			failure_count = EXCLUDED.failure_count,
			score = EXCLUDED.score,
			confidence = EXCLUDED.confidence,
			attrs = EXCLUDED.attrs,
			last_success_ts = EXCLUDED.last_success_ts,
			last_failure_ts = EXCLUDED.last_failure_ts`,
		r.Key.PageSignature, r.Key.FrameHash, r.Key.LabelKey, r.PrimaryLocator, alternatesJSON, r.Strategy,
		r.SuccessCount, r.FailureCount, r.Score, r.Confidence, attrsJSON, nullTime(r.LastSuccessTS), nullTime(r.LastFailureTS))
	if err != nil {
		return fmt.Errorf("promotion: upsert record: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordSuccess(key Key, locator, strategy string, attrs map[string]string) (*Record, error) {
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

func (s *PostgresStore) RecordFailure(key Key, locator string) (*Record, error) {
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

func (s *PostgresStore) Best(key Key, minScore, minConfidence float64) (*Record, bool, error) {
	r, err := s.get(key)
	if err != nil {
		return nil, false, err
	}
	if r == nil || r.Score < minScore || r.Confidence < minConfidence {
		return nil, false, nil
	}
	return r, true, nil
}

func (s *PostgresStore) FallbackChain(key Key, n int) ([]*Record, error) {
	r, err := s.get(key)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	return []*Record{r}, nil
}
