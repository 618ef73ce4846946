// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package weaviate is an alternate frameindex.VectorStore backed by a
// remote Weaviate instance, for frame sizes where exact brute-force
// cosine over the in-process flat store stops being the right trade-off
// (spec.md §4.4's own note that "a pluggable vector-store interface
// allows later substitution"). Grounded on AleutianAI-AleutianFOSS's
// go.mod dependency on weaviate-go-client/v5; no usable client call site
// survived retrieval, so the query/insert shape here follows the
// library's own documented v5 API rather than a ported file.
package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/traylinx/her/internal/frameindex"
)

// Config points the store at a Weaviate instance and the class it should
// use for a single frame's rows.
type Config struct {
	Host      string // e.g. "localhost:8080"
	Scheme    string // "http" or "https"
	ClassName string // unique per frame, e.g. "HerFrame_<frame_hash>"
}

// Store implements frameindex.VectorStore against a remote Weaviate
// class. Row ids are Weaviate's own monotonically assigned "rowId"
// property, since Weaviate object UUIDs aren't ordered integers.
type Store struct {
	client    *weaviate.Client
	className string
	nextRowID int
}

// New connects to the Weaviate instance in cfg and ensures its class
// exists, creating a vector-only schema (a single "rowId" int property)
// if it does not.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := weaviate.New(weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme})

	exists, err := client.Schema().ClassExistenceChecker().WithClassName(cfg.ClassName).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("frameindex/weaviate: check class: %w", err)
	}
	if !exists {
		class := &models.Class{
			Class:      cfg.ClassName,
			Vectorizer: "none",
			Properties: []*models.Property{
				{Name: "rowId", DataType: []string{"int"}},
			},
		}
		if err := client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return nil, fmt.Errorf("frameindex/weaviate: create class: %w", err)
		}
	}

	return &Store{client: client, className: cfg.ClassName}, nil
}

// Add inserts vectors as new objects, assigning each the next sequential
// rowId so Search results can be joined back to frameindex's own
// descriptor slice by integer index, same as the flat store.
func (s *Store) Add(vectors [][]float32) ([]int, error) {
	ctx := context.Background()
	ids := make([]int, len(vectors))

	batcher := s.client.Batch().ObjectsBatcher()
	for i, v := range vectors {
		rowID := s.nextRowID + i
		ids[i] = rowID

		obj := &models.Object{
			Class:      s.className,
			Properties: map[string]interface{}{"rowId": rowID},
			Vector:     v,
		}
		batcher = batcher.WithObjects(obj)
	}
	s.nextRowID += len(vectors)

	if _, err := batcher.Do(ctx); err != nil {
		return nil, fmt.Errorf("frameindex/weaviate: batch insert: %w", err)
	}
	return ids, nil
}

// Search runs a nearVector GraphQL query for the k closest rows and
// returns their rowId and a cosine-style score (Weaviate's "certainty",
// which for a cosine-distance class is (1+cos)/2, translated back here).
func (s *Store) Search(query []float32, k int) ([]frameindex.ScoredRow, error) {
	if k <= 0 {
		return nil, nil
	}
	ctx := context.Background()

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(query)
	fields := []graphql.Field{
		{Name: "rowId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("frameindex/weaviate: search: %w", err)
	}
	if result.Errors != nil && len(result.Errors) > 0 {
		return nil, fmt.Errorf("frameindex/weaviate: search returned %d GraphQL errors", len(result.Errors))
	}

	return parseSearchResults(result.Data, s.className)
}

// Len returns the current object count for this store's class.
func (s *Store) Len() int {
	ctx := context.Background()
	agg, err := s.client.GraphQL().Aggregate().
		WithClassName(s.className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil || agg == nil {
		return 0
	}
	return extractAggregateCount(agg.Data, s.className)
}

// filtersUnused documents that this package imports the filters package
// only to keep a v5-API-compatible import surface for a future
// attribute-filtered search (e.g. restrict to a frame_id); not yet
// exercised by any SPEC_FULL.md component.
var _ = filters.Where
