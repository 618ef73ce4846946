// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package weaviate

import (
	"fmt"

	"github.com/traylinx/her/internal/frameindex"
)

// parseSearchResults walks the raw GraphQL response shape the
// weaviate-go-client Get() builder returns (map[string]interface{} keyed
// by "Get" -> className -> []interface{} of objects) and converts it
// into frameindex.ScoredRow values.
func parseSearchResults(data map[string]interface{}, className string) ([]frameindex.ScoredRow, error) {
	getField, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	rawObjects, ok := getField[className].([]interface{})
	if !ok {
		return nil, nil
	}

	rows := make([]frameindex.ScoredRow, 0, len(rawObjects))
	for _, raw := range rawObjects {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		rowID, err := toInt(obj["rowId"])
		if err != nil {
			return nil, fmt.Errorf("frameindex/weaviate: parse rowId: %w", err)
		}

		certainty := 0.0
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			if c, ok := additional["certainty"].(float64); ok {
				certainty = c
			}
		}
		// certainty = (1 + cosine) / 2 for a cosine-distance class.
		cosine := 2*certainty - 1

		rows = append(rows, frameindex.ScoredRow{RowID: rowID, Score: cosine})
	}
	return rows, nil
}

// extractAggregateCount walks the Aggregate{...meta{count}} response
// shape, returning 0 if any piece is missing.
func extractAggregateCount(data map[string]interface{}, className string) int {
	aggField, ok := data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0
	}
	rawObjects, ok := aggField[className].([]interface{})
	if !ok || len(rawObjects) == 0 {
		return 0
	}
	obj, ok := rawObjects[0].(map[string]interface{})
	if !ok {
		return 0
	}
	meta, ok := obj["meta"].(map[string]interface{})
	if !ok {
		return 0
	}
	count, _ := toInt(meta["count"])
	return count
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
