// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package promotion

import (
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/traylinx/her/internal/statedir"
)

// TestProperty_ScoreStaysBoundedAndMonotonicPerOutcome replays a random
// sequence of success/failure outcomes against one key and checks, after
// every single step, that Score/Confidence never leave [0, 1] and that
// the step's direction matches its outcome: a success never lowers Score
// from what it was before the call, a failure never raises it.
func TestProperty_ScoreStaysBoundedAndMonotonicPerOutcome(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("score is bounded and moves monotonically with each outcome", prop.ForAll(
		func(outcomes []bool) bool {
			dir := t.TempDir()
			dirs, err := statedir.New(dir, dir)
			if err != nil {
				return false
			}
			store, err := OpenJSONStore(dirs, filepath.Join(dir, "promotions.json"))
			if err != nil {
				return false
			}
			key := Key{PageSignature: "p", FrameHash: "f", LabelKey: "submit"}

			var prevScore float64
			for _, success := range outcomes {
				var rec *Record
				if success {
					rec, err = store.RecordSuccess(key, "//button", "semantic", nil)
				} else {
					rec, err = store.RecordFailure(key, "//button")
				}
				if err != nil {
					return false
				}
				if rec.Score < 0 || rec.Score > 1 {
					return false
				}
				if rec.Confidence < 0 || rec.Confidence > 1 {
					return false
				}
				if success && rec.Score < prevScore {
					return false
				}
				if !success && rec.Score > prevScore {
					return false
				}
				total := rec.SuccessCount + rec.FailureCount
				wantConfidence := float64(rec.SuccessCount) / float64(total)
				if diff := rec.Confidence - wantConfidence; diff > 1e-9 || diff < -1e-9 {
					return false
				}
				prevScore = rec.Score
			}
			return true
		},
		gen.SliceOfN(30, gen.Bool()),
	))

	properties.TestingRun(t)
}
