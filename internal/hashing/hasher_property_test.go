// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hashing

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/traylinx/her/internal/descriptor"
)

// canonicalAttrKeys are the attribute keys Canonical reads under ModeBoth;
// any other key a caller sets is ignored by the projection.
var canonicalAttrKeys = []string{
	"role", "aria-label", "title", "alt", "placeholder",
	"name", "value", "id", "class", "href",
}

// buildAttrs assigns vals (one per canonicalAttrKeys entry) to a map,
// inserting in the order given by perm so two calls with the same vals
// but different perm exercise different map construction orders.
func buildAttrs(vals []string, perm []int) map[string]string {
	m := make(map[string]string, len(canonicalAttrKeys))
	for _, i := range perm {
		m[canonicalAttrKeys[i]] = vals[i]
	}
	return m
}

func identityPerm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// TestProperty_CanonicalInvariantUnderAttributeInsertionOrder generates
// random attribute value assignments and checks that Canonical/ElementHash
// depend only on the (tag, value-set) pair, never on the order the
// Attributes map happened to be built in — spec.md §8's canonical
// determinism property.
func TestProperty_CanonicalInvariantUnderAttributeInsertionOrder(t *testing.T) {
	properties := gopter.NewProperties(nil)

	valsGen := gen.SliceOfN(len(canonicalAttrKeys), gen.AlphaString())

	properties.Property("canonical form and element hash are order-independent", prop.ForAll(
		func(vals []string, tag string, seed int64) bool {
			forward := identityPerm(len(canonicalAttrKeys))
			shuffled := identityPerm(len(canonicalAttrKeys))
			rnd := rand.New(rand.NewSource(seed))
			rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

			d1 := &descriptor.Descriptor{Tag: tag, Attributes: buildAttrs(vals, forward)}
			d2 := &descriptor.Descriptor{Tag: tag, Attributes: buildAttrs(vals, shuffled)}

			return Canonical(d1, ModeBoth) == Canonical(d2, ModeBoth) &&
				ElementHash(d1, ModeBoth) == ElementHash(d2, ModeBoth) &&
				len(ElementHash(d1, ModeBoth)) == 40
		},
		valsGen,
		gen.AlphaString(),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// TestProperty_DOMHashInvariantUnderFrameOrder generates a random set of
// frame (url, hash) sketches and checks that DOMHash is identical across
// an arbitrary shuffle of that set, per spec.md §8's DOM hash
// permutation-invariance property.
func TestProperty_DOMHashInvariantUnderFrameOrder(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Each generated seed string stands in for one frame: its URL and
	// frame_hash are both derived from the seed, so a single
	// gen.SliceOf(gen.AlphaString()) is enough to produce arbitrary-length
	// frame lists without needing a struct generator.
	frameGen := gen.SliceOf(gen.AlphaString())

	properties.Property("dom hash is invariant under frame reordering", prop.ForAll(
		func(seeds []string, seed int64) bool {
			frames := make([]FrameSketchInput, len(seeds))
			for i, s := range seeds {
				frames[i] = FrameSketchInput{URL: "https://example.test/" + s, FrameHash: "hash-" + s}
			}
			base := DOMHash(frames)

			shuffled := append([]FrameSketchInput(nil), frames...)
			rnd := rand.New(rand.NewSource(seed))
			rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

			return DOMHash(shuffled) == base
		},
		frameGen,
		gen.Int64(),
	))

	properties.TestingRun(t)
}
