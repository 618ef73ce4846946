// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wire defines the stable, bit-exact-for-round-trip Result JSON
// shape of spec.md §6 and §3: `{element, xpath, confidence, strategy,
// used_frame_id, frame_path, metadata{...}, fallbacks[], reasons[]}`.
// internal/pipeline builds a Result as it resolves a query; this package
// only knows how to encode/decode it.
package wire

import (
	"math"

	json "github.com/goccy/go-json"
	"github.com/tidwall/sjson"

	"github.com/traylinx/her/internal/descriptor"
)

// Element is the wire projection of descriptor.Descriptor, with the
// lower_snake_case field names spec.md §3 names for the element
// descriptor (the in-process Descriptor type carries no JSON tags of its
// own, since nothing before this package needed one).
type Element struct {
	BackendNodeID string            `json:"backend_node_id"`
	FrameID       string            `json:"frame_id"`
	FramePath     []int             `json:"frame_path"`
	XPath         string            `json:"xpath"`
	ComputedXPath string            `json:"computed_xpath"`
	Tag           string            `json:"tag"`
	Role          string            `json:"role"`
	Text          string            `json:"text"`
	Attributes    map[string]string `json:"attributes"`
	Visible       bool              `json:"visible"`
	Clickable     bool              `json:"clickable"`
	Disabled      bool              `json:"disabled"`
	BBox          BBox              `json:"bbox"`
	InShadowDOM   bool              `json:"in_shadow_dom"`
}

// BBox mirrors descriptor.BBox with wire field names.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ElementFromDescriptor projects d into its wire shape. A nil d yields a
// nil Element, so an empty-result Result marshals with "element": null
// rather than a zero-valued object.
func ElementFromDescriptor(d *descriptor.Descriptor) *Element {
	if d == nil {
		return nil
	}
	return &Element{
		BackendNodeID: d.BackendNodeID,
		FrameID:       d.FrameID,
		FramePath:     d.FramePath,
		XPath:         d.XPath,
		ComputedXPath: d.ComputedXPath,
		Tag:           d.Tag,
		Role:          d.Role,
		Text:          d.Text,
		Attributes:    d.Attributes,
		Visible:       d.Visible,
		Clickable:     d.Clickable,
		Disabled:      d.Disabled,
		BBox:          BBox{X: d.BBox.X, Y: d.BBox.Y, W: d.BBox.W, H: d.BBox.H},
		InShadowDOM:   d.InShadowDOM,
	}
}

// Metadata is the Result.metadata object of spec.md §3/§6.
type Metadata struct {
	CacheHits    int  `json:"cache_hits"`
	CacheMisses  int  `json:"cache_misses"`
	InShadowDOM  bool `json:"in_shadow_dom"`
}

// Result is the stable wire shape of a query/act outcome, per spec.md §6:
// "bit-exact for round-trip tests". Confidence is clamped to [0,1] and
// rounded to at most 6 fractional digits before encoding.
type Result struct {
	Element     *Element `json:"element"`
	XPath       string   `json:"xpath"`
	Confidence  float64  `json:"confidence"`
	Strategy    string   `json:"strategy"`
	UsedFrameID string   `json:"used_frame_id"`
	FramePath   []int    `json:"frame_path"`
	Metadata    Metadata `json:"metadata"`
	Fallbacks   []string `json:"fallbacks"`
	Reasons     []string `json:"reasons"`
}

// maxFallbacks is spec.md §3's "fallbacks[≤5]" bound.
const maxFallbacks = 5

// roundConfidence rounds f to 6 fractional digits and clamps to [0,1],
// per spec.md §6 ("at most 6 fractional digits").
func roundConfidence(f float64) float64 {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	const scale = 1e6
	return math.Round(f*scale) / scale
}

// Encode marshals r into its canonical JSON form. Fallbacks beyond
// maxFallbacks are dropped (truncated silently is wrong for this
// invariant-bearing field, so callers should already have trimmed
// Fallbacks — Encode enforces the bound defensively rather than
// re-deriving which ones to keep). Confidence is re-set via sjson after
// the initial marshal, the same "patch one field into an already-built
// payload" idiom the teacher's executors use for the `model` field, so
// the rounding rule lives in one place regardless of how r.Confidence
// was produced.
func Encode(r Result) ([]byte, error) {
	if len(r.Fallbacks) > maxFallbacks {
		r.Fallbacks = r.Fallbacks[:maxFallbacks]
	}
	r.Confidence = roundConfidence(r.Confidence)

	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytesOptions(b, "confidence", r.Confidence, &sjson.Options{Optimistic: true})
}

// Decode parses bytes written by Encode.
func Decode(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, err
	}
	return r, nil
}
