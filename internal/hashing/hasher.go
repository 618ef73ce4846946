// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hashing computes the deterministic fingerprints every other
// retrieval-engine component keys its caches on: the canonical descriptor
// projection, the element hash, the frame hash, the DOM hash, and the page
// signature. Grounded on the original implementation's hashing.py, ported
// field-for-field and extended with HASH_VERSION mixing and the
// HER_CANONICAL_MODE field-filtering the original left implicit.
package hashing

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/traylinx/her/internal/descriptor"
)

// HashVersion is mixed into every hash produced by this package. Any
// change to canonical() below must bump this constant — it is a
// cache-breaking version bump, not a cosmetic one, per spec.md §4.1.
const HashVersion byte = 1

// CanonicalMode controls which descriptor fields feed the canonical
// projection, per HER_CANONICAL_MODE (spec.md §6) and the supplemented
// feature recorded in SPEC_FULL.md.
type CanonicalMode int

const (
	// ModeBoth includes DOM-only and accessibility-only fields. Default.
	ModeBoth CanonicalMode = iota
	// ModeDOMOnly drops role and aria-label (accessibility-only signals).
	ModeDOMOnly
	// ModeAccessibilityOnly drops id, class, and href (DOM-structural
	// signals), keeping role/aria-label/title/alt/placeholder/name/value/text.
	ModeAccessibilityOnly
)

// ParseCanonicalMode maps the HER_CANONICAL_MODE string values to a Mode,
// defaulting to ModeBoth for an empty or unrecognized value.
func ParseCanonicalMode(s string) CanonicalMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dom_only":
		return ModeDOMOnly
	case "accessibility_only":
		return ModeAccessibilityOnly
	default:
		return ModeBoth
	}
}

// canonicalFields is the deterministic projection used for hashing and
// text embedding: spec.md §3's ordered field list, expressed as a JSON
// object whose keys follow this struct's declaration order (not
// alphabetical order), so byte order is fixed by the struct itself rather
// than by how a map would be marshaled.
type canonicalFields struct {
	Tag         string `json:"tag"`
	Role        string `json:"role"`
	Aria        string `json:"aria"`
	Title       string `json:"title"`
	Alt         string `json:"alt"`
	Placeholder string `json:"placeholder"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	ID          string `json:"id"`
	Class       string `json:"class"`
	Text        string `json:"text"`
	Href        string `json:"href"`
}

func hostPath(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Host + u.Path
}

func nfc(s string) string { return norm.NFC.String(s) }

func collapseSpace(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

// Canonical builds the deterministic text projection of d per spec.md §3,
// honoring mode's field filtering.
func Canonical(d *descriptor.Descriptor, mode CanonicalMode) string {
	attrs := d.Attributes
	get := func(k string) string { return attrs[k] }

	f := canonicalFields{
		Tag:   strings.ToUpper(d.Tag),
		Value: get("value"),
		ID:    get("id"),
		Class: strings.Join(strings.Fields(get("class")), " "),
		Text:  collapseSpace(d.Text),
		Href:  hostPath(get("href")),
	}

	switch mode {
	case ModeDOMOnly:
		// Drop role/aria-label; keep structural/DOM fields.
		f.Title = get("title")
		f.Alt = get("alt")
		f.Placeholder = get("placeholder")
		f.Name = get("name")
	case ModeAccessibilityOnly:
		// Drop id/class/href; keep accessibility-tree fields.
		f.Role = get("role")
		f.Aria = get("aria-label")
		f.Title = get("title")
		f.Alt = get("alt")
		f.Placeholder = get("placeholder")
		f.Name = get("name")
		f.ID = ""
		f.Class = ""
		f.Href = ""
	default: // ModeBoth
		f.Role = get("role")
		f.Aria = get("aria-label")
		f.Title = get("title")
		f.Alt = get("alt")
		f.Placeholder = get("placeholder")
		f.Name = get("name")
	}

	f.Tag = nfc(f.Tag)
	f.Text = nfc(f.Text)

	// sort.Strings has no effect here (fields are fixed, not a map), but
	// marshaling a struct with json tags gives a byte-stable field order
	// regardless of attribute insertion order in the source descriptor —
	// that insertion-order independence is the permutation invariant
	// spec.md §8 tests for.
	b, _ := json.Marshal(f)
	return string(b)
}

func sha1Hex(parts ...string) string {
	h := sha1.New()
	h.Write([]byte{HashVersion})
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ElementHash returns SHA-1(HASH_VERSION || canonical(d)) as lowercase hex.
func ElementHash(d *descriptor.Descriptor, mode CanonicalMode) string {
	return sha1Hex(Canonical(d, mode))
}

// frameSketch mirrors hashing.py's frame_hash: host+path, element count,
// and the first 10 uppercased tags of up to the first 50 elements.
type frameSketch struct {
	HostPath string   `json:"hp"`
	Count    int      `json:"n"`
	Tags     []string `json:"tags"`
}

// FrameHash returns the frame fingerprint for frameURL and its elements.
func FrameHash(frameURL string, elements []*descriptor.Descriptor) string {
	limit := len(elements)
	if limit > 50 {
		limit = 50
	}
	tags := make([]string, 0, 10)
	for i := 0; i < limit && len(tags) < 10; i++ {
		tags = append(tags, strings.ToUpper(elements[i].Tag))
	}
	sketch := frameSketch{
		HostPath: hostPath(frameURL),
		Count:    len(elements),
		Tags:     tags,
	}
	b, _ := json.Marshal(sketch)
	return sha1Hex(string(b))
}

// FrameSketchInput is one frame's (url, frameHash) pair used to compute a
// page-level DOM hash. Passing the already-computed per-frame hash avoids
// recomputing FrameHash when the caller already has it cached.
type FrameSketchInput struct {
	URL       string
	FrameHash string
}

// DOMHash computes the page-level DOM hash from a set of frame sketches.
// It sorts by normalized host+path before hashing, so it is invariant
// under reordering of frames (spec.md §8, "DOM hash permutation-invariance").
func DOMHash(frames []FrameSketchInput) string {
	type sk struct {
		U string `json:"u"`
		H string `json:"h"`
	}
	sketches := make([]sk, 0, len(frames))
	for _, f := range frames {
		sketches = append(sketches, sk{U: hostPath(f.URL), H: f.FrameHash})
	}
	sort.Slice(sketches, func(i, j int) bool {
		if sketches[i].U != sketches[j].U {
			return sketches[i].U < sketches[j].U
		}
		return sketches[i].H < sketches[j].H
	})
	b, _ := json.Marshal(sketches)
	return sha1Hex(string(b))
}

// PageSignature returns SHA-1(HASH_VERSION || lower(scheme://host+path)) of
// the top-level URL.
func PageSignature(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return sha1Hex(rawURL)
	}
	sig := strings.ToLower(u.Scheme + "://" + u.Host + u.Path)
	return sha1Hex(sig)
}
