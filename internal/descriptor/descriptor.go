// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package descriptor defines the normalized element representation every
// other retrieval-engine package operates on: a visible, actionable DOM
// node merged with its accessibility peer. It is a tagged struct, not a
// duck-typed map — unknown attributes fall into the Attributes field.
package descriptor

import "strings"

// BBox is the element's on-screen bounding box in CSS pixels.
type BBox struct {
	X, Y, W, H float64
}

// Area returns the box's area, used by the ranker's deterministic
// tie-break key (larger elements sort first among otherwise-equal
// candidates).
func (b BBox) Area() float64 { return b.W * b.H }

// Descriptor is one visible, actionable DOM element merged with its
// accessibility peer, per spec.md §3.
type Descriptor struct {
	// Identity.
	BackendNodeID string   // opaque, assigned by the snapshot provider
	FrameID       string   // opaque frame identifier
	FramePath     []int    // ordered path from the top frame; empty == main frame
	XPath         string   // absolute xpath
	ComputedXPath string   // relative, stable-attribute-preferring xpath

	// Semantics.
	Tag        string            // lowercase tag name, e.g. "button"
	Role       string            // ARIA role, explicit or implicit
	Text       string            // collapsed visible text, <=2KiB
	Attributes map[string]string // plain map, no defined order (see OrderedAttributes); empty values elided; style/on* excluded

	// State.
	Visible     bool
	Clickable   bool
	Disabled    bool
	BBox        BBox
	InShadowDOM bool
}

// MaxTextBytes bounds Text per spec.md §3 ("collapsed, ≤2 KiB").
const MaxTextBytes = 2048

// NormalizeText collapses whitespace and truncates to MaxTextBytes. Callers
// that build a Descriptor from raw accessibility/DOM data should run the
// text field through this before storing it, so canonical() never has to
// re-derive the invariant.
func NormalizeText(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	if len(collapsed) > MaxTextBytes {
		return collapsed[:MaxTextBytes]
	}
	return collapsed
}

// isExcludedAttr mirrors spec.md §3: "style/on* excluded".
func isExcludedAttr(name string) bool {
	lower := strings.ToLower(name)
	if lower == "style" {
		return true
	}
	return strings.HasPrefix(lower, "on")
}

// OrderedAttributes preserves the exact field order canonical() needs
// (insertion order via a companion slice), since Go maps have no stable
// iteration order and the invariant in spec.md §8 ("Canonical determinism")
// requires one.
type OrderedAttributes struct {
	names  []string
	values map[string]string
}

// NewOrderedAttributes builds an OrderedAttributes set, eliding empty
// values and excluded attribute names as spec.md §3 requires.
func NewOrderedAttributes() *OrderedAttributes {
	return &OrderedAttributes{values: make(map[string]string)}
}

// Set records name=value unless value is empty or name is excluded
// (style, on*). Re-setting an existing name updates the value in place
// without disturbing its original position.
func (a *OrderedAttributes) Set(name, value string) {
	if value == "" || isExcludedAttr(name) {
		return
	}
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = value
}

// Get returns the value for name and whether it was present.
func (a *OrderedAttributes) Get(name string) (string, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Map returns a defensive copy as a plain map, for JSON encoding and for
// descriptors built without caring about attribute order.
func (a *OrderedAttributes) Map() map[string]string {
	out := make(map[string]string, len(a.names))
	for _, n := range a.names {
		out[n] = a.values[n]
	}
	return out
}

// Names returns the attribute names in insertion order.
func (a *OrderedAttributes) Names() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Valid reports whether d satisfies the structural invariants from
// spec.md §3: Tag is non-empty. (Attribute values being strings and
// FramePath-empty-means-main-frame are enforced by the type system and by
// convention, respectively, and need no runtime check.)
func (d *Descriptor) Valid() bool {
	return d.Tag != ""
}

// InMainFrame reports whether the descriptor belongs to the top-level
// document, i.e. FramePath is empty.
func (d *Descriptor) InMainFrame() bool { return len(d.FramePath) == 0 }

// InteractiveRank implements the ranker's tie-break component: 0 for
// button, 1 for link/input/checkbox/radio/menuitem/tab or focusable, 2
// otherwise. Kept here (not in the ranker) since it is purely a function
// of the descriptor's own tag/role/clickable fields.
func (d *Descriptor) InteractiveRank() int {
	tag := strings.ToLower(d.Tag)
	role := strings.ToLower(d.Role)
	if tag == "button" {
		return 0
	}
	switch tag {
	case "a", "input", "select", "textarea":
		return 1
	}
	switch role {
	case "button", "link", "checkbox", "radio", "menuitem", "tab":
		return 1
	}
	if d.Clickable {
		return 1
	}
	return 2
}
