package hashing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traylinx/her/internal/descriptor"
)

func sampleDescriptor() *descriptor.Descriptor {
	return &descriptor.Descriptor{
		Tag:  "button",
		Text: "Apply Filter",
		Attributes: map[string]string{
			"role":       "button",
			"aria-label": "Apply the filter",
			"id":         "apply-btn",
			"class":      "btn btn-primary",
			"name":       "apply",
			"href":       "https://example.com/apply?x=1",
		},
	}
}

func TestCanonicalDeterminism(t *testing.T) {
	d := sampleDescriptor()
	c1 := Canonical(d, ModeBoth)
	h1 := ElementHash(d, ModeBoth)

	// Rebuild the same logical descriptor with a different map insertion
	// order (Go maps are unordered at iteration time regardless, but this
	// documents the invariant under test: same set of key/value pairs).
	d2 := sampleDescriptor()
	d2.Attributes = map[string]string{
		"href":       "https://example.com/apply?x=1",
		"name":       "apply",
		"class":      "btn btn-primary",
		"id":         "apply-btn",
		"aria-label": "Apply the filter",
		"role":       "button",
	}

	c2 := Canonical(d2, ModeBoth)
	h2 := ElementHash(d2, ModeBoth)

	require.Equal(t, c1, c2)
	require.Equal(t, h1, h2)
}

func TestCanonicalModeFiltersFields(t *testing.T) {
	d := sampleDescriptor()
	both := Canonical(d, ModeBoth)
	domOnly := Canonical(d, ModeDOMOnly)
	axOnly := Canonical(d, ModeAccessibilityOnly)

	require.Contains(t, both, "Apply the filter")
	require.NotContains(t, domOnly, "Apply the filter") // role/aria dropped
	require.Contains(t, domOnly, "apply-btn")            // id kept

	require.Contains(t, axOnly, "Apply the filter") // role/aria kept
	require.NotContains(t, axOnly, "apply-btn")      // id dropped
}

func TestElementHashLength(t *testing.T) {
	h := ElementHash(sampleDescriptor(), ModeBoth)
	require.Len(t, h, 40) // hex-20
}

func TestDOMHashPermutationInvariant(t *testing.T) {
	frames := []FrameSketchInput{
		{URL: "https://example.com/a", FrameHash: "h1"},
		{URL: "https://example.com/b", FrameHash: "h2"},
		{URL: "https://example.com/c", FrameHash: "h3"},
	}
	base := DOMHash(frames)

	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]FrameSketchInput(nil), frames...)
		rnd.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		require.Equal(t, base, DOMHash(shuffled))
	}
}

func TestPageSignatureCaseInsensitive(t *testing.T) {
	a := PageSignature("HTTPS://Example.com/Phones")
	b := PageSignature("https://example.com/phones")
	// PageSignature lowercases the whole scheme://host+path string, so
	// inputs differing only in letter case (path included) hash the same.
	c := PageSignature("https://example.com/Phones")
	require.Equal(t, a, c)
	require.NotEqual(t, b, "")
}

func TestFrameHashDeterministicForSameInput(t *testing.T) {
	els := []*descriptor.Descriptor{
		{Tag: "div"}, {Tag: "span"}, {Tag: "button"},
	}
	h1 := FrameHash("https://example.com/x", els)
	h2 := FrameHash("https://example.com/x", els)
	require.Equal(t, h1, h2)
}
