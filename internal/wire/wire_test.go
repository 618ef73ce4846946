package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traylinx/her/internal/descriptor"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := Result{
		Element: ElementFromDescriptor(&descriptor.Descriptor{
			Tag: "button", Text: "Submit", XPath: "//button[1]",
			Attributes: map[string]string{"id": "submit-btn"},
			Visible:    true, Clickable: true,
		}),
		XPath:       "//button[1]",
		Confidence:  0.8765432,
		Strategy:    "semantic",
		UsedFrameID: "frame-0",
		FramePath:   []int{0},
		Metadata:    Metadata{CacheHits: 1, CacheMisses: 2, InShadowDOM: false},
		Fallbacks:   []string{"//button[@id='submit-btn']"},
		Reasons:     []string{"exact token match"},
	}

	encoded, err := Encode(r)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, "//button[1]", decoded.XPath)
	require.Equal(t, "semantic", decoded.Strategy)
	require.Equal(t, "frame-0", decoded.UsedFrameID)
	require.Equal(t, []int{0}, decoded.FramePath)
	require.Equal(t, 1, decoded.Metadata.CacheHits)
	require.NotNil(t, decoded.Element)
	require.Equal(t, "button", decoded.Element.Tag)
}

func TestEncodeRoundsConfidenceToSixDigits(t *testing.T) {
	r := Result{XPath: "//a", Confidence: 1.0 / 3.0, Strategy: "css"}
	encoded, err := Encode(r)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, 0.333333, decoded.Confidence)
}

func TestEncodeClampsConfidence(t *testing.T) {
	r := Result{XPath: "//a", Confidence: 1.5, Strategy: "css"}
	encoded, err := Encode(r)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, 1.0, decoded.Confidence)
}

func TestEncodeTruncatesFallbacksToFive(t *testing.T) {
	r := Result{
		XPath:      "//a",
		Strategy:   "css",
		Fallbacks:  []string{"1", "2", "3", "4", "5", "6", "7"},
	}
	encoded, err := Encode(r)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded.Fallbacks, 5)
}

func TestEncodeNilElement(t *testing.T) {
	r := Result{XPath: "//a", Strategy: "css"}
	encoded, err := Encode(r)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Nil(t, decoded.Element)
}
