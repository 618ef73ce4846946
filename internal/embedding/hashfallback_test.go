package embedding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(32, 32)
	v1, err := e.TextEmbed("find the submit button")
	require.NoError(t, err)
	v2, err := e.TextEmbed("find the submit button")
	require.NoError(t, err)
	require.Equal(t, v1, v2)
}

func TestHashEmbedderEmptyInputIsZeroVector(t *testing.T) {
	e := NewHashEmbedder(16, 16)
	v, err := e.TextEmbed("")
	require.NoError(t, err)
	require.Len(t, v, 16)
	for _, x := range v {
		require.Zero(t, x)
	}
}

func TestHashEmbedderQueryAndElementDontCollide(t *testing.T) {
	e := NewHashEmbedder(32, 32)
	q, _ := e.TextEmbed("submit")
	el, _ := e.ElementEmbed("submit")
	require.NotEqual(t, q, el)
}

func TestHashEmbedderIsUnitNorm(t *testing.T) {
	e := NewHashEmbedder(32, 32)
	v, _ := e.TextEmbed("apply filter")

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, sumSq, 1e-4)
}

func TestHashEmbedderBatchMatchesSingle(t *testing.T) {
	e := NewHashEmbedder(16, 16)
	texts := []string{"a", "b", "c"}

	batch, err := e.BatchTextEmbed(texts)
	require.NoError(t, err)
	for i, text := range texts {
		single, err := e.TextEmbed(text)
		require.NoError(t, err)
		require.Equal(t, single, batch[i])
	}
}

func TestCosineSimilarityTruncatesToShorter(t *testing.T) {
	a := []float32{1, 0, 0, 1}
	b := []float32{1, 0}
	require.Equal(t, 1.0, CosineSimilarity(a, b))
}

func TestCosineSimilarityEmptyIsZero(t *testing.T) {
	require.Equal(t, 0.0, CosineSimilarity(nil, nil))
}
