package frameindex

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traylinx/her/internal/descriptor"
	"github.com/traylinx/her/internal/embedding"
	"github.com/traylinx/her/internal/hashing"
)

func descriptors(n int) []*descriptor.Descriptor {
	out := make([]*descriptor.Descriptor, n)
	for i := range out {
		label := "element-" + strconv.Itoa(i)
		out[i] = &descriptor.Descriptor{
			Tag:  "button",
			Text: label,
			Attributes: map[string]string{
				"id": label,
			},
		}
	}
	return out
}

func TestUpsertAppendsNewRowsOnly(t *testing.T) {
	idx := New(nil, hashing.ModeBoth)
	embedder := embedding.NewHashEmbedder(16, 16)

	els := descriptors(3)
	result, err := idx.Upsert(els, embedder, 0)
	require.NoError(t, err)
	require.Len(t, result.New, 3)
	require.Empty(t, result.Unchanged)
	require.Equal(t, 3, idx.Len())

	// Re-upserting the same elements should mark them all unchanged and
	// append nothing.
	result2, err := idx.Upsert(els, embedder, 0)
	require.NoError(t, err)
	require.Empty(t, result2.New)
	require.Len(t, result2.Unchanged, 3)
	require.Equal(t, 3, idx.Len())
}

func TestUpsertDedupesDuplicateHashesWithinOneCall(t *testing.T) {
	idx := New(nil, hashing.ModeBoth)
	embedder := embedding.NewHashEmbedder(16, 16)

	d := descriptors(1)[0]
	result, err := idx.Upsert([]*descriptor.Descriptor{d, d, d}, embedder, 0)
	require.NoError(t, err)
	require.Len(t, result.New, 1)
	require.Equal(t, 1, idx.Len())
}

func TestUpsertMixedUnchangedAndNew(t *testing.T) {
	idx := New(nil, hashing.ModeBoth)
	embedder := embedding.NewHashEmbedder(16, 16)

	first := descriptors(2)
	_, err := idx.Upsert(first, embedder, 0)
	require.NoError(t, err)

	second := append(append([]*descriptor.Descriptor{}, first...), descriptors(3)[2])
	result, err := idx.Upsert(second, embedder, 0)
	require.NoError(t, err)
	require.Len(t, result.Unchanged, 2)
	require.Len(t, result.New, 1)
	require.Equal(t, 3, idx.Len())
}

func TestSearchReturnsDescriptorAlignedWithRow(t *testing.T) {
	idx := New(nil, hashing.ModeBoth)
	embedder := embedding.NewHashEmbedder(16, 16)

	els := descriptors(4)
	_, err := idx.Upsert(els, embedder, 0)
	require.NoError(t, err)

	qVec, err := embedder.TextEmbed(els[2].Text)
	require.NoError(t, err)

	results, err := idx.Search(qVec, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Same(t, els[results[0].RowID], results[0].Descriptor)
}

func TestUpsertRespectsMaxNewEmbedsBudget(t *testing.T) {
	idx := New(nil, hashing.ModeBoth)
	embedder := embedding.NewHashEmbedder(16, 16)

	els := descriptors(5)
	result, err := idx.Upsert(els, embedder, 2)
	require.NoError(t, err)
	require.Len(t, result.New, 2)
	require.Equal(t, 2, idx.Len())

	// The remaining three are picked up on a later, unbounded call.
	result2, err := idx.Upsert(els, embedder, 0)
	require.NoError(t, err)
	require.Len(t, result2.Unchanged, 2)
	require.Len(t, result2.New, 3)
	require.Equal(t, 5, idx.Len())
}

func TestHashesMatchesRowOrder(t *testing.T) {
	idx := New(nil, hashing.ModeBoth)
	embedder := embedding.NewHashEmbedder(16, 16)

	els := descriptors(3)
	_, err := idx.Upsert(els, embedder, 0)
	require.NoError(t, err)

	hashes := idx.Hashes()
	require.Len(t, hashes, 3)
	for _, h := range hashes {
		require.True(t, idx.HasHash(h))
	}
}
