package frameindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlatStoreAddAssignsSequentialIDs(t *testing.T) {
	s := NewFlatStore()
	ids, err := s.Add([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, ids)
	require.Equal(t, 2, s.Len())

	moreIDs, err := s.Add([][]float32{{1, 1}})
	require.NoError(t, err)
	require.Equal(t, []int{2}, moreIDs)
}

func TestFlatStoreSearchRanksByCosineDescending(t *testing.T) {
	s := NewFlatStore()
	_, err := s.Add([][]float32{
		{1, 0},  // row 0: orthogonal to query
		{0, 1},  // row 1: identical to query
		{0, 0.9}, // row 2: same direction as query (cosine 1); row id breaks the tie
	})
	require.NoError(t, err)

	results, err := s.Search([]float32{0, 1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 1, results[0].RowID)
	require.Equal(t, 2, results[1].RowID)
}

func TestFlatStoreSearchEmptyReturnsNil(t *testing.T) {
	s := NewFlatStore()
	results, err := s.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestFlatStoreSearchClampsKToLen(t *testing.T) {
	s := NewFlatStore()
	_, _ = s.Add([][]float32{{1, 0}, {0, 1}})

	results, err := s.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
}
