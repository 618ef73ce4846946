package promotion

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "promotions.db")
	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRecordSuccessCreatesRecord(t *testing.T) {
	s := newTestSQLiteStore(t)
	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}

	r, err := s.RecordSuccess(key, "#submit", "semantic", map[string]string{"id": "submit"})
	require.NoError(t, err)
	require.Equal(t, 1, r.SuccessCount)
	require.InDelta(t, 0.1, r.Score, 1e-9)
	require.Equal(t, 1.0, r.Confidence)
}

func TestSQLiteStoreRecordFailureLowersScore(t *testing.T) {
	s := newTestSQLiteStore(t)
	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}

	_, err := s.RecordSuccess(key, "#submit", "semantic", nil)
	require.NoError(t, err)
	r, err := s.RecordFailure(key, "#submit")
	require.NoError(t, err)
	require.Equal(t, 1, r.FailureCount)
	require.InDelta(t, 0.0, r.Score, 1e-9)
	require.InDelta(t, 0.5, r.Confidence, 1e-9)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "promotions.db")
	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}

	s1, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	_, err = s1.RecordSuccess(key, "#submit", "semantic", map[string]string{"id": "submit"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()

	r, ok, err := s2.Best(key, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "#submit", r.PrimaryLocator)
}

func TestSQLiteStoreBestRespectsThresholds(t *testing.T) {
	s := newTestSQLiteStore(t)
	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}

	_, err := s.RecordSuccess(key, "#submit", "semantic", nil)
	require.NoError(t, err)

	_, ok, err := s.Best(key, 0.5, 0)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = s.Best(key, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSQLiteStoreFallbackChainDegeneratesToSingleRecord(t *testing.T) {
	s := newTestSQLiteStore(t)
	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}

	_, err := s.RecordSuccess(key, "#submit", "semantic", nil)
	require.NoError(t, err)

	chain, err := s.FallbackChain(key, 3)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	require.Equal(t, "#submit", chain[0].PrimaryLocator)
}

func TestSQLiteStoreFallbackChainEmptyForUnknownKey(t *testing.T) {
	s := newTestSQLiteStore(t)
	chain, err := s.FallbackChain(Key{PageSignature: "nope"}, 3)
	require.NoError(t, err)
	require.Nil(t, chain)
}
