package promotion

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traylinx/her/internal/statedir"
)

func newTestJSONStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	dir := t.TempDir()
	dirs, err := statedir.New(dir, dir)
	require.NoError(t, err)
	path := filepath.Join(dir, "promotions.json")
	s, err := OpenJSONStore(dirs, path)
	require.NoError(t, err)
	return s, path
}

func TestJSONStoreStartsEmptyWhenFileAbsent(t *testing.T) {
	s, _ := newTestJSONStore(t)
	_, ok, err := s.Best(Key{PageSignature: "page1"}, 0, 0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestJSONStoreRecordSuccessThenBest(t *testing.T) {
	s, _ := newTestJSONStore(t)
	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}

	r, err := s.RecordSuccess(key, "#submit", "semantic", map[string]string{"id": "submit"})
	require.NoError(t, err)
	require.Equal(t, 1, r.SuccessCount)

	best, ok, err := s.Best(key, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "#submit", best.PrimaryLocator)
}

func TestJSONStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	dirs, err := statedir.New(dir, dir)
	require.NoError(t, err)
	path := filepath.Join(dir, "promotions.json")
	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}

	s1, err := OpenJSONStore(dirs, path)
	require.NoError(t, err)
	_, err = s1.RecordSuccess(key, "#submit", "semantic", map[string]string{"id": "submit"})
	require.NoError(t, err)

	s2, err := OpenJSONStore(dirs, path)
	require.NoError(t, err)
	best, ok, err := s2.Best(key, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "#submit", best.PrimaryLocator)
}

func TestJSONStoreRecordFailureLowersScore(t *testing.T) {
	s, _ := newTestJSONStore(t)
	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}

	_, err := s.RecordSuccess(key, "#submit", "semantic", nil)
	require.NoError(t, err)
	r, err := s.RecordFailure(key, "#submit")
	require.NoError(t, err)
	require.Equal(t, 1, r.FailureCount)
	require.InDelta(t, 0.0, r.Score, 1e-9)
	require.InDelta(t, 0.5, r.Confidence, 1e-9)
}

func TestJSONStoreFallbackChainDegeneratesToSingleRecord(t *testing.T) {
	s, _ := newTestJSONStore(t)
	key := Key{PageSignature: "page1", FrameHash: "frame1", LabelKey: "submit-button"}

	_, err := s.RecordSuccess(key, "#submit", "semantic", nil)
	require.NoError(t, err)

	chain, err := s.FallbackChain(key, 3)
	require.NoError(t, err)
	require.Len(t, chain, 1)
}
