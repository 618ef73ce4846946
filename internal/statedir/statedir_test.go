package statedir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HER_MODELS_DIR", "HER_CACHE_DIR", "HER_READONLY"} {
		t.Setenv(k, "")
	}
}

func TestNewDefaultsUnderHome(t *testing.T) {
	clearEnv(t)

	d, err := New("", "")
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".her", "models"), d.ModelsDir())
	require.Equal(t, filepath.Join(home, ".her", "cache"), d.CacheDir())
	require.False(t, d.IsReadOnly())
}

func TestNewEnvOverridesDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("HER_MODELS_DIR", "/srv/her/models")
	t.Setenv("HER_CACHE_DIR", "/srv/her/cache")

	d, err := New("", "")
	require.NoError(t, err)
	require.Equal(t, "/srv/her/models", d.ModelsDir())
	require.Equal(t, "/srv/her/cache", d.CacheDir())
}

func TestNewExplicitOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HER_CACHE_DIR", "/from-env")

	d, err := New("", "/from-arg")
	require.NoError(t, err)
	require.Equal(t, "/from-arg", d.CacheDir())
}

func TestNewTildeExpansion(t *testing.T) {
	clearEnv(t)
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	d, err := New("~/my-models", "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "my-models"), d.ModelsDir())
}

func TestNewReadOnlyFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HER_READONLY", "1")

	d, err := New("", "")
	require.NoError(t, err)
	require.True(t, d.IsReadOnly())
}

func TestEmbeddingCacheAndPromotionStorePaths(t *testing.T) {
	clearEnv(t)
	d, err := New("", "/cache-root")
	require.NoError(t, err)

	require.Equal(t, "/cache-root/embeddings", d.EmbeddingCachePath())
	require.Equal(t, "/cache-root/promotions.db", d.PromotionStorePath("sqlite"))
	require.Equal(t, "/cache-root/promotions.json", d.PromotionStorePath("json"))
}

func TestResolvePath(t *testing.T) {
	clearEnv(t)
	d, err := New("", "/cache-root")
	require.NoError(t, err)

	require.Equal(t, "/cache-root", d.ResolvePath(""))
	require.Equal(t, "/cache-root/frames/sig.json", d.ResolvePath("frames/sig.json"))
	require.Equal(t, "/absolute/path", d.ResolvePath("/absolute/path"))
}

func TestEnsureDirCreatesNestedPath(t *testing.T) {
	tempDir := t.TempDir()
	target := filepath.Join(tempDir, "a", "b", "c")

	require.NoError(t, EnsureDir(target))

	info, err := os.Stat(target)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, os.FileMode(0700), info.Mode().Perm())

	// Calling again on an existing directory must not error.
	require.NoError(t, EnsureDir(target))
}

func TestEnsureDirRejectsFile(t *testing.T) {
	tempDir := t.TempDir()
	file := filepath.Join(tempDir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	err := EnsureDir(file)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a directory")
}
