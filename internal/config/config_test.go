package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	opts := Default()
	require.Equal(t, 1024, opts.CacheMemoryCapacity)
	require.Equal(t, "both", opts.CanonicalMode)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	opts, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default().EmbeddingBatchSize, opts.EmbeddingBatchSize)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "her.yaml")
	require.NoError(t, os.WriteFile(p, []byte("embedding-batch-size: 8\ncanonical-mode: dom_only\n"), 0o644))

	opts, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 8, opts.EmbeddingBatchSize)
	require.Equal(t, "dom_only", opts.CanonicalMode)
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "her.yaml")
	require.NoError(t, os.WriteFile(p, []byte("canonical-mode: dom_only\n"), 0o644))

	t.Setenv("HER_CANONICAL_MODE", "accessibility_only")
	opts, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "accessibility_only", opts.CanonicalMode)
}

func TestInvalidCanonicalModeRejected(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "her.yaml")
	require.NoError(t, os.WriteFile(p, []byte("canonical-mode: not-a-mode\n"), 0o644))

	_, err := Load(p)
	require.Error(t, err)
}

func TestHashFallbackAutoEnabledInTestEnv(t *testing.T) {
	t.Setenv("HER_ENV", "test")
	opts, err := Load("")
	require.NoError(t, err)
	require.True(t, opts.AllowHashFallback)
}
