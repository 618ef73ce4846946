// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package statedir resolves the retrieval engine's on-disk layout: where
// ONNX models live, where the persistent embedding cache and promotion
// store write their files, and where the JSON promotion backend keeps its
// single file. Grounded on the teacher gateway's StateBox, generalized
// from a single auth-dir-aware root into the two independent roots
// HER_MODELS_DIR / HER_CACHE_DIR name in spec.md §6, with the legacy
// auth-dir and credentials-file machinery dropped (this module has no
// credential surface of its own).
package statedir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Dirs holds the two resolved roots the pipeline reads and writes under.
// ModelsDir and CacheDir are independent: a read-only models mount and a
// writable cache directory is a common deployment split.
type Dirs struct {
	modelsDir string
	cacheDir  string
	readOnly  bool
	mu        sync.RWMutex
}

// New resolves Dirs from explicit overrides (an empty string defers to the
// matching HER_MODELS_DIR/HER_CACHE_DIR environment variable, then to
// ~/.her/{models,cache}). HER_READONLY=1 puts the cache directory in
// read-only mode: callers must check IsReadOnly before writing.
func New(modelsDirOverride, cacheDirOverride string) (*Dirs, error) {
	modelsDir := firstNonEmpty(modelsDirOverride, os.Getenv("HER_MODELS_DIR"))
	cacheDir := firstNonEmpty(cacheDirOverride, os.Getenv("HER_CACHE_DIR"))

	resolvedModels, err := expandPath(defaultIfEmpty(modelsDir, "~/.her/models"))
	if err != nil {
		return nil, fmt.Errorf("statedir: resolve models dir: %w", err)
	}
	resolvedCache, err := expandPath(defaultIfEmpty(cacheDir, "~/.her/cache"))
	if err != nil {
		return nil, fmt.Errorf("statedir: resolve cache dir: %w", err)
	}

	return &Dirs{
		modelsDir: resolvedModels,
		cacheDir:  resolvedCache,
		readOnly:  os.Getenv("HER_READONLY") == "1",
	}, nil
}

// ModelsDir returns the resolved model artifact root.
func (d *Dirs) ModelsDir() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.modelsDir
}

// CacheDir returns the resolved persistent cache root.
func (d *Dirs) CacheDir() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cacheDir
}

// IsReadOnly reports whether write operations under CacheDir should be
// refused.
func (d *Dirs) IsReadOnly() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.readOnly
}

// EmbeddingCachePath returns the Badger directory used by the persistent
// embedding cache tier.
func (d *Dirs) EmbeddingCachePath() string {
	return filepath.Join(d.CacheDir(), "embeddings")
}

// PromotionStorePath returns the default file path for a given promotion
// store backend ("sqlite" or "json"); Postgres backends use a connection
// string instead and ignore this.
func (d *Dirs) PromotionStorePath(backend string) string {
	switch backend {
	case "json":
		return filepath.Join(d.CacheDir(), "promotions.json")
	default:
		return filepath.Join(d.CacheDir(), "promotions.db")
	}
}

// ResolvePath joins a relative path with CacheDir, or returns an absolute
// or tilde-prefixed path expanded as-is.
func (d *Dirs) ResolvePath(relativePath string) string {
	if relativePath == "" {
		return d.CacheDir()
	}
	if strings.HasPrefix(relativePath, "~") || filepath.IsAbs(relativePath) {
		cleaned, err := expandPath(relativePath)
		if err != nil {
			return filepath.Clean(relativePath)
		}
		return cleaned
	}
	return filepath.Join(d.CacheDir(), relativePath)
}

// EnsureDir creates path (and its parents) with 0700 permissions if it
// does not already exist.
func EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("statedir: %s exists and is not a directory", path)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("statedir: stat %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("statedir: mkdir %s: %w", path, err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path), nil
}

func defaultIfEmpty(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
