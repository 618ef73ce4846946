// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package embedding

import (
	"os"
	"path/filepath"
	"runtime"
)

// ModelLocator resolves on-disk paths for ONNX model artifacts, rooted at
// HER_MODELS_DIR (via internal/statedir). Grounded on the teacher's
// embedding.ModelLocator, generalized from a hardcoded ~/.switchailocal
// default to whatever root the caller supplies.
type ModelLocator struct {
	BaseDir string
}

// NewModelLocator returns a locator rooted at baseDir (typically
// statedir.Dirs.ModelsDir()).
func NewModelLocator(baseDir string) *ModelLocator {
	return &ModelLocator{BaseDir: baseDir}
}

// GetModelPath returns the ONNX model file path for modelName.
func (l *ModelLocator) GetModelPath(modelName string) string {
	return filepath.Join(l.BaseDir, modelName, "model.onnx")
}

// GetVocabPath returns the vocabulary file path for modelName.
func (l *ModelLocator) GetVocabPath(modelName string) string {
	return filepath.Join(l.BaseDir, modelName, "vocab.txt")
}

// GetSharedLibraryPath locates the ONNX runtime shared library,
// preferring ONNXRUNTIME_LIB_PATH, then common per-OS install locations.
func (l *ModelLocator) GetSharedLibraryPath() string {
	if envPath := os.Getenv("ONNXRUNTIME_LIB_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/usr/local/lib/libonnxruntime.dylib",
			"/opt/homebrew/lib/libonnxruntime.dylib",
			filepath.Join(l.BaseDir, "..", "lib", "libonnxruntime.dylib"),
		}
	case "linux":
		paths = []string{
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/libonnxruntime.so",
			"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
			filepath.Join(l.BaseDir, "..", "lib", "libonnxruntime.so"),
		}
	case "windows":
		paths = []string{
			`C:\Program Files\onnxruntime\lib\onnxruntime.dll`,
			filepath.Join(l.BaseDir, "..", "lib", "onnxruntime.dll"),
		}
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ModelExists reports whether modelName's model file is present on disk.
func (l *ModelLocator) ModelExists(modelName string) bool {
	_, err := os.Stat(l.GetModelPath(modelName))
	return err == nil
}

// EnsureModelDir creates modelName's directory if it doesn't exist.
func (l *ModelLocator) EnsureModelDir(modelName string) error {
	return os.MkdirAll(filepath.Join(l.BaseDir, modelName), 0755)
}
