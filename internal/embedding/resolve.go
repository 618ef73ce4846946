// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package embedding

import (
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/her/internal/herrors"
)

// ResolveOptions carries the subset of config.Options a caller needs to
// pick an Embedder, kept decoupled from the config package itself so
// embedding has no import cycle back to it.
type ResolveOptions struct {
	ModelsDir         string
	ModelName         string
	AllowHashFallback bool
	QueryDim          int // hash-fallback query vector width; 0 defaults to DefaultDimension
	ElementDim        int // hash-fallback element vector width; 0 defaults to DefaultDimension
}

// Resolve picks the ONNX embedder when its model artifacts are present
// under opts.ModelsDir, falling back to the deterministic hash embedder
// only when opts.AllowHashFallback is set, grounded on the teacher
// service's ModelExists-gated engine startup (internal/intelligence's
// Phase 6 embedding init, which logs and carries on with no embedder
// rather than failing startup). This module's callers cannot run with no
// embedder at all, so the two differ past that point: a missing model
// with fallback disallowed is a hard error, per spec.md §9 Open Question
// #1 ("release builds fail closed").
func Resolve(opts ResolveOptions) (Embedder, error) {
	modelName := opts.ModelName
	if modelName == "" {
		modelName = DefaultModelName
	}

	locator := NewModelLocator(opts.ModelsDir)
	if locator.ModelExists(modelName) {
		engine, err := NewONNXEmbedder(ONNXConfig{
			ModelPath:         locator.GetModelPath(modelName),
			VocabPath:         locator.GetVocabPath(modelName),
			SharedLibraryPath: locator.GetSharedLibraryPath(),
		})
		if err == nil {
			log.Infof("embedding: resolved ONNX embedder with model %s", modelName)
			return engine, nil
		}
		log.Warnf("embedding: model %s present but failed to load: %v", modelName, err)
		if !opts.AllowHashFallback {
			return nil, err
		}
	} else {
		log.Warnf("embedding: model not found: %s", modelName)
	}

	if !opts.AllowHashFallback {
		return nil, herrors.ErrModelUnavail
	}

	queryDim, elementDim := opts.QueryDim, opts.ElementDim
	if queryDim == 0 {
		queryDim = DefaultDimension
	}
	if elementDim == 0 {
		elementDim = DefaultDimension
	}
	log.Warn("embedding: falling back to the deterministic hash embedder")
	return NewHashEmbedder(queryDim, elementDim), nil
}
