// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the her retrieval
// engine. It loads an enumerated options struct from YAML and from
// HER_* environment variables, and applies the struct-tag validation the
// teacher gateway uses for its own config surface.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/traylinx/her/internal/hashing"
)

// Options is the enumerated set the query pipeline recognizes, per
// spec.md §9 ("Dynamic config objects -> an enumerated options struct").
// No field outside this list is a recognized pipeline option.
type Options struct {
	EmbeddingBatchSize         int     `yaml:"embedding-batch-size" validate:"gte=1"`
	MaxElementsToEmbed         int     `yaml:"max-elements-to-embed" validate:"gte=0"`
	EnableColdStartDetection   bool    `yaml:"enable-cold-start-detection"`
	WarmQueryCache             bool    `yaml:"warm-query-cache"`
	AutoIndex                  bool    `yaml:"auto-index"`
	ReindexOnChange            bool    `yaml:"reindex-on-change"`
	CanonicalMode              string  `yaml:"canonical-mode" validate:"oneof=dom_only accessibility_only both"`
	UseHierarchy               bool    `yaml:"use-hierarchy"`
	UseTwoStage                bool    `yaml:"use-two-stage"`
	MinPromotionScore          float64 `yaml:"min-promotion-score" validate:"gte=0,lte=1"`
	MinPromotionConfidence     float64 `yaml:"min-promotion-confidence" validate:"gte=0,lte=1"`
	LargeDOMThreshold          int     `yaml:"large-dom-threshold" validate:"gte=1"`
	DedupCosine                float64 `yaml:"dedup-cosine" validate:"gte=0,lte=1"`

	// AllowHashFallback resolves Open Question #1 in spec.md §9: the
	// deterministic-hash embedder fallback is off by default in release
	// builds and only turns on automatically for HER_ENV=development|test.
	AllowHashFallback bool `yaml:"allow-hash-fallback"`

	// ModelsDir / CacheDir mirror HER_MODELS_DIR / HER_CACHE_DIR, resolved
	// once at startup (env beats YAML beats built-in default).
	ModelsDir string `yaml:"models-dir"`
	CacheDir  string `yaml:"cache-dir"`

	// FusionCustomBiasExpr is an optional expr-lang expression evaluated
	// per candidate and added to the fixed bias table (SPEC_FULL.md §4.6
	// domain stack). Empty disables it.
	FusionCustomBiasExpr string `yaml:"fusion-custom-bias-expr"`

	// PostRankLuaScript is an optional Lua script, evaluated once per
	// query, that may reorder or drop entries from the ranked shortlist
	// before strategy selection (SPEC_FULL.md §4.7 domain stack). Empty
	// disables it.
	PostRankLuaScript string `yaml:"post-rank-lua-script"`

	// MaxRetries bounds how many times the pipeline retries an
	// ExecutorFailed action (self-heal, then re-rank against a fresh
	// snapshot) before surfacing the failure, per spec.md §7.
	MaxRetries int `yaml:"max-retries" validate:"gte=0"`

	// SemanticStrategyThreshold is the minimum top-candidate score the
	// "semantic" strategy requires before strategy selection falls back
	// to css/xpath, per spec.md §4.7 step 9.
	SemanticStrategyThreshold float64 `yaml:"semantic-strategy-threshold" validate:"gte=0,lte=1"`

	// TopK is the default number of results query() considers before
	// strategy selection narrows to one, per spec.md §4.7's
	// `top_k=10` default.
	TopK int `yaml:"top-k" validate:"gte=1"`

	// PromotionBackend selects the promotion store's persistence backend:
	// "sqlite" (default), "postgres", or "json".
	PromotionBackend string `yaml:"promotion-backend" validate:"omitempty,oneof=sqlite postgres json"`
	// PromotionDSN is the backend-specific connection string (sqlite file
	// path, postgres DSN, or JSON file path).
	PromotionDSN string `yaml:"promotion-dsn"`

	// CacheByteBudget bounds the persistent embedding cache. Eviction runs
	// after a write that pushes the tracked size past this budget; it does
	// not run ahead of the insert.
	CacheByteBudget int64 `yaml:"cache-byte-budget" validate:"gte=0"`
	// CacheMemoryCapacity bounds the in-memory LRU tier entry count.
	CacheMemoryCapacity int `yaml:"cache-memory-capacity" validate:"gte=1"`
}

// Default returns the pipeline's built-in defaults, matching the values
// named throughout spec.md (1024-entry LRU, 2000-element large-DOM
// threshold, 0.995 dedup cosine, etc.).
func Default() *Options {
	return &Options{
		EmbeddingBatchSize:       32,
		MaxElementsToEmbed:       0, // 0 == unlimited
		EnableColdStartDetection: true,
		WarmQueryCache:           true,
		AutoIndex:                true,
		ReindexOnChange:          true,
		CanonicalMode:            "both",
		UseHierarchy:             false,
		UseTwoStage:              false,
		MinPromotionScore:        0.5,
		MinPromotionConfidence:   0.7,
		LargeDOMThreshold:        2000,
		DedupCosine:              0.995,
		AllowHashFallback:        false,
		PromotionBackend:         "sqlite",
		CacheByteBudget:          256 << 20, // 256MiB
		CacheMemoryCapacity:      1024,
		MaxRetries:               3,
		SemanticStrategyThreshold: 0.7,
		TopK:                     10,
	}
}

// Load reads a YAML file into Default()'s struct (fields absent from the
// file keep their default value), then applies environment overrides, then
// validates the result.
func Load(path string) (*Options, error) {
	opts := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				// A missing config file is not an error: defaults +
				// environment stand alone, matching the teacher's
				// tolerant config.go behavior for an absent YAML file.
			} else {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, opts); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(opts)

	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("config: invalid options: %w", err)
	}
	return opts, nil
}

// applyEnv layers HER_* environment variables over whatever YAML/defaults
// already populated opts, per spec.md §6.
func applyEnv(opts *Options) {
	if v := os.Getenv("HER_MODELS_DIR"); v != "" {
		opts.ModelsDir = v
	}
	if v := os.Getenv("HER_CACHE_DIR"); v != "" {
		opts.CacheDir = v
	}
	if v := os.Getenv("HER_CANONICAL_MODE"); v != "" {
		opts.CanonicalMode = v
	}
	if v := os.Getenv("HER_USE_HIERARCHY"); v != "" {
		opts.UseHierarchy = truthy(v)
	}
	if v := os.Getenv("HER_USE_TWO_STAGE"); v != "" {
		opts.UseTwoStage = truthy(v)
	}

	if opts.ModelsDir == "" {
		opts.ModelsDir = defaultModelsDir()
	}
	if opts.CacheDir == "" {
		opts.CacheDir = defaultCacheDir()
	}

	env := strings.ToLower(os.Getenv("HER_ENV"))
	if env == "development" || env == "test" {
		opts.AllowHashFallback = true
	}
}

func truthy(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func defaultModelsDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".her", "models")
	}
	return filepath.Join(".", ".her", "models")
}

func defaultCacheDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".her", "cache")
	}
	return filepath.Join(".", ".her", "cache")
}

// ResolvedCanonicalMode parses opts.CanonicalMode into a hashing.CanonicalMode,
// defaulting to ModeBoth for an empty/unrecognized value (Load's
// validator tag already rejects unrecognized values, so this is really
// just the type conversion).
func (o *Options) ResolvedCanonicalMode() hashing.CanonicalMode {
	return hashing.ParseCanonicalMode(o.CanonicalMode)
}
