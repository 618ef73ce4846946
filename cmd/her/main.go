// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the her CLI: an offline-fixture-driven entry
// point into the query/act pipeline, for local testing and for driving
// the retrieval engine from a shell without a live browser attached.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/her/internal/buildinfo"
	"github.com/traylinx/her/internal/cache"
	"github.com/traylinx/her/internal/config"
	"github.com/traylinx/her/internal/embedding"
	"github.com/traylinx/her/internal/executor"
	"github.com/traylinx/her/internal/herrors"
	"github.com/traylinx/her/internal/logging"
	"github.com/traylinx/her/internal/pipeline"
	"github.com/traylinx/her/internal/promotion"
	"github.com/traylinx/her/internal/session"
	"github.com/traylinx/her/internal/snapshot"
	"github.com/traylinx/her/internal/statedir"
	"github.com/traylinx/her/internal/wire"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	logging.Setup()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	wd, err := os.Getwd()
	if err == nil {
		if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil && !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	var cmdErr error
	switch os.Args[1] {
	case "query":
		cmdErr = runQuery(os.Args[2:])
	case "act":
		cmdErr = runAct(os.Args[2:])
	case "cache":
		cmdErr = runCache(os.Args[2:])
	case "version":
		fmt.Printf("her version %s, commit %s, built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
	default:
		usage()
		os.Exit(1)
	}

	if cmdErr != nil {
		fmt.Fprintln(os.Stderr, herrors.Explanation(cmdErr))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <query|act|cache|version> [flags]\n", filepath.Base(os.Args[0]))
}

// sharedFlags are the flags query and act have in common.
type sharedFlags struct {
	snapshotFile string
	url          string
	configPath   string
	modelName    string
}

func bindShared(fs *flag.FlagSet) *sharedFlags {
	sf := &sharedFlags{}
	fs.StringVar(&sf.snapshotFile, "snapshot-file", "", "path to a JSON snapshot fixture (required)")
	fs.StringVar(&sf.url, "url", "", "top-level URL to pass to Index (fixtures ignore this for element data)")
	fs.StringVar(&sf.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&sf.modelName, "model", "", "ONNX model name to resolve (defaults to embedding.DefaultModelName)")
	return sf
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	sf := bindShared(fs)
	jsonOut := fs.Bool("json", !isatty.IsTerminal(os.Stdout.Fd()), "emit the wire-format JSON result")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("query: a target phrase argument is required")
	}
	phrase := fs.Arg(0)

	env, err := newEnvironment(sf)
	if err != nil {
		return err
	}
	defer env.Close()

	sess := env.pipeline.NewSession(env.provider)
	result, err := env.pipeline.Query(context.Background(), sess, phrase, sf.url)
	if err != nil {
		return err
	}
	return printResult(result, *jsonOut)
}

func runAct(args []string) error {
	fs := flag.NewFlagSet("act", flag.ContinueOnError)
	sf := bindShared(fs)
	value := fs.String("value", "", "value for type/select actions")
	jsonOut := fs.Bool("json", !isatty.IsTerminal(os.Stdout.Fd()), "emit the wire-format JSON result")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("act: an instruction argument is required (e.g. \"click submit\")")
	}
	instruction := fs.Arg(0)

	env, err := newEnvironment(sf)
	if err != nil {
		return err
	}
	defer env.Close()

	sess := env.pipeline.NewSession(env.provider)
	result, err := env.pipeline.Act(context.Background(), sess, instruction, sf.url, *value)
	if err != nil {
		return err
	}
	return printResult(result, *jsonOut)
}

func runCache(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("cache: expected a \"stats\" or \"clear\" subcommand")
	}
	fs := flag.NewFlagSet("cache", flag.ContinueOnError)
	cacheDir := fs.String("cache-dir", "", "override HER_CACHE_DIR")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	dirs, err := statedir.New("", *cacheDir)
	if err != nil {
		return err
	}
	opts := config.Default()
	c, err := cache.Open(dirs.EmbeddingCachePath(), opts.CacheMemoryCapacity, opts.CacheByteBudget)
	if err != nil {
		return fmt.Errorf("cache: open %s: %w", dirs.EmbeddingCachePath(), err)
	}
	defer c.Close()

	switch args[0] {
	case "stats":
		s := c.Stats()
		fmt.Printf("entries=%d size_bytes=%d memory_hits=%d memory_misses=%d persistent_hits=%d persistent_misses=%d\n",
			s.Entries, s.SizeBytes, s.MemoryHits, s.MemoryMisses, s.PersistentHits, s.PersistentMisses)
		return nil
	case "clear":
		if err := c.Clear(); err != nil {
			return fmt.Errorf("cache: clear: %w", err)
		}
		fmt.Println("cache cleared")
		return nil
	default:
		return fmt.Errorf("cache: unknown subcommand %q", args[0])
	}
}

// environment bundles everything a single query/act invocation needs,
// built fresh per invocation since the CLI is a one-shot process rather
// than a long-lived server.
type environment struct {
	pipeline *pipeline.Pipeline
	provider snapshot.Provider
	embedder embedding.Embedder
	qcache   *cache.Cache
	promo    promotion.Store
}

func (e *environment) Close() {
	if e.embedder != nil {
		_ = e.embedder.Close()
	}
	if e.qcache != nil {
		_ = e.qcache.Close()
	}
	if e.promo != nil {
		_ = e.promo.Close()
	}
}

func newEnvironment(sf *sharedFlags) (*environment, error) {
	if sf.snapshotFile == "" {
		return nil, fmt.Errorf("--snapshot-file is required (no live browser driver ships with this module)")
	}

	opts, err := config.Load(sf.configPath)
	if err != nil {
		return nil, err
	}

	dirs, err := statedir.New(opts.ModelsDir, opts.CacheDir)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.Resolve(embedding.ResolveOptions{
		ModelsDir:         dirs.ModelsDir(),
		ModelName:         sf.modelName,
		AllowHashFallback: opts.AllowHashFallback,
	})
	if err != nil {
		return nil, err
	}

	provider, err := snapshot.LoadFixtureFile(sf.snapshotFile)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("load snapshot fixture: %w", err)
	}

	mgr := session.NewManager(embedder, opts.ResolvedCanonicalMode())

	deps := pipeline.Deps{
		Sessions: mgr,
		Embedder: embedder,
		Executor: executor.NewFake(),
	}

	env := &environment{embedder: embedder, provider: provider}

	if opts.WarmQueryCache {
		qc, err := cache.Open(dirs.EmbeddingCachePath(), opts.CacheMemoryCapacity, opts.CacheByteBudget)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("open query cache: %w", err)
		}
		env.qcache = qc
		deps.QueryCache = qc
	}

	store, err := openPromotionStore(opts, dirs)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.promo = store
	deps.Promotion = store

	p, err := pipeline.New(opts, deps)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.pipeline = p
	return env, nil
}

func openPromotionStore(opts *config.Options, dirs *statedir.Dirs) (promotion.Store, error) {
	dsn := opts.PromotionDSN
	switch opts.PromotionBackend {
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("promotion backend postgres requires promotion-dsn in the config file")
		}
		return promotion.OpenPostgresStore(dsn)
	case "json":
		if dsn == "" {
			dsn = dirs.PromotionStorePath("json")
		}
		return promotion.OpenJSONStore(dirs, dsn)
	default:
		if dsn == "" {
			dsn = dirs.PromotionStorePath("sqlite")
		}
		return promotion.OpenSQLiteStore(dsn)
	}
}

func printResult(result *wire.Result, jsonOut bool) error {
	if jsonOut {
		data, err := wire.Encode(*result)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Printf("xpath=%s strategy=%s confidence=%.3f frame=%s\n",
		result.XPath, result.Strategy, result.Confidence, result.UsedFrameID)
	if len(result.Reasons) > 0 {
		fmt.Printf("reasons: %v\n", result.Reasons)
	}
	return nil
}
