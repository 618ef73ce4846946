// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"
)

const fixtureJSON = `{
	"top_url": "https://example.test/page",
	"frames": [
		{
			"frame_id": "main",
			"frame_url": "https://example.test/page",
			"elements": [
				{
					"BackendNodeID": "n1",
					"XPath": "/html/body/button[1]",
					"ComputedXPath": "/html/body/button[1]",
					"Tag": "button",
					"Role": "button",
					"Text": "Submit",
					"Visible": true,
					"Clickable": true
				},
				{
					"BackendNodeID": "n2",
					"XPath": "/html/body/a[1]",
					"ComputedXPath": "/html/body/a[1]",
					"Tag": "a",
					"Role": "link",
					"Text": "Cancel",
					"Visible": true,
					"Clickable": true
				}
			]
		}
	]
}`

// writeFixture writes fixtureJSON to a temp file and points HER_MODELS_DIR
// / HER_CACHE_DIR at fresh scratch directories with the hash-embedder
// fallback enabled, so the CLI never tries to load a real ONNX model.
func writeFixture(t *testing.T) string {
	t.Helper()
	t.Setenv("HER_ENV", "test")
	t.Setenv("HER_MODELS_DIR", filepath.Join(t.TempDir(), "models"))
	t.Setenv("HER_CACHE_DIR", filepath.Join(t.TempDir(), "cache"))

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(fixtureJSON), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestRunQuerySucceedsAgainstFixture(t *testing.T) {
	path := writeFixture(t)
	err := runQuery([]string{"-snapshot-file", path, "-json", "click submit"})
	if err != nil {
		t.Fatalf("runQuery: %v", err)
	}
}

func TestRunQueryRequiresSnapshotFile(t *testing.T) {
	t.Setenv("HER_ENV", "test")
	err := runQuery([]string{"click submit"})
	if err == nil {
		t.Fatal("expected an error without --snapshot-file")
	}
}

func TestRunActSucceedsAgainstFixture(t *testing.T) {
	path := writeFixture(t)
	err := runAct([]string{"-snapshot-file", path, "-json", "click submit"})
	if err != nil {
		t.Fatalf("runAct: %v", err)
	}
}

func TestRunCacheStatsAndClear(t *testing.T) {
	t.Setenv("HER_ENV", "test")
	cacheDir := filepath.Join(t.TempDir(), "cache")
	t.Setenv("HER_CACHE_DIR", cacheDir)

	if err := runCache([]string{"stats"}); err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	if err := runCache([]string{"clear"}); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
}

func TestRunCacheUnknownSubcommand(t *testing.T) {
	t.Setenv("HER_ENV", "test")
	t.Setenv("HER_CACHE_DIR", filepath.Join(t.TempDir(), "cache"))
	if err := runCache([]string{"bogus"}); err == nil {
		t.Fatal("expected an error for an unknown cache subcommand")
	}
}
