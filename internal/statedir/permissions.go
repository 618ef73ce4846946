// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statedir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// AuditResult describes one file or directory examined by AuditPermissions.
type AuditResult struct {
	Path         string
	CurrentMode  os.FileMode
	RequiredMode os.FileMode
	Error        error
}

// AuditPermissions walks CacheDir without modifying anything and reports
// every directory (required 0700) and every .db/.json file (required 0600)
// with its current and required mode, including entries that already
// comply. The SQLite promotion store and the JSON promotion backend are
// sensitive files under this rule; the Badger embedding cache's own files
// use other extensions, so only its directory is covered.
func AuditPermissions(d *Dirs) ([]AuditResult, error) {
	if d == nil {
		return nil, fmt.Errorf("statedir: Dirs cannot be nil")
	}

	root := d.CacheDir()
	var results []AuditResult

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warnf("statedir: permission audit failed to access %s: %v", path, err)
			results = append(results, AuditResult{Path: path, Error: err})
			return nil
		}

		current := info.Mode().Perm()
		var required os.FileMode
		switch {
		case info.IsDir():
			required = 0700
		case isSensitiveFile(path):
			required = 0600
		default:
			return nil
		}

		results = append(results, AuditResult{
			Path:         path,
			CurrentMode:  current,
			RequiredMode: required,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("statedir: walk cache dir: %w", err)
	}
	return results, nil
}

// HardenPermissions walks CacheDir and corrects any directory or
// sensitive file (.db/.json) not already at its required mode. Errors
// are logged and counted, not fatal — a single unreadable entry should
// not abort hardening of the rest of the tree.
func HardenPermissions(d *Dirs) error {
	if d == nil {
		return fmt.Errorf("statedir: Dirs cannot be nil")
	}

	root := d.CacheDir()
	if _, err := os.Stat(root); os.IsNotExist(err) {
		log.Warnf("statedir: permission hardening skipped, cache dir does not exist: %s", root)
		return nil
	}

	corrected, errored := 0, 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warnf("statedir: permission hardening failed to access %s: %v", path, err)
			errored++
			return nil
		}

		current := info.Mode().Perm()
		var required os.FileMode
		switch {
		case info.IsDir():
			required = 0700
		case isSensitiveFile(path):
			required = 0600
		default:
			return nil
		}

		if current == required {
			return nil
		}
		if err := os.Chmod(path, required); err != nil {
			log.Warnf("statedir: chmod %s from %04o to %04o failed: %v", path, current, required, err)
			errored++
			return nil
		}
		log.Infof("statedir: corrected permissions for %s from %04o to %04o", path, current, required)
		corrected++
		return nil
	})
	if err != nil {
		return fmt.Errorf("statedir: walk cache dir: %w", err)
	}

	if corrected > 0 {
		log.Infof("statedir: permission hardening corrected %d entries", corrected)
	}
	if errored > 0 {
		log.Warnf("statedir: permission hardening hit %d errors", errored)
	}
	return nil
}

func isSensitiveFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".db" || ext == ".json"
}
