// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statedir

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrReadOnly is returned when a write is attempted against a read-only
// Dirs (HER_READONLY=1).
var ErrReadOnly = errors.New("statedir: cache directory is read-only")

// WriteOptions configures SecureWrite.
type WriteOptions struct {
	// CreateBackup writes a .bak copy of any existing file before overwrite.
	CreateBackup bool
	// Permissions sets the file mode; zero defaults to 0600.
	Permissions os.FileMode
}

// DefaultWriteOptions returns WriteOptions with no backup and 0600 mode,
// the JSON promotion backend's usual choice.
func DefaultWriteOptions() *WriteOptions {
	return &WriteOptions{Permissions: 0600}
}

// SecureWrite atomically writes data to path via the write-temp,
// fsync, rename-into-place pattern, the JSON promotion backend's only
// durability mechanism against a crash mid-write.
func SecureWrite(d *Dirs, path string, data []byte, opts *WriteOptions) error {
	if d != nil && d.IsReadOnly() {
		return ErrReadOnly
	}
	if opts == nil {
		opts = DefaultWriteOptions()
	}
	if opts.Permissions == 0 {
		opts.Permissions = 0600
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("statedir: mkdir %s: %w", dir, err)
	}

	tempPath := fmt.Sprintf("%s.tmp.%s", path, uuid.New().String())
	tempFile, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, opts.Permissions)
	if err != nil {
		return fmt.Errorf("statedir: create temp file %s: %w", tempPath, err)
	}

	cleanupTemp := true
	defer func() {
		if cleanupTemp {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("statedir: write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("statedir: fsync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("statedir: close temp file: %w", err)
	}

	if opts.CreateBackup {
		if _, err := os.Stat(path); err == nil {
			if err := copyFile(path, path+".bak", opts.Permissions); err != nil {
				fmt.Fprintf(os.Stderr, "statedir: backup %s failed: %v\n", path, err)
			}
		}
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("statedir: rename into place: %w", err)
	}
	cleanupTemp = false

	if err := syncDir(dir); err != nil {
		fmt.Fprintf(os.Stderr, "statedir: sync dir %s failed: %v\n", dir, err)
	}
	return nil
}

// SecureWriteJSON marshals v with indentation and writes it via SecureWrite.
func SecureWriteJSON(d *Dirs, path string, v interface{}, opts *WriteOptions) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("statedir: marshal json: %w", err)
	}
	data = append(data, '\n')
	return SecureWrite(d, path, data, opts)
}

func copyFile(src, dst string, perm os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("copy content: %w", err)
	}
	return dstFile.Sync()
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
