// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package snapshot defines the Snapshot provider external collaborator
// from spec.md §6 (consumed, not implemented here): given a URL and a
// deadline, it returns the page's frames and their element descriptors.
// Alongside the interface this package carries an in-memory Fixture
// implementation for tests and the CLI's offline/fixture mode, since no
// real browser driver belongs inside this module.
package snapshot

import (
	"context"
	"encoding/json"
	"os"

	"github.com/traylinx/her/internal/descriptor"
)

// Frame is one frame's elements, as returned by a snapshot.
type Frame struct {
	FrameID   string                   `json:"frame_id"`
	FrameURL  string                   `json:"frame_url"`
	FramePath []int                    `json:"frame_path"`
	Elements  []*descriptor.Descriptor `json:"elements"`
}

// Snapshot is the full result of one snapshot call: every frame on the
// page plus the top-level document URL.
type Snapshot struct {
	Frames []Frame `json:"frames"`
	TopURL string  `json:"top_url"`
}

// Provider is the external collaborator contract: "snapshot(url?,
// deadline) -> {frames, top_url}". A zero-value url asks the provider to
// snapshot whatever page it is already attached to.
type Provider interface {
	Snapshot(ctx context.Context, url string) (*Snapshot, error)
}

// Fixture is a Provider backed by a fixed, in-memory Snapshot — used by
// tests and by the CLI's --snapshot-file offline mode. Calling Snapshot
// ignores its url argument and always returns the fixture's snapshot
// (or a context error if ctx is already done, honoring the "deadline"
// half of the contract even though there is nothing to wait on).
type Fixture struct {
	Snap *Snapshot
}

// NewFixture wraps snap as a Provider.
func NewFixture(snap *Snapshot) *Fixture {
	return &Fixture{Snap: snap}
}

// LoadFixtureFile parses a JSON file in the Snapshot wire shape, for the
// CLI's --snapshot-file flag.
func LoadFixtureFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return NewFixture(&snap), nil
}

func (f *Fixture) Snapshot(ctx context.Context, url string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Snap, nil
}
