// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cache

import (
	"encoding/binary"
	"fmt"
	"math"
)

// magicHeader opens every persisted value, per spec.md §6's wire format
// ("length-prefixed little-endian float32 array after an 8-byte header
// [magic=0x48_45_52_30, dim, version]"), so a corrupt or foreign blob is
// rejected before decoding proceeds.
const magicHeader uint32 = 0x48455230

// recordVersion is mixed into every persisted record; bumping it makes old
// entries fail the header check and be treated as a miss rather than
// decoded incorrectly, the same cache-breaking trick hashing.HashVersion
// uses for content hashes.
const recordVersion uint16 = 1

// Record is what the persistent tier actually stores: the wire-format
// vector plus the bookkeeping fields spec.md §6's embeddings.db table
// names (timestamp, hits, metadata) that a plain vector blob has no room
// for. Encode lays the vector out first so the value is still inspectable
// as "vector bytes" by anything that only reads the documented header.
type Record struct {
	Vector    []float32
	Hits      uint64
	Timestamp float64 // unix seconds
	Metadata  string
}

// Encode serializes r into the persisted value format.
func (r Record) Encode() []byte {
	dim := len(r.Vector)
	buf := make([]byte, 8+4*dim+8+8+4+len(r.Metadata))

	binary.LittleEndian.PutUint32(buf[0:4], magicHeader)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(dim))
	binary.LittleEndian.PutUint16(buf[6:8], recordVersion)

	off := 8
	for _, f := range r.Vector {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
		off += 4
	}

	binary.LittleEndian.PutUint64(buf[off:off+8], r.Hits)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(r.Timestamp))
	off += 8
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(r.Metadata)))
	off += 4
	copy(buf[off:], r.Metadata)

	return buf
}

// DecodeRecord parses bytes written by Encode, rejecting anything whose
// magic or version does not match so a corrupt entry surfaces as an error
// the caller can delete rather than a silently wrong vector.
func DecodeRecord(data []byte) (Record, error) {
	if len(data) < 8 {
		return Record{}, fmt.Errorf("cache: record too short (%d bytes)", len(data))
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != magicHeader {
		return Record{}, fmt.Errorf("cache: bad magic %#x", magic)
	}
	dim := int(binary.LittleEndian.Uint16(data[4:6]))
	version := binary.LittleEndian.Uint16(data[6:8])
	if version != recordVersion {
		return Record{}, fmt.Errorf("cache: unsupported record version %d", version)
	}

	vecEnd := 8 + 4*dim
	trailerStart := vecEnd + 8 + 8 + 4
	if len(data) < trailerStart {
		return Record{}, fmt.Errorf("cache: truncated record")
	}

	vec := make([]float32, dim)
	off := 8
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
	}

	hits := binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	ts := math.Float64frombits(binary.LittleEndian.Uint64(data[off : off+8]))
	off += 8
	metaLen := int(binary.LittleEndian.Uint32(data[off : off+4]))
	off += 4
	if len(data) < off+metaLen {
		return Record{}, fmt.Errorf("cache: truncated metadata")
	}

	return Record{
		Vector:    vec,
		Hits:      hits,
		Timestamp: ts,
		Metadata:  string(data[off : off+metaLen]),
	}, nil
}

// SizeBytes is the footprint Encode would produce, used for byte-budget
// accounting without actually re-encoding.
func (r Record) SizeBytes() int64 {
	return int64(8 + 4*len(r.Vector) + 8 + 8 + 4 + len(r.Metadata))
}
