// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cache implements the two-tier embedding cache: an in-memory LRU
// in front of an embedded, append-only persistent store. Grounded on the
// teacher's container/list-based SemanticCache
// (internal/intelligence/cache/semantic_cache.go) for the memory-tier
// bookkeeping shape, generalized to use hashicorp/golang-lru/v2 in place
// of the hand-rolled list, and on AleutianAI-AleutianFOSS's
// router_cache.go for the Badger-backed persistent tier.
package cache

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
)

const (
	compressFlagRaw  byte = 0x00
	compressFlagZstd byte = 0x01

	// compressFloor is the encoded-record size above which a value is
	// zstd-compressed before being written to Badger; small vectors rarely
	// compress well enough to be worth the CPU.
	compressFloor = 4096
)

// Stats summarizes cache activity, matching the spec's stats() operation.
type Stats struct {
	MemoryHits       int64
	MemoryMisses     int64
	PersistentHits   int64
	PersistentMisses int64
	Entries          int64
	SizeBytes        int64
}

// Cache is the two-tier embedding cache described in spec.md §4.2.
type Cache struct {
	mem *lru.Cache[string, Record]
	db  *badger.DB

	enc *zstd.Encoder
	dec *zstd.Decoder

	byteBudget int64
	curBytes   atomic.Int64

	memHits, memMisses           atomic.Int64
	persistentHits, persistentMisses atomic.Int64

	evictMu sync.Mutex
}

// Open opens (or creates) the persistent store under dir and wires a
// memory tier of the given entry capacity in front of it.
func Open(dir string, memCapacity int, byteBudget int64) (*Cache, error) {
	if memCapacity <= 0 {
		memCapacity = 1024
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open persistent store: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: init zstd decoder: %w", err)
	}

	mem, err := lru.New[string, Record](memCapacity)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: init memory tier: %w", err)
	}

	c := &Cache{mem: mem, db: db, enc: enc, dec: dec, byteBudget: byteBudget}
	c.curBytes.Store(c.scanSizeBytes())
	return c, nil
}

// Close releases the persistent store and the zstd codecs.
func (c *Cache) Close() error {
	_ = c.enc.Close()
	c.dec.Close()
	return c.db.Close()
}

// Get looks up key, consulting the memory tier first; a persistent hit is
// promoted into memory verbatim (invariant (a) of spec.md §4.2: no
// re-normalization of a promoted value).
func (c *Cache) Get(key string) (Record, bool) {
	if rec, ok := c.mem.Get(key); ok {
		c.memHits.Add(1)
		return rec, true
	}
	c.memMisses.Add(1)

	rec, ok := c.getPersistent(key)
	if !ok {
		return Record{}, false
	}
	c.mem.Add(key, rec)
	return rec, true
}

// GetBatch looks up every key in keys, omitting any that miss in both
// tiers.
func (c *Cache) GetBatch(keys []string) map[string]Record {
	out := make(map[string]Record, len(keys))
	for _, k := range keys {
		if rec, ok := c.Get(k); ok {
			out[k] = rec
		}
	}
	return out
}

func (c *Cache) getPersistent(key string) (Record, bool) {
	var rec Record
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, derr := c.decodeValue(val)
			if derr != nil {
				return derr
			}
			rec = decoded
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		c.persistentMisses.Add(1)
		return Record{}, false
	}
	if err != nil {
		// Failure: any persistence error is logged and treated as a miss;
		// a corrupt entry is deleted so it doesn't keep failing.
		log.WithError(err).Warn("cache: persistent read failed, treating as miss")
		c.persistentMisses.Add(1)
		_ = c.db.Update(func(txn *badger.Txn) error { return txn.Delete([]byte(key)) })
		return Record{}, false
	}
	c.persistentHits.Add(1)
	return rec, true
}

// Put writes rec under key to both tiers. Persistent writes happen in a
// single transaction; if the persistent-store byte budget is exceeded
// afterward, the entries with the oldest Timestamp are evicted. Timestamp
// is set when a record is written; Get does not refresh it.
func (c *Cache) Put(key string, rec Record) error {
	if rec.Timestamp == 0 {
		rec.Timestamp = float64(time.Now().Unix())
	}

	encoded := c.encodeValue(rec)
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), encoded)
	}); err != nil {
		log.WithError(err).Warn("cache: persistent write failed")
		c.mem.Add(key, rec)
		return fmt.Errorf("cache: persistent write: %w", err)
	}

	c.mem.Add(key, rec)
	c.curBytes.Add(int64(len(encoded)))
	if c.byteBudget > 0 && c.curBytes.Load() > c.byteBudget {
		c.evictToFitBudget()
	}
	return nil
}

// PutBatch writes every key/record pair in a single persistent
// transaction, per spec.md §4.2's "persistent writes go through a single
// transaction".
func (c *Cache) PutBatch(entries map[string]Record) error {
	now := float64(time.Now().Unix())
	encoded := make(map[string][]byte, len(entries))
	var added int64

	err := c.db.Update(func(txn *badger.Txn) error {
		for key, rec := range entries {
			if rec.Timestamp == 0 {
				rec.Timestamp = now
			}
			val := c.encodeValue(rec)
			encoded[key] = val
			if err := txn.Set([]byte(key), val); err != nil {
				return err
			}
			added += int64(len(val))
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("cache: persistent batch write failed")
		return fmt.Errorf("cache: persistent batch write: %w", err)
	}

	for key, rec := range entries {
		c.mem.Add(key, rec)
		_ = encoded[key]
	}
	c.curBytes.Add(added)
	if c.byteBudget > 0 && c.curBytes.Load() > c.byteBudget {
		c.evictToFitBudget()
	}
	return nil
}

// SizeBytes returns the persistent store's tracked byte usage.
func (c *Cache) SizeBytes() int64 {
	return c.curBytes.Load()
}

// Stats returns a point-in-time snapshot of cache activity.
func (c *Cache) Stats() Stats {
	return Stats{
		MemoryHits:       c.memHits.Load(),
		MemoryMisses:     c.memMisses.Load(),
		PersistentHits:   c.persistentHits.Load(),
		PersistentMisses: c.persistentMisses.Load(),
		Entries:          c.countEntries(),
		SizeBytes:        c.curBytes.Load(),
	}
}

// Clear removes every entry from both tiers.
func (c *Cache) Clear() error {
	c.mem.Purge()
	if err := c.db.DropAll(); err != nil {
		return fmt.Errorf("cache: clear persistent store: %w", err)
	}
	c.curBytes.Store(0)
	return nil
}

func (c *Cache) encodeValue(rec Record) []byte {
	raw := rec.Encode()
	if len(raw) < compressFloor {
		return append([]byte{compressFlagRaw}, raw...)
	}
	compressed := c.enc.EncodeAll(raw, nil)
	return append([]byte{compressFlagZstd}, compressed...)
}

func (c *Cache) decodeValue(val []byte) (Record, error) {
	if len(val) == 0 {
		return Record{}, fmt.Errorf("cache: empty persisted value")
	}
	flag, payload := val[0], val[1:]
	switch flag {
	case compressFlagRaw:
		return DecodeRecord(payload)
	case compressFlagZstd:
		raw, err := c.dec.DecodeAll(payload, nil)
		if err != nil {
			return Record{}, fmt.Errorf("cache: zstd decode: %w", err)
		}
		return DecodeRecord(raw)
	default:
		return Record{}, fmt.Errorf("cache: unknown compression flag %#x", flag)
	}
}

type entryMeta struct {
	key       string
	timestamp float64
	size      int64
}

// evictToFitBudget scans every persisted entry, then deletes the ones
// with the oldest write Timestamp until the tracked byte usage falls back under the
// configured budget. A full scan is acceptable here: the teacher's own
// SemanticCache keeps its entire index in memory too, and this cache is
// sized for a single browser session's worth of elements.
func (c *Cache) evictToFitBudget() {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	if c.curBytes.Load() <= c.byteBudget {
		return
	}

	var metas []entryMeta
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			size := item.ValueSize()
			var ts float64
			_ = item.Value(func(val []byte) error {
				rec, derr := c.decodeValue(val)
				if derr == nil {
					ts = rec.Timestamp
				}
				return nil
			})
			metas = append(metas, entryMeta{key: string(item.Key()), timestamp: ts, size: size})
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("cache: eviction scan failed")
		return
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].timestamp < metas[j].timestamp })

	err = c.db.Update(func(txn *badger.Txn) error {
		for _, m := range metas {
			if c.curBytes.Load() <= c.byteBudget {
				break
			}
			if delErr := txn.Delete([]byte(m.key)); delErr != nil {
				return delErr
			}
			c.mem.Remove(m.key)
			c.curBytes.Add(-m.size)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("cache: eviction delete failed")
	}
}

func (c *Cache) scanSizeBytes() int64 {
	var total int64
	_ = c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			total += it.Item().ValueSize()
		}
		return nil
	})
	return total
}

func (c *Cache) countEntries() int64 {
	var n int64
	_ = c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n
}
