// Package dedup provides the content-addressed dedup table used by the
// archive builder (§4.E.2): packed static-combo blobs are bucketed by
// CRC32, and two blobs collapse to one body iff their CRC32, length, and
// bytes all match. The bucket/shard shape is adapted from the teacher's
// cache.ShardedCache (cache/sharded.go) — fixed bucket count, one mutex per
// bucket — but LRU eviction is dropped: every entry in a dedup table lives
// for the whole run, so there is no eviction policy to model.
package dedup

import (
	"bytes"
	"hash/crc32"
	"sync"
)

// BucketCount is the fixed number of hash buckets, matching §4.E.2 exactly
// ("a fixed-width hash table (73 buckets)").
const BucketCount = 73

type entry struct {
	crc    uint32
	length int
	blob   []byte
	id     int64
}

// Table deduplicates packed blobs within one shader by CRC32 + length +
// byte-compare, recording alias edges from later duplicates to the first
// (canonical) static-combo id that produced a given blob.
type Table struct {
	buckets [BucketCount]struct {
		mu      sync.Mutex
		entries []entry
	}
}

// New returns an empty dedup table.
func New() *Table {
	return &Table{}
}

// Insert records blob as staticID's packed body. If an earlier insert
// produced a byte-identical blob, Insert returns that earlier id and
// alias=true; the caller should record an AliasRecord(staticID →
// canonicalID) instead of writing a new body.
func (t *Table) Insert(staticID int64, blob []byte) (canonicalID int64, alias bool) {
	crc := crc32.ChecksumIEEE(blob)
	b := &t.buckets[crc%BucketCount]

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.entries {
		if e.crc == crc && e.length == len(blob) && bytes.Equal(e.blob, blob) {
			return e.id, true
		}
	}
	b.entries = append(b.entries, entry{crc: crc, length: len(blob), blob: blob, id: staticID})
	return staticID, false
}
