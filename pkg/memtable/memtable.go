// Package memtable holds the in-memory sorted buffer of pending
// writes for one LSM engine. Callers are responsible for the
// exclusive-access discipline described in pkg/lsm: nothing here is
// safe to mutate concurrently with Reset.
package memtable

import (
	"bytes"

	"ringkv/pkg/record"

	"github.com/zhangyunhao116/skipmap"
)

// Memtable is an ordered map from key to the latest record upserted
// for that key. It is built on skipmap.FuncMap purely for its
// ascending-order Range; the engine above still serializes all access
// with its own lock, so no additional synchronization happens here.
type Memtable struct {
	entries *skipmap.FuncMap[[]byte, record.Record]
	size    int
}

// New returns an empty memtable.
func New() *Memtable {
	return &Memtable{
		entries: skipmap.NewFunc[[]byte, record.Record](func(a, b []byte) bool {
			return bytes.Compare(a, b) < 0
		}),
	}
}

// Upsert overwrites the record for rec.Key and returns the memtable's
// new accounted size. The size counter is not corrected when an
// existing key is overwritten — it only ever grows until the next
// Reset — matching the accounting the LSM engine's flush threshold is
// defined against.
func (m *Memtable) Upsert(rec record.Record) int {
	m.entries.Store(rec.Key, rec)
	m.size += rec.Size()
	return m.size
}

// Get returns the record stored for key, if any.
func (m *Memtable) Get(key []byte) (record.Record, bool) {
	return m.entries.Load(key)
}

// Size reports the accounted byte footprint of all entries.
func (m *Memtable) Size() int {
	return m.size
}

// Empty reports whether the memtable holds no entries.
func (m *Memtable) Empty() bool {
	return m.entries.Len() == 0
}

// Range returns, in ascending key order, every record with
// from <= key < to. A nil from is unbounded-below; a nil to is
// unbounded-above.
func (m *Memtable) Range(from, to []byte) []record.Record {
	out := make([]record.Record, 0, m.entries.Len())
	m.entries.Range(func(key []byte, rec record.Record) bool {
		if from != nil && bytes.Compare(key, from) < 0 {
			return true
		}
		if to != nil && bytes.Compare(key, to) >= 0 {
			return true
		}
		out = append(out, rec)
		return true
	})
	return out
}

// Reset drains the memtable and returns everything it held, in
// ascending key order, ready to be handed to an SSTable writer.
func (m *Memtable) Reset() []record.Record {
	drained := m.Range(nil, nil)
	m.entries = skipmap.NewFunc[[]byte, record.Record](func(a, b []byte) bool {
		return bytes.Compare(a, b) < 0
	})
	m.size = 0
	return drained
}
