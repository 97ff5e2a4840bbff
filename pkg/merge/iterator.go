// Package merge implements the k-way merge that fuses an LSM engine's
// SSTables and memtable into one ascending, deduplicated record
// stream. It is deliberately blind to where a Source's records come
// from — mapped-file cursors and in-memory cursors both satisfy the
// same {peek, advance} capability.
package merge

import (
	"bytes"
	"container/heap"
	"fmt"

	"ringkv/pkg/record"
)

// Source is a single ordered, ascending-by-key input to the merge.
// It starts unpositioned: the first Advance call must move it to its
// first record.
type Source interface {
	// Advance moves to the next record and reports whether one was
	// found. Once it returns false the source is exhausted.
	Advance() (bool, error)
	// Key returns the key at the current position. Only valid after
	// Advance returned true.
	Key() []byte
	// Record returns the record at the current position. Only valid
	// after Advance returned true.
	Record() record.Record
}

// Iterator performs the merge itself, in O(log K) per yielded record
// via a min-heap keyed by (current key, input index). When multiple
// sources offer the same key, the record from the source with the
// highest index in the original list wins; the rest are silently
// advanced past that key. Sources should be supplied oldest-first —
// the engine passes [sstable_0 .. sstable_n, memtable] so the
// memtable, being last, always shadows on-disk data for the same key.
type Iterator struct {
	sources []Source
	h       ranking

	cur record.Record
	err error
}

type rankedEntry struct {
	key   []byte
	index int
}

type ranking []rankedEntry

func (r ranking) Len() int      { return len(r) }
func (r ranking) Swap(i, j int) { r[i], r[j] = r[j], r[i] }
func (r ranking) Less(i, j int) bool {
	if c := bytes.Compare(r[i].key, r[j].key); c != 0 {
		return c < 0
	}
	return r[i].index < r[j].index
}
func (r *ranking) Push(x any) { *r = append(*r, x.(rankedEntry)) }
func (r *ranking) Pop() any {
	old := *r
	n := len(old)
	item := old[n-1]
	*r = old[:n-1]
	return item
}

// New builds a merging iterator over sources, oldest first.
func New(sources []Source) (*Iterator, error) {
	it := &Iterator{sources: sources}
	for i, s := range sources {
		ok, err := s.Advance()
		if err != nil {
			return nil, fmt.Errorf("prime source %d: %w", i, err)
		}
		if ok {
			it.h = append(it.h, rankedEntry{key: s.Key(), index: i})
		}
	}
	heap.Init(&it.h)
	return it, nil
}

// Next advances the merge and reports whether a record was produced.
func (it *Iterator) Next() bool {
	if it.err != nil || it.h.Len() == 0 {
		return false
	}

	first := heap.Pop(&it.h).(rankedEntry)
	minKey := first.key
	winner := first.index

	group := []int{first.index}
	for it.h.Len() > 0 && bytes.Equal(it.h[0].key, minKey) {
		next := heap.Pop(&it.h).(rankedEntry)
		group = append(group, next.index)
		if next.index > winner {
			winner = next.index
		}
	}

	it.cur = it.sources[winner].Record()

	for _, idx := range group {
		ok, err := it.sources[idx].Advance()
		if err != nil {
			it.err = fmt.Errorf("advance source %d: %w", idx, err)
			return false
		}
		if ok {
			heap.Push(&it.h, rankedEntry{key: it.sources[idx].Key(), index: idx})
		}
	}

	return true
}

// Record returns the record at the iterator's current position.
func (it *Iterator) Record() record.Record {
	return it.cur
}

// Err reports the first error encountered while advancing, if any.
func (it *Iterator) Err() error {
	return it.err
}
