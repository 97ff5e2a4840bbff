package sstable

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"ringkv/pkg/record"
)

// readRecordAt decodes the full record starting at offset.
func (t *Table) readRecordAt(offset int64) (record.Record, error) {
	var rec record.Record

	var lenBuf [4]byte
	if _, err := t.ra.ReadAt(lenBuf[:], offset); err != nil {
		return rec, fmt.Errorf("read key_len at %d: %w", offset, err)
	}
	keyLen := binary.BigEndian.Uint32(lenBuf[:])
	pos := offset + 4

	rec.Key = make([]byte, keyLen)
	if keyLen > 0 {
		if _, err := t.ra.ReadAt(rec.Key, pos); err != nil {
			return rec, fmt.Errorf("read key at %d: %w", pos, err)
		}
	}
	pos += int64(keyLen)

	var valLenBuf [4]byte
	if _, err := t.ra.ReadAt(valLenBuf[:], pos); err != nil {
		return rec, fmt.Errorf("read value_len at %d: %w", pos, err)
	}
	valueLen := int32(binary.BigEndian.Uint32(valLenBuf[:]))
	pos += 4

	if valueLen < 0 {
		rec.Tombstone = true
	} else {
		rec.Value = make([]byte, valueLen)
		if valueLen > 0 {
			if _, err := t.ra.ReadAt(rec.Value, pos); err != nil {
				return rec, fmt.Errorf("read value at %d: %w", pos, err)
			}
		}
		pos += int64(valueLen)
	}

	var tsBuf [8]byte
	if _, err := t.ra.ReadAt(tsBuf[:], pos); err != nil {
		return rec, fmt.Errorf("read timestamp at %d: %w", pos, err)
	}
	rec.Timestamp = int64(binary.BigEndian.Uint64(tsBuf[:]))

	return rec, nil
}

// Iterator yields records in ascending key order, lazily reading each
// one from the mapped region as it advances.
type Iterator struct {
	table *Table
	idx   int
	limit int
	to    []byte

	cur record.Record
	err error
}

// Range returns an ascending iterator over records with
// from <= key < to. A nil from is unbounded-below; a nil to is
// unbounded-above.
func (t *Table) Range(from, to []byte) (*Iterator, error) {
	start := 0
	if from != nil {
		idx, err := t.lowerBound(from)
		if err != nil {
			return nil, err
		}
		start = idx
	}
	return &Iterator{table: t, idx: start - 1, limit: len(t.offsets), to: to}, nil
}

// Next advances to the next record in range and reports whether one
// was found.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.idx++
	if it.idx >= it.limit {
		return false
	}
	rec, err := it.table.readRecordAt(it.table.offsets[it.idx])
	if err != nil {
		it.err = err
		return false
	}
	if it.to != nil && bytes.Compare(rec.Key, it.to) >= 0 {
		it.idx = it.limit
		return false
	}
	it.cur = rec
	return true
}

// Record returns the record at the iterator's current position. Only
// valid after a Next call returned true.
func (it *Iterator) Record() record.Record {
	return it.cur
}

// Err returns the first error encountered while advancing, if any.
func (it *Iterator) Err() error {
	return it.err
}
