// Package sstable implements the immutable, on-disk sorted runs that
// back an LSM engine once a memtable is flushed. Binary layout is
// fixed by the wire format every node must agree on:
//
//	key_len:   u32 big-endian
//	key:       key_len bytes
//	value_len: i32 big-endian; -1 denotes a tombstone
//	value:     value_len bytes (absent if tombstone)
//	timestamp: i64 big-endian
//
// Records are concatenated, followed by a trailing index of u64
// big-endian byte offsets, one per record, in file order. The final
// u64 of the file is the byte offset where the index section begins.
package sstable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"golang.org/x/exp/mmap"
)

const footerSize = 8

// Table is an open, memory-mapped SSTable. Its iterators read each
// record out of the mapped region into fresh buffers as they advance,
// and must not be advanced after a Close.
type Table struct {
	path       string
	ra         *mmap.ReaderAt
	size       int64
	indexStart int64
	offsets    []int64
}

// Open memory-maps path and parses its trailing index.
func Open(path string) (*Table, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sstable %s: %w", path, err)
	}

	t := &Table{path: path, ra: ra, size: int64(ra.Len())}
	if err := t.loadIndex(); err != nil {
		_ = ra.Close()
		return nil, fmt.Errorf("load index for %s: %w", path, err)
	}
	return t, nil
}

func (t *Table) loadIndex() error {
	if t.size < footerSize {
		return fmt.Errorf("file too small (%d bytes) to hold a footer", t.size)
	}

	var footer [footerSize]byte
	if _, err := t.ra.ReadAt(footer[:], t.size-footerSize); err != nil {
		return fmt.Errorf("read footer: %w", err)
	}
	t.indexStart = int64(binary.BigEndian.Uint64(footer[:]))

	indexBytes := t.size - footerSize - t.indexStart
	if indexBytes < 0 || indexBytes%footerSize != 0 {
		return fmt.Errorf("corrupt index: %d bytes at offset %d", indexBytes, t.indexStart)
	}

	n := int(indexBytes / footerSize)
	t.offsets = make([]int64, n)
	buf := make([]byte, indexBytes)
	if n > 0 {
		if _, err := t.ra.ReadAt(buf, t.indexStart); err != nil {
			return fmt.Errorf("read index: %w", err)
		}
	}
	for i := 0; i < n; i++ {
		t.offsets[i] = int64(binary.BigEndian.Uint64(buf[i*footerSize:]))
	}
	return nil
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	return len(t.offsets)
}

// Close releases the mapped region. The table must have no
// outstanding iterators when this is called.
func (t *Table) Close() error {
	if err := t.ra.Close(); err != nil {
		return fmt.Errorf("close sstable %s: %w", t.path, err)
	}
	return nil
}

// Path returns the file path this table was opened from.
func (t *Table) Path() string {
	return t.path
}

// readKeyAt reads just the key at a record offset, for binary search.
func (t *Table) readKeyAt(offset int64) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := t.ra.ReadAt(lenBuf[:], offset); err != nil {
		return nil, fmt.Errorf("read key_len at %d: %w", offset, err)
	}
	keyLen := binary.BigEndian.Uint32(lenBuf[:])
	key := make([]byte, keyLen)
	if keyLen > 0 {
		if _, err := t.ra.ReadAt(key, offset+4); err != nil {
			return nil, fmt.Errorf("read key at %d: %w", offset+4, err)
		}
	}
	return key, nil
}

// lowerBound returns the index of the first offset whose key is >=
// target, or len(offsets) if none qualifies.
func (t *Table) lowerBound(target []byte) (int, error) {
	var searchErr error
	idx := sort.Search(len(t.offsets), func(i int) bool {
		key, err := t.readKeyAt(t.offsets[i])
		if err != nil {
			searchErr = err
			return true
		}
		return bytes.Compare(key, target) >= 0
	})
	if searchErr != nil {
		return 0, searchErr
	}
	return idx, nil
}
