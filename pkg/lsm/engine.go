// Package lsm assembles the memtable, SSTables, and merge iterator
// into the single local storage engine a replication coordinator
// drives: upsert, range, flush, compact, close, all under one
// exclusive lock per spec.md §5 — no reader ever runs concurrently
// with a writer.
package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"ringkv/pkg/memtable"
	"ringkv/pkg/merge"
	"ringkv/pkg/record"
	"ringkv/pkg/sstable"
)

const (
	// DefaultFlushThresholdBytes is the memtable accounted-size limit
	// above which the engine flushes before accepting the write that
	// would have pushed it over.
	DefaultFlushThresholdBytes = 32 * 1024 * 1024

	filePrefix = "SSTable_"
)

// Engine is one node's local LSM storage. It owns its memtable and
// SSTable list and exposes them only through its locked operations —
// never a raw reference.
type Engine struct {
	mu sync.Mutex

	dir             string
	flushThreshold  int
	mt              *memtable.Memtable
	tables          []*sstable.Table
	sizeCounter     int
	generationCount int
	closed          bool
}

// Option configures Open.
type Option func(*Engine)

// WithFlushThreshold overrides DefaultFlushThresholdBytes.
func WithFlushThreshold(bytes int) Option {
	return func(e *Engine) { e.flushThreshold = bytes }
}

// Open loads every existing SSTable under dir, oldest first by
// filename order, and returns a ready-to-use engine. The generation
// counter resumes after the highest generation found on disk.
func Open(dir string, opts ...Option) (*Engine, error) {
	e := &Engine{
		dir:            dir,
		flushThreshold: DefaultFlushThresholdBytes,
		mt:             memtable.New(),
	}
	for _, opt := range opts {
		opt(e)
	}

	names, err := listSSTableFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list sstable files in %s: %w", dir, err)
	}

	for _, name := range names {
		table, err := sstable.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("open sstable %s: %w", name, err)
		}
		e.tables = append(e.tables, table)
		if gen, err := strconv.ParseUint(name[len(filePrefix):], 2, 64); err == nil && int(gen) >= e.generationCount {
			e.generationCount = int(gen) + 1
		}
	}
	if e.generationCount < len(e.tables) {
		e.generationCount = len(e.tables)
	}

	return e, nil
}

// listSSTableFiles returns SSTable_* entries in dir sorted ascending,
// which is oldest-first because the generation counter is encoded as
// a fixed-width zero-padded binary string.
func listSSTableFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if len(entry.Name()) > len(filePrefix) && entry.Name()[:len(filePrefix)] == filePrefix {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (e *Engine) nextGenerationPathLocked() string {
	name := fmt.Sprintf("%s%064b", filePrefix, uint64(e.generationCount))
	return filepath.Join(e.dir, name)
}

// Upsert writes rec into the memtable, flushing first if accounting
// for it would exceed the flush threshold.
func (e *Engine) Upsert(rec record.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	if e.sizeCounter+rec.Size() > e.flushThreshold {
		if err := e.flushLocked(); err != nil {
			return fmt.Errorf("flush before upsert: %w", err)
		}
	}

	e.sizeCounter += rec.Size()
	e.mt.Upsert(rec)
	return nil
}

// Range forces a flush of any buffered writes, then returns a merged,
// ascending iterator over every SSTable and the (now-empty) memtable
// for keys in [from, to). Tombstones are not filtered — the caller
// decides whether to surface them.
func (e *Engine) Range(from, to []byte) (*merge.Iterator, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	if err := e.flushLocked(); err != nil {
		return nil, fmt.Errorf("flush before range: %w", err)
	}

	return e.mergeLocked(from, to)
}

// mergeLocked assembles sources oldest-sstable-first, then the
// memtable, so that ties resolve to the newest writer per
// pkg/merge's rule.
func (e *Engine) mergeLocked(from, to []byte) (*merge.Iterator, error) {
	sources := make([]merge.Source, 0, len(e.tables)+1)
	for _, table := range e.tables {
		it, err := table.Range(from, to)
		if err != nil {
			return nil, fmt.Errorf("range over %s: %w", table.Path(), err)
		}
		sources = append(sources, &sstableSource{it: it})
	}
	sources = append(sources, newSliceSource(e.mt.Range(from, to)))

	return merge.New(sources)
}

// flushLocked writes the memtable's contents to a fresh SSTable. It is
// a no-op if the memtable is empty. Callers must hold e.mu.
func (e *Engine) flushLocked() error {
	if e.mt.Empty() {
		return nil
	}

	records := e.mt.Reset()
	path := e.nextGenerationPathLocked()

	if err := sstable.Write(path, records); err != nil {
		return fmt.Errorf("write sstable %s: %w", path, err)
	}

	table, err := sstable.Open(path)
	if err != nil {
		return fmt.Errorf("open freshly written sstable %s: %w", path, err)
	}

	e.tables = append(e.tables, table)
	e.generationCount++
	e.sizeCounter = 0
	return nil
}

// Compact materializes the full merged stream, writes it to a single
// new SSTable, and replaces the SSTable list with just that table. If
// the merged stream is empty, no file is produced and the list is
// left as-is. The generation counter keeps counting up rather than
// resetting after compaction, so a later flush's filename always sorts
// after the compacted file's — a reset here would let a post-compaction
// write sort before the compacted snapshot on the next restart.
func (e *Engine) Compact() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	if err := e.flushLocked(); err != nil {
		return fmt.Errorf("flush before compact: %w", err)
	}

	it, err := e.mergeLocked(nil, nil)
	if err != nil {
		return fmt.Errorf("build merge iterator: %w", err)
	}

	var merged []record.Record
	for it.Next() {
		merged = append(merged, it.Record())
	}
	if it.Err() != nil {
		return fmt.Errorf("materialize merge: %w", it.Err())
	}

	if len(merged) == 0 {
		return nil
	}

	path := e.nextGenerationPathLocked()
	if err := sstable.Write(path, merged); err != nil {
		return fmt.Errorf("write compacted sstable %s: %w", path, err)
	}

	compacted, err := sstable.Open(path)
	if err != nil {
		return fmt.Errorf("open compacted sstable %s: %w", path, err)
	}

	old := e.tables
	for _, table := range old {
		_ = table.Close()
	}
	for _, table := range old {
		_ = os.Remove(table.Path())
	}

	e.tables = []*sstable.Table{compacted}
	e.generationCount++
	return nil
}

// Close flushes any buffered writes and closes every SSTable. The
// engine must not be used afterward.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	if err := e.flushLocked(); err != nil {
		return fmt.Errorf("flush on close: %w", err)
	}

	for _, table := range e.tables {
		if err := table.Close(); err != nil {
			return fmt.Errorf("close sstable %s: %w", table.Path(), err)
		}
	}

	e.closed = true
	return nil
}

// Get looks up the single record stored for key, if any, including a
// tombstone if the most recent write for key was a delete. It is
// built from Range(key, Successor(key)) per spec.md §4.5's point
// lookup via the half-open range [id, next(id)).
func (e *Engine) Get(key []byte) (record.Record, bool, error) {
	it, err := e.Range(key, record.Successor(key))
	if err != nil {
		return record.Record{}, false, err
	}
	if !it.Next() {
		return record.Record{}, false, it.Err()
	}
	return it.Record(), true, it.Err()
}

// TableCount reports how many SSTables the engine currently holds, for
// tests asserting on flush/compaction behavior.
func (e *Engine) TableCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tables)
}
