package sstable

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"ringkv/pkg/record"
)

// Write serializes records (already sorted ascending by key, each key
// unique) to a fresh file at path. On any failure the partial file is
// removed so callers never observe a half-written table.
func Write(path string, records []record.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sstable file %s: %w", path, err)
	}

	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	w := bufio.NewWriter(f)
	offsets := make([]int64, len(records))
	var offset int64

	for i, rec := range records {
		offsets[i] = offset
		n, wErr := rec.WriteTo(w)
		if wErr != nil {
			return fmt.Errorf("write record %d: %w", i, wErr)
		}
		offset += n
	}

	indexStart := offset
	var buf [8]byte
	for _, off := range offsets {
		binary.BigEndian.PutUint64(buf[:], uint64(off))
		if _, wErr := w.Write(buf[:]); wErr != nil {
			return fmt.Errorf("write index entry: %w", wErr)
		}
	}

	binary.BigEndian.PutUint64(buf[:], uint64(indexStart))
	if _, wErr := w.Write(buf[:]); wErr != nil {
		return fmt.Errorf("write footer: %w", wErr)
	}

	if err = w.Flush(); err != nil {
		return fmt.Errorf("flush sstable file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync sstable file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close sstable file: %w", err)
	}
	return nil
}
