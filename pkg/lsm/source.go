package lsm

import (
	"ringkv/pkg/record"
	"ringkv/pkg/sstable"
)

// sstableSource adapts an *sstable.Iterator to merge.Source.
type sstableSource struct {
	it  *sstable.Iterator
	cur record.Record
}

func (s *sstableSource) Advance() (bool, error) {
	if !s.it.Next() {
		return false, s.it.Err()
	}
	s.cur = s.it.Record()
	return true, nil
}

func (s *sstableSource) Key() []byte           { return s.cur.Key }
func (s *sstableSource) Record() record.Record { return s.cur }

// sliceSource adapts an in-memory, already-sorted slice of records
// (the memtable's contribution) to merge.Source.
type sliceSource struct {
	records []record.Record
	pos     int
}

func newSliceSource(records []record.Record) *sliceSource {
	return &sliceSource{records: records, pos: -1}
}

func (s *sliceSource) Advance() (bool, error) {
	s.pos++
	return s.pos < len(s.records), nil
}

func (s *sliceSource) Key() []byte           { return s.records[s.pos].Key }
func (s *sliceSource) Record() record.Record { return s.records[s.pos] }
