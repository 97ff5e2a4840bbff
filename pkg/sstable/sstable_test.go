package sstable

import (
	"path/filepath"
	"testing"

	"ringkv/pkg/record"
)

func mustWrite(t *testing.T, dir string, name string, records []record.Record) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := Write(path, records); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return path
}

func TestWriteOpenRangeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	records := []record.Record{
		record.New([]byte("a"), []byte("1"), 10),
		record.New([]byte("b"), []byte("2"), 20),
		record.NewTombstone([]byte("c"), 30),
		record.New([]byte("d"), []byte("4"), 40),
	}
	path := mustWrite(t, dir, "SSTable_0", records)

	table, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer table.Close()

	if table.Len() != 4 {
		t.Fatalf("expected 4 records, got %d", table.Len())
	}

	it, err := table.Range(nil, nil)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}

	var got []record.Record
	for it.Next() {
		got = append(got, it.Record())
	}
	if it.Err() != nil {
		t.Fatalf("iterator error: %v", it.Err())
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 records from iteration, got %d", len(got))
	}
	if string(got[0].Key) != "a" || string(got[0].Value) != "1" || got[0].Timestamp != 10 {
		t.Fatalf("unexpected first record: %+v", got[0])
	}
	if !got[2].Tombstone || got[2].Timestamp != 30 {
		t.Fatalf("expected tombstone at index 2, got %+v", got[2])
	}
}

func TestRangeBounds(t *testing.T) {
	dir := t.TempDir()
	records := []record.Record{
		record.New([]byte("a"), []byte("1"), 1),
		record.New([]byte("b"), []byte("2"), 1),
		record.New([]byte("c"), []byte("3"), 1),
		record.New([]byte("d"), []byte("4"), 1),
	}
	path := mustWrite(t, dir, "SSTable_0", records)

	table, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer table.Close()

	it, err := table.Range([]byte("b"), []byte("d"))
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Record().Key))
	}
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "c" {
		t.Fatalf("unexpected range result: %v", keys)
	}
}

func TestPointLookupViaSuccessor(t *testing.T) {
	dir := t.TempDir()
	records := []record.Record{
		record.New([]byte("k1"), []byte("v1"), 1),
		record.New([]byte("k2"), []byte("v2"), 1),
	}
	path := mustWrite(t, dir, "SSTable_0", records)

	table, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer table.Close()

	key := []byte("k1")
	it, err := table.Range(key, record.Successor(key))
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if !it.Next() {
		t.Fatal("expected one match")
	}
	if string(it.Record().Value) != "v1" {
		t.Fatalf("unexpected value: %q", it.Record().Value)
	}
	if it.Next() {
		t.Fatal("expected exactly one match")
	}
}

func TestWriteToMissingDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	// A target inside a directory that does not exist makes os.Create
	// fail before any file is created; Write must report the error.
	badPath := filepath.Join(dir, "sub")
	if err := Write(badPath+string(filepath.Separator)+"x", nil); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
