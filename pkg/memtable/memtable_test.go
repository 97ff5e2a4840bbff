package memtable

import (
	"testing"

	"ringkv/pkg/record"
)

func TestUpsertOverwritesAndTracksSize(t *testing.T) {
	mt := New()

	size := mt.Upsert(record.New([]byte("a"), []byte("1"), 1))
	if size != 2 {
		t.Fatalf("expected size 2, got %d", size)
	}

	size = mt.Upsert(record.New([]byte("a"), []byte("22"), 2))
	if size != 5 {
		t.Fatalf("expected size 5 after overwrite (counter is not corrected on overwrite), got %d", size)
	}

	got, ok := mt.Get([]byte("a"))
	if !ok || string(got.Value) != "22" || got.Timestamp != 2 {
		t.Fatalf("unexpected record after overwrite: %+v", got)
	}
}

func TestRangeAscendingOrder(t *testing.T) {
	mt := New()
	mt.Upsert(record.New([]byte("c"), []byte("3"), 1))
	mt.Upsert(record.New([]byte("a"), []byte("1"), 1))
	mt.Upsert(record.New([]byte("b"), []byte("2"), 1))

	got := mt.Range(nil, nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	want := []string{"a", "b", "c"}
	for i, rec := range got {
		if string(rec.Key) != want[i] {
			t.Fatalf("out of order at %d: got %q want %q", i, rec.Key, want[i])
		}
	}
}

func TestRangeBounds(t *testing.T) {
	mt := New()
	for _, k := range []string{"a", "b", "c", "d"} {
		mt.Upsert(record.New([]byte(k), []byte("v"), 1))
	}

	got := mt.Range([]byte("b"), []byte("d"))
	if len(got) != 2 || string(got[0].Key) != "b" || string(got[1].Key) != "c" {
		t.Fatalf("unexpected range result: %+v", got)
	}
}

func TestResetClearsAndDrains(t *testing.T) {
	mt := New()
	mt.Upsert(record.New([]byte("a"), []byte("1"), 1))
	mt.Upsert(record.New([]byte("b"), []byte("2"), 1))

	drained := mt.Reset()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained records, got %d", len(drained))
	}
	if !mt.Empty() || mt.Size() != 0 {
		t.Fatalf("expected empty memtable after reset, got size=%d empty=%v", mt.Size(), mt.Empty())
	}
}

func TestTombstoneCountsOnlyKeySize(t *testing.T) {
	mt := New()
	mt.Upsert(record.NewTombstone([]byte("a"), 1))
	if mt.Size() != 1 {
		t.Fatalf("expected size == len(key) for tombstone, got %d", mt.Size())
	}
}
