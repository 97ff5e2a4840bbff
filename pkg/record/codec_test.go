package record

import (
	"bytes"
	"testing"
)

func TestRoundTripValue(t *testing.T) {
	rec := New([]byte("hello"), []byte("world"), 12345)

	var buf bytes.Buffer
	n, err := rec.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if n != rec.EncodedSize() {
		t.Fatalf("WriteTo wrote %d bytes, EncodedSize()=%d", n, rec.EncodedSize())
	}

	got, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if !bytes.Equal(got.Key, rec.Key) {
		t.Fatalf("key mismatch: got %q want %q", got.Key, rec.Key)
	}
	if !bytes.Equal(got.Value, rec.Value) {
		t.Fatalf("value mismatch: got %q want %q", got.Value, rec.Value)
	}
	if got.Timestamp != rec.Timestamp {
		t.Fatalf("timestamp mismatch: got %d want %d", got.Timestamp, rec.Timestamp)
	}
	if got.Tombstone {
		t.Fatal("expected non-tombstone")
	}
}

func TestRoundTripTombstone(t *testing.T) {
	rec := NewTombstone([]byte("k"), 42)

	var buf bytes.Buffer
	if _, err := rec.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	got, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if !got.Tombstone {
		t.Fatal("expected tombstone bit preserved")
	}
	if got.Timestamp != 42 {
		t.Fatalf("timestamp mismatch: got %d want 42", got.Timestamp)
	}
	if len(got.Value) != 0 {
		t.Fatalf("expected empty value, got %q", got.Value)
	}
}

func TestReplicaBodyRoundTrip(t *testing.T) {
	rec := New([]byte("k"), []byte("abc"), 99)
	body := EncodeReplicaBody(rec)

	value, ts, err := DecodeReplicaBody(body)
	if err != nil {
		t.Fatalf("DecodeReplicaBody failed: %v", err)
	}
	if !bytes.Equal(value, rec.Value) {
		t.Fatalf("value mismatch: got %q want %q", value, rec.Value)
	}
	if ts != rec.Timestamp {
		t.Fatalf("timestamp mismatch: got %d want %d", ts, rec.Timestamp)
	}
}

func TestReplicaBodyTombstone(t *testing.T) {
	rec := NewTombstone([]byte("k"), 7)
	body := EncodeReplicaBody(rec)
	if len(body) != 8 {
		t.Fatalf("expected 8-byte body for tombstone, got %d", len(body))
	}

	value, ts, err := DecodeReplicaBody(body)
	if err != nil {
		t.Fatalf("DecodeReplicaBody failed: %v", err)
	}
	if len(value) != 0 {
		t.Fatalf("expected empty value, got %q", value)
	}
	if ts != 7 {
		t.Fatalf("timestamp mismatch: got %d want 7", ts)
	}
}

func TestSuccessor(t *testing.T) {
	k := []byte("abc")
	next := Successor(k)
	if !Less(k, next) {
		t.Fatal("successor must be strictly greater than key")
	}
	if !bytes.Equal(next[:len(k)], k) {
		t.Fatal("successor must be prefixed by the original key")
	}
}
