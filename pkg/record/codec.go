package record

import (
	"encoding/binary"
	"fmt"
	"io"
)

// tombstoneValueLen is the sentinel value_len written in place of a
// real length when a record is a tombstone.
const tombstoneValueLen = -1

// WriteTo appends the on-disk record layout to w:
//
//	key_len   u32 big-endian
//	key       key_len bytes
//	value_len i32 big-endian (-1 denotes a tombstone)
//	value     value_len bytes (absent if tombstone)
//	timestamp i64 big-endian
//
// It reports the number of bytes written.
func (r Record) WriteTo(w io.Writer) (int64, error) {
	var n int64

	if err := binary.Write(w, binary.BigEndian, uint32(len(r.Key))); err != nil {
		return n, fmt.Errorf("write key_len: %w", err)
	}
	n += 4

	if _, err := w.Write(r.Key); err != nil {
		return n, fmt.Errorf("write key: %w", err)
	}
	n += int64(len(r.Key))

	if r.Tombstone {
		if err := binary.Write(w, binary.BigEndian, int32(tombstoneValueLen)); err != nil {
			return n, fmt.Errorf("write tombstone value_len: %w", err)
		}
		n += 4
	} else {
		if err := binary.Write(w, binary.BigEndian, int32(len(r.Value))); err != nil {
			return n, fmt.Errorf("write value_len: %w", err)
		}
		n += 4

		if _, err := w.Write(r.Value); err != nil {
			return n, fmt.Errorf("write value: %w", err)
		}
		n += int64(len(r.Value))
	}

	if err := binary.Write(w, binary.BigEndian, r.Timestamp); err != nil {
		return n, fmt.Errorf("write timestamp: %w", err)
	}
	n += 8

	return n, nil
}

// EncodedSize returns the exact byte length WriteTo would produce.
func (r Record) EncodedSize() int64 {
	size := int64(4 + len(r.Key) + 4 + 8)
	if !r.Tombstone {
		size += int64(len(r.Value))
	}
	return size
}

// EncodeReplicaBody builds the raw replica-form response body used at
// the internal node boundary: value_bytes || timestamp_i64_be. The
// value is empty for tombstones.
func EncodeReplicaBody(r Record) []byte {
	valueLen := 0
	if !r.Tombstone {
		valueLen = len(r.Value)
	}
	body := make([]byte, valueLen+8)
	if !r.Tombstone {
		copy(body, r.Value)
	}
	binary.BigEndian.PutUint64(body[valueLen:], uint64(r.Timestamp))
	return body
}

// DecodeReplicaBody splits a raw replica-form body back into its value
// and timestamp. It returns an error if body is shorter than the
// trailing 8-byte timestamp.
func DecodeReplicaBody(body []byte) (value []byte, timestamp int64, err error) {
	if len(body) < 8 {
		return nil, 0, fmt.Errorf("replica body too short: %d bytes", len(body))
	}
	split := len(body) - 8
	timestamp = int64(binary.BigEndian.Uint64(body[split:]))
	if split == 0 {
		return nil, timestamp, nil
	}
	return body[:split], timestamp, nil
}
