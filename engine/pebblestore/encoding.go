package pebblestore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
)

// Encoding describes how elements of type T are laid out in the store.
//
// SortKey must be order-preserving: for any a, b, bytes.Compare of the sort
// keys must agree with the comparison function the dataset is distributed
// with. The store relies on the LSM's byte order to deliver the locally
// sorted layout, so a sort key that disagrees with the comparator silently
// produces a mis-ordered dataset (the validity checker will catch it
// offline).
type Encoding[T any] struct {
	// SortKey returns the order-preserving sort key of an element.
	SortKey func(T) []byte

	// Marshal and Unmarshal convert elements to and from their stored form.
	Marshal   func(T) ([]byte, error)
	Unmarshal func([]byte) (T, error)
}

// Gob returns Marshal/Unmarshal functions backed by encoding/gob.
func Gob[T any]() (func(T) ([]byte, error), func([]byte) (T, error)) {
	marshal := func(v T) ([]byte, error) {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
			return nil, fmt.Errorf("pebblestore: failed to encode value: %w", err)
		}
		return buf.Bytes(), nil
	}
	unmarshal := func(data []byte) (T, error) {
		var v T
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
			return v, fmt.Errorf("pebblestore: failed to decode value: %w", err)
		}
		return v, nil
	}
	return marshal, unmarshal
}

// Uint64Key encodes v so that byte order matches numeric order.
func Uint64Key(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

// Int64Key encodes v so that byte order matches numeric order, including
// negative values.
func Int64Key(v int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(v)^(1<<63))
}

// StringKey encodes s as a terminated, order-preserving segment. Segments
// produced by StringKey and BytesKey can be concatenated to form composite
// sort keys that order by the first segment, then the next.
func StringKey(s string) []byte {
	return BytesKey([]byte(s))
}

// BytesKey escapes b into a terminated, order-preserving segment: embedded
// 0x00 bytes become 0x00 0xFF and the segment ends with 0x00 0x01, so a
// proper prefix always sorts before any extension of it.
func BytesKey(b []byte) []byte {
	out := make([]byte, 0, len(b)+2)
	for _, c := range b {
		if c == 0x00 {
			out = append(out, 0x00, 0xFF)
			continue
		}
		out = append(out, c)
	}
	return append(out, 0x00, 0x01)
}

// storedKey lays out the physical key of one element:
// [4B table | 4B partition | sort key | 8B sequence]. The trailing sequence
// number keeps duplicate sort keys distinct and preserves their arrival
// order.
func storedKey(table uint32, part int, sortKey []byte, seq uint64) []byte {
	key := make([]byte, 0, 8+len(sortKey)+8)
	key = binary.BigEndian.AppendUint32(key, table)
	key = binary.BigEndian.AppendUint32(key, uint32(part))
	key = append(key, sortKey...)
	return binary.BigEndian.AppendUint64(key, seq)
}

// partitionBounds returns the key range covering one partition of a table.
func partitionBounds(table uint32, part int) (lower, upper []byte) {
	lower = binary.BigEndian.AppendUint32(nil, table)
	lower = binary.BigEndian.AppendUint32(lower, uint32(part))
	upper = binary.BigEndian.AppendUint32(nil, table)
	upper = binary.BigEndian.AppendUint32(upper, uint32(part)+1)
	return lower, upper
}
