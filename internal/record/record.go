// Package record implements the fixed-width on-disk record codec shared by
// every on-disk structure in the LSM tree: a record is a 4-byte big-endian
// signed key followed by a 4-byte big-endian signed value, 8 bytes total,
// with no header, footer, or length prefix.
package record

import (
	"encoding/binary"
	"fmt"
)

const (
	// KeySize is the width in bytes of a record's key.
	KeySize = 4
	// ValueSize is the width in bytes of a record's value.
	ValueSize = 4
	// Size is the total width in bytes of one record.
	Size = KeySize + ValueSize
)

// Record is a single (key, value) pair.
type Record struct {
	Key   int32
	Value int32
}

// Encode appends the big-endian encoding of r to dst and returns the result.
func Encode(dst []byte, r Record) []byte {
	var buf [Size]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.Key))
	binary.BigEndian.PutUint32(buf[4:8], uint32(r.Value))
	return append(dst, buf[:]...)
}

// EncodeAll encodes every record in recs into one contiguous byte slice,
// sorted order preserved, no validation performed on ordering.
func EncodeAll(recs []Record) []byte {
	out := make([]byte, 0, len(recs)*Size)
	for _, r := range recs {
		out = Encode(out, r)
	}
	return out
}

// Decode reads a single record from the front of b.
func Decode(b []byte) (Record, error) {
	if len(b) < Size {
		return Record{}, fmt.Errorf("record: short buffer: got %d bytes, need %d", len(b), Size)
	}
	return Record{
		Key:   int32(binary.BigEndian.Uint32(b[0:4])),
		Value: int32(binary.BigEndian.Uint32(b[4:8])),
	}, nil
}

// DecodeAll decodes a whole byte slice into a sequence of records. b's
// length must be a multiple of Size.
func DecodeAll(b []byte) ([]Record, error) {
	if len(b)%Size != 0 {
		return nil, fmt.Errorf("record: buffer length %d is not a multiple of %d", len(b), Size)
	}
	out := make([]Record, 0, len(b)/Size)
	for off := 0; off < len(b); off += Size {
		r, err := Decode(b[off : off+Size])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// KeyAt decodes only the key field of the record at byte offset off within b.
func KeyAt(b []byte, off int) int32 {
	return int32(binary.BigEndian.Uint32(b[off : off+KeySize]))
}

// Filename returns the canonical on-disk name for the fileIdx-th file of the
// run-th run at the given level: "{level}.{run}.{fileIdx}".
func Filename(level, run, fileIdx int) string {
	return fmt.Sprintf("%d.%d.%d", level, run, fileIdx)
}

// BinarySearchFencePointers returns the index i such that fp[i] <= key <
// fp[i+1] (or fp[i] is the last fence pointer and key >= fp[i]). ok is false
// when key is smaller than every fence pointer, meaning the key cannot be
// present in the file the fence pointers describe.
func BinarySearchFencePointers(fp []int32, key int32) (idx int, ok bool) {
	if len(fp) == 0 || key < fp[0] {
		return 0, false
	}
	lo, hi := 0, len(fp)-1
	// Invariant: fp[lo] <= key throughout the loop.
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if fp[mid] <= key {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, true
}
