package jobj

import (
	"encoding/binary"
	"fmt"
)

// BucketSize is the on-disk size of one hash table bucket.
const BucketSize = 16

// Bucket is one slot of a DATA_HASH_TABLE or FIELD_HASH_TABLE: the offsets
// of the first and last object chained into this bucket, so a new
// collision can be appended in O(1) by patching Tail.NextHashOffset.
type Bucket struct {
	Head uint64
	Tail uint64
}

// HashTableObject is a fixed-size array of Bucket, sized at creation time
// and never resized; growth happens by rotating into a new journal file,
// never by rehashing.
type HashTableObject struct {
	Header  ObjectHeader
	Buckets []Bucket
}

// NBuckets returns the number of buckets encoded in a hash table object of
// the given total size.
func NBuckets(size uint64) uint64 {
	if size < ObjectHeaderSize {
		return 0
	}
	return (size - ObjectHeaderSize) / BucketSize
}

func readHashTableObject(buf []byte, want ObjectType) (HashTableObject, error) {
	h, err := ReadObjectHeader(buf)
	if err != nil {
		return HashTableObject{}, err
	}
	if h.Type != want {
		return HashTableObject{}, &ErrObjectTypeMismatch{Want: want, Got: h.Type}
	}
	if uint64(len(buf)) < h.Size {
		return HashTableObject{}, fmt.Errorf("jobj: hash table object buffer too small: got %d, want %d", len(buf), h.Size)
	}
	n := NBuckets(h.Size)
	t := HashTableObject{Header: h, Buckets: make([]Bucket, n)}
	for i := uint64(0); i < n; i++ {
		off := ObjectHeaderSize + i*BucketSize
		t.Buckets[i] = Bucket{
			Head: binary.LittleEndian.Uint64(buf[off : off+8]),
			Tail: binary.LittleEndian.Uint64(buf[off+8 : off+16]),
		}
	}
	return t, nil
}

// ReadDataHashTableObject decodes a DATA_HASH_TABLE object from buf.
func ReadDataHashTableObject(buf []byte) (HashTableObject, error) {
	return readHashTableObject(buf, ObjectDataHashTable)
}

// ReadFieldHashTableObject decodes a FIELD_HASH_TABLE object from buf.
func ReadFieldHashTableObject(buf []byte) (HashTableObject, error) {
	return readHashTableObject(buf, ObjectFieldHashTable)
}

// PutHashTableObject encodes t into buf, which must be at least
// t.Header.Size bytes. objType must be ObjectDataHashTable or
// ObjectFieldHashTable.
func PutHashTableObject(buf []byte, t HashTableObject, objType ObjectType) {
	t.Header.Type = objType
	t.Header.Put(buf)
	for i, b := range t.Buckets {
		off := ObjectHeaderSize + uint64(i)*BucketSize
		binary.LittleEndian.PutUint64(buf[off:off+8], b.Head)
		binary.LittleEndian.PutUint64(buf[off+8:off+16], b.Tail)
	}
}

// ReadBucket decodes a single Bucket from a BucketSize-byte slice, without
// requiring the whole hash table object's buffer.
func ReadBucket(buf []byte) Bucket {
	return Bucket{
		Head: binary.LittleEndian.Uint64(buf[0:8]),
		Tail: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

// PutBucket patches a single bucket in place within an already-written hash
// table object's buffer, at bucket index idx.
func PutBucket(buf []byte, idx uint64, b Bucket) {
	off := ObjectHeaderSize + idx*BucketSize
	binary.LittleEndian.PutUint64(buf[off:off+8], b.Head)
	binary.LittleEndian.PutUint64(buf[off+8:off+16], b.Tail)
}

// WriteBucket encodes b into a BucketSize-byte slice, the counterpart to
// ReadBucket for callers that have borrowed just one bucket's bytes rather
// than the whole hash table object.
func WriteBucket(buf []byte, b Bucket) {
	binary.LittleEndian.PutUint64(buf[0:8], b.Head)
	binary.LittleEndian.PutUint64(buf[8:16], b.Tail)
}

// SizeForBuckets returns the on-disk object size needed to hold n buckets.
func SizeForBuckets(n uint64) uint64 {
	return AlignedSize(ObjectHeaderSize + n*BucketSize)
}
