package jobj

import (
	"encoding/binary"
	"fmt"
)

// ObjectHeaderSize is the size of the header common to every object.
const ObjectHeaderSize = 16

// ObjectType tags the kind of object that follows an ObjectHeader.
type ObjectType uint8

const (
	ObjectUnused ObjectType = iota
	ObjectData
	ObjectField
	ObjectEntry
	ObjectDataHashTable
	ObjectFieldHashTable
	ObjectEntryArray
	ObjectTag
)

func (t ObjectType) String() string {
	switch t {
	case ObjectUnused:
		return "UNUSED"
	case ObjectData:
		return "DATA"
	case ObjectField:
		return "FIELD"
	case ObjectEntry:
		return "ENTRY"
	case ObjectDataHashTable:
		return "DATA_HASH_TABLE"
	case ObjectFieldHashTable:
		return "FIELD_HASH_TABLE"
	case ObjectEntryArray:
		return "ENTRY_ARRAY"
	case ObjectTag:
		return "TAG"
	default:
		return fmt.Sprintf("OBJECT_TYPE(%d)", uint8(t))
	}
}

// ObjectFlag holds per-object flags. Only DATA objects currently use the
// low three bits, to record the compression codec applied to the payload.
type ObjectFlag uint8

const (
	FlagCompressedXZ   ObjectFlag = 1 << 0
	FlagCompressedLZ4  ObjectFlag = 1 << 1
	FlagCompressedZSTD ObjectFlag = 1 << 2
)

const compressionMask = FlagCompressedXZ | FlagCompressedLZ4 | FlagCompressedZSTD

// Compression returns the compression bits of f, or 0 if the payload is
// stored uncompressed.
func (f ObjectFlag) Compression() ObjectFlag {
	return f & compressionMask
}

// ObjectHeader is the 16-byte header every object starts with: a type tag,
// per-object flags, six reserved bytes, and the object's total size
// (header included) without padding; the object occupies AlignedSize(Size)
// bytes on disk.
type ObjectHeader struct {
	Type  ObjectType
	Flags ObjectFlag
	Size  uint64
}

// ReadObjectHeader decodes the ObjectHeader at the start of buf.
func ReadObjectHeader(buf []byte) (ObjectHeader, error) {
	if len(buf) < ObjectHeaderSize {
		return ObjectHeader{}, fmt.Errorf("jobj: object header buffer too small: got %d, want %d", len(buf), ObjectHeaderSize)
	}
	h := ObjectHeader{
		Type:  ObjectType(buf[0]),
		Flags: ObjectFlag(buf[1]),
		Size:  binary.LittleEndian.Uint64(buf[8:16]),
	}
	if h.Size < ObjectHeaderSize {
		return ObjectHeader{}, fmt.Errorf("jobj: object size %d smaller than header", h.Size)
	}
	return h, nil
}

// Put encodes h into the first ObjectHeaderSize bytes of buf.
func (h ObjectHeader) Put(buf []byte) {
	buf[0] = byte(h.Type)
	buf[1] = byte(h.Flags)
	buf[2], buf[3], buf[4], buf[5], buf[6], buf[7] = 0, 0, 0, 0, 0, 0
	binary.LittleEndian.PutUint64(buf[8:16], h.Size)
}

// ErrObjectTypeMismatch is returned by typed view constructors when the
// object header's Type doesn't match the requested view.
type ErrObjectTypeMismatch struct {
	Want, Got ObjectType
}

func (e *ErrObjectTypeMismatch) Error() string {
	return fmt.Sprintf("jobj: object type mismatch: want %s, got %s", e.Want, e.Got)
}
