package jobj

import (
	"encoding/binary"
	"fmt"
)

// FieldFixedSize is the size of a FIELD object up to (not including) its
// variable-length name.
const FieldFixedSize = ObjectHeaderSize + 24

// FieldObject is a deduplicated field name, plus the head of the chain of
// DATA objects carrying a value for this field.
type FieldObject struct {
	Header ObjectHeader

	Hash           uint64
	NextHashOffset uint64
	HeadDataOffset uint64

	// Name is the raw FIELD name bytes (e.g. "MESSAGE", "_PID").
	Name []byte
}

// ReadFieldObject decodes a FIELD object from buf.
func ReadFieldObject(buf []byte) (FieldObject, error) {
	h, err := ReadObjectHeader(buf)
	if err != nil {
		return FieldObject{}, err
	}
	if h.Type != ObjectField {
		return FieldObject{}, &ErrObjectTypeMismatch{Want: ObjectField, Got: h.Type}
	}
	if h.Size < FieldFixedSize {
		return FieldObject{}, fmt.Errorf("jobj: FIELD object size %d smaller than fixed part %d", h.Size, FieldFixedSize)
	}
	if uint64(len(buf)) < h.Size {
		return FieldObject{}, fmt.Errorf("jobj: FIELD object buffer too small: got %d, want %d", len(buf), h.Size)
	}
	f := FieldObject{
		Header:         h,
		Hash:           binary.LittleEndian.Uint64(buf[16:24]),
		NextHashOffset: binary.LittleEndian.Uint64(buf[24:32]),
		HeadDataOffset: binary.LittleEndian.Uint64(buf[32:40]),
		Name:           buf[FieldFixedSize:h.Size],
	}
	return f, nil
}

// PutFieldObject encodes f into buf, which must be at least f.Header.Size
// bytes.
func PutFieldObject(buf []byte, f FieldObject) {
	f.Header.Type = ObjectField
	f.Header.Put(buf)
	binary.LittleEndian.PutUint64(buf[16:24], f.Hash)
	binary.LittleEndian.PutUint64(buf[24:32], f.NextHashOffset)
	binary.LittleEndian.PutUint64(buf[32:40], f.HeadDataOffset)
	copy(buf[FieldFixedSize:], f.Name)
}
