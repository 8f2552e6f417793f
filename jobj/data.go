package jobj

import (
	"encoding/binary"
	"fmt"
)

// DataFixedSize is the size of a DATA object up to (not including) its
// variable-length payload.
const DataFixedSize = ObjectHeaderSize + 48

// DataObject is the decoded fixed part of a DATA object: the deduplicated
// value of one field=value pair, plus the hash-table and per-field chain
// pointers needed to find every ENTRY that references it.
type DataObject struct {
	Header ObjectHeader

	Hash            uint64
	NextHashOffset  uint64
	NextFieldOffset uint64
	EntryOffset     uint64
	EntryArrayOffset uint64
	NEntries        uint64

	// Payload is the raw (possibly compressed) "FIELD=value" bytes that
	// follow the fixed part, sized by Header.Size - DataFixedSize.
	Payload []byte
}

// ReadDataObject decodes a DATA object from buf, which must hold at least
// Header.Size bytes.
func ReadDataObject(buf []byte) (DataObject, error) {
	h, err := ReadObjectHeader(buf)
	if err != nil {
		return DataObject{}, err
	}
	if h.Type != ObjectData {
		return DataObject{}, &ErrObjectTypeMismatch{Want: ObjectData, Got: h.Type}
	}
	if h.Size < DataFixedSize {
		return DataObject{}, fmt.Errorf("jobj: DATA object size %d smaller than fixed part %d", h.Size, DataFixedSize)
	}
	if uint64(len(buf)) < h.Size {
		return DataObject{}, fmt.Errorf("jobj: DATA object buffer too small: got %d, want %d", len(buf), h.Size)
	}
	d := DataObject{
		Header:           h,
		Hash:             binary.LittleEndian.Uint64(buf[16:24]),
		NextHashOffset:   binary.LittleEndian.Uint64(buf[24:32]),
		NextFieldOffset:  binary.LittleEndian.Uint64(buf[32:40]),
		EntryOffset:      binary.LittleEndian.Uint64(buf[40:48]),
		EntryArrayOffset: binary.LittleEndian.Uint64(buf[48:56]),
		NEntries:         binary.LittleEndian.Uint64(buf[56:64]),
		Payload:          buf[DataFixedSize:h.Size],
	}
	return d, nil
}

// PutDataObject encodes d's fixed part and payload into buf, which must be
// at least d.Header.Size bytes.
func PutDataObject(buf []byte, d DataObject) {
	d.Header.Type = ObjectData
	d.Header.Put(buf)
	binary.LittleEndian.PutUint64(buf[16:24], d.Hash)
	binary.LittleEndian.PutUint64(buf[24:32], d.NextHashOffset)
	binary.LittleEndian.PutUint64(buf[32:40], d.NextFieldOffset)
	binary.LittleEndian.PutUint64(buf[40:48], d.EntryOffset)
	binary.LittleEndian.PutUint64(buf[48:56], d.EntryArrayOffset)
	binary.LittleEndian.PutUint64(buf[56:64], d.NEntries)
	copy(buf[DataFixedSize:], d.Payload)
}
