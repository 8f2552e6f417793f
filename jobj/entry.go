package jobj

import (
	"encoding/binary"
	"fmt"
)

// EntryFixedSize is the size of an ENTRY object up to (not including) its
// item array.
const EntryFixedSize = ObjectHeaderSize + 48

// EntryItemSize is the size of one item in an ENTRY object's item array.
const EntryItemSize = 16

// EntryItem points at one DATA object referenced by an ENTRY, along with a
// copy of that DATA object's hash (used to validate the link without an
// extra dereference).
type EntryItem struct {
	ObjectOffset uint64
	Hash         uint64
}

// EntryObject is one log message: a monotonically increasing sequence
// number, two timestamps, the boot this entry was written during, and the
// set of DATA objects (field=value pairs) that make up the message.
type EntryObject struct {
	Header ObjectHeader

	Seqnum    uint64
	Realtime  uint64
	Monotonic uint64
	BootID    [16]byte
	XorHash   uint64

	Items []EntryItem
}

// NItems returns the number of items encoded in an ENTRY object of the
// given total size.
func NItems(size uint64) uint64 {
	if size < EntryFixedSize {
		return 0
	}
	return (size - EntryFixedSize) / EntryItemSize
}

// ReadEntryObject decodes an ENTRY object from buf.
func ReadEntryObject(buf []byte) (EntryObject, error) {
	h, err := ReadObjectHeader(buf)
	if err != nil {
		return EntryObject{}, err
	}
	if h.Type != ObjectEntry {
		return EntryObject{}, &ErrObjectTypeMismatch{Want: ObjectEntry, Got: h.Type}
	}
	if h.Size < EntryFixedSize {
		return EntryObject{}, fmt.Errorf("jobj: ENTRY object size %d smaller than fixed part %d", h.Size, EntryFixedSize)
	}
	if uint64(len(buf)) < h.Size {
		return EntryObject{}, fmt.Errorf("jobj: ENTRY object buffer too small: got %d, want %d", len(buf), h.Size)
	}
	e := EntryObject{
		Header:    h,
		Seqnum:    binary.LittleEndian.Uint64(buf[16:24]),
		Realtime:  binary.LittleEndian.Uint64(buf[24:32]),
		Monotonic: binary.LittleEndian.Uint64(buf[32:40]),
		XorHash:   binary.LittleEndian.Uint64(buf[56:64]),
	}
	copy(e.BootID[:], buf[40:56])
	n := NItems(h.Size)
	e.Items = make([]EntryItem, n)
	for i := uint64(0); i < n; i++ {
		off := EntryFixedSize + i*EntryItemSize
		e.Items[i] = EntryItem{
			ObjectOffset: binary.LittleEndian.Uint64(buf[off : off+8]),
			Hash:         binary.LittleEndian.Uint64(buf[off+8 : off+16]),
		}
	}
	return e, nil
}

// PutEntryObject encodes e into buf, which must be at least e.Header.Size
// bytes.
func PutEntryObject(buf []byte, e EntryObject) {
	e.Header.Type = ObjectEntry
	e.Header.Put(buf)
	binary.LittleEndian.PutUint64(buf[16:24], e.Seqnum)
	binary.LittleEndian.PutUint64(buf[24:32], e.Realtime)
	binary.LittleEndian.PutUint64(buf[32:40], e.Monotonic)
	copy(buf[40:56], e.BootID[:])
	binary.LittleEndian.PutUint64(buf[56:64], e.XorHash)
	for i, item := range e.Items {
		off := EntryFixedSize + uint64(i)*EntryItemSize
		binary.LittleEndian.PutUint64(buf[off:off+8], item.ObjectOffset)
		binary.LittleEndian.PutUint64(buf[off+8:off+16], item.Hash)
	}
}
