package jobj

import (
	"encoding/binary"
	"fmt"
)

// EntryArrayFixedSize is the size of an ENTRY_ARRAY object up to (not
// including) its offset items.
const EntryArrayFixedSize = ObjectHeaderSize + 8

// RegularItemSize and CompactItemSize are the encoded widths of one offset
// in an ENTRY_ARRAY's item array, selected by the file header's
// IncompatibleCompact flag.
const (
	RegularItemSize = 8
	CompactItemSize = 4
)

// EntryArrayObject is one link in the chain of offset arrays that lets a
// reader walk a journal's entries (or the subset referencing one DATA object)
// without following an ENTRY-to-ENTRY linked list one at a time.
type EntryArrayObject struct {
	Header ObjectHeader

	NextArrayOffset uint64

	// Items holds the decoded ENTRY object offsets, widened to uint64
	// regardless of on-disk item width.
	Items []uint64
}

// ItemSize returns the on-disk width of one item, given whether the owning
// file uses the compact (32-bit) offset format.
func ItemSize(compact bool) uint64 {
	if compact {
		return CompactItemSize
	}
	return RegularItemSize
}

// NArrayItems returns the number of offset items encoded in an ENTRY_ARRAY
// object of the given total size.
func NArrayItems(size uint64, compact bool) uint64 {
	if size < EntryArrayFixedSize {
		return 0
	}
	return (size - EntryArrayFixedSize) / ItemSize(compact)
}

// ReadEntryArrayObject decodes an ENTRY_ARRAY object from buf.
func ReadEntryArrayObject(buf []byte, compact bool) (EntryArrayObject, error) {
	h, err := ReadObjectHeader(buf)
	if err != nil {
		return EntryArrayObject{}, err
	}
	if h.Type != ObjectEntryArray {
		return EntryArrayObject{}, &ErrObjectTypeMismatch{Want: ObjectEntryArray, Got: h.Type}
	}
	if h.Size < EntryArrayFixedSize {
		return EntryArrayObject{}, fmt.Errorf("jobj: ENTRY_ARRAY object size %d smaller than fixed part %d", h.Size, EntryArrayFixedSize)
	}
	if uint64(len(buf)) < h.Size {
		return EntryArrayObject{}, fmt.Errorf("jobj: ENTRY_ARRAY object buffer too small: got %d, want %d", len(buf), h.Size)
	}
	a := EntryArrayObject{
		Header:          h,
		NextArrayOffset: binary.LittleEndian.Uint64(buf[16:24]),
	}
	n := NArrayItems(h.Size, compact)
	a.Items = make([]uint64, n)
	itemSize := ItemSize(compact)
	for i := uint64(0); i < n; i++ {
		off := EntryArrayFixedSize + i*itemSize
		if compact {
			a.Items[i] = uint64(binary.LittleEndian.Uint32(buf[off : off+4]))
		} else {
			a.Items[i] = binary.LittleEndian.Uint64(buf[off : off+8])
		}
	}
	return a, nil
}

// PutEntryArrayObject encodes a into buf, which must be at least
// a.Header.Size bytes. Items beyond the uint32 range are rejected when
// compact is true.
func PutEntryArrayObject(buf []byte, a EntryArrayObject, compact bool) error {
	a.Header.Type = ObjectEntryArray
	a.Header.Put(buf)
	binary.LittleEndian.PutUint64(buf[16:24], a.NextArrayOffset)
	itemSize := ItemSize(compact)
	for i, item := range a.Items {
		off := EntryArrayFixedSize + uint64(i)*itemSize
		if compact {
			if item > 0xFFFFFFFF {
				return fmt.Errorf("jobj: entry offset %d exceeds compact 32-bit range", item)
			}
			binary.LittleEndian.PutUint32(buf[off:off+4], uint32(item))
		} else {
			binary.LittleEndian.PutUint64(buf[off:off+8], item)
		}
	}
	return nil
}

// SizeForCapacity returns the on-disk object size needed to hold n items.
func SizeForCapacity(n uint64, compact bool) uint64 {
	return AlignedSize(EntryArrayFixedSize + n*ItemSize(compact))
}
