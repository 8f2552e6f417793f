package jobj

import (
	"encoding/binary"
	"fmt"
)

// Magic is the fixed 8-byte signature at the start of every journal file.
var Magic = [8]byte{'L', 'P', 'K', 'S', 'H', 'H', 'R', 'H'}

// HeaderSize is the fixed, versionless size of the file header.
const HeaderSize = 208

// CompatibleFlag bits may be ignored by a reader that doesn't understand
// them without losing the ability to read the file correctly.
type CompatibleFlag uint32

const (
	CompatibleSealed CompatibleFlag = 1 << 0
)

// IncompatibleFlag bits change the on-disk layout; a reader that doesn't
// understand a set bit must refuse to open the file.
type IncompatibleFlag uint32

const (
	IncompatibleCompact         IncompatibleFlag = 1 << 0
	IncompatibleKeyedHash       IncompatibleFlag = 1 << 1
	IncompatibleCompressedXZ    IncompatibleFlag = 1 << 2
	IncompatibleCompressedLZ4   IncompatibleFlag = 1 << 3
	IncompatibleCompressedZSTD  IncompatibleFlag = 1 << 4
	IncompatibleTailEntryBootID IncompatibleFlag = 1 << 5
)

// KnownIncompatibleFlags is the set of IncompatibleFlag bits this
// implementation understands. Opening a file with any other bit set must
// fail.
const KnownIncompatibleFlags = IncompatibleCompact |
	IncompatibleKeyedHash |
	IncompatibleCompressedXZ |
	IncompatibleCompressedLZ4 |
	IncompatibleCompressedZSTD |
	IncompatibleTailEntryBootID

// FileState records whether a file was closed cleanly.
type FileState uint8

const (
	StateOffline FileState = 0
	StateOnline  FileState = 1
	StateArchived FileState = 2
)

// Header is the fixed-size structure at offset 0 of every journal file.
type Header struct {
	Signature [8]byte

	CompatibleFlags   CompatibleFlag
	IncompatibleFlags IncompatibleFlag
	State             FileState

	FileID           [16]byte
	MachineID        [16]byte
	TailEntryBootID  [16]byte
	SeqnumID         [16]byte

	HeaderSize           uint64
	ArenaSize            uint64
	DataHashTableOffset  uint64
	DataHashTableSize    uint64
	FieldHashTableOffset uint64
	FieldHashTableSize   uint64
	TailObjectOffset     uint64
	NObjects             uint64
	NEntries             uint64
	TailEntrySeqnum      uint64
	HeadEntrySeqnum      uint64
	EntryArrayOffset     uint64
	HeadEntryRealtime    uint64
	TailEntryRealtime    uint64
	TailEntryMonotonic   uint64
}

// Compact reports whether IncompatibleCompact is set. The flag changes only
// ENTRY_ARRAY items, which are stored as 32-bit offsets; ENTRY items and
// DATA objects keep the regular layout, and DATA carries no tail fields.
func (h *Header) Compact() bool {
	return h.IncompatibleFlags&IncompatibleCompact != 0
}

// KeyedHash reports whether DATA object hashing uses SipHash-2-4 keyed by
// FileID instead of the unkeyed Jenkins lookup3 hash.
func (h *Header) KeyedHash() bool {
	return h.IncompatibleFlags&IncompatibleKeyedHash != 0
}

// Marshal encodes the header into a freshly-allocated HeaderSize-byte slice.
func (h *Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], Magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.CompatibleFlags))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.IncompatibleFlags))
	buf[16] = byte(h.State)
	// buf[17:24] reserved/padding.
	copy(buf[24:40], h.FileID[:])
	copy(buf[40:56], h.MachineID[:])
	copy(buf[56:72], h.TailEntryBootID[:])
	copy(buf[72:88], h.SeqnumID[:])
	binary.LittleEndian.PutUint64(buf[88:96], h.HeaderSize)
	binary.LittleEndian.PutUint64(buf[96:104], h.ArenaSize)
	binary.LittleEndian.PutUint64(buf[104:112], h.DataHashTableOffset)
	binary.LittleEndian.PutUint64(buf[112:120], h.DataHashTableSize)
	binary.LittleEndian.PutUint64(buf[120:128], h.FieldHashTableOffset)
	binary.LittleEndian.PutUint64(buf[128:136], h.FieldHashTableSize)
	binary.LittleEndian.PutUint64(buf[136:144], h.TailObjectOffset)
	binary.LittleEndian.PutUint64(buf[144:152], h.NObjects)
	binary.LittleEndian.PutUint64(buf[152:160], h.NEntries)
	binary.LittleEndian.PutUint64(buf[160:168], h.TailEntrySeqnum)
	binary.LittleEndian.PutUint64(buf[168:176], h.HeadEntrySeqnum)
	binary.LittleEndian.PutUint64(buf[176:184], h.EntryArrayOffset)
	binary.LittleEndian.PutUint64(buf[184:192], h.HeadEntryRealtime)
	binary.LittleEndian.PutUint64(buf[192:200], h.TailEntryRealtime)
	binary.LittleEndian.PutUint64(buf[200:208], h.TailEntryMonotonic)
	return buf
}

// Unmarshal decodes a HeaderSize-byte slice into h, validating the magic
// signature and rejecting unknown incompatible flags.
func (h *Header) Unmarshal(buf []byte) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("jobj: header buffer too small: got %d, want %d", len(buf), HeaderSize)
	}
	var sig [8]byte
	copy(sig[:], buf[0:8])
	if sig != Magic {
		return fmt.Errorf("jobj: bad file signature")
	}
	h.Signature = sig
	h.CompatibleFlags = CompatibleFlag(binary.LittleEndian.Uint32(buf[8:12]))
	h.IncompatibleFlags = IncompatibleFlag(binary.LittleEndian.Uint32(buf[12:16]))
	if h.IncompatibleFlags&^KnownIncompatibleFlags != 0 {
		return fmt.Errorf("jobj: unknown incompatible flags %#x", h.IncompatibleFlags&^KnownIncompatibleFlags)
	}
	h.State = FileState(buf[16])
	copy(h.FileID[:], buf[24:40])
	copy(h.MachineID[:], buf[40:56])
	copy(h.TailEntryBootID[:], buf[56:72])
	copy(h.SeqnumID[:], buf[72:88])
	h.HeaderSize = binary.LittleEndian.Uint64(buf[88:96])
	h.ArenaSize = binary.LittleEndian.Uint64(buf[96:104])
	h.DataHashTableOffset = binary.LittleEndian.Uint64(buf[104:112])
	h.DataHashTableSize = binary.LittleEndian.Uint64(buf[112:120])
	h.FieldHashTableOffset = binary.LittleEndian.Uint64(buf[120:128])
	h.FieldHashTableSize = binary.LittleEndian.Uint64(buf[128:136])
	h.TailObjectOffset = binary.LittleEndian.Uint64(buf[136:144])
	h.NObjects = binary.LittleEndian.Uint64(buf[144:152])
	h.NEntries = binary.LittleEndian.Uint64(buf[152:160])
	h.TailEntrySeqnum = binary.LittleEndian.Uint64(buf[160:168])
	h.HeadEntrySeqnum = binary.LittleEndian.Uint64(buf[168:176])
	h.EntryArrayOffset = binary.LittleEndian.Uint64(buf[176:184])
	h.HeadEntryRealtime = binary.LittleEndian.Uint64(buf[184:192])
	h.TailEntryRealtime = binary.LittleEndian.Uint64(buf[192:200])
	h.TailEntryMonotonic = binary.LittleEndian.Uint64(buf[200:208])
	return nil
}
