package journal

import (
	"fmt"

	"github.com/rpcpool/logjournal/jobj"
)

// CompressionThreshold is the payload size above which AppendEntry
// compresses a DATA object's payload, matching systemd's own default of
// not bothering to compress tiny values.
const CompressionThreshold = 512

// FieldValue is one "FIELD=value" pair to append as part of an entry.
type FieldValue struct {
	Field []byte
	Value []byte
}

// EntryMeta carries the per-entry metadata not derived from its fields.
type EntryMeta struct {
	Realtime  uint64
	Monotonic uint64
	BootID    [16]byte
}

// AppendEntry appends one log entry consisting of the given field=value
// pairs, returning the new entry's sequence number and file offset.
func (f *File) AppendEntry(fields []FieldValue, meta EntryMeta, compression jobj.ObjectFlag) (seqnum uint64, offset uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.writable {
		return 0, 0, ErrReadOnly
	}
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("journal: entry must have at least one field")
	}

	items := make([]jobj.EntryItem, 0, len(fields))
	var xorHash uint64
	for _, fv := range fields {
		dataOffset, hash, err := f.resolveData(fv.Field, fv.Value, compression)
		if err != nil {
			return 0, 0, fmt.Errorf("journal: resolve %q: %w", fv.Field, err)
		}
		items = append(items, jobj.EntryItem{ObjectOffset: dataOffset, Hash: hash})
		xorHash ^= hash
	}

	seqnum = f.hdr.TailEntrySeqnum + 1
	entrySize := jobj.EntryFixedSize + uint64(len(items))*jobj.EntryItemSize
	entryOffset, sl, err := f.appendRaw(entrySize)
	if err != nil {
		return 0, 0, err
	}
	e := jobj.EntryObject{
		Header:    jobj.ObjectHeader{Size: jobj.AlignedSize(entrySize)},
		Seqnum:    seqnum,
		Realtime:  meta.Realtime,
		Monotonic: meta.Monotonic,
		BootID:    meta.BootID,
		XorHash:   xorHash,
		Items:     items,
	}
	jobj.PutEntryObject(sl.Bytes(), e)
	sl.Release()

	if err := f.appendToChain(0, &f.hdr.EntryArrayOffset, entryOffset); err != nil {
		return 0, 0, fmt.Errorf("journal: link entry into journal array: %w", err)
	}

	for _, item := range items {
		if err := f.linkEntryIntoData(item.ObjectOffset, entryOffset); err != nil {
			return 0, 0, fmt.Errorf("journal: link entry into data object: %w", err)
		}
	}

	if f.hdr.HeadEntrySeqnum == 0 {
		f.hdr.HeadEntrySeqnum = seqnum
		f.hdr.HeadEntryRealtime = meta.Realtime
	}
	f.hdr.TailEntrySeqnum = seqnum
	f.hdr.TailEntryRealtime = meta.Realtime
	f.hdr.TailEntryMonotonic = meta.Monotonic
	if f.hdr.IncompatibleFlags&jobj.IncompatibleTailEntryBootID != 0 {
		f.hdr.TailEntryBootID = meta.BootID
	}
	f.hdr.NEntries++

	if err := f.flushHeader(); err != nil {
		return 0, 0, err
	}
	return seqnum, entryOffset, nil
}

// resolveData finds or creates the FIELD and DATA objects for one
// field=value pair, returning the DATA object's offset and hash.
func (f *File) resolveData(field, value []byte, compression jobj.ObjectFlag) (uint64, uint64, error) {
	payload := make([]byte, 0, len(field)+1+len(value))
	payload = append(payload, field...)
	payload = append(payload, '=')
	payload = append(payload, value...)

	if offset, found, err := f.LookupData(payload); err != nil {
		return 0, 0, err
	} else if found {
		hdr, err := f.peekObjectHeader(offset)
		if err != nil {
			return 0, 0, err
		}
		v, err := f.view(int64(offset), int64(hdr.Size))
		if err != nil {
			return 0, 0, err
		}
		d, err := jobj.ReadDataObject(v.Bytes())
		v.Release()
		if err != nil {
			return 0, 0, err
		}
		return offset, d.Hash, nil
	}

	fieldOffset, err := f.resolveField(field)
	if err != nil {
		return 0, 0, err
	}

	hash := jobj.Hash(&f.hdr, payload)
	stored := payload
	flags := jobj.ObjectFlag(0)
	if compression != 0 && len(payload) > CompressionThreshold {
		compressed, err := jobj.Compress(compression, payload)
		if err != nil {
			return 0, 0, fmt.Errorf("compress payload: %w", err)
		}
		stored = compressed
		flags = compression
	}

	size := jobj.DataFixedSize + uint64(len(stored))
	offset, sl, err := f.appendRaw(size)
	if err != nil {
		return 0, 0, err
	}

	fo, fv, err := f.GetField(fieldOffset)
	if err != nil {
		sl.Release()
		return 0, 0, err
	}
	nextField := fo.HeadDataOffset
	fv.Release()

	d := jobj.DataObject{
		Header:          jobj.ObjectHeader{Flags: flags, Size: size},
		Hash:            hash,
		NextFieldOffset: nextField,
		Payload:         stored,
	}
	jobj.PutDataObject(sl.Bytes(), d)
	sl.Release()

	if err := f.setFieldHeadData(fieldOffset, offset); err != nil {
		return 0, 0, err
	}
	if err := f.insertIntoHashTable(jobj.ObjectDataHashTable, f.hdr.DataHashTableOffset, f.hdr.DataHashTableSize, hash, offset); err != nil {
		return 0, 0, err
	}
	return offset, hash, nil
}

func (f *File) resolveField(name []byte) (uint64, error) {
	if offset, found, err := f.LookupField(name); err != nil {
		return 0, err
	} else if found {
		return offset, nil
	}

	hash := jobj.Hash(&f.hdr, name)
	size := jobj.AlignedSize(jobj.FieldFixedSize + uint64(len(name)))
	offset, sl, err := f.appendRaw(size)
	if err != nil {
		return 0, err
	}
	fo := jobj.FieldObject{
		Header: jobj.ObjectHeader{Size: size},
		Hash:   hash,
		Name:   name,
	}
	jobj.PutFieldObject(sl.Bytes(), fo)
	sl.Release()

	if err := f.insertIntoHashTable(jobj.ObjectFieldHashTable, f.hdr.FieldHashTableOffset, f.hdr.FieldHashTableSize, hash, offset); err != nil {
		return 0, err
	}
	return offset, nil
}

func (f *File) setFieldHeadData(fieldOffset, dataOffset uint64) error {
	hdr, err := f.peekObjectHeader(fieldOffset)
	if err != nil {
		return err
	}
	v, err := f.view(int64(fieldOffset), int64(hdr.Size))
	if err != nil {
		return err
	}
	defer v.Release()
	putUint64At(v.Bytes(), 32, dataOffset)
	return nil
}

// insertIntoHashTable appends offset to the bucket chain for hash, updating
// the bucket's Tail in O(1) (and Head if the chain was empty) and patching
// the previous tail object's NextHashOffset.
func (f *File) insertIntoHashTable(objType jobj.ObjectType, tableOffset, tableSize, hash, offset uint64) error {
	numBuckets := jobj.NBuckets(tableSize)
	idx := hash % numBuckets
	bucketByteOffset := tableOffset + jobj.ObjectHeaderSize + idx*jobj.BucketSize

	b, err := f.bucketHead(tableOffset, tableSize, numBuckets, idx)
	if err != nil {
		return err
	}

	if b.Tail != 0 {
		if err := f.patchNextHashOffset(objType, b.Tail, offset); err != nil {
			return err
		}
	}
	if b.Head == 0 {
		b.Head = offset
	}
	b.Tail = offset

	v, err := f.view(int64(bucketByteOffset), jobj.BucketSize)
	if err != nil {
		return err
	}
	defer v.Release()
	jobj.WriteBucket(v.Bytes(), b)
	return nil
}

func (f *File) patchNextHashOffset(objType jobj.ObjectType, at, next uint64) error {
	hdr, err := f.peekObjectHeader(at)
	if err != nil {
		return err
	}
	v, err := f.view(int64(at), int64(hdr.Size))
	if err != nil {
		return err
	}
	defer v.Release()
	switch objType {
	case jobj.ObjectDataHashTable:
		putUint64At(v.Bytes(), 24, next) // DataObject.NextHashOffset
	case jobj.ObjectFieldHashTable:
		putUint64At(v.Bytes(), 24, next) // FieldObject.NextHashOffset
	default:
		return fmt.Errorf("journal: patchNextHashOffset: unexpected table type %v", objType)
	}
	return nil
}

// linkEntryIntoData appends entryOffset to a DATA object's own entry
// chain: the inline EntryOffset slot if this is its first reference,
// otherwise its ENTRY_ARRAY overflow chain, and bumps its NEntries.
func (f *File) linkEntryIntoData(dataOffset, entryOffset uint64) error {
	hdr, err := f.peekObjectHeader(dataOffset)
	if err != nil {
		return err
	}
	v, err := f.view(int64(dataOffset), int64(hdr.Size))
	if err != nil {
		return err
	}
	d, err := jobj.ReadDataObject(v.Bytes())
	if err != nil {
		v.Release()
		return err
	}
	if d.NEntries == 0 {
		putUint64At(v.Bytes(), 40, entryOffset) // DataObject.EntryOffset
		putUint64At(v.Bytes(), 56, 1)           // DataObject.NEntries
		v.Release()
		return nil
	}
	overflowHead := d.EntryArrayOffset
	v.Release()

	if err := f.appendToChain(dataOffset, &overflowHead, entryOffset); err != nil {
		return err
	}

	hdr2, err := f.peekObjectHeader(dataOffset)
	if err != nil {
		return err
	}
	v2, err := f.view(int64(dataOffset), int64(hdr2.Size))
	if err != nil {
		return err
	}
	defer v2.Release()
	putUint64At(v2.Bytes(), 48, overflowHead) // DataObject.EntryArrayOffset
	nEntries := d.NEntries + 1
	putUint64At(v2.Bytes(), 56, nEntries) // DataObject.NEntries
	return nil
}

// appendToChain appends value to the ENTRY_ARRAY chain identified by
// cacheKey (0 for the journal-wide chain, or a DATA object's offset),
// creating a new node (following the capped doubling growth schedule) when
// the current tail node is full, and patches headOffset/a previous node's
// NextArrayOffset as needed.
func (f *File) appendToChain(cacheKey uint64, headOffset *uint64, value uint64) error {
	tc, err := f.chainTail(cacheKey, *headOffset)
	if err != nil {
		return err
	}

	if tc != nil && tc.used < tc.cap {
		if err := f.writeArrayItem(tc.offset, tc.used, value); err != nil {
			return err
		}
		tc.used++
		return nil
	}

	newCap := uint64(4)
	if tc != nil {
		newCap = tc.cap * 2
		if newCap > MaxArrayCapacity {
			newCap = MaxArrayCapacity
		}
	}
	size := jobj.SizeForCapacity(newCap, f.hdr.Compact())
	newOffset, sl, err := f.appendRaw(size)
	if err != nil {
		return err
	}
	arr := jobj.EntryArrayObject{
		Header: jobj.ObjectHeader{Size: size},
		Items:  make([]uint64, newCap),
	}
	arr.Items[0] = value
	if err := jobj.PutEntryArrayObject(sl.Bytes(), arr, f.hdr.Compact()); err != nil {
		sl.Release()
		return err
	}
	sl.Release()

	if tc == nil {
		*headOffset = newOffset
	} else {
		if err := f.patchNextArrayOffset(tc.offset, newOffset); err != nil {
			return err
		}
	}
	f.tails[cacheKey] = &tailCache{offset: newOffset, used: 1, cap: newCap}
	return nil
}

// chainTail returns the cached tail node for cacheKey, discovering it by
// walking the chain from headOffset the first time it's needed.
func (f *File) chainTail(cacheKey, headOffset uint64) (*tailCache, error) {
	if tc, ok := f.tails[cacheKey]; ok {
		return tc, nil
	}
	if headOffset == 0 {
		return nil, nil
	}
	offset := headOffset
	var last jobj.EntryArrayObject
	for {
		arr, err := f.ReadArray(offset)
		if err != nil {
			return nil, err
		}
		last = arr
		if arr.NextArrayOffset == 0 {
			break
		}
		offset = arr.NextArrayOffset
	}
	used := uint64(0)
	for _, it := range last.Items {
		if it != 0 {
			used++
		}
	}
	tc := &tailCache{offset: offset, used: used, cap: uint64(len(last.Items))}
	f.tails[cacheKey] = tc
	return tc, nil
}

func (f *File) writeArrayItem(arrayOffset, index, value uint64) error {
	hdr, err := f.peekObjectHeader(arrayOffset)
	if err != nil {
		return err
	}
	v, err := f.view(int64(arrayOffset), int64(hdr.Size))
	if err != nil {
		return err
	}
	defer v.Release()
	itemSize := jobj.ItemSize(f.hdr.Compact())
	off := jobj.EntryArrayFixedSize + index*itemSize
	if f.hdr.Compact() {
		if value > 0xFFFFFFFF {
			return fmt.Errorf("journal: entry offset %d exceeds compact 32-bit range", value)
		}
		putUint32At(v.Bytes(), off, uint32(value))
	} else {
		putUint64At(v.Bytes(), off, value)
	}
	return nil
}

func (f *File) patchNextArrayOffset(at, next uint64) error {
	hdr, err := f.peekObjectHeader(at)
	if err != nil {
		return err
	}
	v, err := f.view(int64(at), int64(hdr.Size))
	if err != nil {
		return err
	}
	defer v.Release()
	putUint64At(v.Bytes(), 16, next) // EntryArrayObject.NextArrayOffset
	return nil
}
