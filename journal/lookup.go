package journal

import (
	"bytes"
	"fmt"

	"github.com/rpcpool/logjournal/jobj"
)

// peekObjectHeader borrows just the fixed object header at offset and
// returns it decoded, releasing the view before returning. Use this to
// discover an object's size and type before deciding how to read it.
func (f *File) peekObjectHeader(offset uint64) (jobj.ObjectHeader, error) {
	v, err := f.view(int64(offset), jobj.ObjectHeaderSize)
	if err != nil {
		return jobj.ObjectHeader{}, err
	}
	defer v.Release()
	return jobj.ReadObjectHeader(v.Bytes())
}

// GetData borrows and decodes the DATA object at offset. The returned
// View must be released by the caller; Payload aliases the view and is
// invalid afterward unless copied out.
func (f *File) GetData(offset uint64) (jobj.DataObject, View, error) {
	hdr, err := f.peekObjectHeader(offset)
	if err != nil {
		return jobj.DataObject{}, View{}, err
	}
	v, err := f.view(int64(offset), int64(hdr.Size))
	if err != nil {
		return jobj.DataObject{}, View{}, err
	}
	d, err := jobj.ReadDataObject(v.Bytes())
	if err != nil {
		v.Release()
		return jobj.DataObject{}, View{}, err
	}
	return d, v, nil
}

// GetField borrows and decodes the FIELD object at offset.
func (f *File) GetField(offset uint64) (jobj.FieldObject, View, error) {
	hdr, err := f.peekObjectHeader(offset)
	if err != nil {
		return jobj.FieldObject{}, View{}, err
	}
	v, err := f.view(int64(offset), int64(hdr.Size))
	if err != nil {
		return jobj.FieldObject{}, View{}, err
	}
	fo, err := jobj.ReadFieldObject(v.Bytes())
	if err != nil {
		v.Release()
		return jobj.FieldObject{}, View{}, err
	}
	return fo, v, nil
}

// GetEntry borrows and decodes the ENTRY object at offset.
func (f *File) GetEntry(offset uint64) (jobj.EntryObject, View, error) {
	hdr, err := f.peekObjectHeader(offset)
	if err != nil {
		return jobj.EntryObject{}, View{}, err
	}
	v, err := f.view(int64(offset), int64(hdr.Size))
	if err != nil {
		return jobj.EntryObject{}, View{}, err
	}
	e, err := jobj.ReadEntryObject(v.Bytes())
	if err != nil {
		v.Release()
		return jobj.EntryObject{}, View{}, err
	}
	return e, v, nil
}

// ReadArray implements offsetarray.ArrayReader, decoding the ENTRY_ARRAY
// object at offset. Items are copied into a fresh slice, so no view is
// returned or needs releasing.
func (f *File) ReadArray(offset uint64) (jobj.EntryArrayObject, error) {
	hdr, err := f.peekObjectHeader(offset)
	if err != nil {
		return jobj.EntryArrayObject{}, err
	}
	v, err := f.view(int64(offset), int64(hdr.Size))
	if err != nil {
		return jobj.EntryArrayObject{}, err
	}
	defer v.Release()
	return jobj.ReadEntryArrayObject(v.Bytes(), f.hdr.Compact())
}

// findInHashChain walks the hash-bucket chain of objType starting at
// headOffset, calling match on each candidate's (hash, offset). It returns
// the offset of the first match.
func (f *File) findInHashChain(headOffset uint64, match func(candidateHash, candidateOffset uint64) (bool, uint64, error)) (uint64, bool, error) {
	offset := headOffset
	for offset != 0 {
		hdr, err := f.peekObjectHeader(offset)
		if err != nil {
			return 0, false, err
		}
		var candHash, next uint64
		var ok bool
		var err2 error
		switch hdr.Type {
		case jobj.ObjectData:
			ok, candHash, next, err2 = f.peekDataHashLink(offset, hdr.Size)
		case jobj.ObjectField:
			ok, candHash, next, err2 = f.peekFieldHashLink(offset, hdr.Size)
		default:
			return 0, false, fmt.Errorf("%w: unexpected object type %s in hash chain", ErrCorrupt, hdr.Type)
		}
		if err2 != nil {
			return 0, false, err2
		}
		if !ok {
			return 0, false, nil
		}
		found, _, err3 := match(candHash, offset)
		if err3 != nil {
			return 0, false, err3
		}
		if found {
			return offset, true, nil
		}
		offset = next
	}
	return 0, false, nil
}

func (f *File) peekDataHashLink(offset, size uint64) (ok bool, hash, next uint64, err error) {
	v, err := f.view(int64(offset), int64(size))
	if err != nil {
		return false, 0, 0, err
	}
	defer v.Release()
	d, err := jobj.ReadDataObject(v.Bytes())
	if err != nil {
		return false, 0, 0, err
	}
	return true, d.Hash, d.NextHashOffset, nil
}

func (f *File) peekFieldHashLink(offset, size uint64) (ok bool, hash, next uint64, err error) {
	v, err := f.view(int64(offset), int64(size))
	if err != nil {
		return false, 0, 0, err
	}
	defer v.Release()
	fo, err := jobj.ReadFieldObject(v.Bytes())
	if err != nil {
		return false, 0, 0, err
	}
	return true, fo.Hash, fo.NextHashOffset, nil
}

func (f *File) bucketHead(tableOffset, tableSize, numBuckets, idx uint64) (jobj.Bucket, error) {
	off := tableOffset + jobj.ObjectHeaderSize + idx*jobj.BucketSize
	v, err := f.view(int64(off), jobj.BucketSize)
	if err != nil {
		return jobj.Bucket{}, err
	}
	defer v.Release()
	return jobj.ReadBucket(v.Bytes()), nil
}

// LookupData returns the offset of the DATA object whose payload equals
// payload exactly, if one exists. A compressed payload is decompressed
// before the comparison.
func (f *File) LookupData(payload []byte) (uint64, bool, error) {
	numBuckets := jobj.NBuckets(f.hdr.DataHashTableSize)
	if numBuckets == 0 {
		return 0, false, nil
	}
	hash := jobj.Hash(&f.hdr, payload)
	idx := hash % numBuckets
	b, err := f.bucketHead(f.hdr.DataHashTableOffset, f.hdr.DataHashTableSize, numBuckets, idx)
	if err != nil {
		return 0, false, err
	}
	return f.findInHashChain(b.Head, func(candHash, candOffset uint64) (bool, uint64, error) {
		if candHash != hash {
			return false, 0, nil
		}
		hdr, err := f.peekObjectHeader(candOffset)
		if err != nil {
			return false, 0, err
		}
		v, err := f.view(int64(candOffset), int64(hdr.Size))
		if err != nil {
			return false, 0, err
		}
		defer v.Release()
		d, err := jobj.ReadDataObject(v.Bytes())
		if err != nil {
			return false, 0, err
		}
		stored, err := jobj.Decompress(d.Header.Flags, d.Payload)
		if err != nil {
			return false, 0, err
		}
		return bytes.Equal(stored, payload), 0, nil
	})
}

// LookupField returns the offset of the FIELD object with the given name,
// if one exists.
func (f *File) LookupField(name []byte) (uint64, bool, error) {
	numBuckets := jobj.NBuckets(f.hdr.FieldHashTableSize)
	if numBuckets == 0 {
		return 0, false, nil
	}
	hash := jobj.Hash(&f.hdr, name)
	idx := hash % numBuckets
	b, err := f.bucketHead(f.hdr.FieldHashTableOffset, f.hdr.FieldHashTableSize, numBuckets, idx)
	if err != nil {
		return 0, false, err
	}
	return f.findInHashChain(b.Head, func(candHash, candOffset uint64) (bool, uint64, error) {
		if candHash != hash {
			return false, 0, nil
		}
		hdr, err := f.peekObjectHeader(candOffset)
		if err != nil {
			return false, 0, err
		}
		v, err := f.view(int64(candOffset), int64(hdr.Size))
		if err != nil {
			return false, 0, err
		}
		defer v.Release()
		fo, err := jobj.ReadFieldObject(v.Bytes())
		if err != nil {
			return false, 0, err
		}
		return bytes.Equal(fo.Name, name), 0, nil
	})
}
