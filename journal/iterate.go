package journal

import (
	"github.com/rpcpool/logjournal/offsetarray"
)

// EntryList returns the offsetarray.List of every entry offset in the
// journal-wide chain, in append (ascending seqnum) order.
func (f *File) EntryList() *offsetarray.List {
	return offsetarray.NewList(f, f.hdr.EntryArrayOffset)
}

// DataEntryList returns the InlinedList of entry offsets that reference the
// DATA object at dataOffset, in the order they were appended. The indexer
// uses this to collect the entries that carry one field=value pair.
func (f *File) DataEntryList(dataOffset uint64) (*offsetarray.InlinedList, error) {
	d, v, err := f.GetData(dataOffset)
	if err != nil {
		return nil, err
	}
	hasInline := d.NEntries > 0
	inline := d.EntryOffset
	overflow := d.EntryArrayOffset
	v.Release()
	return offsetarray.NewInlinedList(f, inline, hasInline, overflow), nil
}

// EntryRealtime returns the realtime timestamp of the entry at offset,
// without the caller having to decode the full object.
func (f *File) EntryRealtime(offset uint64) (uint64, error) {
	e, v, err := f.GetEntry(offset)
	if err != nil {
		return 0, err
	}
	v.Release()
	return e.Realtime, nil
}

// EntrySeqnum returns the sequence number of the entry at offset.
func (f *File) EntrySeqnum(offset uint64) (uint64, error) {
	e, v, err := f.GetEntry(offset)
	if err != nil {
		return 0, err
	}
	v.Release()
	return e.Seqnum, nil
}
