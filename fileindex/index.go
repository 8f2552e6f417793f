// Package fileindex holds the snapshot index built for one journal file:
// a time-ordered permutation of its entry offsets, a coarse histogram over
// that ordering, and per-(field,value) position bitmaps used to evaluate
// filter expressions without rescanning the file.
package fileindex

import (
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/rpcpool/logjournal/histogram"
)

// FreshnessWindow is how long an index built while its file was still
// online (being actively appended to) remains usable before a caller must
// rebuild it, per the spec's "typical coalescing window for writer
// activity".
const FreshnessWindow = time.Second

// FieldValuePair identifies one posting list: the set of positions at
// which this field carried this exact value.
type FieldValuePair struct {
	Field string
	Value string
}

// Index is a snapshot view of one journal file at a captured
// tail_object_offset.
type Index struct {
	FileID           [16]byte
	TailObjectOffset uint64
	IndexedAt        time.Time
	WasOnline        bool

	// StartTime and EndTime are the effective timestamps (microseconds)
	// of the first and last entries in EntryOffsets order. Both are zero
	// for an empty file.
	StartTime uint64
	EndTime   uint64

	Histogram *histogram.Histogram

	// EntryOffsets holds the file's ENTRY offsets in time order; its
	// index is the "position" used throughout bitmaps and pagination.
	EntryOffsets []uint64

	// position maps an entry offset back to its index in EntryOffsets.
	position map[uint64]int

	FileFields    map[string]struct{}
	IndexedFields map[string]struct{}
	Bitmaps       map[FieldValuePair]*roaring.Bitmap
}

// New returns an empty Index ready to be populated by an indexer.
func New(fileID [16]byte, tailObjectOffset uint64, wasOnline bool, indexedAt time.Time) *Index {
	return &Index{
		FileID:           fileID,
		TailObjectOffset: tailObjectOffset,
		IndexedAt:        indexedAt,
		WasOnline:        wasOnline,
		position:         make(map[uint64]int),
		FileFields:       make(map[string]struct{}),
		IndexedFields:    make(map[string]struct{}),
		Bitmaps:          make(map[FieldValuePair]*roaring.Bitmap),
	}
}

// SetEntryOffsets installs the time-ordered offsets and rebuilds the
// offset→position lookup.
func (idx *Index) SetEntryOffsets(offsets []uint64) {
	idx.EntryOffsets = offsets
	idx.position = make(map[uint64]int, len(offsets))
	for i, off := range offsets {
		idx.position[off] = i
	}
}

// Position returns the position of an entry offset in EntryOffsets.
func (idx *Index) Position(offset uint64) (int, bool) {
	p, ok := idx.position[offset]
	return p, ok
}

// Len returns the number of entries covered by this index.
func (idx *Index) Len() int {
	return len(idx.EntryOffsets)
}

// Fresh reports whether the index can still be used without a rebuild. A
// file that was archived at index time never goes stale; one that was
// online is only fresh for FreshnessWindow.
func (idx *Index) Fresh(now time.Time) bool {
	if !idx.WasOnline {
		return true
	}
	return now.Sub(idx.IndexedAt) <= FreshnessWindow
}

// Cache is the optional external hook for persisting indexes across
// process restarts, keyed by file ID; the time the index was built travels
// in the stored Index's IndexedAt.
// Building an index from scratch is not cheap for a large archived file,
// so a caller may plug in a disk-backed implementation; none is provided
// here; that storage policy is explicitly out of scope for this package.
type Cache interface {
	Get(fileID [16]byte) (*Index, bool)
	Put(fileID [16]byte, idx *Index)
}
