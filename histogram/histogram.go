// Package histogram builds sparse per-bucket running counts over a
// time-ordered sequence, and answers range-cardinality queries against a
// position bitmap without rescanning the sequence.
package histogram

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// Bucket records that the last sample falling in [StartTime, StartTime+d)
// is the one at index Count in the sequence the histogram was built from.
type Bucket struct {
	StartTime uint64
	Count     uint64
}

// Histogram is a sorted, sparse list of Buckets: one entry per bucket that
// actually received a sample, not one per bucket in the covered range.
type Histogram struct {
	Duration uint64
	Buckets  []Bucket
}

// Build partitions a time-sorted sequence of microsecond timestamps into
// buckets of Duration seconds, recording the last 0-based index observed
// in each non-empty bucket.
func Build(duration uint64, timestampsUsec []uint64) *Histogram {
	h := &Histogram{Duration: duration}
	if duration == 0 || len(timestampsUsec) == 0 {
		return h
	}
	curBucket := bucketStart(timestampsUsec[0], duration)
	for i := 1; i < len(timestampsUsec); i++ {
		b := bucketStart(timestampsUsec[i], duration)
		if b != curBucket {
			h.Buckets = append(h.Buckets, Bucket{StartTime: curBucket, Count: uint64(i - 1)})
			curBucket = b
		}
	}
	h.Buckets = append(h.Buckets, Bucket{StartTime: curBucket, Count: uint64(len(timestampsUsec) - 1)})
	return h
}

func bucketStart(tsUsec, duration uint64) uint64 {
	sec := tsUsec / 1_000_000
	return (sec / duration) * duration
}

// RangeCount returns how many set bits of bitmap fall within the index
// range covered by [start, end) seconds, both of which must already be
// aligned to Duration. It returns ok=false for unaligned or inverted
// ranges, matching the spec's "None" result.
func (h *Histogram) RangeCount(bitmap *roaring.Bitmap, start, end uint64) (count uint64, ok bool) {
	if h.Duration == 0 || start%h.Duration != 0 || end%h.Duration != 0 || start >= end {
		return 0, false
	}
	if len(h.Buckets) == 0 {
		return 0, true
	}

	firstIdx := sort.Search(len(h.Buckets), func(i int) bool {
		return h.Buckets[i].StartTime >= start
	})
	lastIdx := sort.Search(len(h.Buckets), func(i int) bool {
		return h.Buckets[i].StartTime >= end
	}) - 1

	if firstIdx >= len(h.Buckets) || lastIdx < firstIdx {
		return 0, true
	}

	var lower uint64
	if firstIdx > 0 {
		lower = h.Buckets[firstIdx-1].Count + 1
	}
	upper := h.Buckets[lastIdx].Count

	if bitmap == nil {
		return upper - lower + 1, true
	}
	return rangeCardinality(bitmap, lower, upper+1), true
}

// rangeCardinality counts set bits in [lo, hi) using Rank, which the
// roaring library defines as the count of set values <= x.
func rangeCardinality(bitmap *roaring.Bitmap, lo, hi uint64) uint64 {
	if hi <= lo {
		return 0
	}
	upper := bitmap.Rank(uint32(hi - 1))
	var lowerRank uint64
	if lo > 0 {
		lowerRank = bitmap.Rank(uint32(lo - 1))
	}
	return upper - lowerRank
}
