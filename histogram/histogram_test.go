package histogram

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
)

func TestBuildSingleBucket(t *testing.T) {
	ts := []uint64{1_000_000, 2_000_000, 3_000_000}
	h := Build(10, ts)
	if len(h.Buckets) != 1 {
		t.Fatalf("buckets = %d, want 1: %+v", len(h.Buckets), h.Buckets)
	}
	if h.Buckets[0].Count != 2 {
		t.Fatalf("count = %d, want 2", h.Buckets[0].Count)
	}
}

func TestBuildMultipleBuckets(t *testing.T) {
	ts := []uint64{
		0,
		5_000_000,
		12_000_000,
		13_000_000,
		25_000_000,
	}
	h := Build(10, ts)
	if len(h.Buckets) != 3 {
		t.Fatalf("buckets = %d, want 3: %+v", len(h.Buckets), h.Buckets)
	}
	if h.Buckets[0].StartTime != 0 || h.Buckets[0].Count != 1 {
		t.Fatalf("bucket0 = %+v", h.Buckets[0])
	}
	if h.Buckets[1].StartTime != 10 || h.Buckets[1].Count != 3 {
		t.Fatalf("bucket1 = %+v", h.Buckets[1])
	}
	if h.Buckets[2].StartTime != 20 || h.Buckets[2].Count != 4 {
		t.Fatalf("bucket2 = %+v", h.Buckets[2])
	}
}

func TestRangeCountRejectsUnaligned(t *testing.T) {
	h := Build(10, []uint64{0, 10_000_000})
	if _, ok := h.RangeCount(nil, 3, 10); ok {
		t.Fatalf("expected unaligned start to be rejected")
	}
	if _, ok := h.RangeCount(nil, 0, 10); !ok {
		t.Fatalf("expected aligned range to be accepted")
	}
	if _, ok := h.RangeCount(nil, 10, 0); ok {
		t.Fatalf("expected inverted range to be rejected")
	}
}

func TestRangeCountMatchesBitmap(t *testing.T) {
	ts := []uint64{0, 5_000_000, 12_000_000, 13_000_000, 25_000_000}
	h := Build(10, ts)

	bm := roaring.NewBitmap()
	bm.AddMany([]uint32{0, 1, 2, 3, 4})

	count, ok := h.RangeCount(bm, 0, 20)
	if !ok {
		t.Fatalf("expected ok")
	}
	if count != 4 {
		t.Fatalf("count = %d, want 4 (positions 0-3)", count)
	}

	count, ok = h.RangeCount(bm, 20, 30)
	if !ok || count != 1 {
		t.Fatalf("count = %d ok=%v, want 1", count, ok)
	}
}

func TestRangeCountEmptyHistogram(t *testing.T) {
	h := Build(10, nil)
	count, ok := h.RangeCount(nil, 0, 10)
	if !ok || count != 0 {
		t.Fatalf("count=%d ok=%v, want 0/true", count, ok)
	}
}
