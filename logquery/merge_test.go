package logquery

import (
	"path/filepath"
	"testing"

	"github.com/rpcpool/logjournal/indexer"
	"github.com/rpcpool/logjournal/journal"
)

func openNamedTemp(t *testing.T, name string) *journal.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := journal.Open(path, journal.OpenOptions{Writable: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func buildHandle(t *testing.T, f *journal.File) FileHandle {
	t.Helper()
	f.Sync()
	idx, err := indexer.Build(f, indexer.Options{BucketDuration: 60})
	if err != nil {
		t.Fatalf("indexer.Build: %v", err)
	}
	return FileHandle{File: f, Index: idx}
}

func TestMergeAcrossTwoFiles(t *testing.T) {
	f1 := openNamedTemp(t, "a.journal")
	appendEntry(t, f1, 1000, journal.FieldValue{Field: []byte("MESSAGE"), Value: []byte("a1")})
	appendEntry(t, f1, 3000, journal.FieldValue{Field: []byte("MESSAGE"), Value: []byte("a2")})
	h1 := buildHandle(t, f1)

	f2 := openNamedTemp(t, "b.journal")
	appendEntry(t, f2, 2000, journal.FieldValue{Field: []byte("MESSAGE"), Value: []byte("b1")})
	appendEntry(t, f2, 4000, journal.FieldValue{Field: []byte("MESSAGE"), Value: []byte("b2")})
	h2 := buildHandle(t, f2)

	results, _, err := Merge([]FileHandle{h1, h2}, Query{
		Anchor:    Anchor{Kind: AnchorHead},
		Direction: Forward,
	}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}
	want := []uint64{1000, 2000, 3000, 4000}
	for i, r := range results {
		if r.Timestamp != want[i] {
			t.Fatalf("results[%d].Timestamp = %d, want %d (full: %+v)", i, r.Timestamp, want[i], results)
		}
	}
}

func TestMergePrunesFilesOutsideAnchorRange(t *testing.T) {
	f1 := openNamedTemp(t, "old.journal")
	appendEntry(t, f1, 1000, journal.FieldValue{Field: []byte("MESSAGE"), Value: []byte("old")})
	h1 := buildHandle(t, f1)

	f2 := openNamedTemp(t, "new.journal")
	appendEntry(t, f2, 100000, journal.FieldValue{Field: []byte("MESSAGE"), Value: []byte("new")})
	h2 := buildHandle(t, f2)

	results, _, err := Merge([]FileHandle{h1, h2}, Query{
		Anchor:    Anchor{Kind: AnchorTimestamp, Timestamp: 100000},
		Direction: Forward,
	}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(results) != 1 || results[0].Timestamp != 100000 {
		t.Fatalf("results = %+v", results)
	}
}

func TestMergeLimitAndResumeState(t *testing.T) {
	f1 := openNamedTemp(t, "a.journal")
	appendEntry(t, f1, 1000, journal.FieldValue{Field: []byte("MESSAGE"), Value: []byte("a1")})
	appendEntry(t, f1, 3000, journal.FieldValue{Field: []byte("MESSAGE"), Value: []byte("a2")})
	h1 := buildHandle(t, f1)

	f2 := openNamedTemp(t, "b.journal")
	appendEntry(t, f2, 2000, journal.FieldValue{Field: []byte("MESSAGE"), Value: []byte("b1")})
	appendEntry(t, f2, 4000, journal.FieldValue{Field: []byte("MESSAGE"), Value: []byte("b2")})
	h2 := buildHandle(t, f2)

	// h2's first entry (2000) falls between h1's two entries, so with
	// limit 2 the first page takes one entry from each file and the
	// second page continues both files from their resume positions.
	limit := 2
	page1, resume, err := Merge([]FileHandle{h1, h2}, Query{
		Anchor:    Anchor{Kind: AnchorHead},
		Direction: Forward,
		Limit:     &limit,
	}, nil)
	if err != nil {
		t.Fatalf("Merge page1: %v", err)
	}
	if len(page1) != 2 || page1[0].Timestamp != 1000 || page1[1].Timestamp != 2000 {
		t.Fatalf("page1 = %+v", page1)
	}
	if _, ok := resume[h1.Index.FileID]; !ok {
		t.Fatalf("expected resume state for h1, got %+v", resume)
	}

	page2, _, err := Merge([]FileHandle{h1, h2}, Query{
		Anchor:    Anchor{Kind: AnchorHead},
		Direction: Forward,
		Limit:     &limit,
	}, resume)
	if err != nil {
		t.Fatalf("Merge page2: %v", err)
	}
	if len(page2) != 2 || page2[0].Timestamp != 3000 || page2[1].Timestamp != 4000 {
		t.Fatalf("page2 = %+v", page2)
	}
}
