package filter

import (
	"testing"
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/rpcpool/logjournal/fileindex"
)

func testIndex() *fileindex.Index {
	idx := fileindex.New([16]byte{}, 100, false, time.Now())
	idx.Bitmaps[fileindex.FieldValuePair{Field: "PRIORITY", Value: "6"}] = roaring.BitmapOf(0, 2, 4)
	idx.Bitmaps[fileindex.FieldValuePair{Field: "PRIORITY", Value: "3"}] = roaring.BitmapOf(1, 3)
	idx.Bitmaps[fileindex.FieldValuePair{Field: "UNIT", Value: "sshd.service"}] = roaring.BitmapOf(2, 3)
	return idx
}

func TestMatchFieldValuePair(t *testing.T) {
	idx := testIndex()
	got := MatchFieldValuePair{Field: "PRIORITY", Value: "6"}.Eval(idx)
	if got.Cardinality() != 3 {
		t.Fatalf("cardinality = %d, want 3", got.Cardinality())
	}
}

func TestMatchFieldValuePairMissing(t *testing.T) {
	idx := testIndex()
	got := MatchFieldValuePair{Field: "PRIORITY", Value: "0"}.Eval(idx)
	if !got.IsEmpty() {
		t.Fatalf("expected empty bitmap")
	}
}

func TestMatchFieldName(t *testing.T) {
	idx := testIndex()
	got := MatchFieldName{Field: "PRIORITY"}.Eval(idx)
	if got.Cardinality() != 5 {
		t.Fatalf("cardinality = %d, want 5", got.Cardinality())
	}
}

func TestAnd(t *testing.T) {
	idx := testIndex()
	expr := And{
		MatchFieldValuePair{Field: "PRIORITY", Value: "6"},
		MatchFieldValuePair{Field: "UNIT", Value: "sshd.service"},
	}
	got := expr.Eval(idx)
	if got.Cardinality() != 1 || !got.Contains(2) {
		t.Fatalf("got = %v, want {2}", got.ToArray())
	}
}

func TestAndEmpty(t *testing.T) {
	if !(And{}).Eval(testIndex()).IsEmpty() {
		t.Fatalf("empty And should match nothing")
	}
}

func TestOr(t *testing.T) {
	idx := testIndex()
	expr := Or{
		MatchFieldValuePair{Field: "PRIORITY", Value: "3"},
		MatchFieldValuePair{Field: "UNIT", Value: "sshd.service"},
	}
	got := expr.Eval(idx)
	if got.Cardinality() != 3 {
		t.Fatalf("cardinality = %d, want 3 (positions 1,2,3)", got.Cardinality())
	}
}

func TestNone(t *testing.T) {
	if !(None{}).Eval(testIndex()).IsEmpty() {
		t.Fatalf("None should match nothing")
	}
}

func TestEvalDoesNotMutateStoredBitmap(t *testing.T) {
	idx := testIndex()
	before := idx.Bitmaps[fileindex.FieldValuePair{Field: "PRIORITY", Value: "6"}].Clone()
	_ = MatchFieldValuePair{Field: "PRIORITY", Value: "6"}.Eval(idx)
	_ = And{
		MatchFieldValuePair{Field: "PRIORITY", Value: "6"},
		MatchFieldValuePair{Field: "UNIT", Value: "sshd.service"},
	}.Eval(idx)
	after := idx.Bitmaps[fileindex.FieldValuePair{Field: "PRIORITY", Value: "6"}]
	beforeArr, afterArr := before.ToArray(), after.ToArray()
	if len(beforeArr) != len(afterArr) {
		t.Fatalf("stored bitmap mutated: before=%v after=%v", beforeArr, afterArr)
	}
	for i := range beforeArr {
		if beforeArr[i] != afterArr[i] {
			t.Fatalf("stored bitmap mutated: before=%v after=%v", beforeArr, afterArr)
		}
	}
}
