package offsetarray

import (
	"fmt"
	"testing"

	"github.com/rpcpool/logjournal/jobj"
)

// fakeReader implements ArrayReader over an in-memory map, chaining nodes
// by assigning each one a synthetic offset.
type fakeReader struct {
	nodes map[uint64]jobj.EntryArrayObject
}

func (f *fakeReader) ReadArray(offset uint64) (jobj.EntryArrayObject, error) {
	n, ok := f.nodes[offset]
	if !ok {
		return jobj.EntryArrayObject{}, fmt.Errorf("no node at %d", offset)
	}
	return n, nil
}

// buildChain stores chunks of items as successive ENTRY_ARRAY nodes at
// offsets 1000, 2000, 3000, ... and returns the reader and head offset.
func buildChain(chunks [][]uint64) (*fakeReader, uint64) {
	r := &fakeReader{nodes: make(map[uint64]jobj.EntryArrayObject)}
	var head uint64
	offsets := make([]uint64, len(chunks))
	for i := range chunks {
		offsets[i] = uint64(1000 * (i + 1))
	}
	if len(chunks) > 0 {
		head = offsets[0]
	}
	for i, chunk := range chunks {
		var next uint64
		if i+1 < len(offsets) {
			next = offsets[i+1]
		}
		r.nodes[offsets[i]] = jobj.EntryArrayObject{NextArrayOffset: next, Items: chunk}
	}
	return r, head
}

func TestListEmptyHead(t *testing.T) {
	r := &fakeReader{nodes: map[uint64]jobj.EntryArrayObject{}}
	l := NewList(r, 0)
	n, err := l.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 0 {
		t.Fatalf("Len = %d, want 0", n)
	}
}

func TestListSingleNode(t *testing.T) {
	r, head := buildChain([][]uint64{{10, 20, 30}})
	l := NewList(r, head)
	n, err := l.Len()
	if err != nil || n != 3 {
		t.Fatalf("Len = %d, err %v, want 3", n, err)
	}
	v, err := l.At(1)
	if err != nil || v != 20 {
		t.Fatalf("At(1) = %d, err %v, want 20", v, err)
	}
}

func TestListChainedNodes(t *testing.T) {
	r, head := buildChain([][]uint64{{10, 20}, {30, 40, 50}, {60}})
	l := NewList(r, head)
	n, err := l.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 6 {
		t.Fatalf("Len = %d, want 6", n)
	}
	want := []uint64{10, 20, 30, 40, 50, 60}
	for i, w := range want {
		v, err := l.At(i)
		if err != nil {
			t.Fatalf("At(%d): %v", i, err)
		}
		if v != w {
			t.Fatalf("At(%d) = %d, want %d", i, v, w)
		}
	}
	if _, err := l.At(6); err == nil {
		t.Fatalf("expected out-of-range error at index 6")
	}
}

func TestCursorNextPrev(t *testing.T) {
	r, head := buildChain([][]uint64{{10, 20}, {30, 40}})
	l := NewList(r, head)
	c := l.Seek(0)
	v, err := c.Value()
	if err != nil || v != 10 {
		t.Fatalf("Value = %d, err %v, want 10", v, err)
	}
	c, ok, err := c.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	v, _ = c.Value()
	if v != 20 {
		t.Fatalf("after Next, value = %d, want 20", v)
	}
	c, ok, err = c.Next()
	if err != nil || !ok {
		t.Fatalf("Next across node boundary: ok=%v err=%v", ok, err)
	}
	v, _ = c.Value()
	if v != 30 {
		t.Fatalf("after crossing boundary, value = %d, want 30", v)
	}
	c, ok, err = c.Prev()
	if err != nil || !ok {
		t.Fatalf("Prev: ok=%v err=%v", ok, err)
	}
	v, _ = c.Value()
	if v != 20 {
		t.Fatalf("after Prev, value = %d, want 20", v)
	}

	// Walk off the end.
	end := l.Seek(3)
	if _, ok, err := end.Next(); err != nil || ok {
		t.Fatalf("Next past end should be invalid: ok=%v err=%v", ok, err)
	}
	start := l.Seek(0)
	if _, ok, err := start.Prev(); err != nil || ok {
		t.Fatalf("Prev before start should be invalid: ok=%v err=%v", ok, err)
	}
}

func TestDirectedPartitionPointForward(t *testing.T) {
	r, head := buildChain([][]uint64{{10, 20, 30}, {40, 50}})
	l := NewList(r, head)

	c, ok, err := l.DirectedPartitionPoint(Forward, func(v uint64) bool { return v >= 35 })
	if err != nil || !ok {
		t.Fatalf("DirectedPartitionPoint: ok=%v err=%v", ok, err)
	}
	v, _ := c.Value()
	if v != 40 {
		t.Fatalf("first value >= 35 = %d, want 40", v)
	}

	_, ok, err = l.DirectedPartitionPoint(Forward, func(v uint64) bool { return v >= 1000 })
	if err != nil {
		t.Fatalf("DirectedPartitionPoint: %v", err)
	}
	if ok {
		t.Fatalf("expected no boundary when predicate never true")
	}
}

func TestDirectedPartitionPointBackward(t *testing.T) {
	r, head := buildChain([][]uint64{{10, 20, 30}, {40, 50}})
	l := NewList(r, head)

	c, ok, err := l.DirectedPartitionPoint(Backward, func(v uint64) bool { return v <= 35 })
	if err != nil || !ok {
		t.Fatalf("DirectedPartitionPoint: ok=%v err=%v", ok, err)
	}
	v, _ := c.Value()
	if v != 30 {
		t.Fatalf("last value <= 35 = %d, want 30", v)
	}

	_, ok, err = l.DirectedPartitionPoint(Backward, func(v uint64) bool { return v <= 0 })
	if err != nil {
		t.Fatalf("DirectedPartitionPoint: %v", err)
	}
	if ok {
		t.Fatalf("expected no boundary when predicate never true")
	}
}

func TestInlinedListWithInline(t *testing.T) {
	r, head := buildChain([][]uint64{{200, 300}})
	l := NewInlinedList(r, 100, true, head)
	n, err := l.Len()
	if err != nil || n != 3 {
		t.Fatalf("Len = %d, err %v, want 3", n, err)
	}
	v0, _ := l.At(0)
	v1, _ := l.At(1)
	v2, _ := l.At(2)
	if v0 != 100 || v1 != 200 || v2 != 300 {
		t.Fatalf("got %d,%d,%d, want 100,200,300", v0, v1, v2)
	}
}

func TestInlinedListWithoutInline(t *testing.T) {
	r, head := buildChain([][]uint64{{200, 300}})
	l := NewInlinedList(r, 0, false, head)
	n, err := l.Len()
	if err != nil || n != 2 {
		t.Fatalf("Len = %d, err %v, want 2", n, err)
	}
	v0, _ := l.At(0)
	if v0 != 200 {
		t.Fatalf("At(0) = %d, want 200", v0)
	}
}

func TestInlinedListOnlyInline(t *testing.T) {
	l := NewInlinedList(&fakeReader{nodes: map[uint64]jobj.EntryArrayObject{}}, 42, true, 0)
	n, err := l.Len()
	if err != nil || n != 1 {
		t.Fatalf("Len = %d, err %v, want 1", n, err)
	}
	v, err := l.At(0)
	if err != nil || v != 42 {
		t.Fatalf("At(0) = %d, err %v, want 42", v, err)
	}
}

func TestInlinedCursorNextPrev(t *testing.T) {
	r, head := buildChain([][]uint64{{200}})
	l := NewInlinedList(r, 100, true, head)
	c := l.Seek(0)
	v, _ := c.Value()
	if v != 100 {
		t.Fatalf("Value = %d, want 100", v)
	}
	c, ok, err := c.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	v, _ = c.Value()
	if v != 200 {
		t.Fatalf("Value = %d, want 200", v)
	}
	_, ok, err = c.Next()
	if err != nil || ok {
		t.Fatalf("Next past end should be invalid")
	}
}

func TestInlinedDirectedPartitionPoint(t *testing.T) {
	r, head := buildChain([][]uint64{{200, 300}})
	l := NewInlinedList(r, 100, true, head)
	c, ok, err := l.DirectedPartitionPoint(Forward, func(v uint64) bool { return v >= 150 })
	if err != nil || !ok {
		t.Fatalf("DirectedPartitionPoint: ok=%v err=%v", ok, err)
	}
	v, _ := c.Value()
	if v != 200 {
		t.Fatalf("got %d, want 200", v)
	}
}
