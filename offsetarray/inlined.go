package offsetarray

import "fmt"

// InlinedList presents a single inlined value (the first entry offset
// stored directly in a DATA object) followed by the overflow List
// chained from that object's EntryArrayOffset, as one logical sequence.
// When a DATA object has only ever been referenced by one entry,
// the overflow List is empty and no ENTRY_ARRAY object need exist at all.
type InlinedList struct {
	inlined   uint64
	hasInline bool
	overflow  *List
}

// NewInlinedList builds an InlinedList. hasInline is false when the owning
// object has never been referenced by any entry (inlined == 0 is
// ambiguous with a valid offset of 0, which cannot occur since offset 0 is
// the file header).
func NewInlinedList(reader ArrayReader, inlined uint64, hasInline bool, overflowHead uint64) *InlinedList {
	return &InlinedList{
		inlined:   inlined,
		hasInline: hasInline,
		overflow:  NewList(reader, overflowHead),
	}
}

// Len returns the total number of items, inline slot included.
func (l *InlinedList) Len() (int, error) {
	n, err := l.overflow.Len()
	if err != nil {
		return 0, err
	}
	if l.hasInline {
		n++
	}
	return n, nil
}

// At returns the item at flattened index i, where index 0 is the inline
// value if present.
func (l *InlinedList) At(i int) (uint64, error) {
	if i < 0 {
		return 0, fmt.Errorf("offsetarray: negative index %d", i)
	}
	if l.hasInline {
		if i == 0 {
			return l.inlined, nil
		}
		return l.overflow.At(i - 1)
	}
	return l.overflow.At(i)
}

// InlinedCursor addresses one position within an InlinedList.
type InlinedCursor struct {
	list  *InlinedList
	index int
}

// Seek returns an InlinedCursor at flattened index i.
func (l *InlinedList) Seek(i int) InlinedCursor {
	return InlinedCursor{list: l, index: i}
}

// Index returns the cursor's flattened index.
func (c InlinedCursor) Index() int { return c.index }

// Value returns the item at the cursor's position.
func (c InlinedCursor) Value() (uint64, error) {
	return c.list.At(c.index)
}

// Next returns a cursor advanced by one position and whether it's valid.
func (c InlinedCursor) Next() (InlinedCursor, bool, error) {
	next := InlinedCursor{list: c.list, index: c.index + 1}
	if _, err := next.Value(); err != nil {
		return c, false, nil
	}
	return next, true, nil
}

// Prev returns a cursor moved back by one position and whether it's valid.
func (c InlinedCursor) Prev() (InlinedCursor, bool, error) {
	if c.index <= 0 {
		return c, false, nil
	}
	return InlinedCursor{list: c.list, index: c.index - 1}, true, nil
}

// DirectedPartitionPoint binary-searches an InlinedList the same way
// List.DirectedPartitionPoint does.
func (l *InlinedList) DirectedPartitionPoint(dir Direction, pred func(v uint64) bool) (InlinedCursor, bool, error) {
	n, err := l.Len()
	if err != nil {
		return InlinedCursor{}, false, err
	}
	if n == 0 {
		return InlinedCursor{}, false, nil
	}

	switch dir {
	case Forward:
		lo, hi := 0, n
		for lo < hi {
			mid := int(uint(lo+hi) >> 1)
			v, err := l.At(mid)
			if err != nil {
				return InlinedCursor{}, false, err
			}
			if pred(v) {
				hi = mid
			} else {
				lo = mid + 1
			}
		}
		if lo >= n {
			return InlinedCursor{}, false, nil
		}
		return l.Seek(lo), true, nil
	case Backward:
		lo, hi := -1, n-1
		for lo < hi {
			mid := int(uint(lo+hi+1) >> 1)
			v, err := l.At(mid)
			if err != nil {
				return InlinedCursor{}, false, err
			}
			if pred(v) {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		if lo < 0 {
			return InlinedCursor{}, false, nil
		}
		return l.Seek(lo), true, nil
	default:
		return InlinedCursor{}, false, fmt.Errorf("offsetarray: unknown direction %d", dir)
	}
}
