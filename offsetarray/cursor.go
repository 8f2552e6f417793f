package offsetarray

import "fmt"

// Cursor addresses one position within a List's flattened view.
type Cursor struct {
	list  *List
	index int // flattened index, -1 is before-the-start, list.Len() is after-the-end
}

// Seek returns a Cursor positioned at flattened index i, without validating
// that the index is in range (validation happens lazily on Value/Next/Prev
// via the underlying List.At).
func (l *List) Seek(i int) Cursor {
	return Cursor{list: l, index: i}
}

// Index returns the cursor's current flattened index.
func (c Cursor) Index() int {
	return c.index
}

// Value returns the item at the cursor's current position.
func (c Cursor) Value() (uint64, error) {
	return c.list.At(c.index)
}

// Next returns a cursor advanced by one position and whether that position
// is valid.
func (c Cursor) Next() (Cursor, bool, error) {
	next := Cursor{list: c.list, index: c.index + 1}
	_, err := next.Value()
	if err != nil {
		return c, false, nil
	}
	return next, true, nil
}

// Prev returns a cursor moved back by one position and whether that
// position is valid.
func (c Cursor) Prev() (Cursor, bool, error) {
	if c.index <= 0 {
		return c, false, nil
	}
	prev := Cursor{list: c.list, index: c.index - 1}
	return prev, true, nil
}

// Direction selects which way DirectedPartitionPoint searches a monotone
// predicate.
type Direction int

const (
	// Forward finds the first index for which pred returns true, assuming
	// pred is false-then-true across the list (ascending monotone values,
	// pred typically "value >= target").
	Forward Direction = iota
	// Backward finds the last index for which pred returns true, assuming
	// pred is true-then-false across the list (pred typically
	// "value <= target").
	Backward
)

// DirectedPartitionPoint performs a binary search over l assuming the items
// are monotonically non-decreasing and pred partitions the list into a
// true-prefix/false-suffix (Backward) or false-prefix/true-suffix (Forward).
// It returns the boundary Cursor and whether one exists.
func (l *List) DirectedPartitionPoint(dir Direction, pred func(v uint64) bool) (Cursor, bool, error) {
	n, err := l.Len()
	if err != nil {
		return Cursor{}, false, err
	}
	if n == 0 {
		return Cursor{}, false, nil
	}

	switch dir {
	case Forward:
		lo, hi := 0, n
		for lo < hi {
			mid := int(uint(lo+hi) >> 1)
			v, err := l.At(mid)
			if err != nil {
				return Cursor{}, false, err
			}
			if pred(v) {
				hi = mid
			} else {
				lo = mid + 1
			}
		}
		if lo >= n {
			return Cursor{}, false, nil
		}
		return l.Seek(lo), true, nil

	case Backward:
		lo, hi := -1, n-1
		for lo < hi {
			mid := int(uint(lo+hi+1) >> 1)
			v, err := l.At(mid)
			if err != nil {
				return Cursor{}, false, err
			}
			if pred(v) {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		if lo < 0 {
			return Cursor{}, false, nil
		}
		return l.Seek(lo), true, nil

	default:
		return Cursor{}, false, fmt.Errorf("offsetarray: unknown direction %d", dir)
	}
}
