// Package offsetarray implements traversal over chained ENTRY_ARRAY
// objects: the append-friendly linked list of fixed-capacity offset arrays
// that lets a reader walk a journal's entries (or the subset referencing
// one DATA object) without following an ENTRY-to-ENTRY pointer
// chain one link at a time.
//
// A List is the logical, flattened view of every offset across the chain
// starting at some head ENTRY_ARRAY offset. A Cursor addresses one position
// in that view and can move forward or backward across node boundaries.
// DirectedPartitionPoint binary-searches a List under the assumption that
// the values it holds are monotonic, the same assumption systemd's own
// generic_array_bisect relies on.
//
// InlinedCursor composes a single "inlined" value (the first entry offset
// stored directly in a DATA object, so a value that only ever appears
// once needs no ENTRY_ARRAY) with a List covering any
// further entries, presenting both as one cursor.
package offsetarray
