// Package jobj implements the tagged-object model of a journal file: the
// file header, the generic object header every object starts with, and the
// typed views (DATA, FIELD, ENTRY, ENTRY_ARRAY, HASH_TABLE, TAG) layered on
// top of it.
//
// Every function here is a pure encode/decode over a byte slice handed to it
// by a caller; jobj never opens a file or owns a mapping itself. That keeps
// the object model testable without any storage underneath, and lets the
// window manager in jwindow and the facade in journal own the only mutable
// state (the borrowed slice, and the one-live-view invariant over it).
//
// All multi-byte integers are little-endian. All objects are aligned to an
// 8-byte boundary; AlignedSize rounds a size up to the next multiple of 8.
package jobj

// AlignedSize rounds size up to the next multiple of 8.
func AlignedSize(size uint64) uint64 {
	return (size + 7) &^ 7
}
