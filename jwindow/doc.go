// Package jwindow manages a pool of memory-mapped windows over one open
// journal file, the way systemd's own mmap-cache keeps a bounded number of
// page-aligned mappings alive instead of mapping (or re-reading) the whole
// file at once.
//
// A Manager owns at most maxWindows live mmap regions ("windows") at a
// time. Acquire maps (or reuses) the window covering a byte range and
// returns a pinned Slice; the caller must Release it once done. A window
// with a zero pin count is eligible for LRU eviction when the pool is full
// and a new range needs a window of its own.
//
// jwindow never parses object contents — that's jobj's job, working over
// the []byte a Slice exposes.
package jwindow
