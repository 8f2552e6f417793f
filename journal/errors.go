package journal

import "errors"

var (
	// ErrViewAlreadyBorrowed is returned when a second View is requested
	// while one is still outstanding.
	ErrViewAlreadyBorrowed = errors.New("journal: a view is already borrowed; Release it first")
	// ErrNotFound is returned by lookups that find no matching object.
	ErrNotFound = errors.New("journal: object not found")
	// ErrReadOnly is returned by writer operations on a File opened
	// read-only.
	ErrReadOnly = errors.New("journal: file opened read-only")
	// ErrCorrupt is returned when an on-disk structure fails a basic
	// consistency check (offset past the tail, bad chain, etc).
	ErrCorrupt = errors.New("journal: corrupt structure")
)
