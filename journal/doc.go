// Package journal implements the per-file facade and writer over one
// journal file: opening/creating it, looking up objects by hash, iterating
// entries via offsetarray, and appending new entries.
//
// File enforces a one-live-view invariant inherited from jwindow: at most
// one borrowed View may be outstanding at a time. Every accessor that reads
// an object returns a View alongside the decoded struct; the caller must
// Release it before the next call that borrows a window. Scalar fields
// decoded onto the returned struct remain valid after Release, but byte
// slices that alias the borrowed window (DataObject.Payload,
// FieldObject.Name) do not and must be copied out first if needed beyond
// the View's lifetime.
package journal
