package jwindow

import (
	"container/list"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultWindowSize is the minimum size of one mapped window, matching
// systemd's own default mmap-cache window of 8 MiB.
const DefaultWindowSize = 8 << 20

// DefaultMaxWindows bounds the number of simultaneously mapped windows.
const DefaultMaxWindows = 64

// ErrClosed is returned by any operation on a Manager after Close.
var ErrClosed = errors.New("jwindow: manager closed")

// ErrAllPinned is returned when every open window is pinned and the pool
// has reached maxWindows, so a new range cannot be mapped.
var ErrAllPinned = errors.New("jwindow: window pool exhausted, all windows pinned")

// Manager multiplexes a bounded set of mmap windows over one *os.File.
type Manager struct {
	mu         sync.Mutex
	file       *os.File
	windowSize int64
	maxWindows int
	writable   bool
	pageSize   int64

	byStart map[int64]*list.Element // window start offset -> lru element
	lru     *list.List              // list of *window, front = most recently used
	closed  bool
}

type window struct {
	start    int64
	data     []byte
	pinCount int
}

// New creates a Manager over f. windowSize and maxWindows fall back to
// DefaultWindowSize/DefaultMaxWindows when <= 0. writable selects
// PROT_READ|PROT_WRITE, MAP_SHARED mappings suitable for the writer half;
// read-only callers should pass false.
func New(f *os.File, windowSize int64, maxWindows int, writable bool) *Manager {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if maxWindows <= 0 {
		maxWindows = DefaultMaxWindows
	}
	return &Manager{
		file:       f,
		windowSize: windowSize,
		maxWindows: maxWindows,
		writable:   writable,
		pageSize:   int64(os.Getpagesize()),
		byStart:    make(map[int64]*list.Element),
		lru:        list.New(),
	}
}

func (m *Manager) alignDown(off int64) int64 {
	return off - (off % m.pageSize)
}

func (m *Manager) alignUp(n int64) int64 {
	rem := n % m.pageSize
	if rem == 0 {
		return n
	}
	return n + (m.pageSize - rem)
}

// Slice is a pinned view into one window. The caller must call Release
// exactly once when done reading or writing through Bytes.
type Slice struct {
	m      *Manager
	start  int64
	bytes  []byte
}

// Bytes returns the requested byte range. It remains valid until Release.
func (s Slice) Bytes() []byte {
	return s.bytes
}

// Release unpins the window backing s, making it eligible for eviction.
func (s Slice) Release() {
	s.m.release(s.start)
}

// Acquire pins (mapping if necessary) the window covering [offset,
// offset+length) and returns a Slice over exactly that range.
func (m *Manager) Acquire(offset, length int64) (Slice, error) {
	if length <= 0 {
		return Slice{}, fmt.Errorf("jwindow: non-positive length %d", length)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Slice{}, ErrClosed
	}

	if el, ok := m.findCovering(offset, length); ok {
		w := el.Value.(*window)
		w.pinCount++
		m.lru.MoveToFront(el)
		return m.sliceOf(w, offset, length), nil
	}

	w, err := m.mapWindow(offset, length)
	if err != nil {
		return Slice{}, err
	}
	w.pinCount++
	el := m.lru.PushFront(w)
	m.byStart[w.start] = el
	return m.sliceOf(w, offset, length), nil
}

func (m *Manager) findCovering(offset, length int64) (*list.Element, bool) {
	for el := m.lru.Front(); el != nil; el = el.Next() {
		w := el.Value.(*window)
		end := w.start + int64(len(w.data))
		if offset >= w.start && offset+length <= end {
			return el, true
		}
	}
	return nil, false
}

func (m *Manager) mapWindow(offset, length int64) (*window, error) {
	start := m.alignDown(offset)
	size := m.alignUp((offset - start) + length)
	if size < m.windowSize {
		size = m.alignUp(m.windowSize)
	}

	fi, err := m.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("jwindow: stat: %w", err)
	}
	if start+size > fi.Size() {
		if m.writable {
			if err := m.file.Truncate(start + size); err != nil {
				return nil, fmt.Errorf("jwindow: grow file for mapping: %w", err)
			}
		} else {
			size = fi.Size() - start
			if size <= 0 {
				return nil, fmt.Errorf("jwindow: range [%d,%d) beyond end of file (size %d)", offset, offset+length, fi.Size())
			}
		}
	}

	if err := m.evictUnpinnedUntilFits(); err != nil {
		return nil, err
	}

	prot := unix.PROT_READ
	if m.writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(m.file.Fd()), start, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("jwindow: mmap offset %d size %d: %w", start, size, err)
	}
	if err := unix.Madvise(data, unix.MADV_RANDOM); err != nil {
		// Advisory only; not fatal.
		_ = err
	}
	return &window{start: start, data: data}, nil
}

func (m *Manager) evictUnpinnedUntilFits() error {
	if m.lru.Len() < m.maxWindows {
		return nil
	}
	for el := m.lru.Back(); el != nil; {
		prev := el.Prev()
		w := el.Value.(*window)
		if w.pinCount == 0 {
			m.unmapLocked(w)
			m.lru.Remove(el)
			delete(m.byStart, w.start)
			if m.lru.Len() < m.maxWindows {
				return nil
			}
		}
		el = prev
	}
	if m.lru.Len() >= m.maxWindows {
		return ErrAllPinned
	}
	return nil
}

func (m *Manager) unmapLocked(w *window) {
	if m.writable {
		_ = unix.Msync(w.data, unix.MS_SYNC)
	}
	_ = unix.Munmap(w.data)
}

func (m *Manager) sliceOf(w *window, offset, length int64) Slice {
	rel := offset - w.start
	return Slice{m: m, start: w.start, bytes: w.data[rel : rel+length]}
}

func (m *Manager) release(start int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.byStart[start]
	if !ok {
		return
	}
	w := el.Value.(*window)
	if w.pinCount > 0 {
		w.pinCount--
	}
}

// Sync flushes every currently-mapped writable window to disk via msync.
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.writable {
		return nil
	}
	for el := m.lru.Front(); el != nil; el = el.Next() {
		w := el.Value.(*window)
		if err := unix.Msync(w.data, unix.MS_SYNC); err != nil {
			return fmt.Errorf("jwindow: msync window at %d: %w", w.start, err)
		}
	}
	return nil
}

// Close unmaps every window. The Manager must not be used afterward; the
// underlying *os.File is left open for the caller to close.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	var firstErr error
	for el := m.lru.Front(); el != nil; el = el.Next() {
		w := el.Value.(*window)
		if m.writable {
			if err := unix.Msync(w.data, unix.MS_SYNC); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := unix.Munmap(w.data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.byStart = nil
	m.lru = nil
	return firstErr
}

// OpenWindows returns the number of currently mapped windows, for tests and
// metrics.
func (m *Manager) OpenWindows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lru == nil {
		return 0
	}
	return m.lru.Len()
}
