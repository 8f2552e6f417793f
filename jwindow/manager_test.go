package jwindow

import (
	"os"
	"path/filepath"
	"testing"
)

func tempFile(t *testing.T) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "window.db")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("open temp file: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestAcquireWriteReadBack(t *testing.T) {
	f := tempFile(t)
	m := New(f, 4096, 4, true)

	sl, err := m.Acquire(0, 16)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	copy(sl.Bytes(), []byte("0123456789abcdef"))
	sl.Release()

	if err := m.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := make([]byte, 16)
	if _, err := f.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(got) != "0123456789abcdef" {
		t.Fatalf("got %q, want %q", got, "0123456789abcdef")
	}
}

func TestAcquireReuseWithinWindow(t *testing.T) {
	f := tempFile(t)
	m := New(f, 4096, 4, true)
	defer m.Close()

	a, err := m.Acquire(0, 16)
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer a.Release()

	if m.OpenWindows() != 1 {
		t.Fatalf("OpenWindows = %d, want 1", m.OpenWindows())
	}

	b, err := m.Acquire(100, 16)
	if err != nil {
		t.Fatalf("Acquire b: %v", err)
	}
	defer b.Release()

	if m.OpenWindows() != 1 {
		t.Fatalf("OpenWindows = %d after overlapping acquire, want 1 (should reuse window)", m.OpenWindows())
	}
}

func TestAcquireBeyondWindowMapsNewWindow(t *testing.T) {
	f := tempFile(t)
	m := New(f, 4096, 4, true)
	defer m.Close()

	a, err := m.Acquire(0, 16)
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	a.Release()

	b, err := m.Acquire(1<<20, 16)
	if err != nil {
		t.Fatalf("Acquire b: %v", err)
	}
	b.Release()

	if m.OpenWindows() != 2 {
		t.Fatalf("OpenWindows = %d, want 2", m.OpenWindows())
	}
}

func TestEvictionOfUnpinnedWindow(t *testing.T) {
	f := tempFile(t)
	m := New(f, 4096, 2, true)
	defer m.Close()

	a, err := m.Acquire(0, 16)
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	a.Release()

	b, err := m.Acquire(1<<20, 16)
	if err != nil {
		t.Fatalf("Acquire b: %v", err)
	}
	b.Release()

	if m.OpenWindows() != 2 {
		t.Fatalf("OpenWindows = %d, want 2", m.OpenWindows())
	}

	c, err := m.Acquire(2<<20, 16)
	if err != nil {
		t.Fatalf("Acquire c should evict an unpinned window: %v", err)
	}
	defer c.Release()

	if m.OpenWindows() != 2 {
		t.Fatalf("OpenWindows = %d after eviction, want 2", m.OpenWindows())
	}
}

func TestAllPinnedExhaustsPool(t *testing.T) {
	f := tempFile(t)
	m := New(f, 4096, 1, true)
	defer m.Close()

	a, err := m.Acquire(0, 16)
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer a.Release()

	_, err = m.Acquire(1<<20, 16)
	if err != ErrAllPinned {
		t.Fatalf("err = %v, want ErrAllPinned", err)
	}
}

func TestCloseThenAcquireFails(t *testing.T) {
	f := tempFile(t)
	m := New(f, 4096, 2, true)
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.Acquire(0, 16); err != ErrClosed {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}
