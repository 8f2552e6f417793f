package journal

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rpcpool/logjournal/jobj"
	"github.com/rpcpool/logjournal/jwindow"
)

// DefaultDataHashSlots and DefaultFieldHashSlots size the hash tables of a
// freshly created file. They never grow; a file that outgrows them simply
// gets worse (but still correct) chain lengths until it rotates.
const (
	DefaultDataHashSlots  = 2047
	DefaultFieldHashSlots = 333
)

// MaxArrayCapacity caps the growth of ENTRY_ARRAY node capacities.
const MaxArrayCapacity = 16384

// OpenOptions configures Open.
type OpenOptions struct {
	Writable   bool
	WindowSize int64
	MaxWindows int

	// The following only take effect when creating a new (empty) file.
	Compact        bool
	KeyedHash      bool
	TailBootID     bool
	MachineID      [16]byte
	DataHashSlots  uint64
	FieldHashSlots uint64

	// SeqnumID, when non-zero, is carried forward from a rotated
	// predecessor instead of generated fresh, and InitialTailSeqnum seeds
	// TailEntrySeqnum so the first AppendEntry continues the sequence
	// rather than restarting at 1.
	SeqnumID          [16]byte
	InitialTailSeqnum uint64
}

func (o OpenOptions) withDefaults() OpenOptions {
	if o.DataHashSlots == 0 {
		o.DataHashSlots = DefaultDataHashSlots
	}
	if o.FieldHashSlots == 0 {
		o.FieldHashSlots = DefaultFieldHashSlots
	}
	return o
}

// tailCache remembers the last node of an append-only ENTRY_ARRAY chain so
// appends don't have to walk the whole chain to find room.
type tailCache struct {
	offset uint64
	used   uint64
	cap    uint64
}

// File is the facade over one open journal file: header access, object
// lookup, entry iteration, and (when writable) append.
type File struct {
	mu       sync.Mutex
	f        *os.File
	win      *jwindow.Manager
	path     string
	writable bool

	hdr jobj.Header

	liveView bool

	// keyed by 0 for the journal-wide entry array, or by a DATA object's
	// own file offset for its per-value entry array.
	tails map[uint64]*tailCache
}

// Open opens an existing journal file, or creates one if it doesn't exist
// (or is zero-length) and opts.Writable is set.
func Open(path string, opts OpenOptions) (*File, error) {
	opts = opts.withDefaults()
	flag := os.O_RDONLY
	if opts.Writable {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("journal: stat %s: %w", path, err)
	}

	jf := &File{
		f:        f,
		path:     path,
		writable: opts.Writable,
		win:      jwindow.New(f, opts.WindowSize, opts.MaxWindows, opts.Writable),
		tails:    make(map[uint64]*tailCache),
	}

	if fi.Size() == 0 {
		if !opts.Writable {
			f.Close()
			return nil, fmt.Errorf("journal: %s is empty and not opened writable", path)
		}
		if err := jf.createEmpty(opts); err != nil {
			f.Close()
			return nil, err
		}
		return jf, nil
	}

	sl, err := jf.win.Acquire(0, jobj.HeaderSize)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("journal: read header of %s: %w", path, err)
	}
	err = jf.hdr.Unmarshal(sl.Bytes())
	sl.Release()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("journal: parse header of %s: %w", path, err)
	}
	return jf, nil
}

func (f *File) createEmpty(opts OpenOptions) error {
	f.hdr = jobj.Header{
		Signature:  jobj.Magic,
		HeaderSize: jobj.HeaderSize,
		State:      jobj.StateOnline,
		MachineID:  opts.MachineID,
	}
	fileID, _ := uuid.New().MarshalBinary()
	copy(f.hdr.FileID[:], fileID)
	if opts.SeqnumID == ([16]byte{}) {
		seqnumID, _ := uuid.New().MarshalBinary()
		copy(f.hdr.SeqnumID[:], seqnumID)
	} else {
		f.hdr.SeqnumID = opts.SeqnumID
	}
	f.hdr.TailEntrySeqnum = opts.InitialTailSeqnum

	if opts.Compact {
		f.hdr.IncompatibleFlags |= jobj.IncompatibleCompact
	}
	if opts.KeyedHash {
		f.hdr.IncompatibleFlags |= jobj.IncompatibleKeyedHash
	}
	if opts.TailBootID {
		f.hdr.IncompatibleFlags |= jobj.IncompatibleTailEntryBootID
	}

	dataHTOffset, err := f.appendHashTable(jobj.ObjectDataHashTable, opts.DataHashSlots)
	if err != nil {
		return err
	}
	f.hdr.DataHashTableOffset = dataHTOffset
	f.hdr.DataHashTableSize = jobj.SizeForBuckets(opts.DataHashSlots)

	fieldHTOffset, err := f.appendHashTable(jobj.ObjectFieldHashTable, opts.FieldHashSlots)
	if err != nil {
		return err
	}
	f.hdr.FieldHashTableOffset = fieldHTOffset
	f.hdr.FieldHashTableSize = jobj.SizeForBuckets(opts.FieldHashSlots)

	return f.flushHeader()
}

func (f *File) appendHashTable(objType jobj.ObjectType, slots uint64) (uint64, error) {
	size := jobj.SizeForBuckets(slots)
	offset, sl, err := f.appendRaw(size)
	if err != nil {
		return 0, err
	}
	ht := jobj.HashTableObject{
		Header:  jobj.ObjectHeader{Size: size},
		Buckets: make([]jobj.Bucket, slots),
	}
	jobj.PutHashTableObject(sl.Bytes(), ht, objType)
	sl.Release()
	return offset, nil
}

// appendRaw allocates size bytes (8-byte aligned) at the current tail of
// the arena and returns its offset along with a pinned, writable view the
// caller must fill in and Release. It updates header bookkeeping but does
// not flush the header to disk.
func (f *File) appendRaw(size uint64) (uint64, jwindow.Slice, error) {
	if !f.writable {
		return 0, jwindow.Slice{}, ErrReadOnly
	}
	aligned := jobj.AlignedSize(size)
	offset := jobj.HeaderSize + f.hdr.ArenaSize
	sl, err := f.borrow(int64(offset), int64(aligned))
	if err != nil {
		return 0, jwindow.Slice{}, err
	}
	for i := range sl.Bytes() {
		sl.Bytes()[i] = 0
	}
	f.hdr.ArenaSize += aligned
	f.hdr.TailObjectOffset = offset
	f.hdr.NObjects++
	return offset, sl, nil
}

// borrow enforces the one-live-view invariant and acquires a window slice.
func (f *File) borrow(offset, length int64) (jwindow.Slice, error) {
	if f.liveView {
		return jwindow.Slice{}, ErrViewAlreadyBorrowed
	}
	sl, err := f.win.Acquire(offset, length)
	if err != nil {
		return jwindow.Slice{}, err
	}
	f.liveView = true
	return sl, nil
}

// View wraps a jwindow.Slice for callers outside the package, clearing the
// one-live-view flag on Release.
type View struct {
	f  *File
	sl jwindow.Slice
}

// Bytes returns the borrowed byte range.
func (v View) Bytes() []byte { return v.sl.Bytes() }

// Release must be called exactly once before the next borrowing call on
// the same File.
func (v View) Release() {
	v.sl.Release()
	v.f.liveView = false
}

func (f *File) view(offset, length int64) (View, error) {
	sl, err := f.borrow(offset, length)
	if err != nil {
		return View{}, err
	}
	return View{f: f, sl: sl}, nil
}

// flushHeader writes the in-memory header back to offset 0.
func (f *File) flushHeader() error {
	v, err := f.view(0, jobj.HeaderSize)
	if err != nil {
		return err
	}
	copy(v.Bytes(), f.hdr.Marshal())
	v.Release()
	return nil
}

// Sync flushes the header and every mapped window to disk.
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writable {
		if err := f.flushHeader(); err != nil {
			return err
		}
	}
	return f.win.Sync()
}

// Close releases all mappings and closes the underlying file. If the file
// is writable its header is flushed first.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writable {
		if err := f.flushHeader(); err != nil {
			f.win.Close()
			f.f.Close()
			return err
		}
	}
	if err := f.win.Close(); err != nil {
		f.f.Close()
		return err
	}
	return f.f.Close()
}

// Header returns a copy of the in-memory file header.
func (f *File) Header() jobj.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hdr
}

// Path returns the file's path on disk.
func (f *File) Path() string { return f.path }

// Writable reports whether the file was opened for writing.
func (f *File) Writable() bool { return f.writable }

// Lock and Unlock expose the File's mutex to callers (e.g. jlog) that need
// to serialize a sequence of otherwise-independent calls atomically.
func (f *File) Lock()   { f.mu.Lock() }
func (f *File) Unlock() { f.mu.Unlock() }

// CurrentFileSize returns the file's logical size: header plus everything
// appended to the arena so far.
func (f *File) CurrentFileSize() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return jobj.HeaderSize + f.hdr.ArenaSize
}

// MarkArchived sets the header state to archived and flushes it, the first
// step of jlog's rotation procedure. The file remains otherwise usable
// until Close.
func (f *File) MarkArchived() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.writable {
		return ErrReadOnly
	}
	f.hdr.State = jobj.StateArchived
	return f.flushHeader()
}

// DataHashTableUtilization returns the fraction of data-hash buckets with
// at least one chained object, used by jlog's rotation procedure to decide
// whether the successor file's hash tables should grow or shrink.
func (f *File) DataHashTableUtilization() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	numBuckets := jobj.NBuckets(f.hdr.DataHashTableSize)
	if numBuckets == 0 {
		return 0, nil
	}
	occupied := uint64(0)
	for idx := uint64(0); idx < numBuckets; idx++ {
		b, err := f.bucketHead(f.hdr.DataHashTableOffset, f.hdr.DataHashTableSize, numBuckets, idx)
		if err != nil {
			return 0, err
		}
		if b.Head != 0 {
			occupied++
		}
	}
	return float64(occupied) / float64(numBuckets), nil
}
