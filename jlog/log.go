package jlog

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rpcpool/logjournal/continuity"
	"github.com/rpcpool/logjournal/fieldremap"
	"github.com/rpcpool/logjournal/journal"
	"github.com/rpcpool/logjournal/metrics"
)

// minDataHashSlots floors the adaptive bucket-count halving so a quiet
// file never shrinks its hash table into pathological chain lengths.
const minDataHashSlots = 127

// Log is a directory of rotating journal files for one machine ID.
type Log struct {
	mu     sync.Mutex
	opts   Options
	dir    string
	logger *slog.Logger
	bootID [16]byte

	active       *journal.File
	registry     *fieldremap.Registry
	counter      uint64
	entriesSince uint64
	firstMono    uint64
	dataSlots    uint64
	fieldSlots   uint64

	watcher *dirWatcher
}

// Open opens (or creates) the directory of journal files for opts.MachineID
// under opts.BaseDir, running a retention sweep and opening or creating the
// active file.
func Open(opts Options) (*Log, error) {
	opts = opts.withDefaults()
	dir := machineDir(opts.BaseDir, opts.MachineID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jlog: create directory %s: %w", dir, err)
	}

	bootID, _ := uuid.New().MarshalBinary()
	l := &Log{
		opts:       opts,
		dir:        dir,
		logger:     opts.Logger,
		dataSlots:  opts.DataHashSlots,
		fieldSlots: opts.FieldHashSlots,
	}
	copy(l.bootID[:], bootID)

	opts.Retention.Apply(dir, time.Now(), l.logger)

	activePath := filepath.Join(dir, activeFileName)
	f, err := journal.Open(activePath, journal.OpenOptions{
		Writable:       true,
		Compact:        opts.Compact,
		KeyedHash:      opts.KeyedHash,
		MachineID:      opts.MachineID,
		DataHashSlots:  l.dataSlots,
		FieldHashSlots: l.fieldSlots,
	})
	if err != nil {
		return nil, fmt.Errorf("jlog: open active file: %w", err)
	}
	l.active = f
	l.registry = fieldremap.NewRegistry()
	if err := l.reconstructRegistry(); err != nil {
		f.Close()
		return nil, err
	}
	l.counter = l.nextCounterFromDisk()

	if opts.Watch {
		w, err := newDirWatcher(dir, l.logger)
		if err != nil {
			l.logger.Warn("jlog: directory watch unavailable", "dir", dir, "err", err)
		} else {
			l.watcher = w
		}
	}

	return l, nil
}

func (l *Log) nextCounterFromDisk() uint64 {
	files, err := listArchivedFiles(l.dir)
	if err != nil || len(files) == 0 {
		return 0
	}
	return files[len(files)-1].counter + 1
}

// reconstructRegistry rebuilds the field-name remap registry by scanning
// the active file's entries for ND_REMAPPING sentinels, per spec. The same
// scan restores the rotation counters (entriesSince, firstMono) from the
// file's non-remapping entries.
func (l *Log) reconstructRegistry() error {
	list := l.active.EntryList()
	n, err := list.Len()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		offset, err := list.At(i)
		if err != nil {
			return err
		}
		e, v, err := l.active.GetEntry(offset)
		if err != nil {
			return err
		}
		isRemap := false
		var pairs [][2]string
		for _, item := range e.Items {
			d, dv, err := l.active.GetData(item.ObjectOffset)
			if err != nil {
				v.Release()
				return err
			}
			field, value, ok := splitFieldValue(d.Payload)
			if ok && fieldremap.IsSentinel([]byte(field)) {
				isRemap = true
			} else if ok {
				pairs = append(pairs, [2]string{field, value})
			}
			dv.Release()
		}
		v.Release()
		if isRemap {
			for _, p := range pairs {
				l.registry.Learn(p[0], p[1])
			}
		} else {
			if l.entriesSince == 0 {
				l.firstMono = e.Monotonic
			}
			l.entriesSince++
		}
	}
	return nil
}

func splitFieldValue(payload []byte) (field, value string, ok bool) {
	for i, b := range payload {
		if b == '=' {
			return string(payload[:i]), string(payload[i+1:]), true
		}
	}
	return "", "", false
}

// Append writes one entry, resolving field names through the registry and
// writing a remapping entry first if any new mapping was introduced. If
// sourceRealtimeUsec is non-nil, _SOURCE_REALTIME_TIMESTAMP is injected.
func (l *Log) Append(fields map[string][]byte, sourceRealtimeUsec *uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.maybeRotate(); err != nil {
		metrics.AppendErrorsTotal.WithLabelValues("rotate").Inc()
		return 0, err
	}

	type resolved struct {
		name  string
		value []byte
	}
	resolvedFields := make([]resolved, 0, len(fields))
	var newMappings [][2]string
	for k, v := range fields {
		name, isNew := l.registry.Resolve([]byte(k))
		if isNew {
			newMappings = append(newMappings, [2]string{name, k})
		}
		resolvedFields = append(resolvedFields, resolved{name: name, value: v})
	}

	now := time.Now()
	realtime := uint64(now.UnixMicro())
	monotonic := monotonicMicros()

	if len(newMappings) > 0 {
		if _, err := l.appendRemapEntry(newMappings, realtime, monotonic); err != nil {
			metrics.AppendErrorsTotal.WithLabelValues("remap").Inc()
			return 0, fmt.Errorf("jlog: write remapping entry: %w", err)
		}
	}

	items := make([]journal.FieldValue, 0, len(resolvedFields)+2)
	items = append(items, journal.FieldValue{Field: []byte("_BOOT_ID"), Value: []byte(hex.EncodeToString(l.bootID[:]))})
	if sourceRealtimeUsec != nil {
		items = append(items, journal.FieldValue{
			Field: []byte("_SOURCE_REALTIME_TIMESTAMP"),
			Value: []byte(fmt.Sprintf("%d", *sourceRealtimeUsec)),
		})
	}
	for _, rf := range resolvedFields {
		items = append(items, journal.FieldValue{Field: []byte(rf.name), Value: rf.value})
	}

	seqnum, _, err := l.active.AppendEntry(items, journal.EntryMeta{
		Realtime:  realtime,
		Monotonic: monotonic,
		BootID:    l.bootID,
	}, 0)
	if err != nil {
		metrics.AppendErrorsTotal.WithLabelValues("append").Inc()
		return 0, err
	}

	if l.entriesSince == 0 {
		l.firstMono = monotonic
	}
	l.entriesSince++
	metrics.ActiveFileSize.Set(float64(l.active.CurrentFileSize()))
	return seqnum, nil
}

func (l *Log) appendRemapEntry(mappings [][2]string, realtime, monotonic uint64) (uint64, error) {
	items := []journal.FieldValue{
		{Field: []byte("_BOOT_ID"), Value: []byte(hex.EncodeToString(l.bootID[:]))},
		{Field: []byte(fieldremap.SentinelField), Value: []byte("1")},
	}
	for _, m := range mappings {
		items = append(items, journal.FieldValue{Field: []byte(m[0]), Value: []byte(m[1])})
	}
	seqnum, _, err := l.active.AppendEntry(items, journal.EntryMeta{
		Realtime:  realtime,
		Monotonic: monotonic,
		BootID:    l.bootID,
	}, 0)
	return seqnum, err
}

// monotonicMicros stands in for a monotonic clock reading in microseconds.
// Wall-clock time is adequate here: jlog only ever compares two readings
// taken within the same process to measure elapsed duration for rotation.
func monotonicMicros() uint64 {
	return uint64(time.Now().UnixMicro())
}

func (l *Log) maybeRotate() error {
	size := l.active.CurrentFileSize()
	elapsed := time.Duration(0)
	if l.entriesSince > 0 {
		elapsed = time.Duration(monotonicMicros()-l.firstMono) * time.Microsecond
	}
	should, reason := l.opts.Rotation.ShouldRotate(size, l.entriesSince, elapsed)
	if !should {
		return nil
	}
	metrics.RotationsTotal.WithLabelValues(reason).Inc()
	return l.rotate()
}

func (l *Log) rotate() error {
	old := l.active
	oldHeader := old.Header()
	oldPath := old.Path()

	utilization, err := old.DataHashTableUtilization()
	if err != nil {
		l.logger.Warn("jlog: rotation: bucket utilization probe failed", "err", err)
	}
	newDataSlots, newFieldSlots := nextBucketSizes(l.dataSlots, utilization)

	archivedPath := filepath.Join(l.dir, archivedFileName(uint64(time.Now().UnixMicro()), l.counter))

	chain := continuity.New().
		Thenf("mark archived", old.MarkArchived).
		Thenf("sync", old.Sync).
		Thenf("close", old.Close).
		Thenf("rename", func() error { return os.Rename(oldPath, archivedPath) })
	if err := chain.Err(); err != nil {
		return fmt.Errorf("jlog: rotate: %w", err)
	}

	newPath := filepath.Join(l.dir, activeFileName)
	nf, err := journal.Open(newPath, journal.OpenOptions{
		Writable:          true,
		Compact:           l.opts.Compact,
		KeyedHash:         l.opts.KeyedHash,
		MachineID:         l.opts.MachineID,
		DataHashSlots:     newDataSlots,
		FieldHashSlots:    newFieldSlots,
		SeqnumID:          oldHeader.SeqnumID,
		InitialTailSeqnum: oldHeader.TailEntrySeqnum,
	})
	if err != nil {
		return fmt.Errorf("jlog: rotate: open successor: %w", err)
	}

	l.active = nf
	l.registry = fieldremap.NewRegistry()
	l.dataSlots, l.fieldSlots = newDataSlots, newFieldSlots
	l.entriesSince = 0
	l.firstMono = 0
	l.counter++

	l.opts.Retention.Apply(l.dir, time.Now(), l.logger)
	return nil
}

// nextBucketSizes grows, shrinks, or carries forward the data-hash bucket
// count for a rotated successor based on the outgoing file's utilization,
// with field-hash buckets sized roughly 1/8 of data-hash buckets.
func nextBucketSizes(prevDataSlots uint64, utilization float64) (dataSlots, fieldSlots uint64) {
	switch {
	case utilization > 0.75:
		dataSlots = prevDataSlots * 2
	case utilization < 0.25 && prevDataSlots > minDataHashSlots:
		dataSlots = prevDataSlots / 2
		if dataSlots < minDataHashSlots {
			dataSlots = minDataHashSlots
		}
	default:
		dataSlots = prevDataSlots
	}
	fieldSlots = dataSlots / 8
	if fieldSlots == 0 {
		fieldSlots = 1
	}
	return dataSlots, fieldSlots
}

// Sync flushes the active file to disk.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active.Sync()
}

// Close closes the active file and stops the directory watcher, if any.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		l.watcher.Close()
	}
	return l.active.Close()
}

// Dir returns the directory holding this machine ID's journal files.
func (l *Log) Dir() string { return l.dir }

// ActivePath returns the current active file's path.
func (l *Log) ActivePath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active.Path()
}
