package jlog

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rpcpool/logjournal/metrics"
)

// RotationPolicy decides when the active file should be archived and a
// successor started. Triggers are checked in size, entries, duration
// order; the first one that fires wins.
type RotationPolicy struct {
	MaxSize     uint64
	MaxEntries  uint64
	MaxDuration time.Duration
}

// ShouldRotate reports whether the active file should be rotated, and why.
func (p RotationPolicy) ShouldRotate(currentSize, entries uint64, elapsed time.Duration) (bool, string) {
	if p.MaxSize > 0 && currentSize >= p.MaxSize {
		return true, "max_size"
	}
	if p.MaxEntries > 0 && entries >= p.MaxEntries {
		return true, "max_entries"
	}
	if p.MaxDuration > 0 && elapsed >= p.MaxDuration {
		return true, "max_duration"
	}
	return false, ""
}

// RetentionPolicy bounds how many archived files accumulate in a machine's
// directory. Zero fields disable that dimension.
type RetentionPolicy struct {
	MaxFiles     int
	MaxTotalSize uint64
	MaxAge       time.Duration
}

type archivedFile struct {
	path      string
	name      string
	tsMicros  uint64
	counter   uint64
	size      int64
}

func listArchivedFiles(dir string) ([]archivedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []archivedFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ts, ctr, ok := parseArchivedFileName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, archivedFile{
			path:     filepath.Join(dir, e.Name()),
			name:     e.Name(),
			tsMicros: ts,
			counter:  ctr,
			size:     info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].tsMicros != out[j].tsMicros {
			return out[i].tsMicros < out[j].tsMicros
		}
		return out[i].counter < out[j].counter
	})
	return out, nil
}

// Apply removes archived files (oldest first) from dir until the policy is
// satisfied. Removal errors are logged and otherwise ignored, matching the
// spec's "errors are logged, not fatal".
func (p RetentionPolicy) Apply(dir string, now time.Time, logger *slog.Logger) {
	files, err := listArchivedFiles(dir)
	if err != nil {
		logger.Warn("jlog: retention: list archived files failed", "dir", dir, "err", err)
		return
	}

	remove := func(f archivedFile, reason string) {
		if err := os.Remove(f.path); err != nil {
			logger.Warn("jlog: retention: remove failed", "path", f.path, "reason", reason, "err", err)
			metrics.RetentionErrorsTotal.WithLabelValues(reason).Inc()
			return
		}
		logger.Info("jlog: retention removed file", "path", f.path, "reason", reason)
		metrics.RetentionDeletionsTotal.WithLabelValues(reason).Inc()
	}

	if p.MaxFiles > 0 {
		for len(files) > p.MaxFiles {
			remove(files[0], "max_files")
			files = files[1:]
		}
	}

	if p.MaxTotalSize > 0 {
		var total int64
		for _, f := range files {
			total += f.size
		}
		for total > int64(p.MaxTotalSize) && len(files) > 0 {
			total -= files[0].size
			remove(files[0], "max_total_size")
			files = files[1:]
		}
		logger.Debug("jlog: retention size check", "remaining_bytes", humanize.Bytes(uint64(total)))
	}

	if p.MaxAge > 0 {
		cutoff := uint64(now.Add(-p.MaxAge).UnixMicro())
		kept := files[:0]
		for _, f := range files {
			if f.tsMicros < cutoff {
				remove(f, "max_age")
				continue
			}
			kept = append(kept, f)
		}
	}
}
