package jlog

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// activeFileName is the fixed name of the currently writable journal file
// within a machine's directory; it has no timestamp because it hasn't been
// archived yet.
const activeFileName = "current.journal"

func machineDir(base string, machineID [16]byte) string {
	return filepath.Join(base, hex.EncodeToString(machineID[:]))
}

// archivedFileName follows the spec's "<timestamp-micros>-<counter>.journal"
// layout. Zero-padding the timestamp keeps lexicographic and chronological
// order identical in a plain directory listing; the retention sweep itself
// sorts by the parsed timestamp and counter.
func archivedFileName(timestampMicros, counter uint64) string {
	return fmt.Sprintf("%020d-%d.journal", timestampMicros, counter)
}

func parseArchivedFileName(name string) (timestampMicros, counter uint64, ok bool) {
	if !strings.HasSuffix(name, ".journal") || name == activeFileName {
		return 0, 0, false
	}
	base := strings.TrimSuffix(name, ".journal")
	parts := strings.SplitN(base, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	ts, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	ctr, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return ts, ctr, true
}
