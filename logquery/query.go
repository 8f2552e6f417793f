// Package logquery implements the per-file binary-search/scan plan and the
// cross-file merge that together answer a LogQuery against a set of
// journal files and their fileindex.Index snapshots.
package logquery

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/rpcpool/logjournal/fieldremap"
	"github.com/rpcpool/logjournal/fileindex"
	"github.com/rpcpool/logjournal/filter"
	"github.com/rpcpool/logjournal/journal"
	"github.com/rpcpool/logjournal/metrics"
)

// AnchorKind selects how an Anchor's position is resolved.
type AnchorKind int

const (
	AnchorHead AnchorKind = iota
	AnchorTail
	AnchorTimestamp
)

// Anchor is the point a query starts scanning from.
type Anchor struct {
	Kind      AnchorKind
	Timestamp uint64 // valid only when Kind == AnchorTimestamp
}

// Direction is the scan direction relative to the anchor.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// FieldValue is one decoded, original-named field=value pair in a result.
type FieldValue struct {
	Field string
	Value string
}

// LogEntryData is one result row.
type LogEntryData struct {
	FileID    [16]byte
	Offset    uint64
	Timestamp uint64
	Position  int
	Fields    []FieldValue
}

// Query describes one find-log-entries request.
type Query struct {
	Anchor    Anchor
	Direction Direction

	// Limit caps the number of results; nil means unlimited.
	Limit *int

	// After is an inclusive lower timestamp bound, Before an exclusive
	// upper one; both in microseconds. If both are set, After must be <
	// Before.
	After  *uint64
	Before *uint64

	// SourceTimestampField, in original (pre-remap) form, overrides
	// realtime as each entry's effective timestamp when present.
	SourceTimestampField string

	Filter filter.Expression
	Regex  *regexp.Regexp

	// ResumePosition continues a previous page within one file: the
	// scan starts at ResumePosition±1 (direction-dependent) and skips
	// the anchor binary search entirely.
	ResumePosition *int
}

func (q Query) resolvedSourceField(registry *fieldremap.Registry) string {
	if q.SourceTimestampField == "" {
		return ""
	}
	if registry == nil {
		return q.SourceTimestampField
	}
	if encoded, ok := registry.Encoded(q.SourceTimestampField); ok {
		return encoded
	}
	return q.SourceTimestampField
}

// FindLogEntries executes q against one file's index, returning the
// matching entries in scan order and the position of the last one
// returned (-1 if none), for use as a future ResumePosition.
func FindLogEntries(f *journal.File, idx *fileindex.Index, registry *fieldremap.Registry, q Query) ([]LogEntryData, int, error) {
	directionLabel := "forward"
	if q.Direction == Backward {
		directionLabel = "backward"
	}
	start := time.Now()
	defer func() {
		metrics.QueryLatencyHistogram.WithLabelValues(directionLabel).Observe(time.Since(start).Seconds())
	}()

	if q.After != nil && q.Before != nil && *q.After >= *q.Before {
		return nil, -1, fmt.Errorf("logquery: after (%d) must be < before (%d)", *q.After, *q.Before)
	}

	candidates := candidatePositions(idx, q.Filter)
	if len(candidates) == 0 {
		return nil, -1, nil
	}

	sourceField := q.resolvedSourceField(registry)
	effTs := func(pos int) uint64 {
		ts, err := effectiveTimestamp(f, idx.EntryOffsets[pos], sourceField)
		if err != nil {
			return idx.EntryOffsets[pos] // degrade gracefully; never used as a real timestamp comparison winner
		}
		return ts
	}

	step := 1
	if q.Direction == Backward {
		step = -1
	}

	var start int
	if q.ResumePosition != nil {
		at := sort.SearchInts(candidates, *q.ResumePosition)
		if at >= len(candidates) || candidates[at] != *q.ResumePosition {
			return nil, -1, fmt.Errorf("logquery: resume position %d not among candidates", *q.ResumePosition)
		}
		start = at + step
	} else {
		anchorTs := resolveAnchor(idx, q.Anchor)
		start = binarySearchAnchor(q.Direction, anchorTs, candidates, effTs)
	}

	var regexCache map[uint64]bool
	if q.Regex != nil {
		regexCache = make(map[uint64]bool)
	}

	limit := -1
	if q.Limit != nil {
		limit = *q.Limit
	}

	var results []LogEntryData
	lastPos := -1
	for i := start; i >= 0 && i < len(candidates); i += step {
		pos := candidates[i]
		offset := idx.EntryOffsets[pos]
		ts := effTs(pos)

		if q.After != nil && ts < *q.After {
			if q.Direction == Forward {
				continue
			}
			break
		}
		if q.Before != nil && ts >= *q.Before {
			if q.Direction == Forward {
				break
			}
			continue
		}

		if q.Regex != nil {
			matched, err := regexMatchEntry(f, offset, regexCache, q.Regex)
			if err != nil {
				return nil, -1, fmt.Errorf("logquery: regex match at offset %d: %w", offset, err)
			}
			if !matched {
				continue
			}
		}

		entry, err := decodeEntry(f, idx.FileID, offset, pos, ts, registry)
		if err != nil {
			return nil, -1, fmt.Errorf("logquery: decode entry at offset %d: %w", offset, err)
		}
		results = append(results, entry)
		lastPos = pos

		if limit >= 0 && len(results) >= limit {
			break
		}
	}

	metrics.QueryResultsReturnedTotal.Add(float64(len(results)))
	return results, lastPos, nil
}

func resolveAnchor(idx *fileindex.Index, a Anchor) uint64 {
	switch a.Kind {
	case AnchorHead:
		return idx.StartTime
	case AnchorTail:
		return idx.EndTime
	default:
		return a.Timestamp
	}
}

func candidatePositions(idx *fileindex.Index, expr filter.Expression) []int {
	if expr == nil {
		out := make([]int, idx.Len())
		for i := range out {
			out[i] = i
		}
		return out
	}
	bm := expr.Eval(idx)
	it := bm.Iterator()
	var out []int
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	sort.Ints(out)
	return out
}

// binarySearchAnchor finds, within candidates (ascending position order,
// which tracks ascending time order), the index to start scanning from:
// the first candidate at/after the anchor when scanning forward, or the
// last candidate at/before the anchor when scanning backward.
func binarySearchAnchor(dir Direction, anchorTs uint64, candidates []int, effTs func(int) uint64) int {
	if dir == Forward {
		return sort.Search(len(candidates), func(i int) bool {
			return effTs(candidates[i]) >= anchorTs
		})
	}
	idx := sort.Search(len(candidates), func(i int) bool {
		return effTs(candidates[i]) > anchorTs
	})
	return idx - 1
}

func effectiveTimestamp(f *journal.File, offset uint64, encodedSourceField string) (uint64, error) {
	e, v, err := f.GetEntry(offset)
	if err != nil {
		return 0, err
	}
	if encodedSourceField == "" {
		rt := e.Realtime
		v.Release()
		return rt, nil
	}
	items := e.Items
	realtime := e.Realtime
	v.Release()
	for _, item := range items {
		d, dv, err := f.GetData(item.ObjectOffset)
		if err != nil {
			return 0, err
		}
		fname, value, ok := splitPayload(d.Payload)
		dv.Release()
		if ok && fname == encodedSourceField {
			ts, perr := strconv.ParseUint(value, 10, 64)
			if perr != nil {
				return realtime, nil
			}
			return ts, nil
		}
	}
	return realtime, nil
}

func regexMatchEntry(f *journal.File, offset uint64, cache map[uint64]bool, re *regexp.Regexp) (bool, error) {
	e, v, err := f.GetEntry(offset)
	if err != nil {
		return false, err
	}
	items := e.Items
	v.Release()
	for _, item := range items {
		if m, ok := cache[item.ObjectOffset]; ok {
			if m {
				return true, nil
			}
			continue
		}
		d, dv, err := f.GetData(item.ObjectOffset)
		if err != nil {
			return false, err
		}
		matched := re.Match(d.Payload)
		dv.Release()
		cache[item.ObjectOffset] = matched
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func decodeEntry(f *journal.File, fileID [16]byte, offset uint64, pos int, ts uint64, registry *fieldremap.Registry) (LogEntryData, error) {
	e, v, err := f.GetEntry(offset)
	if err != nil {
		return LogEntryData{}, err
	}
	items := e.Items
	v.Release()

	fields := make([]FieldValue, 0, len(items))
	for _, item := range items {
		d, dv, err := f.GetData(item.ObjectOffset)
		if err != nil {
			return LogEntryData{}, err
		}
		fname, value, ok := splitPayload(d.Payload)
		dv.Release()
		if !ok || fieldremap.IsSentinel([]byte(fname)) {
			continue
		}
		original := fname
		if registry != nil {
			if orig, ok := registry.Original(fname); ok {
				original = orig
			}
		}
		fields = append(fields, FieldValue{Field: original, Value: value})
	}

	return LogEntryData{
		FileID:    fileID,
		Offset:    offset,
		Timestamp: ts,
		Position:  pos,
		Fields:    fields,
	}, nil
}

func splitPayload(payload []byte) (field, value string, ok bool) {
	for i, b := range payload {
		if b == '=' {
			return string(payload[:i]), string(payload[i+1:]), true
		}
	}
	return "", "", false
}
