package logquery

import (
	"bytes"
	"math"
	"sort"

	"github.com/rpcpool/logjournal/fieldremap"
	"github.com/rpcpool/logjournal/fileindex"
	"github.com/rpcpool/logjournal/journal"
	"github.com/rpcpool/logjournal/metrics"
)

// FileHandle bundles the three things the merge planner needs per file: an
// open handle to read from, its snapshot index, and the registry that
// reverses its field-name remapping on output.
type FileHandle struct {
	File     *journal.File
	Index    *fileindex.Index
	Registry *fieldremap.Registry
}

// ResumeState is per-file pagination state: the last position returned
// from that file on the previous page. It is only valid for a following
// call with identical filter and query parameters.
type ResumeState map[[16]byte]int

// Merge resolves a query's anchor across every file, prunes files that
// cannot contribute, executes the per-file plan on each remaining file in
// temporal-proximity order, and merges their outputs via a direction-aware
// two-pointer merge, trimming to q.Limit after each file.
func Merge(files []FileHandle, q Query, resume ResumeState) ([]LogEntryData, ResumeState, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	anchorTs := resolveGlobalAnchor(files, q.Anchor)

	candidates := make([]FileHandle, 0, len(files))
	for _, fh := range files {
		if q.Direction == Forward {
			if fh.Index.EndTime >= anchorTs {
				candidates = append(candidates, fh)
			} else {
				metrics.QueryFilesPrunedTotal.WithLabelValues("anchor_range").Inc()
			}
		} else {
			if fh.Index.StartTime <= anchorTs {
				candidates = append(candidates, fh)
			} else {
				metrics.QueryFilesPrunedTotal.WithLabelValues("anchor_range").Inc()
			}
		}
	}
	if len(candidates) == 0 {
		return nil, ResumeState{}, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if q.Direction == Forward {
			return candidates[i].Index.StartTime < candidates[j].Index.StartTime
		}
		return candidates[i].Index.EndTime > candidates[j].Index.EndTime
	})

	limit := -1
	if q.Limit != nil {
		limit = *q.Limit
	}

	var merged []LogEntryData
	newResume := make(ResumeState, len(resume))
	for id, pos := range resume {
		newResume[id] = pos
	}

	for _, fh := range candidates {
		if limit >= 0 && len(merged) >= limit {
			boundary := merged[len(merged)-1].Timestamp
			if q.Direction == Forward && fh.Index.StartTime > boundary {
				metrics.QueryFilesPrunedTotal.WithLabelValues("limit_boundary").Inc()
				break
			}
			if q.Direction == Backward && fh.Index.EndTime < boundary {
				metrics.QueryFilesPrunedTotal.WithLabelValues("limit_boundary").Inc()
				break
			}
		}

		perFileQ := q
		perFileQ.Anchor = Anchor{Kind: AnchorTimestamp, Timestamp: anchorTs}
		if resume != nil {
			if rp, ok := resume[fh.Index.FileID]; ok {
				v := rp
				perFileQ.ResumePosition = &v
			}
		}
		entries, _, err := FindLogEntries(fh.File, fh.Index, fh.Registry, perFileQ)
		if err != nil {
			return nil, nil, err
		}

		merged = mergeSorted(merged, entries, q.Direction)
		if limit >= 0 && len(merged) > limit {
			merged = merged[:limit]
		}
	}

	for _, e := range merged {
		newResume[e.FileID] = e.Position
	}
	return merged, newResume, nil
}

func resolveGlobalAnchor(files []FileHandle, a Anchor) uint64 {
	switch a.Kind {
	case AnchorHead:
		min := uint64(math.MaxUint64)
		for _, fh := range files {
			if fh.Index.StartTime < min {
				min = fh.Index.StartTime
			}
		}
		return min
	case AnchorTail:
		var max uint64
		for _, fh := range files {
			if fh.Index.EndTime > max {
				max = fh.Index.EndTime
			}
		}
		return max
	default:
		return a.Timestamp
	}
}

// mergeSorted merges two slices already ordered per direction (ascending
// timestamp for Forward, descending for Backward), breaking ties by
// (file_id, offset) ascending as the spec's total order requires.
func mergeSorted(a, b []LogEntryData, dir Direction) []LogEntryData {
	less := func(x, y LogEntryData) bool {
		if x.Timestamp != y.Timestamp {
			if dir == Forward {
				return x.Timestamp < y.Timestamp
			}
			return x.Timestamp > y.Timestamp
		}
		if c := bytes.Compare(x.FileID[:], y.FileID[:]); c != 0 {
			return c < 0
		}
		return x.Offset < y.Offset
	}

	merged := make([]LogEntryData, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if less(b[j], a[i]) {
			merged = append(merged, b[j])
			j++
		} else {
			merged = append(merged, a[i])
			i++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	return merged
}
