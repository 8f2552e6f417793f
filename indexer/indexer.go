// Package indexer builds a fileindex.Index from a journal.File, tolerating
// concurrent appends by taking a single tail_object_offset snapshot up
// front and ignoring anything written after it.
package indexer

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/rpcpool/logjournal/fieldremap"
	"github.com/rpcpool/logjournal/fileindex"
	"github.com/rpcpool/logjournal/histogram"
	"github.com/rpcpool/logjournal/jobj"
	"github.com/rpcpool/logjournal/journal"
	"github.com/rpcpool/logjournal/metrics"
)

// Options configures one Build call.
type Options struct {
	// SourceTimestampField, if set, names the field (in original,
	// pre-remap form) whose value orders entries; entries missing it
	// fall back to their realtime timestamp.
	SourceTimestampField string

	// BucketDuration is the histogram's bucket width, in seconds.
	BucketDuration uint64

	// Fields lists the original field names to build (field,value)
	// bitmaps for.
	Fields []string

	// Registry resolves original field names to their on-disk encoded
	// form; nil means no remapping is in effect.
	Registry *fieldremap.Registry

	Logger *slog.Logger
}

func (o Options) resolve(field string) string {
	if o.Registry == nil {
		return field
	}
	if encoded, ok := o.Registry.Encoded(field); ok {
		return encoded
	}
	return field
}

type timedOffset struct {
	ts     uint64
	offset uint64
}

// Build produces a fileindex.Index for f per the options given.
func Build(f *journal.File, opts Options) (*fileindex.Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hdr := f.Header()
	compactLabel := "false"
	if hdr.Compact() {
		compactLabel = "true"
	}
	start := time.Now()
	defer func() {
		metrics.IndexBuildLatencyHistogram.WithLabelValues(compactLabel).Observe(time.Since(start).Seconds())
	}()

	tail := hdr.TailObjectOffset
	if tail == 0 {
		return nil, fmt.Errorf("indexer: file has no tail_object_offset to snapshot from")
	}

	entryList := f.EntryList()
	n, err := entryList.Len()
	if err != nil {
		return nil, fmt.Errorf("indexer: read entry list: %w", err)
	}

	sourceField := ""
	if opts.SourceTimestampField != "" {
		sourceField = opts.resolve(opts.SourceTimestampField)
	}

	matchedBySource := make(map[uint64]bool)
	var pairs []timedOffset
	fileFields := make(map[string]struct{})

	if sourceField != "" {
		if err := collectSourceTimestamps(f, sourceField, tail, &pairs, matchedBySource, logger); err != nil {
			return nil, err
		}
	}

	for i := 0; i < n; i++ {
		offset, err := entryList.At(i)
		if err != nil {
			return nil, fmt.Errorf("indexer: read entry offset %d: %w", i, err)
		}
		if offset >= tail {
			break
		}
		e, v, err := f.GetEntry(offset)
		if err != nil {
			return nil, fmt.Errorf("indexer: read entry at %d: %w", offset, err)
		}
		for _, item := range e.Items {
			d, dv, err := f.GetData(item.ObjectOffset)
			if err != nil {
				v.Release()
				return nil, fmt.Errorf("indexer: read data at %d: %w", item.ObjectOffset, err)
			}
			if fname, _, ok := splitPayload(d.Payload); ok {
				fileFields[fname] = struct{}{}
			}
			dv.Release()
		}
		v.Release()
		if !matchedBySource[offset] {
			pairs = append(pairs, timedOffset{ts: e.Realtime, offset: offset})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].ts != pairs[j].ts {
			return pairs[i].ts < pairs[j].ts
		}
		return pairs[i].offset < pairs[j].offset
	})

	entryOffsets := make([]uint64, len(pairs))
	timestamps := make([]uint64, len(pairs))
	for i, p := range pairs {
		entryOffsets[i] = p.offset
		timestamps[i] = p.ts
	}

	idx := fileindex.New(hdr.FileID, tail, hdr.State == jobj.StateOnline, time.Now())
	idx.SetEntryOffsets(entryOffsets)
	idx.Histogram = histogram.Build(opts.BucketDuration, timestamps)
	if len(timestamps) > 0 {
		idx.StartTime = timestamps[0]
		idx.EndTime = timestamps[len(timestamps)-1]
	}
	idx.FileFields = fileFields

	for _, field := range opts.Fields {
		if err := indexField(f, idx, field, opts.resolve(field), tail, logger); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

func collectSourceTimestamps(f *journal.File, encodedField string, tail uint64, pairs *[]timedOffset, matched map[uint64]bool, logger *slog.Logger) error {
	fieldOffset, found, err := f.LookupField([]byte(encodedField))
	if err != nil {
		return fmt.Errorf("indexer: lookup source timestamp field: %w", err)
	}
	if !found {
		return nil
	}
	fld, v, err := f.GetField(fieldOffset)
	if err != nil {
		return fmt.Errorf("indexer: read source timestamp field: %w", err)
	}
	dataOffset := fld.HeadDataOffset
	v.Release()

	for dataOffset != 0 {
		if dataOffset >= tail {
			break
		}
		d, dv, err := f.GetData(dataOffset)
		if err != nil {
			logger.Warn("indexer: corrupt data object, stopping this field's chain", "offset", dataOffset, "err", err)
			break
		}
		_, value, ok := splitPayload(d.Payload)
		next := d.NextFieldOffset
		dv.Release()
		if !ok {
			dataOffset = next
			continue
		}
		ts, perr := strconv.ParseUint(value, 10, 64)
		if perr != nil {
			logger.Warn("indexer: unparseable source timestamp value, skipping", "offset", dataOffset, "value", value, "err", perr)
			dataOffset = next
			continue
		}
		list, err := f.DataEntryList(dataOffset)
		if err != nil {
			return fmt.Errorf("indexer: read entry list for data at %d: %w", dataOffset, err)
		}
		ln, err := list.Len()
		if err != nil {
			return fmt.Errorf("indexer: entry list length at %d: %w", dataOffset, err)
		}
		for i := 0; i < ln; i++ {
			eo, err := list.At(i)
			if err != nil {
				return fmt.Errorf("indexer: entry list item %d at %d: %w", i, dataOffset, err)
			}
			if eo >= tail {
				continue
			}
			*pairs = append(*pairs, timedOffset{ts: ts, offset: eo})
			matched[eo] = true
		}
		dataOffset = next
	}
	return nil
}

func indexField(f *journal.File, idx *fileindex.Index, originalField, encodedField string, tail uint64, logger *slog.Logger) error {
	fieldOffset, found, err := f.LookupField([]byte(encodedField))
	if err != nil {
		return fmt.Errorf("indexer: lookup field %q: %w", encodedField, err)
	}
	if !found {
		return nil
	}
	idx.IndexedFields[originalField] = struct{}{}

	fld, v, err := f.GetField(fieldOffset)
	if err != nil {
		return fmt.Errorf("indexer: read field %q: %w", encodedField, err)
	}
	dataOffset := fld.HeadDataOffset
	v.Release()

	for dataOffset != 0 {
		if dataOffset >= tail {
			break
		}
		d, dv, err := f.GetData(dataOffset)
		if err != nil {
			logger.Warn("indexer: corrupt data object, stopping this field's chain", "offset", dataOffset, "err", err)
			break
		}
		fname, value, ok := splitPayload(d.Payload)
		next := d.NextFieldOffset
		dv.Release()
		if !ok || fieldremap.IsSentinel([]byte(fname)) {
			dataOffset = next
			continue
		}

		list, err := f.DataEntryList(dataOffset)
		if err != nil {
			return fmt.Errorf("indexer: read entry list at %d: %w", dataOffset, err)
		}
		ln, err := list.Len()
		if err != nil {
			return fmt.Errorf("indexer: entry list length at %d: %w", dataOffset, err)
		}

		var positions []int
		for i := 0; i < ln; i++ {
			eo, err := list.At(i)
			if err != nil {
				return fmt.Errorf("indexer: entry list item %d at %d: %w", i, dataOffset, err)
			}
			if eo >= tail {
				continue
			}
			pos, ok := idx.Position(eo)
			if !ok {
				continue
			}
			positions = append(positions, pos)
		}
		sort.Ints(positions)

		bm := roaring.NewBitmap()
		for _, p := range positions {
			bm.Add(uint32(p))
		}
		bm.RunOptimize()
		idx.Bitmaps[fileindex.FieldValuePair{Field: originalField, Value: value}] = bm

		dataOffset = next
	}
	return nil
}

func splitPayload(payload []byte) (field, value string, ok bool) {
	for i, b := range payload {
		if b == '=' {
			return string(payload[:i]), string(payload[i+1:]), true
		}
	}
	return "", "", false
}
