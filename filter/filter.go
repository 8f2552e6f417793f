// Package filter implements the match/exists/and/or algebra evaluated
// against a fileindex.Index's posting-list bitmaps.
package filter

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/rpcpool/logjournal/fileindex"
)

// Expression is a filter term or combinator. Eval never mutates idx and
// returns a bitmap the caller owns.
type Expression interface {
	Eval(idx *fileindex.Index) *roaring.Bitmap
}

// MatchFieldValuePair matches entries where Field carried exactly Value.
type MatchFieldValuePair struct {
	Field string
	Value string
}

func (m MatchFieldValuePair) Eval(idx *fileindex.Index) *roaring.Bitmap {
	b, ok := idx.Bitmaps[fileindex.FieldValuePair{Field: m.Field, Value: m.Value}]
	if !ok {
		return roaring.NewBitmap()
	}
	return b.Clone()
}

// MatchFieldName matches entries carrying any value for Field.
type MatchFieldName struct {
	Field string
}

func (m MatchFieldName) Eval(idx *fileindex.Index) *roaring.Bitmap {
	out := roaring.NewBitmap()
	for pair, b := range idx.Bitmaps {
		if pair.Field == m.Field {
			out.Or(b)
		}
	}
	return out
}

// And matches the intersection of its children; an empty And matches
// nothing.
type And []Expression

func (a And) Eval(idx *fileindex.Index) *roaring.Bitmap {
	if len(a) == 0 {
		return roaring.NewBitmap()
	}
	result := a[0].Eval(idx)
	for _, child := range a[1:] {
		result.And(child.Eval(idx))
	}
	return result
}

// Or matches the union of its children; an empty Or matches nothing.
type Or []Expression

func (o Or) Eval(idx *fileindex.Index) *roaring.Bitmap {
	out := roaring.NewBitmap()
	for _, child := range o {
		out.Or(child.Eval(idx))
	}
	return out
}

// None matches nothing.
type None struct{}

func (None) Eval(idx *fileindex.Index) *roaring.Bitmap {
	return roaring.NewBitmap()
}
