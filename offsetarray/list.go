package offsetarray

import (
	"fmt"

	"github.com/rpcpool/logjournal/jobj"
)

// ArrayReader fetches the ENTRY_ARRAY object at a given file offset. The
// journal package implements this over its window manager; tests can
// implement it directly over an in-memory map.
type ArrayReader interface {
	ReadArray(offset uint64) (jobj.EntryArrayObject, error)
}

// node is one link of a chain, cached after first fetch.
type node struct {
	offset  uint64
	arr     jobj.EntryArrayObject
	loaded  bool
}

// List is the logical concatenation of every item across a chain of
// ENTRY_ARRAY objects starting at head. Nodes are fetched lazily and cached
// as they're visited; a List is not safe for concurrent use.
type List struct {
	reader ArrayReader
	head   uint64

	nodes      []node // in chain order, populated as discovered
	discovered bool    // true once the whole chain has been walked at least once
}

// NewList returns a List over the chain starting at head. A zero head means
// an empty list.
func NewList(reader ArrayReader, head uint64) *List {
	return &List{reader: reader, head: head}
}

// ensureNode loads and caches the i'th node of the chain, discovering nodes
// as needed. Returns false if the chain has fewer than i+1 nodes.
func (l *List) ensureNode(i int) (bool, error) {
	for len(l.nodes) <= i {
		var offset uint64
		if len(l.nodes) == 0 {
			offset = l.head
		} else {
			prev := l.nodes[len(l.nodes)-1]
			offset = prev.arr.NextArrayOffset
		}
		if offset == 0 {
			l.discovered = true
			return false, nil
		}
		arr, err := l.reader.ReadArray(offset)
		if err != nil {
			return false, fmt.Errorf("offsetarray: read array at %d: %w", offset, err)
		}
		// A partly filled tail node reads its unused slots as zero; they
		// are not items.
		for len(arr.Items) > 0 && arr.Items[len(arr.Items)-1] == 0 {
			arr.Items = arr.Items[:len(arr.Items)-1]
		}
		l.nodes = append(l.nodes, node{offset: offset, arr: arr, loaded: true})
	}
	return true, nil
}

// Len returns the total number of items across the whole chain, walking and
// caching every node if not already discovered.
func (l *List) Len() (int, error) {
	if l.head == 0 {
		return 0, nil
	}
	i := 0
	for {
		ok, err := l.ensureNode(i)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		i++
	}
	n := 0
	for _, nd := range l.nodes {
		n += len(nd.arr.Items)
	}
	return n, nil
}

// At returns the item at flattened index i, walking nodes as needed.
func (l *List) At(i int) (uint64, error) {
	if i < 0 {
		return 0, fmt.Errorf("offsetarray: negative index %d", i)
	}
	remaining := i
	nodeIdx := 0
	for {
		ok, err := l.ensureNode(nodeIdx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("offsetarray: index %d out of range", i)
		}
		items := l.nodes[nodeIdx].arr.Items
		if remaining < len(items) {
			return items[remaining], nil
		}
		remaining -= len(items)
		nodeIdx++
	}
}

// locate resolves a flattened index to (nodeIdx, itemIdx), loading nodes as
// needed.
func (l *List) locate(i int) (nodeIdx, itemIdx int, err error) {
	remaining := i
	nodeIdx = 0
	for {
		ok, e := l.ensureNode(nodeIdx)
		if e != nil {
			return 0, 0, e
		}
		if !ok {
			return 0, 0, fmt.Errorf("offsetarray: index %d out of range", i)
		}
		items := l.nodes[nodeIdx].arr.Items
		if remaining < len(items) {
			return nodeIdx, remaining, nil
		}
		remaining -= len(items)
		nodeIdx++
	}
}
