// Package region implements the free-space map backing each mblock media
// file: a set of disjoint, half-open [start, end) key intervals tracking
// which 32-bit block keys are currently FREE, not which are allocated.
//
// A freshly initialized Map covers the file's entire address space as one
// free interval. Alloc consumes keys from the leftmost free interval.
// Insert is used during crash recovery to carve an already-committed
// (allocated) key back out of the free map. Free returns a key to the map,
// coalescing with touching neighbors. Find reports whether a key currently
// sits inside a free interval.
package region

import (
	"sync"

	"github.com/hse-go/kvengine/internal/merr"
)

// Map is a mutex-guarded free-space interval map over the 32-bit key space
// [1, limit). Key 0 is never valid and is reserved as a not-found sentinel.
type Map struct {
	mu    sync.Mutex
	t     *tree
	limit uint32
}

// NewMap builds a Map whose entire address space [1, limit) starts out
// free, mirroring mblock_rgnmap_init's single initial region.
func NewMap(limit uint32) *Map {
	m := &Map{t: newTree(), limit: limit}
	if limit > 1 {
		m.t.insert(1, limit)
	}
	return m
}

// Alloc removes and returns the lowest free key, shrinking (or removing)
// the interval it came from. It returns KindOutOfSpace if no key is free.
func (m *Map) Alloc() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.t.root == nilNode {
		return 0, merr.New(merr.KindOutOfSpace, "region.Alloc", "no free blocks")
	}
	n := minimum(m.t.root)
	key := n.start
	n.start++
	if n.start >= n.end {
		m.t.delete(n)
	}
	return key, nil
}

// Insert marks key as allocated by carving it out of whichever free
// interval currently contains it. It is used during recovery to replay
// blocks that were committed before a crash. It returns KindNotFound if
// key is not inside any free interval (i.e. it is already allocated).
func (m *Map) Insert(key uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.t.findContaining(key)
	if n == nilNode {
		return merr.New(merr.KindNotFound, "region.Insert", "key not free")
	}

	switch {
	case key == n.start:
		n.start++
		if n.start >= n.end {
			m.t.delete(n)
		}
	case key == n.end-1:
		n.end--
	default:
		// key sits strictly inside the interval: split it in two, leaving
		// [n.start,key) in place and inserting (key,n.end) as a new node.
		tailStart, tailEnd := key+1, n.end
		n.end = key
		m.t.insert(tailStart, tailEnd)
	}
	return nil
}

// Free returns key to the free map, coalescing with whichever neighboring
// free interval(s) touch it. It returns KindNotFound if key is already
// free (a second free of the same key has nothing allocated to return).
func (m *Map) Free(key uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.t.findContaining(key) != nilNode {
		return merr.New(merr.KindNotFound, "region.Free", "key already free")
	}

	var left, right *node
	if key > 0 {
		if n := m.t.findContaining(key - 1); n != nilNode && n.end == key {
			left = n
		}
	}
	if n := m.t.findContaining(key + 1); n != nilNode && n.start == key+1 {
		right = n
	}

	switch {
	case left != nil && right != nil:
		// Both neighbors touch: absorb right into left and drop right.
		left.end = right.end
		m.t.delete(right)
	case left != nil:
		left.end++
	case right != nil:
		right.start--
	default:
		m.t.insert(key, key+1)
	}
	return nil
}

// Find reports whether key currently lies in a free interval. It returns
// KindNotFound if key is allocated (not present in the free map).
func (m *Map) Find(key uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.t.findContaining(key) == nilNode {
		return merr.New(merr.KindNotFound, "region.Find", "key not free")
	}
	return nil
}
