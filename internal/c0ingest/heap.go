// Package c0ingest bundles the per-drain context used when a KVMS
// (c0's in-memory key-value multi-set) is pushed through the ingest
// pipeline: a bounded merge-iterator over the KVMS's source iterators and
// the phase-timing bookkeeping recorded as a unit drains.
package c0ingest

import (
	"bytes"
	"container/heap"

	"github.com/hse-go/kvengine/internal/merr"
)

// MaxKVSetIters bounds how many source iterators a single ingest work
// unit's merge-heap can hold.
const MaxKVSetIters = 32

// SourceIter is one KVMS source iterator: a sorted stream of (key, seqno)
// pairs. The KVMS layer that produces these is an external collaborator;
// this package only consumes the interface.
type SourceIter interface {
	Valid() bool
	Key() []byte
	Seqno() uint64
	Value() []byte
	Next()
}

type heapItem struct {
	src   SourceIter
	key   []byte
	seqno uint64
}

// sourceHeap is a binary min-heap ordered by (key, seqno) with a
// newest-seqno-first tie-break: among equal keys, the higher seqno sorts
// first so the merge surfaces the most recent write for a key before its
// older versions.
type sourceHeap struct {
	items []heapItem
}

func (h *sourceHeap) Len() int { return len(h.items) }

func (h *sourceHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if c := bytes.Compare(a.key, b.key); c != 0 {
		return c < 0
	}
	return a.seqno > b.seqno
}

func (h *sourceHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *sourceHeap) Push(x any) {
	item, ok := x.(heapItem)
	if !ok {
		return
	}
	h.items = append(h.items, item)
}

func (h *sourceHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// MinHeap is the bounded merge-iterator over up to MaxKVSetIters source
// iterators, always positioned (after Prepare/Advance) at the globally
// smallest (key, seqno) pair across all live sources.
type MinHeap struct {
	h   *sourceHeap
	cap int
}

// newMinHeap builds an empty heap with the given capacity, which must be in
// [1, MaxKVSetIters]. A capacity request outside that range is rejected as
// out-of-memory, mirroring the teacher's heap-allocation-failure contract
// even though Go's make() itself cannot fail here.
func newMinHeap(capacity int) (*MinHeap, error) {
	if capacity <= 0 || capacity > MaxKVSetIters {
		return nil, merr.New(merr.KindOutOfMemory, "c0ingest.newMinHeap", "capacity out of range")
	}
	return &MinHeap{h: &sourceHeap{items: make([]heapItem, 0, capacity)}, cap: capacity}, nil
}

// Prepare seeds the heap from sources that are currently Valid and
// heapifies it. Sources beyond the heap's capacity are rejected.
func (m *MinHeap) Prepare(sources []SourceIter) error {
	if len(sources) > m.cap {
		return merr.New(merr.KindBadArgument, "c0ingest.Prepare", "too many source iterators")
	}
	m.h.items = m.h.items[:0]
	for _, s := range sources {
		if s.Valid() {
			m.h.items = append(m.h.items, heapItem{src: s, key: s.Key(), seqno: s.Seqno()})
		}
	}
	heap.Init(m.h)
	return nil
}

// Valid reports whether the heap currently has a smallest element.
func (m *MinHeap) Valid() bool { return m.h.Len() > 0 }

// Key returns the current smallest key, or nil if Valid is false.
func (m *MinHeap) Key() []byte {
	if !m.Valid() {
		return nil
	}
	return m.h.items[0].key
}

// Value returns the value for the current smallest entry.
func (m *MinHeap) Value() []byte {
	if !m.Valid() {
		return nil
	}
	return m.h.items[0].src.Value()
}

// Seqno returns the seqno for the current smallest entry.
func (m *MinHeap) Seqno() uint64 {
	if !m.Valid() {
		return 0
	}
	return m.h.items[0].seqno
}

// Advance pops the current minimum's source forward and re-heapifies,
// dropping the source entirely once it's exhausted.
func (m *MinHeap) Advance() {
	if !m.Valid() {
		return
	}
	top := &m.h.items[0]
	top.src.Next()
	if top.src.Valid() {
		top.key = top.src.Key()
		top.seqno = top.src.Seqno()
		heap.Fix(m.h, 0)
	} else {
		heap.Pop(m.h)
	}
}

// reset empties the heap without releasing its backing array, so a Work
// unit can be reused across drains without reallocating.
func (m *MinHeap) reset() {
	m.h.items = m.h.items[:0]
}

// Len reports how many source iterators are currently live in the heap.
func (m *MinHeap) Len() int { return m.h.Len() }
