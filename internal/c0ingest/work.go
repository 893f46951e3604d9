package c0ingest

import (
	"time"
	"unsafe"

	"github.com/hse-go/kvengine/internal/logging"
	"github.com/hse-go/kvengine/internal/merr"
)

// Phase indexes the nine timestamps a Work unit records as it drains.
// t0 through t8 are meaningful; t9 is reserved (the distilled source
// names phases "t0…t9" while listing only nine, so the tenth slot is
// kept but never stamped).
type Phase int

const (
	PhaseEnqueued Phase = iota
	PhaseBuilderReady
	PhaseRCUQuiesced
	PhaseBinHeapPrepared
	PhaseIngestStarted
	PhaseIngestFinished
	PhaseCNIngestStarted
	PhaseCNIngestFinished
	PhaseDestroyed
	phaseCount // = 9; index 9 (t9) stays zero/reserved
)

func (p Phase) String() string {
	switch p {
	case PhaseEnqueued:
		return "enqueued"
	case PhaseBuilderReady:
		return "builder-ready"
	case PhaseRCUQuiesced:
		return "rcu-quiesced"
	case PhaseBinHeapPrepared:
		return "bin-heap-prepared"
	case PhaseIngestStarted:
		return "ingest-started"
	case PhaseIngestFinished:
		return "ingest-finished"
	case PhaseCNIngestStarted:
		return "cn-ingest-started"
	case PhaseCNIngestFinished:
		return "cn-ingest-finished"
	case PhaseDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// poisonMagic overwrites Work.magic at teardown so any later use through
// a dangling reference fails loudly rather than silently corrupting state.
const poisonMagic = ^uintptr(0xdeadc0de)

// Usage accumulates the entry counts and byte totals a drain produces.
type Usage struct {
	Keys      uint64
	Tombs     uint64
	KeyBytes  uint64
	ValBytes  uint64
}

// Work bundles the per-drain context used when a KVMS is pushed through
// the ingest pipeline: a bounded merge-iterator over the KVMS's source
// iterators, running usage totals, generation numbers, and phase
// timestamps for logging drain latency.
type Work struct {
	magic uintptr

	Heap *MinHeap

	Usage Usage

	Gen    uint64
	GenCur uint64

	times [int(phaseCount) + 1]time.Time // index 9 (t9) reserved, never set

	// now is overridable so tests can inject a deterministic clock source
	// instead of wall-clock time.
	now func() time.Time
}

// NewWork allocates a Work unit with a merge-heap of the given source
// capacity (1 to MaxKVSetIters). Heap-creation failure, including an
// out-of-range capacity, is surfaced as out-of-memory.
func NewWork(capacity int) (*Work, error) {
	h, err := newMinHeap(capacity)
	if err != nil {
		return nil, err
	}
	w := &Work{Heap: h, now: time.Now}
	w.magic = uintptr(unsafe.Pointer(w))
	return w, nil
}

// Stamp records the current time (or the injected clock's time) for the
// given phase.
func (w *Work) Stamp(p Phase) {
	if p < 0 || p >= phaseCount {
		return
	}
	w.times[p] = w.now()
}

// Reset clears the iterator count and merge-heap for reuse across
// drains, without reallocating the heap's backing storage.
func (w *Work) Reset() {
	w.Heap.reset()
	w.Usage = Usage{}
	w.Gen = 0
	w.GenCur = 0
	for i := range w.times {
		w.times[i] = time.Time{}
	}
}

// Fini asserts the unit hasn't already been torn down, emits a single
// phase-timing log line (clamping each stamp to be monotone with the
// previous one, to hide clock skew across the threads that recorded
// them), and poisons magic so further use is detectable.
func (w *Work) Fini(log logging.Logger) error {
	const op = "c0ingest.Fini"
	if w.magic != uintptr(unsafe.Pointer(w)) {
		return merr.New(merr.KindInternal, op, "magic mismatch: use after Fini or corruption")
	}

	if !w.times[PhaseEnqueued].IsZero() {
		for i := 1; i < int(phaseCount); i++ {
			if w.times[i].Before(w.times[i-1]) {
				w.times[i] = w.times[i-1]
			}
		}
		w.logPhaseTimings(log)
	}

	w.magic = poisonMagic
	return nil
}

func (w *Work) logPhaseTimings(log logging.Logger) {
	if logging.IsNil(log) {
		return
	}
	d := func(i int) int64 {
		if w.times[i].IsZero() || w.times[i-1].IsZero() {
			return 0
		}
		return w.times[i].Sub(w.times[i-1]).Microseconds()
	}
	log.Infof(logging.NSIngest+"gen %d drain: enqueued->builder %dus builder->quiesce %dus quiesce->heap %dus heap->ingest %dus ingest %dus ingest->cn %dus cn %dus cn->done %dus",
		w.Gen,
		d(int(PhaseBuilderReady)),
		d(int(PhaseRCUQuiesced)),
		d(int(PhaseBinHeapPrepared)),
		d(int(PhaseIngestStarted)),
		d(int(PhaseIngestFinished)),
		d(int(PhaseCNIngestStarted)),
		d(int(PhaseCNIngestFinished)),
		d(int(PhaseDestroyed)),
	)
}
