package c0ingest

import (
	"strconv"
	"testing"
	"time"

	"github.com/hse-go/kvengine/internal/logging"
	"github.com/hse-go/kvengine/internal/merr"
)

type fakeIter struct {
	entries [][2]any // [key string, seqno uint64]
	pos     int
}

func newFakeIter(pairs ...[2]any) *fakeIter { return &fakeIter{entries: pairs} }

func (f *fakeIter) Valid() bool    { return f.pos < len(f.entries) }
func (f *fakeIter) Key() []byte    { return []byte(f.entries[f.pos][0].(string)) }
func (f *fakeIter) Seqno() uint64  { return f.entries[f.pos][1].(uint64) }
func (f *fakeIter) Value() []byte  { return []byte("v") }
func (f *fakeIter) Next()          { f.pos++ }

func TestMinHeap_MergesByKeyThenNewestSeqnoFirst(t *testing.T) {
	a := newFakeIter([2]any{"a", uint64(1)}, [2]any{"c", uint64(5)})
	b := newFakeIter([2]any{"a", uint64(3)}, [2]any{"b", uint64(2)})

	h, err := newMinHeap(4)
	if err != nil {
		t.Fatalf("newMinHeap: %v", err)
	}
	if err := h.Prepare([]SourceIter{a, b}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	var order []string
	for h.Valid() {
		order = append(order, string(h.Key())+":"+strconv.FormatUint(h.Seqno(), 10))
		h.Advance()
	}

	want := []string{"a:3", "a:1", "b:2", "c:5"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestMinHeap_PrepareRejectsTooManySources(t *testing.T) {
	h, _ := newMinHeap(1)
	srcs := []SourceIter{newFakeIter([2]any{"a", uint64(1)}), newFakeIter([2]any{"b", uint64(1)})}
	if err := h.Prepare(srcs); merr.KindOf(err) != merr.KindBadArgument {
		t.Fatalf("Prepare with too many sources = %v, want KindBadArgument", err)
	}
}

func TestNewWork_CapacityOutOfRangeIsOutOfMemory(t *testing.T) {
	if _, err := NewWork(0); merr.KindOf(err) != merr.KindOutOfMemory {
		t.Fatalf("NewWork(0) = %v, want KindOutOfMemory", err)
	}
	if _, err := NewWork(MaxKVSetIters + 1); merr.KindOf(err) != merr.KindOutOfMemory {
		t.Fatalf("NewWork(too large) = %v, want KindOutOfMemory", err)
	}
}

func TestWork_FiniPoisonsMagicAndRejectsReuse(t *testing.T) {
	w, err := NewWork(4)
	if err != nil {
		t.Fatalf("NewWork: %v", err)
	}
	w.Stamp(PhaseEnqueued)
	w.Stamp(PhaseDestroyed)

	if err := w.Fini(logging.NewDefaultLogger(logging.LevelError)); err != nil {
		t.Fatalf("Fini: %v", err)
	}
	if err := w.Fini(logging.NewDefaultLogger(logging.LevelError)); merr.KindOf(err) != merr.KindInternal {
		t.Fatalf("second Fini = %v, want KindInternal (magic mismatch)", err)
	}
}

func TestWork_FiniClampsOutOfOrderStamps(t *testing.T) {
	w, err := NewWork(4)
	if err != nil {
		t.Fatalf("NewWork: %v", err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var calls int
	w.now = func() time.Time {
		calls++
		if calls == 3 {
			// Simulate clock skew: this phase's thread observes an earlier
			// wall-clock time than the phase before it.
			return base.Add(-time.Second)
		}
		return base.Add(time.Duration(calls) * time.Second)
	}

	w.Stamp(PhaseEnqueued)
	w.Stamp(PhaseBuilderReady)
	w.Stamp(PhaseRCUQuiesced) // skewed backwards
	w.Stamp(PhaseBinHeapPrepared)
	w.Stamp(PhaseIngestStarted)
	w.Stamp(PhaseIngestFinished)
	w.Stamp(PhaseCNIngestStarted)
	w.Stamp(PhaseCNIngestFinished)
	w.Stamp(PhaseDestroyed)

	if err := w.Fini(logging.NewDefaultLogger(logging.LevelError)); err != nil {
		t.Fatalf("Fini: %v", err)
	}
	for i := 1; i < int(phaseCount); i++ {
		if w.times[i].Before(w.times[i-1]) {
			t.Fatalf("times[%d]=%v is before times[%d]=%v after clamping", i, w.times[i], i-1, w.times[i-1])
		}
	}
}

func TestWork_ResetClearsStateForReuse(t *testing.T) {
	w, err := NewWork(4)
	if err != nil {
		t.Fatalf("NewWork: %v", err)
	}
	w.Usage.Keys = 10
	w.Gen = 5
	w.Stamp(PhaseEnqueued)

	w.Reset()

	if w.Usage.Keys != 0 || w.Gen != 0 {
		t.Fatalf("Reset left usage=%+v gen=%d", w.Usage, w.Gen)
	}
	if !w.times[PhaseEnqueued].IsZero() {
		t.Fatal("Reset left a stamped phase timestamp")
	}
}
