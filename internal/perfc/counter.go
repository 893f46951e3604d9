package perfc

import (
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/cpuid/v2"
)

// ValPerCnt and ValPerCpu name the original's per-counter value-block
// dimensions. The counters in this package do not use them: each counter
// holds one cache-line-padded cell per stripe (see numStripes), not a
// ValPerCnt x ValPerCpu block.
const (
	ValPerCnt = 8
	ValPerCpu = 8
	// PctScale is the fixed-point scale lossy sampling percentages are
	// expressed in (e.g. a 1.00% sample rate is encoded as 100).
	PctScale = 10000
)

// numStripes returns the per-counter value-cell count: the host's logical
// core count, capped, so striping overhead stays bounded on very large
// machines. cpuid avoids the portability problems of reading a live CPU id
// on every Add/Record call.
func numStripes() int {
	n := cpuid.CPU.LogicalCores
	if n < 1 {
		n = 1
	}
	if n > 128 {
		n = 128
	}
	return n
}

// valCell is one per-stripe add/subtract pair for a basic-kind counter,
// padded to a cache line so concurrent stripes never false-share.
type valCell struct {
	vadd atomic.Uint64
	vsub atomic.Uint64
	_    [48]byte
}

// Basic is the simplest counter kind: per-stripe add/subtract, value is
// max(0, Sum(add) - Sum(sub)).
type Basic struct {
	name  string
	level int
	cells []valCell
}

// NewBasic creates a Basic counter striped across the host's logical cores.
func NewBasic(name string, level int) *Basic {
	return &Basic{name: name, level: level, cells: make([]valCell, numStripes())}
}

func (b *Basic) stripe() *valCell {
	return &b.cells[stripeIndex(len(b.cells))]
}

// Add increments the counter by n.
func (b *Basic) Add(n uint64) { b.stripe().vadd.Add(n) }

// Sub decrements the counter by n.
func (b *Basic) Sub(n uint64) { b.stripe().vsub.Add(n) }

func (b *Basic) sums() (vadd, vsub uint64) {
	for i := range b.cells {
		vadd += b.cells[i].vadd.Load()
		vsub += b.cells[i].vsub.Load()
	}
	return
}

// Value returns the counter's current value.
func (b *Basic) Value() uint64 {
	vadd, vsub := b.sums()
	if vadd > vsub {
		return vadd - vsub
	}
	return 0
}

// Name returns the counter's name.
func (b *Basic) Name() string { return b.name }

// Kind returns KindBasic.
func (b *Basic) Kind() Kind { return KindBasic }

// Emit renders the counter's emit fields per spec.md §4.B.
func (b *Basic) Emit() map[string]any {
	return map[string]any{"value": b.Value()}
}

// stripeIndex picks a pseudo-random stripe for the current call. A true
// getcpu()-indexed stripe would need a syscall per call; Go has no portable
// equivalent, so contention is instead spread via a fast per-call PRNG draw,
// which has the same amortized effect (see design note 2's register/stripe
// discussion).
func stripeIndex(n int) int {
	if n == 1 {
		return 0
	}
	return rand.IntN(n)
}

// Rate wraps a Basic counter with a delta-over-time view.
type Rate struct {
	*Basic
	mu        sync.Mutex
	oldTimeNs int64
	oldVal    uint64
}

// NewRate creates a Rate counter.
func NewRate(name string, level int) *Rate {
	return &Rate{Basic: NewBasic(name, level)}
}

func (r *Rate) Kind() Kind { return KindRate }

// Emit computes delta_ns/current/previous/rate exactly as perfc_ra_emit.
func (r *Rate) Emit() map[string]any {
	currNs := time.Now().UnixNano()

	r.mu.Lock()
	dt := currNs - r.oldTimeNs
	if r.oldTimeNs == 0 || currNs < r.oldTimeNs {
		dt = 0
	}
	prev := r.oldVal
	curr := r.Value()
	r.oldTimeNs = currNs
	r.oldVal = curr
	r.mu.Unlock()

	var dx int64
	if curr >= prev {
		dx = int64(curr - prev)
	} else {
		dx = -int64(prev - curr)
	}
	var ops int64
	if dt > 0 {
		ops = dx * int64(time.Second) / dt
	}

	vadd, vsub := r.sums()
	out := map[string]any{
		"delta_ns": dt,
		"current":  curr,
		"previous": prev,
		"rate":     ops,
	}
	if vsub > 0 {
		out["vadd"] = vadd
		out["vsub"] = vsub
	} else {
		out["vadd"] = nil
		out["vsub"] = nil
	}
	return out
}

// latCell is one per-stripe sum/hits pair for a simple-latency counter.
type latCell struct {
	sum  atomic.Uint64
	hits atomic.Uint64
	_    [48]byte
}

// SimpleLatency records a running sum and hit count of latency samples,
// with no histogram or sampling.
type SimpleLatency struct {
	name  string
	level int
	cells []latCell
}

// NewSimpleLatency creates a SimpleLatency counter.
func NewSimpleLatency(name string, level int) *SimpleLatency {
	return &SimpleLatency{name: name, level: level, cells: make([]latCell, numStripes())}
}

func (s *SimpleLatency) Name() string { return s.name }
func (s *SimpleLatency) Kind() Kind   { return KindSimpleLatency }

// Record adds one latency sample, unconditionally (no sampling — the
// original reserves sampling for the histogram-bearing kinds).
func (s *SimpleLatency) Record(ns uint64) {
	c := &s.cells[stripeIndex(len(s.cells))]
	c.sum.Add(ns)
	c.hits.Add(1)
}

// Emit renders {sum, hits}.
func (s *SimpleLatency) Emit() map[string]any {
	var sum, hits uint64
	for i := range s.cells {
		sum += s.cells[i].sum.Load()
		hits += s.cells[i].hits.Load()
	}
	return map[string]any{"sum": sum, "hits": hits}
}

// bktCell is one (stripe, bucket) add/hits pair.
type bktCell struct {
	vadd atomic.Uint64
	hits atomic.Uint64
	_    [48]byte
}

// Dist is the shared implementation behind KindLatency and
// KindDistribution: a histogram over Ivl's buckets, a running min/max, and
// lossy sampling gated at samplePct (scaled by PctScale).
type Dist struct {
	name      string
	level     int
	kind      Kind
	ivl       *Ivl
	buckets   [][]bktCell // [bucket][stripe]
	samplePct uint64      // 0..PctScale
	min       atomic.Uint64
	max       atomic.Uint64
}

func newDist(name string, level int, kind Kind, ivl *Ivl, samplePct float64) *Dist {
	n := len(ivl.Bound) + 1
	buckets := make([][]bktCell, n)
	stripes := numStripes()
	for i := range buckets {
		buckets[i] = make([]bktCell, stripes)
	}
	d := &Dist{name: name, level: level, kind: kind, ivl: ivl, samplePct: uint64(samplePct * PctScale)}
	d.buckets = buckets
	d.min.Store(math.MaxUint64)
	return d
}

// NewLatency creates a KindLatency counter over ivl, sampling a fraction
// samplePct (0.0-1.0) of Record calls.
func NewLatency(name string, level int, ivl *Ivl, samplePct float64) *Dist {
	return newDist(name, level, KindLatency, ivl, samplePct)
}

// NewDistribution creates a KindDistribution counter over ivl, sampling a
// fraction samplePct (0.0-1.0) of Record calls.
func NewDistribution(name string, level int, ivl *Ivl, samplePct float64) *Dist {
	return newDist(name, level, KindDistribution, ivl, samplePct)
}

func (d *Dist) Name() string { return d.name }
func (d *Dist) Kind() Kind   { return d.kind }

// sampled reports whether this call should record, per the lossy-by-design
// sampler: draw mod PctScale and compare against the configured percentage.
func (d *Dist) sampled() bool {
	return rand.Uint64()%PctScale < d.samplePct
}

// Record records one sample of value x (a latency in nanoseconds, or any
// other magnitude for a general distribution counter), subject to lossy
// sampling.
func (d *Dist) Record(x uint64) {
	if !d.sampled() {
		return
	}
	idx := d.ivl.IndexFor(x)
	c := &d.buckets[idx][stripeIndex(len(d.buckets[idx]))]
	c.vadd.Add(x)
	c.hits.Add(1)

	for {
		old := d.min.Load()
		if x >= old || d.min.CompareAndSwap(old, x) {
			break
		}
	}
	for {
		old := d.max.Load()
		if x <= old || d.max.CompareAndSwap(old, x) {
			break
		}
	}
}

// Emit renders the histogram/min/max/average/sum/hits/percentage fields
// exactly as perfc_di_emit.
func (d *Dist) Emit() map[string]any {
	histogram := make([]map[string]any, len(d.buckets))
	var bound uint64
	var samples, sum uint64

	for i := range d.buckets {
		var hits, val uint64
		for s := range d.buckets[i] {
			val += d.buckets[i][s].vadd.Load()
			hits += d.buckets[i][s].hits.Load()
		}
		var avg uint64
		if hits > 0 {
			avg = val / hits
		}
		histogram[i] = map[string]any{
			"hits":     hits,
			"average":  avg,
			"boundary": bound,
		}
		if i < len(d.ivl.Bound) {
			bound = d.ivl.Bound[i]
		}
		samples += hits
		sum += val
	}

	var avg uint64
	if samples > 0 {
		avg = sum / samples
	}

	min := d.min.Load()
	if min == math.MaxUint64 {
		min = 0
	}
	hits := samples
	if hits == 0 {
		hits = 1
	}

	return map[string]any{
		"histogram":  histogram,
		"minimum":    min,
		"maximum":    d.max.Load(),
		"average":    avg,
		"sum":        sum,
		"hits":       hits,
		"percentage": float64(d.samplePct) * 100 / PctScale,
	}
}
