package perfc

import (
	"math/bits"

	"github.com/hse-go/kvengine/internal/merr"
)

// IvlMax is the maximum number of histogram bucket boundaries a latency or
// distribution counter may carry.
const IvlMax = 32

// ivlMapSize sizes the ilog2 lookup table: one entry per bit position of a
// 64-bit sample, used to skip directly past histogram buckets a sample
// cannot possibly fall into before the final linear scan.
const ivlMapSize = 64

// ivlSignMask clears the sign bit before taking ilog2, mirroring the
// original's treatment of a sample as a 63-bit magnitude.
const ivlSignMask = uint64(0x7fffffffffffffff)

// Ivl is a histogram bucket-boundary vector plus its ilog2 skip table.
type Ivl struct {
	Bound []uint64
	Map   []int
}

// NewIvl builds an Ivl from an explicit ascending bound vector.
func NewIvl(bounds []uint64) (*Ivl, error) {
	if len(bounds) < 1 || len(bounds) > IvlMax {
		return nil, merr.New(merr.KindBadArgument, "perfc.NewIvl", "bound count out of [1,IvlMax]")
	}
	ivl := &Ivl{
		Bound: append([]uint64(nil), bounds...),
		Map:   make([]int, ivlMapSize),
	}
	i, j := 0, 0
	for i < len(ivl.Map) && j < len(ivl.Bound) {
		ivl.Map[i] = j
		if (uint64(1) << uint(i)) < ivl.Bound[j] {
			i++
		} else {
			j++
		}
	}
	if j >= len(ivl.Bound) {
		j--
	}
	for i < len(ivl.Map) {
		ivl.Map[i] = j
		i++
	}
	return ivl, nil
}

// NewDefaultIvl builds the default latency/distribution histogram bound
// vector: a 100ns step from 100ns to 1us (the first nine boundaries), then
// doubling, then (from index 23 on) quadrupling, each bound rounded down to
// one or two significant digits.
func NewDefaultIvl() *Ivl {
	boundv := make([]uint64, IvlMax)
	bound := uint64(100)
	for i := 0; i < IvlMax; i++ {
		if i < 9 {
			boundv[i] = bound * uint64(i+1)
			continue
		}
		if bound == 100 {
			bound = 1000
		}
		mult := uint64(1)
		b := bound
		for b > 30 {
			b /= 10
			mult *= 10
		}
		boundv[i] = b * mult
		if i < 23 {
			bound *= 2
		} else {
			bound *= 4
		}
	}
	ivl, err := NewIvl(boundv)
	if err != nil {
		panic(err) // boundv is always IvlMax long and in range
	}
	return ivl
}

// ilog2 returns the position of the highest set bit of x, or 0 for x == 0.
func ilog2(x uint64) int {
	if x == 0 {
		return 0
	}
	return bits.Len64(x) - 1
}

// IndexFor returns the histogram bucket index x falls into: the ilog2 skip
// table jumps near the right bucket, then a short linear scan finds the
// exact one.
func (ivl *Ivl) IndexFor(x uint64) int {
	i := ivl.Map[ilog2(x&ivlSignMask)]
	for i < len(ivl.Bound) && x >= ivl.Bound[i] {
		i++
	}
	return i
}
