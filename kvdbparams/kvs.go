package kvdbparams

import (
	"github.com/hse-go/kvengine/internal/param"
)

// kvsSpecs is the per-KVS parameter record: ingest/compaction knobs that a
// running KVS may tune (Writable) plus build-time-only shape parameters.
func kvsSpecs() []param.Spec {
	return param.NewSpecs([]param.Spec{
		{
			Name:        "cn_node_size_lo",
			Description: "CN node size below which a split is not considered, in MiB",
			Kind:        param.KindU32,
			Flags:       param.Writable,
			Default:     uint64(28),
			Bounds:      param.Bounds{Min: 1, Max: 1 << 16},
			Codec:       param.IntCodec{},
		},
		{
			Name:        "cn_node_size_hi",
			Description: "CN node size above which a split is forced, in MiB",
			Kind:        param.KindU32,
			Flags:       param.Writable,
			Default:     uint64(32),
			Bounds:      param.Bounds{Min: 1, Max: 1 << 16},
			Codec:       param.IntCodec{},
		},
		{
			Name:        "csched_hi_th_pct",
			Description: "percentage of the write-amplification budget that marks the scheduler as urgent",
			Kind:        param.KindU32,
			Flags:       param.Writable,
			Default:     uint64(95),
			Bounds:      param.Bounds{Min: 0, Max: 100},
			Codec:       param.IntCodec{},
		},
		{
			Name:        "c0_heap_sz_mb",
			Description: "per-KVS C0 (KVMS) heap budget, in MiB",
			Kind:        param.KindU32,
			Default:     uint64(512),
			Bounds:      param.Bounds{Min: 1, Max: 1 << 20},
			Codec:       param.IntCodec{},
		},
		{
			Name:        "c0_ingest_width",
			Description: "maximum number of bounded per-source iterators a single c0 ingest work item may merge",
			Kind:        param.KindU32,
			Default:     uint64(8),
			Bounds:      param.Bounds{Min: 1, Max: 64},
			Codec:       param.IntCodec{},
		},
		{
			Name:        "mclass_policy",
			Description: "name of the mclass_policies entry this KVS uses",
			Kind:        param.KindString,
			Flags:       param.Writable,
			Default:     "capacity_only",
			Codec:       param.StringCodec{},
		},
	})
}

// DefaultKVSParams builds a fresh per-KVS parameter Set from its built-in
// defaults. The Set is not yet built: every field stays settable until the
// caller calls Build.
func DefaultKVSParams() (*param.Set, error) {
	s, err := param.Defaults("kvs", kvsSpecs())
	if err != nil {
		return nil, err
	}
	return s, nil
}
