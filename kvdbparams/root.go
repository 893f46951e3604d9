package kvdbparams

import (
	"github.com/hse-go/kvengine/internal/param"
)

// openModeCodec is the param.Codec for OpenMode-valued fields, backed by the
// same enum-index convention internal/param.EnumCodec uses, but over the
// OpenMode closed set rather than a caller-supplied string slice.
type openModeCodec struct{}

func (openModeCodec) Convert(text string) (any, error) {
	var s string
	if err := unmarshalString(text, &s); err != nil {
		return nil, err
	}
	m, ok := ParseOpenMode(s)
	if !ok {
		return nil, errUnknownEnum("open mode", s)
	}
	return m, nil
}

func (openModeCodec) Validate(v any, _ param.Bounds) error {
	if _, ok := v.(OpenMode); !ok {
		return errWrongType("OpenMode", v)
	}
	return nil
}
func (openModeCodec) Stringify(v any) string { return v.(OpenMode).String() }
func (openModeCodec) Jsonify(v any) any      { return v.(OpenMode).String() }

type throttlePolicyCodec struct{}

func (throttlePolicyCodec) Convert(text string) (any, error) {
	var s string
	if err := unmarshalString(text, &s); err != nil {
		return nil, err
	}
	p, ok := ParseThrottleInitPolicy(s)
	if !ok {
		return nil, errUnknownEnum("throttle init policy", s)
	}
	return p, nil
}

func (throttlePolicyCodec) Validate(v any, _ param.Bounds) error {
	if _, ok := v.(ThrottleInitPolicy); !ok {
		return errWrongType("ThrottleInitPolicy", v)
	}
	return nil
}
func (throttlePolicyCodec) Stringify(v any) string { return v.(ThrottleInitPolicy).String() }
func (throttlePolicyCodec) Jsonify(v any) any      { return v.(ThrottleInitPolicy).String() }

type durabilityMClassCodec struct{}

func (durabilityMClassCodec) Convert(text string) (any, error) {
	var s string
	if err := unmarshalString(text, &s); err != nil {
		return nil, err
	}
	d, ok := ParseDurabilityMediaClass(s)
	if !ok {
		return nil, errUnknownEnum("durability media class", s)
	}
	return d, nil
}

func (durabilityMClassCodec) Validate(v any, _ param.Bounds) error {
	if _, ok := v.(DurabilityMediaClass); !ok {
		return errWrongType("DurabilityMediaClass", v)
	}
	return nil
}
func (durabilityMClassCodec) Stringify(v any) string { return v.(DurabilityMediaClass).String() }
func (durabilityMClassCodec) Jsonify(v any) any      { return v.(DurabilityMediaClass).String() }

// rootSpecs is the KVDB root parameter record: storage homes, the
// media-class policy table, durability target, and throttle starting point.
// Built once at kvdb_open/kvdb_create time via Defaults, then Build()-locked;
// only fields with the Writable flag may be changed afterward (mode and
// throttle policy).
func rootSpecs() []param.Spec {
	return param.NewSpecs([]param.Spec{
		{
			Name:        "storage_capacity_path",
			Description: "home-relative or absolute path to the capacity media class",
			Kind:        param.KindString,
			Default:     "capacity",
			Codec:       param.StringCodec{},
		},
		{
			Name:        "storage_staging_path",
			Description: "home-relative or absolute path to the staging media class",
			Kind:        param.KindString,
			Default:     "staging",
			Codec:       param.StringCodec{},
		},
		{
			Name:        "storage_pmem_path",
			Description: "home-relative or absolute path to the pmem media class",
			Kind:        param.KindString,
			Default:     "pmem",
			Codec:       param.StringCodec{},
		},
		{
			Name:        "mode",
			Description: "mblock file open mode",
			Kind:        param.KindEnum,
			Flags:       param.Writable,
			Default:     OpenRDWR,
			Codec:       openModeCodec{},
		},
		{
			Name:        "durability_mclass",
			Description: "media class the WAL/durability layer targets",
			Kind:        param.KindEnum,
			Default:     DurabilityCapacity,
			Codec:       durabilityMClassCodec{},
		},
		{
			Name:        "throttle_init_policy",
			Description: "starting burst/rate for the ingest throttle",
			Kind:        param.KindEnum,
			Flags:       param.Writable,
			Default:     ThrottleDefault,
			Codec:       throttlePolicyCodec{},
		},
		{
			Name:        "mclass_policies",
			Description: "named (age,data-type)->media-class assignment table",
			Kind:        param.KindArray,
			Flags:       param.DefaultBuilder,
			Builder:     DefaultMediaClassPolicies,
			Bounds:      param.Bounds{Max: MPolicyCount},
			Codec:       MediaClassPolicyCodec{},
		},
	})
}

// DefaultRootParams builds a fresh root-parameter Set from its built-in
// defaults. The Set is not yet built: every field stays settable until the
// caller calls Build.
func DefaultRootParams() (*param.Set, error) {
	s, err := param.Defaults("root", rootSpecs())
	if err != nil {
		return nil, err
	}
	return s, nil
}
