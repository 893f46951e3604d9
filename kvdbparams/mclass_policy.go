package kvdbparams

import (
	"encoding/json"
	"fmt"

	"github.com/hse-go/kvengine/internal/param"
)

// Age distinguishes root (hot, frequently-rewritten) nodes from leaf (cold,
// bulk) nodes in a media-class policy's 2x2 matrix.
type Age int

const (
	AgeRoot Age = iota
	AgeLeaf
)

// DataType distinguishes keys from values in a media-class policy's 2x2
// matrix — values are typically larger and colder than keys.
type DataType int

const (
	DataKeys DataType = iota
	DataValues
)

// MPolicyCount is the fixed capacity of the media-class policy table: the
// six reserved built-ins plus room for user-defined policies.
const MPolicyCount = 32

// MediaClassPolicy maps (age, data-type) to a target media class. Name must
// be unique across the whole policy table.
type MediaClassPolicy struct {
	Name   string
	Matrix [2][2]MClass // [Age][DataType]
}

// MClassFor returns the media class this policy assigns to (age, dt).
func (p MediaClassPolicy) MClassFor(age Age, dt DataType) MClass {
	return p.Matrix[age][dt]
}

func uniform(mc MClass) [2][2]MClass {
	return [2][2]MClass{
		{mc, mc},
		{mc, mc},
	}
}

// reservedPolicies returns the six built-in media-class policies, in the
// fixed order defaults() must emit them. Semantics (not specified by the
// originating C sources available to this port, and decided here): "staging"
// variants keep root (hot) data on staging and push leaf (cold, bulk) data
// toward capacity, by an amount that depends on which direction the name leans;
// "min_capacity" pushes the least data to capacity, "max_capacity" the most.
func reservedPolicies() []MediaClassPolicy {
	return []MediaClassPolicy{
		{Name: "capacity_only", Matrix: uniform(MClassCapacity)},
		{Name: "staging_only", Matrix: uniform(MClassStaging)},
		{
			Name: "staging_max_capacity",
			Matrix: [2][2]MClass{
				{MClassStaging, MClassStaging},   // root: keys, values
				{MClassCapacity, MClassCapacity}, // leaf: keys, values
			},
		},
		{
			Name: "staging_min_capacity",
			Matrix: [2][2]MClass{
				{MClassStaging, MClassStaging}, // root: keys, values
				{MClassStaging, MClassCapacity}, // leaf: keys, values
			},
		},
		{Name: "pmem_only", Matrix: uniform(MClassPmem)},
		{
			Name: "pmem_max_capacity",
			Matrix: [2][2]MClass{
				{MClassPmem, MClassPmem},         // root: keys, values
				{MClassCapacity, MClassCapacity}, // leaf: keys, values
			},
		},
	}
}

// ReservedPolicyNames returns the names of the six built-in policies, in
// table order.
func ReservedPolicyNames() []string {
	rp := reservedPolicies()
	names := make([]string, len(rp))
	for i, p := range rp {
		names[i] = p.Name
	}
	return names
}

// jsonMClassConfig is the {keys,values} wire shape for one age row (root or
// leaf) of a policy's 2x2 matrix.
type jsonMClassConfig struct {
	Keys   string `json:"keys"`
	Values string `json:"values"`
}

// jsonPolicyConfig nests the root and leaf rows under "config", matching
// the original HSE rparams jsonifier's {"config":{"root":{...},"leaf":{...}}}
// shape.
type jsonPolicyConfig struct {
	Root jsonMClassConfig `json:"root"`
	Leaf jsonMClassConfig `json:"leaf"`
}

// jsonMediaClassPolicy is the wire shape for one policy entry.
type jsonMediaClassPolicy struct {
	Name   string           `json:"name"`
	Config jsonPolicyConfig `json:"config"`
}

func toJSONPolicy(p MediaClassPolicy) jsonMediaClassPolicy {
	return jsonMediaClassPolicy{
		Name: p.Name,
		Config: jsonPolicyConfig{
			Root: jsonMClassConfig{
				Keys:   p.Matrix[AgeRoot][DataKeys].String(),
				Values: p.Matrix[AgeRoot][DataValues].String(),
			},
			Leaf: jsonMClassConfig{
				Keys:   p.Matrix[AgeLeaf][DataKeys].String(),
				Values: p.Matrix[AgeLeaf][DataValues].String(),
			},
		},
	}
}

func fromJSONPolicy(j jsonMediaClassPolicy) (MediaClassPolicy, error) {
	var p MediaClassPolicy
	p.Name = j.Name
	if p.Name == "" {
		return p, fmt.Errorf("policy name must not be empty")
	}
	fields := []struct {
		age Age
		dt  DataType
		val string
	}{
		{AgeRoot, DataKeys, j.Config.Root.Keys},
		{AgeRoot, DataValues, j.Config.Root.Values},
		{AgeLeaf, DataKeys, j.Config.Leaf.Keys},
		{AgeLeaf, DataValues, j.Config.Leaf.Values},
	}
	for _, f := range fields {
		mc, ok := ParseMClass(f.val)
		if !ok {
			return p, fmt.Errorf("policy %q: unknown media class %q", p.Name, f.val)
		}
		p.Matrix[f.age][f.dt] = mc
	}
	return p, nil
}

// MediaClassPolicyCodec is the param.Codec for the mclass_policies field of
// the root parameter record. It operates on the whole table: Convert takes the JSON array
// of user-defined entries (the tail after the six built-ins) and returns the
// full table (built-ins prepended); Validate/Jsonify/Stringify always work
// over the full table so uniqueness and MPolicyCount can be enforced without
// threading state outside the param.Codec interface.
type MediaClassPolicyCodec struct{}

func (MediaClassPolicyCodec) Convert(text string) (any, error) {
	var tail []jsonMediaClassPolicy
	if err := json.Unmarshal([]byte(text), &tail); err != nil {
		return nil, fmt.Errorf("mclass_policies: not a JSON array: %w", err)
	}
	full := reservedPolicies()
	for _, jp := range tail {
		p, err := fromJSONPolicy(jp)
		if err != nil {
			return nil, err
		}
		full = append(full, p)
	}
	return full, nil
}

func (MediaClassPolicyCodec) Validate(v any, bounds param.Bounds) error {
	policies, ok := v.([]MediaClassPolicy)
	if !ok {
		return fmt.Errorf("expected []MediaClassPolicy, got %T", v)
	}
	max := MPolicyCount
	if bounds.Max > 0 {
		max = int(bounds.Max)
	}
	if len(policies) > max {
		return fmt.Errorf("policy table has %d entries, exceeds max %d", len(policies), max)
	}
	reserved := reservedPolicies()
	if len(policies) < len(reserved) {
		return fmt.Errorf("policy table must include all %d built-in policies", len(reserved))
	}
	seen := make(map[string]bool, len(policies))
	for i, p := range policies {
		if p.Name == "" {
			return fmt.Errorf("policy %d: name must not be empty", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate policy name %q", p.Name)
		}
		seen[p.Name] = true
		if i < len(reserved) && p.Name != reserved[i].Name {
			return fmt.Errorf("built-in policy slot %d must be %q, got %q", i, reserved[i].Name, p.Name)
		}
	}
	return nil
}

func (MediaClassPolicyCodec) Stringify(v any) string {
	b, _ := json.Marshal(jsonifyPolicies(v.([]MediaClassPolicy)))
	return string(b)
}

func (MediaClassPolicyCodec) Jsonify(v any) any {
	return jsonifyPolicies(v.([]MediaClassPolicy))
}

func jsonifyPolicies(policies []MediaClassPolicy) []jsonMediaClassPolicy {
	out := make([]jsonMediaClassPolicy, len(policies))
	for i, p := range policies {
		out[i] = toJSONPolicy(p)
	}
	return out
}

// DefaultMediaClassPolicies is the DefaultBuilder for the mclass_policies
// Spec: it returns the six reserved built-ins, per spec.md §4.A ("MUST be
// emitted by defaults()").
func DefaultMediaClassPolicies() any {
	return reservedPolicies()
}

// FindPolicy looks up a policy by name within a built Set's current
// mclass_policies value.
func FindPolicy(policies []MediaClassPolicy, name string) (MediaClassPolicy, bool) {
	for _, p := range policies {
		if p.Name == name {
			return p, true
		}
	}
	return MediaClassPolicy{}, false
}
