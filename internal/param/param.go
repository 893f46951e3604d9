// Package param implements the declarative, schema-driven parameter engine
// shared by the KVDB root parameters, per-KVS parameters, and the media-class
// policy table. A parameter record is built once from a []Spec, after which
// only fields carrying the Writable flag may be mutated; every other field is
// fixed for the lifetime of the record.
//
// Design: the C original drives get/set/stringify/jsonify through a table of
// function pointers keyed by parameter type. Go has no function-pointer table
// idiom; instead each Spec carries a small Codec interface, and a handful of
// Codec implementations (bool, integer, double, string, enum) cover every
// built-in Kind. Composite kinds (media-class policy, throttle policy) supply
// their own Codec from the kvdbparams package.
package param

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/hse-go/kvengine/internal/mempool"
	"github.com/hse-go/kvengine/internal/merr"
)

// Kind is the closed set of parameter value types.
type Kind int

const (
	KindBool Kind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindDouble
	KindEnum
	KindString
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindI8:
		return "i8"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindDouble:
		return "double"
	case KindEnum:
		return "enum"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Flags is a bitset of per-Spec modifiers.
type Flags uint32

const (
	// Experimental fields are accepted but not documented in the stable surface.
	Experimental Flags = 1 << iota
	// Writable fields may be Set after the record is built; all other
	// fields are build-time only.
	Writable
	// DefaultBuilder indicates Spec.Builder supplies the default instead
	// of Spec.Default (for defaults that depend on runtime context, e.g.
	// CPU count).
	DefaultBuilder
)

// Bounds is the inclusive numeric range a value must satisfy. EnumCodec
// does not read Bounds: it checks only that the index lies within its
// closed set of labels. For KindArray, Max is the maximum element count and
// Min is unused.
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether v falls within the bounds, inclusive.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Codec converts between the JSON text representation of a parameter value
// and its native Go representation, and validates/serializes that native
// value. Every Kind has a built-in Codec in this package; composite kinds
// (media-class policy, throttle policy) supply their own.
type Codec interface {
	// Convert parses JSON text into the native representation.
	Convert(text string) (any, error)
	// Validate checks a native value against bounds. bounds is the
	// owning Spec's Bounds.
	Validate(v any, bounds Bounds) error
	// Stringify renders the native value as a human-readable string.
	Stringify(v any) string
	// Jsonify renders the native value as a JSON-marshalable value.
	Jsonify(v any) any
}

// Builder computes a default value at record-build time, for defaults that
// depend on runtime context rather than a static literal.
type Builder func() any

// Spec describes one field of a parameter record.
type Spec struct {
	Name        string
	Description string
	Flags       Flags
	Kind        Kind

	// Offset and Size mirror the byte-offset/byte-size pair the original
	// ABI uses to locate a field within a packed C struct. Go records are
	// not byte-packed; these are descriptive metadata only, assigned by
	// NewSpecs in declaration order, and are not read by Get/Set.
	Offset uintptr
	Size   uintptr

	Default any
	Builder Builder
	Bounds  Bounds
	Codec   Codec
}

// NewSpecs assigns Offset/Size to each Spec in declaration order and returns
// the slice unchanged otherwise. Call this once when building a static Spec
// table (see kvdbparams).
func NewSpecs(specs []Spec) []Spec {
	var off uintptr
	for i := range specs {
		sz := kindSize(specs[i].Kind)
		specs[i].Offset = off
		specs[i].Size = sz
		off += sz
	}
	return specs
}

func kindSize(k Kind) uintptr {
	switch k {
	case KindBool, KindU8, KindI8:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32, KindEnum:
		return 4
	case KindU64, KindI64, KindDouble:
		return 8
	default:
		return 0 // variable width (string, array)
	}
}

// Set is a built parameter record: an immutable []Spec paired with one
// boxed value per Spec. Every value is an atomic.Value so Set can be
// called concurrently with Get/ToJSON without a lock; non-writable fields
// can change only between Defaults and Build.
type Set struct {
	name   string
	specs  []Spec
	byName map[string]int
	values []atomic.Value
	built  atomic.Bool
}

// Defaults builds a new Set from specs, computing each field's default
// value (via Spec.Default or Spec.Builder) and validating it against
// Spec.Bounds. It returns a bad-metadata error if any built-in default
// fails validation — a condition that signals a Spec table bug, not bad
// caller input.
func Defaults(name string, specs []Spec) (*Set, error) {
	s := &Set{
		name:   name,
		specs:  specs,
		byName: make(map[string]int, len(specs)),
		values: make([]atomic.Value, len(specs)),
	}
	for i, sp := range specs {
		if _, dup := s.byName[sp.Name]; dup {
			return nil, merr.New(merr.KindInternal, "param.Defaults", "duplicate spec name "+sp.Name)
		}
		s.byName[sp.Name] = i

		var v any
		if sp.Flags&DefaultBuilder != 0 {
			if sp.Builder == nil {
				return nil, merr.New(merr.KindInternal, "param.Defaults", "DefaultBuilder flag set with nil Builder for "+sp.Name)
			}
			v = sp.Builder()
		} else {
			v = sp.Default
		}

		if sp.Codec != nil {
			if err := sp.Codec.Validate(v, sp.Bounds); err != nil {
				return nil, merr.Wrap(merr.KindBadMetadata, "param.Defaults["+sp.Name+"]", err)
			}
		}
		s.values[i].Store(boxed{v})
	}
	return s, nil
}

// Build finalizes the record: after Build, Set and Deserialize reject
// writes to fields without the Writable flag. Before Build, every field
// may be set — this is the construction window in which a caller applies
// config-file or CLI overrides on top of the defaults before the owning
// KVDB/KVS opens.
func (s *Set) Build() { s.built.Store(true) }

// boxed wraps an any so atomic.Value.Store always receives a single
// concrete type, regardless of what the underlying parameter value's type is.
type boxed struct{ v any }

func (s *Set) specIndex(path string) (int, error) {
	i, ok := s.byName[path]
	if !ok {
		return 0, merr.New(merr.KindNotFound, "param", "no such parameter: "+path)
	}
	return i, nil
}

// Value returns the current native value of the named field.
func (s *Set) Value(path string) (any, error) {
	i, err := s.specIndex(path)
	if err != nil {
		return nil, err
	}
	return s.values[i].Load().(boxed).v, nil
}

// MustValue panics if path is not a spec name. Callers within this module
// that build a Set from their own static Spec table may use this to read
// back a value without repeating error handling for an impossible case.
func (s *Set) MustValue(path string) any {
	v, err := s.Value(path)
	if err != nil {
		panic(err)
	}
	return v
}

// Get serializes the named field (or, if path is empty, the whole record as
// a JSON object) into buf, returning the number of bytes written and the
// number of bytes the full serialization needs. If needed > written, the
// caller's buffer was too small and should be regrown to needed and Get
// called again — the same probe-then-fill shape as the original out_buf/
// out_cap ABI.
func (s *Set) Get(path string, buf []byte) (written, needed int, err error) {
	var b []byte
	if path == "" {
		obj, jerr := s.toJSONLocked()
		if jerr != nil {
			return 0, 0, jerr
		}
		b, err = json.Marshal(obj)
	} else {
		i, ierr := s.specIndex(path)
		if ierr != nil {
			return 0, 0, ierr
		}
		sp := s.specs[i]
		v := s.values[i].Load().(boxed).v
		jv := v
		if sp.Codec != nil {
			jv = sp.Codec.Jsonify(v)
		}
		b, err = json.Marshal(jv)
	}
	if err != nil {
		return 0, 0, merr.Wrap(merr.KindInternal, "param.Get", err)
	}
	n := copy(buf, b)
	return n, len(b), nil
}

// GetString is a convenience wrapper over Get that allocates exactly the
// bytes needed and returns them as a string.
func (s *Set) GetString(path string) (string, error) {
	_, needed, err := s.Get(path, nil)
	if err != nil {
		return "", err
	}
	buf := mempool.GlobalPool.Get(needed)[:needed]
	defer mempool.GlobalPool.Put(buf)
	_, _, err = s.Get(path, buf)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Set parses and validates valueJSON against the named field's Codec, then
// stores it. Fields without the Writable flag can only be set before Build
// is called and return a read-only error thereafter.
func (s *Set) Set(path, valueJSON string) error {
	i, err := s.specIndex(path)
	if err != nil {
		return err
	}
	sp := s.specs[i]
	if s.built.Load() && sp.Flags&Writable == 0 {
		return merr.New(merr.KindReadOnly, "param.Set", path+" is not writable")
	}
	if sp.Codec == nil {
		return merr.New(merr.KindInternal, "param.Set", path+" has no codec")
	}
	v, err := sp.Codec.Convert(valueJSON)
	if err != nil {
		return merr.Wrap(merr.KindBadValue, "param.Set["+path+"]", err)
	}
	if err := sp.Codec.Validate(v, sp.Bounds); err != nil {
		return merr.Wrap(merr.KindBadValue, "param.Set["+path+"]", err)
	}
	s.values[i].Store(boxed{v})
	return nil
}

// ToJSON renders the whole record as a name->value map.
func (s *Set) ToJSON() (map[string]any, error) {
	return s.toJSONLocked()
}

func (s *Set) toJSONLocked() (map[string]any, error) {
	out := make(map[string]any, len(s.specs))
	for i, sp := range s.specs {
		v := s.values[i].Load().(boxed).v
		if sp.Codec != nil {
			out[sp.Name] = sp.Codec.Jsonify(v)
		} else {
			out[sp.Name] = v
		}
	}
	return out, nil
}

// Deserialize applies a batch of "name=value" assignments atomically: every
// assignment is parsed and validated against a private clone of the current
// values before any of them are applied to s. If any assignment is invalid,
// s is left completely unchanged and the first error encountered is
// returned.
func Deserialize(s *Set, kvs []string) error {
	type pending struct {
		idx int
		val any
	}
	plan := make([]pending, 0, len(kvs))
	for _, kv := range kvs {
		name, text, ok := splitOnce(kv, '=')
		if !ok {
			return merr.New(merr.KindBadArgument, "param.Deserialize", "malformed entry: "+kv)
		}
		i, err := s.specIndex(name)
		if err != nil {
			return err
		}
		sp := s.specs[i]
		if s.built.Load() && sp.Flags&Writable == 0 {
			return merr.New(merr.KindReadOnly, "param.Deserialize", name+" is not writable")
		}
		if sp.Codec == nil {
			return merr.New(merr.KindInternal, "param.Deserialize", name+" has no codec")
		}
		v, err := sp.Codec.Convert(text)
		if err != nil {
			return merr.Wrap(merr.KindBadValue, "param.Deserialize["+name+"]", err)
		}
		if err := sp.Codec.Validate(v, sp.Bounds); err != nil {
			return merr.Wrap(merr.KindBadValue, "param.Deserialize["+name+"]", err)
		}
		plan = append(plan, pending{i, v})
	}
	for _, p := range plan {
		s.values[p.idx].Store(boxed{p.val})
	}
	return nil
}

func splitOnce(s string, sep byte) (before, after string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// Name returns the record's name (e.g. "root", "kvs").
func (s *Set) Name() string { return s.name }

// Specs returns the record's spec table. Callers must not mutate it.
func (s *Set) Specs() []Spec { return s.specs }

func init() {
	// Guard against accidental Kind/String mismatch regressions; panics at
	// package init time rather than failing silently at runtime.
	for k := KindBool; k <= KindArray; k++ {
		if k.String() == "unknown" {
			panic(fmt.Sprintf("param: Kind %d has no String() mapping", k))
		}
	}
}
