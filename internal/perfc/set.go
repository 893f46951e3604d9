package perfc

import (
	"github.com/hse-go/kvengine/internal/merr"
)

// Kind is the closed set of counter kinds.
type Kind int

const (
	KindBasic Kind = iota
	KindRate
	KindLatency
	KindDistribution
	KindSimpleLatency
)

func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "Basic"
	case KindRate:
		return "Rate"
	case KindLatency:
		return "Latency"
	case KindDistribution:
		return "Distribution"
	case KindSimpleLatency:
		return "SimpleLatency"
	default:
		return "Invalid"
	}
}

// Counter is the interface every counter kind in this package satisfies.
type Counter interface {
	Name() string
	Kind() Kind
	Emit() map[string]any
}

// Set is a named, level-gated group of counters — the spec's "Counter Set
// Instance". Priority gates which counters are live: a counter whose level
// exceeds the set's priority is disabled at registration time and left out
// of Emit. The counter's own Add/Sub/Record methods are not gated; they
// still update it.
type Set struct {
	name     string
	priority int
	counters map[string]Counter
	enabled  map[string]bool
}

// NewSet creates an empty counter set with the given gating priority.
func NewSet(name string, priority int) *Set {
	return &Set{
		name:     name,
		priority: priority,
		counters: make(map[string]Counter),
		enabled:  make(map[string]bool),
	}
}

// Name returns the set's name.
func (s *Set) Name() string { return s.name }

// Add registers a counter under its own Name() within the set. A counter
// whose declared level exceeds the set's priority is registered disabled:
// it is left out of Emit output, and its mutators should be skipped by the
// caller (see Enabled).
func (s *Set) Add(c Counter, level int) error {
	if _, dup := s.counters[c.Name()]; dup {
		return merr.New(merr.KindExists, "perfc.Set.Add", "counter "+c.Name()+" already registered")
	}
	s.counters[c.Name()] = c
	s.enabled[c.Name()] = level <= s.priority
	return nil
}

// Enabled reports whether a registered counter's level passed the set's
// priority gate. Callers should check this before doing per-call mutator
// work they'd rather skip when the counter is disabled (e.g. sampling setup
// for a Dist counter).
func (s *Set) Enabled(name string) bool {
	return s.enabled[name]
}

// Counter returns the named counter, or nil if not registered.
func (s *Set) Counter(name string) Counter {
	return s.counters[name]
}

// Emit renders every counter in the set as a name->fields JSON-shaped map.
func (s *Set) Emit() map[string]any {
	out := make(map[string]any, len(s.counters))
	for name, c := range s.counters {
		if !s.enabled[name] {
			continue
		}
		fields := c.Emit()
		fields["kind"] = c.Kind().String()
		out[name] = fields
	}
	return out
}
