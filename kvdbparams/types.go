// Package kvdbparams instantiates the param engine (internal/param) for the
// two concrete parameter records the storage engine needs — KVDB root
// parameters and per-KVS parameters — plus the composite media-class policy
// table and the small closed-string-set enums (open mode, throttle init
// policy, durability media class) that appear as fields in those records.
package kvdbparams

import "golang.org/x/time/rate"

// MClass is the closed set of media classes a block can live on.
type MClass int

const (
	MClassCapacity MClass = iota
	MClassStaging
	MClassPmem
	// MClassCount is the number of media classes, used to size per-mclass
	// arrays (e.g. kvdbmeta.Meta.Storage).
	MClassCount
)

var mclassNames = [MClassCount]string{"capacity", "staging", "pmem"}

func (m MClass) String() string {
	if m < 0 || int(m) >= len(mclassNames) {
		return "unknown"
	}
	return mclassNames[m]
}

// ParseMClass converts a media-class name to its MClass value.
func ParseMClass(name string) (MClass, bool) {
	for i, n := range mclassNames {
		if n == name {
			return MClass(i), true
		}
	}
	return 0, false
}

// OpenMode is the closed set of mblock-file open modes.
type OpenMode int

const (
	OpenRDOnly OpenMode = iota
	OpenRDWR
)

var openModeNames = [...]string{"rdonly", "rdwr"}

func (m OpenMode) String() string {
	if m < 0 || int(m) >= len(openModeNames) {
		return "unknown"
	}
	return openModeNames[m]
}

// ParseOpenMode converts an open-mode name to its OpenMode value.
func ParseOpenMode(name string) (OpenMode, bool) {
	for i, n := range openModeNames {
		if n == name {
			return OpenMode(i), true
		}
	}
	return 0, false
}

// DurabilityMediaClass is the closed set of media classes the WAL/durability
// layer may target. It shares MClass's numbering but is kept as a distinct
// type since not every MClass value need be a legal durability target in
// every deployment (pmem durability requires pmem to be configured).
type DurabilityMediaClass int

const (
	DurabilityCapacity DurabilityMediaClass = DurabilityMediaClass(MClassCapacity)
	DurabilityStaging  DurabilityMediaClass = DurabilityMediaClass(MClassStaging)
	DurabilityPmem     DurabilityMediaClass = DurabilityMediaClass(MClassPmem)
)

func (d DurabilityMediaClass) String() string { return MClass(d).String() }

// ParseDurabilityMediaClass converts a name to its DurabilityMediaClass value.
func ParseDurabilityMediaClass(name string) (DurabilityMediaClass, bool) {
	m, ok := ParseMClass(name)
	return DurabilityMediaClass(m), ok
}

// ThrottleInitPolicy is the closed set of starting points for the ingest
// throttle's token bucket. Each policy resolves to a burst/rate pair fed to
// golang.org/x/time/rate.NewLimiter at KVDB open time; the throttle
// subsystem itself tunes the rate afterward in response to C0/CN pressure,
// but the policy fixes where it starts.
type ThrottleInitPolicy int

const (
	// ThrottleLight starts generous and tightens slowly.
	ThrottleLight ThrottleInitPolicy = iota
	// ThrottleDefault is a moderate starting point suitable for most deployments.
	ThrottleDefault
	// ThrottleAggressive starts conservative, favoring write-stall safety
	// over initial ingest throughput.
	ThrottleAggressive
)

var throttlePolicyNames = [...]string{"light", "default", "aggressive"}

func (p ThrottleInitPolicy) String() string {
	if p < 0 || int(p) >= len(throttlePolicyNames) {
		return "unknown"
	}
	return throttlePolicyNames[p]
}

// ParseThrottleInitPolicy converts a policy name to its ThrottleInitPolicy value.
func ParseThrottleInitPolicy(name string) (ThrottleInitPolicy, bool) {
	for i, n := range throttlePolicyNames {
		if n == name {
			return ThrottleInitPolicy(i), true
		}
	}
	return 0, false
}

// throttleBurstRate gives the (burst, rate-per-second) starting point for
// each policy, expressed in "ingest tokens" (one token per mblock page
// written, tuned from there by the live throttle loop).
func throttleBurstRate(p ThrottleInitPolicy) (burst int, rps float64) {
	switch p {
	case ThrottleLight:
		return 4096, 8192
	case ThrottleAggressive:
		return 256, 512
	default:
		return 1024, 2048
	}
}

// NewLimiter builds the rate.Limiter a policy starts the ingest throttle
// with. The returned limiter is freestanding — the throttle subsystem owns
// adjusting it afterward via SetBurst/SetLimit.
func NewLimiter(p ThrottleInitPolicy) *rate.Limiter {
	burst, rps := throttleBurstRate(p)
	return rate.NewLimiter(rate.Limit(rps), burst)
}
