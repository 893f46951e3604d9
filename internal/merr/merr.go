// Package merr provides the closed set of error kinds used across the
// storage engine's data plane, plus the REST status code projection for
// each kind.
//
// Every operation in the param engine, perfc engine, region map, mblock
// layer and c0 ingest work returns either nil or an error that is (or
// wraps) a *Error with one of the Kind values below — callers that need
// to branch on failure category should use errors.As, not string
// comparison.
package merr

import (
	"errors"
	"fmt"
)

// Kind is a closed enumeration of error categories.
type Kind int

const (
	// KindInvalid is the zero value and is never returned.
	KindInvalid Kind = iota
	// KindBadArgument signals a caller contract violation.
	KindBadArgument
	// KindBadValue signals a parse/convert/validate failure.
	KindBadValue
	// KindNotFound signals a missing name, key, or record.
	KindNotFound
	// KindExists signals an attempt to create something already present.
	KindExists
	// KindReadOnly signals a write to a non-writable field.
	KindReadOnly
	// KindOutOfMemory signals allocation failure.
	KindOutOfMemory
	// KindOutOfSpace signals allocator exhaustion (ENOSPC).
	KindOutOfSpace
	// KindBadMetadata signals persisted state inconsistency.
	KindBadMetadata
	// KindIO signals an underlying filesystem failure.
	KindIO
	// KindUnsupported signals a call shape not implemented (e.g. mbidc > 1).
	KindUnsupported
	// KindInternal signals an invariant violation.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindBadArgument:
		return "bad-argument"
	case KindBadValue:
		return "bad-value"
	case KindNotFound:
		return "not-found"
	case KindExists:
		return "exists"
	case KindReadOnly:
		return "read-only"
	case KindOutOfMemory:
		return "out-of-memory"
	case KindOutOfSpace:
		return "out-of-space"
	case KindBadMetadata:
		return "bad-metadata"
	case KindIO:
		return "io"
	case KindUnsupported:
		return "unsupported"
	case KindInternal:
		return "internal"
	default:
		return "invalid"
	}
}

// HTTPStatus returns the REST status code spec for this error kind, per
// the §6/§7 mapping: bad-value->400, not-found->404, read-only->423,
// out-of-memory->503, io/bad-metadata/internal->500, unsupported->405.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadArgument, KindBadValue:
		return 400
	case KindNotFound:
		return 404
	case KindReadOnly:
		return 423
	case KindOutOfMemory:
		return 503
	case KindUnsupported:
		return 405
	case KindIO, KindBadMetadata, KindInternal:
		return 500
	case KindExists:
		return 409
	case KindOutOfSpace:
		return 507
	default:
		return 500
	}
}

// Error is a typed error carrying a Kind, an operation name, and an
// optional wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with the given kind, operation, and message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds an *Error around an existing error, tagging it with a kind
// and operation name. Wrap(k, op, nil) returns nil.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, returning KindInternal if err does
// not carry one (an unrecognized error from a lower layer should be
// treated as an internal invariant violation, never silently ignored).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if err == nil {
		return KindInvalid
	}
	return KindInternal
}
