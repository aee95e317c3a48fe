// Package apperr defines the error-kind taxonomy the core raises, so that
// callers (HTTP adapter, background loops) can dispatch on kind instead of
// matching error strings.
package apperr

import "errors"

// Kind is the tag a *Error carries. Kinds mirror the error vocabulary used
// throughout the engine: some are user-caused (InvalidArgument), some are
// infrastructure (Transient, Fatal), and IllegalTransition should never be
// user-reachable directly.
type Kind string

const (
	UnknownSymbol     Kind = "unknown_symbol"
	InsufficientFunds Kind = "insufficient_funds"
	InvalidArgument   Kind = "invalid_argument"
	NotFound          Kind = "not_found"
	IllegalTransition Kind = "illegal_transition"
	StaleTicker       Kind = "stale_ticker"
	Conflict          Kind = "conflict"
	Transient         Kind = "transient"
	Fatal             Kind = "fatal"
)

// Error wraps an underlying cause with a Kind so callers can use errors.As
// to recover it regardless of how many layers wrapped the original error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + string(e.Kind)
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, apperr.New(op, apperr.UnknownSymbol, nil)) match
// any *Error of the same kind, ignoring Op and cause; Kind is not itself
// an error, so the target must be an *Error.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New builds a *Error for the given op/kind, wrapping cause (may be nil).
func New(op string, kind Kind, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// IsRetriable reports whether err (at any wrap depth) carries a kind that
// is safe to retry with backoff — mirrors the Transient/Fatal split the
// store adapter is required to make.
func IsRetriable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == Transient
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err does not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
