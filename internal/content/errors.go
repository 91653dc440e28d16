package content

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes the core distinguishes.
type ErrorKind string

const (
	// UpstreamUnavailable covers network errors, timeouts and non-2xx
	// statuses from a single adapter.
	UpstreamUnavailable ErrorKind = "upstream_unavailable"
	// ParseFailure covers malformed feeds or JSON from a reachable source.
	ParseFailure ErrorKind = "parse_failure"
	// RateLimited means the sliding window for a metered source is full;
	// callers fall back to cached/local data instead of retrying.
	RateLimited ErrorKind = "rate_limited"
	// AggregateFailure means every source failed and no cache entry exists.
	// It is the only kind that surfaces to end users.
	AggregateFailure ErrorKind = "aggregate_failure"
	// ConfigurationError means a source cannot be used as configured
	// (e.g. missing API key); logged once at startup, not per request.
	ConfigurationError ErrorKind = "configuration_error"
)

// Error carries a failure class, the source it belongs to and the cause.
type Error struct {
	Kind     ErrorKind
	SourceID string
	Err      error
}

func (e *Error) Error() string {
	if e.SourceID != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s (%s): %v", e.Kind, e.SourceID, e.Err)
		}
		return fmt.Sprintf("%s (%s)", e.Kind, e.SourceID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error for a source.
func NewError(kind ErrorKind, sourceID string, err error) *Error {
	return &Error{Kind: kind, SourceID: sourceID, Err: err}
}

// KindOf extracts the error kind, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
