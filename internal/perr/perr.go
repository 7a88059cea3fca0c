// Package perr provides the pipeline's domain error kinds.
//
// External calls throughout the pipeline return ordinary Go errors; where a
// caller needs to branch on *why* a call failed (retry vs substitute sentinel
// vs halt), it wraps the error in an Error carrying one of the Kind values
// below instead of inspecting error strings.
package perr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how the pipeline should react to it.
type Kind string

const (
	// TransientExternal is a network/transport/broker timeout. Retried
	// locally with bounded backoff; on budget exhaustion the caller
	// substitutes a sentinel and proceeds.
	TransientExternal Kind = "transient_external"

	// MalformedExternal is an oracle/validator response that does not
	// parse. Falls back to HOLD/0 for oracles, reject for validators.
	MalformedExternal Kind = "malformed_external"

	// Stale means a cache (HTF context) could not be refreshed. Degrades
	// to NEUTRAL trend; never rejects purely on this.
	Stale Kind = "stale"

	// PreconditionViolation means a data-model invariant was violated.
	// The tick is rejected; state is never corrupted.
	PreconditionViolation Kind = "precondition_violation"

	// BrokerRejected means an order reached the broker and was refused
	// (insufficient funds, invalid size, market closed). Not retried
	// automatically.
	BrokerRejected Kind = "broker_rejected"

	// Fatal means storage or the queue is unavailable after retries.
	// The affected component halts.
	Fatal Kind = "fatal"
)

// Error wraps an underlying error with a Kind and a short human detail.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind.
func New(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

// KindOf extracts the Kind from err, if it (or something it wraps) is an
// *Error. ok is false for plain errors.
func KindOf(err error) (kind Kind, ok bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
