package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by a service wraps exactly one of these.
var (
	// ErrNotFound is returned when an entity is absent or the caller may not see it.
	// The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned when a precondition of an operation fails.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidTransition is returned when a trade request cannot move
	// from its current status to the requested one.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflict is returned when a uniqueness rule would be violated.
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated is returned when no caller identity is available.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the caller is known but may not act on a resource.
	ErrForbidden = errors.New("forbidden")
)

// RuleError carries a human-readable reason alongside its error kind.
// The reason is safe to return to API clients.
type RuleError struct {
	Kind   error
	Reason string
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return e.Reason
}

// Unwrap returns the error kind so errors.Is works against the sentinels above.
func (e *RuleError) Unwrap() error {
	return e.Kind
}

// InvalidArgument builds an ErrInvalidArgument with the given reason.
func InvalidArgument(reason string) error {
	return &RuleError{Kind: ErrInvalidArgument, Reason: reason}
}

// InvalidTransition builds an ErrInvalidTransition describing the rejected move.
func InvalidTransition(from, to TradeStatus) error {
	return &RuleError{
		Kind:   ErrInvalidTransition,
		Reason: fmt.Sprintf("Trade request cannot move from %s to %s", from, to),
	}
}

// NotFound builds an ErrNotFound for the named entity.
func NotFound(entity string) error {
	return &RuleError{Kind: ErrNotFound, Reason: fmt.Sprintf("%s not found", entity)}
}

// Conflict builds an ErrConflict with the given reason.
func Conflict(reason string) error {
	return &RuleError{Kind: ErrConflict, Reason: reason}
}

// Forbidden builds an ErrForbidden with the given reason.
func Forbidden(reason string) error {
	return &RuleError{Kind: ErrForbidden, Reason: reason}
}

// Reason extracts the client-safe reason from err, if it carries one.
func Reason(err error) (string, bool) {
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		return ruleErr.Reason, true
	}
	return "", false
}
