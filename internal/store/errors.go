package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would violate a uniqueness constraint.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before being stored.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a unit of work cannot begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrReferenced is returned when deleting an entity other records still point at.
	ErrReferenced = errors.New("entity is still referenced")

	// Entity-specific "not found" errors
	ErrUserNotFound         = fmt.Errorf("%w: user", ErrNotFound)
	ErrBookNotFound         = fmt.Errorf("%w: book", ErrNotFound)
	ErrTradeRequestNotFound = fmt.Errorf("%w: trade request", ErrNotFound)
	ErrSessionNotFound      = fmt.Errorf("%w: session", ErrNotFound)

	// Entity-specific "duplicate" errors
	ErrEmailExists       = fmt.Errorf("%w: email", ErrDuplicate)
	ErrUsernameExists    = fmt.Errorf("%w: username", ErrDuplicate)
	ErrPhoneNumberExists = fmt.Errorf("%w: phone number", ErrDuplicate)
	ErrBookISBNExists    = fmt.Errorf("%w: book isbn for owner", ErrDuplicate)
	ErrPendingExists     = fmt.Errorf("%w: pending trade request", ErrDuplicate)

	// ErrBookReferenced is returned when a book still has trade requests.
	ErrBookReferenced = fmt.Errorf("%w: book has trade requests", ErrReferenced)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "book", "session")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
