package service

import (
	"errors"
	"fmt"

	"github.com/tradereads/tradereads-api/internal/domain"
)

// ServiceError wraps an unexpected failure with the operation it broke.
// Expected failures are domain rule errors and are never wrapped.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "accept_trade_request")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err for operation. Domain rule errors pass through
// unchanged so callers see their reason.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	var ruleErr *domain.RuleError
	if errors.As(err, &ruleErr) {
		return err
	}
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
