package models

import (
	"errors"
	"fmt"
)

// Domain errors that can be returned by stores
var (
	// ErrDuplicateTransaction indicates a transaction with the same id already exists
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrNotFound indicates the requested entity was not found
	ErrNotFound = errors.New("not found")
)

// ValidationError indicates bad purchase input. It is raised before any
// network call is made and is recoverable in place.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// InitiationError indicates the gateway rejected or never received the
// initiation call. The flow returns to idle so the user can resubmit.
type InitiationError struct {
	Err     error
	Message string
}

func (e *InitiationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *InitiationError) Unwrap() error {
	return e.Err
}
