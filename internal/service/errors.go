package service

import "fmt"

// ServiceError represents a business logic error with a code
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeInvalidPhone        = "invalid_phone"
	ErrCodeInvalidAmount       = "invalid_amount"
	ErrCodeInvalidKind         = "invalid_kind"
	ErrCodeInvalidStatus       = "invalid_status"
	ErrCodeWalletNotFound      = "wallet_not_found"
	ErrCodeInsufficientFunds   = "insufficient_funds"
	ErrCodeTransactionNotFound = "transaction_not_found"
	ErrCodeAlreadyDecided      = "already_decided"
	ErrCodeInternalError       = "internal_error"
)
