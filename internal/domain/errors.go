package domain

import "errors"

// Common errors used throughout the application.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidKey       = errors.New("invalid key")
	ErrAlreadyRedeemed  = errors.New("key has already been redeemed")
	ErrUnknownProduct   = errors.New("unknown product")
	ErrAmountOutOfRange = errors.New("amount must be between 1 and 50")
	ErrHashConflict     = errors.New("key hash collision")
)

// APIError represents an error response from the API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
