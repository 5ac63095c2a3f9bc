package ports

import "errors"

// Standard application-level errors.
// Adapters and analytics code wrap these so callers can match with errors.Is.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Analytics Errors
	ErrOutOfRange       = errors.New("value outside the allowed range")
	ErrInsufficientData = errors.New("insufficient data for operation")
	ErrDivisionByZero   = errors.New("division by zero")

	// Input Errors
	ErrMalformedRecord = errors.New("malformed input record")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
)
