package services

import "errors"

// Failure taxonomy shared by every service. Services return these wrapped
// with %w; only the HTTP boundary translates them into status codes.
var (
	ErrInvalidIdentifier  = errors.New("invalid identifier")
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAlreadyPaid        = errors.New("payment already completed")
	ErrValidation         = errors.New("validation failed")
)
