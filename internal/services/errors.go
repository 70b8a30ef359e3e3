package services

import (
	"errors"

	"realtyhub/backend/internal/workflow"
)

// Errors returned by services. Handlers map them to HTTP status codes.
var (
	ErrNotFound   = errors.New("record not found")
	ErrForbidden  = errors.New("insufficient permissions")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("record was changed by someone else, reload and retry")

	ErrInvalidStatus     = workflow.ErrInvalidStatus
	ErrIllegalTransition = workflow.ErrIllegalTransition

	// ErrEmailExists is returned when an attempt is made to use an email that already exists.
	ErrEmailExists = errors.New("email already in use by another account")
	// ErrInvalidCredentials covers unknown emails, wrong passwords and disabled accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
