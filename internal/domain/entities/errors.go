package entities

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("insufficient permissions")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("already exists")
	ErrMalformedToken  = errors.New("malformed token")
	ErrMissingClaim    = errors.New("missing claim")
	ErrUnknownRole     = errors.New("unknown role")
	ErrTaskNotFound    = fmt.Errorf("task %w", ErrNotFound)
	ErrProjectNotFound = fmt.Errorf("project %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
)

// MalformedTokenError is returned when a token payload cannot be read as the
// expected claim structure.
type MalformedTokenError struct {
	Reason string
	Err    error
}

func (e *MalformedTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed token: %s: %v", e.Reason, e.Err)
	}
	return "malformed token: " + e.Reason
}

func (e *MalformedTokenError) Unwrap() error { return e.Err }

func (e *MalformedTokenError) Is(target error) bool { return target == ErrMalformedToken }

// MissingClaimError is returned when a required claim is absent from an
// otherwise well-formed token.
type MissingClaimError struct {
	Claim string
}

func (e *MissingClaimError) Error() string {
	return fmt.Sprintf("missing claim %q", e.Claim)
}

func (e *MissingClaimError) Is(target error) bool { return target == ErrMissingClaim }
