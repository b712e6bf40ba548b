package shared

import "errors"

var (
	// ErrNotFound indicates a referenced role, permission, user or instance is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a duplicate assignment.
	ErrConflict = errors.New("duplicate assignment")
	// ErrValidation indicates a malformed input value.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
