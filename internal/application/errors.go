package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission
	// for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a uniqueness rule rejects a create.
	ErrAlreadyExists = errors.New("application: already exists")

	// ErrInvalidCredentials is returned when an email/password pair or a
	// session token does not authenticate.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session's validity window passed.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session was explicitly revoked.
	ErrSessionRevoked = errors.New("application: session revoked")

	// ErrInvalidEmailDomain is returned when the signup email is outside the
	// approved campus domains.
	ErrInvalidEmailDomain = errors.New("application: email domain not allowed")
	// ErrWeakPassword is returned when the signup password is too short.
	ErrWeakPassword = errors.New("application: password too weak")
	// ErrPasswordMismatch is returned when password confirmation differs.
	ErrPasswordMismatch = errors.New("application: passwords do not match")

	// ErrGameFull is returned when a join attempt finds no remaining slot.
	ErrGameFull = errors.New("application: game full")
	// ErrGameCancelled is returned when an operation targets a cancelled game.
	ErrGameCancelled = errors.New("application: game cancelled")
	// ErrNotOrganizer is returned when a non-organizer attempts an
	// organizer-only operation.
	ErrNotOrganizer = errors.New("application: not the organizer")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
