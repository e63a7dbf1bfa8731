// Package common defines shared constants and sentinel errors used across
// the account store, the authentication backends and the gRPC layer.
// Callers should use errors.Is to match these values.
package common

import "errors"

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorReferential   = errors.New("referenced record does not exist")

	// Service-level errors.
	ErrorInternal         = errors.New("internal error")
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrorPermissionDenied = errors.New("permission denied")

	// Validation errors.
	ErrorValidation   = errors.New("validation error")
	ErrorInvalidValue = errors.New("invalid value")

	// ErrorNotSupported is returned by operations that have no meaning
	// for the anonymous principal.
	ErrorNotSupported = errors.New("operation not supported")

	// Startup configuration errors.
	ErrorImproperlyConfigured = errors.New("improperly configured")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// FieldError is a validation failure attached to a single field.
//
// It matches ErrorValidation with errors.Is, and also its Err cause
// (for example ErrorAlreadyExists for a duplicate email address).
type FieldError struct {
	Field string
	Msg   string
	Err   error
}

// NewFieldError builds a FieldError without an underlying cause.
func NewFieldError(field, msg string) *FieldError {
	return &FieldError{Field: field, Msg: msg}
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Msg
}

func (e *FieldError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrorValidation}
	}
	return []error{ErrorValidation, e.Err}
}
