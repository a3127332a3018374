// Package common defines the sentinel errors shared by the service, repository
// and HTTP layers. Callers match them with errors.Is; the HTTP layer owns the
// mapping to status codes.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Input and state-conflict errors.
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("already exists")
	ErrAlreadyVerified = errors.New("already verified")

	// Credential-flow errors. ErrInvalidCredentials deliberately covers both
	// "no such account" and "wrong secret" so callers cannot enumerate users.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnverified         = errors.New("email not verified")
	ErrOTPExpired         = errors.New("otp expired")

	// Request-guard errors.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	// Infrastructure errors.
	ErrDelivery = errors.New("delivery failed")
	ErrInternal = errors.New("internal error")
)
