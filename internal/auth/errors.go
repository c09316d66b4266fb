package auth

import "errors"

// Authentication failures. The three local-strategy variants are kept
// distinct for logging but collapse to one generic user-facing message so
// responses never reveal which part of the credentials was wrong.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoLocalCredential  = errors.New("account has no local password")

	// ErrUserAlreadyExists is a registration conflict
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrFederatedAuthFailure covers any upstream provider failure: bad
	// state, code exchange, profile fetch or decode, timeouts
	ErrFederatedAuthFailure = errors.New("federated authentication failed")

	// ErrSessionInvalid is an expired or tampered session token
	ErrSessionInvalid = errors.New("session invalid or expired")
)

// IsAuthFailure reports whether err is a credential-level failure, as
// opposed to an infrastructure error that must surface as a server error.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrNoLocalCredential)
}
