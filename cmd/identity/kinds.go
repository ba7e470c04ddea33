package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")

	// ErrInvalidCredentials covers unknown email and wrong password alike, so
	// login failures never reveal whether an account exists.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrEmailNotVerified is returned for correct credentials on an account
	// that has not completed email verification.
	ErrEmailNotVerified = errors.New("email_not_verified")

	// ErrPasswordReused rejects a password change to a recently used password.
	ErrPasswordReused = errors.New("password_reused")

	// ErrVerificationInvalid covers unknown, expired, and already-used email
	// verification tokens, indistinguishably.
	ErrVerificationInvalid = errors.New("verification_invalid")

	// ErrQuotaExhausted is returned when a principal's generation allowance
	// for the current plan is used up.
	ErrQuotaExhausted = errors.New("quota_exhausted")
)
