package session

import "errors"

var (
	// ErrSessionNotFound is returned when a refresh token does not match any session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when the session is past its expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionRevoked is returned when the session has been revoked,
	// including when a concurrent rotation of the same token won the race.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrReuseDetected is returned when a rotated (replaced) refresh token is
	// presented again. All of the user's sessions are revoked before this is
	// returned.
	ErrReuseDetected = errors.New("refresh token reuse detected")

	// ErrDuplicateToken is returned when an insert collides on the stored
	// token hash. Tokens carry a unique jti, so this indicates a re-stored
	// token rather than an issuance accident.
	ErrDuplicateToken = errors.New("duplicate refresh token")
)
