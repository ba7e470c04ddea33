package keys

import "errors"

// Stable sentinel errors for startup diagnostics.
var (
	ErrKeyMissing   = errors.New("key file missing or unreadable")
	ErrKeyMalformed = errors.New("key file malformed")
	ErrKeyMismatch  = errors.New("public key does not match private key")
)
