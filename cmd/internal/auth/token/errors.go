package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// The verification error taxonomy. Callers must not conflate these when
// logging for audit, but all of them mean "not authenticated" to the client.
var (
	ErrBadSignature     = errors.New("token signature invalid")
	ErrMalformed        = errors.New("token malformed")
	ErrExpired          = errors.New("token expired")
	ErrIssuerMismatch   = errors.New("token issuer mismatch")
	ErrAudienceMismatch = errors.New("token audience mismatch")
	ErrInvalidToken     = errors.New("token invalid")

	// ErrConfig is returned for invalid codec configuration.
	ErrConfig = errors.New("invalid token config")
)

// mapVerifyError translates golang-jwt parse errors into the codec's stable
// taxonomy. Order matters: an expired token with a valid signature must
// report expiry, not a generic failure.
func mapVerifyError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuerMismatch
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudienceMismatch
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrInvalidToken
	}
}
