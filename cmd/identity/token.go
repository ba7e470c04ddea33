package identity

import (
	"crypto/rand"
	"encoding/base64"

	"resumeagent/cmd/security/token"
)

// NewVerificationToken returns a cryptographically random, URL-safe token for
// email verification links. The server stores only its hash.
func NewVerificationToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32
	}

	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashVerificationTokenHex returns the server-stored hash for verification
// tokens. Verification tokens are single-use and short-lived, so plain
// SHA-256 suffices; the HMAC hardening applies to refresh tokens only.
func HashVerificationTokenHex(tokenStr string) string {
	return token.HashSHA256Hex(tokenStr)
}
