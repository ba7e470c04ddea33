package session

import "resumeagent/cmd/security/token"

// hashRefreshTokenHex hides the concrete hashing scheme from the rest of the
// package. The plaintext token never reaches the store.
func hashRefreshTokenHex(s string) string {
	return token.HashRefreshTokenHex(s)
}
