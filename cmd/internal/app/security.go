package app

import (
	"errors"

	"resumeagent/cmd/security/token"
)

// ValidateSecurityConfig enforces the deployment security policy at startup.
//
// Fail-fast is intentional: silently falling back to unkeyed token digests in
// production is unacceptable. Enforcement goes through the same module that
// performs the hashing (security/token), so the check cannot drift from the
// runtime behavior.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	// Minimum 32 bytes for an HMAC-SHA256 secret; measured in bytes, not
	// runes, because the key is used as raw bytes.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: RESUMEAGENT_REQUIRE_TOKEN_HMAC=true but RESUMEAGENT_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: RESUMEAGENT_REQUIRE_TOKEN_HMAC=true but RESUMEAGENT_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: RESUMEAGENT_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}

	return nil
}
