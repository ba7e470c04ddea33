// Package password provides password hashing and verification for the
// resumeagent backend.
//
// It implements Argon2id with a PHC-style encoded string format and includes:
//   - Configurable Argon2id parameters with secure defaults
//   - Password policy validation (length bounds)
//   - Strict hash decoding with anti-DoS parameter bounds during Verify
//
// Encoded hashes are treated as untrusted input during Verify: hashes whose
// parameters exceed reasonable bounds are refused rather than computed.
package password
