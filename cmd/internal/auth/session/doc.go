// Package session implements the server-side refresh-token session model.
//
// Each login creates one session row keyed by the hash of the refresh token
// (HMAC-SHA256 when RESUMEAGENT_TOKEN_HMAC_KEY is set; otherwise SHA-256).
// Refresh is rotation: the presented token's row is revoked and linked to a
// freshly created replacement inside one transaction, so a given refresh
// token can be redeemed at most once. Presenting an already-rotated token is
// treated as theft and revokes every session the user has.
//
// The signed token format and the HTTP transport live elsewhere; this package
// only deals in token hashes and rows.
package session
