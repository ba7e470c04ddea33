// Package token implements the signed-token codec for the auth subsystem.
//
// Both token classes (access and refresh) are RS256-signed JWTs carrying the
// same claim shape: a unique id, subject (principal email), role, token type,
// issued-at, expiry, issuer, and audience. They differ only in TTL and in whether a
// server-side session record backs them: refresh tokens always do, access
// tokens never do.
//
// Consumers must treat token strings as opaque and only interpret them
// through Verify.
package token

import (
	"crypto/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"resumeagent/cmd/security/keys"
)

// Type tags a token's purpose. The tag is a signed claim: a well-signed
// refresh token presented where an access token is expected must still be
// rejected, and vice versa.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Claims is the decoded claim set of a verified token.
type Claims struct {
	Role      string `json:"role"`
	TokenType Type   `json:"type"`
	jwt.RegisteredClaims
}

// CheckType reports whether the claims carry the expected token type.
//
// This check is deliberately independent of signature verification; callers
// must apply it after Verify, never instead of it, and never infer the type
// from transport context such as a cookie name.
func CheckType(c Claims, want Type) bool {
	return c.TokenType == want
}

// Codec issues and verifies signed tokens with an immutable RSA keypair.
// It is safe for unsynchronized concurrent use.
type Codec struct {
	cfg  Config
	pair keys.Pair

	// now is a test seam; production codecs use time.Now.
	now func() time.Time
}

// NewCodec builds a Codec from validated config and loaded key material.
func NewCodec(cfg Config, pair keys.Pair) (*Codec, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if pair.Private == nil || pair.Public == nil {
		return nil, ErrConfig
	}
	return &Codec{cfg: cfg, pair: pair, now: time.Now}, nil
}

// IssueAccess issues a short-lived access token for the principal.
func (c *Codec) IssueAccess(subject, role string, now time.Time) (string, time.Time, error) {
	return c.issue(subject, role, TypeAccess, c.cfg.AccessTTL, now)
}

// IssueRefresh issues a long-lived refresh token for the principal.
func (c *Codec) IssueRefresh(subject, role string, now time.Time) (string, time.Time, error) {
	return c.issue(subject, role, TypeRefresh, c.cfg.RefreshTTL, now)
}

func (c *Codec) issue(subject, role string, typ Type, ttl time.Duration, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)

	// iat has second granularity and RS256 signing is deterministic, so
	// without a unique jti two same-instant logins would mint byte-identical
	// refresh tokens and collide on the stored token hash.
	jti, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", time.Time{}, err
	}

	claims := Claims{
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   subject,
			Issuer:    c.cfg.Issuer,
			Audience:  jwt.ClaimStrings{c.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.pair.Private)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks the token's signature against the public key and validates
// expiry, issuer, and audience. Failures return one of the typed errors in
// errors.go so callers can log the specific sub-reason; every sub-reason
// collapses to "unauthenticated" at the HTTP boundary.
//
// Verify does not check the token type; callers apply CheckType separately.
func (c *Codec) Verify(tokenString string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) {
			return c.pair.Public, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(c.cfg.Issuer),
		jwt.WithAudience(c.cfg.Audience),
		jwt.WithLeeway(c.cfg.Leeway),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, mapVerifyError(err)
	}

	if claims.Subject == "" || claims.TokenType == "" {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}
