package token

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
	"time"

	"resumeagent/cmd/security/keys"
)

func testPair(t *testing.T) keys.Pair {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return keys.Pair{Private: key, Public: &key.PublicKey}
}

func testCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(DefaultConfig(), testPair(t))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestIssuedTokensAreUniquePerCall(t *testing.T) {
	c := testCodec(t)
	// Second granularity on iat: without a distinct jti, two logins landing
	// in the same second would mint identical refresh tokens and collide on
	// the stored token hash.
	now := time.Now().UTC().Truncate(time.Second)

	first, _, err := c.IssueRefresh("alice@example.com", "USER", now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	second, _, err := c.IssueRefresh("alice@example.com", "USER", now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if first == second {
		t.Fatalf("same-instant refresh tokens must differ")
	}

	c1, err := c.Verify(first)
	if err != nil {
		t.Fatalf("Verify first: %v", err)
	}
	c2, err := c.Verify(second)
	if err != nil {
		t.Fatalf("Verify second: %v", err)
	}
	if c1.ID == "" || c2.ID == "" {
		t.Fatalf("expected jti on issued tokens, got %q and %q", c1.ID, c2.ID)
	}
	if c1.ID == c2.ID {
		t.Fatalf("jti must be unique per issued token")
	}
}

func TestIssueAndVerify_Access(t *testing.T) {
	c := testCodec(t)
	now := time.Now().UTC()

	tok, exp, err := c.IssueAccess("alice@example.com", "USER", now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if !exp.After(now) {
		t.Fatalf("expected expiry after now")
	}
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("expected compact JWS form, got %q", tok)
	}

	claims, err := c.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "alice@example.com" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.Role != "USER" {
		t.Fatalf("role = %q", claims.Role)
	}
	if !CheckType(claims, TypeAccess) {
		t.Fatalf("expected access type")
	}
}

func TestCheckType_RefusesTypeConfusion(t *testing.T) {
	c := testCodec(t)
	now := time.Now().UTC()

	refresh, _, err := c.IssueRefresh("alice@example.com", "USER", now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	// The refresh token is perfectly well signed; Verify must succeed.
	claims, err := c.Verify(refresh)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// But it must never be accepted where an access token is expected.
	if CheckType(claims, TypeAccess) {
		t.Fatalf("refresh token accepted as access token")
	}
	if !CheckType(claims, TypeRefresh) {
		t.Fatalf("refresh token rejected as refresh token")
	}
}

func TestVerify_Expired(t *testing.T) {
	c := testCodec(t)
	now := time.Now().UTC()

	tok, _, err := c.IssueAccess("alice@example.com", "USER", now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	// Move the verifier's clock past the token's expiry.
	c.now = func() time.Time { return now.Add(c.cfg.AccessTTL + time.Minute) }

	if _, err := c.Verify(tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_BadSignature(t *testing.T) {
	c := testCodec(t)
	now := time.Now().UTC()

	// Signed by a different keypair.
	other := testCodec(t)
	forged, _, err := other.IssueAccess("alice@example.com", "ADMIN", now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	if _, err := c.Verify(forged); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	c := testCodec(t)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := c.Verify(tok); !errors.Is(err, ErrMalformed) {
			t.Errorf("Verify(%q): expected ErrMalformed, got %v", tok, err)
		}
	}
}

func TestVerify_IssuerAndAudienceMismatch(t *testing.T) {
	pair := testPair(t)

	issue := func(cfg Config) string {
		t.Helper()
		issuer, err := NewCodec(cfg, pair)
		if err != nil {
			t.Fatalf("NewCodec: %v", err)
		}
		tok, _, err := issuer.IssueAccess("alice@example.com", "USER", time.Now().UTC())
		if err != nil {
			t.Fatalf("IssueAccess: %v", err)
		}
		return tok
	}

	verifier, err := NewCodec(DefaultConfig(), pair)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	wrongIss := DefaultConfig()
	wrongIss.Issuer = "someone-else"
	if _, err := verifier.Verify(issue(wrongIss)); !errors.Is(err, ErrIssuerMismatch) {
		t.Fatalf("expected ErrIssuerMismatch, got %v", err)
	}

	wrongAud := DefaultConfig()
	wrongAud.Audience = "someone-else"
	if _, err := verifier.Verify(issue(wrongAud)); !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}
}

func TestVerify_RejectsAlgorithmSubstitution(t *testing.T) {
	c := testCodec(t)

	// An HS256 token keyed with the public key bytes is a classic
	// confusion attack; WithValidMethods must refuse it outright.
	hs := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJhbGljZUBleGFtcGxlLmNvbSJ9.invalid"
	if _, err := c.Verify(hs); err == nil {
		t.Fatalf("expected rejection of non-RS256 token")
	}
}

func TestConfigValidate(t *testing.T) {
	pair := testPair(t)

	bad := DefaultConfig()
	bad.Issuer = ""
	if _, err := NewCodec(bad, pair); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for empty issuer, got %v", err)
	}

	inverted := DefaultConfig()
	inverted.AccessTTL = inverted.RefreshTTL * 2
	if _, err := NewCodec(inverted, pair); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for access TTL > refresh TTL, got %v", err)
	}

	if _, err := NewCodec(DefaultConfig(), keys.Pair{}); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for missing keys, got %v", err)
	}
}
