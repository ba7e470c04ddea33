package password

import (
	"errors"
	"strings"
	"testing"
)

func testConfig() Config {
	cfg := DefaultConfig()
	// Keep tests fast; production costs are irrelevant to correctness here.
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	return cfg
}

func TestHashAndVerify(t *testing.T) {
	cfg := testConfig()

	enc, err := cfg.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(enc, "$argon2id$v=19$") {
		t.Fatalf("unexpected encoding: %q", enc)
	}

	ok, err := cfg.Verify("correct horse battery staple", enc)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}

	ok, err = cfg.Verify("wrong password", enc)
	if err != nil {
		t.Fatalf("Verify mismatch: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestHash_SaltsDiffer(t *testing.T) {
	cfg := testConfig()

	a, err := cfg.Hash("password-123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := cfg.Hash("password-123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password must not be identical")
	}
}

func TestPolicy(t *testing.T) {
	cfg := testConfig()

	if _, err := cfg.Hash("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := cfg.Hash(strings.Repeat("a", 300)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestVerify_MalformedHashes(t *testing.T) {
	cfg := testConfig()

	cases := []string{
		"",
		"not a hash",
		"$argon2i$v=19$m=8192,t=1,p=1$AAAA$BBBB",
		"$argon2id$v=18$m=8192,t=1,p=1$AAAA$BBBB",
		"$argon2id$v=19$m=0,t=1,p=1$AAAA$BBBB",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$BBBB",
	}
	for _, enc := range cases {
		if _, err := cfg.Verify("whatever", enc); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("Verify(%q): expected ErrInvalidHash, got %v", enc, err)
		}
	}
}

func TestVerify_RefusesOversizedParams(t *testing.T) {
	cfg := testConfig()

	// A hash claiming hugely more memory than configured must be refused,
	// not computed.
	big := DefaultConfig()
	big.Params.MemoryKiB = cfg.Params.MemoryKiB * 8
	big.Params.Iterations = 1
	enc, err := big.Hash("password-123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if _, err := cfg.Verify("password-123", enc); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash for oversized params, got %v", err)
	}
}
