package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resumeagent/cmd/security/password"
)

// CredentialSource is the slice of Store the verifier needs.
type CredentialSource interface {
	GetByEmail(ctx context.Context, email string) (AuthRecord, error)
}

// Verifier checks login credentials against stored Argon2id hashes.
//
// Failure modes are deliberately collapsed: unknown email and wrong password
// both yield ErrInvalidCredentials, and the unknown-email path still runs a
// full Argon2id verification against a throwaway hash so the two cases take
// comparable time.
type Verifier struct {
	source    CredentialSource
	pw        password.Config
	dummyHash string
}

// NewVerifier constructs a Verifier. The dummy hash is derived once at
// startup so the per-login cost matches a real verification.
func NewVerifier(source CredentialSource, pw password.Config) (*Verifier, error) {
	if source == nil {
		return nil, fmt.Errorf("identity: nil credential source")
	}

	dummy, err := pw.Hash(fmt.Sprintf("decoy-%d", time.Now().UnixNano()))
	if err != nil {
		return nil, err
	}

	return &Verifier{source: source, pw: pw, dummyHash: dummy}, nil
}

// Verify authenticates an email/password pair and returns the principal.
func (v *Verifier) Verify(ctx context.Context, email, plain string) (Principal, error) {
	const op = "identity.Verify"

	rec, err := v.source.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn the same work as a real check before failing.
			_, _ = v.pw.Verify(plain, v.dummyHash)
			return Principal{}, OpError{Op: op, Kind: ErrInvalidCredentials}
		}
		return Principal{}, err
	}

	ok, err := v.pw.Verify(plain, rec.PasswordHash)
	if err != nil || !ok {
		return Principal{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}

	if !rec.EmailVerified {
		return Principal{}, OpError{Op: op, Kind: ErrEmailNotVerified}
	}

	return rec.Principal, nil
}
