package authapi

import (
	"context"
	"time"

	"resumeagent/cmd/identity"
	"resumeagent/cmd/internal/auth/session"
	"resumeagent/cmd/internal/auth/token"
)

// SessionService is the slice of session.Service the handler needs.
type SessionService interface {
	Issue(ctx context.Context, now time.Time, userID, email, role string, client session.Client) (session.Issued, error)
	Rotate(ctx context.Context, now time.Time, refreshToken string, client session.Client) (session.Issued, error)
	RevokeByToken(ctx context.Context, now time.Time, refreshToken string) error
	RevokeAll(ctx context.Context, now time.Time, userID, reason string) error
}

// CredentialVerifier authenticates login credentials.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (identity.Principal, error)
}

// TokenVerifier parses and validates signed tokens. Satisfied by *token.Codec.
type TokenVerifier interface {
	Verify(tokenString string) (token.Claims, error)
}

// EmailVerificationMessage is the payload for verification email delivery.
type EmailVerificationMessage struct {
	UserID string
	Email  string
	Token  string
}

// EmailSender delivers verification emails. Delivery providers are wired by
// the application; the default drops messages so local setups work without
// SMTP credentials.
type EmailSender interface {
	SendEmailVerification(ctx context.Context, msg EmailVerificationMessage) error
}

// NoopEmailSender is the default email sender.
type NoopEmailSender struct{}

func (NoopEmailSender) SendEmailVerification(context.Context, EmailVerificationMessage) error {
	return nil
}
