package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

// TokenIssuer mints the signed token pair for a principal. Satisfied by
// *token.Codec; narrowed to an interface so tests can use a stub.
type TokenIssuer interface {
	IssueAccess(subject, role string, now time.Time) (token string, exp time.Time, err error)
	IssueRefresh(subject, role string, now time.Time) (token string, exp time.Time, err error)
}

// Subjects resolves a user ID to the identity claims embedded in tokens.
// Rotation re-reads identity on every refresh so a role or email change
// takes effect at the next rotation rather than at token expiry.
type Subjects interface {
	Subject(ctx context.Context, userID string) (email, role string, err error)
}

// Issued is the result of issuing or rotating a session.
type Issued struct {
	RecordID     string
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// Service implements the high-level session operations: issue on login,
// rotation with reuse detection on refresh, and revocation on logout.
type Service struct {
	store    Store
	tokens   TokenIssuer
	subjects Subjects
}

// NewService constructs a Service over the given store and token issuer.
func NewService(store Store, tokens TokenIssuer, subjects Subjects) *Service {
	return &Service{store: store, tokens: tokens, subjects: subjects}
}

// Issue creates a new session for a freshly authenticated principal and
// returns both tokens. The refresh token is persisted only as a hash; its
// row expiry is the token's own expiry.
func (s *Service) Issue(ctx context.Context, now time.Time, userID, email, role string, client Client) (Issued, error) {
	accessToken, accessExp, err := s.tokens.IssueAccess(email, role, now)
	if err != nil {
		return Issued{}, err
	}

	refreshToken, refreshExp, err := s.tokens.IssueRefresh(email, role, now)
	if err != nil {
		return Issued{}, err
	}

	id, err := s.store.Create(ctx, now, userID, hashRefreshTokenHex(refreshToken), refreshExp, client)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		RecordID:     id,
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshToken,
		RefreshExp:   refreshExp,
	}, nil
}

// Rotate redeems a refresh token for a fresh token pair.
//
// Security model:
//   - An unknown hash is ErrSessionNotFound.
//   - A rotated token (revoked with a replacement link) presented again is
//     reuse: every session the user has is revoked, then ErrReuseDetected.
//   - A revoked token without a replacement is an ordinary logout.
//   - An expired token fails before any write.
//   - Of concurrent rotations of the same token, the store guarantees exactly
//     one winner; losers surface ErrSessionRevoked without touching the
//     user's other sessions.
func (s *Service) Rotate(ctx context.Context, now time.Time, refreshToken string, client Client) (Issued, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	// Sanity bounds against pathological inputs.
	if refreshToken == "" || len(refreshToken) > 4096 {
		return Issued{}, ErrSessionNotFound
	}

	rec, err := s.store.GetByTokenHash(ctx, hashRefreshTokenHex(refreshToken))
	if err != nil {
		return Issued{}, err
	}

	if rec.Revoked() && rec.ReplacedByID != nil {
		// The token was already redeemed once. Treat as theft.
		if err := s.store.RevokeAllForUser(ctx, now, rec.UserID, "reuse_detected"); err != nil {
			return Issued{}, err
		}
		return Issued{}, ErrReuseDetected
	}
	if rec.Revoked() {
		return Issued{}, ErrSessionRevoked
	}
	if !rec.ExpiresAt.After(now) {
		return Issued{}, ErrSessionExpired
	}

	// Identity is re-read, never copied from the presented token.
	email, role, err := s.subjects.Subject(ctx, rec.UserID)
	if err != nil {
		return Issued{}, err
	}

	accessToken, accessExp, err := s.tokens.IssueAccess(email, role, now)
	if err != nil {
		return Issued{}, err
	}
	newRefresh, newRefreshExp, err := s.tokens.IssueRefresh(email, role, now)
	if err != nil {
		return Issued{}, err
	}

	newID, err := s.store.Rotate(ctx, now, rec.ID, rec.UserID, hashRefreshTokenHex(newRefresh), newRefreshExp, client)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		RecordID:     newID,
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: newRefresh,
		RefreshExp:   newRefreshExp,
	}, nil
}

// RevokeByToken revokes the session matching the presented refresh token.
// Logout must succeed regardless of token state, so an unknown or already
// revoked token is not an error.
func (s *Service) RevokeByToken(ctx context.Context, now time.Time, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" || len(refreshToken) > 4096 {
		return nil
	}

	rec, err := s.store.GetByTokenHash(ctx, hashRefreshTokenHex(refreshToken))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}

	return s.store.Revoke(ctx, now, rec.ID, "logout")
}

// RevokeAll revokes every session for a user (password change, admin action).
func (s *Service) RevokeAll(ctx context.Context, now time.Time, userID, reason string) error {
	return s.store.RevokeAllForUser(ctx, now, userID, reason)
}

// Touch updates last_used_at for a session (best-effort).
func (s *Service) Touch(ctx context.Context, now time.Time, id string) error {
	return s.store.Touch(ctx, now, id)
}

// PurgeExpired deletes expired rows; the sweeper calls this periodically.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.store.PurgeExpired(ctx, now)
}

// CountActive counts live sessions for a user.
func (s *Service) CountActive(ctx context.Context, userID string, now time.Time) (int64, error) {
	return s.store.CountActive(ctx, userID, now)
}

// ListActive lists live sessions for a user.
func (s *Service) ListActive(ctx context.Context, userID string, now time.Time) ([]Record, error) {
	return s.store.ListActive(ctx, userID, now)
}
