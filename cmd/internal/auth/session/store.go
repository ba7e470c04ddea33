package session

import (
	"context"
	"net"
	"time"
)

// Client describes the client that owns a session, recorded for auditability.
type Client struct {
	IP        net.IP
	UserAgent string
}

// Record mirrors a refresh_tokens row.
type Record struct {
	ID               string
	UserID           string
	TokenHash        string
	CreatedAt        time.Time
	LastUsedAt       *time.Time
	ExpiresAt        time.Time
	RevokedAt        *time.Time
	ReplacedByID     *string
	RevocationReason *string
	IP               net.IP
	UserAgent        string
}

// Revoked reports whether the session has been revoked.
func (r Record) Revoked() bool { return r.RevokedAt != nil }

// Store abstracts persistence for session state.
//
// Rotate must be atomic: either the replacement row exists and the old row is
// revoked, or neither happened. Implementations must also guarantee that of
// any number of concurrent Rotate calls for the same old row, exactly one
// succeeds.
type Store interface {
	// Create inserts a new session row and returns its ID.
	Create(ctx context.Context, now time.Time, userID, tokenHash string, expiresAt time.Time, client Client) (string, error)

	// GetByTokenHash loads a session row by refresh token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (Record, error)

	// Rotate creates the replacement row and revokes the old row in one
	// transaction. The old row is only revoked if it is still live; if a
	// concurrent rotation or revocation got there first, Rotate returns
	// ErrSessionRevoked and creates nothing.
	Rotate(ctx context.Context, now time.Time, oldID, userID, newHash string, newExpiresAt time.Time, client Client) (newID string, err error)

	// Touch updates last_used_at for a session.
	Touch(ctx context.Context, now time.Time, id string) error

	// Revoke revokes a single session (idempotent).
	Revoke(ctx context.Context, now time.Time, id, reason string) error

	// RevokeAllForUser revokes all sessions for a user (idempotent).
	RevokeAllForUser(ctx context.Context, now time.Time, userID, reason string) error

	// PurgeExpired deletes rows whose expiry is in the past and returns the
	// number deleted.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)

	// CountActive counts live, unexpired sessions for a user.
	CountActive(ctx context.Context, userID string, now time.Time) (int64, error)

	// ListActive lists live, unexpired sessions for a user, newest first.
	ListActive(ctx context.Context, userID string, now time.Time) ([]Record, error)
}
