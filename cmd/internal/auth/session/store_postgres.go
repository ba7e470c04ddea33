package session

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresStore implements Store on the refresh_tokens table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const recordColumns = `
	id, user_id, token_hash,
	created_at, last_used_at, expires_at, revoked_at,
	replaced_by_token_id, revocation_reason,
	host(ip), COALESCE(user_agent, '')
`

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec    Record
		ipText *string
	)
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TokenHash,
		&rec.CreatedAt,
		&rec.LastUsedAt,
		&rec.ExpiresAt,
		&rec.RevokedAt,
		&rec.ReplacedByID,
		&rec.RevocationReason,
		&ipText,
		&rec.UserAgent,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrSessionNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if ipText != nil {
		rec.IP = net.ParseIP(*ipText)
	}
	return rec, nil
}

// Create inserts a new session row and returns its ULID.
func (s *PostgresStore) Create(ctx context.Context, now time.Time, userID, tokenHash string, expiresAt time.Time, client Client) (string, error) {
	id := ulid.Make().String()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash,
			created_at, last_used_at, expires_at, revoked_at,
			replaced_by_token_id, revocation_reason, ip, user_agent
		) VALUES (
			$1, $2, $3,
			$4, $4, $5, NULL,
			NULL, NULL, $6, $7
		)
	`, id, userID, tokenHash, now, expiresAt, nullableIP(client.IP), nullIfEmpty(client.UserAgent))
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateToken
		}
		return "", err
	}

	return id, nil
}

// GetByTokenHash loads a session row by refresh token hash.
func (s *PostgresStore) GetByTokenHash(ctx context.Context, tokenHash string) (Record, error) {
	return scanRecord(s.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM refresh_tokens
		WHERE token_hash = $1
	`, tokenHash))
}

// Rotate inserts the replacement row and revokes the old one in a single
// transaction. The revoking UPDATE carries a revoked_at IS NULL guard:
// if another rotation or a revoke landed first, zero rows match and the
// whole transaction rolls back, so concurrent rotations have exactly one
// winner.
func (s *PostgresStore) Rotate(ctx context.Context, now time.Time, oldID, userID, newHash string, newExpiresAt time.Time, client Client) (string, error) {
	newID := ulid.Make().String()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash,
			created_at, last_used_at, expires_at, revoked_at,
			replaced_by_token_id, revocation_reason, ip, user_agent
		) VALUES (
			$1, $2, $3,
			$4, $4, $5, NULL,
			NULL, NULL, $6, $7
		)
	`, newID, userID, newHash, now, newExpiresAt, nullableIP(client.IP), nullIfEmpty(client.UserAgent))
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateToken
		}
		return "", err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET
			last_used_at = $2,
			revoked_at = $2,
			replaced_by_token_id = $3,
			revocation_reason = 'rotation'
		WHERE id = $1 AND revoked_at IS NULL
	`, oldID, now, newID)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		return "", ErrSessionRevoked
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return newID, nil
}

// Touch updates last_used_at for a session.
func (s *PostgresStore) Touch(ctx context.Context, now time.Time, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET last_used_at = $2
		WHERE id = $1
	`, id, now)
	return err
}

// Revoke revokes a single session (idempotent).
func (s *PostgresStore) Revoke(ctx context.Context, now time.Time, id, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = COALESCE(revoked_at, $2),
		    revocation_reason = COALESCE(revocation_reason, $3)
		WHERE id = $1
	`, id, now, reason)
	return err
}

// RevokeAllForUser revokes all sessions for a user (idempotent).
func (s *PostgresStore) RevokeAllForUser(ctx context.Context, now time.Time, userID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = COALESCE(revoked_at, $2),
		    revocation_reason = COALESCE(revocation_reason, $3)
		WHERE user_id = $1
	`, userID, now, reason)
	return err
}

// PurgeExpired deletes expired rows. Revoked-but-unexpired rows are kept so
// reuse detection still sees the replacement link.
func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountActive counts live, unexpired sessions for a user.
func (s *PostgresStore) CountActive(ctx context.Context, userID string, now time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
	`, userID, now).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ListActive lists live, unexpired sessions for a user, newest first.
func (s *PostgresStore) ListActive(ctx context.Context, userID string, now time.Time) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func nullableIP(ip net.IP) any {
	if ip == nil {
		return nil
	}
	return ip
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
