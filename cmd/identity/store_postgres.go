package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"resumeagent/cmd/identity/ids"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must not close it.
// Errors are mapped to the package's sentinel kinds where appropriate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const principalColumns = `
	id, email, full_name, role, plan, email_verified,
	generation_limit, generation_used, created_at, updated_at
`

func scanPrincipal(row pgx.Row) (Principal, error) {
	var p Principal
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.Role,
		&p.Plan,
		&p.EmailVerified,
		&p.GenerationLimit,
		&p.GenerationUsed,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// CreateUser creates a principal and seeds its password history.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (Principal, error) {
	const op = "identity.CreateUser"

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return Principal{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email is required"}
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return Principal{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	userID, err := ids.NewULID(now)
	if err != nil {
		return Principal{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return Principal{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO users (
			id, email, email_norm, full_name, password_hash,
			role, plan, email_verified,
			generation_limit, generation_used,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, 0, $9, $9)
	`, userID, email, NormalizeEmail(email), strings.TrimSpace(in.FullName), in.PasswordHash,
		string(RoleUser), string(PlanFree), FreeGenerationLimit, now)
	if err != nil {
		if pgIsUniqueViolation(err) {
			return Principal{}, ConflictError{Op: op, Field: "email"}
		}
		return Principal{}, err
	}

	if err := insertPasswordHistoryTx(ctx, tx, now, userID, in.PasswordHash); err != nil {
		return Principal{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Principal{}, err
	}

	return Principal{
		ID:              userID,
		Email:           email,
		FullName:        strings.TrimSpace(in.FullName),
		Role:            RoleUser,
		Plan:            PlanFree,
		EmailVerified:   false,
		GenerationLimit: FreeGenerationLimit,
		GenerationUsed:  0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// GetByEmail loads a principal and its password hash by normalized email.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (AuthRecord, error) {
	const op = "identity.GetByEmail"

	var (
		rec  AuthRecord
		hash string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT `+principalColumns+`, password_hash
		FROM users
		WHERE email_norm = $1
	`, NormalizeEmail(email)).Scan(
		&rec.ID,
		&rec.Email,
		&rec.FullName,
		&rec.Role,
		&rec.Plan,
		&rec.EmailVerified,
		&rec.GenerationLimit,
		&rec.GenerationUsed,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&hash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return AuthRecord{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return AuthRecord{}, err
	}

	rec.PasswordHash = hash
	return rec, nil
}

// GetByID loads a principal by ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Principal, error) {
	const op = "identity.GetByID"

	p, err := scanPrincipal(s.pool.QueryRow(ctx, `
		SELECT `+principalColumns+`
		FROM users
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Principal{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return Principal{}, err
	}
	return p, nil
}

// CreateVerificationToken mints a single-use verification token.
func (s *PostgresStore) CreateVerificationToken(ctx context.Context, now time.Time, userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	plain, err := NewVerificationToken(32)
	if err != nil {
		return "", err
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return "", err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO email_verification_tokens (
			id, user_id, token_hash, created_at, expires_at, used_at
		) VALUES ($1, $2, $3, $4, $5, NULL)
	`, id, userID, HashVerificationTokenHex(plain), now, now.Add(ttl))
	if err != nil {
		return "", err
	}

	return plain, nil
}

// VerifyEmail consumes a verification token and flips email_verified.
// The consuming UPDATE carries a used_at IS NULL guard so a token redeems at
// most once even under concurrent requests.
func (s *PostgresStore) VerifyEmail(ctx context.Context, now time.Time, tokenHash string) (string, error) {
	const op = "identity.VerifyEmail"

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID string
	err = tx.QueryRow(ctx, `
		UPDATE email_verification_tokens
		SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING user_id
	`, tokenHash, now).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Unknown, expired, and spent tokens are indistinguishable.
		return "", OpError{Op: op, Kind: ErrVerificationInvalid}
	}
	if err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET email_verified = TRUE, updated_at = $2
		WHERE id = $1
	`, userID, now)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return userID, nil
}

// PasswordHashes returns the most recent password hashes, newest first.
func (s *PostgresStore) PasswordHashes(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.pool.Query(ctx, `
		SELECT password_hash
		FROM password_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// UpdatePassword sets a new password hash and appends it to the history.
func (s *PostgresStore) UpdatePassword(ctx context.Context, now time.Time, userID, newHash string) error {
	const op = "identity.UpdatePassword"

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, userID, newHash, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}

	if err := insertPasswordHistoryTx(ctx, tx, now, userID, newHash); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ConsumeGeneration increments generation_used within the allowance.
func (s *PostgresStore) ConsumeGeneration(ctx context.Context, now time.Time, userID string) error {
	const op = "identity.ConsumeGeneration"

	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET generation_used = generation_used + 1, updated_at = $2
		WHERE id = $1 AND generation_used < generation_limit
	`, userID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the user is missing or the allowance is spent; callers that
		// got here hold an authenticated principal, so report the quota.
		return OpError{Op: op, Kind: ErrQuotaExhausted}
	}
	return nil
}

func insertPasswordHistoryTx(ctx context.Context, tx pgx.Tx, now time.Time, userID, hash string) error {
	id, err := ids.NewULID(now)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO password_history (id, user_id, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, userID, hash, now)
	return err
}

func pgIsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
