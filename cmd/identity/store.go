package identity

import (
	"context"
	"time"
)

// Role is the authorization role of a principal.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Plan is the subscription tier of a principal.
type Plan string

const (
	PlanFree Plan = "FREE"
	PlanPro  Plan = "PRO"
)

// Generation allowances per plan.
const (
	FreeGenerationLimit = 3
	ProGenerationLimit  = 100
)

// Principal is the canonical security principal.
type Principal struct {
	ID            string
	Email         string
	FullName      string
	Role          Role
	Plan          Plan
	EmailVerified bool

	GenerationLimit int
	GenerationUsed  int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthRecord is a Principal plus its stored password hash. It exists only on
// the credential-verification path and must never be serialized outward.
type AuthRecord struct {
	Principal
	PasswordHash string
}

// CreateUserInput describes a registration request. Password arrives already
// hashed; plaintext never crosses the store boundary.
type CreateUserInput struct {
	Email        string
	FullName     string
	PasswordHash string
	Now          time.Time
}

// Store is the identity persistence boundary.
type Store interface {
	// CreateUser creates a principal with email_verified=false and seeds its
	// password history with the initial hash, transactionally.
	CreateUser(ctx context.Context, in CreateUserInput) (Principal, error)

	// GetByEmail loads a principal and its password hash by normalized email.
	GetByEmail(ctx context.Context, email string) (AuthRecord, error)

	// GetByID loads a principal by ID.
	GetByID(ctx context.Context, id string) (Principal, error)

	// CreateVerificationToken mints a single-use email verification token and
	// returns its plaintext. Only the hash is stored.
	CreateVerificationToken(ctx context.Context, now time.Time, userID string, ttl time.Duration) (string, error)

	// VerifyEmail consumes a verification token by hash and flips
	// email_verified, transactionally. Unknown, expired, and already-used
	// tokens all fail with ErrVerificationInvalid.
	VerifyEmail(ctx context.Context, now time.Time, tokenHash string) (userID string, err error)

	// PasswordHashes returns up to limit most recent password hashes for the
	// user, newest first, including the current one.
	PasswordHashes(ctx context.Context, userID string, limit int) ([]string, error)

	// UpdatePassword sets a new password hash and appends it to the history,
	// transactionally.
	UpdatePassword(ctx context.Context, now time.Time, userID, newHash string) error

	// ConsumeGeneration increments generation_used if the allowance permits,
	// returning ErrQuotaExhausted otherwise.
	ConsumeGeneration(ctx context.Context, now time.Time, userID string) error
}
