package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory Store with the same rotation guarantee as the
// Postgres implementation: the old row is only revoked if still live.
type fakeStore struct {
	mu   sync.Mutex
	rows map[string]*Record
	seq  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]*Record{}}
}

func (f *fakeStore) Create(_ context.Context, now time.Time, userID, tokenHash string, expiresAt time.Time, _ Client) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("rec-%04d", f.seq)
	f.rows[id] = &Record{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	return id, nil
}

func (f *fakeStore) GetByTokenHash(_ context.Context, tokenHash string) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.TokenHash == tokenHash {
			return *r, nil
		}
	}
	return Record{}, ErrSessionNotFound
}

func (f *fakeStore) Rotate(_ context.Context, now time.Time, oldID, userID, newHash string, newExpiresAt time.Time, _ Client) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	old, ok := f.rows[oldID]
	if !ok {
		return "", ErrSessionNotFound
	}
	if old.RevokedAt != nil {
		return "", ErrSessionRevoked
	}

	f.seq++
	newID := fmt.Sprintf("rec-%04d", f.seq)
	f.rows[newID] = &Record{
		ID:        newID,
		UserID:    userID,
		TokenHash: newHash,
		CreatedAt: now,
		ExpiresAt: newExpiresAt,
	}

	reason := "rotation"
	old.RevokedAt = &now
	old.ReplacedByID = &newID
	old.RevocationReason = &reason
	old.LastUsedAt = &now
	return newID, nil
}

func (f *fakeStore) Touch(_ context.Context, now time.Time, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[id]; ok {
		r.LastUsedAt = &now
	}
	return nil
}

func (f *fakeStore) Revoke(_ context.Context, now time.Time, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[id]; ok && r.RevokedAt == nil {
		r.RevokedAt = &now
		r.RevocationReason = &reason
	}
	return nil
}

func (f *fakeStore) RevokeAllForUser(_ context.Context, now time.Time, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == userID && r.RevokedAt == nil {
			r.RevokedAt = &now
			r.RevocationReason = &reason
		}
	}
	return nil
}

func (f *fakeStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.rows {
		if !r.ExpiresAt.After(now) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountActive(_ context.Context, userID string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.rows {
		if r.UserID == userID && r.RevokedAt == nil && r.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListActive(_ context.Context, userID string, now time.Time) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Record
	for _, r := range f.rows {
		if r.UserID == userID && r.RevokedAt == nil && r.ExpiresAt.After(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

// stubTokens issues unique, self-describing token strings so hashes never
// collide across calls.
type stubTokens struct {
	mu  sync.Mutex
	n   int
	ttl time.Duration
}

func (s *stubTokens) next(kind, subject string, now time.Time) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%s-%d", kind, subject, s.n), now.Add(s.ttl), nil
}

func (s *stubTokens) IssueAccess(subject, _ string, now time.Time) (string, time.Time, error) {
	return s.next("access", subject, now)
}

func (s *stubTokens) IssueRefresh(subject, _ string, now time.Time) (string, time.Time, error) {
	return s.next("refresh", subject, now)
}

type stubSubjects struct {
	email string
	role  string
	err   error
}

func (s stubSubjects) Subject(context.Context, string) (string, string, error) {
	return s.email, s.role, s.err
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	tokens := &stubTokens{ttl: time.Hour}
	return NewService(store, tokens, stubSubjects{email: "alice@example.com", role: "USER"}), store
}

func TestIssueCreatesHashedRow(t *testing.T) {
	svc, store := newTestService()
	now := time.Now().UTC()

	issued, err := svc.Issue(context.Background(), now, "user-1", "alice@example.com", "USER", Client{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued.AccessToken == "" || issued.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", issued)
	}

	rec, err := store.GetByTokenHash(context.Background(), hashRefreshTokenHex(issued.RefreshToken))
	if err != nil {
		t.Fatalf("GetByTokenHash: %v", err)
	}
	if rec.ID != issued.RecordID {
		t.Fatalf("record ID mismatch: %q vs %q", rec.ID, issued.RecordID)
	}
	if rec.TokenHash == issued.RefreshToken {
		t.Fatalf("refresh token stored in plaintext")
	}
	if !rec.ExpiresAt.Equal(issued.RefreshExp) {
		t.Fatalf("row expiry %v does not match token expiry %v", rec.ExpiresAt, issued.RefreshExp)
	}
}

func TestRotateLinksReplacement(t *testing.T) {
	svc, store := newTestService()
	now := time.Now().UTC()
	ctx := context.Background()

	first, err := svc.Issue(ctx, now, "user-1", "alice@example.com", "USER", Client{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	second, err := svc.Rotate(ctx, now.Add(time.Minute), first.RefreshToken, Client{})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("rotation returned the same refresh token")
	}

	old, err := store.GetByTokenHash(ctx, hashRefreshTokenHex(first.RefreshToken))
	if err != nil {
		t.Fatalf("old row lookup: %v", err)
	}
	if !old.Revoked() {
		t.Fatalf("old row not revoked after rotation")
	}
	if old.ReplacedByID == nil || *old.ReplacedByID != second.RecordID {
		t.Fatalf("old row not linked to replacement: %+v", old)
	}
}

func TestRotateUnknownToken(t *testing.T) {
	svc, _ := newTestService()
	now := time.Now().UTC()

	if _, err := svc.Rotate(context.Background(), now, "never-issued", Client{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Rotate(context.Background(), now, "   ", Client{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for blank token, got %v", err)
	}
}

func TestRotateExpiredToken(t *testing.T) {
	svc, _ := newTestService()
	now := time.Now().UTC()
	ctx := context.Background()

	issued, err := svc.Issue(ctx, now, "user-1", "alice@example.com", "USER", Client{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	late := now.Add(2 * time.Hour)
	if _, err := svc.Rotate(ctx, late, issued.RefreshToken, Client{}); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestRotateReuseRevokesEverySession(t *testing.T) {
	svc, store := newTestService()
	now := time.Now().UTC()
	ctx := context.Background()

	// Two live sessions for the same user, as with two browsers.
	first, err := svc.Issue(ctx, now, "user-1", "alice@example.com", "USER", Client{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Issue(ctx, now, "user-1", "alice@example.com", "USER", Client{}); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Legitimate rotation consumes the first token.
	rotated, err := svc.Rotate(ctx, now.Add(time.Minute), first.RefreshToken, Client{})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	// The consumed token comes back: reuse.
	if _, err := svc.Rotate(ctx, now.Add(2*time.Minute), first.RefreshToken, Client{}); !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("expected ErrReuseDetected, got %v", err)
	}

	// Every session for the user must now be dead, including the rotated one.
	n, err := store.CountActive(ctx, "user-1", now.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 active sessions after reuse, got %d", n)
	}
	if _, err := svc.Rotate(ctx, now.Add(3*time.Minute), rotated.RefreshToken, Client{}); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked for sibling session, got %v", err)
	}
}

func TestRotateConcurrentSingleWinner(t *testing.T) {
	svc, _ := newTestService()
	now := time.Now().UTC()
	ctx := context.Background()

	issued, err := svc.Issue(ctx, now, "user-1", "alice@example.com", "USER", Client{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const racers = 16
	results := make(chan error, racers)

	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < racers; i++ {
		go func() {
			start.Wait()
			_, err := svc.Rotate(ctx, now.Add(time.Minute), issued.RefreshToken, Client{})
			results <- err
		}()
	}
	start.Done()

	var wins int
	for i := 0; i < racers; i++ {
		err := <-results
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSessionRevoked), errors.Is(err, ErrReuseDetected):
			// Losers of the race.
		default:
			t.Fatalf("unexpected rotation error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one rotation winner, got %d", wins)
	}
}

func TestRevokeByTokenIsIdempotent(t *testing.T) {
	svc, store := newTestService()
	now := time.Now().UTC()
	ctx := context.Background()

	issued, err := svc.Issue(ctx, now, "user-1", "alice@example.com", "USER", Client{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.RevokeByToken(ctx, now, issued.RefreshToken); err != nil {
			t.Fatalf("RevokeByToken #%d: %v", i+1, err)
		}
	}
	// Unknown tokens are not an error either; logout always succeeds.
	if err := svc.RevokeByToken(ctx, now, "never-issued"); err != nil {
		t.Fatalf("RevokeByToken unknown: %v", err)
	}

	rec, err := store.GetByTokenHash(ctx, hashRefreshTokenHex(issued.RefreshToken))
	if err != nil {
		t.Fatalf("GetByTokenHash: %v", err)
	}
	if !rec.Revoked() {
		t.Fatalf("session not revoked after logout")
	}
	if _, err := svc.Rotate(ctx, now, issued.RefreshToken, Client{}); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked after logout, got %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	svc, store := newTestService()
	now := time.Now().UTC()
	ctx := context.Background()

	if _, err := svc.Issue(ctx, now, "user-1", "alice@example.com", "USER", Client{}); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Issue(ctx, now, "user-2", "bob@example.com", "USER", Client{}); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	n, err := svc.PurgeExpired(ctx, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged rows, got %d", n)
	}
	if got := len(store.rows); got != 0 {
		t.Fatalf("expected empty store, got %d rows", got)
	}
}
