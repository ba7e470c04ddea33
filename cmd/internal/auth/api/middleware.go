package authapi

import (
	"context"
	"log/slog"
	"net/http"

	"resumeagent/cmd/identity"
	"resumeagent/cmd/internal/auth/token"
)

type ctxKey int

const principalKey ctxKey = iota

// PrincipalFrom returns the authenticated principal, if the gate attached one.
func PrincipalFrom(ctx context.Context) (identity.Principal, bool) {
	p, ok := ctx.Value(principalKey).(identity.Principal)
	return p, ok
}

// PrincipalSource loads a principal by email for per-request identity checks.
type PrincipalSource interface {
	GetByEmail(ctx context.Context, email string) (identity.AuthRecord, error)
}

// Gate authenticates requests from the access cookie.
//
// Every failure mode — missing cookie, bad signature, expiry, wrong token
// type, deleted account — degrades to an unauthenticated request rather than
// an error response. Handlers that need a principal decide the status code.
// Identity is loaded fresh from the store on every request, so a role change
// or deletion takes effect immediately, not at token expiry.
type Gate struct {
	log        *slog.Logger
	cookies    *CookieTransport
	tokens     TokenVerifier
	principals PrincipalSource
}

// NewGate constructs an authentication gate.
func NewGate(log *slog.Logger, cookies *CookieTransport, tokens TokenVerifier, principals PrincipalSource) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{log: log, cookies: cookies, tokens: tokens, principals: principals}
}

// Wrap attaches the authenticated principal to the request context when the
// access cookie checks out, and passes the request through untouched when it
// does not.
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := g.cookies.AccessFromRequest(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := g.tokens.Verify(raw)
		if err != nil {
			g.log.Debug("auth.gate.reject", "reason", err.Error())
			next.ServeHTTP(w, r)
			return
		}
		// A refresh token in the access cookie verifies fine; it still must
		// not authenticate a request.
		if !token.CheckType(claims, token.TypeAccess) {
			g.log.Debug("auth.gate.reject", "reason", "wrong token type")
			next.ServeHTTP(w, r)
			return
		}

		rec, err := g.principals.GetByEmail(r.Context(), claims.Subject)
		if err != nil {
			if !identity.IsNotFound(err) {
				g.log.Error("auth.gate.load.fail", "err", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, rec.Principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require wraps a handler that must have a principal, rejecting with 401
// otherwise.
func (g *Gate) Require(next http.Handler) http.Handler {
	return g.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
