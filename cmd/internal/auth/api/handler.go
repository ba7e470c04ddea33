package authapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"resumeagent/cmd/identity"
	"resumeagent/cmd/internal/auth/session"
	"resumeagent/cmd/security/password"
)

// Handler wires the HTTP auth endpoints to identity and session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	// pool is used only for best-effort audit rows; nil disables auditing.
	pool *pgxpool.Pool

	principals identity.Store
	sessions   SessionService
	verifier   CredentialVerifier
	cookies    *CookieTransport
	gate       *Gate
	pw         password.Config

	emailSender EmailSender

	now func() time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithEmailSender overrides the default no-op email sender.
func WithEmailSender(sender EmailSender) HandlerOption {
	return func(h *Handler) {
		if sender != nil {
			h.emailSender = sender
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(
	log *slog.Logger,
	cfg Config,
	pool *pgxpool.Pool,
	principals identity.Store,
	sessions SessionService,
	verifier CredentialVerifier,
	tokens TokenVerifier,
	pw password.Config,
	opts ...HandlerOption,
) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if principals == nil || sessions == nil || verifier == nil || tokens == nil {
		return nil, errors.New("authapi: missing dependency")
	}

	cookies := NewCookieTransport(cfg)
	h := &Handler{
		log:         log,
		cfg:         cfg,
		pool:        pool,
		principals:  principals,
		sessions:    sessions,
		verifier:    verifier,
		cookies:     cookies,
		gate:        NewGate(log, cookies, tokens, principals),
		pw:          pw,
		emailSender: NoopEmailSender{},
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Gate returns the authentication gate for routes outside this package.
func (h *Handler) Gate() *Gate { return h.gate }

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("POST /auth/verify-email", h.handleVerifyEmail)
	mux.Handle("POST /auth/change-password", h.gate.Require(http.HandlerFunc(h.handleChangePassword)))
	mux.Handle("GET /auth/me", h.gate.Require(http.HandlerFunc(h.handleMe)))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	email := strings.TrimSpace(req.Email)
	if !looksLikeEmail(email) {
		writeError(w, http.StatusBadRequest, "invalid_request", "a valid email is required")
		return
	}
	if err := h.pw.Validate(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "weak_password", "password does not meet policy")
		return
	}

	hash, err := h.pw.Hash(req.Password)
	if err != nil {
		h.log.Error("auth.register.hash.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	ctx := r.Context()
	now := h.now().UTC()

	p, err := h.principals.CreateUser(ctx, identity.CreateUserInput{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Now:          now,
	})
	if err != nil {
		if identity.IsConflict(err) {
			writeError(w, http.StatusConflict, "registration_failed", "unable to register with the provided email")
			return
		}
		if identity.IsInvalidInput(err) {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid registration data")
			return
		}
		h.log.Error("auth.register.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	verification, err := h.principals.CreateVerificationToken(ctx, now, p.ID, h.cfg.VerificationTTL)
	if err != nil {
		h.log.Error("auth.register.verification.fail", "err", err, "user_id", p.ID)
	} else if err := h.emailSender.SendEmailVerification(ctx, EmailVerificationMessage{
		UserID: p.ID,
		Email:  p.Email,
		Token:  verification,
	}); err != nil {
		h.log.Error("auth.register.email.fail", "err", err, "user_id", p.ID)
	}

	h.auditRegister(ctx, p.ID, clientIP(r, h.cfg.TrustProxy), userAgent(r))

	writeJSON(w, http.StatusCreated, messageResponse{
		Message: "registration successful, please verify your email",
		Email:   p.Email,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	now := h.now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := userAgent(r)

	p, err := h.verifier.Verify(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			loginsTotal.WithLabelValues("invalid_credentials").Inc()
			h.auditLoginFailed(ctx, ip, ua, identity.NormalizeEmail(req.Email), "invalid_credentials")
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		case errors.Is(err, identity.ErrEmailNotVerified):
			loginsTotal.WithLabelValues("email_not_verified").Inc()
			h.auditLoginFailed(ctx, ip, ua, identity.NormalizeEmail(req.Email), "email_not_verified")
			writeError(w, http.StatusForbidden, "email_not_verified", "email verification required")
		default:
			h.log.Error("auth.login.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	issued, err := h.sessions.Issue(ctx, now, p.ID, p.Email, string(p.Role), session.Client{IP: ip, UserAgent: ua})
	if err != nil {
		h.log.Error("auth.login.issue.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	loginsTotal.WithLabelValues("success").Inc()
	h.auditLoginSuccess(ctx, p.ID, ip, ua)

	h.cookies.SetSession(w, issued)
	writeJSON(w, http.StatusOK, messageResponse{Message: "login successful", Email: p.Email})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := h.cookies.RefreshFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "refresh token required")
		return
	}

	ctx := r.Context()
	now := h.now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := userAgent(r)

	issued, err := h.sessions.Rotate(ctx, now, refreshToken, session.Client{IP: ip, UserAgent: ua})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrReuseDetected):
			refreshesTotal.WithLabelValues("reuse_detected").Inc()
			reuseDetectedTotal.Inc()
			h.auditRefreshReuse(ctx, ip, ua)
			h.cookies.ClearSession(w)
			writeError(w, http.StatusUnauthorized, "session_not_active", "session not active")
		case errors.Is(err, session.ErrSessionExpired),
			errors.Is(err, session.ErrSessionRevoked),
			errors.Is(err, session.ErrSessionNotFound):
			refreshesTotal.WithLabelValues("rejected").Inc()
			h.cookies.ClearSession(w)
			writeError(w, http.StatusUnauthorized, "session_not_active", "session not active")
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	refreshesTotal.WithLabelValues("success").Inc()
	h.auditRefreshSuccess(ctx, issued.RecordID, ip, ua)

	h.cookies.SetSession(w, issued)
	writeJSON(w, http.StatusOK, messageResponse{Message: "token refreshed"})
}

// handleLogout revokes the presented session and always clears both cookies.
// It needs no access token and succeeds for unknown or already revoked
// tokens, so a half-logged-out client can always finish logging out.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now().UTC()

	if refreshToken, ok := h.cookies.RefreshFromRequest(r); ok {
		if err := h.sessions.RevokeByToken(ctx, now, refreshToken); err != nil {
			h.log.Error("auth.logout.revoke.fail", "err", err)
		}
	}

	h.auditLogout(ctx, clientIP(r, h.cfg.TrustProxy), userAgent(r))
	h.cookies.ClearSession(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	raw := strings.TrimSpace(req.Token)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	ctx := r.Context()
	now := h.now().UTC()

	userID, err := h.principals.VerifyEmail(ctx, now, identity.HashVerificationTokenHex(raw))
	if err != nil {
		if errors.Is(err, identity.ErrVerificationInvalid) {
			writeError(w, http.StatusBadRequest, "verification_invalid", "invalid or expired verification token")
			return
		}
		h.log.Error("auth.verify_email.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditVerifyEmail(ctx, userID, clientIP(r, h.cfg.TrustProxy), userAgent(r))
	writeJSON(w, http.StatusOK, messageResponse{Message: "email verified"})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := h.pw.Validate(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, "weak_password", "password does not meet policy")
		return
	}

	ctx := r.Context()
	now := h.now().UTC()

	// The access cookie alone must not be enough to take over an account.
	if _, err := h.verifier.Verify(ctx, p.Email, req.CurrentPassword); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "current password is incorrect")
		return
	}

	recent, err := h.principals.PasswordHashes(ctx, p.ID, h.cfg.PasswordHistoryDepth)
	if err != nil {
		h.log.Error("auth.change_password.history.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	for _, old := range recent {
		if match, _ := h.pw.Verify(req.NewPassword, old); match {
			writeError(w, http.StatusBadRequest, "password_reused", "new password was used recently")
			return
		}
	}

	newHash, err := h.pw.Hash(req.NewPassword)
	if err != nil {
		h.log.Error("auth.change_password.hash.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	if err := h.principals.UpdatePassword(ctx, now, p.ID, newHash); err != nil {
		h.log.Error("auth.change_password.update.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	// Every session dies with the old password, this one included.
	if err := h.sessions.RevokeAll(ctx, now, p.ID, "password_changed"); err != nil {
		h.log.Error("auth.change_password.revoke.fail", "err", err)
	}

	h.auditPasswordChanged(ctx, p.ID, clientIP(r, h.cfg.TrustProxy), userAgent(r))
	h.cookies.ClearSession(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "password changed, please log in again"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: toPrincipalResponse(p)})
}

// ---- request helpers ----

func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && len(s) <= 254 && !strings.ContainsAny(s, " \t")
}

func userAgent(r *http.Request) string {
	return strings.TrimSpace(r.UserAgent())
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
