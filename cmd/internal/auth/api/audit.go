package authapi

import (
	"context"
	"encoding/json"
	"net"
	"strings"
)

// Audit rows are best-effort: a failed insert is logged and the request
// proceeds. Losing an audit row must never fail a login.

func (h *Handler) auditRegister(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.register", &userID, ip, ua, nil)
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.login.success", &userID, ip, ua, nil)
}

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, ua, email, reason string) {
	h.insertAudit(ctx, "auth.login.failed", nil, ip, ua, map[string]any{
		"email":  email,
		"reason": reason,
	})
}

func (h *Handler) auditRefreshSuccess(ctx context.Context, recordID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.refresh.success", nil, ip, ua, map[string]any{
		"session_id": recordID,
	})
}

func (h *Handler) auditRefreshReuse(ctx context.Context, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.refresh.reuse_detected", nil, ip, ua, nil)
}

func (h *Handler) auditLogout(ctx context.Context, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.logout", nil, ip, ua, nil)
}

func (h *Handler) auditVerifyEmail(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.verify_email", &userID, ip, ua, nil)
}

func (h *Handler) auditPasswordChanged(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.password_changed", &userID, ip, ua, nil)
}

func (h *Handler) insertAudit(ctx context.Context, action string, userID *string, ip net.IP, ua string, meta map[string]any) {
	if h.pool == nil {
		return
	}

	var ipVal any
	if ip != nil {
		ipVal = ip.String()
	}

	var metaVal *string
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO audit_log (
			user_id, action, created_at, ip, user_agent, meta
		) VALUES ($1, $2, now(), $3, $4, $5::jsonb)
	`, userID, action, ipVal, trimOrNil(ua), metaVal)
	if err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
