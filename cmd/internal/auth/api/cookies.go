package authapi

import (
	"net/http"
	"strings"
	"time"

	"resumeagent/cmd/internal/auth/session"
)

// CookieTransport moves the token pair between server and browser.
//
// Both cookies are HttpOnly. The access cookie is Lax on the site root; the
// refresh cookie is Strict and scoped to the refresh path. Deletion cookies
// must repeat the exact name and path of the original, or the browser treats
// them as different cookies and keeps the stale ones.
type CookieTransport struct {
	cfg Config
}

// NewCookieTransport builds a transport from the API config.
func NewCookieTransport(cfg Config) *CookieTransport {
	return &CookieTransport{cfg: cfg}
}

// SetSession writes both token cookies for a newly issued or rotated session.
func (t *CookieTransport) SetSession(w http.ResponseWriter, issued session.Issued) {
	http.SetCookie(w, &http.Cookie{
		Name:     t.cfg.AccessCookieName,
		Value:    issued.AccessToken,
		Path:     t.cfg.AccessCookiePath,
		Domain:   t.cfg.CookieDomain,
		Expires:  issued.AccessExp,
		HttpOnly: true,
		Secure:   t.cfg.CookieSecure,
		SameSite: t.cfg.accessSameSite(),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     t.cfg.RefreshCookieName,
		Value:    issued.RefreshToken,
		Path:     t.cfg.RefreshCookiePath,
		Domain:   t.cfg.CookieDomain,
		Expires:  issued.RefreshExp,
		HttpOnly: true,
		Secure:   t.cfg.CookieSecure,
		SameSite: t.cfg.refreshSameSite(),
	})
}

// ClearSession writes deletion cookies for both tokens.
func (t *CookieTransport) ClearSession(w http.ResponseWriter) {
	t.expire(w, t.cfg.AccessCookieName, t.cfg.AccessCookiePath, t.cfg.accessSameSite())
	t.expire(w, t.cfg.RefreshCookieName, t.cfg.RefreshCookiePath, t.cfg.refreshSameSite())
}

// AccessFromRequest extracts the access token, if present.
func (t *CookieTransport) AccessFromRequest(r *http.Request) (string, bool) {
	return t.cookieValue(r, t.cfg.AccessCookieName)
}

// RefreshFromRequest extracts the refresh token, if present.
func (t *CookieTransport) RefreshFromRequest(r *http.Request) (string, bool) {
	return t.cookieValue(r, t.cfg.RefreshCookieName)
}

func (t *CookieTransport) cookieValue(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", false
	}
	return v, true
}

func (t *CookieTransport) expire(w http.ResponseWriter, name, path string, sameSite http.SameSite) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Domain:   t.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   t.cfg.CookieSecure,
		SameSite: sameSite,
	})
}
