package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and cookie transport defaults.
type Config struct {
	AccessCookieName  string
	RefreshCookieName string

	// AccessCookiePath is site-wide; RefreshCookiePath is deliberately
	// narrow so the refresh credential only travels to the refresh
	// endpoint. Browsers therefore never send it to /auth/logout, which
	// is why logout revocation tolerates a missing cookie.
	AccessCookiePath  string
	RefreshCookiePath string

	CookieDomain string
	CookieSecure bool

	TrustProxy   bool
	MaxBodyBytes int64

	PasswordHistoryDepth int
	VerificationTTL      time.Duration
}

// DefaultConfig returns production-leaning defaults.
func DefaultConfig() Config {
	return Config{
		AccessCookieName:     "accessToken",
		RefreshCookieName:    "refreshToken",
		AccessCookiePath:     "/",
		RefreshCookiePath:    "/auth/refresh",
		CookieSecure:         true,
		TrustProxy:           false,
		MaxBodyBytes:         1 << 20, // 1 MiB
		PasswordHistoryDepth: 5,
		VerificationTTL:      24 * time.Hour,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		AccessCookieName:     envString("RESUMEAGENT_AUTH_ACCESS_COOKIE", def.AccessCookieName),
		RefreshCookieName:    envString("RESUMEAGENT_AUTH_REFRESH_COOKIE", def.RefreshCookieName),
		AccessCookiePath:     def.AccessCookiePath,
		RefreshCookiePath:    envString("RESUMEAGENT_AUTH_REFRESH_COOKIE_PATH", def.RefreshCookiePath),
		CookieDomain:         envString("RESUMEAGENT_AUTH_COOKIE_DOMAIN", ""),
		CookieSecure:         envBool("RESUMEAGENT_AUTH_COOKIE_SECURE", def.CookieSecure),
		TrustProxy:           envBool("RESUMEAGENT_AUTH_TRUST_PROXY", def.TrustProxy),
		MaxBodyBytes:         envInt64("RESUMEAGENT_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		PasswordHistoryDepth: envInt("RESUMEAGENT_AUTH_PASSWORD_HISTORY_DEPTH", def.PasswordHistoryDepth),
		VerificationTTL:      envDuration("RESUMEAGENT_AUTH_VERIFICATION_TTL", def.VerificationTTL),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.PasswordHistoryDepth <= 0 {
		cfg.PasswordHistoryDepth = def.PasswordHistoryDepth
	}
	if !strings.HasPrefix(cfg.RefreshCookiePath, "/") {
		cfg.RefreshCookiePath = def.RefreshCookiePath
	}

	return cfg
}

// accessSameSite and refreshSameSite pin the cross-site posture: the access
// cookie rides top-level navigations (Lax), the refresh cookie never leaves
// same-site contexts (Strict).
func (Config) accessSameSite() http.SameSite  { return http.SameSiteLaxMode }
func (Config) refreshSameSite() http.SameSite { return http.SameSiteStrictMode }

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
