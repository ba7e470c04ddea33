package token

import (
	"os"
	"strings"
	"time"
)

// Config defines the claim values and lifetimes for issued tokens.
//
// Timestamps in tokens are absolute instants; expiry comparison uses server
// wall-clock at verification time. Leeway defaults to zero and is only
// applied when explicitly configured.
type Config struct {
	// PrivateKeyPath and PublicKeyPath locate the RSA keypair (PEM).
	PrivateKeyPath string
	PublicKeyPath  string

	// Issuer and Audience are required claims on every token and are
	// enforced during verification.
	Issuer   string
	Audience string

	// AccessTTL is minutes-scale; RefreshTTL is weeks-scale.
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Leeway is the clock-skew tolerance applied during verification.
	Leeway time.Duration
}

// DefaultConfig returns development defaults; key paths must still be set.
func DefaultConfig() Config {
	return Config{
		Issuer:     "resumeagent-backend",
		Audience:   "resumeagent-frontend",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		Leeway:     0,
	}
}

// LoadConfigFromEnv loads token configuration from environment variables.
//
// Required:
//   - RESUMEAGENT_JWT_PRIVATE_KEY_PATH
//   - RESUMEAGENT_JWT_PUBLIC_KEY_PATH
//
// Optional (durations are Go duration strings):
//   - RESUMEAGENT_JWT_ISSUER
//   - RESUMEAGENT_JWT_AUDIENCE
//   - RESUMEAGENT_AUTH_ACCESS_TTL
//   - RESUMEAGENT_AUTH_REFRESH_TTL
//   - RESUMEAGENT_AUTH_CLOCK_SKEW
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.PrivateKeyPath = strings.TrimSpace(os.Getenv("RESUMEAGENT_JWT_PRIVATE_KEY_PATH"))
	cfg.PublicKeyPath = strings.TrimSpace(os.Getenv("RESUMEAGENT_JWT_PUBLIC_KEY_PATH"))
	if cfg.PrivateKeyPath == "" || cfg.PublicKeyPath == "" {
		return Config{}, ErrConfig
	}

	if v := os.Getenv("RESUMEAGENT_JWT_ISSUER"); v != "" {
		cfg.Issuer = v
	}
	if v := os.Getenv("RESUMEAGENT_JWT_AUDIENCE"); v != "" {
		cfg.Audience = v
	}

	if v := os.Getenv("RESUMEAGENT_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTTL = d
	}
	if v := os.Getenv("RESUMEAGENT_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTL = d
	}
	if v := os.Getenv("RESUMEAGENT_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.Leeway = d
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Issuer == "" || c.Audience == "" {
		return ErrConfig
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.Leeway < 0 {
		return ErrConfig
	}
	// An access token outliving a refresh token is a misconfiguration.
	if c.AccessTTL > c.RefreshTTL {
		return ErrConfig
	}
	return nil
}
