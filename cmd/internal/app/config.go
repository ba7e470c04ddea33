package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool

	// SweepInterval controls how often expired session rows are purged.
	SweepInterval time.Duration

	// Browser-facing CORS policy. Credentials must be allowed for the
	// cookie-based session transport to work cross-origin.
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// If true, RESUMEAGENT_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and
	// refresh-token hashing must be HMAC-based.
	RequireTokenHMAC bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("RESUMEAGENT_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("RESUMEAGENT_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("RESUMEAGENT_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("RESUMEAGENT_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("RESUMEAGENT_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("RESUMEAGENT_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("RESUMEAGENT_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("RESUMEAGENT_DATABASE_URL", ""),
		DBMaxConns:     EnvInt32("RESUMEAGENT_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("RESUMEAGENT_DB_MIN_CONNS", 0),
		MigrateOnStart: EnvBool("RESUMEAGENT_DB_MIGRATE", true),

		SweepInterval: EnvDuration("RESUMEAGENT_SESSION_SWEEP_INTERVAL", 1*time.Hour),

		CORSAllowedOrigins:   EnvStringList("RESUMEAGENT_CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		CORSAllowCredentials: EnvBool("RESUMEAGENT_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("RESUMEAGENT_CORS_MAX_AGE_SECONDS", 600),

		RequireTokenHMAC: EnvBool("RESUMEAGENT_REQUIRE_TOKEN_HMAC", false),
	}
}
