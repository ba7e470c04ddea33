// Package app wires the resumeagent server runtime: config, logging, the
// Postgres pool, migrations, and the authentication HTTP surface.
//
// It is intentionally small and deterministic so startup failures are loud and
// attributable to a single config or dependency problem.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"resumeagent/cmd/identity"
	api "resumeagent/cmd/internal/auth/api"
	"resumeagent/cmd/internal/auth/session"
	"resumeagent/cmd/internal/auth/token"
	"resumeagent/cmd/security/keys"
	"resumeagent/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the server runtime: it owns the HTTP server wiring, the DB pool, and
// the background session sweeper.
type App struct {
	cfg Config
	log Logger

	pool *pgxpool.Pool

	auth    *api.Handler
	sweeper *session.Sweeper
}

// subjectSource adapts the identity store to the session service, which needs
// the current email and role at rotation time rather than whatever was true
// when the session was created.
type subjectSource struct {
	store identity.Store
}

func (s subjectSource) Subject(ctx context.Context, userID string) (string, string, error) {
	p, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return p.Email, string(p.Role), nil
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("app: RESUMEAGENT_DATABASE_URL is required")
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.MigrateOnStart {
		if err := RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, fmt.Errorf("app: migrate: %w", err)
		}
		log.Info("db.migrations.applied")
	}

	tokenCfg, err := token.LoadConfigFromEnv()
	if err != nil {
		pool.Close()
		return nil, err
	}
	pair, err := keys.Load(tokenCfg.PrivateKeyPath, tokenCfg.PublicKeyPath)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("app: load signing keys: %w", err)
	}
	codec, err := token.NewCodec(tokenCfg, pair)
	if err != nil {
		pool.Close()
		return nil, err
	}

	idStore, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	pwCfg := password.DefaultConfig()
	verifier, err := identity.NewVerifier(idStore, pwCfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	sessStore := session.NewPostgresStore(pool)
	sessSvc := session.NewService(sessStore, codec, subjectSource{store: idStore})

	authCfg := api.LoadConfigFromEnv()
	authHandler, err := api.NewHandler(log, authCfg, pool, idStore, sessSvc, verifier, codec, pwCfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		cfg:     cfg,
		log:     log,
		pool:    pool,
		auth:    authHandler,
		sweeper: session.NewSweeper(sessStore, cfg.SweepInterval, log),
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.pool, a.auth)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(WithSecurityHeaders(WithCORS(mux, a.cfg, a.log)), a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.sweeper.Run(sweepCtx)

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.pool.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		a.pool.Close()
		return err
	}

	a.pool.Close()
	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
