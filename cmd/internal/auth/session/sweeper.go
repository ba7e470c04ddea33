package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var purgedSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "resumeagent_sessions_purged_total",
	Help: "Expired refresh-token rows deleted by the sweeper.",
})

// Sweeper periodically deletes expired session rows. Revocation state is
// enforced at read time, so sweeping is hygiene, not security; a failed
// sweep is logged and retried at the next tick.
type Sweeper struct {
	store    Store
	interval time.Duration
	log      *slog.Logger
}

// NewSweeper constructs a Sweeper over the given store.
func NewSweeper(store Store, interval time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{store: store, interval: interval, log: log}
}

// Run blocks, purging on every tick until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := s.store.PurgeExpired(ctx, now.UTC())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Error("session sweep failed", "err", err)
				continue
			}
			if n > 0 {
				purgedSessionsTotal.Add(float64(n))
				s.log.Info("session sweep", "purged", n)
			}
		}
	}
}
