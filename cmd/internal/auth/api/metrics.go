package authapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumeagent_auth_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumeagent_auth_refreshes_total",
		Help: "Refresh rotations by result.",
	}, []string{"result"})

	reuseDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resumeagent_auth_refresh_reuse_detected_total",
		Help: "Refresh tokens presented again after rotation.",
	})
)
