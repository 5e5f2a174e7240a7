package live

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "craftplan_live_sessions_active",
			Help: "Number of open live planning sessions",
		},
	)

	sessionMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftplan_live_messages_total",
			Help: "Total number of client messages by type and result",
		},
		[]string{"type", "result"},
	)
)
