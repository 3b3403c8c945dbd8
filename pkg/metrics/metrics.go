package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "presence_active_connections",
		Help: "Currently open presence websocket connections.",
	})

	AuthDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "presence_auth_denied_total",
		Help: "Connection attempts rejected by the authorizer.",
	})

	Broadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "presence_broadcasts_total",
		Help: "Room state broadcasts fanned out to local connections.",
	})
)

// Handler exposes the Prometheus registry, mounted at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
