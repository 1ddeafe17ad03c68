package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the relay.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	playsTotal        *prometheus.CounterVec
	stopsTotal        prometheus.Counter
	throttledTotal    prometheus.Counter
	activeConnections prometheus.Gauge
	activePlayers     prometheus.Gauge
}

const ResultOK = "ok"

// New creates and registers Prometheus metrics for the relay.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	playsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radio_plays_total",
		Help: "Total number of play requests by result",
	}, []string{"result"})
	stopsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radio_stops_total",
		Help: "Total number of stop requests",
	})
	throttledTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radio_interactions_throttled_total",
		Help: "Total number of interactions rejected by the per-guild rate limit",
	})
	activeConnections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "radio_active_connections",
		Help: "Number of guilds with a voice connection",
	})
	activePlayers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "radio_active_players",
		Help: "Number of guilds currently playing a station",
	})

	registry.MustRegister(
		playsTotal,
		stopsTotal,
		throttledTotal,
		activeConnections,
		activePlayers,
	)

	return &Metrics{
		registry:          registry,
		playsTotal:        playsTotal,
		stopsTotal:        stopsTotal,
		throttledTotal:    throttledTotal,
		activeConnections: activeConnections,
		activePlayers:     activePlayers,
	}
}

// PlayStarted counts a successful play request.
func (m *Metrics) PlayStarted() {
	m.play(ResultOK)
}

// PlayFailed counts a play request that failed for reason.
func (m *Metrics) PlayFailed(reason string) {
	m.play(reason)
}

func (m *Metrics) play(result string) {
	if m == nil {
		return
	}
	m.playsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Stopped() {
	if m == nil {
		return
	}
	m.stopsTotal.Inc()
}

func (m *Metrics) Throttled() {
	if m == nil {
		return
	}
	m.throttledTotal.Inc()
}

// SetActive sets the connection and player gauges.
func (m *Metrics) SetActive(connections, players int) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(connections))
	m.activePlayers.Set(float64(players))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
