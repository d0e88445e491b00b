// Package metrics exposes Prometheus instruments for commands, playback and
// provider calls.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Commands         *prometheus.CounterVec
	TracksStarted    prometheus.Counter
	TracksFailed     prometheus.Counter
	ActivePlayers    prometheus.Gauge
	ProviderRequests *prometheus.CounterVec
}

// New registers all instruments on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jukebox",
			Name:      "commands_total",
			Help:      "Commands handled, by command name and result.",
		}, []string{"command", "result"}),
		TracksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jukebox",
			Name:      "tracks_started_total",
			Help:      "Tracks that started streaming.",
		}),
		TracksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jukebox",
			Name:      "tracks_failed_total",
			Help:      "Tracks that could not be opened.",
		}),
		ActivePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jukebox",
			Name:      "active_players",
			Help:      "Players currently registered in the pool.",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jukebox",
			Name:      "provider_requests_total",
			Help:      "Music API calls, by operation and result.",
		}, []string{"op", "result"}),
	}
	m.registry.MustRegister(
		m.Commands,
		m.TracksStarted,
		m.TracksFailed,
		m.ActivePlayers,
		m.ProviderRequests,
		prometheus.NewGoCollector(),
	)
	return m
}

// ObserveCommand counts one command run.
func (m *Metrics) ObserveCommand(name string, err error) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(name, result(err)).Inc()
}

// ObserveProvider counts one provider call.
func (m *Metrics) ObserveProvider(op string, err error) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(op, result(err)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
