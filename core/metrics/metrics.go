// Package metrics owns the Prometheus registry shared by the bot and
// exposes it over HTTP.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/exchangebot/core/logger"
)

const namespace = "exchangebot"

// Registry holds every collector of the process.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// UpdatesTotal counts handled updates by handler and outcome.
	UpdatesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tg",
		Name:      "updates_total",
		Help:      "Telegram updates handled, by handler and outcome.",
	}, []string{"handler", "outcome"})

	// HandlerDuration observes handler latency.
	HandlerDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "tg",
		Name:      "handler_duration_seconds",
		Help:      "Time spent in update handlers.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"handler"})

	// MessagesSent counts outbound sends and edits.
	MessagesSent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tg",
		Name:      "messages_sent_total",
		Help:      "Messages sent or edited, by kind.",
	}, []string{"kind"})

	// Panics counts recovered handler panics.
	Panics = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tg",
		Name:      "panics_total",
		Help:      "Panics recovered in update handlers.",
	})

	// LaneRejected counts updates dropped by the per-session lanes.
	LaneRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "serial",
		Name:      "rejected_total",
		Help:      "Updates rejected by per-session lanes, by reason.",
	}, []string{"reason"})

	// LanePending reports updates queued across all lanes.
	LanePending = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "serial",
		Name:      "pending",
		Help:      "Updates waiting in per-session lanes.",
	})

	// APIRequests counts exchange API calls by endpoint and result.
	APIRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Exchange API requests, by endpoint and result.",
	}, []string{"endpoint", "result"})

	// APILatency observes exchange API latency.
	APILatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Exchange API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	// ConversationEvents counts conversation lifecycle events.
	ConversationEvents = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conversation",
		Name:      "events_total",
		Help:      "Conversation lifecycle events (started, completed, cancelled, rejected, aborted).",
	}, []string{"conversation", "event"})

	// SessionsEvicted counts sessions dropped by idle timeout.
	SessionsEvicted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "state",
		Name:      "sessions_evicted_total",
		Help:      "Sessions evicted after the idle timeout, by backend.",
	}, []string{"backend"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler returns the HTTP handler exposing Registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Serve exposes Registry on addr at path until ctx is done.
func Serve(ctx context.Context, addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "metrics", "listen",
			slog.String("listen", addr),
			slog.String("path", path),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
