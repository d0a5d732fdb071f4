// Package metrics exposes Prometheus instrumentation for download runs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AttemptsTotal counts network attempts by result: "success" or "failure".
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdss_fetch_attempts_total",
			Help: "Total number of download attempts",
		},
		[]string{"result"},
	)

	AttemptDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sdss_fetch_attempt_duration_seconds",
			Help:    "Duration of a single download attempt in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// TargetsTotal counts terminal target outcomes by state.
	TargetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdss_fetch_targets_total",
			Help: "Total number of resolved targets by terminal state",
		},
		[]string{"state"},
	)

	// ResolvedBy counts successes by the strategy tier that served them.
	ResolvedBy = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdss_fetch_resolved_by_total",
			Help: "Successful targets by strategy tier",
		},
		[]string{"tier"},
	)

	CandidatesTried = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sdss_fetch_candidates_tried",
			Help:    "Number of candidates tried per target",
			Buckets: []float64{1, 2, 5, 10, 25, 50},
		},
	)

	BytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sdss_fetch_bytes_total",
			Help: "Total bytes written to disk",
		},
	)

	WorkersBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdss_fetch_workers_busy",
			Help: "Workers currently resolving a target",
		},
	)
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
