// Package metrics exposes Prometheus counters for the ingestion pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Failure reasons used as the "reason" label.
const (
	ReasonParse = "parse"
	ReasonWrite = "write"
)

// Metrics holds the ingestion collectors and their private registry.
type Metrics struct {
	LinesRead       prometheus.Counter
	LinesSkipped    prometheus.Counter
	RecordsIngested prometheus.Counter
	RecordsFailed   *prometheus.CounterVec
	LedgerErrors    prometheus.Counter
	Checkpoint      prometheus.Gauge
	BatchDuration   prometheus.Histogram

	registry *prometheus.Registry
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kaikki",
			Name:      "lines_read_total",
			Help:      "Feed lines read, including skipped ones",
		}),
		LinesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kaikki",
			Name:      "lines_skipped_total",
			Help:      "Feed lines at or below the resume checkpoint",
		}),
		RecordsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kaikki",
			Name:      "records_ingested_total",
			Help:      "Entries committed to the sink",
		}),
		RecordsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kaikki",
			Name:      "records_failed_total",
			Help:      "Lines recorded in the failure ledger",
		}, []string{"reason"}),
		LedgerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kaikki",
			Name:      "ledger_errors_total",
			Help:      "Failure ledger appends that could not be written",
		}),
		Checkpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kaikki",
			Name:      "checkpoint_line",
			Help:      "Highest committed feed line",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kaikki",
			Name:      "batch_duration_seconds",
			Help:      "Time to decompose and commit one batch",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
	}
	m.registry.MustRegister(
		m.LinesRead,
		m.LinesSkipped,
		m.RecordsIngested,
		m.RecordsFailed,
		m.LedgerErrors,
		m.Checkpoint,
		m.BatchDuration,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// LineRead counts one line taken from the feed.
func (m *Metrics) LineRead() {
	if m != nil {
		m.LinesRead.Inc()
	}
}

// LineSkipped counts one line at or below the resume checkpoint.
func (m *Metrics) LineSkipped() {
	if m != nil {
		m.LinesSkipped.Inc()
	}
}

// Committed counts n newly committed entries and moves the checkpoint gauge.
func (m *Metrics) Committed(n int, checkpoint int64) {
	if m != nil {
		m.RecordsIngested.Add(float64(n))
		m.Checkpoint.Set(float64(checkpoint))
	}
}

// Failed counts one ledgered line under reason.
func (m *Metrics) Failed(reason string) {
	if m != nil {
		m.RecordsFailed.WithLabelValues(reason).Inc()
	}
}

// LedgerError counts one ledger append that could not be written.
func (m *Metrics) LedgerError() {
	if m != nil {
		m.LedgerErrors.Inc()
	}
}

// SetCheckpoint sets the checkpoint gauge to line.
func (m *Metrics) SetCheckpoint(line int64) {
	if m != nil {
		m.Checkpoint.Set(float64(line))
	}
}

// ObserveBatch records the time one batch took to commit.
func (m *Metrics) ObserveBatch(d time.Duration) {
	if m != nil {
		m.BatchDuration.Observe(d.Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "metrics server")
	}
	return nil
}
