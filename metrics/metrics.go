// Package metrics records per-run counters and writes them as a Prometheus
// textfile for the node exporter, since a brief run is too short-lived to be
// scraped.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run holds the metrics of a single brief run. A nil *Run is valid and
// records nothing.
type Run struct {
	registry *prometheus.Registry

	feedFetches   *prometheus.CounterVec
	records       *prometheus.CounterVec
	entries       *prometheus.CounterVec
	qrFallbacks   prometheus.Counter
	deliveries    *prometheus.CounterVec
	stageDuration *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
}

func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		feedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pressbrief_feed_fetches_total",
			Help: "Feed fetches by newspaper and result.",
		}, []string{"newspaper", "result"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pressbrief_records_total",
			Help: "Records included in the brief by newspaper.",
		}, []string{"newspaper"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pressbrief_entries_skipped_total",
			Help: "Feed entries left out of the brief by reason.",
		}, []string{"newspaper", "reason"}),
		qrFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pressbrief_qr_fallbacks_total",
			Help: "Records rendered with a text link because QR encoding failed.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pressbrief_deliveries_total",
			Help: "Brief deliveries by sink and result.",
		}, []string{"sink", "result"}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pressbrief_stage_duration_seconds",
			Help: "Duration of each pipeline stage of the last run.",
		}, []string{"stage"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pressbrief_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
	}

	r.registry.MustRegister(
		r.feedFetches,
		r.records,
		r.entries,
		r.qrFallbacks,
		r.deliveries,
		r.stageDuration,
		r.lastSuccess,
	)
	return r
}

// Registry exposes the underlying registry, mostly for tests
func (r *Run) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Run) FeedFetched(newspaper string, ok bool) {
	if r == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	r.feedFetches.WithLabelValues(newspaper, result).Inc()
}

func (r *Run) RecordsBuilt(newspaper string, n int) {
	if r == nil {
		return
	}
	r.records.WithLabelValues(newspaper).Add(float64(n))
}

func (r *Run) EntrySkipped(newspaper, reason string) {
	if r == nil {
		return
	}
	r.entries.WithLabelValues(newspaper, reason).Inc()
}

func (r *Run) QRFallback() {
	if r == nil {
		return
	}
	r.qrFallbacks.Inc()
}

func (r *Run) Delivered(sink string, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.deliveries.WithLabelValues(sink, result).Inc()
}

func (r *Run) Stage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

func (r *Run) Succeeded(at time.Time) {
	if r == nil {
		return
	}
	r.lastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile atomically writes the metrics in the text exposition format
func (r *Run) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile at '%s': %w", path, err)
	}
	return nil
}
