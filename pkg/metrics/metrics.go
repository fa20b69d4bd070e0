// Package metrics records export run metrics in a Prometheus registry.
//
// A Recorder observes a run and can write its registry in the text
// exposition format, ready for the node_exporter textfile collector.
//
// Metrics:
//   - lucidexport_documents_total{status} (Counter): documents by outcome (succeeded, partial, failed)
//   - lucidexport_pages_total{status} (Counter): pages by outcome (success, failure)
//   - lucidexport_page_bytes_total (Counter): bytes written for exported pages
//   - lucidexport_pages_in_flight (Gauge): page downloads currently running
//   - lucidexport_page_duration_seconds (Histogram): time per page, download and write
//   - lucidexport_last_run_timestamp_seconds (Gauge): when the textfile was written
//
// Example Prometheus Queries:
//
//	# Page failure ratio of the last run
//	lucidexport_pages_total{status="failure"} / ignoring(status) sum(lucidexport_pages_total)
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"lucidexport/pkg/models"
)

const namespace = "lucidexport"

// Recorder collects metrics for one run. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	documents     *prometheus.CounterVec
	pages         *prometheus.CounterVec
	pageBytes     prometheus.Counter
	inFlight      prometheus.Gauge
	pageDuration  prometheus.Histogram
	lastRunMarker prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		documents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_total",
				Help:      "Total number of documents processed, by outcome",
			},
			[]string{"status"}, // "succeeded", "partial", "failed"
		),
		pages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_total",
				Help:      "Total number of pages processed, by outcome",
			},
			[]string{"status"}, // "success", "failure"
		),
		pageBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "page_bytes_total",
				Help:      "Total bytes written for exported pages",
			},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pages_in_flight",
				Help:      "Number of page downloads currently running",
			},
		),
		pageDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "page_duration_seconds",
				Help:      "Time to download and write one page",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		lastRunMarker: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time at which the metrics file was written",
			},
		),
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) DocumentStarted(string) {}

func (r *Recorder) DocumentResolved(string, string, int) {}

func (r *Recorder) PageStarted(string, int) {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

// PageFinished counts the page. Pages that never started (cancelled before
// a download slot was free) do not touch the in-flight gauge.
func (r *Recorder) PageFinished(_ string, outcome models.PageOutcome) {
	if r == nil {
		return
	}
	if outcome.Started {
		r.inFlight.Dec()
		r.pageDuration.Observe(outcome.Duration.Seconds())
	}
	if outcome.Success {
		r.pages.WithLabelValues("success").Inc()
		r.pageBytes.Add(float64(outcome.Size))
		return
	}
	r.pages.WithLabelValues("failure").Inc()
}

func (r *Recorder) DocumentFinished(outcome models.DocumentOutcome) {
	if r == nil {
		return
	}
	switch {
	case outcome.Err != nil:
		r.documents.WithLabelValues("failed").Inc()
	case len(outcome.FailedPages()) > 0:
		r.documents.WithLabelValues("partial").Inc()
	default:
		r.documents.WithLabelValues("succeeded").Inc()
	}
}

// WriteTextfile writes the registry to path in the text exposition format.
// The write is atomic, so a collector never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}

	r.lastRunMarker.Set(float64(time.Now().Unix()))
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
