// Package metrics exposes kiosk counters in Prometheus format.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/face-checkin/pkg/capture"
	"github.com/teslashibe/face-checkin/pkg/confidence"
)

// Metrics holds all application metrics
type Metrics struct {
	// Poller
	TicksSkipped   atomic.Uint64
	ScansCompleted atomic.Uint64
	ScanErrors     atomic.Uint64
	StaleResults   atomic.Uint64

	// Capture
	CaptureAttempts atomic.Uint64
	Captures        atomic.Uint64
	NoFace          atomic.Uint64

	// Loading
	LoadProgress atomic.Uint64
	LoadFailures atomic.Uint64

	// Live state
	LastScoreMilli atomic.Uint64
	PreviewClients atomic.Int64

	scanLatency prometheus.Histogram
	registry    *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scanLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkin_scan_duration_seconds",
			Help:    "Preview face scan latency",
			Buckets: []float64{.01, .025, .05, .1, .2, .5, 1},
		}),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(m.scanLatency)

	gauges := []struct {
		name, help string
		value      func() float64
	}{
		{"checkin_poll_ticks_skipped_total", "Poll ticks skipped because the video was not playing", u(&m.TicksSkipped)},
		{"checkin_scans_completed_total", "Preview scans completed", u(&m.ScansCompleted)},
		{"checkin_scan_errors_total", "Preview scans that failed", u(&m.ScanErrors)},
		{"checkin_stale_results_total", "Scan results discarded as out of order", u(&m.StaleResults)},
		{"checkin_capture_attempts_total", "Capture triggers accepted", u(&m.CaptureAttempts)},
		{"checkin_captures_total", "Faces captured and handed off", u(&m.Captures)},
		{"checkin_no_face_total", "Confirm checks that found no face", u(&m.NoFace)},
		{"checkin_model_load_progress", "Model loading progress (0-100)", u(&m.LoadProgress)},
		{"checkin_model_load_failures_total", "Model load failures", u(&m.LoadFailures)},
		{"checkin_confidence_score", "Latest preview confidence score", func() float64 {
			return float64(m.LastScoreMilli.Load()) / 1000
		}},
		{"checkin_preview_clients", "Connected preview clients", func() float64 {
			return float64(m.PreviewClients.Load())
		}},
	}
	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			g.value,
		))
	}
}

func u(v *atomic.Uint64) func() float64 {
	return func() float64 { return float64(v.Load()) }
}

// TickSkipped counts a poll tick with no playing video.
func (m *Metrics) TickSkipped() { m.TicksSkipped.Add(1) }

// ScanFailed counts a failed preview scan.
func (m *Metrics) ScanFailed(error) { m.ScanErrors.Add(1) }

// ScanCompleted records a finished preview scan.
func (m *Metrics) ScanCompleted(d time.Duration) {
	m.ScansCompleted.Add(1)
	m.scanLatency.Observe(d.Seconds())
}

// ObserveReading records the latest applied reading.
func (m *Metrics) ObserveReading(r confidence.Reading) {
	m.LastScoreMilli.Store(uint64(r.Score * 1000))
}

// ObserveCapture counts capture state changes.
func (m *Metrics) ObserveCapture(s capture.Snapshot) {
	switch s.State {
	case capture.Confirming:
		m.CaptureAttempts.Add(1)
	case capture.Captured:
		m.Captures.Add(1)
	case capture.Failed:
		m.NoFace.Add(1)
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
