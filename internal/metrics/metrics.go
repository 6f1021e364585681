// Package metrics exposes Prometheus collectors for the detection client,
// the camera loop and the history store.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autodoc"

// Frame outcomes recorded by the camera loop.
const (
	FrameSent    = "sent"
	FrameSkipped = "skipped"
	FrameFailed  = "failed"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CameraFrames    *prometheus.CounterVec
	HistoryEntries  prometheus.Gauge
	ViewersActive   prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detector_requests_total",
				Help:      "Total number of requests sent to the detection service",
			},
			[]string{"endpoint", "status"}, // status: success, app_error, transport_error
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "detector_request_duration_seconds",
				Help:      "Duration of detection service calls in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		CameraFrames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "camera_frames_total",
				Help:      "Camera loop iterations by outcome",
			},
			[]string{"outcome"},
		),
		HistoryEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "history_entries",
				Help:      "Number of entries in the local detection history",
			},
		),
		ViewersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "viewers_active",
				Help:      "Number of connected browser viewers",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.CameraFrames,
		m.HistoryEntries,
		m.ViewersActive,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
