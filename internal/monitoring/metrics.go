// Package monitoring collects Prometheus metrics for the HTTP
// surface, the session store, and the live stream loop.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsClosed  prometheus.Counter

	// Streaming metrics
	StreamConnections prometheus.Gauge
	FramesSent        prometheus.Counter
	StreamCommands    *prometheus.CounterVec

	// Error metrics
	NavigationErrors prometheus.Counter
	CaptureErrors    prometheus.Counter
}

// New creates a metrics collector registered on the default registry.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagelens_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagelens_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pagelens_sessions_active",
			Help: "Number of live browser sessions",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pagelens_sessions_created_total",
			Help: "Total browser sessions created",
		}),
		SessionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pagelens_sessions_closed_total",
			Help: "Total browser sessions closed",
		}),
		StreamConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pagelens_stream_connections",
			Help: "Open live stream connections",
		}),
		FramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pagelens_stream_frames_sent_total",
			Help: "Screenshot frames sent over live streams",
		}),
		StreamCommands: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagelens_stream_commands_total",
				Help: "Inbound stream commands by type",
			},
			[]string{"type"},
		),
		NavigationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pagelens_navigation_errors_total",
			Help: "Failed or timed out navigations",
		}),
		CaptureErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pagelens_capture_errors_total",
			Help: "Failed screenshot captures",
		}),
	}
}
