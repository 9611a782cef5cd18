package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "admin_session"

// RequestsTotal counts completed outgoing API requests.
// Labels:
//   - method: HTTP method of the request
//   - status: numeric HTTP status, or "error" when the transport failed
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Total number of outgoing API requests, by method and status.",
	},
	[]string{"method", "status"},
)

// UnauthorizedTotal counts 401 responses that triggered the global
// clear-tokens-and-redirect handler.
var UnauthorizedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unauthorized_total",
		Help:      "Total number of 401 responses intercepted by the router.",
	},
)

// RequestDuration measures outgoing request latency end-to-end.
// Label:
//   - method: HTTP method of the request
var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Duration of outgoing API requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method"},
)
