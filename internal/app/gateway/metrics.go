package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for gateway metrics.
const (
	outcomeOK          = "ok"
	outcomeClientError = "client_error"
	outcomeServerError = "server_error"
	outcomeRejected    = "rejected"
	outcomeNetwork     = "network_error"
	outcomeAborted     = "aborted"
)

// Metrics records gateway traffic. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the gateway collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripsafe",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Gateway requests by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tripsafe",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Round-trip time of requests that reached the network.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) count(method, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) observe(method string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

func outcomeFor(status int) string {
	switch {
	case status >= 200 && status < 300:
		return outcomeOK
	case status >= 500:
		return outcomeServerError
	default:
		return outcomeClientError
	}
}
