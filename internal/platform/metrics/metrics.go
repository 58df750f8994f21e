// Package metrics holds the Prometheus instruments for the gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	TokensIssued     prometheus.Counter
	TokenValidations *prometheus.CounterVec
	ProxiedRequests  *prometheus.CounterVec
	UpstreamLatency  prometheus.Histogram

	registry *prometheus.Registry
}

// New creates and registers all Prometheus metrics on a private registry so
// tests can construct Metrics repeatedly without duplicate registration.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "nexus_proxy_tokens_issued_total",
			Help: "Total number of bearer tokens issued",
		}),
		TokenValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_proxy_token_validations_total",
			Help: "Token validation attempts by result",
		}, []string{"result"}),
		ProxiedRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_proxy_upstream_requests_total",
			Help: "Requests forwarded to the upstream by method and status code",
		}, []string{"method", "code"}),
		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nexus_proxy_upstream_latency_seconds",
			Help:    "Latency of upstream credential verification calls",
			Buckets: prometheus.DefBuckets,
		}),
		registry: reg,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
