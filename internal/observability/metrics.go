package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Requests rejected by the authentication gate, by reason.",
		},
		[]string{"reason"},
	)

	tokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tokens_issued_total",
		Help: "Session tokens issued.",
	})

	tokensRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tokens_revoked_total",
		Help: "Session tokens revoked before expiry.",
	})

	revocationCheckFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "revocation_check_failures_total",
		Help: "Revocation store lookups that errored and were allowed through.",
	})
)

// InitMetrics registers collectors with the default registry.
func InitMetrics() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		authRejectionsTotal,
		tokensIssuedTotal,
		tokensRevokedTotal,
		revocationCheckFailuresTotal,
	)
}

// MetricsHandler exposes the Prometheus endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one completed HTTP request.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, path, code).Inc()
	httpRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// AuthRejected counts a rejection at the authentication gate.
func AuthRejected(reason string) {
	authRejectionsTotal.WithLabelValues(reason).Inc()
}

// TokenIssued counts one issued token.
func TokenIssued() {
	tokensIssuedTotal.Inc()
}

// TokenRevoked counts one revoked token.
func TokenRevoked() {
	tokensRevokedTotal.Inc()
}

// RevocationCheckFailed counts one fail-open continuation.
func RevocationCheckFailed() {
	revocationCheckFailuresTotal.Inc()
}
