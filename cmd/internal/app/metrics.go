package app

import (
	"net/http"
	"strconv"
	"time"

	"usaffe/cmd/internal/activity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus registry and the app-level collectors.
// It satisfies the API handler's metrics interface so protocol outcomes
// land in the same registry as the HTTP counters.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	verifications  *prometheus.CounterVec
	adminExchanges *prometheus.CounterVec
}

// NewMetrics builds a private registry with the app collectors. When
// hub is non-nil a gauge tracks live activity feed subscribers.
func NewMetrics(hub *activity.Hub) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "usaffe_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "usaffe_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method"}),
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "usaffe_verifications_total",
			Help: "verification check outcomes",
		}, []string{"outcome"}),
		adminExchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "usaffe_admin_exchanges_total",
			Help: "admin key exchange outcomes",
		}, []string{"outcome"}),
	}

	if hub != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "usaffe_activity_subscribers",
			Help: "live activity feed subscribers",
		}, func() float64 { return float64(hub.Subscribers()) })
	}

	return m
}

func (m *Metrics) ObserveVerification(outcome string) {
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAdminExchange(outcome string) {
	m.adminExchanges.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WithHTTPMetrics records request counts and latency. It reuses the
// logging writer so optional ResponseWriter interfaces survive.
func (m *Metrics) WithHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}

		next.ServeHTTP(lrw, r)

		m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(lrw.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
