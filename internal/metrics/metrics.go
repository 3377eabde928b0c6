// Package metrics collects client-side Prometheus metrics: session phase
// transitions, profile fetch attempts, optimistic mutation outcomes and
// backend request latency.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what components depend on. Collector is the Prometheus
// implementation; Nop discards everything.
type Recorder interface {
	RecordSessionTransition(phase string)
	RecordProfileFetch(outcome string)
	RecordMutation(kind, outcome string)
	RecordGatewayRequest(method string, statusCode int, d time.Duration)
}

// Collector registers its metrics on the Registerer given to NewCollector.
type Collector struct {
	sessionTransitions *prometheus.CounterVec
	profileFetches     *prometheus.CounterVec
	mutations          *prometheus.CounterVec
	gatewayRequests    *prometheus.CounterVec
	gatewayLatency     prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodshare_session_transitions_total",
			Help: "Session phase transitions by target phase.",
		}, []string{"phase"}),
		profileFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodshare_profile_fetch_attempts_total",
			Help: "Profile fetch attempts by outcome (success, retry, failure).",
		}, []string{"outcome"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodshare_mutations_total",
			Help: "Optimistic mutations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foodshare_gateway_requests_total",
			Help: "Backend requests by method and status code (0 = transport error).",
		}, []string{"method", "status_code"}),
		gatewayLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "foodshare_gateway_request_duration_seconds",
			Help:    "Backend request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.sessionTransitions,
		c.profileFetches,
		c.mutations,
		c.gatewayRequests,
		c.gatewayLatency,
	)
	return c
}

func (c *Collector) RecordSessionTransition(phase string) {
	c.sessionTransitions.WithLabelValues(phase).Inc()
}

func (c *Collector) RecordProfileFetch(outcome string) {
	c.profileFetches.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordMutation(kind, outcome string) {
	c.mutations.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) RecordGatewayRequest(method string, statusCode int, d time.Duration) {
	c.gatewayRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.gatewayLatency.Observe(d.Seconds())
}

// Nop is a Recorder that records nothing.
type Nop struct{}

func (Nop) RecordSessionTransition(string)                  {}
func (Nop) RecordProfileFetch(string)                       {}
func (Nop) RecordMutation(string, string)                   {}
func (Nop) RecordGatewayRequest(string, int, time.Duration) {}

// Routes returns a router serving the gatherer's metrics on /metrics.
func Routes(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
