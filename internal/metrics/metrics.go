// Package metrics defines the Prometheus collectors exported at /metrics.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "justbecause"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	signups      *prometheus.CounterVec
	applications *prometheus.CounterVec
	messages     prometheus.Counter
	payments     *prometheus.CounterVec
	emails       *prometheus.CounterVec
	wsConns      prometheus.Gauge
	assist       *prometheus.CounterVec
}

// New builds the collectors on a private registry that also carries the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "http_requests_in_flight", Help: "Requests currently being served.",
		}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "signups_total", Help: "Accounts created by method.",
		}, []string{"method"}),
		applications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "application_events_total", Help: "Application status changes.",
		}, []string{"status"}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_sent_total", Help: "Chat messages sent.",
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "payments_total", Help: "Payment outcomes by gateway.",
		}, []string{"gateway", "status"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "emails_total", Help: "Outbox deliveries by result.",
		}, []string{"result"}),
		wsConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "websocket_connections", Help: "Open websocket connections.",
		}),
		assist: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "assist_requests_total", Help: "AI assist calls by provider.",
		}, []string{"provider"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.httpInFlight,
		m.signups, m.applications, m.messages, m.payments, m.emails, m.wsConns, m.assist,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.httpInFlight.Add(delta)
}

func (m *Metrics) Signup(method string) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(method).Inc()
}

func (m *Metrics) Application(status string) {
	if m == nil {
		return
	}
	m.applications.WithLabelValues(status).Inc()
}

func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.messages.Inc()
}

func (m *Metrics) Payment(gateway, status string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(gateway, status).Inc()
}

func (m *Metrics) Email(result string) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(result).Inc()
}

func (m *Metrics) WebsocketConnections(delta float64) {
	if m == nil {
		return
	}
	m.wsConns.Add(delta)
}

func (m *Metrics) Assist(provider string) {
	if m == nil {
		return
	}
	m.assist.WithLabelValues(provider).Inc()
}
