// Package metrics exposes Prometheus counters for the portal's forms, chats
// and list views.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/jobportal/internal/form"
	"github.com/kalambet/jobportal/internal/notify"
)

const namespace = "jobportal"

// Metrics holds a private registry so tests and multiple servers do not clash
// on the global one.
type Metrics struct {
	reg *prometheus.Registry

	formSubmits  *prometheus.CounterVec
	chatMessages *prometheus.CounterVec
	queries      *prometheus.CounterVec
	notices      *prometheus.CounterVec
	requests     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		formSubmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_submissions_total",
			Help:      "Form submissions by form and outcome.",
		}, []string{"form", "outcome"}),
		chatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages sent by users, by persona.",
		}, []string{"persona"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_queries_total",
			Help:      "List view queries by view.",
		}, []string{"view"}),
		notices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications raised by severity.",
		}, []string{"severity"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.reg.MustRegister(
		m.formSubmits, m.chatMessages, m.queries, m.notices, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry is exposed for gauges owned by other components.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Gauge registers a gauge whose value is read from fn at scrape time.
func (m *Metrics) Gauge(name, help string, fn func() float64) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// FormSubmitted has the signature of form.Options.OnSubmit.
func (m *Metrics) FormSubmitted(name form.Name, outcome form.Outcome) {
	m.formSubmits.WithLabelValues(string(name), outcome.String()).Inc()
}

func (m *Metrics) ChatMessage(persona string) {
	m.chatMessages.WithLabelValues(persona).Inc()
}

func (m *Metrics) ViewQueried(view string) {
	m.queries.WithLabelValues(view).Inc()
}

// Notify counts n. It lets Metrics sit in a notify.Multi.
func (m *Metrics) Notify(_ context.Context, n notify.Notification) {
	m.notices.WithLabelValues(string(n.Severity)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware records request latency labelled with the chi route pattern,
// which keeps ids out of the label set.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
