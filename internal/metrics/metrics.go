package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns its registry so tests can build as many as they like.
type Collector struct {
	reg *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	CasesCreatedTotal    prometheus.Counter
	StatusTransitions    *prometheus.CounterVec
	CommentsTotal        *prometheus.CounterVec
	FilesTotal           prometheus.Counter
	NotificationEmails   *prometheus.CounterVec
	SpecialCommentsTotal prometheus.Counter
	AuthFailuresTotal    *prometheus.CounterVec
}

func NewCollector(serviceName string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		reg: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		CasesCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "cases",
			Name:      "created_total",
			Help:      "Total number of cases created.",
		}),

		StatusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "cases",
			Name:      "status_transitions_total",
			Help:      "Case status transitions by new status and performer role.",
		}, []string{"status", "role"}),

		CommentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "collab",
			Name:      "comments_total",
			Help:      "Comments appended by author role.",
		}, []string{"role"}),

		FilesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "collab",
			Name:      "files_total",
			Help:      "Files attached to cases.",
		}),

		NotificationEmails: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Notification e-mails by outcome (sent, failed).",
		}, []string{"outcome"}),

		SpecialCommentsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "collab",
			Name:      "special_comments_total",
			Help:      "Special comments broadcast to admins.",
		}),

		AuthFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected requests by reason (unauthenticated, forbidden, bad_credentials).",
		}, []string{"reason"}),
	}
}

// Handler exposes the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// EmailSent records the outcome of one notification e-mail.
func (c *Collector) EmailSent(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.NotificationEmails.WithLabelValues("failed").Inc()
		return
	}
	c.NotificationEmails.WithLabelValues("sent").Inc()
}

// The helpers below tolerate a nil Collector so services can run without metrics.

func (c *Collector) CaseCreated() {
	if c != nil {
		c.CasesCreatedTotal.Inc()
	}
}

func (c *Collector) StatusChanged(status, role string) {
	if c != nil {
		c.StatusTransitions.WithLabelValues(status, role).Inc()
	}
}

func (c *Collector) CommentAdded(role string) {
	if c != nil {
		c.CommentsTotal.WithLabelValues(role).Inc()
	}
}

func (c *Collector) FileAdded() {
	if c != nil {
		c.FilesTotal.Inc()
	}
}

func (c *Collector) SpecialCommentCreated() {
	if c != nil {
		c.SpecialCommentsTotal.Inc()
	}
}

func (c *Collector) AuthFailure(reason string) {
	if c != nil {
		c.AuthFailuresTotal.WithLabelValues(reason).Inc()
	}
}
