// Package metrics holds the Prometheus collectors for enrollment activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enrollment outcomes.
const (
	OutcomeSucceeded  = "succeeded"
	OutcomeValidation = "validation"
	OutcomeProvision  = "provisioning"
	OutcomeCommit     = "commit"
	OutcomeError      = "error"
)

type Metrics struct {
	reg *prometheus.Registry

	Enrollments         *prometheus.CounterVec
	AccountsProvisioned prometheus.Counter
	SubmitDuration      prometheus.Histogram
	Logins              *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, along with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studentid",
			Name:      "enrollments_total",
			Help:      "Enrollment submissions by outcome.",
		}, []string{"outcome"}),
		AccountsProvisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studentid",
			Name:      "guardian_accounts_provisioned_total",
			Help:      "Guardian accounts created during enrollment.",
		}),
		SubmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "studentid",
			Name:      "enrollment_submit_seconds",
			Help:      "Wall time of enrollment submissions.",
			Buckets:   prometheus.DefBuckets,
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studentid",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
	}
	m.reg.MustRegister(
		m.Enrollments,
		m.AccountsProvisioned,
		m.SubmitDuration,
		m.Logins,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSubmit records one finished submission. A nil Metrics is a no-op.
func (m *Metrics) ObserveSubmit(outcome string, provisioned int, took time.Duration) {
	if m == nil {
		return
	}
	m.Enrollments.WithLabelValues(outcome).Inc()
	m.AccountsProvisioned.Add(float64(provisioned))
	m.SubmitDuration.Observe(took.Seconds())
}

// ObserveLogin records a login attempt result ("success" or a failure reason).
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
