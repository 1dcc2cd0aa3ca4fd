package triage

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/sift/internal/classify"
)

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	SubmitsTotal       *prometheus.CounterVec
	TriageDuration     *prometheus.HistogramVec
	BackendCallsTotal  *prometheus.CounterVec
	BackendRetries     prometheus.Counter
	BackendDuration    prometheus.Histogram
	ExtractedFields    *prometheus.CounterVec
	BackendUnavailable prometheus.Counter
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_submits_total",
			Help: "Total message submissions by outcome.",
		}, []string{"outcome"}),
		TriageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_triage_duration_seconds",
			Help:    "Duration of full triage runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"category"}),
		BackendCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_backend_calls_total",
			Help: "Total classification backend calls by status.",
		}, []string{"status"}),
		BackendRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_backend_retries_total",
			Help: "Total classification backend retries.",
		}),
		BackendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_backend_call_duration_seconds",
			Help:    "Duration of individual backend calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 0.1s .. ~12.8s
		}),
		ExtractedFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_extracted_fields_total",
			Help: "Total extracted fields by field name.",
		}, []string{"field"}),
		BackendUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_backend_unavailable_total",
			Help: "Total triages downgraded because the backend was unavailable.",
		}),
	}

	reg.MustRegister(
		m.SubmitsTotal,
		m.TriageDuration,
		m.BackendCallsTotal,
		m.BackendRetries,
		m.BackendDuration,
		m.ExtractedFields,
		m.BackendUnavailable,
	)

	return m
}

// Hooks returns classify gateway hooks that feed the backend metrics.
func (m *Metrics) Hooks() classify.Hooks {
	return classify.Hooks{
		OnCall: func(duration float64, err error) {
			status := "success"
			if err != nil {
				status = "error"
			}
			m.BackendCallsTotal.WithLabelValues(status).Inc()
			m.BackendDuration.Observe(duration)
		},
		OnRetry: func() {
			m.BackendRetries.Inc()
		},
	}
}

// observeResult records per-result metrics after a successful triage.
func (m *Metrics) observeResult(r *Result) {
	if m == nil {
		return
	}
	m.TriageDuration.WithLabelValues(string(r.Category)).Observe(r.Duration)
	if r.BackendUnavailable {
		m.BackendUnavailable.Inc()
	}
	if r.Extracted.DealName != "" {
		m.ExtractedFields.WithLabelValues("deal_name").Inc()
	}
	if r.Extracted.Amount != nil {
		m.ExtractedFields.WithLabelValues("amount").Inc()
	}
	if r.Extracted.ExpirationDate != "" {
		m.ExtractedFields.WithLabelValues("expiration_date").Inc()
	}
}

// submit outcome labels.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

func (m *Metrics) incSubmit(outcome string) {
	if m == nil {
		return
	}
	m.SubmitsTotal.WithLabelValues(outcome).Inc()
}
