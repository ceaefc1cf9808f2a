package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atvirokodosprendimai/regform/internal/core/domain"
)

// Metrics counts submission outcomes on its own registry so tests and
// multiple servers in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	Accepted    prometheus.Counter
	Rejected    prometheus.Counter
	FieldErrors *prometheus.CounterVec
	RateLimited prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Accepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "regform_registrations_accepted_total",
			Help: "Total number of submissions appended to a results table",
		}),
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "regform_registrations_rejected_total",
			Help: "Total number of submissions that failed validation",
		}),
		FieldErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regform_field_errors_total",
			Help: "Field-level validation failures by error code",
		}, []string{"code"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "regform_rate_limited_total",
			Help: "Total number of requests refused by the rate limiter",
		}),
	}
}

// Publish implements ports.EventPublisher.
func (m *Metrics) Publish(_ context.Context, event domain.SubmissionEvent) error {
	switch event.EventType {
	case domain.EventRegistrationAccepted:
		m.Accepted.Inc()
	case domain.EventRegistrationRejected:
		m.Rejected.Inc()
		for _, kind := range event.Rejections {
			m.FieldErrors.WithLabelValues(kind.Code()).Inc()
		}
	}
	return nil
}

func (m *Metrics) IncrementRateLimited() {
	m.RateLimited.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
