package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "youthportal"

// Metrics is nil-safe: a nil *Metrics records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	gateDecisions *prometheus.CounterVec
	logins        *prometheus.CounterVec
	revocations   prometheus.Counter
	sweeps        *prometheus.CounterVec
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
		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "gate_decisions_total",
			Help:      "Authentication gate classifications by surface and state.",
		}, []string{"surface", "state"}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome code.",
		}, []string{"outcome"}),
		revocations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sessions_revoked_total",
			Help:      "Sessions destroyed through administrative revocation.",
		}),
		sweeps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "items_removed_total",
			Help:      "Items removed by background cleanup jobs.",
		}, []string{"job"}),
	}
}

func (m *Metrics) ObserveGate(surface, state string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(surface, state).Inc()
}

func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRevocations(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.revocations.Add(float64(n))
}

func (m *Metrics) ObserveCleanup(job string, removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.sweeps.WithLabelValues(job).Add(float64(removed))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GateDecisions exposes the counter for assertions in tests.
func (m *Metrics) GateDecisions() *prometheus.CounterVec { return m.gateDecisions }

func (m *Metrics) Logins() *prometheus.CounterVec { return m.logins }

func (m *Metrics) Cleanups() *prometheus.CounterVec { return m.sweeps }
