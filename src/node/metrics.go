package node

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts validation verdicts and commits.
type Metrics struct {
	validations *prometheus.CounterVec
	commits     prometheus.Counter
	received    prometheus.Counter
}

// NewMetrics registers the node collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "badges",
			Name:      "validations_total",
			Help:      "Validation verdicts by entry or link kind.",
		}, []string{"kind", "result"}),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "badges",
			Name:      "commits_total",
			Help:      "Entries committed to the local chain.",
		}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "badges",
			Name:      "received_total",
			Help:      "Replicated entries accepted from peers.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.validations, m.commits, m.received)
	}
	return m
}

func (m *Metrics) observe(kind string, err error) {
	result := "accepted"
	if err != nil {
		result = "rejected"
	}
	m.validations.WithLabelValues(kind, result).Inc()
}
