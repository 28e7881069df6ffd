package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the jurisdiction module.
type Metrics struct {
	RuleChanges       *prometheus.CounterVec
	AssignmentChanges *prometheus.CounterVec
	SeededRules       prometheus.Counter
	ListRulesDuration prometheus.Histogram
}

// New registers the jurisdiction metrics on reg (the default registry when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RuleChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "complyledger_rule_changes_total",
			Help: "Jurisdiction rule writes by action",
		}, []string{"action"}), // action: "created", "updated", "deleted"
		AssignmentChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "complyledger_assignment_changes_total",
			Help: "Jurisdiction assignment writes by action",
		}, []string{"action"}),
		SeededRules: f.NewCounter(prometheus.CounterOpts{
			Name: "complyledger_rules_seeded_total",
			Help: "Rules created by Seed",
		}),
		ListRulesDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "complyledger_list_rules_duration_seconds",
			Help:    "Duration of ListRules operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementRuleChange(action string) {
	if m != nil {
		m.RuleChanges.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) IncrementAssignmentChange(action string) {
	if m != nil {
		m.AssignmentChanges.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) AddSeeded(n int) {
	if m != nil {
		m.SeededRules.Add(float64(n))
	}
}

// ObserveListRules records the duration of a ListRules call started at start.
func (m *Metrics) ObserveListRules(start time.Time) {
	if m != nil {
		m.ListRulesDuration.Observe(time.Since(start).Seconds())
	}
}
