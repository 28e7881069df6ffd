package metrics

import (
	"time"

	platformmetrics "complyledger/internal/platform/metrics"
)

// Metric names reported to the sink. Counters gain a _total suffix on the
// Prometheus sink. Created is tagged by outcome and step; replayed by step
// and source ("cache" or "ledger").
const (
	DecisionsCreated  = "decisions_created"
	DecisionsReplayed = "decisions_replayed"
	CacheErrors       = "decision_idempotency_cache_errors"
	EvaluateDuration  = "decision_evaluate_duration_seconds"
	ReviewDue         = "decisions_review_due"
	Expired           = "decisions_expired"
)

// Evidence sources timed during gathering.
const (
	SourceEvidence    = "evidence"
	SourceAssignments = "assignments"
	SourceActiveRules = "rules"

	evidencePrefix = "decision_evidence_"
	evidenceSuffix = "_duration_seconds"
)

// Metrics provides observability for the decision module on top of a
// platform sink.
type Metrics struct {
	sink platformmetrics.Sink
}

// New wraps sink. A nil sink discards everything.
func New(sink platformmetrics.Sink) *Metrics {
	if sink == nil {
		sink = platformmetrics.Nop{}
	}
	return &Metrics{sink: sink}
}

// ObserveEvidenceLatency records the duration of fetching evidence from a source.
func (m *Metrics) ObserveEvidenceLatency(source string, d time.Duration) {
	if m != nil {
		m.sink.RecordHistogram(evidencePrefix+source+evidenceSuffix, d.Seconds())
	}
}

// IncrementOutcome records a newly persisted decision.
func (m *Metrics) IncrementOutcome(outcome, step string) {
	if m != nil {
		m.sink.IncrementCounter(DecisionsCreated, map[string]string{"outcome": outcome, "step": step})
	}
}

// IncrementReplay records a request answered by an existing decision.
func (m *Metrics) IncrementReplay(step, source string) {
	if m != nil {
		m.sink.IncrementCounter(DecisionsReplayed, map[string]string{"step": step, "source": source})
	}
}

func (m *Metrics) IncrementCacheError() {
	if m != nil {
		m.sink.IncrementCounter(CacheErrors, nil)
	}
}

// ObserveEvaluateLatency records the duration of a create or update that
// persisted a new decision.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.sink.RecordHistogram(EvaluateDuration, d.Seconds())
	}
}

// SetBacklog publishes the review scheduler's counts when the sink supports
// gauges.
func (m *Metrics) SetBacklog(reviewDue, expired int) {
	if m == nil {
		return
	}
	if g, ok := m.sink.(platformmetrics.GaugeSink); ok {
		g.SetGauge(ReviewDue, float64(reviewDue))
		g.SetGauge(Expired, float64(expired))
	}
}
