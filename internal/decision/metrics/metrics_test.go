package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	platformmetrics "complyledger/internal/platform/metrics"
)

func TestMetricsReportToSink(t *testing.T) {
	rec := platformmetrics.NewRecorder()
	m := New(rec)

	m.IncrementOutcome("approved", "kyc_kyb_verification")
	m.IncrementReplay("kyc_kyb_verification", "ledger")
	m.ObserveEvaluateLatency(25 * time.Millisecond)
	m.ObserveEvidenceLatency(SourceAssignments, time.Millisecond)
	m.SetBacklog(3, 1)

	assert.Equal(t, 1, rec.Count(DecisionsCreated, map[string]string{"outcome": "approved", "step": "kyc_kyb_verification"}))
	assert.Equal(t, 1, rec.Count(DecisionsReplayed, nil))
	assert.Equal(t, []float64{0.025}, rec.Samples(EvaluateDuration))
	assert.Len(t, rec.Samples("decision_evidence_assignments_duration_seconds"), 1)

	due, ok := rec.Gauge(ReviewDue)
	assert.True(t, ok)
	assert.Equal(t, 3.0, due)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementOutcome("approved", "aml_screening")
		m.IncrementCacheError()
		m.SetBacklog(1, 1)
	})
	assert.NotPanics(t, func() {
		New(nil).ObserveEvaluateLatency(time.Second)
	})
}
