// Package review runs the background sweep over decisions that are due for
// re-review or have expired.
package review

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	dmetrics "complyledger/internal/decision/metrics"
	"complyledger/internal/decision/models"
	"complyledger/internal/decision/ports"
	audit "complyledger/pkg/platform/audit"
)

const actor = "review-scheduler"

// Source is satisfied by the decision service.
type Source interface {
	GetDecisionsRequiringReview(ctx context.Context, asOf time.Time) ([]*models.ComplianceDecision, error)
	GetExpiredDecisions(ctx context.Context) ([]*models.ComplianceDecision, error)
}

// Result summarizes one sweep.
type Result struct {
	ReviewDue    int
	Expired      int
	NewlyDue     int
	NewlyExpired int
}

// Worker polls Source on an interval. Each decision is announced once per
// process for each signal.
type Worker struct {
	source    Source
	interval  time.Duration
	publisher ports.AuditPort
	metrics   *dmetrics.Metrics
	logger    *slog.Logger
	clock     func() time.Time

	mu          sync.Mutex
	seenDue     map[uuid.UUID]struct{}
	seenExpired map[uuid.UUID]struct{}
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPort) Option {
	return func(w *Worker) {
		w.publisher = publisher
	}
}

func WithMetrics(m *dmetrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithClock(clock func() time.Time) Option {
	return func(w *Worker) {
		w.clock = clock
	}
}

func New(source Source, interval time.Duration, opts ...Option) *Worker {
	w := &Worker{
		source:      source,
		interval:    interval,
		logger:      slog.Default(),
		clock:       time.Now,
		seenDue:     make(map[uuid.UUID]struct{}),
		seenExpired: make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
// Sweep failures are logged; the loop keeps going.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweepAndLog(ctx)
	for {
		select {
		case <-ticker.C:
			w.sweepAndLog(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) sweepAndLog(ctx context.Context) {
	res, err := w.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "review sweep failed", "error", err)
		}
		return
	}
	w.logger.InfoContext(ctx, "review sweep completed",
		"review_due", res.ReviewDue,
		"expired", res.Expired,
		"newly_due", res.NewlyDue,
		"newly_expired", res.NewlyExpired,
	)
}

// Sweep runs one pass. Exported for tests and the CLI.
func (w *Worker) Sweep(ctx context.Context) (Result, error) {
	due, err := w.source.GetDecisionsRequiringReview(ctx, w.clock())
	if err != nil {
		return Result{}, err
	}
	expired, err := w.source.GetExpiredDecisions(ctx)
	if err != nil {
		return Result{}, err
	}

	w.mu.Lock()
	newDue := fresh(w.seenDue, due)
	newExpired := fresh(w.seenExpired, expired)
	w.mu.Unlock()

	w.metrics.SetBacklog(len(due), len(expired))
	for _, d := range newDue {
		w.emit(ctx, audit.EventDecisionReviewDue, d)
	}
	for _, d := range newExpired {
		w.emit(ctx, audit.EventDecisionExpired, d)
	}
	return Result{
		ReviewDue:    len(due),
		Expired:      len(expired),
		NewlyDue:     len(newDue),
		NewlyExpired: len(newExpired),
	}, nil
}

// fresh returns the decisions not yet in seen and resets seen to current, so
// a decision that leaves the set and comes back is announced again.
func fresh(seen map[uuid.UUID]struct{}, current []*models.ComplianceDecision) []*models.ComplianceDecision {
	out := make([]*models.ComplianceDecision, 0)
	keep := make(map[uuid.UUID]struct{}, len(current))
	for _, d := range current {
		keep[d.ID] = struct{}{}
		if _, ok := seen[d.ID]; !ok {
			out = append(out, d)
		}
	}
	for id := range seen {
		if _, ok := keep[id]; !ok {
			delete(seen, id)
		}
	}
	for id := range keep {
		seen[id] = struct{}{}
	}
	return out
}

func (w *Worker) emit(ctx context.Context, action audit.AuditEvent, d *models.ComplianceDecision) {
	if w.publisher == nil {
		return
	}
	event := audit.NewEvent(action, d.ID.String(), w.clock())
	event.OrganizationID = d.OrganizationID
	event.Decision = string(d.Outcome)
	event.Reason = d.Reason
	event.ActorID = actor
	event.Attributes = map[string]string{"step": string(d.Step)}
	if d.NextReviewDate != nil {
		event.Attributes["next_review_date"] = d.NextReviewDate.UTC().Format(time.RFC3339)
	}
	if d.ExpiresAt != nil {
		event.Attributes["expires_at"] = d.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if err := w.publisher.Emit(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", string(action),
			"decision_id", d.ID.String(),
			"error", err,
		)
	}
}
