package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"complyledger/internal/decision/models"
	dErrors "complyledger/pkg/domain-errors"
)

// maxHistoryDepth bounds a supersession chain walk.
const maxHistoryDepth = 1000

func (s *Service) GetDecision(ctx context.Context, id uuid.UUID) (*models.ComplianceDecision, error) {
	d, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		return nil, wrapLedgerErr(err, "load decision")
	}
	return d, nil
}

// GetActiveDecision returns the newest decision for (organizationID, step)
// that is neither superseded nor expired.
func (s *Service) GetActiveDecision(ctx context.Context, organizationID string, step models.Step) (_ *models.ComplianceDecision, err error) {
	ctx, done := s.track(ctx, "decision.get_active",
		attribute.String("organization_id", organizationID),
		attribute.String("step", string(step)),
	)
	defer func() { done(err) }()

	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "organization_id is required")
	}
	if !step.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "unknown step "+string(step))
	}
	d, err := s.ledger.FindActive(ctx, organizationID, step, s.clock())
	if err != nil {
		return nil, wrapLedgerErr(err, "load active decision")
	}
	return d, nil
}

// QueryDecisions returns one page, newest first, with a summary of that page.
func (s *Service) QueryDecisions(ctx context.Context, filter models.DecisionFilter) (_ *models.DecisionPage, err error) {
	ctx, done := s.track(ctx, "decision.query",
		attribute.String("organization_id", filter.OrganizationID),
		attribute.Int("page", filter.Page),
	)
	defer func() { done(err) }()

	filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	decisions, total, err := s.ledger.Query(ctx, filter, s.clock())
	if err != nil {
		return nil, wrapLedgerErr(err, "query decisions")
	}
	return &models.DecisionPage{
		Decisions:  decisions,
		TotalCount: total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		Summary:    models.Summarize(decisions, s.cfg.SummaryTopReasons),
	}, nil
}

// GetDecisionHistory walks PreviousDecisionID from id back to the first
// decision of the chain, newest first.
func (s *Service) GetDecisionHistory(ctx context.Context, id uuid.UUID) ([]*models.ComplianceDecision, error) {
	out := make([]*models.ComplianceDecision, 0)
	seen := make(map[uuid.UUID]struct{})
	next := &id
	for next != nil {
		if _, ok := seen[*next]; ok || len(out) >= maxHistoryDepth {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "decision history contains a cycle")
		}
		seen[*next] = struct{}{}
		d, err := s.ledger.FindByID(ctx, *next)
		if err != nil {
			return nil, wrapLedgerErr(err, "load decision history")
		}
		out = append(out, d)
		next = d.PreviousDecisionID
	}
	return out, nil
}

// GetDecisionsRequiringReview returns non-superseded decisions flagged for
// review whose NextReviewDate is at or before asOf. A zero asOf means now.
func (s *Service) GetDecisionsRequiringReview(ctx context.Context, asOf time.Time) ([]*models.ComplianceDecision, error) {
	if asOf.IsZero() {
		asOf = s.clock()
	}
	out, err := s.ledger.ListRequiringReview(ctx, asOf)
	if err != nil {
		return nil, wrapLedgerErr(err, "list decisions requiring review")
	}
	return out, nil
}

// GetExpiredDecisions returns every decision whose ExpiresAt has passed,
// superseded or not.
func (s *Service) GetExpiredDecisions(ctx context.Context) ([]*models.ComplianceDecision, error) {
	out, err := s.ledger.ListExpired(ctx, s.clock())
	if err != nil {
		return nil, wrapLedgerErr(err, "list expired decisions")
	}
	return out, nil
}
