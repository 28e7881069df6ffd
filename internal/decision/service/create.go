package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"complyledger/internal/decision/models"
	"complyledger/internal/policy"
	dErrors "complyledger/pkg/domain-errors"
	audit "complyledger/pkg/platform/audit"
	"complyledger/pkg/platform/sentinel"
)

const (
	replaySourceCache  = "cache"
	replaySourceLedger = "ledger"
)

// CreateDecision records a decision for req. An identical request (same
// organization, step, policy version and evidence reference set) inside the
// dedup window returns the earlier decision with isReplay=true instead.
func (s *Service) CreateDecision(ctx context.Context, req models.CreateDecisionRequest, decisionMaker string) (_ *models.ComplianceDecision, _ bool, err error) {
	ctx, done := s.track(ctx, "decision.create",
		attribute.String("organization_id", req.OrganizationID),
		attribute.String("step", string(req.Step)),
	)
	defer func() { done(err) }()

	return s.record(ctx, uuid.Nil, req, decisionMaker)
}

// UpdateDecision records a successor of previousID and marks previousID
// superseded in the same ledger transaction. Retrying an identical update
// inside the dedup window replays the successor.
func (s *Service) UpdateDecision(ctx context.Context, previousID uuid.UUID, req models.CreateDecisionRequest, decisionMaker string) (_ *models.ComplianceDecision, _ bool, err error) {
	ctx, done := s.track(ctx, "decision.update",
		attribute.String("previous_decision_id", previousID.String()),
		attribute.String("step", string(req.Step)),
	)
	defer func() { done(err) }()

	if previousID == uuid.Nil {
		return nil, false, dErrors.New(dErrors.CodeValidation, "previous_decision_id is required")
	}
	return s.record(ctx, previousID, req, decisionMaker)
}

func (s *Service) record(ctx context.Context, previousID uuid.UUID, req models.CreateDecisionRequest, decisionMaker string) (*models.ComplianceDecision, bool, error) {
	start := time.Now()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	version, err := s.policyVersion(req.PolicyVersion)
	if err != nil {
		return nil, false, err
	}
	req.PolicyVersion = version
	if decisionMaker = strings.TrimSpace(decisionMaker); decisionMaker == "" {
		decisionMaker = actorFrom(ctx)
	}

	now := s.clock()
	key := models.DedupKey{
		OrganizationID: req.OrganizationID,
		Step:           req.Step,
		PolicyVersion:  version,
		EvidenceHash:   models.EvidenceHash(req.EvidenceReferences),
	}

	if previousID != uuid.Nil {
		previous, err := s.ledger.FindByID(ctx, previousID)
		if err != nil {
			return nil, false, wrapLedgerErr(err, "load previous decision")
		}
		if previous.OrganizationID != req.OrganizationID || previous.Step != req.Step {
			return nil, false, wrapLedgerErr(sentinel.ErrInvalidState, "supersede decision")
		}
	}

	existing, source, err := s.findReplay(ctx, key, now)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		s.replayed(ctx, existing, source)
		return existing, true, nil
	}

	d, err := s.buildDecision(ctx, &req, key, now, decisionMaker)
	if err != nil {
		return nil, false, err
	}

	var (
		stored *models.ComplianceDecision
		replay bool
	)
	if previousID == uuid.Nil {
		stored, replay, err = s.ledger.CreateOrReplay(ctx, d, s.cfg.DedupWindow)
	} else {
		stored, replay, err = s.ledger.Supersede(ctx, previousID, d, s.cfg.DedupWindow)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist decision",
			"organization_id", req.OrganizationID,
			"step", string(req.Step),
			"previous_decision_id", previousID.String(),
			"error", err,
		)
		return nil, false, wrapLedgerErr(err, "persist decision")
	}
	if replay {
		s.replayed(ctx, stored, replaySourceLedger)
		return stored, true, nil
	}

	s.metrics.IncrementOutcome(string(stored.Outcome), string(stored.Step))
	s.metrics.ObserveEvaluateLatency(time.Since(start))
	s.remember(ctx, key, stored.ID)
	s.logger.InfoContext(ctx, "decision recorded",
		"decision_id", stored.ID.String(),
		"organization_id", stored.OrganizationID,
		"step", string(stored.Step),
		"outcome", string(stored.Outcome),
		"policy_version", stored.PolicyVersion,
	)
	if previousID == uuid.Nil {
		s.emit(ctx, audit.EventDecisionCreated, stored, nil)
	} else {
		s.emit(ctx, audit.EventDecisionSuperseded, stored, map[string]string{
			"previous_decision_id": previousID.String(),
		})
	}
	return stored, false, nil
}

// policyVersion applies the configured default and canonicalizes the value
// so "1.0" and "v1.0.0" share a dedup key.
func (s *Service) policyVersion(raw string) (string, error) {
	if raw == "" {
		raw = s.cfg.PolicyVersion
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "policy_version must be a semantic version: "+raw)
	}
	return v.String(), nil
}

// findReplay checks the cache, then the ledger. A cached id only counts
// once the ledger confirms it still answers key inside the window.
func (s *Service) findReplay(ctx context.Context, key models.DedupKey, now time.Time) (*models.ComplianceDecision, string, error) {
	if s.cache != nil {
		id, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.metrics.IncrementCacheError()
			s.logger.WarnContext(ctx, "idempotency cache lookup failed", "error", err)
		}
		if ok {
			d, err := s.ledger.FindByID(ctx, id)
			switch {
			case err == nil && d.DedupKey() == key && d.WithinWindow(now, s.cfg.DedupWindow):
				return d, replaySourceCache, nil
			case err != nil && !errors.Is(err, sentinel.ErrNotFound):
				return nil, "", wrapLedgerErr(err, "load cached decision")
			}
		}
	}

	d, err := s.ledger.FindRecent(ctx, key, now, s.cfg.DedupWindow)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", wrapLedgerErr(err, "look up recent decision")
	}
	return d, replaySourceLedger, nil
}

func (s *Service) remember(ctx context.Context, key models.DedupKey, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, id, s.cfg.DedupWindow); err != nil {
		s.metrics.IncrementCacheError()
		s.logger.WarnContext(ctx, "idempotency cache write failed",
			"decision_id", id.String(),
			"error", err,
		)
	}
}

func (s *Service) replayed(ctx context.Context, d *models.ComplianceDecision, source string) {
	s.metrics.IncrementReplay(string(d.Step), source)
	s.logger.InfoContext(ctx, "decision replayed",
		"decision_id", d.ID.String(),
		"organization_id", d.OrganizationID,
		"step", string(d.Step),
		"source", source,
	)
	s.emit(ctx, audit.EventDecisionReplayed, d, map[string]string{"source": source})
}

// buildDecision evaluates req, or adopts its precomputed evaluation, and
// fills in the lifecycle dates.
func (s *Service) buildDecision(ctx context.Context, req *models.CreateDecisionRequest, key models.DedupKey, now time.Time, decisionMaker string) (*models.ComplianceDecision, error) {
	var result models.PolicyEvaluationResult
	if req.Evaluation != nil {
		result = *req.Evaluation
		result.RuleEvaluations = append([]models.RuleEvaluation(nil), req.Evaluation.RuleEvaluations...)
	} else {
		g, err := s.gatherEvidence(ctx, req)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to gather evidence",
				"organization_id", req.OrganizationID,
				"step", string(req.Step),
				"error", err,
			)
			return nil, err
		}
		eval := s.evaluator.EvaluateToken(policy.TokenInput{
			AssetID:     req.AssetID,
			Network:     req.Network,
			Assignments: g.assignments,
			Rules:       g.rules,
			Evidence:    g.evidence,
			Categories:  req.Step.Categories(),
		})
		result = MapEvaluation(eval)
	}

	d := &models.ComplianceDecision{
		ID:                 uuid.New(),
		OrganizationID:     req.OrganizationID,
		Step:               req.Step,
		AssetID:            req.AssetID,
		Network:            req.Network,
		Outcome:            result.Outcome,
		Reason:             result.Reason,
		DecisionMaker:      decisionMaker,
		DecisionTimestamp:  now,
		PolicyVersion:      key.PolicyVersion,
		EvidenceReferences: append([]models.EvidenceReference(nil), req.EvidenceReferences...),
		EvidenceHash:       key.EvidenceHash,
		RuleEvaluations:    result.RuleEvaluations,
		RequiresReview:     req.RequiresReview || result.RequiresReview || result.Outcome == models.OutcomeRequiresManualReview,
		CreatedAt:          now,
	}
	if d.RuleEvaluations == nil {
		d.RuleEvaluations = []models.RuleEvaluation{}
	}

	expiration := s.cfg.DefaultExpirationDays
	if req.ExpirationDays != nil {
		expiration = *req.ExpirationDays
	}
	if expiration > 0 {
		at := now.AddDate(0, 0, expiration)
		d.ExpiresAt = &at
	}

	if d.RequiresReview {
		at := now
		if d.Outcome != models.OutcomeRequiresManualReview {
			interval := s.cfg.DefaultReviewDays
			if req.ReviewIntervalDays != nil {
				interval = *req.ReviewIntervalDays
			}
			at = now.AddDate(0, 0, interval)
		}
		d.NextReviewDate = &at
	}
	return d, nil
}
