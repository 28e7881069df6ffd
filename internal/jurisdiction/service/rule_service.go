package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"complyledger/internal/jurisdiction/models"
	dErrors "complyledger/pkg/domain-errors"
	audit "complyledger/pkg/platform/audit"
)

// CreateRule validates and stores a new version-1 rule.
func (s *Service) CreateRule(ctx context.Context, req models.CreateRuleRequest) (*models.JurisdictionRule, error) {
	actor := actorFrom(ctx)
	rule, err := models.NewJurisdictionRule(uuid.New(), req.JurisdictionCode, req.JurisdictionName,
		req.RegulatoryFramework, req.Priority, req.IsActive, req.Requirements, actor, s.clock())
	if err != nil {
		return nil, err
	}
	rule.IsImmutable = req.IsImmutable

	if err := s.rules.CreateIfCodeAvailable(ctx, rule); err != nil {
		return nil, wrapRuleErr(err, "create rule")
	}

	s.logger.InfoContext(ctx, "jurisdiction rule created",
		"rule_id", rule.ID,
		"jurisdiction_code", rule.JurisdictionCode,
		"requirements", len(rule.Requirements),
	)
	s.metrics.IncrementRuleChange("created")
	s.emit(ctx, audit.EventRuleCreated, rule.ID.String(), map[string]string{
		"jurisdiction_code": rule.JurisdictionCode,
	})
	return rule, nil
}

func (s *Service) GetRule(ctx context.Context, id uuid.UUID) (*models.JurisdictionRule, error) {
	rule, err := s.rules.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRuleErr(err, "load rule")
	}
	return rule, nil
}

// UpdateRule applies req atomically with the version check and the
// immutability guard. Every successful update bumps Version by one.
func (s *Service) UpdateRule(ctx context.Context, id uuid.UUID, req models.UpdateRuleRequest) (*models.JurisdictionRule, error) {
	actor := actorFrom(ctx)
	now := s.clock()
	apply := func(r *models.JurisdictionRule) {
		if req.JurisdictionName != nil {
			r.JurisdictionName = *req.JurisdictionName
		}
		if req.RegulatoryFramework != nil {
			r.RegulatoryFramework = *req.RegulatoryFramework
		}
		if req.Priority != nil {
			r.Priority = *req.Priority
		}
		if req.IsActive != nil {
			r.IsActive = *req.IsActive
		}
		if req.Requirements != nil {
			r.Requirements = append([]models.ComplianceRequirement(nil), (*req.Requirements)...)
		}
		r.Version++
		r.UpdatedBy = actor
		r.UpdatedAt = now
	}

	rule, err := s.rules.Execute(ctx, id,
		func(r *models.JurisdictionRule) error {
			if err := r.CanModify(); err != nil {
				return err
			}
			if req.ExpectedVersion != 0 && req.ExpectedVersion != r.Version {
				return dErrors.New(dErrors.CodeConflict,
					"rule version is "+strconv.Itoa(r.Version)+", expected "+strconv.Itoa(req.ExpectedVersion))
			}
			candidate := r.Clone()
			apply(candidate)
			return candidate.Validate()
		},
		func(r *models.JurisdictionRule) {
			apply(r)
			_ = r.Validate() // normalizes codes; the candidate already passed
		},
	)
	if err != nil {
		return nil, wrapRuleErr(err, "update rule")
	}

	s.logger.InfoContext(ctx, "jurisdiction rule updated",
		"rule_id", rule.ID,
		"jurisdiction_code", rule.JurisdictionCode,
		"version", rule.Version,
	)
	s.metrics.IncrementRuleChange("updated")
	s.emit(ctx, audit.EventRuleUpdated, rule.ID.String(), map[string]string{
		"jurisdiction_code": rule.JurisdictionCode,
		"version":           strconv.Itoa(rule.Version),
	})
	return rule, nil
}

// DeleteRule hard-deletes a rule. Decisions keep their own copy of the
// evaluations, so history is unaffected.
func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	var code string
	err := s.rules.Delete(ctx, id, func(r *models.JurisdictionRule) error {
		code = r.JurisdictionCode
		return r.CanModify()
	})
	if err != nil {
		return wrapRuleErr(err, "delete rule")
	}

	s.logger.InfoContext(ctx, "jurisdiction rule deleted", "rule_id", id, "jurisdiction_code", code)
	s.metrics.IncrementRuleChange("deleted")
	s.emit(ctx, audit.EventRuleDeleted, id.String(), map[string]string{"jurisdiction_code": code})
	return nil
}

// ListRules returns one page plus the total match count.
func (s *Service) ListRules(ctx context.Context, filter models.ListRulesFilter) (*models.RulePage, error) {
	start := time.Now()
	defer s.metrics.ObserveListRules(start)

	filter.Normalize()
	rules, total, err := s.rules.List(ctx, filter)
	if err != nil {
		return nil, wrapRuleErr(err, "list rules")
	}
	return &models.RulePage{Rules: rules, TotalCount: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// ListActiveRules returns every active rule in evaluation order.
func (s *Service) ListActiveRules(ctx context.Context) ([]*models.JurisdictionRule, error) {
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return nil, wrapRuleErr(err, "list active rules")
	}
	return rules, nil
}
