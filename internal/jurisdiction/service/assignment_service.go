package service

import (
	"context"
	"errors"

	"complyledger/internal/jurisdiction/models"
	dErrors "complyledger/pkg/domain-errors"
	audit "complyledger/pkg/platform/audit"
	"complyledger/pkg/platform/sentinel"
)

// AssignJurisdiction binds code to an asset. GLOBAL is always accepted; any
// other code must belong to an active rule.
func (s *Service) AssignJurisdiction(ctx context.Context, req models.AssignJurisdictionRequest) (*models.TokenJurisdictionAssignment, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.AssignedBy == "" {
		req.AssignedBy = actorFrom(ctx)
	}

	if req.JurisdictionCode != models.GlobalJurisdiction {
		if _, err := s.rules.FindActiveByCode(ctx, req.JurisdictionCode); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeUnknownJurisdiction, "no active rule for jurisdiction "+req.JurisdictionCode)
			}
			return nil, wrapRuleErr(err, "resolve jurisdiction")
		}
	}

	assigned, err := s.assignments.Assign(ctx, &models.TokenJurisdictionAssignment{
		AssetID:          req.AssetID,
		Network:          req.Network,
		JurisdictionCode: req.JurisdictionCode,
		IsPrimary:        req.IsPrimary,
		AssignedBy:       req.AssignedBy,
		Reason:           req.Reason,
		AssignedAt:       s.clock(),
	})
	if err != nil {
		return nil, wrapAssignmentErr(err, "assign jurisdiction")
	}

	s.logger.InfoContext(ctx, "jurisdiction assigned",
		"asset_id", assigned.AssetID,
		"network", assigned.Network,
		"jurisdiction_code", assigned.JurisdictionCode,
		"is_primary", assigned.IsPrimary,
	)
	s.metrics.IncrementAssignmentChange("assigned")
	primary := "false"
	if assigned.IsPrimary {
		primary = "true"
	}
	s.emit(ctx, audit.EventJurisdictionAssigned, assigned.Key().String(), map[string]string{
		"jurisdiction_code": assigned.JurisdictionCode,
		"is_primary":        primary,
	})
	return assigned, nil
}

func (s *Service) RemoveJurisdiction(ctx context.Context, assetID, network, code string) error {
	key := models.NewAssetKey(assetID, network)
	code = models.NormalizeCode(code)
	if key.AssetID == "" || key.Network == "" || code == "" {
		return dErrors.New(dErrors.CodeValidation, "asset_id, network and jurisdiction_code are required")
	}
	if err := s.assignments.Remove(ctx, key, code); err != nil {
		return wrapAssignmentErr(err, "remove jurisdiction")
	}

	s.logger.InfoContext(ctx, "jurisdiction removed",
		"asset_id", key.AssetID,
		"network", key.Network,
		"jurisdiction_code", code,
	)
	s.metrics.IncrementAssignmentChange("removed")
	s.emit(ctx, audit.EventJurisdictionRemoved, key.String(), map[string]string{"jurisdiction_code": code})
	return nil
}

// GetAssignments returns primary first, then the rest in assignment order.
func (s *Service) GetAssignments(ctx context.Context, assetID, network string) ([]*models.TokenJurisdictionAssignment, error) {
	key := models.NewAssetKey(assetID, network)
	if key.AssetID == "" || key.Network == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "asset_id and network are required")
	}
	list, err := s.assignments.ListByAsset(ctx, key)
	if err != nil {
		return nil, wrapAssignmentErr(err, "list assignments")
	}
	return list, nil
}
