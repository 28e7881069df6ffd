package adapters

import (
	"context"

	"complyledger/internal/decision/ports"
	jmodels "complyledger/internal/jurisdiction/models"
)

// JurisdictionService is the slice of the jurisdiction service the adapter
// calls.
type JurisdictionService interface {
	GetAssignments(ctx context.Context, assetID, network string) ([]*jmodels.TokenJurisdictionAssignment, error)
	ListActiveRules(ctx context.Context) ([]*jmodels.JurisdictionRule, error)
}

// JurisdictionAdapter is an in-process adapter that implements
// ports.JurisdictionPort by directly calling the jurisdiction service.
// Splitting the modules apart means swapping this for a network client
// without changing the decision service.
type JurisdictionAdapter struct {
	service JurisdictionService
}

// NewJurisdictionAdapter creates a new in-process jurisdiction adapter.
func NewJurisdictionAdapter(service JurisdictionService) ports.JurisdictionPort {
	return &JurisdictionAdapter{service: service}
}

// GetAssignments returns no assignments for decisions without a token scope,
// so only GLOBAL applies.
func (a *JurisdictionAdapter) GetAssignments(ctx context.Context, assetID, network string) ([]*jmodels.TokenJurisdictionAssignment, error) {
	if assetID == "" || network == "" {
		return nil, nil
	}
	return a.service.GetAssignments(ctx, assetID, network)
}

func (a *JurisdictionAdapter) ListActiveRules(ctx context.Context) ([]*jmodels.JurisdictionRule, error) {
	return a.service.ListActiveRules(ctx)
}
