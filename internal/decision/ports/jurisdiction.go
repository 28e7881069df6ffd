package ports

import (
	"context"

	jmodels "complyledger/internal/jurisdiction/models"
)

// JurisdictionPort gives the decision engine read access to rules and
// assignments without depending on the jurisdiction stores directly.
type JurisdictionPort interface {
	// GetAssignments returns the asset's explicit assignments, primary first.
	GetAssignments(ctx context.Context, assetID, network string) ([]*jmodels.TokenJurisdictionAssignment, error)

	// ListActiveRules returns every active rule.
	ListActiveRules(ctx context.Context) ([]*jmodels.JurisdictionRule, error)
}
