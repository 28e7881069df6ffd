package ports

//go:generate mockgen -destination=mocks/mocks.go -package=mocks complyledger/internal/decision/ports AuditPort,EvidenceSource,JurisdictionPort

import (
	"context"

	"complyledger/internal/policy"
)

// EvidenceSource supplies the compliance metadata snapshot for an asset.
// The decision service merges the request's inline evidence and evidence
// references over whatever is returned here.
type EvidenceSource interface {
	// FetchEvidence returns nil, nil when nothing is known about the asset.
	// Returns nil, error only for infrastructure failures.
	FetchEvidence(ctx context.Context, assetID, network string) (*policy.Evidence, error)
}
