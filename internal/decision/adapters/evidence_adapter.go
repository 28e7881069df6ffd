package adapters

import (
	"context"
	"sync"

	"complyledger/internal/decision/ports"
	jmodels "complyledger/internal/jurisdiction/models"
	"complyledger/internal/policy"
)

// StaticEvidenceSource implements ports.EvidenceSource from snapshots held in
// memory. It backs local runs and tests; production deployments put a
// provider integration behind the same port.
type StaticEvidenceSource struct {
	mu        sync.RWMutex
	snapshots map[jmodels.AssetKey]policy.Evidence
}

var _ ports.EvidenceSource = (*StaticEvidenceSource)(nil)

// NewStaticEvidenceSource creates an empty source.
func NewStaticEvidenceSource() *StaticEvidenceSource {
	return &StaticEvidenceSource{snapshots: make(map[jmodels.AssetKey]policy.Evidence)}
}

// Put replaces the snapshot for an asset.
func (s *StaticEvidenceSource) Put(assetID, network string, ev policy.Evidence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[jmodels.NewAssetKey(assetID, network)] = policy.Evidence{}.Merge(ev)
}

// FetchEvidence returns a copy of the stored snapshot, or nil, nil if none is
// known. Decisions without a token scope have no snapshot.
func (s *StaticEvidenceSource) FetchEvidence(_ context.Context, assetID, network string) (*policy.Evidence, error) {
	if assetID == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.snapshots[jmodels.NewAssetKey(assetID, network)]
	if !ok {
		return nil, nil
	}
	out := policy.Evidence{}.Merge(ev)
	return &out, nil
}
