package assignment

import (
	"context"
	"sync"

	"complyledger/internal/jurisdiction/models"
	"complyledger/pkg/platform/sentinel"
)

// InMemory stores assignments per asset in assignment order.
type InMemory struct {
	mu      sync.RWMutex
	byAsset map[models.AssetKey][]*models.TokenJurisdictionAssignment
}

func NewInMemory() *InMemory {
	return &InMemory{byAsset: make(map[models.AssetKey][]*models.TokenJurisdictionAssignment)}
}

// Assign upserts a by (asset, network, code). When a is primary every other
// primary for the asset is demoted under the same lock.
func (s *InMemory) Assign(_ context.Context, a *models.TokenJurisdictionAssignment) (*models.TokenJurisdictionAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := a.Key()
	list := s.byAsset[key]
	var target *models.TokenJurisdictionAssignment
	for _, existing := range list {
		if existing.JurisdictionCode == a.JurisdictionCode {
			target = existing
			continue
		}
		if a.IsPrimary && existing.IsPrimary {
			existing.IsPrimary = false
		}
	}
	if target == nil {
		target = &models.TokenJurisdictionAssignment{}
		list = append(list, target)
		s.byAsset[key] = list
	}
	*target = *a
	cp := *target
	return &cp, nil
}

// Remove deletes the assignment for code, or returns sentinel.ErrNotFound.
func (s *InMemory) Remove(_ context.Context, key models.AssetKey, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byAsset[key]
	for i, existing := range list {
		if existing.JurisdictionCode == code {
			s.byAsset[key] = append(list[:i:i], list[i+1:]...)
			if len(s.byAsset[key]) == 0 {
				delete(s.byAsset, key)
			}
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// ListByAsset returns copies, primary first then assignment order.
func (s *InMemory) ListByAsset(_ context.Context, key models.AssetKey) ([]*models.TokenJurisdictionAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.byAsset[key]
	out := make([]*models.TokenJurisdictionAssignment, len(list))
	for i, a := range list {
		cp := *a
		out[i] = &cp
	}
	return models.OrderAssignments(out), nil
}
