// Package store is the decision ledger. Decisions are never deleted; the only
// mutation is supersession.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"complyledger/internal/decision/models"
	"complyledger/pkg/platform/sentinel"
)

// InMemory keeps the ledger in maps guarded by one RWMutex. The write lock
// covers the dedup lookup with its insert, and supersession as a whole.
type InMemory struct {
	mu        sync.RWMutex
	decisions map[uuid.UUID]*models.ComplianceDecision
	byKey     map[models.DedupKey][]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		decisions: make(map[uuid.UUID]*models.ComplianceDecision),
		byKey:     make(map[models.DedupKey][]uuid.UUID),
	}
}

// CreateOrReplay inserts d unless a decision with the same dedup key was
// issued within window before d.DecisionTimestamp, in which case that
// decision is returned with replay=true.
func (s *InMemory) CreateOrReplay(_ context.Context, d *models.ComplianceDecision, window time.Duration) (*models.ComplianceDecision, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findReplay(d.DedupKey(), d.DecisionTimestamp, window); existing != nil {
		return existing.Clone(), true, nil
	}
	s.insert(d)
	return d.Clone(), false, nil
}

// Supersede inserts d as the successor of previousID and marks the
// predecessor superseded in the same critical section. A dedup hit inside
// window is returned as a replay without touching the predecessor.
func (s *InMemory) Supersede(_ context.Context, previousID uuid.UUID, d *models.ComplianceDecision, window time.Duration) (*models.ComplianceDecision, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findReplay(d.DedupKey(), d.DecisionTimestamp, window); existing != nil {
		return existing.Clone(), true, nil
	}
	previous, ok := s.decisions[previousID]
	if !ok {
		return nil, false, sentinel.ErrNotFound
	}
	if previous.OrganizationID != d.OrganizationID || previous.Step != d.Step {
		return nil, false, sentinel.ErrInvalidState
	}
	if previous.IsSuperseded {
		return nil, false, sentinel.ErrConflict
	}

	next := previous.Clone()
	if err := next.MarkSuperseded(d.ID, d.DecisionTimestamp); err != nil {
		return nil, false, sentinel.ErrConflict
	}
	prev := previousID
	d.PreviousDecisionID = &prev
	s.decisions[previousID] = next
	s.insert(d)
	return d.Clone(), false, nil
}

// FindRecent returns the newest decision with key issued within window
// before asOf.
func (s *InMemory) FindRecent(_ context.Context, key models.DedupKey, asOf time.Time, window time.Duration) (*models.ComplianceDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d := s.findReplay(key, asOf, window); d != nil {
		return d.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.ComplianceDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

// FindActive returns the newest non-superseded, unexpired decision for the
// organization and step.
func (s *InMemory) FindActive(_ context.Context, organizationID string, step models.Step, now time.Time) (*models.ComplianceDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.ComplianceDecision
	for _, d := range s.decisions {
		if d.OrganizationID != organizationID || d.Step != step || !d.IsActiveAt(now) {
			continue
		}
		if best == nil || newer(d, best) {
			best = d
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return best.Clone(), nil
}

// Query returns one page of matching decisions, newest first, and the
// unpaged match count.
func (s *InMemory) Query(_ context.Context, filter models.DecisionFilter, now time.Time) ([]*models.ComplianceDecision, int, error) {
	s.mu.RLock()
	matched := make([]*models.ComplianceDecision, 0)
	for _, d := range s.decisions {
		if filter.Matches(d, now) {
			matched = append(matched, d.Clone())
		}
	}
	s.mu.RUnlock()

	models.SortDecisions(matched)
	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []*models.ComplianceDecision{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *InMemory) ListRequiringReview(_ context.Context, asOf time.Time) ([]*models.ComplianceDecision, error) {
	return s.collect(func(d *models.ComplianceDecision) bool { return d.IsReviewDueAt(asOf) }), nil
}

// ListExpired ignores the superseded flag.
func (s *InMemory) ListExpired(_ context.Context, now time.Time) ([]*models.ComplianceDecision, error) {
	return s.collect(func(d *models.ComplianceDecision) bool { return d.IsExpiredAt(now) }), nil
}

func (s *InMemory) collect(keep func(*models.ComplianceDecision) bool) []*models.ComplianceDecision {
	s.mu.RLock()
	out := make([]*models.ComplianceDecision, 0)
	for _, d := range s.decisions {
		if keep(d) {
			out = append(out, d.Clone())
		}
	}
	s.mu.RUnlock()
	models.SortDecisions(out)
	return out
}

// findReplay must run under the lock.
func (s *InMemory) findReplay(key models.DedupKey, now time.Time, window time.Duration) *models.ComplianceDecision {
	var best *models.ComplianceDecision
	for _, id := range s.byKey[key] {
		d := s.decisions[id]
		if !d.WithinWindow(now, window) {
			continue
		}
		if best == nil || newer(d, best) {
			best = d
		}
	}
	return best
}

func (s *InMemory) insert(d *models.ComplianceDecision) {
	stored := d.Clone()
	s.decisions[d.ID] = stored
	key := stored.DedupKey()
	s.byKey[key] = append(s.byKey[key], d.ID)
}

func newer(a, b *models.ComplianceDecision) bool {
	if !a.DecisionTimestamp.Equal(b.DecisionTimestamp) {
		return a.DecisionTimestamp.After(b.DecisionTimestamp)
	}
	return a.ID.String() < b.ID.String()
}
