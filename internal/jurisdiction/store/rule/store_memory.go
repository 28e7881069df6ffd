package rule

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"complyledger/internal/jurisdiction/models"
	"complyledger/pkg/platform/sentinel"
)

// InMemory keeps rules in a map guarded by a single RWMutex.
type InMemory struct {
	mu    sync.RWMutex
	rules map[uuid.UUID]*models.JurisdictionRule
}

func NewInMemory() *InMemory {
	return &InMemory{rules: make(map[uuid.UUID]*models.JurisdictionRule)}
}

// CreateIfCodeAvailable inserts rule unless an active rule already uses its
// code, in which case it returns sentinel.ErrAlreadyUsed.
func (s *InMemory) CreateIfCodeAvailable(_ context.Context, rule *models.JurisdictionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rule.IsActive && s.activeCodeTaken(rule.JurisdictionCode, rule.ID) {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := s.rules[rule.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.rules[rule.ID] = rule.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.JurisdictionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

// FindActiveByCode returns the active rule for code.
func (s *InMemory) FindActiveByCode(_ context.Context, code string) (*models.JurisdictionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rules {
		if r.IsActive && r.JurisdictionCode == code {
			return r.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// FindByCode returns any rule (active or not) with code, preferring active.
func (s *InMemory) FindByCode(_ context.Context, code string) (*models.JurisdictionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.JurisdictionRule
	for _, r := range s.rules {
		if r.JurisdictionCode != code {
			continue
		}
		if r.IsActive {
			return r.Clone(), nil
		}
		if found == nil {
			found = r
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found.Clone(), nil
}

// Execute atomically loads the rule, runs validate, applies mutate and stores
// the result. Errors from validate or mutate abort without writing.
func (s *InMemory) Execute(
	_ context.Context,
	id uuid.UUID,
	validate func(*models.JurisdictionRule) error,
	mutate func(*models.JurisdictionRule),
) (*models.JurisdictionRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rules[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(current.Clone()); err != nil {
		return nil, err
	}
	next := current.Clone()
	mutate(next)
	if next.IsActive && s.activeCodeTaken(next.JurisdictionCode, next.ID) {
		return nil, sentinel.ErrAlreadyUsed
	}
	s.rules[id] = next
	return next.Clone(), nil
}

// Delete removes the rule after validate accepts it.
func (s *InMemory) Delete(_ context.Context, id uuid.UUID, validate func(*models.JurisdictionRule) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rules[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := validate(current.Clone()); err != nil {
		return err
	}
	delete(s.rules, id)
	return nil
}

// List filters, orders by (Priority, JurisdictionCode, ID) and pages.
func (s *InMemory) List(_ context.Context, filter models.ListRulesFilter) ([]*models.JurisdictionRule, int, error) {
	s.mu.RLock()
	matched := make([]*models.JurisdictionRule, 0, len(s.rules))
	for _, r := range s.rules {
		if filter.JurisdictionCode != "" && r.JurisdictionCode != filter.JurisdictionCode {
			continue
		}
		if filter.RegulatoryFramework != "" && r.RegulatoryFramework != filter.RegulatoryFramework {
			continue
		}
		if filter.ActiveOnly && !r.IsActive {
			continue
		}
		matched = append(matched, r.Clone())
	}
	s.mu.RUnlock()

	sortRules(matched)
	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []*models.JurisdictionRule{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// ListActive returns every active rule in evaluation order.
func (s *InMemory) ListActive(_ context.Context) ([]*models.JurisdictionRule, error) {
	s.mu.RLock()
	out := make([]*models.JurisdictionRule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.IsActive {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()
	sortRules(out)
	return out, nil
}

func (s *InMemory) activeCodeTaken(code string, except uuid.UUID) bool {
	for id, r := range s.rules {
		if id != except && r.IsActive && r.JurisdictionCode == code {
			return true
		}
	}
	return false
}

func sortRules(rules []*models.JurisdictionRule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		if rules[i].JurisdictionCode != rules[j].JurisdictionCode {
			return rules[i].JurisdictionCode < rules[j].JurisdictionCode
		}
		return rules[i].ID.String() < rules[j].ID.String()
	})
}
