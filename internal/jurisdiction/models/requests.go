package models

import (
	"strings"

	"github.com/google/uuid"

	dErrors "complyledger/pkg/domain-errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CreateRuleRequest carries the fields of a new rule.
type CreateRuleRequest struct {
	JurisdictionCode    string
	JurisdictionName    string
	RegulatoryFramework string
	Priority            int
	IsActive            bool
	IsImmutable         bool
	Requirements        []ComplianceRequirement
}

// UpdateRuleRequest replaces mutable fields. Nil fields are left unchanged.
// ExpectedVersion, when non-zero, must match the stored version.
type UpdateRuleRequest struct {
	JurisdictionName    *string
	RegulatoryFramework *string
	Priority            *int
	IsActive            *bool
	Requirements        *[]ComplianceRequirement
	ExpectedVersion     int
}

// ListRulesFilter narrows ListRules. Empty fields match everything.
type ListRulesFilter struct {
	JurisdictionCode    string
	RegulatoryFramework string
	ActiveOnly          bool
	Page                int
	PageSize            int
}

// Normalize applies pagination defaults and bounds.
func (f *ListRulesFilter) Normalize() {
	f.JurisdictionCode = NormalizeCode(f.JurisdictionCode)
	f.RegulatoryFramework = strings.TrimSpace(f.RegulatoryFramework)
	f.Page, f.PageSize = NormalizePage(f.Page, f.PageSize)
}

// NormalizePage clamps 1-based paging parameters.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// RulePage is one page of rules plus the unpaged total.
type RulePage struct {
	Rules      []*JurisdictionRule
	TotalCount int
	Page       int
	PageSize   int
}

// AssignJurisdictionRequest binds a jurisdiction code to an asset.
type AssignJurisdictionRequest struct {
	AssetID          string
	Network          string
	JurisdictionCode string
	IsPrimary        bool
	AssignedBy       string
	Reason           string
}

// Normalize trims identifiers and canonicalizes the jurisdiction code.
func (r *AssignJurisdictionRequest) Normalize() {
	key := NewAssetKey(r.AssetID, r.Network)
	r.AssetID = key.AssetID
	r.Network = key.Network
	r.JurisdictionCode = NormalizeCode(r.JurisdictionCode)
	r.AssignedBy = strings.TrimSpace(r.AssignedBy)
	r.Reason = strings.TrimSpace(r.Reason)
}

// Validate checks required fields.
func (r *AssignJurisdictionRequest) Validate() error {
	if r.AssetID == "" {
		return dErrors.New(dErrors.CodeValidation, "asset_id is required")
	}
	if r.Network == "" {
		return dErrors.New(dErrors.CodeValidation, "network is required")
	}
	if r.JurisdictionCode == "" {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction_code is required")
	}
	return nil
}

// RuleFromRequest is a helper for seeding and tests.
func RuleFromRequest(ruleID uuid.UUID, req CreateRuleRequest) *JurisdictionRule {
	return &JurisdictionRule{
		ID:                  ruleID,
		JurisdictionCode:    NormalizeCode(req.JurisdictionCode),
		JurisdictionName:    req.JurisdictionName,
		RegulatoryFramework: req.RegulatoryFramework,
		Priority:            req.Priority,
		IsActive:            req.IsActive,
		IsImmutable:         req.IsImmutable,
		Version:             1,
		Requirements:        req.Requirements,
	}
}
