package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "complyledger/pkg/domain-errors"
)

// GlobalJurisdiction is the reserved baseline code. It applies to every asset
// even without an explicit assignment and is always a valid assignment target.
const GlobalJurisdiction = "GLOBAL"

// Severity ranks how much a failed requirement weighs on the compliance status.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// ParseSeverity accepts the canonical spelling case-insensitively.
func ParseSeverity(raw string) (Severity, error) {
	for _, s := range []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow} {
		if strings.EqualFold(string(s), strings.TrimSpace(raw)) {
			return s, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "severity must be one of Critical, High, Medium, Low")
}

// Requirement categories used to scope evaluation to a decision step.
const (
	CategoryKYC        = "KYC"
	CategoryAML        = "AML"
	CategoryDisclosure = "DISCLOSURE"
	CategoryTerms      = "TERMS"
)

// ComplianceRequirement is one check inside a rule. Immutable once attached to
// a published rule version; updates replace the whole requirement list and bump
// the rule version.
type ComplianceRequirement struct {
	RequirementCode string   `json:"requirement_code"`
	Category        string   `json:"category"`
	Description     string   `json:"description"`
	IsMandatory     bool     `json:"is_mandatory"`
	Severity        Severity `json:"severity"`
	Recommendation  string   `json:"recommendation,omitempty"`
}

// JurisdictionRule is the aggregate root for a regulatory regime.
//
// Invariants:
//   - JurisdictionCode is non-empty, uppercase, and unique among active rules
//   - RequirementCode is unique within the rule
//   - Version starts at 1 and increases by one per update
//   - Immutable rules (the seeded GLOBAL baseline) reject updates and deletes
type JurisdictionRule struct {
	ID                  uuid.UUID               `json:"id"`
	JurisdictionCode    string                  `json:"jurisdiction_code"`
	JurisdictionName    string                  `json:"jurisdiction_name"`
	RegulatoryFramework string                  `json:"regulatory_framework"`
	IsActive            bool                    `json:"is_active"`
	IsImmutable         bool                    `json:"is_immutable"`
	Priority            int                     `json:"priority"`
	Version             int                     `json:"version"`
	Requirements        []ComplianceRequirement `json:"requirements"`
	CreatedBy           string                  `json:"created_by"`
	UpdatedBy           string                  `json:"updated_by"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// NormalizeCode canonicalizes a jurisdiction code for comparison and storage.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewJurisdictionRule validates invariants and returns a version-1 rule.
func NewJurisdictionRule(
	ruleID uuid.UUID,
	code string,
	name string,
	framework string,
	priority int,
	isActive bool,
	requirements []ComplianceRequirement,
	createdBy string,
	now time.Time,
) (*JurisdictionRule, error) {
	r := &JurisdictionRule{
		ID:                  ruleID,
		JurisdictionCode:    NormalizeCode(code),
		JurisdictionName:    strings.TrimSpace(name),
		RegulatoryFramework: strings.TrimSpace(framework),
		IsActive:            isActive,
		Priority:            priority,
		Version:             1,
		Requirements:        requirements,
		CreatedBy:           createdBy,
		UpdatedBy:           createdBy,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the rule invariants that do not need the store.
func (r *JurisdictionRule) Validate() error {
	if r.JurisdictionCode == "" {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction_code cannot be empty")
	}
	if len(r.JurisdictionCode) > 32 {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction_code must be 32 characters or less")
	}
	if r.JurisdictionName == "" {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction_name cannot be empty")
	}
	if r.Priority < 0 {
		return dErrors.New(dErrors.CodeValidation, "priority cannot be negative")
	}
	seen := make(map[string]struct{}, len(r.Requirements))
	for i := range r.Requirements {
		req := &r.Requirements[i]
		req.RequirementCode = strings.ToUpper(strings.TrimSpace(req.RequirementCode))
		if req.RequirementCode == "" {
			return dErrors.New(dErrors.CodeValidation, "requirement_code cannot be empty")
		}
		if _, dup := seen[req.RequirementCode]; dup {
			return dErrors.New(dErrors.CodeValidation, "duplicate requirement_code "+req.RequirementCode)
		}
		seen[req.RequirementCode] = struct{}{}
		if !req.Severity.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "invalid severity for "+req.RequirementCode)
		}
		req.Category = strings.ToUpper(strings.TrimSpace(req.Category))
	}
	return nil
}

// IsBaseline reports whether the rule is the reserved GLOBAL baseline.
func (r *JurisdictionRule) IsBaseline() bool {
	return r.JurisdictionCode == GlobalJurisdiction
}

// CanModify returns an error when the rule is protected from updates and deletes.
func (r *JurisdictionRule) CanModify() error {
	if r.IsImmutable {
		return dErrors.New(dErrors.CodeForbidden, "rule "+r.JurisdictionCode+" is immutable")
	}
	return nil
}

// Clone returns a deep copy so stores never hand out shared requirement slices.
func (r *JurisdictionRule) Clone() *JurisdictionRule {
	if r == nil {
		return nil
	}
	c := *r
	c.Requirements = append([]ComplianceRequirement(nil), r.Requirements...)
	return &c
}
