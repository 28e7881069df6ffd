package handler

import (
	"strings"

	"complyledger/internal/jurisdiction/models"
	dErrors "complyledger/pkg/domain-errors"
)

// RequirementRequest is the wire form of a requirement.
type RequirementRequest struct {
	RequirementCode string `json:"requirement_code"`
	Category        string `json:"category"`
	Description     string `json:"description"`
	IsMandatory     bool   `json:"is_mandatory"`
	Severity        string `json:"severity"`
	Recommendation  string `json:"recommendation"`
}

// RuleRequest is the body of POST /admin/jurisdictions/rules.
type RuleRequest struct {
	JurisdictionCode    string               `json:"jurisdiction_code"`
	JurisdictionName    string               `json:"jurisdiction_name"`
	RegulatoryFramework string               `json:"regulatory_framework"`
	Priority            int                  `json:"priority"`
	IsActive            *bool                `json:"is_active"`
	Requirements        []RequirementRequest `json:"requirements"`

	parsed []models.ComplianceRequirement
}

func (r *RuleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.JurisdictionCode = strings.TrimSpace(r.JurisdictionCode)
	r.JurisdictionName = strings.TrimSpace(r.JurisdictionName)
	if r.JurisdictionCode == "" {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction_code is required")
	}
	if r.JurisdictionName == "" {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction_name is required")
	}
	reqs, err := parseRequirements(r.Requirements)
	if err != nil {
		return err
	}
	r.parsed = reqs
	return nil
}

// ToCreate converts the validated body. Rules default to active.
func (r *RuleRequest) ToCreate() models.CreateRuleRequest {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return models.CreateRuleRequest{
		JurisdictionCode:    r.JurisdictionCode,
		JurisdictionName:    r.JurisdictionName,
		RegulatoryFramework: r.RegulatoryFramework,
		Priority:            r.Priority,
		IsActive:            active,
		Requirements:        r.parsed,
	}
}

// UpdateRuleRequest is the body of PATCH /admin/jurisdictions/rules/{id}.
type UpdateRuleRequest struct {
	JurisdictionName    *string               `json:"jurisdiction_name"`
	RegulatoryFramework *string               `json:"regulatory_framework"`
	Priority            *int                  `json:"priority"`
	IsActive            *bool                 `json:"is_active"`
	Requirements        *[]RequirementRequest `json:"requirements"`
	ExpectedVersion     int                   `json:"expected_version"`

	parsed *[]models.ComplianceRequirement
}

func (r *UpdateRuleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.ExpectedVersion < 0 {
		return dErrors.New(dErrors.CodeValidation, "expected_version cannot be negative")
	}
	if r.Requirements != nil {
		reqs, err := parseRequirements(*r.Requirements)
		if err != nil {
			return err
		}
		if reqs == nil {
			reqs = []models.ComplianceRequirement{}
		}
		r.parsed = &reqs
	}
	return nil
}

func (r *UpdateRuleRequest) ToUpdate() models.UpdateRuleRequest {
	return models.UpdateRuleRequest{
		JurisdictionName:    r.JurisdictionName,
		RegulatoryFramework: r.RegulatoryFramework,
		Priority:            r.Priority,
		IsActive:            r.IsActive,
		Requirements:        r.parsed,
		ExpectedVersion:     r.ExpectedVersion,
	}
}

// AssignRequest is the body of POST /admin/tokens/{network}/{assetID}/jurisdictions.
type AssignRequest struct {
	JurisdictionCode string `json:"jurisdiction_code"`
	IsPrimary        bool   `json:"is_primary"`
	Reason           string `json:"reason"`
}

func (r *AssignRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Reason) > 512 {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 512 characters")
	}
	if strings.TrimSpace(r.JurisdictionCode) == "" {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction_code is required")
	}
	return nil
}

func parseRequirements(in []RequirementRequest) ([]models.ComplianceRequirement, error) {
	var out []models.ComplianceRequirement
	for _, q := range in {
		sev, err := models.ParseSeverity(q.Severity)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ComplianceRequirement{
			RequirementCode: q.RequirementCode,
			Category:        q.Category,
			Description:     q.Description,
			IsMandatory:     q.IsMandatory,
			Severity:        sev,
			Recommendation:  q.Recommendation,
		})
	}
	return out, nil
}
