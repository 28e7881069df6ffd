package policy

import (
	"complyledger/internal/jurisdiction/models"
)

// CheckStatus is the result of evaluating one requirement.
type CheckStatus string

const (
	CheckPass    CheckStatus = "Pass"
	CheckFail    CheckStatus = "Fail"
	CheckSkipped CheckStatus = "Skipped"
)

// ComplianceStatus is the aggregate outcome of an evaluation.
type ComplianceStatus string

const (
	Compliant    ComplianceStatus = "Compliant"
	NonCompliant ComplianceStatus = "NonCompliant"
)

// ComplianceCheckResult is evaluation-time only; decisions persist a copy as
// RuleEvaluations.
type ComplianceCheckResult struct {
	RequirementCode  string          `json:"requirement_code"`
	JurisdictionCode string          `json:"jurisdiction_code"`
	Category         string          `json:"category"`
	IsMandatory      bool            `json:"is_mandatory"`
	Severity         models.Severity `json:"severity"`
	Status           CheckStatus     `json:"status"`
	Detail           string          `json:"detail"`
	Recommendation   string          `json:"-"`
}

// TokenComplianceEvaluation is the evaluator output.
type TokenComplianceEvaluation struct {
	AssetID                 string                  `json:"asset_id"`
	Network                 string                  `json:"network"`
	ApplicableJurisdictions []string                `json:"applicable_jurisdictions"`
	CheckResults            []ComplianceCheckResult `json:"check_results"`
	ComplianceStatus        ComplianceStatus        `json:"compliance_status"`
	Rationale               []string                `json:"rationale"`
}

// MandatorySkipped reports whether any mandatory requirement could not be
// evaluated.
func (e *TokenComplianceEvaluation) MandatorySkipped() bool {
	for _, r := range e.CheckResults {
		if r.IsMandatory && r.Status == CheckSkipped {
			return true
		}
	}
	return false
}

// FailedMandatory returns the codes of failed mandatory requirements in
// evaluation order.
func (e *TokenComplianceEvaluation) FailedMandatory() []string {
	var codes []string
	for _, r := range e.CheckResults {
		if r.IsMandatory && r.Status == CheckFail {
			codes = append(codes, r.RequirementCode)
		}
	}
	return codes
}
