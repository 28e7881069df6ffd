package service

import (
	"strings"

	"complyledger/internal/decision/models"
	"complyledger/internal/policy"
)

// MapEvaluation turns an evaluator result into a decision outcome.
//
// NonCompliant is Rejected. A Compliant result with a mandatory requirement
// that could not be evaluated, or with nothing to evaluate at all, needs a
// human and is RequiresManualReview. Everything else is Approved.
func MapEvaluation(eval policy.TokenComplianceEvaluation) models.PolicyEvaluationResult {
	out := models.PolicyEvaluationResult{
		RuleEvaluations: make([]models.RuleEvaluation, 0, len(eval.CheckResults)),
	}
	for _, r := range eval.CheckResults {
		out.RuleEvaluations = append(out.RuleEvaluations, models.RuleEvaluation{
			RequirementCode:  r.RequirementCode,
			JurisdictionCode: r.JurisdictionCode,
			Status:           string(r.Status),
			Detail:           r.Detail,
		})
	}

	switch {
	case eval.ComplianceStatus == policy.NonCompliant:
		out.Outcome = models.OutcomeRejected
		out.Reason = "failed mandatory requirements: " + strings.Join(eval.FailedMandatory(), ", ")
	case len(eval.CheckResults) == 0:
		out.Outcome = models.OutcomeRequiresManualReview
		out.Reason = "no applicable requirements"
		out.RequiresReview = true
	case eval.MandatorySkipped():
		out.Outcome = models.OutcomeRequiresManualReview
		out.Reason = "mandatory requirements could not be evaluated: " + strings.Join(skippedMandatory(eval), ", ")
		out.RequiresReview = true
	default:
		out.Outcome = models.OutcomeApproved
		out.Reason = "all mandatory requirements passed"
	}
	return out
}

func skippedMandatory(eval policy.TokenComplianceEvaluation) []string {
	var codes []string
	for _, r := range eval.CheckResults {
		if r.IsMandatory && r.Status == policy.CheckSkipped {
			codes = append(codes, r.RequirementCode)
		}
	}
	return codes
}
