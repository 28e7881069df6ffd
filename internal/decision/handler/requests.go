package handler

import (
	"strings"

	"complyledger/internal/decision/models"
	"complyledger/internal/policy"
	dErrors "complyledger/pkg/domain-errors"
)

// EvaluationRequest carries an evaluation the caller has already run.
type EvaluationRequest struct {
	Outcome         string                  `json:"outcome"`
	Reason          string                  `json:"reason"`
	RuleEvaluations []models.RuleEvaluation `json:"rule_evaluations"`
	RequiresReview  bool                    `json:"requires_review"`
}

// DecisionRequest is the body of POST /decisions and of the supersede
// endpoint. DecisionMaker defaults to the authenticated actor.
type DecisionRequest struct {
	OrganizationID     string                     `json:"organization_id"`
	Step               string                     `json:"step"`
	AssetID            string                     `json:"asset_id"`
	Network            string                     `json:"network"`
	PolicyVersion      string                     `json:"policy_version"`
	DecisionMaker      string                     `json:"decision_maker"`
	EvidenceReferences []models.EvidenceReference `json:"evidence_references"`
	Evidence           *policy.Evidence           `json:"evidence"`
	Evaluation         *EvaluationRequest         `json:"evaluation"`
	ExpirationDays     *int                       `json:"expiration_days"`
	ReviewIntervalDays *int                       `json:"review_interval_days"`
	RequiresReview     bool                       `json:"requires_review"`

	parsed models.CreateDecisionRequest
}

func (r *DecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.DecisionMaker = strings.TrimSpace(r.DecisionMaker)
	req := models.CreateDecisionRequest{
		OrganizationID:     r.OrganizationID,
		Step:               models.Step(r.Step),
		AssetID:            r.AssetID,
		Network:            r.Network,
		PolicyVersion:      r.PolicyVersion,
		EvidenceReferences: r.EvidenceReferences,
		Evidence:           r.Evidence,
		ExpirationDays:     r.ExpirationDays,
		ReviewIntervalDays: r.ReviewIntervalDays,
		RequiresReview:     r.RequiresReview,
	}
	if r.Evaluation != nil {
		req.Evaluation = &models.PolicyEvaluationResult{
			Outcome:         models.Outcome(strings.ToLower(strings.TrimSpace(r.Evaluation.Outcome))),
			Reason:          r.Evaluation.Reason,
			RuleEvaluations: r.Evaluation.RuleEvaluations,
			RequiresReview:  r.Evaluation.RequiresReview,
		}
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}
	r.parsed = req
	return nil
}

// ToCreate returns the validated service request.
func (r *DecisionRequest) ToCreate() models.CreateDecisionRequest {
	return r.parsed
}
