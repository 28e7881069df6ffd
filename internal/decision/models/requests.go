package models

import (
	"sort"
	"strings"
	"time"

	jmodels "complyledger/internal/jurisdiction/models"
	"complyledger/internal/policy"
	dErrors "complyledger/pkg/domain-errors"
)

// PolicyEvaluationResult is an evaluation the caller already ran. When set on
// a request the evaluator is not invoked.
type PolicyEvaluationResult struct {
	Outcome         Outcome          `json:"outcome"`
	Reason          string           `json:"reason"`
	RuleEvaluations []RuleEvaluation `json:"rule_evaluations"`
	RequiresReview  bool             `json:"requires_review"`
}

// CreateDecisionRequest is the input to CreateDecision and UpdateDecision.
type CreateDecisionRequest struct {
	OrganizationID     string
	Step               Step
	AssetID            string
	Network            string
	PolicyVersion      string
	EvidenceReferences []EvidenceReference
	// Evidence is an inline snapshot merged over the evidence source.
	Evidence   *policy.Evidence
	Evaluation *PolicyEvaluationResult
	// ExpirationDays and ReviewIntervalDays fall back to policy defaults when
	// nil. Zero expiration means the decision never expires.
	ExpirationDays     *int
	ReviewIntervalDays *int
	RequiresReview     bool
}

// Normalize trims identifiers in place.
func (r *CreateDecisionRequest) Normalize() {
	r.OrganizationID = strings.TrimSpace(r.OrganizationID)
	r.Step = Step(strings.ToLower(strings.TrimSpace(string(r.Step))))
	r.AssetID = strings.TrimSpace(r.AssetID)
	r.Network = strings.ToLower(strings.TrimSpace(r.Network))
	r.PolicyVersion = strings.TrimSpace(r.PolicyVersion)
	for i := range r.EvidenceReferences {
		ref := &r.EvidenceReferences[i]
		ref.EvidenceType = strings.ToUpper(strings.TrimSpace(ref.EvidenceType))
		ref.ReferenceID = strings.TrimSpace(ref.ReferenceID)
		ref.VerificationStatus = strings.TrimSpace(ref.VerificationStatus)
		ref.Provider = strings.TrimSpace(ref.Provider)
	}
}

// Validate checks the request shape. Call Normalize first.
func (r *CreateDecisionRequest) Validate() error {
	if r.OrganizationID == "" {
		return dErrors.New(dErrors.CodeInvalidRequest, "organization_id is required")
	}
	if !r.Step.IsValid() {
		return dErrors.New(dErrors.CodeInvalidRequest, "unknown step "+string(r.Step))
	}
	if (r.AssetID == "") != (r.Network == "") {
		return dErrors.New(dErrors.CodeValidation, "asset_id and network must be set together")
	}
	for _, ref := range r.EvidenceReferences {
		if ref.ReferenceID == "" {
			return dErrors.New(dErrors.CodeValidation, "evidence reference_id is required")
		}
		if ref.EvidenceType == "" {
			return dErrors.New(dErrors.CodeValidation, "evidence_type is required for "+ref.ReferenceID)
		}
	}
	if r.ExpirationDays != nil && *r.ExpirationDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "expiration_days cannot be negative")
	}
	if r.ReviewIntervalDays != nil && *r.ReviewIntervalDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "review_interval_days cannot be negative")
	}
	if r.Evaluation != nil && !r.Evaluation.Outcome.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid precomputed outcome "+string(r.Evaluation.Outcome))
	}
	return nil
}

// DecisionFilter narrows QueryDecisions. Zero values match everything except
// superseded and expired decisions, which must be asked for.
type DecisionFilter struct {
	OrganizationID    string
	Step              Step
	FromDate          *time.Time
	ToDate            *time.Time
	IncludeSuperseded bool
	IncludeExpired    bool
	Page              int
	PageSize          int
}

func (f *DecisionFilter) Normalize() {
	f.OrganizationID = strings.TrimSpace(f.OrganizationID)
	f.Step = Step(strings.ToLower(strings.TrimSpace(string(f.Step))))
	f.Page, f.PageSize = jmodels.NormalizePage(f.Page, f.PageSize)
}

func (f *DecisionFilter) Validate() error {
	if f.Step != "" && !f.Step.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown step "+string(f.Step))
	}
	if f.FromDate != nil && f.ToDate != nil && f.ToDate.Before(*f.FromDate) {
		return dErrors.New(dErrors.CodeValidation, "to_date is before from_date")
	}
	return nil
}

// Matches applies the filter to d. Date bounds are inclusive.
func (f DecisionFilter) Matches(d *ComplianceDecision, now time.Time) bool {
	if f.OrganizationID != "" && d.OrganizationID != f.OrganizationID {
		return false
	}
	if f.Step != "" && d.Step != f.Step {
		return false
	}
	if f.FromDate != nil && d.DecisionTimestamp.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && d.DecisionTimestamp.After(*f.ToDate) {
		return false
	}
	if !f.IncludeSuperseded && d.IsSuperseded {
		return false
	}
	if !f.IncludeExpired && d.IsExpiredAt(now) {
		return false
	}
	return true
}

// ReasonCount is one entry of Summary.TopRejectedReasons.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Summary aggregates a returned decision set.
type Summary struct {
	Total              int             `json:"total"`
	ByOutcome          map[Outcome]int `json:"by_outcome"`
	TopRejectedReasons []ReasonCount   `json:"top_rejected_reasons"`
}

// Summarize counts outcomes and the topN most frequent non-empty reasons
// among rejected decisions. Ties are broken alphabetically.
func Summarize(decisions []*ComplianceDecision, topN int) Summary {
	s := Summary{
		Total:              len(decisions),
		ByOutcome:          map[Outcome]int{OutcomeApproved: 0, OutcomeRejected: 0, OutcomeRequiresManualReview: 0},
		TopRejectedReasons: []ReasonCount{},
	}
	reasons := make(map[string]int)
	for _, d := range decisions {
		s.ByOutcome[d.Outcome]++
		if d.Outcome == OutcomeRejected && d.Reason != "" {
			reasons[d.Reason]++
		}
	}
	for reason, n := range reasons {
		s.TopRejectedReasons = append(s.TopRejectedReasons, ReasonCount{Reason: reason, Count: n})
	}
	sort.Slice(s.TopRejectedReasons, func(i, j int) bool {
		a, b := s.TopRejectedReasons[i], s.TopRejectedReasons[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Reason < b.Reason
	})
	if topN > 0 && len(s.TopRejectedReasons) > topN {
		s.TopRejectedReasons = s.TopRejectedReasons[:topN]
	}
	return s
}

// DecisionPage is one page of QueryDecisions plus the unpaged total.
type DecisionPage struct {
	Decisions  []*ComplianceDecision `json:"decisions"`
	TotalCount int                   `json:"total_count"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	Summary    Summary               `json:"summary"`
}

// SortDecisions orders newest first with id as the tie-break.
func SortDecisions(ds []*ComplianceDecision) {
	sort.SliceStable(ds, func(i, j int) bool {
		if !ds[i].DecisionTimestamp.Equal(ds[j].DecisionTimestamp) {
			return ds[i].DecisionTimestamp.After(ds[j].DecisionTimestamp)
		}
		return ds[i].ID.String() < ds[j].ID.String()
	})
}
