package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	jmodels "complyledger/internal/jurisdiction/models"
	dErrors "complyledger/pkg/domain-errors"
)

// Step is an onboarding stage a decision is issued for.
type Step string

const (
	StepKycKybVerification Step = "kyc_kyb_verification"
	StepAmlScreening       Step = "aml_screening"
	StepTermsAcceptance    Step = "terms_acceptance"
	StepFinalApproval      Step = "final_approval"
)

func (s Step) IsValid() bool {
	switch s {
	case StepKycKybVerification, StepAmlScreening, StepTermsAcceptance, StepFinalApproval:
		return true
	}
	return false
}

// ParseStep accepts the canonical value case-insensitively.
func ParseStep(raw string) (Step, error) {
	s := Step(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidRequest, "unknown step "+raw)
	}
	return s, nil
}

// Categories returns the requirement categories evaluated for the step.
// Final approval evaluates everything.
func (s Step) Categories() []string {
	switch s {
	case StepKycKybVerification:
		return []string{jmodels.CategoryKYC}
	case StepAmlScreening:
		return []string{jmodels.CategoryAML}
	case StepTermsAcceptance:
		return []string{jmodels.CategoryTerms, jmodels.CategoryDisclosure}
	default:
		return nil
	}
}

type Outcome string

const (
	OutcomeApproved             Outcome = "approved"
	OutcomeRejected             Outcome = "rejected"
	OutcomeRequiresManualReview Outcome = "requires_manual_review"
)

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeApproved, OutcomeRejected, OutcomeRequiresManualReview:
		return true
	}
	return false
}

// Evidence types understood when building an evaluation snapshot.
const (
	EvidenceTypeKYC   = "KYC"
	EvidenceTypeKYB   = "KYB"
	EvidenceTypeAML   = "AML"
	EvidenceTypeTerms = "TERMS"
)

// EvidenceReference points at evidence held elsewhere.
type EvidenceReference struct {
	EvidenceType       string `json:"evidence_type"`
	ReferenceID        string `json:"reference_id"`
	VerificationStatus string `json:"verification_status"`
	Provider           string `json:"provider,omitempty"`
}

func (r EvidenceReference) normalized() string {
	return strings.ToUpper(strings.TrimSpace(r.EvidenceType)) + "|" +
		strings.TrimSpace(r.ReferenceID) + "|" +
		strings.ToLower(strings.TrimSpace(r.VerificationStatus))
}

// EvidenceHash is an order-independent digest of the reference set.
// Duplicate references collapse; Provider does not participate.
func EvidenceHash(refs []EvidenceReference) string {
	keys := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		k := r.normalized()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, "\n")))
	return hex.EncodeToString(sum[:])
}

// RuleEvaluation is the persisted copy of one requirement check.
type RuleEvaluation struct {
	RequirementCode  string `json:"requirement_code"`
	JurisdictionCode string `json:"jurisdiction_code,omitempty"`
	Status           string `json:"status"`
	Detail           string `json:"detail,omitempty"`
}

// DedupKey identifies requests that replay each other inside the window.
type DedupKey struct {
	OrganizationID string
	Step           Step
	PolicyVersion  string
	EvidenceHash   string
}

func (k DedupKey) String() string {
	return k.OrganizationID + "|" + string(k.Step) + "|" + k.PolicyVersion + "|" + k.EvidenceHash
}

// ComplianceDecision is an immutable ledger record. Only the supersession
// fields change after creation, and only once.
type ComplianceDecision struct {
	ID                 uuid.UUID           `json:"id"`
	OrganizationID     string              `json:"organization_id"`
	Step               Step                `json:"step"`
	AssetID            string              `json:"asset_id,omitempty"`
	Network            string              `json:"network,omitempty"`
	Outcome            Outcome             `json:"outcome"`
	Reason             string              `json:"reason,omitempty"`
	DecisionMaker      string              `json:"decision_maker"`
	DecisionTimestamp  time.Time           `json:"decision_timestamp"`
	PolicyVersion      string              `json:"policy_version"`
	EvidenceReferences []EvidenceReference `json:"evidence_references"`
	EvidenceHash       string              `json:"evidence_hash"`
	RuleEvaluations    []RuleEvaluation    `json:"rule_evaluations"`
	ExpiresAt          *time.Time          `json:"expires_at,omitempty"`
	RequiresReview     bool                `json:"requires_review"`
	NextReviewDate     *time.Time          `json:"next_review_date,omitempty"`
	IsSuperseded       bool                `json:"is_superseded"`
	SupersededByID     *uuid.UUID          `json:"superseded_by_id,omitempty"`
	SupersededAt       *time.Time          `json:"superseded_at,omitempty"`
	PreviousDecisionID *uuid.UUID          `json:"previous_decision_id,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

func (d *ComplianceDecision) DedupKey() DedupKey {
	return DedupKey{
		OrganizationID: d.OrganizationID,
		Step:           d.Step,
		PolicyVersion:  d.PolicyVersion,
		EvidenceHash:   d.EvidenceHash,
	}
}

// IsExpiredAt reports whether ExpiresAt is set and strictly before now.
func (d *ComplianceDecision) IsExpiredAt(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
}

// IsActiveAt reports whether d can be the active decision for its
// (organization, step) at now.
func (d *ComplianceDecision) IsActiveAt(now time.Time) bool {
	return !d.IsSuperseded && (d.ExpiresAt == nil || d.ExpiresAt.After(now))
}

// IsReviewDueAt reports whether a non-superseded decision needs review.
func (d *ComplianceDecision) IsReviewDueAt(asOf time.Time) bool {
	return d.RequiresReview && !d.IsSuperseded && d.NextReviewDate != nil && !d.NextReviewDate.After(asOf)
}

// WithinWindow reports whether d was issued inside the trailing window
// ending at now.
func (d *ComplianceDecision) WithinWindow(now time.Time, window time.Duration) bool {
	return !d.DecisionTimestamp.Before(now.Add(-window))
}

// MarkSuperseded sets the supersession fields. It fails when they are
// already set.
func (d *ComplianceDecision) MarkSuperseded(by uuid.UUID, at time.Time) error {
	if d.IsSuperseded {
		return dErrors.New(dErrors.CodeConflict, "decision already superseded")
	}
	d.IsSuperseded = true
	d.SupersededByID = &by
	d.SupersededAt = &at
	return nil
}

// Clone returns a deep copy.
func (d *ComplianceDecision) Clone() *ComplianceDecision {
	if d == nil {
		return nil
	}
	c := *d
	c.EvidenceReferences = append([]EvidenceReference(nil), d.EvidenceReferences...)
	c.RuleEvaluations = append([]RuleEvaluation(nil), d.RuleEvaluations...)
	c.ExpiresAt = cloneTime(d.ExpiresAt)
	c.NextReviewDate = cloneTime(d.NextReviewDate)
	c.SupersededAt = cloneTime(d.SupersededAt)
	c.SupersededByID = cloneID(d.SupersededByID)
	c.PreviousDecisionID = cloneID(d.PreviousDecisionID)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
