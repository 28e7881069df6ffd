package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"complyledger/internal/decision/models"
	jmodels "complyledger/internal/jurisdiction/models"
	"complyledger/internal/policy"
)

func TestEvidenceFromReferences(t *testing.T) {
	ref := func(typ, id, status, provider string) models.EvidenceReference {
		return models.EvidenceReference{EvidenceType: typ, ReferenceID: id, VerificationStatus: status, Provider: provider}
	}

	tests := []struct {
		name string
		refs []models.EvidenceReference
		want policy.Evidence
	}{
		{
			name: "no references",
			want: policy.Evidence{},
		},
		{
			name: "verified KYC without provider",
			refs: []models.EvidenceReference{ref("KYC", "ref-001", "Verified", "")},
			want: policy.Evidence{KYCProvider: "KYC:ref-001", KYCStatus: policy.KYCVerified},
		},
		{
			name: "most severe KYC status wins",
			refs: []models.EvidenceReference{
				ref("KYB", "b-1", "verified", "acme"),
				ref("KYC", "c-1", "rejected", "other"),
			},
			want: policy.Evidence{KYCProvider: "acme", KYCStatus: policy.KYCRejected},
		},
		{
			name: "unknown status is pending",
			refs: []models.EvidenceReference{ref("KYC", "c-1", "in_progress", "acme")},
			want: policy.Evidence{KYCProvider: "acme", KYCStatus: policy.KYCPending},
		},
		{
			name: "AML hit",
			refs: []models.EvidenceReference{
				ref("AML", "a-1", "Clear", ""),
				ref("AML", "a-2", "Hit", ""),
			},
			want: policy.Evidence{AMLStatus: policy.AMLHit},
		},
		{
			name: "terms need every reference accepted",
			refs: []models.EvidenceReference{
				ref("TERMS", "t-1", "Accepted", ""),
				ref("TERMS", "t-2", "Declined", ""),
			},
			want: policy.Evidence{TermsAccepted: policy.Accepted(false)},
		},
		{
			name: "accepted terms",
			refs: []models.EvidenceReference{ref("TERMS", "t-1", "accepted", "")},
			want: policy.Evidence{TermsAccepted: policy.Accepted(true)},
		},
		{
			name: "unknown types are ignored",
			refs: []models.EvidenceReference{ref("SELFIE", "s-1", "Verified", "")},
			want: policy.Evidence{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evidenceFromReferences(tt.refs))
		})
	}
}

func TestRejectedTermsReferenceOverridesSnapshot(t *testing.T) {
	snapshot := policy.Evidence{KYCStatus: policy.KYCVerified, TermsAccepted: policy.Accepted(true)}
	refs := []models.EvidenceReference{
		{EvidenceType: "TERMS", ReferenceID: "t-1", VerificationStatus: "rejected"},
		{EvidenceType: "KYC", ReferenceID: "k-1", VerificationStatus: "rejected", Provider: "acme"},
	}

	merged := snapshot.Merge(evidenceFromReferences(refs))
	assert.False(t, merged.HasAcceptedTerms())
	assert.Equal(t, policy.KYCRejected, merged.KYCStatus)

	untouched := snapshot.Merge(evidenceFromReferences(refs[1:]))
	assert.True(t, untouched.HasAcceptedTerms(), "no TERMS reference leaves the snapshot value")
}

func TestEvidenceFromReferencesIsOrderIndependent(t *testing.T) {
	a := []models.EvidenceReference{
		{EvidenceType: "KYC", ReferenceID: "z", VerificationStatus: "Verified", Provider: "zeta"},
		{EvidenceType: "KYC", ReferenceID: "a", VerificationStatus: "Verified", Provider: "alpha"},
	}
	b := []models.EvidenceReference{a[1], a[0]}
	assert.Equal(t, evidenceFromReferences(a), evidenceFromReferences(b))
	assert.Equal(t, "alpha", evidenceFromReferences(a).KYCProvider)
}

func TestMapEvaluation(t *testing.T) {
	result := func(code string, mandatory bool, status policy.CheckStatus) policy.ComplianceCheckResult {
		return policy.ComplianceCheckResult{
			RequirementCode:  code,
			JurisdictionCode: "GLOBAL",
			IsMandatory:      mandatory,
			Severity:         jmodels.SeverityHigh,
			Status:           status,
		}
	}

	tests := []struct {
		name   string
		eval   policy.TokenComplianceEvaluation
		want   models.Outcome
		reason string
		review bool
	}{
		{
			name: "non compliant",
			eval: policy.TokenComplianceEvaluation{
				ComplianceStatus: policy.NonCompliant,
				CheckResults:     []policy.ComplianceCheckResult{result("FATF_KYC", true, policy.CheckFail), result("FATF_AML", true, policy.CheckFail)},
			},
			want:   models.OutcomeRejected,
			reason: "failed mandatory requirements: FATF_KYC, FATF_AML",
		},
		{
			name:   "nothing evaluated",
			eval:   policy.TokenComplianceEvaluation{ComplianceStatus: policy.Compliant},
			want:   models.OutcomeRequiresManualReview,
			reason: "no applicable requirements",
			review: true,
		},
		{
			name: "mandatory skipped",
			eval: policy.TokenComplianceEvaluation{
				ComplianceStatus: policy.Compliant,
				CheckResults:     []policy.ComplianceCheckResult{result("FATF_KYC", true, policy.CheckPass), result("CUSTOM", true, policy.CheckSkipped)},
			},
			want:   models.OutcomeRequiresManualReview,
			reason: "mandatory requirements could not be evaluated: CUSTOM",
			review: true,
		},
		{
			name: "optional skipped is still approved",
			eval: policy.TokenComplianceEvaluation{
				ComplianceStatus: policy.Compliant,
				CheckResults:     []policy.ComplianceCheckResult{result("FATF_KYC", true, policy.CheckPass), result("CUSTOM", false, policy.CheckSkipped)},
			},
			want:   models.OutcomeApproved,
			reason: "all mandatory requirements passed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapEvaluation(tt.eval)
			assert.Equal(t, tt.want, got.Outcome)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, tt.review, got.RequiresReview)
			assert.Len(t, got.RuleEvaluations, len(tt.eval.CheckResults))
		})
	}
}
