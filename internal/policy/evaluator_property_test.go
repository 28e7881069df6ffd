package policy

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"complyledger/internal/jurisdiction/models"
)

var propertyRules = []*models.JurisdictionRule{
	{
		JurisdictionCode: "EU",
		IsActive:         true,
		Priority:         10,
		Requirements: []models.ComplianceRequirement{
			{RequirementCode: CodeMiCAWhitepaper, IsMandatory: true, Severity: models.SeverityHigh},
			{RequirementCode: CodeMiCAIssuerDisclosure, IsMandatory: true, Severity: models.SeverityMedium},
			{RequirementCode: "UNREGISTERED", IsMandatory: true, Severity: models.SeverityLow},
		},
	},
	{
		JurisdictionCode: models.GlobalJurisdiction,
		IsActive:         true,
		Priority:         100,
		Requirements: []models.ComplianceRequirement{
			{RequirementCode: CodeFATFKYC, IsMandatory: true, Severity: models.SeverityCritical},
			{RequirementCode: CodeFATFAML, IsMandatory: true, Severity: models.SeverityHigh},
			{RequirementCode: CodeTermsAccepted, IsMandatory: false, Severity: models.SeverityLow},
		},
	},
}

// Property: Evaluate(ev, rules) is identical across repeated calls.
func TestEvaluateDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	evaluator := NewEvaluator()

	properties.Property("repeated evaluation yields identical results", prop.ForAll(
		func(provider string, kyc string, aml string, terms bool, whitepaper string) bool {
			ev := Evidence{
				KYCProvider:   provider,
				KYCStatus:     KYCStatus(kyc),
				AMLStatus:     AMLStatus(aml),
				TermsAccepted: Accepted(terms),
				Disclosures:   map[string]string{DisclosureWhitepaperURL: whitepaper},
			}
			first := evaluator.Evaluate(ev, propertyRules)
			for i := 0; i < 5; i++ {
				next := evaluator.Evaluate(ev, propertyRules)
				if !reflect.DeepEqual(first, next) {
					return false
				}
			}
			return len(first.CheckResults) == 6
		},
		gen.AlphaString(),
		gen.OneConstOf("Verified", "Pending", "Rejected", ""),
		gen.OneConstOf("Clear", "Hit", "Pending", ""),
		gen.Bool(),
		gen.AlphaString(),
	))

	properties.Property("unknown codes are never Pass", prop.ForAll(
		func(provider string, terms bool) bool {
			out := evaluator.Evaluate(Evidence{KYCProvider: provider, TermsAccepted: Accepted(terms)}, propertyRules)
			for _, r := range out.CheckResults {
				if r.RequirementCode == "UNREGISTERED" && r.Status != CheckSkipped {
					return false
				}
			}
			return true
		},
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
