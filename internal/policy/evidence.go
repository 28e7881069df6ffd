package policy

import (
	"sort"
	"strings"
)

// KYCStatus is the verification state reported by a KYC/KYB provider.
type KYCStatus string

const (
	KYCVerified KYCStatus = "Verified"
	KYCPending  KYCStatus = "Pending"
	KYCRejected KYCStatus = "Rejected"
)

// AMLStatus is the outcome of sanctions/PEP screening.
type AMLStatus string

const (
	AMLClear   AMLStatus = "Clear"
	AMLHit     AMLStatus = "Hit"
	AMLPending AMLStatus = "Pending"
)

// Evidence is the compliance metadata snapshot checks run against.
type Evidence struct {
	KYCProvider   string            `json:"kyc_provider,omitempty"`
	KYCStatus     KYCStatus         `json:"kyc_status,omitempty"`
	AMLStatus     AMLStatus         `json:"aml_status,omitempty"`
	Disclosures   map[string]string `json:"disclosures,omitempty"`
	TermsAccepted *bool             `json:"terms_accepted,omitempty"`
	// JurisdictionHints are used only when an asset has no explicit
	// assignments.
	JurisdictionHints []string `json:"jurisdiction_hints,omitempty"`
}

// Accepted returns a terms acceptance value for Evidence.TermsAccepted.
func Accepted(v bool) *bool { return &v }

// HasAcceptedTerms reports whether terms acceptance is on record. Unknown
// acceptance counts as not accepted.
func (e Evidence) HasAcceptedTerms() bool {
	return e.TermsAccepted != nil && *e.TermsAccepted
}

// Merge returns e overlaid with the set fields of over. An explicit terms
// value in over replaces e's, including a refusal. Disclosure maps are merged
// key by key; hints are replaced when over carries any.
func (e Evidence) Merge(over Evidence) Evidence {
	out := e
	if over.KYCProvider != "" {
		out.KYCProvider = over.KYCProvider
	}
	if over.KYCStatus != "" {
		out.KYCStatus = over.KYCStatus
	}
	if over.AMLStatus != "" {
		out.AMLStatus = over.AMLStatus
	}
	if over.TermsAccepted != nil {
		out.TermsAccepted = Accepted(*over.TermsAccepted)
	}
	if len(e.Disclosures) > 0 || len(over.Disclosures) > 0 {
		out.Disclosures = make(map[string]string, len(e.Disclosures)+len(over.Disclosures))
		for k, v := range e.Disclosures {
			out.Disclosures[k] = v
		}
		for k, v := range over.Disclosures {
			out.Disclosures[k] = v
		}
	}
	if len(over.JurisdictionHints) > 0 {
		out.JurisdictionHints = append([]string(nil), over.JurisdictionHints...)
	}
	return out
}

// HasDisclosure reports whether field is present with a non-blank value.
func (e Evidence) HasDisclosure(field string) bool {
	return strings.TrimSpace(e.Disclosures[field]) != ""
}

// DisclosureKeys returns the disclosure field names in sorted order.
func (e Evidence) DisclosureKeys() []string {
	keys := make([]string, 0, len(e.Disclosures))
	for k := range e.Disclosures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
