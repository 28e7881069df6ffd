package policy

import (
	"sort"
	"strings"
)

// CheckOutcome is what a single check function reports.
type CheckOutcome struct {
	Status CheckStatus
	Detail string
}

// CheckFunc evaluates one requirement code against evidence. It must be pure.
type CheckFunc func(Evidence) CheckOutcome

// Registry maps requirement codes to check functions. It is populated at
// construction and read-only afterwards.
type Registry struct {
	checks map[string]CheckFunc
}

// NewRegistry returns a registry holding the built-in checks plus extra.
// Entries in extra override built-ins with the same code.
func NewRegistry(extra map[string]CheckFunc) *Registry {
	r := &Registry{checks: make(map[string]CheckFunc, len(builtinChecks)+len(extra))}
	for code, fn := range builtinChecks {
		r.checks[code] = fn
	}
	for code, fn := range extra {
		r.checks[strings.ToUpper(code)] = fn
	}
	return r
}

// Run evaluates code. Unknown codes are Skipped, never Pass.
func (r *Registry) Run(code string, ev Evidence) CheckOutcome {
	fn, ok := r.checks[code]
	if !ok {
		return CheckOutcome{Status: CheckSkipped, Detail: "no check registered for " + code}
	}
	return fn(ev)
}

// Codes lists registered requirement codes in sorted order.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.checks))
	for code := range r.checks {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Requirement codes with built-in checks.
const (
	CodeFATFKYC              = "FATF_KYC"
	CodeFATFAML              = "FATF_AML"
	CodeMiCAWhitepaper       = "MICA_ART_6_WHITEPAPER"
	CodeMiCAIssuerDisclosure = "MICA_ART_30_ISSUER_DISCLOSURE"
	CodeTermsAccepted        = "TERMS_ACCEPTED"
)

// Disclosure fields read by the MiCA checks.
const (
	DisclosureWhitepaperURL   = "whitepaper_url"
	DisclosureIssuerLegalName = "issuer_legal_name"
)

var builtinChecks = map[string]CheckFunc{
	CodeFATFKYC:              checkKYC,
	CodeFATFAML:              checkAML,
	CodeMiCAWhitepaper:       disclosureCheck(DisclosureWhitepaperURL),
	CodeMiCAIssuerDisclosure: disclosureCheck(DisclosureIssuerLegalName),
	CodeTermsAccepted:        checkTerms,
}

func checkKYC(ev Evidence) CheckOutcome {
	if strings.TrimSpace(ev.KYCProvider) == "" {
		return CheckOutcome{Status: CheckFail, Detail: "no KYC provider on record"}
	}
	if ev.KYCStatus != KYCVerified {
		status := string(ev.KYCStatus)
		if status == "" {
			status = "missing"
		}
		return CheckOutcome{Status: CheckFail, Detail: "KYC status is " + status + ", Verified required"}
	}
	return CheckOutcome{Status: CheckPass, Detail: "KYC verified by " + ev.KYCProvider}
}

func checkAML(ev Evidence) CheckOutcome {
	switch ev.AMLStatus {
	case AMLClear:
		return CheckOutcome{Status: CheckPass, Detail: "AML screening clear"}
	case AMLHit:
		return CheckOutcome{Status: CheckFail, Detail: "AML screening returned a hit"}
	case "":
		return CheckOutcome{Status: CheckFail, Detail: "no AML screening on record"}
	default:
		return CheckOutcome{Status: CheckFail, Detail: "AML screening is " + string(ev.AMLStatus)}
	}
}

func checkTerms(ev Evidence) CheckOutcome {
	if ev.HasAcceptedTerms() {
		return CheckOutcome{Status: CheckPass, Detail: "terms accepted"}
	}
	return CheckOutcome{Status: CheckFail, Detail: "terms not accepted"}
}

func disclosureCheck(field string) CheckFunc {
	return func(ev Evidence) CheckOutcome {
		if ev.HasDisclosure(field) {
			return CheckOutcome{Status: CheckPass, Detail: field + " disclosed"}
		}
		return CheckOutcome{Status: CheckFail, Detail: field + " disclosure missing"}
	}
}
