// Package policy evaluates jurisdiction rules against compliance evidence.
// Everything here is pure: no I/O, no clock, no randomness.
package policy

import (
	"fmt"
	"sort"
	"strings"

	"complyledger/internal/jurisdiction/models"
)

// StatusPolicy decides when failed mandatory requirements make an evaluation
// NonCompliant.
type StatusPolicy struct {
	// BlockingSeverities: one mandatory failure at any of these is enough.
	BlockingSeverities []models.Severity
	// MaxNonBlockingFailures, when > 0, flips the status once this many
	// mandatory failures below blocking severity accumulate.
	MaxNonBlockingFailures int
}

// DefaultStatusPolicy blocks on mandatory Critical and High failures only.
func DefaultStatusPolicy() StatusPolicy {
	return StatusPolicy{BlockingSeverities: []models.Severity{models.SeverityCritical, models.SeverityHigh}}
}

func (p StatusPolicy) blocking(s models.Severity) bool {
	for _, b := range p.BlockingSeverities {
		if b == s {
			return true
		}
	}
	return false
}

// Status folds check results into a ComplianceStatus.
func (p StatusPolicy) Status(results []ComplianceCheckResult) ComplianceStatus {
	nonBlocking := 0
	for _, r := range results {
		if !r.IsMandatory || r.Status != CheckFail {
			continue
		}
		if p.blocking(r.Severity) {
			return NonCompliant
		}
		nonBlocking++
	}
	if p.MaxNonBlockingFailures > 0 && nonBlocking >= p.MaxNonBlockingFailures {
		return NonCompliant
	}
	return Compliant
}

// Evaluator runs registered checks over rules.
type Evaluator struct {
	registry *Registry
	status   StatusPolicy
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRegistry replaces the built-in registry.
func WithRegistry(r *Registry) Option {
	return func(e *Evaluator) {
		e.registry = r
	}
}

// WithStatusPolicy replaces the default status policy.
func WithStatusPolicy(p StatusPolicy) Option {
	return func(e *Evaluator) {
		e.status = p
	}
}

func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		registry: NewRegistry(nil),
		status:   DefaultStatusPolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TokenInput is everything EvaluateToken needs for one asset.
type TokenInput struct {
	AssetID     string
	Network     string
	Assignments []*models.TokenJurisdictionAssignment
	// Rules is the candidate rule set; inactive rules and rules outside the
	// jurisdiction list are ignored.
	Rules    []*models.JurisdictionRule
	Evidence Evidence
	// Categories restricts evaluation to requirements in these categories.
	// Empty means all.
	Categories []string
}

// EvaluateToken resolves applicable jurisdictions and rules for an asset and
// evaluates them.
func (e *Evaluator) EvaluateToken(in TokenInput) TokenComplianceEvaluation {
	jurisdictions := JurisdictionList(in.Assignments, in.Evidence.JurisdictionHints)
	rules := ApplicableRules(jurisdictions, in.Rules)

	out := e.evaluate(in.Evidence, rules, in.Categories)
	out.AssetID = in.AssetID
	out.Network = in.Network
	out.ApplicableJurisdictions = jurisdictions
	return out
}

// Evaluate runs every requirement of the given rules, in rule order then
// declared requirement order. Inactive rules are skipped.
func (e *Evaluator) Evaluate(evidence Evidence, applicableRules []*models.JurisdictionRule) TokenComplianceEvaluation {
	return e.evaluate(evidence, applicableRules, nil)
}

func (e *Evaluator) evaluate(ev Evidence, rules []*models.JurisdictionRule, categories []string) TokenComplianceEvaluation {
	allowed := categorySet(categories)
	results := make([]ComplianceCheckResult, 0)
	for _, rule := range rules {
		if rule == nil || !rule.IsActive {
			continue
		}
		for _, req := range rule.Requirements {
			if allowed != nil {
				if _, ok := allowed[strings.ToUpper(req.Category)]; !ok {
					continue
				}
			}
			outcome := e.registry.Run(req.RequirementCode, ev)
			results = append(results, ComplianceCheckResult{
				RequirementCode:  req.RequirementCode,
				JurisdictionCode: rule.JurisdictionCode,
				Category:         req.Category,
				IsMandatory:      req.IsMandatory,
				Severity:         req.Severity,
				Status:           outcome.Status,
				Detail:           outcome.Detail,
				Recommendation:   req.Recommendation,
			})
		}
	}

	status := e.status.Status(results)
	return TokenComplianceEvaluation{
		CheckResults:     results,
		ComplianceStatus: status,
		Rationale:        rationale(results, status),
	}
}

func rationale(results []ComplianceCheckResult, status ComplianceStatus) []string {
	lines := make([]string, 0)
	for _, r := range results {
		if !r.IsMandatory || r.Status != CheckFail {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s failed (%s, %s): %s", r.RequirementCode, r.JurisdictionCode, r.Severity, r.Detail))
		if status == NonCompliant {
			rec := r.Recommendation
			if rec == "" {
				rec = "provide evidence satisfying " + r.RequirementCode
			}
			lines = append(lines, "recommendation: "+rec)
		}
	}
	return lines
}

// JurisdictionList orders jurisdictions as primary, other assignments in
// assignment order, then GLOBAL. Codes are deduplicated. When there are no
// assignments, hints take their place.
func JurisdictionList(assignments []*models.TokenJurisdictionAssignment, hints []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(assignments)+1)
	add := func(code string) {
		code = models.NormalizeCode(code)
		if code == "" {
			return
		}
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}

	if len(assignments) > 0 {
		for _, a := range models.OrderAssignments(assignments) {
			add(a.JurisdictionCode)
		}
	} else {
		for _, h := range hints {
			add(h)
		}
	}
	add(models.GlobalJurisdiction)
	return out
}

// ApplicableRules keeps active rules whose code is in jurisdictions, ordered
// by Priority then JurisdictionCode.
func ApplicableRules(jurisdictions []string, rules []*models.JurisdictionRule) []*models.JurisdictionRule {
	wanted := make(map[string]struct{}, len(jurisdictions))
	for _, j := range jurisdictions {
		wanted[j] = struct{}{}
	}
	out := make([]*models.JurisdictionRule, 0, len(rules))
	for _, r := range rules {
		if r == nil || !r.IsActive {
			continue
		}
		if _, ok := wanted[r.JurisdictionCode]; ok {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		if out[i].JurisdictionCode != out[j].JurisdictionCode {
			return out[i].JurisdictionCode < out[j].JurisdictionCode
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func categorySet(categories []string) map[string]struct{} {
	if len(categories) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[strings.ToUpper(c)] = struct{}{}
	}
	return set
}

// ParseSeverities converts config strings into a blocking severity list.
func ParseSeverities(raw []string) ([]models.Severity, error) {
	out := make([]models.Severity, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		s, err := models.ParseSeverity(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
