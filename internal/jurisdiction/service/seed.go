package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"complyledger/internal/jurisdiction/models"
	dErrors "complyledger/pkg/domain-errors"
	audit "complyledger/pkg/platform/audit"
	"complyledger/pkg/platform/sentinel"
)

// DefaultSeedRules is the GLOBAL baseline plus the illustrative EU/MiCA rule.
func DefaultSeedRules() []models.CreateRuleRequest {
	return []models.CreateRuleRequest{
		{
			JurisdictionCode:    models.GlobalJurisdiction,
			JurisdictionName:    "Global baseline",
			RegulatoryFramework: "FATF",
			Priority:            1000,
			IsActive:            true,
			IsImmutable:         true,
			Requirements: []models.ComplianceRequirement{
				{
					RequirementCode: "FATF_KYC",
					Category:        models.CategoryKYC,
					Description:     "Customer identity verified by a KYC/KYB provider",
					IsMandatory:     true,
					Severity:        models.SeverityCritical,
					Recommendation:  "complete KYC/KYB verification with an approved provider",
				},
				{
					RequirementCode: "FATF_AML",
					Category:        models.CategoryAML,
					Description:     "Sanctions and PEP screening returned no hit",
					IsMandatory:     true,
					Severity:        models.SeverityHigh,
					Recommendation:  "resolve the AML screening hit or rerun screening",
				},
			},
		},
		{
			JurisdictionCode:    "EU",
			JurisdictionName:    "European Union",
			RegulatoryFramework: "MiCA",
			Priority:            100,
			IsActive:            true,
			Requirements: []models.ComplianceRequirement{
				{
					RequirementCode: "MICA_ART_6_WHITEPAPER",
					Category:        models.CategoryDisclosure,
					Description:     "Crypto-asset white paper published",
					IsMandatory:     true,
					Severity:        models.SeverityHigh,
					Recommendation:  "publish the white paper and record whitepaper_url",
				},
				{
					RequirementCode: "MICA_ART_30_ISSUER_DISCLOSURE",
					Category:        models.CategoryDisclosure,
					Description:     "Issuer legal name disclosed",
					IsMandatory:     true,
					Severity:        models.SeverityMedium,
					Recommendation:  "disclose issuer_legal_name",
				},
				{
					RequirementCode: "TERMS_ACCEPTED",
					Category:        models.CategoryTerms,
					Description:     "Holder terms accepted",
					IsMandatory:     false,
					Severity:        models.SeverityLow,
				},
			},
		},
	}
}

// SeedResult lists which jurisdiction codes were written and which already
// existed.
type SeedResult struct {
	Created []string
	Skipped []string
}

// Seed writes rules through CreateRule, skipping codes that already exist in
// any state. Running it twice creates nothing the second time.
func (s *Service) Seed(ctx context.Context, rules []models.CreateRuleRequest) (*SeedResult, error) {
	result := &SeedResult{}
	for _, req := range rules {
		code := models.NormalizeCode(req.JurisdictionCode)
		_, err := s.rules.FindByCode(ctx, code)
		if err == nil {
			result.Skipped = append(result.Skipped, code)
			continue
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return result, wrapRuleErr(err, "check seed rule")
		}

		if _, err := s.CreateRule(ctx, req); err != nil {
			if dErrors.HasCode(err, dErrors.CodeDuplicateJurisdiction) {
				result.Skipped = append(result.Skipped, code)
				continue
			}
			return result, fmt.Errorf("seed %s: %w", code, err)
		}
		result.Created = append(result.Created, code)
	}

	s.logger.InfoContext(ctx, "jurisdiction rules seeded",
		"created", len(result.Created),
		"skipped", len(result.Skipped),
	)
	s.metrics.AddSeeded(len(result.Created))
	if len(result.Created) > 0 {
		s.emit(ctx, audit.EventRulesSeeded, "seed", map[string]string{"created": fmt.Sprint(result.Created)})
	}
	return result, nil
}

type seedFile struct {
	Rules []seedRule `yaml:"rules"`
}

type seedRule struct {
	JurisdictionCode    string            `yaml:"jurisdiction_code"`
	JurisdictionName    string            `yaml:"jurisdiction_name"`
	RegulatoryFramework string            `yaml:"regulatory_framework"`
	Priority            int               `yaml:"priority"`
	Active              *bool             `yaml:"active"`
	Requirements        []seedRequirement `yaml:"requirements"`
}

type seedRequirement struct {
	Code           string `yaml:"code"`
	Category       string `yaml:"category"`
	Description    string `yaml:"description"`
	Mandatory      bool   `yaml:"mandatory"`
	Severity       string `yaml:"severity"`
	Recommendation string `yaml:"recommendation"`
}

// ParseSeedRules decodes a YAML seed document. Unknown keys are rejected and
// rules default to active.
func ParseSeedRules(r io.Reader) ([]models.CreateRuleRequest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc seedFile
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid seed file")
	}

	out := make([]models.CreateRuleRequest, 0, len(doc.Rules))
	for i, sr := range doc.Rules {
		active := true
		if sr.Active != nil {
			active = *sr.Active
		}
		req := models.CreateRuleRequest{
			JurisdictionCode:    sr.JurisdictionCode,
			JurisdictionName:    sr.JurisdictionName,
			RegulatoryFramework: sr.RegulatoryFramework,
			Priority:            sr.Priority,
			IsActive:            active,
		}
		for _, q := range sr.Requirements {
			sev, err := models.ParseSeverity(q.Severity)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("seed rule %d (%s)", i, sr.JurisdictionCode))
			}
			req.Requirements = append(req.Requirements, models.ComplianceRequirement{
				RequirementCode: q.Code,
				Category:        q.Category,
				Description:     q.Description,
				IsMandatory:     q.Mandatory,
				Severity:        sev,
				Recommendation:  q.Recommendation,
			})
		}
		out = append(out, req)
	}
	return out, nil
}

// LoadSeedFile reads ParseSeedRules input from path.
func LoadSeedFile(path string) ([]models.CreateRuleRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return ParseSeedRules(f)
}
