package handler

import "complyledger/internal/jurisdiction/models"

// RulePageResponse is the body of GET /admin/jurisdictions/rules.
type RulePageResponse struct {
	Rules      []*models.JurisdictionRule `json:"rules"`
	TotalCount int                        `json:"total_count"`
	Page       int                        `json:"page"`
	PageSize   int                        `json:"page_size"`
}

func FromRulePage(p *models.RulePage) *RulePageResponse {
	rules := p.Rules
	if rules == nil {
		rules = []*models.JurisdictionRule{}
	}
	return &RulePageResponse{Rules: rules, TotalCount: p.TotalCount, Page: p.Page, PageSize: p.PageSize}
}

type AssignmentsResponse struct {
	Assignments []*models.TokenJurisdictionAssignment `json:"assignments"`
}
