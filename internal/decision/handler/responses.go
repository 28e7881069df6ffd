package handler

import "complyledger/internal/decision/models"

// DecisionResponse wraps a recorded decision. IsReplay is true when the
// ledger returned an existing decision instead of creating one.
type DecisionResponse struct {
	*models.ComplianceDecision
	IsReplay bool `json:"is_replay"`
}

type DecisionListResponse struct {
	Decisions []*models.ComplianceDecision `json:"decisions"`
	Count     int                          `json:"count"`
}

func FromList(ds []*models.ComplianceDecision) *DecisionListResponse {
	if ds == nil {
		ds = []*models.ComplianceDecision{}
	}
	return &DecisionListResponse{Decisions: ds, Count: len(ds)}
}

func FromPage(p *models.DecisionPage) *models.DecisionPage {
	if p.Decisions == nil {
		p.Decisions = []*models.ComplianceDecision{}
	}
	if p.Summary.TopRejectedReasons == nil {
		p.Summary.TopRejectedReasons = []models.ReasonCount{}
	}
	return p
}
