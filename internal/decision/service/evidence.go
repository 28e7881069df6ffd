package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	dmetrics "complyledger/internal/decision/metrics"
	"complyledger/internal/decision/models"
	jmodels "complyledger/internal/jurisdiction/models"
	"complyledger/internal/policy"
	dErrors "complyledger/pkg/domain-errors"
)

// gathered is everything one evaluation reads.
type gathered struct {
	evidence    policy.Evidence
	assignments []*jmodels.TokenJurisdictionAssignment
	rules       []*jmodels.JurisdictionRule
}

// gatherEvidence fetches the evidence snapshot, assignments and active rules
// in parallel with shared cancellation, then layers the request's own
// evidence over the snapshot.
func (s *Service) gatherEvidence(ctx context.Context, req *models.CreateDecisionRequest) (*gathered, error) {
	ctx, cancel := context.WithTimeout(ctx, evidenceTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	var (
		snapshot *policy.Evidence
		out      gathered
	)

	if s.evidence != nil {
		g.Go(func() error {
			start := time.Now()
			ev, err := s.evidence.FetchEvidence(ctx, req.AssetID, req.Network)
			s.metrics.ObserveEvidenceLatency(dmetrics.SourceEvidence, time.Since(start))
			if err != nil {
				return portErr(err, "fetch evidence")
			}
			snapshot = ev
			return nil
		})
	}

	g.Go(func() error {
		start := time.Now()
		assignments, err := s.jurisdictions.GetAssignments(ctx, req.AssetID, req.Network)
		s.metrics.ObserveEvidenceLatency(dmetrics.SourceAssignments, time.Since(start))
		if err != nil {
			return portErr(err, "load jurisdiction assignments")
		}
		out.assignments = assignments
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		rules, err := s.jurisdictions.ListActiveRules(ctx)
		s.metrics.ObserveEvidenceLatency(dmetrics.SourceActiveRules, time.Since(start))
		if err != nil {
			return portErr(err, "load active rules")
		}
		out.rules = rules
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if snapshot != nil {
		out.evidence = out.evidence.Merge(*snapshot)
	}
	if req.Evidence != nil {
		out.evidence = out.evidence.Merge(*req.Evidence)
	}
	out.evidence = out.evidence.Merge(evidenceFromReferences(req.EvidenceReferences))
	return &out, nil
}

func portErr(err error, action string) error {
	if _, ok := dErrors.From(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "timed out trying to "+action)
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to "+action)
}

// Status ranks; the most severe reference of a type wins.
const (
	rankPass = iota
	rankPending
	rankFail
)

func kycRank(status string) int {
	switch strings.ToLower(status) {
	case "verified", "approved":
		return rankPass
	case "rejected", "failed", "denied":
		return rankFail
	default:
		return rankPending
	}
}

func amlRank(status string) int {
	switch strings.ToLower(status) {
	case "clear", "verified", "passed":
		return rankPass
	case "hit", "match", "rejected", "failed":
		return rankFail
	default:
		return rankPending
	}
}

var (
	kycByRank = [...]policy.KYCStatus{policy.KYCVerified, policy.KYCPending, policy.KYCRejected}
	amlByRank = [...]policy.AMLStatus{policy.AMLClear, policy.AMLPending, policy.AMLHit}
)

// evidenceFromReferences projects references onto an evidence snapshot.
// KYC and KYB references set the KYC fields, AML references the screening
// status, and TERMS references acceptance. A KYC reference without a provider
// is attributed to "<type>:<reference id>".
func evidenceFromReferences(refs []models.EvidenceReference) policy.Evidence {
	sorted := append([]models.EvidenceReference(nil), refs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].EvidenceType != sorted[j].EvidenceType {
			return sorted[i].EvidenceType < sorted[j].EvidenceType
		}
		return sorted[i].ReferenceID < sorted[j].ReferenceID
	})

	var ev policy.Evidence
	kyc, aml := -1, -1
	termsSeen, termsDeny := false, false
	for _, ref := range sorted {
		switch strings.ToUpper(ref.EvidenceType) {
		case models.EvidenceTypeKYC, models.EvidenceTypeKYB:
			if ev.KYCProvider == "" {
				ev.KYCProvider = ref.Provider
				if ev.KYCProvider == "" {
					ev.KYCProvider = strings.ToUpper(ref.EvidenceType) + ":" + ref.ReferenceID
				}
			}
			kyc = max(kyc, kycRank(ref.VerificationStatus))
		case models.EvidenceTypeAML:
			aml = max(aml, amlRank(ref.VerificationStatus))
		case models.EvidenceTypeTerms:
			termsSeen = true
			switch strings.ToLower(ref.VerificationStatus) {
			case "accepted", "verified":
			default:
				termsDeny = true
			}
		}
	}
	if kyc >= 0 {
		ev.KYCStatus = kycByRank[kyc]
	}
	if aml >= 0 {
		ev.AMLStatus = amlByRank[aml]
	}
	if termsSeen {
		ev.TermsAccepted = policy.Accepted(!termsDeny)
	}
	return ev
}
