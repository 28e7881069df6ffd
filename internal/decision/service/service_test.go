package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"complyledger/internal/decision/adapters"
	dmetrics "complyledger/internal/decision/metrics"
	"complyledger/internal/decision/models"
	portmocks "complyledger/internal/decision/ports/mocks"
	"complyledger/internal/decision/service/mocks"
	"complyledger/internal/decision/store"
	jmodels "complyledger/internal/jurisdiction/models"
	jservice "complyledger/internal/jurisdiction/service"
	assignmentstore "complyledger/internal/jurisdiction/store/assignment"
	rulestore "complyledger/internal/jurisdiction/store/rule"
	platformmetrics "complyledger/internal/platform/metrics"
	"complyledger/internal/policy"
	dErrors "complyledger/pkg/domain-errors"
	audit "complyledger/pkg/platform/audit"
	"complyledger/pkg/platform/audit/publishers/compliance"
	auditmemory "complyledger/pkg/platform/audit/store/memory"
	"complyledger/pkg/platform/sentinel"
	"complyledger/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Ledger,ReplayCache

type DecisionServiceSuite struct {
	suite.Suite
	ctx           context.Context
	now           time.Time
	ledger        *store.InMemory
	jurisdictions *jservice.Service
	evidence      *adapters.StaticEvidenceSource
	recorder      *platformmetrics.Recorder
	audit         *auditmemory.InMemoryStore
	service       *Service
}

func TestDecisionServiceSuite(t *testing.T) {
	suite.Run(t, new(DecisionServiceSuite))
}

func (s *DecisionServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithRequestID(requestcontext.WithActor(context.Background(), "reviewer@example.org"), "req-1")
	s.now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	s.ledger = store.NewInMemory()
	s.recorder = platformmetrics.NewRecorder()
	s.audit = auditmemory.NewInMemoryStore()
	s.evidence = adapters.NewStaticEvidenceSource()

	clock := func() time.Time { return s.now }
	s.jurisdictions = jservice.New(rulestore.NewInMemory(), assignmentstore.NewInMemory(), jservice.WithClock(clock))
	_, err := s.jurisdictions.Seed(s.ctx, jservice.DefaultSeedRules())
	s.Require().NoError(err)

	s.service = s.newService()
}

func (s *DecisionServiceSuite) newService(opts ...Option) *Service {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(compliance.New(s.audit)),
		WithMetrics(dmetrics.New(s.recorder)),
		WithClock(func() time.Time { return s.now }),
	}
	return New(s.ledger, s.evidence, adapters.NewJurisdictionAdapter(s.jurisdictions), append(base, opts...)...)
}

func kycRequest(org string, status string, refs ...string) models.CreateDecisionRequest {
	req := models.CreateDecisionRequest{
		OrganizationID: org,
		Step:           models.StepKycKybVerification,
		PolicyVersion:  "1.0.0",
	}
	for _, r := range refs {
		req.EvidenceReferences = append(req.EvidenceReferences, models.EvidenceReference{
			EvidenceType:       models.EvidenceTypeKYC,
			ReferenceID:        r,
			VerificationStatus: status,
		})
	}
	return req
}

func (s *DecisionServiceSuite) events(action audit.AuditEvent) []audit.Event {
	events, err := s.audit.ListByAction(s.ctx, action)
	s.Require().NoError(err)
	return events
}

func (s *DecisionServiceSuite) TestCreateReplayAndWindow() {
	first, replay, err := s.service.CreateDecision(s.ctx, kycRequest("org-1", "Verified", "ref-001"), "analyst-7")
	s.Require().NoError(err)
	s.False(replay)
	s.Equal(models.OutcomeApproved, first.Outcome)
	s.Equal("analyst-7", first.DecisionMaker)
	s.Equal(s.now, first.DecisionTimestamp)
	s.Require().Len(first.RuleEvaluations, 1)
	s.Equal("FATF_KYC", first.RuleEvaluations[0].RequirementCode)
	s.Equal("GLOBAL", first.RuleEvaluations[0].JurisdictionCode)
	s.Equal(string(policy.CheckPass), first.RuleEvaluations[0].Status)
	s.Require().NotNil(first.ExpiresAt)
	s.Equal(s.now.AddDate(0, 0, 365), *first.ExpiresAt)
	s.False(first.RequiresReview)

	s.now = s.now.Add(10 * time.Millisecond)
	again, replay, err := s.service.CreateDecision(s.ctx, kycRequest("org-1", "Verified", "ref-001"), "analyst-7")
	s.Require().NoError(err)
	s.True(replay)
	s.Equal(first.ID, again.ID)

	s.now = s.now.Add(time.Hour)
	later, replay, err := s.service.CreateDecision(s.ctx, kycRequest("org-1", "Verified", "ref-001"), "analyst-7")
	s.Require().NoError(err)
	s.False(replay)
	s.NotEqual(first.ID, later.ID)
	s.Nil(later.PreviousDecisionID)

	s.Equal(2, s.recorder.Count(dmetrics.DecisionsCreated, map[string]string{"outcome": "approved", "step": "kyc_kyb_verification"}))
	s.Equal(1, s.recorder.Count(dmetrics.DecisionsReplayed, nil))
	s.Len(s.recorder.Samples(dmetrics.EvaluateDuration), 2, "replays record no latency")

	created := s.events(audit.EventDecisionCreated)
	s.Len(created, 2)
	s.Equal("org-1", created[0].OrganizationID)
	s.Equal("reviewer@example.org", created[0].ActorID)
	s.Equal("req-1", created[0].RequestID)
	s.Len(s.events(audit.EventDecisionReplayed), 1)
}

func (s *DecisionServiceSuite) TestReplayIgnoresReferenceOrder() {
	first, _, err := s.service.CreateDecision(s.ctx, kycRequest("org-1", "Verified", "ref-a", "ref-b"), "")
	s.Require().NoError(err)
	s.Equal("reviewer@example.org", first.DecisionMaker)

	again, replay, err := s.service.CreateDecision(s.ctx, kycRequest("org-1", "verified", "ref-b", "ref-a", "ref-a"), "")
	s.Require().NoError(err)
	s.True(replay)
	s.Equal(first.ID, again.ID)
}

func (s *DecisionServiceSuite) TestOutcomeMapping() {
	s.Run("rejected KYC evidence", func() {
		d, _, err := s.service.CreateDecision(s.ctx, kycRequest("org-rej", "Rejected", "ref-9"), "")
		s.Require().NoError(err)
		s.Equal(models.OutcomeRejected, d.Outcome)
		s.Equal("failed mandatory requirements: FATF_KYC", d.Reason)
	})

	s.Run("unknown mandatory requirement needs review", func() {
		_, err := s.jurisdictions.CreateRule(s.ctx, jmodels.CreateRuleRequest{
			JurisdictionCode: "SG",
			JurisdictionName: "Singapore",
			Priority:         50,
			IsActive:         true,
			Requirements: []jmodels.ComplianceRequirement{
				{RequirementCode: "MAS_TRAVEL_RULE", Category: jmodels.CategoryKYC, IsMandatory: true, Severity: jmodels.SeverityHigh},
			},
		})
		s.Require().NoError(err)
		_, err = s.jurisdictions.AssignJurisdiction(s.ctx, jmodels.AssignJurisdictionRequest{AssetID: "tok-sg", Network: "polygon", JurisdictionCode: "SG", IsPrimary: true})
		s.Require().NoError(err)

		req := kycRequest("org-sg", "Verified", "ref-1")
		req.AssetID, req.Network = "tok-sg", "polygon"
		d, _, err := s.service.CreateDecision(s.ctx, req, "")
		s.Require().NoError(err)
		s.Equal(models.OutcomeRequiresManualReview, d.Outcome)
		s.True(d.RequiresReview)
		s.Require().NotNil(d.NextReviewDate)
		s.Equal(s.now, *d.NextReviewDate)
		s.Len(d.RuleEvaluations, 2)
	})

	s.Run("nothing applicable needs review", func() {
		d, _, err := s.service.CreateDecision(s.ctx, models.CreateDecisionRequest{
			OrganizationID: "org-terms",
			Step:           models.StepTermsAcceptance,
		}, "")
		s.Require().NoError(err)
		s.Equal(models.OutcomeRequiresManualReview, d.Outcome)
		s.Equal("no applicable requirements", d.Reason)
		s.Empty(d.RuleEvaluations)
	})

	s.Run("evidence source snapshot feeds the evaluation", func() {
		_, err := s.jurisdictions.AssignJurisdiction(s.ctx, jmodels.AssignJurisdictionRequest{AssetID: "tok-eu", Network: "ethereum", JurisdictionCode: "EU", IsPrimary: true})
		s.Require().NoError(err)
		s.evidence.Put("tok-eu", "ethereum", policy.Evidence{Disclosures: map[string]string{
			policy.DisclosureWhitepaperURL:   "https://example.org/wp.pdf",
			policy.DisclosureIssuerLegalName: "Example Issuer AG",
		}})

		d, _, err := s.service.CreateDecision(s.ctx, models.CreateDecisionRequest{
			OrganizationID: "org-eu",
			Step:           models.StepTermsAcceptance,
			AssetID:        "tok-eu",
			Network:        "ethereum",
			EvidenceReferences: []models.EvidenceReference{
				{EvidenceType: "terms", ReferenceID: "tos-v3", VerificationStatus: "Accepted"},
			},
		}, "")
		s.Require().NoError(err)
		s.Equal(models.OutcomeApproved, d.Outcome)
		s.Len(d.RuleEvaluations, 3)
	})
}

func (s *DecisionServiceSuite) TestLifecycleDates() {
	never := 0
	d, _, err := s.service.CreateDecision(s.ctx, models.CreateDecisionRequest{
		OrganizationID: "org-dates",
		Step:           models.StepKycKybVerification,
		EvidenceReferences: []models.EvidenceReference{
			{EvidenceType: "KYB", ReferenceID: "kyb-1", VerificationStatus: "Verified", Provider: "acme"},
		},
		ExpirationDays: &never,
		RequiresReview: true,
	}, "")
	s.Require().NoError(err)
	s.Nil(d.ExpiresAt)
	s.True(d.RequiresReview)
	s.Require().NotNil(d.NextReviewDate)
	s.Equal(s.now.AddDate(0, 0, 90), *d.NextReviewDate)

	thirty := 30
	req := kycRequest("org-dates-2", "Verified", "ref-2")
	req.RequiresReview = true
	req.ReviewIntervalDays = &thirty
	d, _, err = s.service.CreateDecision(s.ctx, req, "")
	s.Require().NoError(err)
	s.Equal(s.now.AddDate(0, 0, 30), *d.NextReviewDate)
}

func (s *DecisionServiceSuite) TestValidation() {
	negative := -1
	cases := []struct {
		name string
		req  models.CreateDecisionRequest
		code dErrors.Code
	}{
		{"missing organization", models.CreateDecisionRequest{Step: models.StepAmlScreening}, dErrors.CodeInvalidRequest},
		{"unknown step", models.CreateDecisionRequest{OrganizationID: "org", Step: "onboarding"}, dErrors.CodeInvalidRequest},
		{"bad policy version", models.CreateDecisionRequest{OrganizationID: "org", Step: models.StepAmlScreening, PolicyVersion: "latest"}, dErrors.CodeValidation},
		{"negative expiration", models.CreateDecisionRequest{OrganizationID: "org", Step: models.StepAmlScreening, ExpirationDays: &negative}, dErrors.CodeValidation},
		{"negative review interval", models.CreateDecisionRequest{OrganizationID: "org", Step: models.StepAmlScreening, ReviewIntervalDays: &negative}, dErrors.CodeValidation},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, _, err := s.service.CreateDecision(s.ctx, tc.req, "")
			s.True(dErrors.HasCode(err, tc.code), "got %v", err)
		})
	}

	stored, _, err := s.ledger.Query(s.ctx, models.DecisionFilter{IncludeExpired: true, IncludeSuperseded: true, Page: 1, PageSize: 10}, s.now)
	s.Require().NoError(err)
	s.Empty(stored)
}

func (s *DecisionServiceSuite) TestPolicyVersionIsCanonical() {
	req := kycRequest("org-v", "Verified", "ref-1")
	req.PolicyVersion = "v1.0"
	first, _, err := s.service.CreateDecision(s.ctx, req, "")
	s.Require().NoError(err)
	s.Equal("1.0.0", first.PolicyVersion)

	again, replay, err := s.service.CreateDecision(s.ctx, kycRequest("org-v", "Verified", "ref-1"), "")
	s.Require().NoError(err)
	s.True(replay)
	s.Equal(first.ID, again.ID)
}

func (s *DecisionServiceSuite) TestUpdateChainKeepsOneActive() {
	current, _, err := s.service.CreateDecision(s.ctx, kycRequest("org-chain", "Pending", "ref-0"), "")
	s.Require().NoError(err)
	s.Equal(models.OutcomeRejected, current.Outcome)
	root := current.ID

	for i := 1; i <= 5; i++ {
		s.now = s.now.Add(time.Minute)
		next, replay, err := s.service.UpdateDecision(s.ctx, current.ID, kycRequest("org-chain", "Verified", fmt.Sprintf("ref-%d", i)), "")
		s.Require().NoError(err)
		s.False(replay)
		s.Require().NotNil(next.PreviousDecisionID)
		s.Equal(current.ID, *next.PreviousDecisionID)

		prev, err := s.service.GetDecision(s.ctx, current.ID)
		s.Require().NoError(err)
		s.True(prev.IsSuperseded)
		s.Equal(next.ID, *prev.SupersededByID)
		s.Equal(s.now, *prev.SupersededAt)
		current = next
	}

	active, err := s.service.GetActiveDecision(s.ctx, "org-chain", models.StepKycKybVerification)
	s.Require().NoError(err)
	s.Equal(current.ID, active.ID)

	page, err := s.service.QueryDecisions(s.ctx, models.DecisionFilter{OrganizationID: "org-chain"})
	s.Require().NoError(err)
	s.Equal(1, page.TotalCount)

	history, err := s.service.GetDecisionHistory(s.ctx, current.ID)
	s.Require().NoError(err)
	s.Len(history, 6)
	s.Equal(current.ID, history[0].ID)
	s.Equal(root, history[5].ID)

	s.Len(s.events(audit.EventDecisionSuperseded), 5)

	s.Run("identical retry replays", func() {
		again, replay, err := s.service.UpdateDecision(s.ctx, history[1].ID, kycRequest("org-chain", "Verified", "ref-5"), "")
		s.Require().NoError(err)
		s.True(replay)
		s.Equal(current.ID, again.ID)
	})

	s.Run("superseded predecessor conflicts", func() {
		_, _, err := s.service.UpdateDecision(s.ctx, root, kycRequest("org-chain", "Verified", "ref-new"), "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), "got %v", err)
	})

	s.Run("missing predecessor", func() {
		_, _, err := s.service.UpdateDecision(s.ctx, uuid.New(), kycRequest("org-chain", "Verified", "ref-x"), "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("other organization", func() {
		_, _, err := s.service.UpdateDecision(s.ctx, current.ID, kycRequest("org-other", "Verified", "ref-x"), "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("nil predecessor", func() {
		_, _, err := s.service.UpdateDecision(s.ctx, uuid.Nil, kycRequest("org-chain", "Verified", "ref-x"), "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *DecisionServiceSuite) TestConcurrentUpdatesHaveOneWinner() {
	root, _, err := s.service.CreateDecision(s.ctx, kycRequest("org-race", "Pending", "ref-0"), "")
	s.Require().NoError(err)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := s.service.UpdateDecision(s.ctx, root.ID, kycRequest("org-race", "Verified", fmt.Sprintf("ref-%d", i)), "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()
	s.Equal(1, wins)
	s.Equal(workers-1, conflicts)

	page, err := s.service.QueryDecisions(s.ctx, models.DecisionFilter{OrganizationID: "org-race"})
	s.Require().NoError(err)
	s.Equal(1, page.TotalCount)
}

func (s *DecisionServiceSuite) TestConcurrentIdenticalCreates() {
	const workers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = make(map[uuid.UUID]struct{})
		replays int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, replay, err := s.service.CreateDecision(s.ctx, kycRequest("org-dup", "Verified", "ref-001"), "")
			s.NoError(err)
			mu.Lock()
			defer mu.Unlock()
			if d != nil {
				ids[d.ID] = struct{}{}
			}
			if replay {
				replays++
			}
		}()
	}
	wg.Wait()
	s.Len(ids, 1)
	s.Equal(workers-1, replays)
	s.Equal(1, s.recorder.Count(dmetrics.DecisionsCreated, nil))
}

func (s *DecisionServiceSuite) TestQueryPagesAndSummary() {
	for i := 0; i < 25; i++ {
		status := "Verified"
		if i%5 == 0 {
			status = "Rejected"
		}
		s.now = s.now.Add(time.Second)
		_, _, err := s.service.CreateDecision(s.ctx, kycRequest("org-page", status, fmt.Sprintf("ref-%02d", i)), "")
		s.Require().NoError(err)
	}

	sizes := []int{10, 10, 5}
	var previous *models.ComplianceDecision
	for i, want := range sizes {
		page, err := s.service.QueryDecisions(s.ctx, models.DecisionFilter{OrganizationID: "org-page", Page: i + 1, PageSize: 10})
		s.Require().NoError(err)
		s.Equal(25, page.TotalCount)
		s.Len(page.Decisions, want)
		s.Equal(want, page.Summary.Total)
		for _, d := range page.Decisions {
			if previous != nil {
				s.False(d.DecisionTimestamp.After(previous.DecisionTimestamp))
			}
			previous = d
		}
	}

	page, err := s.service.QueryDecisions(s.ctx, models.DecisionFilter{OrganizationID: "org-page", PageSize: 100})
	s.Require().NoError(err)
	s.Equal(5, page.Summary.ByOutcome[models.OutcomeRejected])
	s.Equal(20, page.Summary.ByOutcome[models.OutcomeApproved])
	s.Require().Len(page.Summary.TopRejectedReasons, 1)
	s.Equal(models.ReasonCount{Reason: "failed mandatory requirements: FATF_KYC", Count: 5}, page.Summary.TopRejectedReasons[0])

	_, err = s.service.QueryDecisions(s.ctx, models.DecisionFilter{Step: "bogus"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *DecisionServiceSuite) TestExpirationIsIndependentOfSupersession() {
	one := 1
	req := kycRequest("org-exp", "Verified", "ref-1")
	req.ExpirationDays = &one
	first, _, err := s.service.CreateDecision(s.ctx, req, "")
	s.Require().NoError(err)

	req = kycRequest("org-exp", "Verified", "ref-2")
	req.ExpirationDays = &one
	second, _, err := s.service.UpdateDecision(s.ctx, first.ID, req, "")
	s.Require().NoError(err)

	s.now = s.now.AddDate(0, 0, 2)

	_, err = s.service.GetActiveDecision(s.ctx, "org-exp", models.StepKycKybVerification)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	expired, err := s.service.GetExpiredDecisions(s.ctx)
	s.Require().NoError(err)
	ids := []uuid.UUID{}
	for _, d := range expired {
		ids = append(ids, d.ID)
	}
	s.ElementsMatch([]uuid.UUID{first.ID, second.ID}, ids)

	page, err := s.service.QueryDecisions(s.ctx, models.DecisionFilter{OrganizationID: "org-exp"})
	s.Require().NoError(err)
	s.Zero(page.TotalCount)

	page, err = s.service.QueryDecisions(s.ctx, models.DecisionFilter{OrganizationID: "org-exp", IncludeExpired: true, IncludeSuperseded: true})
	s.Require().NoError(err)
	s.Equal(2, page.TotalCount)
}

func (s *DecisionServiceSuite) TestReviewDue() {
	seven := 7
	req := kycRequest("org-rev", "Verified", "ref-1")
	req.RequiresReview = true
	req.ReviewIntervalDays = &seven
	d, _, err := s.service.CreateDecision(s.ctx, req, "")
	s.Require().NoError(err)

	due, err := s.service.GetDecisionsRequiringReview(s.ctx, s.now.AddDate(0, 0, 6))
	s.Require().NoError(err)
	s.Empty(due)

	due, err = s.service.GetDecisionsRequiringReview(s.ctx, s.now.AddDate(0, 0, 7))
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(d.ID, due[0].ID)

	s.now = s.now.AddDate(0, 0, 8)
	due, err = s.service.GetDecisionsRequiringReview(s.ctx, time.Time{})
	s.Require().NoError(err)
	s.Len(due, 1)
}

func (s *DecisionServiceSuite) TestPrecomputedEvaluationSkipsEvaluator() {
	ctrl := gomock.NewController(s.T())
	// No expectations: any port call fails the test.
	jurisdictions := portmocks.NewMockJurisdictionPort(ctrl)
	evidence := portmocks.NewMockEvidenceSource(ctrl)
	svc := New(s.ledger, evidence, jurisdictions, WithClock(func() time.Time { return s.now }))

	d, replay, err := svc.CreateDecision(s.ctx, models.CreateDecisionRequest{
		OrganizationID: "org-pre",
		Step:           models.StepFinalApproval,
		Evaluation: &models.PolicyEvaluationResult{
			Outcome:         models.OutcomeRequiresManualReview,
			Reason:          "escalated by analyst",
			RuleEvaluations: []models.RuleEvaluation{{RequirementCode: "FATF_AML", JurisdictionCode: "GLOBAL", Status: "Skipped"}},
		},
	}, "analyst-1")
	s.Require().NoError(err)
	s.False(replay)
	s.Equal(models.OutcomeRequiresManualReview, d.Outcome)
	s.Equal("escalated by analyst", d.Reason)
	s.True(d.RequiresReview)
	s.Equal(s.now, *d.NextReviewDate)
}

func (s *DecisionServiceSuite) TestEvidenceFailureCreatesNothing() {
	ctrl := gomock.NewController(s.T())
	evidence := portmocks.NewMockEvidenceSource(ctrl)
	evidence.EXPECT().FetchEvidence(gomock.Any(), "tok-1", "ethereum").Return(nil, errors.New("provider down"))
	svc := New(s.ledger, evidence, adapters.NewJurisdictionAdapter(s.jurisdictions),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(dmetrics.New(s.recorder)),
		WithClock(func() time.Time { return s.now }),
	)

	req := kycRequest("org-fail", "Verified", "ref-1")
	req.AssetID, req.Network = "tok-1", "ethereum"
	_, _, err := svc.CreateDecision(s.ctx, req, "")
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable), "got %v", err)
	s.Empty(s.recorder.Samples(dmetrics.EvaluateDuration))

	_, total, err := s.ledger.Query(s.ctx, models.DecisionFilter{OrganizationID: "org-fail", IncludeExpired: true, IncludeSuperseded: true, Page: 1, PageSize: 10}, s.now)
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *DecisionServiceSuite) TestLedgerFailuresAreUnavailable() {
	ctrl := gomock.NewController(s.T())
	ledger := mocks.NewMockLedger(ctrl)
	svc := New(ledger, s.evidence, adapters.NewJurisdictionAdapter(s.jurisdictions),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
	)
	boom := errors.New("connection reset")

	ledger.EXPECT().FindRecent(gomock.Any(), gomock.Any(), s.now, time.Hour).Return(nil, sentinel.ErrNotFound)
	ledger.EXPECT().CreateOrReplay(gomock.Any(), gomock.Any(), time.Hour).Return(nil, false, boom)
	_, _, err := svc.CreateDecision(s.ctx, kycRequest("org-1", "Verified", "ref-1"), "")
	s.True(dErrors.HasCode(err, dErrors.CodeStoreUnavailable))

	ledger.EXPECT().FindRecent(gomock.Any(), gomock.Any(), s.now, time.Hour).Return(nil, boom)
	_, _, err = svc.CreateDecision(s.ctx, kycRequest("org-1", "Verified", "ref-1"), "")
	s.True(dErrors.HasCode(err, dErrors.CodeStoreUnavailable))

	ledger.EXPECT().Query(gomock.Any(), gomock.Any(), s.now).Return(nil, 0, boom)
	_, err = svc.QueryDecisions(s.ctx, models.DecisionFilter{})
	s.True(dErrors.HasCode(err, dErrors.CodeStoreUnavailable))
}

func (s *DecisionServiceSuite) TestReplayCache() {
	ctrl := gomock.NewController(s.T())
	cache := mocks.NewMockReplayCache(ctrl)
	svc := s.newService(WithReplayCache(cache))

	var stored uuid.UUID
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(uuid.Nil, false, nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), time.Hour).
		DoAndReturn(func(_ context.Context, key models.DedupKey, id uuid.UUID, _ time.Duration) error {
			s.Equal("org-cache", key.OrganizationID)
			stored = id
			return nil
		})
	first, _, err := svc.CreateDecision(s.ctx, kycRequest("org-cache", "Verified", "ref-1"), "")
	s.Require().NoError(err)
	s.Equal(first.ID, stored)

	cache.EXPECT().Get(gomock.Any(), first.DedupKey()).Return(first.ID, true, nil)
	again, replay, err := svc.CreateDecision(s.ctx, kycRequest("org-cache", "Verified", "ref-1"), "")
	s.Require().NoError(err)
	s.True(replay)
	s.Equal(first.ID, again.ID)
	s.Equal(1, s.recorder.Count(dmetrics.DecisionsReplayed, map[string]string{"step": "kyc_kyb_verification", "source": "cache"}))

	s.Run("cache errors fall back to the ledger", func() {
		cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(uuid.Nil, false, errors.New("redis: connection refused"))
		again, replay, err := svc.CreateDecision(s.ctx, kycRequest("org-cache", "Verified", "ref-1"), "")
		s.Require().NoError(err)
		s.True(replay)
		s.Equal(first.ID, again.ID)
		s.Equal(1, s.recorder.Count(dmetrics.CacheErrors, nil))
	})

	s.Run("stale cache entry is not trusted", func() {
		cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(uuid.New(), true, nil)
		cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), time.Hour).Return(nil)
		d, replay, err := svc.CreateDecision(s.ctx, kycRequest("org-cache-2", "Verified", "ref-1"), "")
		s.Require().NoError(err)
		s.False(replay)
		s.NotEqual(first.ID, d.ID)
	})
}
