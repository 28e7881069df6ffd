//go:build integration

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"complyledger/internal/decision/models"
	"complyledger/pkg/platform/sentinel"
	"complyledger/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *Postgres
	now   time.Time
}

func TestPostgresLedgerSuite(t *testing.T) {
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.Pool)
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx, "decision_evidence_references", "compliance_decisions"))
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
}

func (s *PostgresLedgerSuite) decision(org string, refs ...string) *models.ComplianceDecision {
	evidence := make([]models.EvidenceReference, 0, len(refs))
	for _, r := range refs {
		evidence = append(evidence, models.EvidenceReference{EvidenceType: "KYC", ReferenceID: r, VerificationStatus: "Verified", Provider: "acme"})
	}
	return &models.ComplianceDecision{
		ID:                 uuid.New(),
		OrganizationID:     org,
		Step:               models.StepKycKybVerification,
		Outcome:            models.OutcomeApproved,
		Reason:             "all applicable requirements passed",
		DecisionMaker:      "system",
		DecisionTimestamp:  s.now,
		PolicyVersion:      "1.0.0",
		EvidenceReferences: evidence,
		EvidenceHash:       models.EvidenceHash(evidence),
		RuleEvaluations:    []models.RuleEvaluation{{RequirementCode: "FATF_KYC", JurisdictionCode: "GLOBAL", Status: "Pass"}},
		CreatedAt:          s.now,
	}
}

func (s *PostgresLedgerSuite) TestRoundTrip() {
	d := s.decision("org-1", "ref-001", "ref-002")
	expires := s.now.Add(24 * time.Hour)
	d.ExpiresAt = &expires

	_, replay, err := s.store.CreateOrReplay(s.ctx, d, time.Hour)
	s.Require().NoError(err)
	s.False(replay)

	got, err := s.store.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.OrganizationID, got.OrganizationID)
	s.Equal(d.EvidenceHash, got.EvidenceHash)
	s.Equal(d.EvidenceReferences, got.EvidenceReferences)
	s.Equal(d.RuleEvaluations, got.RuleEvaluations)
	s.Require().NotNil(got.ExpiresAt)
	s.True(expires.Equal(*got.ExpiresAt))
	s.Nil(got.PreviousDecisionID)

	_, err = s.store.FindByID(s.ctx, uuid.New())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresLedgerSuite) TestConcurrentIdenticalCreates() {
	const workers = 20
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[uuid.UUID]int)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _, err := s.store.CreateOrReplay(s.ctx, s.decision("org-2", "ref-x"), time.Hour)
			s.NoError(err)
			if d != nil {
				mu.Lock()
				ids[d.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Len(ids, 1)

	var rows int
	s.Require().NoError(s.pg.Pool.QueryRow(s.ctx, `SELECT COUNT(*) FROM compliance_decisions WHERE organization_id = 'org-2'`).Scan(&rows))
	s.Equal(1, rows)
}

func (s *PostgresLedgerSuite) TestSupersedeChain() {
	prev := s.decision("org-3", "ref-0")
	_, _, err := s.store.CreateOrReplay(s.ctx, prev, time.Hour)
	s.Require().NoError(err)

	for i := 1; i <= 5; i++ {
		next := s.decision("org-3", fmt.Sprintf("ref-%d", i))
		next.DecisionTimestamp = s.now.Add(time.Duration(i) * time.Minute)
		got, replay, err := s.store.Supersede(s.ctx, prev.ID, next, time.Hour)
		s.Require().NoError(err)
		s.False(replay)
		s.Equal(prev.ID, *got.PreviousDecisionID)
		prev = got
	}

	active, total, err := s.store.Query(s.ctx, models.DecisionFilter{OrganizationID: "org-3", Page: 1, PageSize: 10}, s.now)
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(prev.ID, active[0].ID)

	_, total, err = s.store.Query(s.ctx, models.DecisionFilter{OrganizationID: "org-3", IncludeSuperseded: true, Page: 1, PageSize: 10}, s.now)
	s.Require().NoError(err)
	s.Equal(6, total)

	found, err := s.store.FindActive(s.ctx, "org-3", models.StepKycKybVerification, s.now)
	s.Require().NoError(err)
	s.Equal(prev.ID, found.ID)
}

func (s *PostgresLedgerSuite) TestConcurrentSupersedeHasOneWinner() {
	root := s.decision("org-4", "root")
	_, _, err := s.store.CreateOrReplay(s.ctx, root, time.Hour)
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
			_, _, err := s.store.Supersede(s.ctx, root.ID, s.decision("org-4", fmt.Sprintf("r-%d", i)), time.Hour)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflicts++
			}
		}(i)
	}
	wg.Wait()
	s.Equal(1, wins)
	s.Equal(workers-1, conflicts)
}

func (s *PostgresLedgerSuite) TestReviewAndExpiry() {
	past := s.now.Add(-time.Hour)
	d := s.decision("org-5", "ref-r")
	d.RequiresReview = true
	d.NextReviewDate = &past
	d.ExpiresAt = &past
	_, _, err := s.store.CreateOrReplay(s.ctx, d, time.Hour)
	s.Require().NoError(err)

	due, err := s.store.ListRequiringReview(s.ctx, s.now)
	s.Require().NoError(err)
	s.Len(due, 1)

	expired, err := s.store.ListExpired(s.ctx, s.now)
	s.Require().NoError(err)
	s.Len(expired, 1)

	_, err = s.store.FindActive(s.ctx, "org-5", models.StepKycKybVerification, s.now)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
