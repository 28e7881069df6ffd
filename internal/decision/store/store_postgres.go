package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"complyledger/internal/decision/models"
	"complyledger/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Postgres stores decisions in compliance_decisions with their references in
// decision_evidence_references. Writes serialize on transaction-scoped
// advisory locks keyed by the dedup key and by (organization, step).
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const decisionColumns = `id, organization_id, step, asset_id, network, outcome, reason, decision_maker,
	decision_timestamp, policy_version, evidence_hash, rule_evaluations, expires_at, requires_review,
	next_review_date, is_superseded, superseded_by_id, superseded_at, previous_decision_id, created_at`

func (s *Postgres) CreateOrReplay(ctx context.Context, d *models.ComplianceDecision, window time.Duration) (*models.ComplianceDecision, bool, error) {
	var (
		out    *models.ComplianceDecision
		replay bool
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := advisoryLock(ctx, tx, "dedup:"+d.DedupKey().String()); err != nil {
			return err
		}
		existing, err := findReplay(ctx, tx, d.DedupKey(), d.DecisionTimestamp, window)
		if err != nil {
			return err
		}
		if existing != nil {
			out, replay = existing, true
			return nil
		}
		if err := insertDecision(ctx, tx, d); err != nil {
			return err
		}
		out = d.Clone()
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, replay, nil
}

func (s *Postgres) Supersede(ctx context.Context, previousID uuid.UUID, d *models.ComplianceDecision, window time.Duration) (*models.ComplianceDecision, bool, error) {
	var (
		out    *models.ComplianceDecision
		replay bool
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := advisoryLock(ctx, tx, "supersede:"+d.OrganizationID+"|"+string(d.Step)); err != nil {
			return err
		}
		if err := advisoryLock(ctx, tx, "dedup:"+d.DedupKey().String()); err != nil {
			return err
		}
		existing, err := findReplay(ctx, tx, d.DedupKey(), d.DecisionTimestamp, window)
		if err != nil {
			return err
		}
		if existing != nil {
			out, replay = existing, true
			return nil
		}

		previous, err := scanOne(ctx, tx, `SELECT `+decisionColumns+` FROM compliance_decisions WHERE id = $1 FOR UPDATE`, previousID)
		if err != nil {
			return err
		}
		if previous.OrganizationID != d.OrganizationID || previous.Step != d.Step {
			return sentinel.ErrInvalidState
		}
		if previous.IsSuperseded {
			return sentinel.ErrConflict
		}

		prev := previousID
		d.PreviousDecisionID = &prev
		if err := insertDecision(ctx, tx, d); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE compliance_decisions
			SET is_superseded = true, superseded_by_id = $2, superseded_at = $3
			WHERE id = $1 AND NOT is_superseded`, previousID, d.ID, d.DecisionTimestamp)
		if err != nil {
			return fmt.Errorf("mark superseded: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return sentinel.ErrConflict
		}
		out = d.Clone()
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, replay, nil
}

// FindRecent is the lock-free form of the dedup lookup. Writers repeat it
// under the advisory lock.
func (s *Postgres) FindRecent(ctx context.Context, key models.DedupKey, asOf time.Time, window time.Duration) (*models.ComplianceDecision, error) {
	d, err := findReplay(ctx, s.pool, key, asOf, window)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, sentinel.ErrNotFound
	}
	return d, nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.ComplianceDecision, error) {
	d, err := scanOne(ctx, s.pool, `SELECT `+decisionColumns+` FROM compliance_decisions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if err := loadReferences(ctx, s.pool, []*models.ComplianceDecision{d}); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Postgres) FindActive(ctx context.Context, organizationID string, step models.Step, now time.Time) (*models.ComplianceDecision, error) {
	d, err := scanOne(ctx, s.pool, `
		SELECT `+decisionColumns+` FROM compliance_decisions
		WHERE organization_id = $1 AND step = $2 AND NOT is_superseded
		  AND (expires_at IS NULL OR expires_at > $3)
		ORDER BY decision_timestamp DESC, id ASC
		LIMIT 1`, organizationID, string(step), now)
	if err != nil {
		return nil, err
	}
	if err := loadReferences(ctx, s.pool, []*models.ComplianceDecision{d}); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Postgres) Query(ctx context.Context, filter models.DecisionFilter, now time.Time) ([]*models.ComplianceDecision, int, error) {
	where, args := filterClause(filter, now)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM compliance_decisions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count decisions: %w", err)
	}

	n := len(args)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	out, err := scanMany(ctx, s.pool, `SELECT `+decisionColumns+` FROM compliance_decisions`+where+`
		ORDER BY decision_timestamp DESC, id ASC
		LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	if err := loadReferences(ctx, s.pool, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Postgres) ListRequiringReview(ctx context.Context, asOf time.Time) ([]*models.ComplianceDecision, error) {
	out, err := scanMany(ctx, s.pool, `
		SELECT `+decisionColumns+` FROM compliance_decisions
		WHERE requires_review AND NOT is_superseded AND next_review_date <= $1
		ORDER BY decision_timestamp DESC, id ASC`, asOf)
	if err != nil {
		return nil, err
	}
	return out, loadReferences(ctx, s.pool, out)
}

func (s *Postgres) ListExpired(ctx context.Context, now time.Time) ([]*models.ComplianceDecision, error) {
	out, err := scanMany(ctx, s.pool, `
		SELECT `+decisionColumns+` FROM compliance_decisions
		WHERE expires_at < $1
		ORDER BY decision_timestamp DESC, id ASC`, now)
	if err != nil {
		return nil, err
	}
	return out, loadReferences(ctx, s.pool, out)
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func advisoryLock(ctx context.Context, tx pgx.Tx, key string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func findReplay(ctx context.Context, q querier, key models.DedupKey, asOf time.Time, window time.Duration) (*models.ComplianceDecision, error) {
	existing, err := scanOne(ctx, q, `
		SELECT `+decisionColumns+` FROM compliance_decisions
		WHERE organization_id = $1 AND step = $2 AND policy_version = $3 AND evidence_hash = $4
		  AND decision_timestamp >= $5
		ORDER BY decision_timestamp DESC, id ASC
		LIMIT 1`,
		key.OrganizationID, string(key.Step), key.PolicyVersion, key.EvidenceHash, asOf.Add(-window))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := loadReferences(ctx, q, []*models.ComplianceDecision{existing}); err != nil {
		return nil, err
	}
	return existing, nil
}

func insertDecision(ctx context.Context, tx pgx.Tx, d *models.ComplianceDecision) error {
	evals, err := json.Marshal(nonNilEvaluations(d.RuleEvaluations))
	if err != nil {
		return fmt.Errorf("encode rule evaluations: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO compliance_decisions (`+decisionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		d.ID, d.OrganizationID, string(d.Step), d.AssetID, d.Network, string(d.Outcome), d.Reason, d.DecisionMaker,
		d.DecisionTimestamp, d.PolicyVersion, d.EvidenceHash, evals, d.ExpiresAt, d.RequiresReview,
		d.NextReviewDate, d.IsSuperseded, d.SupersededByID, d.SupersededAt, d.PreviousDecisionID, d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert decision: %w", err)
	}

	if len(d.EvidenceReferences) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(d.EvidenceReferences))
	for i, r := range d.EvidenceReferences {
		rows = append(rows, []any{d.ID, i, r.EvidenceType, r.ReferenceID, r.VerificationStatus, r.Provider})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"decision_evidence_references"},
		[]string{"decision_id", "position", "evidence_type", "reference_id", "verification_status", "provider"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("insert evidence references: %w", err)
	}
	return nil
}

func filterClause(f models.DecisionFilter, now time.Time) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.OrganizationID != "" {
		add("organization_id = ?", f.OrganizationID)
	}
	if f.Step != "" {
		add("step = ?", string(f.Step))
	}
	if f.FromDate != nil {
		add("decision_timestamp >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		add("decision_timestamp <= ?", *f.ToDate)
	}
	if !f.IncludeSuperseded {
		conds = append(conds, "NOT is_superseded")
	}
	if !f.IncludeExpired {
		add("(expires_at IS NULL OR expires_at >= ?)", now)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanOne(ctx context.Context, q querier, sql string, args ...any) (*models.ComplianceDecision, error) {
	d, err := scanDecision(q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load decision: %w", err)
	}
	return d, nil
}

func scanMany(ctx context.Context, q querier, sql string, args ...any) ([]*models.ComplianceDecision, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()
	out := make([]*models.ComplianceDecision, 0)
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return out, nil
}

func scanDecision(row pgx.Row) (*models.ComplianceDecision, error) {
	var (
		d       models.ComplianceDecision
		step    string
		outcome string
		evals   []byte
	)
	err := row.Scan(&d.ID, &d.OrganizationID, &step, &d.AssetID, &d.Network, &outcome, &d.Reason, &d.DecisionMaker,
		&d.DecisionTimestamp, &d.PolicyVersion, &d.EvidenceHash, &evals, &d.ExpiresAt, &d.RequiresReview,
		&d.NextReviewDate, &d.IsSuperseded, &d.SupersededByID, &d.SupersededAt, &d.PreviousDecisionID, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.Step = models.Step(step)
	d.Outcome = models.Outcome(outcome)
	if len(evals) > 0 {
		if err := json.Unmarshal(evals, &d.RuleEvaluations); err != nil {
			return nil, fmt.Errorf("decode rule evaluations: %w", err)
		}
	}
	return &d, nil
}

func loadReferences(ctx context.Context, q querier, ds []*models.ComplianceDecision) error {
	if len(ds) == 0 {
		return nil
	}
	ids := make([]string, 0, len(ds))
	byID := make(map[uuid.UUID]*models.ComplianceDecision, len(ds))
	for _, d := range ds {
		ids = append(ids, d.ID.String())
		byID[d.ID] = d
		d.EvidenceReferences = []models.EvidenceReference{}
	}
	rows, err := q.Query(ctx, `
		SELECT decision_id, evidence_type, reference_id, verification_status, provider
		FROM decision_evidence_references
		WHERE decision_id = ANY($1::uuid[])
		ORDER BY decision_id, position`, ids)
	if err != nil {
		return fmt.Errorf("query evidence references: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  uuid.UUID
			ref models.EvidenceReference
		)
		if err := rows.Scan(&id, &ref.EvidenceType, &ref.ReferenceID, &ref.VerificationStatus, &ref.Provider); err != nil {
			return fmt.Errorf("scan evidence reference: %w", err)
		}
		if d, ok := byID[id]; ok {
			d.EvidenceReferences = append(d.EvidenceReferences, ref)
		}
	}
	return rows.Err()
}

func nonNilEvaluations(in []models.RuleEvaluation) []models.RuleEvaluation {
	if in == nil {
		return []models.RuleEvaluation{}
	}
	return in
}
