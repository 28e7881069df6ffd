package rule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"complyledger/internal/jurisdiction/models"
	"complyledger/pkg/platform/sentinel"
	txcontext "complyledger/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists rules in jurisdiction_rules with requirements in
// jurisdiction_requirements. A partial unique index on active codes backs the
// duplicate check.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const ruleColumns = `id, jurisdiction_code, jurisdiction_name, regulatory_framework, is_active,
	is_immutable, priority, version, created_by, updated_by, created_at, updated_at`

func (s *PostgresStore) CreateIfCodeAvailable(ctx context.Context, rule *models.JurisdictionRule) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO jurisdiction_rules (`+ruleColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, rule.ID, rule.JurisdictionCode, rule.JurisdictionName, rule.RegulatoryFramework, rule.IsActive,
			rule.IsImmutable, rule.Priority, rule.Version, rule.CreatedBy, rule.UpdatedBy, rule.CreatedAt, rule.UpdatedAt)
		if err != nil {
			return translateWriteErr("insert rule", err)
		}
		return insertRequirements(ctx, tx, rule.ID, rule.Requirements)
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.JurisdictionRule, error) {
	return s.findOne(ctx, txcontext.ExecutorFrom(ctx, s.db), `SELECT `+ruleColumns+` FROM jurisdiction_rules WHERE id = $1`, id)
}

func (s *PostgresStore) FindActiveByCode(ctx context.Context, code string) (*models.JurisdictionRule, error) {
	return s.findOne(ctx, txcontext.ExecutorFrom(ctx, s.db),
		`SELECT `+ruleColumns+` FROM jurisdiction_rules WHERE jurisdiction_code = $1 AND is_active`, code)
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.JurisdictionRule, error) {
	return s.findOne(ctx, txcontext.ExecutorFrom(ctx, s.db), `
		SELECT `+ruleColumns+` FROM jurisdiction_rules
		WHERE jurisdiction_code = $1
		ORDER BY is_active DESC, created_at ASC
		LIMIT 1`, code)
}

func (s *PostgresStore) Execute(
	ctx context.Context,
	id uuid.UUID,
	validate func(*models.JurisdictionRule) error,
	mutate func(*models.JurisdictionRule),
) (*models.JurisdictionRule, error) {
	var result *models.JurisdictionRule
	err := txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		current, err := s.findOne(ctx, tx, `SELECT `+ruleColumns+` FROM jurisdiction_rules WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if err := validate(current.Clone()); err != nil {
			return err
		}
		next := current.Clone()
		mutate(next)

		_, err = tx.ExecContext(ctx, `
			UPDATE jurisdiction_rules
			SET jurisdiction_name = $2, regulatory_framework = $3, is_active = $4, priority = $5,
			    version = $6, updated_by = $7, updated_at = $8
			WHERE id = $1
		`, next.ID, next.JurisdictionName, next.RegulatoryFramework, next.IsActive, next.Priority,
			next.Version, next.UpdatedBy, next.UpdatedAt)
		if err != nil {
			return translateWriteErr("update rule", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM jurisdiction_requirements WHERE rule_id = $1`, next.ID); err != nil {
			return fmt.Errorf("clear requirements: %w", err)
		}
		if err := insertRequirements(ctx, tx, next.ID, next.Requirements); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID, validate func(*models.JurisdictionRule) error) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		current, err := s.findOne(ctx, tx, `SELECT `+ruleColumns+` FROM jurisdiction_rules WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if err := validate(current); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM jurisdiction_rules WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete rule: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListRulesFilter) ([]*models.JurisdictionRule, int, error) {
	where := `WHERE ($1 = '' OR jurisdiction_code = $1)
		AND ($2 = '' OR regulatory_framework = $2)
		AND (NOT $3 OR is_active)`
	args := []any{filter.JurisdictionCode, filter.RegulatoryFramework, filter.ActiveOnly}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jurisdiction_rules `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count rules: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+` FROM jurisdiction_rules `+where+`
		ORDER BY priority ASC, jurisdiction_code ASC, id ASC
		LIMIT $4 OFFSET $5`,
		append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list rules: %w", err)
	}
	rules, err := scanRules(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := s.loadRequirements(ctx, s.db, rules); err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.JurisdictionRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+` FROM jurisdiction_rules
		WHERE is_active
		ORDER BY priority ASC, jurisdiction_code ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	rules, err := scanRules(rows)
	if err != nil {
		return nil, err
	}
	if err := s.loadRequirements(ctx, s.db, rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *PostgresStore) findOne(ctx context.Context, q txcontext.Executor, query string, arg any) (*models.JurisdictionRule, error) {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("find rule: %w", err)
	}
	rules, err := scanRules(rows)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, sentinel.ErrNotFound
	}
	if err := s.loadRequirements(ctx, q, rules[:1]); err != nil {
		return nil, err
	}
	return rules[0], nil
}

func (s *PostgresStore) loadRequirements(ctx context.Context, q txcontext.Executor, rules []*models.JurisdictionRule) error {
	if len(rules) == 0 {
		return nil
	}
	ids := make([]string, len(rules))
	byID := make(map[uuid.UUID]*models.JurisdictionRule, len(rules))
	for i, r := range rules {
		ids[i] = r.ID.String()
		byID[r.ID] = r
		r.Requirements = []models.ComplianceRequirement{}
	}
	rows, err := q.QueryContext(ctx, `
		SELECT rule_id, requirement_code, category, description, is_mandatory, severity, recommendation
		FROM jurisdiction_requirements
		WHERE rule_id = ANY($1::uuid[])
		ORDER BY rule_id, position ASC`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load requirements: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ruleID uuid.UUID
		var req models.ComplianceRequirement
		var severity string
		if err := rows.Scan(&ruleID, &req.RequirementCode, &req.Category, &req.Description,
			&req.IsMandatory, &severity, &req.Recommendation); err != nil {
			return fmt.Errorf("scan requirement: %w", err)
		}
		req.Severity = models.Severity(severity)
		if r, ok := byID[ruleID]; ok {
			r.Requirements = append(r.Requirements, req)
		}
	}
	return rows.Err()
}

func insertRequirements(ctx context.Context, tx *sql.Tx, ruleID uuid.UUID, reqs []models.ComplianceRequirement) error {
	if len(reqs) == 0 {
		return nil
	}
	positions := make([]int64, len(reqs))
	codes := make([]string, len(reqs))
	categories := make([]string, len(reqs))
	descriptions := make([]string, len(reqs))
	mandatory := make([]bool, len(reqs))
	severities := make([]string, len(reqs))
	recommendations := make([]string, len(reqs))
	for i, r := range reqs {
		positions[i] = int64(i)
		codes[i] = r.RequirementCode
		categories[i] = r.Category
		descriptions[i] = r.Description
		mandatory[i] = r.IsMandatory
		severities[i] = string(r.Severity)
		recommendations[i] = r.Recommendation
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO jurisdiction_requirements
			(rule_id, position, requirement_code, category, description, is_mandatory, severity, recommendation)
		SELECT $1, t.position, t.code, t.category, t.description, t.mandatory, t.severity, t.recommendation
		FROM unnest($2::int[], $3::text[], $4::text[], $5::text[], $6::bool[], $7::text[], $8::text[])
			AS t(position, code, category, description, mandatory, severity, recommendation)
	`, ruleID, pq.Array(positions), pq.Array(codes), pq.Array(categories), pq.Array(descriptions),
		pq.Array(mandatory), pq.Array(severities), pq.Array(recommendations))
	if err != nil {
		return translateWriteErr("insert requirements", err)
	}
	return nil
}

func scanRules(rows *sql.Rows) ([]*models.JurisdictionRule, error) {
	defer rows.Close()
	var out []*models.JurisdictionRule
	for rows.Next() {
		r := &models.JurisdictionRule{}
		if err := rows.Scan(&r.ID, &r.JurisdictionCode, &r.JurisdictionName, &r.RegulatoryFramework, &r.IsActive,
			&r.IsImmutable, &r.Priority, &r.Version, &r.CreatedBy, &r.UpdatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	if out == nil {
		out = []*models.JurisdictionRule{}
	}
	return out, nil
}

func translateWriteErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return sentinel.ErrAlreadyUsed
	}
	return fmt.Errorf("%s: %w", op, err)
}
