package assignment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"complyledger/internal/jurisdiction/models"
	"complyledger/pkg/platform/sentinel"
	txcontext "complyledger/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore keeps assignments in token_jurisdiction_assignments. A partial
// unique index on (asset_id, network) WHERE is_primary prevents two primaries
// even when the row locks below find nothing to lock.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Assign(ctx context.Context, a *models.TokenJurisdictionAssignment) (*models.TokenJurisdictionAssignment, error) {
	err := txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the asset's rows so demotion and upsert see a stable set.
		rows, err := tx.QueryContext(ctx, `
			SELECT jurisdiction_code FROM token_jurisdiction_assignments
			WHERE asset_id = $1 AND network = $2
			FOR UPDATE`, a.AssetID, a.Network)
		if err != nil {
			return fmt.Errorf("lock assignments: %w", err)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("lock assignments: %w", err)
		}

		if a.IsPrimary {
			_, err := tx.ExecContext(ctx, `
				UPDATE token_jurisdiction_assignments
				SET is_primary = false
				WHERE asset_id = $1 AND network = $2 AND is_primary AND jurisdiction_code <> $3`,
				a.AssetID, a.Network, a.JurisdictionCode)
			if err != nil {
				return fmt.Errorf("demote primary: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO token_jurisdiction_assignments
				(asset_id, network, jurisdiction_code, is_primary, assigned_by, reason, assigned_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (asset_id, network, jurisdiction_code) DO UPDATE
			SET is_primary = EXCLUDED.is_primary,
			    assigned_by = EXCLUDED.assigned_by,
			    reason = EXCLUDED.reason,
			    assigned_at = EXCLUDED.assigned_at`,
			a.AssetID, a.Network, a.JurisdictionCode, a.IsPrimary, a.AssignedBy, a.Reason, a.AssignedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("upsert assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cp := *a
	return &cp, nil
}

func (s *PostgresStore) Remove(ctx context.Context, key models.AssetKey, code string) error {
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		DELETE FROM token_jurisdiction_assignments
		WHERE asset_id = $1 AND network = $2 AND jurisdiction_code = $3`,
		key.AssetID, key.Network, code)
	if err != nil {
		return fmt.Errorf("remove assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove assignment: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByAsset(ctx context.Context, key models.AssetKey) ([]*models.TokenJurisdictionAssignment, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT asset_id, network, jurisdiction_code, is_primary, assigned_by, reason, assigned_at
		FROM token_jurisdiction_assignments
		WHERE asset_id = $1 AND network = $2
		ORDER BY is_primary DESC, seq ASC`, key.AssetID, key.Network)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	out := []*models.TokenJurisdictionAssignment{}
	for rows.Next() {
		a := &models.TokenJurisdictionAssignment{}
		if err := rows.Scan(&a.AssetID, &a.Network, &a.JurisdictionCode, &a.IsPrimary,
			&a.AssignedBy, &a.Reason, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return out, nil
}
