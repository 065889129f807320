package margins

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type Repository interface {
	// ListActive returns every active margin rule.
	ListActive(ctx context.Context) ([]MarginRule, error)
	Get(ctx context.Context, id int64) (*MarginRule, error)
	Insert(ctx context.Context, rule MarginRule) (MarginRule, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListActive(ctx context.Context) ([]MarginRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, precedence, charge_id, customer_id, margin_pct, margin_flat, is_active
		FROM margin_rules
		WHERE is_active
		ORDER BY precedence DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MarginRule
	for rows.Next() {
		var rule MarginRule
		if err := rows.Scan(&rule.ID, &rule.Precedence, &rule.ChargeID, &rule.CustomerID,
			&rule.MarginPct, &rule.MarginFlat, &rule.IsActive); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*MarginRule, error) {
	var rule MarginRule
	err := r.pool.QueryRow(ctx, `
		SELECT id, precedence, charge_id, customer_id, margin_pct, margin_flat, is_active
		FROM margin_rules WHERE id = $1
	`, id).Scan(&rule.ID, &rule.Precedence, &rule.ChargeID, &rule.CustomerID,
		&rule.MarginPct, &rule.MarginFlat, &rule.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (r *repository) Insert(ctx context.Context, rule MarginRule) (MarginRule, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO margin_rules (precedence, charge_id, customer_id, margin_pct, margin_flat, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id
	`, rule.Precedence, rule.ChargeID, rule.CustomerID, rule.MarginPct, rule.MarginFlat).Scan(&rule.ID)
	if err != nil {
		return MarginRule{}, err
	}
	rule.IsActive = true
	return rule, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE margin_rules SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
