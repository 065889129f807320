package charges

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id int64) (Charge, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]Charge, error)
	ListActive(ctx context.Context) ([]Charge, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (Charge, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, code, name, uom, tax_code_id, is_active
		FROM charges WHERE id = $1
	`, id)
	c, err := scanCharge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Charge{}, shared.ErrNotFound
		}
		return Charge{}, err
	}
	return c, nil
}

func (r *repository) GetByIDs(ctx context.Context, ids []int64) (map[int64]Charge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name, uom, tax_code_id, is_active
		FROM charges WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]Charge, len(ids))
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

func (r *repository) ListActive(ctx context.Context) ([]Charge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name, uom, tax_code_id, is_active
		FROM charges WHERE is_active ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCharge(row pgx.Row) (Charge, error) {
	var c Charge
	var taxCodeID pgtype.Int8
	if err := row.Scan(&c.ID, &c.Code, &c.Name, &c.UOM, &taxCodeID, &c.IsActive); err != nil {
		return Charge{}, err
	}
	if taxCodeID.Valid {
		v := taxCodeID.Int64
		c.TaxCodeID = &v
	}
	return c, nil
}
