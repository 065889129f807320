package currencies

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, code string) (Currency, error)
	ListActive(ctx context.Context) ([]Currency, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, code string) (Currency, error) {
	var c Currency
	err := r.pool.QueryRow(ctx, `
		SELECT code, name, is_active FROM currencies WHERE code = $1
	`, code).Scan(&c.Code, &c.Name, &c.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Currency{}, shared.ErrNotFound
		}
		return Currency{}, err
	}
	return c, nil
}

func (r *repository) ListActive(ctx context.Context) ([]Currency, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT code, name, is_active FROM currencies WHERE is_active ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.Code, &c.Name, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
