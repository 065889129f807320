package vendors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id int64) (Vendor, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]Vendor, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (Vendor, error) {
	var v Vendor
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, name, is_active FROM vendors WHERE id = $1
	`, id).Scan(&v.ID, &v.Code, &v.Name, &v.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, shared.ErrNotFound
		}
		return Vendor{}, err
	}
	return v, nil
}

func (r *repository) GetByIDs(ctx context.Context, ids []int64) (map[int64]Vendor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name, is_active FROM vendors WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]Vendor, len(ids))
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Code, &v.Name, &v.IsActive); err != nil {
			return nil, err
		}
		out[v.ID] = v
	}
	return out, rows.Err()
}
