package taxes

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id int64) (TaxCode, error)
	ListActive(ctx context.Context) ([]TaxCode, error)
	Insert(ctx context.Context, code TaxCode) (TaxCode, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (TaxCode, error) {
	var tc TaxCode
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, name, rate, is_active FROM tax_codes WHERE id = $1
	`, id).Scan(&tc.ID, &tc.Code, &tc.Name, &tc.Rate, &tc.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TaxCode{}, shared.ErrNotFound
		}
		return TaxCode{}, err
	}
	return tc, nil
}

func (r *repository) ListActive(ctx context.Context) ([]TaxCode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name, rate, is_active FROM tax_codes WHERE is_active ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaxCode
	for rows.Next() {
		var tc TaxCode
		if err := rows.Scan(&tc.ID, &tc.Code, &tc.Name, &tc.Rate, &tc.IsActive); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (r *repository) Insert(ctx context.Context, code TaxCode) (TaxCode, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tax_codes (code, name, rate, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id
	`, code.Code, code.Name, code.Rate).Scan(&code.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return TaxCode{}, shared.ErrDuplicate
		}
		return TaxCode{}, err
	}
	code.IsActive = true
	return code, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tax_codes SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
