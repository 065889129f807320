package fx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waypoint-tms/waypoint-tms/internal/platform/db"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	LatestActive(ctx context.Context, from, to string, asOf time.Time) (*ExchangeRate, error)
	DeactivatePair(ctx context.Context, from, to string) error
	Insert(ctx context.Context, rate ExchangeRate) (ExchangeRate, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) LatestActive(ctx context.Context, from, to string, asOf time.Time) (*ExchangeRate, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, from_currency, to_currency, rate, inverse_rate, effective_date, source, is_active, created_at
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2 AND is_active AND effective_date <= $3
		ORDER BY effective_date DESC, id DESC
		LIMIT 1
	`, from, to, asOf)
	rate, err := scanRate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rate, nil
}

func (r *repository) DeactivatePair(ctx context.Context, from, to string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE exchange_rates SET is_active = FALSE
		WHERE from_currency = $1 AND to_currency = $2 AND is_active
	`, from, to)
	return err
}

func (r *repository) Insert(ctx context.Context, rate ExchangeRate) (ExchangeRate, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO exchange_rates (from_currency, to_currency, rate, inverse_rate, effective_date, source, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id, from_currency, to_currency, rate, inverse_rate, effective_date, source, is_active, created_at
	`, rate.FromCurrency, rate.ToCurrency, rate.Rate, rate.InverseRate, rate.EffectiveDate, rate.Source)
	return scanRate(row)
}

func scanRate(row pgx.Row) (ExchangeRate, error) {
	var er ExchangeRate
	var effective pgtype.Date
	var created pgtype.Timestamptz
	if err := row.Scan(&er.ID, &er.FromCurrency, &er.ToCurrency, &er.Rate, &er.InverseRate,
		&effective, &er.Source, &er.IsActive, &created); err != nil {
		return ExchangeRate{}, err
	}
	if effective.Valid {
		er.EffectiveDate = effective.Time
	}
	if created.Valid {
		er.CreatedAt = created.Time
	}
	return er, nil
}
