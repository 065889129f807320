package chargerules

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waypoint-tms/waypoint-tms/internal/rating"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type Repository interface {
	// FindApplicable returns active rules joined with active charges where
	// (mode, movement) match exactly and terms equals the given value or
	// the ALL_TERMS wildcard.
	FindApplicable(ctx context.Context, profile rating.Profile) ([]ApplicableCharge, error)
	GetRule(ctx context.Context, profile rating.Profile, chargeID int64) (*ChargeRule, error)
	Insert(ctx context.Context, rule ChargeRule) (ChargeRule, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) FindApplicable(ctx context.Context, profile rating.Profile) ([]ApplicableCharge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.code, c.name, c.uom, c.tax_code_id
		FROM charge_rules cr
		JOIN charges c ON c.id = cr.charge_id
		WHERE cr.mode = $1 AND cr.movement = $2
		  AND (cr.terms = $3 OR cr.terms = $4)
		  AND cr.is_active AND c.is_active
		ORDER BY c.code
	`, profile.Mode, profile.Movement, profile.Terms, rating.AllTerms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApplicableCharge
	for rows.Next() {
		var ac ApplicableCharge
		var taxCodeID pgtype.Int8
		if err := rows.Scan(&ac.ChargeID, &ac.Code, &ac.Name, &ac.UOM, &taxCodeID); err != nil {
			return nil, err
		}
		if taxCodeID.Valid {
			v := taxCodeID.Int64
			ac.TaxCodeID = &v
		}
		out = append(out, ac)
	}
	return out, rows.Err()
}

func (r *repository) GetRule(ctx context.Context, profile rating.Profile, chargeID int64) (*ChargeRule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, mode, movement, terms, charge_id, is_active, notes, created_at, updated_at
		FROM charge_rules
		WHERE mode = $1 AND movement = $2 AND terms = $3 AND charge_id = $4
	`, profile.Mode, profile.Movement, profile.Terms, chargeID)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (r *repository) Insert(ctx context.Context, rule ChargeRule) (ChargeRule, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO charge_rules (mode, movement, terms, charge_id, is_active, notes)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING id, mode, movement, terms, charge_id, is_active, notes, created_at, updated_at
	`, rule.Mode, rule.Movement, rule.Terms, rule.ChargeID, rule.Notes)
	created, err := scanRule(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ChargeRule{}, shared.ErrDuplicate
		}
		return ChargeRule{}, err
	}
	return created, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE charge_rules SET is_active = $2, updated_at = NOW() WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanRule(row pgx.Row) (ChargeRule, error) {
	var rule ChargeRule
	var notes pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&rule.ID, &rule.Mode, &rule.Movement, &rule.Terms, &rule.ChargeID,
		&rule.IsActive, &notes, &createdAt, &updatedAt); err != nil {
		return ChargeRule{}, err
	}
	if notes.Valid {
		v := notes.String
		rule.Notes = &v
	}
	if createdAt.Valid {
		rule.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		rule.UpdatedAt = updatedAt.Time
	}
	return rule, nil
}
