package vendorrates

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waypoint-tms/waypoint-tms/internal/platform/db"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	// FindMatchingLines returns active lines of active headers matching
	// the query's route, profile and validity date, whose slab contains
	// the chargeable weight.
	FindMatchingLines(ctx context.Context, query CostQuery) ([]MatchedLine, error)
	GetHeader(ctx context.Context, id int64) (*RateHeader, error)
	InsertHeader(ctx context.Context, header RateHeader) (int64, error)
	InsertLine(ctx context.Context, line RateLine) (int64, error)
}

// MatchedLine pairs a rate line with its owning vendor.
type MatchedLine struct {
	VendorID int64
	Line     RateLine
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

func (r *repository) FindMatchingLines(ctx context.Context, query CostQuery) ([]MatchedLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT h.vendor_id, l.id, l.header_id, l.charge_id, l.slab_min_kg, l.slab_max_kg,
		       l.rate, l.currency, l.is_fixed, l.is_active
		FROM vendor_rate_headers h
		JOIN vendor_rate_lines l ON l.header_id = h.id
		WHERE h.origin_id = $1 AND h.destination_id = $2
		  AND h.mode = $3 AND h.movement = $4 AND h.terms = $5
		  AND h.valid_from <= $6 AND h.valid_upto >= $6
		  AND h.is_active AND l.is_active
		  AND l.slab_min_kg <= $7 AND l.slab_max_kg >= $7
		ORDER BY h.vendor_id, l.charge_id
	`, query.OriginID, query.DestinationID, query.Profile.Mode, query.Profile.Movement,
		query.Profile.Terms, query.AsOf, query.ChargeableKG)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchedLine
	for rows.Next() {
		var m MatchedLine
		if err := rows.Scan(&m.VendorID, &m.Line.ID, &m.Line.HeaderID, &m.Line.ChargeID,
			&m.Line.SlabMinKG, &m.Line.SlabMaxKG, &m.Line.Rate, &m.Line.Currency,
			&m.Line.IsFixed, &m.Line.IsActive); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) GetHeader(ctx context.Context, id int64) (*RateHeader, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, vendor_id, origin_id, destination_id, mode, movement, terms,
		       valid_from, valid_upto, is_active
		FROM vendor_rate_headers WHERE id = $1
	`, id)
	var h RateHeader
	var validFrom, validUpto pgtype.Date
	if err := row.Scan(&h.ID, &h.VendorID, &h.OriginID, &h.DestinationID, &h.Mode,
		&h.Movement, &h.Terms, &validFrom, &validUpto, &h.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if validFrom.Valid {
		h.ValidFrom = validFrom.Time
	}
	if validUpto.Valid {
		h.ValidUpto = validUpto.Time
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, header_id, charge_id, slab_min_kg, slab_max_kg, rate, currency, is_fixed, is_active
		FROM vendor_rate_lines WHERE header_id = $1
		ORDER BY charge_id, slab_min_kg
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l RateLine
		if err := rows.Scan(&l.ID, &l.HeaderID, &l.ChargeID, &l.SlabMinKG, &l.SlabMaxKG,
			&l.Rate, &l.Currency, &l.IsFixed, &l.IsActive); err != nil {
			return nil, err
		}
		h.Lines = append(h.Lines, l)
	}
	return &h, rows.Err()
}

func (r *repository) InsertHeader(ctx context.Context, header RateHeader) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO vendor_rate_headers
			(vendor_id, origin_id, destination_id, mode, movement, terms, valid_from, valid_upto, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING id
	`, header.VendorID, header.OriginID, header.DestinationID, header.Mode, header.Movement,
		header.Terms, header.ValidFrom, header.ValidUpto).Scan(&id)
	return id, err
}

func (r *repository) InsertLine(ctx context.Context, line RateLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO vendor_rate_lines
			(header_id, charge_id, slab_min_kg, slab_max_kg, rate, currency, is_fixed, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING id
	`, line.HeaderID, line.ChargeID, line.SlabMinKG, line.SlabMaxKG, line.Rate,
		line.Currency, line.IsFixed).Scan(&id)
	return id, err
}
