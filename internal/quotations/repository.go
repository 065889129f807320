package quotations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waypoint-tms/waypoint-tms/internal/platform/db"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	Insert(ctx context.Context, q Quotation) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	UpdateTotals(ctx context.Context, id int64, costBase, saleBase, taxBase, grandTotal float64) error

	ListCostLines(ctx context.Context, quotationID int64) ([]CostLine, error)
	GetCostLine(ctx context.Context, id int64) (*CostLine, error)
	InsertCostLine(ctx context.Context, line CostLine) (int64, error)
	UpdateCostLineSelection(ctx context.Context, line CostLine) error

	ListSaleLines(ctx context.Context, quotationID int64) ([]SaleLine, error)
	GetSaleLine(ctx context.Context, id int64) (*SaleLine, error)
	InsertSaleLine(ctx context.Context, line SaleLine) (int64, error)
	UpdateSaleLine(ctx context.Context, line SaleLine) error
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

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	var q Quotation
	err := r.db.QueryRow(ctx, `
		SELECT id, reference, customer_id, origin_id, destination_id, mode, movement, terms,
		       status, quote_date, volume_cbm, actual_weight_kg, chargeable_kg,
		       total_cost_base, total_sale_base, total_tax_base, grand_total,
		       created_at, updated_at
		FROM quotations WHERE id = $1
	`, id).Scan(&q.ID, &q.Reference, &q.CustomerID, &q.OriginID, &q.DestinationID,
		&q.Mode, &q.Movement, &q.Terms, &q.Status, &q.QuoteDate,
		&q.VolumeCBM, &q.ActualWeightKG, &q.ChargeableKG,
		&q.TotalCostBase, &q.TotalSaleBase, &q.TotalTaxBase, &q.GrandTotal,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *repository) Insert(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotations
			(reference, customer_id, origin_id, destination_id, mode, movement, terms,
			 status, quote_date, volume_cbm, actual_weight_kg, chargeable_kg,
			 total_cost_base, total_sale_base, total_tax_base, grand_total,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, 0, 0, 0, now(), now())
		RETURNING id
	`, q.Reference, q.CustomerID, q.OriginID, q.DestinationID, q.Mode, q.Movement, q.Terms,
		q.Status, q.QuoteDate, q.VolumeCBM, q.ActualWeightKG, q.ChargeableKG).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotations SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateTotals(ctx context.Context, id int64, costBase, saleBase, taxBase, grandTotal float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotations
		SET total_cost_base = $2, total_sale_base = $3, total_tax_base = $4,
		    grand_total = $5, updated_at = now()
		WHERE id = $1
	`, id, costBase, saleBase, taxBase, grandTotal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ListCostLines(ctx context.Context, quotationID int64) ([]CostLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quotation_id, charge_id, options, selected_vendor_id, rate, currency,
		       exchange_rate, total_cost_base, is_manual, created_at
		FROM quotation_cost_lines WHERE quotation_id = $1
		ORDER BY charge_id
	`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CostLine
	for rows.Next() {
		line, err := scanCostLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func (r *repository) GetCostLine(ctx context.Context, id int64) (*CostLine, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, quotation_id, charge_id, options, selected_vendor_id, rate, currency,
		       exchange_rate, total_cost_base, is_manual, created_at
		FROM quotation_cost_lines WHERE id = $1
	`, id)
	line, err := scanCostLine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

func scanCostLine(row pgx.Row) (CostLine, error) {
	var line CostLine
	var options []byte
	if err := row.Scan(&line.ID, &line.QuotationID, &line.ChargeID, &options,
		&line.SelectedVendorID, &line.Rate, &line.Currency, &line.ExchangeRate,
		&line.TotalCostBase, &line.IsManual, &line.CreatedAt); err != nil {
		return CostLine{}, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &line.Options); err != nil {
			return CostLine{}, fmt.Errorf("decode vendor options: %w", err)
		}
	}
	return line, nil
}

func (r *repository) InsertCostLine(ctx context.Context, line CostLine) (int64, error) {
	options, err := json.Marshal(line.Options)
	if err != nil {
		return 0, fmt.Errorf("encode vendor options: %w", err)
	}
	var id int64
	err = r.db.QueryRow(ctx, `
		INSERT INTO quotation_cost_lines
			(quotation_id, charge_id, options, selected_vendor_id, rate, currency,
			 exchange_rate, total_cost_base, is_manual, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING id
	`, line.QuotationID, line.ChargeID, options, line.SelectedVendorID, line.Rate,
		line.Currency, line.ExchangeRate, line.TotalCostBase, line.IsManual).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateCostLineSelection(ctx context.Context, line CostLine) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotation_cost_lines
		SET selected_vendor_id = $2, rate = $3, currency = $4, exchange_rate = $5,
		    total_cost_base = $6, is_manual = $7
		WHERE id = $1
	`, line.ID, line.SelectedVendorID, line.Rate, line.Currency, line.ExchangeRate,
		line.TotalCostBase, line.IsManual)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ListSaleLines(ctx context.Context, quotationID int64) ([]SaleLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quotation_id, charge_id, cost_base, margin_pct, margin_rule_id,
		       sale_price, tax_code_id, tax_rate, tax_amount, line_total, is_overridden, created_at
		FROM quotation_sale_lines WHERE quotation_id = $1
		ORDER BY charge_id
	`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SaleLine
	for rows.Next() {
		var line SaleLine
		if err := rows.Scan(&line.ID, &line.QuotationID, &line.ChargeID, &line.CostBase,
			&line.MarginPct, &line.MarginRuleID, &line.SalePrice, &line.TaxCodeID,
			&line.TaxRate, &line.TaxAmount, &line.LineTotal, &line.IsOverridden,
			&line.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func (r *repository) GetSaleLine(ctx context.Context, id int64) (*SaleLine, error) {
	var line SaleLine
	err := r.db.QueryRow(ctx, `
		SELECT id, quotation_id, charge_id, cost_base, margin_pct, margin_rule_id,
		       sale_price, tax_code_id, tax_rate, tax_amount, line_total, is_overridden, created_at
		FROM quotation_sale_lines WHERE id = $1
	`, id).Scan(&line.ID, &line.QuotationID, &line.ChargeID, &line.CostBase,
		&line.MarginPct, &line.MarginRuleID, &line.SalePrice, &line.TaxCodeID,
		&line.TaxRate, &line.TaxAmount, &line.LineTotal, &line.IsOverridden, &line.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

func (r *repository) InsertSaleLine(ctx context.Context, line SaleLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotation_sale_lines
			(quotation_id, charge_id, cost_base, margin_pct, margin_rule_id,
			 sale_price, tax_code_id, tax_rate, tax_amount, line_total, is_overridden, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		RETURNING id
	`, line.QuotationID, line.ChargeID, line.CostBase, line.MarginPct, line.MarginRuleID,
		line.SalePrice, line.TaxCodeID, line.TaxRate, line.TaxAmount, line.LineTotal,
		line.IsOverridden).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateSaleLine(ctx context.Context, line SaleLine) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotation_sale_lines
		SET cost_base = $2, margin_pct = $3, margin_rule_id = $4, sale_price = $5,
		    tax_code_id = $6, tax_rate = $7, tax_amount = $8, line_total = $9, is_overridden = $10
		WHERE id = $1
	`, line.ID, line.CostBase, line.MarginPct, line.MarginRuleID, line.SalePrice,
		line.TaxCodeID, line.TaxRate, line.TaxAmount, line.LineTotal, line.IsOverridden)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
