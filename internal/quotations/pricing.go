package quotations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

// RunPricing derives a sale line for every cost line that does not have one
// yet: margin cascade first, then tax on the resulting sale price. Existing
// sale lines are left untouched, so a second run is a no-op for them. All
// writes happen in one transaction.
func (s *Service) RunPricing(ctx context.Context, quotationID int64) (result []SaleLine, err error) {
	s.deps.Locks.Lock(quotationID)
	defer s.deps.Locks.Unlock(quotationID)

	defer func() {
		if s.deps.Metrics == nil {
			return
		}
		if err != nil {
			s.deps.Metrics.ObservePricingRun("error")
		} else {
			s.deps.Metrics.ObservePricingRun("ok")
		}
	}()

	q, err := s.deps.Repo.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if q.Status != StatusPendingCosting {
		return nil, fmt.Errorf("%w: quotation is %s", shared.ErrInvalidStatus, q.Status)
	}

	var created []SaleLine
	err = s.deps.Repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		costLines, err := tx.ListCostLines(ctx, quotationID)
		if err != nil {
			return fmt.Errorf("list cost lines: %w", err)
		}
		saleLines, err := tx.ListSaleLines(ctx, quotationID)
		if err != nil {
			return fmt.Errorf("list sale lines: %w", err)
		}
		have := make(map[int64]struct{}, len(saleLines))
		for _, line := range saleLines {
			have[line.ChargeID] = struct{}{}
		}

		for _, costLine := range costLines {
			if _, ok := have[costLine.ChargeID]; ok {
				continue
			}
			saleLine, err := s.buildSaleLine(ctx, q, costLine)
			if err != nil {
				return err
			}
			id, err := tx.InsertSaleLine(ctx, *saleLine)
			if err != nil {
				return fmt.Errorf("insert sale line for charge %d: %w", costLine.ChargeID, err)
			}
			saleLine.ID = id
			created = append(created, *saleLine)
		}
		return s.recomputeTotals(ctx, tx, q)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pricing run completed",
		slog.Int64("quotation_id", quotationID),
		slog.Int("lines_created", len(created)))
	return created, nil
}

// buildSaleLine prices one cost line: margin cascade, then tax.
func (s *Service) buildSaleLine(ctx context.Context, q *Quotation, costLine CostLine) (*SaleLine, error) {
	chargeID := costLine.ChargeID
	resolution, err := s.deps.Margins.SalePrice(ctx, costLine.TotalCostBase, &chargeID, &q.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("resolve margin for charge %d: %w", chargeID, err)
	}
	tax, err := s.deps.Taxes.TaxFor(ctx, resolution.SalePrice, chargeID)
	if err != nil {
		return nil, fmt.Errorf("resolve tax for charge %d: %w", chargeID, err)
	}
	return &SaleLine{
		QuotationID:  q.ID,
		ChargeID:     chargeID,
		CostBase:     costLine.TotalCostBase,
		MarginPct:    resolution.MarginPct,
		MarginRuleID: resolution.RuleID,
		SalePrice:    resolution.SalePrice,
		TaxCodeID:    tax.TaxCodeID,
		TaxRate:      tax.Rate,
		TaxAmount:    tax.Amount,
		LineTotal:    tax.Total,
	}, nil
}

// repriceLineIfPresent recomputes the sale line matching a changed cost
// line so a vendor override never leaves margin or tax stale.
func (s *Service) repriceLineIfPresent(ctx context.Context, tx Repository, q *Quotation, costLine *CostLine) error {
	saleLines, err := tx.ListSaleLines(ctx, q.ID)
	if err != nil {
		return fmt.Errorf("list sale lines: %w", err)
	}
	for _, existing := range saleLines {
		if existing.ChargeID != costLine.ChargeID {
			continue
		}
		fresh, err := s.buildSaleLine(ctx, q, *costLine)
		if err != nil {
			return err
		}
		fresh.ID = existing.ID
		if err := tx.UpdateSaleLine(ctx, *fresh); err != nil {
			return fmt.Errorf("update sale line: %w", err)
		}
		return nil
	}
	return nil
}

// OverrideSalePrice sets a manual sale price on one line, recomputing the
// margin percentage from the stored cost and re-running tax resolution.
func (s *Service) OverrideSalePrice(ctx context.Context, quotationID, lineID int64, newPrice float64) (*SaleLine, error) {
	if newPrice < 0 {
		return nil, fmt.Errorf("%w: sale price must not be negative", shared.ErrValidation)
	}

	s.deps.Locks.Lock(quotationID)
	defer s.deps.Locks.Unlock(quotationID)

	q, err := s.deps.Repo.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	line, err := s.deps.Repo.GetSaleLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.QuotationID != quotationID {
		return nil, fmt.Errorf("%w: sale line %d", shared.ErrNotFound, lineID)
	}

	tax, err := s.deps.Taxes.TaxFor(ctx, newPrice, line.ChargeID)
	if err != nil {
		return nil, fmt.Errorf("resolve tax for charge %d: %w", line.ChargeID, err)
	}

	line.SalePrice = newPrice
	if line.CostBase > 0 {
		line.MarginPct = (newPrice - line.CostBase) / line.CostBase
	} else {
		line.MarginPct = 0
	}
	line.MarginRuleID = nil
	line.TaxCodeID = tax.TaxCodeID
	line.TaxRate = tax.Rate
	line.TaxAmount = tax.Amount
	line.LineTotal = tax.Total
	line.IsOverridden = true

	err = s.deps.Repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.UpdateSaleLine(ctx, *line); err != nil {
			return fmt.Errorf("update sale line: %w", err)
		}
		return s.recomputeTotals(ctx, tx, q)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// Finalize checks that every cost line has a priced sale line and moves the
// quotation to pending approval when the total cost exceeds the approval
// threshold, or straight to sent otherwise.
func (s *Service) Finalize(ctx context.Context, quotationID int64) (*Quotation, error) {
	s.deps.Locks.Lock(quotationID)
	defer s.deps.Locks.Unlock(quotationID)

	q, err := s.deps.Repo.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if q.Status != StatusPendingCosting {
		return nil, fmt.Errorf("%w: quotation is %s", shared.ErrInvalidStatus, q.Status)
	}

	costLines, err := s.deps.Repo.ListCostLines(ctx, quotationID)
	if err != nil {
		return nil, fmt.Errorf("list cost lines: %w", err)
	}
	saleLines, err := s.deps.Repo.ListSaleLines(ctx, quotationID)
	if err != nil {
		return nil, fmt.Errorf("list sale lines: %w", err)
	}
	if len(costLines) == 0 {
		return nil, fmt.Errorf("%w: quotation has no cost lines", shared.ErrIncompletePricing)
	}

	priced := make(map[int64]SaleLine, len(saleLines))
	for _, line := range saleLines {
		priced[line.ChargeID] = line
	}
	for _, costLine := range costLines {
		saleLine, ok := priced[costLine.ChargeID]
		if !ok {
			return nil, fmt.Errorf("%w: charge %d has no sale line", shared.ErrIncompletePricing, costLine.ChargeID)
		}
		if saleLine.SalePrice <= 0 {
			return nil, fmt.Errorf("%w: charge %d has no computed price", shared.ErrIncompletePricing, costLine.ChargeID)
		}
	}

	target := StatusSent
	if q.TotalCostBase > s.deps.ApprovalThreshold {
		target = StatusPendingApproval
	}
	if err := s.transition(ctx, s.deps.Repo, q, target); err != nil {
		return nil, err
	}
	return q, nil
}
