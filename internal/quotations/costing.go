package quotations

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/waypoint-tms/waypoint-tms/internal/rating/vendorrates"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

// RunCosting populates the quotation's cost lines: one per applicable
// charge, with the full vendor ranking in base currency and the cheapest
// vendor pre-selected. Charges that already have a line are skipped, so a
// second run is a no-op for them. A charge no vendor rates gets a zero-cost
// placeholder line signalling manual entry. All writes happen in one
// transaction.
func (s *Service) RunCosting(ctx context.Context, quotationID int64) (result []CostLine, err error) {
	s.deps.Locks.Lock(quotationID)
	defer s.deps.Locks.Unlock(quotationID)

	defer func() {
		if s.deps.Metrics == nil {
			return
		}
		if err != nil {
			s.deps.Metrics.ObserveCostingRun("error")
		} else {
			s.deps.Metrics.ObserveCostingRun("ok")
		}
	}()

	q, err := s.deps.Repo.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if q.Status != StatusDraft && q.Status != StatusPendingCosting {
		return nil, fmt.Errorf("%w: quotation is %s", shared.ErrInvalidStatus, q.Status)
	}

	applicable, err := s.deps.ChargeRules.ApplicableCharges(ctx, q.Profile())
	if err != nil {
		return nil, err
	}

	vendorCosts, err := s.deps.VendorRates.MatchingCosts(ctx, vendorrates.CostQuery{
		OriginID:      q.OriginID,
		DestinationID: q.DestinationID,
		Profile:       q.Profile(),
		ChargeableKG:  q.ChargeableKG,
		AsOf:          q.QuoteDate,
	})
	if err != nil {
		return nil, err
	}

	rates, err := s.resolveRates(ctx, q, vendorCosts)
	if err != nil {
		return nil, err
	}

	byCharge := make(map[int64][]vendorrates.VendorCost)
	for _, vc := range vendorCosts {
		byCharge[vc.ChargeID] = append(byCharge[vc.ChargeID], vc)
	}

	var created []CostLine
	err = s.deps.Repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		existing, err := tx.ListCostLines(ctx, quotationID)
		if err != nil {
			return fmt.Errorf("list cost lines: %w", err)
		}
		have := make(map[int64]struct{}, len(existing))
		for _, line := range existing {
			have[line.ChargeID] = struct{}{}
		}

		for _, charge := range applicable {
			if _, ok := have[charge.ChargeID]; ok {
				continue
			}
			line := buildCostLine(quotationID, charge.ChargeID, byCharge[charge.ChargeID], rates)
			id, err := tx.InsertCostLine(ctx, line)
			if err != nil {
				return fmt.Errorf("insert cost line for charge %d: %w", charge.ChargeID, err)
			}
			line.ID = id
			created = append(created, line)
		}

		if q.Status == StatusDraft {
			if err := s.transition(ctx, tx, q, StatusPendingCosting); err != nil {
				return err
			}
		}
		return s.recomputeTotals(ctx, tx, q)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("costing run completed",
		slog.Int64("quotation_id", quotationID),
		slog.Int("lines_created", len(created)),
		slog.Int("charges", len(applicable)))
	return created, nil
}

// resolveRates fetches the base-currency conversion rate for every currency
// the vendor costs quote in, concurrently.
func (s *Service) resolveRates(ctx context.Context, q *Quotation, costs []vendorrates.VendorCost) (map[string]float64, error) {
	currencies := make(map[string]struct{})
	for _, vc := range costs {
		currencies[vc.Currency] = struct{}{}
	}

	rates := make(map[string]float64, len(currencies))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for currency := range currencies {
		g.Go(func() error {
			rate, err := s.deps.FX.Rate(gctx, currency, s.deps.BaseCurrency, q.QuoteDate)
			if err != nil {
				return fmt.Errorf("rate %s to %s: %w", currency, s.deps.BaseCurrency, err)
			}
			mu.Lock()
			rates[currency] = rate
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rates, nil
}

// buildCostLine ranks the vendor options by base-currency cost and selects
// rank 1. With no options the line is a zero-cost manual placeholder.
func buildCostLine(quotationID, chargeID int64, costs []vendorrates.VendorCost, rates map[string]float64) CostLine {
	line := CostLine{QuotationID: quotationID, ChargeID: chargeID}
	if len(costs) == 0 {
		line.IsManual = true
		return line
	}

	options := make([]VendorOption, 0, len(costs))
	for _, vc := range costs {
		rate := rates[vc.Currency]
		options = append(options, VendorOption{
			VendorID:     vc.VendorID,
			Rate:         vc.Rate,
			Currency:     vc.Currency,
			IsFixed:      vc.IsFixed,
			ExchangeRate: rate,
			CostBase:     vc.Cost * rate,
		})
	}
	sort.Slice(options, func(i, j int) bool {
		if options[i].CostBase != options[j].CostBase {
			return options[i].CostBase < options[j].CostBase
		}
		return options[i].VendorID < options[j].VendorID
	})
	for i := range options {
		options[i].Rank = i + 1
	}

	cheapest := options[0]
	line.Options = options
	line.SelectedVendorID = &cheapest.VendorID
	line.Rate = cheapest.Rate
	line.Currency = cheapest.Currency
	line.ExchangeRate = cheapest.ExchangeRate
	line.TotalCostBase = cheapest.CostBase
	return line
}

// SelectVendor switches a cost line to another ranked vendor, or applies a
// manual rate override. The stored ranking is not recomputed; the override
// only re-derives the base-currency total.
func (s *Service) SelectVendor(ctx context.Context, quotationID, lineID int64, vendorID *int64, overrideRate *float64) (*CostLine, error) {
	if vendorID == nil && overrideRate == nil {
		return nil, fmt.Errorf("%w: either a vendor or an override rate is required", shared.ErrValidation)
	}
	if overrideRate != nil && *overrideRate < 0 {
		return nil, fmt.Errorf("%w: override rate must not be negative", shared.ErrValidation)
	}

	s.deps.Locks.Lock(quotationID)
	defer s.deps.Locks.Unlock(quotationID)

	q, err := s.deps.Repo.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	line, err := s.deps.Repo.GetCostLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.QuotationID != quotationID {
		return nil, fmt.Errorf("%w: cost line %d", shared.ErrNotFound, lineID)
	}

	switch {
	case vendorID != nil:
		var chosen *VendorOption
		for i := range line.Options {
			if line.Options[i].VendorID == *vendorID {
				chosen = &line.Options[i]
				break
			}
		}
		if chosen == nil {
			return nil, fmt.Errorf("%w: vendor %d is not among the ranked options", shared.ErrValidation, *vendorID)
		}
		line.SelectedVendorID = vendorID
		line.Rate = chosen.Rate
		line.Currency = chosen.Currency
		line.ExchangeRate = chosen.ExchangeRate
		line.TotalCostBase = chosen.CostBase
		line.IsManual = false
	default:
		if line.ExchangeRate == 0 {
			// Placeholder line: manual rates are entered in base currency.
			line.Currency = s.deps.BaseCurrency
			line.ExchangeRate = 1
		}
		line.SelectedVendorID = nil
		line.Rate = *overrideRate
		line.TotalCostBase = *overrideRate * line.ExchangeRate
		line.IsManual = true
	}

	err = s.deps.Repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.UpdateCostLineSelection(ctx, *line); err != nil {
			return fmt.Errorf("update cost line: %w", err)
		}
		if err := s.repriceLineIfPresent(ctx, tx, q, line); err != nil {
			return err
		}
		return s.recomputeTotals(ctx, tx, q)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// recomputeTotals re-aggregates the quotation's monetary totals from its
// lines inside the caller's transaction.
func (s *Service) recomputeTotals(ctx context.Context, repo Repository, q *Quotation) error {
	costLines, err := repo.ListCostLines(ctx, q.ID)
	if err != nil {
		return fmt.Errorf("list cost lines: %w", err)
	}
	saleLines, err := repo.ListSaleLines(ctx, q.ID)
	if err != nil {
		return fmt.Errorf("list sale lines: %w", err)
	}

	var costBase, saleBase, taxBase float64
	for _, line := range costLines {
		costBase += line.TotalCostBase
	}
	for _, line := range saleLines {
		saleBase += line.SalePrice
		taxBase += line.TaxAmount
	}
	grand := saleBase + taxBase

	q.TotalCostBase = costBase
	q.TotalSaleBase = saleBase
	q.TotalTaxBase = taxBase
	q.GrandTotal = grand
	return repo.UpdateTotals(ctx, q.ID, costBase, saleBase, taxBase, grand)
}
