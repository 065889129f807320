package taxes

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/charges"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

// Service computes tax for sale prices. Charge-to-tax-code lookups go
// through a versioned Redis cache with a bounded TTL; concurrent misses on
// the same charge are collapsed to one load.
type Service struct {
	logger     *slog.Logger
	repo       Repository
	chargeRepo charges.Repository
	cache      *Cache
	group      singleflight.Group
}

func NewService(logger *slog.Logger, repo Repository, chargeRepo charges.Repository, cache *Cache) *Service {
	return &Service{logger: logger, repo: repo, chargeRepo: chargeRepo, cache: cache}
}

// taxCodeForCharge resolves the charge's configured tax code, cached.
func (s *Service) taxCodeForCharge(ctx context.Context, chargeID int64) (TaxCode, error) {
	key, err := s.cache.BuildKey(ctx, "taxes", "charge", strconv.FormatInt(chargeID, 10))
	if err != nil {
		return TaxCode{}, fmt.Errorf("build cache key: %w", err)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		var tc TaxCode
		err := s.cache.FetchJSON(ctx, key, &tc, func(ctx context.Context) (interface{}, error) {
			charge, err := s.chargeRepo.Get(ctx, chargeID)
			if err != nil {
				return nil, fmt.Errorf("load charge: %w", err)
			}
			if charge.TaxCodeID == nil {
				return nil, fmt.Errorf("%w: charge %s", ErrMissingTaxConfiguration, charge.Code)
			}
			code, err := s.repo.Get(ctx, *charge.TaxCodeID)
			if err != nil {
				return nil, fmt.Errorf("load tax code: %w", err)
			}
			return code, nil
		})
		if err != nil {
			return TaxCode{}, err
		}
		return tc, nil
	})
	if err != nil {
		return TaxCode{}, err
	}
	return v.(TaxCode), nil
}

// TaxFor computes the tax on one sale price for one charge. A zero-rate
// code yields amount 0 and total equal to the sale price exactly.
func (s *Service) TaxFor(ctx context.Context, salePrice float64, chargeID int64) (TaxResult, error) {
	if salePrice < 0 {
		return TaxResult{}, fmt.Errorf("%w: sale price must not be negative", shared.ErrValidation)
	}
	if chargeID <= 0 {
		return TaxResult{}, fmt.Errorf("%w: charge is required", shared.ErrValidation)
	}

	code, err := s.taxCodeForCharge(ctx, chargeID)
	if err != nil {
		return TaxResult{}, err
	}
	if !code.IsActive {
		return TaxResult{}, fmt.Errorf("%w: %s", ErrInactiveTaxCode, code.Code)
	}

	amount := salePrice * code.Rate
	return TaxResult{
		TaxCodeID: code.ID,
		TaxCode:   code.Code,
		Rate:      code.Rate,
		Amount:    amount,
		Total:     salePrice + amount,
	}, nil
}

// TaxForBatch computes tax for a list of (sale price, charge) pairs and
// aggregates the totals. One failing item fails the batch.
func (s *Service) TaxForBatch(ctx context.Context, items []BatchItem) (BatchResult, error) {
	if len(items) == 0 {
		return BatchResult{}, fmt.Errorf("%w: batch is empty", shared.ErrValidation)
	}

	out := BatchResult{Items: make([]TaxResult, 0, len(items))}
	for _, item := range items {
		res, err := s.TaxFor(ctx, item.SalePrice, item.ChargeID)
		if err != nil {
			return BatchResult{}, fmt.Errorf("charge %d: %w", item.ChargeID, err)
		}
		out.Items = append(out.Items, res)
		out.SaleTotal += item.SalePrice
		out.TaxTotal += res.Amount
		out.GrandTotal += res.Total
	}
	return out, nil
}

// AddTaxCode registers a tax rate and invalidates cached lookups.
func (s *Service) AddTaxCode(ctx context.Context, code TaxCode) (*TaxCode, error) {
	if code.Code == "" {
		return nil, fmt.Errorf("%w: code is required", shared.ErrValidation)
	}
	if code.Rate < 0 {
		return nil, fmt.Errorf("%w: rate must not be negative", shared.ErrValidation)
	}

	created, err := s.repo.Insert(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("insert tax code: %w", err)
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("tax cache bump failed", slog.Any("error", err))
	}
	return &created, nil
}

// SetTaxCodeActive toggles a tax code and invalidates cached lookups.
func (s *Service) SetTaxCodeActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("tax cache bump failed", slog.Any("error", err))
	}
	return nil
}

// FlushCache invalidates all cached tax lookups.
func (s *Service) FlushCache(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// ListTaxCodes returns the active tax codes.
func (s *Service) ListTaxCodes(ctx context.Context) ([]TaxCode, error) {
	return s.repo.ListActive(ctx)
}
