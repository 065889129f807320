package fx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/currencies"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

// Service resolves point-in-time conversion rates between currency pairs
// and maintains the append-only rate log.
type Service struct {
	logger     *slog.Logger
	repo       Repository
	currencies currencies.Repository
}

func NewService(logger *slog.Logger, repo Repository, currencyRepo currencies.Repository) *Service {
	return &Service{logger: logger, repo: repo, currencies: currencyRepo}
}

// Currencies lists the active currency master records.
func (s *Service) Currencies(ctx context.Context) ([]currencies.Currency, error) {
	return s.currencies.ListActive(ctx)
}

// verifyConfigured checks a code against the currency master. Rate reads
// stay ungated so historical records in retired currencies keep resolving.
func (s *Service) verifyConfigured(ctx context.Context, code string) error {
	rec, err := s.currencies.Get(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: currency %s is not configured", shared.ErrBusinessRule, code)
		}
		return fmt.Errorf("verify currency %s: %w", code, err)
	}
	if !rec.IsActive {
		return fmt.Errorf("%w: currency %s is inactive", shared.ErrBusinessRule, code)
	}
	return nil
}

// Rate resolves the conversion rate from one currency to another as of the
// given date. Same-currency pairs always resolve to 1.0. Otherwise the
// active record with the greatest effective date at or before asOf wins;
// there is no interpolation. When only the opposite pair is recorded, its
// stored inverse rate is used.
func (s *Service) Rate(ctx context.Context, from, to string, asOf time.Time) (float64, error) {
	if err := ValidateCode(from); err != nil {
		return 0, err
	}
	if err := ValidateCode(to); err != nil {
		return 0, err
	}
	if from == to {
		return 1.0, nil
	}

	rec, err := s.repo.LatestActive(ctx, from, to, asOf)
	if err == nil {
		return rec.Rate, nil
	}

	rec, invErr := s.repo.LatestActive(ctx, to, from, asOf)
	if invErr == nil && rec.InverseRate > 0 {
		return rec.InverseRate, nil
	}
	return 0, fmt.Errorf("rate %s/%s as of %s: %w", from, to, asOf.Format("2006-01-02"), err)
}

// Convert converts an amount between currencies at the rate effective on
// asOf.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string, asOf time.Time) (float64, error) {
	rate, err := s.Rate(ctx, from, to, asOf)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// BulkUpdateRequest carries one batch of rates against a base currency.
// Each entry reads "1 unit of currency = rate units of base".
type BulkUpdateRequest struct {
	BaseCurrency  string
	EffectiveDate time.Time
	Source        string
	Rates         map[string]float64
}

// BulkUpdate deactivates the currently active record for every pair in the
// batch and inserts one new active record dated EffectiveDate, all inside a
// single transaction. The base currency is rejected as a target for its own
// rate.
func (s *Service) BulkUpdate(ctx context.Context, req BulkUpdateRequest) ([]ExchangeRate, error) {
	if err := ValidateCode(req.BaseCurrency); err != nil {
		return nil, err
	}
	if req.EffectiveDate.IsZero() {
		return nil, fmt.Errorf("%w: effective date required", shared.ErrValidation)
	}

	if err := s.verifyConfigured(ctx, req.BaseCurrency); err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(req.Rates))
	for code, rate := range req.Rates {
		if code == req.BaseCurrency {
			return nil, fmt.Errorf("%w: cannot record %s against itself", shared.ErrBusinessRule, code)
		}
		if err := ValidateCode(code); err != nil {
			return nil, err
		}
		if err := ValidateRate(rate); err != nil {
			return nil, fmt.Errorf("%s: %w", code, err)
		}
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		if err := s.verifyConfigured(ctx, code); err != nil {
			return nil, err
		}
	}

	var created []ExchangeRate
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		for _, code := range codes {
			rate := req.Rates[code]
			if err := repo.DeactivatePair(ctx, code, req.BaseCurrency); err != nil {
				return fmt.Errorf("deactivate %s/%s: %w", code, req.BaseCurrency, err)
			}
			rec, err := repo.Insert(ctx, ExchangeRate{
				FromCurrency:  code,
				ToCurrency:    req.BaseCurrency,
				Rate:          rate,
				InverseRate:   1 / rate,
				EffectiveDate: req.EffectiveDate,
				Source:        req.Source,
			})
			if err != nil {
				return fmt.Errorf("insert %s/%s: %w", code, req.BaseCurrency, err)
			}
			created = append(created, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("exchange rates updated",
		slog.String("base", req.BaseCurrency),
		slog.String("effective", req.EffectiveDate.Format("2006-01-02")),
		slog.Int("count", len(created)))
	return created, nil
}
