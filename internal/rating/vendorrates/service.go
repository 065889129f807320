package vendorrates

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/vendors"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

// Service resolves vendor costs for a shipment and maintains the vendor
// rate cards.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	vendors vendors.Repository
}

func NewService(logger *slog.Logger, repo Repository, vendorRepo vendors.Repository) *Service {
	return &Service{logger: logger, repo: repo, vendors: vendorRepo}
}

// MatchingCosts returns every vendor's matched cost per charge for the
// query. A fixed line contributes its rate as-is; a variable line
// contributes rate times chargeable weight. When the same vendor has more
// than one matching line for a charge the cheapest wins. No match at all
// is not an error here; the caller decides what an empty result means.
func (s *Service) MatchingCosts(ctx context.Context, query CostQuery) ([]VendorCost, error) {
	if err := query.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	if query.ChargeableKG <= 0 {
		return nil, fmt.Errorf("%w: chargeable weight must be positive", shared.ErrValidation)
	}
	if query.AsOf.IsZero() {
		query.AsOf = time.Now().UTC()
	}

	matched, err := s.repo.FindMatchingLines(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("find vendor rate lines: %w", err)
	}

	type key struct {
		vendorID int64
		chargeID int64
	}
	best := make(map[key]VendorCost, len(matched))
	for _, m := range matched {
		cost := m.Line.Rate
		if !m.Line.IsFixed {
			cost = m.Line.Rate * query.ChargeableKG
		}
		k := key{vendorID: m.VendorID, chargeID: m.Line.ChargeID}
		if prev, ok := best[k]; ok && prev.Cost <= cost {
			continue
		}
		best[k] = VendorCost{
			VendorID: m.VendorID,
			ChargeID: m.Line.ChargeID,
			Rate:     m.Line.Rate,
			Currency: m.Line.Currency,
			IsFixed:  m.Line.IsFixed,
			Cost:     cost,
		}
	}

	out := make([]VendorCost, 0, len(best))
	for _, vc := range best {
		out = append(out, vc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChargeID != out[j].ChargeID {
			return out[i].ChargeID < out[j].ChargeID
		}
		if out[i].Cost != out[j].Cost {
			return out[i].Cost < out[j].Cost
		}
		return out[i].VendorID < out[j].VendorID
	})
	s.annotateVendors(ctx, out)
	return out, nil
}

// annotateVendors attaches vendor codes to resolved costs. A failed lookup
// leaves the codes empty rather than failing the resolution.
func (s *Service) annotateVendors(ctx context.Context, costs []VendorCost) {
	if len(costs) == 0 {
		return
	}
	seen := make(map[int64]bool, len(costs))
	ids := make([]int64, 0, len(costs))
	for _, vc := range costs {
		if !seen[vc.VendorID] {
			seen[vc.VendorID] = true
			ids = append(ids, vc.VendorID)
		}
	}
	found, err := s.vendors.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("vendor lookup failed", slog.Any("error", err))
		return
	}
	for i := range costs {
		if v, ok := found[costs[i].VendorID]; ok {
			costs[i].VendorCode = v.Code
		}
	}
}

// CreateHeader stores a rate card with its lines after validation. Inverted
// windows, inverted slabs and overlapping slabs reject the write; slab gaps
// are returned as advisory issues alongside the created header.
func (s *Service) CreateHeader(ctx context.Context, header RateHeader) (*RateHeader, []Issue, error) {
	profile := header.Profile()
	if err := profile.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	if header.VendorID <= 0 || header.OriginID <= 0 || header.DestinationID <= 0 {
		return nil, nil, fmt.Errorf("%w: vendor, origin and destination are required", shared.ErrValidation)
	}
	vendor, err := s.vendors.Get(ctx, header.VendorID)
	if err != nil {
		return nil, nil, fmt.Errorf("verify vendor: %w", err)
	}
	if !vendor.IsActive {
		return nil, nil, fmt.Errorf("%w: vendor %s is inactive", shared.ErrValidation, vendor.Code)
	}
	if len(header.Lines) == 0 {
		return nil, nil, fmt.Errorf("%w: a rate card needs at least one line", shared.ErrValidation)
	}
	for _, line := range header.Lines {
		if line.ChargeID <= 0 {
			return nil, nil, fmt.Errorf("%w: every line needs a charge", shared.ErrValidation)
		}
		if line.Rate < 0 {
			return nil, nil, fmt.Errorf("%w: negative rate on charge %d", shared.ErrValidation, line.ChargeID)
		}
		if line.Currency == "" {
			return nil, nil, fmt.Errorf("%w: every line needs a currency", shared.ErrValidation)
		}
	}

	issues := ValidateHeader(header)
	if rejected := blocking(issues); len(rejected) > 0 {
		return nil, issues, fmt.Errorf("%w: %s", shared.ErrValidation, rejected[0].Detail)
	}

	var created *RateHeader
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		headerID, err := tx.InsertHeader(ctx, header)
		if err != nil {
			return fmt.Errorf("insert header: %w", err)
		}
		for i := range header.Lines {
			header.Lines[i].HeaderID = headerID
			lineID, err := tx.InsertLine(ctx, header.Lines[i])
			if err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
			header.Lines[i].ID = lineID
			header.Lines[i].IsActive = true
		}
		header.ID = headerID
		header.IsActive = true
		created = &header
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("vendor rate card created",
		slog.Int64("header_id", created.ID),
		slog.Int64("vendor_id", created.VendorID),
		slog.Int("lines", len(created.Lines)))
	return created, issues, nil
}

// ValidateHeaderByID re-runs validation diagnostics against a stored card.
func (s *Service) ValidateHeaderByID(ctx context.Context, id int64) ([]Issue, error) {
	header, err := s.repo.GetHeader(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load header: %w", err)
	}
	return ValidateHeader(*header), nil
}

// GetHeader loads one rate card with its lines.
func (s *Service) GetHeader(ctx context.Context, id int64) (*RateHeader, error) {
	return s.repo.GetHeader(ctx, id)
}
