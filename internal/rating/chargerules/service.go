package chargerules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/charges"
	"github.com/waypoint-tms/waypoint-tms/internal/rating"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

// Service resolves which charge types apply to a shipment profile and
// maintains the charge rule table.
type Service struct {
	logger     *slog.Logger
	repo       Repository
	chargeRepo charges.Repository
}

func NewService(logger *slog.Logger, repo Repository, chargeRepo charges.Repository) *Service {
	return &Service{logger: logger, repo: repo, chargeRepo: chargeRepo}
}

// ApplicableCharges returns the set of charges that must be costed for the
// profile. Exact-terms and ALL_TERMS matches are merged and deduplicated by
// charge. An empty result is a hard stop for costing, not a warning.
func (s *Service) ApplicableCharges(ctx context.Context, profile rating.Profile) ([]ApplicableCharge, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}

	matched, err := s.repo.FindApplicable(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("find applicable charges: %w", err)
	}

	seen := make(map[int64]struct{}, len(matched))
	out := make([]ApplicableCharge, 0, len(matched))
	for _, ac := range matched {
		if _, ok := seen[ac.ChargeID]; ok {
			continue
		}
		seen[ac.ChargeID] = struct{}{}
		out = append(out, ac)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s %s %s", shared.ErrNoApplicableCharges,
			profile.Mode, profile.Movement, profile.Terms)
	}
	return out, nil
}

// AddRule registers a charge for a shipment profile. The operation is
// idempotent: an existing inactive tuple is reactivated and an existing
// active tuple is returned unchanged.
func (s *Service) AddRule(ctx context.Context, profile rating.Profile, chargeID int64, notes *string) (*ChargeRule, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}

	charge, err := s.chargeRepo.Get(ctx, chargeID)
	if err != nil {
		return nil, fmt.Errorf("verify charge: %w", err)
	}
	if !charge.IsActive {
		return nil, fmt.Errorf("%w: charge %s is inactive", shared.ErrValidation, charge.Code)
	}

	existing, err := s.repo.GetRule(ctx, profile, chargeID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("lookup rule: %w", err)
	}
	if existing != nil {
		if existing.IsActive {
			return existing, nil
		}
		if err := s.repo.SetActive(ctx, existing.ID, true); err != nil {
			return nil, fmt.Errorf("reactivate rule: %w", err)
		}
		existing.IsActive = true
		s.logger.Info("charge rule reactivated", slog.Int64("rule_id", existing.ID))
		return existing, nil
	}

	created, err := s.repo.Insert(ctx, ChargeRule{
		Mode:     profile.Mode,
		Movement: profile.Movement,
		Terms:    profile.Terms,
		ChargeID: chargeID,
		Notes:    notes,
	})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			// Lost a race with a concurrent add; the tuple exists now.
			return s.repo.GetRule(ctx, profile, chargeID)
		}
		return nil, fmt.Errorf("insert rule: %w", err)
	}
	return &created, nil
}

// RemoveRule deactivates the rule for the given tuple. Returns false when
// no active rule existed.
func (s *Service) RemoveRule(ctx context.Context, profile rating.Profile, chargeID int64) (bool, error) {
	if err := profile.Validate(); err != nil {
		return false, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}

	existing, err := s.repo.GetRule(ctx, profile, chargeID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup rule: %w", err)
	}
	if !existing.IsActive {
		return false, nil
	}
	if err := s.repo.SetActive(ctx, existing.ID, false); err != nil {
		return false, fmt.Errorf("deactivate rule: %w", err)
	}
	return true, nil
}
