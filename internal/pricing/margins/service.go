package margins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/charges"
	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/customers"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

// level is one step of the margin cascade: a specificity label and the
// predicate deciding whether a rule belongs to that level for the query.
// Levels are evaluated top-down; adding a level is a data change here, not
// a control-flow change.
type level struct {
	specificity Specificity
	matches     func(rule MarginRule, chargeID, customerID *int64) bool
}

var cascade = []level{
	{SpecificityExact, func(r MarginRule, chargeID, customerID *int64) bool {
		return sameID(r.ChargeID, chargeID) && sameID(r.CustomerID, customerID)
	}},
	{SpecificityChargeOnly, func(r MarginRule, chargeID, customerID *int64) bool {
		return sameID(r.ChargeID, chargeID) && r.CustomerID == nil
	}},
	{SpecificityCustomerOnly, func(r MarginRule, chargeID, customerID *int64) bool {
		return r.ChargeID == nil && sameID(r.CustomerID, customerID)
	}},
	{SpecificityGlobal, func(r MarginRule, chargeID, customerID *int64) bool {
		return r.ChargeID == nil && r.CustomerID == nil
	}},
}

func sameID(rule, query *int64) bool {
	return rule != nil && query != nil && *rule == *query
}

// Service turns costs into sale prices through the margin rule cascade and
// maintains the rule table.
type Service struct {
	logger       *slog.Logger
	repo         Repository
	chargeRepo   charges.Repository
	customerRepo customers.Repository
}

func NewService(logger *slog.Logger, repo Repository, chargeRepo charges.Repository, customerRepo customers.Repository) *Service {
	return &Service{logger: logger, repo: repo, chargeRepo: chargeRepo, customerRepo: customerRepo}
}

// SalePrice resolves the sale price for a cost. The most specific matching
// rule wins; within one specificity level the highest precedence wins. When
// nothing matches the price is the cost with zero margin, which is a
// business default rather than an error.
func (s *Service) SalePrice(ctx context.Context, cost float64, chargeID, customerID *int64) (Resolution, error) {
	if cost < 0 {
		return Resolution{}, fmt.Errorf("%w: cost must not be negative", shared.ErrValidation)
	}

	rules, err := s.repo.ListActive(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("list margin rules: %w", err)
	}

	for _, lvl := range cascade {
		var best *MarginRule
		for i := range rules {
			rule := &rules[i]
			if !lvl.matches(*rule, chargeID, customerID) {
				continue
			}
			if best == nil || rule.Precedence > best.Precedence {
				best = rule
			}
		}
		if best != nil {
			return Resolution{
				SalePrice:   cost*(1+best.MarginPct) + best.MarginFlat,
				MarginPct:   best.MarginPct,
				RuleID:      &best.ID,
				Specificity: lvl.specificity,
			}, nil
		}
	}

	return Resolution{SalePrice: cost, MarginPct: 0, Specificity: SpecificityNone}, nil
}

// AddRule stores a new margin rule after checking that any referenced
// charge or customer exists and is active.
func (s *Service) AddRule(ctx context.Context, rule MarginRule) (*MarginRule, error) {
	if rule.MarginPct < -1 {
		return nil, fmt.Errorf("%w: margin below -100%% would produce a negative price", shared.ErrValidation)
	}
	if rule.ChargeID != nil {
		charge, err := s.chargeRepo.Get(ctx, *rule.ChargeID)
		if err != nil {
			return nil, fmt.Errorf("verify charge: %w", err)
		}
		if !charge.IsActive {
			return nil, fmt.Errorf("%w: charge %s is inactive", shared.ErrValidation, charge.Code)
		}
	}
	if rule.CustomerID != nil {
		customer, err := s.customerRepo.Get(ctx, *rule.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("verify customer: %w", err)
		}
		if !customer.IsActive {
			return nil, fmt.Errorf("%w: customer %s is inactive", shared.ErrValidation, customer.Code)
		}
	}

	created, err := s.repo.Insert(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("insert margin rule: %w", err)
	}
	s.logger.Info("margin rule created", slog.Int64("rule_id", created.ID))
	return &created, nil
}

// RemoveRule deactivates a rule. Returns false when no active rule existed.
func (s *Service) RemoveRule(ctx context.Context, id int64) (bool, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup margin rule: %w", err)
	}
	if !existing.IsActive {
		return false, nil
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return false, fmt.Errorf("deactivate margin rule: %w", err)
	}
	return true, nil
}

// ValidateRules audits the active rule set: a missing global default is a
// warning, a rule referencing an inactive or missing charge/customer is an
// error.
func (s *Service) ValidateRules(ctx context.Context) ([]RuleIssue, error) {
	rules, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list margin rules: %w", err)
	}

	var issues []RuleIssue
	hasGlobal := false
	for i := range rules {
		rule := rules[i]
		if rule.ChargeID == nil && rule.CustomerID == nil {
			hasGlobal = true
		}
		if rule.ChargeID != nil {
			charge, err := s.chargeRepo.Get(ctx, *rule.ChargeID)
			switch {
			case errors.Is(err, shared.ErrNotFound):
				issues = append(issues, RuleIssue{Severity: "error", RuleID: &rule.ID,
					Detail: fmt.Sprintf("charge %d does not exist", *rule.ChargeID)})
			case err != nil:
				return nil, fmt.Errorf("verify charge: %w", err)
			case !charge.IsActive:
				issues = append(issues, RuleIssue{Severity: "error", RuleID: &rule.ID,
					Detail: fmt.Sprintf("charge %s is inactive", charge.Code)})
			}
		}
		if rule.CustomerID != nil {
			customer, err := s.customerRepo.Get(ctx, *rule.CustomerID)
			switch {
			case errors.Is(err, shared.ErrNotFound):
				issues = append(issues, RuleIssue{Severity: "error", RuleID: &rule.ID,
					Detail: fmt.Sprintf("customer %d does not exist", *rule.CustomerID)})
			case err != nil:
				return nil, fmt.Errorf("verify customer: %w", err)
			case !customer.IsActive:
				issues = append(issues, RuleIssue{Severity: "error", RuleID: &rule.ID,
					Detail: fmt.Sprintf("customer %s is inactive", customer.Code)})
			}
		}
	}
	if !hasGlobal {
		issues = append(issues, RuleIssue{Severity: "warning",
			Detail: "no global default rule: unmatched costs fall back to zero margin"})
	}
	return issues, nil
}
