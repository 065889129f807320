package quotations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/waypoint-tms/waypoint-tms/internal/masterdata/customers"
	"github.com/waypoint-tms/waypoint-tms/internal/observability"
	"github.com/waypoint-tms/waypoint-tms/internal/pricing/margins"
	"github.com/waypoint-tms/waypoint-tms/internal/pricing/taxes"
	"github.com/waypoint-tms/waypoint-tms/internal/rating"
	"github.com/waypoint-tms/waypoint-tms/internal/rating/chargerules"
	"github.com/waypoint-tms/waypoint-tms/internal/rating/dimensions"
	"github.com/waypoint-tms/waypoint-tms/internal/rating/vendorrates"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

// Notifier dispatches quotation status-change alerts. A nil notifier is a
// no-op; dispatch failures never fail the state change itself.
type Notifier interface {
	StatusChanged(ctx context.Context, quotationID int64, from, to Status) error
}

// The resolver interfaces below are the slices of the rating and pricing
// services the orchestrators consume.
type ChargeResolver interface {
	ApplicableCharges(ctx context.Context, profile rating.Profile) ([]chargerules.ApplicableCharge, error)
}

type CostResolver interface {
	MatchingCosts(ctx context.Context, query vendorrates.CostQuery) ([]vendorrates.VendorCost, error)
}

type RateResolver interface {
	Rate(ctx context.Context, from, to string, asOf time.Time) (float64, error)
}

type MarginResolver interface {
	SalePrice(ctx context.Context, cost float64, chargeID, customerID *int64) (margins.Resolution, error)
}

type TaxResolver interface {
	TaxFor(ctx context.Context, salePrice float64, chargeID int64) (taxes.TaxResult, error)
}

// Deps collects the collaborators the quotation service composes.
type Deps struct {
	Repo         Repository
	CustomerRepo customers.Repository
	ChargeRules  ChargeResolver
	VendorRates  CostResolver
	FX           RateResolver
	Margins      MarginResolver
	Taxes        TaxResolver
	Locks        *shared.QuotationLocks
	Metrics      *observability.Metrics
	Notifier     Notifier

	BaseCurrency      string
	ApprovalThreshold float64
}

// Service owns the quotation lifecycle: creation, the costing and pricing
// runs, overrides and finalization.
type Service struct {
	logger *slog.Logger
	deps   Deps
}

func NewService(logger *slog.Logger, deps Deps) *Service {
	if deps.Locks == nil {
		deps.Locks = shared.NewQuotationLocks()
	}
	return &Service{logger: logger, deps: deps}
}

// CreateInput describes a new quotation request.
type CreateInput struct {
	CustomerID    int64
	OriginID      int64
	DestinationID int64
	Mode          rating.TransportMode
	Movement      rating.MovementType
	Terms         rating.Terms
	QuoteDate     time.Time
	Pieces        []dimensions.Piece
}

// Create computes dimensional totals and stores a draft quotation.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Quotation, error) {
	profile := rating.Profile{Mode: input.Mode, Movement: input.Movement, Terms: input.Terms}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	if input.CustomerID <= 0 || input.OriginID <= 0 || input.DestinationID <= 0 {
		return nil, fmt.Errorf("%w: customer, origin and destination are required", shared.ErrValidation)
	}

	customer, err := s.deps.CustomerRepo.Get(ctx, input.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}
	if !customer.IsActive {
		return nil, fmt.Errorf("%w: customer %s is inactive", shared.ErrValidation, customer.Code)
	}

	dims, err := dimensions.Calculate(input.Mode, input.Pieces)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}

	if input.QuoteDate.IsZero() {
		input.QuoteDate = time.Now().UTC()
	}

	q := Quotation{
		Reference:      newReference(),
		CustomerID:     input.CustomerID,
		OriginID:       input.OriginID,
		DestinationID:  input.DestinationID,
		Mode:           input.Mode,
		Movement:       input.Movement,
		Terms:          input.Terms,
		Status:         StatusDraft,
		QuoteDate:      input.QuoteDate,
		VolumeCBM:      dims.VolumeCBM,
		ActualWeightKG: dims.ActualWeightKG,
		ChargeableKG:   dims.ChargeableKG,
	}
	id, err := s.deps.Repo.Insert(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("insert quotation: %w", err)
	}
	q.ID = id

	s.logger.Info("quotation created",
		slog.Int64("quotation_id", id),
		slog.String("reference", q.Reference),
		slog.Float64("chargeable_kg", q.ChargeableKG))
	return &q, nil
}

func newReference() string {
	return "QTN-" + strings.ToUpper(uuid.NewString()[:8])
}

// Get loads a quotation with its cost and sale lines.
func (s *Service) Get(ctx context.Context, id int64) (*Quotation, []CostLine, []SaleLine, error) {
	q, err := s.deps.Repo.Get(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	costLines, err := s.deps.Repo.ListCostLines(ctx, id)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list cost lines: %w", err)
	}
	saleLines, err := s.deps.Repo.ListSaleLines(ctx, id)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list sale lines: %w", err)
	}
	return q, costLines, saleLines, nil
}

// transition moves the quotation through its state machine and notifies.
func (s *Service) transition(ctx context.Context, repo Repository, q *Quotation, to Status) error {
	if err := checkTransition(q.Status, to); err != nil {
		return err
	}
	if err := repo.UpdateStatus(ctx, q.ID, to); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	from := q.Status
	q.Status = to
	s.notifyStatusChange(ctx, q.ID, from, to)
	return nil
}

func (s *Service) notifyStatusChange(ctx context.Context, id int64, from, to Status) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.StatusChanged(ctx, id, from, to); err != nil {
		s.logger.Warn("status change notification failed",
			slog.Int64("quotation_id", id), slog.Any("error", err))
	}
}

// Approve moves a pending-approval quotation to sent.
func (s *Service) Approve(ctx context.Context, id int64) (*Quotation, error) {
	return s.applyTransition(ctx, id, StatusSent, StatusPendingApproval)
}

// Reject returns a pending-approval quotation to draft.
func (s *Service) Reject(ctx context.Context, id int64) (*Quotation, error) {
	return s.applyTransition(ctx, id, StatusDraft, StatusPendingApproval)
}

// MarkWon records a customer acceptance.
func (s *Service) MarkWon(ctx context.Context, id int64) (*Quotation, error) {
	return s.applyTransition(ctx, id, StatusWon, StatusSent)
}

// MarkLost records a customer rejection.
func (s *Service) MarkLost(ctx context.Context, id int64) (*Quotation, error) {
	return s.applyTransition(ctx, id, StatusLost, StatusSent)
}

// Cancel abandons a quotation from any pre-terminal state.
func (s *Service) Cancel(ctx context.Context, id int64) (*Quotation, error) {
	return s.applyTransition(ctx, id, StatusCancelled)
}

func (s *Service) applyTransition(ctx context.Context, id int64, to Status, allowedFrom ...Status) (*Quotation, error) {
	s.deps.Locks.Lock(id)
	defer s.deps.Locks.Unlock(id)

	q, err := s.deps.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(allowedFrom) > 0 {
		ok := false
		for _, from := range allowedFrom {
			if q.Status == from {
				ok = true
				break
			}
		}
		if !ok {
			return nil, fmt.Errorf("%w: quotation is %s", shared.ErrInvalidStatus, q.Status)
		}
	}
	if err := s.transition(ctx, s.deps.Repo, q, to); err != nil {
		return nil, err
	}
	return q, nil
}
