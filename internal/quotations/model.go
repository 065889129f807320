package quotations

import (
	"fmt"
	"time"

	"github.com/waypoint-tms/waypoint-tms/internal/rating"
	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

// Status is the quotation lifecycle state.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingCosting  Status = "PENDING_COSTING"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusSent            Status = "SENT"
	StatusWon             Status = "WON"
	StatusLost            Status = "LOST"
	StatusCancelled       Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusDraft:           {StatusPendingCosting, StatusCancelled},
	StatusPendingCosting:  {StatusPendingApproval, StatusSent, StatusCancelled},
	StatusPendingApproval: {StatusSent, StatusDraft, StatusCancelled},
	StatusSent:            {StatusWon, StatusLost, StatusCancelled},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: cannot move quotation from %s to %s", shared.ErrInvalidStatus, from, to)
	}
	return nil
}

// Quotation is one customer quote for a shipment. Dimensional totals are
// computed once at creation; cost and sale lines are populated by the
// costing and pricing runs.
type Quotation struct {
	ID             int64                `json:"id"`
	Reference      string               `json:"reference"`
	CustomerID     int64                `json:"customer_id"`
	OriginID       int64                `json:"origin_id"`
	DestinationID  int64                `json:"destination_id"`
	Mode           rating.TransportMode `json:"mode"`
	Movement       rating.MovementType  `json:"movement"`
	Terms          rating.Terms         `json:"terms"`
	Status         Status               `json:"status"`
	QuoteDate      time.Time            `json:"quote_date"`
	VolumeCBM      float64              `json:"volume_cbm"`
	ActualWeightKG float64              `json:"actual_weight_kg"`
	ChargeableKG   float64              `json:"chargeable_kg"`
	TotalCostBase  float64              `json:"total_cost_base"`
	TotalSaleBase  float64              `json:"total_sale_base"`
	TotalTaxBase   float64              `json:"total_tax_base"`
	GrandTotal     float64              `json:"grand_total"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Profile returns the shipment profile the quotation rates against.
func (q Quotation) Profile() rating.Profile {
	return rating.Profile{Mode: q.Mode, Movement: q.Movement, Terms: q.Terms}
}

// VendorOption is one vendor's ranked cost for a charge. Rank 1 is the
// cheapest in base currency and the default selection.
type VendorOption struct {
	VendorID     int64   `json:"vendor_id"`
	Rank         int     `json:"rank"`
	Rate         float64 `json:"rate"`
	Currency     string  `json:"currency"`
	IsFixed      bool    `json:"is_fixed"`
	ExchangeRate float64 `json:"exchange_rate"`
	CostBase     float64 `json:"cost_base"`
}

// CostLine is the cost side of one applicable charge. Options holds the
// full vendor ranking so selection overrides stay auditable. A line with no
// options is a zero-cost placeholder awaiting manual entry.
type CostLine struct {
	ID               int64          `json:"id"`
	QuotationID      int64          `json:"quotation_id"`
	ChargeID         int64          `json:"charge_id"`
	Options          []VendorOption `json:"options"`
	SelectedVendorID *int64         `json:"selected_vendor_id,omitempty"`
	Rate             float64        `json:"rate"`
	Currency         string         `json:"currency"`
	ExchangeRate     float64        `json:"exchange_rate"`
	TotalCostBase    float64        `json:"total_cost_base"`
	IsManual         bool           `json:"is_manual"`
	CreatedAt        time.Time      `json:"created_at"`
}

// SaleLine is the sale side of one charge, derived from its cost line and
// recomputed whenever an override changes the sale price.
type SaleLine struct {
	ID           int64     `json:"id"`
	QuotationID  int64     `json:"quotation_id"`
	ChargeID     int64     `json:"charge_id"`
	CostBase     float64   `json:"cost_base"`
	MarginPct    float64   `json:"margin_pct"`
	MarginRuleID *int64    `json:"margin_rule_id,omitempty"`
	SalePrice    float64   `json:"sale_price"`
	TaxCodeID    int64     `json:"tax_code_id"`
	TaxRate      float64   `json:"tax_rate"`
	TaxAmount    float64   `json:"tax_amount"`
	LineTotal    float64   `json:"line_total"`
	IsOverridden bool      `json:"is_overridden"`
	CreatedAt    time.Time `json:"created_at"`
}
