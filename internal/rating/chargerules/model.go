package chargerules

import (
	"time"

	"github.com/waypoint-tms/waypoint-tms/internal/rating"
)

// ChargeRule maps a shipment profile to a charge that must be costed.
// Logical uniqueness is on (mode, movement, terms, charge_id); rows are
// deactivated, never deleted.
type ChargeRule struct {
	ID        int64                `json:"id"`
	Mode      rating.TransportMode `json:"mode"`
	Movement  rating.MovementType  `json:"movement"`
	Terms     rating.Terms         `json:"terms"`
	ChargeID  int64                `json:"charge_id"`
	IsActive  bool                 `json:"is_active"`
	Notes     *string              `json:"notes,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// ApplicableCharge is one resolved charge for a shipment profile, joined
// with the charge master fields the costing run needs.
type ApplicableCharge struct {
	ChargeID  int64  `json:"charge_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	UOM       string `json:"uom"`
	TaxCodeID *int64 `json:"tax_code_id,omitempty"`
}
