package vendorrates

import (
	"time"

	"github.com/waypoint-tms/waypoint-tms/internal/rating"
)

// RateHeader is one versioned vendor rate card for a route and shipment
// profile, valid over a date window. Headers own an ordered collection of
// weight-slab lines.
type RateHeader struct {
	ID            int64                `json:"id"`
	VendorID      int64                `json:"vendor_id"`
	OriginID      int64                `json:"origin_id"`
	DestinationID int64                `json:"destination_id"`
	Mode          rating.TransportMode `json:"mode"`
	Movement      rating.MovementType  `json:"movement"`
	Terms         rating.Terms         `json:"terms"`
	ValidFrom     time.Time            `json:"valid_from"`
	ValidUpto     time.Time            `json:"valid_upto"`
	IsActive      bool                 `json:"is_active"`
	Lines         []RateLine           `json:"lines,omitempty"`
}

// Profile returns the shipment profile this header rates.
func (h RateHeader) Profile() rating.Profile {
	return rating.Profile{Mode: h.Mode, Movement: h.Movement, Terms: h.Terms}
}

// RateLine is one weight slab within a header. A fixed line charges its
// rate as-is; a variable line charges rate per chargeable kilogram.
type RateLine struct {
	ID        int64   `json:"id"`
	HeaderID  int64   `json:"header_id"`
	ChargeID  int64   `json:"charge_id"`
	SlabMinKG float64 `json:"slab_min_kg"`
	SlabMaxKG float64 `json:"slab_max_kg"`
	Rate      float64 `json:"rate"`
	Currency  string  `json:"currency"`
	IsFixed   bool    `json:"is_fixed"`
	IsActive  bool    `json:"is_active"`
}

// CostQuery identifies the shipment a cost lookup runs for.
type CostQuery struct {
	OriginID      int64
	DestinationID int64
	Profile       rating.Profile
	ChargeableKG  float64
	AsOf          time.Time
}

// VendorCost is one vendor's matched cost for one charge.
type VendorCost struct {
	VendorID   int64   `json:"vendor_id"`
	VendorCode string  `json:"vendor_code,omitempty"`
	ChargeID   int64   `json:"charge_id"`
	Rate       float64 `json:"rate"`
	Currency   string  `json:"currency"`
	IsFixed    bool    `json:"is_fixed"`
	Cost       float64 `json:"cost"`
}
