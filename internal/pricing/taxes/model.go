package taxes

import (
	"fmt"

	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

var (
	// ErrMissingTaxConfiguration means the charge has no default tax code.
	ErrMissingTaxConfiguration = fmt.Errorf("%w: charge has no tax code configured", shared.ErrBusinessRule)
	// ErrInactiveTaxCode means the configured tax code has been deactivated.
	ErrInactiveTaxCode = fmt.Errorf("%w: configured tax code is inactive", shared.ErrBusinessRule)
)

// TaxCode is one named tax rate, e.g. GST 18%.
type TaxCode struct {
	ID       int64   `json:"id"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Rate     float64 `json:"rate"`
	IsActive bool    `json:"is_active"`
}

// TaxResult is the tax computation for one sale price.
type TaxResult struct {
	TaxCodeID int64   `json:"tax_code_id"`
	TaxCode   string  `json:"tax_code"`
	Rate      float64 `json:"tax_rate"`
	Amount    float64 `json:"tax_amount"`
	Total     float64 `json:"total_amount"`
}

// BatchItem is one (sale price, charge) pair in a batch computation.
type BatchItem struct {
	SalePrice float64 `json:"sale_price"`
	ChargeID  int64   `json:"charge_id"`
}

// BatchResult aggregates per-item tax results.
type BatchResult struct {
	Items      []TaxResult `json:"items"`
	SaleTotal  float64     `json:"sale_total"`
	TaxTotal   float64     `json:"tax_total"`
	GrandTotal float64     `json:"grand_total"`
}
