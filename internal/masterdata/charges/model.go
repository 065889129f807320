package charges

// Charge represents a billable charge type (freight, handling, documentation).
type Charge struct {
	ID        int64   `json:"id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	UOM       string  `json:"uom"`
	TaxCodeID *int64  `json:"tax_code_id,omitempty"`
	IsActive  bool    `json:"is_active"`
}
