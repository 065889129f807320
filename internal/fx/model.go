package fx

import "time"

// ExchangeRate is one record in the append-only rate log. Updating a pair
// never mutates an existing row; the prior active row is deactivated and a
// new row inserted, so quotations issued earlier keep their historical
// conversions.
type ExchangeRate struct {
	ID            int64     `json:"id"`
	FromCurrency  string    `json:"from_currency"`
	ToCurrency    string    `json:"to_currency"`
	Rate          float64   `json:"rate"`
	InverseRate   float64   `json:"inverse_rate"`
	EffectiveDate time.Time `json:"effective_date"`
	Source        string    `json:"source"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}
