package currencies

// Currency is a master record for an ISO 4217 currency.
type Currency struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}
