package vendors

// Vendor is a transport supplier that publishes rate cards.
type Vendor struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}
