package customers

// Customer is the read-only slice of the customer master the pricing engine
// needs: identity and active status.
type Customer struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}
