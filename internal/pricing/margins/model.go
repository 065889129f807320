package margins

// Specificity names the cascade level a margin resolution matched at.
type Specificity string

const (
	SpecificityExact        Specificity = "CHARGE_CUSTOMER"
	SpecificityChargeOnly   Specificity = "CHARGE_ONLY"
	SpecificityCustomerOnly Specificity = "CUSTOMER_ONLY"
	SpecificityGlobal       Specificity = "GLOBAL"
	SpecificityNone         Specificity = "NONE"
)

// MarginRule maps a cost to a sale price. ChargeID and CustomerID are both
// optional; the more of them a rule pins down, the more specific it is.
// Among rules of equal specificity the highest precedence wins.
type MarginRule struct {
	ID         int64   `json:"id"`
	Precedence int     `json:"precedence"`
	ChargeID   *int64  `json:"charge_id,omitempty"`
	CustomerID *int64  `json:"customer_id,omitempty"`
	MarginPct  float64 `json:"margin_pct"`
	MarginFlat float64 `json:"margin_flat"`
	IsActive   bool    `json:"is_active"`
}

// Resolution is the outcome of a sale price calculation.
type Resolution struct {
	SalePrice   float64     `json:"sale_price"`
	MarginPct   float64     `json:"margin_pct"`
	RuleID      *int64      `json:"rule_id,omitempty"`
	Specificity Specificity `json:"specificity"`
}

// RuleIssue is one finding produced by administrative rule validation.
type RuleIssue struct {
	Severity string `json:"severity"`
	RuleID   *int64 `json:"rule_id,omitempty"`
	Detail   string `json:"detail"`
}
