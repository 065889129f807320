package fx

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"

	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

// maxRateScale bounds the decimal precision accepted for a rate.
const maxRateScale = 6

// ValidateCode checks a currency code is a well-formed ISO 4217 code.
func ValidateCode(code string) error {
	if len(code) != 3 || code != strings.ToUpper(code) {
		return fmt.Errorf("%w: currency code %q must be 3 uppercase letters", shared.ErrValidation, code)
	}
	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Errorf("%w: unknown currency code %q", shared.ErrValidation, code)
	}
	return nil
}

// ValidateRate checks a rate is positive and carries at most six decimal
// places.
func ValidateRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("%w: rate must be positive, got %v", shared.ErrValidation, rate)
	}
	scaled := rate * math.Pow10(maxRateScale)
	if math.Abs(scaled-math.Round(scaled)) > 1e-9 {
		return fmt.Errorf("%w: rate %v exceeds %d decimal places", shared.ErrValidation, rate, maxRateScale)
	}
	return nil
}
