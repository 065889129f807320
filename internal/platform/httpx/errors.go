package httpx

import (
	"errors"
	"net/http"

	"github.com/waypoint-tms/waypoint-tms/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNoApplicableCharges):
		Problem(w, http.StatusUnprocessableEntity, "No Applicable Charges", err.Error())
	case errors.Is(err, shared.ErrUnresolvableVendorRate):
		Problem(w, http.StatusUnprocessableEntity, "Unresolvable Vendor Rate", err.Error())
	case errors.Is(err, shared.ErrIncompletePricing):
		Problem(w, http.StatusConflict, "Incomplete Pricing", err.Error())
	case errors.Is(err, shared.ErrInvalidStatus):
		Problem(w, http.StatusConflict, "Invalid Status Transition", err.Error())
	case errors.Is(err, shared.ErrBusinessRule):
		Problem(w, http.StatusUnprocessableEntity, "Business Rule Violation", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
