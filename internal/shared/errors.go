// Package shared holds cross-cutting primitives for the rating and pricing
// engine: the domain error taxonomy and per-quotation locking.
package shared

import "errors"

var (
	// ErrNotFound indicates a missing charge, tax code, exchange rate or
	// vendor rate header.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness conflict on write.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates a malformed rule combination, invalid date
	// range or an out-of-range rate.
	ErrValidation = errors.New("validation failed")
	// ErrNoApplicableCharges means charge resolution produced an empty set;
	// costing cannot proceed.
	ErrNoApplicableCharges = errors.New("no applicable charges")
	// ErrUnresolvableVendorRate means vendor rate resolution produced an
	// incomplete result needed to proceed.
	ErrUnresolvableVendorRate = errors.New("unresolvable vendor rate")
	// ErrIncompletePricing indicates finalize was attempted while sale
	// lines are still unpriced.
	ErrIncompletePricing = errors.New("incomplete pricing")
	// ErrBusinessRule indicates a domain rule violation, e.g. updating the
	// base currency against itself.
	ErrBusinessRule = errors.New("business rule violation")
	// ErrInvalidStatus indicates a disallowed quotation status transition.
	ErrInvalidStatus = errors.New("invalid status transition")
)
