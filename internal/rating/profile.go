// Package rating defines the shipment profile vocabulary shared by the
// charge applicability and vendor rate resolvers.
package rating

import "fmt"

// TransportMode is the physical mode a shipment moves by.
type TransportMode string

const (
	ModeAir  TransportMode = "AIR"
	ModeSea  TransportMode = "SEA"
	ModeRoad TransportMode = "ROAD"
	ModeRail TransportMode = "RAIL"
)

// MovementType distinguishes import, export and domestic flows.
type MovementType string

const (
	MovementImport   MovementType = "IMPORT"
	MovementExport   MovementType = "EXPORT"
	MovementDomestic MovementType = "DOMESTIC"
)

// Terms is an Incoterms code (FOB, CIF, ...). AllTerms is the wildcard used
// by charge rules that apply regardless of trade terms.
type Terms string

// AllTerms matches every terms value during charge resolution.
const AllTerms Terms = "ALL_TERMS"

// Profile is the (mode, movement, terms) triple that drives rule resolution.
type Profile struct {
	Mode     TransportMode `json:"mode"`
	Movement MovementType  `json:"movement"`
	Terms    Terms         `json:"terms"`
}

// Validate checks the profile holds known mode and movement values and a
// non-empty terms code.
func (p Profile) Validate() error {
	switch p.Mode {
	case ModeAir, ModeSea, ModeRoad, ModeRail:
	default:
		return fmt.Errorf("unknown transport mode %q", p.Mode)
	}
	switch p.Movement {
	case MovementImport, MovementExport, MovementDomestic:
	default:
		return fmt.Errorf("unknown movement type %q", p.Movement)
	}
	if p.Terms == "" {
		return fmt.Errorf("terms required")
	}
	return nil
}
