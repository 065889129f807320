// Package dimensions converts raw piece dimensions into cubic volume,
// volumetric weight and the chargeable weight used by rate matching.
package dimensions

import (
	"errors"
	"fmt"

	"github.com/waypoint-tms/waypoint-tms/internal/rating"
)

// ErrInvalidDimension indicates a non-positive length, width, height or
// piece count, or a negative weight.
var ErrInvalidDimension = errors.New("invalid dimension")

// Volumetric divisors per mode, in kg per cubic meter. This table is the
// single source of truth; no other package defines its own constants.
var modeDivisors = map[rating.TransportMode]float64{
	rating.ModeAir:  167,
	rating.ModeSea:  1000,
	rating.ModeRoad: 333,
	rating.ModeRail: 250,
}

// Piece is one dimension row: identical pieces sharing dimensions and weight.
type Piece struct {
	LengthCM       float64 `json:"length_cm"`
	WidthCM        float64 `json:"width_cm"`
	HeightCM       float64 `json:"height_cm"`
	Count          int     `json:"count"`
	WeightPerPiece float64 `json:"weight_per_piece_kg"`
}

// Result aggregates the computed totals across all pieces.
type Result struct {
	VolumeCBM        float64 `json:"volume_cbm"`
	ActualWeightKG   float64 `json:"actual_weight_kg"`
	VolumetricKG     float64 `json:"volumetric_weight_kg"`
	ChargeableKG     float64 `json:"chargeable_weight_kg"`
	DivisorApplied   float64 `json:"divisor_applied"`
}

// Divisor returns the volumetric divisor for a mode.
func Divisor(mode rating.TransportMode) (float64, error) {
	d, ok := modeDivisors[mode]
	if !ok {
		return 0, fmt.Errorf("%w: no volumetric divisor for mode %q", ErrInvalidDimension, mode)
	}
	return d, nil
}

// Calculate computes volume, actual weight, volumetric weight and chargeable
// weight for the given pieces. Chargeable weight is the greater of actual
// and volumetric weight for every mode.
func Calculate(mode rating.TransportMode, pieces []Piece) (Result, error) {
	divisor, err := Divisor(mode)
	if err != nil {
		return Result{}, err
	}
	if len(pieces) == 0 {
		return Result{}, fmt.Errorf("%w: at least one piece required", ErrInvalidDimension)
	}

	var res Result
	res.DivisorApplied = divisor
	for i, p := range pieces {
		if p.LengthCM <= 0 || p.WidthCM <= 0 || p.HeightCM <= 0 || p.Count <= 0 {
			return Result{}, fmt.Errorf("%w: piece %d has non-positive dimensions", ErrInvalidDimension, i+1)
		}
		if p.WeightPerPiece < 0 {
			return Result{}, fmt.Errorf("%w: piece %d has negative weight", ErrInvalidDimension, i+1)
		}
		res.VolumeCBM += p.LengthCM * p.WidthCM * p.HeightCM * float64(p.Count) / 1_000_000
		res.ActualWeightKG += p.WeightPerPiece * float64(p.Count)
	}

	res.VolumetricKG = res.VolumeCBM * divisor
	res.ChargeableKG = res.ActualWeightKG
	if res.VolumetricKG > res.ChargeableKG {
		res.ChargeableKG = res.VolumetricKG
	}
	return res, nil
}
