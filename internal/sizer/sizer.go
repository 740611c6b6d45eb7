// Package sizer turns a signal into a target position size. It provides a
// fixed-size sizer and a volatility-adaptive sizer driven by Wilder's
// average true range.
package sizer

import (
	"math"

	"github.com/rxtech-lab/backtestcore/internal/types"
)

// Sizer converts a signal on a symbol into a target position quantity.
type Sizer interface {
	// Size returns the target quantity to hold for symbol given the latest
	// bar and the signal direction. equity is total account equity,
	// used to scale risk-based sizing.
	Size(symbol string, bar types.Bar, direction types.SignalDirection, equity float64) float64
}

// FixedSizer always targets the same absolute quantity, signed by direction.
type FixedSizer struct {
	Quantity      float64
	DecimalPlaces int
}

// NewFixed creates a FixedSizer.
func NewFixed(quantity float64, decimalPlaces int) *FixedSizer {
	return &FixedSizer{Quantity: quantity, DecimalPlaces: decimalPlaces}
}

func (f *FixedSizer) Size(_ string, _ types.Bar, direction types.SignalDirection, _ float64) float64 {
	qty := roundTo(f.Quantity, f.DecimalPlaces)

	switch direction {
	case types.SignalBullish:
		return qty
	case types.SignalBearish:
		return -qty
	default:
		return 0
	}
}

func roundTo(v float64, places int) float64 {
	if places < 0 {
		return v
	}

	scale := math.Pow(10, float64(places))

	return math.Floor(v*scale) / scale
}
