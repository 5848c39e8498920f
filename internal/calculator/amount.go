package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// AreaSqFt computes width × height in square feet.
func AreaSqFt(width, height float64, unit string) float64 {
	return ToFeet(width, unit) * ToFeet(height, unit)
}

// AreaAmount prices an Area mode line.
// Returns the rounded area and the rounded amount; the amount is computed
// from the unrounded area.
func AreaAmount(width, height float64, unit string, rate float64, quantity int) (area, amount float64) {
	raw := AreaSqFt(width, height, unit)
	return Round2(raw), Round2(raw * rate * float64(quantity))
}

// ManualAmount prices a Manual mode line: quantity × rate, rounded.
func ManualAmount(quantity, rate float64) float64 {
	return Round2(quantity * rate)
}
