package calculator

import "strings"

// Feet per unit for every measurement unit accepted in Area mode.
var unitsPerFoot = map[string]float64{
	"ft":   1,
	"inch": 12,
	"cm":   30.48,
	"mm":   304.8,
}

// ToFeet converts a linear measurement to feet.
// Unknown units convert to 0 rather than failing, so an item with an
// unrecognized unit prices at zero; use KnownUnit to reject such input upstream.
func ToFeet(value float64, unit string) float64 {
	divisor, ok := unitsPerFoot[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0
	}
	return value / divisor
}

// KnownUnit reports whether ToFeet recognizes the unit.
func KnownUnit(unit string) bool {
	_, ok := unitsPerFoot[strings.ToLower(strings.TrimSpace(unit))]
	return ok
}
