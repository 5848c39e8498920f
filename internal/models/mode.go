package models

import (
	"fmt"
	"strings"
)

// Mode selects which line item variant is active.
// Each mode owns an independent bill, id counter, undo history and archive.
type Mode string

const (
	// ModeArea prices items by width × height (converted to feet) × rate × quantity.
	ModeArea Mode = "area"

	// ModeManual prices items by quantity × rate.
	ModeManual Mode = "manual"
)

// Modes lists every mode in a stable order.
var Modes = []Mode{ModeArea, ModeManual}

// ParseMode parses a persisted or user-supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeArea:
		return ModeArea, nil
	case ModeManual:
		return ModeManual, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeArea || m == ModeManual
}

// Other returns the opposite mode.
func (m Mode) Other() Mode {
	if m == ModeManual {
		return ModeArea
	}
	return ModeManual
}

// KeySuffix is the capitalized form used in storage keys (billDataArea, billHistoryManual).
func (m Mode) KeySuffix() string {
	if m == ModeManual {
		return "Manual"
	}
	return "Area"
}

// Label is the upper-case form used in archive titles.
func (m Mode) Label() string {
	return strings.ToUpper(string(m))
}
