package storage

import "github.com/mmynk/billbook/internal/models"

// Shared keys.
const (
	KeyCurrentMode   = "currentMode"
	KeyTaxSettings   = "taxSettings"
	KeySelectedTheme = "selectedTheme"
)

// BillDataKey holds the live bill of a mode.
func BillDataKey(m models.Mode) string { return "billData" + m.KeySuffix() }

// BillHistoryKey holds the bill archive of a mode, newest first.
func BillHistoryKey(m models.Mode) string { return "billHistory" + m.KeySuffix() }

// BillUndoKey holds the undo/redo stack of a mode.
func BillUndoKey(m models.Mode) string { return "billUndo" + m.KeySuffix() }
