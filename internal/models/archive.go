package models

import (
	"encoding/json"
	"fmt"
)

// ArchiveEntry is a saved bill in the bill archive.
// The archive is separate from undo/redo history.
type ArchiveEntry struct {
	// ID is a timestamp-derived unique id (UUIDv7).
	ID string `json:"id"`

	// Mode is the mode the bill was saved from.
	// Legacy entries may omit it.
	Mode Mode `json:"mode"`

	// Title is "<customer> - <bill no> (<MODE>)".
	Title string `json:"title"`

	// Date is the bill date, or the save date when the bill had none.
	Date string `json:"date"`

	// Data is the serialized Bill.
	Data json.RawMessage `json:"data"`
}

// UnmarshalJSON accepts Data either as a JSON object or as a JSON string
// holding the object, which is how older archives stored it.
func (e *ArchiveEntry) UnmarshalJSON(b []byte) error {
	type plain ArchiveEntry
	var raw struct {
		plain
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*e = ArchiveEntry(raw.plain)
	e.Data = raw.Data

	if len(raw.Data) > 0 && raw.Data[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw.Data, &inner); err != nil {
			return fmt.Errorf("failed to decode archived data: %w", err)
		}
		e.Data = json.RawMessage(inner)
	}
	return nil
}

// Bill decodes the archived snapshot.
func (e ArchiveEntry) Bill() (Bill, error) {
	var bill Bill
	if len(e.Data) == 0 {
		return bill, fmt.Errorf("archive entry %s has no data", e.ID)
	}
	if err := json.Unmarshal(e.Data, &bill); err != nil {
		return bill, fmt.Errorf("failed to decode archive entry %s: %w", e.ID, err)
	}
	return bill, nil
}
