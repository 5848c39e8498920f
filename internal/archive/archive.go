// Package archive stores saved bills per mode, newest first.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/billbook/internal/models"
	"github.com/mmynk/billbook/internal/storage"
)

// DateLayout is the dd-mm-yyyy format used for bill dates.
const DateLayout = "02-01-2006"

// Archive reads and writes the billHistory<Mode> lists.
// It holds no state of its own; every call goes to the store.
type Archive struct {
	store storage.Store
	now   func() time.Time
}

// Option configures an Archive.
type Option func(*Archive)

// WithClock sets the time source for default entry dates.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) { a.now = now }
}

// New creates an Archive over the given store.
func New(store storage.Store, opts ...Option) *Archive {
	a := &Archive{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewEntry builds an archive entry for the bill.
// Data is the bill's JSON encoding; ID is a fresh UUIDv7.
func (a *Archive) NewEntry(bill models.Bill) (models.ArchiveEntry, error) {
	data, err := json.Marshal(bill)
	if err != nil {
		return models.ArchiveEntry{}, fmt.Errorf("failed to encode bill: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return models.ArchiveEntry{}, fmt.Errorf("failed to generate archive id: %w", err)
	}

	date := strings.TrimSpace(bill.Customer.Date)
	if date == "" {
		date = a.now().Format(DateLayout)
	}

	return models.ArchiveEntry{
		ID:    id.String(),
		Mode:  bill.Mode,
		Title: Title(bill),
		Date:  date,
		Data:  data,
	}, nil
}

// Title formats "<customer> - <bill no> (<MODE>)" with placeholders for blanks.
func Title(bill models.Bill) string {
	name := strings.TrimSpace(bill.Customer.Name)
	if name == "" {
		name = "Unnamed Bill"
	}
	billNo := strings.TrimSpace(bill.Customer.BillNo)
	if billNo == "" {
		billNo = "No Bill Number"
	}
	return fmt.Sprintf("%s - %s (%s)", name, billNo, bill.Mode.Label())
}

// List returns the archive of a mode, newest first.
func (a *Archive) List(ctx context.Context, mode models.Mode) ([]models.ArchiveEntry, error) {
	entries, _, err := storage.GetJSON[[]models.ArchiveEntry](ctx, a.store, storage.BillHistoryKey(mode))
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.ArchiveEntry{}
	}
	return entries, nil
}

// Save prepends entry to its mode's archive.
// It returns false without writing when entry.Data equals the newest entry's data,
// so repeated saves of an unchanged bill leave a single entry.
func (a *Archive) Save(ctx context.Context, entry models.ArchiveEntry) (bool, error) {
	entries, err := a.List(ctx, entry.Mode)
	if err != nil {
		return false, err
	}
	if len(entries) > 0 && sameData(entries[0].Data, entry.Data) {
		return false, nil
	}

	entries = append([]models.ArchiveEntry{entry}, entries...)
	if err := storage.SetJSON(ctx, a.store, storage.BillHistoryKey(entry.Mode), entries); err != nil {
		return false, err
	}
	return true, nil
}

// Find looks an entry up by id in every mode's archive.
// Entries without a stored mode are attributed to the archive they were found in.
func (a *Archive) Find(ctx context.Context, id string) (models.ArchiveEntry, bool, error) {
	for _, mode := range models.Modes {
		entries, err := a.List(ctx, mode)
		if err != nil {
			return models.ArchiveEntry{}, false, err
		}
		for _, e := range entries {
			if e.ID != id {
				continue
			}
			if !e.Mode.Valid() {
				e.Mode = mode
			}
			return e, true, nil
		}
	}
	return models.ArchiveEntry{}, false, nil
}

// Remove deletes every entry with the id from both modes' archives.
//
// Ids are not guaranteed to be mode-specific in older data, so this does not
// stop at the first match. It returns the number of entries removed.
func (a *Archive) Remove(ctx context.Context, id string) (int, error) {
	removed := 0
	for _, mode := range models.Modes {
		entries, err := a.List(ctx, mode)
		if err != nil {
			return removed, err
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.ID == id {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == len(entries) {
			continue
		}
		if err := storage.SetJSON(ctx, a.store, storage.BillHistoryKey(mode), kept); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// sameData compares two JSON documents by value, so key order and
// whitespace from older writers don't defeat the check.
func sameData(a, b json.RawMessage) bool {
	var va, vb any
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		// Only corrupt entries get here; ArchiveEntry.UnmarshalJSON has already
		// unwrapped legacy string-encoded data. Corrupt bytes equal only themselves.
		return bytes.Equal(a, b)
	}
	return reflect.DeepEqual(va, vb)
}
