package archive

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/billbook/internal/models"
	"github.com/mmynk/billbook/internal/storage"
	"github.com/mmynk/billbook/internal/storage/memory"
)

func newTestArchive() (*Archive, *memory.Store) {
	store := memory.New()
	a := New(store)
	a.now = func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }
	return a, store
}

func billFor(mode models.Mode, customer string) models.Bill {
	b := models.NewBill(mode)
	b.Customer.Name = customer
	return b
}

func TestTitle(t *testing.T) {
	b := billFor(models.ModeArea, "Alice")
	b.Customer.BillNo = "17"
	assert.Equal(t, "Alice - 17 (AREA)", Title(b))
	assert.Equal(t, "Unnamed Bill - No Bill Number (MANUAL)", Title(models.NewBill(models.ModeManual)))
}

func TestNewEntry(t *testing.T) {
	a, _ := newTestArchive()

	entry, err := a.NewEntry(billFor(models.ModeManual, "Bob"))
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, models.ModeManual, entry.Mode)
	assert.Equal(t, "09-03-2024", entry.Date, "blank bill date falls back to today")

	dated := billFor(models.ModeManual, "Bob")
	dated.Customer.Date = "01-01-2024"
	entry, err = a.NewEntry(dated)
	require.NoError(t, err)
	assert.Equal(t, "01-01-2024", entry.Date)

	other, err := a.NewEntry(dated)
	require.NoError(t, err)
	assert.NotEqual(t, entry.ID, other.ID)
}

func TestSave_NewestFirstAndDedup(t *testing.T) {
	a, _ := newTestArchive()
	ctx := context.Background()

	first, err := a.NewEntry(billFor(models.ModeArea, "Alice"))
	require.NoError(t, err)
	saved, err := a.Save(ctx, first)
	require.NoError(t, err)
	assert.True(t, saved)

	again, err := a.NewEntry(billFor(models.ModeArea, "Alice"))
	require.NoError(t, err)
	saved, err = a.Save(ctx, again)
	require.NoError(t, err)
	assert.False(t, saved, "unchanged bill must not be archived twice")

	second, err := a.NewEntry(billFor(models.ModeArea, "Carol"))
	require.NoError(t, err)
	saved, err = a.Save(ctx, second)
	require.NoError(t, err)
	assert.True(t, saved)

	entries, err := a.List(ctx, models.ModeArea)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)

	manual, err := a.List(ctx, models.ModeManual)
	require.NoError(t, err)
	assert.Empty(t, manual, "area saves must not touch the manual archive")
}

func TestSave_DedupIgnoresKeyOrder(t *testing.T) {
	a, store := newTestArchive()
	ctx := context.Background()

	legacy := []models.ArchiveEntry{{
		ID:   "1700000000000",
		Mode: models.ModeArea,
		Data: json.RawMessage(`{"items":[],"mode":"area"}`),
	}}
	require.NoError(t, storage.SetJSON(ctx, store, storage.BillHistoryKey(models.ModeArea), legacy))

	saved, err := a.Save(ctx, models.ArchiveEntry{
		ID:   "new",
		Mode: models.ModeArea,
		Data: json.RawMessage(`{"mode": "area", "items": []}`),
	})
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestFindAndRemove(t *testing.T) {
	a, store := newTestArchive()
	ctx := context.Background()

	area, err := a.NewEntry(billFor(models.ModeArea, "Alice"))
	require.NoError(t, err)
	_, err = a.Save(ctx, area)
	require.NoError(t, err)

	manual, err := a.NewEntry(billFor(models.ModeManual, "Bob"))
	require.NoError(t, err)
	_, err = a.Save(ctx, manual)
	require.NoError(t, err)

	found, ok, err := a.Find(ctx, manual.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.ModeManual, found.Mode)

	_, ok, err = a.Find(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	// The same id present in both archives is removed from both.
	dup := area
	dup.Mode = models.ModeManual
	dup.Data = json.RawMessage(`{"mode":"manual","items":[]}`)
	entries, err := a.List(ctx, models.ModeManual)
	require.NoError(t, err)
	require.NoError(t, storage.SetJSON(ctx, store, storage.BillHistoryKey(models.ModeManual), append(entries, dup)))

	removed, err := a.Remove(ctx, area.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	areaList, err := a.List(ctx, models.ModeArea)
	require.NoError(t, err)
	assert.Empty(t, areaList)
	manualList, err := a.List(ctx, models.ModeManual)
	require.NoError(t, err)
	require.Len(t, manualList, 1)
	assert.Equal(t, manual.ID, manualList[0].ID)

	removed, err = a.Remove(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestFind_LegacyEntryWithoutMode(t *testing.T) {
	a, store := newTestArchive()
	ctx := context.Background()

	legacy := `[{"id":"1700000000000","title":"x","date":"d","data":"{\"items\":[]}"}]`
	require.NoError(t, store.Set(ctx, storage.BillHistoryKey(models.ModeManual), []byte(legacy)))

	found, ok, err := a.Find(ctx, "1700000000000")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.ModeManual, found.Mode)

	bill, err := found.Bill()
	require.NoError(t, err)
	assert.Empty(t, bill.Items)
}

func TestSameData(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"key order", `{"a":1,"b":2}`, `{"b":2, "a":1}`, true},
		{"different values", `{"a":1}`, `{"a":2}`, false},
		{"corrupt equal bytes", `{broken`, `{broken`, true},
		{"corrupt differs", `{broken`, `{"a":1}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sameData(json.RawMessage(tt.a), json.RawMessage(tt.b)))
		})
	}
}
