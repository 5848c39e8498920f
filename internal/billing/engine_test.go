package billing

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/billbook/internal/apperror"
	"github.com/mmynk/billbook/internal/calculator"
	"github.com/mmynk/billbook/internal/models"
	"github.com/mmynk/billbook/internal/storage"
	"github.com/mmynk/billbook/internal/storage/memory"
)

var testNow = func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	e, err := New(context.Background(), store, WithClock(testNow))
	require.NoError(t, err)
	return e, store
}

func areaInput(name, width, height, rate, qty string) ItemInput {
	return ItemInput{ItemName: name, Width: width, Height: height, Unit: "ft", Rate: rate, Quantity: qty}
}

func manualInput(name, qty, rate string) ItemInput {
	return ItemInput{ItemName: name, Quantity: qty, Unit: "pcs", Rate: rate}
}

func itemIDs(s State) []string {
	ids := make([]string, len(s.Bill.Items))
	for i, item := range s.Bill.Items {
		ids[i] = item.ID
	}
	return ids
}

func TestNew_EmptyStore(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	s := e.State()
	assert.Equal(t, models.ModeArea, s.Mode)
	assert.Empty(t, s.Bill.Items)
	assert.Equal(t, "09-03-2024", s.Bill.Customer.Date)
	assert.False(t, s.CanUndo)
	assert.False(t, s.CanRedo)
	assert.Equal(t, 1, e.current().history.Len(), "initial state is pushed once")

	_, ok, err := store.Get(ctx, storage.BillDataKey(models.ModeArea))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNew_MalformedDataDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, storage.KeyCurrentMode, []byte(`"manual"`)))
	require.NoError(t, store.Set(ctx, storage.BillDataKey(models.ModeManual), []byte(`{not json`)))
	require.NoError(t, store.Set(ctx, storage.BillUndoKey(models.ModeManual), []byte(`[1,2`)))

	e, err := New(ctx, store, WithClock(testNow))
	require.NoError(t, err)
	s := e.State()
	assert.Equal(t, models.ModeManual, s.Mode)
	assert.Empty(t, s.Bill.Items)
}

func TestNew_StoredModeMismatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, storage.KeyCurrentMode, []byte(`"manual"`)))
	require.NoError(t, store.Set(ctx, storage.BillDataKey(models.ModeManual), []byte(
		`{"mode":"area","items":[{"id":"row-area-1","kind":"area","itemName":"Glass","amount":10,`+
			`"area":{"width":1,"height":1,"unit":"ft","rate":10,"quantity":1,"areaSqFt":1}}]}`)))

	e, err := New(ctx, store, WithClock(testNow))
	require.NoError(t, err)
	_, err = e.AddItem(ctx, manualInput("Bolt", "2", "5"))
	require.NoError(t, err)

	s := e.State()
	assert.Equal(t, models.ModeManual, s.Bill.Mode)
	require.Len(t, s.Bill.Items, 1)
	assert.Equal(t, models.ModeManual, s.Bill.Items[0].Kind)
}

func TestNew_UnreadableStore(t *testing.T) {
	store := memory.New()
	store.FailReads(errors.New("denied"))
	_, err := New(context.Background(), store)
	require.Error(t, err)
}

func TestNew_TaxFallback(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, storage.SetJSON(ctx, store, storage.KeyTaxSettings, models.TaxSettings{DiscountPercent: 5, GSTPercent: 18}))

	e, err := New(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, models.TaxSettings{DiscountPercent: 5, GSTPercent: 18}, e.State().Bill.TaxSettings)
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("area", func(t *testing.T) {
		e, _ := newTestEngine(t)
		item, err := e.AddItem(ctx, areaInput("Glass", "10", "5", "100", "2"))
		require.NoError(t, err)

		assert.Equal(t, "row-area-1", item.ID)
		assert.Equal(t, models.ModeArea, item.Kind)
		require.NotNil(t, item.Area)
		assert.Equal(t, 50.0, item.Area.AreaSqFt)
		assert.Equal(t, 10000.0, item.Amount)
		assert.Nil(t, item.Area.Depth)

		s := e.State()
		assert.Equal(t, 10000.0, s.Totals.Subtotal)
		assert.True(t, s.CanUndo)
	})

	t.Run("area defaults unit and keeps depth", func(t *testing.T) {
		e, _ := newTestEngine(t)
		in := areaInput("Frame", "12", "24", "10", "1")
		in.Unit = ""
		in.Depth = "2"
		item, err := e.AddItem(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, DefaultAreaUnit, item.Area.Unit)
		require.NotNil(t, item.Area.Depth)
		assert.Equal(t, 2.0, *item.Area.Depth)
	})

	t.Run("manual", func(t *testing.T) {
		e, _ := newTestEngine(t)
		require.NoError(t, e.SetMode(ctx, models.ModeManual))
		item, err := e.AddItem(ctx, manualInput("Bolts", "3", "250"))
		require.NoError(t, err)
		assert.Equal(t, "row-manual-1", item.ID)
		assert.Equal(t, 750.0, item.Amount)
		assert.Equal(t, "pcs", item.Manual.Unit)
	})

	t.Run("ids keep increasing", func(t *testing.T) {
		e, _ := newTestEngine(t)
		for range 3 {
			_, err := e.AddItem(ctx, areaInput("Glass", "1", "1", "1", "1"))
			require.NoError(t, err)
		}
		require.NoError(t, e.RemoveItem(ctx, "row-area-3"))
		item, err := e.AddItem(ctx, areaInput("Glass", "1", "1", "1", "1"))
		require.NoError(t, err)
		assert.Equal(t, "row-area-4", item.ID)
	})
}

func TestAddItem_Validation(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	tests := []struct {
		name   string
		in     ItemInput
		fields map[string]any
	}{
		{
			name:   "missing name and bad numbers",
			in:     ItemInput{Width: "abc", Height: "5", Rate: "100", Quantity: "1.5"},
			fields: map[string]any{"itemName": "required", "width": "number", "quantity": "integer"},
		},
		{
			name:   "blank name after trim",
			in:     areaInput("   ", "1", "1", "1", "1"),
			fields: map[string]any{"itemName": "required"},
		},
		{
			name:   "non positive",
			in:     areaInput("Glass", "0", "-1", "1", "0"),
			fields: map[string]any{"width": "gt", "height": "gt", "quantity": "gt"},
		},
		{
			name:   "not finite",
			in:     areaInput("Glass", "NaN", "Inf", "1", "1"),
			fields: map[string]any{"width": "number", "height": "number"},
		},
		{
			name:   "bad depth",
			in:     ItemInput{ItemName: "Glass", Width: "1", Height: "1", Depth: "deep", Rate: "1", Quantity: "1"},
			fields: map[string]any{"depth": "number"},
		},
		{
			name:   "area overflows",
			in:     areaInput("Glass", "1e200", "1e200", "1", "1"),
			fields: map[string]any{"amount": "range"},
		},
		{
			name:   "amount above limit",
			in:     areaInput("Glass", "1e7", "1e7", "1", "1"),
			fields: map[string]any{"amount": "range"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.AddItem(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err))

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.fields, appErr.Details)
		})
	}

	s := e.State()
	assert.Empty(t, s.Bill.Items)
	assert.False(t, s.CanUndo, "rejected input pushes no history")

	item, err := e.AddItem(ctx, areaInput("Glass", "1", "1", "1", "1"))
	require.NoError(t, err)
	assert.Equal(t, "row-area-1", item.ID, "rejected input does not consume an id")

	_, err = e.SwitchMode(ctx)
	require.NoError(t, err)
	_, err = e.AddItem(ctx, manualInput("Bolt", "1e200", "1e200"))
	require.Error(t, err)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, map[string]any{"amount": "range"}, appErr.Details)
	assert.Empty(t, e.State().Bill.Items)
}

func TestEditItem(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	for _, name := range []string{"A", "B", "C"} {
		_, err := e.AddItem(ctx, areaInput(name, "1", "1", "10", "1"))
		require.NoError(t, err)
	}

	_, err := e.UpdateItem(ctx, "row-area-2", areaInput("B2", "2", "2", "10", "1"))
	assert.True(t, apperror.IsNotEditing(err))

	_, err = e.BeginEdit("row-area-9")
	assert.True(t, apperror.IsNotFound(err))

	item, err := e.BeginEdit("row-area-2")
	require.NoError(t, err)
	assert.Equal(t, "B", item.ItemName)
	assert.Equal(t, "row-area-2", e.Editing())

	_, err = e.UpdateItem(ctx, "row-area-2", areaInput("", "2", "2", "10", "1"))
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, "row-area-2", e.Editing(), "a rejected update stays in edit mode")

	updated, err := e.UpdateItem(ctx, "row-area-2", areaInput("B2", "2", "2", "10", "1"))
	require.NoError(t, err)
	assert.Equal(t, "row-area-2", updated.ID)
	assert.Equal(t, 40.0, updated.Amount)
	assert.Empty(t, e.Editing())

	s := e.State()
	assert.Equal(t, []string{"row-area-1", "row-area-2", "row-area-3"}, itemIDs(s))
	assert.Equal(t, "B2", s.Bill.Items[1].ItemName)
	assert.Equal(t, 60.0, s.Totals.Subtotal)

	_, err = e.BeginEdit("row-area-1")
	require.NoError(t, err)
	e.CancelEdit()
	assert.Empty(t, e.Editing())
}

func TestBeginEdit_ClearsOtherMode(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	_, err := e.AddItem(ctx, areaInput("A", "1", "1", "1", "1"))
	require.NoError(t, err)
	_, err = e.BeginEdit("row-area-1")
	require.NoError(t, err)

	require.NoError(t, e.SetMode(ctx, models.ModeManual))
	_, err = e.AddItem(ctx, manualInput("M", "1", "1"))
	require.NoError(t, err)
	_, err = e.BeginEdit("row-manual-1")
	require.NoError(t, err)

	assert.Empty(t, e.contexts[models.ModeArea].editingID)
	assert.Equal(t, "row-manual-1", e.Editing())
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	for range 2 {
		_, err := e.AddItem(ctx, areaInput("A", "1", "1", "10", "1"))
		require.NoError(t, err)
	}
	mc := e.current()
	// Duplicate rows sharing an id are all removed.
	mc.bill.Items = append(mc.bill.Items, mc.bill.Items[0].Clone())

	before := mc.history.Len()
	require.NoError(t, e.RemoveItem(ctx, "row-area-7"))
	assert.Equal(t, before, mc.history.Len(), "unknown id is a no-op")

	require.NoError(t, e.RemoveItem(ctx, "row-area-1"))
	s := e.State()
	assert.Equal(t, []string{"row-area-2"}, itemIDs(s))
	assert.Equal(t, 10.0, s.Totals.Subtotal)
	assert.Equal(t, before+1, mc.history.Len())
}

func TestMoveItem(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	for _, rate := range []string{"10", "20", "30"} {
		_, err := e.AddItem(ctx, areaInput("A", "1", "1", rate, "1"))
		require.NoError(t, err)
	}
	subtotal := e.State().Totals.Subtotal

	require.NoError(t, e.MoveItem(ctx, "row-area-3", "row-area-1", Before))
	s := e.State()
	assert.Equal(t, []string{"row-area-3", "row-area-1", "row-area-2"}, itemIDs(s))
	assert.Equal(t, subtotal, s.Totals.Subtotal)

	require.NoError(t, e.MoveItem(ctx, "row-area-3", "row-area-2", After))
	assert.Equal(t, []string{"row-area-1", "row-area-2", "row-area-3"}, itemIDs(e.State()))

	before := e.current().history.Len()
	require.NoError(t, e.MoveItem(ctx, "row-area-1", "row-area-2", Before))
	assert.Equal(t, before, e.current().history.Len(), "a move that keeps the order is not recorded")

	assert.True(t, apperror.IsNotFound(e.MoveItem(ctx, "row-area-1", "row-area-9", After)))
	assert.True(t, apperror.IsNotFound(e.MoveItem(ctx, "row-area-9", "row-area-1", After)))
}

func TestUndoRedo(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	const n = 3
	for i := range n {
		_, err := e.AddItem(ctx, rateInput(i))
		require.NoError(t, err)
	}
	added := e.State().Bill.Items
	entries := e.current().history.Len()

	for range n {
		ok, err := e.Undo(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Empty(t, e.State().Bill.Items)
	assert.Equal(t, entries, e.current().history.Len(), "undo never pushes")

	ok, err := e.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, e.State().Bill.Items)

	for range n {
		ok, err := e.Redo(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, added, e.State().Bill.Items)

	ok, err = e.Redo(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, entries, e.current().history.Len())
}

func rateInput(i int) ItemInput {
	rates := []string{"1.25", "2.5", "3.75"}
	return areaInput("Item", "1", "1", rates[i%len(rates)], "1")
}

func TestUndo_BranchDiscardsRedo(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	_, err := e.AddItem(ctx, areaInput("A", "1", "1", "1", "1"))
	require.NoError(t, err)
	_, err = e.AddItem(ctx, areaInput("B", "1", "1", "1", "1"))
	require.NoError(t, err)

	ok, err := e.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	item, err := e.AddItem(ctx, areaInput("C", "1", "1", "1", "1"))
	require.NoError(t, err)
	assert.Equal(t, "row-area-3", item.ID, "ids are not reused after undo")
	assert.False(t, e.State().CanRedo)
}

func TestUndo_Persists(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	_, err := e.AddItem(ctx, areaInput("A", "1", "1", "1", "1"))
	require.NoError(t, err)
	_, err = e.Undo(ctx)
	require.NoError(t, err)

	bill, ok, err := storage.GetJSON[models.Bill](ctx, store, storage.BillDataKey(models.ModeArea))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, bill.Items)
}

func TestModeIsolation(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	require.NoError(t, e.UpdateCompany(ctx, models.Company{Name: "Acme Glass"}))
	_, err := e.AddItem(ctx, areaInput("Glass", "10", "5", "100", "2"))
	require.NoError(t, err)
	areaState := e.State()

	mode, err := e.SwitchMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ModeManual, mode)

	s := e.State()
	assert.Empty(t, s.Bill.Items)
	assert.Equal(t, "Acme Glass", s.Bill.Company.Name, "company carries over to a new bill")
	assert.False(t, s.CanUndo)

	_, err = e.AddItem(ctx, manualInput("Bolts", "3", "250"))
	require.NoError(t, err)
	_, _, err = e.SaveToArchive(ctx)
	require.NoError(t, err)

	mode, err = e.SwitchMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ModeArea, mode)

	back := e.State()
	assert.Equal(t, areaState.Bill, back.Bill)
	assert.Equal(t, areaState.Totals, back.Totals)
	assert.Equal(t, areaState.CanUndo, back.CanUndo)

	entries, err := e.ArchiveEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "manual archive is not visible from area")
}

func TestSwitchMode_Persists(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	_, err := e.SwitchMode(ctx)
	require.NoError(t, err)

	reloaded, err := New(ctx, store, WithClock(testNow))
	require.NoError(t, err)
	assert.Equal(t, models.ModeManual, reloaded.Mode())

	assert.True(t, apperror.IsValidation(e.SetMode(ctx, models.Mode("volume"))))
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	require.NoError(t, e.UpdateHeader(ctx, models.Customer{Name: " Alice ", BillNo: "17", Date: "01-02-2024"}))
	in := areaInput("Glass", "120", "60", "12.5", "3")
	in.Unit = "inch"
	in.Notes = "tempered"
	_, err := e.AddItem(ctx, in)
	require.NoError(t, err)
	_, err = e.AddItem(ctx, areaInput("Mirror", "2", "3", "45", "1"))
	require.NoError(t, err)
	require.NoError(t, e.ApplyDiscount(ctx, 10))

	want := e.State()
	assert.Equal(t, "Alice", want.Bill.Customer.Name)

	reloaded, err := New(ctx, store, WithClock(testNow))
	require.NoError(t, err)
	got := reloaded.State()
	assert.Equal(t, want.Bill, got.Bill)
	assert.Equal(t, want.Totals, got.Totals)
	assert.Equal(t, want.CanUndo, got.CanUndo)
	assert.Equal(t, e.current().history.Len(), reloaded.current().history.Len(), "reload does not push a duplicate entry")

	item, err := reloaded.AddItem(ctx, areaInput("Next", "1", "1", "1", "1"))
	require.NoError(t, err)
	assert.Equal(t, "row-area-3", item.ID, "counter restarts after the highest saved id")
}

func TestTaxSettings(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	_, err := e.AddItem(ctx, areaInput("Glass", "10", "10", "10", "1"))
	require.NoError(t, err)

	require.NoError(t, e.ApplyDiscount(ctx, 10))
	require.NoError(t, e.ApplyGST(ctx, 18, " 29ABCDE1234F1Z5 "))

	s := e.State()
	assert.Equal(t, calculator.Totals{
		Subtotal:       1000,
		DiscountAmount: 100,
		AfterDiscount:  900,
		GSTAmount:      162,
		GrandTotal:     1062,
		ShowDiscount:   true,
		ShowGST:        true,
		ShowGrandTotal: true,
	}, s.Totals)
	assert.Equal(t, "29ABCDE1234F1Z5", s.Bill.Customer.GSTIN)

	saved, ok, err := storage.GetJSON[models.TaxSettings](ctx, store, storage.KeyTaxSettings)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.TaxSettings{DiscountPercent: 10, GSTPercent: 18}, saved)

	entries := e.current().history.Len()
	assert.True(t, apperror.IsValidation(e.ApplyDiscount(ctx, 120)))
	assert.True(t, apperror.IsValidation(e.ApplyGST(ctx, -1, "")))
	assert.Equal(t, models.TaxSettings{DiscountPercent: 10, GSTPercent: 18}, e.State().Bill.TaxSettings)
	assert.Equal(t, entries, e.current().history.Len())
}

func TestUpdateHeader(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	entries := e.current().history.Len()

	customer := e.State().Bill.Customer
	require.NoError(t, e.UpdateHeader(ctx, customer))
	assert.Equal(t, entries, e.current().history.Len(), "unchanged header is not recorded")

	customer.Name = "Bob"
	require.NoError(t, e.UpdateHeader(ctx, customer))
	assert.Equal(t, entries+1, e.current().history.Len())
	assert.Equal(t, "Bob", e.State().Bill.Customer.Name)
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	require.NoError(t, e.UpdateHeader(ctx, models.Customer{Name: "Alice", BillNo: "7"}))
	_, err := e.AddItem(ctx, areaInput("Glass", "10", "5", "100", "2"))
	require.NoError(t, err)

	entry, saved, err := e.SaveToArchive(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, "Alice - 7 (AREA)", entry.Title)
	assert.Equal(t, "09-03-2024", entry.Date)

	_, saved, err = e.SaveToArchive(ctx)
	require.NoError(t, err)
	assert.False(t, saved, "unchanged bill is archived once")

	entries, err := e.ArchiveEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	t.Run("load switches mode and records history", func(t *testing.T) {
		archived := e.State().Bill
		require.NoError(t, e.SetMode(ctx, models.ModeManual))
		entries := e.current().history.Len()
		require.NoError(t, e.SetMode(ctx, models.ModeArea))
		require.NoError(t, e.ClearAll(ctx))
		require.NoError(t, e.SetMode(ctx, models.ModeManual))
		assert.Equal(t, entries, e.current().history.Len())

		require.NoError(t, e.LoadFromArchive(ctx, entry.ID))
		s := e.State()
		assert.Equal(t, models.ModeArea, s.Mode)
		assert.Equal(t, archived, s.Bill)
		assert.True(t, s.CanUndo)

		ok, err := e.Undo(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Empty(t, e.State().Bill.Items, "undo returns to the cleared bill")
	})

	t.Run("unknown entry", func(t *testing.T) {
		assert.True(t, apperror.IsNotFound(e.LoadFromArchive(ctx, "missing")))
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, e.RemoveFromArchive(ctx, entry.ID))
		entries, err := e.ArchiveEntries(ctx)
		require.NoError(t, err)
		for _, en := range entries {
			assert.NotEqual(t, entry.ID, en.ID)
		}
		require.NoError(t, e.RemoveFromArchive(ctx, "missing"))
	})
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	require.NoError(t, e.UpdateCompany(ctx, models.Company{Name: "Acme"}))
	require.NoError(t, e.UpdateHeader(ctx, models.Customer{Name: "Alice", BillNo: "1"}))
	for range 2 {
		_, err := e.AddItem(ctx, areaInput("Glass", "1", "1", "10", "1"))
		require.NoError(t, err)
	}
	require.NoError(t, e.ApplyGST(ctx, 18, "GSTIN"))
	entries := e.current().history.Len()

	require.NoError(t, e.ClearAll(ctx))

	s := e.State()
	assert.Empty(t, s.Bill.Items)
	assert.Equal(t, models.Customer{}, s.Bill.Customer)
	assert.Equal(t, models.TaxSettings{}, s.Bill.TaxSettings)
	assert.Equal(t, "Acme", s.Bill.Company.Name)
	assert.Equal(t, entries+1, e.current().history.Len())

	archived, err := e.ArchiveEntries(ctx)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	bill, err := archived[0].Bill()
	require.NoError(t, err)
	assert.Len(t, bill.Items, 2)

	item, err := e.AddItem(ctx, areaInput("Glass", "1", "1", "10", "1"))
	require.NoError(t, err)
	assert.Equal(t, "row-area-1", item.ID)
}

func TestAutoSave(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	entries := e.current().history.Len()

	require.NoError(t, e.AutoSave(ctx))
	assert.Equal(t, entries, e.current().history.Len(), "unchanged bill is not recorded again")

	e.current().bill.Customer.Name = "typed but not committed"
	require.NoError(t, e.AutoSave(ctx))
	assert.Equal(t, entries+1, e.current().history.Len())
}

func TestStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	store.FailWrites(errors.New("quota exceeded"))

	item, err := e.AddItem(ctx, areaInput("Glass", "1", "1", "10", "1"))
	require.Error(t, err)
	assert.True(t, apperror.IsStorageUnavailable(err))
	assert.Equal(t, "row-area-1", item.ID)
	assert.Len(t, e.State().Bill.Items, 1, "in-memory effect still applies")

	assert.True(t, apperror.IsStorageUnavailable(e.ApplyDiscount(ctx, 5)))
	assert.Equal(t, 5.0, e.State().Bill.TaxSettings.DiscountPercent)

	store.FailWrites(nil)
	require.NoError(t, e.AutoSave(ctx))
	bill, ok, err := storage.GetJSON[models.Bill](ctx, store, storage.BillDataKey(models.ModeArea))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, bill.Items, 1)
}

func TestView(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Equal(t, models.DefaultView(), e.View())

	v, err := e.SetView(models.ScreenBill)
	require.NoError(t, err)
	assert.True(t, v.DragHidden)

	v, err = e.SetView(models.ScreenInput)
	require.NoError(t, err)
	assert.False(t, v.DragHidden)

	_, err = e.SetView(models.Screen("print"))
	assert.True(t, apperror.IsValidation(err))

	assert.True(t, e.ToggleRateColumn().RateHidden)
	assert.False(t, e.ToggleRateColumn().RateHidden)
}

func TestTheme(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	assert.Equal(t, "blue", e.Theme(ctx))

	require.NoError(t, e.SetTheme(ctx, "dark"))
	assert.Equal(t, "dark", e.Theme(ctx))
	assert.True(t, apperror.IsValidation(e.SetTheme(ctx, "pink")))

	next, err := e.CycleTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, "blue", next)
}

type recordingExporter struct {
	view models.View
	bill models.Bill
	err  error

	// during runs while the document is being produced.
	during func()
}

func (r *recordingExporter) Export(_ context.Context, bill models.Bill, _ calculator.Totals, view models.View, w io.Writer) error {
	r.view = view
	r.bill = bill
	if r.during != nil {
		r.during()
	}
	if r.err != nil {
		return r.err
	}
	_, err := io.WriteString(w, "ok")
	return err
}

func TestExport_RestoresView(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	_, err := e.AddItem(ctx, areaInput("Glass", "1", "1", "10", "1"))
	require.NoError(t, err)
	e.ToggleRateColumn()
	before := e.View()

	t.Run("success", func(t *testing.T) {
		exp := &recordingExporter{}
		snap, err := e.Export(ctx, exp, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, models.ScreenBill, exp.view.Screen)
		assert.True(t, exp.view.DragHidden)
		assert.True(t, exp.view.RateHidden)
		assert.Len(t, exp.bill.Items, 1)
		assert.Equal(t, snap.Bill, exp.bill)
		assert.Equal(t, before, e.View())
	})

	t.Run("failure", func(t *testing.T) {
		exp := &recordingExporter{err: errors.New("browser crashed")}
		_, err := e.Export(ctx, exp, io.Discard)
		require.Error(t, err)
		assert.Equal(t, before, e.View())
	})
}

func TestExport_KeepsConcurrentViewChanges(t *testing.T) {
	ctx := context.Background()

	t.Run("rate toggle", func(t *testing.T) {
		e, _ := newTestEngine(t)
		exp := &recordingExporter{during: func() { e.ToggleRateColumn() }}
		_, err := e.Export(ctx, exp, io.Discard)
		require.NoError(t, err)

		v := e.View()
		assert.True(t, v.RateHidden)
		assert.Equal(t, models.ScreenInput, v.Screen)
		assert.False(t, v.DragHidden)
	})

	t.Run("screen change", func(t *testing.T) {
		e, _ := newTestEngine(t)
		exp := &recordingExporter{during: func() {
			_, err := e.SetView(models.ScreenBill)
			require.NoError(t, err)
		}}
		_, err := e.Export(ctx, exp, io.Discard)
		require.NoError(t, err)

		v := e.View()
		assert.Equal(t, models.ScreenBill, v.Screen)
		assert.True(t, v.DragHidden)
	})
}
