package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mmynk/billbook/internal/models"
	"github.com/mmynk/billbook/internal/storage"
	"github.com/mmynk/billbook/internal/storage/memory"
)

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	t.Run("missing key", func(t *testing.T) {
		_, ok, err := storage.GetJSON[models.TaxSettings](ctx, store, storage.KeyTaxSettings)
		if err != nil || ok {
			t.Errorf("GetJSON on missing key = ok %v, err %v", ok, err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		want := models.TaxSettings{DiscountPercent: 10, GSTPercent: 18}
		if err := storage.SetJSON(ctx, store, storage.KeyTaxSettings, want); err != nil {
			t.Fatalf("SetJSON failed: %v", err)
		}
		got, ok, err := storage.GetJSON[models.TaxSettings](ctx, store, storage.KeyTaxSettings)
		if err != nil || !ok {
			t.Fatalf("GetJSON = ok %v, err %v", ok, err)
		}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("malformed value degrades to missing", func(t *testing.T) {
		if err := store.Set(ctx, storage.BillDataKey(models.ModeArea), []byte("{not json")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		_, ok, err := storage.GetJSON[models.Bill](ctx, store, storage.BillDataKey(models.ModeArea))
		if err != nil || ok {
			t.Errorf("expected malformed value to read as missing, ok %v, err %v", ok, err)
		}
	})

	t.Run("store failure is returned", func(t *testing.T) {
		boom := errors.New("boom")
		store.FailReads(boom)
		defer store.FailReads(nil)
		_, _, err := storage.GetJSON[models.Bill](ctx, store, storage.BillDataKey(models.ModeManual))
		if !errors.Is(err, boom) {
			t.Errorf("expected wrapped read error, got %v", err)
		}
	})
}

func TestKeys(t *testing.T) {
	tests := map[string]string{
		storage.BillDataKey(models.ModeArea):      "billDataArea",
		storage.BillDataKey(models.ModeManual):    "billDataManual",
		storage.BillHistoryKey(models.ModeArea):   "billHistoryArea",
		storage.BillHistoryKey(models.ModeManual): "billHistoryManual",
		storage.BillUndoKey(models.ModeManual):    "billUndoManual",
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("key = %q, want %q", got, want)
		}
	}
}
