package billing

import (
	"context"
	"log/slog"

	"github.com/mmynk/billbook/internal/apperror"
	"github.com/mmynk/billbook/internal/metrics"
	"github.com/mmynk/billbook/internal/models"
	"github.com/mmynk/billbook/internal/storage"
)

// SaveToArchive saves the live bill to the current mode's archive.
// It reports false when the bill equals the newest archived entry.
func (e *Engine) SaveToArchive(ctx context.Context) (models.ArchiveEntry, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveToArchive(ctx)
}

func (e *Engine) saveToArchive(ctx context.Context) (models.ArchiveEntry, bool, error) {
	entry, err := e.archive.NewEntry(e.current().bill)
	if err != nil {
		return models.ArchiveEntry{}, false, err
	}
	saved, err := e.archive.Save(ctx, entry)
	if err != nil {
		return models.ArchiveEntry{}, false, e.storageFailure("save_archive", err)
	}
	if saved {
		metrics.Operation("save_archive", string(e.mode))
		slog.Info("Bill archived", "mode", e.mode, "id", entry.ID, "title", entry.Title)
	}
	return entry, saved, nil
}

// ArchiveEntries lists the current mode's archive, newest first.
func (e *Engine) ArchiveEntries(ctx context.Context) ([]models.ArchiveEntry, error) {
	e.mu.Lock()
	mode := e.mode
	e.mu.Unlock()

	entries, err := e.archive.List(ctx, mode)
	if err != nil {
		return nil, e.storageFailure("list_archive", err)
	}
	return entries, nil
}

// LoadFromArchive replaces the live bill with an archived one, switching to
// the entry's mode first. Unlike undo, loading is recorded in history.
func (e *Engine) LoadFromArchive(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok, err := e.archive.Find(ctx, id)
	if err != nil {
		return e.storageFailure("load_archive", err)
	}
	if !ok {
		return apperror.NewNotFound("archive entry", id)
	}
	bill, err := entry.Bill()
	if err != nil {
		return apperror.NewValidation(err.Error())
	}

	var failed error
	if entry.Mode != e.mode {
		failed = e.switchTo(ctx, entry.Mode)
		if e.mode != entry.Mode {
			return failed
		}
	}

	bill.Normalize(e.mode)
	mc := e.current()
	mc.bill = bill
	mc.editingID = ""
	mc.nextSeq = max(mc.nextSeq, bill.MaxItemSeq()+1)

	slog.Info("Bill loaded from archive", "mode", e.mode, "id", id, "items", len(bill.Items))
	if err := e.commit(ctx, "load_archive"); err != nil {
		return err
	}
	return failed
}

// RemoveFromArchive deletes the entry from both modes' archives.
// An unknown id is a no-op.
func (e *Engine) RemoveFromArchive(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed, err := e.archive.Remove(ctx, id)
	if err != nil {
		return e.storageFailure("remove_archive", err)
	}
	if removed > 0 {
		metrics.Operation("remove_archive", string(e.mode))
		slog.Info("Archive entry removed", "id", id, "count", removed)
	}
	return nil
}

// ClearAll archives the live bill, then empties it: customer details, items
// and tax settings are reset and the item counter restarts at 1.
// The company block is kept.
func (e *Engine) ClearAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var failed error
	if _, _, err := e.saveToArchive(ctx); err != nil {
		failed = err
	}

	mc := e.current()
	company := mc.bill.Company
	mc.bill = models.NewBill(e.mode)
	mc.bill.Company = company
	mc.nextSeq = 1
	mc.editingID = ""

	if err := storage.SetJSON(ctx, e.store, storage.KeyTaxSettings, mc.bill.TaxSettings); err != nil && failed == nil {
		failed = e.storageFailure("clear_all", err)
	}

	slog.Info("Bill cleared", "mode", e.mode)
	if err := e.commit(ctx, "clear_all"); err != nil {
		return err
	}
	return failed
}
