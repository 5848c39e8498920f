package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mmynk/billbook/internal/metrics"
	"github.com/mmynk/billbook/internal/models"
)

// Undo restores the previous history entry of the current mode.
// It reports false when there is nothing to undo. The restored state is
// persisted but not pushed as a new entry.
func (e *Engine) Undo(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, ok := e.current().history.Undo()
	if !ok {
		return false, nil
	}
	return true, e.restore(ctx, "undo", snap)
}

// Redo re-applies the next history entry of the current mode.
// It reports false when there is nothing to redo.
func (e *Engine) Redo(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, ok := e.current().history.Redo()
	if !ok {
		return false, nil
	}
	return true, e.restore(ctx, "redo", snap)
}

func (e *Engine) restore(ctx context.Context, op string, snap []byte) error {
	var bill models.Bill
	if err := json.Unmarshal(snap, &bill); err != nil {
		return fmt.Errorf("failed to decode history entry: %w", err)
	}
	bill.Normalize(e.mode)

	mc := e.current()
	mc.bill = bill
	mc.editingID = ""
	// Ids are never reused, even for items that an undo brought back.
	mc.nextSeq = max(mc.nextSeq, bill.MaxItemSeq()+1)

	metrics.Operation(op, string(e.mode))
	slog.Debug("History restored", "operation", op, "mode", e.mode, "cursor", mc.history.Cursor())
	return e.persist(ctx, op)
}
