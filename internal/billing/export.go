package billing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mmynk/billbook/internal/calculator"
	"github.com/mmynk/billbook/internal/models"
)

// Exporter renders a bill into a downloadable document.
type Exporter interface {
	Export(ctx context.Context, bill models.Bill, totals calculator.Totals, view models.View, w io.Writer) error
}

// Export writes the current bill through exp and returns the state it was
// rendered from.
//
// The bill preview is shown with the drag column hidden while the document is
// produced, and the previous screen is restored afterwards even if the export
// fails. View changes made while the document renders are kept. Bill data is
// never changed.
func (e *Engine) Export(ctx context.Context, exp Exporter, w io.Writer) (State, error) {
	e.mu.Lock()
	prev := e.view
	rev := e.screenRev
	e.view.Screen = models.ScreenBill
	e.view.DragHidden = true
	snap := e.state()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.screenRev == rev {
			e.view.Screen = prev.Screen
			e.view.DragHidden = prev.DragHidden
		}
		e.mu.Unlock()
	}()

	start := time.Now()
	if err := exp.Export(ctx, snap.Bill, snap.Totals, snap.View, w); err != nil {
		slog.Error("Export failed", "mode", snap.Mode, "error", err)
		return snap, fmt.Errorf("failed to export bill: %w", err)
	}
	slog.Info("Bill exported", "mode", snap.Mode, "items", len(snap.Bill.Items), "duration", time.Since(start))
	return snap, nil
}
