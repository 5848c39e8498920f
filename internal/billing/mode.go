package billing

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mmynk/billbook/internal/apperror"
	"github.com/mmynk/billbook/internal/archive"
	"github.com/mmynk/billbook/internal/models"
	"github.com/mmynk/billbook/internal/storage"
)

// Themes are the colour themes the UI can select, in cycle order.
var Themes = []string{"blue", "green", "red", "purple", "orange", "dark"}

// SwitchMode saves the current mode and flips to the other one.
func (e *Engine) SwitchMode(ctx context.Context) (models.Mode, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.mode.Other()
	return next, e.switchTo(ctx, next)
}

// SetMode switches to mode. Switching to the current mode is a no-op.
func (e *Engine) SetMode(ctx context.Context, mode models.Mode) error {
	if !mode.Valid() {
		return apperror.NewValidation(fmt.Sprintf("unknown mode %q", mode))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if mode == e.mode {
		return nil
	}
	return e.switchTo(ctx, mode)
}

// switchTo snapshots the current mode and makes mode current.
//
// The other mode's bill is never discarded: it stays in memory and in storage.
// A mode seen for the first time is loaded from storage, seeded with the
// current company when it has no saved bill.
func (e *Engine) switchTo(ctx context.Context, mode models.Mode) error {
	var failed error
	if err := e.pushIfChanged(ctx, "switch_mode"); err != nil {
		failed = err
	}
	company := e.current().bill.Company
	e.current().editingID = ""

	mc, ok := e.contexts[mode]
	if !ok {
		loaded, err := e.load(ctx, mode, company)
		if err != nil {
			return e.storageFailure("switch_mode", err)
		}
		if loaded.bill.Customer.Date == "" {
			loaded.bill.Customer.Date = e.now().Format(archive.DateLayout)
		}
		mc = loaded
		e.contexts[mode] = mc
	}

	prev := e.mode
	e.mode = mode
	slog.Info("Mode switched", "from", prev, "to", mode, "items", len(mc.bill.Items))

	if err := storage.SetJSON(ctx, e.store, storage.KeyCurrentMode, string(mode)); err != nil && failed == nil {
		failed = e.storageFailure("switch_mode", err)
	}
	// A mode with no history yet starts from its loaded state.
	if mc.history.Len() == 0 {
		if err := e.pushIfChanged(ctx, "switch_mode"); err != nil && failed == nil {
			failed = err
		}
	}
	return failed
}

// SetView changes the display state. The drag column follows the screen:
// it is hidden on the bill preview.
func (e *Engine) SetView(screen models.Screen) (models.View, error) {
	if screen != models.ScreenInput && screen != models.ScreenBill {
		return models.View{}, apperror.NewValidation(fmt.Sprintf("unknown screen %q", screen))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view.Screen = screen
	e.view.DragHidden = screen == models.ScreenBill
	e.screenRev++
	return e.view, nil
}

// ToggleRateColumn shows or hides the rate column and returns the new view.
func (e *Engine) ToggleRateColumn() models.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view.RateHidden = !e.view.RateHidden
	return e.view
}

// View returns the current display state.
func (e *Engine) View() models.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// Theme returns the saved theme, or the first theme when none is saved.
func (e *Engine) Theme(ctx context.Context) string {
	theme, ok, err := storage.GetJSON[string](ctx, e.store, storage.KeySelectedTheme)
	if err != nil || !ok || !slices.Contains(Themes, theme) {
		return Themes[0]
	}
	return theme
}

// SetTheme saves theme. Only names in Themes are accepted.
func (e *Engine) SetTheme(ctx context.Context, theme string) error {
	if !slices.Contains(Themes, theme) {
		return apperror.NewFieldValidation(map[string]string{"theme": "oneof"})
	}
	if err := storage.SetJSON(ctx, e.store, storage.KeySelectedTheme, theme); err != nil {
		return e.storageFailure("set_theme", err)
	}
	return nil
}

// CycleTheme saves and returns the theme after the current one.
func (e *Engine) CycleTheme(ctx context.Context) (string, error) {
	idx := slices.Index(Themes, e.Theme(ctx))
	next := Themes[(idx+1)%len(Themes)]
	return next, e.SetTheme(ctx, next)
}
