// Package billing is the bill state engine: it owns the live bill of each mode,
// applies item and header edits, keeps undo/redo history and the bill archive,
// and persists everything through a storage.Store.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/billbook/internal/apperror"
	"github.com/mmynk/billbook/internal/archive"
	"github.com/mmynk/billbook/internal/calculator"
	"github.com/mmynk/billbook/internal/history"
	"github.com/mmynk/billbook/internal/metrics"
	"github.com/mmynk/billbook/internal/models"
	"github.com/mmynk/billbook/internal/storage"
)

// modeContext bundles everything that belongs to one mode.
type modeContext struct {
	bill      models.Bill
	nextSeq   int
	editingID string
	history   *history.Stack
}

// Engine applies user operations to the live bill.
//
// Every exported method is serialized by an internal mutex, so the engine can
// be driven by several sources (UI requests, the autosave timer) while each
// operation still runs to completion before the next one starts.
type Engine struct {
	mu sync.Mutex

	store   storage.Store
	archive *archive.Archive
	now     func() time.Time

	mode     models.Mode
	contexts map[models.Mode]*modeContext
	view     models.View

	// screenRev counts SetView calls so Export can tell whether the
	// screen was changed while a document was being produced.
	screenRev uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for default bill dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New loads the saved mode and its bill from store and records the initial
// state as the first history entry.
//
// Malformed stored data is treated as absent. A store that cannot be read at
// all fails construction.
func New(ctx context.Context, store storage.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:    store,
		now:      time.Now,
		mode:     models.ModeArea,
		contexts: make(map[models.Mode]*modeContext),
		view:     models.DefaultView(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.archive = archive.New(store, archive.WithClock(e.now))

	saved, ok, err := storage.GetJSON[string](ctx, store, storage.KeyCurrentMode)
	if err != nil {
		return nil, fmt.Errorf("failed to load current mode: %w", err)
	}
	if ok {
		if m, err := models.ParseMode(saved); err == nil {
			e.mode = m
		}
	}

	mc, err := e.load(ctx, e.mode, models.Company{})
	if err != nil {
		return nil, err
	}
	if mc.bill.Customer.Date == "" {
		mc.bill.Customer.Date = e.now().Format(archive.DateLayout)
	}
	e.contexts[e.mode] = mc

	if err := e.pushIfChanged(ctx, "init"); err != nil {
		slog.Warn("Initial state not persisted", "mode", e.mode, "error", err)
	}
	slog.Info("Billing engine ready", "mode", e.mode, "items", len(mc.bill.Items))
	return e, nil
}

// load reads a mode's bill and undo stack from storage.
// company seeds a mode that has no saved bill yet.
func (e *Engine) load(ctx context.Context, mode models.Mode, company models.Company) (*modeContext, error) {
	bill, ok, err := storage.GetJSON[models.Bill](ctx, e.store, storage.BillDataKey(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s bill: %w", mode, err)
	}
	if !ok {
		bill = models.NewBill(mode)
		bill.Company = company
		tax, found, err := storage.GetJSON[models.TaxSettings](ctx, e.store, storage.KeyTaxSettings)
		if err != nil {
			return nil, fmt.Errorf("failed to load tax settings: %w", err)
		}
		if found && tax.Validate() == nil {
			bill.TaxSettings = tax
		}
	}
	bill.Normalize(mode)

	stack, ok, err := storage.GetJSON[*history.Stack](ctx, e.store, storage.BillUndoKey(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s history: %w", mode, err)
	}
	if !ok || stack == nil {
		stack = history.New()
	}

	return &modeContext{
		bill:    bill,
		nextSeq: bill.MaxItemSeq() + 1,
		history: stack,
	}, nil
}

func (e *Engine) current() *modeContext {
	return e.contexts[e.mode]
}

// persist writes the live bill and undo stack of the current mode.
// A failure leaves the in-memory state as is and is reported as StorageUnavailable.
func (e *Engine) persist(ctx context.Context, op string) error {
	mc := e.current()
	metrics.Items(string(e.mode), len(mc.bill.Items))

	if err := storage.SetJSON(ctx, e.store, storage.BillDataKey(e.mode), mc.bill); err != nil {
		return e.storageFailure(op, err)
	}
	if err := storage.SetJSON(ctx, e.store, storage.BillUndoKey(e.mode), mc.history); err != nil {
		return e.storageFailure(op, err)
	}
	return nil
}

func (e *Engine) storageFailure(op string, err error) error {
	slog.Warn("Storage write failed", "operation", op, "mode", e.mode, "error", err)
	metrics.StorageFailure(op)
	return apperror.NewStorageUnavailable(op, err)
}

// commit records the current bill as a new history entry and persists it.
// Every mutating operation ends with exactly one commit.
func (e *Engine) commit(ctx context.Context, op string) error {
	mc := e.current()
	snap, err := json.Marshal(mc.bill)
	if err != nil {
		return fmt.Errorf("failed to encode bill: %w", err)
	}
	mc.history.Push(snap)
	metrics.Operation(op, string(e.mode))
	slog.Debug("Bill committed", "operation", op, "mode", e.mode, "history", mc.history.Len())
	return e.persist(ctx, op)
}

// pushIfChanged persists the bill and pushes a history entry only when the
// bill differs from the entry at the history cursor.
func (e *Engine) pushIfChanged(ctx context.Context, op string) error {
	mc := e.current()
	snap, err := json.Marshal(mc.bill)
	if err != nil {
		return fmt.Errorf("failed to encode bill: %w", err)
	}
	if cur, ok := mc.history.Current(); !ok || string(cur) != string(snap) {
		mc.history.Push(snap)
	}
	return e.persist(ctx, op)
}

// State is a read-only view of the engine for rendering.
type State struct {
	Mode    models.Mode       `json:"mode"`
	Bill    models.Bill       `json:"bill"`
	Totals  calculator.Totals `json:"totals"`
	View    models.View       `json:"view"`
	Editing string            `json:"editing,omitempty"`
	CanUndo bool              `json:"canUndo"`
	CanRedo bool              `json:"canRedo"`
}

// State returns a copy of the live bill of the current mode with its totals.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}

func (e *Engine) state() State {
	mc := e.current()
	bill := mc.bill.Clone()
	return State{
		Mode:    e.mode,
		Bill:    bill,
		Totals:  calculator.ComputeTotals(bill.Items, bill.TaxSettings),
		View:    e.view,
		Editing: mc.editingID,
		CanUndo: mc.history.CanUndo(),
		CanRedo: mc.history.CanRedo(),
	}
}

// Mode returns the current mode.
func (e *Engine) Mode() models.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// AutoSave persists the live bill and records it in history if it changed
// since the last entry. It is called by the periodic autosave timer.
func (e *Engine) AutoSave(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pushIfChanged(ctx, "autosave")
}
