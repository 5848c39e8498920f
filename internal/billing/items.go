package billing

import (
	"context"
	"log/slog"

	"github.com/mmynk/billbook/internal/apperror"
	"github.com/mmynk/billbook/internal/models"
)

// Placement says where MoveItem puts an item relative to its target.
type Placement int

const (
	Before Placement = iota
	After
)

// AddItem validates the input for the current mode and appends a new item.
//
// On a validation error nothing changes. A StorageUnavailable error means the
// item was added in memory but could not be saved.
func (e *Engine) AddItem(ctx context.Context, in ItemInput) (models.LineItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, err := buildItem(e.mode, in)
	if err != nil {
		return models.LineItem{}, err
	}

	mc := e.current()
	item.ID = models.ItemID(e.mode, mc.nextSeq)
	mc.nextSeq++
	mc.bill.Items = append(mc.bill.Items, item)

	slog.Debug("Item added", "mode", e.mode, "id", item.ID, "amount", item.Amount)
	return item.Clone(), e.commit(ctx, "add_item")
}

// BeginEdit marks an item of the current mode as being edited and returns it.
// Any pending edit in the other mode is cancelled.
func (e *Engine) BeginEdit(id string) (models.LineItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mc := e.current()
	idx := mc.bill.IndexOf(id)
	if idx < 0 {
		return models.LineItem{}, apperror.NewNotFound("item", id)
	}
	for mode, other := range e.contexts {
		if mode != e.mode {
			other.editingID = ""
		}
	}
	mc.editingID = id
	return mc.bill.Items[idx].Clone(), nil
}

// CancelEdit leaves edit mode without changing the item.
func (e *Engine) CancelEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current().editingID = ""
}

// Editing returns the id of the item being edited in the current mode, or "".
func (e *Engine) Editing() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current().editingID
}

// UpdateItem replaces the item being edited, keeping its id and position.
// id must be the item passed to BeginEdit. Edit mode ends on success.
func (e *Engine) UpdateItem(ctx context.Context, id string, in ItemInput) (models.LineItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mc := e.current()
	idx := mc.bill.IndexOf(id)
	if idx < 0 {
		return models.LineItem{}, apperror.NewNotFound("item", id)
	}
	if mc.editingID != id {
		return models.LineItem{}, apperror.NewNotEditing(id)
	}

	item, err := buildItem(e.mode, in)
	if err != nil {
		return models.LineItem{}, err
	}
	item.ID = id
	mc.bill.Items[idx] = item
	mc.editingID = ""

	slog.Debug("Item updated", "mode", e.mode, "id", id, "amount", item.Amount)
	return item.Clone(), e.commit(ctx, "update_item")
}

// RemoveItem removes every item with the id. An unknown id is a no-op.
func (e *Engine) RemoveItem(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mc := e.current()
	kept := make([]models.LineItem, 0, len(mc.bill.Items))
	for _, item := range mc.bill.Items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(mc.bill.Items) {
		return nil
	}
	mc.bill.Items = kept
	if mc.editingID == id {
		mc.editingID = ""
	}

	slog.Debug("Item removed", "mode", e.mode, "id", id)
	return e.commit(ctx, "remove_item")
}

// MoveItem moves an item before or after the target item.
// Totals are unaffected; only the order (and so serial numbers) changes.
func (e *Engine) MoveItem(ctx context.Context, id, targetID string, place Placement) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mc := e.current()
	from := mc.bill.IndexOf(id)
	if from < 0 {
		return apperror.NewNotFound("item", id)
	}
	if mc.bill.IndexOf(targetID) < 0 {
		return apperror.NewNotFound("item", targetID)
	}
	if id == targetID {
		return nil
	}

	moved := mc.bill.Items[from]
	items := append(mc.bill.Items[:from:from], mc.bill.Items[from+1:]...)
	to := 0
	for i := range items {
		if items[i].ID == targetID {
			to = i
			break
		}
	}
	if place == After {
		to++
	}

	reordered := make([]models.LineItem, 0, len(items)+1)
	reordered = append(reordered, items[:to]...)
	reordered = append(reordered, moved)
	reordered = append(reordered, items[to:]...)

	before := make([]string, len(mc.bill.Items))
	for i, item := range mc.bill.Items {
		before[i] = item.ID
	}
	mc.bill.Items = reordered
	if sameOrder(before, reordered) {
		return nil
	}

	slog.Debug("Item moved", "mode", e.mode, "id", id, "target", targetID)
	return e.commit(ctx, "move_item")
}

func sameOrder(ids []string, items []models.LineItem) bool {
	if len(ids) != len(items) {
		return false
	}
	for i := range ids {
		if ids[i] != items[i].ID {
			return false
		}
	}
	return true
}
