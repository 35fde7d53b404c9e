// Package ledger holds the in-memory state of the charity: stock items,
// beneficiaries and the distributions that connect them. Each ledger owns its
// collection and guards it with two locks: mu protects the data and is held
// only while it is read or changed, writeMu serializes mutations together with
// the delivery of their changes, so subscribers see changes in the order they
// were made. Subscribers may read any ledger but must not mutate one.
package ledger

import (
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/erazemk/ataa/internal/model"
)

// Inventory owns the set of stock items in insertion order.
type Inventory struct {
	cfg     config
	writeMu sync.Mutex
	mu      sync.RWMutex
	items   []model.Item
	changes notifier[model.Item]
}

// NewInventory creates an empty inventory ledger.
func NewInventory(opts ...Option) *Inventory {
	return &Inventory{cfg: newConfig(opts)}
}

// Subscribe registers fn for every inventory change and returns a function that removes it.
func (inv *Inventory) Subscribe(fn func(Change[model.Item])) func() {
	return inv.changes.subscribe(fn)
}

// AddItem assigns an identifier and LastUpdated timestamp and appends the item.
func (inv *Inventory) AddItem(item model.Item) (model.Item, error) {
	if err := item.Normalize(); err != nil {
		return model.Item{}, err
	}

	inv.writeMu.Lock()
	defer inv.writeMu.Unlock()

	inv.mu.Lock()
	item.ID = inv.cfg.newID()
	item.LastUpdated = inv.cfg.now()
	inv.items = append(inv.items, item)
	inv.mu.Unlock()

	inv.changes.publish(Change[model.Item]{Op: OpCreate, ID: item.ID, Record: item})
	return item, nil
}

// UpdateItem applies patch to the item and refreshes LastUpdated.
func (inv *Inventory) UpdateItem(id string, patch model.ItemPatch) (model.Item, error) {
	inv.writeMu.Lock()
	defer inv.writeMu.Unlock()

	inv.mu.Lock()
	i := inv.indexLocked(id)
	if i < 0 {
		inv.mu.Unlock()
		return model.Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	updated := patch.Apply(inv.items[i])
	if err := updated.Normalize(); err != nil {
		inv.mu.Unlock()
		return model.Item{}, err
	}
	updated.LastUpdated = inv.cfg.now()
	inv.items[i] = updated
	inv.mu.Unlock()

	inv.changes.publish(Change[model.Item]{Op: OpUpdate, ID: id, Record: updated})
	return updated, nil
}

// RemoveItem deletes the item.
func (inv *Inventory) RemoveItem(id string) error {
	inv.writeMu.Lock()
	defer inv.writeMu.Unlock()

	inv.mu.Lock()
	i := inv.indexLocked(id)
	if i < 0 {
		inv.mu.Unlock()
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	removed := inv.items[i]
	inv.items = slices.Delete(inv.items, i, i+1)
	inv.mu.Unlock()

	inv.changes.publish(Change[model.Item]{Op: OpDelete, ID: id, Record: removed})
	return nil
}

// Item returns the item with the given identifier.
func (inv *Inventory) Item(id string) (model.Item, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	i := inv.indexLocked(id)
	if i < 0 {
		return model.Item{}, false
	}
	return inv.items[i], true
}

// UpdateQuantity sets quantity to max(0, quantity+delta) and refreshes LastUpdated.
func (inv *Inventory) UpdateQuantity(id string, delta decimal.Decimal) (model.Item, error) {
	inv.writeMu.Lock()
	defer inv.writeMu.Unlock()

	inv.mu.Lock()
	i := inv.indexLocked(id)
	if i < 0 {
		inv.mu.Unlock()
		return model.Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	inv.adjustLocked(i, delta)
	updated := inv.items[i]
	inv.mu.Unlock()

	inv.changes.publish(Change[model.Item]{Op: OpUpdate, ID: id, Record: updated})
	return updated, nil
}

// ItemsByType returns the items of the given type in insertion order.
func (inv *Inventory) ItemsByType(t model.ItemType) []model.Item {
	return inv.filter(func(item model.Item) bool { return item.Type == t })
}

// LowStockItems returns the items whose quantity is at or below their minimum level.
func (inv *Inventory) LowStockItems() []model.Item {
	return inv.filter(model.Item.IsLowStock)
}

// Items returns a snapshot of all items in insertion order.
func (inv *Inventory) Items() []model.Item {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return slices.Clone(inv.items)
}

// Len returns the number of items.
func (inv *Inventory) Len() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return len(inv.items)
}

// Replace overwrites the whole collection. Items keep their identifiers and
// timestamps; items without an identifier get a fresh one.
func (inv *Inventory) Replace(items []model.Item) error {
	return inv.replace(items, false)
}

// Import overwrites the whole collection with remote items. Items already
// known keep their local minimum level.
func (inv *Inventory) Import(items []model.Item) error {
	return inv.replace(items, true)
}

func (inv *Inventory) replace(items []model.Item, keepMinimums bool) error {
	next := make([]model.Item, 0, len(items))
	for _, item := range items {
		if err := item.Normalize(); err != nil {
			return fmt.Errorf("item %q: %w", item.Name, err)
		}
		if item.ID == "" {
			item.ID = inv.cfg.newID()
		}
		if item.LastUpdated.IsZero() {
			item.LastUpdated = inv.cfg.now()
		}
		next = append(next, item)
	}

	inv.writeMu.Lock()
	defer inv.writeMu.Unlock()

	inv.mu.Lock()
	if keepMinimums {
		for n, item := range next {
			if i := inv.indexLocked(item.ID); i >= 0 {
				next[n].MinimumLevel = inv.items[i].MinimumLevel
			}
		}
	}
	inv.items = next
	inv.mu.Unlock()

	inv.changes.publish(Change[model.Item]{Op: OpReset, Records: slices.Clone(next)})
	return nil
}

func (inv *Inventory) filter(keep func(model.Item) bool) []model.Item {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	var out []model.Item
	for _, item := range inv.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func (inv *Inventory) indexLocked(id string) int {
	return slices.IndexFunc(inv.items, func(item model.Item) bool { return item.ID == id })
}

// adjustLocked is the only place quantities change through deltas.
func (inv *Inventory) adjustLocked(i int, delta decimal.Decimal) {
	q := inv.items[i].Quantity.Add(delta)
	if q.IsNegative() {
		q = decimal.Zero
	}
	inv.items[i].Quantity = q
	inv.items[i].LastUpdated = inv.cfg.now()
}

// consume validates every line against current stock and, only if all pass,
// decrements each referenced item. Both steps run under one lock. The caller
// holds writeMu.
func (inv *Inventory) consume(lines []model.DistributionLine) ([]model.DistributionLine, []model.Item, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	requested := make(map[string]decimal.Decimal, len(lines))
	for _, line := range lines {
		i := inv.indexLocked(line.ItemID)
		if i < 0 {
			name := line.ItemName
			if name == "" {
				name = line.ItemID
			}
			return nil, nil, &InsufficientStockError{ItemID: line.ItemID, ItemName: name, Requested: line.Quantity, Missing: true}
		}
		total := requested[line.ItemID].Add(line.Quantity)
		if inv.items[i].Quantity.LessThan(total) {
			return nil, nil, &InsufficientStockError{
				ItemID:    line.ItemID,
				ItemName:  inv.items[i].Name,
				Requested: total,
				Available: inv.items[i].Quantity,
			}
		}
		requested[line.ItemID] = total
	}

	out := make([]model.DistributionLine, len(lines))
	var touched []int
	for n, line := range lines {
		i := inv.indexLocked(line.ItemID)
		inv.adjustLocked(i, line.Quantity.Neg())
		out[n] = model.DistributionLine{
			ItemID:   line.ItemID,
			ItemName: inv.items[i].Name,
			Quantity: line.Quantity,
			Unit:     inv.items[i].Unit,
		}
		if !slices.Contains(touched, i) {
			touched = append(touched, i)
		}
	}
	updated := make([]model.Item, 0, len(touched))
	for _, i := range touched {
		updated = append(updated, inv.items[i])
	}
	return out, updated, nil
}

// publishIssued delivers the item changes made by distribution distributionID.
// The caller holds writeMu.
func (inv *Inventory) publishIssued(distributionID string, items []model.Item) {
	changes := make([]Change[model.Item], 0, len(items))
	for _, item := range items {
		changes = append(changes, Change[model.Item]{Op: OpUpdate, ID: item.ID, Record: item, DistributionID: distributionID})
	}
	inv.changes.publish(changes...)
}
