package ledger

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/ataa/internal/model"
)

// DefaultRecentLimit is used by Recent when no positive limit is given.
const DefaultRecentLimit = 10

// NewDistribution is a request to issue inventory to a beneficiary.
type NewDistribution struct {
	BeneficiaryID string
	Date          time.Time
	Lines         []model.DistributionLine
	Notes         string
}

// Distributions records distribution events. Creating one consumes stock from
// the inventory and stamps the beneficiary in the registry.
type Distributions struct {
	cfg       config
	inventory *Inventory
	registry  *Registry

	writeMu sync.Mutex
	mu      sync.RWMutex
	records []model.Distribution
	changes notifier[model.Distribution]
}

// NewDistributions creates an empty distribution ledger bound to inventory and registry.
func NewDistributions(inventory *Inventory, registry *Registry, opts ...Option) *Distributions {
	return &Distributions{
		cfg:       newConfig(opts),
		inventory: inventory,
		registry:  registry,
	}
}

// Subscribe registers fn for every recorded distribution and returns a function
// that removes it. Changes for created distributions carry the items and
// beneficiary they changed in Issued.
func (d *Distributions) Subscribe(fn func(Change[model.Distribution])) func() {
	return d.changes.subscribe(fn)
}

// Add validates every line against current stock and, only if all lines can be
// served, decrements the inventory, stamps the beneficiary and records the
// distribution. On error no state has changed.
func (d *Distributions) Add(req NewDistribution) (model.Distribution, error) {
	if len(req.Lines) == 0 {
		return model.Distribution{}, fmt.Errorf("%w: distribution needs at least one item", model.ErrInvalid)
	}
	for _, line := range req.Lines {
		if line.ItemID == "" {
			return model.Distribution{}, fmt.Errorf("%w: item id required", model.ErrInvalid)
		}
		if !line.Quantity.IsPositive() {
			return model.Distribution{}, fmt.Errorf("%w: quantity for %q must be positive", model.ErrInvalid, line.ItemName)
		}
	}

	// Lock order: distributions, inventory, registry.
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	d.inventory.writeMu.Lock()
	defer d.inventory.writeMu.Unlock()
	d.registry.writeMu.Lock()
	defer d.registry.writeMu.Unlock()

	if !d.registry.exists(req.BeneficiaryID) {
		return model.Distribution{}, fmt.Errorf("beneficiary %s: %w", req.BeneficiaryID, ErrUnknownBeneficiary)
	}

	date := req.Date
	if date.IsZero() {
		date = d.cfg.now()
	}

	// Readers that see the record also see the stock and the stamp it caused.
	d.mu.Lock()
	lines, items, err := d.inventory.consume(req.Lines)
	if err != nil {
		d.mu.Unlock()
		return model.Distribution{}, err
	}
	// The registry's writeMu is held, so the beneficiary checked above still exists.
	beneficiary, stamped, _ := d.registry.stamp(req.BeneficiaryID, date)
	rec := model.Distribution{
		ID:            d.cfg.newID(),
		BeneficiaryID: req.BeneficiaryID,
		Date:          date,
		Lines:         lines,
		Notes:         req.Notes,
	}
	d.records = append(d.records, rec)
	d.mu.Unlock()

	d.inventory.publishIssued(rec.ID, items)
	if stamped {
		d.registry.changes.publish(Change[model.Beneficiary]{
			Op: OpUpdate, ID: beneficiary.ID, Record: beneficiary.Clone(), DistributionID: rec.ID,
		})
	}
	d.changes.publish(Change[model.Distribution]{
		Op:     OpCreate,
		ID:     rec.ID,
		Record: rec.Clone(),
		Issued: &Issued{Items: slices.Clone(items), Beneficiary: beneficiary},
	})
	return rec.Clone(), nil
}

// ByBeneficiary returns the beneficiary's distributions in insertion order.
func (d *Distributions) ByBeneficiary(beneficiaryID string) []model.Distribution {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []model.Distribution
	for _, rec := range d.records {
		if rec.BeneficiaryID == beneficiaryID {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// Recent returns up to limit distributions, newest date first. Distributions
// sharing a date are ordered most recently recorded first.
func (d *Distributions) Recent(limit int) []model.Distribution {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	d.mu.RLock()
	out := make([]model.Distribution, 0, len(d.records))
	for i := len(d.records) - 1; i >= 0; i-- {
		out = append(out, d.records[i].Clone())
	}
	d.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b model.Distribution) int {
		return b.Date.Compare(a.Date)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// All returns every distribution in insertion order.
func (d *Distributions) All() []model.Distribution {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.Distribution, len(d.records))
	for i, rec := range d.records {
		out[i] = rec.Clone()
	}
	return out
}

// Len returns the number of recorded distributions.
func (d *Distributions) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Replace overwrites the history with persisted records. It does not touch
// inventory quantities.
func (d *Distributions) Replace(records []model.Distribution) {
	next := make([]model.Distribution, len(records))
	for i, rec := range records {
		next[i] = rec.Clone()
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	d.mu.Lock()
	d.records = next
	d.mu.Unlock()

	snapshot := make([]model.Distribution, len(next))
	for i, rec := range next {
		snapshot[i] = rec.Clone()
	}
	d.changes.publish(Change[model.Distribution]{Op: OpReset, Records: snapshot})
}

// TotalIssued sums the quantity of itemID issued across all distributions.
func (d *Distributions) TotalIssued(itemID string) decimal.Decimal {
	d.mu.RLock()
	defer d.mu.RUnlock()
	total := decimal.Zero
	for _, rec := range d.records {
		for _, line := range rec.Lines {
			if line.ItemID == itemID {
				total = total.Add(line.Quantity)
			}
		}
	}
	return total
}
