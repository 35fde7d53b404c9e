package ledger

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/erazemk/ataa/internal/model"
)

// Registry owns the set of beneficiaries in insertion order.
type Registry struct {
	cfg     config
	writeMu sync.Mutex
	mu      sync.RWMutex
	records []model.Beneficiary
	changes notifier[model.Beneficiary]
}

// NewRegistry creates an empty beneficiary registry.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{cfg: newConfig(opts)}
}

// Subscribe registers fn for every registry change and returns a function that removes it.
func (r *Registry) Subscribe(fn func(Change[model.Beneficiary])) func() {
	return r.changes.subscribe(fn)
}

// AddBeneficiary assigns an identifier and creation time. New beneficiaries
// have not received a distribution yet.
func (r *Registry) AddBeneficiary(b model.Beneficiary) (model.Beneficiary, error) {
	if err := b.Normalize(); err != nil {
		return model.Beneficiary{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	b.ID = r.cfg.newID()
	b.CreatedAt = r.cfg.now()
	b.LastDistribution = nil
	r.records = append(r.records, b)
	r.mu.Unlock()

	r.changes.publish(Change[model.Beneficiary]{Op: OpCreate, ID: b.ID, Record: b.Clone()})
	return b.Clone(), nil
}

// UpdateBeneficiary applies patch to the beneficiary.
func (r *Registry) UpdateBeneficiary(id string, patch model.BeneficiaryPatch) (model.Beneficiary, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return model.Beneficiary{}, fmt.Errorf("beneficiary %s: %w", id, ErrNotFound)
	}
	updated := patch.Apply(r.records[i])
	if err := updated.Normalize(); err != nil {
		r.mu.Unlock()
		return model.Beneficiary{}, err
	}
	r.records[i] = updated
	r.mu.Unlock()

	r.changes.publish(Change[model.Beneficiary]{Op: OpUpdate, ID: id, Record: updated.Clone()})
	return updated.Clone(), nil
}

// RemoveBeneficiary deletes the beneficiary. Its distribution history is kept.
func (r *Registry) RemoveBeneficiary(id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return fmt.Errorf("beneficiary %s: %w", id, ErrNotFound)
	}
	removed := r.records[i]
	r.records = slices.Delete(r.records, i, i+1)
	r.mu.Unlock()

	r.changes.publish(Change[model.Beneficiary]{Op: OpDelete, ID: id, Record: removed.Clone()})
	return nil
}

// Beneficiary returns the beneficiary with the given identifier.
func (r *Registry) Beneficiary(id string) (model.Beneficiary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexLocked(id)
	if i < 0 {
		return model.Beneficiary{}, false
	}
	return r.records[i].Clone(), true
}

// ByCategory returns the beneficiaries in category c.
func (r *Registry) ByCategory(c model.Category) []model.Beneficiary {
	return r.filter(func(b model.Beneficiary) bool { return b.Category == c })
}

// Search matches query case-insensitively against the full name, phone number
// and address. An empty query returns every beneficiary.
func (r *Registry) Search(query string) []model.Beneficiary {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return r.Beneficiaries()
	}
	return r.filter(func(b model.Beneficiary) bool {
		return strings.Contains(strings.ToLower(b.FullName()), q) ||
			strings.Contains(strings.ToLower(b.PhoneNumber), q) ||
			strings.Contains(strings.ToLower(b.Address), q)
	})
}

// Beneficiaries returns a snapshot of every beneficiary in insertion order.
func (r *Registry) Beneficiaries() []model.Beneficiary {
	return r.filter(func(model.Beneficiary) bool { return true })
}

// Len returns the number of beneficiaries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// MarkDistributed moves LastDistribution forward to at. Earlier timestamps are ignored.
func (r *Registry) MarkDistributed(id string, at time.Time) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	updated, changed, ok := r.stamp(id, at)
	if !ok {
		return fmt.Errorf("beneficiary %s: %w", id, ErrNotFound)
	}
	if changed {
		r.changes.publish(Change[model.Beneficiary]{Op: OpUpdate, ID: id, Record: updated})
	}
	return nil
}

// stamp moves LastDistribution forward to at and returns the beneficiary
// afterwards. The caller holds writeMu.
func (r *Registry) stamp(id string, at time.Time) (b model.Beneficiary, changed, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(id)
	if i < 0 {
		return model.Beneficiary{}, false, false
	}
	if last := r.records[i].LastDistribution; last == nil || at.After(*last) {
		r.records[i].LastDistribution = &at
		changed = true
	}
	return r.records[i].Clone(), changed, true
}

// Replace overwrites the whole collection with persisted records.
// Identifiers and timestamps are kept; missing ones are filled in.
func (r *Registry) Replace(records []model.Beneficiary) error {
	return r.replace(records, false)
}

// Import overwrites the whole collection with remote records. For
// beneficiaries already known it keeps what only exists locally: the last
// distribution stamp, and phone and address when the remote has none.
func (r *Registry) Import(records []model.Beneficiary) error {
	return r.replace(records, true)
}

func (r *Registry) replace(records []model.Beneficiary, keepLocal bool) error {
	next := make([]model.Beneficiary, 0, len(records))
	for _, b := range records {
		if err := b.Normalize(); err != nil {
			return fmt.Errorf("beneficiary %q: %w", b.FullName(), err)
		}
		if b.ID == "" {
			b.ID = r.cfg.newID()
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = r.cfg.now()
		}
		next = append(next, b.Clone())
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	if keepLocal {
		for n, b := range next {
			i := r.indexLocked(b.ID)
			if i < 0 {
				continue
			}
			local := r.records[i].Clone()
			next[n].LastDistribution = local.LastDistribution
			if b.PhoneNumber == "" {
				next[n].PhoneNumber = local.PhoneNumber
			}
			if b.Address == "" {
				next[n].Address = local.Address
			}
		}
	}
	r.records = next
	r.mu.Unlock()

	snapshot := make([]model.Beneficiary, len(next))
	for i, b := range next {
		snapshot[i] = b.Clone()
	}
	r.changes.publish(Change[model.Beneficiary]{Op: OpReset, Records: snapshot})
	return nil
}

func (r *Registry) exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexLocked(id) >= 0
}

func (r *Registry) filter(keep func(model.Beneficiary) bool) []model.Beneficiary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Beneficiary
	for _, b := range r.records {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	return out
}

func (r *Registry) indexLocked(id string) int {
	return slices.IndexFunc(r.records, func(b model.Beneficiary) bool { return b.ID == id })
}
