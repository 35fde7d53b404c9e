package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/ataa/internal/ledger"
	"github.com/erazemk/ataa/internal/model"
)

// Collection names a remotely sourced ledger.
type Collection string

// Collections.
const (
	Beneficiaries Collection = "beneficiaries"
	Inventory     Collection = "inventory"
)

// Collections lists every collection Syncer can import.
var Collections = []Collection{Beneficiaries, Inventory}

// ParseCollection validates a collection name.
func ParseCollection(s string) (Collection, error) {
	for _, c := range Collections {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown collection %q", model.ErrInvalid, s)
}

// FetchState is the import status of one collection.
type FetchState struct {
	Loading    bool       `json:"loading"`
	Error      string     `json:"error,omitempty"`
	LastSynced *time.Time `json:"last_synced"`
	Imported   int        `json:"imported"`
	Skipped    int        `json:"skipped"`
}

// Result reports a finished import to observers.
type Result struct {
	Collection Collection
	Imported   int
	Skipped    int
	Duration   time.Duration
	Err        error
}

// Fetcher is the part of Client the Syncer needs.
type Fetcher interface {
	FetchCases(ctx context.Context) ([]Case, error)
	FetchInventory(ctx context.Context) ([]InventoryEntry, error)
}

// Syncer replaces the local ledgers with remote data and tracks per-collection state.
type Syncer struct {
	fetcher      Fetcher
	inventory    *ledger.Inventory
	registry     *ledger.Registry
	minimumLevel decimal.Decimal
	now          func() time.Time

	// OnResult, when set, is called after every import attempt.
	OnResult func(Result)

	mu     sync.Mutex
	states map[Collection]FetchState
}

// NewSyncer creates a Syncer. Newly imported items get minimumLevel.
func NewSyncer(fetcher Fetcher, inventory *ledger.Inventory, registry *ledger.Registry, minimumLevel decimal.Decimal) *Syncer {
	return &Syncer{
		fetcher:      fetcher,
		inventory:    inventory,
		registry:     registry,
		minimumLevel: minimumLevel,
		now:          func() time.Time { return time.Now().UTC() },
		states:       make(map[Collection]FetchState),
	}
}

// Restore seeds the last successful import time, e.g. from persisted settings.
func (s *Syncer) Restore(c Collection, lastSynced time.Time) {
	if lastSynced.IsZero() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[c]
	st.LastSynced = &lastSynced
	s.states[c] = st
}

// State returns the status of collection c.
func (s *Syncer) State(c Collection) FetchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[c]
}

// States returns the status of every collection.
func (s *Syncer) States() map[Collection]FetchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Collection]FetchState, len(Collections))
	for _, c := range Collections {
		out[c] = s.states[c]
	}
	return out
}

// SyncAll imports every collection concurrently and returns the first error.
// A failure in one collection does not cancel the other.
func (s *Syncer) SyncAll(ctx context.Context) error {
	var g errgroup.Group
	for _, c := range Collections {
		g.Go(func() error { return s.Sync(ctx, c) })
	}
	return g.Wait()
}

// Sync imports collection c. On failure the ledger is left untouched and the
// error is recorded in the collection's state. Overlapping syncs of the same
// collection are last-write-wins.
func (s *Syncer) Sync(ctx context.Context, c Collection) error {
	s.update(c, func(st *FetchState) {
		st.Loading = true
		st.Error = ""
	})

	start := time.Now()
	imported, skipped, err := s.run(ctx, c)
	if err != nil {
		err = fmt.Errorf("syncing %s: %w", c, err)
	}

	s.update(c, func(st *FetchState) {
		st.Loading = false
		if err != nil {
			st.Error = err.Error()
			return
		}
		at := s.now()
		st.LastSynced = &at
		st.Imported = imported
		st.Skipped = skipped
	})

	if err != nil {
		slog.Error("remote sync failed", "collection", string(c), "error", err)
	} else {
		slog.Info("remote sync finished", "collection", string(c), "imported", imported, "skipped", skipped)
	}
	if s.OnResult != nil {
		s.OnResult(Result{Collection: c, Imported: imported, Skipped: skipped, Duration: time.Since(start), Err: err})
	}
	return err
}

func (s *Syncer) run(ctx context.Context, c Collection) (int, int, error) {
	switch c {
	case Beneficiaries:
		cases, err := s.fetcher.FetchCases(ctx)
		if err != nil {
			return 0, 0, err
		}
		records, skipped := MapCases(cases)
		logSkipped(c, skipped)
		if err := s.registry.Import(records); err != nil {
			return 0, 0, err
		}
		return len(records), len(skipped), nil

	case Inventory:
		entries, err := s.fetcher.FetchInventory(ctx)
		if err != nil {
			return 0, 0, err
		}
		items, skipped := MapInventory(entries, s.minimumLevel)
		logSkipped(c, skipped)
		if err := s.inventory.Import(items); err != nil {
			return 0, 0, err
		}
		return len(items), len(skipped), nil
	}
	return 0, 0, fmt.Errorf("%w: unknown collection %q", model.ErrInvalid, c)
}

func (s *Syncer) update(c Collection, fn func(*FetchState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[c]
	fn(&st)
	s.states[c] = st
}

func logSkipped(c Collection, skipped []error) {
	for _, err := range skipped {
		slog.Warn("skipping remote record", "collection", string(c), "error", err)
	}
}
