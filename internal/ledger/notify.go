package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/ataa/internal/model"
)

// Op identifies the kind of change published to subscribers.
type Op int

// Change operations.
const (
	OpCreate Op = iota + 1
	OpUpdate
	OpDelete
	// OpReset means the whole collection was replaced; Records holds the new contents.
	OpReset
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Change describes one mutation of a ledger. Record is the state after the
// change (before it, for OpDelete).
type Change[T any] struct {
	Op      Op
	ID      string
	Record  T
	Records []T

	// DistributionID is set on item and beneficiary changes made while
	// recording that distribution.
	DistributionID string
	// Issued is set when a distribution is created.
	Issued *Issued
}

// Issued is the state a new distribution left in the other ledgers: the items
// it drew from and the beneficiary it was stamped on, after the change.
type Issued struct {
	Items       []model.Item
	Beneficiary model.Beneficiary
}

type notifier[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Change[T])
}

func (n *notifier[T]) subscribe(fn func(Change[T])) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(Change[T]))
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// publish runs subscribers synchronously. Callers hold the ledger's writeMu,
// so changes reach subscribers in the order they were made, but not its mu.
func (n *notifier[T]) publish(changes ...Change[T]) {
	n.mu.Lock()
	subs := make([]func(Change[T]), 0, len(n.subs))
	for i := 0; i < n.next; i++ {
		if fn, ok := n.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	n.mu.Unlock()

	for _, c := range changes {
		for _, fn := range subs {
			fn(c)
		}
	}
}

type config struct {
	now   func() time.Time
	newID func() string
}

// Option configures a ledger.
type Option func(*config)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithIDs sets the identifier generator.
func WithIDs(newID func() string) Option {
	return func(c *config) { c.newID = newID }
}

func newConfig(opts []Option) config {
	c := config{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
