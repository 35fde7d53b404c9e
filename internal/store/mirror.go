package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/ataa/internal/ledger"
	"github.com/erazemk/ataa/internal/model"
)

// Ledgers groups the three in-memory ledgers persisted by this package.
type Ledgers struct {
	Inventory     *ledger.Inventory
	Registry      *ledger.Registry
	Distributions *ledger.Distributions
}

// Load fills the ledgers from the database. Call it before Mirror so the
// loaded state is not written back.
func Load(ctx context.Context, db *sql.DB, l Ledgers) error {
	items, err := ListItems(ctx, db)
	if err != nil {
		return err
	}
	if err := l.Inventory.Replace(items); err != nil {
		return fmt.Errorf("loading items: %w", err)
	}

	beneficiaries, err := ListBeneficiaries(ctx, db)
	if err != nil {
		return err
	}
	if err := l.Registry.Replace(beneficiaries); err != nil {
		return fmt.Errorf("loading beneficiaries: %w", err)
	}

	distributions, err := ListDistributions(ctx, db)
	if err != nil {
		return err
	}
	l.Distributions.Replace(distributions)

	slog.Info("ledgers loaded",
		"items", len(items),
		"beneficiaries", len(beneficiaries),
		"distributions", len(distributions),
	)
	return nil
}

// writeTimeout bounds a single write-through.
const writeTimeout = 10 * time.Second

// Mirror subscribes to the ledgers and writes every change through to the
// database in the order the ledgers made them. A distribution is written in
// one transaction with the stock and beneficiary it changed. Write failures
// are logged; the in-memory state stays authoritative. The returned function
// detaches the mirror.
func Mirror(db *sql.DB, l Ledgers) func() {
	write := func(what string, op ledger.Op, id string, fn func(ctx context.Context) error) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			slog.Error("persisting change failed", "collection", what, "op", op.String(), "id", id, "error", err)
		}
	}

	unsubs := []func(){
		l.Inventory.Subscribe(func(c ledger.Change[model.Item]) {
			if c.DistributionID != "" {
				return
			}
			write("items", c.Op, c.ID, func(ctx context.Context) error {
				switch c.Op {
				case ledger.OpDelete:
					return DeleteItem(ctx, db, c.ID)
				case ledger.OpReset:
					return ReplaceItems(ctx, db, c.Records)
				default:
					return SaveItem(ctx, db, c.Record)
				}
			})
		}),
		l.Registry.Subscribe(func(c ledger.Change[model.Beneficiary]) {
			if c.DistributionID != "" {
				return
			}
			write("beneficiaries", c.Op, c.ID, func(ctx context.Context) error {
				switch c.Op {
				case ledger.OpDelete:
					return DeleteBeneficiary(ctx, db, c.ID)
				case ledger.OpReset:
					return ReplaceBeneficiaries(ctx, db, c.Records)
				default:
					return SaveBeneficiary(ctx, db, c.Record)
				}
			})
		}),
		l.Distributions.Subscribe(func(c ledger.Change[model.Distribution]) {
			write("distributions", c.Op, c.ID, func(ctx context.Context) error {
				switch c.Op {
				case ledger.OpReset:
					return ReplaceDistributions(ctx, db, c.Records)
				case ledger.OpCreate:
					if c.Issued == nil {
						return SaveDistribution(ctx, db, c.Record)
					}
					return SaveIssuedDistribution(ctx, db, c.Record, c.Issued.Items, c.Issued.Beneficiary)
				default:
					return nil
				}
			})
		}),
	}

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
