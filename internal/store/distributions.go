package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/ataa/internal/model"
)

// SaveDistribution inserts a distribution with its lines.
func SaveDistribution(ctx context.Context, db *sql.DB, d model.Distribution) error {
	return inTx(ctx, db, "distribution", func(tx *sql.Tx) error {
		return saveDistribution(ctx, tx, d)
	})
}

// SaveIssuedDistribution records a new distribution together with the items it
// drew from and the beneficiary it was stamped on, in one transaction.
func SaveIssuedDistribution(ctx context.Context, db *sql.DB, d model.Distribution, items []model.Item, b model.Beneficiary) error {
	return inTx(ctx, db, "distribution", func(tx *sql.Tx) error {
		for _, item := range items {
			if err := saveItem(ctx, tx, item); err != nil {
				return fmt.Errorf("saving item %s: %w", item.ID, err)
			}
		}
		if err := saveBeneficiary(ctx, tx, b); err != nil {
			return fmt.Errorf("saving beneficiary %s: %w", b.ID, err)
		}
		return saveDistribution(ctx, tx, d)
	})
}

func saveDistribution(ctx context.Context, tx *sql.Tx, d model.Distribution) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO distributions (id, beneficiary_id, date, notes) VALUES (?, ?, ?, ?)`,
		d.ID, d.BeneficiaryID, d.Date.UTC(), d.Notes,
	)
	if err != nil {
		return fmt.Errorf("saving distribution: %w", err)
	}

	for i, line := range d.Lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO distribution_lines (distribution_id, position, item_id, item_name, quantity, unit)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			d.ID, i, line.ItemID, line.ItemName, line.Quantity.String(), line.Unit,
		)
		if err != nil {
			return fmt.Errorf("saving distribution line: %w", err)
		}
	}
	return nil
}

// ReplaceDistributions overwrites the distribution history, in order.
func ReplaceDistributions(ctx context.Context, db *sql.DB, records []model.Distribution) error {
	return inTx(ctx, db, "distributions", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM distribution_lines`); err != nil {
			return fmt.Errorf("clearing distribution lines: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM distributions`); err != nil {
			return fmt.Errorf("clearing distributions: %w", err)
		}
		for _, d := range records {
			if err := saveDistribution(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListDistributions returns every distribution in insertion order, with lines
// in their original order.
func ListDistributions(ctx context.Context, db *sql.DB) ([]model.Distribution, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT d.id, d.beneficiary_id, d.date, d.notes,
		        l.item_id, l.item_name, l.quantity, l.unit
		 FROM distributions d
		 LEFT JOIN distribution_lines l ON l.distribution_id = d.id
		 ORDER BY d.rowid, l.position`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing distributions: %w", err)
	}
	defer rows.Close()

	var out []model.Distribution
	for rows.Next() {
		var d model.Distribution
		var itemID, itemName, quantity, unit sql.NullString
		if err := rows.Scan(&d.ID, &d.BeneficiaryID, &d.Date, &d.Notes,
			&itemID, &itemName, &quantity, &unit); err != nil {
			return nil, fmt.Errorf("scanning distribution: %w", err)
		}

		if n := len(out); n == 0 || out[n-1].ID != d.ID {
			d.Date = d.Date.UTC()
			out = append(out, d)
		}
		if !itemID.Valid {
			continue
		}
		line := model.DistributionLine{ItemID: itemID.String, ItemName: itemName.String, Unit: unit.String}
		if err := line.Quantity.Scan(quantity.String); err != nil {
			return nil, fmt.Errorf("parsing quantity of %s: %w", d.ID, err)
		}
		last := &out[len(out)-1]
		last.Lines = append(last.Lines, line)
	}
	return out, rows.Err()
}
