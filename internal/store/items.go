package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/ataa/internal/model"
)

const itemColumns = `id, name, type, quantity, unit, minimum_level, last_updated, notes`

// SaveItem inserts or updates an item. Updates keep the original row position.
func SaveItem(ctx context.Context, db *sql.DB, item model.Item) error {
	if err := saveItem(ctx, db, item); err != nil {
		return fmt.Errorf("saving item: %w", err)
	}
	return nil
}

func saveItem(ctx context.Context, e execer, item model.Item) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     name = excluded.name,
		     type = excluded.type,
		     quantity = excluded.quantity,
		     unit = excluded.unit,
		     minimum_level = excluded.minimum_level,
		     last_updated = excluded.last_updated,
		     notes = excluded.notes`,
		item.ID, item.Name, string(item.Type), item.Quantity.String(), item.Unit,
		item.MinimumLevel.String(), item.LastUpdated.UTC(), item.Notes,
	)
	return err
}

// DeleteItem removes an item and its photo.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	return inTx(ctx, db, "item deletion", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting item: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM item_images WHERE item_id = ?`, id); err != nil {
			return fmt.Errorf("deleting item image: %w", err)
		}
		return nil
	})
}

// ReplaceItems overwrites the table with items, in order. Photos of items
// that survive the replacement are kept.
func ReplaceItems(ctx context.Context, db *sql.DB, items []model.Item) error {
	return inTx(ctx, db, "items", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
			return fmt.Errorf("clearing items: %w", err)
		}
		for _, item := range items {
			if err := saveItem(ctx, tx, item); err != nil {
				return fmt.Errorf("saving item %s: %w", item.ID, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM item_images WHERE item_id NOT IN (SELECT id FROM items)`,
		); err != nil {
			return fmt.Errorf("pruning item images: %w", err)
		}
		return nil
	})
}

// ListItems returns every item in insertion order.
func ListItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var itemType string
		if err := rows.Scan(&item.ID, &item.Name, &itemType, &item.Quantity, &item.Unit,
			&item.MinimumLevel, &item.LastUpdated, &item.Notes); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Type = model.ItemType(itemType)
		item.LastUpdated = item.LastUpdated.UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}
