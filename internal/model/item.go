package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ItemType separates food from non-food stock.
type ItemType string

// Item types.
const (
	ItemTypeFood    ItemType = "food"
	ItemTypeNonFood ItemType = "non-food"
)

// ParseItemType converts user or API input into an ItemType.
func ParseItemType(s string) (ItemType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "food":
		return ItemTypeFood, nil
	case "non-food", "nonfood", "non_food":
		return ItemTypeNonFood, nil
	}
	return "", fmt.Errorf("%w: unknown item type %q", ErrInvalid, s)
}

// Item is a stocked good tracked by quantity and unit.
type Item struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         ItemType        `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	MinimumLevel decimal.Decimal `json:"minimum_level"`
	LastUpdated  time.Time       `json:"last_updated"`
	Notes        string          `json:"notes,omitempty"`
}

var half = decimal.NewFromFloat(0.5)

// IsLowStock reports whether the quantity is at or below the minimum level.
func (i Item) IsLowStock() bool {
	return i.Quantity.LessThanOrEqual(i.MinimumLevel)
}

// IsCritical reports whether the quantity is below half the minimum level.
func (i Item) IsCritical() bool {
	return i.Quantity.LessThan(i.MinimumLevel.Mul(half))
}

// Validate checks the record invariants.
func (i Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: item name required", ErrInvalid)
	}
	if _, err := ParseItemType(string(i.Type)); err != nil {
		return err
	}
	if i.Quantity.IsNegative() {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalid)
	}
	if i.MinimumLevel.IsNegative() {
		return fmt.Errorf("%w: minimum level must not be negative", ErrInvalid)
	}
	return nil
}

// Normalize replaces Type with its canonical value and validates the result.
func (i *Item) Normalize() error {
	t, err := ParseItemType(string(i.Type))
	if err != nil {
		return err
	}
	i.Type = t
	return i.Validate()
}

// ItemPatch lists the fields a partial update may change. Nil fields are left alone.
type ItemPatch struct {
	Name         *string          `json:"name"`
	Type         *ItemType        `json:"type"`
	Quantity     *decimal.Decimal `json:"quantity"`
	Unit         *string          `json:"unit"`
	MinimumLevel *decimal.Decimal `json:"minimum_level"`
	Notes        *string          `json:"notes"`
}

// Apply returns i with the patch applied. The result is not validated.
func (p ItemPatch) Apply(i Item) Item {
	if p.Name != nil {
		i.Name = *p.Name
	}
	if p.Type != nil {
		i.Type = *p.Type
	}
	if p.Quantity != nil {
		i.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		i.Unit = *p.Unit
	}
	if p.MinimumLevel != nil {
		i.MinimumLevel = *p.MinimumLevel
	}
	if p.Notes != nil {
		i.Notes = *p.Notes
	}
	return i
}
