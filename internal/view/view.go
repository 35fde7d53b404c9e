// Package view derives read-only aggregates from ledger snapshots.
package view

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/ataa/internal/model"
)

// DistributionInterval is how long a beneficiary may go without a distribution
// before being listed as needing one.
const DistributionInterval = 30 * 24 * time.Hour

// CategoryCount is one row of the category breakdown.
type CategoryCount struct {
	Category   model.Category `json:"category"`
	Count      int            `json:"count"`
	Percentage float64        `json:"percentage"`
}

// CategoryBreakdown counts beneficiaries per category, in display order.
func CategoryBreakdown(beneficiaries []model.Beneficiary) []CategoryCount {
	counts := make(map[model.Category]int, len(model.Categories))
	for _, b := range beneficiaries {
		counts[b.Category]++
	}

	total := len(beneficiaries)
	out := make([]CategoryCount, 0, len(model.Categories))
	for _, c := range model.Categories {
		row := CategoryCount{Category: c, Count: counts[c]}
		if total > 0 {
			row.Percentage = 100 * float64(row.Count) / float64(total)
		}
		out = append(out, row)
	}
	return out
}

// LowStockEntry is an item at or below its minimum level.
type LowStockEntry struct {
	Item     model.Item `json:"item"`
	Critical bool       `json:"critical"`
}

// LowStock lists the low-stock items in input order, flagging the critical ones.
func LowStock(items []model.Item) []LowStockEntry {
	var out []LowStockEntry
	for _, item := range items {
		if item.IsLowStock() {
			out = append(out, LowStockEntry{Item: item, Critical: item.IsCritical()})
		}
	}
	return out
}

// NeedsDistribution reports whether b has never received a distribution or
// received the last one more than DistributionInterval before now.
func NeedsDistribution(b model.Beneficiary, now time.Time) bool {
	return b.LastDistribution == nil || b.LastDistribution.Before(now.Add(-DistributionInterval))
}

// NeedingDistribution filters beneficiaries with NeedsDistribution.
func NeedingDistribution(beneficiaries []model.Beneficiary, now time.Time) []model.Beneficiary {
	var out []model.Beneficiary
	for _, b := range beneficiaries {
		if NeedsDistribution(b, now) {
			out = append(out, b)
		}
	}
	return out
}

// StockLevel buckets an item's quantity relative to its minimum level.
type StockLevel string

// Stock levels.
const (
	LevelLow    StockLevel = "low"
	LevelMedium StockLevel = "medium"
	LevelHigh   StockLevel = "high"
)

var oneAndHalf = decimal.NewFromFloat(1.5)

// Level returns low below the minimum, high from 1.5 times the minimum and
// medium in between.
func Level(item model.Item) StockLevel {
	switch {
	case item.Quantity.LessThan(item.MinimumLevel):
		return LevelLow
	case item.Quantity.LessThan(item.MinimumLevel.Mul(oneAndHalf)):
		return LevelMedium
	default:
		return LevelHigh
	}
}

// ParseLevel converts query input into a StockLevel. An empty string is valid and means any level.
func ParseLevel(s string) (StockLevel, bool) {
	l := StockLevel(strings.ToLower(strings.TrimSpace(s)))
	switch l {
	case "", LevelLow, LevelMedium, LevelHigh:
		return l, true
	}
	return "", false
}

// ItemFilter narrows an inventory listing. Zero fields match everything.
type ItemFilter struct {
	Query string
	Type  model.ItemType
	Level StockLevel
}

// FilterItems returns the items matching f in input order. Query matches the
// item name or notes case-insensitively.
func FilterItems(items []model.Item, f ItemFilter) []model.Item {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []model.Item
	for _, item := range items {
		if q != "" && !strings.Contains(strings.ToLower(item.Name), q) && !strings.Contains(strings.ToLower(item.Notes), q) {
			continue
		}
		if f.Type != "" && item.Type != f.Type {
			continue
		}
		if f.Level != "" && Level(item) != f.Level {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Sort fields accepted by SortItems.
const (
	SortByName        = "name"
	SortByQuantity    = "quantity"
	SortByLastUpdated = "last_updated"
)

// SortItems sorts items in place by field. Unknown fields leave the order
// unchanged. Equal keys keep their relative order.
func SortItems(items []model.Item, field string, descending bool) {
	var compare func(a, b model.Item) int
	switch field {
	case SortByName:
		compare = func(a, b model.Item) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case SortByQuantity:
		compare = func(a, b model.Item) int { return a.Quantity.Cmp(b.Quantity) }
	case SortByLastUpdated:
		compare = func(a, b model.Item) int { return a.LastUpdated.Compare(b.LastUpdated) }
	default:
		return
	}
	if descending {
		asc := compare
		compare = func(a, b model.Item) int { return asc(b, a) }
	}
	slices.SortStableFunc(items, compare)
}

// ValidSortField reports whether SortItems understands field.
func ValidSortField(field string) bool {
	switch field {
	case SortByName, SortByQuantity, SortByLastUpdated:
		return true
	}
	return false
}
