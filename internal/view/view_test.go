package view

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/ataa/internal/model"
)

var now = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func item(name string, quantity, minimum float64) model.Item {
	return model.Item{
		ID:           name,
		Name:         name,
		Type:         model.ItemTypeFood,
		Quantity:     decimal.NewFromFloat(quantity),
		MinimumLevel: decimal.NewFromFloat(minimum),
	}
}

func beneficiary(id string, c model.Category, last *time.Time) model.Beneficiary {
	return model.Beneficiary{ID: id, FirstName: id, Category: c, LastDistribution: last}
}

func TestCategoryBreakdown(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		rows := CategoryBreakdown(nil)
		require.Len(t, rows, 3)
		for _, r := range rows {
			assert.Zero(t, r.Count)
			assert.Zero(t, r.Percentage)
		}
	})

	t.Run("counts and percentages", func(t *testing.T) {
		rows := CategoryBreakdown([]model.Beneficiary{
			beneficiary("1", model.CategoryA, nil),
			beneficiary("2", model.CategoryA, nil),
			beneficiary("3", model.CategoryOrphans, nil),
			beneficiary("4", model.CategoryA, nil),
		})
		require.Len(t, rows, 3)
		assert.Equal(t, model.CategoryOrphans, rows[0].Category)
		assert.Equal(t, 1, rows[0].Count)
		assert.InDelta(t, 25.0, rows[0].Percentage, 1e-9)
		assert.Equal(t, 3, rows[1].Count)
		assert.InDelta(t, 75.0, rows[1].Percentage, 1e-9)
		assert.Equal(t, 0, rows[2].Count)
	})
}

func TestLowStock(t *testing.T) {
	entries := LowStock([]model.Item{
		item("rice", 10, 20),
		item("oil", 5, 20),
		item("flour", 20, 20),
		item("sugar", 30, 20),
	})
	require.Len(t, entries, 3)
	assert.Equal(t, "rice", entries[0].Item.Name)
	assert.False(t, entries[0].Critical, "exactly half the minimum is not critical")
	assert.True(t, entries[1].Critical)
	assert.Equal(t, "flour", entries[2].Item.Name)
	assert.False(t, entries[2].Critical)
}

func TestNeedingDistribution(t *testing.T) {
	recent := now.Add(-5 * 24 * time.Hour)
	old := now.Add(-31 * 24 * time.Hour)
	edge := now.Add(-DistributionInterval)

	got := NeedingDistribution([]model.Beneficiary{
		beneficiary("never", model.CategoryA, nil),
		beneficiary("recent", model.CategoryA, &recent),
		beneficiary("old", model.CategoryB, &old),
		beneficiary("edge", model.CategoryB, &edge),
	}, now)

	var ids []string
	for _, b := range got {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"never", "old"}, ids)
}

func TestLevel(t *testing.T) {
	tests := []struct {
		quantity float64
		want     StockLevel
	}{
		{0, LevelLow},
		{19.9, LevelLow},
		{20, LevelMedium},
		{29.9, LevelMedium},
		{30, LevelHigh},
		{100, LevelHigh},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, Level(item("x", tt.quantity, 20)), "quantity %v", tt.quantity)
	}

	l, ok := ParseLevel(" LOW ")
	assert.True(t, ok)
	assert.Equal(t, LevelLow, l)
	_, ok = ParseLevel("empty")
	assert.False(t, ok)
}

func TestFilterItems(t *testing.T) {
	blanket := item("Blanket", 50, 10)
	blanket.Type = model.ItemTypeNonFood
	blanket.Notes = "winter"
	items := []model.Item{item("Rice", 5, 10), item("Brown rice", 12, 10), blanket}

	names := func(items []model.Item) []string {
		var out []string
		for _, i := range items {
			out = append(out, i.Name)
		}
		return out
	}

	assert.Len(t, FilterItems(items, ItemFilter{}), 3)
	assert.Equal(t, []string{"Rice", "Brown rice"}, names(FilterItems(items, ItemFilter{Query: "RICE"})))
	assert.Equal(t, []string{"Blanket"}, names(FilterItems(items, ItemFilter{Query: "winter"})))
	assert.Equal(t, []string{"Blanket"}, names(FilterItems(items, ItemFilter{Type: model.ItemTypeNonFood})))
	assert.Equal(t, []string{"Brown rice"}, names(FilterItems(items, ItemFilter{Level: LevelMedium})))
	assert.Empty(t, FilterItems(items, ItemFilter{Query: "rice", Level: LevelHigh}))
}

func TestSortItems(t *testing.T) {
	a := item("beans", 3, 1)
	a.LastUpdated = now.Add(-time.Hour)
	b := item("Apples", 7, 1)
	b.LastUpdated = now
	c := item("carrots", 3, 1)
	c.LastUpdated = now.Add(-2 * time.Hour)

	names := func(items []model.Item) []string {
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.Name
		}
		return out
	}

	items := []model.Item{a, b, c}
	SortItems(items, SortByName, false)
	assert.Equal(t, []string{"Apples", "beans", "carrots"}, names(items))

	items = []model.Item{a, b, c}
	SortItems(items, SortByQuantity, true)
	assert.Equal(t, []string{"Apples", "beans", "carrots"}, names(items), "equal quantities keep input order")

	items = []model.Item{a, b, c}
	SortItems(items, SortByLastUpdated, false)
	assert.Equal(t, []string{"carrots", "beans", "Apples"}, names(items))

	items = []model.Item{a, b, c}
	SortItems(items, "colour", false)
	assert.Equal(t, []string{"beans", "Apples", "carrots"}, names(items))
	assert.False(t, ValidSortField("colour"))
}

func TestSummarize(t *testing.T) {
	var items []model.Item
	for i := range 7 {
		items = append(items, item(string(rune('a'+i)), 1, 10))
	}
	items = append(items, item("plenty", 100, 10))

	recent := make([]model.Distribution, 12)
	for i := range recent {
		recent[i] = model.Distribution{ID: string(rune('A' + i))}
	}
	last := now.Add(-time.Hour)

	d := Summarize([]model.Beneficiary{
		beneficiary("1", model.CategoryA, nil),
		beneficiary("2", model.CategoryB, &last),
	}, items, recent, now)

	assert.Equal(t, 2, d.TotalBeneficiaries)
	assert.Equal(t, 8, d.TotalItems)
	assert.Equal(t, 7, d.LowStockCount)
	assert.Equal(t, 1, d.NeedingDistribution)
	assert.Len(t, d.LowStock, 5)
	assert.Len(t, d.Recent, 10)
	assert.Equal(t, "A", d.Recent[0].ID)
	assert.Len(t, d.Categories, 3)

	empty := Summarize(nil, nil, nil, now)
	assert.NotNil(t, empty.LowStock)
	assert.NotNil(t, empty.Recent)
	assert.Zero(t, empty.TotalItems)
}
