package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseItemType(t *testing.T) {
	tests := []struct {
		in      string
		want    ItemType
		wantErr bool
	}{
		{"food", ItemTypeFood, false},
		{"FOOD", ItemTypeFood, false},
		{"non-food", ItemTypeNonFood, false},
		{"non_food", ItemTypeNonFood, false},
		{"medicine", "", true},
	}

	for _, tt := range tests {
		got, err := ParseItemType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseItemType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseItemType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestItemStockThresholds(t *testing.T) {
	tests := []struct {
		quantity, minimum int64
		low, critical     bool
	}{
		{10, 20, true, false},
		{20, 20, true, false},
		{21, 20, false, false},
		{9, 20, true, true},
		{0, 0, true, false},
	}

	for _, tt := range tests {
		item := Item{Quantity: decimal.NewFromInt(tt.quantity), MinimumLevel: decimal.NewFromInt(tt.minimum)}
		if got := item.IsLowStock(); got != tt.low {
			t.Errorf("IsLowStock(%d/%d) = %v, want %v", tt.quantity, tt.minimum, got, tt.low)
		}
		if got := item.IsCritical(); got != tt.critical {
			t.Errorf("IsCritical(%d/%d) = %v, want %v", tt.quantity, tt.minimum, got, tt.critical)
		}
	}
}

func TestItemValidate(t *testing.T) {
	item := Item{Name: "Rice", Type: ItemTypeFood, Quantity: decimal.NewFromInt(5), MinimumLevel: decimal.NewFromInt(1)}
	if err := item.Validate(); err != nil {
		t.Fatalf("expected valid item, got %v", err)
	}

	item.Quantity = decimal.NewFromInt(-1)
	if err := item.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for negative quantity, got %v", err)
	}

	item.Quantity = decimal.Zero
	item.Type = "toys"
	if err := item.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for unknown type, got %v", err)
	}
}

func TestItemNormalize(t *testing.T) {
	item := Item{Name: "Soap", Type: "NonFood", Quantity: decimal.NewFromInt(3)}
	if err := item.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if item.Type != ItemTypeNonFood {
		t.Errorf("Type = %q, want %q", item.Type, ItemTypeNonFood)
	}

	bad := Item{Name: "Soap", Type: "toys"}
	if err := bad.Normalize(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for unknown type, got %v", err)
	}
	if bad.Type != "toys" {
		t.Errorf("failed Normalize changed Type to %q", bad.Type)
	}
}
