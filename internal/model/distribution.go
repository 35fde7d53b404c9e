package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Distribution records inventory issued to one beneficiary.
type Distribution struct {
	ID            string             `json:"id"`
	BeneficiaryID string             `json:"beneficiary_id"`
	Date          time.Time          `json:"date"`
	Lines         []DistributionLine `json:"items"`
	Notes         string             `json:"notes,omitempty"`
}

// DistributionLine is one (item, quantity) pair. Name and unit are copied from
// the inventory when the distribution is recorded.
type DistributionLine struct {
	ItemID   string          `json:"item_id"`
	ItemName string          `json:"item_name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

// Clone returns a copy with its own line slice.
func (d Distribution) Clone() Distribution {
	d.Lines = append([]DistributionLine(nil), d.Lines...)
	return d
}
