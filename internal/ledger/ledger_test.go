package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/ataa/internal/model"
)

// testClock is a settable clock shared by the ledgers under test.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func newItem(name string, quantity, minimum int64) model.Item {
	return model.Item{
		Name:         name,
		Type:         model.ItemTypeFood,
		Quantity:     qty(quantity),
		Unit:         "kg",
		MinimumLevel: qty(minimum),
	}
}

func newBeneficiary(first, family string) model.Beneficiary {
	return model.Beneficiary{
		FirstName:     first,
		FamilyName:    family,
		MaritalStatus: model.MaritalSingle,
		Category:      model.CategoryA,
	}
}
