package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/ataa/internal/ledger"
	"github.com/erazemk/ataa/internal/model"
	"github.com/erazemk/ataa/internal/source"
)

func TestAttachTracksLedgers(t *testing.T) {
	m := New(prometheus.NewRegistry())
	inv := ledger.NewInventory()
	reg := ledger.NewRegistry()
	dist := ledger.NewDistributions(inv, reg)
	detach := m.Attach(inv, reg, dist)
	defer detach()

	rice, err := inv.AddItem(model.Item{Name: "Rice", Type: model.ItemTypeFood, Quantity: decimal.NewFromInt(30), MinimumLevel: decimal.NewFromInt(20)})
	require.NoError(t, err)
	b, err := reg.AddBeneficiary(model.Beneficiary{FirstName: "Ahmed", MaritalStatus: model.MaritalSingle, Category: model.CategoryA})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Items))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Beneficiaries))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LowStockItems))

	_, err = dist.Add(ledger.NewDistribution{
		BeneficiaryID: b.ID,
		Lines:         []model.DistributionLine{{ItemID: rice.ID, Quantity: decimal.NewFromInt(25)}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DistributionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LowStockItems))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CriticalStockItems))
}

func TestRejectionReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ledger.InsufficientStockError{ItemName: "Rice"}, ReasonInsufficientStock},
		{fmt.Errorf("beneficiary x: %w", ledger.ErrUnknownBeneficiary), ReasonUnknownBeneficiary},
		{fmt.Errorf("%w: empty", model.ErrInvalid), ReasonInvalid},
		{errors.New("disk on fire"), ReasonOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RejectionReason(tt.err))
	}

	m := New(prometheus.NewRegistry())
	m.ObserveRejection(&ledger.InsufficientStockError{})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DistributionRejected.WithLabelValues(ReasonInsufficientStock)))
}

func TestObserveSync(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveSync(source.Result{Collection: source.Inventory, Imported: 4, Skipped: 2, Duration: time.Second})
	m.ObserveSync(source.Result{Collection: source.Inventory, Err: errors.New("timeout")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncRuns.WithLabelValues("inventory", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncRuns.WithLabelValues("inventory", "failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SyncSkipped.WithLabelValues("inventory")))
}

func TestNewOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
