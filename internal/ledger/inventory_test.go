package ledger

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/erazemk/ataa/internal/model"
)

type InventorySuite struct {
	suite.Suite
	clock *testClock
	inv   *Inventory
}

func (s *InventorySuite) SetupTest() {
	s.clock = &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s.inv = NewInventory(WithClock(s.clock.Now), WithIDs(sequentialIDs("i")))
}

func TestInventorySuite(t *testing.T) {
	suite.Run(t, new(InventorySuite))
}

func (s *InventorySuite) TestAddItem() {
	s.Run("assigns id and timestamp and grows by one", func() {
		before := s.inv.Len()
		item, err := s.inv.AddItem(newItem("Rice", 10, 20))
		s.Require().NoError(err)
		s.NotEmpty(item.ID)
		s.Equal(s.clock.now, item.LastUpdated)
		s.Equal(before+1, s.inv.Len())

		got, ok := s.inv.Item(item.ID)
		s.Require().True(ok)
		s.Equal("Rice", got.Name)
	})

	s.Run("rejects negative quantity", func() {
		_, err := s.inv.AddItem(newItem("Oil", -1, 0))
		s.ErrorIs(err, model.ErrInvalid)
	})
}

func (s *InventorySuite) TestUpdateItem() {
	item, _ := s.inv.AddItem(newItem("Rice", 10, 20))
	s.clock.Advance(time.Hour)

	name := "Basmati rice"
	updated, err := s.inv.UpdateItem(item.ID, model.ItemPatch{Name: &name})
	s.Require().NoError(err)
	s.Equal("Basmati rice", updated.Name)
	s.True(updated.Quantity.Equal(qty(10)))
	s.Equal(s.clock.now, updated.LastUpdated)

	_, err = s.inv.UpdateItem("missing", model.ItemPatch{Name: &name})
	s.ErrorIs(err, ErrNotFound)

	negative := qty(-3)
	_, err = s.inv.UpdateItem(item.ID, model.ItemPatch{Quantity: &negative})
	s.ErrorIs(err, model.ErrInvalid)
	got, _ := s.inv.Item(item.ID)
	s.True(got.Quantity.Equal(qty(10)), "rejected patch must not change state")
}

func (s *InventorySuite) TestRemoveItem() {
	a, _ := s.inv.AddItem(newItem("Rice", 1, 1))
	b, _ := s.inv.AddItem(newItem("Sugar", 1, 1))

	s.Require().NoError(s.inv.RemoveItem(a.ID))
	_, ok := s.inv.Item(a.ID)
	s.False(ok)
	s.Equal(1, s.inv.Len())
	s.Equal(b.ID, s.inv.Items()[0].ID)

	s.ErrorIs(s.inv.RemoveItem(a.ID), ErrNotFound)
}

func (s *InventorySuite) TestUpdateQuantityNeverNegative() {
	cases := []struct {
		start, delta, want int64
	}{
		{10, 5, 15},
		{10, -3, 7},
		{10, -10, 0},
		{10, -11, 0},
		{0, -1000, 0},
		{3, 0, 3},
	}
	for _, tc := range cases {
		item, err := s.inv.AddItem(newItem("Flour", tc.start, 1))
		s.Require().NoError(err)

		updated, err := s.inv.UpdateQuantity(item.ID, qty(tc.delta))
		s.Require().NoError(err)
		s.Truef(updated.Quantity.Equal(qty(tc.want)), "start %d delta %d: got %s", tc.start, tc.delta, updated.Quantity)
	}

	_, err := s.inv.UpdateQuantity("missing", qty(1))
	s.ErrorIs(err, ErrNotFound)
}

func (s *InventorySuite) TestQueries() {
	rice, _ := s.inv.AddItem(newItem("Rice", 10, 20))
	blanket := newItem("Blanket", 20, 20)
	blanket.Type = model.ItemTypeNonFood
	blanketItem, _ := s.inv.AddItem(blanket)
	s.inv.AddItem(newItem("Lentils", 30, 20))

	food := s.inv.ItemsByType(model.ItemTypeFood)
	s.Len(food, 2)
	s.Equal(rice.ID, food[0].ID)

	low := s.inv.LowStockItems()
	s.Require().Len(low, 2)
	s.Equal(rice.ID, low[0].ID)
	s.Equal(blanketItem.ID, low[1].ID, "item exactly at the minimum is low stock")
}

func (s *InventorySuite) TestReplaceAndSubscribe() {
	var ops []Op
	unsubscribe := s.inv.Subscribe(func(c Change[model.Item]) { ops = append(ops, c.Op) })

	item, _ := s.inv.AddItem(newItem("Rice", 1, 1))
	s.inv.UpdateQuantity(item.ID, qty(1))
	s.inv.RemoveItem(item.ID)

	imported := newItem("Dates", 4, 1)
	imported.ID = "remote-1"
	s.Require().NoError(s.inv.Replace([]model.Item{imported}))
	s.Equal([]Op{OpCreate, OpUpdate, OpDelete, OpReset}, ops)

	got, ok := s.inv.Item("remote-1")
	s.Require().True(ok)
	s.Equal(s.clock.now, got.LastUpdated)

	unsubscribe()
	s.inv.AddItem(newItem("Tea", 1, 1))
	s.Len(ops, 4)
}

func (s *InventorySuite) TestAddItemNormalizesType() {
	in := newItem("Blanket", 3, 1)
	in.Type = "Non_Food"
	item, err := s.inv.AddItem(in)
	s.Require().NoError(err)
	s.Equal(model.ItemTypeNonFood, item.Type)
	s.Len(s.inv.ItemsByType(model.ItemTypeNonFood), 1)

	food := model.ItemType("FOOD")
	updated, err := s.inv.UpdateItem(item.ID, model.ItemPatch{Type: &food})
	s.Require().NoError(err)
	s.Equal(model.ItemTypeFood, updated.Type)
	s.Len(s.inv.ItemsByType(model.ItemTypeFood), 1)
}

func (s *InventorySuite) TestSubscribersSeeChangesInOrder() {
	item, _ := s.inv.AddItem(newItem("Rice", 10, 1))

	var calls atomic.Int32
	var mu sync.Mutex
	var seen []string
	s.inv.Subscribe(func(c Change[model.Item]) {
		// A slow first write must not let the later change overtake it.
		if calls.Add(1) == 1 {
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		seen = append(seen, c.Record.Quantity.String())
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.inv.UpdateQuantity(item.ID, qty(-3))
		}()
	}
	wg.Wait()

	got, _ := s.inv.Item(item.ID)
	s.True(got.Quantity.Equal(qty(4)))
	s.Equal([]string{"7", "4"}, seen)
}

func (s *InventorySuite) TestConcurrentAdjustmentsNeverGoNegative() {
	item, _ := s.inv.AddItem(newItem("Rice", 25, 1))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.inv.UpdateQuantity(item.ID, qty(-1))
		}()
	}
	wg.Wait()

	got, _ := s.inv.Item(item.ID)
	s.True(got.Quantity.IsZero(), "got %s", got.Quantity)
}

func (s *InventorySuite) TestImportKeepsLocalMinimums() {
	known := newItem("Rice", 10, 1)
	known.ID = "remote-1"
	s.Require().NoError(s.inv.Replace([]model.Item{known}))
	minimum := qty(25)
	s.inv.UpdateItem("remote-1", model.ItemPatch{MinimumLevel: &minimum})

	again := newItem("Rice", 40, 1)
	again.ID = "remote-1"
	fresh := newItem("Oil", 5, 1)
	fresh.ID = "remote-2"
	s.Require().NoError(s.inv.Import([]model.Item{again, fresh}))

	got, _ := s.inv.Item("remote-1")
	s.True(got.Quantity.Equal(qty(40)), "remote quantity wins")
	s.True(got.MinimumLevel.Equal(qty(25)), "local minimum kept")
	other, _ := s.inv.Item("remote-2")
	s.True(other.MinimumLevel.Equal(qty(1)))
}
