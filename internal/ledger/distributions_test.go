package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/erazemk/ataa/internal/model"
)

type DistributionsSuite struct {
	suite.Suite
	clock *testClock
	inv   *Inventory
	reg   *Registry
	dist  *Distributions
	ahmed model.Beneficiary
}

func (s *DistributionsSuite) SetupTest() {
	s.clock = &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s.inv = NewInventory(WithClock(s.clock.Now), WithIDs(sequentialIDs("i")))
	s.reg = NewRegistry(WithClock(s.clock.Now), WithIDs(sequentialIDs("b")))
	s.dist = NewDistributions(s.inv, s.reg, WithClock(s.clock.Now), WithIDs(sequentialIDs("d")))

	var err error
	s.ahmed, err = s.reg.AddBeneficiary(newBeneficiary("Ahmed", "Ali"))
	s.Require().NoError(err)
}

func TestDistributionsSuite(t *testing.T) {
	suite.Run(t, new(DistributionsSuite))
}

func line(itemID string, n int64) model.DistributionLine {
	return model.DistributionLine{ItemID: itemID, Quantity: qty(n)}
}

func (s *DistributionsSuite) TestSuccessDecrementsStock() {
	rice, _ := s.inv.AddItem(newItem("Rice", 10, 20))

	rec, err := s.dist.Add(NewDistribution{
		BeneficiaryID: s.ahmed.ID,
		Lines:         []model.DistributionLine{line(rice.ID, 5)},
		Notes:         "monthly basket",
	})
	s.Require().NoError(err)
	s.NotEmpty(rec.ID)
	s.Equal(s.clock.now, rec.Date)
	s.Equal("Rice", rec.Lines[0].ItemName)
	s.Equal("kg", rec.Lines[0].Unit)

	got, _ := s.inv.Item(rice.ID)
	s.True(got.Quantity.Equal(qty(5)))
	s.True(got.IsLowStock(), "5 is still below the minimum of 20")

	byBen := s.dist.ByBeneficiary(s.ahmed.ID)
	s.Require().Len(byBen, 1)
	s.Equal(rec.ID, byBen[0].ID)

	ben, _ := s.reg.Beneficiary(s.ahmed.ID)
	s.Require().NotNil(ben.LastDistribution)
	s.Equal(s.clock.now, *ben.LastDistribution)
}

func (s *DistributionsSuite) TestInsufficientStockLeavesStateUnchanged() {
	rice, _ := s.inv.AddItem(newItem("Rice", 10, 20))

	_, err := s.dist.Add(NewDistribution{
		BeneficiaryID: s.ahmed.ID,
		Lines:         []model.DistributionLine{line(rice.ID, 15)},
	})
	s.Require().ErrorIs(err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	s.Require().True(errors.As(err, &stockErr))
	s.Equal("Rice", stockErr.ItemName)
	s.Contains(err.Error(), "Rice")

	got, _ := s.inv.Item(rice.ID)
	s.True(got.Quantity.Equal(qty(10)))
	s.Equal(0, s.dist.Len())

	ben, _ := s.reg.Beneficiary(s.ahmed.ID)
	s.Nil(ben.LastDistribution)
}

func (s *DistributionsSuite) TestAllOrNothing() {
	rice, _ := s.inv.AddItem(newItem("Rice", 10, 1))
	oil, _ := s.inv.AddItem(newItem("Oil", 2, 1))

	var published int
	s.inv.Subscribe(func(Change[model.Item]) { published++ })

	_, err := s.dist.Add(NewDistribution{
		BeneficiaryID: s.ahmed.ID,
		Lines:         []model.DistributionLine{line(rice.ID, 4), line(oil.ID, 3)},
	})
	var stockErr *InsufficientStockError
	s.Require().ErrorAs(err, &stockErr)
	s.Equal("Oil", stockErr.ItemName)

	gotRice, _ := s.inv.Item(rice.ID)
	gotOil, _ := s.inv.Item(oil.ID)
	s.True(gotRice.Quantity.Equal(qty(10)), "first line must not be decremented")
	s.True(gotOil.Quantity.Equal(qty(2)))
	s.Zero(published)
	s.Zero(s.dist.Len())
}

func (s *DistributionsSuite) TestRepeatedItemLinesAreSummed() {
	rice, _ := s.inv.AddItem(newItem("Rice", 10, 1))

	_, err := s.dist.Add(NewDistribution{
		BeneficiaryID: s.ahmed.ID,
		Lines:         []model.DistributionLine{line(rice.ID, 6), line(rice.ID, 6)},
	})
	s.ErrorIs(err, ErrInsufficientStock)

	got, _ := s.inv.Item(rice.ID)
	s.True(got.Quantity.Equal(qty(10)))
}

func (s *DistributionsSuite) TestUnknownItem() {
	_, err := s.dist.Add(NewDistribution{
		BeneficiaryID: s.ahmed.ID,
		Lines:         []model.DistributionLine{{ItemID: "ghost", ItemName: "Ghost flour", Quantity: qty(1)}},
	})
	var stockErr *InsufficientStockError
	s.Require().ErrorAs(err, &stockErr)
	s.True(stockErr.Missing)
	s.Equal("Ghost flour", stockErr.ItemName)
}

func (s *DistributionsSuite) TestRejectsBadRequests() {
	rice, _ := s.inv.AddItem(newItem("Rice", 10, 1))

	_, err := s.dist.Add(NewDistribution{BeneficiaryID: s.ahmed.ID})
	s.ErrorIs(err, model.ErrInvalid)

	_, err = s.dist.Add(NewDistribution{BeneficiaryID: s.ahmed.ID, Lines: []model.DistributionLine{line(rice.ID, 0)}})
	s.ErrorIs(err, model.ErrInvalid)

	_, err = s.dist.Add(NewDistribution{BeneficiaryID: "nobody", Lines: []model.DistributionLine{line(rice.ID, 1)}})
	s.ErrorIs(err, ErrUnknownBeneficiary)

	got, _ := s.inv.Item(rice.ID)
	s.True(got.Quantity.Equal(qty(10)))
}

func (s *DistributionsSuite) TestRecent() {
	rice, _ := s.inv.AddItem(newItem("Rice", 100, 1))
	base := s.clock.now

	add := func(date time.Time) string {
		rec, err := s.dist.Add(NewDistribution{
			BeneficiaryID: s.ahmed.ID,
			Date:          date,
			Lines:         []model.DistributionLine{line(rice.ID, 1)},
		})
		s.Require().NoError(err)
		return rec.ID
	}

	old := add(base.Add(-72 * time.Hour))
	newest := add(base)
	tieFirst := add(base.Add(-24 * time.Hour))
	tieSecond := add(base.Add(-24 * time.Hour))

	var ids []string
	for _, rec := range s.dist.Recent(0) {
		ids = append(ids, rec.ID)
	}
	s.Equal([]string{newest, tieSecond, tieFirst, old}, ids)

	s.Len(s.dist.Recent(2), 2)
	s.Equal(newest, s.dist.Recent(1)[0].ID)
}

func (s *DistributionsSuite) TestRecentDefaultLimit() {
	rice, _ := s.inv.AddItem(newItem("Rice", 100, 1))
	for i := 0; i < DefaultRecentLimit+3; i++ {
		_, err := s.dist.Add(NewDistribution{BeneficiaryID: s.ahmed.ID, Lines: []model.DistributionLine{line(rice.ID, 1)}})
		s.Require().NoError(err)
	}
	s.Len(s.dist.Recent(-1), DefaultRecentLimit)
	s.True(s.dist.TotalIssued(rice.ID).Equal(qty(int64(DefaultRecentLimit + 3))))
}

func (s *DistributionsSuite) TestHistorySurvivesBeneficiaryRemoval() {
	rice, _ := s.inv.AddItem(newItem("Rice", 10, 1))
	_, err := s.dist.Add(NewDistribution{BeneficiaryID: s.ahmed.ID, Lines: []model.DistributionLine{line(rice.ID, 1)}})
	s.Require().NoError(err)

	s.Require().NoError(s.reg.RemoveBeneficiary(s.ahmed.ID))
	s.Len(s.dist.ByBeneficiary(s.ahmed.ID), 1)
}

func (s *DistributionsSuite) TestConcurrentDistributionsNeverOversell() {
	rice, _ := s.inv.AddItem(newItem("Rice", 50, 1))

	const workers = 40
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.dist.Add(NewDistribution{BeneficiaryID: s.ahmed.ID, Lines: []model.DistributionLine{line(rice.ID, 3)}})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded int64
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, ErrInsufficientStock)
	}

	got, _ := s.inv.Item(rice.ID)
	s.False(got.Quantity.IsNegative())
	s.EqualValues(16, succeeded)
	s.True(qty(50).Sub(got.Quantity).Equal(qty(succeeded*3)), "consumed stock must match successful distributions")
	s.EqualValues(succeeded, s.dist.Len())
	s.True(s.dist.TotalIssued(rice.ID).Equal(qty(succeeded * 3)))
}

func (s *DistributionsSuite) TestCreatedChangeCarriesIssuedState() {
	rice, _ := s.inv.AddItem(newItem("Rice", 10, 1))

	var itemCause string
	s.inv.Subscribe(func(c Change[model.Item]) { itemCause = c.DistributionID })
	var beneficiaryCause string
	s.reg.Subscribe(func(c Change[model.Beneficiary]) { beneficiaryCause = c.DistributionID })

	var issued *Issued
	var stampedWhenRecorded bool
	s.dist.Subscribe(func(c Change[model.Distribution]) {
		issued = c.Issued
		b, _ := s.reg.Beneficiary(c.Record.BeneficiaryID)
		stampedWhenRecorded = b.LastDistribution != nil
	})

	rec, err := s.dist.Add(NewDistribution{BeneficiaryID: s.ahmed.ID, Lines: []model.DistributionLine{line(rice.ID, 4)}})
	s.Require().NoError(err)

	s.Equal(rec.ID, itemCause)
	s.Equal(rec.ID, beneficiaryCause)
	s.True(stampedWhenRecorded)
	s.Require().NotNil(issued)
	s.Require().Len(issued.Items, 1)
	s.True(issued.Items[0].Quantity.Equal(qty(6)))
	s.Equal(s.ahmed.ID, issued.Beneficiary.ID)
	s.Require().NotNil(issued.Beneficiary.LastDistribution)
	s.Equal(rec.Date, *issued.Beneficiary.LastDistribution)
}

func (s *DistributionsSuite) TestReadersSeeStampWithRecord() {
	rice, _ := s.inv.AddItem(newItem("Rice", 1000, 1))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var unstamped int
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if len(s.dist.ByBeneficiary(s.ahmed.ID)) == 0 {
				continue
			}
			if b, _ := s.reg.Beneficiary(s.ahmed.ID); b.LastDistribution == nil {
				unstamped++
			}
		}
	}()

	for i := 0; i < 50; i++ {
		_, err := s.dist.Add(NewDistribution{BeneficiaryID: s.ahmed.ID, Lines: []model.DistributionLine{line(rice.ID, 1)}})
		s.Require().NoError(err)
	}
	close(stop)
	wg.Wait()
	s.Zero(unstamped)
}
