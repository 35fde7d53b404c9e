package view

import (
	"time"

	"github.com/erazemk/ataa/internal/model"
)

const (
	dashboardLowStock = 5
	dashboardRecent   = 10
)

// Dashboard is the overview shown on the landing page.
type Dashboard struct {
	TotalBeneficiaries  int                  `json:"total_beneficiaries"`
	TotalItems          int                  `json:"total_items"`
	LowStockCount       int                  `json:"low_stock_count"`
	NeedingDistribution int                  `json:"needing_distribution"`
	Categories          []CategoryCount      `json:"categories"`
	LowStock            []LowStockEntry      `json:"low_stock"`
	Recent              []model.Distribution `json:"recent_distributions"`
}

// Summarize builds the dashboard. recent must already be ordered newest first.
func Summarize(beneficiaries []model.Beneficiary, items []model.Item, recent []model.Distribution, now time.Time) Dashboard {
	low := LowStock(items)
	d := Dashboard{
		TotalBeneficiaries:  len(beneficiaries),
		TotalItems:          len(items),
		LowStockCount:       len(low),
		NeedingDistribution: len(NeedingDistribution(beneficiaries, now)),
		Categories:          CategoryBreakdown(beneficiaries),
		LowStock:            low,
		Recent:              recent,
	}
	if len(d.LowStock) > dashboardLowStock {
		d.LowStock = d.LowStock[:dashboardLowStock]
	}
	if len(d.Recent) > dashboardRecent {
		d.Recent = d.Recent[:dashboardRecent]
	}
	if d.LowStock == nil {
		d.LowStock = []LowStockEntry{}
	}
	if d.Recent == nil {
		d.Recent = []model.Distribution{}
	}
	return d
}
