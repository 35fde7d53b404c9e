// Package report renders ledger snapshots as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/ataa/internal/model"
	"github.com/erazemk/ataa/internal/view"
)

// Sheet names.
const (
	SheetSummary       = "Summary"
	SheetBeneficiaries = "Beneficiaries"
	SheetInventory     = "Inventory"
	SheetDistributions = "Distributions"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeFormat = "2006-01-02 15:04"

// Snapshot is the data exported in one workbook.
type Snapshot struct {
	Beneficiaries []model.Beneficiary
	Items         []model.Item
	Distributions []model.Distribution
	GeneratedAt   time.Time
}

// Write renders s as an XLSX workbook to w.
func Write(w io.Writer, s Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("naming summary sheet: %w", err)
	}
	for _, name := range []string{SheetBeneficiaries, SheetInventory, SheetDistributions} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	if err := writeRows(f, SheetSummary, summaryRows(s)); err != nil {
		return err
	}
	if err := writeRows(f, SheetBeneficiaries, beneficiaryRows(s)); err != nil {
		return err
	}
	if err := writeRows(f, SheetInventory, inventoryRows(s.Items)); err != nil {
		return err
	}
	if err := writeRows(f, SheetDistributions, distributionRows(s)); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) > 0 {
		last, _ := excelize.ColumnNumberToName(len(rows[0]))
		if err := f.SetColWidth(sheet, "A", last, 18); err != nil {
			return fmt.Errorf("sizing %s columns: %w", sheet, err)
		}
	}
	return nil
}

func summaryRows(s Snapshot) [][]any {
	d := view.Summarize(s.Beneficiaries, s.Items, nil, s.GeneratedAt)
	rows := [][]any{
		{"Generated at", s.GeneratedAt.Format(timeFormat)},
		{"Beneficiaries", d.TotalBeneficiaries},
		{"Inventory items", d.TotalItems},
		{"Low stock items", d.LowStockCount},
		{"Needing distribution", d.NeedingDistribution},
		{"Distributions", len(s.Distributions)},
		{},
		{"Category", "Count", "Percentage"},
	}
	for _, c := range d.Categories {
		rows = append(rows, []any{string(c.Category), c.Count, fmt.Sprintf("%.1f%%", c.Percentage)})
	}
	return rows
}

func beneficiaryRows(s Snapshot) [][]any {
	rows := [][]any{{"ID", "Name", "Category", "Marital status", "Children", "Phone", "Address", "Last distribution", "Needs distribution"}}
	for _, b := range s.Beneficiaries {
		last := ""
		if b.LastDistribution != nil {
			last = b.LastDistribution.Format(timeFormat)
		}
		rows = append(rows, []any{
			b.ID, b.DisplayName(), string(b.Category), string(b.MaritalStatus), b.ChildrenCount,
			b.PhoneNumber, b.Address, last, view.NeedsDistribution(b, s.GeneratedAt),
		})
	}
	return rows
}

func inventoryRows(items []model.Item) [][]any {
	rows := [][]any{{"ID", "Name", "Type", "Quantity", "Unit", "Minimum", "Level", "Last updated"}}
	for _, item := range items {
		rows = append(rows, []any{
			item.ID, item.Name, string(item.Type), item.Quantity.InexactFloat64(), item.Unit,
			item.MinimumLevel.InexactFloat64(), string(view.Level(item)), item.LastUpdated.Format(timeFormat),
		})
	}
	return rows
}

func distributionRows(s Snapshot) [][]any {
	names := make(map[string]string, len(s.Beneficiaries))
	for _, b := range s.Beneficiaries {
		names[b.ID] = b.DisplayName()
	}

	rows := [][]any{{"Distribution", "Date", "Beneficiary ID", "Beneficiary", "Item", "Quantity", "Unit", "Notes"}}
	for _, d := range s.Distributions {
		for _, line := range d.Lines {
			rows = append(rows, []any{
				d.ID, d.Date.Format(timeFormat), d.BeneficiaryID, names[d.BeneficiaryID],
				line.ItemName, line.Quantity.InexactFloat64(), line.Unit, d.Notes,
			})
		}
	}
	return rows
}
