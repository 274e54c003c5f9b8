// Package xlsx exports the mission table as an Excel workbook.
package xlsx

import (
	"fmt"
	"io"

	"github.com/couchcryptid/bf-mission-map/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	SheetMissions = "Missions"
	SheetTotals   = "Totals"
)

// Export writes the table as a workbook with one sheet of district rows and
// one sheet of yearly totals.
func Export(w io.Writer, table *domain.MergedTable) error {
	f, err := build(table)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportFile writes the workbook to path.
func ExportFile(path string, table *domain.MergedTable) error {
	f, err := build(table)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func build(table *domain.MergedTable) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetMissions); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeMissions(f, table); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(SheetTotals); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet %s: %w", SheetTotals, err)
	}
	if err := writeTotals(f, table); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeMissions(f *excelize.File, table *domain.MergedTable) error {
	years := table.Years()

	header := []any{"District"}
	for _, y := range years {
		header = append(header, y)
	}
	header = append(header, "Total", "Longitude", "Latitude")
	if err := f.SetSheetRow(SheetMissions, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(SheetMissions, "A", "A", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetMissions, "B", last, 12); err != nil {
		return err
	}

	for i, rec := range table.Districts() {
		row := make([]any, 0, len(header))
		row = append(row, rec.Name)
		for _, y := range years {
			row = append(row, rec.Missions[y])
		}
		row = append(row, rec.Total())
		if rec.Location != nil {
			row = append(row, rec.Location.Lon, rec.Location.Lat)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetMissions, cell, &row); err != nil {
			return fmt.Errorf("write district %q: %w", rec.Name, err)
		}
	}
	return nil
}

func writeTotals(f *excelize.File, table *domain.MergedTable) error {
	if err := f.SetSheetRow(SheetTotals, "A1", &[]any{"Year", "Missions"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, t := range table.YearTotals() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetTotals, cell, &[]any{t.Year, t.Missions}); err != nil {
			return fmt.Errorf("write total %d: %w", t.Year, err)
		}
	}
	return nil
}
