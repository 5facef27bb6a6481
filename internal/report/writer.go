// Package report renders search results to formatted spreadsheets.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"aptintel/internal/aptcore"
)

// SheetName is the name of the single sheet in every report.
const SheetName = "APT Groups"

// Report file names.
const (
	MitreFileName   = "APT Groups list from MITRE.xlsx"
	TrackerFileName = "APT Groups list from APT Tracker.xlsx"
)

// Column is one report column.
type Column struct {
	Header string
	Width  float64
}

// Layout is the fixed column set of a report.
type Layout []Column

var (
	// MitreLayout is used for knowledge-base results.
	MitreLayout = Layout{
		{Header: "name", Width: 15},
		{Header: "aliases", Width: 80},
		{Header: "description", Width: 150},
	}

	// TrackerLayout is used for tracker results.
	TrackerLayout = Layout{
		{Header: aptcore.ColumnCommonName, Width: 40},
		{Header: aptcore.ColumnToolset, Width: 70},
		{Header: aptcore.ColumnTargets, Width: 70},
		{Header: aptcore.ColumnComment, Width: 70},
	}
)

// Write renders result to path. Nothing is written for an empty result and
// aptcore.ErrNoMatches is returned instead. The file appears only once it is
// complete.
func Write[T aptcore.Row](result *aptcore.SearchResult[T], path string, layout Layout) error {
	if result.Empty() {
		return aptcore.ErrNoMatches
	}
	return writeTable(result.Table(), path, layout)
}

func writeTable(rows [][]string, path string, layout Layout) (err error) {
	if len(layout) == 0 {
		return fmt.Errorf("report layout has no columns")
	}

	f, err := build(rows, layout)
	if err != nil {
		return err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".report-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to create temp report in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = f.WriteTo(tmp); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move report to %s: %w", path, err)
	}
	return nil
}

// build lays out the workbook in memory.
func build(rows [][]string, layout Layout) (*excelize.File, error) {
	f := excelize.NewFile()
	fail := func(err error) (*excelize.File, error) {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fail(fmt.Errorf("failed to name sheet: %w", err))
	}

	header := make([]string, len(layout))
	for i, col := range layout {
		header[i] = col.Header
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fail(fmt.Errorf("failed to write header: %w", err))
	}
	for i, row := range rows {
		cells := make([]string, len(layout))
		copy(cells, row)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fail(err)
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return fail(fmt.Errorf("failed to write row %d: %w", i+1, err))
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(layout))
	if err != nil {
		return fail(err)
	}
	lastCell := fmt.Sprintf("%s%d", lastCol, len(rows)+1)

	alignment := &excelize.Alignment{Vertical: "top", WrapText: true}
	columnStyle, err := f.NewStyle(&excelize.Style{Alignment: alignment})
	if err != nil {
		return fail(fmt.Errorf("failed to create column style: %w", err))
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Alignment: alignment,
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fail(fmt.Errorf("failed to create cell style: %w", err))
	}

	for i, col := range layout {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fail(err)
		}
		if err := f.SetColWidth(SheetName, name, name, col.Width); err != nil {
			return fail(fmt.Errorf("failed to set width of column %s: %w", name, err))
		}
		if err := f.SetColStyle(SheetName, name, columnStyle); err != nil {
			return fail(fmt.Errorf("failed to style column %s: %w", name, err))
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCell, cellStyle); err != nil {
		return fail(fmt.Errorf("failed to style cells: %w", err))
	}
	if err := f.AutoFilter(SheetName, "A1:"+lastCell, nil); err != nil {
		return fail(fmt.Errorf("failed to set autofilter: %w", err))
	}
	return f, nil
}
