package aptcore

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Tracker column headers.
const (
	ColumnCommonName = "Common Name"
	ColumnToolset    = "Toolset / Malware"
	ColumnTargets    = "Targets"
	ColumnComment    = "Comment"
)

// Placeholder replaces missing tracker cells in reports.
const Placeholder = "-"

// Sheets 2 through 10 (1-indexed) hold the regional group tables. The first
// sheet is a cover page and later sheets are not group tables.
const (
	firstTrackerSheet = 1
	lastTrackerSheet  = 10 // exclusive
)

// Workbook is a read-only view of a multi-sheet spreadsheet.
type Workbook interface {
	SheetNames() []string
	Rows(sheet string) ([][]string, error)
}

// TrackerWorkbook reads the tracker snapshot with excelize.
type TrackerWorkbook struct {
	file *excelize.File
}

// OpenTracker opens the tracker spreadsheet at path.
func OpenTracker(path string) (*TrackerWorkbook, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, sourceErr(SourceTracker, path, fmt.Errorf("%w: %v", ErrSourceUnavailable, err))
	}
	return &TrackerWorkbook{file: file}, nil
}

func (w *TrackerWorkbook) SheetNames() []string { return w.file.GetSheetList() }

func (w *TrackerWorkbook) Rows(sheet string) ([][]string, error) {
	return w.file.GetRows(sheet)
}

// Close releases the underlying file.
func (w *TrackerWorkbook) Close() error { return w.file.Close() }

// MemoryWorkbook is a Workbook held entirely in memory.
type MemoryWorkbook struct {
	Names  []string
	Sheets map[string][][]string
}

func (w *MemoryWorkbook) SheetNames() []string { return w.Names }

func (w *MemoryWorkbook) Rows(sheet string) ([][]string, error) {
	rows, ok := w.Sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %s does not exist", sheet)
	}
	return rows, nil
}

// TrackerSheets returns the names of the sheets that hold group tables.
func TrackerSheets(wb Workbook) []string {
	names := wb.SheetNames()
	if len(names) <= firstTrackerSheet {
		return nil
	}
	if len(names) > lastTrackerSheet {
		names = names[:lastTrackerSheet]
	}
	return names[firstTrackerSheet:]
}

// ReadSheet projects the raw rows of one tracker sheet onto TrackerRows. The
// first row is the sheet banner and the second holds the column headers.
func ReadSheet(sheet string, rows [][]string) ([]TrackerRow, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: sheet %q has no header row", ErrMalformedSource, sheet)
	}

	header := rows[1]
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	wanted := []string{ColumnCommonName, ColumnToolset, ColumnTargets, ColumnComment}
	index := make([]int, len(wanted))
	for i, name := range wanted {
		col, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: sheet %q has no %q column", ErrMalformedSource, sheet, name)
		}
		index[i] = col
	}

	var out []TrackerRow
	for _, row := range rows[2:] {
		cells := make([]string, len(index))
		blank := true
		for i, col := range index {
			if col < len(row) {
				cells[i] = row[col]
			}
			if cells[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		out = append(out, TrackerRow{
			Sheet:      sheet,
			CommonName: cells[0],
			Toolset:    cells[1],
			Targets:    cells[2],
			Comment:    cells[3],
		})
	}
	return out, nil
}

// AggregateTracker searches the targets and comment columns of sheets 2-10
// and returns the matches sorted by common name with missing cells replaced
// by Placeholder. The result is never nil. Sheets that cannot be read are
// skipped and reported through the joined error.
func AggregateTracker(wb Workbook, keywords []string) (*SearchResult[TrackerRow], error) {
	result := &SearchResult[TrackerRow]{Source: SourceTracker}
	var errs []error

	for _, sheet := range TrackerSheets(wb) {
		raw, err := wb.Rows(sheet)
		if err != nil {
			errs = append(errs, sourceErr(SourceTracker, sheet, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)))
			continue
		}
		rows, err := ReadSheet(sheet, raw)
		if err != nil {
			errs = append(errs, sourceErr(SourceTracker, sheet, err))
			continue
		}
		result.Rows = append(result.Rows, Match(rows, keywords, TargetsField, CommentField)...)
	}

	SortTrackerRows(result.Rows)
	FillPlaceholders(result.Rows)
	return result, errors.Join(errs...)
}

// SortTrackerRows orders rows by common name. Rows without a name go last.
func SortTrackerRows(rows []TrackerRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].CommonName, rows[j].CommonName
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a < b
	})
}

// FillPlaceholders replaces every missing cell with Placeholder.
func FillPlaceholders(rows []TrackerRow) {
	fill := func(s *string) {
		if *s == "" {
			*s = Placeholder
		}
	}
	for i := range rows {
		fill(&rows[i].CommonName)
		fill(&rows[i].Toolset)
		fill(&rows[i].Targets)
		fill(&rows[i].Comment)
	}
}
