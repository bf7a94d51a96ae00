// Package grid provides spreadsheet-grid access for the reporting pipeline.
//
// Source trade extracts arrive as human-edited .xls/.xlsx files with no fixed
// layout: the header row floats somewhere in the first dozen rows, fields are
// repeated once per instrument leg, and columns get reordered between files.
// This package reads such files into raw grids, locates the most plausible
// header row, and resolves column identities into typed tables the rest of
// the pipeline can address by canonical name, leg slot, or original Excel
// column letter.
package grid

import (
	"os"
	"path/filepath"
	"strings"

	"ift-reporting-service/pkg/errors"
	"ift-reporting-service/pkg/logger"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// RawGrid is an ordered sequence of rows of untyped cell values, as read from
// one source spreadsheet with no header assumed. Empty string means an absent
// cell. Rows may be ragged; readers do not pad them.
type RawGrid [][]string

// Row is one body row of a resolved table, tagged with its originating file
// so letter-indexed lookups can resolve against that file's geometry.
type Row struct {
	File   string
	Values map[string]string
}

// Get returns the value of the named column, or "" when absent
func (r Row) Get(column string) string {
	if r.Values == nil {
		return ""
	}
	return r.Values[column]
}

// Table is a resolved source table: ordered named columns and body rows.
// Column names are unique after duplicate-label suffixing.
type Table struct {
	File    string
	Columns []string
	Rows    []Row
}

// LetterMap maps an Excel column letter (original spreadsheet geometry, before
// empty-column pruning) to the resolved column name it ended up as.
type LetterMap map[string]string

// ReadFile reads the first sheet of a source spreadsheet into a RawGrid.
// Legacy .xls files are read through the BIFF reader, everything else through
// the OOXML reader with raw cell values so serial dates survive untouched.
func ReadFile(path string) (RawGrid, error) {
	return ReadSheet(path, "")
}

// ReadSheet reads one sheet of a spreadsheet into a RawGrid. An empty sheet
// name means the first sheet; otherwise the name is matched tolerantly
// against the workbook's sheets.
func ReadSheet(path, sheet string) (RawGrid, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeDirectoryError, path, err)
	}

	log := logger.GetGlobalLogger().WithComponent("grid")
	log.WithField("file", filepath.Base(path)).Debug("Reading source spreadsheet")

	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return readLegacy(path, sheet)
	}
	return readOOXML(path, sheet)
}

func readOOXML(path, want string) (RawGrid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if want != "" {
		sheet = ""
		for _, name := range f.GetSheetList() {
			if Norm(name) == Norm(want) {
				sheet = name
				break
			}
		}
	}
	if sheet == "" {
		searched := want
		if searched == "" {
			searched = "first sheet"
		}
		return nil, errors.WorkbookError(errors.CodeSheetMissing, filepath.Base(path), searched, f.GetSheetList())
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	grid := make(RawGrid, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		copy(cells, row)
		grid = append(grid, cells)
	}
	return grid, nil
}

func readLegacy(path, want string) (RawGrid, error) {
	wb, err := xls.OpenFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	idx := 0
	if want != "" {
		idx = -1
		var names []string
		for i := 0; i < wb.GetNumberSheets(); i++ {
			s, err := wb.GetSheet(i)
			if err != nil || s == nil {
				continue
			}
			names = append(names, s.GetName())
			if Norm(s.GetName()) == Norm(want) {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, errors.WorkbookError(errors.CodeSheetMissing, filepath.Base(path), want, names)
		}
	}
	sheet, err := wb.GetSheet(idx)
	if err != nil || sheet == nil {
		return nil, errors.WorkbookError(errors.CodeSheetMissing, filepath.Base(path), "first sheet", nil)
	}

	var grid RawGrid
	for _, row := range sheet.GetRows() {
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		var cells []string
		for _, col := range row.GetCols() {
			if col == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, col.GetString())
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// cellAt returns the grid cell at (row, col), "" when out of range
func (g RawGrid) cellAt(row, col int) string {
	if row < 0 || row >= len(g) {
		return ""
	}
	r := g[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// width returns the widest row length within rows [from, to)
func (g RawGrid) width(from, to int) int {
	w := 0
	if to > len(g) {
		to = len(g)
	}
	for i := from; i < to; i++ {
		if len(g[i]) > w {
			w = len(g[i])
		}
	}
	return w
}

// IsEmptyRow reports whether every cell of the row is blank after trimming
func IsEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
