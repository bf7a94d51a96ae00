package template

import (
	"time"

	"github.com/xuri/excelize/v2"

	"ift-reporting-service/internal/grid"
	"ift-reporting-service/internal/mapping"
	apperrors "ift-reporting-service/pkg/errors"
	"ift-reporting-service/pkg/logger"
)

// reportDateCell is where the run's reporting date goes in the destination
const reportDateCell = "B3"

const (
	percentFormat = "0.00%"
	dateFormat    = "dd/mm/yyyy"
)

// WriteSummary accounts for what a fill run actually wrote
type WriteSummary struct {
	RowsWritten    int            `json:"rows_written"`
	CellsWritten   int            `json:"cells_written"`
	NullCells      int            `json:"null_cells"`
	SkippedTargets map[string]int `json:"skipped_targets,omitempty"`
}

// Writer fills an opened destination workbook row by row
type Writer struct {
	file      *excelize.File
	sheet     string
	headerRow int
	index     *TargetIndex

	percentStyle int
	dateStyle    int

	log logger.Logger
}

// Open loads the destination template and prepares the target index from its
// header row. The sheet must exist; a missing sheet is fatal and reports the
// sheets actually present.
func Open(path, sheet string, headerRow int, log logger.Logger) (*Writer, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileCorrupted, path, err)
	}
	w, err := NewWriter(f, sheet, headerRow, log)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// NewWriter wraps an already-open workbook
func NewWriter(f *excelize.File, sheet string, headerRow int, log logger.Logger) (*Writer, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, apperrors.WorkbookError(apperrors.CodeSheetMissing, f.Path, sheet, f.GetSheetList())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileCorrupted, f.Path, err)
	}
	if headerRow < 1 {
		headerRow = 1
	}
	var header []string
	if headerRow <= len(rows) {
		header = rows[headerRow-1]
	}

	w := &Writer{
		file:      f,
		sheet:     sheet,
		headerRow: headerRow,
		index:     NewTargetIndex(header),
		log:       log.WithComponent("template"),
	}
	pct := percentFormat
	if w.percentStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: &pct}); err != nil {
		return nil, apperrors.InternalError(apperrors.CodeUnexpectedError, "register percent style", err)
	}
	date := dateFormat
	if w.dateStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: &date}); err != nil {
		return nil, apperrors.InternalError(apperrors.CodeUnexpectedError, "register date style", err)
	}
	return w, nil
}

// Index exposes the target index built from the destination header
func (w *Writer) Index() *TargetIndex {
	return w.index
}

// File exposes the underlying workbook for stage-specific cell access
func (w *Writer) File() *excelize.File {
	return w.file
}

// Sheet returns the destination sheet name
func (w *Writer) Sheet() string {
	return w.sheet
}

// HeaderRow returns the 1-based destination header row
func (w *Writer) HeaderRow() int {
	return w.headerRow
}

// SetReportDate stamps the run's reporting date into its fixed cell
func (w *Writer) SetReportDate(day time.Time) error {
	if err := w.file.SetCellValue(w.sheet, reportDateCell, day); err != nil {
		return apperrors.InternalError(apperrors.CodeUnexpectedError, "write report date", err)
	}
	return w.file.SetCellStyle(w.sheet, reportDateCell, reportDateCell, w.dateStyle)
}

// WriteRows appends the mapped rows immediately below the header, one
// destination row per perimeter row, in order and with no gaps. Target
// occurrences out of range are counted and skipped, never fatal.
func (w *Writer) WriteRows(results []mapping.RowResult) (*WriteSummary, error) {
	summary := &WriteSummary{SkippedTargets: make(map[string]int)}
	tracker := logger.NewStageTracker(w.log, "fill", len(results))
	for i, res := range results {
		rowNum := w.headerRow + 1 + i
		for _, cv := range res.Values {
			if err := w.writeCell(rowNum, cv, summary); err != nil {
				return nil, err
			}
		}
		summary.RowsWritten++
		tracker.Increment()
	}
	tracker.Done()
	if len(summary.SkippedTargets) == 0 {
		summary.SkippedTargets = nil
	}
	w.log.WithFields(logger.Fields{
		"rows":  summary.RowsWritten,
		"cells": summary.CellsWritten,
		"nulls": summary.NullCells,
	}).Info("Destination rows written")
	return summary, nil
}

func (w *Writer) writeCell(rowNum int, cv mapping.CellValue, summary *WriteSummary) error {
	col, ok := w.resolveTarget(cv.Target)
	if !ok {
		summary.SkippedTargets[targetKey(cv.Target)]++
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(col, rowNum)
	if err != nil {
		return apperrors.InternalError(apperrors.CodeUnexpectedError, "cell address", err)
	}

	class := ClassOf(cv.Target.Label)
	switch class {
	case ClassNumeric, ClassPercent:
		n := cv.Number
		if !cv.Computed {
			n = grid.ParseNumber(cv.Text)
		}
		if n == nil {
			summary.NullCells++
			return nil
		}
		if err := w.file.SetCellValue(w.sheet, cell, *n); err != nil {
			return apperrors.InternalError(apperrors.CodeUnexpectedError, "write cell", err)
		}
		if class == ClassPercent {
			if err := w.file.SetCellStyle(w.sheet, cell, cell, w.percentStyle); err != nil {
				return apperrors.InternalError(apperrors.CodeUnexpectedError, "style cell", err)
			}
		}
	case ClassDate:
		d := grid.ParseDate(cv.Text)
		if d == nil {
			summary.NullCells++
			return nil
		}
		if err := w.file.SetCellValue(w.sheet, cell, *d); err != nil {
			return apperrors.InternalError(apperrors.CodeUnexpectedError, "write cell", err)
		}
		if err := w.file.SetCellStyle(w.sheet, cell, cell, w.dateStyle); err != nil {
			return apperrors.InternalError(apperrors.CodeUnexpectedError, "style cell", err)
		}
	default:
		if cv.Computed {
			if cv.Number == nil {
				summary.NullCells++
				return nil
			}
			if err := w.file.SetCellValue(w.sheet, cell, *cv.Number); err != nil {
				return apperrors.InternalError(apperrors.CodeUnexpectedError, "write cell", err)
			}
		} else {
			if grid.IsBlank(cv.Text) {
				summary.NullCells++
				return nil
			}
			if err := w.file.SetCellValue(w.sheet, cell, cv.Text); err != nil {
				return apperrors.InternalError(apperrors.CodeUnexpectedError, "write cell", err)
			}
		}
	}
	summary.CellsWritten++
	return nil
}

func (w *Writer) resolveTarget(t mapping.Target) (int, bool) {
	if t.Letter != "" {
		return ResolveLetter(t.Letter)
	}
	return w.index.Resolve(t.Label, t.Occurrence)
}

func targetKey(t mapping.Target) string {
	if t.Letter != "" {
		return "@" + t.Letter
	}
	return t.Label
}

// SaveAs persists the filled workbook to a new path
func (w *Writer) SaveAs(path string) error {
	if err := w.file.SaveAs(path); err != nil {
		return apperrors.FileError(apperrors.CodeFilePermission, path, err)
	}
	return nil
}

// Save persists the workbook in place
func (w *Writer) Save() error {
	if err := w.file.Save(); err != nil {
		return apperrors.FileError(apperrors.CodeFilePermission, w.file.Path, err)
	}
	return nil
}

// Close releases the workbook
func (w *Writer) Close() error {
	return w.file.Close()
}
