package sensis

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"ift-reporting-service/internal/grid"
	"ift-reporting-service/internal/template"
	apperrors "ift-reporting-service/pkg/errors"
	"ift-reporting-service/pkg/logger"
)

// template letters receiving sensis data
const (
	notionalLetter = "M"

	dirtyPctLetter      = "BE"
	dirtyAmountLetter   = "BD"
	cleanPctLetter      = "BG"
	cleanAmountLetter   = "BF"
	accruedPctLetter    = "BI"
	accruedAmountLetter = "BH"

	durationLeg1Target  = "T"
	sensisLeg1Target    = "U"
	durationLeg2Target  = "AK"
	sensisLeg2Target    = "AL"
	durationTotalTarget = "AT"
	sensisTotalTarget   = "AU"
)

// comparison deltas: each destination letter holds left minus right
var deltaColumns = []struct {
	dest, left, right string
}{
	{"BK", "AN", "AW"},
	{"BL", "AO", "AX"},
	{"BS", "AN", "BD"},
	{"BT", "AO", "BE"},
	{"BU", "AP", "BF"},
	{"BV", "AQ", "BG"},
	{"BW", "AR", "BH"},
	{"BX", "AS", "BI"},
	{"CA", "AW", "BD"},
	{"CB", "AX", "BE"},
}

// PreviewRow is one applied line for the run report
type PreviewRow struct {
	Code          string   `json:"code"`
	DirtyPct      *float64 `json:"dirty_pct"`
	CleanPct      *float64 `json:"clean_pct"`
	AccruedPct    *float64 `json:"accrued_pct"`
	SensisLeg1    *float64 `json:"sensis_leg1"`
	SensisLeg2    *float64 `json:"sensis_leg2"`
	DurationLeg1  *float64 `json:"duration_leg1"`
	DurationLeg2  *float64 `json:"duration_leg2"`
	DurationTotal *float64 `json:"duration_total"`
}

// ApplyReport accounts for an apply pass over the filled template
type ApplyReport struct {
	Updated      int          `json:"updated"`
	MissingCodes []string     `json:"missing_codes,omitempty"`
	Preview      []PreviewRow `json:"preview,omitempty"`
}

// Apply joins the sensis table onto the filled report by Code DI and writes
// prices, sensitivities, durations and comparison deltas. Scanning stops at
// the first blank code cell; codes absent from the delivery are collected,
// not fatal.
func Apply(w *template.Writer, table map[string]Entry, log logger.Logger) (*ApplyReport, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("sensis")

	codeCol, ok := w.Index().Resolve("Code DI", 1)
	if !ok {
		return nil, apperrors.WorkbookError(apperrors.CodeMissingColumn,
			w.File().Path, "Code DI", nil)
	}
	notionalCol, _ := template.ResolveLetter(notionalLetter)

	report := &ApplyReport{}
	f := w.File()
	sheet := w.Sheet()

	for row := w.HeaderRow() + 1; ; row++ {
		code := rawCell(f, sheet, codeCol, row)
		if code == "" {
			break
		}
		entry, found := table[code]
		if !found {
			report.MissingCodes = append(report.MissingCodes, code)
			continue
		}
		notional := grid.ParseNumber(rawCell(f, sheet, notionalCol, row))

		if err := writeAll(f, sheet, row, map[string]*float64{
			dirtyPctLetter:      entry.DirtyPct,
			dirtyAmountLetter:   mulOptional(entry.DirtyPct, notional),
			cleanPctLetter:      entry.CleanPct,
			cleanAmountLetter:   mulOptional(entry.CleanPct, notional),
			accruedPctLetter:    entry.AccruedPct,
			accruedAmountLetter: mulOptional(entry.AccruedPct, notional),

			durationLeg1Target:  entry.DurationLeg1,
			sensisLeg1Target:    entry.SensisLeg1,
			durationLeg2Target:  entry.DurationLeg2,
			sensisLeg2Target:    entry.SensisLeg2,
			durationTotalTarget: entry.DurationTotal,
			sensisTotalTarget:   entry.SensisTotal(),
		}); err != nil {
			return nil, err
		}
		if err := RefreshDeltas(f, sheet, row); err != nil {
			return nil, err
		}

		report.Updated++
		report.Preview = append(report.Preview, PreviewRow{
			Code:          code,
			DirtyPct:      entry.DirtyPct,
			CleanPct:      entry.CleanPct,
			AccruedPct:    entry.AccruedPct,
			SensisLeg1:    entry.SensisLeg1,
			SensisLeg2:    entry.SensisLeg2,
			DurationLeg1:  entry.DurationLeg1,
			DurationLeg2:  entry.DurationLeg2,
			DurationTotal: entry.DurationTotal,
		})
	}

	log.WithFields(logger.Fields{
		"updated": report.Updated,
		"missing": len(report.MissingCodes),
	}).Info("Sensis applied to report")
	return report, nil
}

// RefreshDeltas recomputes the comparison columns of one report row from the
// values currently in the sheet. The TriOptima import reuses this after it
// rewrites the counterparty valuation columns.
func RefreshDeltas(f *excelize.File, sheet string, row int) error {
	for _, d := range deltaColumns {
		leftCol, _ := template.ResolveLetter(d.left)
		rightCol, _ := template.ResolveLetter(d.right)
		left := grid.ParseNumber(rawCell(f, sheet, leftCol, row))
		right := grid.ParseNumber(rawCell(f, sheet, rightCol, row))
		destCol, _ := template.ResolveLetter(d.dest)
		if err := setCell(f, sheet, destCol, row, subOptional(left, right)); err != nil {
			return err
		}
	}
	return nil
}

func writeAll(f *excelize.File, sheet string, row int, values map[string]*float64) error {
	for letter, v := range values {
		col, ok := template.ResolveLetter(letter)
		if !ok {
			return apperrors.InternalError(apperrors.CodeUnexpectedError, "column letter "+letter, nil)
		}
		if err := setCell(f, sheet, col, row, v); err != nil {
			return err
		}
	}
	return nil
}

func rawCell(f *excelize.File, sheet string, col, row int) string {
	if col < 1 || row < 1 {
		return ""
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func setCell(f *excelize.File, sheet string, col, row int, v *float64) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return apperrors.InternalError(apperrors.CodeUnexpectedError, "cell address", err)
	}
	var value interface{}
	if v != nil {
		value = *v
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return apperrors.InternalError(apperrors.CodeUnexpectedError, "write cell", err)
	}
	return nil
}
