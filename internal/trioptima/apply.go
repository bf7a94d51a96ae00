package trioptima

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"ift-reporting-service/internal/grid"
	"ift-reporting-service/internal/template"
	apperrors "ift-reporting-service/pkg/errors"
	"ift-reporting-service/pkg/logger"
)

const notionalLetter = "M"

// PreviewRow is one applied line for the run report
type PreviewRow struct {
	Code      string   `json:"code"`
	Mtm       float64  `json:"mtm"`
	Diff      *float64 `json:"diff"`
	DiffRatio *float64 `json:"diff_ratio"`
}

// ApplyReport accounts for the counterparty-MTM injection
type ApplyReport struct {
	Updated      int          `json:"updated"`
	MissingCodes []string     `json:"missing_codes,omitempty"`
	UnusedCodes  []string     `json:"unused_codes,omitempty"`
	Preview      []PreviewRow `json:"preview,omitempty"`
}

// Apply joins the aggregated counterparty MTM onto the filled report by
// Code DI: AW gets the MTM, AX its ratio over notional, BD the booked-value
// gap and BE the gap ratio, then the dependent comparison columns are
// refreshed. Scanning stops at the first blank code cell.
func Apply(w *template.Writer, mtm map[string]float64, log logger.Logger) (*ApplyReport, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("trioptima")

	report := &ApplyReport{}
	if len(mtm) == 0 {
		return report, nil
	}

	codeCol, ok := w.Index().Resolve("Code DI", 1)
	if !ok {
		return nil, apperrors.WorkbookError(apperrors.CodeMissingColumn, w.File().Path, "Code DI", nil)
	}
	notionalCol, _ := template.ResolveLetter(notionalLetter)

	f := w.File()
	sheet := w.Sheet()
	used := make(map[string]struct{})

	for row := w.HeaderRow() + 1; ; row++ {
		code := rawCell(f, sheet, codeCol, row)
		if code == "" {
			break
		}
		value, found := mtm[code]
		if !found {
			report.MissingCodes = append(report.MissingCodes, code)
			continue
		}
		used[code] = struct{}{}

		an := grid.ParseNumber(rawCell(f, sheet, mustLetter("AN"), row))
		notional := grid.ParseNumber(rawCell(f, sheet, notionalCol, row))

		bd := subOptional(an, &value)
		be := divOptional(bd, notional)
		ax := divOptional(&value, notional)

		writes := []struct {
			letter string
			value  *float64
		}{
			{"AW", &value},
			{"AX", ax},
			{"BD", bd},
			{"BE", be},
			{"BK", subOptional(an, &value)},
		}
		for _, wr := range writes {
			if err := setCell(f, sheet, mustLetter(wr.letter), row, wr.value); err != nil {
				return nil, err
			}
		}
		// dependent comparisons read the freshly written cells
		refresh := []struct {
			dest, left, right string
		}{
			{"BS", "AN", "BD"},
			{"BT", "AO", "BE"},
			{"CA", "AW", "BD"},
			{"CB", "AX", "BE"},
		}
		for _, rf := range refresh {
			left := grid.ParseNumber(rawCell(f, sheet, mustLetter(rf.left), row))
			right := grid.ParseNumber(rawCell(f, sheet, mustLetter(rf.right), row))
			if err := setCell(f, sheet, mustLetter(rf.dest), row, subOptional(left, right)); err != nil {
				return nil, err
			}
		}

		report.Updated++
		report.Preview = append(report.Preview, PreviewRow{Code: code, Mtm: value, Diff: bd, DiffRatio: be})
	}

	for code := range mtm {
		if _, ok := used[code]; !ok {
			report.UnusedCodes = append(report.UnusedCodes, code)
		}
	}
	sort.Strings(report.UnusedCodes)

	log.WithFields(logger.Fields{
		"updated": report.Updated,
		"missing": len(report.MissingCodes),
		"unused":  len(report.UnusedCodes),
	}).Info("TriOptima MTM applied to report")
	return report, nil
}

// BndFwdSheet is the bond-forward sheet rebuilt from the filtered extract
const BndFwdSheet = "BND FWD"

const (
	bndFwdStartRow  = 2
	bndFwdThreshold = 0.005
	bndFwdLastCol   = "L"
	bndFwdAlertCol  = "K"
)

// BndFwdRow is one written bond-forward line for the run report
type BndFwdRow struct {
	FreeText  string   `json:"free_text"`
	Book      string   `json:"book"`
	CP        string   `json:"cp"`
	Notional  *float64 `json:"notional"`
	MtmValue  *float64 `json:"mtm_value"`
	CtpPrice  *float64 `json:"ctp_price"`
	MtmRatio  *float64 `json:"mtm_ratio"`
	CtpRatio  *float64 `json:"ctp_ratio"`
	DiffRatio *float64 `json:"diff_ratio"`
	Alert     bool     `json:"alert"`
}

// BndFwdReport accounts for the bond-forward sheet rebuild
type BndFwdReport struct {
	Updated     int         `json:"updated"`
	MissingData []string    `json:"missing_data,omitempty"`
	Alerts      []string    `json:"alerts,omitempty"`
	Preview     []BndFwdRow `json:"preview,omitempty"`
}

// ApplyBndFwd clears the bond-forward sheet's data region and rewrites it
// from the filtered extract rows. Rows lacking a usable notional or MTM are
// reported and skipped; a diff ratio beyond the threshold flags the row.
func ApplyBndFwd(f *excelize.File, rows []Record, log logger.Logger) (*BndFwdReport, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("trioptima")

	sheetIdx, err := f.GetSheetIndex(BndFwdSheet)
	if err != nil || sheetIdx < 0 {
		return nil, apperrors.WorkbookError(apperrors.CodeSheetMissing, f.Path, BndFwdSheet, f.GetSheetList())
	}

	existing, err := f.GetRows(BndFwdSheet)
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileCorrupted, f.Path, err)
	}
	clearTo := len(existing)
	if min := bndFwdStartRow + len(rows); min > clearTo {
		clearTo = min
	}
	lastCol := mustLetter(bndFwdLastCol)
	for row := bndFwdStartRow; row <= clearTo; row++ {
		for col := 1; col <= lastCol; col++ {
			if err := setCell(f, BndFwdSheet, col, row, nil); err != nil {
				return nil, err
			}
		}
	}

	report := &BndFwdReport{}
	current := bndFwdStartRow
	for i, rec := range rows {
		label := rec.FreeText1
		if label == "" {
			label = fmt.Sprintf("row %d", i+1)
		}

		var missing []string
		if rec.FreeText1 == "" {
			missing = append(missing, "FREE_TEXT_1")
		}
		if rec.CP == "" {
			missing = append(missing, "CP")
		}
		if rec.Notional == nil || *rec.Notional == 0 {
			missing = append(missing, "NOTIONAL")
		}
		if rec.MtmValue == nil {
			missing = append(missing, "MTM_VALUE")
		}
		if rec.MtmDiff == nil {
			missing = append(missing, "MTM_DIFF")
		}
		fatal := false
		for _, field := range missing {
			if field == "NOTIONAL" || field == "MTM_VALUE" || field == "MTM_DIFF" {
				fatal = true
			}
		}
		if len(missing) > 0 {
			report.MissingData = append(report.MissingData,
				fmt.Sprintf("%s: missing %s", label, strings.Join(missing, ", ")))
		}
		if fatal {
			continue
		}

		ctpPrice := subOptional(rec.MtmValue, rec.MtmDiff)
		mtmRatio := divOptional(rec.MtmValue, rec.Notional)
		ctpRatio := divOptional(ctpPrice, rec.Notional)
		var diffRatio *float64
		if mtmRatio != nil && ctpRatio != nil {
			d := *mtmRatio - *ctpRatio
			diffRatio = &d
		}
		alert := diffRatio != nil && math.Abs(*diffRatio) > bndFwdThreshold

		threshold := bndFwdThreshold
		cells := []struct {
			letter string
			value  interface{}
		}{
			{"A", textOrNil(rec.FreeText1)},
			{"B", textOrNil(rec.Book)},
			{"C", textOrNil(rec.CP)},
			{"D", floatOrNil(rec.Notional)},
			{"E", floatOrNil(rec.MtmValue)},
			{"F", floatOrNil(ctpPrice)},
			{"G", floatOrNil(mtmRatio)},
			{"H", floatOrNil(ctpRatio)},
			{"I", threshold},
			{"J", floatOrNil(diffRatio)},
			{"K", textOrNil(alertText(alert))},
		}
		for _, c := range cells {
			cell, err := excelize.CoordinatesToCellName(mustLetter(c.letter), current)
			if err != nil {
				return nil, apperrors.InternalError(apperrors.CodeUnexpectedError, "cell address", err)
			}
			if err := f.SetCellValue(BndFwdSheet, cell, c.value); err != nil {
				return nil, apperrors.InternalError(apperrors.CodeUnexpectedError, "write cell", err)
			}
		}
		if alert {
			report.Alerts = append(report.Alerts, label)
		}

		report.Preview = append(report.Preview, BndFwdRow{
			FreeText:  rec.FreeText1,
			Book:      rec.Book,
			CP:        rec.CP,
			Notional:  rec.Notional,
			MtmValue:  rec.MtmValue,
			CtpPrice:  ctpPrice,
			MtmRatio:  mtmRatio,
			CtpRatio:  ctpRatio,
			DiffRatio: diffRatio,
			Alert:     alert,
		})
		current++
		report.Updated++
	}

	log.WithFields(logger.Fields{
		"updated": report.Updated,
		"alerts":  len(report.Alerts),
	}).Info("Bond-forward sheet rebuilt")
	return report, nil
}

func alertText(alert bool) string {
	if alert {
		return "alerte"
	}
	return ""
}

func textOrNil(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func floatOrNil(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// mustLetter returns the 1-based column number for a fixed letter
func mustLetter(letter string) int {
	n, err := excelize.ColumnNameToNumber(letter)
	if err != nil {
		return 1
	}
	return n
}

func rawCell(f *excelize.File, sheet string, col, row int) string {
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

func subOptional(left, right *float64) *float64 {
	if left == nil && right == nil {
		return nil
	}
	var l, r float64
	if left != nil {
		l = *left
	}
	if right != nil {
		r = *right
	}
	d := l - r
	return &d
}

func divOptional(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	v := *num / *den
	return &v
}
