// Package trioptima imports the interdealer TriOptima extract: counterparty
// MTM values joined onto the filled report by Code DI, plus the bond-forward
// rows rebuilt on their own sheet.
package trioptima

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ift-reporting-service/internal/grid"
	apperrors "ift-reporting-service/pkg/errors"
	"ift-reporting-service/pkg/logger"
)

// Record is one line of the TriOptima extract after column cleanup
type Record struct {
	CodeDI          string
	FreeText1       string
	Book            string
	CP              string
	Notional        *float64
	MtmValue        *float64
	MtmDiff         *float64
	MtmCounterparty *float64
}

// required extract columns; the rest are optional and degrade to empty
var requiredColumns = []string{"FREE_TEXT_2", "MTM_VALUE", "MTM_DIFF"}

// LoadCSV reads a semicolon-separated TriOptima extract. Code DI is the
// FREE_TEXT_2 text before its first "/"; the counterparty MTM is value minus
// diff, nil when either side is unreadable.
func LoadCSV(path string, log logger.Logger) ([]Record, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("trioptima")

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, path, err)
		}
		return nil, apperrors.FileError(apperrors.CodeFilePermission, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileCorrupted, path, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.WorkbookError(apperrors.CodeHeaderNotFound,
			filepath.Base(path), strings.Join(requiredColumns, ", "), nil)
	}

	cols := make(map[string]int, len(rows[0]))
	for j, name := range rows[0] {
		cols[strings.ToUpper(strings.TrimSpace(name))] = j
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.WorkbookError(apperrors.CodeMissingColumn,
			filepath.Base(path), strings.Join(missing, ", "), rows[0])
	}

	field := func(row []string, name string) string {
		j, ok := cols[name]
		if !ok || j >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[j])
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		freeText2 := field(row, "FREE_TEXT_2")
		code, _, _ := strings.Cut(freeText2, "/")
		rec := Record{
			CodeDI:    strings.TrimSpace(code),
			FreeText1: field(row, "FREE_TEXT_1"),
			Book:      normalizeBook(field(row, "BOOK")),
			CP:        field(row, "CP"),
			Notional:  grid.ParseNumber(field(row, "NOTIONAL")),
			MtmValue:  grid.ParseNumber(field(row, "MTM_VALUE")),
			MtmDiff:   grid.ParseNumber(field(row, "MTM_DIFF")),
		}
		if rec.MtmValue != nil && rec.MtmDiff != nil {
			v := *rec.MtmValue - *rec.MtmDiff
			rec.MtmCounterparty = &v
		}
		records = append(records, rec)
	}
	log.WithFields(logger.Fields{"file": filepath.Base(path), "rows": len(records)}).Info("TriOptima extract loaded")
	return records, nil
}

// normalizeBook folds numeric-text book codes to their integer spelling so
// "601.0" and " 601 " both compare equal to "601".
func normalizeBook(s string) string {
	if f := grid.ParseNumber(s); f != nil {
		if *f == float64(int64(*f)) {
			return fmt.Sprintf("%d", int64(*f))
		}
		return strings.TrimSpace(s)
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

// CodeTotal is the per-code aggregation of the extract's MTM measures
type CodeTotal struct {
	Code            string
	MtmValue        float64
	MtmDiff         float64
	MtmCounterparty float64
}

// AggregateByCode sums the MTM measures per Code DI, dropping blank codes,
// sorted by code. Unreadable amounts contribute zero.
func AggregateByCode(records []Record) []CodeTotal {
	byCode := make(map[string]*CodeTotal)
	for _, rec := range records {
		if rec.CodeDI == "" {
			continue
		}
		total, ok := byCode[rec.CodeDI]
		if !ok {
			total = &CodeTotal{Code: rec.CodeDI}
			byCode[rec.CodeDI] = total
		}
		total.MtmValue += orZero(rec.MtmValue)
		total.MtmDiff += orZero(rec.MtmDiff)
		total.MtmCounterparty += orZero(rec.MtmCounterparty)
	}
	totals := make([]CodeTotal, 0, len(byCode))
	for _, t := range byCode {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Code < totals[j].Code })
	return totals
}

// MtmMapping flattens the aggregation to the Code DI to counterparty-MTM
// map the report join consumes.
func MtmMapping(totals []CodeTotal) map[string]float64 {
	out := make(map[string]float64, len(totals))
	for _, t := range totals {
		out[t.Code] = t.MtmCounterparty
	}
	return out
}

// allowedBooks are the portfolio books carrying bond forwards
var allowedBooks = map[string]struct{}{"601": {}, "602": {}, "603": {}}

// FilterBndFwd keeps the extract rows belonging on the bond-forward sheet:
// FREE_TEXT_1 starting with BDFWD in one of the allowed books.
func FilterBndFwd(records []Record) []Record {
	var out []Record
	for _, rec := range records {
		if !strings.HasPrefix(strings.ToUpper(rec.FreeText1), "BDFWD") {
			continue
		}
		if _, ok := allowedBooks[rec.Book]; !ok {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
