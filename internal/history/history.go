// Package history aggregates dirty value by classification from filled
// report workbooks and compares two production runs.
package history

import (
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"ift-reporting-service/internal/grid"
	apperrors "ift-reporting-service/pkg/errors"
	"ift-reporting-service/pkg/logger"
)

const (
	// AnalysisSheet is the report tab carrying one row per trade.
	AnalysisSheet = "IRS - INF – XCCY"

	// AnalysisHeaderRow is the 1-based header row of the analysis sheet.
	AnalysisHeaderRow = 6

	// DirtyLetter is the template column holding the dirty value.
	DirtyLetter = "AN"

	classifLabel = "Classif DI"
)

// minComparableBase is the smallest previous total for which a relative
// delta is still meaningful. Below it the percentage is left null.
const minComparableBase = 1e-12

// DeltaRow is one classification in a production comparison.
type DeltaRow struct {
	Classif      string   `json:"classif"`
	Previous     float64  `json:"previous"`
	Current      float64  `json:"current"`
	Delta        float64  `json:"delta"`
	DeltaPercent *float64 `json:"delta_percent,omitempty"`
}

// AggregateDirtyByClassif sums the dirty value column of the analysis
// sheet per classification label. Rows with a blank classification or an
// unparseable dirty value are skipped.
func AggregateDirtyByClassif(path string, log logger.Logger) (map[string]float64, error) {
	g, err := grid.ReadSheet(path, AnalysisSheet)
	if err != nil {
		return nil, err
	}
	if len(g) < AnalysisHeaderRow {
		return nil, apperrors.WorkbookError(apperrors.CodeHeaderNotFound,
			filepath.Base(path), classifLabel, nil)
	}

	header := g[AnalysisHeaderRow-1]
	classifCol := -1
	for j, label := range header {
		if grid.Norm(label) == grid.Norm(classifLabel) {
			classifCol = j
			break
		}
	}
	if classifCol < 0 {
		return nil, apperrors.WorkbookError(apperrors.CodeMissingColumn,
			filepath.Base(path), classifLabel, header)
	}

	dirtyCol, err := excelize.ColumnNameToNumber(DirtyLetter)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryMapping,
			apperrors.CodeInvalidMapping, "bad dirty value column letter")
	}
	dirtyIdx := dirtyCol - 1

	totals := make(map[string]float64)
	rows := 0
	for _, row := range g[AnalysisHeaderRow:] {
		if classifCol >= len(row) || dirtyIdx >= len(row) {
			continue
		}
		classif := strings.TrimSpace(row[classifCol])
		if classif == "" {
			continue
		}
		dirty := grid.ParseNumber(row[dirtyIdx])
		if dirty == nil {
			continue
		}
		totals[classif] += *dirty
		rows++
	}

	if log != nil {
		log.WithFields(logger.Fields{
			"file":            filepath.Base(path),
			"rows_aggregated": rows,
			"classifications": len(totals),
		}).Info("Aggregated dirty value by classification")
	}
	return totals, nil
}

// Compare joins two per-classification totals and reports the change for
// every classification present on either side. Absent classifications
// count as zero. The relative delta is null when the previous total is
// too close to zero to divide by. Rows come back sorted by absolute
// delta, largest first.
func Compare(current, previous map[string]float64) []DeltaRow {
	keys := make(map[string]struct{}, len(current)+len(previous))
	for k := range current {
		keys[k] = struct{}{}
	}
	for k := range previous {
		keys[k] = struct{}{}
	}

	rows := make([]DeltaRow, 0, len(keys))
	for k := range keys {
		old := previous[k]
		cur := current[k]
		row := DeltaRow{
			Classif:  k,
			Previous: old,
			Current:  cur,
			Delta:    cur - old,
		}
		if math.Abs(old) > minComparableBase {
			pct := row.Delta / old * 100.0
			row.DeltaPercent = &pct
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := math.Abs(rows[i].Delta), math.Abs(rows[j].Delta)
		if di != dj {
			return di > dj
		}
		return rows[i].Classif < rows[j].Classif
	})
	return rows
}
