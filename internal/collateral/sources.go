package collateral

import (
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"ift-reporting-service/internal/grid"
	apperrors "ift-reporting-service/pkg/errors"
	"ift-reporting-service/pkg/logger"
)

// ReportSheet is the sheet name inside the third-party collateral report
const ReportSheet = "Report Collateral"

// TemplateSource describes where one template sheet keeps the exposure
// columns, addressed by fixed letter. A ClassifOverride replaces the
// typology read for every row of the sheet.
type TemplateSource struct {
	Sheet              string
	HeaderRow          int
	CounterpartyLetter string
	ClassifLetter      string
	ClassifOverride    string
	GamLetter          string
	CpLetter           string
}

// DefaultTemplateSources lists the template sheets aggregated for the
// collateral comparison.
var DefaultTemplateSources = []TemplateSource{
	{
		Sheet:              "IRS - INF – XCCY",
		HeaderRow:          6,
		ClassifLetter:      "B",
		CounterpartyLetter: "E",
		GamLetter:          "AN",
		CpLetter:           "AW",
	},
	{
		Sheet:              "BND FWD",
		HeaderRow:          1,
		CounterpartyLetter: "C",
		ClassifOverride:    "Forward",
		GamLetter:          "E",
		CpLetter:           "F",
	},
}

// ReadTemplateEntries pulls the exposure lines out of a filled template.
// Rows with a blank or noise counterparty are skipped; unreadable amounts
// count as zero so one bad cell cannot sink the aggregation.
func ReadTemplateEntries(path string, sources []TemplateSource, log logger.Logger) ([]Entry, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("collateral")
	if len(sources) == 0 {
		sources = DefaultTemplateSources
	}

	var entries []Entry
	for _, src := range sources {
		g, err := grid.ReadSheet(path, src.Sheet)
		if err != nil {
			return nil, err
		}
		cpCol, err := letterIndex(src.CounterpartyLetter)
		if err != nil {
			return nil, err
		}
		gamCol, err := letterIndex(src.GamLetter)
		if err != nil {
			return nil, err
		}
		mtmCol, err := letterIndex(src.CpLetter)
		if err != nil {
			return nil, err
		}
		classifCol := -1
		if src.ClassifLetter != "" {
			if classifCol, err = letterIndex(src.ClassifLetter); err != nil {
				return nil, err
			}
		}

		count := 0
		for r := src.HeaderRow; r < len(g); r++ {
			cp := cellString(g, r, cpCol)
			if cp == "" || isNoiseLabel(cp) {
				continue
			}
			typology := src.ClassifOverride
			if classifCol >= 0 {
				typology = cellString(g, r, classifCol)
			}
			entries = append(entries, Entry{
				Counterparty:    cp,
				Typology:        typology,
				Gam:             cellAmount(g, r, gamCol),
				CounterpartyMtM: cellAmount(g, r, mtmCol),
			})
			count++
		}
		log.WithFields(logger.Fields{"sheet": src.Sheet, "rows": count}).Debug("Template exposure read")
	}
	return entries, nil
}

// report column labels; the producing system pads them with trailing spaces,
// which the tolerant lookup absorbs
const (
	reportCounterpartyCol = "Counterparty"
	reportTypologyCol     = "Typologie"
	reportGamCol          = "MTM Gam"
	reportCpCol           = "MTM Counterparty"
)

// ReadReportEntries reads the third-party collateral report. The header row
// is located by its counterparty label within the leading rows; all four
// exposure columns are required.
func ReadReportEntries(path string, log logger.Logger) ([]Entry, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("collateral")

	g, err := grid.ReadSheet(path, ReportSheet)
	if err != nil {
		return nil, err
	}

	headerRow := -1
	window := grid.DefaultSearchWindow
	if window > len(g) {
		window = len(g)
	}
	for r := 0; r < window; r++ {
		for _, cell := range g[r] {
			if grid.Norm(cell) == grid.Norm(reportCounterpartyCol) {
				headerRow = r
				break
			}
		}
		if headerRow >= 0 {
			break
		}
	}
	if headerRow < 0 {
		return nil, apperrors.WorkbookError(apperrors.CodeHeaderNotFound,
			filepath.Base(path), reportCounterpartyCol, firstRowExcerpt(g))
	}

	cols := map[string]int{}
	for j, cell := range g[headerRow] {
		cols[grid.Norm(cell)] = j
	}
	required := []string{reportCounterpartyCol, reportTypologyCol, reportGamCol, reportCpCol}
	idx := make([]int, len(required))
	for i, label := range required {
		j, ok := cols[grid.Norm(label)]
		if !ok {
			return nil, apperrors.WorkbookError(apperrors.CodeMissingColumn,
				filepath.Base(path), label, g[headerRow])
		}
		idx[i] = j
	}

	var entries []Entry
	for r := headerRow + 1; r < len(g); r++ {
		cp := cellString(g, r, idx[0])
		if cp == "" || isNoiseLabel(cp) {
			continue
		}
		entries = append(entries, Entry{
			Counterparty:    cp,
			Typology:        cellString(g, r, idx[1]),
			Gam:             cellAmount(g, r, idx[2]),
			CounterpartyMtM: cellAmount(g, r, idx[3]),
		})
	}
	log.WithFields(logger.Fields{"file": filepath.Base(path), "rows": len(entries)}).Info("Collateral report read")
	return entries, nil
}

func letterIndex(letter string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.ToUpper(strings.TrimSpace(letter)))
	if err != nil {
		return 0, apperrors.InternalError(apperrors.CodeUnexpectedError, "column letter "+letter, err)
	}
	return n - 1, nil
}

func cellString(g grid.RawGrid, r, c int) string {
	if r < 0 || r >= len(g) || c < 0 || c >= len(g[r]) {
		return ""
	}
	return strings.TrimSpace(g[r][c])
}

func cellAmount(g grid.RawGrid, r, c int) decimal.Decimal {
	if f := grid.ParseNumber(cellString(g, r, c)); f != nil {
		return decimal.NewFromFloat(*f)
	}
	return decimal.Zero
}

func firstRowExcerpt(g grid.RawGrid) []string {
	if len(g) == 0 {
		return nil
	}
	row := g[0]
	if len(row) > 8 {
		row = row[:8]
	}
	return row
}
