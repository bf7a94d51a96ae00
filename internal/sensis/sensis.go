// Package sensis imports the daily sensitivity/pricing delivery and applies
// it to the filled report: percent prices, durations, sensitivities and the
// comparison deltas against the booked values.
package sensis

import (
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"ift-reporting-service/internal/grid"
	apperrors "ift-reporting-service/pkg/errors"
	"ift-reporting-service/pkg/logger"
)

// Sheet is where the delivery keeps the valuation table
const Sheet = "Valorisation - IFT - Valeur"

// fallbackHeaderRow is used when no leading row carries a code header (1-based)
const fallbackHeaderRow = 3

// Entry is one instrument's sensis line, keyed by Code DI. A nil field means
// the delivery had no value there.
type Entry struct {
	DirtyPct      *float64
	CleanPct      *float64
	AccruedPct    *float64
	SensisLeg1    *float64
	SensisLeg2    *float64
	DurationLeg1  *float64
	DurationLeg2  *float64
	DurationTotal *float64
}

// SensisTotal sums the per-leg sensitivities, ignoring nil legs; nil only
// when both legs are nil.
func (e Entry) SensisTotal() *float64 {
	return sumOptional(e.SensisLeg1, e.SensisLeg2)
}

// headerAliases maps a logical sensis column to the normalized header
// spellings the delivery uses for it.
var headerAliases = map[string][]string{
	"code":    {"code di"},
	"dirty":   {"dirty price %"},
	"clean":   {"clean price %"},
	"accrued": {"couru %", "accrued interest %"},
}

// value columns addressed by fixed letter in the delivery sheet
const (
	sensisLeg1Letter    = "AC"
	sensisLeg2Letter    = "AD"
	durationLeg1Letter  = "AE"
	durationLeg2Letter  = "AF"
	durationTotalLetter = "Z"
)

// normalizeHeader folds punctuation out of a header label so spelling
// variants like "Dirty Price(%)" and "dirty price %" compare equal.
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("(", " ", ")", " ", "/", " ", "%", " %").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Load reads the sensis delivery into a per-code table. The header row is
// the first leading row carrying a code label; rows with a blank code are
// skipped, the last line per code wins.
func Load(path string, log logger.Logger) (map[string]Entry, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("sensis")

	g, err := grid.ReadSheet(path, Sheet)
	if err != nil {
		return nil, err
	}

	headerRow := findHeaderRow(g)
	headers := make(map[string]int)
	if headerRow-1 < len(g) {
		for j, cell := range g[headerRow-1] {
			key := normalizeHeader(cell)
			if key == "" {
				continue
			}
			if _, ok := headers[key]; !ok {
				headers[key] = j
			}
		}
	}

	codeCol := columnFor(headers, "code")
	if codeCol < 0 {
		return nil, apperrors.WorkbookError(apperrors.CodeMissingColumn,
			filepath.Base(path), "Code DI", headerExcerpt(g, headerRow-1))
	}
	dirtyCol := columnFor(headers, "dirty")
	cleanCol := columnFor(headers, "clean")
	accruedCol := columnFor(headers, "accrued")

	sensis1 := mustLetter(sensisLeg1Letter)
	sensis2 := mustLetter(sensisLeg2Letter)
	dur1 := mustLetter(durationLeg1Letter)
	dur2 := mustLetter(durationLeg2Letter)
	durTotal := mustLetter(durationTotalLetter)

	table := make(map[string]Entry)
	for r := headerRow; r < len(g); r++ {
		code := cellString(g, r, codeCol)
		if code == "" {
			continue
		}
		table[code] = Entry{
			DirtyPct:      cellNumber(g, r, dirtyCol),
			CleanPct:      cellNumber(g, r, cleanCol),
			AccruedPct:    cellNumber(g, r, accruedCol),
			SensisLeg1:    cellNumber(g, r, sensis1),
			SensisLeg2:    cellNumber(g, r, sensis2),
			DurationLeg1:  cellNumber(g, r, dur1),
			DurationLeg2:  cellNumber(g, r, dur2),
			DurationTotal: cellNumber(g, r, durTotal),
		}
	}
	log.WithFields(logger.Fields{"file": filepath.Base(path), "codes": len(table)}).Info("Sensis delivery loaded")
	return table, nil
}

// findHeaderRow returns the 1-based row carrying a code header, scanning the
// leading rows, with a fixed fallback when none matches.
func findHeaderRow(g grid.RawGrid) int {
	window := grid.DefaultSearchWindow
	if window > len(g) {
		window = len(g)
	}
	for r := 0; r < window; r++ {
		for _, cell := range g[r] {
			key := normalizeHeader(cell)
			if key == "code di" || key == "code" {
				return r + 1
			}
		}
	}
	return fallbackHeaderRow
}

func columnFor(headers map[string]int, logical string) int {
	for _, alias := range headerAliases[logical] {
		if j, ok := headers[alias]; ok {
			return j
		}
	}
	return -1
}

func mustLetter(letter string) int {
	n, err := excelize.ColumnNameToNumber(letter)
	if err != nil {
		return -1
	}
	return n - 1
}

func headerExcerpt(g grid.RawGrid, row int) []string {
	if row < 0 || row >= len(g) {
		return nil
	}
	cells := g[row]
	if len(cells) > 8 {
		cells = cells[:8]
	}
	return cells
}

func cellString(g grid.RawGrid, r, c int) string {
	if c < 0 || r < 0 || r >= len(g) || c >= len(g[r]) {
		return ""
	}
	return strings.TrimSpace(g[r][c])
}

func cellNumber(g grid.RawGrid, r, c int) *float64 {
	return grid.ParseNumber(cellString(g, r, c))
}

func sumOptional(values ...*float64) *float64 {
	var sum float64
	any := false
	for _, v := range values {
		if v != nil {
			sum += *v
			any = true
		}
	}
	if !any {
		return nil
	}
	return &sum
}

func mulOptional(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a * *b
	return &v
}

// subOptional is the delta convention for the comparison columns: nil only
// when both sides are nil, a single-sided value compares against zero.
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
