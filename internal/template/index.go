// Package template fills the destination report workbook: it resolves
// occurrence-addressed targets against the template's header row, casts
// values by the target's semantic class and applies display formats.
package template

import (
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"ift-reporting-service/internal/grid"
)

// TargetIndex maps a header label to the 1-based column numbers carrying it,
// left to right. Occurrence n of a label is the n-th entry of its list.
type TargetIndex struct {
	columns map[string][]int
	width   int
}

// NewTargetIndex builds the index from a destination header row
func NewTargetIndex(header []string) *TargetIndex {
	idx := &TargetIndex{columns: make(map[string][]int)}
	for j, label := range header {
		key := grid.Norm(label)
		if key == "" {
			continue
		}
		idx.columns[key] = append(idx.columns[key], j+1)
		idx.width = j + 1
	}
	return idx
}

// Resolve returns the 1-based column for a label occurrence, or false when
// the label is absent or the occurrence is out of range.
func (idx *TargetIndex) Resolve(label string, occurrence int) (int, bool) {
	cols := idx.columns[grid.Norm(label)]
	if occurrence < 1 || occurrence > len(cols) {
		return 0, false
	}
	return cols[occurrence-1], true
}

// Has reports whether any column carries the label
func (idx *TargetIndex) Has(label string) bool {
	return len(idx.columns[grid.Norm(label)]) > 0
}

// ResolveLetter converts a fixed column letter to its 1-based number
func ResolveLetter(letter string) (int, bool) {
	n, err := excelize.ColumnNameToNumber(strings.ToUpper(strings.TrimSpace(letter)))
	if err != nil {
		return 0, false
	}
	return n, true
}

// SemanticClass drives the cast and display format applied to a target cell
type SemanticClass int

const (
	ClassText SemanticClass = iota
	ClassNumeric
	ClassPercent
	ClassDate
)

func (c SemanticClass) String() string {
	switch c {
	case ClassNumeric:
		return "numeric"
	case ClassPercent:
		return "percent"
	case ClassDate:
		return "date"
	default:
		return "text"
	}
}

var numericTargets = map[string]struct{}{
	"notional": {}, "dirty value": {}, "clean value": {},
	"accrued interest": {}, "spread (bp)": {},
}

var dateTargets = map[string]struct{}{
	"start date": {}, "end date": {},
}

var legSuffixRe = regexp.MustCompile(`(?i)\s*\(leg\d+\)$`)

// ClassOf classifies a target label. The class follows the label alone,
// never the value written into it: a percent slot formats as percent no
// matter what the source looked like.
func ClassOf(label string) SemanticClass {
	base := grid.Norm(legSuffixRe.ReplaceAllString(label, ""))
	if strings.Contains(base, "%") {
		return ClassPercent
	}
	if _, ok := dateTargets[base]; ok {
		return ClassDate
	}
	if _, ok := numericTargets[base]; ok {
		return ClassNumeric
	}
	return ClassText
}
