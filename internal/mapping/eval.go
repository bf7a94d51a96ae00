package mapping

import (
	"strings"

	"ift-reporting-service/internal/grid"
	"ift-reporting-service/pkg/logger"
)

// CellValue is one resolved destination write for a row. Direct copies carry
// the raw source text; computed targets carry a nullable number.
type CellValue struct {
	Target   Target
	Text     string
	Number   *float64
	Computed bool
}

// RowResult holds everything the mapping produced for one perimeter row
type RowResult struct {
	Row       grid.Row
	Variables map[string]*float64
	Values    []CellValue
}

// Evaluator applies a validated mapping spec to perimeter rows
type Evaluator struct {
	spec    *Spec
	table   *grid.Table
	letters map[string]grid.LetterMap
	log     logger.Logger
}

// NewEvaluator prepares row evaluation. letters maps a source file name to
// its spreadsheet-letter index, used by source_letter accesses; a file with
// no letter map simply resolves those accesses to null.
func NewEvaluator(spec *Spec, table *grid.Table, letters map[string]grid.LetterMap, log logger.Logger) *Evaluator {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Evaluator{
		spec:    spec,
		table:   table,
		letters: letters,
		log:     log.WithComponent("mapping"),
	}
}

// EvaluateAll processes every perimeter row in order
func (e *Evaluator) EvaluateAll() []RowResult {
	tracker := logger.NewStageTracker(e.log, "mapping", len(e.table.Rows))
	out := make([]RowResult, 0, len(e.table.Rows))
	for _, row := range e.table.Rows {
		out = append(out, e.evaluateRow(row))
		tracker.Increment()
	}
	tracker.Done()
	return out
}

func (e *Evaluator) evaluateRow(row grid.Row) RowResult {
	vars := make(map[string]*float64, len(e.spec.Variables))
	for name, src := range e.spec.Variables {
		vars[strings.ToLower(name)] = grid.ParseNumber(e.resolveSource(row, src))
	}

	result := RowResult{Row: row, Variables: vars}
	for _, col := range e.spec.Columns {
		result.Values = append(result.Values, CellValue{
			Target: col.Target,
			Text:   e.resolveSource(row, col.Source),
		})
	}
	for _, c := range e.spec.Computed {
		var n *float64
		if c.parsed != nil {
			n = c.parsed.Eval(vars)
		}
		result.Values = append(result.Values, CellValue{
			Target:   c.Target,
			Number:   n,
			Computed: true,
		})
	}
	return result
}

// resolveSource reads the cell a source spec points at. Every miss resolves
// to an empty string, never an error: absent letters, unknown columns and
// unmapped files all degrade the same way.
func (e *Evaluator) resolveSource(row grid.Row, src Source) string {
	switch {
	case src.Letter != "":
		lm := e.letters[row.File]
		if lm == nil {
			return ""
		}
		name := lm[strings.ToUpper(strings.TrimSpace(src.Letter))]
		if name == "" {
			return ""
		}
		return row.Get(name)
	case src.Name != "":
		if col := e.table.FindColumn(src.Name); col != "" {
			return row.Get(col)
		}
		return ""
	case src.Leg != nil:
		slot, ok := parseLegName(src.Leg.Leg)
		if !ok {
			return ""
		}
		if col := e.table.ColumnForLeg(src.Leg.Base, slot); col != "" {
			return row.Get(col)
		}
		// No leg-specific match: fall back to the bare base label.
		if col := e.table.FindColumn(src.Leg.Base); col != "" {
			return row.Get(col)
		}
	}
	return ""
}
