package grid

import (
	"fmt"
	"strings"

	"ift-reporting-service/pkg/errors"
)

// Norm canonicalizes a label for comparison: trim, lowercase, collapse
// internal whitespace. Display labels keep their original casing; only
// lookups go through Norm.
func Norm(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// LabelDuplicateColumns disambiguates repeated column labels arising from
// per-leg field repetition. The first occurrence of a label stays bare, the
// second becomes "X (Leg2)", the third "X (Leg3)", and so on, in order of
// first appearance. Numbering depends only on label order, never on row
// content.
func LabelDuplicateColumns(cols []string) []string {
	counts := make(map[string]int, len(cols))
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		key := Norm(c)
		n := counts[key]
		counts[key] = n + 1
		if key != "" && n > 0 {
			out = append(out, fmt.Sprintf("%s (Leg%d)", c, n+1))
		} else {
			out = append(out, c)
		}
	}
	return out
}

// FindColumn locates a column by its logical name, tolerant of case and
// whitespace variations. Returns "" when no column matches.
func (t *Table) FindColumn(logical string) string {
	target := Norm(logical)
	for _, c := range t.Columns {
		if Norm(c) == target {
			return c
		}
	}
	return ""
}

// RequireColumn is FindColumn that fails with a missing-column error carrying
// an excerpt of the columns actually present.
func (t *Table) RequireColumn(logical string) (string, error) {
	if c := t.FindColumn(logical); c != "" {
		return c, nil
	}
	excerpt := t.Columns
	if len(excerpt) > 8 {
		excerpt = excerpt[:8]
	}
	return "", errors.WorkbookError(errors.CodeMissingColumn, t.File, logical, excerpt)
}

// LegSlot identifies which leg of a multi-leg instrument a column represents
type LegSlot int

const (
	LegUnspecified LegSlot = iota
	Leg1
	Leg2
	LegTotal
)

// String returns the string representation of LegSlot
func (s LegSlot) String() string {
	switch s {
	case Leg1:
		return "leg1"
	case Leg2:
		return "leg2"
	case LegTotal:
		return "total"
	default:
		return "unspecified"
	}
}

// ClassifyLegLabel classifies a column label into a leg slot from its text
// alone. Total markers win over leg markers so labels like "Notional 1+2"
// never land on a single leg.
func ClassifyLegLabel(label string) LegSlot {
	n := " " + Norm(label) + " "
	for _, tok := range []string{"1+2", "total", "both legs", "both", "sum"} {
		if strings.Contains(n, tok) {
			return LegTotal
		}
	}
	for _, tok := range []string{"leg 1", "leg1", "(1)", " l1 "} {
		if strings.Contains(n, tok) {
			return Leg1
		}
	}
	for _, tok := range []string{"leg 2", "leg2", "(2)", " l2 "} {
		if strings.Contains(n, tok) {
			return Leg2
		}
	}
	return LegUnspecified
}

// LegColumns holds the physical columns resolved for one base label
type LegColumns struct {
	Leg1  string
	Leg2  string
	Total string
}

// ResolveLegColumns locates, for a base label, which physical columns carry
// leg 1, leg 2 and the combined total. Candidates are columns whose
// normalized name equals or starts with the base. Ambiguity resolves by
// convention rather than failing: an unsuffixed candidate is the total when
// leg-specific columns exist, and is leg 1 when it is the only candidate.
func (t *Table) ResolveLegColumns(base string) LegColumns {
	target := Norm(base)
	var candidates []string
	for _, c := range t.Columns {
		n := Norm(c)
		if n == target || strings.HasPrefix(n, target) {
			candidates = append(candidates, c)
		}
	}

	var out LegColumns
	var unsuffixed []string
	for _, c := range candidates {
		switch ClassifyLegLabel(c) {
		case Leg1:
			if out.Leg1 == "" {
				out.Leg1 = c
			}
		case Leg2:
			if out.Leg2 == "" {
				out.Leg2 = c
			}
		case LegTotal:
			if out.Total == "" {
				out.Total = c
			}
		default:
			unsuffixed = append(unsuffixed, c)
		}
	}

	if out.Total == "" && len(unsuffixed) > 0 {
		if out.Leg1 != "" || out.Leg2 != "" {
			out.Total = unsuffixed[0]
		} else if len(unsuffixed) == 1 {
			out.Leg1 = unsuffixed[0]
		}
	}
	return out
}

// ColumnForLeg resolves the physical column for (base, slot), "" when absent
func (t *Table) ColumnForLeg(base string, slot LegSlot) string {
	cols := t.ResolveLegColumns(base)
	switch slot {
	case Leg1:
		return cols.Leg1
	case Leg2:
		return cols.Leg2
	case LegTotal:
		return cols.Total
	default:
		return ""
	}
}
