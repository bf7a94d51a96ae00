package collateral

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ift-reporting-service/internal/grid"
)

// Entry is one exposure line from either side of the comparison, before
// normalization and aggregation.
type Entry struct {
	Counterparty    string
	Typology        string
	Gam             decimal.Decimal
	CounterpartyMtM decimal.Decimal
}

// Key is the normalized join key
type Key struct {
	Counterparty string
	Typology     string
}

// Row is one line of the reconciliation output. Gaps are always template
// minus collateral; a side absent from the join contributes zero totals and
// a false presence flag.
type Row struct {
	Key Key

	Counterparty string
	Typology     string

	TemplateGam   decimal.Decimal
	TemplateCp    decimal.Decimal
	CollateralGam decimal.Decimal
	CollateralCp  decimal.Decimal

	InTemplate   bool
	InCollateral bool

	GapGam decimal.Decimal
	GapCp  decimal.Decimal
}

// noiseLabels are counterparty cells that are repeated headers or total
// lines inside the sheets, never real counterparties.
var noiseLabels = map[string]struct{}{
	"counterparty": {}, "contrepartie": {}, "cp": {}, "total": {},
}

func isNoiseLabel(label string) bool {
	_, ok := noiseLabels[grid.Norm(label)]
	return ok
}

type aggregate struct {
	counterparty string
	typology     string
	gam          decimal.Decimal
	cp           decimal.Decimal
}

// aggregateEntries groups entries by normalized key, summing both measures
// and keeping the first non-blank display labels. Noise labels and blank
// counterparties are dropped.
func aggregateEntries(entries []Entry, cpAliases, tyAliases *AliasTable) map[Key]*aggregate {
	if cpAliases == nil {
		cpAliases = NewAliasTable()
	}
	if tyAliases == nil {
		tyAliases = NewAliasTable()
	}
	out := make(map[Key]*aggregate)
	for _, e := range entries {
		if strings.TrimSpace(e.Counterparty) == "" || isNoiseLabel(e.Counterparty) {
			continue
		}
		key := Key{
			Counterparty: cpAliases.Normalize(e.Counterparty),
			Typology:     tyAliases.Normalize(e.Typology),
		}
		agg, ok := out[key]
		if !ok {
			agg = &aggregate{}
			out[key] = agg
		}
		if agg.counterparty == "" {
			agg.counterparty = strings.TrimSpace(e.Counterparty)
		}
		if agg.typology == "" {
			agg.typology = strings.TrimSpace(e.Typology)
		}
		agg.gam = agg.gam.Add(e.Gam)
		agg.cp = agg.cp.Add(e.CounterpartyMtM)
	}
	return out
}

// Reconcile outer-joins the two aggregated sides and computes the gaps.
// Output order is deterministic: ascending normalized key, blank keys last,
// stable for equal keys.
func Reconcile(template, collateral []Entry, cpAliases, tyAliases *AliasTable) []Row {
	left := aggregateEntries(template, cpAliases, tyAliases)
	right := aggregateEntries(collateral, cpAliases, tyAliases)

	keys := make([]Key, 0, len(left)+len(right))
	for k := range left {
		keys = append(keys, k)
	}
	for k := range right {
		if _, seen := left[k]; !seen {
			keys = append(keys, k)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return lessKey(keys[i], keys[j])
	})

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		row := Row{Key: k}
		if agg, ok := left[k]; ok {
			row.InTemplate = true
			row.TemplateGam = agg.gam
			row.TemplateCp = agg.cp
			row.Counterparty = agg.counterparty
			row.Typology = agg.typology
		}
		if agg, ok := right[k]; ok {
			row.InCollateral = true
			row.CollateralGam = agg.gam
			row.CollateralCp = agg.cp
			if row.Counterparty == "" {
				row.Counterparty = agg.counterparty
			}
			if row.Typology == "" {
				row.Typology = agg.typology
			}
		}
		row.GapGam = row.TemplateGam.Sub(row.CollateralGam)
		row.GapCp = row.TemplateCp.Sub(row.CollateralCp)
		rows = append(rows, row)
	}
	return rows
}

// lessKey orders keys ascending with blank components after non-blank ones
func lessKey(a, b Key) bool {
	if c := compareBlankLast(a.Counterparty, b.Counterparty); c != 0 {
		return c < 0
	}
	return compareBlankLast(a.Typology, b.Typology) < 0
}

func compareBlankLast(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	return strings.Compare(a, b)
}
