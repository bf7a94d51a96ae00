package mapping

import (
	"math"
	"testing"

	"ift-reporting-service/internal/grid"
)

func evalTable() *grid.Table {
	return &grid.Table{
		File:    "a.xlsx",
		Columns: []string{"Code DI", "Counterparty", "Notional", "Notional (Leg2)", "Dirty Value"},
		Rows: []grid.Row{
			{File: "a.xlsx", Values: map[string]string{
				"Code DI": "AB12", "Counterparty": "BANK A",
				"Notional": "1000", "Notional (Leg2)": "2000", "Dirty Value": "150",
			}},
			{File: "a.xlsx", Values: map[string]string{
				"Code DI": "CD34", "Counterparty": "BANK B",
				"Notional": "0", "Notional (Leg2)": "", "Dirty Value": "75",
			}},
		},
	}
}

func evalSpec(t *testing.T) *Spec {
	t.Helper()
	spec, err := Parse([]byte(`
variables:
  dirty:
    source: "Dirty Value"
  notional:
    source_leg: {base: "Notional", leg: leg1}
columns:
  - target: "Counterparty"
    source: "counterparty"
  - target: "Notional"
    target_occurrence: 2
    source_leg: {base: "Notional", leg: leg2}
  - target: "Start Date"
    source_letter: "B"
computed:
  - target: "Dirty Value (%)"
    expr: "dirty / notional"
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return spec
}

func TestEvaluateAll(t *testing.T) {
	letters := map[string]grid.LetterMap{
		"a.xlsx": {"A": "Code DI", "B": "Counterparty"},
	}
	ev := NewEvaluator(evalSpec(t), evalTable(), letters, nil)
	results := ev.EvaluateAll()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	r0 := results[0]
	if got := r0.Values[0].Text; got != "BANK A" {
		t.Errorf("direct by name = %q, want BANK A", got)
	}
	if got := r0.Values[1].Text; got != "2000" {
		t.Errorf("leg2 source = %q, want 2000", got)
	}
	if got := r0.Values[2].Text; got != "BANK A" {
		t.Errorf("letter source = %q, want BANK A", got)
	}
	comp := r0.Values[3]
	if !comp.Computed || comp.Number == nil || math.Abs(*comp.Number-0.15) > 1e-9 {
		t.Errorf("computed = %+v, want 0.15", comp)
	}

	// Second row divides by a zero notional: null, not an error.
	if results[1].Values[3].Number != nil {
		t.Errorf("division by zero produced %v, want null", *results[1].Values[3].Number)
	}
}

func TestEvaluateDegradesToNull(t *testing.T) {
	spec, err := Parse([]byte(`
variables:
  v:
    source: "No Such Column"
columns:
  - target: "A"
    source_letter: "ZZ"
  - target: "B"
    source: "Also Missing"
  - target: "C"
    source_leg: {base: "Phantom", leg: leg2}
computed:
  - target: "D"
    expr: "v * 2"
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	// No letter map at all for the row's file.
	ev := NewEvaluator(spec, evalTable(), nil, nil)
	results := ev.EvaluateAll()

	r := results[0]
	for i := 0; i < 3; i++ {
		if r.Values[i].Text != "" {
			t.Errorf("Values[%d].Text = %q, want empty", i, r.Values[i].Text)
		}
	}
	if r.Values[3].Number != nil {
		t.Errorf("computed over null variable = %v, want null", *r.Values[3].Number)
	}
}

func TestEvaluateLegFallsBackToBareBase(t *testing.T) {
	spec, err := Parse([]byte(`
variables: {}
columns:
  - target: "A"
    source_leg: {base: "Dirty Value", leg: leg2}
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ev := NewEvaluator(spec, evalTable(), nil, nil)
	results := ev.EvaluateAll()
	// No "Dirty Value (Leg2)" exists; the sole bare column serves leg 1 by
	// convention, so leg 2 falls back to the bare base label.
	if got := results[0].Values[0].Text; got != "150" {
		t.Errorf("leg fallback = %q, want 150", got)
	}
}
