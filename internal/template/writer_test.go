package template

import (
	"fmt"
	"math"
	"strconv"
	"testing"

	"github.com/xuri/excelize/v2"

	"ift-reporting-service/internal/grid"
	"ift-reporting-service/internal/mapping"
	"ift-reporting-service/internal/perimeter"
	apperrors "ift-reporting-service/pkg/errors"
)

func newDestination(t *testing.T, sheet string, headerRow int, header []string) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("SetSheetName: %v", err)
		}
	}
	for j, label := range header {
		cell, _ := excelize.CoordinatesToCellName(j+1, headerRow)
		if err := f.SetCellValue(sheet, cell, label); err != nil {
			t.Fatalf("SetCellValue: %v", err)
		}
	}
	return f
}

func rawCell(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetCellValue(%s): %v", cell, err)
	}
	return v
}

func TestNewWriterMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := NewWriter(f, "No Such Sheet", 1, nil)
	if err == nil {
		t.Fatal("expected an error for a missing sheet")
	}
	if code, ok := apperrors.GetCode(err); !ok || code != apperrors.CodeSheetMissing {
		t.Errorf("error code = %v, want %v", code, apperrors.CodeSheetMissing)
	}
}

func TestWriteRows(t *testing.T) {
	const sheet = "Report"
	f := newDestination(t, sheet, 2, []string{"Code DI", "Counterparty", "Notional", "Dirty Value (%)", "Price", "Price"})
	defer f.Close()

	w, err := NewWriter(f, sheet, 2, nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	ratio := 0.1525
	results := []mapping.RowResult{
		{Values: []mapping.CellValue{
			{Target: mapping.Target{Label: "Code DI", Occurrence: 1}, Text: "AB12"},
			{Target: mapping.Target{Label: "Counterparty", Occurrence: 1}, Text: "BANK A"},
			{Target: mapping.Target{Label: "Notional", Occurrence: 1}, Text: "1 000,50"},
			{Target: mapping.Target{Label: "Dirty Value (%)", Occurrence: 1}, Number: &ratio, Computed: true},
			{Target: mapping.Target{Label: "Price", Occurrence: 2}, Text: "7"},
			{Target: mapping.Target{Label: "Price", Occurrence: 3}, Text: "ignored"},
		}},
		{Values: []mapping.CellValue{
			{Target: mapping.Target{Label: "Code DI", Occurrence: 1}, Text: "CD34"},
			{Target: mapping.Target{Label: "Notional", Occurrence: 1}, Text: "garbage"},
			{Target: mapping.Target{Label: "Dirty Value (%)", Occurrence: 1}, Number: nil, Computed: true},
		}},
	}
	summary, err := w.WriteRows(results)
	if err != nil {
		t.Fatalf("WriteRows: %v", err)
	}

	// First data row lands immediately below the header.
	if got := rawCell(t, f, sheet, "A3"); got != "AB12" {
		t.Errorf("A3 = %q", got)
	}
	if got := rawCell(t, f, sheet, "B3"); got != "BANK A" {
		t.Errorf("B3 = %q", got)
	}
	if got, _ := strconv.ParseFloat(rawCell(t, f, sheet, "C3"), 64); math.Abs(got-1000.5) > 1e-9 {
		t.Errorf("C3 = %v, want 1000.5", got)
	}
	if got, _ := strconv.ParseFloat(rawCell(t, f, sheet, "D3"), 64); math.Abs(got-0.1525) > 1e-9 {
		t.Errorf("D3 = %v, want 0.1525", got)
	}
	// Occurrence 2 of Price is the 6th physical column.
	if got := rawCell(t, f, sheet, "F3"); got != "7" {
		t.Errorf("F3 = %q, want 7", got)
	}
	if got := rawCell(t, f, sheet, "A4"); got != "CD34" {
		t.Errorf("A4 = %q", got)
	}
	// Unparsable numeric and null computed degrade to empty cells.
	if got := rawCell(t, f, sheet, "C4"); got != "" {
		t.Errorf("C4 = %q, want empty", got)
	}
	if got := rawCell(t, f, sheet, "D4"); got != "" {
		t.Errorf("D4 = %q, want empty", got)
	}

	if summary.RowsWritten != 2 {
		t.Errorf("RowsWritten = %d", summary.RowsWritten)
	}
	// Occurrence 3 of Price does not exist: skipped, not fatal.
	if summary.SkippedTargets["Price"] != 1 {
		t.Errorf("SkippedTargets = %v", summary.SkippedTargets)
	}
	if summary.NullCells != 2 {
		t.Errorf("NullCells = %d, want 2", summary.NullCells)
	}
}

func TestWriteRowsByLetter(t *testing.T) {
	const sheet = "Report"
	f := newDestination(t, sheet, 1, []string{"Code"})
	defer f.Close()
	w, err := NewWriter(f, sheet, 1, nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	val := 42.0
	_, err = w.WriteRows([]mapping.RowResult{
		{Values: []mapping.CellValue{
			{Target: mapping.Target{Letter: "C"}, Number: &val, Computed: true},
		}},
	})
	if err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	if got := rawCell(t, f, sheet, "C2"); got != "42" {
		t.Errorf("C2 = %q, want 42", got)
	}
}

// End-to-end over in-memory tables: filter, evaluate, write, re-read.
func TestFillRoundTrip(t *testing.T) {
	const rows = 20
	src := &grid.Table{
		File:    "extract.xlsx",
		Columns: []string{"Custom Attribute5 Value", "Counterparty", "Currency", "Notional", "Dirty Value"},
	}
	for i := 0; i < rows; i++ {
		notional := fmt.Sprintf("%d", (i%5)*1000) // zero every 5th row
		src.Rows = append(src.Rows, grid.Row{File: src.File, Values: map[string]string{
			"Custom Attribute5 Value": fmt.Sprintf("DI%03d", i),
			"Counterparty":            fmt.Sprintf("BANK %d", i),
			"Currency":                "EUR",
			"Notional":                notional,
			"Dirty Value":             fmt.Sprintf("%d.5", i+1),
		}})
	}

	per, _, err := perimeter.Filter([]*grid.Table{src}, nil)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(per.Rows) != rows {
		t.Fatalf("perimeter rows = %d, want %d", len(per.Rows), rows)
	}

	spec, err := mapping.Parse([]byte(`
variables:
  x:
    source: "Dirty Value"
  y:
    source: "Notional"
columns:
  - target: "Code DI"
    source: "Code DI"
  - target: "Counterparty"
    source: "Counterparty"
  - target: "Currency"
    source: "Currency"
computed:
  - target: "Dirty Value (%)"
    expr: "x / y"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	const sheet = "Report"
	const headerRow = 2
	f := newDestination(t, sheet, headerRow, []string{"Code DI", "Counterparty", "Currency", "Dirty Value (%)"})
	defer f.Close()
	w, err := NewWriter(f, sheet, headerRow, nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	results := mapping.NewEvaluator(spec, per, nil, nil).EvaluateAll()
	if _, err := w.WriteRows(results); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}

	for i := 0; i < rows; i++ {
		rowNum := headerRow + 1 + i
		if got := rawCell(t, f, sheet, fmt.Sprintf("A%d", rowNum)); got != fmt.Sprintf("DI%03d", i) {
			t.Fatalf("row %d code = %q", i, got)
		}
		ratioCell := rawCell(t, f, sheet, fmt.Sprintf("D%d", rowNum))
		if i%5 == 0 {
			if ratioCell != "" {
				t.Errorf("row %d: division by zero notional wrote %q", i, ratioCell)
			}
			continue
		}
		want := (float64(i) + 1.5) / float64((i%5)*1000)
		got, err := strconv.ParseFloat(ratioCell, 64)
		if err != nil || math.Abs(got-want) > 1e-9 {
			t.Errorf("row %d ratio = %q, want %v", i, ratioCell, want)
		}
	}
}
