package trioptima

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	apperrors "ift-reporting-service/pkg/errors"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "search_myorg_2026-08-31.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, ""+
		"FREE_TEXT_2;FREE_TEXT_1;BOOK;CP;NOTIONAL;MTM_VALUE;MTM_DIFF\n"+
		"DI001/extra;BDFWD alpha;601.0;BANK A;1000;150;30\n"+
		" DI002 ;swap;  7 ;BANK B;;75;\n"+
		";;;;;;\n")
	records, err := LoadCSV(path, nil)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	r0 := records[0]
	if r0.CodeDI != "DI001" {
		t.Errorf("CodeDI = %q, want DI001 (text before the slash)", r0.CodeDI)
	}
	if r0.Book != "601" {
		t.Errorf("Book = %q, want 601 (numeric text normalized)", r0.Book)
	}
	if r0.MtmCounterparty == nil || math.Abs(*r0.MtmCounterparty-120) > 1e-9 {
		t.Errorf("MtmCounterparty = %v, want 120", r0.MtmCounterparty)
	}

	r1 := records[1]
	if r1.CodeDI != "DI002" || r1.Book != "7" {
		t.Errorf("record 1 = %+v", r1)
	}
	// diff unreadable: the counterparty MTM stays nil
	if r1.MtmCounterparty != nil {
		t.Errorf("MtmCounterparty = %v, want nil", *r1.MtmCounterparty)
	}
	if records[2].CodeDI != "" {
		t.Errorf("blank row code = %q", records[2].CodeDI)
	}
}

func TestLoadCSVMissingColumns(t *testing.T) {
	path := writeCSV(t, "FREE_TEXT_2;MTM_VALUE\nDI001;10\n")
	_, err := LoadCSV(path, nil)
	if err == nil {
		t.Fatal("expected a missing-column error")
	}
	if code, ok := apperrors.GetCode(err); !ok || code != apperrors.CodeMissingColumn {
		t.Errorf("error code = %v, want %v", code, apperrors.CodeMissingColumn)
	}
}

func TestAggregateByCode(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	records := []Record{
		{CodeDI: "B", MtmValue: f(10), MtmDiff: f(2), MtmCounterparty: f(8)},
		{CodeDI: "A", MtmValue: f(5), MtmDiff: f(1), MtmCounterparty: f(4)},
		{CodeDI: "B", MtmValue: f(20), MtmDiff: nil, MtmCounterparty: nil},
		{CodeDI: "", MtmValue: f(999)},
	}
	totals := AggregateByCode(records)
	if len(totals) != 2 {
		t.Fatalf("got %d totals, want 2", len(totals))
	}
	// sorted by code
	if totals[0].Code != "A" || totals[1].Code != "B" {
		t.Errorf("order = %q, %q", totals[0].Code, totals[1].Code)
	}
	if math.Abs(totals[1].MtmValue-30) > 1e-9 || math.Abs(totals[1].MtmCounterparty-8) > 1e-9 {
		t.Errorf("B totals = %+v", totals[1])
	}

	mapping := MtmMapping(totals)
	if math.Abs(mapping["A"]-4) > 1e-9 || math.Abs(mapping["B"]-8) > 1e-9 {
		t.Errorf("mapping = %v", mapping)
	}
}

func TestFilterBndFwd(t *testing.T) {
	records := []Record{
		{FreeText1: "BDFWD alpha", Book: "601"},
		{FreeText1: "bdfwd beta", Book: "603"},
		{FreeText1: "BDFWD gamma", Book: "700"}, // wrong book
		{FreeText1: "IRS delta", Book: "601"},   // wrong prefix
	}
	got := FilterBndFwd(records)
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(got), got)
	}
	if got[0].FreeText1 != "BDFWD alpha" || got[1].FreeText1 != "bdfwd beta" {
		t.Errorf("rows = %+v", got)
	}
}

func TestNormalizeBook(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"601", "601"},
		{"601.0", "601"},
		{" 601 ", "601"},
		{"601.5", "601.5"},
		{"EQ-BOOK", "EQ-BOOK"},
		{"nan", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeBook(tt.in); got != tt.want {
			t.Errorf("normalizeBook(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
