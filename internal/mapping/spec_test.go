package mapping

import (
	"strings"
	"testing"

	apperrors "ift-reporting-service/pkg/errors"
)

const validDoc = `
sheet: "IRS - INF - XCCY"
header_row: 6
variables:
  dirty:
    source_leg: {base: "Dirty Value", leg: total}
  notional:
    source_leg: {base: "Notional", leg: leg1}
  spread:
    source: "Spread (bp)"
columns:
  - target: "Counterparty"
    source: "Counterparty"
  - target: "Notional"
    target_occurrence: 2
    source_leg: {base: "Notional", leg: leg2}
  - target_letter: "AN"
    source_leg: {base: "Dirty Value", leg: total}
computed:
  - target: "Dirty Value (%)"
    expr: "dirty / notional"
`

func TestParseValidDocument(t *testing.T) {
	spec, err := Parse([]byte(validDoc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if spec.Sheet != "IRS - INF - XCCY" || spec.HeaderRow != 6 {
		t.Errorf("sheet/header_row = %q/%d", spec.Sheet, spec.HeaderRow)
	}
	if len(spec.Variables) != 3 || len(spec.Columns) != 3 || len(spec.Computed) != 1 {
		t.Fatalf("unexpected shape: %+v", spec)
	}
	// Occurrence defaults to 1 for labeled targets.
	if spec.Columns[0].Occurrence != 1 {
		t.Errorf("default occurrence = %d, want 1", spec.Columns[0].Occurrence)
	}
	if spec.Columns[1].Occurrence != 2 {
		t.Errorf("explicit occurrence = %d, want 2", spec.Columns[1].Occurrence)
	}
	if spec.Computed[0].parsed == nil {
		t.Error("computed expression not parsed during validation")
	}
}

func TestParseDefaultsHeaderRow(t *testing.T) {
	spec, err := Parse([]byte("sheet: S\ncolumns:\n  - target: A\n    source: A\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if spec.HeaderRow != DefaultHeaderRow {
		t.Errorf("HeaderRow = %d, want %d", spec.HeaderRow, DefaultHeaderRow)
	}
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code apperrors.ErrorCode
	}{
		{
			name: "not yaml",
			doc:  "{{{",
			code: apperrors.CodeInvalidMapping,
		},
		{
			name: "column without source",
			doc:  "columns:\n  - target: A\n",
			code: apperrors.CodeInvalidMapping,
		},
		{
			name: "column with two sources",
			doc:  "columns:\n  - target: A\n    source: X\n    source_letter: B\n",
			code: apperrors.CodeInvalidMapping,
		},
		{
			name: "column without target",
			doc:  "columns:\n  - source: X\n",
			code: apperrors.CodeInvalidMapping,
		},
		{
			name: "target and letter together",
			doc:  "columns:\n  - target: A\n    target_letter: B\n    source: X\n",
			code: apperrors.CodeInvalidMapping,
		},
		{
			name: "occurrence on letter target",
			doc:  "columns:\n  - target_letter: B\n    target_occurrence: 2\n    source: X\n",
			code: apperrors.CodeInvalidMapping,
		},
		{
			name: "bad leg name",
			doc:  "variables:\n  v:\n    source_leg: {base: B, leg: leg9}\n",
			code: apperrors.CodeInvalidMapping,
		},
		{
			name: "bad expression syntax",
			doc:  "computed:\n  - target: A\n    expr: \"x +\"\n",
			code: apperrors.CodeBadExpression,
		},
		{
			name: "undeclared variable",
			doc:  "computed:\n  - target: A\n    expr: \"x / y\"\n",
			code: apperrors.CodeUnknownVariable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse accepted a malformed document")
			}
			if code, ok := apperrors.GetCode(err); !ok || code != tt.code {
				t.Errorf("error code = %v, want %v (err: %v)", code, tt.code, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/mapping.yaml")
	if err == nil {
		t.Fatal("Load accepted a missing file")
	}
	if code, ok := apperrors.GetCode(err); !ok || code != apperrors.CodeFileNotFound {
		t.Errorf("error code = %v, want %v", code, apperrors.CodeFileNotFound)
	}
}

func TestValidateReportsLocation(t *testing.T) {
	_, err := Parse([]byte("columns:\n  - target: A\n    source: X\n  - target: B\n"))
	if err == nil {
		t.Fatal("Parse accepted a malformed document")
	}
	if !strings.Contains(err.Error(), "columns[1]") {
		t.Errorf("error does not name the offending element: %v", err)
	}
}
