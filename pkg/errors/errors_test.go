package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRunError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "workbook error",
			category:   CategoryWorkbook,
			code:       CodeSheetMissing,
			message:    "sheet missing",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "mapping error",
			category:   CategoryMapping,
			code:       CodeBadExpression,
			message:    "bad expression",
			cause:      errors.New("unexpected token"),
			expectCode: 4,
		},
		{
			name:       "reconciliation error",
			category:   CategoryReconciliation,
			code:       CodeAggregationFailed,
			message:    "aggregation failed",
			cause:      nil,
			expectCode: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *RunError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("expected message %s, got %s", tt.message, err.Message)
			}

			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}

			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}

			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
		})
	}
}

func TestRunErrorWithContext(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "test error").
		WithContext("file", "/path/to/file").
		WithContext("row", 42).
		WithSuggestion("check file path")

	if err.Context["file"] != "/path/to/file" {
		t.Errorf("expected file context '/path/to/file', got %v", err.Context["file"])
	}
	if err.Context["row"] != 42 {
		t.Errorf("expected row context 42, got %v", err.Context["row"])
	}

	if err.Suggestion != "check file path" {
		t.Errorf("expected suggestion 'check file path', got %s", err.Suggestion)
	}

	if !strings.Contains(err.Error(), "check file path") {
		t.Errorf("error string should carry the suggestion: %s", err.Error())
	}
}

func TestWorkbookError(t *testing.T) {
	err := WorkbookError(CodeMissingColumn, "report.xlsm", "Code DI",
		[]string{"Counterparty", "Notional"})

	if err.Category != CategoryWorkbook {
		t.Errorf("category = %s, want workbook", err.Category)
	}
	if !strings.Contains(err.Message, "Code DI") || !strings.Contains(err.Message, "report.xlsm") {
		t.Errorf("message should name the column and file: %s", err.Message)
	}
	if !strings.Contains(err.Message, "Counterparty") {
		t.Errorf("message should list the columns found: %s", err.Message)
	}
}

func TestGetCodeThroughWrapping(t *testing.T) {
	inner := FileError(CodeFileNotFound, "/tmp/x.xlsx", errors.New("no such file"))
	outer := fmt.Errorf("loading extract: %w", inner)

	code, ok := GetCode(outer)
	if !ok || code != CodeFileNotFound {
		t.Errorf("GetCode through a wrap = (%v, %v), want (file_not_found, true)", code, ok)
	}

	if _, ok := GetCode(errors.New("plain")); ok {
		t.Error("GetCode should not match plain errors")
	}
}

func TestAsRunError(t *testing.T) {
	inner := New(CategoryMapping, CodeInvalidMapping, "bad mapping")
	outer := fmt.Errorf("context: %w", inner)

	got, ok := AsRunError(outer)
	if !ok || got != inner {
		t.Errorf("AsRunError = (%v, %v), want the inner error", got, ok)
	}

	if _, ok := AsRunError(errors.New("plain")); ok {
		t.Error("AsRunError should not match plain errors")
	}
}

func TestIsCategory(t *testing.T) {
	err := New(CategoryValidation, CodeInvalidDate, "bad date")

	if !IsCategory(err, CategoryValidation) {
		t.Error("expected validation category match")
	}
	if IsCategory(err, CategoryFile) {
		t.Error("unexpected file category match")
	}
}

func TestErrorSummary(t *testing.T) {
	s := NewErrorSummary(2)
	for i := 0; i < 5; i++ {
		s.Add(New(CategoryValidation, CodeInvalidAmount, fmt.Sprintf("row %d", i)))
	}

	if !s.HasErrors() {
		t.Error("summary should report errors")
	}
	out := s.String()
	if !strings.Contains(out, "5") {
		t.Errorf("summary should carry the total count: %s", out)
	}
}
