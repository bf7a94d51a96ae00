package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryWorkbook       ErrorCategory = "workbook"
	CategoryMapping        ErrorCategory = "mapping"
	CategoryValidation     ErrorCategory = "validation"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"
	CodeDirectoryError ErrorCode = "directory_error"

	// Workbook errors
	CodeSheetMissing   ErrorCode = "sheet_missing"
	CodeHeaderNotFound ErrorCode = "header_not_found"
	CodeMissingColumn  ErrorCode = "missing_column"
	CodeInvalidCell    ErrorCode = "invalid_cell"

	// Mapping configuration errors
	CodeInvalidMapping  ErrorCode = "invalid_mapping"
	CodeUnknownVariable ErrorCode = "unknown_variable"
	CodeBadExpression   ErrorCode = "bad_expression"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"
	CodeOutOfRange    ErrorCode = "out_of_range"

	// Reconciliation errors
	CodeAggregationFailed ErrorCode = "aggregation_failed"
	CodeDataInconsistent  ErrorCode = "data_inconsistent"
	CodeProcessingError   ErrorCode = "processing_error"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// RunError is the base error type for all application errors
type RunError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *RunError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *RunError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *RunError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryWorkbook, CategoryValidation:
		return 3
	case CategoryMapping:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *RunError) WithContext(key string, value interface{}) *RunError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *RunError) WithSuggestion(suggestion string) *RunError {
	e.Suggestion = suggestion
	return e
}

// New creates a new RunError
func New(category ErrorCategory, code ErrorCode, message string) *RunError {
	return &RunError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with RunError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *RunError {
	if err == nil {
		return nil
	}

	return &RunError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *RunError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "verify the file integrity and try using a backup copy"
	case CodeDirectoryError:
		message = fmt.Sprintf("directory error: %s", path)
		suggestion = "ensure the directory exists and is accessible"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *RunError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// WorkbookError creates a spreadsheet-structure error. The searched and found
// arguments identify what was looked for and a short excerpt of what the file
// actually contained, so an operator can diagnose layout problems.
func WorkbookError(code ErrorCode, file, searched string, found []string) *RunError {
	var message string
	var suggestion string

	excerpt := strings.Join(found, ", ")
	if len(excerpt) > 120 {
		excerpt = excerpt[:120] + "…"
	}

	switch code {
	case CodeSheetMissing:
		message = fmt.Sprintf("sheet '%s' not found in %s (sheets: %s)", searched, file, excerpt)
		suggestion = "check the sheet name in the mapping configuration"
	case CodeHeaderNotFound:
		message = fmt.Sprintf("no header row found in %s (first cells: %s)", file, excerpt)
		suggestion = "verify the file layout has a header within the first rows"
	case CodeMissingColumn:
		message = fmt.Sprintf("column '%s' not found in %s (columns: %s)", searched, file, excerpt)
		suggestion = "verify the source files contain the expected column headers"
	case CodeInvalidCell:
		message = fmt.Sprintf("invalid cell value for '%s' in %s: %s", searched, file, excerpt)
		suggestion = "correct the cell value or remove the invalid entry"
	default:
		message = fmt.Sprintf("workbook error in %s", file)
		suggestion = "check the workbook structure"
	}

	result := New(CategoryWorkbook, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("searched", searched).
		WithContext("found", found)
}

// MappingError creates a mapping-configuration error
func MappingError(code ErrorCode, element string, detail string, err error) *RunError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidMapping:
		message = fmt.Sprintf("invalid mapping configuration for '%s': %s", element, detail)
		suggestion = "check the mapping document against the expected schema"
	case CodeUnknownVariable:
		message = fmt.Sprintf("expression '%s' references unknown variable: %s", element, detail)
		suggestion = "declare the variable in the variables table or fix the expression"
	case CodeBadExpression:
		message = fmt.Sprintf("cannot parse expression '%s': %s", element, detail)
		suggestion = "expressions allow identifiers, numbers, + - * / and parentheses only"
	default:
		message = fmt.Sprintf("mapping error for '%s': %s", element, detail)
		suggestion = "check the mapping configuration"
	}

	var result *RunError
	if err != nil {
		result = Wrap(err, CategoryMapping, code, message)
	} else {
		result = New(CategoryMapping, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("element", element).
		WithContext("detail", detail)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *RunError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "ensure amounts are valid numbers (e.g., '12.34' or '12,34')"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use a recognizable date or an Excel serial number"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeOutOfRange:
		message = fmt.Sprintf("value out of range in field '%s': %v", field, value)
		suggestion = "ensure the value is within the acceptable range"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	var result *RunError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ReconciliationError creates a reconciliation-related error
func ReconciliationError(code ErrorCode, operation string, err error) *RunError {
	var message string
	var suggestion string

	switch code {
	case CodeAggregationFailed:
		message = fmt.Sprintf("aggregation failed during %s", operation)
		suggestion = "check the input data quality and column layout"
	case CodeDataInconsistent:
		message = fmt.Sprintf("data inconsistency detected during %s", operation)
		suggestion = "verify data integrity and resolve inconsistencies"
	case CodeProcessingError:
		message = fmt.Sprintf("processing error during %s", operation)
		suggestion = "check the inputs and try again"
	default:
		message = fmt.Sprintf("reconciliation error during %s", operation)
		suggestion = "review the data and configuration"
	}

	var result *RunError
	if err != nil {
		result = Wrap(err, CategoryReconciliation, code, message)
	} else {
		result = New(CategoryReconciliation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *RunError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	suggestion := "this is likely a bug - please report it with the error details"

	var result *RunError
	if err != nil {
		result = Wrap(err, CategoryInternal, code, message)
	} else {
		result = New(CategoryInternal, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ErrorSummary accumulates row-level errors during a stage. Row problems never
// abort a run; they are counted here and reported in aggregate at stage end.
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Samples    []*RunError           `json:"samples,omitempty"`
	maxSamples int
}

// NewErrorSummary creates an empty summary keeping at most maxSamples examples
func NewErrorSummary(maxSamples int) *ErrorSummary {
	if maxSamples <= 0 {
		maxSamples = 10
	}
	return &ErrorSummary{
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		maxSamples: maxSamples,
	}
}

// Add records an error in the summary
func (s *ErrorSummary) Add(err *RunError) {
	if err == nil {
		return
	}
	s.Total++
	s.ByCategory[err.Category]++
	s.ByCode[err.Code]++
	if len(s.Samples) < s.maxSamples {
		s.Samples = append(s.Samples, err)
	}
}

// HasErrors reports whether any error was recorded
func (s *ErrorSummary) HasErrors() bool {
	return s.Total > 0
}

// String returns a one-line human-readable summary
func (s *ErrorSummary) String() string {
	if s.Total == 0 {
		return "no errors"
	}
	var parts []string
	for code, n := range s.ByCode {
		parts = append(parts, fmt.Sprintf("%s=%d", code, n))
	}
	return fmt.Sprintf("%d error(s): %s", s.Total, strings.Join(parts, ", "))
}

// AsRunError extracts a RunError from an error chain, if present
func AsRunError(err error) (*RunError, bool) {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr, true
	}
	return nil, false
}

// IsCategory checks whether err is a RunError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Category == category
	}
	return false
}

// GetCode extracts the error code from an error, if it is a RunError
func GetCode(err error) (ErrorCode, bool) {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Code, true
	}
	return "", false
}
