package cmd

import (
	"fmt"
	"os"
	"strings"

	"ift-reporting-service/pkg/errors"
	"ift-reporting-service/pkg/logger"

	"github.com/spf13/viper"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError handles errors and provides user-friendly messages
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if runErr, ok := errors.AsRunError(err); ok {
		return h.handleRunError(runErr)
	}

	return h.handleGenericError(err)
}

// handleRunError handles RunError with detailed context
func (h *CLIErrorHandler) handleRunError(err *errors.RunError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles non-RunError types
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	if !h.verbose {
		fmt.Fprintf(os.Stderr, "\nFor more details, run with --verbose flag\n")
	}

	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Ensure you have proper permissions to access the file`

	case errors.CategoryWorkbook:
		return `Workbook error help:
• Open the workbook and verify the expected sheets exist
• Check that the header row carries the expected column labels
• Some extracts shift the header row; try a fresh export
• Legacy .xls files must not be re-saved as renamed .xlsx`

	case errors.CategoryMapping:
		return `Mapping error help:
• Check the mapping YAML syntax and indentation
• Every column needs exactly one of target_label or target_letter
• Computed expressions may only reference declared variables
• Use 'iftool fill --help' for a mapping example`

	case errors.CategoryValidation:
		return `Validation error help:
• Check that all required fields have values
• Verify dates use DD/MM/YYYY or are Excel serial numbers
• Ensure amounts are plain numbers, decimal comma accepted`

	case errors.CategoryReconciliation:
		return `Reconciliation error help:
• Check that the report was filled before applying deliveries
• Verify the delivery file covers the report's trade codes
• Check counterparty labels against the alias file`

	default:
		return `For more help:
• Use 'iftool --help' for general help
• Use 'iftool <command> --help' for command-specific help`
	}
}

// Error detection helpers

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}
