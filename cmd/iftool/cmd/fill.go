package cmd

import (
	"fmt"
	"os"
	"time"

	"ift-reporting-service/cmd/iftool/config"
	"ift-reporting-service/internal/mapping"
	"ift-reporting-service/internal/template"
	"ift-reporting-service/internal/workdir"
	"ift-reporting-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the fill command
var (
	fillSourceDir    string
	fillSourceFiles  []string
	fillMappingFile  string
	fillTemplateFile string
	fillOutputFile   string
	fillReportDate   string
	fillOutputFormat string
	fillSummaryFile  string
)

// fillCmd represents the fill command
var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill the report template from the trade extracts",
	Long: `Fill runs the whole production pipeline: the extracts are filtered
down to the reporting perimeter, the mapping document drives the evaluation
of direct and computed columns, and the results are written into a copy of
the report template.

The mapping document is a YAML file declaring variables (by column letter,
name or leg), direct column copies and computed expressions.

Examples:
  # Standard production run
  iftool fill --source-dir ./extracts --mapping mapping.yaml \
    --template "IFT - template.xlsm" --output "IFT - 31-08-2026.xlsm"

  # Stamp the report date and capture the run summary as JSON
  iftool fill --source-dir ./extracts --mapping mapping.yaml \
    --template report.xlsm --output filled.xlsm \
    --report-date 2026-08-31 --output-format json --summary-file run.json`,

	PreRunE: validateFillFlags,
	RunE:    runFill,
}

func init() {
	rootCmd.AddCommand(fillCmd)

	fillCmd.Flags().StringVarP(&fillSourceDir, "source-dir", "s", ".", "directory scanned for source extracts")
	fillCmd.Flags().StringSliceVar(&fillSourceFiles, "files", []string{}, "comma-separated extract paths (overrides --source-dir)")
	fillCmd.Flags().StringVarP(&fillMappingFile, "mapping", "m", "", "mapping YAML file (required)")
	fillCmd.Flags().StringVarP(&fillTemplateFile, "template", "t", "", "report template workbook (required)")
	fillCmd.Flags().StringVarP(&fillOutputFile, "output", "o", "", "destination workbook path (required)")
	fillCmd.Flags().StringVar(&fillReportDate, "report-date", "", "report date stamped on the sheet (YYYY-MM-DD)")
	fillCmd.Flags().StringVarP(&fillOutputFormat, "output-format", "f", "console", "summary format: console, json, csv")
	fillCmd.Flags().StringVar(&fillSummaryFile, "summary-file", "", "summary file path (default: stdout)")

	fillCmd.MarkFlagRequired("mapping")
	fillCmd.MarkFlagRequired("template")
	fillCmd.MarkFlagRequired("output")

	viper.BindPFlag("fill.source-dir", fillCmd.Flags().Lookup("source-dir"))
	viper.BindPFlag("fill.mapping", fillCmd.Flags().Lookup("mapping"))
	viper.BindPFlag("fill.template", fillCmd.Flags().Lookup("template"))
}

func validateFillFlags(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(fillOutputFormat); err != nil {
		return err
	}
	if err := validateFileExists(fillMappingFile, "mapping file"); err != nil {
		return err
	}
	if err := validateFileExists(fillTemplateFile, "template workbook"); err != nil {
		return err
	}
	for i, path := range fillSourceFiles {
		if err := validateFileExists(path, fmt.Sprintf("source extract %d", i+1)); err != nil {
			return err
		}
	}
	if fillReportDate != "" {
		if _, err := time.Parse("2006-01-02", fillReportDate); err != nil {
			return fmt.Errorf("invalid report date format. Use YYYY-MM-DD: %w", err)
		}
	}
	if fillOutputFile == "" {
		return fmt.Errorf("output is required")
	}
	return nil
}

func runFill(cmd *cobra.Command, args []string) error {
	startedAt := time.Now()
	log := logger.GetGlobalLogger().WithComponent("fill")

	table, letters, filterReport, err := runPerimeter(fillSourceDir, fillSourceFiles)
	if err != nil {
		return err
	}

	spec, err := mapping.Load(fillMappingFile)
	if err != nil {
		return err
	}
	sheet := spec.Sheet
	if sheet == "" {
		sheet = config.ReportSheet
	}

	evaluator := mapping.NewEvaluator(spec, table, letters, log)
	results := evaluator.EvaluateAll()

	writer, err := template.Open(fillTemplateFile, sheet, spec.HeaderRow, log)
	if err != nil {
		return err
	}
	defer writer.Close()

	if fillReportDate != "" {
		day, _ := time.Parse("2006-01-02", fillReportDate)
		if err := writer.SetReportDate(day); err != nil {
			return err
		}
	}

	summary, err := writer.WriteRows(results)
	if err != nil {
		return err
	}

	destination := workdir.NonCollidingPath(fillOutputFile)
	if err := writer.SaveAs(destination); err != nil {
		return err
	}
	log.WithFields(logger.Fields{
		"destination": destination,
		"rows":        summary.RowsWritten,
	}).Info("Report written")

	if verboseEnabled() {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", destination)
	}

	rg, err := newRunReporter("fill", fillOutputFormat, false, startedAt)
	if err != nil {
		return err
	}

	out, done, err := openOutput(fillSummaryFile)
	if err != nil {
		return err
	}
	defer done()

	if err := rg.RenderPerimeter(filterReport, out); err != nil {
		return err
	}
	if fillOutputFormat == "console" {
		fmt.Fprintln(out)
	}
	return rg.RenderFill(summary, out)
}
