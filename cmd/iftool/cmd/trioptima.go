package cmd

import (
	"fmt"
	"os"
	"time"

	"ift-reporting-service/cmd/iftool/config"
	"ift-reporting-service/internal/template"
	"ift-reporting-service/internal/trioptima"
	"ift-reporting-service/internal/workdir"
	"ift-reporting-service/pkg/logger"

	"github.com/spf13/cobra"
)

// Flags for the trioptima command
var (
	trioReportFile   string
	trioCSVFile      string
	trioCSVDir       string
	trioOrg          string
	trioDateStr      string
	trioBndFwd       bool
	trioOutputFile   string
	trioOutputFormat string
	trioSummaryFile  string
	trioShowPreview  bool
)

// trioptimaCmd represents the trioptima command
var trioptimaCmd = &cobra.Command{
	Use:   "trioptima",
	Short: "Apply the counterparty MTM extract to a filled report",
	Long: `Trioptima loads the counterparty mark-to-market extract (semicolon
CSV), aggregates the MTM per trade code and injects it into the filled
report with the derived comparison columns.

With --bnd-fwd the bond-forward rows of the extract are additionally
written to the dedicated sheet, with a price alert when the internal and
counterparty ratios diverge beyond the threshold.

Examples:
  iftool trioptima --report filled.xlsm --csv search_acme_2026-08-31.csv
  iftool trioptima --report filled.xlsm --csv-dir ./extracts --org acme --bnd-fwd`,

	PreRunE: validateTrioptimaFlags,
	RunE:    runTrioptima,
}

func init() {
	rootCmd.AddCommand(trioptimaCmd)

	trioptimaCmd.Flags().StringVarP(&trioReportFile, "report", "r", "", "filled report workbook (required)")
	trioptimaCmd.Flags().StringVar(&trioCSVFile, "csv", "", "counterparty MTM extract (semicolon CSV)")
	trioptimaCmd.Flags().StringVar(&trioCSVDir, "csv-dir", "", "directory searched for the dated extract")
	trioptimaCmd.Flags().StringVar(&trioOrg, "org", "", "organisation tag in the extract file name")
	trioptimaCmd.Flags().StringVar(&trioDateStr, "date", "", "extract date for directory lookup (YYYY-MM-DD, default today)")
	trioptimaCmd.Flags().BoolVar(&trioBndFwd, "bnd-fwd", false, "also rewrite the bond-forward sheet")
	trioptimaCmd.Flags().StringVarP(&trioOutputFile, "output", "o", "", "destination workbook (default: update the report in place)")
	trioptimaCmd.Flags().StringVarP(&trioOutputFormat, "output-format", "f", "console", "summary format: console, json, csv")
	trioptimaCmd.Flags().StringVar(&trioSummaryFile, "summary-file", "", "summary file path (default: stdout)")
	trioptimaCmd.Flags().BoolVar(&trioShowPreview, "preview", false, "include per-code values in the summary")

	trioptimaCmd.MarkFlagRequired("report")
}

func validateTrioptimaFlags(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(trioOutputFormat); err != nil {
		return err
	}
	if err := validateFileExists(trioReportFile, "report workbook"); err != nil {
		return err
	}
	if trioCSVFile == "" && trioCSVDir == "" {
		return fmt.Errorf("either --csv or --csv-dir is required")
	}
	if trioCSVFile != "" {
		if err := validateFileExists(trioCSVFile, "MTM extract"); err != nil {
			return err
		}
	}
	if trioCSVDir != "" && trioOrg == "" {
		return fmt.Errorf("--org is required with --csv-dir")
	}
	if trioDateStr != "" {
		if _, err := time.Parse("2006-01-02", trioDateStr); err != nil {
			return fmt.Errorf("invalid date format. Use YYYY-MM-DD: %w", err)
		}
	}
	return nil
}

func runTrioptima(cmd *cobra.Command, args []string) error {
	startedAt := time.Now()
	log := logger.GetGlobalLogger().WithComponent("trioptima")

	csvPath := trioCSVFile
	if csvPath == "" {
		day := time.Now()
		if trioDateStr != "" {
			day, _ = time.Parse("2006-01-02", trioDateStr)
		}
		var err error
		csvPath, err = workdir.TriOptimaFile(trioCSVDir, trioOrg, day)
		if err != nil {
			return err
		}
	}

	records, err := trioptima.LoadCSV(csvPath, log)
	if err != nil {
		return err
	}
	mtm := trioptima.MtmMapping(trioptima.AggregateByCode(records))

	writer, err := template.Open(trioReportFile, config.ReportSheet, config.ReportHeaderRow, log)
	if err != nil {
		return err
	}
	defer writer.Close()

	report, err := trioptima.Apply(writer, mtm, log)
	if err != nil {
		return err
	}

	var bndReport *trioptima.BndFwdReport
	if trioBndFwd {
		bndReport, err = trioptima.ApplyBndFwd(writer.File(), trioptima.FilterBndFwd(records), log)
		if err != nil {
			return err
		}
	}

	if trioOutputFile != "" {
		if err := writer.SaveAs(workdir.NonCollidingPath(trioOutputFile)); err != nil {
			return err
		}
	} else if err := writer.Save(); err != nil {
		return err
	}

	if verboseEnabled() {
		fmt.Fprintf(os.Stderr, "Applied %s: %d rows updated\n", csvPath, report.Updated)
	}

	rg, err := newRunReporter("trioptima", trioOutputFormat, trioShowPreview, startedAt)
	if err != nil {
		return err
	}

	out, done, err := openOutput(trioSummaryFile)
	if err != nil {
		return err
	}
	defer done()

	return rg.RenderTriOptima(report, bndReport, out)
}
