package cmd

import (
	"fmt"
	"os"
	"time"

	"ift-reporting-service/cmd/iftool/config"
	"ift-reporting-service/internal/sensis"
	"ift-reporting-service/internal/template"
	"ift-reporting-service/internal/workdir"
	"ift-reporting-service/pkg/logger"

	"github.com/spf13/cobra"
)

// Flags for the sensis command
var (
	sensisReportFile   string
	sensisDeliveryFile string
	sensisDeliveryDir  string
	sensisDateStr      string
	sensisOutputFile   string
	sensisOutputFormat string
	sensisSummaryFile  string
	sensisShowPreview  bool
)

// sensisCmd represents the sensis command
var sensisCmd = &cobra.Command{
	Use:   "sensis",
	Short: "Apply the pricing sensitivity delivery to a filled report",
	Long: `Sensis joins the daily sensitivity delivery onto the filled report by
trade code and writes prices, sensitivities, durations and the derived
comparison deltas.

The delivery file can be given explicitly or located in a directory by its
production date (Sensis IFTTool_DDMMYYYY).

Examples:
  iftool sensis --report filled.xlsm --sensis-file "Sensis IFTTool_31082026.xlsx"
  iftool sensis --report filled.xlsm --sensis-dir ./deliveries --date 2026-08-31 --preview`,

	PreRunE: validateSensisFlags,
	RunE:    runSensis,
}

func init() {
	rootCmd.AddCommand(sensisCmd)

	sensisCmd.Flags().StringVarP(&sensisReportFile, "report", "r", "", "filled report workbook (required)")
	sensisCmd.Flags().StringVar(&sensisDeliveryFile, "sensis-file", "", "sensitivity delivery workbook")
	sensisCmd.Flags().StringVar(&sensisDeliveryDir, "sensis-dir", "", "directory searched for the dated delivery")
	sensisCmd.Flags().StringVar(&sensisDateStr, "date", "", "production date for directory lookup (YYYY-MM-DD, default today)")
	sensisCmd.Flags().StringVarP(&sensisOutputFile, "output", "o", "", "destination workbook (default: update the report in place)")
	sensisCmd.Flags().StringVarP(&sensisOutputFormat, "output-format", "f", "console", "summary format: console, json, csv")
	sensisCmd.Flags().StringVar(&sensisSummaryFile, "summary-file", "", "summary file path (default: stdout)")
	sensisCmd.Flags().BoolVar(&sensisShowPreview, "preview", false, "include per-code values in the summary")

	sensisCmd.MarkFlagRequired("report")
}

func validateSensisFlags(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(sensisOutputFormat); err != nil {
		return err
	}
	if err := validateFileExists(sensisReportFile, "report workbook"); err != nil {
		return err
	}
	if sensisDeliveryFile == "" && sensisDeliveryDir == "" {
		return fmt.Errorf("either --sensis-file or --sensis-dir is required")
	}
	if sensisDeliveryFile != "" {
		if err := validateFileExists(sensisDeliveryFile, "sensitivity delivery"); err != nil {
			return err
		}
	}
	if sensisDateStr != "" {
		if _, err := time.Parse("2006-01-02", sensisDateStr); err != nil {
			return fmt.Errorf("invalid date format. Use YYYY-MM-DD: %w", err)
		}
	}
	return nil
}

func runSensis(cmd *cobra.Command, args []string) error {
	startedAt := time.Now()
	log := logger.GetGlobalLogger().WithComponent("sensis")

	deliveryPath := sensisDeliveryFile
	if deliveryPath == "" {
		day := time.Now()
		if sensisDateStr != "" {
			day, _ = time.Parse("2006-01-02", sensisDateStr)
		}
		var err error
		deliveryPath, err = workdir.SensisFile(sensisDeliveryDir, day)
		if err != nil {
			return err
		}
	}

	entries, err := sensis.Load(deliveryPath, log)
	if err != nil {
		return err
	}

	writer, err := template.Open(sensisReportFile, config.ReportSheet, config.ReportHeaderRow, log)
	if err != nil {
		return err
	}
	defer writer.Close()

	report, err := sensis.Apply(writer, entries, log)
	if err != nil {
		return err
	}

	if sensisOutputFile != "" {
		if err := writer.SaveAs(workdir.NonCollidingPath(sensisOutputFile)); err != nil {
			return err
		}
	} else if err := writer.Save(); err != nil {
		return err
	}

	if verboseEnabled() {
		fmt.Fprintf(os.Stderr, "Applied %s: %d rows updated\n", deliveryPath, report.Updated)
	}

	rg, err := newRunReporter("sensis", sensisOutputFormat, sensisShowPreview, startedAt)
	if err != nil {
		return err
	}

	out, done, err := openOutput(sensisSummaryFile)
	if err != nil {
		return err
	}
	defer done()

	return rg.RenderSensis(report, out)
}
