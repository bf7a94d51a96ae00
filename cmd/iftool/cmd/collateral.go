package cmd

import (
	"fmt"
	"os"
	"time"

	"ift-reporting-service/cmd/iftool/config"
	"ift-reporting-service/internal/collateral"
	"ift-reporting-service/internal/workdir"
	"ift-reporting-service/pkg/logger"

	"github.com/spf13/cobra"
)

// Flags for the collateral command
var (
	collReportFile     string
	collCollateralFile string
	collCollateralDir  string
	collCpAliasFile    string
	collTyAliasFile    string
	collOutputFormat   string
	collOutputFile     string
)

// collateralCmd represents the collateral command
var collateralCmd = &cobra.Command{
	Use:   "collateral",
	Short: "Reconcile a filled report against the collateral report",
	Long: `Collateral aggregates the filled report's exposures per counterparty
and typology, does the same for the third-party collateral report, and
joins both sides into a gap table. Counterparty and typology labels are
normalized through optional alias files before matching.

The collateral report can be given explicitly or the newest
"*Report Collatéral.xlsx" in a directory is used.

Examples:
  iftool collateral --report filled.xlsm --collateral "2026-08 Report Collatéral.xlsx"
  iftool collateral --report filled.xlsm --collateral-dir ./collateral \
    --cp-aliases counterparties.txt --output-format csv --output-file gaps.csv`,

	PreRunE: validateCollateralFlags,
	RunE:    runCollateral,
}

func init() {
	rootCmd.AddCommand(collateralCmd)

	collateralCmd.Flags().StringVarP(&collReportFile, "report", "r", "", "filled report workbook (required)")
	collateralCmd.Flags().StringVar(&collCollateralFile, "collateral", "", "collateral report workbook")
	collateralCmd.Flags().StringVar(&collCollateralDir, "collateral-dir", "", "directory searched for the newest collateral report")
	collateralCmd.Flags().StringVar(&collCpAliasFile, "cp-aliases", "", "counterparty alias file (optional)")
	collateralCmd.Flags().StringVar(&collTyAliasFile, "ty-aliases", "", "typology alias file (optional)")
	collateralCmd.Flags().StringVarP(&collOutputFormat, "output-format", "f", "console", "output format: console, json, csv")
	collateralCmd.Flags().StringVarP(&collOutputFile, "output-file", "o", "", "output file path (default: stdout)")

	collateralCmd.MarkFlagRequired("report")
}

func validateCollateralFlags(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(collOutputFormat); err != nil {
		return err
	}
	if err := validateFileExists(collReportFile, "report workbook"); err != nil {
		return err
	}
	if collCollateralFile == "" && collCollateralDir == "" {
		return fmt.Errorf("either --collateral or --collateral-dir is required")
	}
	if collCollateralFile != "" {
		if err := validateFileExists(collCollateralFile, "collateral report"); err != nil {
			return err
		}
	}
	return nil
}

func runCollateral(cmd *cobra.Command, args []string) error {
	startedAt := time.Now()
	log := logger.GetGlobalLogger().WithComponent("collateral")

	collateralPath := collCollateralFile
	if collateralPath == "" {
		var err error
		collateralPath, err = workdir.CollateralReport(collCollateralDir)
		if err != nil {
			return err
		}
	}

	templateEntries, err := collateral.ReadTemplateEntries(collReportFile, config.CreateTemplateSources(), log)
	if err != nil {
		return err
	}
	collateralEntries, err := collateral.ReadReportEntries(collateralPath, log)
	if err != nil {
		return err
	}

	cpAliases, err := collateral.LoadAliases(collCpAliasFile)
	if err != nil {
		return err
	}
	tyAliases, err := collateral.LoadAliases(collTyAliasFile)
	if err != nil {
		return err
	}

	rows := collateral.Reconcile(templateEntries, collateralEntries, cpAliases, tyAliases)

	if verboseEnabled() {
		fmt.Fprintf(os.Stderr, "Compared %d template entries against %s\n",
			len(templateEntries), collateralPath)
	}

	rg, err := newRunReporter("collateral", collOutputFormat, false, startedAt)
	if err != nil {
		return err
	}

	out, done, err := openOutput(collOutputFile)
	if err != nil {
		return err
	}
	defer done()

	return rg.RenderCollateral(rows, out)
}
