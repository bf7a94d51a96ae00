package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ift-reporting-service/internal/history"
	"ift-reporting-service/internal/workdir"
	"ift-reporting-service/pkg/logger"

	"github.com/spf13/cobra"
)

// productionPatterns matches archived report workbooks by name.
var productionPatterns = []string{"IFT - *.xlsm", "IFT - *.xlsx"}

// Flags for the compare command
var (
	compareCurrentFile  string
	comparePreviousFile string
	comparePreviousDir  string
	compareOutputFormat string
	compareOutputFile   string
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare dirty value totals between two productions",
	Long: `Compare aggregates the dirty value per classification in the current
report and in a previous production, then lists the differences sorted by
absolute move.

The previous production can be given explicitly or located as the latest
dated "IFT - *.xlsm" / "IFT - *.xlsx" workbook in an archive directory.

Examples:
  iftool compare --current filled.xlsm --previous "IFT - 31-07-2026.xlsm"
  iftool compare --current filled.xlsm --previous-dir ./archive --output-format json`,

	PreRunE: validateCompareFlags,
	RunE:    runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVarP(&compareCurrentFile, "current", "c", "", "current report workbook (required)")
	compareCmd.Flags().StringVarP(&comparePreviousFile, "previous", "p", "", "previous report workbook")
	compareCmd.Flags().StringVar(&comparePreviousDir, "previous-dir", "", "archive directory searched for the latest dated production")
	compareCmd.Flags().StringVarP(&compareOutputFormat, "output-format", "f", "console", "output format: console, json, csv")
	compareCmd.Flags().StringVarP(&compareOutputFile, "output-file", "o", "", "output file path (default: stdout)")

	compareCmd.MarkFlagRequired("current")
}

func validateCompareFlags(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(compareOutputFormat); err != nil {
		return err
	}
	if err := validateFileExists(compareCurrentFile, "current report"); err != nil {
		return err
	}
	if comparePreviousFile == "" && comparePreviousDir == "" {
		return fmt.Errorf("either --previous or --previous-dir is required")
	}
	if comparePreviousFile != "" {
		if err := validateFileExists(comparePreviousFile, "previous report"); err != nil {
			return err
		}
	}
	return nil
}

// locatePreviousProduction picks the latest dated workbook across the known
// production name patterns.
func locatePreviousProduction(dir string) (string, error) {
	var best string
	var bestDate time.Time
	var haveBest bool

	for _, pattern := range productionPatterns {
		candidate, err := workdir.LatestDatedFile(dir, pattern)
		if err != nil {
			continue
		}
		date, ok := workdir.FileDate(filepath.Base(candidate))
		switch {
		case !haveBest:
			best, haveBest = candidate, true
			if ok {
				bestDate = date
			}
		case ok && date.After(bestDate):
			best, bestDate = candidate, date
		}
	}

	if !haveBest {
		return "", fmt.Errorf("no previous production found in %s", dir)
	}
	return best, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	startedAt := time.Now()
	log := logger.GetGlobalLogger().WithComponent("compare")

	previousPath := comparePreviousFile
	if previousPath == "" {
		var err error
		previousPath, err = locatePreviousProduction(comparePreviousDir)
		if err != nil {
			return err
		}
	}

	current, err := history.AggregateDirtyByClassif(compareCurrentFile, log)
	if err != nil {
		return err
	}
	previous, err := history.AggregateDirtyByClassif(previousPath, log)
	if err != nil {
		return err
	}

	rows := history.Compare(current, previous)

	if verboseEnabled() {
		fmt.Fprintf(os.Stderr, "Compared %s against %s\n", compareCurrentFile, previousPath)
	}

	rg, err := newRunReporter("compare", compareOutputFormat, false, startedAt)
	if err != nil {
		return err
	}

	out, done, err := openOutput(compareOutputFile)
	if err != nil {
		return err
	}
	defer done()

	return rg.RenderHistory(rows, out)
}
