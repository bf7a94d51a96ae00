package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the perimeter command
var (
	perimeterSourceDir    string
	perimeterSourceFiles  []string
	perimeterOutputFormat string
	perimeterOutputFile   string
)

// perimeterCmd represents the perimeter command
var perimeterCmd = &cobra.Command{
	Use:   "perimeter",
	Short: "Filter raw trade extracts down to the reporting perimeter",
	Long: `Perimeter concatenates the raw trade extracts, drops rows without a
usable classification code and removes duplicate trades, then reports the
accounting of what was kept and dropped.

Examples:
  # Scan a directory for IR_ / XCY_IR extracts
  iftool perimeter --source-dir ./extracts

  # Explicit files with JSON accounting
  iftool perimeter --files IR_trades.xlsx,XCY_IR_trades.xls --output-format json`,

	PreRunE: validatePerimeterFlags,
	RunE:    runPerimeterCmd,
}

func init() {
	rootCmd.AddCommand(perimeterCmd)

	perimeterCmd.Flags().StringVarP(&perimeterSourceDir, "source-dir", "s", ".", "directory scanned for source extracts")
	perimeterCmd.Flags().StringSliceVar(&perimeterSourceFiles, "files", []string{}, "comma-separated extract paths (overrides --source-dir)")
	perimeterCmd.Flags().StringVarP(&perimeterOutputFormat, "output-format", "f", "console", "output format: console, json, csv")
	perimeterCmd.Flags().StringVarP(&perimeterOutputFile, "output-file", "o", "", "output file path (default: stdout)")

	viper.BindPFlag("perimeter.source-dir", perimeterCmd.Flags().Lookup("source-dir"))
	viper.BindPFlag("perimeter.output-format", perimeterCmd.Flags().Lookup("output-format"))
}

func validatePerimeterFlags(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(perimeterOutputFormat); err != nil {
		return err
	}
	for i, path := range perimeterSourceFiles {
		if err := validateFileExists(path, fmt.Sprintf("source extract %d", i+1)); err != nil {
			return err
		}
	}
	if len(perimeterSourceFiles) == 0 {
		info, err := os.Stat(perimeterSourceDir)
		if err != nil {
			return fmt.Errorf("source directory is not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("source-dir is not a directory: %s", perimeterSourceDir)
		}
	}
	return nil
}

func runPerimeterCmd(cmd *cobra.Command, args []string) error {
	startedAt := time.Now()

	_, _, report, err := runPerimeter(perimeterSourceDir, perimeterSourceFiles)
	if err != nil {
		return err
	}

	rg, err := newRunReporter("perimeter", perimeterOutputFormat, false, startedAt)
	if err != nil {
		return err
	}

	out, done, err := openOutput(perimeterOutputFile)
	if err != nil {
		return err
	}
	defer done()

	return rg.RenderPerimeter(report, out)
}
