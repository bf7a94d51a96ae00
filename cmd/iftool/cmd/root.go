package cmd

import (
	"fmt"
	"os"

	"ift-reporting-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
	runID     string
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "iftool",
	Short: "Reporting workbook tool for interest-rate and inflation trades",
	Long: `iftool fills the periodic reporting workbook from raw trade extracts
and reconciles it against external deliveries: pricing sensitivities,
counterparty mark-to-market extracts and collateral reports.

Examples:
  iftool fill --source-dir ./extracts --mapping mapping.yaml --template report.xlsm --output filled.xlsm
  iftool perimeter --source-dir ./extracts --output-format json
  iftool sensis --report filled.xlsm --sensis-file "Sensis IFTTool_31082026.xlsx"
  iftool trioptima --report filled.xlsm --csv search_acme_2026-08-31.csv --bnd-fwd
  iftool collateral --report filled.xlsm --collateral-dir ./collateral
  iftool compare --current filled.xlsm --previous-dir ./archive`,
	Version: getVersionString(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text, json")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables, configures the global
// logger and tags the invocation with a run identifier.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// Read environment variables that match
	viper.SetEnvPrefix("IFTOOL")
	viper.AutomaticEnv()

	logConfig := logger.DefaultConfig()
	if viper.GetBool("verbose") {
		logConfig = logger.DebugConfig()
	}
	if viper.GetString("log-format") == "json" {
		logConfig.Format = logger.JSONFormat
	}
	if err := logger.ConfigureGlobal(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %s\n", err)
		os.Exit(1)
	}

	runID = uuid.NewString()
	logger.SetGlobalLogger(logger.GetGlobalLogger().WithField("run_id", runID))
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
