// Package config builds stage configurations for the CLI.
package config

import (
	"time"

	"ift-reporting-service/internal/collateral"
	"ift-reporting-service/internal/reporter"
)

// ReportSheet is the workbook tab the fill and delivery commands target by
// default.
const ReportSheet = "IRS - INF – XCCY"

// ReportHeaderRow is the 1-based header row of the report sheet.
const ReportHeaderRow = 6

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, includePreview bool) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
		config.IncludePreview = includePreview
	case "json":
		config.Format = reporter.FormatJSON
		config.IncludePreview = includePreview
	case "csv":
		config.Format = reporter.FormatCSV
		config.CSVHeaders = true
		config.CSVDelimiter = ','
	}

	return config
}

// CreateRunInfo stamps a run identity onto the rendered reports
func CreateRunInfo(runID, command string, startedAt time.Time) *reporter.RunInfo {
	return &reporter.RunInfo{
		RunID:      runID,
		Command:    command,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
}

// CreateTemplateSources returns the collateral extraction points of a filled
// report workbook
func CreateTemplateSources() []collateral.TemplateSource {
	return collateral.DefaultTemplateSources
}
