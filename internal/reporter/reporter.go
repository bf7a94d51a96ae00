// Package reporter renders run summaries for the reporting pipeline.
//
// Every pipeline stage produces a small accounting struct (perimeter filter
// counts, fill summary, delivery apply reports, collateral comparison rows,
// production deltas). This package turns those structs into console, JSON or
// CSV output for terminal display, file capture or downstream tooling.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"ift-reporting-service/internal/collateral"
	"ift-reporting-service/internal/history"
	"ift-reporting-service/internal/perimeter"
	"ift-reporting-service/internal/sensis"
	"ift-reporting-service/internal/template"
	"ift-reporting-service/internal/trioptima"
)

// OutputFormat selects how a run summary is rendered.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds rendering options shared by all report types
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// MaxListItems caps itemized console lists (missing codes, alerts).
	// Zero means unlimited.
	MaxListItems int `json:"max_list_items"`

	// IncludePreview emits per-row preview tables when the stage
	// collected them.
	IncludePreview bool `json:"include_preview"`

	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		MaxListItems:   10,
		IncludePreview: false,
		CSVDelimiter:   ',',
		CSVHeaders:     true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxListItems < 0 {
		return fmt.Errorf("max list items must not be negative, got %d", c.MaxListItems)
	}
	return nil
}

// RunInfo identifies one pipeline invocation across its rendered reports
// and log lines.
type RunInfo struct {
	RunID      string    `json:"run_id"`
	Command    string    `json:"command"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ReportGenerator renders stage summaries in the configured format
type ReportGenerator struct {
	config *ReportConfig
	run    *RunInfo
}

// NewReportGenerator creates a generator with the given configuration.
// A nil configuration gets the defaults.
func NewReportGenerator(config *ReportConfig, run *RunInfo) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config, run: run}, nil
}

// RenderPerimeter writes the perimeter filter accounting.
func (rg *ReportGenerator) RenderPerimeter(report *perimeter.FilterReport, w io.Writer) error {
	if report == nil {
		return fmt.Errorf("filter report cannot be nil")
	}

	switch rg.config.Format {
	case FormatJSON:
		return rg.writeJSON(w, "perimeter", report)
	case FormatCSV:
		return rg.writeCSV(w,
			[]string{"File", "Rows", "Excluded"},
			func(cw *csv.Writer) error {
				for _, fc := range report.Files {
					if err := cw.Write([]string{fc.File, strconv.Itoa(fc.Rows), strconv.Itoa(fc.Excluded)}); err != nil {
						return err
					}
				}
				return nil
			})
	default:
		rg.printHeader(w, "PERIMETER FILTER")
		fmt.Fprintf(w, "=== SOURCES ===\n")
		for _, fc := range report.Files {
			fmt.Fprintf(w, "  %-40s %6d rows, %d excluded\n", fc.File, fc.Rows, fc.Excluded)
		}
		fmt.Fprintf(w, "\n=== SUMMARY ===\n")
		fmt.Fprintf(w, "Total Rows:         %d\n", report.TotalRows)
		fmt.Fprintf(w, "Sentinel Excluded:  %d\n", report.SentinelExcluded)
		fmt.Fprintf(w, "In Scope:           %d (%.1f%%)\n",
			report.InScopeRows, percentage(report.InScopeRows, report.TotalRows))
		if report.DedupKey != "" {
			fmt.Fprintf(w, "Dedup Key:          %s\n", report.DedupKey)
		}
		fmt.Fprintf(w, "Duplicates Removed: %d\n", report.DuplicatesRemoved)
		fmt.Fprintf(w, "Final Rows:         %d\n", report.FinalRows)
		return nil
	}
}

// RenderFill writes the template fill accounting.
func (rg *ReportGenerator) RenderFill(summary *template.WriteSummary, w io.Writer) error {
	if summary == nil {
		return fmt.Errorf("write summary cannot be nil")
	}

	switch rg.config.Format {
	case FormatJSON:
		return rg.writeJSON(w, "fill", summary)
	case FormatCSV:
		return rg.writeCSV(w,
			[]string{"Target", "Skipped"},
			func(cw *csv.Writer) error {
				for _, target := range sortedKeys(summary.SkippedTargets) {
					if err := cw.Write([]string{target, strconv.Itoa(summary.SkippedTargets[target])}); err != nil {
						return err
					}
				}
				return nil
			})
	default:
		rg.printHeader(w, "TEMPLATE FILL")
		fmt.Fprintf(w, "Rows Written:  %d\n", summary.RowsWritten)
		fmt.Fprintf(w, "Cells Written: %d\n", summary.CellsWritten)
		fmt.Fprintf(w, "Null Cells:    %d (%.1f%%)\n",
			summary.NullCells, percentage(summary.NullCells, summary.CellsWritten+summary.NullCells))
		if len(summary.SkippedTargets) > 0 {
			fmt.Fprintf(w, "\n=== SKIPPED TARGETS ===\n")
			for _, target := range sortedKeys(summary.SkippedTargets) {
				fmt.Fprintf(w, "  %-30s %d rows\n", target, summary.SkippedTargets[target])
			}
		}
		return nil
	}
}

// RenderSensis writes the sensitivity apply accounting.
func (rg *ReportGenerator) RenderSensis(report *sensis.ApplyReport, w io.Writer) error {
	if report == nil {
		return fmt.Errorf("apply report cannot be nil")
	}

	switch rg.config.Format {
	case FormatJSON:
		return rg.writeJSON(w, "sensis", report)
	case FormatCSV:
		return rg.writeCSV(w,
			[]string{"Code", "Dirty_Pct", "Clean_Pct", "Accrued_Pct", "Sensis_L1", "Sensis_L2", "Duration_L1", "Duration_L2", "Duration_Total"},
			func(cw *csv.Writer) error {
				for _, row := range report.Preview {
					record := []string{
						row.Code,
						fmtPtr(row.DirtyPct), fmtPtr(row.CleanPct), fmtPtr(row.AccruedPct),
						fmtPtr(row.SensisLeg1), fmtPtr(row.SensisLeg2),
						fmtPtr(row.DurationLeg1), fmtPtr(row.DurationLeg2), fmtPtr(row.DurationTotal),
					}
					if err := cw.Write(record); err != nil {
						return err
					}
				}
				return nil
			})
	default:
		rg.printHeader(w, "SENSITIVITY IMPORT")
		fmt.Fprintf(w, "Rows Updated: %d\n", report.Updated)
		rg.printCodeList(w, "MISSING FROM DELIVERY", report.MissingCodes)
		if rg.config.IncludePreview && len(report.Preview) > 0 {
			fmt.Fprintf(w, "\n=== PREVIEW ===\n")
			for _, row := range report.Preview {
				fmt.Fprintf(w, "  %-12s dirty=%s clean=%s accrued=%s sensis=%s/%s\n",
					row.Code, fmtPtr(row.DirtyPct), fmtPtr(row.CleanPct),
					fmtPtr(row.AccruedPct), fmtPtr(row.SensisLeg1), fmtPtr(row.SensisLeg2))
			}
		}
		return nil
	}
}

// RenderTriOptima writes the counterparty MTM apply accounting, with the
// bond-forward section when that stage ran.
func (rg *ReportGenerator) RenderTriOptima(report *trioptima.ApplyReport, bndFwd *trioptima.BndFwdReport, w io.Writer) error {
	if report == nil {
		return fmt.Errorf("apply report cannot be nil")
	}

	switch rg.config.Format {
	case FormatJSON:
		payload := map[string]interface{}{"mtm": report}
		if bndFwd != nil {
			payload["bnd_fwd"] = bndFwd
		}
		return rg.writeJSON(w, "trioptima", payload)
	case FormatCSV:
		return rg.writeCSV(w,
			[]string{"Code", "MTM", "Diff", "Diff_Ratio"},
			func(cw *csv.Writer) error {
				for _, row := range report.Preview {
					record := []string{
						row.Code,
						strconv.FormatFloat(row.Mtm, 'f', -1, 64),
						fmtPtr(row.Diff),
						fmtPtr(row.DiffRatio),
					}
					if err := cw.Write(record); err != nil {
						return err
					}
				}
				return nil
			})
	default:
		rg.printHeader(w, "COUNTERPARTY MTM IMPORT")
		fmt.Fprintf(w, "Rows Updated: %d\n", report.Updated)
		rg.printCodeList(w, "MISSING FROM EXTRACT", report.MissingCodes)
		rg.printCodeList(w, "UNUSED EXTRACT CODES", report.UnusedCodes)

		if bndFwd != nil {
			fmt.Fprintf(w, "\n=== BOND FORWARDS ===\n")
			fmt.Fprintf(w, "Rows Written: %d\n", bndFwd.Updated)
			rg.printCodeList(w, "INCOMPLETE ROWS", bndFwd.MissingData)
			rg.printCodeList(w, "PRICE ALERTS", bndFwd.Alerts)
		}
		return nil
	}
}

// RenderCollateral writes the collateral comparison table.
func (rg *ReportGenerator) RenderCollateral(rows []collateral.Row, w io.Writer) error {
	switch rg.config.Format {
	case FormatJSON:
		payload := make([]map[string]interface{}, 0, len(rows))
		for _, r := range rows {
			payload = append(payload, map[string]interface{}{
				"counterparty":   r.Counterparty,
				"typology":       r.Typology,
				"template_gam":   r.TemplateGam.String(),
				"template_cp":    r.TemplateCp.String(),
				"collateral_gam": r.CollateralGam.String(),
				"collateral_cp":  r.CollateralCp.String(),
				"in_template":    r.InTemplate,
				"in_collateral":  r.InCollateral,
				"gap_gam":        r.GapGam.String(),
				"gap_cp":         r.GapCp.String(),
			})
		}
		return rg.writeJSON(w, "collateral", payload)
	case FormatCSV:
		return rg.writeCSV(w,
			[]string{"Counterparty", "Typology", "Template_Gam", "Template_Cp", "Collateral_Gam", "Collateral_Cp", "In_Template", "In_Collateral", "Gap_Gam", "Gap_Cp"},
			func(cw *csv.Writer) error {
				for _, r := range rows {
					record := []string{
						r.Counterparty, r.Typology,
						r.TemplateGam.StringFixed(2), r.TemplateCp.StringFixed(2),
						r.CollateralGam.StringFixed(2), r.CollateralCp.StringFixed(2),
						strconv.FormatBool(r.InTemplate), strconv.FormatBool(r.InCollateral),
						r.GapGam.StringFixed(2), r.GapCp.StringFixed(2),
					}
					if err := cw.Write(record); err != nil {
						return err
					}
				}
				return nil
			})
	default:
		rg.printHeader(w, "COLLATERAL COMPARISON")
		fmt.Fprintf(w, "Rows Compared: %d\n\n", len(rows))

		gaps := 0
		for _, r := range rows {
			if !r.GapGam.IsZero() || !r.GapCp.IsZero() {
				gaps++
			}
		}
		fmt.Fprintf(w, "Rows With Gaps: %d\n", gaps)
		oneSided := 0
		for _, r := range rows {
			if !r.InTemplate || !r.InCollateral {
				oneSided++
			}
		}
		fmt.Fprintf(w, "One-Sided Rows: %d\n\n", oneSided)

		fmt.Fprintf(w, "%-24s %-16s %16s %16s %16s %16s\n",
			"Counterparty", "Typology", "Template Gam", "Collateral Gam", "Gap Gam", "Gap Cp")
		for _, r := range rows {
			marker := " "
			if !r.InTemplate || !r.InCollateral {
				marker = "*"
			}
			fmt.Fprintf(w, "%s%-23s %-16s %16s %16s %16s %16s\n",
				marker, clip(r.Counterparty, 23), clip(r.Typology, 16),
				r.TemplateGam.StringFixed(2), r.CollateralGam.StringFixed(2),
				r.GapGam.StringFixed(2), r.GapCp.StringFixed(2))
		}
		if oneSided > 0 {
			fmt.Fprintf(w, "\n* present on one side only\n")
		}
		return nil
	}
}

// RenderHistory writes the production comparison, largest moves first.
func (rg *ReportGenerator) RenderHistory(rows []history.DeltaRow, w io.Writer) error {
	switch rg.config.Format {
	case FormatJSON:
		return rg.writeJSON(w, "history", rows)
	case FormatCSV:
		return rg.writeCSV(w,
			[]string{"Classif", "Previous", "Current", "Delta", "Delta_Pct"},
			func(cw *csv.Writer) error {
				for _, r := range rows {
					record := []string{
						r.Classif,
						strconv.FormatFloat(r.Previous, 'f', 2, 64),
						strconv.FormatFloat(r.Current, 'f', 2, 64),
						strconv.FormatFloat(r.Delta, 'f', 2, 64),
						fmtPtr(r.DeltaPercent),
					}
					if err := cw.Write(record); err != nil {
						return err
					}
				}
				return nil
			})
	default:
		rg.printHeader(w, "PRODUCTION COMPARISON")
		fmt.Fprintf(w, "Classifications: %d\n\n", len(rows))
		fmt.Fprintf(w, "%-20s %16s %16s %16s %10s\n",
			"Classif DI", "Previous", "Current", "Delta", "Delta %")
		for _, r := range rows {
			pct := ""
			if r.DeltaPercent != nil {
				pct = fmt.Sprintf("%.1f%%", *r.DeltaPercent)
			}
			fmt.Fprintf(w, "%-20s %16.2f %16.2f %16.2f %10s\n",
				clip(r.Classif, 20), r.Previous, r.Current, r.Delta, pct)
		}
		return nil
	}
}

// Helper methods for console output formatting

func (rg *ReportGenerator) printHeader(w io.Writer, title string) {
	fmt.Fprintf(w, "%s\n", title)
	if rg.run != nil {
		fmt.Fprintf(w, "Run: %s\n", rg.run.RunID)
		if !rg.run.FinishedAt.IsZero() {
			fmt.Fprintf(w, "Generated: %s\n", rg.run.FinishedAt.Format(time.RFC3339))
		}
	}
	fmt.Fprintf(w, "\n")
}

func (rg *ReportGenerator) printCodeList(w io.Writer, title string, codes []string) {
	if len(codes) == 0 {
		return
	}
	fmt.Fprintf(w, "\n=== %s (%d) ===\n", title, len(codes))
	limit := len(codes)
	if rg.config.MaxListItems > 0 && limit > rg.config.MaxListItems {
		limit = rg.config.MaxListItems
	}
	for _, code := range codes[:limit] {
		fmt.Fprintf(w, "  - %s\n", code)
	}
	if limit < len(codes) {
		fmt.Fprintf(w, "  ... and %d more\n", len(codes)-limit)
	}
}

func (rg *ReportGenerator) writeJSON(w io.Writer, stage string, payload interface{}) error {
	envelope := map[string]interface{}{
		"stage":  stage,
		"report": payload,
	}
	if rg.run != nil {
		envelope["run"] = rg.run
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(envelope)
}

func (rg *ReportGenerator) writeCSV(w io.Writer, headers []string, body func(*csv.Writer) error) error {
	cw := csv.NewWriter(w)
	cw.Comma = rg.config.CSVDelimiter
	defer cw.Flush()

	if rg.config.CSVHeaders {
		if err := cw.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}
	if err := body(cw); err != nil {
		return fmt.Errorf("failed to write CSV records: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// Helpers

func percentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

func fmtPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
