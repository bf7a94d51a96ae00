// Package perimeter builds the in-scope trade row-set for a reporting run:
// it concatenates the source extracts, drops rows without a usable
// classification code and removes duplicate trades.
package perimeter

import (
	"fmt"
	"strings"

	"ift-reporting-service/internal/grid"
	apperrors "ift-reporting-service/pkg/errors"
	"ift-reporting-service/pkg/logger"
)

// CodeColumn is the canonical name the classification code carries in the
// perimeter table, whatever it was called in the source extract.
const CodeColumn = "Code DI"

// codeSourceLabels are the labels the classification code may carry in a
// source extract, tried in order.
var codeSourceLabels = []string{"Custom Attribute5 Value", CodeColumn}

// dedupPriority lists the business identifier fields usable as a duplicate
// key, in preference order. The first one present in the concatenated table
// is used alone.
var dedupPriority = []string{"#Ticket", "Trade ID", "External Id"}

// FileCount tracks per-file row accounting for the run report
type FileCount struct {
	File     string `json:"file"`
	Rows     int    `json:"rows"`
	Excluded int    `json:"excluded"`
}

// FilterReport summarizes what the perimeter filter kept and dropped
type FilterReport struct {
	Files             []FileCount `json:"files"`
	TotalRows         int         `json:"total_rows"`
	SentinelExcluded  int         `json:"sentinel_excluded"`
	InScopeRows       int         `json:"in_scope_rows"`
	DedupKey          string      `json:"dedup_key,omitempty"`
	DuplicatesRemoved int         `json:"duplicates_removed"`
	FinalRows         int         `json:"final_rows"`
}

// Filter concatenates the source tables and returns the perimeter table plus
// its accounting report. A row is in scope iff its classification code is
// non-empty and not a null sentinel; duplicate trades are dropped on the
// first business identifier found, keeping the first occurrence. The call
// fails only when no input table carries the classification code at all.
func Filter(tables []*grid.Table, log logger.Logger) (*grid.Table, *FilterReport, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("perimeter")

	report := &FilterReport{}
	out := &grid.Table{Columns: unionColumns(tables)}

	codeFound := false
	for _, tab := range tables {
		codeCol, ok := findCodeColumn(tab)
		if ok {
			codeFound = true
		}
		fc := FileCount{File: tab.File, Rows: len(tab.Rows)}
		for _, row := range tab.Rows {
			report.TotalRows++
			code := ""
			if ok {
				code = row.Get(codeCol)
			}
			if grid.IsBlank(code) {
				report.SentinelExcluded++
				fc.Excluded++
				continue
			}
			values := make(map[string]string, len(row.Values)+1)
			for k, v := range row.Values {
				values[k] = v
			}
			if codeCol != CodeColumn {
				delete(values, codeCol)
			}
			values[CodeColumn] = strings.TrimSpace(code)
			out.Rows = append(out.Rows, grid.Row{File: tab.File, Values: values})
		}
		report.Files = append(report.Files, fc)
		log.WithFields(logger.Fields{
			"file":     tab.File,
			"rows":     fc.Rows,
			"excluded": fc.Excluded,
		}).Debug("Source file filtered")
	}

	if !codeFound {
		var searched []string
		for _, tab := range tables {
			searched = append(searched, fmt.Sprintf("%s: %s", tab.File, strings.Join(tab.Columns, ", ")))
		}
		return nil, nil, apperrors.WorkbookError(
			apperrors.CodeMissingColumn,
			"source extracts",
			strings.Join(codeSourceLabels, " or "),
			searched,
		)
	}

	report.InScopeRows = len(out.Rows)

	key := dedupColumn(out)
	if key != "" {
		report.DedupKey = key
		out.Rows = dedupRows(out.Rows, key)
		report.DuplicatesRemoved = report.InScopeRows - len(out.Rows)
	}
	report.FinalRows = len(out.Rows)

	log.WithFields(logger.Fields{
		"total":      report.TotalRows,
		"in_scope":   report.InScopeRows,
		"duplicates": report.DuplicatesRemoved,
		"final":      report.FinalRows,
	}).Info("Perimeter built")
	return out, report, nil
}

// unionColumns merges column lists in first-appearance order, replacing the
// source label of the classification code with its canonical name.
func unionColumns(tables []*grid.Table) []string {
	var cols []string
	seen := make(map[string]struct{})
	add := func(c string) {
		key := grid.Norm(c)
		if _, ok := seen[key]; ok || key == "" {
			return
		}
		seen[key] = struct{}{}
		cols = append(cols, c)
	}
	add(CodeColumn)
	for _, tab := range tables {
		codeCol, _ := findCodeColumn(tab)
		for _, c := range tab.Columns {
			if c == "" || c == codeCol {
				continue
			}
			add(c)
		}
	}
	return cols
}

func findCodeColumn(tab *grid.Table) (string, bool) {
	for _, label := range codeSourceLabels {
		if col := tab.FindColumn(label); col != "" {
			return col, true
		}
	}
	return "", false
}

func dedupColumn(tab *grid.Table) string {
	for _, label := range dedupPriority {
		if col := tab.FindColumn(label); col != "" {
			return col
		}
	}
	return ""
}

// dedupRows keeps the first row per identifier value. Rows with a blank
// identifier are never treated as duplicates of each other.
func dedupRows(rows []grid.Row, key string) []grid.Row {
	seen := make(map[string]struct{}, len(rows))
	kept := rows[:0:0]
	for _, row := range rows {
		id := strings.TrimSpace(row.Get(key))
		if id != "" {
			norm := strings.ToLower(id)
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}
		}
		kept = append(kept, row)
	}
	return kept
}
