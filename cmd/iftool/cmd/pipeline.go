package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ift-reporting-service/cmd/iftool/config"
	"ift-reporting-service/internal/grid"
	"ift-reporting-service/internal/perimeter"
	"ift-reporting-service/internal/reporter"
	"ift-reporting-service/internal/workdir"

	"github.com/spf13/viper"

	"ift-reporting-service/pkg/logger"
)

// loadSourceTables reads every source extract into a resolved table. Explicit
// file paths win over directory scanning.
func loadSourceTables(sourceDir string, files []string) ([]*grid.Table, map[string]grid.LetterMap, error) {
	if len(files) == 0 {
		var err error
		files, err = workdir.ListSourceFiles(sourceDir)
		if err != nil {
			return nil, nil, err
		}
		if len(files) == 0 {
			return nil, nil, fmt.Errorf("no source extracts found in %s", sourceDir)
		}
	}

	log := logger.GetGlobalLogger().WithComponent("cli")

	tables := make([]*grid.Table, 0, len(files))
	letters := make(map[string]grid.LetterMap, len(files))
	for _, path := range files {
		g, err := grid.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		name := filepath.Base(path)
		tab, lm := grid.ResolveWithPositions(g, name, grid.DefaultVocabulary, grid.DefaultSearchWindow)
		tables = append(tables, tab)
		letters[name] = lm
		log.WithFields(logger.Fields{
			"file":    name,
			"columns": len(tab.Columns),
			"rows":    len(tab.Rows),
		}).Debug("Resolved source extract")
	}
	return tables, letters, nil
}

// runPerimeter loads the extracts and applies the perimeter filter.
func runPerimeter(sourceDir string, files []string) (*grid.Table, map[string]grid.LetterMap, *perimeter.FilterReport, error) {
	tables, letters, err := loadSourceTables(sourceDir, files)
	if err != nil {
		return nil, nil, nil, err
	}

	table, report, err := perimeter.Filter(tables, logger.GetGlobalLogger().WithComponent("perimeter"))
	if err != nil {
		return nil, nil, nil, err
	}
	return table, letters, report, nil
}

// newRunReporter builds a report generator stamped with this invocation.
func newRunReporter(command, format string, includePreview bool, startedAt time.Time) (*reporter.ReportGenerator, error) {
	cfg := config.CreateReportConfig(format, includePreview)
	run := config.CreateRunInfo(runID, command, startedAt)
	return reporter.NewReportGenerator(cfg, run)
}

// openOutput resolves the summary destination, stdout when no file is given.
func openOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func validateOutputFormat(format string) error {
	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[format] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", format)
	}
	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func verboseEnabled() bool {
	return viper.GetBool("verbose")
}
