package config

import (
	"testing"
	"time"

	"ift-reporting-service/internal/reporter"
)

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		format string
		want   reporter.OutputFormat
	}{
		{"console", reporter.FormatConsole},
		{"json", reporter.FormatJSON},
		{"csv", reporter.FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			cfg := CreateReportConfig(tt.format, true)
			if cfg.Format != tt.want {
				t.Errorf("format = %v, want %v", cfg.Format, tt.want)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("config should validate: %v", err)
			}
		})
	}

	if cfg := CreateReportConfig("csv", true); cfg.IncludePreview {
		t.Error("CSV output should not carry the console preview")
	}
	if cfg := CreateReportConfig("console", true); !cfg.IncludePreview {
		t.Error("console output should honor the preview request")
	}
}

func TestCreateRunInfo(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	run := CreateRunInfo("run-1", "fill", started)

	if run.RunID != "run-1" || run.Command != "fill" {
		t.Errorf("run info = %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("started at = %v, want %v", run.StartedAt, started)
	}
	if run.FinishedAt.Before(started) {
		t.Errorf("finished at %v precedes started at %v", run.FinishedAt, started)
	}
}

func TestCreateTemplateSources(t *testing.T) {
	sources := CreateTemplateSources()
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[0].Sheet != ReportSheet {
		t.Errorf("first source sheet = %q, want %q", sources[0].Sheet, ReportSheet)
	}
}
