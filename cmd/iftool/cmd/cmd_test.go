package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	validFile := filepath.Join(tmpDir, "valid.xlsx")
	if err := os.WriteFile(validFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name        string
		filePath    string
		description string
		expectError bool
	}{
		{
			name:        "valid file",
			filePath:    validFile,
			description: "test file",
			expectError: false,
		},
		{
			name:        "empty path",
			filePath:    "",
			description: "test file",
			expectError: true,
		},
		{
			name:        "non-existent file",
			filePath:    "/non/existent/file.xlsx",
			description: "test file",
			expectError: true,
		},
		{
			name:        "directory instead of file",
			filePath:    tmpDir,
			description: "test file",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.filePath, tt.description)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		format      string
		expectError bool
	}{
		{"console", false},
		{"json", false},
		{"csv", false},
		{"xml", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			err := validateOutputFormat(tt.format)
			if tt.expectError && err == nil {
				t.Errorf("expected error for format %q", tt.format)
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error for format %q: %v", tt.format, err)
			}
		})
	}
}

func TestValidateFillFlags(t *testing.T) {
	tmpDir := t.TempDir()
	mappingFile := filepath.Join(tmpDir, "mapping.yaml")
	templateFile := filepath.Join(tmpDir, "template.xlsm")
	for _, path := range []string{mappingFile, templateFile} {
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", path, err)
		}
	}

	tests := []struct {
		name          string
		setupFlags    func()
		expectError   bool
		errorContains string
	}{
		{
			name: "valid flags",
			setupFlags: func() {
				fillMappingFile = mappingFile
				fillTemplateFile = templateFile
				fillOutputFile = filepath.Join(tmpDir, "out.xlsm")
				fillReportDate = "2026-08-31"
				fillOutputFormat = "console"
				fillSourceFiles = nil
			},
			expectError: false,
		},
		{
			name: "missing mapping",
			setupFlags: func() {
				fillMappingFile = filepath.Join(tmpDir, "absent.yaml")
				fillTemplateFile = templateFile
				fillOutputFile = "out.xlsm"
				fillReportDate = ""
				fillOutputFormat = "console"
			},
			expectError:   true,
			errorContains: "does not exist",
		},
		{
			name: "bad report date",
			setupFlags: func() {
				fillMappingFile = mappingFile
				fillTemplateFile = templateFile
				fillOutputFile = "out.xlsm"
				fillReportDate = "31/08/2026"
				fillOutputFormat = "console"
			},
			expectError:   true,
			errorContains: "invalid report date",
		},
		{
			name: "bad output format",
			setupFlags: func() {
				fillMappingFile = mappingFile
				fillTemplateFile = templateFile
				fillOutputFile = "out.xlsm"
				fillReportDate = ""
				fillOutputFormat = "xml"
			},
			expectError:   true,
			errorContains: "invalid output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupFlags()
			err := validateFillFlags(fillCmd, nil)

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("error %q does not contain %q", err, tt.errorContains)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSensisFlagsRequiresDeliverySource(t *testing.T) {
	tmpDir := t.TempDir()
	reportFile := filepath.Join(tmpDir, "report.xlsm")
	if err := os.WriteFile(reportFile, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create report file: %v", err)
	}

	sensisReportFile = reportFile
	sensisDeliveryFile = ""
	sensisDeliveryDir = ""
	sensisDateStr = ""
	sensisOutputFormat = "console"

	err := validateSensisFlags(sensisCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "sensis-file") {
		t.Errorf("expected missing-delivery error, got %v", err)
	}

	sensisDeliveryDir = tmpDir
	if err := validateSensisFlags(sensisCmd, nil); err != nil {
		t.Errorf("unexpected error with delivery dir set: %v", err)
	}
}

func TestValidateTrioptimaFlagsRequiresOrgWithDir(t *testing.T) {
	tmpDir := t.TempDir()
	reportFile := filepath.Join(tmpDir, "report.xlsm")
	if err := os.WriteFile(reportFile, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create report file: %v", err)
	}

	trioReportFile = reportFile
	trioCSVFile = ""
	trioCSVDir = tmpDir
	trioOrg = ""
	trioDateStr = ""
	trioOutputFormat = "console"

	err := validateTrioptimaFlags(trioptimaCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "--org") {
		t.Errorf("expected missing-org error, got %v", err)
	}

	trioOrg = "acme"
	if err := validateTrioptimaFlags(trioptimaCmd, nil); err != nil {
		t.Errorf("unexpected error with org set: %v", err)
	}
}

func TestLocatePreviousProduction(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{
		"IFT - 30-06-2026.xlsx",
		"IFT - 31-07-2026.xlsm",
		"notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	got, err := locatePreviousProduction(tmpDir)
	if err != nil {
		t.Fatalf("locatePreviousProduction: %v", err)
	}
	if filepath.Base(got) != "IFT - 31-07-2026.xlsm" {
		t.Errorf("got %q, want the July workbook", got)
	}

	if _, err := locatePreviousProduction(t.TempDir()); err == nil {
		t.Error("expected an error for an empty archive directory")
	}
}

func TestGetVersionString(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", time.Now().Format("2006-01-02"))
	if got := getVersionString(); got != "1.2.3" {
		t.Errorf("release version string = %q, want bare version", got)
	}

	SetVersionInfo("dev", "abc123", "today")
	if got := getVersionString(); !strings.Contains(got, "abc123") {
		t.Errorf("dev version string %q should carry the commit", got)
	}
}
