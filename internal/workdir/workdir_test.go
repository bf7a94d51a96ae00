package workdir

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
	return path
}

func TestNextBusinessDay(t *testing.T) {
	tests := []struct {
		name string
		day  time.Time
		want time.Time
	}{
		{"midweek", time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)},
		{"friday skips weekend", time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)},
		{"saturday", time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextBusinessDay(tt.day); !got.Equal(tt.want) {
				t.Errorf("NextBusinessDay(%v) = %v, want %v", tt.day, got, tt.want)
			}
		})
	}
}

func TestProductionTag(t *testing.T) {
	if got := ProductionTag(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)); got != "08312026" {
		t.Errorf("ProductionTag = %q, want 08312026", got)
	}
}

func TestListSourceFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "IR_extract_1.xlsx")
	touch(t, dir, "XCY_IR_extract.xls")
	touch(t, dir, "IR_notes.txt")       // wrong extension
	touch(t, dir, "Sensis_Other.xlsx")  // wrong prefix
	touch(t, dir, "IR_extract_0.xlsm")

	files, err := ListSourceFiles(dir)
	if err != nil {
		t.Fatalf("ListSourceFiles: %v", err)
	}
	want := []string{
		filepath.Join(dir, "IR_extract_0.xlsm"),
		filepath.Join(dir, "IR_extract_1.xlsx"),
		filepath.Join(dir, "XCY_IR_extract.xls"),
	}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestNonCollidingPath(t *testing.T) {
	dir := t.TempDir()
	free := filepath.Join(dir, "out.xlsx")
	if got := NonCollidingPath(free); got != free {
		t.Errorf("free path changed: %q", got)
	}
	touch(t, dir, "out.xlsx")
	if got := NonCollidingPath(free); got != filepath.Join(dir, "out (1).xlsx") {
		t.Errorf("first collision = %q", got)
	}
	touch(t, dir, "out (1).xlsx")
	if got := NonCollidingPath(free); got != filepath.Join(dir, "out (2).xlsx") {
		t.Errorf("second collision = %q", got)
	}
}

func TestSensisFile(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	if _, err := SensisFile(dir, day); err == nil {
		t.Error("expected an error with no sensis delivery present")
	}

	glob := touch(t, dir, "Sensis IFTTool_v2.xlsx")
	got, err := SensisFile(dir, day)
	if err != nil || got != glob {
		t.Errorf("glob fallback = %q, %v", got, err)
	}

	exact := touch(t, dir, "Sensis IFTTool_31082026.xlsx")
	got, err = SensisFile(dir, day)
	if err != nil || got != exact {
		t.Errorf("exact name = %q, %v, want %q", got, err, exact)
	}
}

func TestTriOptimaFile(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	want := touch(t, dir, "search_myorg_2026-08-31T0900.csv")
	touch(t, dir, "search_otherorg_2026-08-31.csv")

	got, err := TriOptimaFile(dir, "myorg", day)
	if err != nil || got != want {
		t.Errorf("TriOptimaFile = %q, %v, want %q", got, err, want)
	}
	if _, err := TriOptimaFile(dir, "myorg", day.AddDate(0, 0, 1)); err == nil {
		t.Error("expected an error for a day with no extract")
	}
}

func TestFileDate(t *testing.T) {
	d, ok := FileDate("IFT - 25-08-2026.xlsx")
	if !ok || !d.Equal(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("FileDate = %v, %v", d, ok)
	}
	if _, ok := FileDate("IFT undated.xlsx"); ok {
		t.Error("undated name produced a date")
	}
}

func TestLatestDatedFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "IFT - 20-08-2026.xlsx")
	want := touch(t, dir, "IFT - 25-08-2026.xlsx")
	touch(t, dir, "IFT undated.xlsx")

	got, err := LatestDatedFile(dir, "IFT*.xlsx")
	if err != nil || got != want {
		t.Errorf("LatestDatedFile = %q, %v, want %q", got, err, want)
	}
}
