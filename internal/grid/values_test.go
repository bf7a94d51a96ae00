package grid

import (
	"testing"
	"time"
)

func TestParseNumber(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name string
		in   string
		want *float64
	}{
		{"plain", "100.5", f(100.5)},
		{"negative", "-3.25", f(-3.25)},
		{"decimal comma", "1234,56", f(1234.56)},
		{"thousands commas with dot", "1,234,567.89", f(1234567.89)},
		{"grouping spaces", "1 234 567", f(1234567)},
		{"non-breaking spaces", "1 234,5", f(1234.5)},
		{"apostrophe grouping", "1'000'000", f(1000000)},
		{"empty", "", nil},
		{"whitespace", "  ", nil},
		{"sentinel nan", "NaN", nil},
		{"sentinel dash", "-", nil},
		{"sentinel hash na", "#N/A", nil},
		{"text", "not a number", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNumber(tt.in)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
			case *got != *tt.want:
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, *got, *tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	day := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	tests := []struct {
		name string
		in   string
		want *time.Time
	}{
		{"excel serial", "45292", day(2024, time.January, 1)},
		{"excel serial with time fraction", "45292.75", day(2024, time.January, 1)},
		{"day first slashes", "31/01/2024", day(2024, time.January, 31)},
		{"day first wins on ambiguous", "03/04/2024", day(2024, time.April, 3)},
		{"iso", "2024-01-31", day(2024, time.January, 31)},
		{"month first when day impossible", "01/31/2024", day(2024, time.January, 31)},
		{"small serial rejected", "12", nil},
		{"empty", "", nil},
		{"sentinel", "n/a", nil},
		{"garbage", "someday", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.in)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			case !got.Equal(*tt.want):
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsSentinel(t *testing.T) {
	for _, s := range []string{"nan", "NaN", "None", "NULL", "na", "N/A", "#N/A", "#NA", "-", "—", " nan "} {
		if !IsSentinel(s) {
			t.Errorf("IsSentinel(%q) = false", s)
		}
	}
	for _, s := range []string{"0", "n/a value", "nana", ""} {
		if IsSentinel(s) {
			t.Errorf("IsSentinel(%q) = true", s)
		}
	}
}
