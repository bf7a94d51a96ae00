package grid

import (
	"strconv"
	"strings"
	"time"
)

// sentinel tokens that stand for "no value" when a whole cell equals one of
// them, case-insensitively
var sentinelTokens = map[string]struct{}{
	"nan": {}, "none": {}, "null": {}, "na": {}, "n/a": {},
	"#n/a": {}, "#na": {}, "-": {}, "—": {},
}

// IsSentinel reports whether the trimmed cell text is a null placeholder
func IsSentinel(s string) bool {
	_, ok := sentinelTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// IsBlank reports whether a cell holds no usable value at all
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == "" || IsSentinel(s)
}

// ParseNumber coerces locale-tolerant numeric text to a float, returning nil
// when the cell is blank or cannot be read as a number. Grouping spaces,
// non-breaking spaces and apostrophes are stripped first. A single comma with
// no dot is a decimal comma; otherwise commas are thousands separators.
func ParseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || IsSentinel(s) {
		return nil
	}
	s = strings.NewReplacer(" ", "", " ", "", "'", "").Replace(s)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// excelEpoch is day zero of the 1900 date system, placed so that serial 60
// (the phantom 1900-02-29) is already behind us for the serials we accept.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// textDateLayouts are tried in order: day-first forms before month-first, as
// the files of this report family are produced with European locales.
var textDateLayouts = []string{
	"02/01/2006", "02-01-2006", "02.01.2006",
	"2/1/2006", "2-1-2006",
	"2006-01-02", "2006/01/02",
	"01/02/2006", "1/2/2006",
	"02/01/06", "2/1/06",
	"02 Jan 2006", "2 Jan 2006",
}

// ParseDate coerces a cell to a calendar date. Numeric text above the 1900
// leap-year gap is treated as an Excel serial; anything else goes through
// day-first then month-first text layouts. Returns nil when no reading works.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || IsSentinel(s) {
		return nil
	}
	if f := ParseNumber(s); f != nil && *f > 59 {
		d := excelEpoch.AddDate(0, 0, int(*f))
		frac := *f - float64(int(*f))
		if frac > 0 {
			d = d.Add(time.Duration(frac * float64(24*time.Hour)))
		}
		d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	for _, layout := range textDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}
