// Package workdir knows the production directory's naming conventions:
// which files are trade extracts, where the day's sensis and TriOptima
// deliveries land, and how dated artifacts are tagged. Inputs arrive from
// manual handoffs, so a missing file is reported with the expected name
// pattern and the run is simply re-invoked once the file is supplied.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	apperrors "ift-reporting-service/pkg/errors"
)

// SourcePrefixes are the file-name prefixes of trade extracts in the
// production directory.
var SourcePrefixes = []string{"IR_", "XCY_IR"}

var spreadsheetExts = map[string]struct{}{
	".xls": {}, ".xlsx": {}, ".xlsm": {},
}

// NextBusinessDay returns the next weekday strictly after day
func NextBusinessDay(day time.Time) time.Time {
	d := day.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// ProductionTag formats the date tag embedded in production file names
func ProductionTag(day time.Time) string {
	return day.Format("01022006")
}

// ListSourceFiles returns the trade-extract spreadsheets of a production
// directory, sorted by name for deterministic run order.
func ListSourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, dir, err)
		}
		return nil, apperrors.FileError(apperrors.CodeDirectoryError, dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if _, ok := spreadsheetExts[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		for _, prefix := range SourcePrefixes {
			if strings.HasPrefix(name, prefix) {
				files = append(files, filepath.Join(dir, name))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// NonCollidingPath returns path itself when free, otherwise the first
// "name (n).ext" variant that does not exist yet.
func NonCollidingPath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// SensisFile locates the day's sensis delivery: the exact
// "Sensis IFTTool_<ddmmyyyy>" names are tried first, then a glob over any
// sensis workbook in the directory.
func SensisFile(dir string, day time.Time) (string, error) {
	tag := day.Format("02012006")
	for _, ext := range []string{".xlsx", ".xlsm"} {
		exact := filepath.Join(dir, "Sensis IFTTool_"+tag+ext)
		if _, err := os.Stat(exact); err == nil {
			return exact, nil
		}
	}
	for _, pattern := range []string{"Sensis*IFTTool*.xlsx", "Sensis*IFTTool*.xlsm", "Sensis*.xls*"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err == nil && len(matches) > 0 {
			sort.Strings(matches)
			return matches[0], nil
		}
	}
	return "", apperrors.FileError(apperrors.CodeFileNotFound,
		filepath.Join(dir, "Sensis IFTTool_"+tag+".xls[xm]"), os.ErrNotExist)
}

// TriOptimaFile locates the day's TriOptima extract,
// "search_<org>_<yyyy-mm-dd>*.csv".
func TriOptimaFile(dir, org string, day time.Time) (string, error) {
	pattern := fmt.Sprintf("search_%s_%s*.csv", org, day.Format("2006-01-02"))
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err == nil && len(matches) > 0 {
		sort.Strings(matches)
		return matches[0], nil
	}
	return "", apperrors.FileError(apperrors.CodeFileNotFound, filepath.Join(dir, pattern), os.ErrNotExist)
}

// CollateralReport locates the newest "*Report Collatéral.xlsx" in dir,
// newest by modification time.
func CollateralReport(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*Report Collatéral.xlsx"))
	if err != nil || len(matches) == 0 {
		return "", apperrors.FileError(apperrors.CodeFileNotFound,
			filepath.Join(dir, "*Report Collatéral.xlsx"), os.ErrNotExist)
	}
	newest, newestTime := "", time.Time{}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest, newestTime = m, info.ModTime()
		}
	}
	if newest == "" {
		return "", apperrors.FileError(apperrors.CodeFileNotFound, filepath.Join(dir, "*Report Collatéral.xlsx"), os.ErrNotExist)
	}
	return newest, nil
}

var fileDateRe = regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`)

// FileDate extracts the dd-mm-yyyy date embedded in a file name
func FileDate(name string) (time.Time, bool) {
	m := fileDateRe.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("02-01-2006", m[1]+"-"+m[2]+"-"+m[3])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LatestDatedFile picks the file with the most recent embedded dd-mm-yyyy
// date among a directory's spreadsheets matching the glob pattern. Files
// without a date are ignored; ties resolve to the lexically last name.
func LatestDatedFile(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil || len(matches) == 0 {
		return "", apperrors.FileError(apperrors.CodeFileNotFound, filepath.Join(dir, pattern), os.ErrNotExist)
	}
	sort.Strings(matches)
	best, bestDate := "", time.Time{}
	for _, m := range matches {
		d, ok := FileDate(m)
		if !ok {
			continue
		}
		if best == "" || !d.Before(bestDate) {
			best, bestDate = m, d
		}
	}
	if best == "" {
		return "", apperrors.FileError(apperrors.CodeFileNotFound,
			filepath.Join(dir, pattern)+" with a dd-mm-yyyy date", os.ErrNotExist)
	}
	return best, nil
}
