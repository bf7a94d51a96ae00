// Package collateral reconciles the filled template's counterparty exposure
// against the third-party collateral report: both sides are aggregated on an
// alias-normalized (counterparty, typology) key, outer-joined, and compared
// measure by measure.
package collateral

import (
	"bufio"
	"io"
	"os"
	"strings"

	apperrors "ift-reporting-service/pkg/errors"
)

// AliasTable maps label spellings to a canonical form. Lookup is
// case-insensitive; labels with no alias pass through upper-cased.
type AliasTable struct {
	entries map[string]string
}

// NewAliasTable returns an empty table, which normalizes by upper-casing only
func NewAliasTable() *AliasTable {
	return &AliasTable{entries: make(map[string]string)}
}

// LoadAliases reads an alias file. The file is optional: a missing path
// yields an empty table, not an error.
func LoadAliases(path string) (*AliasTable, error) {
	if path == "" {
		return NewAliasTable(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewAliasTable(), nil
		}
		return nil, apperrors.FileError(apperrors.CodeFilePermission, path, err)
	}
	defer f.Close()
	return ParseAliases(f)
}

// ParseAliases reads a line-oriented alias table: one "alias = canonical"
// per line, with ":" or a tab accepted as separator. Lines starting with "#"
// and inline "#" comments are ignored. Each canonical maps to itself so
// canonical spellings survive normalization unchanged.
func ParseAliases(r io.Reader) (*AliasTable, error) {
	table := NewAliasTable()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		alias, canonical, ok := splitAliasLine(line)
		if !ok {
			continue
		}
		table.entries[strings.ToLower(alias)] = canonical
		table.entries[strings.ToLower(canonical)] = canonical
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileCorrupted, "alias table", err)
	}
	return table, nil
}

func splitAliasLine(line string) (alias, canonical string, ok bool) {
	for _, sep := range []string{"=", ":", "\t"} {
		if i := strings.Index(line, sep); i >= 0 {
			alias = strings.TrimSpace(line[:i])
			canonical = strings.TrimSpace(line[i+len(sep):])
			return alias, canonical, alias != "" && canonical != ""
		}
	}
	return "", "", false
}

// Normalize maps a label to its canonical form: the alias entry when one
// exists, the trimmed upper-case spelling otherwise.
func (a *AliasTable) Normalize(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	if canonical, ok := a.entries[strings.ToLower(label)]; ok {
		return canonical
	}
	return strings.ToUpper(label)
}

// Len returns the number of alias entries
func (a *AliasTable) Len() int {
	return len(a.entries)
}
