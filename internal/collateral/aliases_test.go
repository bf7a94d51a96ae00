package collateral

import (
	"strings"
	"testing"
)

func TestParseAliases(t *testing.T) {
	doc := `
# counterparty aliases
BANK OF AMERICA NA = BOFA
Bank of America : BOFA
BNPP	BNP PARIBAS
GOLDMAN = GS  # inline comment

=
bare line without separator
`
	table, err := ParseAliases(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseAliases failed: %v", err)
	}
	tests := []struct {
		in   string
		want string
	}{
		{"BANK OF AMERICA NA", "BOFA"},
		{"bank of america na", "BOFA"},
		{"Bank of America", "BOFA"},
		{"BNPP", "BNP PARIBAS"},
		{"GOLDMAN", "GS"},
		// canonical spellings map to themselves
		{"bofa", "BOFA"},
		{"gs", "GS"},
		// unmapped labels pass through upper-cased
		{"Soc Gen", "SOC GEN"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := table.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadAliasesMissingFileIsEmpty(t *testing.T) {
	table, err := LoadAliases("/nonexistent/aliases.txt")
	if err != nil {
		t.Fatalf("LoadAliases failed: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
	if got := table.Normalize("abc"); got != "ABC" {
		t.Errorf("Normalize(abc) = %q, want ABC", got)
	}
}
