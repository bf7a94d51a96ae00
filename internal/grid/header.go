package grid

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultSearchWindow is how many leading rows are scanned for a header row
const DefaultSearchWindow = 12

// fallbackHeaderIndex is the 0-based header row used when no scanned row
// matches the vocabulary at all (Excel row 6). Malformed files still produce
// some table instead of failing the whole run.
const fallbackHeaderIndex = 5

// Vocabulary is the closed set of expected header tokens for this report
// family, keyed by normalized label.
type Vocabulary map[string]struct{}

// NewVocabulary builds a vocabulary from raw labels
func NewVocabulary(labels []string) Vocabulary {
	v := make(Vocabulary, len(labels))
	for _, l := range labels {
		v[Norm(l)] = struct{}{}
	}
	return v
}

// Contains reports whether the normalized label belongs to the vocabulary
func (v Vocabulary) Contains(label string) bool {
	_, ok := v[Norm(label)]
	return ok
}

// DefaultVocabulary lists the field names known to appear in trade-extract
// headers of this report family.
var DefaultVocabulary = NewVocabulary([]string{
	"#Ticket", "Trade ID", "External Id", "Counterparty", "Currency", "Class",
	"Custom Attribute5 Value", "Leg Type", "Pay/Rec", "Index/Fixed Rate",
	"Spread (bp)", "Start Date", "End Date", "Notional",
	"Dirty Value", "Clean Value", "Accrued Interest",
})

// scoreRow counts how many cells of a row match the vocabulary
func scoreRow(cells []string, vocab Vocabulary) int {
	score := 0
	for _, c := range cells {
		if c == "" {
			continue
		}
		if vocab.Contains(c) {
			score++
		}
	}
	return score
}

// flattenTwoRows merges a two-row header: the lower row's text wins where it
// is non-empty, else the upper row's text.
func flattenTwoRows(upper, lower []string) []string {
	n := len(upper)
	if len(lower) > n {
		n = len(lower)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		var a, b string
		if i < len(upper) {
			a = strings.TrimSpace(upper[i])
		}
		if i < len(lower) {
			b = strings.TrimSpace(lower[i])
		}
		if b != "" {
			out[i] = b
		} else {
			out[i] = a
		}
	}
	return out
}

// cleanHeaderLabel blanks empty and placeholder header text
func cleanHeaderLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" || strings.HasPrefix(strings.ToLower(label), "unnamed") {
		return ""
	}
	return label
}

// Resolve finds the most plausible header row(s) of a raw grid and returns
// the typed body table. Rows in the first window rows are scored against the
// vocabulary; the best score wins with ties broken by the earliest row. A
// two-row header (best row flattened with the next) is preferred only when it
// scores strictly higher. When every candidate row scores zero the resolver
// degrades to the fixed fallback header row instead of failing.
func Resolve(g RawGrid, file string, vocab Vocabulary, window int) *Table {
	t, _ := resolve(g, file, vocab, window, false)
	return t
}

// ResolveWithPositions is Resolve plus a map from original Excel column
// letters to resolved column names. Letters index the original spreadsheet
// geometry: pruning of empty columns never shifts them.
func ResolveWithPositions(g RawGrid, file string, vocab Vocabulary, window int) (*Table, LetterMap) {
	return resolve(g, file, vocab, window, true)
}

func resolve(g RawGrid, file string, vocab Vocabulary, window int, withLetters bool) (*Table, LetterMap) {
	if vocab == nil {
		vocab = DefaultVocabulary
	}
	if window <= 0 {
		window = DefaultSearchWindow
	}
	if window > len(g) {
		window = len(g)
	}

	bestScore, bestRow := 0, -1
	for r := 0; r < window; r++ {
		if s := scoreRow(g[r], vocab); s > bestScore {
			bestScore, bestRow = s, r
		}
	}

	var header []string
	var bodyStart int
	if bestRow == -1 {
		// Every candidate scored zero: degrade to the fixed default row.
		header = trimmedRow(g, fallbackHeaderIndex)
		bodyStart = fallbackHeaderIndex + 1
	} else {
		single := trimmedRow(g, bestRow)
		singleScore := scoreRow(single, vocab)
		header = single
		bodyStart = bestRow + 1
		if bestRow+1 < len(g) {
			two := flattenTwoRows(g[bestRow], g[bestRow+1])
			if scoreRow(two, vocab) > singleScore {
				header = two
				bodyStart = bestRow + 2
			}
		}
	}

	width := len(header)
	if w := g.width(bodyStart, len(g)); w > width {
		width = w
	}

	labels := make([]string, width)
	for j := 0; j < width; j++ {
		if j < len(header) {
			labels[j] = cleanHeaderLabel(header[j])
		}
	}

	// Drop columns that are empty across the entire body; remember the
	// original position of every kept column for letter addressing.
	var keptIdx []int
	var keptLabels []string
	for j := 0; j < width; j++ {
		empty := true
		for r := bodyStart; r < len(g); r++ {
			if strings.TrimSpace(g.cellAt(r, j)) != "" {
				empty = false
				break
			}
		}
		if empty && len(g) > bodyStart {
			continue
		}
		keptIdx = append(keptIdx, j)
		keptLabels = append(keptLabels, labels[j])
	}

	finalLabels := LabelDuplicateColumns(keptLabels)

	var letters LetterMap
	if withLetters {
		letters = make(LetterMap, len(keptIdx))
		for k, j := range keptIdx {
			letter, err := excelize.ColumnNumberToName(j + 1)
			if err != nil {
				continue
			}
			letters[strings.ToUpper(letter)] = finalLabels[k]
		}
	}

	table := &Table{File: file, Columns: finalLabels}
	for r := bodyStart; r < len(g); r++ {
		if IsEmptyRow(g[r]) {
			continue
		}
		values := make(map[string]string, len(keptIdx))
		for k, j := range keptIdx {
			if name := finalLabels[k]; name != "" {
				values[name] = g.cellAt(r, j)
			}
		}
		table.Rows = append(table.Rows, Row{File: file, Values: values})
	}
	return table, letters
}

func trimmedRow(g RawGrid, idx int) []string {
	if idx < 0 || idx >= len(g) {
		return nil
	}
	out := make([]string, len(g[idx]))
	for i, c := range g[idx] {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
