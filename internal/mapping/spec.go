// Package mapping loads the declarative column-mapping configuration and
// evaluates it against perimeter rows. The configuration names variables,
// direct column copies and computed arithmetic targets; all per-row
// resolution degrades to null instead of failing.
package mapping

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ift-reporting-service/internal/grid"
	apperrors "ift-reporting-service/pkg/errors"
)

// LegSource addresses a value by base label plus leg slot
type LegSource struct {
	Base string `yaml:"base"`
	Leg  string `yaml:"leg"`
}

// Source is one way of reaching a cell in a perimeter row. Exactly one of
// the three access modes must be set.
type Source struct {
	Letter string     `yaml:"source_letter,omitempty"`
	Name   string     `yaml:"source,omitempty"`
	Leg    *LegSource `yaml:"source_leg,omitempty"`
}

// IsZero reports whether no access mode is set
func (s Source) IsZero() bool {
	return s.Letter == "" && s.Name == "" && s.Leg == nil
}

func (s Source) modes() int {
	n := 0
	if s.Letter != "" {
		n++
	}
	if s.Name != "" {
		n++
	}
	if s.Leg != nil {
		n++
	}
	return n
}

// Target addresses a destination cell either by fixed column letter or by
// header label plus 1-based occurrence among equal labels.
type Target struct {
	Label      string `yaml:"target,omitempty"`
	Occurrence int    `yaml:"target_occurrence,omitempty"`
	Letter     string `yaml:"target_letter,omitempty"`
}

// Column is a direct copy from a source cell to a destination target
type Column struct {
	Target `yaml:",inline"`
	Source `yaml:",inline"`
}

// Computed is an arithmetic target evaluated over the declared variables
type Computed struct {
	Target `yaml:",inline"`
	Expr   string `yaml:"expr"`

	parsed *Expr
}

// Spec is the full mapping document
type Spec struct {
	Sheet     string            `yaml:"sheet"`
	HeaderRow int               `yaml:"header_row"`
	Variables map[string]Source `yaml:"variables"`
	Columns   []Column          `yaml:"columns"`
	Computed  []Computed        `yaml:"computed"`
}

// DefaultHeaderRow is the destination header row assumed when the document
// does not set one (1-based).
const DefaultHeaderRow = 6

// Load reads and validates a mapping document. A malformed document is
// rejected here, before any row processing starts.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, path, err)
		}
		return nil, apperrors.FileError(apperrors.CodeFilePermission, path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a mapping document from memory
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, apperrors.MappingError(apperrors.CodeInvalidMapping, "document", "not valid YAML", err)
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *Spec) validate() error {
	if s.HeaderRow == 0 {
		s.HeaderRow = DefaultHeaderRow
	}
	if s.HeaderRow < 1 {
		return apperrors.MappingError(apperrors.CodeInvalidMapping, "header_row",
			fmt.Sprintf("must be a positive row number, got %d", s.HeaderRow), nil)
	}
	declared := make(map[string]struct{}, len(s.Variables))
	for name, src := range s.Variables {
		if err := validateSource(fmt.Sprintf("variables.%s", name), src); err != nil {
			return err
		}
		declared[strings.ToLower(name)] = struct{}{}
	}
	for i := range s.Columns {
		col := &s.Columns[i]
		where := fmt.Sprintf("columns[%d]", i)
		if err := validateTarget(where, &col.Target); err != nil {
			return err
		}
		if err := validateSource(where, col.Source); err != nil {
			return err
		}
	}
	for i := range s.Computed {
		c := &s.Computed[i]
		where := fmt.Sprintf("computed[%d]", i)
		if err := validateTarget(where, &c.Target); err != nil {
			return err
		}
		if strings.TrimSpace(c.Expr) == "" {
			return apperrors.MappingError(apperrors.CodeBadExpression, where, "empty expr", nil)
		}
		parsed, err := ParseExpr(c.Expr)
		if err != nil {
			return apperrors.MappingError(apperrors.CodeBadExpression, where, c.Expr, err)
		}
		for _, v := range parsed.Vars() {
			if _, ok := declared[v]; !ok {
				return apperrors.MappingError(apperrors.CodeUnknownVariable, where,
					fmt.Sprintf("expression %q references undeclared variable %q", c.Expr, v), nil)
			}
		}
		c.parsed = parsed
	}
	return nil
}

func validateSource(where string, src Source) error {
	switch src.modes() {
	case 0:
		return apperrors.MappingError(apperrors.CodeInvalidMapping, where,
			"one of source_letter, source or source_leg is required", nil)
	case 1:
	default:
		return apperrors.MappingError(apperrors.CodeInvalidMapping, where,
			"source_letter, source and source_leg are mutually exclusive", nil)
	}
	if src.Leg != nil {
		if strings.TrimSpace(src.Leg.Base) == "" {
			return apperrors.MappingError(apperrors.CodeInvalidMapping, where, "source_leg.base is required", nil)
		}
		if _, ok := parseLegName(src.Leg.Leg); !ok {
			return apperrors.MappingError(apperrors.CodeInvalidMapping, where,
				fmt.Sprintf("source_leg.leg %q is not leg1, leg2 or total", src.Leg.Leg), nil)
		}
	}
	return nil
}

func validateTarget(where string, t *Target) error {
	hasLabel := strings.TrimSpace(t.Label) != ""
	hasLetter := strings.TrimSpace(t.Letter) != ""
	if hasLabel == hasLetter {
		return apperrors.MappingError(apperrors.CodeInvalidMapping, where,
			"exactly one of target or target_letter is required", nil)
	}
	if hasLetter && t.Occurrence != 0 {
		return apperrors.MappingError(apperrors.CodeInvalidMapping, where,
			"target_occurrence does not apply to target_letter", nil)
	}
	if hasLabel {
		if t.Occurrence == 0 {
			t.Occurrence = 1
		}
		if t.Occurrence < 1 {
			return apperrors.MappingError(apperrors.CodeInvalidMapping, where,
				fmt.Sprintf("target_occurrence must be >= 1, got %d", t.Occurrence), nil)
		}
	}
	return nil
}

// parseLegName maps the configuration spelling of a leg slot to the grid
// classification.
func parseLegName(s string) (grid.LegSlot, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "leg1", "leg 1", "1":
		return grid.Leg1, true
	case "leg2", "leg 2", "2":
		return grid.Leg2, true
	case "total", "1+2", "sum", "":
		return grid.LegTotal, true
	}
	return grid.LegUnspecified, false
}
