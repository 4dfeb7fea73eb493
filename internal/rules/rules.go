// Package rules holds the compiled pattern-rule set: static regex templates
// plus one rule per knowledge-base make, model, category, engine code, and
// location. Each rule is tagged with the record field it extracts and keeps
// lifetime match statistics the feedback loop adjusts.
package rules

import (
	"regexp"
)

// Field is the record field a rule extracts. Dispatch is on this tag, never
// on rule-name prefixes.
type Field int

const (
	FieldSpecial Field = iota
	FieldYear
	FieldMake
	FieldModel
	FieldCategory
	FieldEngineCode
	FieldLocation
	FieldDrive
	FieldDimensions
	FieldPartNumber
)

func (f Field) String() string {
	switch f {
	case FieldYear:
		return "year"
	case FieldMake:
		return "make"
	case FieldModel:
		return "model"
	case FieldCategory:
		return "category"
	case FieldEngineCode:
		return "engine_code"
	case FieldLocation:
		return "location"
	case FieldDrive:
		return "drive_type"
	case FieldDimensions:
		return "dimensions"
	case FieldPartNumber:
		return "part_number"
	default:
		return "special"
	}
}

// Rule is one compiled extraction pattern. Value carries the canonical
// output for dictionary-derived rules (the English make name, say) so the
// extractor never re-parses the rule name; Extra carries a secondary value
// (a model rule's make, a subcategory's parent). MatchCount and
// FalsePositiveCount persist across parses and drive Precision.
type Rule struct {
	Name      string
	Field     Field
	Priority  int
	Value     string
	Extra     string
	Validator Validator
	// Pair marks a combined make+model rule; Value is the model and Extra
	// the make.
	Pair bool

	MatchCount         int
	FalsePositiveCount int

	re *regexp.Regexp
	// bounded rules wrap the expression in a synthetic boundary group;
	// Match strips it so captures keep their authored indices.
	bounded bool
}

// newRule compiles expr as-is.
func newRule(name string, field Field, expr string, priority int) (*Rule, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Rule{Name: name, Field: field, Priority: priority, re: re}, nil
}

// newBoundedRule compiles expr wrapped in word boundaries that work for
// Hebrew. RE2's \b is ASCII-only, so boundaries are spelled out as
// edge-or-non-word-character on both sides.
func newBoundedRule(name string, field Field, expr string, priority int) (*Rule, error) {
	wrapped := `(?:^|[^\p{L}\p{N}_])(` + expr + `)(?:$|[^\p{L}\p{N}_])`
	re, err := regexp.Compile(wrapped)
	if err != nil {
		return nil, err
	}
	return &Rule{Name: name, Field: field, Priority: priority, re: re, bounded: true}, nil
}

// Match runs the rule against already-normalized text and returns every
// validated match as a submatch slice (index 0 is the full match, then the
// capture groups). Validated matches bump MatchCount; matches the validator
// rejects are dropped silently and not counted.
func (r *Rule) Match(text string) [][]string {
	raw := r.re.FindAllStringSubmatch(text, -1)
	if len(raw) == 0 {
		return nil
	}
	out := make([][]string, 0, len(raw))
	for _, m := range raw {
		if r.bounded {
			// Drop the synthetic boundary group: m[1] is the real full
			// match, m[2:] the authored captures.
			m = m[1:]
		}
		if r.Validator != nil && !r.Validator.Validate(m) {
			continue
		}
		r.MatchCount++
		out = append(out, m)
	}
	return out
}

// Precision is the rule's observed hit quality. A rule that has never
// matched sits at 0.5, neither trusted nor distrusted.
func (r *Rule) Precision() float64 {
	if r.MatchCount == 0 {
		return 0.5
	}
	p := 1.0 - float64(r.FalsePositiveCount)/float64(r.MatchCount)
	if p < 0 {
		return 0
	}
	return p
}

// Pattern returns the compiled expression source, for diagnostics.
func (r *Rule) Pattern() string {
	return r.re.String()
}
