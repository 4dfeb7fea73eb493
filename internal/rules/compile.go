package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ozparts/partlex/internal/kb"
)

// Set is the compiled rule collection, indexed by field and by name.
// Rules within a field are ordered by descending priority, then name, so
// extraction order is deterministic.
type Set struct {
	All []*Rule

	byField map[Field][]*Rule
	byName  map[string]*Rule
}

// ForField returns the field's rules, highest priority first.
func (s *Set) ForField(f Field) []*Rule {
	return s.byField[f]
}

// Named returns the rule with the given name, or nil.
func (s *Set) Named(name string) *Rule {
	return s.byName[name]
}

// Compile builds the full rule set from the knowledge base: the declarative
// special patterns, the static templates, and one literal rule per make,
// make+model pair, standalone model, engine code, category, subcategory,
// and location. models backs make+model pair validation; currentYear bounds
// the year validators.
//
// Rules match against case-folded raw text (the knowledge-base keys are
// stored lowercase; Hebrew is caseless), so literal terms are folded but
// not otherwise normalized.
func Compile(k *kb.KnowledgeBase, models ModelLister, currentYear int) (*Set, error) {
	var all []*Rule

	// Declarative special patterns from the knowledge base. Unknown names
	// compile without a validator.
	specialValidators := map[string]Validator{
		"year_range":      YearRangeValidator{CurrentYear: currentYear},
		"single_year":     YearValidator{CurrentYear: currentYear},
		"displacement":    RangeValidator{Min: 0.6, Max: 8.0},
		"specific_model":  ModelCodeValidator{},
		"wheel_drive":     DriveTypeValidator{},
		"brake_disc_size": IntRangeValidator{Min: 220, Max: 405},
	}
	for _, sp := range k.SpecialPatterns {
		r, err := newRule(sp.Name, FieldSpecial, sp.Regex, 7)
		if err != nil {
			return nil, fmt.Errorf("compiling special pattern %q: %w", sp.Name, err)
		}
		r.Validator = specialValidators[sp.Name]
		all = append(all, r)
	}

	// Year templates.
	yearTemplates := []struct {
		name string
		expr string
		v    Validator
	}{
		{"year_from_to", `(?:מ|מודל|משנת)[-\s]?(\d{2,4})[-\s]?(?:עד|ו|-)[-\s]?(?:שנת)?(\d{2,4})?`,
			YearRangeValidator{CurrentYear: currentYear}},
		{"year_from", `מ(\d{2})`, YearValidator{CurrentYear: currentYear}},
		{"year_to", `עד[-\s]?(\d{2})`, YearValidator{CurrentYear: currentYear}},
	}
	for _, t := range yearTemplates {
		r, err := newRule(t.name, FieldYear, t.expr, 8)
		if err != nil {
			return nil, fmt.Errorf("compiling year rule %q: %w", t.name, err)
		}
		r.Validator = t.v
		all = append(all, r)
	}

	// Engine displacement: the bare-number form. Plausibility is enforced
	// here so "נפח 0.5" never reaches a record.
	r, err := newRule("engine_displacement", FieldSpecial,
		`(?:נפח\s*)?(\d+\.\d+)(?:\s*ליטר)?`, 7)
	if err != nil {
		return nil, fmt.Errorf("compiling displacement rule: %w", err)
	}
	r.Validator = RangeValidator{Min: 0.6, Max: 8.0}
	all = append(all, r)

	// One literal rule per make surface (Hebrew key and English name), and
	// per model both paired with its make and standalone. Rule names embed
	// the KB map key: English names may repeat across entries ("פילטר" and
	// "פ." are both Filter) and duplicate names would shadow each other in
	// byName and cross-wire the stat carry-over on recompile.
	for heb, m := range k.CarMakes {
		for _, surface := range []string{heb, m.English} {
			name := "make_" + heb
			if surface != heb {
				name = "make_eng_" + heb
			}
			r, err := newBoundedRule(name, FieldMake, quoteTerm(surface), 6)
			if err != nil {
				return nil, fmt.Errorf("compiling make rule %q: %w", surface, err)
			}
			r.Value = m.English
			all = append(all, r)
		}

		for modelHeb, md := range k.CarModels {
			if md.Make != m.English {
				continue
			}
			pair, err := newBoundedRule(
				"model_"+heb+"_"+modelHeb, FieldModel,
				quoteTerm(heb)+`\s*\d*\s*`+quoteTerm(modelHeb), 7)
			if err != nil {
				return nil, fmt.Errorf("compiling model rule %q %q: %w", heb, modelHeb, err)
			}
			pair.Value = md.English
			pair.Extra = m.English
			pair.Pair = true
			pair.Validator = MakeModelValidator{Make: m.English, Model: md.English, Models: models}
			all = append(all, pair)

			solo, err := newBoundedRule("model_"+modelHeb, FieldModel, quoteTerm(modelHeb), 5)
			if err != nil {
				return nil, fmt.Errorf("compiling model rule %q: %w", modelHeb, err)
			}
			solo.Value = md.English
			solo.Extra = m.English
			all = append(all, solo)
		}
	}

	// Engine codes are stored uppercase but scanned text is folded, so the
	// literal is matched case-insensitively.
	knownCodes := make(map[string]bool, len(k.EngineCodes))
	for code := range k.EngineCodes {
		knownCodes[code] = true
	}
	for code := range k.EngineCodes {
		r, err := newBoundedRule("engine_code_"+code, FieldEngineCode,
			`(?i:`+quoteTerm(code)+`)`, 7)
		if err != nil {
			return nil, fmt.Errorf("compiling engine code rule %q: %w", code, err)
		}
		r.Value = code
		r.Validator = EngineCodeValidator{Code: code, Known: knownCodes}
		all = append(all, r)
	}

	// Categories and their subcategory refinements.
	for heb, c := range k.PartCategories {
		r, err := newBoundedRule("category_"+heb, FieldCategory, quoteTerm(heb), 6)
		if err != nil {
			return nil, fmt.Errorf("compiling category rule %q: %w", heb, err)
		}
		r.Value = c.English
		all = append(all, r)

		for _, sub := range c.Subcategories {
			r, err := newBoundedRule("category_"+heb+"_"+sub, FieldCategory,
				quoteTerm(heb)+`\s+`+quoteTerm(sub), 7)
			if err != nil {
				return nil, fmt.Errorf("compiling subcategory rule %q %q: %w", heb, sub, err)
			}
			r.Value = c.English
			r.Extra = sub
			all = append(all, r)
		}
	}

	// Drivetrain designations.
	r, err = newBoundedRule("drive_type", FieldDrive,
		`((?i:4x4|4x2|2x4|awd|rwd|fwd))`, 6)
	if err != nil {
		return nil, fmt.Errorf("compiling drive type rule: %w", err)
	}
	r.Validator = DriveTypeValidator{}
	all = append(all, r)

	// Component locations.
	for heb, eng := range k.ComponentLocations {
		r, err := newBoundedRule("location_"+heb, FieldLocation, quoteTerm(heb), 5)
		if err != nil {
			return nil, fmt.Errorf("compiling location rule %q: %w", heb, err)
		}
		r.Value = eng
		all = append(all, r)
	}

	// Hyundai i-series: "i" plus a number in the 10-40 model range.
	r, err = newBoundedRule("hyundai_i_models", FieldModel, `(i)(\d{1,2})`, 7)
	if err != nil {
		return nil, fmt.Errorf("compiling i-model rule: %w", err)
	}
	r.Extra = "Hyundai"
	r.Validator = IntRangeValidator{Min: 10, Max: 40, Group: 2}
	all = append(all, r)

	// Filter abbreviations keep the glued "פ.שמן" surface; the normalizer
	// expands the standalone abbreviation but these compounds are category
	// keys in their own right.
	r, err = newBoundedRule("filter_abbreviation", FieldCategory,
		`פ\.(אויר|שמן|דלק|מזגן|סולר)`, 7)
	if err != nil {
		return nil, fmt.Errorf("compiling filter abbreviation rule: %w", err)
	}
	all = append(all, r)

	// Component-group fallbacks, one per related system.
	groups := []struct {
		name  string
		expr  string
		value string
	}{
		{"suspension_components", `(בולם|קפיץ|משולש|זרוע|מייצב)`, "Suspension"},
		{"brake_components", `(רפידות|דסקיות|צלחות|קליפר)`, "Brakes"},
		{"engine_components", `(אטם|טיימינג|שרשרת|רצועת|מסנן שמן|מנוע)`, "Engine"},
		{"ac_components", `(מזגן|מעבה|מאייד|מפוח)`, "Air Conditioning"},
	}
	for _, g := range groups {
		r, err := newBoundedRule(g.name, FieldCategory, g.expr, 4)
		if err != nil {
			return nil, fmt.Errorf("compiling component group %q: %w", g.name, err)
		}
		r.Value = g.value
		all = append(all, r)
	}

	// Technical specs.
	r, err = newRule("dimensions", FieldDimensions,
		`(\d+(?:\.\d+)?)\s*[x×]\s*(\d+(?:\.\d+)?)(?:\s*[x×]\s*(\d+(?:\.\d+)?))?`, 6)
	if err != nil {
		return nil, fmt.Errorf("compiling dimensions rule: %w", err)
	}
	all = append(all, r)

	// Part numbers are matched against the unfolded line: real reference
	// codes are printed uppercase and folding would drown them in false
	// positives.
	r, err = newRule("part_number", FieldPartNumber,
		`\b([A-Z0-9]{3,}-?[A-Z0-9]{3,})\b`, 6)
	if err != nil {
		return nil, fmt.Errorf("compiling part number rule: %w", err)
	}
	all = append(all, r)

	s := &Set{All: all, byField: make(map[Field][]*Rule), byName: make(map[string]*Rule, len(all))}
	for _, r := range all {
		s.byField[r.Field] = append(s.byField[r.Field], r)
		s.byName[r.Name] = r
	}
	for f := range s.byField {
		rs := s.byField[f]
		sort.SliceStable(rs, func(i, j int) bool {
			if rs[i].Priority != rs[j].Priority {
				return rs[i].Priority > rs[j].Priority
			}
			return rs[i].Name < rs[j].Name
		})
	}
	return s, nil
}

// quoteTerm folds and escapes a knowledge-base literal for embedding in a
// rule expression.
func quoteTerm(term string) string {
	return regexp.QuoteMeta(strings.ToLower(term))
}
