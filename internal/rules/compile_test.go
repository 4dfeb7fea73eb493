package rules

import (
	"strings"
	"testing"

	"github.com/ozparts/partlex/internal/kb"
)

func compileSeed(t *testing.T) *Set {
	t.Helper()
	k := kb.Seed()
	idx, err := kb.BuildIndexes(k, strings.ToLower)
	if err != nil {
		t.Fatalf("BuildIndexes: %v", err)
	}
	set, err := Compile(k, idx, 2026)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return set
}

func TestCompileCoversAllFields(t *testing.T) {
	set := compileSeed(t)

	for _, f := range []Field{
		FieldYear, FieldMake, FieldModel, FieldCategory,
		FieldEngineCode, FieldLocation, FieldDrive,
		FieldDimensions, FieldPartNumber,
	} {
		if len(set.ForField(f)) == 0 {
			t.Errorf("no rules compiled for field %s", f)
		}
	}

	for _, name := range []string{
		"engine_displacement", "drive_type", "dimensions",
		"part_number", "hyundai_i_models", "filter_abbreviation",
		"year_from_to", "year_from", "year_to",
		// Declarative patterns from the knowledge base.
		"year_range", "single_year", "displacement", "specific_model",
		"wheel_drive", "brake_disc_size", "thread_size", "part_dimensions",
	} {
		if set.Named(name) == nil {
			t.Errorf("rule %q missing", name)
		}
	}
}

func TestCompileUniqueRuleNames(t *testing.T) {
	set := compileSeed(t)

	// The seed carries two categories both named Filter in English; names
	// must still be unique or byName lookups and the stat carry-over on
	// recompile attach to the wrong rule.
	seen := map[string]bool{}
	for _, r := range set.All {
		if seen[r.Name] {
			t.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true
	}
}

func TestCompilePriorityOrder(t *testing.T) {
	set := compileSeed(t)

	for _, f := range []Field{FieldModel, FieldCategory} {
		rs := set.ForField(f)
		for i := 1; i < len(rs); i++ {
			if rs[i-1].Priority < rs[i].Priority {
				t.Fatalf("field %s rules out of order: %q(p%d) before %q(p%d)",
					f, rs[i-1].Name, rs[i-1].Priority, rs[i].Name, rs[i].Priority)
			}
		}
	}

	// Pair rules must outrank solo model rules.
	var pair, solo *Rule
	for _, r := range set.ForField(FieldModel) {
		if r.Pair && pair == nil {
			pair = r
		}
		if !r.Pair && r.Name != "hyundai_i_models" && solo == nil {
			solo = r
		}
	}
	if pair == nil || solo == nil {
		t.Fatal("expected both pair and solo model rules")
	}
	if pair.Priority <= solo.Priority {
		t.Errorf("pair priority %d not above solo priority %d", pair.Priority, solo.Priority)
	}
}

func TestCompiledMakeRule(t *testing.T) {
	set := compileSeed(t)

	found := ""
	for _, r := range set.ForField(FieldMake) {
		if len(r.Match("בולם קדמי מזדה 3")) > 0 {
			found = r.Value
			break
		}
	}
	if found != "Mazda" {
		t.Errorf("make rule value = %q, want Mazda", found)
	}
}

func TestCompiledPairRule(t *testing.T) {
	set := compileSeed(t)

	for _, r := range set.ForField(FieldModel) {
		if !r.Pair {
			continue
		}
		if len(r.Match("פ.שמן טויוטה קורולה מ05")) > 0 {
			if r.Value != "Corolla" || r.Extra != "Toyota" {
				t.Errorf("pair rule = %q/%q, want Corolla/Toyota", r.Value, r.Extra)
			}
			return
		}
	}
	t.Error("no pair rule fired for make+model text")
}

func TestCompiledEngineCodeRuleIsCaseInsensitive(t *testing.T) {
	set := compileSeed(t)

	hit := func(text string) string {
		for _, r := range set.ForField(FieldEngineCode) {
			if len(r.Match(text)) > 0 {
				return r.Value
			}
		}
		return ""
	}
	// Rules run over folded text, so the lowercase form must match.
	if got := hit("משאבת מים cbz"); got != "CBZ" {
		t.Errorf("lowercase code hit = %q, want CBZ", got)
	}
	if got := hit("משאבת מים"); got != "" {
		t.Errorf("unexpected engine code %q", got)
	}
}

func TestCompiledDriveRule(t *testing.T) {
	set := compileSeed(t)
	r := set.Named("drive_type")

	ms := r.Match("ציריה 4x4 ימין")
	if len(ms) == 0 {
		t.Fatal("4x4 not matched")
	}
	if got := strings.ToUpper(ms[0][1]); got != "4X4" {
		t.Errorf("capture = %q", got)
	}
	if len(r.Match("גלגל 6x6")) != 0 {
		t.Error("6x6 accepted")
	}
}

func TestCompiledFilterAbbreviation(t *testing.T) {
	set := compileSeed(t)
	r := set.Named("filter_abbreviation")

	ms := r.Match("פ.שמן טויוטה")
	if len(ms) == 0 {
		t.Fatal("glued filter abbreviation not matched")
	}
	if ms[0][1] != "שמן" {
		t.Errorf("capture = %q, want שמן", ms[0][1])
	}
}

func TestCompiledDimensionsRule(t *testing.T) {
	set := compileSeed(t)
	r := set.Named("dimensions")

	ms := r.Match("רדיאטור 600x400x26")
	if len(ms) == 0 {
		t.Fatal("dimensions not matched")
	}
	m := ms[0]
	if m[1] != "600" || m[2] != "400" || m[3] != "26" {
		t.Errorf("captures = %v", m[1:])
	}
}

func TestCompiledPartNumberRule(t *testing.T) {
	set := compileSeed(t)
	r := set.Named("part_number")

	ms := r.Match("בולם OEM 48510-80741")
	if len(ms) == 0 {
		t.Fatal("part number not matched")
	}
	if ms[0][1] != "48510-80741" {
		t.Errorf("capture = %q", ms[0][1])
	}
}
