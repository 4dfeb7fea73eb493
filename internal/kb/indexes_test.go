package kb

import (
	"strings"
	"testing"
)

func testIndexes(t *testing.T) *Indexes {
	t.Helper()
	idx, err := BuildIndexes(Seed(), strings.ToLower)
	if err != nil {
		t.Fatalf("BuildIndexes: %v", err)
	}
	return idx
}

func TestLookupKind(t *testing.T) {
	idx := testIndexes(t)

	tests := []struct {
		surface string
		kind    EntryKind
		english string
	}{
		{"מזדה", KindMake, "Mazda"},
		{"mazda", KindMake, "Mazda"},
		{"טויוטה", KindMake, "Toyota"},
		{"קורולה", KindModel, "Corolla"},
		{"corolla", KindModel, "Corolla"},
		{"בולם", KindCategory, "Shock Absorber"},
		{"קדמי", KindLocation, "Front"},
	}
	for _, tt := range tests {
		t.Run(tt.surface+"/"+tt.kind.String(), func(t *testing.T) {
			e, ok := idx.LookupKind(tt.surface, tt.kind)
			if !ok {
				t.Fatalf("no %s entry for %q", tt.kind, tt.surface)
			}
			if e.English != tt.english {
				t.Errorf("got %q, want %q", e.English, tt.english)
			}
		})
	}

	if _, ok := idx.LookupKind("קורולה", KindMake); ok {
		t.Error("model surface should not resolve as a make")
	}
	if _, ok := idx.LookupKind("not-in-kb", KindMake); ok {
		t.Error("unknown surface should not resolve")
	}
}

func TestScan(t *testing.T) {
	idx := testIndexes(t)

	hits := idx.Scan("בולם קדמי טויוטה קורולה")
	seen := map[string]bool{}
	for _, h := range hits {
		for _, e := range h.Entries {
			seen[e.Kind.String()+":"+e.English] = true
		}
	}
	for _, want := range []string{
		"category:Shock Absorber",
		"location:Front",
		"make:Toyota",
		"model:Corolla",
	} {
		if !seen[want] {
			t.Errorf("missing hit %s in %v", want, seen)
		}
	}
}

func TestScanWordBoundaries(t *testing.T) {
	idx := testIndexes(t)

	// A surface glued to more letters is not a mention.
	for _, h := range idx.Scan("קורולהX בלבד") {
		for _, e := range h.Entries {
			if e.English == "Corolla" {
				t.Errorf("glued surface matched at %d-%d", h.Start, h.End)
			}
		}
	}

	if hits := idx.Scan(""); hits != nil {
		t.Errorf("empty text should yield no hits, got %d", len(hits))
	}
}

func TestHasModel(t *testing.T) {
	idx := testIndexes(t)

	if !idx.HasModel("Toyota", "Corolla") {
		t.Error("Toyota/Corolla expected")
	}
	if idx.HasModel("Mazda", "Corolla") {
		t.Error("Mazda/Corolla unexpected")
	}
	if idx.HasModel("", "") {
		t.Error("empty pair unexpected")
	}
}

func TestMakesForModelSurface(t *testing.T) {
	idx := testIndexes(t)

	makes := idx.MakesForModelSurface("i20")
	found := false
	for _, m := range makes {
		if m == "Hyundai" {
			found = true
		}
	}
	if !found {
		t.Errorf("i20 should imply Hyundai, got %v", makes)
	}

	if makes := idx.MakesForModelSurface(""); makes != nil {
		t.Errorf("empty token should yield nothing, got %v", makes)
	}
	if makes := idx.MakesForModelSurface("zzzznotamodel"); makes != nil {
		t.Errorf("unknown token should yield nothing, got %v", makes)
	}
}

func TestModelCrossReferences(t *testing.T) {
	idx := testIndexes(t)

	corolla := MakeModel{Make: "Toyota", Model: "Corolla"}
	span, ok := idx.ModelYears[corolla]
	if !ok {
		t.Fatal("Corolla year span missing")
	}
	if span[0] >= span[1] {
		t.Errorf("degenerate span %v", span)
	}

	engines, ok := idx.ModelEngines[corolla]
	if !ok || len(engines) == 0 {
		t.Fatal("Corolla engines missing")
	}
}

func TestModelCrossReferencesKeyedByMake(t *testing.T) {
	// Two models spelled GT under different makes must keep separate
	// year spans.
	k := &KnowledgeBase{
		CarMakes: map[string]*Make{
			"אופל": {English: "Opel", Confidence: 0.9},
			"קיה":  {English: "Kia", Confidence: 0.9},
		},
		CarModels: map[string]*Model{
			"ג'יטי":  {English: "GT", Make: "Opel", Confidence: 0.9, PopularYears: []int{2007, 2010}},
			"סטינגר": {English: "GT", Make: "Kia", Confidence: 0.9, PopularYears: []int{2017, 2023}},
		},
	}
	idx, err := BuildIndexes(k, strings.ToLower)
	if err != nil {
		t.Fatalf("BuildIndexes: %v", err)
	}

	opel, ok := idx.ModelYears[MakeModel{Make: "Opel", Model: "GT"}]
	if !ok || opel != [2]int{2007, 2010} {
		t.Errorf("Opel GT span = %v, %v", opel, ok)
	}
	kia, ok := idx.ModelYears[MakeModel{Make: "Kia", Model: "GT"}]
	if !ok || kia != [2]int{2017, 2023} {
		t.Errorf("Kia GT span = %v, %v", kia, ok)
	}
}
