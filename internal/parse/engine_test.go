package parse

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ozparts/partlex/internal/kb"
	"github.com/ozparts/partlex/internal/rules"
)

func newTestEngine(t *testing.T, caps Capabilities) *Engine {
	t.Helper()
	e, err := New(kb.Seed(), caps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func mustParse(t *testing.T, e *Engine, line string) *Record {
	t.Helper()
	rec, err := e.Parse(context.Background(), line)
	if err != nil {
		t.Fatalf("Parse(%q): %v", line, err)
	}
	if rec == nil {
		t.Fatalf("Parse(%q) returned nil", line)
	}
	return rec
}

func TestParseShockAbsorberLine(t *testing.T) {
	e := newTestEngine(t, Capabilities{})
	rec := mustParse(t, e, "בולם קדמי ימין מזדה 3")

	if rec.CarMake != "Mazda" {
		t.Errorf("CarMake = %q, want Mazda", rec.CarMake)
	}
	if rec.CarModel != "3" {
		t.Errorf("CarModel = %q, want 3", rec.CarModel)
	}
	if rec.Category != "Shock Absorber" {
		t.Errorf("Category = %q, want Shock Absorber", rec.Category)
	}
	if rec.Location != "Front" {
		t.Errorf("Location = %q, want Front", rec.Location)
	}
	if rec.Side != "Right" {
		t.Errorf("Side = %q, want Right", rec.Side)
	}
	if rec.YearFrom != 0 || rec.YearTo != 0 {
		t.Errorf("unexpected years %d-%d", rec.YearFrom, rec.YearTo)
	}
	if rec.ConfidenceScore <= 0 || rec.ConfidenceScore > 1 {
		t.Errorf("ConfidenceScore = %v out of range", rec.ConfidenceScore)
	}
	if rec.ExtractionMethod != ExtractionMethod {
		t.Errorf("ExtractionMethod = %q", rec.ExtractionMethod)
	}
}

func TestParseFilterWithYearRange(t *testing.T) {
	e := newTestEngine(t, Capabilities{})
	rec := mustParse(t, e, "פ.שמן טויוטה קורולה מ05 עד10")

	if rec.CarMake != "Toyota" {
		t.Errorf("CarMake = %q, want Toyota", rec.CarMake)
	}
	if rec.CarModel != "Corolla" {
		t.Errorf("CarModel = %q, want Corolla", rec.CarModel)
	}
	// The glued filter shorthand IS the category, not a generic filter.
	if rec.Category != "Oil Filter" {
		t.Errorf("Category = %q, want Oil Filter", rec.Category)
	}
	if rec.YearFrom != 2005 {
		t.Errorf("YearFrom = %d, want 2005", rec.YearFrom)
	}
	if rec.YearTo != 2010 {
		t.Errorf("YearTo = %d, want 2010", rec.YearTo)
	}
	if rec.ConfidenceScore < 0.5 {
		t.Errorf("ConfidenceScore = %v, expected a confident parse", rec.ConfidenceScore)
	}

	var factors map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rec.ConfidenceFactors), &factors); err != nil {
		t.Fatalf("confidence factors not valid JSON: %v", err)
	}
	for _, key := range []string{"car_make", "car_model", "category", "compatibility_checks"} {
		if _, ok := factors[key]; !ok {
			t.Errorf("confidence factors missing %q", key)
		}
	}
}

func TestParseModelImpliesMake(t *testing.T) {
	e := newTestEngine(t, Capabilities{})
	rec := mustParse(t, e, "I20")

	if rec.CarMake != "Hyundai" {
		t.Errorf("CarMake = %q, want Hyundai (inferred from model)", rec.CarMake)
	}
	if rec.CarModel != "i20" {
		t.Errorf("CarModel = %q, want i20", rec.CarModel)
	}
}

func TestParseImplausibleDisplacementRejected(t *testing.T) {
	e := newTestEngine(t, Capabilities{})

	rec := mustParse(t, e, "נפח 0.5")
	if rec.EngineDisplacement != "" {
		t.Errorf("implausible displacement accepted: %q", rec.EngineDisplacement)
	}

	rec = mustParse(t, e, "אטם ראש נפח 1.6")
	if rec.EngineDisplacement != "1.6" {
		t.Errorf("EngineDisplacement = %q, want 1.6", rec.EngineDisplacement)
	}
	var specs map[string]string
	if err := json.Unmarshal([]byte(rec.TechnicalSpecs), &specs); err != nil {
		t.Fatalf("technical specs not valid JSON: %v", err)
	}
	if specs["displacement"] != "1.6L" {
		t.Errorf("technical specs displacement = %q", specs["displacement"])
	}
}

func TestParseEngineCodeFillsDisplacement(t *testing.T) {
	e := newTestEngine(t, Capabilities{})
	rec := mustParse(t, e, "מ.מים גולף CBZ")

	if rec.EngineCode != "CBZ" {
		t.Errorf("EngineCode = %q, want CBZ", rec.EngineCode)
	}
	if rec.EngineDisplacement != "1.2" {
		t.Errorf("EngineDisplacement = %q, want 1.2 (from code)", rec.EngineDisplacement)
	}
}

func TestParseDriveAndPartNumber(t *testing.T) {
	e := newTestEngine(t, Capabilities{})
	rec := mustParse(t, e, "ציריה 4x4 סוזוקי SX4 חלק 48510-80741")

	if rec.DriveType != "4X4" {
		t.Errorf("DriveType = %q, want 4X4", rec.DriveType)
	}
	if rec.PartNumber != "48510-80741" {
		t.Errorf("PartNumber = %q", rec.PartNumber)
	}
	if rec.CarMake != "Suzuki" {
		t.Errorf("CarMake = %q, want Suzuki", rec.CarMake)
	}
}

func TestParseEmptyLine(t *testing.T) {
	e := newTestEngine(t, Capabilities{})
	for _, line := range []string{"", "   ", "\t\n"} {
		rec, err := e.Parse(context.Background(), line)
		if err != nil {
			t.Fatalf("Parse(%q): %v", line, err)
		}
		if rec != nil {
			t.Errorf("Parse(%q) = %+v, want nil", line, rec)
		}
	}
}

func TestParseCacheReturnsCopies(t *testing.T) {
	e := newTestEngine(t, Capabilities{})

	first := mustParse(t, e, "בולם קדמי מזדה 3")
	first.CarMake = "corrupted"

	second := mustParse(t, e, "בולם קדמי מזדה 3")
	if second.CarMake != "Mazda" {
		t.Errorf("cache entry was mutated through the returned pointer: %q", second.CarMake)
	}

	e.InvalidateCache()
	third := mustParse(t, e, "בולם קדמי מזדה 3")
	if third.CarMake != "Mazda" {
		t.Errorf("reparse after invalidation = %q", third.CarMake)
	}
}

func TestParseResidualStripsRecognizedSurfaces(t *testing.T) {
	e := newTestEngine(t, Capabilities{})
	rec := mustParse(t, e, "בולם קדמי ימין מזדה 3 מקורי")

	for _, recognized := range []string{"בולם", "קדמי", "ימין", "מזדה"} {
		if strings.Contains(rec.AdditionalInfo, recognized) {
			t.Errorf("residual %q still contains %q", rec.AdditionalInfo, recognized)
		}
	}
	if !strings.Contains(rec.AdditionalInfo, "מקורי") {
		t.Errorf("residual %q lost free text", rec.AdditionalInfo)
	}
}

func TestParseYearEdgeCases(t *testing.T) {
	e := newTestEngine(t, Capabilities{})

	tests := []struct {
		name     string
		line     string
		from, to int
	}{
		{"lone to-year synthesizes from", "בולם עד 10", 1995, 2010},
		{"century straddle", "פ.אויר גולף מ98 עד03", 1998, 2003},
		{"from only", "רדיאטור קורולה מ12", 2012, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mustParse(t, e, tt.line)
			if rec.YearFrom != tt.from || rec.YearTo != tt.to {
				t.Errorf("years = %d-%d, want %d-%d",
					rec.YearFrom, rec.YearTo, tt.from, tt.to)
			}
		})
	}
}

func TestParseYearWordMarkers(t *testing.T) {
	e := newTestEngine(t, Capabilities{})

	tests := []struct {
		name     string
		line     string
		from, to int
	}{
		{"range with model marker", "בולם מודל 05 עד 10", 2005, 2010},
		{"single year with shnat marker", "מזדה 3 שנת 2010", 2010, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mustParse(t, e, tt.line)
			if rec.YearFrom != tt.from || rec.YearTo != tt.to {
				t.Errorf("years = %d-%d, want %d-%d",
					rec.YearFrom, rec.YearTo, tt.from, tt.to)
			}
		})
	}
}

func TestParseUpdatesRuleStatistics(t *testing.T) {
	e := newTestEngine(t, Capabilities{})

	lines := map[string]string{
		"year_range":          "פ.שמן טויוטה קורולה מ05 עד10",
		"filter_abbreviation": "פ.שמן טויוטה קורולה מ05 עד10",
		"hyundai_i_models":    "יונדאי i22 קדמי",
		"wheel_drive":         "ציריה 4x4 סוזוקי",
		"brake_disc_size":     `דסקיות קדמי 280 מ"מ`,
	}
	for _, line := range lines {
		mustParse(t, e, line)
	}
	for name := range lines {
		r := e.RuleSet().Named(name)
		if r == nil {
			t.Errorf("rule %q missing", name)
			continue
		}
		if r.MatchCount == 0 {
			t.Errorf("rule %q never counted a match", name)
		}
	}
}

func TestParseBrakeDiscAndThreadSpecs(t *testing.T) {
	e := newTestEngine(t, Capabilities{})

	rec := mustParse(t, e, `דסקיות קדמי 280 מ"מ`)
	var specs map[string]string
	if err := json.Unmarshal([]byte(rec.TechnicalSpecs), &specs); err != nil {
		t.Fatalf("technical specs not valid JSON: %v", err)
	}
	if specs["disc_diameter"] != "280mm" {
		t.Errorf("disc_diameter = %q, want 280mm", specs["disc_diameter"])
	}

	// 500mm is no plausible disc; the validator drops it.
	rec = mustParse(t, e, `דסקיות 500 מ"מ`)
	if strings.Contains(rec.TechnicalSpecs, "disc_diameter") {
		t.Errorf("implausible disc diameter recorded: %s", rec.TechnicalSpecs)
	}

	rec = mustParse(t, e, "בורג M8x1.25")
	specs = nil
	if err := json.Unmarshal([]byte(rec.TechnicalSpecs), &specs); err != nil {
		t.Fatalf("technical specs not valid JSON: %v", err)
	}
	if specs["thread_size"] != "M8x1.25" {
		t.Errorf("thread_size = %q, want M8x1.25", specs["thread_size"])
	}
}

func TestParseSpecialPatternEditTakesEffect(t *testing.T) {
	e := newTestEngine(t, Capabilities{})

	if rec := mustParse(t, e, "בולם שנתון 05"); rec.YearFrom != 0 {
		t.Fatalf("unexpected year %d before knowledge edit", rec.YearFrom)
	}

	// Teach the persisted year pattern a new from-marker; the compiled
	// rule set must follow the knowledge base.
	k := e.Knowledge().Clone()
	for i, sp := range k.SpecialPatterns {
		if sp.Name == "year_range" {
			k.SpecialPatterns[i].Regex = `(?:מ|מודל\s*|משנת\s*|שנתון\s*)(\d{2})[-\s]?(?:עד|ו|-)?\s*(?:שנת\s*)?(\d{2})?`
		}
	}
	if err := e.ReloadKnowledge(k); err != nil {
		t.Fatalf("ReloadKnowledge: %v", err)
	}

	if rec := mustParse(t, e, "בולם שנתון 05"); rec.YearFrom != 2005 {
		t.Errorf("YearFrom = %d after knowledge edit, want 2005", rec.YearFrom)
	}
}

func TestParseModelCode(t *testing.T) {
	e := newTestEngine(t, Capabilities{})

	rec := mustParse(t, e, "פנס אחורי דגם W204")
	if rec.CarModel != "W204" {
		t.Errorf("CarModel = %q, want W204", rec.CarModel)
	}

	// A bare number after the marker is a year, never a model code.
	rec = mustParse(t, e, "בולם מודל 2010")
	if rec.CarModel == "2010" {
		t.Error("numeric year extracted as a model code")
	}
}

func TestReloadKnowledgeFlushesCache(t *testing.T) {
	e := newTestEngine(t, Capabilities{})
	mustParse(t, e, "בולם חדשמות קדמי")

	k := e.Knowledge()
	k.CarMakes["חדשמות"] = &kb.Make{
		English: "Novacar", Confidence: 0.9, Aliases: []string{"novacar"},
	}
	if err := e.ReloadKnowledge(k); err != nil {
		t.Fatalf("ReloadKnowledge: %v", err)
	}

	rec := mustParse(t, e, "בולם חדשמות קדמי")
	if rec.CarMake != "Novacar" {
		t.Errorf("CarMake = %q, want newly learned Novacar", rec.CarMake)
	}
}

func TestRecordFalsePositiveLowersPrecision(t *testing.T) {
	e := newTestEngine(t, Capabilities{})

	var target *rules.Rule
	for _, r := range e.RuleSet().ForField(rules.FieldCategory) {
		if r.Value == "Brake Pads" {
			target = r
			break
		}
	}
	if target == nil {
		t.Fatal("category rule missing")
	}
	if len(target.Match("רפידות קדמי")) == 0 {
		t.Fatal("category rule did not match its own surface")
	}

	before := target.Precision()
	if n := e.RecordFalsePositive(rules.FieldCategory, "Brake Pads"); n == 0 {
		t.Fatal("no rules penalized")
	}
	if after := target.Precision(); after >= before {
		t.Errorf("precision did not drop: %v -> %v", before, after)
	}
}

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func TestParseEmbeddingFallback(t *testing.T) {
	emb := fakeEmbedder{vectors: map[string][]float32{
		"מאזדע": {1, 0},    // the unknown spelling being parsed
		"מזדה":  {0.95, 0.3}, // close to the Mazda surface form
	}}
	e := newTestEngine(t, Capabilities{Embedder: emb})

	rec := mustParse(t, e, "מאזדע")
	if rec.CarMake != "Mazda" {
		t.Errorf("CarMake = %q, want Mazda via embedding", rec.CarMake)
	}

	var factors map[string]struct {
		ExtractionMethod string `json:"extraction_method"`
	}
	if err := json.Unmarshal([]byte(rec.ConfidenceFactors), &factors); err != nil {
		t.Fatalf("factors: %v", err)
	}
	if got := factors["car_make"].ExtractionMethod; got != "word_embedding" {
		t.Errorf("car_make method = %q, want word_embedding", got)
	}
}

type fakeClassifier struct {
	category   string
	confidence float64
}

func (f fakeClassifier) Classify(string) (string, float64, error) {
	return f.category, f.confidence, nil
}

func TestParseClassifierFallback(t *testing.T) {
	t.Run("confident classification used", func(t *testing.T) {
		e := newTestEngine(t, Capabilities{Classifier: fakeClassifier{"Brakes", 0.9}})
		rec := mustParse(t, e, "חלק עלום")
		if rec.Category != "Brakes" {
			t.Errorf("Category = %q, want Brakes", rec.Category)
		}
	})
	t.Run("weak classification ignored", func(t *testing.T) {
		e := newTestEngine(t, Capabilities{Classifier: fakeClassifier{"Brakes", 0.4}})
		rec := mustParse(t, e, "חלק עלום")
		if rec.Category != "" {
			t.Errorf("Category = %q, want empty", rec.Category)
		}
	})
}

func TestConfidenceBounds(t *testing.T) {
	e := newTestEngine(t, Capabilities{})
	lines := []string{
		"בולם קדמי ימין מזדה 3",
		"פ.שמן טויוטה קורולה מ05 עד10",
		"טקסט חופשי לגמרי",
		"I20",
		"נפח 0.5",
		"רדיאטור 600x400x26 גולף TDI",
	}
	for _, line := range lines {
		rec := mustParse(t, e, line)
		if rec.ConfidenceScore < 0 || rec.ConfidenceScore > 1 {
			t.Errorf("Parse(%q) confidence %v out of [0,1]", line, rec.ConfidenceScore)
		}
	}
}

func TestYearModelCompatibility(t *testing.T) {
	e := newTestEngine(t, Capabilities{})

	// Identical structure; only the from-year moves in and out of the
	// Corolla production window.
	inWindow := mustParse(t, e, "בולם טויוטה קורולה מ05")
	outOfWindow := mustParse(t, e, "בולם טויוטה קורולה מ88")

	if inWindow.YearFrom != 2005 || outOfWindow.YearFrom != 1988 {
		t.Fatalf("unexpected years %d / %d", inWindow.YearFrom, outOfWindow.YearFrom)
	}
	if outOfWindow.ConfidenceScore >= inWindow.ConfidenceScore {
		t.Errorf("out-of-window year (%v) not below in-window year (%v)",
			outOfWindow.ConfidenceScore, inWindow.ConfidenceScore)
	}
}
