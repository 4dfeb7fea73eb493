package feedback

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ozparts/partlex/internal/kb"
	"github.com/ozparts/partlex/internal/parse"
	"github.com/ozparts/partlex/internal/rules"
	"github.com/ozparts/partlex/internal/store"
)

func testLoop(t *testing.T) (*Loop, *store.Store, *parse.Engine) {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	e, err := parse.New(kb.Seed(), parse.Capabilities{})
	if err != nil {
		t.Fatalf("parse.New: %v", err)
	}

	l := &Loop{
		Store:  s,
		Engine: e,
		KBPath: filepath.Join(t.TempDir(), "kb.json"),
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return l, s, e
}

func addPart(t *testing.T, s *store.Store, r *parse.Record) int64 {
	t.Helper()
	id, err := s.AddPart(context.Background(), r)
	if err != nil {
		t.Fatalf("AddPart: %v", err)
	}
	return id
}

func TestApplyLearnsNewMake(t *testing.T) {
	l, s, e := testLoop(t)
	ctx := context.Background()

	id := addPart(t, s, &parse.Record{
		PartName:         "בולם novacar",
		ExtractionMethod: "hybrid_nlp",
	})

	// The surface is unknown before feedback.
	before, err := e.Parse(ctx, "בולם novacar")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if before.CarMake != "" {
		t.Fatalf("unknown make already resolved to %q", before.CarMake)
	}

	if err := l.Apply(ctx, id, map[string]string{"car_make": "Novacar"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// The stored part was updated.
	got, err := s.GetPart(ctx, id)
	if err != nil {
		t.Fatalf("GetPart: %v", err)
	}
	if got.CarMake != "Novacar" || got.ConfidenceScore != 1.0 {
		t.Errorf("stored part = %q conf %v", got.CarMake, got.ConfidenceScore)
	}

	// The engine learned the make.
	_, m := e.Knowledge().MakeByEnglish("Novacar")
	if m == nil {
		t.Fatal("make not added to knowledge base")
	}
	if !m.AddedFromFeedback || m.Confidence != 0.9 {
		t.Errorf("learned make = %+v", m)
	}

	// The knowledge base was persisted with the new make.
	saved, err := kb.Load(l.KBPath)
	if err != nil {
		t.Fatalf("Load saved KB: %v", err)
	}
	if _, m := saved.MakeByEnglish("Novacar"); m == nil {
		t.Error("saved KB missing learned make")
	}

	// The engine was reloaded and the cache flushed, so the same line
	// now resolves through the learned alias.
	after, err := e.Parse(ctx, "בולם novacar")
	if err != nil {
		t.Fatalf("Parse after feedback: %v", err)
	}
	if after.CarMake != "Novacar" {
		t.Errorf("reparse CarMake = %q, want Novacar", after.CarMake)
	}
}

func TestApplyReconcilesIntoFreshKnowledge(t *testing.T) {
	l, s, e := testLoop(t)
	ctx := context.Background()

	id := addPart(t, s, &parse.Record{PartName: "בולם", ExtractionMethod: "hybrid_nlp"})

	// A snapshot taken before feedback must never change underneath its
	// holder; the loop reconciles into a copy and swaps it in.
	before := e.Knowledge()
	if err := l.Apply(ctx, id, map[string]string{"car_make": "Novacar"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	after := e.Knowledge()
	if after == before {
		t.Fatal("live knowledge base mutated in place")
	}
	if _, m := before.MakeByEnglish("Novacar"); m != nil {
		t.Error("prior snapshot gained the learned make")
	}
	if _, m := after.MakeByEnglish("Novacar"); m == nil {
		t.Error("swapped-in knowledge base missing the learned make")
	}
}

func TestApplyBumpsKnownMake(t *testing.T) {
	l, s, e := testLoop(t)
	ctx := context.Background()

	_, before := e.Knowledge().MakeByEnglish("Toyota")
	if before == nil {
		t.Fatal("Toyota missing from seed")
	}
	wasConf := before.Confidence

	id := addPart(t, s, &parse.Record{PartName: "בולם", ExtractionMethod: "hybrid_nlp"})
	if err := l.Apply(ctx, id, map[string]string{"car_make": "Toyota"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	_, after := e.Knowledge().MakeByEnglish("Toyota")
	if after.Confidence <= wasConf && wasConf < 1.0 {
		t.Errorf("confidence not bumped: %v -> %v", wasConf, after.Confidence)
	}
	if after.Confidence > 1.0 {
		t.Errorf("confidence above cap: %v", after.Confidence)
	}
	if after.AddedFromFeedback {
		t.Error("seed make flagged as feedback-added")
	}
}

func TestApplyLearnsModelForMake(t *testing.T) {
	l, s, e := testLoop(t)
	ctx := context.Background()

	id := addPart(t, s, &parse.Record{PartName: "בולם i77", ExtractionMethod: "hybrid_nlp"})
	if err := l.Apply(ctx, id, map[string]string{
		"car_make":  "Hyundai",
		"car_model": "i77",
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	_, m := e.Knowledge().ModelByEnglish("i77", "Hyundai")
	if m == nil {
		t.Fatal("model not added to knowledge base")
	}
	if m.Make != "Hyundai" || !m.AddedFromFeedback {
		t.Errorf("learned model = %+v", m)
	}
}

func TestApplyLearnsSubcategory(t *testing.T) {
	l, s, e := testLoop(t)
	ctx := context.Background()

	id := addPart(t, s, &parse.Record{PartName: "בולם גז", ExtractionMethod: "hybrid_nlp"})
	if err := l.Apply(ctx, id, map[string]string{
		"category":          "Shock Absorber",
		"category_specific": "Gas Shock",
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	_, c := e.Knowledge().CategoryByEnglish("Shock Absorber")
	if c == nil {
		t.Fatal("Shock Absorber missing from seed")
	}
	found := false
	for _, sub := range c.Subcategories {
		if sub == "Gas Shock" {
			found = true
		}
	}
	if !found {
		t.Errorf("subcategory not learned: %v", c.Subcategories)
	}
}

func TestApplyPenalizesPatternRules(t *testing.T) {
	l, s, e := testLoop(t)
	ctx := context.Background()

	// Simulate a part whose make came from a pattern rule.
	id := addPart(t, s, &parse.Record{
		PartName:          "בולם מזדה",
		ConfidenceFactors: `{"car_make":{"value":"Mazda","extraction_method":"pattern_match"}}`,
		ExtractionMethod:  "hybrid_nlp",
	})

	var rule *rules.Rule
	for _, r := range e.RuleSet().ForField(rules.FieldMake) {
		if r.Value == "Mazda" {
			rule = r
			break
		}
	}
	if rule == nil {
		t.Fatal("no Mazda make rule compiled")
	}
	// Only rules that have actually fired are penalized.
	if len(rule.Match("בולם מזדה")) == 0 {
		t.Fatal("make rule did not match its own surface")
	}
	wasFP := rule.FalsePositiveCount

	if err := l.Apply(ctx, id, map[string]string{"car_make": "Toyota"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if rule.FalsePositiveCount <= wasFP {
		t.Errorf("false positive not recorded: %d -> %d", wasFP, rule.FalsePositiveCount)
	}
}

func TestApplyRejectsBadInput(t *testing.T) {
	l, s, _ := testLoop(t)
	ctx := context.Background()

	id := addPart(t, s, &parse.Record{PartName: "בולם", ExtractionMethod: "hybrid_nlp"})

	if err := l.Apply(ctx, id, nil); err == nil {
		t.Error("empty corrections accepted")
	}
	if err := l.Apply(ctx, id, map[string]string{"part_name": "x"}); err == nil {
		t.Error("uncorrectable field accepted")
	}
	if err := l.Apply(ctx, 999, map[string]string{"car_make": "Toyota"}); err == nil {
		t.Error("missing part accepted")
	}
}
