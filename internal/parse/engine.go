package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ozparts/partlex/internal/kb"
	"github.com/ozparts/partlex/internal/normalize"
	"github.com/ozparts/partlex/internal/rules"
)

// embedThreshold is the minimum cosine similarity for the word_embedding
// tiers to accept a neighbour.
const embedThreshold = 0.7

// ExtractionMethod labels every record this engine produces.
const ExtractionMethod = "enhanced_pattern_matching"

// Engine parses part listing lines against a knowledge base. It owns the
// derived state (normalizer, indexes, compiled rules) and rebuilds all of
// it when the knowledge base changes. Safe for concurrent use.
type Engine struct {
	mu    sync.Mutex
	kb    *kb.KnowledgeBase
	idx   *kb.Indexes
	rules *rules.Set
	norm  *normalize.Normalizer
	caps  Capabilities

	cache    *gocache.Cache // raw line -> Record
	embCache *gocache.Cache // surface form -> embedding vector

	now func() time.Time
	log *slog.Logger
}

// New builds an engine over k. caps backends may all be nil.
func New(k *kb.KnowledgeBase, caps Capabilities) (*Engine, error) {
	e := &Engine{
		caps:     caps,
		cache:    gocache.New(gocache.NoExpiration, 0),
		embCache: gocache.New(gocache.NoExpiration, 0),
		now:      time.Now,
		log:      slog.Default(),
	}
	if err := e.install(k); err != nil {
		return nil, err
	}
	e.log.Info("engine initialized",
		"makes", len(k.CarMakes),
		"models", len(k.CarModels),
		"categories", len(k.PartCategories),
		"rules", len(e.rules.All),
		"tokenizer", caps.Tokenizer != nil,
		"embedder", caps.Embedder != nil,
		"classifier", caps.Classifier != nil)
	return e, nil
}

// install rebuilds all derived state from k. Caller holds the lock except
// during construction.
func (e *Engine) install(k *kb.KnowledgeBase) error {
	norm := normalize.New(k.Abbreviations, k.Mistakes(), e.caps.Tokenizer)
	idx, err := kb.BuildIndexes(k, norm.Normalize)
	if err != nil {
		return fmt.Errorf("building knowledge indexes: %w", err)
	}
	set, err := rules.Compile(k, idx, e.now().Year())
	if err != nil {
		return fmt.Errorf("compiling rules: %w", err)
	}
	// Carry match statistics across recompiles so feedback-driven precision
	// adjustments survive knowledge reloads.
	if e.rules != nil {
		for _, r := range set.All {
			if old := e.rules.Named(r.Name); old != nil {
				r.MatchCount = old.MatchCount
				r.FalsePositiveCount = old.FalsePositiveCount
			}
		}
	}
	e.kb = k
	e.idx = idx
	e.rules = set
	e.norm = norm
	return nil
}

// ReloadKnowledge swaps in a mutated knowledge base: the normalizer,
// indexes, and rule set are rebuilt and both caches flushed so stale
// extractions never survive a knowledge change.
func (e *Engine) ReloadKnowledge(k *kb.KnowledgeBase) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.install(k); err != nil {
		return err
	}
	e.cache.Flush()
	e.embCache.Flush()
	e.log.Info("knowledge base reloaded", "rules", len(e.rules.All))
	return nil
}

// InvalidateCache drops all cached extraction results.
func (e *Engine) InvalidateCache() {
	e.cache.Flush()
}

// Knowledge returns the engine's current knowledge base.
func (e *Engine) Knowledge() *kb.KnowledgeBase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kb
}

// RuleSet returns the compiled rules, for feedback statistics adjustment.
func (e *Engine) RuleSet() *rules.Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules
}

// RecordFalsePositive bumps the false-positive count of every rule for the
// field that emits wrongValue, and returns how many rules were penalized.
// Their precision drops accordingly on future parses.
func (e *Engine) RecordFalsePositive(field rules.Field, wrongValue string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, r := range e.rules.ForField(field) {
		if r.Value == wrongValue && r.MatchCount > 0 {
			r.FalsePositiveCount++
			n++
		}
	}
	return n
}

// Normalize canonicalizes text with the engine's current normalizer.
func (e *Engine) Normalize(text string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.norm.Normalize(text)
}

// Parse extracts a structured record from one listing line. Empty and
// whitespace-only lines yield nil. Results are cached by the raw trimmed
// line; a hit returns a copy.
func (e *Engine) Parse(ctx context.Context, line string) (*Record, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if cached, ok := e.cache.Get(line); ok {
		rec := cached.(Record)
		return &rec, nil
	}

	c := &lineContext{
		Raw:    line,
		Folded: strings.ToLower(line),
		Norm:   e.norm.Normalize(line),
	}

	rec := Record{
		PartName:           line,
		PartNameNormalized: c.Norm,
		ExtractionMethod:   ExtractionMethod,
	}

	rec.YearFrom, rec.YearTo = e.extractYear(c)

	carMake := e.extractMake(ctx, c)
	rec.CarMake = carMake.Value

	carModel := e.extractModel(ctx, c, carMake.Value)
	rec.CarModel = carModel.Value

	category := e.extractCategory(ctx, c)
	rec.Category = category.Value
	rec.CategorySpecific = category.Specific

	var locMethod string
	rec.Location, rec.Side, locMethod = e.extractLocationSide(c)

	var engMethod string
	rec.EngineCode, rec.EngineDisplacement, engMethod = e.extractEngine(c)

	drive := e.extractDrive(c)
	rec.DriveType = drive.Value

	dims := e.extractDimensions(c)
	rec.Dimensions = dims.Value

	partNumber := e.extractPartNumber(c)
	rec.PartNumber = partNumber.Value

	rec.TechnicalSpecs = technicalSpecs(&rec, e.extractSpecs(c))

	inputs := map[string]scoreInput{}
	if carMake.Found() {
		inputs["car_make"] = scoreInput{carMake.Value, carMake.Method, carMake.Confidence}
	}
	if carModel.Found() {
		inputs["car_model"] = scoreInput{carModel.Value, carModel.Method, carModel.Confidence}
	}
	if rec.YearFrom != 0 {
		inputs["year_from"] = directInput(rec.YearFrom)
	}
	if rec.YearTo != 0 {
		inputs["year_to"] = directInput(rec.YearTo)
	}
	if category.Found() {
		inputs["category"] = scoreInput{category.Value, category.Method, category.Confidence}
	}
	if rec.CategorySpecific != "" {
		inputs["category_specific"] = directInput(rec.CategorySpecific)
	}
	if rec.EngineCode != "" {
		inputs["engine_code"] = scoreInput{rec.EngineCode, engMethod, 0.8}
	}
	if rec.EngineDisplacement != "" {
		inputs["engine_displacement"] = directInput(rec.EngineDisplacement)
	}
	if rec.Location != "" {
		inputs["location"] = scoreInput{rec.Location, locMethod, 0.8}
	}
	if rec.Side != "" {
		inputs["side"] = directInput(rec.Side)
	}
	if drive.Found() {
		inputs["drive_type"] = scoreInput{drive.Value, drive.Method, drive.Confidence}
	}
	if dims.Found() {
		inputs["dimensions"] = scoreInput{dims.Value, dims.Method, dims.Confidence}
	}
	if partNumber.Found() {
		inputs["part_number"] = scoreInput{partNumber.Value, partNumber.Method, partNumber.Confidence}
	}

	rec.ConfidenceScore, rec.ConfidenceFactors = e.score(
		inputs, rec.CarMake, rec.CarModel, rec.EngineDisplacement, rec.YearFrom)

	rec.AdditionalInfo = e.residual(&rec, line)

	e.cache.Set(line, rec, gocache.NoExpiration)
	return &rec, nil
}

// technicalSpecs assembles the technical_specs JSON document from the
// record's measurement fields plus the free-standing extras, empty when
// nothing was extracted.
func technicalSpecs(rec *Record, extra map[string]string) string {
	specs := map[string]string{}
	for k, v := range extra {
		specs[k] = v
	}
	if rec.EngineDisplacement != "" {
		specs["displacement"] = rec.EngineDisplacement + "L"
	}
	if rec.Dimensions != "" {
		specs["dimensions"] = rec.Dimensions
	}
	if rec.DriveType != "" {
		specs["drive_type"] = rec.DriveType
	}
	if len(specs) == 0 {
		return ""
	}
	b, err := json.Marshal(specs)
	if err != nil {
		return ""
	}
	return string(b)
}

// residual strips every recognized surface form from the raw line; what
// remains is free text worth keeping.
func (e *Engine) residual(rec *Record, line string) string {
	var strip []string

	if rec.CarMake != "" {
		for heb, m := range e.kb.CarMakes {
			if m.English != rec.CarMake {
				continue
			}
			strip = append(strip, heb)
			strip = append(strip, m.Aliases...)
		}
	}
	if rec.CarModel != "" {
		for heb, m := range e.kb.CarModels {
			if m.English != rec.CarModel {
				continue
			}
			strip = append(strip, heb)
			strip = append(strip, m.Aliases...)
		}
	}
	if rec.Category != "" {
		for heb, c := range e.kb.PartCategories {
			if c.English != rec.Category {
				continue
			}
			strip = append(strip, heb)
			strip = append(strip, c.Aliases...)
		}
	}
	for heb, eng := range e.kb.ComponentLocations {
		if eng == rec.Location || eng == rec.Side {
			strip = append(strip, heb)
		}
	}
	if rec.EngineCode != "" {
		strip = append(strip, rec.EngineCode, strings.ToLower(rec.EngineCode))
	}
	if rec.DriveType != "" {
		strip = append(strip, rec.DriveType, strings.ToLower(rec.DriveType))
	}
	if rec.YearFrom != 0 {
		strip = append(strip, fmt.Sprintf("מ%02d", rec.YearFrom%100))
	}
	if rec.YearTo != 0 {
		strip = append(strip,
			fmt.Sprintf("עד %02d", rec.YearTo%100),
			fmt.Sprintf("עד%02d", rec.YearTo%100))
	}

	out := line
	for _, s := range strip {
		if s == "" {
			continue
		}
		out = strings.ReplaceAll(out, s, "")
	}
	out = strings.Join(strings.Fields(out), " ")
	return strings.Trim(out, " .-")
}

// scan runs the dictionary automaton over the normalized line, once per
// parse.
func (e *Engine) scan(c *lineContext) []kb.Hit {
	if c.hits == nil {
		c.hits = e.idx.Scan(c.Norm)
		if c.hits == nil {
			c.hits = []kb.Hit{}
		}
	}
	return c.hits
}

// embedCached returns the embedding for text, consulting the vector cache
// first.
func (e *Engine) embedCached(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.embCache.Get(text); ok {
		return v.([]float32), nil
	}
	vecs, err := e.caps.Embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	e.embCache.Set(text, vecs[0], gocache.NoExpiration)
	return vecs[0], nil
}

func (e *Engine) currentYear() int {
	return e.now().Year()
}
