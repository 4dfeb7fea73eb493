package parse

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ozparts/partlex/internal/kb"
	"github.com/ozparts/partlex/internal/rules"
)

// lineContext carries one line through the extractor chain: the trimmed
// original, the case-folded original for rule matching, and the fully
// normalized form for dictionary lookups.
type lineContext struct {
	Raw    string
	Folded string
	Norm   string

	tokens []string
	hits   []kb.Hit
}

func (c *lineContext) Tokens() []string {
	if c.tokens == nil {
		c.tokens = strings.Fields(c.Norm)
	}
	return c.tokens
}

// filterAbbreviations maps the glued filter shorthand to its category.
var filterAbbreviations = map[string]string{
	"אויר": "Air Filter",
	"שמן":  "Oil Filter",
	"דלק":  "Fuel Filter",
	"מזגן": "AC Filter",
	"סולר": "Diesel Filter",
}

// matchNamed runs the first of the named rules that exists and matches,
// returning its first validated submatch slice.
func (e *Engine) matchNamed(text string, names ...string) []string {
	for _, name := range names {
		r := e.rules.Named(name)
		if r == nil {
			continue
		}
		if ms := r.Match(text); len(ms) > 0 {
			return ms[0]
		}
	}
	return nil
}

// extractYear pulls the model-year span through the compiled year rules:
// the knowledge base's year_range pattern and the broader from-to template
// first, then the standalone from/to forms, then a bare single_year
// mention. Two-digit years expand (under 50 is 2000+), years outside
// [1950, now+5] are dropped, a lone to-year synthesizes from = to−15, and
// an inverted pair is swapped.
func (e *Engine) extractYear(c *lineContext) (int, int) {
	var yearFrom, yearTo int

	if m := e.matchNamed(c.Folded, "year_range", "year_from_to"); m != nil {
		yearFrom = expandAtoi(m[1])
		if len(m) > 2 {
			yearTo = expandAtoi(m[2])
		}
	} else {
		if m := e.matchNamed(c.Folded, "year_from"); m != nil {
			yearFrom = expandAtoi(m[1])
		}
		if m := e.matchNamed(c.Folded, "year_to"); m != nil {
			yearTo = expandAtoi(m[1])
		}
		if yearFrom == 0 && yearTo == 0 {
			if m := e.matchNamed(c.Folded, "single_year"); m != nil {
				yearFrom = expandAtoi(m[1])
			}
		}
	}

	maxYear := e.currentYear() + 5
	if yearFrom != 0 && (yearFrom < 1950 || yearFrom > maxYear) {
		yearFrom = 0
	}
	if yearTo != 0 && (yearTo < 1950 || yearTo > maxYear) {
		yearTo = 0
	}
	if yearTo != 0 && yearFrom == 0 {
		yearFrom = yearTo - 15
	}
	if yearFrom != 0 && yearTo != 0 && yearFrom > yearTo {
		yearFrom, yearTo = yearTo, yearFrom
	}
	return yearFrom, yearTo
}

func expandAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return rules.ExpandYear(n)
}

// extractMake finds the manufacturer: token and whole-line dictionary hits,
// the phrase scan, make rules, inference from a matched make+model pair,
// inference from any model surface in the line, and finally embedding
// similarity.
func (e *Engine) extractMake(ctx context.Context, c *lineContext) Extraction {
	for _, tok := range c.Tokens() {
		if entry, ok := e.idx.LookupKind(tok, kb.KindMake); ok {
			return Extraction{Value: entry.English, Confidence: 0.95, Method: "exact_match"}
		}
	}
	if entry, ok := e.idx.LookupKind(c.Norm, kb.KindMake); ok {
		return Extraction{Value: entry.English, Confidence: 0.9, Method: "exact_match"}
	}

	for _, hit := range e.scan(c) {
		for _, entry := range hit.Entries {
			if entry.Kind == kb.KindMake {
				return Extraction{Value: entry.English, Confidence: 0.85, Method: "phrase_match"}
			}
		}
	}

	for _, r := range e.rules.ForField(rules.FieldMake) {
		if len(r.Match(c.Folded)) > 0 {
			return Extraction{Value: r.Value, Confidence: 0.9, Method: "pattern_match"}
		}
	}

	// A make+model pair rule that fires names the make even when the line
	// never spells it out.
	for _, r := range e.rules.ForField(rules.FieldModel) {
		if !r.Pair {
			continue
		}
		if len(r.Match(c.Folded)) > 0 {
			return Extraction{Value: r.Extra, Confidence: 0.8, Method: "inferred_from_model"}
		}
	}

	// Any model surface appearing in the line pins down its make ("I20" is
	// only ever a Hyundai).
	for _, tok := range c.Tokens() {
		for _, carMake := range e.idx.MakesForModelSurface(tok) {
			return Extraction{Value: carMake, Confidence: 0.75, Method: "inferred_from_model_match"}
		}
	}

	if ext := e.embedNearest(ctx, c, kb.KindMake, ""); ext.Found() {
		return ext
	}
	return Extraction{Method: "no_match"}
}

// extractModel finds the model, constrained by the already-extracted make
// when present.
func (e *Engine) extractModel(ctx context.Context, c *lineContext, carMake string) Extraction {
	for _, r := range e.rules.ForField(rules.FieldModel) {
		if r.Name == "hyundai_i_models" {
			continue
		}
		if r.Pair {
			if carMake != "" && r.Extra != carMake {
				continue
			}
			if len(r.Match(c.Folded)) > 0 {
				return Extraction{Value: r.Value, Confidence: 0.9, Method: "pattern_match_with_make"}
			}
			continue
		}
		if len(r.Match(c.Folded)) == 0 {
			continue
		}
		if carMake == "" {
			return Extraction{Value: r.Value, Confidence: 0.85, Method: "pattern_match"}
		}
		if e.idx.HasModel(carMake, r.Value) {
			return Extraction{Value: r.Value, Confidence: 0.9, Method: "pattern_match_verified"}
		}
	}

	if carMake == "" || carMake == "Hyundai" {
		// The compiled i-series rule validates the 10-40 model range.
		if m := e.matchNamed(c.Folded, "hyundai_i_models"); m != nil {
			return Extraction{Value: m[1] + m[2], Confidence: 0.95, Method: "i_model_pattern"}
		}
	}

	for _, tok := range c.Tokens() {
		entry, ok := e.idx.LookupKind(tok, kb.KindModel)
		if !ok {
			continue
		}
		if carMake == "" {
			return Extraction{Value: entry.English, Confidence: 0.8, Method: "direct_lookup"}
		}
		if e.idx.HasModel(carMake, entry.English) {
			return Extraction{Value: entry.English, Confidence: 0.9, Method: "direct_lookup_verified"}
		}
	}

	// "מזדה 3": a bare number right after the make reads as a model.
	if carMake != "" {
		if heb, _ := e.kb.MakeByEnglish(carMake); heb != "" {
			numRE, err := regexp.Compile(regexp.QuoteMeta(strings.ToLower(heb)) + `\s*(\d+)`)
			if err == nil {
				if m := numRE.FindStringSubmatch(c.Folded); m != nil {
					return Extraction{Value: m[1], Confidence: 0.85, Method: "numeric_model_match"}
				}
			}
		}
	}

	for _, hit := range e.scan(c) {
		if !strings.Contains(hit.Surface, " ") {
			continue
		}
		for _, entry := range hit.Entries {
			if entry.Kind != kb.KindModel {
				continue
			}
			if carMake == "" {
				return Extraction{Value: entry.English, Confidence: 0.8, Method: "phrase_match"}
			}
			if e.idx.HasModel(carMake, entry.English) {
				return Extraction{Value: entry.English, Confidence: 0.9, Method: "phrase_match_verified"}
			}
		}
	}

	// A chassis or model code after דגם/מודל ("דגם w204"). Bare numbers in
	// that position are years or trim levels, never codes.
	if m := e.matchNamed(c.Folded, "specific_model"); m != nil {
		if strings.IndexFunc(m[1], unicode.IsLetter) >= 0 {
			return Extraction{Value: strings.ToUpper(m[1]), Confidence: 0.7, Method: "model_code_pattern"}
		}
	}

	if carMake != "" {
		if ext := e.embedNearest(ctx, c, kb.KindModel, carMake); ext.Found() {
			return ext
		}
		if models := e.idx.MakeModels[carMake]; len(models) > 0 {
			return Extraction{Value: models[0], Confidence: 0.3, Method: "default_for_make"}
		}
	}
	return Extraction{Method: "no_match"}
}

// categoryResult is extractCategory's outcome; Specific carries the
// subcategory refinement when one is identified.
type categoryResult struct {
	Extraction
	Specific string
}

// extractCategory identifies the part category. The glued filter shorthand
// wins outright and its expansion is the category itself ("פ.שמן" is an Oil
// Filter, not a generic Filter).
func (e *Engine) extractCategory(ctx context.Context, c *lineContext) categoryResult {
	if m := e.matchNamed(c.Folded, "filter_abbreviation"); m != nil {
		return categoryResult{Extraction: Extraction{
			Value: filterAbbreviations[m[1]], Confidence: 0.95, Method: "abbreviation_pattern",
		}}
	}

	for _, tok := range c.Tokens() {
		entry, ok := e.idx.LookupKind(tok, kb.KindCategory)
		if !ok {
			continue
		}
		if _, cat := e.kb.CategoryByEnglish(entry.English); cat != nil {
			for _, sub := range cat.Subcategories {
				if containsWord(c.Norm, strings.ToLower(sub)) {
					return categoryResult{
						Extraction: Extraction{Value: entry.English, Confidence: 0.9,
							Method: "direct_lookup_with_subcategory"},
						Specific: sub,
					}
				}
			}
		}
		return categoryResult{Extraction: Extraction{
			Value: entry.English, Confidence: 0.9, Method: "direct_lookup",
		}}
	}

	for _, r := range e.rules.ForField(rules.FieldCategory) {
		if r.Name == "filter_abbreviation" {
			continue
		}
		if len(r.Match(c.Folded)) == 0 {
			continue
		}
		if r.Priority <= 4 {
			return categoryResult{Extraction: Extraction{
				Value: r.Value, Confidence: 0.85, Method: "component_group_match",
			}}
		}
		if r.Extra != "" {
			return categoryResult{
				Extraction: Extraction{Value: r.Value, Confidence: 0.9 * r.Precision(),
					Method: "pattern_match_with_specific"},
				Specific: r.Extra,
			}
		}
		return categoryResult{Extraction: Extraction{
			Value: r.Value, Confidence: 0.9 * r.Precision(), Method: "pattern_match",
		}}
	}

	for _, hit := range e.scan(c) {
		if !strings.Contains(hit.Surface, " ") {
			continue
		}
		for _, entry := range hit.Entries {
			if entry.Kind == kb.KindCategory {
				return categoryResult{Extraction: Extraction{
					Value: entry.English, Confidence: 0.8, Method: "phrase_match",
				}}
			}
		}
	}

	if e.caps.Classifier != nil {
		if cat, conf, err := e.caps.Classifier.Classify(c.Norm); err == nil && conf > 0.6 {
			return categoryResult{Extraction: Extraction{
				Value: cat, Confidence: conf, Method: "ml_classification",
			}}
		}
	}

	if ext := e.embedNearest(ctx, c, kb.KindCategory, ""); ext.Found() {
		return categoryResult{Extraction: ext}
	}
	return categoryResult{Extraction: Extraction{Method: "no_match"}}
}

var sideValues = map[string]bool{"Right": true, "Left": true}

var englishLocations = map[string]string{
	"front": "Front", "rear": "Rear", "upper": "Upper", "lower": "Lower",
}

var englishSides = map[string]string{
	"right": "Right", "left": "Left",
}

// extractLocationSide pulls the mount position (Front/Rear/Upper/Lower) and
// the side (Right/Left). Returns location, side, method.
func (e *Engine) extractLocationSide(c *lineContext) (string, string, string) {
	var location, side string
	method := "no_match"

	for _, r := range e.rules.ForField(rules.FieldLocation) {
		if sideValues[r.Value] {
			continue
		}
		if len(r.Match(c.Folded)) > 0 {
			location = r.Value
			method = "pattern_match"
			break
		}
	}
	if location == "" {
		for eng, canonical := range englishLocations {
			if containsWord(c.Norm, eng) {
				location = canonical
				method = "direct_text_match"
				break
			}
		}
	}

	for heb, eng := range e.kb.ComponentLocations {
		if !sideValues[eng] {
			continue
		}
		if strings.Contains(c.Norm, strings.ToLower(heb)) {
			side = eng
			if method == "no_match" {
				method = "direct_text_match"
			}
			break
		}
	}
	if side == "" {
		for eng, canonical := range englishSides {
			if containsWord(c.Norm, eng) {
				side = canonical
				if method == "no_match" {
					method = "direct_text_match"
				}
				break
			}
		}
	}
	return location, side, method
}

// extractEngine pulls the engine code and displacement. A recognized code
// with no textual displacement fills the displacement from the knowledge
// base (method inferred_from_code). The displacement rule's validator keeps
// implausible volumes out entirely.
func (e *Engine) extractEngine(c *lineContext) (code, displacement, method string) {
	method = "no_match"

	for _, r := range e.rules.ForField(rules.FieldEngineCode) {
		if len(r.Match(c.Folded)) > 0 {
			code = r.Value
			method = "pattern_match"
			break
		}
	}
	if code == "" {
		for known := range e.kb.EngineCodes {
			if strings.Contains(c.Folded, strings.ToLower(known)) {
				code = known
				method = "direct_text_match"
				break
			}
		}
	}

	// The knowledge base's displacement pattern first, then the broader
	// bare-number template; both carry the plausibility validator.
	if m := e.matchNamed(c.Folded, "displacement", "engine_displacement"); m != nil {
		displacement = m[1]
	}

	if code != "" && displacement == "" {
		if ec := e.kb.EngineCodes[code]; ec != nil && ec.Displacement != "" {
			displacement = ec.Displacement
			method = "inferred_from_code"
		}
	}
	return code, displacement, method
}

// extractDrive pulls the drivetrain designation, uppercased. The knowledge
// base's wheel_drive pattern runs first; the case-insensitive template
// catches the lowercase forms folding produces.
func (e *Engine) extractDrive(c *lineContext) Extraction {
	if m := e.matchNamed(c.Folded, "wheel_drive", "drive_type"); m != nil {
		return Extraction{Value: strings.ToUpper(m[1]), Confidence: 0.8,
			Method: "direct_text_match"}
	}
	return Extraction{Method: "no_match"}
}

// extractDimensions pulls WxH or WxHxD part dimensions.
func (e *Engine) extractDimensions(c *lineContext) Extraction {
	m := e.matchNamed(c.Folded, "part_dimensions", "dimensions")
	if m == nil {
		return Extraction{Method: "no_match"}
	}
	dims := m[1] + "x" + m[2]
	if len(m) > 3 && m[3] != "" {
		dims += "x" + m[3]
	}
	return Extraction{Value: dims, Confidence: 0.8, Method: "direct_text_match"}
}

// extractSpecs pulls the free-standing measurements the knowledge base
// declares patterns for: brake disc diameter and thread size. They land in
// technical_specs, not in their own record columns.
func (e *Engine) extractSpecs(c *lineContext) map[string]string {
	specs := map[string]string{}
	if m := e.matchNamed(c.Folded, "brake_disc_size"); m != nil {
		specs["disc_diameter"] = m[1] + "mm"
	}
	// Thread sizes are printed with an uppercase M; folding would make the
	// prefix ambiguous with bare dimensions.
	if m := e.matchNamed(c.Raw, "thread_size"); m != nil {
		specs["thread_size"] = "M" + m[1] + "x" + m[2]
	}
	return specs
}

// extractPartNumber pulls a reference code from the unfolded line; real
// part numbers are printed uppercase.
func (e *Engine) extractPartNumber(c *lineContext) Extraction {
	if r := e.rules.Named("part_number"); r != nil {
		if ms := r.Match(c.Raw); len(ms) > 0 {
			return Extraction{Value: ms[0][1], Confidence: 0.8, Method: "pattern_match"}
		}
	}
	return Extraction{Method: "no_match"}
}

// embedNearest is the word_embedding fallback tier: embed the normalized
// line, embed every candidate surface of the wanted kind (vectors cached),
// and take the nearest neighbour above the similarity threshold. carMake
// filters model candidates to one manufacturer.
func (e *Engine) embedNearest(ctx context.Context, c *lineContext, kind kb.EntryKind, carMake string) Extraction {
	if e.caps.Embedder == nil {
		return Extraction{}
	}

	lineVec, err := e.embedCached(ctx, c.Norm)
	if err != nil || lineVec == nil {
		return Extraction{}
	}

	type candidate struct {
		surface string
		english string
	}
	var cands []candidate
	switch kind {
	case kb.KindMake:
		for heb, m := range e.kb.CarMakes {
			cands = append(cands, candidate{heb, m.English}, candidate{strings.ToLower(m.English), m.English})
		}
	case kb.KindModel:
		for heb, m := range e.kb.CarModels {
			if carMake != "" && m.Make != carMake {
				continue
			}
			cands = append(cands, candidate{heb, m.English}, candidate{strings.ToLower(m.English), m.English})
		}
	case kb.KindCategory:
		for heb, cat := range e.kb.PartCategories {
			cands = append(cands, candidate{heb, cat.English})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].surface < cands[j].surface })

	best := Extraction{}
	bestSim := embedThreshold
	for _, cand := range cands {
		vec, err := e.embedCached(ctx, cand.surface)
		if err != nil || vec == nil {
			continue
		}
		if sim := cosine(lineVec, vec); sim > bestSim {
			bestSim = sim
			best = Extraction{Value: cand.english, Confidence: sim * 0.8, Method: "word_embedding"}
		}
	}
	return best
}

// containsWord reports whether text contains term on word boundaries.
func containsWord(text, term string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		if wordBoundary(text, start, end) {
			return true
		}
		idx = start + 1
	}
}

func wordBoundary(s string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(s[:start]); isWord(r) {
			return false
		}
	}
	if end < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[end:]); isWord(r) {
			return false
		}
	}
	return true
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
