// Package kb holds the automotive knowledge base: car makes, models, part
// categories, engine codes, abbreviations, typo corrections, and declarative
// pattern templates.
//
// The knowledge base is one mutable aggregate persisted as a single indented
// UTF-8 JSON document. Derived lookup structures are never serialized; they
// are rebuilt from the aggregate by BuildIndexes after every mutation.
package kb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Make describes one car manufacturer. English is the canonical
// cross-reference key used by every other section.
type Make struct {
	English           string   `json:"english"`
	Confidence        float64  `json:"confidence"`
	Aliases           []string `json:"aliases"`
	ParentCompany     string   `json:"parent_company,omitempty"`
	Country           string   `json:"country,omitempty"`
	AddedFromFeedback bool     `json:"added_from_feedback,omitempty"`
}

// Model describes one car model, linked to its make by the make's English
// name. PopularYears and CommonEngines feed the compatibility checks.
type Model struct {
	English           string   `json:"english"`
	Confidence        float64  `json:"confidence"`
	Make              string   `json:"make"`
	Aliases           []string `json:"aliases"`
	BodyStyles        []string `json:"body_styles,omitempty"`
	PopularYears      []int    `json:"popular_years,omitempty"`
	CommonEngines     []string `json:"common_engines,omitempty"`
	AddedFromFeedback bool     `json:"added_from_feedback,omitempty"`
}

// Category describes one part category.
type Category struct {
	English           string   `json:"english"`
	Confidence        float64  `json:"confidence"`
	Aliases           []string `json:"aliases"`
	Subcategories     []string `json:"subcategories,omitempty"`
	ParentCategory    string   `json:"parent_category,omitempty"`
	RelatedSystems    []string `json:"related_systems,omitempty"`
	CommonLocations   []string `json:"common_locations,omitempty"`
	IsAbbreviation    bool     `json:"is_abbreviation,omitempty"`
	AddedFromFeedback bool     `json:"added_from_feedback,omitempty"`
}

// EngineCode describes a manufacturer engine code.
type EngineCode struct {
	Make         string `json:"make"`
	Displacement string `json:"displacement"`
	FuelType     string `json:"fuel_type"`
	Years        []int  `json:"years"`
}

// SpecialPattern is a declarative regex template (year range, displacement,
// thread size, ...). Name selects the validator applied to its matches.
type SpecialPattern struct {
	Name        string `json:"name"`
	Regex       string `json:"regex"`
	Description string `json:"description"`
}

// CompatibilityRule is a descriptive expert-system rule. Retained for file
// compatibility; the compiled compatibility maps do the actual checking.
type CompatibilityRule struct {
	RuleName         string `json:"rule_name"`
	Description      string `json:"description"`
	Condition        string `json:"condition"`
	ValidationScript string `json:"validation_script"`
}

// KnowledgeBase is the full mutable aggregate. Key names and nesting match
// the persisted JSON contract, including the [min,max] two-element list
// convention for year ranges.
type KnowledgeBase struct {
	CarMakes           map[string]*Make       `json:"car_makes"`
	CarModels          map[string]*Model      `json:"car_models"`
	PartCategories     map[string]*Category   `json:"part_categories"`
	CompatibilityRules []CompatibilityRule    `json:"compatibility_rules"`
	SpecialPatterns    []SpecialPattern       `json:"special_patterns"`
	Abbreviations      map[string]string      `json:"abbreviations"`
	ComponentLocations map[string]string      `json:"component_locations"`
	EngineCodes        map[string]*EngineCode `json:"engine_codes"`
	SystemsHierarchy   map[string][]string    `json:"systems_hierarchy"`
	ErrorPatterns      map[string][]string    `json:"error_patterns"`
}

// Load reads a knowledge base from path.
func Load(path string) (*KnowledgeBase, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading knowledge base: %w", err)
	}
	var k KnowledgeBase
	if err := json.Unmarshal(b, &k); err != nil {
		return nil, fmt.Errorf("parsing knowledge base %s: %w", path, err)
	}
	if len(k.CarMakes) == 0 && len(k.PartCategories) == 0 {
		return nil, fmt.Errorf("knowledge base %s has no makes or categories", path)
	}
	return &k, nil
}

// LoadOrSeed loads the knowledge base at path, falling back to the built-in
// seed when the file is missing or corrupt. The seed is written back to disk
// so the next startup loads it. Returns the knowledge base and whether it
// came from disk. Startup never fails on a bad file.
func LoadOrSeed(path string) (*KnowledgeBase, bool, error) {
	if k, err := Load(path); err == nil {
		return k, true, nil
	}
	k := Seed()
	if err := k.Save(path); err != nil {
		return k, false, fmt.Errorf("writing seed knowledge base: %w", err)
	}
	return k, false, nil
}

// Save serializes the knowledge base to path as indented JSON. The write is
// atomic (temp file + rename) so a failed save never corrupts the previous
// document.
func (k *KnowledgeBase) Save(path string) error {
	b, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding knowledge base: %w", err)
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating knowledge base directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("writing knowledge base: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing knowledge base: %w", err)
	}
	return nil
}

// Clone returns a deep copy. The feedback loop reconciles corrections into
// a clone and swaps it in with ReloadKnowledge, so concurrent readers of
// the live knowledge base never observe a partial mutation.
func (k *KnowledgeBase) Clone() *KnowledgeBase {
	c := &KnowledgeBase{
		CarMakes:           make(map[string]*Make, len(k.CarMakes)),
		CarModels:          make(map[string]*Model, len(k.CarModels)),
		PartCategories:     make(map[string]*Category, len(k.PartCategories)),
		CompatibilityRules: append([]CompatibilityRule(nil), k.CompatibilityRules...),
		SpecialPatterns:    append([]SpecialPattern(nil), k.SpecialPatterns...),
		Abbreviations:      copyStrings(k.Abbreviations),
		ComponentLocations: copyStrings(k.ComponentLocations),
		EngineCodes:        make(map[string]*EngineCode, len(k.EngineCodes)),
		SystemsHierarchy:   make(map[string][]string, len(k.SystemsHierarchy)),
		ErrorPatterns:      make(map[string][]string, len(k.ErrorPatterns)),
	}
	for key, m := range k.CarMakes {
		cm := *m
		cm.Aliases = append([]string(nil), m.Aliases...)
		c.CarMakes[key] = &cm
	}
	for key, m := range k.CarModels {
		cm := *m
		cm.Aliases = append([]string(nil), m.Aliases...)
		cm.BodyStyles = append([]string(nil), m.BodyStyles...)
		cm.PopularYears = append([]int(nil), m.PopularYears...)
		cm.CommonEngines = append([]string(nil), m.CommonEngines...)
		c.CarModels[key] = &cm
	}
	for key, cat := range k.PartCategories {
		cc := *cat
		cc.Aliases = append([]string(nil), cat.Aliases...)
		cc.Subcategories = append([]string(nil), cat.Subcategories...)
		cc.RelatedSystems = append([]string(nil), cat.RelatedSystems...)
		cc.CommonLocations = append([]string(nil), cat.CommonLocations...)
		c.PartCategories[key] = &cc
	}
	for key, ec := range k.EngineCodes {
		ce := *ec
		ce.Years = append([]int(nil), ec.Years...)
		c.EngineCodes[key] = &ce
	}
	for key, v := range k.SystemsHierarchy {
		c.SystemsHierarchy[key] = append([]string(nil), v...)
	}
	for key, v := range k.ErrorPatterns {
		c.ErrorPatterns[key] = append([]string(nil), v...)
	}
	return c
}

func copyStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Mistakes derives the flat misspelling-to-correction table from the
// error_patterns section. Entries are "mistake/correction" pairs.
func (k *KnowledgeBase) Mistakes() map[string]string {
	out := make(map[string]string)
	for _, pairs := range k.ErrorPatterns {
		for _, p := range pairs {
			mistake, correction, ok := strings.Cut(p, "/")
			if !ok || mistake == "" || correction == "" {
				continue
			}
			out[mistake] = correction
		}
	}
	return out
}

// MakeByEnglish returns the make entry whose English name matches, along
// with its canonical spelling key.
func (k *KnowledgeBase) MakeByEnglish(english string) (string, *Make) {
	for key, m := range k.CarMakes {
		if m.English == english {
			return key, m
		}
	}
	return "", nil
}

// ModelByEnglish returns the model entry matching english (and make, when
// non-empty), along with its canonical spelling key.
func (k *KnowledgeBase) ModelByEnglish(english, carMake string) (string, *Model) {
	for key, m := range k.CarModels {
		if m.English != english {
			continue
		}
		if carMake != "" && m.Make != carMake {
			continue
		}
		return key, m
	}
	return "", nil
}

// CategoryByEnglish returns the category entry whose English name matches.
func (k *KnowledgeBase) CategoryByEnglish(english string) (string, *Category) {
	for key, c := range k.PartCategories {
		if c.English == english {
			return key, c
		}
	}
	return "", nil
}
