package parse

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/ozparts/partlex/internal/kb"
)

// fieldWeights is the contribution ceiling per extracted field. The sum is
// the normalization denominator.
var fieldWeights = map[string]float64{
	"car_make":            0.6,
	"car_model":           0.5,
	"year_from":           0.4,
	"year_to":             0.3,
	"category":            0.5,
	"category_specific":   0.4,
	"engine_code":         0.4,
	"engine_displacement": 0.3,
	"location":            0.3,
	"side":                0.2,
	"drive_type":          0.3,
	"part_number":         0.5,
	"dimensions":          0.3,
}

// methodMultipliers discounts a field's contribution by how reliable its
// extraction tier is. Unknown methods fall back to 0.7.
var methodMultipliers = map[string]float64{
	"exact_match":                    1.0,
	"alias_match":                    0.95,
	"pattern_match":                  0.9,
	"pattern_match_with_make":        0.95,
	"pattern_match_with_specific":    0.95,
	"pattern_match_verified":         0.95,
	"direct_text_match":              0.9,
	"direct_lookup":                  0.9,
	"direct_lookup_verified":         0.95,
	"direct_lookup_with_subcategory": 0.95,
	"i_model_pattern":                0.95,
	"numeric_model_match":            0.9,
	"model_code_pattern":             0.85,
	"numeric_model_guess":            0.8,
	"make_model_sequence":            0.95,
	"phrase_match":                   0.85,
	"phrase_match_verified":          0.95,
	"component_group_match":          0.85,
	"ml_classification":              0.9,
	"word_embedding":                 0.85,
	"default_for_make":               0.7,
	"inferred_from_model":            0.75,
	"inferred_from_code":             0.85,
	"inferred_from_model_match":      0.8,
	"nlp_entity":                     0.85,
	"abbreviation_pattern":           0.95,
	"manual_correction":              1.0,
	"no_match":                       0.0,
}

const baseScore = 0.7

// scoreInput is one field's evidence for the scorer. Fields whose extractor
// reports no tier (years, subcategory, displacement) carry method "direct"
// and full confidence.
type scoreInput struct {
	Value      any
	Method     string
	Confidence float64
}

// directInput wraps a tier-less field value for the scorer.
func directInput(value any) scoreInput {
	return scoreInput{Value: value, Method: "direct", Confidence: 1.0}
}

// score computes the overall confidence for one record and the factors
// document explaining it. The weighted per-field sum is normalized, then
// cross-field compatibility bonuses and penalties are applied to the
// normalized score, then the result is averaged with the base score and
// rounded to two decimals.
func (e *Engine) score(inputs map[string]scoreInput, carMake, carModel, displacement string, yearFrom int) (float64, string) {
	var totalWeight float64
	for _, w := range fieldWeights {
		totalWeight += w
	}

	factors := make(map[string]any, len(inputs)+1)
	var weighted float64

	fields := make([]string, 0, len(inputs))
	for f := range inputs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		in := inputs[field]
		weight, ok := fieldWeights[field]
		if !ok || !present(in.Value) {
			continue
		}
		if in.Method == "direct" {
			weighted += weight
			factors[field] = map[string]any{
				"value":              in.Value,
				"extraction_method":  "direct",
				"weight":             weight,
				"score_contribution": weight / totalWeight,
			}
			continue
		}
		mult, ok := methodMultipliers[in.Method]
		if !ok {
			mult = 0.7
		}
		contribution := weight * in.Confidence * mult
		weighted += contribution
		factors[field] = map[string]any{
			"value":              in.Value,
			"extraction_method":  in.Method,
			"confidence":         in.Confidence,
			"weight":             weight,
			"score_contribution": contribution / totalWeight,
		}
	}

	var bonus, penalty float64
	var checks []map[string]any

	if carMake != "" && carModel != "" {
		if e.idx.HasModel(carMake, carModel) {
			bonus += 0.1
			checks = append(checks, map[string]any{
				"check": "make_model_compatibility", "result": true, "bonus": 0.1,
			})
		} else {
			penalty += 0.2
			checks = append(checks, map[string]any{
				"check": "make_model_compatibility", "result": false, "penalty": 0.2,
			})
		}
	}

	if carMake != "" && carModel != "" && yearFrom != 0 {
		if span, ok := e.idx.ModelYears[kb.MakeModel{Make: carMake, Model: carModel}]; ok {
			if span[0] <= yearFrom && yearFrom <= span[1] {
				bonus += 0.1
				checks = append(checks, map[string]any{
					"check": "year_model_compatibility", "result": true, "bonus": 0.1,
				})
			} else {
				penalty += 0.1
				checks = append(checks, map[string]any{
					"check": "year_model_compatibility", "result": false, "penalty": 0.1,
				})
			}
		}
	}

	if carMake != "" && carModel != "" && displacement != "" {
		if engines, ok := e.idx.ModelEngines[kb.MakeModel{Make: carMake, Model: carModel}]; ok {
			matched := false
			for _, d := range engines {
				if d == displacement {
					matched = true
					break
				}
			}
			if matched {
				bonus += 0.1
				checks = append(checks, map[string]any{
					"check": "engine_model_compatibility", "result": true, "bonus": 0.1,
				})
			} else {
				penalty += 0.1
				checks = append(checks, map[string]any{
					"check": "engine_model_compatibility", "result": false, "penalty": 0.1,
				})
			}
		}
	}

	if checks == nil {
		checks = []map[string]any{}
	}
	factors["compatibility_checks"] = checks

	normalized := math.Min(weighted/totalWeight, 1.0)
	normalized = normalized + bonus - penalty
	if normalized < 0 {
		normalized = 0
	} else if normalized > 1 {
		normalized = 1
	}

	final := math.Round((baseScore+normalized)/2*100) / 100

	doc, err := json.Marshal(factors)
	if err != nil {
		doc = []byte("{}")
	}
	return final, string(doc)
}

func present(v any) bool {
	switch x := v.(type) {
	case string:
		return x != ""
	case int:
		return x != 0
	case nil:
		return false
	default:
		return true
	}
}
