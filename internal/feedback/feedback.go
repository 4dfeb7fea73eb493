// Package feedback closes the learning loop: user corrections update the
// stored record, leave an audit trail, reconcile the knowledge base, and
// recompile the engine's rules so the fix applies to future parses too.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ozparts/partlex/internal/kb"
	"github.com/ozparts/partlex/internal/parse"
	"github.com/ozparts/partlex/internal/rules"
	"github.com/ozparts/partlex/internal/store"
)

// Loop wires the store, the engine, and the persisted knowledge base.
type Loop struct {
	Store  *store.Store
	Engine *parse.Engine
	KBPath string
	Log    *slog.Logger
}

// Apply records corrections for a stored part. The storage write commits
// first; only then is the knowledge base mutated, saved, and the engine
// reloaded. The extraction cache is always flushed on success so the next
// parse of the same line reflects what was learned.
func (l *Loop) Apply(ctx context.Context, partID int64, corrections map[string]string) error {
	if len(corrections) == 0 {
		return fmt.Errorf("no corrections given")
	}
	for field := range corrections {
		if !store.CorrectableField(field) {
			return fmt.Errorf("field %q is not correctable", field)
		}
	}

	fields := make([]string, 0, len(corrections))
	for f := range corrections {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	cs := make([]store.Correction, 0, len(fields))
	for _, f := range fields {
		cs = append(cs, store.Correction{Field: f, Value: corrections[f]})
	}

	partName, factorsJSON, err := l.Store.ApplyCorrection(ctx, partID, cs)
	if err != nil {
		return fmt.Errorf("applying correction to part %d: %w", partID, err)
	}

	// Reconcile into a deep copy: the live knowledge base may be read by a
	// concurrent Parse, and ReloadKnowledge swaps atomically under the
	// engine's lock.
	k := l.Engine.Knowledge().Clone()
	changed := l.reconcile(k, corrections, factorsJSON)
	if changed {
		if err := k.Save(l.KBPath); err != nil {
			return fmt.Errorf("saving knowledge base: %w", err)
		}
		if err := l.Engine.ReloadKnowledge(k); err != nil {
			return fmt.Errorf("reloading knowledge base: %w", err)
		}
	}
	l.Engine.InvalidateCache()

	l.log().Info("feedback applied",
		"part_id", partID, "part_name", partName,
		"fields", fields, "knowledge_changed", changed)
	return nil
}

// reconcile folds corrections into k (a private copy of the knowledge
// base) and penalizes rules that produced the corrected-away values.
// Returns whether the knowledge base itself changed.
func (l *Loop) reconcile(k *kb.KnowledgeBase, corrections map[string]string, factorsJSON string) bool {
	changed := false

	if v := corrections["car_make"]; v != "" {
		if _, m := k.MakeByEnglish(v); m != nil {
			m.Confidence = bump(m.Confidence)
		} else {
			k.CarMakes[v] = &kb.Make{
				English:           v,
				Confidence:        0.9,
				Aliases:           []string{strings.ToLower(v)},
				AddedFromFeedback: true,
			}
			l.log().Info("learned new car make", "make", v)
		}
		changed = true
	}

	if model, carMake := corrections["car_model"], corrections["car_make"]; model != "" && carMake != "" {
		if _, m := k.ModelByEnglish(model, carMake); m != nil {
			m.Confidence = bump(m.Confidence)
		} else {
			k.CarModels[model+"_feedback"] = &kb.Model{
				English:           model,
				Confidence:        0.9,
				Make:              carMake,
				Aliases:           []string{strings.ToLower(model)},
				AddedFromFeedback: true,
			}
			l.log().Info("learned new car model", "make", carMake, "model", model)
		}
		changed = true
	}

	if v := corrections["category"]; v != "" {
		if _, c := k.CategoryByEnglish(v); c != nil {
			c.Confidence = bump(c.Confidence)
			if sub := corrections["category_specific"]; sub != "" && !contains(c.Subcategories, sub) {
				c.Subcategories = append(c.Subcategories, sub)
				l.log().Info("learned new subcategory", "category", v, "subcategory", sub)
			}
		} else {
			var subs []string
			if sub := corrections["category_specific"]; sub != "" {
				subs = []string{sub}
			}
			k.PartCategories[v+"_feedback"] = &kb.Category{
				English:           v,
				Confidence:        0.9,
				Aliases:           []string{strings.ToLower(v)},
				Subcategories:     subs,
				AddedFromFeedback: true,
			}
			l.log().Info("learned new part category", "category", v)
		}
		changed = true
	}

	l.penalizeRules(corrections, factorsJSON)
	return changed
}

// penalizeRules bumps false-positive counts on rules whose pattern_match
// output the user corrected away, using the stored confidence factors to
// see which tier produced each field.
func (l *Loop) penalizeRules(corrections map[string]string, factorsJSON string) {
	if factorsJSON == "" {
		return
	}
	var factors map[string]json.RawMessage
	if err := json.Unmarshal([]byte(factorsJSON), &factors); err != nil {
		return
	}

	fieldRules := map[string]rules.Field{
		"car_make":  rules.FieldMake,
		"car_model": rules.FieldModel,
		"category":  rules.FieldCategory,
	}
	for field, ruleField := range fieldRules {
		corrected, ok := corrections[field]
		if !ok {
			continue
		}
		raw, ok := factors[field]
		if !ok {
			continue
		}
		var info struct {
			Value            any    `json:"value"`
			ExtractionMethod string `json:"extraction_method"`
		}
		if err := json.Unmarshal(raw, &info); err != nil {
			continue
		}
		wrong, _ := info.Value.(string)
		if wrong == "" || wrong == corrected {
			continue
		}
		if !strings.HasPrefix(info.ExtractionMethod, "pattern_match") {
			continue
		}
		if n := l.Engine.RecordFalsePositive(ruleField, wrong); n > 0 {
			l.log().Info("penalized rules for false positive",
				"field", field, "value", wrong, "rules", n)
		}
	}
}

func (l *Loop) log() *slog.Logger {
	if l.Log != nil {
		return l.Log
	}
	return slog.Default()
}

func bump(confidence float64) float64 {
	confidence += 0.05
	if confidence > 1.0 {
		return 1.0
	}
	return confidence
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
