package kb

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
)

// EntryKind tags which knowledge-base section a dictionary entry came from.
type EntryKind int

const (
	KindMake EntryKind = iota
	KindModel
	KindCategory
	KindLocation
	KindEngineCode
)

func (k EntryKind) String() string {
	switch k {
	case KindMake:
		return "make"
	case KindModel:
		return "model"
	case KindCategory:
		return "category"
	case KindLocation:
		return "location"
	case KindEngineCode:
		return "engine_code"
	default:
		return fmt.Sprintf("EntryKind(%d)", int(k))
	}
}

// Entry is one dictionary hit target: a knowledge-base entity reachable from
// a surface form. English is the canonical value extractors emit; Make is set
// for model entries so cross-field inference can recover the manufacturer.
type Entry struct {
	Kind       EntryKind
	Key        string // canonical KB key (Hebrew spelling or code)
	English    string
	Make       string // owning make, model entries only
	Confidence float64
}

// MakeModel pairs a model with its make, both by English name.
type MakeModel struct {
	Make  string
	Model string
}

// Hit is one dictionary match in a scanned line, in byte offsets of the
// scanned (already normalized) text.
type Hit struct {
	Start   int
	End     int
	Surface string
	Entries []Entry
}

// Indexes is the materialized view over a KnowledgeBase: flat surface-form
// lookup maps, cross-reference maps for compatibility checks, and one
// Aho-Corasick automaton over every surface form for linear-time scanning.
// Indexes are immutable once built; after any KB mutation the caller builds
// a fresh set.
type Indexes struct {
	// Normalized surface form -> entry list (several entities may share a
	// surface form, e.g. "פ." the abbreviation and "פ." the category key).
	surfaces map[string][]Entry

	// MakeModels maps a make's English name to its models' English names.
	MakeModels map[string][]string
	// ModelYears maps a make+model pair to its [from, to] year span. Keyed
	// by the pair: same-named models under different makes are distinct.
	ModelYears map[MakeModel][2]int
	// ModelEngines maps a make+model pair to its known displacements.
	ModelEngines map[MakeModel][]string

	ac       *ahocorasick.Automaton
	patterns []string
}

// BuildIndexes derives the lookup view from kb. norm is the same
// canonicalizer later applied to scanned text; patterns and haystacks must
// go through one canonicalizer or the automaton silently misses.
func BuildIndexes(kb *KnowledgeBase, norm func(string) string) (*Indexes, error) {
	idx := &Indexes{
		surfaces:     make(map[string][]Entry),
		MakeModels:   make(map[string][]string),
		ModelYears:   make(map[MakeModel][2]int),
		ModelEngines: make(map[MakeModel][]string),
	}

	add := func(surface string, e Entry) {
		key := norm(surface)
		if key == "" {
			return
		}
		for _, have := range idx.surfaces[key] {
			if have == e {
				return
			}
		}
		idx.surfaces[key] = append(idx.surfaces[key], e)
	}

	for key, m := range kb.CarMakes {
		e := Entry{Kind: KindMake, Key: key, English: m.English, Confidence: m.Confidence}
		add(key, e)
		add(m.English, e)
		for _, a := range m.Aliases {
			add(a, e)
		}
	}

	for key, m := range kb.CarModels {
		e := Entry{Kind: KindModel, Key: key, English: m.English, Make: m.Make, Confidence: m.Confidence}
		add(key, e)
		add(m.English, e)
		for _, a := range m.Aliases {
			add(a, e)
		}
		idx.MakeModels[m.Make] = append(idx.MakeModels[m.Make], m.English)
		mm := MakeModel{Make: m.Make, Model: m.English}
		if len(m.PopularYears) == 2 {
			idx.ModelYears[mm] = [2]int{m.PopularYears[0], m.PopularYears[1]}
		}
		if len(m.CommonEngines) > 0 {
			idx.ModelEngines[mm] = append([]string(nil), m.CommonEngines...)
		}
	}
	for mk := range idx.MakeModels {
		sort.Strings(idx.MakeModels[mk])
	}

	for key, c := range kb.PartCategories {
		e := Entry{Kind: KindCategory, Key: key, English: c.English, Confidence: c.Confidence}
		add(key, e)
		add(c.English, e)
		for _, a := range c.Aliases {
			add(a, e)
		}
	}

	for heb, eng := range kb.ComponentLocations {
		add(heb, Entry{Kind: KindLocation, Key: heb, English: eng, Confidence: 0.9})
	}

	for code, ec := range kb.EngineCodes {
		add(code, Entry{Kind: KindEngineCode, Key: code, English: code, Make: ec.Make, Confidence: 0.9})
	}

	idx.patterns = make([]string, 0, len(idx.surfaces))
	for s := range idx.surfaces {
		idx.patterns = append(idx.patterns, s)
	}
	sort.Strings(idx.patterns)

	ac, err := ahocorasick.NewBuilder().
		AddStrings(idx.patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("building surface-form automaton: %w", err)
	}
	idx.ac = ac
	return idx, nil
}

// Lookup returns the entries registered for an already-normalized surface
// form, or nil.
func (x *Indexes) Lookup(surface string) []Entry {
	return x.surfaces[surface]
}

// LookupKind returns the first entry of the given kind registered for an
// already-normalized surface form.
func (x *Indexes) LookupKind(surface string, kind EntryKind) (Entry, bool) {
	for _, e := range x.surfaces[surface] {
		if e.Kind == kind {
			return e, true
		}
	}
	return Entry{}, false
}

// Scan finds every dictionary mention in an already-normalized line. Matches
// are trimmed to word boundaries: a hit glued to surrounding letters or
// digits ("קורולהX") is discarded, so "3" matches as a model token but not
// inside "300".
func (x *Indexes) Scan(text string) []Hit {
	if x.ac == nil || text == "" {
		return nil
	}
	raw := x.ac.FindAllOverlapping([]byte(text))
	hits := make([]Hit, 0, len(raw))
	for _, m := range raw {
		if !boundaryOK(text, m.Start, m.End) {
			continue
		}
		surface := text[m.Start:m.End]
		entries := x.surfaces[surface]
		if len(entries) == 0 {
			continue
		}
		hits = append(hits, Hit{Start: m.Start, End: m.End, Surface: surface, Entries: entries})
	}
	return hits
}

// HasModel reports whether the make (English name) lists the model.
func (x *Indexes) HasModel(carMake, model string) bool {
	for _, m := range x.MakeModels[carMake] {
		if m == model {
			return true
		}
	}
	return false
}

// MakesForModelSurface returns the makes whose models' surface forms contain
// token as a substring. Used by cross-field inference: a line like "I20"
// names no make, but only Hyundai has a model spelled that way.
func (x *Indexes) MakesForModelSurface(token string) []string {
	if token == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for surface, entries := range x.surfaces {
		if !strings.Contains(surface, token) {
			continue
		}
		for _, e := range entries {
			if e.Kind != KindModel || e.Make == "" || seen[e.Make] {
				continue
			}
			seen[e.Make] = true
			out = append(out, e.Make)
		}
	}
	sort.Strings(out)
	return out
}

func boundaryOK(s string, start, end int) bool {
	if start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(prev) {
			return false
		}
	}
	if end < len(s) {
		next, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
