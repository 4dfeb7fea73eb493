// Package normalize canonicalizes raw Hebrew part listings before matching.
//
// The pipeline is fixed: case fold, diacritic strip, thousands-separator
// removal, whitespace and punctuation squashing, whole-word abbreviation
// expansion, literal typo correction, and an optional tokenizer re-join.
// The output is a fixed point: normalizing twice yields the same string.
package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer is an optional NLP backend for the final tokenize-and-rejoin
// step. Absence of a tokenizer must not change any other step's behavior.
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
}

// pair is a single rewrite rule (surface form to replacement).
type pair struct {
	from string
	to   string
}

// Normalizer canonicalizes input text using the knowledge base's
// abbreviation and common-mistake tables.
type Normalizer struct {
	abbrevs  []pair
	mistakes []pair
	tok      Tokenizer
}

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	// Any character that is not a word character, whitespace, or period
	// becomes a space. Underscore counts as a word character, matching
	// the lookup keys the knowledge base produces.
	punctRE = regexp.MustCompile(`[^\p{L}\p{N}_\s.]`)
	// Thousands separators between digit pairs ("1,200" -> "1200").
	// Applied before punctuation squashing or the comma is already gone.
	thousandsRE = regexp.MustCompile(`(\d),(\d)`)
)

// New builds a Normalizer from abbreviation and mistake tables. Longer
// surface forms are applied first so overlapping entries behave
// deterministically regardless of map iteration order.
func New(abbrevs, mistakes map[string]string, tok Tokenizer) *Normalizer {
	n := &Normalizer{tok: tok}
	n.abbrevs = sortedPairs(abbrevs)
	n.mistakes = sortedPairs(mistakes)
	return n
}

func sortedPairs(m map[string]string) []pair {
	out := make([]pair, 0, len(m))
	for from, to := range m {
		if from == "" || from == to {
			continue
		}
		out = append(out, pair{from: from, to: to})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].from) != len(out[j].from) {
			return len(out[i].from) > len(out[j].from)
		}
		return out[i].from < out[j].from
	})
	return out
}

// Normalize canonicalizes text. Empty or whitespace-only input returns "".
// Malformed input degrades rather than erroring.
func (n *Normalizer) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	s := strings.ToLower(text)
	s = stripCombiningMarks(s)
	s = thousandsRE.ReplaceAllString(s, "${1}${2}")
	s = whitespaceRE.ReplaceAllString(s, " ")
	s = punctRE.ReplaceAllString(s, " ")

	for _, p := range n.abbrevs {
		s = replaceWholeWord(s, p.from, p.to)
	}
	for _, p := range n.mistakes {
		s = strings.ReplaceAll(s, p.from, p.to)
	}

	if n.tok != nil {
		if tokens, err := n.tok.Tokenize(s); err == nil && len(tokens) > 0 {
			s = strings.Join(tokens, " ")
		}
	}

	// Squashing punctuation can leave multi-space runs; collapse again so
	// the result is idempotent.
	s = whitespaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripCombiningMarks removes Unicode combining marks (Hebrew niqqud,
// Latin diacritics) via NFD decomposition.
func stripCombiningMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// isWordRune reports whether r is a word character (letter, digit, or
// underscore) for boundary purposes.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// replaceWholeWord replaces occurrences of from that sit on word
// boundaries, where a boundary is a transition between a word character
// and a non-word character (or the string edge). An abbreviation like
// "פ." therefore expands when glued to the following word ("פ.שמן") but
// not when the period is followed by a space, mirroring how the
// abbreviation tables were authored.
func replaceWholeWord(s, from, to string) string {
	if from == "" || !strings.Contains(s, from) {
		return s
	}

	firstFrom, _ := utf8.DecodeRuneInString(from)
	lastFrom, _ := utf8.DecodeLastRuneInString(from)

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if !strings.HasPrefix(s[i:], from) {
			_, w := utf8.DecodeRuneInString(s[i:])
			b.WriteString(s[i : i+w])
			i += w
			continue
		}

		beforeOK := true
		if i > 0 {
			prev, _ := utf8.DecodeLastRuneInString(s[:i])
			beforeOK = isWordRune(prev) != isWordRune(firstFrom)
		} else {
			beforeOK = isWordRune(firstFrom)
		}

		end := i + len(from)
		afterOK := true
		if end < len(s) {
			next, _ := utf8.DecodeRuneInString(s[end:])
			afterOK = isWordRune(next) != isWordRune(lastFrom)
		} else {
			afterOK = isWordRune(lastFrom)
		}

		if beforeOK && afterOK {
			b.WriteString(to)
			i = end
		} else {
			_, w := utf8.DecodeRuneInString(s[i:])
			b.WriteString(s[i : i+w])
			i += w
		}
	}
	return b.String()
}
