// Package nlp adapts a pretrained HuggingFace-format tokenizer to the
// normalizer's optional tokenize-and-rejoin step. Loading is opt-in: when
// no tokenizer file is configured the parser runs on its regex pipeline
// alone.
package nlp

import (
	"fmt"
	"strings"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Tokenizer wraps a loaded tokenizer model.
type Tokenizer struct {
	tk *tokenizer.Tokenizer
}

// Load reads a tokenizer.json model file.
func Load(path string) (*Tokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer from %s: %w", path, err)
	}
	return &Tokenizer{tk: tk}, nil
}

// Tokenize splits text into model tokens, with special tokens and subword
// continuation markers stripped so the output rejoins into plain text.
func (t *Tokenizer) Tokenize(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	enc, err := t.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, fmt.Errorf("encoding text: %w", err)
	}
	out := make([]string, 0, len(enc.Tokens))
	for _, tok := range enc.Tokens {
		tok = strings.TrimPrefix(tok, "##")
		tok = strings.TrimPrefix(tok, "▁") // sentencepiece word marker
		if tok == "" || strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]") {
			continue
		}
		out = append(out, tok)
	}
	return out, nil
}
