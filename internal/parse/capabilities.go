package parse

import (
	"context"
	"math"

	"github.com/ozparts/partlex/internal/normalize"
)

// Embedder produces dense vectors for texts. Backed by an HTTP embeddings
// service when configured; nil disables the word_embedding tiers.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Classifier predicts a part category for normalized text. nil disables the
// ml_classification tier.
type Classifier interface {
	Classify(text string) (category string, confidence float64, err error)
}

// Capabilities are the engine's optional statistical backends. Every field
// may be nil; extraction quality degrades gracefully, it never errors.
type Capabilities struct {
	Tokenizer  normalize.Tokenizer
	Embedder   Embedder
	Classifier Classifier
}

// cosine computes cosine similarity between two vectors, 0 when either has
// zero norm or lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
