package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// defaultDimensions is small enough to keep in-memory similarity
// queries cheap while leaving hash collisions rare for short
// descriptions.
const defaultDimensions = 128

// HashingEmbedder is a deterministic feature-hashing embedder. Each
// token is hashed into a bucket of a fixed-dimension vector with a
// sign hash, and the result is L2-normalized. It has no semantic
// knowledge but preserves the property that texts sharing vocabulary
// score higher than unrelated texts, which is what the classifier and
// the tests need.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates a hashing embedder. A non-positive dims
// falls back to the default dimension count.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = defaultDimensions
	}
	return &HashingEmbedder{dims: dims}
}

// Dimensions returns the embedding vector length.
func (h *HashingEmbedder) Dimensions() int {
	return h.dims
}

// Embed hashes the text's tokens into a normalized vector. It never
// fails; the error return satisfies the Embedder port.
func (h *HashingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, h.dims)
	for _, token := range Tokenize(text) {
		hash := fnv.New64a()
		hash.Write([]byte(token))
		sum := hash.Sum64()

		bucket := int(sum % uint64(h.dims))
		sign := 1.0
		if (sum>>32)&1 == 1 {
			sign = -1.0
		}
		vec[bucket] += sign
	}
	return Normalize(vec), nil
}

// Tokenize lowercases text and splits it into alphanumeric tokens,
// dropping single-character noise. Shared with the classifier's
// concept-overlap signal so both operate on the same vocabulary.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
