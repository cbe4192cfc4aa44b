package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultLocalDimension is used when no dimension is configured.
const DefaultLocalDimension = 512

// minTokenRunes drops short function words that carry no topic signal.
const minTokenRunes = 3

// Local is a deterministic bag-of-words embedder using feature hashing.
// Similar vocabularies produce vectors with high cosine similarity.
type Local struct {
	dim int
}

// NewLocal returns a Local embedder with the given dimension.
func NewLocal(dim int) *Local {
	if dim <= 0 {
		dim = DefaultLocalDimension
	}
	return &Local{dim: dim}
}

func (l *Local) Name() string   { return ProviderLocal }
func (l *Local) Dimension() int { return l.dim }

// Embed hashes each token into a bucket with a hash-derived sign and L2-normalises
// the result. Text without usable tokens yields nil.
func (l *Local) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	vec := make([]float32, l.dim)
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(l.dim))
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	Normalize(vec)
	return vec, nil
}

// Tokenize lowercases text and splits it into alphanumeric tokens of at least
// three runes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenRunes {
			out = append(out, f)
		}
	}
	return out
}
