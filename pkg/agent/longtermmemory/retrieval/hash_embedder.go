package retrieval

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/entrhq/recall/pkg/llm"
)

// DefaultHashDimensions is the vector size of a HashEmbedder created with 0.
const DefaultHashDimensions = 256

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "at": true, "for": true, "is": true,
	"am": true, "are": true, "was": true, "be": true, "i": true, "my": true,
	"me": true, "it": true, "that": true, "this": true, "with": true, "user": true,
}

// HashEmbedder is a deterministic bag-of-words embedder based on feature
// hashing. It needs no network and is used offline and in tests.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder with dims dimensions.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Embed returns one L2-normalized vector per text. Texts without any
// content words map to the zero vector.
func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

// Dimensions returns the vector size.
func (e *HashEmbedder) Dimensions() int {
	return e.dims
}

func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		sign := float32(1)
		if sum&(1<<31) != 0 {
			sign = -1
		}
		v[int(sum%uint32(e.dims))] += sign
	}

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// tokenize lowercases text, splits it on non-alphanumerics, drops stop
// words and trims a plural "s".
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = f[:len(f)-1]
		}
		out = append(out, f)
	}
	return out
}

var _ llm.Embedder = (*HashEmbedder)(nil)
