package similar

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/lox/statement-importer/internal/classifier"
)

// Embedder turns a transaction description into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Name identifies the embedding space; indexes built with another name are rebuilt
	Name() string
}

// DefaultDimensions is the vector size of the local n-gram embedder
const DefaultDimensions = 256

// NGramEmbedder hashes character trigrams of the folded, digit-free
// description into a fixed-size normalised vector. It needs no network and
// is good at spotting the same merchant written slightly differently.
type NGramEmbedder struct {
	dims int
}

// NewNGramEmbedder creates a local embedder with the given number of dimensions
func NewNGramEmbedder(dims int) *NGramEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &NGramEmbedder{dims: dims}
}

func (e *NGramEmbedder) Name() string {
	return fmt.Sprintf("ngram-%d", e.dims)
}

func (e *NGramEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	for _, gram := range trigrams(text) {
		h := fnv.New32a()
		h.Write([]byte(gram))
		vec[h.Sum32()%uint32(e.dims)]++
	}
	return normalize(vec), nil
}

// trigrams returns the padded character trigrams of each word
func trigrams(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return ' '
	}, classifier.Fold(text))

	var grams []string
	for _, word := range strings.Fields(cleaned) {
		runes := []rune(" " + word + " ")
		for i := 0; i+3 <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+3]))
		}
	}
	return grams
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		// an empty description still needs a unit vector
		vec[0] = 1
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
