package internal

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/ynqa/wego/pkg/embedding"
)

// Vocabulary is an immutable snapshot of a trained embedding model. Unit
// vectors are computed once when the snapshot is built, so lookups never
// mutate shared state.
type Vocabulary struct {
	dimension int
	words     []Token
	index     map[Token]int
	raw       [][]float32
	unit      [][]float32
	ints      []intWord
}

type intWord struct {
	value int64
	word  Token
}

func NewVocabulary(vectors map[Token][]float32) (*Vocabulary, error) {
	words := make([]Token, 0, len(vectors))
	for w := range vectors {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool { return words[i] < words[j] })

	raw := make([][]float32, len(words))
	for i, w := range words {
		raw[i] = vectors[w]
	}
	return newVocabulary(words, raw)
}

func newVocabulary(words []Token, raw [][]float32) (*Vocabulary, error) {
	if len(words) == 0 {
		return nil, ErrEmptyCorpus
	}

	v := &Vocabulary{
		dimension: len(raw[0]),
		words:     words,
		index:     make(map[Token]int, len(words)),
		raw:       raw,
		unit:      make([][]float32, len(words)),
	}

	for i, w := range words {
		if len(raw[i]) != v.dimension {
			return nil, fmt.Errorf("%w: word %q has %d components, want %d", ErrDimensionMismatch, w, len(raw[i]), v.dimension)
		}
		if _, dup := v.index[w]; dup {
			return nil, fmt.Errorf("duplicate word %q", w)
		}
		v.index[w] = i
		v.unit[i] = l2Normalize(raw[i])

		if n, err := strconv.ParseInt(string(w), 10, 64); err == nil {
			v.ints = append(v.ints, intWord{value: n, word: w})
		}
	}

	sort.SliceStable(v.ints, func(i, j int) bool { return v.ints[i].value < v.ints[j].value })

	return v, nil
}

// LoadVocabulary reads a model file written by the Trainer.
func LoadVocabulary(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	embs, err := embedding.Load(f)
	if err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}

	words := make([]Token, 0, len(embs))
	raw := make([][]float32, 0, len(embs))
	for _, e := range embs {
		if e.Word == rowBoundary {
			continue
		}
		vec := make([]float32, len(e.Vector))
		for i, x := range e.Vector {
			vec[i] = float32(x)
		}
		words = append(words, Token(e.Word))
		raw = append(raw, vec)
	}

	return newVocabulary(words, raw)
}

func (v *Vocabulary) Dimension() int {
	return v.dimension
}

func (v *Vocabulary) Len() int {
	return len(v.words)
}

func (v *Vocabulary) Contains(t Token) bool {
	_, ok := v.index[t]
	return ok
}

// Resolve maps t to the vocabulary entry whose vector stands in for it: t
// itself when trained, otherwise the integer word nearest to t on the number
// line. Non-numeric unseen tokens are not recoverable.
//
// Equidistant integers resolve to the smaller one.
func (v *Vocabulary) Resolve(t Token) (Token, error) {
	if _, ok := v.index[t]; ok {
		return t, nil
	}

	q, err := strconv.ParseInt(string(t), 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not numeric", ErrVocabularyGap, t)
	}
	if len(v.ints) == 0 {
		return "", fmt.Errorf("%w: no numeric words to substitute %q", ErrVocabularyGap, t)
	}

	i := sort.Search(len(v.ints), func(i int) bool { return v.ints[i].value >= q })

	switch {
	case i == 0:
		return v.ints[0].word, nil
	case i == len(v.ints):
		return v.ints[i-1].word, nil
	}

	lo, hi := v.ints[i-1], v.ints[i]
	if absDiff(q, lo.value) <= absDiff(hi.value, q) {
		// the stable sort keeps the first of equal values, walk back to it
		j := i - 1
		for j > 0 && v.ints[j-1].value == lo.value {
			j--
		}
		return v.ints[j].word, nil
	}
	return hi.word, nil
}

// Vector returns the trained vector of t, unit length when normalize is set.
// Unseen tokens go through Resolve first.
func (v *Vocabulary) Vector(t Token, normalize bool) ([]float32, error) {
	w, err := v.Resolve(t)
	if err != nil {
		return nil, err
	}

	src := v.raw[v.index[w]]
	if normalize {
		src = v.unit[v.index[w]]
	}

	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

func absDiff(a, b int64) uint64 {
	if a > b {
		return uint64(a) - uint64(b)
	}
	return uint64(b) - uint64(a)
}

func l2Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	result := make([]float32, len(vec))
	norm := math.Sqrt(sum)
	if norm == 0 {
		copy(result, vec)
		return result
	}

	for i, v := range vec {
		result[i] = float32(float64(v) / norm)
	}

	return result
}
