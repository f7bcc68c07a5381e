package internal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/mariotoffia/goannoy/builder"
	"github.com/mariotoffia/goannoy/interfaces"
)

const IndexExt = ".ann"

// TokenIndex is an angular Annoy index over the vectors of one type group
// together with the dictionary mapping each slot back to its token.
type TokenIndex struct {
	mu        sync.RWMutex
	idx       interfaces.AnnoyIndex[float32, uint32]
	dimension int
	tokens    []Token
	slots     map[Token]uint32
	trees     int
	built     bool
	closed    bool
}

func newAnnoy(dimension int) interfaces.AnnoyIndex[float32, uint32] {
	return builder.Index[float32, uint32]().
		AngularDistance(dimension).
		UseMultiWorkerPolicy().
		MmapIndexAllocator().
		Build()
}

func NewTokenIndex(dimension int) *TokenIndex {
	return &TokenIndex{
		idx:       newAnnoy(dimension),
		dimension: dimension,
		slots:     make(map[Token]uint32),
	}
}

// Add stores vec under the next free slot. A token that is already present
// keeps its slot.
func (a *TokenIndex) Add(token Token, vec []float32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.built || a.closed {
		return 0, fmt.Errorf("add %q: index already built", token)
	}
	if len(vec) != a.dimension {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, a.dimension, len(vec))
	}

	if slot, exists := a.slots[token]; exists {
		return slot, nil
	}

	slot := uint32(len(a.tokens))
	a.tokens = append(a.tokens, token)
	a.slots[token] = slot
	a.idx.AddItem(slot, vec)

	return slot, nil
}

func (a *TokenIndex) Build(numTrees int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if numTrees < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidTrees, numTrees)
	}
	if a.closed {
		return errors.New("build: index closed")
	}
	if len(a.tokens) == 0 {
		return fmt.Errorf("build: %w", ErrEmptyCorpus)
	}

	a.idx.Build(numTrees, -1)
	a.trees = numTrees
	a.built = true
	return nil
}

// Close unmaps the index. Queries afterwards fail with ErrIndexNotBuilt.
func (a *TokenIndex) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	a.built = false
	return a.idx.Close()
}

func (a *TokenIndex) Built() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.built
}

func (a *TokenIndex) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.tokens)
}

func (a *TokenIndex) Dimension() int {
	return a.dimension
}

func (a *TokenIndex) Trees() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.trees
}

// Tokens returns the reverse dictionary, indexed by slot.
func (a *TokenIndex) Tokens() []Token {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Token, len(a.tokens))
	copy(out, a.tokens)
	return out
}

func (a *TokenIndex) Slot(token Token) (uint32, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	slot, ok := a.slots[token]
	return slot, ok
}

// Nearest returns the token whose vector has the smallest angular distance to
// vec. The search visits every leaf of every tree, so the answer is exact up
// to ties, which are broken by the index's internal order.
func (a *TokenIndex) Nearest(ctx context.Context, vec []float32) (Token, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.checkQuery(vec); err != nil {
		return "", err
	}

	return a.nearest(vec)
}

// NearestBatch resolves every vector, preserving input order.
func (a *TokenIndex) NearestBatch(ctx context.Context, vecs [][]float32) ([]Token, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.built {
		return nil, ErrIndexNotBuilt
	}

	out := make([]Token, len(vecs))

	for i, vec := range vecs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.checkQuery(vec); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}

		tok, err := a.nearest(vec)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		out[i] = tok
	}

	return out, nil
}

func (a *TokenIndex) checkQuery(vec []float32) error {
	if !a.built {
		return ErrIndexNotBuilt
	}
	if len(vec) != a.dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, a.dimension, len(vec))
	}
	return nil
}

func (a *TokenIndex) nearest(vec []float32) (Token, error) {
	searchK := len(a.tokens) * a.trees

	searchCtx := a.idx.CreateContext()
	ids, _ := a.idx.GetNnsByVector(vec, 1, searchK, searchCtx)
	if len(ids) == 0 {
		return "", fmt.Errorf("no neighbour found among %d items", len(a.tokens))
	}

	id := ids[0]
	if int(id) >= len(a.tokens) {
		return "", fmt.Errorf("%w: slot %d has no token", ErrCorruptCodebook, id)
	}
	return a.tokens[id], nil
}

func indexPath(dir string, t FieldType) string {
	return filepath.Join(dir, string(t)+IndexExt)
}

func (a *TokenIndex) save(path string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.built {
		return ErrIndexNotBuilt
	}
	if err := a.idx.Save(path); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// loadTokenIndex restores an index saved by save with its dictionary.
func loadTokenIndex(path string, dimension, trees int, tokens []Token) (*TokenIndex, error) {
	if trees < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTrees, trees)
	}

	a := NewTokenIndex(dimension)
	for i, tok := range tokens {
		if _, dup := a.slots[tok]; dup {
			return nil, fmt.Errorf("%w: token %q stored twice", ErrCorruptCodebook, tok)
		}
		a.slots[tok] = uint32(i)
	}
	a.tokens = tokens

	if err := a.idx.Load(path); err != nil {
		a.idx.Close()
		return nil, fmt.Errorf("load index: %w", err)
	}

	a.trees = trees
	a.built = true
	return a, nil
}
