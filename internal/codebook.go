package internal

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

const DefaultTrees = 100

// Codebook holds one TokenIndex per field type, all built from the same
// vocabulary.
type Codebook struct {
	vocab  *Vocabulary
	order  []FieldType
	groups map[FieldType]*TokenIndex
}

// ProgressFunc is called after each token is inserted into a type group.
type ProgressFunc func(t FieldType, done, total int)

type IndexBuilder struct {
	log      *zap.Logger
	trees    int
	progress ProgressFunc
}

type BuilderOption func(*IndexBuilder)

func WithTrees(n int) BuilderOption {
	return func(b *IndexBuilder) {
		b.trees = n
	}
}

func WithProgress(fn ProgressFunc) BuilderOption {
	return func(b *IndexBuilder) {
		b.progress = fn
	}
}

func WithBuilderLogger(log *zap.Logger) BuilderOption {
	return func(b *IndexBuilder) {
		b.log = log
	}
}

func NewIndexBuilder(opts ...BuilderOption) *IndexBuilder {
	b := &IndexBuilder{
		log:   zap.NewNop(),
		trees: DefaultTrees,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build groups cols by type and indexes the distinct tokens of every group.
// Tokens missing from vocab are embedded through Vocabulary.Resolve, so a
// non-numeric unseen token fails the whole build.
func (b *IndexBuilder) Build(ctx context.Context, table *Table, vocab *Vocabulary, cols []ColumnDescriptor) (*Codebook, error) {
	if b.trees < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTrees, b.trees)
	}
	if vocab == nil {
		return nil, errors.New("build codebook: no vocabulary")
	}
	if table == nil || table.Len() == 0 || len(cols) == 0 {
		return nil, ErrEmptyCorpus
	}

	cb := &Codebook{
		vocab:  vocab,
		groups: make(map[FieldType]*TokenIndex),
	}

	for _, group := range GroupColumns(cols) {
		if !group.Type.Known() {
			b.log.Warn("indexing unrecognized field type",
				zap.String("type", group.Type.String()),
				zap.Strings("columns", group.Columns))
		}

		tokens, err := distinctTokens(table, group.Columns)
		if err != nil {
			cb.Close()
			return nil, fmt.Errorf("type %s: %w", group.Type, err)
		}

		idx, err := b.buildGroup(ctx, vocab, group.Type, tokens)
		if err != nil {
			cb.Close()
			return nil, fmt.Errorf("type %s: %w", group.Type, err)
		}

		b.log.Info("type group indexed",
			zap.String("type", group.Type.String()),
			zap.Strings("columns", group.Columns),
			zap.Int("tokens", idx.Len()),
			zap.Int("trees", b.trees))

		cb.order = append(cb.order, group.Type)
		cb.groups[group.Type] = idx
	}

	return cb, nil
}

func (b *IndexBuilder) buildGroup(ctx context.Context, vocab *Vocabulary, t FieldType, tokens []Token) (*TokenIndex, error) {
	idx := NewTokenIndex(vocab.Dimension())

	for i, tok := range tokens {
		if err := ctx.Err(); err != nil {
			idx.Close()
			return nil, err
		}

		resolved, err := vocab.Resolve(tok)
		if err != nil {
			idx.Close()
			return nil, err
		}
		if resolved != tok {
			b.log.Debug("substituted out-of-vocabulary token",
				zap.String("type", t.String()),
				zap.String("token", tok.String()),
				zap.String("substitute", resolved.String()))
		}

		vec, err := vocab.Vector(resolved, true)
		if err != nil {
			idx.Close()
			return nil, err
		}
		if _, err := idx.Add(tok, vec); err != nil {
			idx.Close()
			return nil, err
		}

		if b.progress != nil {
			b.progress(t, i+1, len(tokens))
		}
	}

	if err := idx.Build(b.trees); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

// distinctTokens collects the set of values across columns, sorted so slot
// assignment is reproducible.
func distinctTokens(table *Table, columns []string) ([]Token, error) {
	seen := make(map[Token]struct{})
	for _, name := range columns {
		values, err := table.Column(name)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			seen[Token(v)] = struct{}{}
		}
	}

	tokens := make([]Token, 0, len(seen))
	for tok := range seen {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	return tokens, nil
}

func (c *Codebook) Vocabulary() *Vocabulary {
	return c.vocab
}

// Types lists the field types in the order their groups were built.
func (c *Codebook) Types() []FieldType {
	out := make([]FieldType, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Codebook) Group(t FieldType) (*TokenIndex, error) {
	idx, ok := c.groups[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return idx, nil
}

func (c *Codebook) Dimension() int {
	if c.vocab != nil {
		return c.vocab.Dimension()
	}
	for _, idx := range c.groups {
		return idx.Dimension()
	}
	return 0
}

// Encode returns the unit vector the generative model sees for token.
func (c *Codebook) Encode(token Token) ([]float32, error) {
	if c.vocab == nil {
		return nil, fmt.Errorf("encode %q: codebook has no vocabulary", token)
	}
	return c.vocab.Vector(token, true)
}

func (c *Codebook) Decode(ctx context.Context, t FieldType, vec []float32) (Token, error) {
	idx, err := c.Group(t)
	if err != nil {
		return "", err
	}
	return idx.Nearest(ctx, vec)
}

func (c *Codebook) DecodeBatch(ctx context.Context, t FieldType, vecs [][]float32) ([]Token, error) {
	idx, err := c.Group(t)
	if err != nil {
		return nil, err
	}
	return idx.NearestBatch(ctx, vecs)
}

// Close releases the memory of every index. The codebook cannot decode
// afterwards.
func (c *Codebook) Close() error {
	var errs []error
	for _, t := range c.order {
		if err := c.groups[t].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s index: %w", t, err))
		}
	}
	return errors.Join(errs...)
}
