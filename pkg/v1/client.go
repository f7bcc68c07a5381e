package v1

import (
	"context"
	"fmt"
	"sync"

	"github.com/4thel00z/fieldvec/internal"
	"go.uber.org/zap"
)

// Client trains field embeddings and converts between field values and
// vectors for a generative pipeline.
type Client struct {
	uc  *internal.UseCases
	ws  internal.Workspace
	cfg *internal.Config

	mu sync.RWMutex
	cb *internal.Codebook
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	defaults := internal.DefaultConfig()

	cfg := &clientConfig{
		dir:       ".",
		dimension: defaults.Embedding.Dimension,
		modelName: defaults.Embedding.ModelName,
		trees:     defaults.Index.Trees,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", cfg.dimension)
	}
	if cfg.trees < 1 {
		return nil, fmt.Errorf("%w: %d", internal.ErrInvalidTrees, cfg.trees)
	}
	if cfg.log == nil {
		cfg.log = zap.NewNop()
	}

	ws := internal.NewWorkspace(cfg.dir)

	settings := internal.DefaultConfig()
	settings.Embedding.ModelName = cfg.modelName
	settings.Embedding.Dimension = cfg.dimension
	settings.Embedding.ForceRetrain = cfg.forceRetrain
	settings.Index.Trees = cfg.trees

	// the client needs no initialized workspace, options stand in for its config
	load := func() (internal.Workspace, *internal.Config, error) {
		return ws, settings, nil
	}

	uc := &internal.UseCases{
		Train:         internal.NewTrainModelUseCase(load, cfg.log),
		BuildCodebook: internal.NewBuildCodebookUseCase(load, cfg.log),
	}

	return &Client{
		uc:  uc,
		ws:  ws,
		cfg: settings,
	}, nil
}

func prepare(data Dataset, columns []Column) (*internal.Table, []internal.ColumnDescriptor, error) {
	cfgs := make([]internal.ColumnConfig, len(columns))
	for i, c := range columns {
		cfgs[i] = internal.ColumnConfig{Name: c.Name, Encoding: c.Encoding}
	}

	cols, err := internal.ParseColumns(cfgs)
	if err != nil {
		return nil, nil, err
	}

	table, err := internal.NewTable(data.Header, data.Rows)
	if err != nil {
		return nil, nil, err
	}
	return table, cols, nil
}

// Train trains or reuses the embedding model for the given columns and
// returns its path.
func (c *Client) Train(ctx context.Context, data Dataset, columns []Column) (string, error) {
	table, cols, err := prepare(data, columns)
	if err != nil {
		return "", err
	}

	out, err := c.uc.Train.Execute(ctx, internal.TrainModelInput{Table: table, Columns: cols})
	if err != nil {
		return "", fmt.Errorf("train: %w", err)
	}
	return out.ModelPath, nil
}

// BuildCodebook trains when needed, indexes every type group of data and
// saves the codebook. The client decodes with it afterwards.
func (c *Client) BuildCodebook(ctx context.Context, data Dataset, columns []Column) error {
	table, cols, err := prepare(data, columns)
	if err != nil {
		return err
	}

	out, err := c.uc.BuildCodebook.Execute(ctx, internal.BuildCodebookInput{Table: table, Columns: cols})
	if err != nil {
		return err
	}

	return c.swap(out.Codebook)
}

// swap installs cb and releases the codebook it replaces.
func (c *Client) swap(cb *internal.Codebook) error {
	c.mu.Lock()
	old := c.cb
	c.cb = cb
	c.mu.Unlock()

	if old == nil {
		return nil
	}
	return old.Close()
}

// LoadCodebook restores the codebook and model saved by an earlier
// BuildCodebook.
func (c *Client) LoadCodebook() error {
	model := internal.ModelPath(c.ws.ModelDir(), c.cfg.Embedding.ModelName, c.cfg.Embedding.Dimension)
	vocab, err := internal.LoadVocabulary(model)
	if err != nil {
		return err
	}

	cb, err := internal.LoadCodebook(c.ws.CodebookDir(), vocab)
	if err != nil {
		return fmt.Errorf("load codebook: %w", err)
	}

	return c.swap(cb)
}

func (c *Client) codebook() (*internal.Codebook, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cb == nil {
		return nil, internal.ErrIndexNotBuilt
	}
	return c.cb, nil
}

// Encode returns the unit vector for a field value. Unseen integers use the
// nearest trained integer.
func (c *Client) Encode(token string) ([]float32, error) {
	cb, err := c.codebook()
	if err != nil {
		return nil, err
	}
	return cb.Encode(internal.Token(token))
}

// Decode returns the known value of fieldType nearest to vec.
func (c *Client) Decode(ctx context.Context, fieldType string, vec []float32) (string, error) {
	cb, err := c.codebook()
	if err != nil {
		return "", err
	}

	tok, err := cb.Decode(ctx, internal.FieldType(fieldType), vec)
	if err != nil {
		return "", err
	}
	return tok.String(), nil
}

// DecodeBatch decodes every vector, preserving order.
func (c *Client) DecodeBatch(ctx context.Context, fieldType string, vecs [][]float32) ([]string, error) {
	cb, err := c.codebook()
	if err != nil {
		return nil, err
	}

	tokens, err := cb.DecodeBatch(ctx, internal.FieldType(fieldType), vecs)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.String()
	}
	return out, nil
}

// WriteSessionsCSV writes the active timesteps of s into a new CSV file in
// dir and returns its path.
func (c *Client) WriteSessionsCSV(dir, name string, s Sessions) (string, error) {
	return internal.WriteSessionsCSV(dir, name, internal.SessionBatch{
		SessionFields: s.SessionFields,
		SeriesFields:  s.SeriesFields,
		Sessions:      s.Attributes,
		Series:        s.Series,
		Flags:         s.Flags,
	})
}

// Close releases the indices of the current codebook.
func (c *Client) Close() error {
	return c.swap(nil)
}
