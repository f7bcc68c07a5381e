package internal

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ynqa/wego/pkg/model/modelutil/vector"
	"github.com/ynqa/wego/pkg/model/word2vec"
	"go.uber.org/zap"
)

const (
	DefaultWindow     = 5
	DefaultIterations = 5
	DefaultWorkers    = 10
	ModelExt          = ".model"
)

// rowBoundary separates the sentences of consecutive rows in the training
// stream. Enough copies sit between two rows that no context window reaches
// across them. It is never indexed and, being non-numeric, never stands in
// for an unseen integer.
const rowBoundary = "</row>"

// ModelPath is the cache location of a model trained with the given name and
// dimension.
func ModelPath(dir, modelName string, dimension int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", modelName, dimension, ModelExt))
}

type TrainOptions struct {
	Dir          string
	ModelName    string
	Dimension    int
	Window       int
	Iterations   int
	Workers      int
	ForceRetrain bool
}

type Trainer struct {
	log *zap.Logger
}

func NewTrainer(log *zap.Logger) *Trainer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trainer{log: log}
}

// Train returns the path of a word2vec model for the designated columns of
// table, training and saving it only when no cached model exists or a
// retrain is forced. A cached model is trusted as is.
//
// Concurrent Train calls for the same path are not coordinated; the last
// writer wins.
func (t *Trainer) Train(ctx context.Context, table *Table, cols []ColumnDescriptor, opts TrainOptions) (string, error) {
	if opts.Dimension <= 0 {
		return "", fmt.Errorf("invalid dimension %d", opts.Dimension)
	}

	path := ModelPath(opts.Dir, opts.ModelName, opts.Dimension)

	if _, err := os.Stat(path); err == nil && !opts.ForceRetrain {
		t.log.Info("loading cached word2vec model", zap.String("path", path))
		return path, nil
	}

	window := withDefault(opts.Window, DefaultWindow)

	corpus, err := buildCorpus(ctx, table, cols, window)
	if err != nil {
		return "", err
	}

	t.log.Info("training word2vec model",
		zap.String("model", opts.ModelName),
		zap.Int("dimension", opts.Dimension),
		zap.Int("sentences", table.Len()),
		zap.Int("columns", len(cols)))

	model, err := word2vec.New(
		word2vec.Dim(opts.Dimension),
		word2vec.Window(window),
		word2vec.MinCount(1),
		word2vec.Iter(withDefault(opts.Iterations, DefaultIterations)),
		word2vec.Goroutines(withDefault(opts.Workers, DefaultWorkers)),
		word2vec.Model(word2vec.Cbow),
		word2vec.Optimizer(word2vec.NegativeSampling),
		word2vec.NegativeSampleSize(5),
	)
	if err != nil {
		return "", fmt.Errorf("create word2vec: %w", err)
	}

	if err := model.Train(bytes.NewReader(corpus)); err != nil {
		return "", fmt.Errorf("train word2vec: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := saveModel(path, func(f *os.File) error {
		return model.Save(f, vector.Single)
	}); err != nil {
		return "", err
	}

	t.log.Info("word2vec model saved", zap.String("path", path))
	return path, nil
}

// buildCorpus renders one whitespace-separated sentence per row, with window
// boundary tokens on a line of their own between consecutive rows.
func buildCorpus(ctx context.Context, table *Table, cols []ColumnDescriptor, window int) ([]byte, error) {
	if table == nil || table.Len() == 0 || len(cols) == 0 {
		return nil, ErrEmptyCorpus
	}

	rows, err := table.Select(columnNames(cols))
	if err != nil {
		return nil, err
	}

	gap := strings.TrimSpace(strings.Repeat(rowBoundary+" ", window))

	var buf bytes.Buffer
	for i, row := range rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for j, cell := range row {
			if _, err := NewToken(cell); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w: %q", i, cols[j].Name, err, cell)
			}
			if cell == rowBoundary {
				return nil, fmt.Errorf("row %d column %q: %w: %q is reserved", i, cols[j].Name, ErrInvalidToken, cell)
			}
		}
		if i > 0 && gap != "" {
			buf.WriteString(gap)
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Join(row, " "))
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

func saveModel(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	tmpFile := path + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	err = write(f)
	closeErr := f.Close()

	if err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("write model: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("close model: %w", closeErr)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("rename model: %w", err)
	}

	return nil
}

func withDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
