package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "word2vec_vecSize", cfg.Embedding.ModelName)
	assert.Equal(t, 10, cfg.Embedding.Dimension)
	assert.Equal(t, DefaultTrees, cfg.Index.Trees)

	cols, err := ParseColumns(cfg.Columns)
	require.NoError(t, err)

	types := make([]FieldType, 0, 3)
	for _, g := range GroupColumns(cols) {
		types = append(types, g.Type)
	}
	assert.Equal(t, []FieldType{FieldIP, FieldPort, FieldProto}, types)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Embedding.Dimension = 32
	cfg.Index.Trees = 20
	cfg.Columns = []ColumnConfig{{Name: "dstport", Encoding: "word2vec_port"}}
	cfg.Logging.Format = "json"
	cfg.Normalize.Includes = []string{"**/*.csv"}

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding:\n  dimension: 16\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Embedding.Dimension)
	assert.Equal(t, "word2vec_vecSize", cfg.Embedding.ModelName)
	assert.Equal(t, DefaultTrees, cfg.Index.Trees)
	assert.Len(t, cfg.Columns, 5)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no model name", func(c *Config) { c.Embedding.ModelName = "" }},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }},
		{"zero trees", func(c *Config) { c.Index.Trees = 0 }},
		{"no columns", func(c *Config) { c.Columns = nil }},
		{"bad encoding", func(c *Config) { c.Columns[0].Encoding = "word2vec" }},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, os.WriteFile(path, []byte("index:\n  trees: 0\n"), 0644))
	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidTrees)

	require.NoError(t, os.WriteFile(path, []byte("embedding: [\n"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigTrainOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.ForceRetrain = true

	opts := cfg.TrainOptions("/tmp/models")
	assert.Equal(t, TrainOptions{
		Dir:          "/tmp/models",
		ModelName:    "word2vec_vecSize",
		Dimension:    10,
		Window:       DefaultWindow,
		Iterations:   DefaultIterations,
		Workers:      DefaultWorkers,
		ForceRetrain: true,
	}, opts)
}
