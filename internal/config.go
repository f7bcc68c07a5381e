package internal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type EmbeddingConfig struct {
	ModelName    string `yaml:"model_name"`
	Dimension    int    `yaml:"dimension"`
	Window       int    `yaml:"window"`
	Iterations   int    `yaml:"iterations"`
	Workers      int    `yaml:"workers"`
	ForceRetrain bool   `yaml:"force_retrain,omitempty"`
}

type IndexConfig struct {
	Trees int `yaml:"trees"`
}

type ColumnConfig struct {
	Name     string `yaml:"name"`
	Encoding string `yaml:"encoding"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

type NormalizeConfig struct {
	Includes []string `yaml:"includes,omitempty"`
}

type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Columns   []ColumnConfig  `yaml:"columns"`
	Logging   LoggingConfig   `yaml:"logging"`
	Normalize NormalizeConfig `yaml:"normalize,omitempty"`
}

// DefaultConfig describes a NetFlow trace: addresses, ports and protocol.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			ModelName:  "word2vec_vecSize",
			Dimension:  10,
			Window:     DefaultWindow,
			Iterations: DefaultIterations,
			Workers:    DefaultWorkers,
		},
		Index: IndexConfig{
			Trees: DefaultTrees,
		},
		Columns: []ColumnConfig{
			{Name: "srcip", Encoding: "word2vec_ip"},
			{Name: "dstip", Encoding: "word2vec_ip"},
			{Name: "srcport", Encoding: "word2vec_port"},
			{Name: "dstport", Encoding: "word2vec_port"},
			{Name: "proto", Encoding: "word2vec_proto"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

func (c *Config) Validate() error {
	if c.Embedding.ModelName == "" {
		return fmt.Errorf("embedding.model_name is required")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Index.Trees < 1 {
		return fmt.Errorf("index.trees: %w", ErrInvalidTrees)
	}
	if len(c.Columns) == 0 {
		return fmt.Errorf("at least one column is required")
	}
	if _, err := ParseColumns(c.Columns); err != nil {
		return err
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logging.Format)
	}

	return nil
}

func (c *Config) TrainOptions(dir string) TrainOptions {
	return TrainOptions{
		Dir:          dir,
		ModelName:    c.Embedding.ModelName,
		Dimension:    c.Embedding.Dimension,
		Window:       c.Embedding.Window,
		Iterations:   c.Embedding.Iterations,
		Workers:      c.Embedding.Workers,
		ForceRetrain: c.Embedding.ForceRetrain,
	}
}
