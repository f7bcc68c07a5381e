package v1

import "go.uber.org/zap"

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	dir          string
	dimension    int
	modelName    string
	trees        int
	forceRetrain bool
	log          *zap.Logger
}

// WithDir sets the workspace root holding models and the codebook.
func WithDir(dir string) Option {
	return func(c *clientConfig) {
		c.dir = dir
	}
}

// WithDimension sets the embedding dimension.
func WithDimension(dim int) Option {
	return func(c *clientConfig) {
		c.dimension = dim
	}
}

// WithModelName sets the name models are cached under.
func WithModelName(name string) Option {
	return func(c *clientConfig) {
		c.modelName = name
	}
}

// WithTrees sets the number of Annoy trees per type group.
func WithTrees(n int) Option {
	return func(c *clientConfig) {
		c.trees = n
	}
}

// WithForceRetrain retrains even when a cached model exists.
func WithForceRetrain(force bool) Option {
	return func(c *clientConfig) {
		c.forceRetrain = force
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *clientConfig) {
		c.log = log
	}
}
