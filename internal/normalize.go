package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"
)

// Normalizer copies raw trace files of any layout into one flat canonical
// directory. Nested files are renamed by joining their path segments with
// "_", so "day1/flows.csv" becomes "day1_flows.csv".
type Normalizer struct {
	src      billy.Filesystem
	dst      billy.Filesystem
	includes []string
	ignore   *IgnoreMatcher
	log      *zap.Logger
}

type NormalizerOption func(*Normalizer)

func WithIncludes(patterns ...string) NormalizerOption {
	return func(n *Normalizer) {
		if len(patterns) > 0 {
			n.includes = patterns
		}
	}
}

func WithIgnore(m *IgnoreMatcher) NormalizerOption {
	return func(n *Normalizer) {
		n.ignore = m
	}
}

func WithNormalizerLogger(log *zap.Logger) NormalizerOption {
	return func(n *Normalizer) {
		n.log = log
	}
}

func NewNormalizer(src, dst billy.Filesystem, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		src:      src,
		dst:      dst,
		includes: []string{"**/*"},
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// NewOSNormalizer normalizes srcDir into dstDir on the local disk.
func NewOSNormalizer(srcDir, dstDir string, opts ...NormalizerOption) (*Normalizer, error) {
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return nil, fmt.Errorf("create canonical directory: %w", err)
	}
	return NewNormalizer(osfs.New(srcDir), osfs.New(dstDir), opts...), nil
}

// Normalize copies every included, non-ignored file and returns the canonical
// names written, sorted. A .fieldvecignore at the root of the source tree
// adds to the configured patterns.
func (n *Normalizer) Normalize(ctx context.Context) ([]string, error) {
	local, err := NewIgnoreMatcherFS(n.src, IgnoreFilename)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", IgnoreFilename, err)
	}
	ignore := n.ignore.merge(local)

	var sources []string

	err = util.Walk(n.src, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel := strings.TrimPrefix(filepath.ToSlash(p), "/")
		if rel == "" {
			return nil
		}

		if info.IsDir() {
			if rel == WorkspaceDirname || ignore.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if path.Base(rel) == IgnoreFilename || ignore.Match(rel, false) {
			return nil
		}
		if n.included(rel) {
			sources = append(sources, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source: %w", err)
	}

	sort.Strings(sources)

	written := make(map[string]string, len(sources))
	out := make([]string, 0, len(sources))

	for _, rel := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := strings.ReplaceAll(rel, "/", "_")
		if prev, dup := written[name]; dup {
			return nil, fmt.Errorf("%s and %s both normalize to %s", prev, rel, name)
		}
		written[name] = rel

		if err := n.copyFile(rel, name); err != nil {
			return nil, err
		}

		n.log.Debug("normalized source file", zap.String("source", rel), zap.String("canonical", name))
		out = append(out, name)
	}

	n.log.Info("normalized source files", zap.Int("files", len(out)))
	return out, nil
}

func (n *Normalizer) included(rel string) bool {
	for _, pattern := range n.includes {
		matched, err := doublestar.Match(pattern, rel)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (n *Normalizer) copyFile(rel, name string) error {
	in, err := n.src.Open(rel)
	if err != nil {
		return fmt.Errorf("open %s: %w", rel, err)
	}
	defer in.Close()

	out, err := n.dst.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	_, err = io.Copy(out, in)
	closeErr := out.Close()

	if err != nil {
		return fmt.Errorf("copy %s: %w", rel, err)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", name, closeErr)
	}
	return nil
}
