package internal

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const IgnoreFilename = ".fieldvecignore"

// IgnoreMatcher excludes source files from normalization using gitignore
// syntax.
type IgnoreMatcher struct {
	patterns []gitignore.Pattern
}

func NewIgnoreMatcher(path string) (*IgnoreMatcher, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &IgnoreMatcher{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseIgnore(bufio.NewScanner(f))
}

// NewIgnoreMatcherFS reads the ignore file from a billy filesystem.
func NewIgnoreMatcherFS(fs billy.Filesystem, path string) (*IgnoreMatcher, error) {
	f, err := fs.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &IgnoreMatcher{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseIgnore(bufio.NewScanner(f))
}

func IgnorePatterns(lines ...string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range lines {
		m.patterns = append(m.patterns, gitignore.ParsePattern(line, nil))
	}
	return m
}

// merge returns a matcher applying the patterns of m, then those of other.
func (m *IgnoreMatcher) merge(other *IgnoreMatcher) *IgnoreMatcher {
	out := &IgnoreMatcher{}
	if m != nil {
		out.patterns = append(out.patterns, m.patterns...)
	}
	if other != nil {
		out.patterns = append(out.patterns, other.patterns...)
	}
	return out
}

func parseIgnore(scanner *bufio.Scanner) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.patterns = append(m.patterns, gitignore.ParsePattern(line, nil))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return m, nil
}

// Match reports whether the slash or OS separated relative path is ignored.
// Later patterns override earlier ones, so negations work as in git.
func (m *IgnoreMatcher) Match(relPath string, isDir bool) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}

	parts := strings.Split(filepath.ToSlash(relPath), "/")
	return gitignore.NewMatcher(m.patterns).Match(parts, isDir)
}
