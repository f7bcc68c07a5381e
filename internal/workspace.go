package internal

import (
	"fmt"
	"os"
	"path/filepath"
)

const WorkspaceDirname = ".fieldvec"

// Workspace is a directory holding trained models, codebooks and the
// canonical copy of the source traces.
type Workspace struct {
	Root string // directory containing .fieldvec
	Dir  string // .fieldvec directory path
}

func NewWorkspace(root string) Workspace {
	return Workspace{Root: root, Dir: filepath.Join(root, WorkspaceDirname)}
}

func (w Workspace) ModelDir() string {
	return filepath.Join(w.Dir, "models")
}

func (w Workspace) CodebookDir() string {
	return filepath.Join(w.Dir, "codebook")
}

func (w Workspace) CanonicalDir() string {
	return filepath.Join(w.Dir, "canonical")
}

func (w Workspace) ConfigPath() string {
	return filepath.Join(w.Dir, "config.yaml")
}

func (w Workspace) IgnorePath() string {
	return filepath.Join(w.Root, IgnoreFilename)
}

func (w Workspace) Exists() bool {
	info, err := os.Stat(w.Dir)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Init creates the workspace layout and writes cfg unless a config is
// already present.
func (w Workspace) Init(cfg *Config) error {
	for _, dir := range []string{w.ModelDir(), w.CodebookDir(), w.CanonicalDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	if _, err := os.Stat(w.ConfigPath()); err == nil {
		return nil
	}
	return SaveConfig(w.ConfigPath(), cfg)
}

type WorkspaceResolver struct {
	cwd    string
	config string
}

func NewWorkspaceResolver() *WorkspaceResolver {
	cwd, _ := os.Getwd()
	return &WorkspaceResolver{cwd: cwd}
}

// NewWorkspaceResolverAt resolves workspaces starting from dir instead of the
// process working directory.
func NewWorkspaceResolverAt(dir string) *WorkspaceResolver {
	return &WorkspaceResolver{cwd: dir}
}

// WithConfigFile makes every resolved workspace read its configuration from
// path instead of .fieldvec/config.yaml.
func (r *WorkspaceResolver) WithConfigFile(path string) *WorkspaceResolver {
	return &WorkspaceResolver{cwd: r.cwd, config: path}
}

func (r *WorkspaceResolver) ConfigPath(ws Workspace) string {
	if r.config != "" {
		return r.config
	}
	return ws.ConfigPath()
}

// Load resolves the workspace and reads its configuration. The workspace
// must have been initialized.
func (r *WorkspaceResolver) Load() (Workspace, *Config, error) {
	ws := r.Resolve()
	if !ws.Exists() {
		return ws, nil, fmt.Errorf("not initialized: %s", ws.Dir)
	}

	cfg, err := LoadConfig(r.ConfigPath(ws))
	if err != nil {
		return ws, nil, err
	}
	return ws, cfg, nil
}

// Resolve walks up from the working directory to the nearest workspace and
// falls back to the working directory itself.
func (r *WorkspaceResolver) Resolve() Workspace {
	if ws, ok := r.find(r.cwd); ok {
		return ws
	}
	return NewWorkspace(r.cwd)
}

// Here is the workspace rooted at the working directory, whether or not it
// exists yet.
func (r *WorkspaceResolver) Here() Workspace {
	return NewWorkspace(r.cwd)
}

func (r *WorkspaceResolver) find(dir string) (Workspace, bool) {
	for {
		ws := NewWorkspace(dir)
		if ws.Exists() {
			return ws, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Workspace{}, false
		}
		dir = parent
	}
}
