// Package workspace manages the per-execution scratch directories that
// source trees are materialized into.
package workspace

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/domain"
)

const dirPrefix = "run-"

// Manager creates and destroys workspaces under a scratch root.
type Manager struct {
	root   string
	logger *zap.Logger
}

// Workspace is one isolated directory owned by a single execution.
type Workspace struct {
	ID  string
	Dir string
}

// NewManager creates the scratch root if needed.
func NewManager(root string, logger *zap.Logger) (*Manager, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "collab-runs")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create root %s: %w", root, err)
	}
	return &Manager{root: root, logger: logger}, nil
}

// Root returns the scratch root.
func (m *Manager) Root() string {
	return m.root
}

// Create makes a fresh directory for the execution. Names are never reused:
// an existing directory with the same name is an error.
func (m *Manager) Create(executionID string) (*Workspace, error) {
	dir := filepath.Join(m.root, dirPrefix+executionID)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create %s: %w", dir, err)
	}
	return &Workspace{ID: executionID, Dir: dir}, nil
}

// Destroy removes the workspace and everything in it. Failures are logged only.
func (m *Manager) Destroy(ws *Workspace) {
	if ws == nil {
		return
	}
	if err := os.RemoveAll(ws.Dir); err != nil {
		m.logger.Warn("Failed to remove workspace",
			zap.String("execution_id", ws.ID),
			zap.String("dir", ws.Dir),
			zap.Error(err),
		)
	}
}

// Materialize writes the main file and then every auxiliary file, skipping
// the auxiliary entry whose name equals the main file.
func (w *Workspace) Materialize(mainFile, mainSource string, aux map[string]string) error {
	if err := ValidateName(mainFile); err != nil {
		return err
	}
	files := map[string]bool{cleanName(mainFile): true}
	for name := range aux {
		if err := ValidateName(name); err != nil {
			return err
		}
		files[cleanName(name)] = true
	}
	if err := checkCollisions(files); err != nil {
		return err
	}

	if err := w.write(mainFile, mainSource); err != nil {
		return err
	}
	for name, content := range aux {
		if filepath.Clean(name) == filepath.Clean(mainFile) {
			continue
		}
		if err := w.write(name, content); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workspace) write(name, content string) error {
	dst := filepath.Join(w.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("workspace: create parent of %s: %w", name, err)
	}
	if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
		return fmt.Errorf("workspace: write %s: %w", name, err)
	}
	return nil
}

func cleanName(name string) string {
	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(name)))
}

// checkCollisions rejects trees where one file name is a directory of another,
// such as "main.py" next to "main.py/x".
func checkCollisions(files map[string]bool) error {
	for name := range files {
		for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
			if files[dir] {
				return fmt.Errorf("%w: %q is both a file and a directory", domain.ErrInvalidPath, dir)
			}
		}
	}
	return nil
}

// ValidateName rejects file names that would land outside the workspace.
func ValidateName(name string) error {
	if name == "" || !filepath.IsLocal(filepath.FromSlash(name)) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidPath, name)
	}
	return nil
}
