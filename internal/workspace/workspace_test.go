package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "scratch"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestCreate_UniqueAndNotReused(t *testing.T) {
	m := newTestManager(t)

	ws, err := m.Create("abc")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if info, err := os.Stat(ws.Dir); err != nil || !info.IsDir() {
		t.Fatalf("workspace dir missing: %v", err)
	}
	if filepath.Dir(ws.Dir) != m.Root() {
		t.Errorf("workspace %s not under root %s", ws.Dir, m.Root())
	}

	if _, err := m.Create("abc"); err == nil {
		t.Error("expected error when reusing an execution id")
	}
}

func TestMaterialize_MainWinsOverAux(t *testing.T) {
	m := newTestManager(t)
	ws, _ := m.Create("main-wins")

	aux := map[string]string{
		"main.py":       "print('stale')",
		"util.py":       "X = 1",
		"pkg/helper.py": "Y = 2",
	}
	if err := ws.Materialize("main.py", "import util\nprint(util.X)", aux); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	got, _ := os.ReadFile(filepath.Join(ws.Dir, "main.py"))
	if string(got) != "import util\nprint(util.X)" {
		t.Errorf("main.py = %q, aux entry must not overwrite main source", got)
	}
	if got, _ := os.ReadFile(filepath.Join(ws.Dir, "util.py")); string(got) != "X = 1" {
		t.Errorf("util.py = %q", got)
	}
	if got, _ := os.ReadFile(filepath.Join(ws.Dir, "pkg", "helper.py")); string(got) != "Y = 2" {
		t.Errorf("pkg/helper.py = %q", got)
	}
}

func TestMaterialize_RejectsEscapingPaths(t *testing.T) {
	m := newTestManager(t)

	for _, name := range []string{"../evil.py", "/etc/passwd", "a/../../b", ""} {
		t.Run(name, func(t *testing.T) {
			ws, err := m.Create("escape-" + filepath.Base(t.Name()))
			if err != nil {
				t.Fatal(err)
			}
			err = ws.Materialize("main.py", "print(1)", map[string]string{name: "x"})
			if !errors.Is(err, domain.ErrInvalidPath) {
				t.Errorf("expected ErrInvalidPath for %q, got %v", name, err)
			}
		})
	}
}

func TestMaterialize_RejectsFileDirectoryCollision(t *testing.T) {
	m := newTestManager(t)

	cases := map[string]map[string]string{
		"aux under main": {"main.py/x.py": "x"},
		"aux under aux":   {"lib": "x", "lib/util.py": "y"},
		"deep collision": {"a/b": "x", "a/b/c/d.py": "y"},
	}
	for name, aux := range cases {
		t.Run(name, func(t *testing.T) {
			ws, err := m.Create("collide-" + filepath.Base(t.Name()))
			if err != nil {
				t.Fatal(err)
			}
			err = ws.Materialize("main.py", "print(1)", aux)
			if !errors.Is(err, domain.ErrInvalidPath) {
				t.Errorf("expected ErrInvalidPath, got %v", err)
			}
			if _, statErr := os.Stat(filepath.Join(ws.Dir, "main.py")); !os.IsNotExist(statErr) {
				t.Error("nothing should be written for a rejected tree")
			}
		})
	}
}

func TestDestroy(t *testing.T) {
	m := newTestManager(t)
	ws, _ := m.Create("destroy")
	_ = ws.Materialize("main.c", "int main(){}", nil)

	m.Destroy(ws)

	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Errorf("expected workspace removed, stat err = %v", err)
	}

	// Destroying twice or nil is harmless.
	m.Destroy(ws)
	m.Destroy(nil)
}
