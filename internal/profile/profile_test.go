package profile

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/YashHaritash/btp-backend/internal/domain"
)

func TestRegistry_Defaults(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		lang     domain.Language
		compiled bool
		file     string
		timeout  time.Duration
	}{
		{domain.LangPython, false, "main.py", 10 * time.Second},
		{domain.LangJavaScript, false, "main.js", 10 * time.Second},
		{domain.LangC, true, "main.c", 15 * time.Second},
		{domain.LangCpp, true, "main.cpp", 30 * time.Second},
		{domain.LangJava, true, "Main.java", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			p, ok := r.Lookup(tt.lang)
			if !ok {
				t.Fatalf("profile %s not registered", tt.lang)
			}
			if p.Compiled != tt.compiled {
				t.Errorf("compiled = %v, want %v", p.Compiled, tt.compiled)
			}
			if p.DefaultFileName != tt.file {
				t.Errorf("default file = %q, want %q", p.DefaultFileName, tt.file)
			}
			if p.Timeout != tt.timeout {
				t.Errorf("timeout = %v, want %v", p.Timeout, tt.timeout)
			}
		})
	}

	if _, ok := r.Lookup("ruby"); ok {
		t.Error("expected ruby to be unsupported")
	}
}

func TestRegistry_Languages(t *testing.T) {
	got := NewRegistry().Languages()
	want := []domain.Language{"c", "cpp", "java", "javascript", "python"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Languages() = %v, want %v", got, want)
	}
}

func TestRegistry_MaxTimeout(t *testing.T) {
	if got := NewRegistry().MaxTimeout(); got != 30*time.Second {
		t.Errorf("MaxTimeout() = %s, want 30s", got)
	}
}

func TestResolveEntry(t *testing.T) {
	r := NewRegistry()
	py, _ := r.Lookup(domain.LangPython)
	java, _ := r.Lookup(domain.LangJava)

	if e := py.ResolveEntry("", "print(1)"); e.FileName != "main.py" || e.Identifier != "main" {
		t.Errorf("default python entry = %+v", e)
	}
	if e := py.ResolveEntry("app/run.py", "print(1)"); e.FileName != "app/run.py" || e.Identifier != "run" {
		t.Errorf("declared python entry = %+v", e)
	}
	e := java.ResolveEntry("Whatever.java", "public class Foo { public static void main(String[] a){} }")
	if e.FileName != "Foo.java" || e.Identifier != "Foo" {
		t.Errorf("java entry = %+v, want Foo.java/Foo", e)
	}
}

func TestProfileArgs(t *testing.T) {
	r := NewRegistry()
	cpp, _ := r.Lookup(domain.LangCpp)
	java, _ := r.Lookup(domain.LangJava)
	py, _ := r.Lookup(domain.LangPython)

	build, err := cpp.BuildArgs(Entry{FileName: "main.cpp", Identifier: "main"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"g++", "-std=c++17", "main.cpp", "-o", "output"}
	if !reflect.DeepEqual(build, want) {
		t.Errorf("cpp build = %v, want %v", build, want)
	}

	run, _ := java.RunArgs(Entry{FileName: "Foo.java", Identifier: "Foo"})
	if !reflect.DeepEqual(run, []string{"java", "Foo"}) {
		t.Errorf("java run = %v", run)
	}

	none, err := py.BuildArgs(Entry{FileName: "main.py"})
	if err != nil || none != nil {
		t.Errorf("python build = %v, %v; want nil, nil", none, err)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.toml")
	content := `
[python]
run = "python3 -u {file}"
timeout = "5s"

[java]
image = "openjdk:11"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.LoadOverrides(path); err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}

	py, _ := r.Lookup(domain.LangPython)
	if py.RunCommand != "python3 -u {file}" || py.Timeout != 5*time.Second {
		t.Errorf("python override not applied: %+v", py)
	}
	java, _ := r.Lookup(domain.LangJava)
	if java.Image != "openjdk:11" || java.Timeout != 30*time.Second {
		t.Errorf("java override not applied: %+v", java)
	}
}

func TestLoadOverrides_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown language":  "[ruby]\nrun = \"ruby {file}\"\n",
		"bad timeout":       "[c]\ntimeout = \"soon\"\n",
		"interpreted build": "[python]\nbuild = \"pyc {file}\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profiles.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if err := NewRegistry().LoadOverrides(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
