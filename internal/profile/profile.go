// Package profile holds the static table of supported languages and how to
// build and run each of them.
package profile

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/YashHaritash/btp-backend/internal/domain"
)

const (
	placeholderFile  = "{file}"
	placeholderEntry = "{entry}"
)

// Profile describes how one language is built and run.
type Profile struct {
	Language        domain.Language
	Compiled        bool
	DefaultFileName string
	Extension       string
	BuildCommand    string
	RunCommand      string
	Image           string
	Timeout         time.Duration
}

// Entry is the resolved main file of an execution.
type Entry struct {
	FileName   string
	Identifier string
}

// BuildArgs expands the build command for the given entry.
// It returns nil for profiles without a build step.
func (p *Profile) BuildArgs(e Entry) ([]string, error) {
	if p.BuildCommand == "" {
		return nil, nil
	}
	return expand(p.BuildCommand, e)
}

// RunArgs expands the run command for the given entry.
func (p *Profile) RunArgs(e Entry) ([]string, error) {
	return expand(p.RunCommand, e)
}

// ResolveEntry picks the main file name and entry identifier for a request.
// Java ignores the declared name: the file must be named after the class.
func (p *Profile) ResolveEntry(declared, source string) Entry {
	if p.Language == domain.LangJava {
		class := DeriveJavaEntry(source)
		return Entry{FileName: class + p.Extension, Identifier: class}
	}

	name := declared
	if name == "" {
		name = p.DefaultFileName
	}
	return Entry{
		FileName:   name,
		Identifier: strings.TrimSuffix(path.Base(name), path.Ext(name)),
	}
}

func expand(template string, e Entry) ([]string, error) {
	r := strings.NewReplacer(placeholderFile, e.FileName, placeholderEntry, e.Identifier)
	args, err := shlex.Split(r.Replace(template))
	if err != nil {
		return nil, fmt.Errorf("profile: split command %q: %w", template, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("profile: empty command template")
	}
	return args, nil
}

// Registry maps language tags to immutable profiles.
type Registry struct {
	profiles map[domain.Language]*Profile
}

// NewRegistry returns a registry holding the built-in profiles.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[domain.Language]*Profile)}
	for _, p := range defaults() {
		p := p
		r.profiles[p.Language] = &p
	}
	return r
}

// Lookup returns the profile of a language tag.
func (r *Registry) Lookup(lang domain.Language) (*Profile, bool) {
	p, ok := r.profiles[lang]
	return p, ok
}

// Languages returns the supported tags in a stable order.
func (r *Registry) Languages() []domain.Language {
	langs := make([]domain.Language, 0, len(r.profiles))
	for l := range r.profiles {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// MaxTimeout returns the largest time budget of any profile.
func (r *Registry) MaxTimeout() time.Duration {
	var longest time.Duration
	for _, p := range r.profiles {
		if p.Timeout > longest {
			longest = p.Timeout
		}
	}
	return longest
}

func defaults() []Profile {
	return []Profile{
		{
			Language:        domain.LangPython,
			DefaultFileName: "main.py",
			Extension:       ".py",
			RunCommand:      "python3 {file}",
			Image:           "python:3.12-slim",
			Timeout:         10 * time.Second,
		},
		{
			Language:        domain.LangJavaScript,
			DefaultFileName: "main.js",
			Extension:       ".js",
			RunCommand:      "node {file}",
			Image:           "node:20-slim",
			Timeout:         10 * time.Second,
		},
		{
			Language:        domain.LangC,
			Compiled:        true,
			DefaultFileName: "main.c",
			Extension:       ".c",
			BuildCommand:    "gcc {file} -o output",
			RunCommand:      "./output",
			Image:           "gcc:latest",
			Timeout:         15 * time.Second,
		},
		{
			Language:        domain.LangCpp,
			Compiled:        true,
			DefaultFileName: "main.cpp",
			Extension:       ".cpp",
			BuildCommand:    "g++ -std=c++17 {file} -o output",
			RunCommand:      "./output",
			Image:           "gcc:latest",
			Timeout:         30 * time.Second,
		},
		{
			Language:        domain.LangJava,
			Compiled:        true,
			DefaultFileName: "Main.java",
			Extension:       ".java",
			BuildCommand:    "javac {file}",
			RunCommand:      "java {entry}",
			Image:           "eclipse-temurin:17-jdk",
			Timeout:         30 * time.Second,
		},
	}
}
