// Package testutil provides shared test helpers for setting up persona libraries.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Library is a temporary persona library laid out as
// <Root>/avatars/*.md next to <Root>/AGENTS.md.
type Library struct {
	Root string
	Dir  string
	Base string
}

// Persona returns a minimal persona document.
func Persona(id, name string) string {
	return "---\nid: " + id + "\nname: " + name + "\n---\n# " + name + "\n"
}

// NewLibrary creates an empty library with a base instructions file.
func NewLibrary(t *testing.T) *Library {
	t.Helper()
	root := t.TempDir()
	lib := &Library{
		Root: root,
		Dir:  filepath.Join(root, "avatars"),
		Base: filepath.Join(root, "AGENTS.md"),
	}
	if err := os.Mkdir(lib.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	WriteFile(t, lib.Base, "Base instructions\n")
	return lib
}

// SampleLibrary creates a library holding ONE.md and TWO.md.
func SampleLibrary(t *testing.T) *Library {
	t.Helper()
	lib := NewLibrary(t)
	lib.Add(t, "ONE.md", "---\nid: one\nname: One\ndescription: First\n---\nbody one\n")
	lib.Add(t, "TWO.md", Persona("two", "Two"))
	return lib
}

// Add writes a file into the persona directory.
func (l *Library) Add(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(l.Dir, name)
	WriteFile(t, p, content)
	return p
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
