package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	p := writeConfig(t, "name: ${SAMPLE_NAME}\ncount: 3\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "from-env" || s.Count != 3 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	p := writeConfig(t, "count: -1\n")
	var s sample
	err := Load(p, &s)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestLoadIfExists_MissingKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Count: 1}
	if err := LoadIfExists(filepath.Join(t.TempDir(), "none.yaml"), &s); err != nil {
		t.Fatalf("LoadIfExists: %v", err)
	}
	if s.Name != "default" || s.Count != 1 {
		t.Errorf("defaults changed: %+v", s)
	}
}

func TestLoadIfExists_MissingStillValidates(t *testing.T) {
	s := sample{Count: -5}
	if err := LoadIfExists(filepath.Join(t.TempDir(), "none.yaml"), &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadIfExists_OverlaysFile(t *testing.T) {
	p := writeConfig(t, "count: 9\n")
	s := sample{Name: "default", Count: 1}
	if err := LoadIfExists(p, &s); err != nil {
		t.Fatalf("LoadIfExists: %v", err)
	}
	if s.Name != "default" || s.Count != 9 {
		t.Errorf("got %+v", s)
	}
}
