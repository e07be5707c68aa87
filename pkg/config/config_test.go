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
	Port  int    `yaml:"port"`
	valid int
}

var errNoName = errors.New("name is required")

func (s *sample) Validate() error {
	s.valid++
	if s.Name == "" {
		return errNoName
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

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("TUTORIAL_NAME", "site")
	p := writeConfig(t, "name: ${TUTORIAL_NAME}\n")

	cfg := sample{Port: 8080}
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "site" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, default should survive", cfg.Port)
	}
	if cfg.valid != 1 {
		t.Errorf("Validate called %d times", cfg.valid)
	}
}

func TestLoad_Missing(t *testing.T) {
	var cfg sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	p := writeConfig(t, "name: [unclosed\n")
	var cfg sample
	err := Load(p, &cfg)
	if err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	p := writeConfig(t, "port: 1\n")
	var cfg sample
	if err := Load(p, &cfg); !errors.Is(err, errNoName) {
		t.Errorf("err = %v, want errNoName", err)
	}
}

func TestLoadOptional(t *testing.T) {
	cfg := sample{Name: "defaults"}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Name != "defaults" || cfg.valid != 1 {
		t.Errorf("cfg = %+v", cfg)
	}

	var empty sample
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &empty); !errors.Is(err, errNoName) {
		t.Errorf("defaults are still validated: err = %v", err)
	}

	p := writeConfig(t, "name: file\n")
	if err := LoadOptional(p, &cfg); err != nil || cfg.Name != "file" {
		t.Errorf("cfg = %+v, err = %v", cfg, err)
	}
}
