package aliasing

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.SexAliases) != 0 {
		t.Fatalf("expected empty config for missing file")
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".meetctl.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.SexAliases) != 0 {
		t.Fatalf("expected empty config for empty file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".meetctl.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: [["), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("expected graceful degradation, got error: %v", err)
	}

	if len(cfg.SexAliases) != 0 {
		t.Fatalf("expected empty config after invalid YAML")
	}
}

func TestLoadConfig_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".meetctl.yaml")
	content := `
sex_aliases:
  - pattern: "男子"
    canonical: "M"
  - pattern: "女子"
    canonical: "F"
prefecture_aliases:
  - pattern: "{pref}県"
    canonical: "{pref}"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.SexAliases) != 2 {
		t.Fatalf("expected 2 sex aliases, got %d", len(cfg.SexAliases))
	}

	if len(cfg.PrefectureAliases) != 1 {
		t.Fatalf("expected 1 prefecture alias, got %d", len(cfg.PrefectureAliases))
	}
}

func TestLoadConfigFromEnv_Default(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg == nil {
		t.Fatalf("expected non-nil config")
	}
}
