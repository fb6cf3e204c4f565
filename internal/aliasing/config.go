// Package aliasing provides pattern-based synonym resolution for roster import fields.
//
// Different prefectural federations and feeder spreadsheets spell the same sex,
// grade, prefecture, and nationality values in slightly different ways (e.g. "男"
// vs "男子" vs "M", "東京都" vs "東京"). This package loads a table of
// pattern → canonical rules per field and resolves raw spreadsheet values to the
// closed canonical set the roster importer requires.
//
// Example configuration (.meetctl.yaml):
//
//	sex_aliases:
//	  - pattern: "男子"
//	    canonical: "M"
//	prefecture_aliases:
//	  - pattern: "{pref}県"
//	    canonical: "{pref}"
//
// This transforms "男子" → "M" and "埼玉県" → "埼玉".
package aliasing

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trackmeet/engine/internal/config"
)

type (
	// AliasPattern defines a pattern-based transformation rule for one raw value.
	//
	// Patterns are evaluated in order; first match wins.
	// Pattern syntax:
	//   - {variable} captures any characters except "/"
	//   - {variable*} captures any characters including "/"
	//   - Literal characters match exactly
	AliasPattern struct {
		Pattern   string `yaml:"pattern"`
		Canonical string `yaml:"canonical"`
	}

	// Config holds the per-field alias tables loaded from .meetctl.yaml.
	Config struct {
		//nolint:tagliatelle // snake_case is intentional for YAML config files
		SexAliases []AliasPattern `yaml:"sex_aliases"`
		//nolint:tagliatelle
		GradeAliases []AliasPattern `yaml:"grade_aliases"`
		//nolint:tagliatelle
		PrefectureAliases []AliasPattern `yaml:"prefecture_aliases"`
		//nolint:tagliatelle
		NationalityAliases []AliasPattern `yaml:"nationality_aliases"`
	}
)

const (
	// DefaultConfigPath is the default location for the roster alias configuration file.
	DefaultConfigPath = ".meetctl.yaml"

	// ConfigPathEnvVar is the environment variable name for a custom config path.
	ConfigPathEnvVar = "MEETCTL_CONFIG_PATH"
)

// LoadConfig loads alias configuration from a YAML file at the given path.
//
// Behavior:
//   - Returns empty config (not error) if file doesn't exist - alias tables are optional,
//     the built-in canonical tables (see the canonicalization package) still apply.
//   - Returns empty config + logs warning if YAML is invalid (graceful degradation).
//   - Returns populated config on success.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("alias config file not found, continuing with built-in tables only",
				slog.String("path", path))

			return cfg, nil
		}

		slog.Warn("failed to read alias config file, continuing with built-in tables only",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("failed to parse alias config file, continuing with built-in tables only",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return &Config{}, nil
	}

	return cfg, nil
}

// LoadConfigFromEnv loads config from the path specified in the MEETCTL_CONFIG_PATH
// environment variable, falling back to DefaultConfigPath in the current directory.
func LoadConfigFromEnv() (*Config, error) {
	path := config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath)

	return LoadConfig(path)
}
