package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lcaparam/internal/importer"
)

type ProjectConfig struct {
	Project  string         `yaml:"project"`
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Input    InputConfig    `yaml:"input"`
	Import   ImportConfig   `yaml:"import"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type InputConfig struct {
	Delimiter string   `yaml:"delimiter"`
	S3        S3Config `yaml:"s3"`
}

type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

type ImportConfig struct {
	LinkMode  string `yaml:"link_mode"`
	Overwrite bool   `yaml:"overwrite"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

// DelimiterRune returns the configured CSV delimiter, defaulting to a comma.
func (c *ProjectConfig) DelimiterRune() rune {
	if c.Input.Delimiter == "" {
		return ','
	}
	if c.Input.Delimiter == `\t` {
		return '\t'
	}
	return []rune(c.Input.Delimiter)[0]
}

func applyDefaults(cfg *ProjectConfig) {
	if strings.TrimSpace(cfg.Import.LinkMode) == "" {
		cfg.Import.LinkMode = string(importer.LinkFirst)
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = "json"
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}

	dsn := strings.TrimSpace(cfg.Database.DSN)
	if dsn == "" {
		return fmt.Errorf("database dsn is required")
	}
	if !HasSupportedScheme(dsn) {
		return fmt.Errorf("unsupported database dsn scheme: %s", dsn)
	}

	if cfg.Input.Delimiter != "" && cfg.Input.Delimiter != `\t` && len([]rune(cfg.Input.Delimiter)) != 1 {
		return fmt.Errorf("input delimiter must be a single character, got %q", cfg.Input.Delimiter)
	}

	if _, err := importer.ParseLinkMode(cfg.Import.LinkMode); err != nil {
		return err
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format: %s", cfg.Log.Format)
	}

	return nil
}

func HasSupportedScheme(dsn string) bool {
	for _, prefix := range []string{"sqlite://", "postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return true
		}
	}
	return false
}
