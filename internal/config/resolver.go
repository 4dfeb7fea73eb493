// Package config resolves runtime configuration from three layers: the
// YAML config file, PARTLEX_* environment variables, and CLI flags, in
// ascending precedence. Every resolved value remembers where it came from
// so diagnostics can say why a setting is what it is.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is one setting plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-level overrides into resolution.
type ResolveOptions struct {
	ConfigPath string
	CLIDBPath  string
	CLIKBPath  string
	CLIEmbed   string
}

// ResolvedConfig is the full resolved runtime configuration.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath ResolvedValue `json:"db_path"`
	KBPath ResolvedValue `json:"kb_path"`

	TokenizerPath ResolvedValue `json:"tokenizer_path"`

	EmbedProvider ResolvedValue `json:"embed_provider"`
	EmbedModel    ResolvedValue `json:"embed_model"`
	EmbedEndpoint ResolvedValue `json:"embed_endpoint"`
	EmbedAPIKey   ResolvedValue `json:"embed_api_key"`
}

type fileConfig struct {
	DBPath        string `yaml:"db_path"`
	KBPath        string `yaml:"kb_path"`
	TokenizerPath string `yaml:"tokenizer_path"`
	Embed         struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"embed"`
}

// DefaultConfigPath is the per-user config file location.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".partlex", "config.yaml")
}

// DefaultKBPath is the per-user knowledge base location.
func DefaultKBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".partlex", "knowledge.json")
}

// ResolveConfig loads the config file (missing file is fine), then layers
// environment variables and CLI flags on top.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.KBPath, cfg.KBPath, SourceConfig, path)
		apply(&out.TokenizerPath, cfg.TokenizerPath, SourceConfig, path)
		apply(&out.EmbedProvider, cfg.Embed.Provider, SourceConfig, path)
		apply(&out.EmbedModel, cfg.Embed.Model, SourceConfig, path)
		apply(&out.EmbedEndpoint, cfg.Embed.Endpoint, SourceConfig, path)
		apply(&out.EmbedAPIKey, cfg.Embed.APIKey, SourceConfig, path)
	}

	applyEnv(&out.DBPath, "PARTLEX_DB")
	applyEnv(&out.DBPath, "PARTLEX_DB_PATH")
	applyEnv(&out.KBPath, "PARTLEX_KB")
	applyEnv(&out.KBPath, "PARTLEX_KB_PATH")
	applyEnv(&out.TokenizerPath, "PARTLEX_TOKENIZER")
	applyEnv(&out.EmbedProvider, "PARTLEX_EMBED")
	applyEnv(&out.EmbedModel, "PARTLEX_EMBED_MODEL")
	applyEnv(&out.EmbedEndpoint, "PARTLEX_EMBED_ENDPOINT")
	applyEnv(&out.EmbedAPIKey, "PARTLEX_EMBED_API_KEY")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.KBPath, opts.CLIKBPath, SourceCLI, "--kb")
	apply(&out.EmbedProvider, opts.CLIEmbed, SourceCLI, "--embed")

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}
	if out.KBPath.Value == "" {
		out.KBPath = ResolvedValue{Value: DefaultKBPath(), Source: SourceDefault, From: "built-in default"}
	} else {
		out.KBPath.Value = expandUserPath(out.KBPath.Value)
	}
	if out.TokenizerPath.Value != "" {
		out.TokenizerPath.Value = expandUserPath(out.TokenizerPath.Value)
	}

	return out, nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
