package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveConfig_Precedence_ConfigEnvCLI(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	yaml := `db_path: ~/.partlex/from-config.db
kb_path: ~/.partlex/from-config.json
embed:
  provider: ollama
  model: nomic-embed-text
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PARTLEX_DB", "~/from-env.db")
	t.Setenv("PARTLEX_EMBED", "openai")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: cfgPath,
		CLIDBPath:  "~/from-cli.db",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	if resolved.DBPath.Source != SourceCLI {
		t.Fatalf("expected DB path source cli, got %s", resolved.DBPath.Source)
	}
	if resolved.EmbedProvider.Source != SourceEnv {
		t.Fatalf("expected embed provider source env, got %s", resolved.EmbedProvider.Source)
	}
	if resolved.EmbedProvider.Value != "openai" {
		t.Fatalf("expected embed provider openai, got %q", resolved.EmbedProvider.Value)
	}
	if resolved.EmbedModel.Source != SourceConfig {
		t.Fatalf("expected embed model from config, got %s", resolved.EmbedModel.Source)
	}
	if resolved.KBPath.Source != SourceConfig {
		t.Fatalf("expected kb path from config, got %s", resolved.KBPath.Source)
	}
}

func TestResolveConfig_MissingFileIsFine(t *testing.T) {
	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "nope.yaml"),
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if resolved.DBPath.Value != "" {
		t.Fatalf("expected empty db path, got %q", resolved.DBPath.Value)
	}
	if resolved.KBPath.Source != SourceDefault {
		t.Fatalf("expected kb path default, got %s", resolved.KBPath.Source)
	}
	if resolved.KBPath.Value == "" {
		t.Fatal("expected kb path default value")
	}
}

func TestResolveConfig_TildeExpansion(t *testing.T) {
	t.Setenv("PARTLEX_KB_PATH", "~/kb.json")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "nope.yaml"),
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	want := filepath.Join(home, "kb.json")
	if resolved.KBPath.Value != want {
		t.Fatalf("expected %q, got %q", want, resolved.KBPath.Value)
	}
	if resolved.KBPath.From != "PARTLEX_KB_PATH" {
		t.Fatalf("expected provenance PARTLEX_KB_PATH, got %q", resolved.KBPath.From)
	}
}

func TestResolveConfig_BadYAML(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("db_path:\n\tkb_path: x"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath}); err == nil {
		t.Fatal("expected error for malformed config")
	}
}
