package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	path := filepath.Join(t.TempDir(), "nope.toml")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Upload.MaxSizeMiB != defaultMaxSizeMiB {
		t.Fatalf("expected default max size, got %d", cfg.Upload.MaxSizeMiB)
	}
	if cfg.STT.APIKey != "test-key" {
		t.Fatalf("expected env fallback api key, got %q", cfg.STT.APIKey)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected env fallback llm key, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	path := writeConfig(t, `
[upload]
max_size_mib = 10
allowed_extensions = ["WAV", ".Mp3", "wav", ""]

[stt]
base_url = "https://stt.example.com/v1/"
language = "EN"

[logging]
format = "JSON"
`)

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if got := cfg.Upload.AllowedExtensions; len(got) != 2 || got[0] != ".wav" || got[1] != ".mp3" {
		t.Fatalf("unexpected extensions: %v", got)
	}
	if cfg.STT.BaseURL != "https://stt.example.com/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.STT.BaseURL)
	}
	if cfg.STT.Language != "en" {
		t.Fatalf("expected lowercase language, got %q", cfg.STT.Language)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CALLBOX_STT_API_KEY", "")
	t.Setenv("CALLBOX_LLM_API_KEY", "")
	path := filepath.Join(t.TempDir(), "nope.toml")

	_, _, _, err := Load(path)
	if err == nil {
		t.Fatal("expected error when no API key is configured")
	}
	if !strings.Contains(err.Error(), "stt.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "# existing")
	if err := WriteSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
}

func TestWriteSampleCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[stt]") {
		t.Fatal("sample config missing [stt] section")
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	got, err := expandPath("~/calls")
	if err != nil {
		t.Fatalf("expandPath: %v", err)
	}
	if got != filepath.Join(home, "calls") {
		t.Fatalf("unexpected expansion: %q", got)
	}
}
