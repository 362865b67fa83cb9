package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scrivener/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[paths]
data_dir = "`+dir+`/data"
log_dir = "`+dir+`/logs"

[llm]
api_key = "llm-key"
model = "test/model"

[research]
api_key = "research-key"
max_results = 5
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to be found, got %q exists=%v", path, resolved, exists)
	}
	if cfg.LLM.Model != "test/model" {
		t.Fatalf("llm.model = %q", cfg.LLM.Model)
	}
	if cfg.Research.MaxResults != 5 {
		t.Fatalf("research.max_results = %d", cfg.Research.MaxResults)
	}
	if cfg.Writing.MinScenes != 3 || cfg.Writing.MaxScenes != 15 {
		t.Fatalf("expected default scene bounds, got %d..%d", cfg.Writing.MinScenes, cfg.Writing.MaxScenes)
	}
	if cfg.Workflow.HeartbeatTimeout == 0 {
		t.Fatal("expected default heartbeat timeout")
	}
	if !strings.HasSuffix(cfg.DatabasePath(), "shelf.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestLoadRequiresProviderKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[paths]
data_dir = "`+dir+`/data"
log_dir = "`+dir+`/logs"

[research]
api_key = "research-key"
`)
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected llm.api_key error, got %v", err)
	}

	path = writeConfig(t, `
[paths]
data_dir = "`+dir+`/data"
log_dir = "`+dir+`/logs"

[llm]
api_key = "llm-key"
`)
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "research.api_key") {
		t.Fatalf("expected research.api_key error, got %v", err)
	}
}

func TestValidateRejectsBadWritingBounds(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "x"
	cfg.Research.APIKey = "y"
	cfg.Writing.MinScenes = 10
	cfg.Writing.MaxScenes = 5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when max_scenes < min_scenes")
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "x"
	cfg.Research.APIKey = "y"
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestEnsureDirectoriesCreatesDataAndLogs(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, p := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", p, err)
		}
	}
}

func TestSampleConfigMentionsEverySection(t *testing.T) {
	sample := config.SampleConfig()
	for _, section := range []string{"[paths]", "[llm]", "[research]", "[narration]", "[writing]", "[workflow]", "[logging]"} {
		if !strings.Contains(sample, section) {
			t.Fatalf("sample config missing %s", section)
		}
	}
}
