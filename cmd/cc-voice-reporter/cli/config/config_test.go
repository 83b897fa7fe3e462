package config

import (
	"strings"
	"testing"
)

func TestParse_FullDocument(t *testing.T) {
	doc := `{
		"logLevel": "debug",
		"language": "fr",
		"projectsDir": "/custom/projects",
		"filter": {"include": ["app"], "exclude": ["scratch"]},
		"speaker": {"command": ["say", "-v", "Alex"]},
		"ollama": {"model": "llama3", "baseUrl": "http://localhost:11434", "timeoutMs": 30000},
		"summary": {"intervalMs": 8000}
	}`
	cfg, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Language != "fr" || cfg.ProjectsDir != "/custom/projects" {
		t.Errorf("cfg = %+v, top-level fields mismatch", cfg)
	}
	if len(cfg.Filter.Include) != 1 || cfg.Filter.Include[0] != "app" {
		t.Errorf("cfg.Filter.Include = %v", cfg.Filter.Include)
	}
	if len(cfg.Speaker.Command) != 3 {
		t.Errorf("cfg.Speaker.Command = %v", cfg.Speaker.Command)
	}
	if cfg.Ollama.TimeoutMs != 30000 {
		t.Errorf("cfg.Ollama.TimeoutMs = %d, want 30000", cfg.Ollama.TimeoutMs)
	}
	if cfg.Summary.IntervalMs != 8000 {
		t.Errorf("cfg.Summary.IntervalMs = %d, want 8000", cfg.Summary.IntervalMs)
	}
}

func TestParse_EmptyDocumentIsValid(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.LogLevel != "" {
		t.Errorf("cfg.LogLevel = %q, want empty", cfg.LogLevel)
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"logLevel": "debug", "bogus": true}`))
	if err == nil {
		t.Fatal("Parse() error = nil, want error for unknown field")
	}
}

func TestLoad_MissingFileYieldsZeroValue(t *testing.T) {
	cfg, err := Load("/no/such/path/config.json")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for missing file", err)
	}
	if cfg.LogLevel != "" {
		t.Errorf("cfg = %+v, want zero value", cfg)
	}
}

func TestResolveLogLevel_EnvOverridesFile(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "error")
	cfg := Config{LogLevel: "debug"}
	if got := cfg.ResolveLogLevel(); got != "error" {
		t.Errorf("ResolveLogLevel() = %q, want %q", got, "error")
	}
}

func TestResolveLogLevel_FallsBackToFile(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	cfg := Config{LogLevel: "warn"}
	if got := cfg.ResolveLogLevel(); got != "warn" {
		t.Errorf("ResolveLogLevel() = %q, want %q", got, "warn")
	}
}

func TestFilter_EmptyAllowsAll(t *testing.T) {
	f := Filter{}
	if !f.Allows("anything") {
		t.Error("Allows() = false, want true for empty filter")
	}
}

func TestFilter_ExcludeOverridesInclude(t *testing.T) {
	f := Filter{Include: []string{"app"}, Exclude: []string{"app"}}
	if f.Allows("my-app") {
		t.Error("Allows() = true, want false: exclude overrides include")
	}
}

func TestFilter_MatchesBySuffixAndSubstring(t *testing.T) {
	f := Filter{Include: []string{"app"}}
	if !f.Allows("my-app") {
		t.Error("Allows(my-app) = false, want true (suffix match)")
	}
	if !f.Allows("appetizer") {
		t.Error("Allows(appetizer) = false, want true (substring match)")
	}
	if f.Allows("other") {
		t.Error("Allows(other) = true, want false (no match)")
	}
}

func TestFilter_IncludeRejectsNonMatching(t *testing.T) {
	f := Filter{Include: []string{"specific-project"}}
	if f.Allows("unrelated") {
		t.Error("Allows(unrelated) = true, want false when include list doesn't match")
	}
}
