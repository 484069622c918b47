// internal/appconfig/appconfig_test.go
package appconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoad covers a valid file, invalid JSON, a cross-field violation and a
// missing file, which falls back to the built-in defaults.
func TestLoad(t *testing.T) {
	t.Setenv("VECTOR_STORE_PATH", "")

	validConfig := `{
        "providers": [
            {"name": "ollama", "type": "ollama", "url": "http://localhost:11434", "dimension": 4}
        ],
        "storePath": "data/store.json"
    }`
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() with valid config failed: %v", err)
	}
	if len(cfg.Providers) != 1 {
		t.Fatalf("expected 1 provider, got %d", len(cfg.Providers))
	}
	if cfg.TimeoutSeconds != 120 {
		t.Fatalf("expected default timeout of 120 seconds, got %d", cfg.TimeoutSeconds)
	}
	if cfg.RequestTimeout() != 120*time.Second {
		t.Fatalf("expected default request timeout of 120s, got %v", cfg.RequestTimeout())
	}
	if cfg.DefaultProviderName() != "ollama" {
		t.Fatalf("expected default provider ollama, got %q", cfg.DefaultProviderName())
	}
	if cfg.StorePath() != "data/store.json" {
		t.Fatalf("expected store path from file, got %q", cfg.StorePath())
	}
	if cfg.ExpectedDimension("ollama") != 4 {
		t.Fatalf("expected dimension 4, got %d", cfg.ExpectedDimension("ollama"))
	}

	if _, err := Load(writeConfig(t, `{ "providers": [`)); err == nil {
		t.Fatal("Load() with invalid JSON should have failed")
	}

	badOverlap := `{"providers":[{"name":"a","type":"ollama"}],"chunkSize":10,"chunkOverlap":10}`
	if _, err := Load(writeConfig(t, badOverlap)); err == nil {
		t.Fatal("Load() with overlap >= chunk size should have failed")
	}

	missing, err := Load(filepath.Join(t.TempDir(), "nonexistent.json"))
	if err != nil {
		t.Fatalf("Load() with nonexistent file should use defaults, got %v", err)
	}
	if len(missing.Providers) != 2 {
		t.Fatalf("expected default providers, got %d", len(missing.Providers))
	}
}

func TestAccessorDefaults(t *testing.T) {
	t.Setenv("VECTOR_STORE_PATH", "")
	cfg := Config{}

	if cfg.ChunkSize() != 500 || cfg.ChunkOverlap() != 50 {
		t.Fatalf("unexpected chunk defaults %d/%d", cfg.ChunkSize(), cfg.ChunkOverlap())
	}
	if cfg.TopK() != 3 {
		t.Fatalf("expected topK 3, got %d", cfg.TopK())
	}
	if cfg.StorePath() != "vectorStore.json" {
		t.Fatalf("expected default store path, got %q", cfg.StorePath())
	}
	if cfg.StoreBackend() != StoreBackendJSON {
		t.Fatalf("expected json backend, got %q", cfg.StoreBackend())
	}
	if cfg.ListenAddr() != "127.0.0.1:3000" {
		t.Fatalf("unexpected listen addr %q", cfg.ListenAddr())
	}

	zero := 0
	cfg.OverlapWords = &zero
	if cfg.ChunkOverlap() != 0 {
		t.Fatalf("expected explicit zero overlap to be honoured, got %d", cfg.ChunkOverlap())
	}

	cfg.StoreBackendName = "SQLite"
	if cfg.StorePath() != "vectorStore.db" {
		t.Fatalf("expected sqlite default path, got %q", cfg.StorePath())
	}

	t.Setenv("VECTOR_STORE_PATH", "/tmp/override.json")
	if cfg.StorePath() != "/tmp/override.json" {
		t.Fatalf("expected env override, got %q", cfg.StorePath())
	}
}

func TestValidateRejectsBadProviders(t *testing.T) {
	cases := map[string]Config{
		"no providers":   {},
		"duplicate name": {Providers: []Provider{{Name: "a", Type: "ollama"}, {Name: "a", Type: "openai"}}},
		"unknown type":   {Providers: []Provider{{Name: "a", Type: "bedrock"}}},
		"bad default":    {Providers: []Provider{{Name: "a", Type: "ollama"}}, DefaultProvider: "b"},
		"bad backend":    {Providers: []Provider{{Name: "a", Type: "ollama"}}, StoreBackendName: "redis"},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestShowConfig(t *testing.T) {
	var buf bytes.Buffer
	ShowConfig(&buf, "", Default())
	out := buf.String()
	if !strings.Contains(out, "No config file loaded") {
		t.Fatalf("expected defaults notice, got: %s", out)
	}
	if !strings.Contains(out, "Provider openai:") {
		t.Fatalf("expected provider line, got: %s", out)
	}
}
