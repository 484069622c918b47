package providerfactory

import (
	"context"
	"testing"

	"github.com/mwiater/toolflow/internal/appconfig"
	"github.com/mwiater/toolflow/internal/metrics"
)

func TestNewProviderSetErrorsOnNilConfig(t *testing.T) {
	if _, err := NewProviderSet(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewProviderSetBuildsConfiguredProviders(t *testing.T) {
	cfg := &appconfig.Config{
		Providers: []appconfig.Provider{
			{Name: "local", Type: "Stub", Dimension: 4},
			{Name: "ollama", Type: "ollama", URL: "http://127.0.0.1:1"},
			{Name: "openai", Type: "openai"},
			{Name: "llama", Type: "llamacpp", URL: "http://127.0.0.1:1"},
		},
		DefaultProvider: "local",
	}

	set, err := NewProviderSet(cfg, metrics.New())
	if err != nil {
		t.Fatalf("NewProviderSet returned error: %v", err)
	}
	if names := set.Names(); len(names) != 4 || names[0] != "local" {
		t.Fatalf("unexpected provider names: %v", names)
	}

	p, err := set.Get("")
	if err != nil {
		t.Fatalf("Get default: %v", err)
	}
	emb, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	if len(emb.Vector) != 4 {
		t.Fatalf("expected 4-dim stub vector, got %d", len(emb.Vector))
	}
}

func TestNewProviderSetRejectsUnsupportedType(t *testing.T) {
	cfg := &appconfig.Config{Providers: []appconfig.Provider{{Name: "x", Type: "unsupported"}}}
	if _, err := NewProviderSet(cfg, nil); err == nil {
		t.Fatal("expected error for unsupported provider type")
	}
}
