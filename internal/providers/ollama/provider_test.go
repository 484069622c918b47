package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mwiater/toolflow/internal/appconfig"
	"github.com/mwiater/toolflow/internal/providers"
)

func TestProviderEmbed(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer server.Close()

	p := New(appconfig.Provider{Name: "ollama", URL: server.URL + "/", EmbedModel: "nomic"}, 5*time.Second, false)
	emb, err := p.Embed(context.Background(), "hello world!")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(emb.Vector) != 3 || emb.Vector[2] != 0.3 {
		t.Fatalf("unexpected vector: %v", emb.Vector)
	}
	if emb.Tokens != 3 {
		t.Fatalf("expected ceil(12/4)=3 tokens, got %d", emb.Tokens)
	}
	if captured["model"] != "nomic" || captured["prompt"] != "hello world!" {
		t.Fatalf("unexpected payload: %v", captured)
	}
}

func TestProviderEmbedEmptyVector(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[]}`))
	}))
	defer server.Close()

	p := New(appconfig.Provider{Name: "ollama", URL: server.URL}, 5*time.Second, false)
	_, err := p.Embed(context.Background(), "x")
	if !errors.Is(err, providers.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestProviderChatDisablesStreaming(t *testing.T) {
	t.Parallel()

	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"  final  "},"done":true}`))
	}))
	defer server.Close()

	p := New(appconfig.Provider{Name: "ollama", URL: server.URL}, 5*time.Second, false)
	reply, err := p.Chat(context.Background(), providers.UserPrompt("hi"))
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if reply != "final" {
		t.Fatalf("expected trimmed reply, got %q", reply)
	}
	if stream, ok := payload["stream"].(bool); !ok || stream {
		t.Fatalf("expected stream=false, got %v", payload["stream"])
	}
	if payload["model"] != defaultChatModel {
		t.Fatalf("expected default chat model, got %v", payload["model"])
	}
}

func TestProviderHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	p := New(appconfig.Provider{Name: "ollama", URL: server.URL}, 5*time.Second, false)
	if _, err := p.Chat(context.Background(), providers.UserPrompt("hi")); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
