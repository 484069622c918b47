package rag

import (
	"strings"
	"testing"
)

func TestFormatContextTruncatesEachDocument(t *testing.T) {
	docs := []RetrievedDoc{
		{ID: "a", Text: "one two three four"},
		{ID: "b", Text: "  five  "},
		{ID: "c", Text: "   "},
	}

	got := FormatContext(docs, 7)
	want := "• one two…\n• five"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFormatContextNoDocs(t *testing.T) {
	if got := FormatContext(nil, 10); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
}

func TestFormatContextCountsRunes(t *testing.T) {
	got := FormatContext([]RetrievedDoc{{Text: "ééééé"}}, 3)
	if got != "• ééé…" {
		t.Fatalf("expected rune-based truncation, got %q", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("• ctx", "What is it?")
	if !strings.HasPrefix(prompt, "Answer the user question using ONLY the context below.\n\nContext:\n• ctx") {
		t.Fatalf("unexpected prompt prefix: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "\n\nQuestion: What is it?") {
		t.Fatalf("unexpected prompt suffix: %q", prompt)
	}
}
