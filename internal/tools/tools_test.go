package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/toolflow/internal/dispatcher"
	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/providers"
	"github.com/mwiater/toolflow/internal/providers/stub"
	"github.com/mwiater/toolflow/internal/rag"
	"github.com/mwiater/toolflow/internal/registry"
	"github.com/mwiater/toolflow/internal/vectorstore"
)

type env struct {
	dispatcher *dispatcher.Dispatcher
	stub       *stub.Provider
	store      *vectorstore.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := stub.New("stub", 4)
	set, err := providers.NewSet("stub", s, stub.New("ollama", 4))
	require.NoError(t, err)

	store := vectorstore.New(vectorstore.NewJSONFile(filepath.Join(t.TempDir(), "vectorStore.json")))
	pipeline := rag.New(set, store, rag.Options{})

	reg := registry.New()
	require.NoError(t, RegisterAll(reg, Deps{Providers: set, Pipeline: pipeline}))
	reg.Seal()
	return &env{dispatcher: dispatcher.New(reg), stub: s, store: store}
}

func (e *env) invoke(t *testing.T, toolID string, input map[string]any) protocol.CallToolResult {
	t.Helper()
	return e.dispatcher.Invoke(context.Background(), protocol.CallToolRequest{RequestID: "t-" + toolID, ToolID: toolID, Input: input})
}

func (e *env) documents(t *testing.T) []vectorstore.Document {
	t.Helper()
	docs, err := e.store.Documents(context.Background())
	require.NoError(t, err)
	return docs
}

func TestRegisterAllOrder(t *testing.T) {
	e := newEnv(t)
	var ids []string
	for _, d := range e.dispatcher.Tools() {
		ids = append(ids, d.ToolID)
	}
	assert.Equal(t, []string{EchoName, LLMChatName, HeadlineName, AddDocName, IngestTextName, IngestPathName, SearchName}, ids)
}

func TestRegisterAllTwiceFails(t *testing.T) {
	s := stub.New("stub", 4)
	set, err := providers.NewSet("", s)
	require.NoError(t, err)
	deps := Deps{Providers: set, Pipeline: rag.New(set, vectorstore.New(vectorstore.NewJSONFile(filepath.Join(t.TempDir(), "s.json"))), rag.Options{})}

	reg := registry.New()
	require.NoError(t, RegisterAll(reg, deps))
	assert.ErrorIs(t, RegisterAll(reg, deps), registry.ErrDuplicateTool)
	assert.Error(t, RegisterAll(registry.New(), Deps{}))
}

func TestEcho(t *testing.T) {
	res := newEnv(t).invoke(t, EchoName, map[string]any{"text": "hello"})
	require.False(t, res.IsError(), "%+v", res.Error)
	assert.Equal(t, map[string]any{"echoed": "hello"}, res.Output)
}

func TestLLMChat(t *testing.T) {
	e := newEnv(t)
	e.stub.SetReply("  four  ")

	res := e.invoke(t, LLMChatName, map[string]any{"prompt": "2+2?"})
	require.False(t, res.IsError(), "%+v", res.Error)
	assert.Equal(t, map[string]any{"completion": "four"}, res.Output)
	assert.Equal(t, []string{"2+2?"}, e.stub.Prompts())
}

func TestLLMChatProviderFault(t *testing.T) {
	e := newEnv(t)
	e.stub.SetChatFunc(func([]providers.ChatMessage) (string, error) { return "", errors.New("503 from upstream") })

	res := e.invoke(t, LLMChatName, map[string]any{"prompt": "hi", "provider": "stub"})
	require.True(t, res.IsError())
	assert.Equal(t, protocol.CodeProviderFault, res.Error.Code)
	assert.NotContains(t, res.Error.Message, "503")
}

func TestProviderOutsideEnumIsRejected(t *testing.T) {
	e := newEnv(t)
	res := e.invoke(t, LLMChatName, map[string]any{"prompt": "hi", "provider": "bogus"})
	require.True(t, res.IsError())
	assert.Equal(t, protocol.CodeValidation, res.Error.Code)
	assert.Equal(t, 0, e.stub.ChatCalls())
}

func TestHeadlinePrompt(t *testing.T) {
	e := newEnv(t)
	var got []providers.ChatMessage
	e.stub.SetChatFunc(func(messages []providers.ChatMessage) (string, error) {
		got = messages
		return "\nBig News\n", nil
	})

	res := e.invoke(t, HeadlineName, map[string]any{"text": "We shipped it.", "tone": "playful"})
	require.False(t, res.IsError(), "%+v", res.Error)
	assert.Equal(t, map[string]any{"headline": "Big News"}, res.Output)

	require.Len(t, got, 2)
	assert.Equal(t, "system", got[0].Role)
	assert.Equal(t, headlineSystemPrompt, got[0].Content)
	assert.Equal(t, "Here is some text:\n\n\"We shipped it.\"\n\nWrite a headline in a playful tone.\n\nHeadline:", got[1].Content)
	assert.Equal(t, "Here is some text:\n\n\"x\"\n\nHeadline:", headlinePrompt("x", ""))
}

func TestAddDoc(t *testing.T) {
	e := newEnv(t)

	res := e.invoke(t, AddDocName, map[string]any{"text": "short"})
	require.True(t, res.IsError())
	assert.Equal(t, protocol.CodeValidation, res.Error.Code)
	assert.Empty(t, e.documents(t))

	res = e.invoke(t, AddDocName, map[string]any{"text": "a sufficiently long document"})
	require.False(t, res.IsError(), "%+v", res.Error)
	out := res.Output.(map[string]any)
	assert.Equal(t, "added", out["status"])
	assert.NotEmpty(t, out["id"])

	docs := e.documents(t)
	require.Len(t, docs, 1)
	assert.Equal(t, "stub", docs[0].Provider)
}

func TestIngestTextMissingFieldNeverTouchesStore(t *testing.T) {
	e := newEnv(t)

	res := e.invoke(t, IngestTextName, map[string]any{"chunkSize": 100})
	require.True(t, res.IsError())
	assert.Equal(t, protocol.CodeValidation, res.Error.Code)
	assert.Equal(t, "t-"+IngestTextName, res.RequestID)
	assert.Equal(t, 0, e.stub.EmbedCalls())
	assert.Empty(t, e.documents(t))
}

func TestIngestTextBounds(t *testing.T) {
	e := newEnv(t)
	for _, input := range []map[string]any{
		{"text": "words", "chunkSize": 10},
		{"text": "words", "chunkSize": 2000},
		{"text": "words", "overlap": -1},
		{"text": "words", "chunkSize": 50, "overlap": 50},
	} {
		res := e.invoke(t, IngestTextName, input)
		require.True(t, res.IsError(), "%v", input)
		assert.Equal(t, protocol.CodeValidation, res.Error.Code, "%v", input)
	}
	assert.Equal(t, 0, e.stub.EmbedCalls())
}

func TestIngestThenSearch(t *testing.T) {
	e := newEnv(t)
	text := strings.Repeat("gophers love concurrency ", 40)

	res := e.invoke(t, IngestTextName, map[string]any{"text": text, "id": "gopher-notes", "chunkSize": 50, "overlap": 10})
	require.False(t, res.IsError(), "%+v", res.Error)
	out := res.Output.(map[string]any)
	assert.Equal(t, "gopher-notes", out["id"])
	assert.Equal(t, float64(3), out["chunks"])
	assert.Equal(t, "added", out["status"])

	e.stub.SetReply("They love concurrency.")
	res = e.invoke(t, SearchName, map[string]any{"query": "what do gophers love?", "topK": 2})
	require.False(t, res.IsError(), "%+v", res.Error)
	search := res.Output.(map[string]any)
	assert.Equal(t, "They love concurrency.", search["answer"])
	docs := search["docs"].([]any)
	require.Len(t, docs, 2)
	assert.Equal(t, "gopher-notes", docs[0].(map[string]any)["id"])
}

func TestSearchEmptyStore(t *testing.T) {
	e := newEnv(t)
	res := e.invoke(t, SearchName, map[string]any{"query": "anything"})
	require.False(t, res.IsError(), "%+v", res.Error)
	assert.Equal(t, map[string]any{"answer": rag.NoInformationAnswer, "docs": []any{}}, res.Output)
	assert.Equal(t, 0, e.stub.ChatCalls())

	res = e.invoke(t, SearchName, map[string]any{"query": "anything", "topK": 11})
	require.True(t, res.IsError())
	assert.Equal(t, protocol.CodeValidation, res.Error.Code)
}

func TestIngestPartialFailureEnvelope(t *testing.T) {
	e := newEnv(t)
	e.stub.FailEmbeddingsAfter(1, errors.New("timeout"))

	res := e.invoke(t, IngestTextName, map[string]any{"text": strings.Repeat("word ", 120), "chunkSize": 50, "overlap": 0})
	require.True(t, res.IsError())
	assert.Equal(t, protocol.CodeProviderFault, res.Error.Code)
	details := res.Error.Details.(map[string]any)
	assert.Equal(t, 1, details["storedChunks"])
	assert.Equal(t, 3, details["totalChunks"])
	assert.Len(t, e.documents(t), 1)
}

func TestIngestPath(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text notes for the store"), 0o644))
	pdf := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.7"), 0o644))

	res := e.invoke(t, IngestPathName, map[string]any{"filePath": txt})
	require.False(t, res.IsError(), "%+v", res.Error)
	assert.Equal(t, float64(1), res.Output.(map[string]any)["chunks"])

	res = e.invoke(t, IngestPathName, map[string]any{"filePath": pdf})
	require.True(t, res.IsError())
	assert.Equal(t, protocol.CodeValidation, res.Error.Code)

	res = e.invoke(t, IngestPathName, map[string]any{"filePath": filepath.Join(dir, "gone.md")})
	require.True(t, res.IsError())
	assert.Equal(t, protocol.CodeValidation, res.Error.Code)
}
