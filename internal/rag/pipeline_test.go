package rag

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/toolflow/internal/chunker"
	"github.com/mwiater/toolflow/internal/protocol"
	"github.com/mwiater/toolflow/internal/providers"
	"github.com/mwiater/toolflow/internal/providers/stub"
	"github.com/mwiater/toolflow/internal/vectorstore"
)

type harness struct {
	pipeline *Pipeline
	stub     *stub.Provider
	other    *stub.Provider
	store    *vectorstore.Store
	path     string
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	s := stub.New("stub", 4)
	other := stub.New("other", 4)
	set, err := providers.NewSet("stub", s, other)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vectorStore.json")
	store := vectorstore.New(vectorstore.NewJSONFile(path))
	ids := 0
	if opts.NewID == nil {
		opts.NewID = func() string {
			ids++
			return "doc-" + strconv.Itoa(ids)
		}
	}
	return &harness{pipeline: New(set, store, opts), stub: s, other: other, store: store, path: path}
}

func chunkTexts(chunks []chunker.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func TestIngestThenSelfQuery(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})

	chunks, err := chunker.Split("A B C D E F", 3, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"A B C", "C D E", "E F"}, chunkTexts(chunks))

	vectors := [][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}}
	for i, text := range chunkTexts(chunks) {
		h.stub.SetVector(text, vectors[i])
	}

	res, err := h.pipeline.Ingest(ctx, IngestRequest{Text: "A B C D E F", Provider: "stub", ChunkSize: 3, Overlap: 1})
	require.NoError(t, err)
	assert.Equal(t, IngestResult{ID: "doc-1", Tokens: 5, Chunks: 3, Status: StatusAdded}, res)

	results, err := h.store.Query(ctx, vectors[0], "stub", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A B C", results[0].Document.Text)
	assert.Equal(t, "doc-1", results[0].Document.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestSearchEmptyStoreNeverCallsChat(t *testing.T) {
	h := newHarness(t, Options{})

	res, err := h.pipeline.Search(context.Background(), "anything?", "stub", 3)
	require.NoError(t, err)
	assert.Equal(t, NoInformationAnswer, res.Answer)
	assert.NotNil(t, res.Docs)
	assert.Empty(t, res.Docs)
	assert.Equal(t, 0, h.stub.ChatCalls())
	assert.Equal(t, 1, h.stub.EmbedCalls())
}

func TestSearchBuildsPromptFromRetrievedDocs(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{ContextCharLimit: 12})

	h.stub.SetVector("Go was released in 2009 by Google.", []float64{1, 0, 0, 0})
	h.stub.SetVector("Bananas are yellow.", []float64{0, 1, 0, 0})
	h.stub.SetVector("When was Go released?", []float64{0.9, 0.1, 0, 0})
	h.stub.SetReply("  2009  ")

	_, err := h.pipeline.AddDoc(ctx, "Go was released in 2009 by Google.", "stub")
	require.NoError(t, err)
	_, err = h.pipeline.AddDoc(ctx, "Bananas are yellow.", "stub")
	require.NoError(t, err)

	res, err := h.pipeline.Search(ctx, "When was Go released?", "", 1)
	require.NoError(t, err)
	assert.Equal(t, "2009", res.Answer)
	require.Len(t, res.Docs, 1)
	assert.Equal(t, "Go was released in 2009 by Google.", res.Docs[0].Text)
	assert.Greater(t, res.Docs[0].Score, 0.9)

	prompts := h.stub.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "• Go was relea…")
	assert.NotContains(t, prompts[0], "Bananas")
	assert.True(t, strings.HasSuffix(prompts[0], "Question: When was Go released?"))
}

func TestSearchIsolatesProviders(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})

	_, err := h.pipeline.AddDoc(ctx, "stored with the other provider", "other")
	require.NoError(t, err)

	res, err := h.pipeline.Search(ctx, "stored with the other provider", "stub", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Docs)
	assert.Equal(t, 0, h.stub.ChatCalls())
}

func TestIngestPartialFailureKeepsStoredChunks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	h.stub.FailEmbeddingsAfter(2, errors.New("connection reset"))

	res, err := h.pipeline.Ingest(ctx, IngestRequest{Text: "a b c d e f g h", Provider: "stub", ChunkSize: 2, Overlap: 0})
	require.Error(t, err)
	assert.True(t, IsPartial(res, err))
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, 2, res.Chunks)

	fault, ok := protocol.AsFault(err)
	require.True(t, ok)
	assert.Equal(t, protocol.CodeProviderFault, fault.Code)
	details := fault.Details.(map[string]any)
	assert.Equal(t, 2, details["storedChunks"])
	assert.Equal(t, 4, details["totalChunks"])
	assert.Equal(t, "stub", details["provider"])

	docs, err := vectorstore.New(vectorstore.NewJSONFile(h.path)).Documents(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestIngestRejectsBadRequests(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})

	cases := []IngestRequest{
		{Text: "   ", Provider: "stub"},
		{Text: "a b c", Provider: "stub", ChunkSize: 50, Overlap: 60},
		{Text: "a b c", Provider: "missing"},
	}
	for _, req := range cases {
		_, err := h.pipeline.Ingest(ctx, req)
		fault, ok := protocol.AsFault(err)
		require.True(t, ok, "expected fault for %+v", req)
		assert.Equal(t, protocol.CodeValidation, fault.Code)
	}
	assert.Equal(t, 0, h.stub.EmbedCalls())
}

func TestIngestDimensionMismatchIsProviderFault(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	h.stub.SetVector("short vector text", []float64{1, 2})

	_, err := h.pipeline.AddDoc(ctx, "normal text here", "stub")
	require.NoError(t, err)
	_, err = h.pipeline.AddDoc(ctx, "short vector text", "stub")
	fault, ok := protocol.AsFault(err)
	require.True(t, ok)
	assert.Equal(t, protocol.CodeProviderFault, fault.Code)
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func TestIngestLogsProgress(t *testing.T) {
	var progress bytes.Buffer
	h := newHarness(t, Options{Progress: &progress})

	words := strings.Repeat("w ", 25)
	_, err := h.pipeline.Ingest(context.Background(), IngestRequest{Text: words, Provider: "stub", ChunkSize: 2, Overlap: 0, Label: "notes"})
	require.NoError(t, err)

	out := progress.String()
	for _, want := range []string{"chunk 1/13", "chunk 11/13", "chunk 13/13"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "chunk 2/13")
}

func TestIngestFile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	dir := t.TempDir()

	notes := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(notes, []byte("# Notes\n\nsome markdown text"), 0o644))
	res, err := h.pipeline.IngestFile(ctx, notes, IngestRequest{Provider: "stub", ChunkSize: 50, Overlap: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)

	for _, name := range []string{"report.pdf", "letter.docx", "image.png", "missing.txt"} {
		path := filepath.Join(dir, name)
		if name != "missing.txt" {
			require.NoError(t, os.WriteFile(path, []byte("binary"), 0o644))
		}
		_, err := h.pipeline.IngestFile(ctx, path, IngestRequest{Provider: "stub"})
		fault, ok := protocol.AsFault(err)
		require.True(t, ok, name)
		assert.Equal(t, protocol.CodeValidation, fault.Code, name)
	}
}

func TestRetrieveCachesQueriesButNotChunks(t *testing.T) {
	ctx := context.Background()
	cache, err := providers.NewQueryCache(8)
	require.NoError(t, err)
	h := newHarness(t, Options{QueryCache: cache})

	_, err = h.pipeline.Ingest(ctx, IngestRequest{Text: "alpha beta gamma delta", Provider: "stub", ChunkSize: 2, Overlap: 0})
	require.NoError(t, err)
	assert.Equal(t, 2, h.stub.EmbedCalls())
	assert.Equal(t, 0, cache.Len(), "ingest chunks must bypass the query cache")

	for i := 0; i < 3; i++ {
		docs, err := h.pipeline.Retrieve(ctx, "alpha beta", "stub", 1)
		require.NoError(t, err)
		require.Len(t, docs, 1)
	}
	assert.Equal(t, 3, h.stub.EmbedCalls())
	assert.Equal(t, 1, cache.Len())
}
