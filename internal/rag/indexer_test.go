package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestDiscoverCorpusFiles(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"a.md":             "alpha",
		"docs/b.txt":       "beta",
		"docs/c.pdf":       "binary",
		"drafts/d.md":      "draft",
		"docs/deep/e.text": "epsilon",
	})

	files, err := discoverCorpusFiles(root, nil, []string{"drafts/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "docs/b.txt", "docs/deep/e.text"}, files)

	files, err = discoverCorpusFiles(root, []string{"docs/*.txt", "**/b.txt"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/b.txt"}, files)

	_, err = discoverCorpusFiles(root, []string{"[unclosed"}, nil)
	assert.Error(t, err)
}

func TestIndexCorpusSkipsEmptyFiles(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"one.md":   "first document body",
		"two.txt":  "second document body here",
		"empty.md": "   ",
	})
	h := newHarness(t, Options{})

	res, err := h.pipeline.IndexCorpus(context.Background(), CorpusRequest{Root: root, Provider: "stub", ChunkSize: 50, Overlap: 5})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, []string{"empty.md"}, res.Skipped)
	assert.Equal(t, 2, res.Chunks)
	assert.NotEqual(t, res.Files[0].Result.ID, res.Files[1].Result.ID)

	stats, err := h.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sources)
}

func TestIndexCorpusRequiresFiles(t *testing.T) {
	h := newHarness(t, Options{})
	_, err := h.pipeline.IndexCorpus(context.Background(), CorpusRequest{Root: t.TempDir(), Provider: "stub"})
	assert.Error(t, err)
}
