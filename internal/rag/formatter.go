package rag

import (
	"strings"

	"github.com/mwiater/toolflow/internal/textutil"
)

// FormatContext renders one bullet line per document, each truncated to
// charLimit runes. charLimit <= 0 disables truncation.
func FormatContext(docs []RetrievedDoc, charLimit int) string {
	if len(docs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(docs))
	for _, doc := range docs {
		text := strings.TrimSpace(doc.Text)
		if text == "" {
			continue
		}
		lines = append(lines, "• "+textutil.Truncate(text, charLimit))
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt wraps context and question in the answer-only-from-context
// instruction.
func BuildPrompt(context, question string) string {
	var b strings.Builder
	b.WriteString("Answer the user question using ONLY the context below.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
