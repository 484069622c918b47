// Package textutil holds rune-aware helpers for rendering document text in
// prompts and terminal output.
package textutil

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis marks text cut by Truncate.
const Ellipsis = "…"

// Truncate cuts text to at most limit runes, drops trailing spaces at the cut
// and appends Ellipsis. limit <= 0 disables truncation.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:limit]), " ") + Ellipsis
}

// Squash collapses every run of whitespace, newlines included, to one space.
func Squash(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Wrap breaks text into lines of at most width runes. Words longer than
// width are split; blank lines survive.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		var cur strings.Builder
		n := 0
		for _, w := range words {
			wLen := utf8.RuneCountInString(w)
			if n > 0 && n+1+wLen <= width {
				cur.WriteByte(' ')
				cur.WriteString(w)
				n += 1 + wLen
				continue
			}
			if n > 0 {
				out = append(out, cur.String())
				cur.Reset()
				n = 0
			}
			r := []rune(w)
			for len(r) > width {
				out = append(out, string(r[:width]))
				r = r[width:]
			}
			cur.WriteString(string(r))
			n = len(r)
		}
		out = append(out, cur.String())
	}
	return strings.Join(out, "\n")
}
