package chunker

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestSplitSmallWindow(t *testing.T) {
	chunks, err := Split("A B C D E F", 3, 1)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	want := []string{"A B C", "C D E", "E F"}
	if got := texts(chunks); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if chunks[2].Offset != 4 || chunks[2].Words != 2 || chunks[2].Index != 2 {
		t.Fatalf("unexpected final chunk: %+v", chunks[2])
	}
}

func TestSplitNormalizesWhitespace(t *testing.T) {
	chunks, err := Split("  one\t two\n\nthree   four ", 2, 0)
	if err != nil {
		t.Fatalf("Split error: %v", err)
	}
	want := []string{"one two", "three four"}
	if got := texts(chunks); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		chunks, err := Split(text, 10, 2)
		if err != nil {
			t.Fatalf("expected no error for %q, got %v", text, err)
		}
		if len(chunks) != 0 {
			t.Fatalf("expected zero chunks for %q, got %d", text, len(chunks))
		}
	}
}

func TestSplitRejectsInvalidWindow(t *testing.T) {
	cases := [][2]int{{0, 0}, {-1, 0}, {5, 5}, {5, 6}, {5, -1}}
	for _, c := range cases {
		if _, err := Split("a b c", c[0], c[1]); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("size=%d overlap=%d: expected ErrInvalidWindow, got %v", c[0], c[1], err)
		}
	}
}

func TestSplitCoverageAndOverlap(t *testing.T) {
	for _, n := range []int{1, 499, 500, 501, 950, 1234, 5000} {
		words := make([]string, n)
		for i := range words {
			words[i] = fmt.Sprintf("w%d", i)
		}

		chunks, err := Split(strings.Join(words, " "), 500, 50)
		if err != nil {
			t.Fatalf("Split error: %v", err)
		}

		seen := make(map[string]bool, n)
		for i, c := range chunks {
			fields := strings.Fields(c.Text)
			if len(fields) > 500 {
				t.Fatalf("n=%d: chunk %d has %d words", n, i, len(fields))
			}
			for _, w := range fields {
				seen[w] = true
			}
			if i == 0 {
				continue
			}
			prev := strings.Fields(chunks[i-1].Text)
			if len(prev) == 500 && len(fields) >= 50 {
				if !reflect.DeepEqual(prev[len(prev)-50:], fields[:50]) {
					t.Fatalf("n=%d: chunks %d and %d do not share 50 words", n, i-1, i)
				}
			}
		}
		if len(seen) != n {
			t.Fatalf("n=%d: expected every word covered, got %d", n, len(seen))
		}
	}
}

func texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
