// Package chunker splits text into overlapping word windows, the unit that
// gets embedded and stored.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWindow is returned when size and overlap do not describe a window
// that advances.
var ErrInvalidWindow = errors.New("invalid chunk window")

// Chunk is one word window of the source text.
type Chunk struct {
	Index  int
	Offset int // index of the first word in the source
	Text   string
	Words  int
}

// Split splits text into windows of size words, each starting size-overlap
// words after the previous one. The final window may be shorter. Empty text
// yields no chunks.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d (need 0 <= overlap < size)", ErrInvalidWindow, size, overlap)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := size - overlap
	var chunks []Chunk
	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Offset: i,
			Text:   strings.Join(words[i:end], " "),
			Words:  end - i,
		})
		if end == len(words) {
			break
		}
	}
	return chunks, nil
}
