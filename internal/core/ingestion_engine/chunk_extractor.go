package ingestion_engine

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// OptimalChunkSize is the default chunk length in characters: a
	// 1M-token input budget less 200 tokens of prompt and 8k of expected
	// output, at 4 characters per token.
	OptimalChunkSize = 3_967_200

	// BoundaryWindow is how far back from a tentative cut the chunker looks
	// for a paragraph, sentence or line boundary.
	BoundaryWindow = 500
)

// ErrInvalidArgument is returned for malformed caller input such as a
// non-positive chunk size.
var ErrInvalidArgument = errors.New("invalid argument")

var (
	paragraphBreak = []rune("\n\n")
	sentenceBreak  = []rune(". ")
	lineBreak      = []rune("\n")
)

// Chunker splits text into bounded, boundary-aware pieces.
//
// MaxSize: upper bound for a chunk, counted in characters (runes).
// Window:  backward search distance for a natural boundary.
type Chunker struct {
	MaxSize int
	Window  int
}

// NewChunker returns a chunker with the default window. A non-positive size
// falls back to OptimalChunkSize.
func NewChunker(maxSize int) *Chunker {
	if maxSize <= 0 {
		maxSize = OptimalChunkSize
	}
	return &Chunker{MaxSize: maxSize, Window: BoundaryWindow}
}

// Chunk splits text using the default boundary window.
func Chunk(text string, maxSize int) ([]string, error) {
	c := &Chunker{MaxSize: maxSize, Window: BoundaryWindow}
	return c.Split(text)
}

// Split carves text into pieces of at most MaxSize characters. Cuts prefer a
// paragraph break, then a sentence end, then a line break found within the
// last Window characters before the tentative cut, and fall back to a hard
// cut at MaxSize.
func (c *Chunker) Split(text string) ([]string, error) {
	if c.MaxSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidArgument, c.MaxSize)
	}
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}

	r := []rune(text)
	if len(r) <= c.MaxSize {
		return []string{text}, nil
	}

	window := c.Window
	if window < 0 {
		window = 0
	}

	var pieces []string
	start := 0
	for start < len(r) {
		end := start + c.MaxSize
		if end >= len(r) {
			pieces = append(pieces, string(r[start:]))
			break
		}

		searchStart := max(end-window, start)

		if i := lastIndex(r, paragraphBreak, searchStart, end); i > start {
			pieces = append(pieces, string(r[start:i]))
			start = i + len(paragraphBreak)
			continue
		}
		if i := lastIndex(r, sentenceBreak, searchStart, end); i > start {
			// keep the period, drop the space
			pieces = append(pieces, string(r[start:i+1]))
			start = i + len(sentenceBreak)
			continue
		}
		if i := lastIndex(r, lineBreak, searchStart, end); i > start {
			pieces = append(pieces, string(r[start:i]))
			start = i + len(lineBreak)
			continue
		}

		pieces = append(pieces, string(r[start:end]))
		start = end
	}

	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// lastIndex finds the last occurrence of sub lying entirely inside r[lo:hi],
// or -1.
func lastIndex(r, sub []rune, lo, hi int) int {
	for i := hi - len(sub); i >= lo; i-- {
		match := true
		for j := range sub {
			if r[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
