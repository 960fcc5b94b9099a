// Package chunker splits extracted document text into overlapping segments
// sized for embedding.
//
// Chunks end on the nearest line break, sentence terminator or space found
// in the second half of the window, so words are not cut in half. Consecutive
// chunks share roughly overlap characters. All lengths are counted in runes.
package chunker

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

var (
	// ErrInvalidConfig is wrapped by every configuration error.
	ErrInvalidConfig = errors.New("invalid chunker configuration")

	// ErrInvalidSize is returned when the chunk size is not positive.
	ErrInvalidSize = fmt.Errorf("%w: size must be greater than 0", ErrInvalidConfig)

	// ErrInvalidOverlap is returned when overlap is negative or not smaller
	// than the chunk size. Such an overlap could never advance the window.
	ErrInvalidOverlap = fmt.Errorf("%w: overlap must be in [0, size)", ErrInvalidConfig)
)

// Defaults used when no configuration overrides them.
const (
	DefaultSize    = 500
	DefaultOverlap = 50
)

// boundaries are tried in order of preference.
var boundaries = [][]rune{
	[]rune("\n"),
	[]rune(". "),
	[]rune(" "),
}

// Chunker splits text into boundary-aware, overlapping chunks.
// A Chunker is immutable and safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker producing chunks of about size runes that overlap
// by overlap runes.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: got overlap %d for size %d", ErrInvalidOverlap, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the target chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunks returns the chunks of text in order.
// Empty or whitespace-only text yields nothing. Every chunk is trimmed and
// non-empty.
func (c *Chunker) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes := []rune(strings.TrimSpace(text))
		n := len(runes)

		start := 0
		for start < n {
			end := start + c.size
			if end >= n {
				if chunk := strings.TrimSpace(string(runes[start:])); chunk != "" {
					yield(chunk)
				}
				return
			}

			if boundary := lastBoundary(runes, start+c.size/2, end); boundary >= 0 {
				end = boundary + 1
			}

			if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
				if !yield(chunk) {
					return
				}
			}

			next := end - c.overlap
			if next <= start {
				// An early boundary combined with a large overlap would not move forward.
				next = end
			}
			start = next
		}
	}
}

// Split collects Chunks into a slice.
func (c *Chunker) Split(text string) []string {
	var chunks []string
	for chunk := range c.Chunks(text) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Split chunks text with the given size and overlap.
func Split(text string, size, overlap int) ([]string, error) {
	c, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}

// lastBoundary returns the start of the last preferred separator lying
// entirely within runes[lo:hi], or -1.
func lastBoundary(runes []rune, lo, hi int) int {
	for _, sep := range boundaries {
		for i := hi - len(sep); i >= lo; i-- {
			if hasPrefix(runes[i:], sep) {
				return i
			}
		}
	}
	return -1
}

func hasPrefix(runes, prefix []rune) bool {
	if len(runes) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if runes[i] != r {
			return false
		}
	}
	return true
}
