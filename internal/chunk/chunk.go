// Package chunk splits text into order-tagged chunks and puts processed chunks back together.
package chunk

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// MaxCount is the largest supported number of chunks.
const MaxCount = 4096

var (
	// ErrInvalidCount is returned when asked for fewer than one or more than MaxCount chunks.
	ErrInvalidCount = errors.New("chunk count out of range")
	// ErrIncomplete is returned when reassembly finds a missing or duplicated index.
	ErrIncomplete = errors.New("incomplete chunk set")
)

// Chunk is a contiguous slice of the source text tagged with its position.
type Chunk struct {
	// Index is the chunk's position in the source text
	Index int

	// Text is the chunk's content
	Text string
}

// Partial is the processed output for one chunk.
type Partial struct {
	// Index of the chunk this output belongs to
	Index int

	// Text is the processed content
	Text string
}

// Partition splits text into n contiguous chunks of len/n characters each,
// the last chunk absorbing the remainder. Lengths count characters, not bytes.
// Bytes that are not valid UTF-8 count as one character each and are kept verbatim.
// When n exceeds the text length, leading chunks are empty.
func Partition(text string, n int) ([]Chunk, error) {
	if n < 1 || n > MaxCount {
		return nil, fmt.Errorf("%w: got %d, want 1 to %d", ErrInvalidCount, n, MaxCount)
	}

	size := utf8.RuneCountInString(text) / n
	chunks := make([]Chunk, n)

	offset := 0

	for i := range n - 1 {
		end := advance(text, offset, size)
		chunks[i] = Chunk{Index: i, Text: text[offset:end]}
		offset = end
	}

	chunks[n-1] = Chunk{Index: n - 1, Text: text[offset:]}

	return chunks, nil
}

// advance returns the byte offset reached after stepping count characters from offset.
func advance(text string, offset, count int) int {
	for ; count > 0 && offset < len(text); count-- {
		_, width := utf8.DecodeRuneInString(text[offset:])
		offset += width
	}

	return offset
}

// Reassemble orders partials by index and concatenates them.
// Every index in [0, n) must be present exactly once.
func Reassemble(partials []Partial, n int) (string, error) {
	if len(partials) != n {
		return "", fmt.Errorf("%w: have %d of %d chunks", ErrIncomplete, len(partials), n)
	}

	sorted := slices.Clone(partials)
	slices.SortStableFunc(sorted, func(a, b Partial) int {
		return cmp.Compare(a.Index, b.Index)
	})

	var (
		builder strings.Builder
		size    int
	)

	for i, p := range sorted {
		if p.Index != i {
			return "", fmt.Errorf("%w: expected chunk %d, found %d", ErrIncomplete, i, p.Index)
		}

		size += len(p.Text)
	}

	builder.Grow(size)

	for _, p := range sorted {
		builder.WriteString(p.Text)
	}

	return builder.String(), nil
}
