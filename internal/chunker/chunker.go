// Package chunker splits document text into overlapping, boundary-aware
// segments. Chunking is pure and deterministic: the same input always yields
// the same chunk sequence, which matters because chunk ordinals become part
// of the stored record identity in the vector index.
package chunker

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	ErrInvalidOverlap   = errors.New("overlap must be smaller than chunk size")
)

// Chunk is a bounded substring of a document, the unit of embedding and
// retrieval. Index is zero-based and contiguous per document.
type Chunk struct {
	Index int
	Text  string
}

// Split slides a window of chunkSize characters over text, backing up to the
// last sentence terminator or line break when one falls past the midpoint of
// the window, and advancing each next window to end-overlap so consecutive
// chunks share context.
func Split(text string, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	// overlap >= chunkSize would never advance the window
	if overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidOverlap
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if len(text) <= chunkSize {
		return []Chunk{{Index: 0, Text: strings.TrimSpace(text)}}, nil
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		} else {
			// Never cut through a multibyte character: back the
			// window edge off to a rune boundary first.
			for end > start && end < len(text) && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == start {
				_, size := utf8.DecodeRuneInString(text[start:])
				end = start + size
			}

			// Prefer a sentence or line boundary, but only when it
			// leaves more than half a window of content.
			window := text[start:end]
			breakPoint := lastBoundary(window)
			if breakPoint > chunkSize/2 {
				end = start + breakPoint + 1
			}
		}

		if piece := strings.TrimSpace(text[start:end]); piece != "" {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: piece})
		}

		if end >= len(text) {
			break
		}

		// A boundary cut can pull end back far enough that end-overlap
		// would stall or move backwards; advance to the window edge in
		// that case so the loop always makes progress.
		next := end - overlap
		if next <= start {
			next = end
		}
		for next < end && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}

	return chunks, nil
}

func lastBoundary(window string) int {
	lastPeriod := strings.LastIndex(window, ".")
	lastNewline := strings.LastIndex(window, "\n")
	if lastPeriod > lastNewline {
		return lastPeriod
	}
	return lastNewline
}
