// Package chunker splits chapter text into ordered sentence/paragraph-bounded
// chunks. Chunks seed nominal chunk-duration models and provide coarse
// highlight anchoring when no cue map exists for a chapter.
package chunker

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/narratekit/narrator-core/internal/domain"
)

// Split divides text into chunks at paragraph breaks (two or more consecutive
// newlines) and sentence boundaries (a run of terminal punctuation followed
// by whitespace where the next non-whitespace character looks like a sentence
// start). The sentence-start check avoids splitting mid-abbreviation or
// mid-decimal. Chunks are contiguous and concatenate back to the input
// exactly; trailing whitespace belongs to the preceding chunk.
//
// Text with no qualifying boundary yields one chunk. Empty text yields none.
func Split(text string) []domain.Chunk {
	if text == "" {
		return nil
	}

	var chunks []domain.Chunk
	start := 0
	i := 0

	cut := func(next int) {
		chunks = append(chunks, domain.Chunk{
			ID:    len(chunks),
			Start: start,
			End:   next,
			Text:  text[start:next],
		})
		start = next
	}

	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])

		switch {
		case r == '\n':
			next, newlines := skipWhitespace(text, i)
			if newlines >= 2 && next < len(text) {
				cut(next)
			}
			i = next

		case isTerminal(r):
			// Consume the full punctuation run ("?!", "...", "…").
			j := i
			for j < len(text) {
				r2, s2 := utf8.DecodeRuneInString(text[j:])
				if !isTerminal(r2) {
					break
				}
				j += s2
			}

			next, newlines := skipWhitespace(text, j)
			if next == j {
				// No whitespace after the run: mid-abbreviation,
				// mid-decimal, or end of text.
				i = j
				continue
			}
			if next < len(text) {
				nextRune, _ := utf8.DecodeRuneInString(text[next:])
				if newlines >= 2 || isSentenceStart(nextRune) {
					cut(next)
				}
			}
			i = next

		default:
			i += size
		}
	}

	// Trailing unterminated text becomes the final chunk.
	if start < len(text) {
		cut(len(text))
	}

	return chunks
}

// ChunkIndexFromChar locates the chunk containing the character index via
// binary search over the ordered chunk boundaries. Negative input clamps to
// the first chunk and overflow to the last. Returns -1 for an empty slice.
func ChunkIndexFromChar(chunks []domain.Chunk, idx int) int {
	if len(chunks) == 0 {
		return -1
	}
	if idx < 0 {
		return 0
	}
	if idx >= chunks[len(chunks)-1].End {
		return len(chunks) - 1
	}
	return sort.Search(len(chunks), func(i int) bool {
		return chunks[i].End > idx
	})
}

// Model seeds a nominal chunk-duration model from chunk lengths at a uniform
// characters-per-second rate. Used when no synthesis-reported durations exist
// yet; the mapper scales the nominal total against the real audio duration,
// so only the relative chunk weights matter.
func Model(chunks []domain.Chunk, charsPerSecond float64) domain.ChunkModel {
	if len(chunks) == 0 || charsPerSecond <= 0 {
		return nil
	}
	model := make(domain.ChunkModel, 0, len(chunks))
	for _, c := range chunks {
		model = append(model, domain.AudioChunkMetadata{
			StartChar: c.Start,
			EndChar:   c.End,
			DurSec:    float64(c.Len()) / charsPerSecond,
		})
	}
	return model
}

// skipWhitespace advances past whitespace starting at i and counts newlines
// in the run. Returns the index of the next non-whitespace character (or
// len(text)) and the newline count.
func skipWhitespace(text string, i int) (int, int) {
	newlines := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		if r == '\n' {
			newlines++
		}
		i += size
	}
	return i, newlines
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

// isSentenceStart reports whether a rune plausibly opens a new sentence:
// uppercase letter, digit, or opening quote/bracket.
func isSentenceStart(r rune) bool {
	if unicode.IsUpper(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '"', '\'', '(', '[', '{', '«', '“', '‘', '¿', '¡':
		return true
	}
	return false
}
