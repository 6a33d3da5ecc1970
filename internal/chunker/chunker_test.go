package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narratekit/narrator-core/internal/domain"
)

// assertCoverage verifies the core chunk invariant: contiguous, ordered,
// non-overlapping, and concatenating back to the input exactly.
func assertCoverage(t *testing.T, text string, chunks []domain.Chunk) {
	t.Helper()

	var sb strings.Builder
	prev := 0
	for i, c := range chunks {
		assert.Equal(t, i, c.ID)
		assert.Equal(t, prev, c.Start, "chunk %d not contiguous", i)
		assert.Greater(t, c.End, c.Start, "chunk %d empty", i)
		assert.Equal(t, text[c.Start:c.End], c.Text)
		sb.WriteString(c.Text)
		prev = c.End
	}
	assert.Equal(t, text, sb.String())
}

func TestSplit_Sentences(t *testing.T) {
	text := "It was late. The lamp burned low! Was anyone awake? Nobody answered."
	chunks := Split(text)

	require.Len(t, chunks, 4)
	assertCoverage(t, text, chunks)
	assert.Equal(t, "It was late. ", chunks[0].Text)
	assert.Equal(t, "The lamp burned low! ", chunks[1].Text)
	assert.Equal(t, "Was anyone awake? ", chunks[2].Text)
	assert.Equal(t, "Nobody answered.", chunks[3].Text)
}

func TestSplit_ParagraphBreaks(t *testing.T) {
	text := "First paragraph\n\nsecond paragraph\n\n\nthird"
	chunks := Split(text)

	require.Len(t, chunks, 3)
	assertCoverage(t, text, chunks)
	assert.Equal(t, "First paragraph\n\n", chunks[0].Text)
	assert.Equal(t, "second paragraph\n\n\n", chunks[1].Text)
	assert.Equal(t, "third", chunks[2].Text)
}

func TestSplit_ParagraphBreakAfterSentence(t *testing.T) {
	// A paragraph break splits even when the next paragraph starts lowercase.
	text := "The end.\n\nand then it continued"
	chunks := Split(text)

	require.Len(t, chunks, 2)
	assertCoverage(t, text, chunks)
	assert.Equal(t, "The end.\n\n", chunks[0].Text)
}

func TestSplit_AvoidsAbbreviationsAndDecimals(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"decimal number", "The price rose to 3.14 dollars before noon"},
		{"lowercase after period", "e.g. something minor happened"},
		{"no trailing whitespace", "see v1.2.3 for details"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text)
			require.Len(t, chunks, 1, "should not split")
			assertCoverage(t, tt.text, chunks)
		})
	}
}

func TestSplit_RepeatedTerminators(t *testing.T) {
	text := "What?! Really… Yes."
	chunks := Split(text)

	require.Len(t, chunks, 3)
	assertCoverage(t, text, chunks)
	assert.Equal(t, "What?! ", chunks[0].Text)
	assert.Equal(t, "Really… ", chunks[1].Text)
}

func TestSplit_QuoteAndDigitStarts(t *testing.T) {
	text := `He stopped. "Listen," she said. 42 people heard it.`
	chunks := Split(text)

	require.Len(t, chunks, 3)
	assertCoverage(t, text, chunks)
	assert.True(t, strings.HasPrefix(chunks[1].Text, `"Listen,"`))
	assert.True(t, strings.HasPrefix(chunks[2].Text, "42"))
}

func TestSplit_NoBoundary(t *testing.T) {
	text := "a single unterminated run of text with no boundary at all"
	chunks := Split(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(text), chunks[0].End)
}

func TestSplit_TrailingUnterminated(t *testing.T) {
	text := "Done here. and the rest trails off"
	chunks := Split(text)

	// "and" is lowercase so the period does not split; one chunk total.
	require.Len(t, chunks, 1)
	assertCoverage(t, text, chunks)

	text = "Done here. The rest trails off"
	chunks = Split(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "The rest trails off", chunks[1].Text)
}

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, Split(""))
}

func TestSplit_TrailingNewlines(t *testing.T) {
	text := "Last words.\n\n"
	chunks := Split(text)

	require.Len(t, chunks, 1)
	assertCoverage(t, text, chunks)
}

func TestChunkIndexFromChar(t *testing.T) {
	text := "One two. Three four. Five six."
	chunks := Split(text)
	require.Len(t, chunks, 3)

	for i, c := range chunks {
		assert.Equal(t, i, ChunkIndexFromChar(chunks, c.Start), "start of chunk %d", i)
		assert.Equal(t, i, ChunkIndexFromChar(chunks, c.End-1), "last char of chunk %d", i)
		if i < len(chunks)-1 {
			assert.Equal(t, i+1, ChunkIndexFromChar(chunks, c.End), "end of chunk %d is next chunk", i)
		}
	}

	assert.Equal(t, 0, ChunkIndexFromChar(chunks, -10), "negative clamps to first")
	assert.Equal(t, len(chunks)-1, ChunkIndexFromChar(chunks, len(text)+50), "overflow clamps to last")
	assert.Equal(t, -1, ChunkIndexFromChar(nil, 5))
}

func TestModel(t *testing.T) {
	text := "Aaaa bbbb. Cccc dddd."
	chunks := Split(text)
	require.Len(t, chunks, 2)

	model := Model(chunks, 10)
	require.Len(t, model, 2)

	for i, m := range model {
		assert.Equal(t, chunks[i].Start, m.StartChar)
		assert.Equal(t, chunks[i].End, m.EndChar)
		assert.InDelta(t, float64(chunks[i].Len())/10.0, m.DurSec, 1e-9)
	}
	assert.Equal(t, len(text), model.TextLength())
	assert.InDelta(t, float64(len(text))/10.0, model.NominalTotal(), 1e-9)
}

func TestModel_Degenerate(t *testing.T) {
	assert.Nil(t, Model(nil, 15))
	assert.Nil(t, Model(Split("Hello there."), 0))
}
