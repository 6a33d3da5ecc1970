package domain

// Chunk is a sentence/paragraph-bounded slice of chapter text.
// End is exclusive. Chunks produced for one chapter are contiguous, ordered,
// non-overlapping, and their concatenation reproduces the chapter text exactly.
type Chunk struct {
	ID    int    `json:"id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Len returns the chunk's length in characters.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Contains reports whether the character index falls inside the chunk.
func (c Chunk) Contains(idx int) bool {
	return idx >= c.Start && idx < c.End
}

// Range is a half-open character range [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Clamp constrains the range to [0, textLength] and reports whether
// clamping actually changed it. Ranges arrive from cue maps that may be
// stale after a text edit, so they are never trusted blindly.
func (r Range) Clamp(textLength int) (Range, bool) {
	clamped := r
	if clamped.Start < 0 {
		clamped.Start = 0
	}
	if clamped.Start > textLength {
		clamped.Start = textLength
	}
	if clamped.End < clamped.Start {
		clamped.End = clamped.Start
	}
	if clamped.End > textLength {
		clamped.End = textLength
	}
	return clamped, clamped != r
}
