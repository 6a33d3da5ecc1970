package domain

import (
	"sort"
	"time"
)

// CueMethod identifies how a cue map was generated.
type CueMethod string

const (
	CueMethodChunkMap   CueMethod = "chunkmap"
	CueMethodTimepoints CueMethod = "timepoints"
	CueMethodFallback   CueMethod = "fallback"
)

// Valid reports whether the method is one of the known generation methods.
func (m CueMethod) Valid() bool {
	switch m {
	case CueMethodChunkMap, CueMethodTimepoints, CueMethodFallback:
		return true
	}
	return false
}

// Cue maps an audio time to the character range being spoken at that time.
// A cue's window extends from its TimeMs to the next cue's TimeMs (or the
// end of the audio for the last cue).
type Cue struct {
	TimeMs    int64 `json:"time_ms"`
	StartChar int   `json:"start_char"`
	EndChar   int   `json:"end_char"`
}

// Range returns the cue's character range.
func (c Cue) Range() Range {
	return Range{Start: c.StartChar, End: c.EndChar}
}

// CueMap is the ordered set of cues for one chapter's rendered audio plus
// generation metadata. Cues are ascending by TimeMs. Character ranges should
// lie within the chapter text but may arrive stale after a text edit; callers
// clamp, never trust.
type CueMap struct {
	ChapterID     string    `json:"chapter_id"`
	Version       string    `json:"version"`
	Cues          []Cue     `json:"cues"`
	Method        CueMethod `json:"method"`
	IntroOffsetMs int64     `json:"intro_offset_ms"`
	DurationMs    int64     `json:"duration_ms"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// IsEmpty reports whether the map carries no cues.
func (m *CueMap) IsEmpty() bool {
	return m == nil || len(m.Cues) == 0
}

// CueIndexAt returns the index of the cue whose time window contains the
// intro-adjusted position. Positions before the first cue resolve to cue 0.
// Returns (-1, false) when the map is empty or the position is negative
// (still inside the intro window).
func (m *CueMap) CueIndexAt(adjustedMs int64) (int, bool) {
	if m.IsEmpty() || adjustedMs < 0 {
		return -1, false
	}
	// First cue strictly after the position; the active cue precedes it.
	i := sort.Search(len(m.Cues), func(i int) bool {
		return m.Cues[i].TimeMs > adjustedMs
	})
	if i == 0 {
		return 0, true
	}
	return i - 1, true
}

// Sorted reports whether cues are ordered ascending by TimeMs.
func (m *CueMap) Sorted() bool {
	if m == nil {
		return true
	}
	return sort.SliceIsSorted(m.Cues, func(i, j int) bool {
		return m.Cues[i].TimeMs < m.Cues[j].TimeMs
	})
}

// ParagraphRange delimits one paragraph-level block of chapter text.
type ParagraphRange struct {
	PIndex    int `json:"p_index"`
	StartChar int `json:"start_char"`
	EndChar   int `json:"end_char"`
}

// ParagraphMap holds the ordered character ranges delimiting paragraph-level
// blocks for one chapter. Ranges ascend by StartChar and may be sparse.
type ParagraphMap struct {
	ChapterID   string           `json:"chapter_id"`
	Version     string           `json:"version"`
	Paragraphs  []ParagraphRange `json:"paragraphs"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// IndexAt returns the PIndex of the paragraph containing the character
// offset. Because the map may be sparse, an offset between paragraphs
// resolves to the preceding paragraph. Returns (-1, false) when no paragraph
// starts at or before the offset.
func (m *ParagraphMap) IndexAt(offset int) (int, bool) {
	if m == nil || len(m.Paragraphs) == 0 {
		return -1, false
	}
	i := sort.Search(len(m.Paragraphs), func(i int) bool {
		return m.Paragraphs[i].StartChar > offset
	})
	if i == 0 {
		return -1, false
	}
	return m.Paragraphs[i-1].PIndex, true
}
