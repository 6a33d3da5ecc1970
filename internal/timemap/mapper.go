// Package timemap converts between audio time and character offsets.
//
// Synthesized speech does not render at a uniform character rate. The mapper
// therefore accepts a per-chunk nominal duration model and applies one global
// scale correction (actual content duration divided by nominal total) to
// absorb systematic drift, interpolating linearly only within a chunk. When
// no model exists it degrades to uniform linear interpolation over the whole
// text. Playback speed never enters the math: both directions operate on raw
// element time.
package timemap

import (
	"math"

	"github.com/narratekit/narrator-core/internal/domain"
)

// epsilon floors every divisor so degenerate inputs (zero durations, empty
// models) can never produce Inf or NaN.
const epsilon = 1e-6

// Mapper converts between seconds of audio and character offsets for one
// chapter's rendered audio.
type Mapper struct {
	// TextLength bounds every produced offset to [0, TextLength].
	TextLength int
	// DurationSec is the real rendered audio duration.
	DurationSec float64
	// IntroOffsetSec is the leading audio span (e.g. a spoken chapter
	// title) preceding body content; it maps to offset 0.
	IntroOffsetSec float64
	// Model is the optional nominal chunk-duration model.
	Model domain.ChunkModel
}

// contentDuration returns the audio duration available for body content.
func (m Mapper) contentDuration() float64 {
	return m.DurationSec - m.IntroOffsetSec
}

// scale returns the global correction factor mapping nominal chunk durations
// onto real content time.
func (m Mapper) scale() float64 {
	return m.contentDuration() / math.Max(epsilon, m.Model.NominalTotal())
}

// TimeToOffset maps a raw audio time in seconds to a character offset.
// Times inside the intro window map to 0. The result is clamped to
// [0, TextLength].
func (m Mapper) TimeToOffset(t float64) int {
	if m.DurationSec == 0 || t < m.IntroOffsetSec {
		return 0
	}

	contentTime := t - m.IntroOffsetSec

	if len(m.Model) == 0 {
		ratio := contentTime / math.Max(epsilon, m.contentDuration())
		return m.clampOffset(int(math.Floor(float64(m.TextLength) * ratio)))
	}

	scale := m.scale()
	cumulative := 0.0
	for _, chunk := range m.Model {
		scaledDur := chunk.DurSec * scale
		if contentTime < cumulative+scaledDur {
			withinRatio := (contentTime - cumulative) / math.Max(epsilon, scaledDur)
			span := float64(chunk.EndChar - chunk.StartChar)
			return m.clampOffset(chunk.StartChar + int(math.Floor(span*withinRatio)))
		}
		cumulative += scaledDur
	}

	// Past the last chunk's scaled window.
	return m.TextLength
}

// OffsetToTime maps a character offset back to a raw audio time in seconds.
// It is the inverse of TimeToOffset up to one scaled chunk's duration.
func (m Mapper) OffsetToTime(offset int) float64 {
	if offset <= 0 {
		return m.IntroOffsetSec
	}
	if offset > m.TextLength {
		offset = m.TextLength
	}

	if len(m.Model) == 0 {
		ratio := float64(offset) / math.Max(epsilon, float64(m.TextLength))
		return m.IntroOffsetSec + ratio*m.contentDuration()
	}

	scale := m.scale()
	cumulative := 0.0
	for _, chunk := range m.Model {
		scaledDur := chunk.DurSec * scale
		if offset < chunk.EndChar {
			span := math.Max(epsilon, float64(chunk.EndChar-chunk.StartChar))
			withinRatio := float64(offset-chunk.StartChar) / span
			if withinRatio < 0 {
				withinRatio = 0
			}
			return m.IntroOffsetSec + cumulative + withinRatio*scaledDur
		}
		cumulative += scaledDur
	}

	return m.IntroOffsetSec + cumulative
}

func (m Mapper) clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > m.TextLength {
		return m.TextLength
	}
	return offset
}
