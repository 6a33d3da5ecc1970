package domain

// AudioChunkMetadata records the nominal synthesis duration for one content
// range. Nominal means "as estimated or reported by the synthesis step" - the
// real rendered audio almost never matches, so consumers must scale the
// nominal total against the actual element duration before interpolating.
type AudioChunkMetadata struct {
	StartChar int     `json:"start_char"`
	EndChar   int     `json:"end_char"`
	DurSec    float64 `json:"dur_sec"`
}

// ChunkModel is an ordered, non-overlapping set of per-chunk nominal
// durations aligned to content ranges.
type ChunkModel []AudioChunkMetadata

// NominalTotal returns the sum of nominal durations in seconds.
func (m ChunkModel) NominalTotal() float64 {
	var total float64
	for _, c := range m {
		total += c.DurSec
	}
	return total
}

// TextLength returns the end of the last covered range, or 0 for an empty
// model.
func (m ChunkModel) TextLength() int {
	if len(m) == 0 {
		return 0
	}
	return m[len(m)-1].EndChar
}
