package domain

import "time"

// DefaultCompletionThreshold marks a chapter completed once this fraction of
// its audio has been heard. Kept configurable; the value is observed
// behavior, not derived.
const DefaultCompletionThreshold = 0.995

// ChapterProgress is the persisted listening position for one chapter.
// Percent is monotonic non-decreasing except on an explicit manual rewind,
// and completion is sticky: once IsCompleted is true it stays true.
type ChapterProgress struct {
	ChapterID   string    `json:"chapter_id"`
	TimeSec     float64   `json:"time_sec"`
	DurationSec float64   `json:"duration_sec"`
	Percent     float64   `json:"percent"`
	IsCompleted bool      `json:"is_completed"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProgressUpdate carries one observed playback position. AllowRewind is the
// explicit escape hatch for a manual rewind; background ticks never set it.
type ProgressUpdate struct {
	TimeSec     float64
	DurationSec float64
	AllowRewind bool
}

// NewChapterProgress creates progress from the first observed position.
func NewChapterProgress(chapterID string, u ProgressUpdate, completionThreshold float64) *ChapterProgress {
	p := &ChapterProgress{ChapterID: chapterID}
	p.Apply(u, completionThreshold)
	return p
}

// Apply folds an observed position into the progress record and reports
// whether the record changed. Position only advances forward unless the
// update explicitly allows a rewind.
func (p *ChapterProgress) Apply(u ProgressUpdate, completionThreshold float64) bool {
	if completionThreshold <= 0 {
		completionThreshold = DefaultCompletionThreshold
	}

	duration := u.DurationSec
	if duration <= 0 {
		duration = p.DurationSec
	}

	percent := 0.0
	if duration > 0 {
		percent = u.TimeSec / duration
		if percent > 1 {
			percent = 1
		}
		if percent < 0 {
			percent = 0
		}
	}

	if !u.AllowRewind && percent < p.Percent {
		return false
	}

	p.TimeSec = u.TimeSec
	p.DurationSec = duration
	p.Percent = percent
	if percent >= completionThreshold {
		p.IsCompleted = true
	}
	p.UpdatedAt = time.Now()
	return true
}

// MergeFrom folds an incoming record into the receiver. The store calls this
// inside a single transaction so racing partial writes (throttled ticks vs
// lifecycle flushes) can never regress persisted progress. Completion is
// adopted from either side.
func (p *ChapterProgress) MergeFrom(in *ChapterProgress, allowRewind bool) {
	if allowRewind || in.Percent >= p.Percent {
		p.TimeSec = in.TimeSec
		p.Percent = in.Percent
	}
	if in.DurationSec > 0 {
		p.DurationSec = in.DurationSec
	}
	if in.IsCompleted {
		p.IsCompleted = true
	}
	if in.UpdatedAt.After(p.UpdatedAt) {
		p.UpdatedAt = in.UpdatedAt
	}
}
