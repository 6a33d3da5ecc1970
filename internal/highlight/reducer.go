// Package highlight turns raw playback state into a throttled, bounds-safe
// "what is being spoken right now" signal. The reduction logic is a pure
// state machine kept separate from the push/poll subscription wiring in
// Tracker, so it can be tested without timers or adapters.
package highlight

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/narratekit/narrator-core/internal/config"
	"github.com/narratekit/narrator-core/internal/domain"
)

// Result is the active cue/paragraph/range signal consumed by rendering and
// scroll-follow logic. Nil indices mean "nothing active".
type Result struct {
	ActiveCueIndex       *int
	ActiveParagraphIndex *int
	ActiveCueRange       *domain.Range
	IsCueReady           bool
}

// Update is one observed playback state, push- or poll-sourced.
type Update struct {
	PositionMs int64
	IsPlaying  bool
	// Forced bypasses throttling (chapter switch, explicit seek).
	Forced bool
	// Now is injected so the reducer stays timer-free.
	Now time.Time
}

// Reducer applies throttling, cue lookup, bounds clamping, and paragraph
// derivation. Not safe for concurrent use; Tracker serializes access.
type Reducer struct {
	cfg    config.HighlightConfig
	logger *slog.Logger

	chapterID  string
	textLength int
	cueMap     *domain.CueMap
	paragraphs *domain.ParagraphMap

	enabled        bool
	hasApplied     bool
	lastAppliedAt  time.Time
	lastPositionMs int64
	result         Result

	// clampLogged dedupes out-of-range warnings per (chapterID, textLength).
	clampLogged map[string]struct{}
}

// NewReducer creates a reducer. Zero config fields fall back to defaults.
func NewReducer(cfg config.HighlightConfig, logger *slog.Logger) *Reducer {
	def := config.Default().Highlight
	if cfg.Throttle <= 0 {
		cfg.Throttle = def.Throttle
	}
	if cfg.JumpThreshold <= 0 {
		cfg.JumpThreshold = def.JumpThreshold
	}
	return &Reducer{
		cfg:         cfg,
		logger:      logger,
		enabled:     true,
		clampLogged: make(map[string]struct{}),
	}
}

// Reset swaps in a new chapter's maps and zeroes all derived state and
// throttling history. Called on chapter switch or cue-map invalidation,
// before any update for the new chapter is processed; a stale
// "looks unchanged" result must never survive a switch.
func (r *Reducer) Reset(chapterID string, textLength int, cueMap *domain.CueMap, paragraphs *domain.ParagraphMap) {
	r.chapterID = chapterID
	r.textLength = textLength
	r.cueMap = cueMap
	r.paragraphs = paragraphs
	r.hasApplied = false
	r.lastAppliedAt = time.Time{}
	r.lastPositionMs = 0
	r.result = Result{IsCueReady: !cueMap.IsEmpty()}
}

// SetEnabled toggles highlighting. Disabling nulls all derived indices and
// halts computation until re-enabled.
func (r *Reducer) SetEnabled(enabled bool) Result {
	r.enabled = enabled
	if !enabled {
		r.result = Result{}
		r.hasApplied = false
		r.lastAppliedAt = time.Time{}
	}
	return r.result
}

// Result returns the last computed signal.
func (r *Reducer) Result() Result {
	return r.result
}

// Reduce folds one update into the signal and reports whether it was
// applied. An update is applied if it is forced, playback is paused, the
// position jumped more than the jump threshold since the last applied
// update, or the throttle interval has elapsed; otherwise it is dropped.
func (r *Reducer) Reduce(u Update) (Result, bool) {
	if !r.enabled {
		return r.result, false
	}
	if !r.shouldApply(u) {
		return r.result, false
	}

	r.hasApplied = true
	r.lastAppliedAt = u.Now
	r.lastPositionMs = u.PositionMs
	r.result = r.compute(u.PositionMs)
	return r.result, true
}

func (r *Reducer) shouldApply(u Update) bool {
	if u.Forced || !u.IsPlaying || !r.hasApplied {
		return true
	}
	jump := u.PositionMs - r.lastPositionMs
	if jump < 0 {
		jump = -jump
	}
	if jump > r.cfg.JumpThreshold.Milliseconds() {
		// Treated as a seek/transition: apply immediately.
		return true
	}
	return u.Now.Sub(r.lastAppliedAt) >= r.cfg.Throttle
}

// compute performs cue lookup, clamping, and paragraph derivation.
func (r *Reducer) compute(positionMs int64) Result {
	if r.cueMap.IsEmpty() {
		return Result{}
	}

	result := Result{IsCueReady: true}

	adjusted := positionMs - r.cueMap.IntroOffsetMs
	idx, ok := r.cueMap.CueIndexAt(adjusted)
	if !ok {
		// Still inside the intro window.
		return result
	}

	cue := r.cueMap.Cues[idx]
	clamped, changed := cue.Range().Clamp(r.textLength)
	if changed {
		r.logClampOnce(idx, cue.Range(), clamped)
	}

	result.ActiveCueIndex = &idx
	result.ActiveCueRange = &clamped

	if pIdx, pok := r.paragraphs.IndexAt(clamped.Start); pok {
		result.ActiveParagraphIndex = &pIdx
	}
	return result
}

// logClampOnce warns about an out-of-range cue at most once per
// (chapterID, textLength) pair, so a stale map cannot flood the log.
func (r *Reducer) logClampOnce(cueIndex int, original, clamped domain.Range) {
	key := fmt.Sprintf("%s:%d", r.chapterID, r.textLength)
	if _, seen := r.clampLogged[key]; seen {
		return
	}
	r.clampLogged[key] = struct{}{}
	r.logger.Warn("cue range clamped to text bounds",
		"chapter_id", r.chapterID,
		"text_length", r.textLength,
		"cue_index", cueIndex,
		"range_start", original.Start,
		"range_end", original.End,
		"clamped_start", clamped.Start,
		"clamped_end", clamped.End,
	)
}
