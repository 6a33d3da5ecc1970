package highlight

import (
	"log/slog"
	"sync"
	"time"

	"github.com/narratekit/narrator-core/internal/config"
	"github.com/narratekit/narrator-core/internal/domain"
)

// StateSource is the playback-state stream the tracker consumes: push
// notifications plus a snapshot for the periodic poll. The playback
// controller satisfies it.
type StateSource interface {
	State() domain.PlaybackState
	OnState(fn func(domain.PlaybackState)) (cancel func())
}

// Tracker wires a Reducer to a StateSource with both update paths: pushes
// whenever the source reports a change, and a sub-second poll while playing,
// because some adapters under-report changes.
type Tracker struct {
	source   StateSource
	cfg      config.HighlightConfig
	logger   *slog.Logger
	onResult func(Result)

	mu         sync.Mutex
	reducer    *Reducer
	running    bool
	cancelPush func()
	stopPoll   chan struct{}
}

// NewTracker creates a tracker emitting applied results to onResult.
// onResult may be nil.
func NewTracker(source StateSource, cfg config.HighlightConfig, logger *slog.Logger, onResult func(Result)) *Tracker {
	def := config.Default().Highlight
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	return &Tracker{
		source:   source,
		cfg:      cfg,
		logger:   logger,
		onResult: onResult,
		reducer:  NewReducer(cfg, logger),
	}
}

// Start subscribes to pushes and starts the poll loop. Idempotent.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stopPoll = make(chan struct{})
	stop := t.stopPoll
	t.mu.Unlock()

	t.cancelPush = t.source.OnState(func(state domain.PlaybackState) {
		t.apply(state, false)
	})

	go t.pollLoop(stop)
}

// Stop cancels the push subscription and poll loop. Idempotent.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopPoll)
	cancel := t.cancelPush
	t.cancelPush = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// SetChapter swaps the tracker onto a new chapter's maps. Derived state and
// throttling history are zeroed immediately, then the current playback state
// is applied as a forced update so the first result for the new chapter is
// never stale.
func (t *Tracker) SetChapter(chapterID string, textLength int, cueMap *domain.CueMap, paragraphs *domain.ParagraphMap) {
	t.mu.Lock()
	t.reducer.Reset(chapterID, textLength, cueMap, paragraphs)
	emit := t.onResult
	result := t.reducer.Result()
	t.mu.Unlock()

	// The zeroed result is observable before any new-chapter computation.
	if emit != nil {
		emit(result)
	}
	t.apply(t.source.State(), true)
}

// Invalidate clears the current cue map (e.g. pending regeneration) while
// keeping the chapter. All derived indices drop to nil immediately.
func (t *Tracker) Invalidate() {
	t.mu.Lock()
	chapterID, textLength := t.reducer.chapterID, t.reducer.textLength
	t.reducer.Reset(chapterID, textLength, nil, nil)
	emit := t.onResult
	result := t.reducer.Result()
	t.mu.Unlock()

	if emit != nil {
		emit(result)
	}
}

// SetEnabled toggles highlighting; disabling emits the nulled result.
func (t *Tracker) SetEnabled(enabled bool) {
	t.mu.Lock()
	result := t.reducer.SetEnabled(enabled)
	emit := t.onResult
	t.mu.Unlock()

	if emit != nil && !enabled {
		emit(result)
	}
}

// Result returns the last computed signal.
func (t *Tracker) Result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reducer.Result()
}

func (t *Tracker) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			state := t.source.State()
			if !state.IsPlaying {
				continue
			}
			t.apply(state, false)
		}
	}
}

func (t *Tracker) apply(state domain.PlaybackState, forced bool) {
	t.mu.Lock()
	result, applied := t.reducer.Reduce(Update{
		PositionMs: state.PositionMs,
		IsPlaying:  state.IsPlaying,
		Forced:     forced,
		Now:        time.Now(),
	})
	emit := t.onResult
	t.mu.Unlock()

	if applied && emit != nil {
		emit(result)
	}
}
