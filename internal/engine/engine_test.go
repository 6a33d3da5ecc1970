package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narratekit/narrator-core/internal/config"
	"github.com/narratekit/narrator-core/internal/domain"
	"github.com/narratekit/narrator-core/internal/errors"
	"github.com/narratekit/narrator-core/internal/highlight"
	"github.com/narratekit/narrator-core/internal/playback"
)

type stubResource struct {
	mu    sync.Mutex
	state domain.PlaybackState
}

func (r *stubResource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.IsPlaying = true
	return nil
}

func (r *stubResource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.IsPlaying = false
	return nil
}

func (r *stubResource) Seek(seconds float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.PositionMs = int64(seconds * 1000)
	return nil
}

func (r *stubResource) SetSpeed(speed float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Speed = speed
	return nil
}

func (r *stubResource) State() domain.PlaybackState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *stubResource) OnState(fn func(domain.PlaybackState)) func() { return func() {} }
func (r *stubResource) OnEnded(fn func()) func()                     { return func() {} }
func (r *stubResource) Close() error                                 { return nil }

type stubAdapter struct{}

func (a *stubAdapter) Open(ctx context.Context, ref string) (playback.Resource, error) {
	return &stubResource{state: domain.PlaybackState{DurationMs: 60000}}, nil
}

func testEngineConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = t.TempDir()
	return cfg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(Options{
		Config:  testEngineConfig(t),
		Adapter: &stubAdapter{},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, eng.Shutdown())
	})
	return eng
}

func TestNew_RequiresAdapter(t *testing.T) {
	_, err := New(Options{Config: testEngineConfig(t)})

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestNew_AssemblesGraph(t *testing.T) {
	eng := newTestEngine(t)

	assert.NotNil(t, eng.Controller())
	assert.NotNil(t, eng.Tracker())
	assert.NotNil(t, eng.Store())
	assert.Equal(t, 0.995, eng.Config().Playback.CompletionThreshold)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testEngineConfig(t)
	cfg.Playback.CompletionThreshold = 1.5

	_, err := New(Options{Config: cfg, Adapter: &stubAdapter{}})

	require.Error(t, err)
}

func TestPrepareChapter(t *testing.T) {
	eng := newTestEngine(t)

	text := "First sentence here. Second one follows.\n\nNew paragraph."
	chunks, model := eng.PrepareChapter(text)

	require.NotEmpty(t, chunks)
	require.Len(t, model, len(chunks))
	for i, c := range chunks {
		assert.Equal(t, c.Start, model[i].StartChar)
		assert.Equal(t, c.End, model[i].EndChar)
		assert.Greater(t, model[i].DurSec, 0.0)
	}
}

func TestSetChapterHighlight_LoadsStoredMaps(t *testing.T) {
	results := make(chan highlight.Result, 16)
	eng, err := New(Options{
		Config:      testEngineConfig(t),
		Adapter:     &stubAdapter{},
		OnHighlight: func(r highlight.Result) { results <- r },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Shutdown() })

	ctx := context.Background()
	require.NoError(t, eng.Store().SaveCueMap(ctx, &domain.CueMap{
		ChapterID: "chp-1",
		Cues: []domain.Cue{
			{TimeMs: 0, StartChar: 0, EndChar: 50},
			{TimeMs: 2000, StartChar: 50, EndChar: 120},
		},
	}))

	require.NoError(t, eng.SetChapterHighlight(ctx, "chp-1", 120))

	// First emission is the zeroed reset, then the forced apply.
	zeroed := <-results
	assert.Nil(t, zeroed.ActiveCueIndex)
	forced := <-results
	assert.True(t, forced.IsCueReady)
}

func TestSetChapterHighlight_MissingMapsStillReset(t *testing.T) {
	eng := newTestEngine(t)

	require.NoError(t, eng.SetChapterHighlight(context.Background(), "chp-none", 100))

	got := eng.Tracker().Result()
	assert.Nil(t, got.ActiveCueIndex)
	assert.False(t, got.IsCueReady)
}
