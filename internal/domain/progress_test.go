package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChapterProgress(t *testing.T) {
	p := NewChapterProgress("chp-1", ProgressUpdate{TimeSec: 40, DurationSec: 100}, DefaultCompletionThreshold)

	require.NotNil(t, p)
	assert.Equal(t, "chp-1", p.ChapterID)
	assert.Equal(t, 40.0, p.TimeSec)
	assert.Equal(t, 100.0, p.DurationSec)
	assert.InDelta(t, 0.4, p.Percent, 1e-9)
	assert.False(t, p.IsCompleted)
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestChapterProgress_Apply_AdvancesForward(t *testing.T) {
	p := NewChapterProgress("chp-1", ProgressUpdate{TimeSec: 40, DurationSec: 100}, 0.995)

	changed := p.Apply(ProgressUpdate{TimeSec: 60, DurationSec: 100}, 0.995)

	assert.True(t, changed)
	assert.Equal(t, 60.0, p.TimeSec)
	assert.InDelta(t, 0.6, p.Percent, 1e-9)
}

func TestChapterProgress_Apply_BackgroundTickNeverRegresses(t *testing.T) {
	p := NewChapterProgress("chp-1", ProgressUpdate{TimeSec: 40, DurationSec: 100}, 0.995)

	// A late-arriving throttled tick with an older position must not win.
	changed := p.Apply(ProgressUpdate{TimeSec: 10, DurationSec: 100}, 0.995)

	assert.False(t, changed)
	assert.Equal(t, 40.0, p.TimeSec)
	assert.InDelta(t, 0.4, p.Percent, 1e-9)
}

func TestChapterProgress_Apply_ExplicitRewind(t *testing.T) {
	p := NewChapterProgress("chp-1", ProgressUpdate{TimeSec: 40, DurationSec: 100}, 0.995)

	changed := p.Apply(ProgressUpdate{TimeSec: 10, DurationSec: 100, AllowRewind: true}, 0.995)

	assert.True(t, changed)
	assert.Equal(t, 10.0, p.TimeSec)
	assert.InDelta(t, 0.1, p.Percent, 1e-9)
}

func TestChapterProgress_Apply_CompletionSticky(t *testing.T) {
	p := NewChapterProgress("chp-1", ProgressUpdate{TimeSec: 99.6, DurationSec: 100}, 0.995)
	require.True(t, p.IsCompleted)

	// Rewinding to the start does not clear completion.
	p.Apply(ProgressUpdate{TimeSec: 0, DurationSec: 100, AllowRewind: true}, 0.995)

	assert.Equal(t, 0.0, p.TimeSec)
	assert.True(t, p.IsCompleted)
}

func TestChapterProgress_Apply_PercentClampedToOne(t *testing.T) {
	p := NewChapterProgress("chp-1", ProgressUpdate{TimeSec: 150, DurationSec: 100}, 0.995)

	assert.Equal(t, 1.0, p.Percent)
	assert.True(t, p.IsCompleted)
}

func TestChapterProgress_Apply_ZeroDuration(t *testing.T) {
	p := NewChapterProgress("chp-1", ProgressUpdate{TimeSec: 5, DurationSec: 0}, 0.995)

	assert.Equal(t, 0.0, p.Percent)
	assert.False(t, p.IsCompleted)
}

func TestChapterProgress_MergeFrom(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		stored      ChapterProgress
		incoming    ChapterProgress
		allowRewind bool
		wantTime    float64
		wantPercent float64
		wantDone    bool
	}{
		{
			name:        "higher percent wins",
			stored:      ChapterProgress{TimeSec: 40, Percent: 0.4},
			incoming:    ChapterProgress{TimeSec: 60, Percent: 0.6},
			wantTime:    60,
			wantPercent: 0.6,
		},
		{
			name:        "lower percent dropped without rewind",
			stored:      ChapterProgress{TimeSec: 40, Percent: 0.4},
			incoming:    ChapterProgress{TimeSec: 10, Percent: 0.1},
			wantTime:    40,
			wantPercent: 0.4,
		},
		{
			name:        "lower percent applied with rewind",
			stored:      ChapterProgress{TimeSec: 40, Percent: 0.4},
			incoming:    ChapterProgress{TimeSec: 10, Percent: 0.1},
			allowRewind: true,
			wantTime:    10,
			wantPercent: 0.1,
		},
		{
			name:        "completion adopted from incoming",
			stored:      ChapterProgress{TimeSec: 40, Percent: 0.4},
			incoming:    ChapterProgress{TimeSec: 100, Percent: 1.0, IsCompleted: true},
			wantTime:    100,
			wantPercent: 1.0,
			wantDone:    true,
		},
		{
			name:        "completion kept through rewind merge",
			stored:      ChapterProgress{TimeSec: 100, Percent: 1.0, IsCompleted: true},
			incoming:    ChapterProgress{TimeSec: 0, Percent: 0},
			allowRewind: true,
			wantTime:    0,
			wantPercent: 0,
			wantDone:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := tt.stored
			incoming := tt.incoming
			incoming.UpdatedAt = now

			stored.MergeFrom(&incoming, tt.allowRewind)

			assert.Equal(t, tt.wantTime, stored.TimeSec)
			assert.InDelta(t, tt.wantPercent, stored.Percent, 1e-9)
			assert.Equal(t, tt.wantDone, stored.IsCompleted)
			assert.Equal(t, now, stored.UpdatedAt)
		})
	}
}
