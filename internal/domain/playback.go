package domain

// PlaybackState is a read-only snapshot of the underlying audio transport.
// It is externally owned; the core only consumes it.
type PlaybackState struct {
	PositionMs int64   `json:"position_ms"`
	DurationMs int64   `json:"duration_ms"`
	IsPlaying  bool    `json:"is_playing"`
	Speed      float64 `json:"speed"`
}

// PositionSec returns the playback position in seconds.
func (s PlaybackState) PositionSec() float64 {
	return float64(s.PositionMs) / 1000.0
}

// DurationSec returns the audio duration in seconds.
func (s PlaybackState) DurationSec() float64 {
	return float64(s.DurationMs) / 1000.0
}
