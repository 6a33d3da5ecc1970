// Package playback owns the single audio resource for one playback session:
// load/play/seek/stop lifecycle, time↔offset mapping, and progress
// persistence. A monotonically increasing session token invalidates results
// from superseded asynchronous work, which is how rapid chapter switching
// avoids racing deliveries.
package playback

import (
	"context"

	"github.com/narratekit/narrator-core/internal/domain"
)

// Adapter abstracts the audio transport. It may be backed by a local audio
// element or a platform media-session bridge; the core is agnostic.
type Adapter interface {
	// Open acquires the audio resource for ref and blocks until it is
	// ready to play or has failed to decode.
	Open(ctx context.Context, ref string) (Resource, error)
}

// Resource is one opened audio resource. The controller is its exclusive
// owner; no two call sites may drive it concurrently.
type Resource interface {
	Play() error
	Pause() error
	// Seek moves playback to the given raw element time in seconds.
	Seek(seconds float64) error
	SetSpeed(speed float64) error
	// State returns a snapshot of the transport.
	State() domain.PlaybackState
	// OnState registers a push notification for transport state changes.
	// The returned func cancels the registration.
	OnState(fn func(domain.PlaybackState)) (cancel func())
	// OnEnded registers a callback for natural end of playback.
	OnEnded(fn func()) (cancel func())
	// Close releases the resource. Safe to call more than once.
	Close() error
}

// Status is the controller's lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
	StatusStopped Status = "stopped"
)
