package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/narratekit/narrator-core/internal/config"
	"github.com/narratekit/narrator-core/internal/domain"
	"github.com/narratekit/narrator-core/internal/errors"
	"github.com/narratekit/narrator-core/internal/id"
	"github.com/narratekit/narrator-core/internal/store"
	"github.com/narratekit/narrator-core/internal/timemap"
	"github.com/narratekit/narrator-core/internal/validation"
)

var validate = validation.New()

// saveTimeout bounds a single progress write so a slow store cannot wedge
// the playback path.
const saveTimeout = 5 * time.Second

// SyncFunc receives the character offset and raw element time for the
// current playback position.
type SyncFunc func(offset int, timeSec float64)

// EndFunc receives nil on natural end of playback.
type EndFunc func(err error)

// LoadRequest describes one chapter load.
type LoadRequest struct {
	ChapterID      string            `json:"chapter_id" validate:"required"`
	ResourceRef    string            `json:"resource_ref" validate:"required"`
	TextLength     int               `json:"text_length" validate:"gte=0"`
	IntroOffsetSec float64           `json:"intro_offset_sec" validate:"gte=0"`
	StartTimeSec   float64           `json:"start_time_sec" validate:"gte=0"`
	Speed          float64           `json:"speed" validate:"gt=0,lte=4"`
	ChunkModel     domain.ChunkModel `json:"chunk_model,omitempty"`

	OnEnd  EndFunc  `json:"-"`
	OnSync SyncFunc `json:"-"`
}

// Controller sequences the load/play/seek/stop lifecycle for the single
// audio resource and persists listening progress. All mutation happens under
// one mutex; asynchronous continuations (resource open, the sync loop, the
// ended signal) validate their captured session token against the current
// one immediately before mutating state, and silently release resources when
// stale.
type Controller struct {
	adapter  Adapter
	progress store.ProgressStore
	cfg      config.PlaybackConfig
	logger   *slog.Logger

	mu          sync.Mutex
	session     int64
	sessionID   string
	status      Status
	res         Resource
	mapper      timemap.Mapper
	chapterID   string
	record      *domain.ChapterProgress
	onEnd       EndFunc
	onSync      SyncFunc
	lastSaveAt  time.Time
	cancelPush  func()
	cancelEnded func()
	subs        map[int]func(domain.PlaybackState)
	nextSub     int
}

// NewController creates a controller. Zero config fields fall back to
// defaults.
func NewController(adapter Adapter, progress store.ProgressStore, cfg config.PlaybackConfig, logger *slog.Logger) *Controller {
	def := config.Default().Playback
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = def.SaveInterval
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = def.SyncInterval
	}
	if cfg.CompletionThreshold <= 0 {
		cfg.CompletionThreshold = def.CompletionThreshold
	}
	return &Controller{
		adapter:  adapter,
		progress: progress,
		cfg:      cfg,
		logger:   logger,
		status:   StatusIdle,
		subs:     make(map[int]func(domain.PlaybackState)),
	}
}

// LoadAndPlay opens the audio resource for the request, restores saved
// progress if it is further along than the requested start, applies the
// playback speed, and begins playback. A load that is superseded before its
// resource becomes ready releases the resource and returns nil.
//
// Open/decode failures are returned once, wrapped as a resource error; the
// controller is left stopped and retryable.
func (c *Controller) LoadAndPlay(ctx context.Context, req LoadRequest) error {
	if err := validate.Validate(req); err != nil {
		return err
	}
	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "generate session id")
	}

	c.mu.Lock()
	c.closeResourceLocked()
	c.session++
	token := c.session
	c.sessionID = sessionID
	c.status = StatusLoading
	c.chapterID = req.ChapterID
	c.record = nil
	c.onEnd = req.OnEnd
	c.onSync = req.OnSync
	c.mapper = timemap.Mapper{
		TextLength:     req.TextLength,
		IntroOffsetSec: req.IntroOffsetSec,
		Model:          req.ChunkModel,
	}
	c.mu.Unlock()

	// Suspension point: the resource open may race a newer load or stop.
	res, err := c.adapter.Open(ctx, req.ResourceRef)

	c.mu.Lock()
	if token != c.session {
		c.mu.Unlock()
		if res != nil {
			_ = res.Close()
		}
		c.logger.Debug("discarded stale resource open", "chapter_id", req.ChapterID)
		return nil
	}
	if err != nil {
		c.status = StatusStopped
		c.mu.Unlock()
		return errors.Wrap(err, errors.CodeResource, "open audio resource").WithDetails(req.ResourceRef)
	}

	c.res = res
	state := res.State()
	c.mapper.DurationSec = state.DurationSec()

	start := req.StartTimeSec
	if saved, perr := c.progress.GetChapterProgress(ctx, req.ChapterID); perr == nil {
		c.record = saved
		if saved.TimeSec > start && saved.TimeSec < c.mapper.DurationSec {
			start = saved.TimeSec
		}
	} else {
		if !errors.Is(perr, errors.ErrNotFound) {
			c.logger.Warn("read saved progress", "chapter_id", req.ChapterID, "error", perr)
		}
		c.record = &domain.ChapterProgress{ChapterID: req.ChapterID}
	}
	if start > c.mapper.DurationSec {
		start = c.mapper.DurationSec
	}

	if serr := res.Seek(start); serr != nil {
		c.failResourceAndUnlock()
		return errors.Wrap(serr, errors.CodeResource, "seek audio resource")
	}
	if serr := res.SetSpeed(req.Speed); serr != nil {
		c.failResourceAndUnlock()
		return errors.Wrap(serr, errors.CodeResource, "set playback speed")
	}
	if serr := res.Play(); serr != nil {
		c.failResourceAndUnlock()
		return errors.Wrap(serr, errors.CodeResource, "start playback")
	}

	c.cancelEnded = res.OnEnded(func() { c.handleEnded(token) })
	c.cancelPush = res.OnState(c.broadcast)
	c.status = StatusPlaying
	c.lastSaveAt = time.Now()

	offset := c.mapper.TimeToOffset(start)
	fn := c.onSync
	c.mu.Unlock()

	go c.syncLoop(token)

	if fn != nil {
		fn(offset, start)
	}
	c.logger.Info("playback session loaded",
		"session_id", sessionID,
		"chapter_id", req.ChapterID,
		"start_sec", start,
		"speed", req.Speed,
		"has_chunk_model", len(req.ChunkModel) > 0,
	)
	return nil
}

// SeekToTime clamps the target into [0, duration], seeks, persists progress
// (rewind allowed: a seek is an explicit action), and immediately emits the
// corresponding character offset.
func (c *Controller) SeekToTime(seconds float64) error {
	c.mu.Lock()
	if c.res == nil {
		c.mu.Unlock()
		return errors.Conflict("no loaded playback session")
	}
	if seconds < 0 {
		seconds = 0
	}
	if seconds > c.mapper.DurationSec {
		seconds = c.mapper.DurationSec
	}
	err := c.res.Seek(seconds)
	c.saveLocked(true)
	offset := c.mapper.TimeToOffset(seconds)
	fn := c.onSync
	c.mu.Unlock()

	if fn != nil {
		fn(offset, seconds)
	}
	if err != nil {
		return errors.Wrap(err, errors.CodeResource, "seek audio resource")
	}
	return nil
}

// SeekToOffset seeks to the audio time corresponding to a character offset.
func (c *Controller) SeekToOffset(offset int) error {
	c.mu.Lock()
	seconds := c.mapper.OffsetToTime(offset)
	c.mu.Unlock()
	return c.SeekToTime(seconds)
}

// Pause pauses playback and flushes progress. Safe in any state.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.res == nil {
		return nil
	}
	err := c.res.Pause()
	if c.status == StatusPlaying {
		c.status = StatusPaused
	}
	c.saveLocked(false)
	return err
}

// Resume restarts playback after a pause.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.res == nil {
		return errors.Conflict("no loaded playback session")
	}
	if err := c.res.Play(); err != nil {
		return errors.Wrap(err, errors.CodeResource, "resume playback")
	}
	c.status = StatusPlaying
	return nil
}

// Stop flushes progress, releases the audio resource, and bumps the session
// token so any in-flight asynchronous work is discarded. Safe in any state.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session++
	c.saveLocked(false)
	c.closeResourceLocked()
	c.status = StatusStopped
	return nil
}

// Flush persists current progress immediately. Called on application
// lifecycle signals (visibility hidden, navigation away, unload).
func (c *Controller) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveLocked(false)
}

// Status returns the controller's lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ChapterID returns the chapter of the current session, if any.
func (c *Controller) ChapterID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chapterID
}

// SessionID returns the identifier of the current session, for log
// correlation by the embedding application.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Position returns the current raw element time and its character offset.
func (c *Controller) Position() (timeSec float64, offset int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.res == nil {
		return 0, 0
	}
	timeSec = c.res.State().PositionSec()
	return timeSec, c.mapper.TimeToOffset(timeSec)
}

// State returns a snapshot of the underlying transport, or a zero state when
// no resource is loaded. Together with OnState this makes the controller a
// playback-state source for the highlight tracker.
func (c *Controller) State() domain.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.res == nil {
		return domain.PlaybackState{}
	}
	return c.res.State()
}

// OnState registers a push subscriber for transport state changes. The
// subscription survives chapter switches.
func (c *Controller) OnState(fn func(domain.PlaybackState)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// syncLoop emits fine-grained offset updates and throttled progress saves
// while the session is playing. It exits when its token is superseded.
func (c *Controller) syncLoop(token int64) {
	ticker := time.NewTicker(c.cfg.SyncInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if token != c.session {
			c.mu.Unlock()
			return
		}
		if c.status != StatusPlaying || c.res == nil {
			c.mu.Unlock()
			continue
		}
		timeSec := c.res.State().PositionSec()
		offset := c.mapper.TimeToOffset(timeSec)
		if time.Since(c.lastSaveAt) >= c.cfg.SaveInterval {
			c.saveLocked(false)
		}
		fn := c.onSync
		c.mu.Unlock()

		if fn != nil {
			fn(offset, timeSec)
		}
	}
}

// handleEnded marks the session ended and surfaces the end callback once.
func (c *Controller) handleEnded(token int64) {
	c.mu.Lock()
	if token != c.session {
		c.mu.Unlock()
		return
	}
	c.status = StatusEnded
	c.saveLocked(false)
	fn := c.onEnd
	c.mu.Unlock()

	if fn != nil {
		fn(nil)
	}
}

// saveLocked folds the current transport position into the cached progress
// record and writes it through the store. Store failures are logged, never
// surfaced into the playback path.
func (c *Controller) saveLocked(allowRewind bool) {
	if c.res == nil || c.record == nil {
		return
	}
	state := c.res.State()
	changed := c.record.Apply(domain.ProgressUpdate{
		TimeSec:     state.PositionSec(),
		DurationSec: state.DurationSec(),
		AllowRewind: allowRewind,
	}, c.cfg.CompletionThreshold)
	c.lastSaveAt = time.Now()
	if !changed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := c.progress.SaveChapterProgress(ctx, c.record, allowRewind); err != nil {
		c.logger.Error("save chapter progress",
			"chapter_id", c.record.ChapterID,
			"error", err,
		)
	}
}

// failResourceAndUnlock releases the resource after a transport error and
// leaves the controller stopped and retryable. Unlocks the mutex.
func (c *Controller) failResourceAndUnlock() {
	c.closeResourceLocked()
	c.status = StatusStopped
	c.mu.Unlock()
}

// closeResourceLocked cancels subscriptions and releases the resource.
func (c *Controller) closeResourceLocked() {
	if c.cancelPush != nil {
		c.cancelPush()
		c.cancelPush = nil
	}
	if c.cancelEnded != nil {
		c.cancelEnded()
		c.cancelEnded = nil
	}
	if c.res != nil {
		_ = c.res.Close()
		c.res = nil
	}
}

// broadcast fans a transport state push out to subscribers.
func (c *Controller) broadcast(state domain.PlaybackState) {
	c.mu.Lock()
	fns := make([]func(domain.PlaybackState), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
