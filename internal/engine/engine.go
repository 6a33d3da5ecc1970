// Package engine assembles the narrator core: config, logger, record store,
// playback controller, and highlight tracker, wired through a DI container.
// Embedding applications supply an audio adapter and get back a ready engine
// with a single Shutdown for the whole graph.
package engine

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/narratekit/narrator-core/internal/chunker"
	"github.com/narratekit/narrator-core/internal/config"
	"github.com/narratekit/narrator-core/internal/domain"
	"github.com/narratekit/narrator-core/internal/errors"
	"github.com/narratekit/narrator-core/internal/highlight"
	"github.com/narratekit/narrator-core/internal/logger"
	"github.com/narratekit/narrator-core/internal/playback"
	"github.com/narratekit/narrator-core/internal/store"
)

// Options configures engine assembly.
type Options struct {
	// Config overrides environment-derived configuration when non-nil.
	Config *config.Config
	// Adapter opens audio resources for the playback controller. Required.
	Adapter playback.Adapter
	// OnHighlight receives every applied highlight result. Optional.
	OnHighlight func(highlight.Result)
}

// Engine is the assembled narrator core.
type Engine struct {
	injector   *do.RootScope
	cfg        *config.Config
	log        *logger.Logger
	store      *store.Store
	controller *playback.Controller
	tracker    *highlight.Tracker
}

// New builds the engine graph and starts the highlight tracker.
func New(opts Options) (*Engine, error) {
	if opts.Adapter == nil {
		return nil, errors.Validation("engine: audio adapter is required")
	}

	injector := do.New()
	do.ProvideValue(injector, opts)

	// Core infrastructure
	do.Provide(injector, provideConfig)
	do.Provide(injector, provideLogger)

	// Record store
	do.Provide(injector, provideStore)

	// Playback and highlighting
	do.Provide(injector, provideController)
	do.Provide(injector, provideTracker)

	// Invoking the tracker handle pulls the whole graph into existence.
	th, err := do.Invoke[*trackerHandle](injector)
	if err != nil {
		_ = injector.Shutdown()
		return nil, err
	}

	cfg := do.MustInvoke[*config.Config](injector)
	log := do.MustInvoke[*logger.Logger](injector)
	sh := do.MustInvoke[*storeHandle](injector)
	controller := do.MustInvoke[*playback.Controller](injector)

	return &Engine{
		injector:   injector,
		cfg:        cfg,
		log:        log,
		store:      sh.Store,
		controller: controller,
		tracker:    th.Tracker,
	}, nil
}

// Controller returns the playback session controller.
func (e *Engine) Controller() *playback.Controller {
	return e.controller
}

// Tracker returns the highlight tracker.
func (e *Engine) Tracker() *highlight.Tracker {
	return e.tracker
}

// Store returns the record store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Config returns the effective configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// PrepareChapter splits chapter text into chunks and seeds a nominal
// duration model from the configured speaking rate. Callers persist or
// replace the model once synthesis reports real timings.
func (e *Engine) PrepareChapter(text string) ([]domain.Chunk, domain.ChunkModel) {
	chunks := chunker.Split(text)
	model := chunker.Model(chunks, e.cfg.Chunker.CharsPerSecond)
	return chunks, model
}

// SetChapterHighlight loads the chapter's cue and paragraph maps from the
// store and points the tracker at them. A chapter without maps still resets
// the tracker, so stale indices from the previous chapter never survive.
func (e *Engine) SetChapterHighlight(ctx context.Context, chapterID string, textLength int) error {
	cueMap, err := e.store.GetCueMap(ctx, chapterID)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}
	paragraphs, err := e.store.GetParagraphMap(ctx, chapterID)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	e.tracker.SetChapter(chapterID, textLength, cueMap, paragraphs)
	return nil
}

// Shutdown stops playback, flushes progress, and tears down the graph. The
// store closes last so every pending write lands.
func (e *Engine) Shutdown() error {
	if err := e.controller.Stop(); err != nil {
		e.log.Warn("stopping playback during shutdown", "error", err)
	}
	// Shutdown always returns a non-nil *ShutdownReport; only surface it as
	// an error when something actually failed.
	if report := e.injector.Shutdown(); report != nil && !report.Succeed {
		return report
	}
	return nil
}
