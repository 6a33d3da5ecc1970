package engine

import (
	"github.com/samber/do/v2"

	"github.com/narratekit/narrator-core/internal/config"
	"github.com/narratekit/narrator-core/internal/highlight"
	"github.com/narratekit/narrator-core/internal/logger"
	"github.com/narratekit/narrator-core/internal/playback"
	"github.com/narratekit/narrator-core/internal/store"
)

// provideConfig prefers the caller-supplied config over the environment.
func provideConfig(i do.Injector) (*config.Config, error) {
	opts := do.MustInvoke[Options](i)
	if opts.Config != nil {
		if err := opts.Config.Validate(); err != nil {
			return nil, err
		}
		return opts.Config, nil
	}
	return config.Load()
}

func provideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	log.Info("narrator engine starting",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"store_path", cfg.Store.Path,
	)

	return log, nil
}

// storeHandle wraps the store with shutdown capability.
type storeHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *storeHandle) Shutdown() error {
	return h.Close()
}

func provideStore(i do.Injector) (*storeHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := store.New(cfg.Store.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("record store initialized", "path", cfg.Store.Path)

	return &storeHandle{Store: db}, nil
}

func provideController(i do.Injector) (*playback.Controller, error) {
	opts := do.MustInvoke[Options](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sh := do.MustInvoke[*storeHandle](i)

	return playback.NewController(opts.Adapter, sh.Store, cfg.Playback, log.Logger), nil
}

// trackerHandle wraps the tracker so the container stops its loops on
// shutdown.
type trackerHandle struct {
	*highlight.Tracker
}

// Shutdown implements do.Shutdownable.
func (h *trackerHandle) Shutdown() error {
	h.Stop()
	return nil
}

// provideTracker starts the tracker against the controller's state stream.
func provideTracker(i do.Injector) (*trackerHandle, error) {
	opts := do.MustInvoke[Options](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	controller := do.MustInvoke[*playback.Controller](i)

	tracker := highlight.NewTracker(controller, cfg.Highlight, log.Logger, opts.OnHighlight)
	tracker.Start()

	return &trackerHandle{Tracker: tracker}, nil
}
