// Package config provides engine configuration with environment-variable
// overrides on top of defaults. The library has no command line, so the
// flag layer stops here; embedding applications can also construct a Config
// directly and hand it to the engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/narratekit/narrator-core/internal/domain"
)

// Config holds the engine configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Store     StoreConfig
	Playback  PlaybackConfig
	Highlight HighlightConfig
	Chunker   ChunkerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StoreConfig holds record store configuration.
type StoreConfig struct {
	// Path is the directory for the Badger database.
	Path string
}

// PlaybackConfig holds playback session controller configuration.
type PlaybackConfig struct {
	// SaveInterval throttles progress persistence during steady playback
	// (default: 2s).
	SaveInterval time.Duration
	// SyncInterval drives the fine-grained offset sync loop while playing
	// (default: 50ms).
	SyncInterval time.Duration
	// CompletionThreshold is the listened fraction at which a chapter
	// counts as completed (default: 0.995).
	CompletionThreshold float64
}

// HighlightConfig holds highlight synchronization configuration.
type HighlightConfig struct {
	// Throttle is the minimum interval between applied updates during
	// steady playback (default: 250ms).
	Throttle time.Duration
	// JumpThreshold is the position jump treated as a seek/transition and
	// applied immediately (default: 1.2s).
	JumpThreshold time.Duration
	// PollInterval drives the periodic state poll while playing, for
	// adapters that under-report changes (default: 500ms).
	PollInterval time.Duration
}

// ChunkerConfig holds chunk-duration model seeding configuration.
type ChunkerConfig struct {
	// CharsPerSecond seeds nominal chunk durations when no
	// synthesis-reported model exists (default: 15).
	CharsPerSecond float64
}

// Default returns the configuration defaults without consulting the
// environment.
func Default() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Store:  StoreConfig{Path: "data/narrator"},
		Playback: PlaybackConfig{
			SaveInterval:        2 * time.Second,
			SyncInterval:        50 * time.Millisecond,
			CompletionThreshold: domain.DefaultCompletionThreshold,
		},
		Highlight: HighlightConfig{
			Throttle:      250 * time.Millisecond,
			JumpThreshold: 1200 * time.Millisecond,
			PollInterval:  500 * time.Millisecond,
		},
		Chunker: ChunkerConfig{CharsPerSecond: 15},
	}
}

// Load builds a Config from defaults overridden by environment variables.
func Load() (*Config, error) {
	cfg := Default()

	cfg.App.Environment = getEnv("ENV", cfg.App.Environment)
	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)
	cfg.Store.Path = getEnv("STORE_PATH", cfg.Store.Path)

	var err error
	if cfg.Playback.SaveInterval, err = getDurationEnv("PROGRESS_SAVE_INTERVAL", cfg.Playback.SaveInterval); err != nil {
		return nil, err
	}
	if cfg.Playback.SyncInterval, err = getDurationEnv("SYNC_INTERVAL", cfg.Playback.SyncInterval); err != nil {
		return nil, err
	}
	if cfg.Playback.CompletionThreshold, err = getFloatEnv("COMPLETION_THRESHOLD", cfg.Playback.CompletionThreshold); err != nil {
		return nil, err
	}
	if cfg.Highlight.Throttle, err = getDurationEnv("HIGHLIGHT_THROTTLE", cfg.Highlight.Throttle); err != nil {
		return nil, err
	}
	if cfg.Highlight.JumpThreshold, err = getDurationEnv("HIGHLIGHT_JUMP_THRESHOLD", cfg.Highlight.JumpThreshold); err != nil {
		return nil, err
	}
	if cfg.Highlight.PollInterval, err = getDurationEnv("HIGHLIGHT_POLL_INTERVAL", cfg.Highlight.PollInterval); err != nil {
		return nil, err
	}
	if cfg.Chunker.CharsPerSecond, err = getFloatEnv("CHUNK_CHARS_PER_SECOND", cfg.Chunker.CharsPerSecond); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	if c.Playback.CompletionThreshold <= 0 || c.Playback.CompletionThreshold > 1 {
		return fmt.Errorf("completion threshold %v out of range (0, 1]", c.Playback.CompletionThreshold)
	}
	if c.Playback.SaveInterval <= 0 {
		return fmt.Errorf("progress save interval must be positive, got %v", c.Playback.SaveInterval)
	}
	if c.Playback.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %v", c.Playback.SyncInterval)
	}
	if c.Highlight.Throttle <= 0 {
		return fmt.Errorf("highlight throttle must be positive, got %v", c.Highlight.Throttle)
	}
	if c.Highlight.JumpThreshold <= 0 {
		return fmt.Errorf("highlight jump threshold must be positive, got %v", c.Highlight.JumpThreshold)
	}
	if c.Highlight.PollInterval <= 0 {
		return fmt.Errorf("highlight poll interval must be positive, got %v", c.Highlight.PollInterval)
	}
	if c.Chunker.CharsPerSecond <= 0 {
		return fmt.Errorf("chars per second must be positive, got %v", c.Chunker.CharsPerSecond)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getFloatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}
