// Package store persists the sync engine's record shapes (chapter progress,
// cue maps, paragraph maps) in a Badger key/value database. Durability policy
// and backend selection beyond this package are the embedding application's
// concern; the playback controller depends only on the narrow interfaces
// declared here.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/narratekit/narrator-core/internal/domain"
)

// ProgressStore is the keyed record contract the playback controller writes
// progress through.
type ProgressStore interface {
	GetChapterProgress(ctx context.Context, chapterID string) (*domain.ChapterProgress, error)
	SaveChapterProgress(ctx context.Context, progress *domain.ChapterProgress, allowRewind bool) error
}

// CueMapStore supplies cue and paragraph maps produced by upstream
// generators. Maps are swapped wholesale on regeneration.
type CueMapStore interface {
	GetCueMap(ctx context.Context, chapterID string) (*domain.CueMap, error)
	SaveCueMap(ctx context.Context, m *domain.CueMap) error
	GetParagraphMap(ctx context.Context, chapterID string) (*domain.ParagraphMap, error)
	SaveParagraphMap(ctx context.Context, m *domain.ParagraphMap) error
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// New opens a Badger database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil      // Badger's internal logging is too chatty
	opts.SyncWrites = true // progress must survive a crash mid-chapter

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
