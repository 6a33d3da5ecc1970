package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/narratekit/narrator-core/internal/domain"
	"github.com/narratekit/narrator-core/internal/errors"
)

const progressPrefix = "progress:"

// ErrProgressNotFound is returned when no progress exists for a chapter.
var ErrProgressNotFound = errors.ErrNotFound.WithMessage("chapter progress not found")

// GetChapterProgress retrieves persisted progress for a chapter.
func (s *Store) GetChapterProgress(ctx context.Context, chapterID string) (*domain.ChapterProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var progress domain.ChapterProgress
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(progressPrefix + chapterID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrProgressNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &progress)
		})
	})

	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// SaveChapterProgress merges the record into any stored progress and writes
// the result, all inside one transaction. Racing partial writes (throttled
// ticks vs lifecycle flushes) therefore never regress the persisted position:
// a lower percent only wins when allowRewind is set, and completion stays
// set once reached.
func (s *Store) SaveChapterProgress(ctx context.Context, progress *domain.ChapterProgress, allowRewind bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if progress.ChapterID == "" {
		return errors.Validation("progress missing chapter ID")
	}

	key := []byte(progressPrefix + progress.ChapterID)

	return s.db.Update(func(txn *badger.Txn) error {
		merged := *progress

		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// First write for this chapter.
		case err != nil:
			return err
		default:
			var stored domain.ChapterProgress
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			}); err != nil {
				return fmt.Errorf("unmarshal stored progress: %w", err)
			}
			stored.MergeFrom(progress, allowRewind)
			merged = stored
		}

		data, err := json.Marshal(&merged)
		if err != nil {
			return fmt.Errorf("marshal progress: %w", err)
		}
		return txn.Set(key, data)
	})
}

// DeleteChapterProgress removes persisted progress for a chapter.
func (s *Store) DeleteChapterProgress(ctx context.Context, chapterID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(progressPrefix + chapterID))
	})
}
