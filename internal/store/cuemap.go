package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/narratekit/narrator-core/internal/domain"
	"github.com/narratekit/narrator-core/internal/errors"
	"github.com/narratekit/narrator-core/internal/id"
)

const (
	cueMapPrefix       = "cuemap:"
	paragraphMapPrefix = "parmap:"
)

// Sentinel errors for cue/paragraph map operations.
var (
	ErrCueMapNotFound       = errors.ErrNotFound.WithMessage("cue map not found")
	ErrParagraphMapNotFound = errors.ErrNotFound.WithMessage("paragraph map not found")
)

// GetCueMap retrieves the current cue map for a chapter.
func (s *Store) GetCueMap(ctx context.Context, chapterID string) (*domain.CueMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m domain.CueMap
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cueMapPrefix + chapterID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrCueMapNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})

	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveCueMap replaces the chapter's cue map wholesale. Every save is also
// written under its version key (generated when absent), so a regeneration
// can be inspected or rolled back by the embedding application.
func (s *Store) SaveCueMap(ctx context.Context, m *domain.CueMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.ChapterID == "" {
		return errors.Validation("cue map missing chapter ID")
	}
	if !m.Sorted() {
		return errors.Validation("cue map cues not ascending by time")
	}
	if m.Version == "" {
		version, err := id.Generate(id.PrefixCueMap)
		if err != nil {
			return err
		}
		m.Version = version
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal cue map: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(cueMapPrefix+m.ChapterID), data); err != nil {
			return fmt.Errorf("set cue map: %w", err)
		}
		versioned := cueMapPrefix + m.ChapterID + ":" + m.Version
		if err := txn.Set([]byte(versioned), data); err != nil {
			return fmt.Errorf("set versioned cue map: %w", err)
		}
		return nil
	})
}

// GetCueMapVersion retrieves a specific cue map version for a chapter.
func (s *Store) GetCueMapVersion(ctx context.Context, chapterID, version string) (*domain.CueMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m domain.CueMap
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cueMapPrefix + chapterID + ":" + version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrCueMapNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})

	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetParagraphMap retrieves the current paragraph map for a chapter.
func (s *Store) GetParagraphMap(ctx context.Context, chapterID string) (*domain.ParagraphMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m domain.ParagraphMap
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(paragraphMapPrefix + chapterID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrParagraphMapNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})

	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveParagraphMap replaces the chapter's paragraph map wholesale.
func (s *Store) SaveParagraphMap(ctx context.Context, m *domain.ParagraphMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.ChapterID == "" {
		return errors.Validation("paragraph map missing chapter ID")
	}
	if m.Version == "" {
		version, err := id.Generate(id.PrefixParagraphMap)
		if err != nil {
			return err
		}
		m.Version = version
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal paragraph map: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(paragraphMapPrefix+m.ChapterID), data)
	})
}
