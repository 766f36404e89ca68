package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type recordStore interface {
	Insert(ctx context.Context, r Record) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Record, error)
}

// Repository validates history records before handing them to the store.
type Repository struct {
	store recordStore
	now   func() time.Time
}

func NewRepository(store recordStore) *Repository {
	return &Repository{store: store, now: time.Now}
}

// Save validates r, assigns its id and timestamp, and writes it.
func (r *Repository) Save(ctx context.Context, rec Record) (Record, error) {
	rec.UserID = strings.TrimSpace(rec.UserID)
	rec.Topic = strings.TrimSpace(rec.Topic)
	if rec.Difficulty == "" {
		rec.Difficulty = DefaultDifficulty
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}

	rec.ID = uuid.New()
	rec.CreatedAt = r.now().UTC()
	if err := r.store.Insert(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("%w: insert: %v", ErrPersistence, err)
	}
	return rec, nil
}

// ListByUser returns the user's records newest first. limit <= 0 selects
// DefaultListLimit.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("userId is required")
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	records, err := r.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrPersistence, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
