// Package checkpoint tracks the per-dealer high-water mark of the last
// fully completed sync. Incremental pulls ask the remote store only for
// changes after this time.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ezcar24/dealersync/internal/common"
	"github.com/ezcar24/dealersync/internal/metadata"
)

const keyPrefix = "last_sync_at:"

type Store struct {
	meta *metadata.Repo
}

func NewStore(meta *metadata.Repo) *Store {
	return &Store{meta: meta}
}

// Get returns the last sync time for the dealer. A zero time means the
// dealer has never completed a sync and the next pull must be a full one.
func (s *Store) Get(ctx context.Context, dealerID string) (time.Time, error) {
	value, err := s.meta.Get(ctx, keyPrefix+dealerID)
	if errors.Is(err, common.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse checkpoint: %w", err)
	}
	return t, nil
}

// Set advances the checkpoint. The caller passes the server-reported
// time, never the local clock, so a skewed device cannot skip changes.
func (s *Store) Set(ctx context.Context, dealerID string, t time.Time) error {
	return s.meta.Set(ctx, keyPrefix+dealerID, t.UTC().Format(time.RFC3339Nano))
}

// Clear forgets the checkpoint so the next sync pulls everything.
func (s *Store) Clear(ctx context.Context, dealerID string) error {
	return s.meta.Delete(ctx, keyPrefix+dealerID)
}
