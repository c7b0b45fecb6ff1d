// Package localstore persists synchronized entities in the on-device
// SQLite database. It is the single boundary through which the sync
// engine reads and writes local application data.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ezcar24/dealersync/internal/common"
	"github.com/ezcar24/dealersync/internal/dbx"
	"github.com/ezcar24/dealersync/internal/models"
)

// Store is a SQLite-backed entity repository keyed by (kind, id).
type Store struct {
	db dbx.DBTX
}

func New(db dbx.DBTX) *Store {
	return &Store{db: db}
}

// Upsert inserts the record or replaces an existing row with the same key.
func (s *Store) Upsert(ctx context.Context, rec models.Record) error {
	query := `
		INSERT INTO entities (kind, id, dealer_id, updated_at, deleted_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET
			dealer_id = excluded.dealer_id,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			payload = excluded.payload
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.Kind.String(), rec.ID, rec.DealerID,
		formatTime(rec.UpdatedAt), formatTimePtr(rec.DeletedAt), string(rec.Payload))
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", rec.Kind, rec.ID, err)
	}
	return nil
}

// Delete removes the row outright. Tombstoning is the remote store's
// concern; locally a deleted entity simply disappears.
func (s *Store) Delete(ctx context.Context, kind models.EntityKind, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM entities WHERE kind = ? AND id = ?`, kind.String(), id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", kind, id, err)
	}
	return nil
}

// Get returns a single record or common.ErrNotFound.
func (s *Store) Get(ctx context.Context, kind models.EntityKind, id string) (models.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT kind, id, dealer_id, updated_at, deleted_at, payload
		 FROM entities WHERE kind = ? AND id = ?`, kind.String(), id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, common.ErrNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("get %s/%s: %w", kind, id, err)
	}
	return rec, nil
}

// List returns every record of the given kind owned by the dealer.
func (s *Store) List(ctx context.Context, dealerID string, kind models.EntityKind) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, id, dealer_id, updated_at, deleted_at, payload
		 FROM entities WHERE dealer_id = ? AND kind = ?
		 ORDER BY updated_at DESC`, dealerID, kind.String())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var recs []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// IDs returns the identifiers of every record of the given kind owned by
// the dealer.
func (s *Store) IDs(ctx context.Context, dealerID string, kind models.EntityKind) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM entities WHERE dealer_id = ? AND kind = ?`,
		dealerID, kind.String())
	if err != nil {
		return nil, fmt.Errorf("ids %s: %w", kind, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of live records of the given kind owned by the
// dealer. Tombstoned rows are kept for sync but excluded here, matching
// what the application's default queries show.
func (s *Store) Count(ctx context.Context, dealerID string, kind models.EntityKind) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entities WHERE dealer_id = ? AND kind = ? AND deleted_at IS NULL`,
		dealerID, kind.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

// DeleteMissing removes dealer rows of the given kind whose id is not in
// keep. Used after a full resync to drop rows the remote no longer has.
// Rows written at or after cutoff are left alone: a record created while
// the pass was running cannot appear in its pull snapshot.
func (s *Store) DeleteMissing(ctx context.Context, dealerID string, kind models.EntityKind, keep []string, cutoff time.Time) (int64, error) {
	if len(keep) == 0 {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM entities WHERE dealer_id = ? AND kind = ? AND updated_at < ?`,
			dealerID, kind.String(), formatTime(cutoff))
		if err != nil {
			return 0, fmt.Errorf("delete missing %s: %w", kind, err)
		}
		return res.RowsAffected()
	}

	placeholders := strings.Repeat("?,", len(keep))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(keep)+3)
	args = append(args, dealerID, kind.String(), formatTime(cutoff))
	for _, id := range keep {
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`DELETE FROM entities WHERE dealer_id = ? AND kind = ? AND updated_at < ? AND id NOT IN (%s)`,
		placeholders)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete missing %s: %w", kind, err)
	}
	return res.RowsAffected()
}

// PurgeDealer removes every record owned by the dealer. Used when a guest
// profile is discarded or an account is signed out without keeping data.
func (s *Store) PurgeDealer(ctx context.Context, dealerID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM entities WHERE dealer_id = ?`, dealerID)
	if err != nil {
		return fmt.Errorf("purge dealer: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.Record, error) {
	var (
		kind, id, dealerID, updatedAt, payload string
		deletedAt                              sql.NullString
	)
	if err := row.Scan(&kind, &id, &dealerID, &updatedAt, &deletedAt, &payload); err != nil {
		return models.Record{}, err
	}

	k, err := models.ParseEntityKind(kind)
	if err != nil {
		return models.Record{}, err
	}

	updated, err := parseTime(updatedAt)
	if err != nil {
		return models.Record{}, err
	}

	rec := models.Record{
		Kind:      k,
		ID:        id,
		DealerID:  dealerID,
		UpdatedAt: updated,
		Payload:   json.RawMessage(payload),
	}

	if deletedAt.Valid {
		t, err := parseTime(deletedAt.String)
		if err != nil {
			return models.Record{}, err
		}
		rec.DeletedAt = &t
	}

	return rec, nil
}

// timeLayout is fixed width so stored timestamps compare correctly as
// strings in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
