package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ezcar24/dealersync/internal/dbx"
	"github.com/ezcar24/dealersync/internal/models"
)

// Repo is the SQLite-backed queue. All reads and writes go through the
// sync_queue table so pending mutations survive restarts.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Enqueue records a pending mutation. If an entry for the same
// (dealer, kind, entity id) already exists it is superseded in place:
// operation, payload and enqueue time are replaced and the retry state
// is reset, but the original queue position is kept.
func (r *Repo) Enqueue(ctx context.Context, dealerID string, kind models.EntityKind, entityID string, op models.Operation, payload json.RawMessage, now time.Time) (int64, error) {
	query := `
		INSERT INTO sync_queue
			(dealer_id, kind, entity_id, operation, payload, enqueued_at, attempts, next_attempt_at, last_error)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, NULL)
		ON CONFLICT (dealer_id, kind, entity_id) DO UPDATE SET
			operation = excluded.operation,
			payload = excluded.payload,
			enqueued_at = excluded.enqueued_at,
			attempts = 0,
			next_attempt_at = excluded.next_attempt_at,
			last_error = NULL
		RETURNING seq
	`
	var p any
	if payload != nil {
		p = string(payload)
	}

	var seq int64
	err := r.db.QueryRowContext(ctx, query,
		dealerID, kind.String(), entityID, op.String(), p,
		formatTime(now), formatTime(now)).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s/%s: %w", kind, entityID, err)
	}
	return seq, nil
}

// Due returns entries eligible for transmission, oldest first. Stuck
// entries are excluded: once the retry budget is spent the entry waits
// for operator action instead of retransmitting forever.
func (r *Repo) Due(ctx context.Context, dealerID string, now time.Time) ([]Entry, error) {
	return r.query(ctx,
		`SELECT seq, dealer_id, kind, entity_id, operation, payload,
		        enqueued_at, attempts, next_attempt_at, last_error
		 FROM sync_queue
		 WHERE dealer_id = ? AND next_attempt_at <= ? AND attempts < ?
		 ORDER BY seq ASC`,
		dealerID, formatTime(now), StuckAttempts)
}

// All returns every pending entry for the dealer, oldest first.
func (r *Repo) All(ctx context.Context, dealerID string) ([]Entry, error) {
	return r.query(ctx,
		`SELECT seq, dealer_id, kind, entity_id, operation, payload,
		        enqueued_at, attempts, next_attempt_at, last_error
		 FROM sync_queue
		 WHERE dealer_id = ?
		 ORDER BY seq ASC`,
		dealerID)
}

// Ack removes an entry after its mutation was accepted by the remote
// store. The enqueue time must match the one captured when the entry was
// read: a supersede keeps the seq but rewrites enqueued_at, and an entry
// superseded while its old payload was in flight must stay queued.
func (r *Repo) Ack(ctx context.Context, seq int64, enqueuedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE seq = ? AND enqueued_at = ?`,
		seq, formatTime(enqueuedAt))
	if err != nil {
		return fmt.Errorf("ack %d: %w", seq, err)
	}
	return nil
}

// RetryLater bumps the attempt counter, records the failure and schedules
// the next attempt with exponential backoff. Read and update run in one
// transaction so a concurrent supersede cannot interleave.
func (r *Repo) RetryLater(ctx context.Context, seq int64, lastError string, now time.Time) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var attempts int
		row := tx.QueryRowContext(ctx, `SELECT attempts FROM sync_queue WHERE seq = ?`, seq)
		if err := row.Scan(&attempts); err != nil {
			return err
		}

		attempts++
		next := now.Add(Backoff(attempts))

		_, err := tx.ExecContext(ctx,
			`UPDATE sync_queue SET attempts = ?, next_attempt_at = ?, last_error = ? WHERE seq = ?`,
			attempts, formatTime(next), lastError, seq)
		return err
	})
	if err != nil {
		return fmt.Errorf("retry later %d: %w", seq, err)
	}
	return nil
}

// Count returns the number of pending entries for the dealer.
func (r *Repo) Count(ctx context.Context, dealerID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE dealer_id = ?`, dealerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}

// Summarize aggregates pending entries per (kind, operation) for
// diagnostics.
func (r *Repo) Summarize(ctx context.Context, dealerID string) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, operation, COUNT(*)
		 FROM sync_queue
		 WHERE dealer_id = ?
		 GROUP BY kind, operation
		 ORDER BY kind, operation`,
		dealerID)
	if err != nil {
		return nil, fmt.Errorf("summarize queue: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			kind, op string
			n        int64
		)
		if err := rows.Scan(&kind, &op, &n); err != nil {
			return nil, err
		}
		k, err := models.ParseEntityKind(kind)
		if err != nil {
			return nil, err
		}
		o, err := models.ParseOperation(op)
		if err != nil {
			return nil, err
		}
		out = append(out, Summary{Kind: k, Operation: o, Count: n})
	}
	return out, rows.Err()
}

// PendingIDs returns the ids of every entity with a pending mutation,
// grouped by kind. The merge logic treats these ids as protected: a pull
// must not clobber a row the user changed while offline.
func (r *Repo) PendingIDs(ctx context.Context, dealerID string) (map[models.EntityKind]map[string]struct{}, error) {
	return r.pendingIDs(ctx,
		`SELECT kind, entity_id FROM sync_queue WHERE dealer_id = ?`, dealerID)
}

// PendingDeleteIDs returns the ids of entities with a pending delete,
// grouped by kind. Pulled snapshots are filtered against this set so a
// deleted entity does not briefly reappear.
func (r *Repo) PendingDeleteIDs(ctx context.Context, dealerID string) (map[models.EntityKind]map[string]struct{}, error) {
	return r.pendingIDs(ctx,
		`SELECT kind, entity_id FROM sync_queue WHERE dealer_id = ? AND operation = 'delete'`, dealerID)
}

func (r *Repo) pendingIDs(ctx context.Context, query, dealerID string) (map[models.EntityKind]map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, query, dealerID)
	if err != nil {
		return nil, fmt.Errorf("pending ids: %w", err)
	}
	defer rows.Close()

	out := make(map[models.EntityKind]map[string]struct{})
	for rows.Next() {
		var kind, id string
		if err := rows.Scan(&kind, &id); err != nil {
			return nil, err
		}
		k, err := models.ParseEntityKind(kind)
		if err != nil {
			return nil, err
		}
		if out[k] == nil {
			out[k] = make(map[string]struct{})
		}
		out[k][id] = struct{}{}
	}
	return out, rows.Err()
}

// PurgeDealer drops every pending entry for the dealer. Used when a guest
// profile is discarded; its mutations must never reach the remote store.
func (r *Repo) PurgeDealer(ctx context.Context, dealerID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE dealer_id = ?`, dealerID)
	if err != nil {
		return fmt.Errorf("purge queue: %w", err)
	}
	return nil
}

func (r *Repo) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                          Entry
		kind, op                   string
		enqueuedAt, nextAttemptAt  string
		payload, lastError         sql.NullString
	)
	err := rows.Scan(&e.Seq, &e.DealerID, &kind, &e.EntityID, &op,
		&payload, &enqueuedAt, &e.Attempts, &nextAttemptAt, &lastError)
	if err != nil {
		return Entry{}, err
	}

	if e.Kind, err = models.ParseEntityKind(kind); err != nil {
		return Entry{}, err
	}
	if e.Operation, err = models.ParseOperation(op); err != nil {
		return Entry{}, err
	}
	if e.EnqueuedAt, err = parseTime(enqueuedAt); err != nil {
		return Entry{}, err
	}
	if e.NextAttemptAt, err = parseTime(nextAttemptAt); err != nil {
		return Entry{}, err
	}
	if payload.Valid {
		e.Payload = json.RawMessage(payload.String)
	}
	if lastError.Valid {
		e.LastError = lastError.String
	}
	return e, nil
}

// timeLayout is fixed width so stored timestamps compare correctly as
// strings in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
