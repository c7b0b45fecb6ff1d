package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ezcar24/dealersync/internal/common"
	"github.com/ezcar24/dealersync/internal/identity"
	"github.com/ezcar24/dealersync/internal/logging"
	"github.com/ezcar24/dealersync/internal/models"
	"github.com/ezcar24/dealersync/internal/queue"
)

// driftPad is subtracted from the checkpoint on incremental pulls so a
// device whose clock ran ahead of the server's does not miss a window.
// Re-pulling a few minutes of already-merged records is a no-op.
const driftPad = 5 * time.Minute

// LocalStore is the boundary through which the coordinator reads and
// writes local application data. All merge writes go through it so the
// conflict rules are applied uniformly.
type LocalStore interface {
	Upsert(ctx context.Context, rec models.Record) error
	Delete(ctx context.Context, kind models.EntityKind, id string) error
	Get(ctx context.Context, kind models.EntityKind, id string) (models.Record, error)
	DeleteMissing(ctx context.Context, dealerID string, kind models.EntityKind, keep []string, cutoff time.Time) (int64, error)
	PurgeDealer(ctx context.Context, dealerID string) error
}

// Queue is the durable mutation outbox.
type Queue interface {
	Enqueue(ctx context.Context, dealerID string, kind models.EntityKind, entityID string, op models.Operation, payload json.RawMessage, now time.Time) (int64, error)
	Due(ctx context.Context, dealerID string, now time.Time) ([]queue.Entry, error)
	Ack(ctx context.Context, seq int64, enqueuedAt time.Time) error
	RetryLater(ctx context.Context, seq int64, lastError string, now time.Time) error
	PendingIDs(ctx context.Context, dealerID string) (map[models.EntityKind]map[string]struct{}, error)
	PendingDeleteIDs(ctx context.Context, dealerID string) (map[models.EntityKind]map[string]struct{}, error)
	PurgeDealer(ctx context.Context, dealerID string) error
}

// RemoteStore is the backend the queue drains into and changes are pulled
// from.
type RemoteStore interface {
	Upsert(ctx context.Context, dealerID string, rec models.Record) error
	Pull(ctx context.Context, dealerID string, kind models.EntityKind, since time.Time) ([]models.Record, time.Time, error)
}

// Checkpoints tracks the per-dealer last-sync time.
type Checkpoints interface {
	Get(ctx context.Context, dealerID string) (time.Time, error)
	Set(ctx context.Context, dealerID string, t time.Time) error
	Clear(ctx context.Context, dealerID string) error
}

// MediaStore removes binary blobs tied to deleted entities. Optional;
// see Coordinator.AttachMedia.
type MediaStore interface {
	DeleteVehicleImage(ctx context.Context, dealerID, vehicleID string) error
}

// SyncState is the coarse per-dealer lifecycle the UI observes in
// addition to IsSyncing.
type SyncState int

const (
	StateIdle SyncState = iota
	StateSyncing
	StateSuccess
	StateFailure
)

func (s SyncState) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "idle"
	}
}

// Coordinator runs sync passes. Construct one per process and share it;
// the single-flight guard lives in memory, so two Coordinators over the
// same database would not exclude each other.
type Coordinator struct {
	local       LocalStore
	queue       Queue
	remote      RemoteStore
	checkpoints Checkpoints
	media       MediaStore
	log         logging.Logger
	now         func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
	state    map[string]SyncState
}

func New(local LocalStore, q Queue, remote RemoteStore, checkpoints Checkpoints, log logging.Logger) *Coordinator {
	return &Coordinator{
		local:       local,
		queue:       q,
		remote:      remote,
		checkpoints: checkpoints,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
		inFlight:    make(map[string]bool),
		state:       make(map[string]SyncState),
	}
}

// AttachMedia wires the photo store so entity deletes can clean up their
// blobs. Optional: without it deletes simply leave objects behind.
func (c *Coordinator) AttachMedia(m MediaStore) {
	c.media = m
}

// IsSyncing reports whether a pass is currently running for the dealer.
// Exposed so the UI can show a spinner without polling results.
func (c *Coordinator) IsSyncing(dealerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[dealerID]
}

// State reports the outcome of the dealer's latest pass, or StateSyncing
// while one is running.
func (c *Coordinator) State(dealerID string) SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state[dealerID]
}

func (c *Coordinator) tryAcquire(dealerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[dealerID] {
		return false
	}
	c.inFlight[dealerID] = true
	c.state[dealerID] = StateSyncing
	return true
}

func (c *Coordinator) release(dealerID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, dealerID)
	if err != nil {
		c.state[dealerID] = StateFailure
	} else {
		c.state[dealerID] = StateSuccess
	}
}

// ManualSync runs one full pass for the signed-in dealer: drain, pull,
// merge, advance checkpoint. With force set the checkpoint is ignored and
// the full remote state is pulled, then local rows missing remotely and
// not pending upload are dropped. If a pass is already in flight the call
// returns immediately with Skipped set.
func (c *Coordinator) ManualSync(ctx context.Context, id identity.Identity, force bool) (Result, error) {
	if id.Guest || id.DealerID == "" {
		return Result{}, common.ErrNoIdentity
	}
	if err := id.CheckToken(c.now()); err != nil {
		return Result{}, err
	}

	if !c.tryAcquire(id.DealerID) {
		c.log.Debug(ctx, "sync already in flight", "dealer_id", id.DealerID)
		return Result{Skipped: true}, nil
	}

	var (
		res     Result
		passErr error
	)
	defer func() { c.release(id.DealerID, passErr) }()

	startedAt := c.now()

	if passErr = c.drain(ctx, id.DealerID, &res); passErr != nil {
		c.log.Error(ctx, "queue read failed, pass aborted",
			"dealer_id", id.DealerID, "error", passErr)
		return res, passErr
	}

	if passErr = c.pullAndMerge(ctx, id.DealerID, force, startedAt, &res); passErr != nil {
		c.log.Error(ctx, "pull failed, checkpoint unchanged",
			"dealer_id", id.DealerID, "error", passErr)
		return res, passErr
	}

	c.log.Info(ctx, "sync pass finished",
		"dealer_id", id.DealerID,
		"pushed", res.Pushed,
		"merged", res.Merged,
		"removed", res.Removed,
		"entry_errors", len(res.EntryErrors))

	return res, nil
}

// ProcessOfflineQueue drains the queue without pulling. Used before risky
// transitions such as sign-out so as little data as possible is left
// unsynced. Shares the single-flight guard with ManualSync.
func (c *Coordinator) ProcessOfflineQueue(ctx context.Context, id identity.Identity) (Result, error) {
	if id.Guest || id.DealerID == "" {
		return Result{}, common.ErrNoIdentity
	}
	if err := id.CheckToken(c.now()); err != nil {
		return Result{}, err
	}

	if !c.tryAcquire(id.DealerID) {
		return Result{Skipped: true}, nil
	}

	var (
		res     Result
		passErr error
	)
	defer func() { c.release(id.DealerID, passErr) }()

	passErr = c.drain(ctx, id.DealerID, &res)
	return res, passErr
}

// drain sends every due queue entry to the remote store. A failed entry
// is rescheduled with backoff and the pass moves on; one bad record must
// not block the rest of the queue. A failed queue read is fatal to the
// pass, like any other local-store failure.
func (c *Coordinator) drain(ctx context.Context, dealerID string, res *Result) error {
	entries, err := c.queue.Due(ctx, dealerID, c.now())
	if err != nil {
		return fmt.Errorf("read queue: %w", err)
	}

	for _, e := range entries {
		rec, err := models.RecordFromPayload(e.Kind, e.Payload)
		if err != nil {
			// An unreadable payload will never transmit; keep it queued
			// and let diagnostics surface it as stuck.
			c.retry(ctx, e, err, res)
			continue
		}

		if err := c.remote.Upsert(ctx, dealerID, rec); err != nil {
			c.retry(ctx, e, err, res)
			continue
		}

		if err := c.queue.Ack(ctx, e.Seq, e.EnqueuedAt); err != nil {
			c.log.Error(ctx, "ack failed", "seq", e.Seq, "error", err)
			continue
		}
		res.Pushed++
	}
	return nil
}

func (c *Coordinator) retry(ctx context.Context, e queue.Entry, cause error, res *Result) {
	res.EntryErrors = append(res.EntryErrors, EntryError{
		Kind:      e.Kind,
		EntityID:  e.EntityID,
		Operation: e.Operation,
		Err:       cause,
	})
	if err := c.queue.RetryLater(ctx, e.Seq, cause.Error(), c.now()); err != nil {
		c.log.Error(ctx, "retry scheduling failed", "seq", e.Seq, "error", err)
	}
	c.log.Warn(ctx, "queue entry failed",
		"kind", e.Kind, "entity_id", e.EntityID, "attempts", e.Attempts+1, "error", cause)
}

func (c *Coordinator) pullAndMerge(ctx context.Context, dealerID string, force bool, startedAt time.Time, res *Result) error {
	since, err := c.checkpoints.Get(ctx, dealerID)
	if err != nil {
		return err
	}

	full := force || since.IsZero()
	if full {
		since = time.Time{}
	} else {
		since = since.Add(-driftPad)
	}

	pendingDeletes, err := c.queue.PendingDeleteIDs(ctx, dealerID)
	if err != nil {
		return err
	}

	var serverTime time.Time
	for _, kind := range models.AllKinds {
		recs, st, err := c.remote.Pull(ctx, dealerID, kind, since)
		if err != nil {
			return fmt.Errorf("pull %s: %w", kind, err)
		}
		if st.After(serverTime) {
			serverTime = st
		}

		seen := make([]string, 0, len(recs))
		for _, rec := range recs {
			seen = append(seen, rec.ID)
			if _, pending := pendingDeletes[kind][rec.ID]; pending {
				// The user deleted this record offline; merging the pull
				// would resurrect it until the queue drains.
				continue
			}
			if err := c.merge(ctx, dealerID, rec, res); err != nil {
				return fmt.Errorf("merge %s/%s: %w", kind, rec.ID, err)
			}
		}

		if full {
			if err := c.removeMissing(ctx, dealerID, kind, seen, startedAt, res); err != nil {
				return err
			}
		}
	}

	if serverTime.IsZero() {
		// The backend reported no usable time. Leaving the checkpoint
		// alone costs a re-pull next pass; advancing it on the local
		// clock could skip a window.
		c.log.Warn(ctx, "no server time in pull responses, checkpoint unchanged",
			"dealer_id", dealerID)
		return nil
	}

	if err := c.checkpoints.Set(ctx, dealerID, serverTime); err != nil {
		return fmt.Errorf("advance checkpoint: %w", err)
	}
	res.ServerTime = serverTime
	return nil
}

// merge applies one pulled record under the conflict rules: tombstones
// always win, otherwise last write wins by updated_at with the remote
// copy taking exact ties. A newer local copy is kept and re-enqueued so
// the remote store eventually learns about it.
func (c *Coordinator) merge(ctx context.Context, dealerID string, rec models.Record, res *Result) error {
	if rec.Deleted() {
		if err := c.local.Upsert(ctx, rec); err != nil {
			return err
		}
		res.Merged++
		return nil
	}

	local, err := c.local.Get(ctx, rec.Kind, rec.ID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		if err := c.local.Upsert(ctx, rec); err != nil {
			return err
		}
		res.Merged++
		return nil
	case err != nil:
		return err
	}

	if local.Deleted() {
		// Locally tombstoned; a non-tombstone pull must not resurrect it.
		return nil
	}

	if local.UpdatedAt.After(rec.UpdatedAt) {
		_, err := c.queue.Enqueue(ctx, dealerID, local.Kind, local.ID,
			models.OpUpsert, local.Payload, c.now())
		return err
	}

	if err := c.local.Upsert(ctx, rec); err != nil {
		return err
	}
	res.Merged++
	return nil
}

// removeMissing drops local rows of the given kind that the full pull did
// not return, except those with a pending queue entry or written since the
// pass started. A record created offline and not yet pushed, or created
// while the pull was in flight, must survive a stale snapshot.
func (c *Coordinator) removeMissing(ctx context.Context, dealerID string, kind models.EntityKind, seen []string, startedAt time.Time, res *Result) error {
	pending, err := c.queue.PendingIDs(ctx, dealerID)
	if err != nil {
		return err
	}

	keep := make([]string, 0, len(seen)+len(pending[kind]))
	keep = append(keep, seen...)
	for id := range pending[kind] {
		keep = append(keep, id)
	}

	n, err := c.local.DeleteMissing(ctx, dealerID, kind, keep, startedAt)
	if err != nil {
		return err
	}
	if n > 0 {
		c.log.Info(ctx, "removed rows missing upstream",
			"dealer_id", dealerID, "kind", kind, "count", n)
	}
	res.Removed += int(n)
	return nil
}
