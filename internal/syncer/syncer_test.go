package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/ezcar24/dealersync/internal/checkpoint"
	"github.com/ezcar24/dealersync/internal/common"
	"github.com/ezcar24/dealersync/internal/identity"
	"github.com/ezcar24/dealersync/internal/localdb"
	"github.com/ezcar24/dealersync/internal/localstore"
	"github.com/ezcar24/dealersync/internal/logging"
	"github.com/ezcar24/dealersync/internal/metadata"
	"github.com/ezcar24/dealersync/internal/models"
	"github.com/ezcar24/dealersync/internal/queue"
)

type fakeRemote struct {
	mu         sync.Mutex
	upserts    []models.Record
	upsertErr  error
	pulls      map[models.EntityKind][]models.Record
	pullErr    error
	serverTime time.Time
	sinceSeen  map[models.EntityKind]time.Time

	// blockPull, when set, is closed by the test to let Pull proceed;
	// pullStarted is closed once the first Pull begins.
	blockPull   chan struct{}
	pullStarted chan struct{}
	startOnce   sync.Once
}

func (f *fakeRemote) Upsert(ctx context.Context, dealerID string, rec models.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, rec)
	return nil
}

func (f *fakeRemote) Pull(ctx context.Context, dealerID string, kind models.EntityKind, since time.Time) ([]models.Record, time.Time, error) {
	if f.pullStarted != nil {
		f.startOnce.Do(func() { close(f.pullStarted) })
	}
	if f.blockPull != nil {
		<-f.blockPull
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pullErr != nil {
		return nil, time.Time{}, f.pullErr
	}
	if f.sinceSeen == nil {
		f.sinceSeen = make(map[models.EntityKind]time.Time)
	}
	f.sinceSeen[kind] = since
	return f.pulls[kind], f.serverTime, nil
}

func (f *fakeRemote) upserted() []models.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Record(nil), f.upserts...)
}

type fakeMedia struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (f *fakeMedia) DeleteVehicleImage(ctx context.Context, dealerID, vehicleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, dealerID+"/"+vehicleID)
	return f.err
}

type env struct {
	db          *sql.DB
	store       *localstore.Store
	queue       *queue.Repo
	checkpoints *checkpoint.Store
	remote      *fakeRemote
	coord       *Coordinator
}

func setup(t *testing.T) *env {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := localdb.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	e := &env{
		db:          db,
		store:       localstore.New(db),
		queue:       queue.NewRepo(db),
		checkpoints: checkpoint.NewStore(metadata.NewRepo(db)),
		remote:      &fakeRemote{serverTime: time.Now().UTC()},
	}
	e.coord = New(e.store, e.queue, e.remote, e.checkpoints, log)
	return e
}

func dealerIdentity(t *testing.T) identity.Identity {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return identity.Identity{DealerID: "d1", UserID: "u1", AccessToken: s}
}

func vehicle(id string, updatedAt time.Time) models.Vehicle {
	return models.Vehicle{
		Meta: models.Meta{
			ID: id, DealerID: "d1", CreatedAt: updatedAt, UpdatedAt: updatedAt,
		},
		VIN: "VIN" + id, Make: "Toyota", Model: "Camry", Year: 2020,
		Status: "available",
	}
}

func vehicleRecord(t *testing.T, id string, updatedAt time.Time) models.Record {
	t.Helper()

	rec, err := models.NewRecord(models.KindVehicle, vehicle(id, updatedAt))
	require.NoError(t, err)
	return rec
}

func tombstoneRecord(t *testing.T, id string, updatedAt, deletedAt time.Time) models.Record {
	t.Helper()

	v := vehicle(id, updatedAt)
	v.DeletedAt = &deletedAt
	rec, err := models.NewRecord(models.KindVehicle, v)
	require.NoError(t, err)
	return rec
}

func TestUpsertSendsImmediately(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)

	require.NoError(t, e.coord.UpsertVehicle(ctx, id, vehicle("v1", time.Now().UTC())))

	require.Len(t, e.remote.upserted(), 1)

	n, err := e.queue.Count(ctx, "d1")
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = e.store.Get(ctx, models.KindVehicle, "v1")
	require.NoError(t, err)
}

func TestUpsertOfflineLeavesEntryQueued(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.remote.upsertErr = common.ErrUnavailable
	id := dealerIdentity(t)

	require.NoError(t, e.coord.UpsertVehicle(ctx, id, vehicle("v1", time.Now().UTC())))

	n, err := e.queue.Count(ctx, "d1")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestManualSyncDrainsQueue(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)

	// Created offline.
	e.remote.upsertErr = common.ErrUnavailable
	require.NoError(t, e.coord.UpsertVehicle(ctx, id, vehicle("v1", time.Now().UTC())))

	// Connectivity returns.
	e.remote.upsertErr = nil
	res, err := e.coord.ManualSync(ctx, id, false)
	require.NoError(t, err)
	require.Equal(t, 1, res.Pushed)
	require.Empty(t, res.EntryErrors)

	n, err := e.queue.Count(ctx, "d1")
	require.NoError(t, err)
	require.Zero(t, n)

	cp, err := e.checkpoints.Get(ctx, "d1")
	require.NoError(t, err)
	require.True(t, cp.Equal(e.remote.serverTime))
}

func TestSupersededEditTransmitsOnce(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)

	t0 := time.Now().UTC().Add(-time.Hour)
	t1 := t0.Add(time.Minute)

	e.remote.upsertErr = common.ErrUnavailable
	require.NoError(t, e.coord.UpsertVehicle(ctx, id, vehicle("v1", t0)))

	edited := vehicle("v1", t1)
	edited.AskingPrice = func() *float64 { p := 15000.0; return &p }()
	require.NoError(t, e.coord.UpsertVehicle(ctx, id, edited))

	e.remote.upsertErr = nil
	res, err := e.coord.ManualSync(ctx, id, false)
	require.NoError(t, err)
	require.Equal(t, 1, res.Pushed)

	sent := e.remote.upserted()
	require.Len(t, sent, 1)
	require.True(t, sent[0].UpdatedAt.Equal(t1))
}

func TestDrainPartialFailureContinues(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)
	now := time.Now().UTC()

	_, err := e.queue.Enqueue(ctx, "d1", models.KindVehicle, "bad", models.OpUpsert,
		[]byte(`not json`), now)
	require.NoError(t, err)
	_, err = e.queue.Enqueue(ctx, "d1", models.KindVehicle, "v2", models.OpUpsert,
		vehicleRecord(t, "v2", now).Payload, now)
	require.NoError(t, err)

	res, err := e.coord.ManualSync(ctx, id, false)
	require.NoError(t, err)
	require.Equal(t, 1, res.Pushed)
	require.Len(t, res.EntryErrors, 1)
	require.Equal(t, "bad", res.EntryErrors[0].EntityID)

	// The failed entry stays queued with a bumped attempt counter.
	entries, err := e.queue.All(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "bad", entries[0].EntityID)
	require.Equal(t, 1, entries[0].Attempts)
}

func TestMergeRemoteNewerWins(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)

	t1 := time.Now().UTC().Add(-time.Hour)
	t2 := t1.Add(time.Minute)

	require.NoError(t, e.store.Upsert(ctx, vehicleRecord(t, "v1", t1)))
	e.remote.pulls = map[models.EntityKind][]models.Record{
		models.KindVehicle: {vehicleRecord(t, "v1", t2)},
	}

	res, err := e.coord.ManualSync(ctx, id, false)
	require.NoError(t, err)
	require.Equal(t, 1, res.Merged)

	got, err := e.store.Get(ctx, models.KindVehicle, "v1")
	require.NoError(t, err)
	require.True(t, got.UpdatedAt.Equal(t2))
}

func TestMergeLocalNewerKeptAndReenqueued(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)

	t1 := time.Now().UTC().Add(-time.Hour)
	t2 := t1.Add(time.Minute)

	require.NoError(t, e.store.Upsert(ctx, vehicleRecord(t, "v1", t2)))
	e.remote.pulls = map[models.EntityKind][]models.Record{
		models.KindVehicle: {vehicleRecord(t, "v1", t1)},
	}

	_, err := e.coord.ManualSync(ctx, id, false)
	require.NoError(t, err)

	got, err := e.store.Get(ctx, models.KindVehicle, "v1")
	require.NoError(t, err)
	require.True(t, got.UpdatedAt.Equal(t2))

	// The newer local copy is queued for push, not silently dropped.
	entries, err := e.queue.All(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "v1", entries[0].EntityID)
	require.Equal(t, models.OpUpsert, entries[0].Operation)
}

func TestMergeRemoteWinsExactTie(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)
	at := time.Now().UTC().Truncate(time.Second)

	local := vehicle("v1", at)
	local.Notes = func() *string { s := "local"; return &s }()
	localRec, err := models.NewRecord(models.KindVehicle, local)
	require.NoError(t, err)
	require.NoError(t, e.store.Upsert(ctx, localRec))

	remote := vehicle("v1", at)
	remote.Notes = func() *string { s := "remote"; return &s }()
	remoteRec, err := models.NewRecord(models.KindVehicle, remote)
	require.NoError(t, err)
	e.remote.pulls = map[models.EntityKind][]models.Record{
		models.KindVehicle: {remoteRec},
	}

	_, err = e.coord.ManualSync(ctx, id, false)
	require.NoError(t, err)

	got, err := e.store.Get(ctx, models.KindVehicle, "v1")
	require.NoError(t, err)
	require.Contains(t, string(got.Payload), "remote")
}

func TestTombstoneTerminality(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)

	deletedAt := time.Now().UTC().Add(-time.Hour)
	// The local edit is newer than the remote tombstone; the tombstone
	// still wins.
	require.NoError(t, e.store.Upsert(ctx, vehicleRecord(t, "v1", deletedAt.Add(time.Minute))))
	e.remote.pulls = map[models.EntityKind][]models.Record{
		models.KindVehicle: {tombstoneRecord(t, "v1", deletedAt, deletedAt)},
	}

	_, err := e.coord.ManualSync(ctx, id, false)
	require.NoError(t, err)

	got, err := e.store.Get(ctx, models.KindVehicle, "v1")
	require.NoError(t, err)
	require.True(t, got.Deleted())

	n, err := e.store.Count(ctx, "d1", models.KindVehicle)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestPendingDeleteNotResurrectedByPull(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)
	at := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, e.store.Upsert(ctx, vehicleRecord(t, "v1", at)))

	// Deleted while offline; the tombstone is still queued.
	e.remote.upsertErr = common.ErrUnavailable
	require.NoError(t, e.coord.DeleteVehicle(ctx, id, "v1"))
	e.remote.upsertErr = nil

	// Trick the pass into pulling while the delete is still queued: make
	// the remote keep returning the live record but fail its own drain.
	e.remote.upsertErr = common.ErrUnavailable
	e.remote.pulls = map[models.EntityKind][]models.Record{
		models.KindVehicle: {vehicleRecord(t, "v1", at.Add(2 * time.Hour))},
	}

	_, err := e.coord.ManualSync(ctx, id, false)
	require.NoError(t, err)

	got, err := e.store.Get(ctx, models.KindVehicle, "v1")
	require.NoError(t, err)
	require.True(t, got.Deleted(), "pull must not resurrect a pending delete")
}

func TestCheckpointUnchangedOnPullFailure(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)

	before := time.Now().UTC().Add(-24 * time.Hour)
	require.NoError(t, e.checkpoints.Set(ctx, "d1", before))

	e.remote.pullErr = common.ErrUnavailable

	_, err := e.coord.ManualSync(ctx, id, false)
	require.ErrorIs(t, err, common.ErrUnavailable)

	cp, err := e.checkpoints.Get(ctx, "d1")
	require.NoError(t, err)
	require.True(t, cp.Equal(before))
}

func TestIncrementalPullPadsCheckpoint(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)

	cp := time.Now().UTC().Add(-24 * time.Hour)
	require.NoError(t, e.checkpoints.Set(ctx, "d1", cp))

	_, err := e.coord.ManualSync(ctx, id, false)
	require.NoError(t, err)

	since := e.remote.sinceSeen[models.KindVehicle]
	require.True(t, since.Equal(cp.Add(-driftPad)))
}

func TestForceIgnoresCheckpointAndRemovesMissing(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)
	at := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, e.checkpoints.Set(ctx, "d1", at))
	require.NoError(t, e.store.Upsert(ctx, vehicleRecord(t, "v1", at)))
	require.NoError(t, e.store.Upsert(ctx, vehicleRecord(t, "v2", at)))

	// v3 was created offline and is still queued; it must survive.
	e.remote.upsertErr = common.ErrUnavailable
	require.NoError(t, e.coord.UpsertVehicle(ctx, id, vehicle("v3", at)))

	e.remote.pulls = map[models.EntityKind][]models.Record{
		models.KindVehicle: {vehicleRecord(t, "v1", at)},
	}

	res, err := e.coord.ManualSync(ctx, id, true)
	require.NoError(t, err)

	require.True(t, e.remote.sinceSeen[models.KindVehicle].IsZero(),
		"force must pull the full collection")
	require.Equal(t, 1, res.Removed)

	ids, err := e.store.IDs(ctx, "d1", models.KindVehicle)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"v1", "v3"}, ids)
}

func TestForceResyncKeepsRowsWrittenMidPass(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)
	at := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, e.store.Upsert(ctx, vehicleRecord(t, "v1", at)))
	e.remote.pulls = map[models.EntityKind][]models.Record{
		models.KindVehicle: {vehicleRecord(t, "v1", at)},
	}
	e.remote.blockPull = make(chan struct{})
	e.remote.pullStarted = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := e.coord.ManualSync(ctx, id, true)
		done <- err
	}()

	<-e.remote.pullStarted

	// Created while the pass was pulling its snapshot. The healthy
	// immediate send acks the queue entry, so only the write time keeps
	// this row out of the missing-upstream cleanup.
	require.NoError(t, e.coord.UpsertVehicle(ctx, id, vehicle("vnew", time.Now().UTC())))
	n, err := e.queue.Count(ctx, "d1")
	require.NoError(t, err)
	require.Zero(t, n)

	close(e.remote.blockPull)
	require.NoError(t, <-done)

	_, err = e.store.Get(ctx, models.KindVehicle, "vnew")
	require.NoError(t, err, "row created during the pass must survive the cleanup")
}

func TestSyncStateLifecycle(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)

	require.Equal(t, StateIdle, e.coord.State("d1"))

	e.remote.blockPull = make(chan struct{})
	e.remote.pullStarted = make(chan struct{})

	done := make(chan struct{})
	go func() {
		_, _ = e.coord.ManualSync(ctx, id, false)
		close(done)
	}()

	<-e.remote.pullStarted
	require.Equal(t, StateSyncing, e.coord.State("d1"))

	close(e.remote.blockPull)
	<-done
	require.Equal(t, StateSuccess, e.coord.State("d1"))

	e.remote.pullErr = common.ErrUnavailable
	_, err := e.coord.ManualSync(ctx, id, false)
	require.Error(t, err)
	require.Equal(t, StateFailure, e.coord.State("d1"))
}

func TestDeleteVehicleCleansUpPhoto(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)
	media := &fakeMedia{}
	e.coord.AttachMedia(media)
	now := time.Now().UTC()

	require.NoError(t, e.store.Upsert(ctx, vehicleRecord(t, "v1", now)))
	require.NoError(t, e.coord.DeleteVehicle(ctx, id, "v1"))
	require.Equal(t, []string{"d1/v1"}, media.deleted)
}

func TestDeletePhotoCleanupFailureKeepsTombstone(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)
	e.coord.AttachMedia(&fakeMedia{err: common.ErrUnavailable})
	now := time.Now().UTC()

	require.NoError(t, e.store.Upsert(ctx, vehicleRecord(t, "v1", now)))

	// An unreachable photo bucket must not block the delete itself.
	require.NoError(t, e.coord.DeleteVehicle(ctx, id, "v1"))

	got, err := e.store.Get(ctx, models.KindVehicle, "v1")
	require.NoError(t, err)
	require.True(t, got.Deleted())
}

func TestZeroServerTimeLeavesCheckpointUnchanged(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)

	before := time.Now().UTC().Add(-24 * time.Hour)
	require.NoError(t, e.checkpoints.Set(ctx, "d1", before))

	// The backend reported no usable clock. Advancing on the device clock
	// could skip a window, so the checkpoint must stay put.
	e.remote.serverTime = time.Time{}

	res, err := e.coord.ManualSync(ctx, id, false)
	require.NoError(t, err)
	require.True(t, res.ServerTime.IsZero())

	cp, err := e.checkpoints.Get(ctx, "d1")
	require.NoError(t, err)
	require.True(t, cp.Equal(before))
}

func TestQueueReadFailureAbortsPass(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)

	require.NoError(t, e.db.Close())

	_, err := e.coord.ManualSync(ctx, id, false)
	require.Error(t, err)

	// The pass stopped before pulling anything.
	require.Empty(t, e.remote.sinceSeen)
	require.Equal(t, StateFailure, e.coord.State("d1"))
}

func TestSingleFlight(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)

	e.remote.blockPull = make(chan struct{})
	e.remote.pullStarted = make(chan struct{})

	done := make(chan Result, 1)
	go func() {
		res, _ := e.coord.ManualSync(ctx, id, false)
		done <- res
	}()

	<-e.remote.pullStarted
	require.True(t, e.coord.IsSyncing("d1"))

	second, err := e.coord.ManualSync(ctx, id, false)
	require.NoError(t, err)
	require.True(t, second.Skipped)

	close(e.remote.blockPull)
	first := <-done
	require.False(t, first.Skipped)
	require.False(t, e.coord.IsSyncing("d1"))
}

func TestProcessOfflineQueueDoesNotPull(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)
	now := time.Now().UTC()

	_, err := e.queue.Enqueue(ctx, "d1", models.KindVehicle, "v1", models.OpUpsert,
		vehicleRecord(t, "v1", now).Payload, now)
	require.NoError(t, err)

	res, err := e.coord.ProcessOfflineQueue(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, res.Pushed)
	require.Empty(t, e.remote.sinceSeen)

	cp, err := e.checkpoints.Get(ctx, "d1")
	require.NoError(t, err)
	require.True(t, cp.IsZero(), "drain-only must not advance the checkpoint")
}

func TestGuestCannotSync(t *testing.T) {
	e := setup(t)

	_, err := e.coord.ManualSync(context.Background(), identity.Identity{Guest: true}, false)
	require.ErrorIs(t, err, common.ErrNoIdentity)
}

func TestGuestDeleteIsLocalHardDelete(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	guest := identity.Identity{DealerID: "guest", Guest: true}
	now := time.Now().UTC()

	rec := vehicleRecord(t, "v1", now)
	require.NoError(t, e.store.Upsert(ctx, rec))

	require.NoError(t, e.coord.Delete(ctx, guest, models.KindVehicle, "v1"))

	_, err := e.store.Get(ctx, models.KindVehicle, "v1")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.Empty(t, e.remote.upserted(), "guest deletes never reach the remote store")
}

func TestDeleteEnqueuesTombstone(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := dealerIdentity(t)
	now := time.Now().UTC()

	require.NoError(t, e.store.Upsert(ctx, vehicleRecord(t, "v1", now)))

	e.remote.upsertErr = common.ErrUnavailable
	require.NoError(t, e.coord.DeleteVehicle(ctx, id, "v1"))

	got, err := e.store.Get(ctx, models.KindVehicle, "v1")
	require.NoError(t, err)
	require.True(t, got.Deleted())

	entries, err := e.queue.All(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.OpDelete, entries[0].Operation)

	pending, err := models.RecordFromPayload(models.KindVehicle, entries[0].Payload)
	require.NoError(t, err)
	require.True(t, pending.Deleted(), "queued payload must carry the tombstone")
}

func TestPurgeLocal(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	now := time.Now().UTC()

	require.NoError(t, e.store.Upsert(ctx, vehicleRecord(t, "v1", now)))
	_, err := e.queue.Enqueue(ctx, "d1", models.KindVehicle, "v1", models.OpUpsert,
		vehicleRecord(t, "v1", now).Payload, now)
	require.NoError(t, err)
	require.NoError(t, e.checkpoints.Set(ctx, "d1", now))

	require.NoError(t, e.coord.PurgeLocal(ctx, "d1"))

	n, err := e.store.Count(ctx, "d1", models.KindVehicle)
	require.NoError(t, err)
	require.Zero(t, n)

	qn, err := e.queue.Count(ctx, "d1")
	require.NoError(t, err)
	require.Zero(t, qn)

	cp, err := e.checkpoints.Get(ctx, "d1")
	require.NoError(t, err)
	require.True(t, cp.IsZero())
}
