package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ezcar24/dealersync/internal/common"
	"github.com/ezcar24/dealersync/internal/localdb"
	"github.com/ezcar24/dealersync/internal/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := localdb.Open(context.Background(), dsn)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func vehicleRecord(t *testing.T, id, dealerID string, updatedAt time.Time, deletedAt *time.Time) models.Record {
	t.Helper()

	v := models.Vehicle{
		Meta: models.Meta{
			ID:        id,
			DealerID:  dealerID,
			CreatedAt: updatedAt,
			UpdatedAt: updatedAt,
			DeletedAt: deletedAt,
		},
		VIN:    "WBA123",
		Make:   "BMW",
		Model:  "320i",
		Year:   2019,
		Status: "available",
	}
	rec, err := models.NewRecord(models.KindVehicle, v)
	require.NoError(t, err)
	return rec
}

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := New(setupDB(t))
	now := time.Now().UTC().Truncate(time.Millisecond)

	rec := vehicleRecord(t, "v1", "d1", now, nil)
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.Get(ctx, models.KindVehicle, "v1")
	require.NoError(t, err)
	require.Equal(t, "v1", got.ID)
	require.Equal(t, "d1", got.DealerID)
	require.True(t, got.UpdatedAt.Equal(now))
	require.JSONEq(t, string(rec.Payload), string(got.Payload))
}

func TestGetMissing(t *testing.T) {
	store := New(setupDB(t))

	_, err := store.Get(context.Background(), models.KindVehicle, "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	store := New(setupDB(t))
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, store.Upsert(ctx, vehicleRecord(t, "v1", "d1", now, nil)))
	require.NoError(t, store.Upsert(ctx, vehicleRecord(t, "v1", "d1", now.Add(time.Hour), nil)))

	recs, err := store.List(ctx, "d1", models.KindVehicle)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.True(t, recs[0].UpdatedAt.Equal(now.Add(time.Hour)))
}

func TestCountExcludesTombstones(t *testing.T) {
	ctx := context.Background()
	store := New(setupDB(t))
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, vehicleRecord(t, "v1", "d1", now, nil)))
	require.NoError(t, store.Upsert(ctx, vehicleRecord(t, "v2", "d1", now, &now)))

	n, err := store.Count(ctx, "d1", models.KindVehicle)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := New(setupDB(t))
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, vehicleRecord(t, "v1", "d1", now, nil)))
	require.NoError(t, store.Delete(ctx, models.KindVehicle, "v1"))

	_, err := store.Get(ctx, models.KindVehicle, "v1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteMissing(t *testing.T) {
	ctx := context.Background()
	store := New(setupDB(t))
	now := time.Now().UTC()

	for _, id := range []string{"v1", "v2", "v3"} {
		require.NoError(t, store.Upsert(ctx, vehicleRecord(t, id, "d1", now, nil)))
	}

	removed, err := store.DeleteMissing(ctx, "d1", models.KindVehicle, []string{"v1", "v3"}, now.Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	ids, err := store.IDs(ctx, "d1", models.KindVehicle)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"v1", "v3"}, ids)
}

func TestDeleteMissingEmptyKeepDropsAll(t *testing.T) {
	ctx := context.Background()
	store := New(setupDB(t))
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, vehicleRecord(t, "v1", "d1", now, nil)))

	removed, err := store.DeleteMissing(ctx, "d1", models.KindVehicle, nil, now.Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
}

func TestDeleteMissingSparesRowsWrittenAfterCutoff(t *testing.T) {
	ctx := context.Background()
	store := New(setupDB(t))
	now := time.Now().UTC()
	cutoff := now.Add(time.Minute)

	require.NoError(t, store.Upsert(ctx, vehicleRecord(t, "v1", "d1", now, nil)))
	require.NoError(t, store.Upsert(ctx, vehicleRecord(t, "v2", "d1", cutoff.Add(time.Second), nil)))

	removed, err := store.DeleteMissing(ctx, "d1", models.KindVehicle, nil, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	ids, err := store.IDs(ctx, "d1", models.KindVehicle)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"v2"}, ids)
}

func TestPurgeDealerScopedToDealer(t *testing.T) {
	ctx := context.Background()
	store := New(setupDB(t))
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, vehicleRecord(t, "v1", "d1", now, nil)))
	require.NoError(t, store.Upsert(ctx, vehicleRecord(t, "v2", "d2", now, nil)))

	require.NoError(t, store.PurgeDealer(ctx, "d1"))

	n, err := store.Count(ctx, "d1", models.KindVehicle)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = store.Count(ctx, "d2", models.KindVehicle)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestRoundTripPayload(t *testing.T) {
	ctx := context.Background()
	store := New(setupDB(t))
	now := time.Now().UTC()

	notes := "loan from partner"
	due := now.Add(30 * 24 * time.Hour)
	rec, err := models.NewRecord(models.KindDebt, models.Debt{
		Meta: models.Meta{
			ID: "debt1", DealerID: "d1", CreatedAt: now, UpdatedAt: now,
		},
		CounterpartyName: "Ivan",
		Direction:        "owed_to_us",
		Amount:           1500,
		Notes:            &notes,
		DueDate:          &due,
	})
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.Get(ctx, models.KindDebt, "debt1")
	require.NoError(t, err)

	var debt models.Debt
	require.NoError(t, json.Unmarshal(got.Payload, &debt))
	require.Equal(t, "Ivan", debt.CounterpartyName)
	require.NotNil(t, debt.Notes)
	require.Equal(t, notes, *debt.Notes)
}
