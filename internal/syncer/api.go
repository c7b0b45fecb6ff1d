package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ezcar24/dealersync/internal/identity"
	"github.com/ezcar24/dealersync/internal/models"
)

// Upsert writes the entity locally and records the mutation for sync.
// For signed-in dealers it also attempts one immediate send so a healthy
// connection never waits for the next pass; on failure the entry simply
// stays queued. Guests write locally and nothing else.
func (c *Coordinator) Upsert(ctx context.Context, id identity.Identity, kind models.EntityKind, entity any) error {
	rec, err := models.NewRecord(kind, entity)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	if rec.ID == "" {
		return fmt.Errorf("upsert %s: missing id", kind)
	}

	if err := c.local.Upsert(ctx, rec); err != nil {
		return err
	}

	if id.Guest {
		return nil
	}

	now := c.now()
	seq, err := c.queue.Enqueue(ctx, id.DealerID, kind, rec.ID, models.OpUpsert, rec.Payload, now)
	if err != nil {
		return err
	}

	c.sendNow(ctx, id.DealerID, seq, now, rec)
	return nil
}

// Delete removes the entity. Signed-in dealers get the tombstone path:
// the local row is marked deleted, the tombstone is queued and sent so
// other devices learn of the deletion. Guests have no remote state, so
// the local row is removed outright.
func (c *Coordinator) Delete(ctx context.Context, id identity.Identity, kind models.EntityKind, entityID string) error {
	if id.Guest {
		return c.local.Delete(ctx, kind, entityID)
	}

	local, err := c.local.Get(ctx, kind, entityID)
	if err != nil {
		return err
	}

	now := c.now()
	rec, err := tombstone(local, now)
	if err != nil {
		return fmt.Errorf("tombstone %s/%s: %w", kind, entityID, err)
	}

	if err := c.local.Upsert(ctx, rec); err != nil {
		return err
	}

	seq, err := c.queue.Enqueue(ctx, id.DealerID, kind, entityID, models.OpDelete, rec.Payload, now)
	if err != nil {
		return err
	}

	if kind == models.KindVehicle && c.media != nil {
		// Best effort: an orphaned photo is cheaper than a failed delete.
		if err := c.media.DeleteVehicleImage(ctx, id.DealerID, entityID); err != nil {
			c.log.Warn(ctx, "vehicle photo cleanup failed",
				"vehicle_id", entityID, "error", err)
		}
	}

	c.sendNow(ctx, id.DealerID, seq, now, rec)
	return nil
}

// PurgeLocal discards every trace of the dealer on this device: local
// rows, pending mutations and the checkpoint. Used when a guest profile
// is thrown away or a signed-out account chooses not to keep data.
func (c *Coordinator) PurgeLocal(ctx context.Context, dealerID string) error {
	if err := c.queue.PurgeDealer(ctx, dealerID); err != nil {
		return err
	}
	if err := c.local.PurgeDealer(ctx, dealerID); err != nil {
		return err
	}
	return c.checkpoints.Clear(ctx, dealerID)
}

// sendNow attempts one immediate transmission of a just-enqueued record.
// Best effort: a failure leaves the entry queued for the next pass. The
// ack is conditional on the enqueue time so a payload superseded during
// the send stays queued.
func (c *Coordinator) sendNow(ctx context.Context, dealerID string, seq int64, enqueuedAt time.Time, rec models.Record) {
	if err := c.remote.Upsert(ctx, dealerID, rec); err != nil {
		c.log.Debug(ctx, "immediate send failed, left queued",
			"kind", rec.Kind, "entity_id", rec.ID, "error", err)
		return
	}
	if err := c.queue.Ack(ctx, seq, enqueuedAt); err != nil {
		c.log.Error(ctx, "ack after immediate send failed", "seq", seq, "error", err)
	}
}

// tombstone returns a copy of the record with deleted_at and updated_at
// set, both in the envelope and inside the payload document.
func tombstone(rec models.Record, now time.Time) (models.Record, error) {
	var doc map[string]any
	if err := json.Unmarshal(rec.Payload, &doc); err != nil {
		return models.Record{}, err
	}

	stamp := now.UTC().Format(time.RFC3339Nano)
	doc["deleted_at"] = stamp
	doc["updated_at"] = stamp

	payload, err := json.Marshal(doc)
	if err != nil {
		return models.Record{}, err
	}

	return models.RecordFromPayload(rec.Kind, payload)
}

// Typed entry points for the application layer.

func (c *Coordinator) UpsertVehicle(ctx context.Context, id identity.Identity, v models.Vehicle) error {
	return c.Upsert(ctx, id, models.KindVehicle, v)
}

func (c *Coordinator) UpsertExpense(ctx context.Context, id identity.Identity, e models.Expense) error {
	return c.Upsert(ctx, id, models.KindExpense, e)
}

func (c *Coordinator) UpsertSale(ctx context.Context, id identity.Identity, s models.Sale) error {
	return c.Upsert(ctx, id, models.KindSale, s)
}

func (c *Coordinator) UpsertClient(ctx context.Context, id identity.Identity, cl models.Client) error {
	return c.Upsert(ctx, id, models.KindClient, cl)
}

func (c *Coordinator) UpsertClientInteraction(ctx context.Context, id identity.Identity, ci models.ClientInteraction) error {
	return c.Upsert(ctx, id, models.KindClientInteraction, ci)
}

func (c *Coordinator) UpsertClientReminder(ctx context.Context, id identity.Identity, cr models.ClientReminder) error {
	return c.Upsert(ctx, id, models.KindClientReminder, cr)
}

func (c *Coordinator) UpsertDebt(ctx context.Context, id identity.Identity, d models.Debt) error {
	return c.Upsert(ctx, id, models.KindDebt, d)
}

func (c *Coordinator) UpsertDebtPayment(ctx context.Context, id identity.Identity, p models.DebtPayment) error {
	return c.Upsert(ctx, id, models.KindDebtPayment, p)
}

func (c *Coordinator) UpsertDealerUser(ctx context.Context, id identity.Identity, u models.DealerUser) error {
	return c.Upsert(ctx, id, models.KindDealerUser, u)
}

func (c *Coordinator) UpsertAccount(ctx context.Context, id identity.Identity, a models.FinancialAccount) error {
	return c.Upsert(ctx, id, models.KindAccount, a)
}

func (c *Coordinator) UpsertAccountTransaction(ctx context.Context, id identity.Identity, t models.AccountTransaction) error {
	return c.Upsert(ctx, id, models.KindAccountTransaction, t)
}

func (c *Coordinator) UpsertExpenseTemplate(ctx context.Context, id identity.Identity, t models.ExpenseTemplate) error {
	return c.Upsert(ctx, id, models.KindExpenseTemplate, t)
}

func (c *Coordinator) DeleteVehicle(ctx context.Context, id identity.Identity, vehicleID string) error {
	return c.Delete(ctx, id, models.KindVehicle, vehicleID)
}

func (c *Coordinator) DeleteExpense(ctx context.Context, id identity.Identity, expenseID string) error {
	return c.Delete(ctx, id, models.KindExpense, expenseID)
}

func (c *Coordinator) DeleteClient(ctx context.Context, id identity.Identity, clientID string) error {
	return c.Delete(ctx, id, models.KindClient, clientID)
}

func (c *Coordinator) DeleteDealerUser(ctx context.Context, id identity.Identity, userID string) error {
	return c.Delete(ctx, id, models.KindDealerUser, userID)
}
