// Package diagnostics produces a point-in-time consistency snapshot of
// the local store, the remote store and the mutation queue. Reports are
// purely observational: nothing here writes, so running a report during
// a sync pass is always safe.
package diagnostics

import (
	"context"
	"time"

	"github.com/ezcar24/dealersync/internal/logging"
	"github.com/ezcar24/dealersync/internal/models"
	"github.com/ezcar24/dealersync/internal/queue"
)

// EntityCount compares local and remote row counts for one kind. Remote
// and Delta are nil when the remote count could not be fetched.
type EntityCount struct {
	Kind   models.EntityKind
	Local  int64
	Remote *int64
	Delta  *int64
}

// StuckEntry describes a queue entry that has exhausted its retry budget
// and needs operator attention.
type StuckEntry struct {
	Kind      models.EntityKind
	EntityID  string
	Operation models.Operation
	Attempts  int
	LastError string
}

// Report is the snapshot returned to the caller. It is never persisted.
type Report struct {
	GeneratedAt         time.Time
	LastSyncAt          time.Time
	IsSyncing           bool
	OfflineQueueCount   int64
	OfflineQueueSummary []queue.Summary
	StuckEntries        []StuckEntry
	EntityCounts        []EntityCount
	RemoteFetchError    string
}

// LocalCounter counts live local rows per kind.
type LocalCounter interface {
	Count(ctx context.Context, dealerID string, kind models.EntityKind) (int64, error)
}

// RemoteCounter counts remote rows per kind. Best effort; failures
// degrade the report instead of failing it.
type RemoteCounter interface {
	Count(ctx context.Context, dealerID string, kind models.EntityKind) (int64, error)
}

// QueueReader is the read-only slice of the mutation queue used here.
type QueueReader interface {
	Count(ctx context.Context, dealerID string) (int64, error)
	Summarize(ctx context.Context, dealerID string) ([]queue.Summary, error)
	All(ctx context.Context, dealerID string) ([]queue.Entry, error)
}

// CheckpointReader reads the per-dealer last-sync time.
type CheckpointReader interface {
	Get(ctx context.Context, dealerID string) (time.Time, error)
}

type Reporter struct {
	local       LocalCounter
	remote      RemoteCounter
	queue       QueueReader
	checkpoints CheckpointReader
	syncing     func(dealerID string) bool
	log         logging.Logger
	now         func() time.Time
}

func NewReporter(local LocalCounter, remote RemoteCounter, q QueueReader, checkpoints CheckpointReader, syncing func(string) bool, log logging.Logger) *Reporter {
	return &Reporter{
		local:       local,
		remote:      remote,
		queue:       q,
		checkpoints: checkpoints,
		syncing:     syncing,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run builds a report for the dealer. Local failures abort the report;
// remote count failures set RemoteFetchError and leave the affected
// remote counts nil.
func (r *Reporter) Run(ctx context.Context, dealerID string) (Report, error) {
	rep := Report{
		GeneratedAt: r.now(),
		IsSyncing:   r.syncing(dealerID),
	}

	lastSync, err := r.checkpoints.Get(ctx, dealerID)
	if err != nil {
		return Report{}, err
	}
	rep.LastSyncAt = lastSync

	if rep.OfflineQueueCount, err = r.queue.Count(ctx, dealerID); err != nil {
		return Report{}, err
	}
	if rep.OfflineQueueSummary, err = r.queue.Summarize(ctx, dealerID); err != nil {
		return Report{}, err
	}

	entries, err := r.queue.All(ctx, dealerID)
	if err != nil {
		return Report{}, err
	}
	for _, e := range entries {
		if !e.Stuck() {
			continue
		}
		rep.StuckEntries = append(rep.StuckEntries, StuckEntry{
			Kind:      e.Kind,
			EntityID:  e.EntityID,
			Operation: e.Operation,
			Attempts:  e.Attempts,
			LastError: e.LastError,
		})
	}

	for _, kind := range models.AllKinds {
		ec := EntityCount{Kind: kind}

		if ec.Local, err = r.local.Count(ctx, dealerID, kind); err != nil {
			return Report{}, err
		}

		remote, err := r.remote.Count(ctx, dealerID, kind)
		if err != nil {
			if rep.RemoteFetchError == "" {
				rep.RemoteFetchError = err.Error()
			}
			r.log.Warn(ctx, "remote count failed", "kind", kind, "error", err)
		} else {
			delta := ec.Local - remote
			ec.Remote = &remote
			ec.Delta = &delta
		}

		rep.EntityCounts = append(rep.EntityCounts, ec)
	}

	return rep, nil
}
