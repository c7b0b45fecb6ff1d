// Package syncer is the sync coordinator: it drains the mutation queue,
// pulls remote changes since the last checkpoint, merges them into the
// local store under last-write-wins rules and advances the checkpoint.
// At most one pass runs per dealer at a time.
package syncer

import (
	"time"

	"github.com/ezcar24/dealersync/internal/models"
)

// EntryError records one queue entry that could not be transmitted during
// a pass. The entry stays queued; the error is informational.
type EntryError struct {
	Kind      models.EntityKind
	EntityID  string
	Operation models.Operation
	Err       error
}

// Result summarizes one sync pass. Per-entry failures do not fail the
// pass; the caller inspects EntryErrors to tell "some items failed" from
// "sync did not run".
type Result struct {
	// Skipped is true when another pass was already in flight for the
	// dealer and this call returned without doing work.
	Skipped bool

	// Pushed counts queue entries accepted by the remote store.
	Pushed int

	// Merged counts pulled records applied to the local store.
	Merged int

	// Removed counts local rows dropped during a full resync because the
	// remote store no longer had them.
	Removed int

	// EntryErrors lists queue entries that failed to transmit and remain
	// queued for retry.
	EntryErrors []EntryError

	// ServerTime is the remote clock reported by the pull, which the
	// checkpoint was advanced to. Zero when the pull did not complete.
	ServerTime time.Time
}
