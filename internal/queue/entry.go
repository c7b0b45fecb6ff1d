// Package queue implements the durable mutation outbox. Every local write
// that could not reach the remote store immediately is captured here and
// drained by the sync coordinator when connectivity returns.
package queue

import (
	"encoding/json"
	"time"

	"github.com/ezcar24/dealersync/internal/models"
)

const (
	// backoffBase is the delay after the first failed attempt; it doubles
	// with every retry up to backoffMax.
	backoffBase = 30 * time.Second
	backoffMax  = time.Hour

	// StuckAttempts is the attempt count at which an entry is considered
	// stuck. Stuck entries stay in the queue and are surfaced through
	// diagnostics rather than dropped.
	StuckAttempts = 8
)

// Entry is one pending mutation. At most one entry exists per
// (dealer, kind, entity id); a newer mutation supersedes the older one.
type Entry struct {
	Seq           int64
	DealerID      string
	Kind          models.EntityKind
	EntityID      string
	Operation     models.Operation
	Payload       json.RawMessage
	EnqueuedAt    time.Time
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
}

// Stuck reports whether the entry has exhausted its retry budget.
func (e Entry) Stuck() bool { return e.Attempts >= StuckAttempts }

// Backoff returns the delay before the next attempt given how many
// attempts have already failed.
func Backoff(attempts int) time.Duration {
	d := backoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= backoffMax {
			return backoffMax
		}
	}
	if d > backoffMax {
		return backoffMax
	}
	return d
}

// Summary is an aggregate row for diagnostics: how many entries are
// pending per (kind, operation).
type Summary struct {
	Kind      models.EntityKind
	Operation models.Operation
	Count     int64
}
