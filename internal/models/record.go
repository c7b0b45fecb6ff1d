package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is the kind-agnostic envelope the queue, the merge logic and the
// remote client operate on. Payload holds the full wire document for the
// entity, including the metadata fields duplicated here for indexing.
type Record struct {
	Kind      EntityKind
	ID        string
	DealerID  string
	UpdatedAt time.Time
	DeletedAt *time.Time
	Payload   json.RawMessage
}

// Deleted reports whether the record carries a tombstone.
func (r Record) Deleted() bool { return r.DeletedAt != nil }

// Meta is embedded in every synchronized entity and carries the fields
// the merge logic reads: identity, ownership and the LWW clock.
type Meta struct {
	ID        string     `json:"id"`
	DealerID  string     `json:"dealer_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// NewMeta stamps a fresh entity: client-generated id plus creation and
// mutation timestamps. Ids are minted on the device so records can be
// created offline without a server round trip.
func NewMeta(dealerID string, now time.Time) Meta {
	return Meta{
		ID:        uuid.NewString(),
		DealerID:  dealerID,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// Touch bumps the mutation clock before an edit is saved.
func (m *Meta) Touch(now time.Time) {
	m.UpdatedAt = now.UTC()
}

// envelope extracts Meta from a raw wire document.
type envelope struct {
	Meta
}

// RecordFromPayload builds a Record for the given kind by reading the
// metadata fields out of the wire document.
func RecordFromPayload(kind EntityKind, payload json.RawMessage) (Record, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Record{}, err
	}
	return Record{
		Kind:      kind,
		ID:        env.ID,
		DealerID:  env.DealerID,
		UpdatedAt: env.UpdatedAt,
		DeletedAt: env.DeletedAt,
		Payload:   payload,
	}, nil
}

// NewRecord marshals a typed entity (Vehicle, Expense, ...) into a Record.
func NewRecord(kind EntityKind, entity any) (Record, error) {
	payload, err := json.Marshal(entity)
	if err != nil {
		return Record{}, err
	}
	return RecordFromPayload(kind, payload)
}
