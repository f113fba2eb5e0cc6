package amqp

import (
	"encoding/json"
	"time"
)

// Event actions carried on the ledger stream.
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// LedgerEvent announces a ledger write so downstream consumers (the
// overspend watcher) can recompute without polling. It carries identifiers
// only; consumers read the full entry from the store.
type LedgerEvent struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"userId"`
	Kind        string    `json:"kind"`
	Action      string    `json:"action"`
	AmountCents int64     `json:"amountCents"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// NewLedgerEvent creates an event stamped with the current time
func NewLedgerEvent(id int64, userID, kind, action string, amountCents int64) *LedgerEvent {
	return &LedgerEvent{
		ID:          id,
		UserID:      userID,
		Kind:        kind,
		Action:      action,
		AmountCents: amountCents,
		OccurredAt:  time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON creates an event from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
