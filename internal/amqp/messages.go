package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType names a ledger change.
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
)

// ErrMalformedEvent is returned for payloads that can never be processed.
var ErrMalformedEvent = errors.New("malformed ledger event")

// LedgerEvent is published after every ledger mutation. It only carries
// identifiers; consumers load the current state from the store.
type LedgerEvent struct {
	Type          EventType `json:"type"`
	WorkspaceID   string    `json:"workspace_id"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(t EventType, workspaceID, transactionID string) *LedgerEvent {
	return &LedgerEvent{
		Type:          t,
		WorkspaceID:   workspaceID,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

func (e *LedgerEvent) Validate() error {
	switch e.Type {
	case EventTransactionCreated, EventTransactionDeleted:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, e.Type)
	}
	if e.WorkspaceID == "" || e.TransactionID == "" {
		return fmt.Errorf("%w: missing workspace or transaction id", ErrMalformedEvent)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
