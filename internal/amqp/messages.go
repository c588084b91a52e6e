package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"dtmoney/internal/core"
)

// EventType names what happened to a transaction
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
)

// TransactionEvent is published after a successful repository write.
// Transaction is set for created events only.
type TransactionEvent struct {
	Type        EventType         `json:"type"`
	ID          int64             `json:"id"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewCreatedEvent builds the event for a freshly stored transaction
func NewCreatedEvent(tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Type:        EventTransactionCreated,
		ID:          tx.ID,
		Transaction: &tx,
		Timestamp:   time.Now().UTC(),
	}
}

// NewDeletedEvent builds the event for a removed transaction
func NewDeletedEvent(id int64) *TransactionEvent {
	return &TransactionEvent{
		Type:      EventTransactionDeleted,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// Validate rejects events the worker cannot act on
func (e *TransactionEvent) Validate() error {
	switch e.Type {
	case EventTransactionCreated:
		if e.Transaction == nil {
			return fmt.Errorf("%s event %d has no transaction", e.Type, e.ID)
		}
	case EventTransactionDeleted:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.ID <= 0 {
		return fmt.Errorf("%s event has invalid id %d", e.Type, e.ID)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
