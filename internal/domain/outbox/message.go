// Package outbox implements the transactional outbox for
// reconciliation events: confirmations and undos are recorded next to
// the match data and published to Kafka by a poller, so downstream
// bookkeeping never misses an event.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/contaflow-reconciliation/internal/domain/match"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// EventType distinguishes the reconciliation events published downstream
type EventType string

const (
	EventMatchConfirmed EventType = "MATCH_CONFIRMED"
	EventMatchVoided    EventType = "MATCH_VOIDED"
)

// ReconciliationEvent is the payload published for each resolved match
type ReconciliationEvent struct {
	Type              EventType   `json:"type"`
	MatchID           uuid.UUID   `json:"match_id"`
	BankTransactionID uuid.UUID   `json:"bank_transaction_id"`
	EntryIDs          []uuid.UUID `json:"entry_ids"`
	Note              string      `json:"note,omitempty"`
	AutoConfirmed     bool        `json:"auto_confirmed"`
	OccurredAt        time.Time   `json:"occurred_at"`
}

// Message stores a reconciliation event for reliable publishing
type Message struct {
	ID            int64           `json:"id"`
	MatchID       uuid.UUID       `json:"match_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage builds a pending outbox message for a match event
func NewMessage(eventType EventType, m *match.Match) (*Message, error) {
	event := ReconciliationEvent{
		Type:              eventType,
		MatchID:           m.ID,
		BankTransactionID: m.BankTransactionID,
		EntryIDs:          m.EntryIDs,
		Note:              m.Note,
		AutoConfirmed:     m.AutoConfirmed,
		OccurredAt:        time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		MatchID:   m.ID,
		Payload:   payload,
		Status:    StatusPending,
		Attempts:  0,
		CreatedAt: time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = StatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = StatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetEvent extracts the reconciliation event from the payload
func (m *Message) GetEvent() (*ReconciliationEvent, error) {
	var event ReconciliationEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
