package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

// Message stores an activity event written in the same transaction as the
// ledger mutation it describes.
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	AccountID     uuid.UUID           `json:"account_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps event as a PENDING message. The event is stored as JSON
// so the poller can rebuild it without knowing the mutation that caused it.
func NewMessage(event *activity.Event) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal activity event: %w", err)
	}

	return &Message{
		EventID:   event.EventID,
		AccountID: event.AccountID,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		CreatedAt: event.CreatedAt,
	}, nil
}

// RecordAttempt counts a failed publish made at at.
func (m *Message) RecordAttempt(at time.Time) {
	m.Attempts++
	m.LastAttemptAt = &at
}

// SetStatus moves the message to status; at becomes the last attempt time.
func (m *Message) SetStatus(status shared.OutboxStatus, at time.Time) {
	m.Status = status
	m.LastAttemptAt = &at
}

// Event decodes the activity event from the payload
func (m *Message) Event() (*activity.Event, error) {
	var event activity.Event
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
