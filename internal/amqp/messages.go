package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published on ledger changes.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
	EventUserDeleted        = "user.deleted"
	EventStatementGenerated = "statement.generated"
)

// LedgerEvent is a lightweight notification; consumers fetch details from the ledger.
type LedgerEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	UserID        int64     `json:"user_id"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	AmountCents   int64     `json:"amount_cents,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	PeriodStart   string    `json:"period_start,omitempty"`
	DueDate       string    `json:"due_date,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event with a fresh id and the current time.
func NewLedgerEvent(eventType string, userID int64) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
