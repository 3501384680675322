package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"society/internal/core"
)

const (
	EntityPayment = "payment"
	EntityExpense = "expense"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// LedgerEventMessage announces a change to a payment or expense. It carries
// only the record id and the report month it affects; consumers reload
// whatever they need from the ledger.
type LedgerEventMessage struct {
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates a message for a change affecting period p.
func NewLedgerEventMessage(entity, action string, id int64, p core.Period) *LedgerEventMessage {
	return &LedgerEventMessage{
		Entity:    entity,
		Action:    action,
		ID:        id,
		Year:      p.Year,
		Month:     p.Month,
		Timestamp: time.Now(),
	}
}

// Period is the report month the change affects.
func (m *LedgerEventMessage) Period() core.Period {
	return core.Period{Year: m.Year, Month: m.Month}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and validates a message.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Entity {
	case EntityPayment, EntityExpense:
	default:
		return nil, fmt.Errorf("unknown entity %q", msg.Entity)
	}
	if err := msg.Period().Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
