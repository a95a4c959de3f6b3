package amqp

import (
	"encoding/json"
	"time"
)

// PaymentSyncMessage is a lightweight message for exporting a payment to the
// ledger spreadsheet. It carries only the ID; the worker fetches the full
// payment from the database.
type PaymentSyncMessage struct {
	ID        int64     `json:"id"`
	Attempt   int64     `json:"attempt"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPaymentSyncMessage creates a new sync message for a payment
func NewPaymentSyncMessage(id, attempt int64) *PaymentSyncMessage {
	return &PaymentSyncMessage{
		ID:        id,
		Attempt:   attempt,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PaymentSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PaymentSyncMessageFromJSON creates a message from JSON bytes
func PaymentSyncMessageFromJSON(data []byte) (*PaymentSyncMessage, error) {
	var msg PaymentSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReminderMessage asks the notification side to chase an overdue member.
// DaysSincePayment is nil when the member has never paid.
type ReminderMessage struct {
	MemberID         int64     `json:"member_id"`
	MemberNumber     string    `json:"member_number"`
	FullName         string    `json:"full_name"`
	BalanceCents     int64     `json:"balance_cents"`
	DaysSincePayment *int      `json:"days_since_payment,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReminderMessageFromJSON creates a message from JSON bytes
func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
