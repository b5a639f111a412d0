package amqp

import (
	"encoding/json"
	"time"

	"expensetracker/internal/core"
)

// LedgerEventMessage is the wire form of a ledger mutation. Version lets
// consumers reject payloads they do not understand.
type LedgerEventMessage struct {
	Version   int           `json:"version"`
	Action    string        `json:"action"`
	Expense   *core.Expense `json:"expense,omitempty"`
	Balance   float64       `json:"balance"`
	Records   int           `json:"records"`
	Timestamp time.Time     `json:"timestamp"`
}

const messageVersion = 1

// NewLedgerEventMessage wraps a ledger event for publishing.
func NewLedgerEventMessage(evt core.LedgerEvent) *LedgerEventMessage {
	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerEventMessage{
		Version:   messageVersion,
		Action:    evt.Action,
		Expense:   evt.Expense,
		Balance:   evt.Balance,
		Records:   evt.Records,
		Timestamp: ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes a message published by this package.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
