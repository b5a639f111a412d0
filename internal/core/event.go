package core

import "time"

// Ledger actions reported to change listeners.
const (
	ActionAppend = "append"
	ActionClear  = "clear"
)

// LedgerEvent describes one completed ledger mutation.
type LedgerEvent struct {
	Action    string    `json:"action"`
	Expense   *Expense  `json:"expense,omitempty"`
	Balance   float64   `json:"balance"`
	Records   int       `json:"records"`
	Timestamp time.Time `json:"timestamp"`
}
