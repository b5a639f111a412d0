// Package storage persists ledger records and the category summary.
//
// Every store overwrites its whole content on Save; there is no incremental
// update. A store that has never been written reports an error matching
// fs.ErrNotExist from Load, which callers treat as an empty ledger.
package storage

import (
	"context"
	"errors"

	"expensetracker/internal/core"
)

// RecordStore loads and replaces the full ordered set of ledger records.
type RecordStore interface {
	Load(ctx context.Context) ([]core.Expense, error)
	Save(ctx context.Context, records []core.Expense) error
}

var (
	ErrUnsupportedVersion = errors.New("unsupported ledger schema version")
	ErrCorrupt            = errors.New("corrupt ledger file")
)
