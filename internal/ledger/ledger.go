// Package ledger holds the expense records and running balance, and keeps
// the category totals and both persisted files in step with every change.
package ledger

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/storage"
	"expensetracker/internal/summary"
)

// Notifier receives an event after each mutation has been persisted.
type Notifier interface {
	Notify(ctx context.Context, evt core.LedgerEvent) error
}

// SortKey selects the column used by Sorted.
type SortKey string

const (
	SortNone     SortKey = ""
	SortDate     SortKey = "date"
	SortCategory SortKey = "category"
	SortAmount   SortKey = "amount"
)

// ParseSortKey accepts "", "date", "category" or "amount".
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(s); k {
	case SortNone, SortDate, SortCategory, SortAmount:
		return k, true
	}
	return SortNone, false
}

type Options struct {
	Store    storage.RecordStore
	Summary  summary.Writer
	Notifier Notifier
	Logger   *log.Logger
}

// Ledger is safe for concurrent use; every operation runs to completion,
// including persistence, while holding the ledger lock.
type Ledger struct {
	mu       sync.Mutex
	records  []core.Expense
	balance  float64
	history  []float64
	agg      *summary.Aggregator
	store    storage.RecordStore
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

// Open creates a ledger and loads any previously saved records. Load
// failures never surface here; the ledger starts empty instead.
func Open(ctx context.Context, opts Options) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	store := opts.Store
	if store == nil {
		store = storage.NewMemoryStore()
	}
	l := &Ledger{
		balance:  core.InitialBalance,
		agg:      summary.NewAggregator(opts.Summary),
		store:    store,
		notifier: opts.Notifier,
		logger:   logger.WithComponent(log.ComponentLedger),
		now:      time.Now,
	}
	l.Load(ctx)
	return l
}

// Load replaces the in-memory state with the stored records and returns
// them. A missing store is an empty ledger; any other read fault is logged
// and also treated as an empty ledger.
func (l *Ledger) Load(ctx context.Context) []core.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.store.Load(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.logger.DebugContext(ctx, "No saved ledger, starting empty", log.FieldOperation, log.OpLoad)
		records = nil
	case err != nil:
		l.logger.ErrorContext(ctx, "Failed to load ledger, starting empty",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err)
		records = nil
	}

	l.records = append([]core.Expense{}, records...)
	l.balance = core.InitialBalance - core.Sum(l.records)
	l.history = nil
	l.agg.Refresh(l.records)

	l.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldRecords, len(l.records),
		log.FieldBalance, l.balance)
	return l.snapshot()
}

// Append records an expense and persists the ledger and category summary.
// Amounts are taken as-is: negative, zero and empty text fields are valid.
func (l *Ledger) Append(ctx context.Context, date, category string, amount float64) core.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := core.NewExpense(date, category, amount)
	l.records = append(l.records, e)
	l.balance -= amount
	l.history = append(l.history, amount)
	l.agg.Refresh(l.records)

	l.logger.InfoContext(ctx, "Expense appended",
		log.NewFields().
			WithOperation(log.OpAppend).
			WithExpense(date, category, amount).
			ToSlice()...)

	l.persistLocked(ctx)
	l.notifyLocked(ctx, core.ActionAppend, &e)
	return e
}

// AppendText parses the amount text before appending. A parse failure
// returns an error wrapping core.ErrInvalidAmount and leaves the ledger
// untouched.
func (l *Ledger) AppendText(ctx context.Context, date, category, amountText string) (core.Expense, error) {
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		return core.Expense{}, err
	}
	return l.Append(ctx, date, category, amount), nil
}

// Clear removes every record, resets the balance and persists the emptied
// ledger and summary.
func (l *Ledger) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = []core.Expense{}
	l.balance = core.InitialBalance
	l.history = nil
	l.agg.Reset()

	l.logger.InfoContext(ctx, "Ledger cleared", log.FieldOperation, log.OpClear)

	l.persistLocked(ctx)
	l.notifyLocked(ctx, core.ActionClear, nil)
}

// Save sorts the records by date text and overwrites the record store.
// The in-memory order follows the sort.
func (l *Ledger) Save(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveLocked(ctx)
}

func (l *Ledger) saveLocked(ctx context.Context) error {
	core.SortByDate(l.records)
	return l.store.Save(ctx, l.snapshot())
}

// persistLocked writes both stores. Failures are logged and the in-memory
// state is kept as is.
func (l *Ledger) persistLocked(ctx context.Context) {
	if err := l.saveLocked(ctx); err != nil {
		l.logger.ErrorContext(ctx, "Failed to save ledger",
			log.FieldOperation, log.OpSave,
			log.FieldRecords, len(l.records),
			log.FieldError, err)
	}
	if err := l.agg.Persist(ctx); err != nil {
		l.logger.ErrorContext(ctx, "Failed to save category summary",
			log.FieldOperation, log.OpSummary,
			log.FieldError, err)
	}
}

func (l *Ledger) notifyLocked(ctx context.Context, action string, e *core.Expense) {
	if l.notifier == nil {
		return
	}
	evt := core.LedgerEvent{
		Action:    action,
		Expense:   e,
		Balance:   l.balance,
		Records:   len(l.records),
		Timestamp: l.now(),
	}
	if err := l.notifier.Notify(ctx, evt); err != nil {
		l.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, log.OpNotify,
			log.FieldError, err)
	}
}

func (l *Ledger) snapshot() []core.Expense {
	return append([]core.Expense{}, l.records...)
}

// Records returns a copy of the records in ledger order.
func (l *Ledger) Records() []core.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Sorted returns a copy of the records ordered by key without changing the
// ledger itself.
func (l *Ledger) Sorted(key SortKey) []core.Expense {
	records := l.Records()
	switch key {
	case SortDate:
		core.SortByDate(records)
	case SortCategory:
		core.SortByCategory(records)
	case SortAmount:
		core.SortByAmount(records)
	}
	return records
}

// Balance returns InitialBalance minus the sum of all current amounts.
func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// History returns the amounts appended since the ledger was opened or last
// cleared, oldest first.
func (l *Ledger) History() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]float64(nil), l.history...)
}

// Totals returns the per-category totals.
func (l *Ledger) Totals() summary.Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.agg.Totals()
}

// Summary renders the per-category totals as persisted in the summary file.
func (l *Ledger) Summary() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.agg.Summary()
}
