package ledger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/storage"
)

type failingStore struct {
	loadErr error
	saveErr error
	saves   int
}

func (s *failingStore) Load(context.Context) ([]core.Expense, error) { return nil, s.loadErr }
func (s *failingStore) Save(context.Context, []core.Expense) error {
	s.saves++
	return s.saveErr
}

type recordingNotifier struct {
	events []core.LedgerEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, evt core.LedgerEvent) error {
	n.events = append(n.events, evt)
	return n.err
}

func bufferLogger(buf *bytes.Buffer) *log.Logger {
	return log.New(log.Config{Component: log.ComponentApp, Handler: slog.NewTextHandler(buf, nil)})
}

func openFiles(t *testing.T, dir string) (*Ledger, *storage.FileStore, *storage.SummaryFile) {
	t.Helper()
	store := storage.NewFileStore(filepath.Join(dir, "expenses.json"))
	sum := storage.NewSummaryFile(filepath.Join(dir, "category_total.txt"))
	return Open(context.Background(), Options{Store: store, Summary: sum}), store, sum
}

func TestBalanceTracksAppends(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, Options{})
	require.Equal(t, core.InitialBalance, l.Balance())

	amounts := []float64{12.5, 7.5, 0, -50, 1000.25, 3}
	var sum float64
	for i, a := range amounts {
		l.Append(ctx, "2024-01-0"+string(rune('1'+i)), "Misc", a)
		sum += a
		assert.InDelta(t, core.InitialBalance-sum, l.Balance(), 1e-9)
	}
	assert.Equal(t, amounts, l.History())
}

func TestFoodScenario(t *testing.T) {
	ctx := context.Background()
	l, _, sum := openFiles(t, t.TempDir())

	l.Append(ctx, "2024-01-01", "Food", 12.50)
	l.Append(ctx, "2024-01-02", "Food", 7.50)

	assert.Equal(t, map[string]float64{"Food": 20.00}, l.Totals().Map())
	assert.Equal(t, 4980.00, l.Balance())
	assert.Equal(t, "Food: $20.00\n", l.Summary())

	text, err := sum.ReadText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Food: $20.00\n", text)
}

func TestSaveOrderIsLexicographic(t *testing.T) {
	ctx := context.Background()
	l, store, _ := openFiles(t, t.TempDir())

	l.Append(ctx, "2024-2-1", "Food", 1)
	l.Append(ctx, "2024-10-1", "Food", 2)

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "2024-10-1", saved[0].Date)
	assert.Equal(t, "2024-2-1", saved[1].Date)
	assert.Equal(t, saved, l.Records())
}

func TestRoundTripThroughReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l, _, _ := openFiles(t, dir)

	l.Append(ctx, "2024-03-01", "Rent", 900)
	l.Append(ctx, "2024-01-15", "Food", 0.1+0.2)
	l.Append(ctx, "", "", -50)
	want := l.Records()

	reopened, _, _ := openFiles(t, dir)
	assert.Equal(t, want, reopened.Records())
	assert.Equal(t, []string{"", "2024-01-15", "2024-03-01"},
		[]string{want[0].Date, want[1].Date, want[2].Date})
	assert.Equal(t, l.Totals(), reopened.Totals())
	assert.InDelta(t, core.InitialBalance-900-(0.1+0.2)+50, reopened.Balance(), 1e-9)
	assert.Empty(t, reopened.History())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l, store, sum := openFiles(t, dir)

	l.Append(ctx, "2024-01-01", "Food", 12.5)
	l.Append(ctx, "2024-01-02", "Rent", 900)
	l.Clear(ctx)

	assert.Equal(t, core.InitialBalance, l.Balance())
	assert.Empty(t, l.Records())
	assert.Empty(t, l.Totals())
	assert.Empty(t, l.History())
	assert.Equal(t, "", l.Summary())

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved)

	info, err := os.Stat(sum.Path())
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	l.Append(ctx, "2024-01-03", "Food", 1)
	assert.Equal(t, core.InitialBalance-1, l.Balance())
}

func TestMissingStoreStartsEmpty(t *testing.T) {
	var buf bytes.Buffer
	l := Open(context.Background(), Options{
		Store:  storage.NewFileStore(filepath.Join(t.TempDir(), "absent.json")),
		Logger: bufferLogger(&buf),
	})
	assert.Empty(t, l.Records())
	assert.Equal(t, core.InitialBalance, l.Balance())
	assert.NotContains(t, buf.String(), "level=ERROR")
}

func TestCorruptStoreIsLoggedAndEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expenses.json")
	require.NoError(t, os.WriteFile(path, []byte("not a ledger"), 0o644))

	var buf bytes.Buffer
	l := Open(context.Background(), Options{Store: storage.NewFileStore(path), Logger: bufferLogger(&buf)})

	assert.Empty(t, l.Records())
	assert.Equal(t, core.InitialBalance, l.Balance())
	assert.Contains(t, buf.String(), "Failed to load ledger")
}

func TestNegativeAmountIsAccepted(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, Options{})
	l.Append(ctx, "2024-01-01", "Food", 100)
	l.Append(ctx, "2024-01-02", "Food", -50)

	assert.Equal(t, core.InitialBalance-50, l.Balance())
	food, ok := l.Totals().Get("Food")
	require.True(t, ok)
	assert.Equal(t, 50.0, food)
}

func TestAppendTextRejectsBadAmount(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	l := Open(ctx, Options{Store: store})

	_, err := l.AppendText(ctx, "2024-01-01", "Food", "twelve")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Empty(t, l.Records())
	assert.Equal(t, core.InitialBalance, l.Balance())
	assert.Zero(t, store.Saves())

	e, err := l.AppendText(ctx, "2024-01-01", "Food", " 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, core.NewExpense("2024-01-01", "Food", 12.5), e)
}

func TestWriteFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{loadErr: os.ErrNotExist, saveErr: errors.New("read-only filesystem")}
	var buf bytes.Buffer
	l := Open(ctx, Options{Store: store, Logger: bufferLogger(&buf)})

	l.Append(ctx, "2024-01-01", "Food", 10)
	l.Append(ctx, "2024-01-02", "Food", 5)

	assert.Len(t, l.Records(), 2)
	assert.Equal(t, core.InitialBalance-15, l.Balance())
	assert.Equal(t, 2, store.saves)
	assert.Contains(t, buf.String(), "Failed to save ledger")
	assert.Error(t, l.Save(ctx))
}

func TestAppendOrderDoesNotChangeTotals(t *testing.T) {
	ctx := context.Background()
	tuples := []core.Expense{
		core.NewExpense("2024-01-01", "Food", 12.5),
		core.NewExpense("2024-01-02", "Rent", 900),
		core.NewExpense("2024-01-03", "Food", -2.5),
		core.NewExpense("2024-01-04", "Fun", 40),
	}

	forward := Open(ctx, Options{})
	for _, e := range tuples {
		forward.Append(ctx, e.Date, e.Category, e.Amount)
	}
	backward := Open(ctx, Options{})
	for i := len(tuples) - 1; i >= 0; i-- {
		backward.Append(ctx, tuples[i].Date, tuples[i].Category, tuples[i].Amount)
	}

	assert.Equal(t, forward.Totals(), backward.Totals())
	assert.Equal(t, forward.Balance(), backward.Balance())
	assert.Equal(t, forward.Records(), backward.Records())
}

func TestSortedDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, Options{})
	l.Append(ctx, "2024-01-02", "Food", 30)
	l.Append(ctx, "2024-01-01", "Bills", 10)
	before := l.Records()

	byAmount := l.Sorted(SortAmount)
	assert.Equal(t, []float64{10, 30}, []float64{byAmount[0].Amount, byAmount[1].Amount})
	byCategory := l.Sorted(SortCategory)
	assert.Equal(t, "Bills", byCategory[0].Category)
	assert.Equal(t, before, l.Records())
	assert.Equal(t, before, l.Sorted(SortNone))
}

func TestParseSortKey(t *testing.T) {
	for _, s := range []string{"", "date", "category", "amount"} {
		k, ok := ParseSortKey(s)
		assert.True(t, ok, s)
		assert.Equal(t, SortKey(s), k)
	}
	_, ok := ParseSortKey("balance")
	assert.False(t, ok)
}

func TestNotifierReceivesEvents(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{err: errors.New("broker down")}
	l := Open(ctx, Options{Notifier: n})
	fixed := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Append(ctx, "2024-01-01", "Food", 12.5)
	l.Clear(ctx)

	require.Len(t, n.events, 2)
	assert.Equal(t, core.ActionAppend, n.events[0].Action)
	require.NotNil(t, n.events[0].Expense)
	assert.Equal(t, "Food", n.events[0].Expense.Category)
	assert.Equal(t, core.InitialBalance-12.5, n.events[0].Balance)
	assert.Equal(t, 1, n.events[0].Records)
	assert.Equal(t, fixed, n.events[0].Timestamp)

	assert.Equal(t, core.ActionClear, n.events[1].Action)
	assert.Nil(t, n.events[1].Expense)
	assert.Equal(t, core.InitialBalance, n.events[1].Balance)
	assert.Empty(t, l.Records(), "notifier failure must not roll back")
}
