package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
	"expensetracker/internal/storage"
)

func newTestServer(t *testing.T, records ...core.Expense) (*Server, *ledger.Ledger) {
	t.Helper()
	var store *storage.MemoryStore
	if len(records) > 0 {
		store = storage.NewMemoryStoreWith(records)
	} else {
		store = storage.NewMemoryStore()
	}
	l := ledger.Open(context.Background(), ledger.Options{Store: store})
	s := NewServer(":0", l, nil)
	t.Cleanup(s.limiter.close)
	return s, l
}

func postForm(s *Server, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexRendersLedger(t *testing.T) {
	s, _ := newTestServer(t, core.NewExpense("2024-01-02", "Food", 12.5))

	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "2024-01-02")
	assert.Contains(t, body, "Food")
	assert.Contains(t, body, "Balance: $4987.50")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestIndexFormatsAmounts(t *testing.T) {
	s, _ := newTestServer(t, core.NewExpense("2024-01-02", "Car", 1000000))

	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `<td class="amount">$1000000.00</td>`)
	assert.NotContains(t, rr.Body.String(), "e+06")
}

func TestIndexUnknownPathIsNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateExpense(t *testing.T) {
	s, l := newTestServer(t)

	rr := postForm(s, "/expenses", url.Values{
		"date":     {"2024-03-01"},
		"category": {"Food"},
		"amount":   {"12.50"},
	})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	require.Len(t, l.Records(), 1)
	assert.Equal(t, 4987.5, l.Balance())
	assert.Equal(t, []float64{12.5}, l.History())

	index := httptest.NewRecorder()
	s.Handler.ServeHTTP(index, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, index.Body.String(), "Expense: $12.50")
}

func TestCreateExpenseInvalidAmount(t *testing.T) {
	s, l := newTestServer(t)

	rr := postForm(s, "/expenses", url.Values{
		"date":     {"2024-03-01"},
		"category": {"Food"},
		"amount":   {"abc"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid amount")
	assert.Contains(t, rr.Body.String(), `value="Food"`)
	assert.Empty(t, l.Records())
	assert.Equal(t, core.InitialBalance, l.Balance())
}

func TestCreateExpenseRejectsGet(t *testing.T) {
	s, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/expenses", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "POST", rr.Header().Get("Allow"))
}

func TestClear(t *testing.T) {
	s, l := newTestServer(t,
		core.NewExpense("2024-01-01", "Food", 10),
		core.NewExpense("2024-01-02", "Rent", 20),
	)

	rr := postForm(s, "/clear", url.Values{})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Empty(t, l.Records())
	assert.Equal(t, core.InitialBalance, l.Balance())
	assert.Empty(t, l.Summary())
}

func TestTotals(t *testing.T) {
	s, _ := newTestServer(t,
		core.NewExpense("2024-01-01", "Food", 12.5),
		core.NewExpense("2024-01-02", "Food", 7.5),
		core.NewExpense("2024-01-03", "Bills", 40),
	)

	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/totals", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, "Bills: $40.00\nFood: $20.00\n", rr.Body.String())
}

func TestIndexSortedView(t *testing.T) {
	s, l := newTestServer(t,
		core.NewExpense("2024-01-01", "Rent", 100),
		core.NewExpense("2024-01-02", "Food", 5),
	)

	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/?sort=category", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Less(t, strings.Index(body, "<td>Food</td>"), strings.Index(body, "<td>Rent</td>"))
	// the stored order is untouched by the view
	assert.Equal(t, "Rent", l.Records()[0].Category)
}

func TestExport(t *testing.T) {
	s, _ := newTestServer(t, core.NewExpense("2024-01-01", "Food", 12.5))

	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/export.xlsx", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "expenses.xlsx")
	// xlsx files are zip archives
	assert.True(t, strings.HasPrefix(rr.Body.String(), "PK"))
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestCreateExpenseKeepsTextAsTyped(t *testing.T) {
	s, l := newTestServer(t)

	rr := postForm(s, "/expenses", url.Values{
		"date":     {" 2024-2-1"},
		"category": {"Food "},
		"amount":   {" 3.25 "},
	})

	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Len(t, l.Records(), 1)
	assert.Equal(t, core.NewExpense(" 2024-2-1", "Food ", 3.25), l.Records()[0])
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.RemoteAddr = "198.51.100.2:5000"
	assert.Equal(t, "198.51.100.2", clientIP(req))
}

func TestWriteLimiter(t *testing.T) {
	rl := newWriteLimiter(2)
	defer rl.close()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("a"))

	now = now.Add(limiterStaleAfter + time.Minute)
	rl.evictStale()
	assert.Empty(t, rl.clients)
}

func TestCreateExpenseRateLimited(t *testing.T) {
	s, l := newTestServer(t)
	s.limiter.limit = 1

	form := url.Values{"date": {"d"}, "category": {"c"}, "amount": {"1"}}
	assert.Equal(t, http.StatusSeeOther, postForm(s, "/expenses", form).Code)

	rr := postForm(s, "/expenses", form)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Len(t, l.Records(), 1)
}

func TestRequestIDEchoed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/totals", nil)
	req.Header.Set("X-Request-ID", "req_fixed")
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	assert.Equal(t, "req_fixed", rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/totals", nil))
	assert.True(t, strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_"))
}
