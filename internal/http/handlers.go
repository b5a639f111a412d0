package http

import (
	"errors"
	"net/http"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
)

type formValues struct {
	Date     string
	Category string
	Amount   string
}

type indexData struct {
	Records    []core.Expense
	Balance    string
	History    []string
	Summary    string
	ShowTotals bool
	Sort       ledger.SortKey
	NextSort   ledger.SortKey
	Error      string
	Form       formValues
}

// nextSort cycles the "Sort Table" link through the columns.
func nextSort(k ledger.SortKey) ledger.SortKey {
	switch k {
	case ledger.SortDate:
		return ledger.SortCategory
	case ledger.SortCategory:
		return ledger.SortAmount
	default:
		return ledger.SortDate
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.renderIndex(w, r, http.StatusOK, "", formValues{})
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, errMsg string, form formValues) {
	ctx := r.Context()
	if s.templates == nil {
		log.FromContext(ctx).ErrorContext(ctx, "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	sortKey, ok := ledger.ParseSortKey(r.URL.Query().Get("sort"))
	if !ok {
		sortKey = ledger.SortNone
	}

	history := s.ledger.History()
	lines := make([]string, len(history))
	for i, amount := range history {
		lines[i] = core.FormatDollars(amount)
	}

	data := indexData{
		Records:    s.ledger.Sorted(sortKey),
		Balance:    core.FormatDollars(s.ledger.Balance()),
		History:    lines,
		Summary:    s.ledger.Summary(),
		ShowTotals: r.URL.Query().Get("totals") != "",
		Sort:       sortKey,
		NextSort:   nextSort(sortKey),
		Error:      errMsg,
		Form:       form,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Index template execution failed",
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Parse form error", log.FieldError, err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := formValues{
		Date:     r.PostForm.Get("date"),
		Category: r.PostForm.Get("category"),
		Amount:   r.PostForm.Get("amount"),
	}

	if _, err := s.ledger.AppendText(ctx, form.Date, form.Category, form.Amount); err != nil {
		if errors.Is(err, core.ErrInvalidAmount) {
			s.renderIndex(w, r, http.StatusUnprocessableEntity, "Invalid amount: "+strings.TrimSpace(form.Amount), form)
			return
		}
		log.FromContext(ctx).ErrorContext(ctx, "Failed to append expense", log.FieldError, err)
		http.Error(w, "could not add expense", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.ledger.Clear(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.ledger.Summary()))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	xlsx, err := export.Workbook(s.ledger.Records(), s.ledger.Totals(), s.ledger.Balance())
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to build workbook",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	defer xlsx.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.xlsx"`)
	if _, err := xlsx.WriteTo(w); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to write workbook", log.FieldError, err)
	}
}
