// Package summary derives per-category totals from the ledger records and
// renders them as the plain-text category summary.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"expensetracker/internal/core"
)

// Totals holds one entry per category, ordered by category name.
type Totals []core.CategoryTotal

// Get returns the total for a category.
func (t Totals) Get(category string) (float64, bool) {
	i := sort.Search(len(t), func(i int) bool { return t[i].Category >= category })
	if i < len(t) && t[i].Category == category {
		return t[i].Total, true
	}
	return 0, false
}

// Map returns the totals as a category to amount mapping.
func (t Totals) Map() map[string]float64 {
	m := make(map[string]float64, len(t))
	for _, ct := range t {
		m[ct.Category] = ct.Total
	}
	return m
}

// Recompute sums amounts grouped by category over the full record set.
// The result does not depend on the order of records.
func Recompute(records []core.Expense) Totals {
	sums := make(map[string]float64)
	for _, e := range records {
		sums[e.Category] += e.Amount
	}
	return fromMap(sums)
}

func fromMap(sums map[string]float64) Totals {
	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Totals, 0, len(names))
	for _, name := range names {
		out = append(out, core.CategoryTotal{Category: name, Total: sums[name]})
	}
	return out
}

// FormatSummary renders "<category>: $<amount>" lines in category order.
// Empty totals render as an empty string.
func FormatSummary(totals Totals) string {
	var b strings.Builder
	for _, ct := range totals {
		fmt.Fprintf(&b, "%s: %s\n", ct.Category, core.FormatDollars(ct.Total))
	}
	return b.String()
}

// Writer stores the rendered summary, replacing any previous content.
type Writer interface {
	WriteText(ctx context.Context, text string) error
}

// Aggregator caches the totals of the current ledger contents. It is
// refreshed in full after every ledger mutation.
type Aggregator struct {
	totals Totals
	writer Writer
}

// NewAggregator returns an empty aggregator. A nil writer disables Persist.
func NewAggregator(w Writer) *Aggregator {
	return &Aggregator{writer: w}
}

// Refresh replaces the cached totals with a recomputation over records.
func (a *Aggregator) Refresh(records []core.Expense) Totals {
	a.totals = Recompute(records)
	return a.Totals()
}

// Reset drops all cached totals.
func (a *Aggregator) Reset() {
	a.totals = nil
}

// Totals returns a copy of the cached totals.
func (a *Aggregator) Totals() Totals {
	return append(Totals(nil), a.totals...)
}

// Summary renders the cached totals.
func (a *Aggregator) Summary() string {
	return FormatSummary(a.totals)
}

// Persist overwrites the summary store with the rendered totals.
func (a *Aggregator) Persist(ctx context.Context) error {
	if a.writer == nil {
		return nil
	}
	if err := a.writer.WriteText(ctx, a.Summary()); err != nil {
		return fmt.Errorf("write category summary: %w", err)
	}
	return nil
}
