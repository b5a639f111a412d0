package core

import (
	"errors"
	"sort"
)

// InitialBalance is the balance of an empty ledger.
const InitialBalance = 5000.0

type (
	// Expense is a single ledger record. Date and Category are free text and
	// are never validated; identity is the record's position in the ledger.
	Expense struct {
		Date     string  `json:"date"`
		Category string  `json:"category"`
		Amount   float64 `json:"amount"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
)

// NewExpense builds a record from already parsed values.
func NewExpense(date, category string, amount float64) Expense {
	return Expense{Date: date, Category: category, Amount: amount}
}

// SortByDate orders expenses in place by a plain byte-wise comparison of
// Date. "2024-10-1" sorts before "2024-2-1". Equal dates keep their
// relative order.
func SortByDate(expenses []Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Date < expenses[j].Date
	})
}

// SortByCategory orders expenses by category name, then by date.
func SortByCategory(expenses []Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		if expenses[i].Category != expenses[j].Category {
			return expenses[i].Category < expenses[j].Category
		}
		return expenses[i].Date < expenses[j].Date
	})
}

// SortByAmount orders expenses by ascending amount.
func SortByAmount(expenses []Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Amount < expenses[j].Amount
	})
}

// Sum returns the total amount of the given expenses.
func Sum(expenses []Expense) float64 {
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}
