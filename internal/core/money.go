// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing amounts typed into the expense
// form and rendering them the way the ledger displays and persists them.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts the text of the amount field into a float64.
//
// Any value strconv.ParseFloat accepts is allowed, including negative
// amounts (refunds) and zero. Surrounding whitespace is ignored. NaN and
// infinities are rejected because they cannot be persisted.
//
// Examples:
//
//	ParseAmount("12.50") -> 12.5, nil
//	ParseAmount(" -50 ") -> -50, nil
//	ParseAmount("1e2")   -> 100, nil
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a finite number", ErrInvalidAmount, s)
	}
	return v, nil
}

// FormatDollars renders an amount with exactly two decimals, e.g. "$12.50".
func FormatDollars(amount float64) string {
	return "$" + strconv.FormatFloat(amount, 'f', 2, 64)
}
