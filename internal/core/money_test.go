package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"12.50", 12.5, true},
		{" 7.5 ", 7.5, true},
		{"-50", -50, true},
		{"0", 0, true},
		{"1e2", 100, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"12,50", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestFormatDollars(t *testing.T) {
	cases := map[float64]string{
		20:     "$20.00",
		4980:   "$4980.00",
		12.346: "$12.35",
		-50:    "$-50.00",
		0.3:    "$0.30",
	}
	for in, want := range cases {
		if got := FormatDollars(in); got != want {
			t.Fatalf("FormatDollars(%v) = %q, want %q", in, got, want)
		}
	}
}
