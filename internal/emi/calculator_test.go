package emi

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMonthlyPaymentTextbook(t *testing.T) {
	got, err := MonthlyPayment(dec("100000"), dec("10"), 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Round(0).Equal(dec("8792")) {
		t.Errorf("MonthlyPayment rounded to units = %s, want 8792", got.Round(0))
	}
	if !got.Round(2).Equal(dec("8791.59")) {
		t.Errorf("MonthlyPayment rounded to cents = %s, want 8791.59", got.Round(2))
	}
}

func TestMonthlyPaymentValues(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		tenure    int
		want      string // rounded to 2 places
	}{
		{"home loan 20y", "5000000", "8.5", 240, "43391.16"},
		{"car loan 5y", "800000", "9", 60, "16606.68"},
		{"single month", "1000", "12", 1, "1010.00"},
		{"zero rate", "1200", "0", 12, "100.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MonthlyPayment(dec(tt.principal), dec(tt.rate), tt.tenure)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.StringFixed(2) != tt.want {
				t.Errorf("MonthlyPayment() = %s, want %s", got.StringFixed(2), tt.want)
			}
		})
	}
}

func TestMonthlyPaymentRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		tenure    int
		field     string
	}{
		{"zero principal", "0", "10", 12, "principal"},
		{"negative principal", "-5", "10", 12, "principal"},
		{"negative rate", "1000", "-1", 12, "interest_rate"},
		{"zero tenure", "1000", "10", 0, "tenure"},
		{"negative tenure", "1000", "10", -3, "tenure"},
		{"tenure over the cap", "1000", "10", MaxTenureMonths + 1, "tenure"},
		{"huge tenure", "1000", "10", 2000000000, "tenure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MonthlyPayment(dec(tt.principal), dec(tt.rate), tt.tenure)
			var ie *core.InvalidInputError
			if !errors.As(err, &ie) {
				t.Fatalf("expected InvalidInputError, got %v", err)
			}
			if ie.Field != tt.field {
				t.Errorf("field = %q, want %q", ie.Field, tt.field)
			}
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Errorf("expected errors.Is ErrInvalidInput")
			}
		})
	}
}

func TestTotalPayableNeverBelowPrincipal(t *testing.T) {
	principals := []string{"0.01", "1", "999.99", "100000", "7500000"}
	rates := []string{"0.01", "1", "7.25", "10", "36"}
	tenures := []int{1, 2, 7, 12, 60, 360}
	for _, p := range principals {
		for _, r := range rates {
			for _, n := range tenures {
				payment, err := MonthlyPayment(dec(p), dec(r), n)
				if err != nil {
					t.Fatalf("p=%s r=%s n=%d: %v", p, r, n, err)
				}
				total := TotalPayable(payment, n)
				if total.LessThan(dec(p)) {
					t.Fatalf("p=%s r=%s n=%d: total %s below principal", p, r, n, total)
				}
				if TotalInterest(total, dec(p)).IsNegative() {
					t.Fatalf("p=%s r=%s n=%d: negative interest", p, r, n)
				}
			}
		}
	}
}

func TestTotals(t *testing.T) {
	if got := TotalPayable(dec("100.5"), 12); !got.Equal(dec("1206")) {
		t.Errorf("TotalPayable = %s", got)
	}
	if got := TotalInterest(dec("1206"), dec("1000")); !got.Equal(dec("206")) {
		t.Errorf("TotalInterest = %s", got)
	}
	if got := TotalInterest(dec("900"), dec("1000")); !got.IsNegative() {
		t.Errorf("expected negative interest for inconsistent input, got %s", got)
	}
}

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		start core.Date
		want  core.Date
	}{
		{core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 29)},
		{core.NewDate(2025, 1, 31), core.NewDate(2025, 2, 28)},
		{core.NewDate(2024, 5, 31), core.NewDate(2024, 6, 30)},
		{core.NewDate(2024, 12, 10), core.NewDate(2025, 1, 10)},
		{core.NewDate(2024, 3, 15), core.NewDate(2024, 4, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.start.String(), func(t *testing.T) {
			if got := NextDueDate(tt.start); got.String() != tt.want.String() {
				t.Errorf("NextDueDate(%s) = %s, want %s", tt.start, got, tt.want)
			}
		})
	}
}
