// Package emi computes equated monthly installments for reducing-balance loans.
//
// All functions are pure: they read their arguments, never the clock, and are
// safe for concurrent use.
package emi

import (
	"fmt"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
)

// workingPlaces bounds the scale of intermediate results so that compounding
// over long tenures does not grow the operands without limit.
const workingPlaces = 20

// MaxTenureMonths is the longest loan accepted: 100 years. Schedules hold
// one row per month, so the bound also caps their size.
const MaxTenureMonths = 1200

var (
	one             = decimal.NewFromInt(1)
	percentPerMonth = decimal.NewFromInt(12 * 100)
)

// MonthlyPayment returns the fixed installment that repays principal over
// tenureMonths at annualRatePercent, using
//
//	P * r * (1+r)^n / ((1+r)^n - 1),  r = annualRatePercent / 1200
//
// A zero rate degenerates to principal / tenureMonths.
func MonthlyPayment(principal, annualRatePercent decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if !principal.IsPositive() {
		return decimal.Zero, &core.InvalidInputError{Field: "principal", Reason: "must be greater than zero"}
	}
	if annualRatePercent.IsNegative() {
		return decimal.Zero, &core.InvalidInputError{Field: "interest_rate", Reason: "must not be negative"}
	}
	if tenureMonths <= 0 {
		return decimal.Zero, &core.InvalidInputError{Field: "tenure", Reason: "must be a positive number of months"}
	}
	if tenureMonths > MaxTenureMonths {
		return decimal.Zero, &core.InvalidInputError{Field: "tenure", Reason: fmt.Sprintf("must not exceed %d months", MaxTenureMonths)}
	}

	n := decimal.NewFromInt(int64(tenureMonths))
	if annualRatePercent.IsZero() {
		return principal.DivRound(n, workingPlaces), nil
	}

	r := annualRatePercent.DivRound(percentPerMonth, workingPlaces)
	growth := compound(one.Add(r), tenureMonths)
	return principal.Mul(r).Mul(growth).DivRound(growth.Sub(one), workingPlaces), nil
}

// TotalPayable is the sum of all installments.
func TotalPayable(monthlyPayment decimal.Decimal, tenureMonths int) decimal.Decimal {
	return monthlyPayment.Mul(decimal.NewFromInt(int64(tenureMonths)))
}

// TotalInterest is what the borrower pays on top of the principal. A negative
// result means the inputs are inconsistent.
func TotalInterest(totalPayable, principal decimal.Decimal) decimal.Decimal {
	return totalPayable.Sub(principal)
}

// NextDueDate is one calendar month after start, clamped to the month's length.
func NextDueDate(start core.Date) core.Date {
	return start.AddMonths(1)
}

// compound returns base^n by repeated squaring.
func compound(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(workingPlaces)
		}
		base = base.Mul(base).Round(workingPlaces)
		n >>= 1
	}
	return result
}
