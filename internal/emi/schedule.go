package emi

import (
	"github.com/shopspring/decimal"

	"kharcha/internal/core"
)

// Installment is one row of an amortization table.
type Installment struct {
	Number    int        `json:"number"`
	DueDate   core.Date  `json:"due_date"`
	Payment   core.Money `json:"payment"`
	Interest  core.Money `json:"interest"`
	Principal core.Money `json:"principal"`
	Balance   core.Money `json:"balance"`
}

// Schedule splits every installment of t into interest and principal.
// Amounts are rounded to two places per row; the final installment absorbs
// the rounding so the balance closes at exactly zero.
func Schedule(t Terms) ([]Installment, error) {
	payment, err := MonthlyPayment(t.Principal, t.AnnualRate, t.Tenure)
	if err != nil {
		return nil, err
	}
	payment = payment.Round(2)
	r := t.AnnualRate.DivRound(percentPerMonth, workingPlaces)

	rows := make([]Installment, 0, t.Tenure)
	balance := t.Principal
	for i := 1; i <= t.Tenure; i++ {
		interest := balance.Mul(r).Round(2)
		principal := payment.Sub(interest)
		pay := payment
		if i == t.Tenure || principal.GreaterThan(balance) {
			principal = balance
			pay = principal.Add(interest)
		}
		balance = balance.Sub(principal)
		rows = append(rows, Installment{
			Number:    i,
			DueDate:   t.StartDate.AddMonths(i),
			Payment:   core.NewMoney(pay),
			Interest:  core.NewMoney(interest),
			Principal: core.NewMoney(principal),
			Balance:   core.NewMoney(balance),
		})
		if balance.IsZero() {
			break
		}
	}
	return rows, nil
}

// ScheduleTotals sums the payment and interest columns of a schedule.
func ScheduleTotals(rows []Installment) (paid, interest core.Money) {
	p, in := decimal.Zero, decimal.Zero
	for _, row := range rows {
		p = p.Add(row.Payment.Value)
		in = in.Add(row.Interest.Value)
	}
	return core.NewMoney(p), core.NewMoney(in)
}
